package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/podushkina/notifyqueue/internal/api"
	"github.com/podushkina/notifyqueue/internal/auth"
	"github.com/podushkina/notifyqueue/internal/config"
	"github.com/podushkina/notifyqueue/internal/email"
	"github.com/podushkina/notifyqueue/internal/handlers"
	"github.com/podushkina/notifyqueue/internal/job"
	"github.com/podushkina/notifyqueue/internal/queue"
	"github.com/podushkina/notifyqueue/internal/store"
	"github.com/podushkina/notifyqueue/internal/worker"
)

func main() {
	cfg := config.Load()

	st, closeStore := openStore(cfg)
	defer closeStore()

	sender, closeSender := openSender(cfg)
	defer closeSender()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := queue.New(st, queue.WithDefaultMaxRetries(cfg.MaxRetries))

	dispatcher := worker.NewDispatcher(q, cfg.PollInterval)
	dispatcher.Register(job.TypeEmail, handlers.Email(sender))
	dispatcher.Register(job.TypeNotification, handlers.Notification(sender, cfg.AdminEmails))
	dispatcher.Start(ctx)

	sweeper := worker.NewSweeper(q, cfg.SweepInterval, cfg.Retention)
	sweeper.Start(ctx)

	opts := api.RouterOptions{AllowedOrigins: cfg.CORSAllowedOrigins}
	if cfg.JWTSecret != "" {
		opts.JWT = auth.NewJWT(cfg.JWTSecret)
	} else {
		log.Println("JWT_SECRET not set, operator routes are unauthenticated")
	}
	router := api.NewRouter(api.NewHandler(q), opts)

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on port %s", cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	cancel()
	dispatcher.Stop()
	sweeper.Stop()
	log.Println("Server stopped")
}

func openStore(cfg *config.Config) (store.Store, func()) {
	switch cfg.StoreBackend {
	case "memory":
		log.Println("Using in-memory job store")
		return store.NewMemory(), func() {}
	case "redis":
		rs, err := store.NewRedis(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		log.Println("Connected to Redis")
		return rs, func() { rs.Close() }
	default:
		log.Fatalf("Unknown STORE_BACKEND %q", cfg.StoreBackend)
		return nil, nil
	}
}

func openSender(cfg *config.Config) (email.Sender, func()) {
	switch cfg.MailTransport {
	case "log":
		return email.LogSender{}, func() {}
	case "smtp":
		s, err := email.NewSMTPSender(email.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUser,
			Password: cfg.SMTPPass,
			From:     cfg.MailFrom,
			Timeout:  cfg.SMTPTimeout,
		})
		if err != nil {
			log.Fatalf("Failed to configure SMTP: %v", err)
		}
		return s, func() { s.Close() }
	case "ses":
		awsCfg, err := awsconfig.LoadDefaultConfig(context.Background())
		if err != nil {
			log.Fatalf("Failed to load AWS config: %v", err)
		}
		s, err := email.NewSESSender(awsCfg, cfg.MailFrom)
		if err != nil {
			log.Fatalf("Failed to configure SES: %v", err)
		}
		return s, func() {}
	default:
		log.Fatalf("Unknown MAIL_TRANSPORT %q", cfg.MailTransport)
		return nil, nil
	}
}
