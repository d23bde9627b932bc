package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort string

	StoreBackend string
	RedisAddr    string
	RedisPass    string
	RedisDB      int

	MailTransport string
	MailFrom      string
	AdminEmails   []string
	SMTPHost      string
	SMTPPort      int
	SMTPUser      string
	SMTPPass      string
	SMTPTimeout   time.Duration

	MaxRetries    int
	PollInterval  time.Duration
	SweepInterval time.Duration
	Retention     time.Duration

	JWTSecret          string
	CORSAllowedOrigins []string
}

// Load reads the environment, after applying a .env file if one exists.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		ServerPort: getEnv("SERVER_PORT", "8080"),

		StoreBackend: getEnv("STORE_BACKEND", "memory"),
		RedisAddr:    getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPass:    getEnv("REDIS_PASSWORD", ""),
		RedisDB:      getEnvInt("REDIS_DB", 0),

		MailTransport: getEnv("MAIL_TRANSPORT", "log"),
		MailFrom:      getEnv("MAIL_FROM", "no-reply@localhost"),
		AdminEmails:   getEnvList("ADMIN_EMAILS"),
		SMTPHost:      getEnv("SMTP_HOST", ""),
		SMTPPort:      getEnvInt("SMTP_PORT", 587),
		SMTPUser:      getEnv("SMTP_USERNAME", ""),
		SMTPPass:      getEnv("SMTP_PASSWORD", ""),
		SMTPTimeout:   getEnvDuration("SMTP_TIMEOUT", 15*time.Second),

		MaxRetries:    getEnvInt("MAX_RETRIES", 3),
		PollInterval:  getEnvDuration("POLL_INTERVAL", 100*time.Millisecond),
		SweepInterval: getEnvDuration("SWEEP_INTERVAL", 10*time.Minute),
		Retention:     getEnvDuration("RETENTION", time.Hour),

		JWTSecret:          getEnv("JWT_SECRET", ""),
		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS"),
	}
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}

func getEnvList(key string) []string {
	var out []string
	for _, p := range strings.Split(os.Getenv(key), ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
