// Command optoken mints an operator bearer token for the job endpoints.
package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/podushkina/notifyqueue/internal/auth"
	"github.com/podushkina/notifyqueue/internal/config"
)

func main() {
	subject := flag.String("sub", "operator", "token subject")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	cfg := config.Load()
	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET is not set")
	}

	token, err := auth.NewJWT(cfg.JWTSecret).Sign(*subject, *ttl)
	if err != nil {
		log.Fatalf("sign token: %v", err)
	}
	fmt.Println(token)
}
