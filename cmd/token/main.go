package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/xtrntr/orderbook/internal/auth"
	"github.com/xtrntr/orderbook/internal/config"
)

// Prints a bearer token signed with APP_AUTH_SECRET
func main() {
	subject := flag.String("subject", "operator", "token subject")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	token, err := auth.NewAuthService(cfg.App.AuthSecret).IssueToken(*subject, *ttl)
	if err != nil {
		log.Fatalf("Failed to issue token: %v", err)
	}
	fmt.Println(token)
}
