package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"summer-miles/ledger/internal/auth"

	"github.com/joho/godotenv"
)

// token_gen prints a bearer token for local testing against a server with JWT_SECRET set.
func main() {
	_ = godotenv.Load()

	userID := flag.String("user", "demo-user", "user id placed in the sub claim")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		log.Fatal("JWT_SECRET must be set")
	}

	token, err := auth.IssueToken(secret, *userID, *ttl)
	if err != nil {
		log.Fatalf("issue token: %v", err)
	}
	fmt.Println(token)
}
