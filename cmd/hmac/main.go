package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/wholesail/wholesail/internal/service"
)

func main() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: go run cmd/hmac/main.go <email> <secret_key> [site_url]")
		os.Exit(1)
	}

	email := strings.ToLower(strings.TrimSpace(os.Args[1]))
	secretKey := os.Args[2]
	siteURL := "http://localhost:8080"
	if len(os.Args) > 3 {
		siteURL = strings.TrimRight(os.Args[3], "/")
	}

	signer := service.NewUnsubscribeSigner(secretKey, siteURL)

	fmt.Println()
	fmt.Printf("Email: %s\n", email)
	fmt.Printf("Signature: %s\n", signer.Sign(email))
	fmt.Println()
	fmt.Printf("Unsubscribe URL: %s\n", signer.URL(email))
}
