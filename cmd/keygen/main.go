package main

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"os"

	"golang.org/x/crypto/bcrypt"
)

// Usage: go run cmd/keygen/main.go [admin-password]
//
// Prints a fresh SECRET_KEY and the bcrypt ADMIN_PASSWORD_HASH for the given
// password. Without an argument a random password is generated and printed.
func main() {
	password := ""
	if len(os.Args) > 1 {
		password = os.Args[1]
	}
	if err := generate(os.Stdout, password); err != nil {
		fmt.Fprintf(os.Stderr, "keygen: %v\n", err)
		os.Exit(1)
	}
}

func generate(w io.Writer, password string) error {
	secret, err := randomString(32)
	if err != nil {
		return err
	}

	generated := password == ""
	if generated {
		if password, err = randomString(18); err != nil {
			return err
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	fmt.Fprintln(w, "Generated admin credentials")
	fmt.Fprintln(w)
	if generated {
		fmt.Fprintln(w, "Admin password (store it somewhere safe, it is not recoverable):")
		fmt.Fprintln(w, password)
		fmt.Fprintln(w)
	}
	fmt.Fprintln(w, "Add to your environment:")
	fmt.Fprintf(w, "SECRET_KEY=%s\n", secret)
	// single quotes keep shells and .env loaders from expanding the $ segments
	fmt.Fprintf(w, "ADMIN_PASSWORD_HASH='%s'\n", hash)
	return nil
}

func randomString(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
