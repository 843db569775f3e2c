package main

import (
	"bufio"
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"strings"

	"hostreport/internal/config"
	"hostreport/internal/middleware"

	"golang.org/x/term"
)

func main() {
	username := flag.String("username", "admin", "Dashboard username")
	password := flag.String("password", "", "New password (leave blank to type securely)")
	envFormat := flag.Bool("env", false, "Print as environment variables instead of YAML")
	withSecret := flag.Bool("secret", false, "Also generate a random JWT signing secret")
	flag.Parse()

	if strings.TrimSpace(*username) == "" {
		fmt.Fprintln(os.Stderr, "username cannot be empty")
		os.Exit(1)
	}

	pwd, err := resolvePassword(*password)
	if err != nil {
		fmt.Fprintf(os.Stderr, "password error: %v\n", err)
		os.Exit(1)
	}

	hash, err := middleware.HashPassword(pwd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to hash password: %v\n", err)
		os.Exit(1)
	}

	var secret string
	if *withSecret {
		if secret, err = randomSecret(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to generate secret: %v\n", err)
			os.Exit(1)
		}
	}

	if *envFormat {
		fmt.Printf("%s=%s\n", config.EnvAuthUser, *username)
		fmt.Printf("%s='%s'\n", config.EnvAuthHash, hash)
		if secret != "" {
			fmt.Printf("%s=%s\n", config.EnvJWTSecret, secret)
		}
		return
	}
	fmt.Println("auth:")
	fmt.Printf("  username: %s\n", *username)
	fmt.Printf("  password_hash: '%s'\n", hash)
	if secret != "" {
		fmt.Printf("  secret: %s\n", secret)
	}
}

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func resolvePassword(input string) (string, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed != "" {
		if len(trimmed) < 8 {
			return "", fmt.Errorf("password must be at least 8 characters")
		}
		return trimmed, nil
	}

	first, err := promptPassword("Enter new password: ")
	if err != nil {
		return "", err
	}
	second, err := promptPassword("Confirm password: ")
	if err != nil {
		return "", err
	}
	if first != second {
		return "", fmt.Errorf("passwords do not match")
	}
	if len(first) < 8 {
		return "", fmt.Errorf("password must be at least 8 characters")
	}
	return first, nil
}

func promptPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		bytes, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(bytes)), nil
	}

	reader := bufio.NewReader(os.Stdin)
	text, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}
