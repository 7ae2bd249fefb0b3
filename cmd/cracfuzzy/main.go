// v0
// cmd/cracfuzzy/main.go
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

const (
	Version = "0.1.0"
	appName = "cracfuzzy"
)

func main() {
	_ = godotenv.Load()
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
