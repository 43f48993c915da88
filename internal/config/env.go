package config

import (
	"os"

	"github.com/joho/godotenv"
)

// loadDotEnv loads .env when present. A missing file is not an error;
// production deployments configure through real environment variables.
func loadDotEnv() {
	if _, err := os.Stat(".env"); err == nil {
		_ = godotenv.Load()
	}
}
