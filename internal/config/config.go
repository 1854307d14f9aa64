package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Kaspa node
	KaspadRPCURL         string
	KaspadRPCFallbackURL string
	KaspaRESTURL         string

	// Database
	DatabaseURL string

	// Web Server
	WebBind string

	// Outbound mail (invites); disabled when SMTPHost is empty
	SMTPHost string
	SMTPPort int
	SMTPFrom string
	SMTPUser string
	SMTPPass string

	// Per-connection rate limit for inbound socket events
	ChatRateRPS   float64
	ChatRateBurst int
}

func Load() (*Config, error) {
	// Load environment variables from .env if present (non-fatal if missing)
	_ = godotenv.Load()

	cfg := &Config{
		KaspadRPCURL:         os.Getenv("KASPAD_RPC_URL"),
		KaspadRPCFallbackURL: os.Getenv("KASPAD_RPC_FALLBACK_URL"),
		KaspaRESTURL:         getEnvDefault("KASPA_REST_URL", "https://api.kaspa.org"),
		DatabaseURL:          os.Getenv("DATABASE_URL"),
		WebBind:              getEnvDefault("WEB_BIND", "0.0.0.0:8080"),
		SMTPHost:             os.Getenv("SMTP_HOST"),
		SMTPPort:             getEnvIntDefault("SMTP_PORT", 587),
		SMTPFrom:             os.Getenv("SMTP_FROM"),
		SMTPUser:             os.Getenv("SMTP_USER"),
		SMTPPass:             os.Getenv("SMTP_PASS"),
		ChatRateRPS:          getEnvFloatDefault("CHAT_RATE_RPS", 5),
		ChatRateBurst:        getEnvIntDefault("CHAT_RATE_BURST", 10),
	}

	if cfg.KaspadRPCURL == "" {
		return nil, fmt.Errorf("KASPAD_RPC_URL is required")
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.SMTPHost != "" && cfg.SMTPFrom == "" {
		return nil, fmt.Errorf("SMTP_FROM is required when SMTP_HOST is set")
	}

	return cfg, nil
}

func getEnvDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvFloatDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
