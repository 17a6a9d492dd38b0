package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds the configuration for the application.
type Config struct {
	DatabasePath string

	// AI providers (optional; assistant features are disabled without them)
	GeminiAPIKey string
	GroqAPIKey   string

	// Token signing secret for user tokens
	JWTSecret string

	// Telegram Config (optional for CLI, required for the bot)
	TelegramBotToken   string
	TelegramWebhookURL string

	// When true, regenerating a shopping list carries the purchased flag
	// forward for items whose (name, unit) key is unchanged.
	PreservePurchased bool
}

// NewFromEnv creates a new Config object from environment variables.
func NewFromEnv() (*Config, error) {
	dbPath := os.Getenv("DATABASE_PATH")
	if dbPath == "" {
		dbPath = "data/onlypans.db"
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable not set")
	}

	preservePurchased := true
	if raw := os.Getenv("SHOPPING_PRESERVE_PURCHASED"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid SHOPPING_PRESERVE_PURCHASED value %q: %w", raw, err)
		}
		preservePurchased = parsed
	}

	return &Config{
		DatabasePath:       dbPath,
		GeminiAPIKey:       os.Getenv("GEMINI_API_KEY"),
		GroqAPIKey:         os.Getenv("GROQ_API_KEY"),
		JWTSecret:          jwtSecret,
		TelegramBotToken:   os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramWebhookURL: os.Getenv("TELEGRAM_WEBHOOK_URL"),
		PreservePurchased:  preservePurchased,
	}, nil
}
