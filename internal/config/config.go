package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port       string
	WebhookURL string

	TelegramBotToken string

	GeminiAPIKey string
	GeminiModel  string

	// Semicolon-delimited canonical reference lists.
	Institutions string
	Officials    string

	SessionTTL time.Duration
}

func mustEnv(k string) string {
	v := os.Getenv(k)
	if v == "" {
		log.Fatalf("missing required env %s", k)
	}
	return v
}

func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func Load() *Config {
	// config.env is the preferred filename; plain .env also works.
	if err := godotenv.Load("config.env"); err != nil {
		_ = godotenv.Load()
	}

	ttl := 30 * time.Minute
	if v := os.Getenv("SESSION_TTL_MINUTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			ttl = time.Duration(n) * time.Minute
		}
	}

	return &Config{
		Port:       getEnv("PORT", "8000"),
		WebhookURL: os.Getenv("WEBHOOK_URL"),

		TelegramBotToken: mustEnv("TELEGRAM_BOT_TOKEN"),

		GeminiAPIKey: mustEnv("GEMINI_API_KEY"),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-2.0-flash"),

		Institutions: mustEnv("PREDEFINED_INSTANSI"),
		Officials:    mustEnv("PEJABAT_LIST"),

		SessionTTL: ttl,
	}
}
