package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Port string

	GeminiAPIKey  string
	GeminiBaseURL string

	SpotifyClientID     string
	SpotifyClientSecret string
	SpotifyMarket       string
	CatalogRateLimit    float64

	DatabaseURL      string
	RedisAddr        string
	UserDirectoryURL string

	HTTPTimeoutSeconds int
	LogLevel           string
}

// Load reads configuration from .env file (if present) and environment variables.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	timeout, err := strconv.Atoi(getEnv("HTTP_TIMEOUT_SECONDS", "15"))
	if err != nil || timeout <= 0 {
		timeout = 15
	}

	rateLimit, err := strconv.ParseFloat(getEnv("CATALOG_RATE_LIMIT", "10"), 64)
	if err != nil || rateLimit <= 0 {
		rateLimit = 10
	}

	return &Config{
		Port:                getEnv("PORT", "8080"),
		GeminiAPIKey:        getEnv("GEMINI_API_KEY", ""),
		GeminiBaseURL:       getEnv("GEMINI_BASE_URL", ""),
		SpotifyClientID:     getEnv("SPOTIFY_CLIENT_ID", ""),
		SpotifyClientSecret: getEnv("SPOTIFY_CLIENT_SECRET", ""),
		SpotifyMarket:       getEnv("SPOTIFY_MARKET", "US"),
		CatalogRateLimit:    rateLimit,
		DatabaseURL:         getEnv("DATABASE_URL", "postgres://localhost:5432/moodlist"),
		RedisAddr:           getEnv("REDIS_ADDR", ""),
		UserDirectoryURL:    getEnv("USER_DIRECTORY_URL", ""),
		HTTPTimeoutSeconds:  timeout,
		LogLevel:            getEnv("LOG_LEVEL", "info"),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
