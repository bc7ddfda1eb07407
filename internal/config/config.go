// Package config loads application configuration from environment variables,
// with an optional .env file for local development.
package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	ListenAddr string

	MongoURI      string
	MongoDatabase string

	JWTSecret string
	JWTIssuer string

	AllowedOrigins []string
	Debug          bool
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present; real environment variables win.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		ListenAddr:    getEnv("LISTEN_ADDR", ":8080"),
		MongoURI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase: getEnv("MONGO_DATABASE", "whisper"),
		JWTSecret:     getEnv("JWT_SECRET", ""),
		JWTIssuer:     getEnv("JWT_ISSUER", "whisper"),
		Debug:         getEnv("DEBUG", "") == "true",
	}

	origins := getEnv("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:8081")
	for _, origin := range strings.Split(origins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, origin)
		}
	}

	return cfg
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
