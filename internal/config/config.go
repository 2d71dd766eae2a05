package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port      string
	DBUrl     string
	JWTSecret string
	AppEnv    string

	// HoldWindow is how long an initiated payment hold keeps its slot.
	// SweepInterval must not exceed it or expired holds pile up.
	HoldWindow    time.Duration
	SweepInterval time.Duration
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	jwtSecret, exists := os.LookupEnv("JWT_SECRET")
	if !exists || jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	cfg := &Config{
		Port:          getEnv("PORT", "8080"),
		DBUrl:         getEnv("DB_URL", ""),
		JWTSecret:     jwtSecret,
		AppEnv:        normalizeEnv(getEnv("APP_ENV", "production")),
		HoldWindow:    getEnvMinutes("HOLD_WINDOW_MINUTES", 10),
		SweepInterval: getEnvMinutes("SWEEP_INTERVAL_MINUTES", 1),
	}

	if cfg.SweepInterval > cfg.HoldWindow {
		return nil, fmt.Errorf("SWEEP_INTERVAL_MINUTES must not exceed HOLD_WINDOW_MINUTES")
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvMinutes(key string, fallback int) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return time.Duration(fallback) * time.Minute
	}

	minutes, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || minutes <= 0 {
		log.Printf("%s: invalid value %q, using %d minutes", key, value, fallback)
		return time.Duration(fallback) * time.Minute
	}
	return time.Duration(minutes) * time.Minute
}

func normalizeEnv(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "dev", "develop", "development", "local":
		return "development"
	case "prod", "production":
		return "production"
	case "stage", "staging":
		return "staging"
	case "test", "testing":
		return "test"
	default:
		return strings.ToLower(strings.TrimSpace(value))
	}
}
