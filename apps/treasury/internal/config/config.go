package config

import (
	"errors"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DbURL           string
	KafkaBroker     string
	KafkaTopic      string
	PayoutAPIURL    string
	VenueAPIURL     string
	HeartbeatTick   time.Duration
	SettlementDelay time.Duration
	APIPort         int
}

// NewConfig loads configuration from environment variables
func NewConfig() *Config {
	// Load .env file; a missing file is fine, the environment may be set
	// by the deployment instead.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatalf("Could not load .env file: %v", err)
	}

	return &Config{
		DbURL:           getEnvOrFatal("DB_URL"),
		KafkaBroker:     getEnvOrFatal("KAFKA_BROKER"),
		KafkaTopic:      getEnvOrFatal("KAFKA_TOPIC"),
		PayoutAPIURL:    getEnvOrFatal("PAYOUT_API_URL"),
		VenueAPIURL:     getEnvOrFatal("VENUE_API_URL"),
		HeartbeatTick:   time.Duration(getEnvInt("HEARTBEAT_TICK_SECONDS", 60)) * time.Second,
		SettlementDelay: time.Duration(getEnvInt("SETTLEMENT_DELAY_SECONDS", 10)) * time.Second,
		APIPort:         getEnvInt("API_PORT", 8080),
	}
}

func getEnvOrFatal(key string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}

	log.Fatalf("Warning: environment variable %s not set", key)

	return ""
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
