package config

import (
	"os"
	"strconv"
	"time"
)

// Config carries everything the service reads from the environment.
type Config struct {
	Port              string
	CarSlots          int
	MotorcycleSlots   int
	CarRate           float64
	MotorcycleRate    float64
	MinInitialBalance float64
	ScanTTL           time.Duration
	OTelServiceName   string
	OTelEndpoint      string
	Environment       string
}

func Load() *Config {
	return &Config{
		Port:              envOr("APP_PORT", "8080"),
		CarSlots:          envOrInt("PARKING_CAR_SLOTS", 10),
		MotorcycleSlots:   envOrInt("PARKING_MOTORCYCLE_SLOTS", 5),
		CarRate:           envOrFloat("RATE_CAR_PER_MINUTE", 100),
		MotorcycleRate:    envOrFloat("RATE_MOTORCYCLE_PER_MINUTE", 50),
		MinInitialBalance: envOrFloat("MIN_INITIAL_BALANCE", 5000),
		ScanTTL:           envOrDuration("SCAN_TTL", 30*time.Second),
		OTelServiceName:   envOr("OTEL_SERVICE_NAME", "parqueadero"),
		OTelEndpoint:      envOr("OTEL_EXPORTER_OTLP_ENDPOINT", "http://localhost:4318"),
		Environment:       envOr("APP_ENVIRONMENT", "development"),
	}
}

// IsDevelopment selects console logging over JSON.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func envOrInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envOrFloat(key string, fallback float64) float64 {
	if v, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envOrDuration(key string, fallback time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
