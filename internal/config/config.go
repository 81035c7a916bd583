package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port        int
	DatabaseURL string
	NatsURL     string
	NatsToken   string
	LogLevel    string
	APIToken    string

	PricingURL  string
	CalendarURL string
	StaffNumber string

	PatternsFile string

	// Dialogue tuning.
	HighConfidence    float64
	AmbiguityMargin   float64
	MaxClarifications int
	IdleTimeout       time.Duration
	CollabTimeout     time.Duration
	ProfileTTL        time.Duration
}

func Load() Config {
	return Config{
		Port:        envInt("FRONTDESK_PORT", 8760),
		DatabaseURL: envStr("DATABASE_URL", ""),
		NatsURL:     envStr("NATS_URL", ""),
		NatsToken:   envStr("NATS_TOKEN", ""),
		LogLevel:    envStr("LOG_LEVEL", "info"),
		APIToken:    envStr("FRONTDESK_API_TOKEN", ""),

		PricingURL:  envStr("PRICING_URL", "http://pricing:8081"),
		CalendarURL: envStr("CALENDAR_URL", "http://calendar:8082"),
		StaffNumber: envStr("STAFF_PHONE_NUMBER", "+15551234567"),

		PatternsFile: envStr("INTENT_PATTERNS_FILE", ""),

		HighConfidence:    envFloat("HIGH_CONFIDENCE_THRESHOLD", 0.7),
		AmbiguityMargin:   envFloat("AMBIGUITY_MARGIN", 0.15),
		MaxClarifications: envInt("MAX_CLARIFICATION_ATTEMPTS", 3),
		IdleTimeout:       envDuration("SESSION_IDLE_TIMEOUT", 10*time.Minute),
		CollabTimeout:     envDuration("COLLABORATOR_TIMEOUT", 2500*time.Millisecond),
		ProfileTTL:        envDuration("PROFILE_TTL", 30*24*time.Hour),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
