package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port string

	DatabasePath string

	// GatewaySecret is the shared secret for payment callback signatures.
	GatewaySecret string
	// CallbackFreshness bounds how far a callback timestamp may drift from
	// the server clock before the delivery is rejected.
	CallbackFreshness time.Duration

	// RedisAddr is optional; when set, rate limiting and nonce tracking
	// move to Redis so the limits hold across instances.
	RedisAddr     string
	RedisPassword string

	FreeDownloadLimit int
	FreeWindow        time.Duration
	SweepInterval     time.Duration

	// Display labels for downgraded quality tiers.
	HDLabel string
	SDLabel string

	SentryDSN string

	SMTPHost string
	SMTPPort string
	SMTPUser string
	SMTPPass string
}

func New() (*Config, error) {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	dbPath := os.Getenv("DATABASE_PATH")
	if dbPath == "" {
		dbPath = "gramload.db"
	}

	gatewaySecret := os.Getenv("GATEWAY_SECRET")
	if gatewaySecret == "" {
		return nil, errors.New("GATEWAY_SECRET environment variable is required")
	}

	freshness, err := durationEnv("CALLBACK_FRESHNESS", 5*time.Minute)
	if err != nil {
		return nil, err
	}

	freeLimit, err := intEnv("FREE_DOWNLOAD_LIMIT", 5)
	if err != nil {
		return nil, err
	}

	freeWindow, err := durationEnv("FREE_DOWNLOAD_WINDOW", 24*time.Hour)
	if err != nil {
		return nil, err
	}

	sweepInterval, err := durationEnv("SWEEP_INTERVAL", 10*time.Minute)
	if err != nil {
		return nil, err
	}

	return &Config{
		Port:              port,
		DatabasePath:      dbPath,
		GatewaySecret:     gatewaySecret,
		CallbackFreshness: freshness,
		RedisAddr:         os.Getenv("REDIS_ADDR"),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
		FreeDownloadLimit: freeLimit,
		FreeWindow:        freeWindow,
		SweepInterval:     sweepInterval,
		HDLabel:           os.Getenv("QUALITY_LABEL_HD"),
		SDLabel:           os.Getenv("QUALITY_LABEL_SD"),
		SentryDSN:         os.Getenv("SENTRY_DSN"),
		SMTPHost:          os.Getenv("SMTP_HOST"),
		SMTPPort:          os.Getenv("SMTP_PORT"),
		SMTPUser:          os.Getenv("SMTP_USER"),
		SMTPPass:          os.Getenv("SMTP_PASS"),
	}, nil
}

func intEnv(name string, fallback int) (int, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", name, err)
	}
	return value, nil
}

func durationEnv(name string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback, nil
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration like 30m or 24h: %w", name, err)
	}
	return value, nil
}
