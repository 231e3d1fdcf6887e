package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	AllowedOrigins  []string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Model provider configuration.
	GeminiAPIKey string
	ModelTimeout time.Duration

	// Environmental and geocoding provider configuration.
	OpenWeatherAPIKey string
	ProviderTimeout   time.Duration
	GeocodeCacheSize  int

	// Notification sinks.
	WebhookURL      string
	WebhookTimeout  time.Duration
	KafkaBrokers    []string
	KafkaAlertTopic string
	KafkaEnabled    bool

	// Persistence (sqlite). Empty path disables the store.
	DatabasePath       string
	PersistenceEnabled bool
	AlertRetention     time.Duration
	AlertSweepInterval time.Duration
}

// Load reads configuration from the environment, applying defaults where
// unset. A .env file in the working directory is folded in first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	modelTimeout, err := parseDuration("MODEL_TIMEOUT", "20s")
	if err != nil {
		return nil, err
	}
	providerTimeout, err := parseDuration("PROVIDER_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	webhookTimeout, err := parseDuration("WEBHOOK_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	alertRetention, err := parseDuration("ALERT_RETENTION", "720h")
	if err != nil {
		return nil, err
	}
	sweepInterval, err := parseDuration("ALERT_SWEEP_INTERVAL", "24h")
	if err != nil {
		return nil, err
	}

	brokers := parseList(os.Getenv("KAFKA_BROKERS"))
	databasePath := os.Getenv("DATABASE_PATH")

	cfg := &Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		AllowedOrigins:  parseList(envOrDefault("ALLOWED_ORIGINS", "*")),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
		ModelTimeout: modelTimeout,

		OpenWeatherAPIKey: os.Getenv("OPENWEATHER_API_KEY"),
		ProviderTimeout:   providerTimeout,
		GeocodeCacheSize:  parseGeocodeCacheSize(),

		WebhookURL:      os.Getenv("WEBHOOK_URL"),
		WebhookTimeout:  webhookTimeout,
		KafkaBrokers:    brokers,
		KafkaAlertTopic: envOrDefault("KAFKA_ALERT_TOPIC", "allergy-alerts"),
		KafkaEnabled:    len(brokers) > 0,

		DatabasePath:       databasePath,
		PersistenceEnabled: databasePath != "",
		AlertRetention:     alertRetention,
		AlertSweepInterval: sweepInterval,
	}

	if cfg.GeminiAPIKey == "" {
		return nil, errors.New("GEMINI_API_KEY is required")
	}
	if len(cfg.AllowedOrigins) == 0 {
		return nil, errors.New("ALLOWED_ORIGINS must name at least one origin")
	}
	if cfg.KafkaEnabled && cfg.KafkaAlertTopic == "" {
		return nil, errors.New("KAFKA_BROKERS is set but KAFKA_ALERT_TOPIC is empty")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, fallback))
	if err != nil || d <= 0 {
		return 0, errors.New("invalid " + key)
	}
	return d, nil
}

// parseList splits a comma-separated value, dropping empty entries.
func parseList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseGeocodeCacheSize() int {
	if s := os.Getenv("GEOCODE_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 1000
}
