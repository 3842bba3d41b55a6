package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the support assistant service.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string
	Environment      string
	LogLevel         string

	AllowAnyOrigin bool

	SessionBackend     string
	SessionIdleTimeout time.Duration
	JanitorInterval    time.Duration
	HistoryLimit       int

	MaxMessageLength    int
	IntentMinConfidence float64

	FrustrationThreshold float64
	FailureWindow        int

	KnowledgeDir       string
	VectorIndexPath    string
	EmbeddingDim       int
	RetrievalTopK      int
	RetrievalThreshold float64
	RetrievalTimeout   time.Duration

	BookingMode    string
	BookingURL     string
	BookingTimeout time.Duration

	DatabaseURL string
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:             envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace:     envOrDefault("APP_METRICS_NAMESPACE", "carebot"),
		Environment:          envOrDefault("APP_ENV", "development"),
		LogLevel:             envOrDefault("APP_LOG_LEVEL", ""),
		AllowAnyOrigin:       false,
		SessionBackend:       envOrDefault("SESSION_BACKEND", "auto"),
		HistoryLimit:         10,
		MaxMessageLength:     1000,
		IntentMinConfidence:  0.3,
		FrustrationThreshold: 0.6,
		FailureWindow:        3,
		KnowledgeDir:         envOrDefault("KNOWLEDGE_DIR", "knowledge"),
		VectorIndexPath:      stringsTrimSpace("VECTOR_INDEX_PATH"),
		EmbeddingDim:         256,
		RetrievalTopK:        5,
		RetrievalThreshold:   0.3,
		BookingMode:          envOrDefault("BOOKING_MODE", "auto"),
		BookingURL:           stringsTrimSpace("BOOKING_URL"),
		DatabaseURL:          stringsTrimSpace("DATABASE_URL"),
		ShutdownTimeout:      15 * time.Second,
		SessionIdleTimeout:   30 * time.Minute,
		JanitorInterval:      time.Minute,
		RetrievalTimeout:     2 * time.Second,
		BookingTimeout:       5 * time.Second,
	}
	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.SessionIdleTimeout, err = durationFromEnv("SESSION_IDLE_TIMEOUT", cfg.SessionIdleTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.JanitorInterval, err = durationFromEnv("SESSION_JANITOR_INTERVAL", cfg.JanitorInterval)
	if err != nil {
		return Config{}, err
	}
	cfg.RetrievalTimeout, err = durationFromEnv("RETRIEVAL_TIMEOUT", cfg.RetrievalTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.BookingTimeout, err = durationFromEnv("BOOKING_TIMEOUT", cfg.BookingTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.HistoryLimit, err = intFromEnv("SESSION_HISTORY_LIMIT", cfg.HistoryLimit)
	if err != nil {
		return Config{}, err
	}
	cfg.MaxMessageLength, err = intFromEnv("MAX_MESSAGE_LENGTH", cfg.MaxMessageLength)
	if err != nil {
		return Config{}, err
	}
	cfg.FailureWindow, err = intFromEnv("ESCALATION_FAILURE_WINDOW", cfg.FailureWindow)
	if err != nil {
		return Config{}, err
	}
	cfg.EmbeddingDim, err = intFromEnv("EMBEDDING_DIM", cfg.EmbeddingDim)
	if err != nil {
		return Config{}, err
	}
	cfg.RetrievalTopK, err = intFromEnv("RETRIEVAL_TOP_K", cfg.RetrievalTopK)
	if err != nil {
		return Config{}, err
	}
	cfg.IntentMinConfidence, err = floatFromEnv("INTENT_MIN_CONFIDENCE", cfg.IntentMinConfidence)
	if err != nil {
		return Config{}, err
	}
	cfg.FrustrationThreshold, err = floatFromEnv("ESCALATION_FRUSTRATION_THRESHOLD", cfg.FrustrationThreshold)
	if err != nil {
		return Config{}, err
	}
	cfg.RetrievalThreshold, err = floatFromEnv("RETRIEVAL_SCORE_THRESHOLD", cfg.RetrievalThreshold)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}

	if cfg.SessionIdleTimeout < 5*time.Second {
		return Config{}, fmt.Errorf("SESSION_IDLE_TIMEOUT must be at least 5s")
	}
	if cfg.HistoryLimit <= 0 {
		return Config{}, fmt.Errorf("SESSION_HISTORY_LIMIT must be positive")
	}
	if cfg.MaxMessageLength <= 0 {
		return Config{}, fmt.Errorf("MAX_MESSAGE_LENGTH must be positive")
	}
	if cfg.FailureWindow <= 0 {
		return Config{}, fmt.Errorf("ESCALATION_FAILURE_WINDOW must be positive")
	}
	if cfg.EmbeddingDim <= 0 {
		return Config{}, fmt.Errorf("EMBEDDING_DIM must be positive")
	}
	if cfg.RetrievalTopK <= 0 {
		return Config{}, fmt.Errorf("RETRIEVAL_TOP_K must be positive")
	}
	if cfg.IntentMinConfidence <= 0 || cfg.IntentMinConfidence > 1 {
		return Config{}, fmt.Errorf("INTENT_MIN_CONFIDENCE must be in (0, 1]")
	}
	if cfg.FrustrationThreshold <= 0 || cfg.FrustrationThreshold > 1 {
		return Config{}, fmt.Errorf("ESCALATION_FRUSTRATION_THRESHOLD must be in (0, 1]")
	}
	switch cfg.BookingMode {
	case "auto", "http", "mock":
	default:
		return Config{}, fmt.Errorf("BOOKING_MODE must be auto, http or mock")
	}
	switch cfg.SessionBackend {
	case "auto", "memory", "redis":
	default:
		return Config{}, fmt.Errorf("SESSION_BACKEND must be auto, memory or redis")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func stringsTrimSpace(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func floatFromEnv(key string, fallback float64) (float64, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return f, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(stringsTrimSpace(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
