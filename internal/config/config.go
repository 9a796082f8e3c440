package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// CatalogDir overrides the embedded reference data when set.
	CatalogDir string

	// Gemini configuration for the preferred provider.
	GeminiAPIKey  string
	GeminiEnabled bool
	GeminiModel   string
	GeminiTimeout time.Duration

	StreamWordDelay time.Duration

	// Conversation journal. An empty broker list disables it.
	KafkaBrokers       []string
	KafkaAnswerTopic   string
	BatchSize          int
	BatchFlushInterval time.Duration

	// Mapbox region locator configuration.
	MapboxToken     string
	MapboxEnabled   bool
	MapboxTimeout   time.Duration
	MapboxCacheSize int
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	geminiTimeout, err := parsePositiveDuration("GEMINI_TIMEOUT", "30s")
	if err != nil {
		return nil, err
	}

	mapboxTimeout, err := parsePositiveDuration("MAPBOX_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}

	wordDelay, err := time.ParseDuration(sharedcfg.EnvOrDefault("STREAM_WORD_DELAY", "40ms"))
	if err != nil || wordDelay < 0 {
		return nil, errors.New("invalid STREAM_WORD_DELAY")
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	geminiKey := os.Getenv("GEMINI_API_KEY")
	mapboxToken := os.Getenv("MAPBOX_TOKEN")

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
		CatalogDir:      os.Getenv("CATALOG_DIR"),

		GeminiAPIKey:  geminiKey,
		GeminiEnabled: featureFlag("GEMINI_ENABLED", geminiKey != ""),
		GeminiModel:   sharedcfg.EnvOrDefault("GEMINI_MODEL", "gemini-2.0-flash"),
		GeminiTimeout: geminiTimeout,

		StreamWordDelay: wordDelay,

		KafkaBrokers:       sharedcfg.ParseBrokers(os.Getenv("KAFKA_BROKERS")),
		KafkaAnswerTopic:   sharedcfg.EnvOrDefault("KAFKA_ANSWER_TOPIC", "guidance-conversations"),
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,

		MapboxToken:     mapboxToken,
		MapboxEnabled:   featureFlag("MAPBOX_ENABLED", mapboxToken != ""),
		MapboxTimeout:   mapboxTimeout,
		MapboxCacheSize: parseMapboxCacheSize(),
	}

	if cfg.GeminiEnabled && cfg.GeminiAPIKey == "" {
		return nil, errors.New("GEMINI_ENABLED is true but GEMINI_API_KEY is not set")
	}
	if cfg.MapboxEnabled && cfg.MapboxToken == "" {
		return nil, errors.New("MAPBOX_ENABLED is true but MAPBOX_TOKEN is not set")
	}
	if cfg.JournalEnabled() && cfg.KafkaAnswerTopic == "" {
		return nil, errors.New("KAFKA_ANSWER_TOPIC is required when KAFKA_BROKERS is set")
	}

	return cfg, nil
}

// JournalEnabled reports whether conversation messages should be published to Kafka.
func (c *Config) JournalEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func featureFlag(key string, implied bool) bool {
	if v := os.Getenv(key); v != "" {
		return v == "true"
	}
	return implied
}

func parsePositiveDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, fallback))
	if err != nil || d <= 0 {
		return 0, errors.New("invalid " + key)
	}
	return d, nil
}

func parseMapboxCacheSize() int {
	if s := os.Getenv("MAPBOX_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 1000
}
