package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/couchcryptid/flood-risk-service/internal/domain"
	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	KafkaEnabled       bool
	KafkaBrokers       []string
	KafkaSourceTopic   string
	KafkaSinkTopic     string
	KafkaGroupID       string
	BatchSize          int
	BatchFlushInterval time.Duration

	// OpenWeatherMap forecast configuration.
	OWMAPIKey    string
	OWMEnabled   bool
	OWMBaseURL   string
	OWMTimeout   time.Duration
	OWMRateLimit int // requests per minute
	OWMCacheSize int
	OWMCacheTTL  time.Duration

	// Risk model: bounds, weights and land-use factors.
	ModelFile     string
	Model         domain.Model
	StrictBounds  bool
	GridMaxUpload int64
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	owmTimeout, err := parsePositiveDuration("OWM_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}

	owmCacheTTL, err := parsePositiveDuration("OWM_CACHE_TTL", "10m")
	if err != nil {
		return nil, err
	}

	owmRateLimit, err := parsePositiveInt("OWM_RATE_LIMIT", "60")
	if err != nil {
		return nil, err
	}

	owmCacheSize, err := parsePositiveInt("OWM_CACHE_SIZE", "256")
	if err != nil {
		return nil, err
	}

	gridMaxUpload, err := strconv.ParseInt(sharedcfg.EnvOrDefault("GRID_MAX_UPLOAD", "67108864"), 10, 64)
	if err != nil || gridMaxUpload <= 0 {
		return nil, errors.New("invalid GRID_MAX_UPLOAD")
	}

	owmAPIKey := os.Getenv("OWM_API_KEY")
	owmEnabled := owmAPIKey != ""
	if v := os.Getenv("OWM_ENABLED"); v != "" {
		owmEnabled = v == "true"
	}

	modelFile := os.Getenv("MODEL_FILE")
	model := domain.DefaultModel()
	if modelFile != "" {
		model, err = LoadModel(modelFile)
		if err != nil {
			return nil, err
		}
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		KafkaEnabled:       os.Getenv("KAFKA_ENABLED") == "true",
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic:   sharedcfg.EnvOrDefault("KAFKA_SOURCE_TOPIC", "assessment-requests"),
		KafkaSinkTopic:     sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "risk-assessments"),
		KafkaGroupID:       sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "flood-risk"),
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,

		OWMAPIKey:    owmAPIKey,
		OWMEnabled:   owmEnabled,
		OWMBaseURL:   sharedcfg.EnvOrDefault("OWM_BASE_URL", "https://api.openweathermap.org/data/2.5"),
		OWMTimeout:   owmTimeout,
		OWMRateLimit: owmRateLimit,
		OWMCacheSize: owmCacheSize,
		OWMCacheTTL:  owmCacheTTL,

		ModelFile:     modelFile,
		Model:         model,
		StrictBounds:  sharedcfg.EnvOrDefault("STRICT_BOUNDS", "true") == "true",
		GridMaxUpload: gridMaxUpload,
	}

	if cfg.KafkaEnabled {
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_BROKERS is required")
		}
		if cfg.KafkaSourceTopic == "" {
			return nil, errors.New("KAFKA_SOURCE_TOPIC is required")
		}
		if cfg.KafkaSinkTopic == "" {
			return nil, errors.New("KAFKA_SINK_TOPIC is required")
		}
	}
	if cfg.OWMEnabled && cfg.OWMAPIKey == "" {
		return nil, errors.New("OWM_ENABLED is true but OWM_API_KEY is not set")
	}

	return cfg, nil
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parsePositiveInt(key, def string) (int, error) {
	n, err := strconv.Atoi(sharedcfg.EnvOrDefault(key, def))
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return n, nil
}
