package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"

	"github.com/couchcryptid/air-quality-engine/internal/domain"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	KafkaBrokers     []string
	KafkaSourceTopic string
	KafkaSinkTopic   string
	KafkaGroupID     string
	HTTPAddr         string
	LogLevel         string
	LogFormat        string
	ShutdownTimeout  time.Duration

	BatchSize          int
	BatchFlushInterval time.Duration

	// Projection settings.
	ForecastHorizonHours int
	AlertThreshold       float64
	CategoryTablesFile   string

	// Weather provider configuration.
	WeatherEnabled   bool
	WeatherURL       string
	WeatherTimeout   time.Duration
	WeatherCacheSize int
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

	horizon, err := parseHorizon()
	if err != nil {
		return nil, err
	}

	threshold, err := parseAlertThreshold()
	if err != nil {
		return nil, err
	}

	weatherTimeout, err := time.ParseDuration(sharedcfg.EnvOrDefault("WEATHER_PROVIDER_TIMEOUT", "5s"))
	if err != nil || weatherTimeout <= 0 {
		return nil, errors.New("invalid WEATHER_PROVIDER_TIMEOUT")
	}

	cfg := &Config{
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic:   sharedcfg.EnvOrDefault("KAFKA_SOURCE_TOPIC", "air-quality-readings"),
		KafkaSinkTopic:     sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "air-quality-forecasts"),
		KafkaGroupID:       sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "air-quality-engine"),
		HTTPAddr:           sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:           sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    shutdownTimeout,
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,

		ForecastHorizonHours: horizon,
		AlertThreshold:       threshold,
		CategoryTablesFile:   os.Getenv("CATEGORY_TABLES_FILE"),

		WeatherEnabled:   os.Getenv("WEATHER_PROVIDER_ENABLED") == "true",
		WeatherURL:       sharedcfg.EnvOrDefault("WEATHER_PROVIDER_URL", "https://api.open-meteo.com"),
		WeatherTimeout:   weatherTimeout,
		WeatherCacheSize: parseWeatherCacheSize(),
	}

	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	if cfg.KafkaSourceTopic == "" {
		return nil, errors.New("KAFKA_SOURCE_TOPIC is required")
	}
	if cfg.KafkaSinkTopic == "" {
		return nil, errors.New("KAFKA_SINK_TOPIC is required")
	}
	if cfg.WeatherEnabled && cfg.WeatherURL == "" {
		return nil, errors.New("WEATHER_PROVIDER_ENABLED is true but WEATHER_PROVIDER_URL is empty")
	}

	return cfg, nil
}

func parseHorizon() (int, error) {
	s := sharedcfg.EnvOrDefault("FORECAST_HORIZON_HOURS", "24")
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > domain.MaxHorizonHours {
		return 0, fmt.Errorf("invalid FORECAST_HORIZON_HOURS %q: must be an integer between 1 and %d", s, domain.MaxHorizonHours)
	}
	return n, nil
}

func parseAlertThreshold() (float64, error) {
	s := sharedcfg.EnvOrDefault("ALERT_THRESHOLD", "150")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || domain.ValidateAQI("ALERT_THRESHOLD", v) != nil {
		return 0, fmt.Errorf("invalid ALERT_THRESHOLD %q: must be a finite number >= 0", s)
	}
	return v, nil
}

func parseWeatherCacheSize() int {
	if s := os.Getenv("WEATHER_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 1000
}
