package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	ServiceName string
	LogLevel    string
	HTTPAddr    string

	NATSURL         string
	NATSConnTimeout time.Duration
	RequestTimeout  time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	GeminiBaseURL         string
	GeminiModel           string
	GeminiTemperature     float64
	GeminiMaxOutputTokens int
	HTTPClientTimeout     time.Duration

	MaxBodyChars     int
	ExtractorPreload bool

	CaptureWorkers   int
	CaptureQueueSize int

	LedgerEnabled          bool
	ClickHouseDSN          string
	ClickHouseMaxOpenConns int
	ClickHouseMaxIdleConns int
	ClickHouseConnMaxLife  time.Duration
	ClickHouseUsername     string
	ClickHousePassword     string
	ClickHouseDatabase     string

	OTELCollectorURL string
}

// source resolves a key from the environment first, then from the optional
// YAML file named by CONFIG_FILE.
type source struct {
	file map[string]string
}

func LoadConfig() (*Config, error) {
	src := source{}
	if path, ok := os.LookupEnv("CONFIG_FILE"); ok && path != "" {
		file, err := readFile(path)
		if err != nil {
			return nil, err
		}
		src.file = file
	}

	config := &Config{
		ServiceName: src.getString("SERVICE_NAME", "capture-service"),
		LogLevel:    src.getString("LOG_LEVEL", "info"),
		HTTPAddr:    src.getString("HTTP_ADDR", ":8080"),

		NATSURL:         src.getString("NATS_URL", "nats://localhost:4222"),
		NATSConnTimeout: src.getDuration("NATS_CONN_TIMEOUT", 10*time.Second),
		RequestTimeout:  src.getDuration("REQUEST_TIMEOUT", 10*time.Second),

		RedisAddr:     src.getString("REDIS_ADDR", "localhost:6379"),
		RedisPassword: src.getString("REDIS_PASSWORD", ""),
		RedisDB:       src.getInt("REDIS_DB", 0),

		GeminiBaseURL:         src.getString("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
		GeminiModel:           src.getString("GEMINI_MODEL", "gemini-2.0-flash"),
		GeminiTemperature:     src.getFloat("GEMINI_TEMPERATURE", 0.1),
		GeminiMaxOutputTokens: src.getInt("GEMINI_MAX_OUTPUT_TOKENS", 1024),
		HTTPClientTimeout:     src.getDuration("HTTP_CLIENT_TIMEOUT", 60*time.Second),

		MaxBodyChars:     src.getInt("MAX_BODY_CHARS", 32000),
		ExtractorPreload: src.getBool("EXTRACTOR_PRELOAD", true),

		CaptureWorkers:   src.getInt("CAPTURE_WORKERS", 4),
		CaptureQueueSize: src.getInt("CAPTURE_QUEUE_SIZE", 32),

		LedgerEnabled:          src.getBool("LEDGER_ENABLED", false),
		ClickHouseDSN:          src.getString("CLICKHOUSE_DSN", "localhost:9000"),
		ClickHouseMaxOpenConns: src.getInt("CLICKHOUSE_MAX_OPEN_CONNS", 10),
		ClickHouseMaxIdleConns: src.getInt("CLICKHOUSE_MAX_IDLE_CONNS", 5),
		ClickHouseConnMaxLife:  src.getDuration("CLICKHOUSE_CONN_MAX_LIFE", time.Hour),
		ClickHouseUsername:     src.getString("CLICKHOUSE_USERNAME", "default"),
		ClickHousePassword:     src.getString("CLICKHOUSE_PASSWORD", ""),
		ClickHouseDatabase:     src.getString("CLICKHOUSE_DATABASE", "jobsnap"),

		OTELCollectorURL: src.getString("OTEL_COLLECTOR_URL", ""),
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) Validate() error {
	if c.MaxBodyChars <= 0 {
		return fmt.Errorf("MAX_BODY_CHARS must be positive, got %d", c.MaxBodyChars)
	}
	if c.GeminiMaxOutputTokens <= 0 {
		return fmt.Errorf("GEMINI_MAX_OUTPUT_TOKENS must be positive, got %d", c.GeminiMaxOutputTokens)
	}
	if c.GeminiTemperature < 0 || c.GeminiTemperature > 2 {
		return fmt.Errorf("GEMINI_TEMPERATURE must be within [0, 2], got %v", c.GeminiTemperature)
	}
	if c.CaptureWorkers <= 0 {
		return fmt.Errorf("CAPTURE_WORKERS must be positive, got %d", c.CaptureWorkers)
	}
	if c.CaptureQueueSize < 0 {
		return fmt.Errorf("CAPTURE_QUEUE_SIZE must not be negative, got %d", c.CaptureQueueSize)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive, got %s", c.RequestTimeout)
	}
	return nil
}

func readFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}

	values := make(map[string]string, len(raw))
	for k, v := range raw {
		if v == nil {
			continue
		}
		values[k] = fmt.Sprint(v)
	}
	return values, nil
}

func (s source) lookup(key string) (string, bool) {
	if value, exists := os.LookupEnv(key); exists {
		return value, true
	}
	value, exists := s.file[key]
	return value, exists
}

func (s source) getString(key, defaultValue string) string {
	if value, exists := s.lookup(key); exists {
		return value
	}
	return defaultValue
}

func (s source) getInt(key string, defaultValue int) int {
	if value, exists := s.lookup(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func (s source) getFloat(key string, defaultValue float64) float64 {
	if value, exists := s.lookup(key); exists {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func (s source) getBool(key string, defaultValue bool) bool {
	if value, exists := s.lookup(key); exists {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func (s source) getDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := s.lookup(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
