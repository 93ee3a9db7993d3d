package config

import (
	"fmt"
	"time"
)

// Config represents the complete application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Store    StoreConfig    `mapstructure:"store"`
	Params   ParamsConfig   `mapstructure:"params"`
	Queue    QueueConfig    `mapstructure:"queue"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Forecast ForecastConfig `mapstructure:"forecast"`
	Tuning   TuningConfig   `mapstructure:"tuning"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host     string `mapstructure:"host"`      // Bind address (e.g., 0.0.0.0 for all interfaces)
	HTTPPort int    `mapstructure:"http_port"` // HTTP server port
}

// StoreConfig represents transaction store configuration
type StoreConfig struct {
	Type           string        `mapstructure:"type"`            // Store type: memory (default), postgres
	PostgresURL    string        `mapstructure:"postgres_url"`    // Connection string (postgres://...)
	MaxConns       int           `mapstructure:"max_conns"`       // Pool size (default: 8)
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"` // Initial ping timeout (default: 5s)
}

// ParamsConfig represents hyperparameter store configuration
type ParamsConfig struct {
	Type        string        `mapstructure:"type"`         // Store type: memory (default), etcd
	Endpoints   []string      `mapstructure:"endpoints"`    // etcd endpoints
	DialTimeout time.Duration `mapstructure:"dial_timeout"` // etcd dial timeout
	Namespace   string        `mapstructure:"namespace"`    // Key prefix (default: /demandcast/params)
}

// QueueConfig represents message queue configuration
type QueueConfig struct {
	Type     string `mapstructure:"type"`     // Queue type: nats (default), redis, kafka, memory
	URL      string `mapstructure:"url"`      // Queue server URL (e.g., nats://localhost:4222, redis://localhost:6379)
	Username string `mapstructure:"username"` // Optional authentication
	Password string `mapstructure:"password"` // Optional authentication

	// Redis-specific options
	RedisDB       int    `mapstructure:"redis_db"`       // Redis database number (default: 0)
	RedisStream   string `mapstructure:"redis_stream"`   // Redis stream prefix (default: "demandcast")
	RedisGroup    string `mapstructure:"redis_group"`    // Redis consumer group (default: "demandcast-group")
	RedisConsumer string `mapstructure:"redis_consumer"` // Redis consumer name (default: hostname)

	// Kafka-specific options
	KafkaBrokers []string `mapstructure:"kafka_brokers"`  // Kafka broker addresses
	KafkaGroupID string   `mapstructure:"kafka_group_id"` // Kafka consumer group ID
}

// CacheConfig represents forecast result cache configuration
type CacheConfig struct {
	Type     string        `mapstructure:"type"`     // Cache type: memory (default), redis, none
	URL      string        `mapstructure:"url"`      // Redis URL (redis://localhost:6379)
	Password string        `mapstructure:"password"` // Optional authentication
	DB       int           `mapstructure:"db"`       // Redis database number
	TTL      time.Duration `mapstructure:"ttl"`      // Entry lifetime (default: 1h)
}

// ForecastConfig represents forecasting engine configuration
type ForecastConfig struct {
	AllowedPeriods  []int   `mapstructure:"allowed_periods"`  // Permitted forecast horizons (default: [3, 6])
	Granularity     string  `mapstructure:"granularity"`      // Default bucket width: monthly (default), weekly
	Holdout         int     `mapstructure:"holdout"`          // Backtest holdout buckets (default: 3)
	Region          string  `mapstructure:"region"`           // Holiday calendar region (default: "id")
	HolidayWindow   int     `mapstructure:"holiday_window"`   // Buckets around a holiday its effect covers (default: 1)
	MaxChangepoints int     `mapstructure:"max_changepoints"` // Trend changepoint candidates (default: 25)
	Workers         int     `mapstructure:"workers"`          // Fit pool size (default: GOMAXPROCS)
	QueueDepth      int     `mapstructure:"queue_depth"`      // Pending fits before saturation (default: 64)
	IntervalWidth   float64 `mapstructure:"interval_width"`   // Prediction interval coverage (default: 0.95)
}

// TuningConfig represents hyperparameter tuning configuration
type TuningConfig struct {
	Workers int `mapstructure:"workers"` // Concurrent tuning jobs (default: 2)
	Folds   int `mapstructure:"folds"`   // Rolling-origin backtest folds per grid cell (default: 3)
}

// AuthConfig represents authentication configuration
type AuthConfig struct {
	Enabled bool     `mapstructure:"enabled"`  // Enable/disable API key authentication
	APIKeys []string `mapstructure:"api_keys"` // List of valid API keys
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, file path
	TimeFormat string `mapstructure:"time_format"` // RFC3339, Unix, Kitchen
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if err := c.Store.Validate(); err != nil {
		return fmt.Errorf("store config: %w", err)
	}

	if err := c.Params.Validate(); err != nil {
		return fmt.Errorf("params config: %w", err)
	}

	if err := c.Queue.Validate(); err != nil {
		return fmt.Errorf("queue config: %w", err)
	}

	if err := c.Cache.Validate(); err != nil {
		return fmt.Errorf("cache config: %w", err)
	}

	if err := c.Forecast.Validate(); err != nil {
		return fmt.Errorf("forecast config: %w", err)
	}

	if err := c.Tuning.Validate(); err != nil {
		return fmt.Errorf("tuning config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates server configuration
func (c *ServerConfig) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid http_port: %d", c.HTTPPort)
	}

	return nil
}

// Validate validates transaction store configuration
func (c *StoreConfig) Validate() error {
	switch c.Type {
	case "", "memory":
	case "postgres":
		if c.PostgresURL == "" {
			return fmt.Errorf("postgres_url is required for postgres store")
		}
	default:
		return fmt.Errorf("store.type must be 'memory' or 'postgres', got %q", c.Type)
	}

	if c.MaxConns < 0 {
		return fmt.Errorf("store.max_conns cannot be negative")
	}

	return nil
}

// Validate validates hyperparameter store configuration
func (c *ParamsConfig) Validate() error {
	switch c.Type {
	case "", "memory":
	case "etcd":
		if len(c.Endpoints) == 0 {
			return fmt.Errorf("params.endpoints is required for etcd store")
		}
		if c.DialTimeout <= 0 {
			return fmt.Errorf("params.dial_timeout must be positive")
		}
	default:
		return fmt.Errorf("params.type must be 'memory' or 'etcd', got %q", c.Type)
	}

	return nil
}

// Validate validates queue configuration
func (c *QueueConfig) Validate() error {
	switch c.Type {
	case "", "nats", "redis", "memory":
	case "kafka":
		if len(c.KafkaBrokers) == 0 {
			return fmt.Errorf("queue.kafka_brokers is required for kafka queue")
		}
	default:
		return fmt.Errorf("queue.type must be one of: nats, redis, kafka, memory")
	}

	return nil
}

// Validate validates cache configuration
func (c *CacheConfig) Validate() error {
	switch c.Type {
	case "", "memory", "none":
	case "redis":
		if c.URL == "" {
			return fmt.Errorf("cache.url is required for redis cache")
		}
	default:
		return fmt.Errorf("cache.type must be one of: memory, redis, none")
	}

	if c.TTL < 0 {
		return fmt.Errorf("cache.ttl cannot be negative")
	}

	return nil
}

// Validate validates forecasting engine configuration
func (c *ForecastConfig) Validate() error {
	if len(c.AllowedPeriods) == 0 {
		return fmt.Errorf("forecast.allowed_periods cannot be empty")
	}
	for _, p := range c.AllowedPeriods {
		if p < 1 {
			return fmt.Errorf("forecast.allowed_periods entries must be positive, got %d", p)
		}
	}

	if c.Granularity != "weekly" && c.Granularity != "monthly" {
		return fmt.Errorf("forecast.granularity must be 'weekly' or 'monthly', got %q", c.Granularity)
	}

	if c.Holdout < 1 {
		return fmt.Errorf("forecast.holdout must be at least 1")
	}

	if c.HolidayWindow < 0 {
		return fmt.Errorf("forecast.holiday_window cannot be negative")
	}

	if c.MaxChangepoints < 0 {
		return fmt.Errorf("forecast.max_changepoints cannot be negative")
	}

	if c.QueueDepth < 1 {
		return fmt.Errorf("forecast.queue_depth must be at least 1")
	}

	if c.IntervalWidth <= 0 || c.IntervalWidth >= 1 {
		return fmt.Errorf("forecast.interval_width must be in (0, 1), got %g", c.IntervalWidth)
	}

	return nil
}

// Validate validates tuning configuration
func (c *TuningConfig) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("tuning.workers must be at least 1")
	}

	if c.Folds < 1 {
		return fmt.Errorf("tuning.folds must be at least 1")
	}

	return nil
}

// Validate validates logging configuration
func (c *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLevels[c.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}

	validFormats := map[string]bool{
		"json":    true,
		"console": true,
	}

	if !validFormats[c.Format] {
		return fmt.Errorf("logging.format must be 'json' or 'console'")
	}

	return nil
}
