package config

import (
	"fmt"
	"runtime"
	"time"

	"github.com/spf13/viper"
)

// Load loads configuration from file
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Default config locations
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")               // Current directory
		v.AddConfigPath("./configs")       // Project configs directory
		v.AddConfigPath("/etc/demandcast") // System-wide config
	}

	// Set defaults
	setDefaults(v)

	// Enable environment variable overrides
	v.SetEnvPrefix("DEMANDCAST")
	v.AutomaticEnv()

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; use defaults
			return parseConfig(v)
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	return parseConfig(v)
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.http_port", 8080)

	// Store defaults
	v.SetDefault("store.type", "memory")
	v.SetDefault("store.max_conns", 8)
	v.SetDefault("store.connect_timeout", "5s")

	// Params store defaults
	v.SetDefault("params.type", "memory")
	v.SetDefault("params.endpoints", []string{"http://localhost:2379"})
	v.SetDefault("params.dial_timeout", "5s")
	v.SetDefault("params.namespace", "/demandcast/params")

	// Queue defaults
	v.SetDefault("queue.type", "nats")
	v.SetDefault("queue.url", "nats://localhost:4222")

	// Cache defaults
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.ttl", "1h")

	// Forecast defaults
	v.SetDefault("forecast.allowed_periods", []int{3, 6})
	v.SetDefault("forecast.granularity", "monthly")
	v.SetDefault("forecast.holdout", 3)
	v.SetDefault("forecast.region", "id")
	v.SetDefault("forecast.holiday_window", 1)
	v.SetDefault("forecast.max_changepoints", 25)
	v.SetDefault("forecast.workers", runtime.GOMAXPROCS(0))
	v.SetDefault("forecast.queue_depth", 64)
	v.SetDefault("forecast.interval_width", 0.95)

	// Tuning defaults
	v.SetDefault("tuning.workers", 2)
	v.SetDefault("tuning.folds", 3)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output_path", "stdout")
}

// parseConfig parses viper config into Config struct
func parseConfig(v *viper.Viper) (*Config, error) {
	var cfg Config

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// LoadOrDefault loads configuration from file or returns default config
func LoadOrDefault(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		// Return default configuration
		return DefaultConfig()
	}
	return cfg
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:     "0.0.0.0",
			HTTPPort: 8080,
		},
		Store: StoreConfig{
			Type:           "memory",
			MaxConns:       8,
			ConnectTimeout: 5 * time.Second,
		},
		Params: ParamsConfig{
			Type:        "memory",
			Endpoints:   []string{"http://localhost:2379"},
			DialTimeout: 5 * time.Second,
			Namespace:   "/demandcast/params",
		},
		Queue: QueueConfig{
			Type: "nats",
			URL:  "nats://localhost:4222",
		},
		Cache: CacheConfig{
			Type: "memory",
			TTL:  time.Hour,
		},
		Forecast: ForecastConfig{
			AllowedPeriods:  []int{3, 6},
			Granularity:     "monthly",
			Holdout:         3,
			Region:          "id",
			HolidayWindow:   1,
			MaxChangepoints: 25,
			Workers:         runtime.GOMAXPROCS(0),
			QueueDepth:      64,
			IntervalWidth:   0.95,
		},
		Tuning: TuningConfig{
			Workers: 2,
			Folds:   3,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "json",
			OutputPath: "stdout",
		},
	}
}
