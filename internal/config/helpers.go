package config

import (
	"fmt"
	"time"
)

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Logging.Level == "debug" && c.Logging.Format == "console"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Logging.Level == "info" && c.Logging.Format == "json"
}

// GetServerAddress returns the HTTP server listen address
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.HTTPPort)
}

// CacheEnabled reports whether forecast result caching is active
func (c *Config) CacheEnabled() bool {
	return c.Cache.Type != "none"
}

// CacheTTL returns the configured cache entry lifetime, falling back
// to one hour when unset
func (c *Config) CacheTTL() time.Duration {
	if c.Cache.TTL <= 0 {
		return time.Hour
	}
	return c.Cache.TTL
}

// PeriodsAllowed reports whether the requested forecast horizon is permitted
func (c *ForecastConfig) PeriodsAllowed(periods int) bool {
	for _, p := range c.AllowedPeriods {
		if p == periods {
			return true
		}
	}
	return false
}
