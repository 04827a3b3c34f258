package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateStreaming(); err != nil {
		return err
	}
	if err := c.validateCatalog(); err != nil {
		return err
	}
	if err := c.validateCache(); err != nil {
		return err
	}
	return c.validateAvailability()
}

func (c *Config) validateStreaming() error {
	if !IsCountryCode(c.Streaming.Country) {
		return fmt.Errorf("streaming.country %q must be a two-letter country code", c.Streaming.Country)
	}
	if c.Streaming.SkipDays < 0 {
		return errors.New("streaming.skip_days must be >= 0")
	}
	if c.Streaming.DelaySeconds < 0 {
		return errors.New("streaming.delay_seconds must be >= 0")
	}
	if c.Streaming.ResultsPerQuery > 100 {
		return errors.New("streaming.results_per_query must be <= 100")
	}
	return nil
}

func (c *Config) validateCatalog() error {
	if !strings.HasPrefix(c.Catalog.BaseURL, "http://") && !strings.HasPrefix(c.Catalog.BaseURL, "https://") {
		return fmt.Errorf("catalog.base_url %q must be an http(s) URL", c.Catalog.BaseURL)
	}
	if c.Catalog.MinIntervalMS < 0 {
		return errors.New("catalog.min_interval_ms must be >= 0")
	}
	if c.Catalog.MaxRetries < 0 {
		return errors.New("catalog.max_retries must be >= 0")
	}
	if c.Catalog.MaxBackoffMS < c.Catalog.InitialBackoffMS {
		return errors.New("catalog.max_backoff_ms must be >= catalog.initial_backoff_ms")
	}
	return nil
}

func (c *Config) validateCache() error {
	switch c.Cache.Backend {
	case BackendJSON, BackendSQLite:
		if c.Cache.Path == "" {
			return fmt.Errorf("cache.path must be set for the %s backend", c.Cache.Backend)
		}
	case BackendRedis:
		if c.Cache.RedisAddr == "" {
			return errors.New("cache.redis_addr must be set when cache.backend is redis")
		}
		if c.Cache.RedisDB < 0 {
			return errors.New("cache.redis_db must be >= 0")
		}
	default:
		return fmt.Errorf("cache.backend %q is not supported (use json, sqlite, or redis)", c.Cache.Backend)
	}
	return nil
}

func (c *Config) validateAvailability() error {
	for alias, target := range c.Availability.Aliases {
		canonical, name, ok := strings.Cut(target, "|")
		if !ok || strings.TrimSpace(canonical) == "" || strings.TrimSpace(name) == "" {
			return fmt.Errorf("availability.aliases.%s must look like \"canonical|Display Name\"", alias)
		}
	}
	return nil
}

// IsCountryCode reports whether code is a two-letter upper-case region code.
func IsCountryCode(code string) bool {
	if len(code) != 2 {
		return false
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}
