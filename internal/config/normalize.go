package config

import (
	"fmt"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeStreaming()
	c.normalizeCatalog()
	if err := c.normalizeCache(); err != nil {
		return err
	}
	c.normalizeAvailability()
	if err := c.normalizeMetrics(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(strings.TrimSpace(c.Paths.DataDir)); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeStreaming() {
	c.Streaming.Country = strings.ToUpper(strings.TrimSpace(c.Streaming.Country))
	if c.Streaming.Country == "" {
		c.Streaming.Country = defaultCountry
	}
	c.Streaming.Language = strings.ToLower(strings.TrimSpace(c.Streaming.Language))
	if c.Streaming.Language == "" {
		c.Streaming.Language = defaultLanguage
	}
	if c.Streaming.ResultsPerQuery <= 0 {
		c.Streaming.ResultsPerQuery = defaultResultsPerQuery
	}
}

func (c *Config) normalizeCatalog() {
	c.Catalog.BaseURL = strings.TrimSpace(c.Catalog.BaseURL)
	if c.Catalog.BaseURL == "" {
		c.Catalog.BaseURL = defaultCatalogBaseURL
	}
	if c.Catalog.TimeoutSeconds <= 0 {
		c.Catalog.TimeoutSeconds = defaultCatalogTimeout
	}
	if c.Catalog.InitialBackoffMS <= 0 {
		c.Catalog.InitialBackoffMS = defaultInitialBackoffMS
	}
	if c.Catalog.MaxBackoffMS <= 0 {
		c.Catalog.MaxBackoffMS = defaultMaxBackoffMS
	}
}

func (c *Config) normalizeCache() error {
	c.Cache.Backend = strings.ToLower(strings.TrimSpace(c.Cache.Backend))
	if c.Cache.Backend == "" {
		c.Cache.Backend = defaultCacheBackend
	}
	c.Cache.Path = strings.TrimSpace(c.Cache.Path)
	if c.Cache.Path == "" {
		switch c.Cache.Backend {
		case BackendSQLite:
			c.Cache.Path = filepath.Join(c.Paths.DataDir, "streaming.db")
		default:
			c.Cache.Path = filepath.Join(c.Paths.DataDir, "streaming.json")
		}
	}
	var err error
	if c.Cache.Path, err = expandPath(c.Cache.Path); err != nil {
		return fmt.Errorf("cache.path: %w", err)
	}
	c.Cache.RedisAddr = strings.TrimSpace(c.Cache.RedisAddr)
	c.Cache.RedisPrefix = strings.Trim(strings.TrimSpace(c.Cache.RedisPrefix), ":")
	if c.Cache.RedisPrefix == "" {
		c.Cache.RedisPrefix = defaultRedisPrefix
	}
	return nil
}

func (c *Config) normalizeAvailability() {
	c.Availability.IncludedMonetization = normalizeList(c.Availability.IncludedMonetization, strings.ToUpper)
	c.Availability.ResellerPrefixes = normalizeList(c.Availability.ResellerPrefixes, strings.ToLower)
	c.Availability.FirstParty = normalizeList(c.Availability.FirstParty, strings.ToLower)
	c.Availability.ExcludedServices = normalizeList(c.Availability.ExcludedServices, strings.ToLower)
	if len(c.Availability.Aliases) > 0 {
		aliases := make(map[string]string, len(c.Availability.Aliases))
		for alias, target := range c.Availability.Aliases {
			alias = strings.ToLower(strings.TrimSpace(alias))
			if alias == "" {
				continue
			}
			aliases[alias] = strings.TrimSpace(target)
		}
		c.Availability.Aliases = aliases
	}
}

func (c *Config) normalizeMetrics() error {
	var err error
	if c.Metrics.TextfilePath, err = expandPath(strings.TrimSpace(c.Metrics.TextfilePath)); err != nil {
		return fmt.Errorf("metrics.textfile_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "json", "console":
	default:
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func normalizeList(values []string, fold func(string) string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, value := range values {
		value = fold(strings.TrimSpace(value))
		if value == "" {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out
}
