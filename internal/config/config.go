package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir string `toml:"data_dir" split_words:"true"`
	LogDir  string `toml:"log_dir" split_words:"true"`
}

// Streaming contains the refresh defaults for availability lookups.
type Streaming struct {
	Country         string  `toml:"country" split_words:"true"`
	Language        string  `toml:"language" split_words:"true"`
	SkipDays        int     `toml:"skip_days" split_words:"true"`
	DelaySeconds    float64 `toml:"delay_seconds" split_words:"true"`
	ResultsPerQuery int     `toml:"results_per_query" split_words:"true"`
	BestOnly        bool    `toml:"best_only" split_words:"true"`
}

// Catalog contains connection and retry settings for the JustWatch catalog.
type Catalog struct {
	BaseURL          string `toml:"base_url" split_words:"true"`
	TimeoutSeconds   int    `toml:"timeout_seconds" split_words:"true"`
	MinIntervalMS    int    `toml:"min_interval_ms" split_words:"true"`
	MaxRetries       int    `toml:"max_retries" split_words:"true"`
	InitialBackoffMS int    `toml:"initial_backoff_ms" split_words:"true"`
	MaxBackoffMS     int    `toml:"max_backoff_ms" split_words:"true"`
}

// Cache selects and configures the availability cache backend.
type Cache struct {
	Backend       string `toml:"backend" split_words:"true"` // json, sqlite, or redis
	Path          string `toml:"path" split_words:"true"`
	RedisAddr     string `toml:"redis_addr" split_words:"true"`
	RedisPassword string `toml:"redis_password" split_words:"true"`
	RedisDB       int    `toml:"redis_db" split_words:"true"`
	RedisPrefix   string `toml:"redis_prefix" split_words:"true"`
}

// Availability describes the read-time projection policy. Empty lists fall
// back to the built-in policy.
type Availability struct {
	IncludedMonetization []string          `toml:"included_monetization"`
	ResellerPrefixes     []string          `toml:"reseller_prefixes"`
	FirstParty           []string          `toml:"first_party"`
	ExcludedServices     []string          `toml:"excluded_services"`
	Aliases              map[string]string `toml:"aliases"` // alias = "canonical|Display Name"
}

// Metrics configures the optional Prometheus textfile export.
type Metrics struct {
	TextfilePath string `toml:"textfile_path" split_words:"true"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format" split_words:"true"`
	Level  string `toml:"level" split_words:"true"`
}

// Config encapsulates all configuration values for mubi1000.
//
// Configuration sections by subsystem:
//   - Paths: movie list, cache, and log directories
//   - Streaming: refresh defaults (country, staleness window, pacing)
//   - Catalog: JustWatch endpoint, timeouts, and retry policy
//   - Cache: availability cache backend selection
//   - Availability: monetization, reseller, and alias projection policy
//   - Metrics: Prometheus textfile output
//   - Logging: log format and level
type Config struct {
	Paths        Paths        `toml:"paths"`
	Streaming    Streaming    `toml:"streaming"`
	Catalog      Catalog      `toml:"catalog"`
	Cache        Cache        `toml:"cache"`
	Availability Availability `toml:"availability" ignored:"true"`
	Metrics      Metrics      `toml:"metrics"`
	Logging      Logging      `toml:"logging"`
}

// EnvPrefix is the prefix of every environment override (MUBI_STREAMING_COUNTRY, ...).
const EnvPrefix = "MUBI"

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. Environment
// overrides are applied after the file. The returned config has all path
// fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, "", false, fmt.Errorf("apply environment overrides: %w", err)
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("mubi1000.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

// EnsureDirectories creates the data and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// MoviesPath returns the location of the scraped movie list.
func (c *Config) MoviesPath() string {
	return filepath.Join(c.Paths.DataDir, "latest.json")
}

// MyServicesPath returns the location of the user's service preferences.
func (c *Config) MyServicesPath() string {
	return filepath.Join(c.Paths.DataDir, "my_services.json")
}

// LockPath returns the refresh lock file guarding the cache against concurrent writers.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "streaming.lock")
}

// RequestDelay converts the configured pacing delay to a duration.
func (c *Config) RequestDelay() time.Duration {
	return SecondsToDuration(c.Streaming.DelaySeconds)
}

// SecondsToDuration converts fractional seconds (as used by --delay) to a duration.
func SecondsToDuration(seconds float64) time.Duration {
	if seconds <= 0 {
		return 0
	}
	return time.Duration(seconds * float64(time.Second))
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
