package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"mubi1000/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "mubi1000")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.Cache.Backend != config.BackendJSON {
		t.Fatalf("unexpected cache backend: %q", cfg.Cache.Backend)
	}
	if cfg.Cache.Path != filepath.Join(wantData, "streaming.json") {
		t.Fatalf("unexpected cache path: %q", cfg.Cache.Path)
	}
	if cfg.Streaming.Country != "US" {
		t.Fatalf("unexpected country: %q", cfg.Streaming.Country)
	}
	if cfg.Streaming.SkipDays != 7 {
		t.Fatalf("unexpected skip days: %d", cfg.Streaming.SkipDays)
	}
	if cfg.RequestDelay() != 750*time.Millisecond {
		t.Fatalf("unexpected request delay: %s", cfg.RequestDelay())
	}
	if cfg.MoviesPath() != filepath.Join(wantData, "latest.json") {
		t.Fatalf("unexpected movies path: %q", cfg.MoviesPath())
	}
	if cfg.MyServicesPath() != filepath.Join(wantData, "my_services.json") {
		t.Fatalf("unexpected services path: %q", cfg.MyServicesPath())
	}
}

func TestLoadCustomConfigOverrides(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	configPath := filepath.Join(t.TempDir(), "config.toml")
	content := `
[paths]
data_dir = "~/movies"

[streaming]
country = "gb"
skip_days = 3
delay_seconds = 0.25

[cache]
backend = "SQLite"

[availability]
excluded_services = ["NetflixBasicWithAds", "netflixbasicwithads"]

[availability.aliases]
PlexPlayer = "plex|Plex"

[logging]
format = "JSON"
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected custom config to be used, got %q exists=%v", resolved, exists)
	}
	if cfg.Paths.DataDir != filepath.Join(tempHome, "movies") {
		t.Fatalf("unexpected data dir: %q", cfg.Paths.DataDir)
	}
	if cfg.Streaming.Country != "GB" {
		t.Fatalf("expected upper-cased country, got %q", cfg.Streaming.Country)
	}
	if cfg.Streaming.SkipDays != 3 {
		t.Fatalf("unexpected skip days: %d", cfg.Streaming.SkipDays)
	}
	if cfg.RequestDelay() != 250*time.Millisecond {
		t.Fatalf("unexpected delay: %s", cfg.RequestDelay())
	}
	if cfg.Cache.Backend != config.BackendSQLite {
		t.Fatalf("unexpected backend: %q", cfg.Cache.Backend)
	}
	if cfg.Cache.Path != filepath.Join(tempHome, "movies", "streaming.db") {
		t.Fatalf("unexpected sqlite path: %q", cfg.Cache.Path)
	}
	if got := cfg.Availability.ExcludedServices; len(got) != 1 || got[0] != "netflixbasicwithads" {
		t.Fatalf("expected deduplicated lower-case exclusions, got %v", got)
	}
	if cfg.Availability.Aliases["plexplayer"] != "plex|Plex" {
		t.Fatalf("unexpected aliases: %v", cfg.Availability.Aliases)
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("unexpected log format: %q", cfg.Logging.Format)
	}
}

func TestLoadAppliesEnvironmentOverrides(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("MUBI_STREAMING_COUNTRY", "de")
	t.Setenv("MUBI_STREAMING_SKIP_DAYS", "0")
	t.Setenv("MUBI_CACHE_BACKEND", "redis")
	t.Setenv("MUBI_CACHE_REDIS_ADDR", "localhost:6380")

	cfg, _, _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Streaming.Country != "DE" {
		t.Fatalf("expected env country, got %q", cfg.Streaming.Country)
	}
	if cfg.Streaming.SkipDays != 0 {
		t.Fatalf("expected env skip days, got %d", cfg.Streaming.SkipDays)
	}
	if cfg.Cache.Backend != config.BackendRedis || cfg.Cache.RedisAddr != "localhost:6380" {
		t.Fatalf("unexpected cache config: %+v", cfg.Cache)
	}
	if cfg.Cache.RedisPrefix != "mubi1000" {
		t.Fatalf("expected default redis prefix, got %q", cfg.Cache.RedisPrefix)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string
	}{
		{"country", func(c *config.Config) { c.Streaming.Country = "USA" }, "streaming.country"},
		{"numeric country", func(c *config.Config) { c.Streaming.Country = "U1" }, "streaming.country"},
		{"skip days", func(c *config.Config) { c.Streaming.SkipDays = -1 }, "skip_days"},
		{"delay", func(c *config.Config) { c.Streaming.DelaySeconds = -0.5 }, "delay_seconds"},
		{"backend", func(c *config.Config) { c.Cache.Backend = "bolt" }, "cache.backend"},
		{"redis addr", func(c *config.Config) {
			c.Cache.Backend = config.BackendRedis
			c.Cache.RedisAddr = ""
		}, "redis_addr"},
		{"base url", func(c *config.Config) { c.Catalog.BaseURL = "apis.justwatch.com" }, "base_url"},
		{"backoff", func(c *config.Config) { c.Catalog.MaxBackoffMS = 10 }, "max_backoff_ms"},
		{"alias", func(c *config.Config) {
			c.Availability.Aliases = map[string]string{"plexplayer": "plex"}
		}, "availability.aliases"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Cache.Path = "/tmp/streaming.json"
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error mentioning %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestLoadRejectsInvalidTOML(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[streaming\ncountry = \"US\""), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(path); err == nil || !strings.Contains(err.Error(), "parse config") {
		t.Fatalf("expected parse error, got %v", err)
	}
}

func TestCreateSampleProducesParsableConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	var cfg config.Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		t.Fatalf("sample config does not parse: %v", err)
	}
	if cfg.Streaming.Country != "US" || cfg.Streaming.SkipDays != 7 {
		t.Fatalf("unexpected sample values: %+v", cfg.Streaming)
	}
	if cfg.Cache.Backend != config.BackendJSON {
		t.Fatalf("unexpected sample backend: %q", cfg.Cache.Backend)
	}
}

func TestEnsureDirectoriesCreatesDataAndLogDirs(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories returned error: %v", err)
	}
	for _, dir := range []string{cfg.Paths.DataDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
	}
}
