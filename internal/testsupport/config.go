package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"mubi1000/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Data and log directories exist on return; the cache defaults to the JSON
// backend inside the data directory.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Cache.Backend = config.BackendJSON
	cfgVal.Cache.Path = filepath.Join(cfgVal.Paths.DataDir, "streaming.json")
	cfgVal.Streaming.DelaySeconds = 0

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	for _, dir := range []string{cfgVal.Paths.DataDir, cfgVal.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}
	return builder.cfg
}

// WithCountry overrides the refresh country.
func WithCountry(code string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Streaming.Country = code
	}
}

// WithSQLiteCache switches the cache to the SQLite backend.
func WithSQLiteCache() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Cache.Backend = config.BackendSQLite
		b.cfg.Cache.Path = filepath.Join(b.cfg.Paths.DataDir, "streaming.db")
	}
}

// WithRedisCache switches the cache to a Redis backend at addr.
func WithRedisCache(addr string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Cache.Backend = config.BackendRedis
		b.cfg.Cache.RedisAddr = addr
	}
}

// WithCatalogURL points the JustWatch client at a test server.
func WithCatalogURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Catalog.BaseURL = url
		b.cfg.Catalog.MinIntervalMS = 0
		b.cfg.Catalog.InitialBackoffMS = 1
		b.cfg.Catalog.MaxBackoffMS = 1
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
