package config

const (
	defaultConfigPath       = "~/.config/mubi1000/config.toml"
	defaultDataDir          = "~/.local/share/mubi1000"
	defaultLogDir           = "~/.local/share/mubi1000/logs"
	defaultCountry          = "US"
	defaultLanguage         = "en"
	defaultSkipDays         = 7
	defaultDelaySeconds     = 0.75
	defaultResultsPerQuery  = 5
	defaultCatalogBaseURL   = "https://apis.justwatch.com/graphql"
	defaultCatalogTimeout   = 15
	defaultMinIntervalMS    = 250
	defaultMaxRetries       = 3
	defaultInitialBackoffMS = 2000
	defaultMaxBackoffMS     = 30000
	defaultCacheBackend     = BackendJSON
	defaultRedisAddr        = "127.0.0.1:6379"
	defaultRedisPrefix      = "mubi1000"
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
)

// Cache backend identifiers.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Streaming: Streaming{
			Country:         defaultCountry,
			Language:        defaultLanguage,
			SkipDays:        defaultSkipDays,
			DelaySeconds:    defaultDelaySeconds,
			ResultsPerQuery: defaultResultsPerQuery,
			BestOnly:        true,
		},
		Catalog: Catalog{
			BaseURL:          defaultCatalogBaseURL,
			TimeoutSeconds:   defaultCatalogTimeout,
			MinIntervalMS:    defaultMinIntervalMS,
			MaxRetries:       defaultMaxRetries,
			InitialBackoffMS: defaultInitialBackoffMS,
			MaxBackoffMS:     defaultMaxBackoffMS,
		},
		Cache: Cache{
			Backend:     defaultCacheBackend,
			RedisAddr:   defaultRedisAddr,
			RedisPrefix: defaultRedisPrefix,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
