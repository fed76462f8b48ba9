package config

import (
	"os"
	"path/filepath"
	"time"
)

// Default values
const (
	// Cache defaults
	DefaultCacheEnabled    = true
	DefaultCacheTTL        = time.Hour
	DefaultCacheMaxEntries = 1000
	DefaultCacheMaxSize    = "64MB"
	DefaultCachePersistent = false
	DefaultCacheCompress   = true

	// Fetch defaults
	DefaultFetchTimeout    = 30 * time.Second
	DefaultMaxRetries      = 3
	DefaultInitialInterval = 500 * time.Millisecond
	DefaultMaxInterval     = 10 * time.Second
	DefaultMaxBodySize     = "10MB"

	// Resolve defaults
	DefaultMaxDepth = 32
	DefaultWorkers  = 4

	// Watch defaults
	DefaultDebounce = 100 * time.Millisecond

	// Logging defaults
	DefaultLogLevel  = "info"
	DefaultLogFormat = "pretty"

	// EnvPrefix prefixes environment overrides, e.g. WHYML_CACHE_TTL
	EnvPrefix = "WHYML"
)

// ConfigDir returns the config directory path
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".whyml"
	}
	return filepath.Join(home, ".whyml")
}

// CacheDir returns the cache directory path
func CacheDir() string {
	return filepath.Join(ConfigDir(), "cache")
}

// ConfigFilePath returns the config file path
func ConfigFilePath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Cache: CacheConfig{
			Enabled:    DefaultCacheEnabled,
			TTL:        DefaultCacheTTL,
			MaxEntries: DefaultCacheMaxEntries,
			MaxSize:    DefaultCacheMaxSize,
			Persistent: DefaultCachePersistent,
			Directory:  CacheDir(),
			Compress:   DefaultCacheCompress,
		},
		Fetch: FetchConfig{
			Timeout:         DefaultFetchTimeout,
			MaxRetries:      DefaultMaxRetries,
			InitialInterval: DefaultInitialInterval,
			MaxInterval:     DefaultMaxInterval,
			MaxBodySize:     DefaultMaxBodySize,
		},
		Resolve: ResolveConfig{
			MaxDepth: DefaultMaxDepth,
			Workers:  DefaultWorkers,
		},
		Watch: WatchConfig{
			Debounce: DefaultDebounce,
		},
		Logging: LoggingConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
		Variables: map[string]any{},
	}
}
