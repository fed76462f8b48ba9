package config

import (
	"errors"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// LoadWith loads configuration from defaults, file, environment and any
// flags bound to v. An empty file searches ConfigDir and the working
// directory and tolerates a missing config; an explicit file must exist.
func LoadWith(v *viper.Viper, file string) (*Config, error) {
	return load(v, file)
}

// LoadFile loads configuration from an explicit file path on a fresh viper
// instance
func LoadFile(path string) (*Config, error) {
	return load(viper.New(), path)
}

// LoadWithViper loads configuration and returns the viper instance.
// This is useful for merging CLI flags later.
func LoadWithViper() (*Config, *viper.Viper, error) {
	v := viper.New()
	cfg, err := load(v, "")
	if err != nil {
		return nil, nil, err
	}
	return cfg, v, nil
}

func load(v *viper.Viper, file string) (*Config, error) {
	// Set defaults
	setDefaults(v)

	// Config file settings
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(ConfigDir())
		v.AddConfigPath(".")
	}

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, err
		}
	}

	// Environment variables (WHYML_*)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Unmarshal config
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if cfg.Variables == nil {
		cfg.Variables = map[string]any{}
	}

	// Validate and apply defaults for invalid values
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults sets default values in viper
func setDefaults(v *viper.Viper) {
	// Cache defaults
	v.SetDefault("cache.enabled", DefaultCacheEnabled)
	v.SetDefault("cache.ttl", DefaultCacheTTL)
	v.SetDefault("cache.max_entries", DefaultCacheMaxEntries)
	v.SetDefault("cache.max_size", DefaultCacheMaxSize)
	v.SetDefault("cache.persistent", DefaultCachePersistent)
	v.SetDefault("cache.directory", CacheDir())
	v.SetDefault("cache.compress", DefaultCacheCompress)

	// Fetch defaults
	v.SetDefault("fetch.timeout", DefaultFetchTimeout)
	v.SetDefault("fetch.max_retries", DefaultMaxRetries)
	v.SetDefault("fetch.initial_interval", DefaultInitialInterval)
	v.SetDefault("fetch.max_interval", DefaultMaxInterval)
	v.SetDefault("fetch.user_agent", "")
	v.SetDefault("fetch.max_body_size", DefaultMaxBodySize)

	// Resolve defaults
	v.SetDefault("resolve.max_depth", DefaultMaxDepth)
	v.SetDefault("resolve.workers", DefaultWorkers)
	v.SetDefault("resolve.strict_variables", false)
	v.SetDefault("resolve.strict_validation", false)

	// Watch defaults
	v.SetDefault("watch.debounce", DefaultDebounce)

	// Logging defaults
	v.SetDefault("logging.level", DefaultLogLevel)
	v.SetDefault("logging.format", DefaultLogFormat)
}

// EnsureConfigDir creates the config directory if it doesn't exist
func EnsureConfigDir() error {
	dir := ConfigDir()
	return os.MkdirAll(dir, 0755)
}

// EnsureCacheDir creates the cache directory if it doesn't exist
func EnsureCacheDir() error {
	dir := CacheDir()
	return os.MkdirAll(dir, 0755)
}
