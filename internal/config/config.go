package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/quantmind-br/whyml-go/internal/utils"
)

// Config represents the application configuration
type Config struct {
	Cache     CacheConfig    `mapstructure:"cache" yaml:"cache"`
	Fetch     FetchConfig    `mapstructure:"fetch" yaml:"fetch"`
	Resolve   ResolveConfig  `mapstructure:"resolve" yaml:"resolve"`
	Watch     WatchConfig    `mapstructure:"watch" yaml:"watch"`
	Logging   LoggingConfig  `mapstructure:"logging" yaml:"logging"`
	Variables map[string]any `mapstructure:"variables" yaml:"variables"`
}

// CacheConfig contains document and persistent cache settings
type CacheConfig struct {
	Enabled    bool          `mapstructure:"enabled" yaml:"enabled"`
	TTL        time.Duration `mapstructure:"ttl" yaml:"ttl"`
	MaxEntries int           `mapstructure:"max_entries" yaml:"max_entries"`
	// MaxSize bounds the summed size of cached documents, e.g. "64MB"
	MaxSize string `mapstructure:"max_size" yaml:"max_size"`
	// Persistent stores fetched remote manifests on disk
	Persistent bool   `mapstructure:"persistent" yaml:"persistent"`
	Directory  string `mapstructure:"directory" yaml:"directory"`
	Compress   bool   `mapstructure:"compress" yaml:"compress"`
}

// FetchConfig contains remote fetch settings
type FetchConfig struct {
	Timeout         time.Duration `mapstructure:"timeout" yaml:"timeout"`
	MaxRetries      int           `mapstructure:"max_retries" yaml:"max_retries"`
	InitialInterval time.Duration `mapstructure:"initial_interval" yaml:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval" yaml:"max_interval"`
	UserAgent       string        `mapstructure:"user_agent" yaml:"user_agent"`
	MaxBodySize     string        `mapstructure:"max_body_size" yaml:"max_body_size"`
}

// ResolveConfig contains pipeline settings
type ResolveConfig struct {
	MaxDepth         int  `mapstructure:"max_depth" yaml:"max_depth"`
	Workers          int  `mapstructure:"workers" yaml:"workers"`
	StrictVariables  bool `mapstructure:"strict_variables" yaml:"strict_variables"`
	StrictValidation bool `mapstructure:"strict_validation" yaml:"strict_validation"`
}

// WatchConfig contains file watcher settings
type WatchConfig struct {
	Debounce time.Duration `mapstructure:"debounce" yaml:"debounce"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// Validate validates the configuration, clamping out-of-range values to
// their defaults
func (c *Config) Validate() error {
	if c.Resolve.Workers < 1 {
		c.Resolve.Workers = DefaultWorkers
	}
	if c.Resolve.MaxDepth < 1 {
		c.Resolve.MaxDepth = DefaultMaxDepth
	}
	if c.Fetch.Timeout < time.Second {
		c.Fetch.Timeout = DefaultFetchTimeout
	}
	if c.Fetch.MaxRetries < 0 {
		c.Fetch.MaxRetries = 0
	}
	if c.Fetch.InitialInterval <= 0 {
		c.Fetch.InitialInterval = DefaultInitialInterval
	}
	if c.Fetch.MaxInterval < c.Fetch.InitialInterval {
		c.Fetch.MaxInterval = c.Fetch.InitialInterval
	}
	if c.Cache.TTL < time.Second {
		c.Cache.TTL = DefaultCacheTTL
	}
	if c.Cache.MaxEntries < 0 {
		c.Cache.MaxEntries = 0
	}
	if c.Watch.Debounce <= 0 {
		c.Watch.Debounce = DefaultDebounce
	}
	if c.Cache.MaxSize == "" {
		c.Cache.MaxSize = DefaultCacheMaxSize
	} else if _, err := ParseSize(c.Cache.MaxSize); err != nil {
		return fmt.Errorf("invalid cache.max_size: %w", err)
	}
	if c.Fetch.MaxBodySize == "" {
		c.Fetch.MaxBodySize = DefaultMaxBodySize
	} else if _, err := ParseSize(c.Fetch.MaxBodySize); err != nil {
		return fmt.Errorf("invalid fetch.max_body_size: %w", err)
	}
	if _, err := utils.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("invalid logging.level: %w", err)
	}
	return nil
}

// CacheMaxBytes returns cache.max_size in bytes
func (c *Config) CacheMaxBytes() int64 {
	n, _ := ParseSize(c.Cache.MaxSize)
	return n
}

// FetchMaxBodyBytes returns fetch.max_body_size in bytes
func (c *Config) FetchMaxBodyBytes() int64 {
	n, _ := ParseSize(c.Fetch.MaxBodySize)
	return n
}

func ParseSize(s string) (int64, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return 0, fmt.Errorf("empty size string")
	}

	var multiplier int64 = 1
	if strings.HasSuffix(s, "GB") {
		multiplier = 1024 * 1024 * 1024
		s = strings.TrimSuffix(s, "GB")
	} else if strings.HasSuffix(s, "MB") {
		multiplier = 1024 * 1024
		s = strings.TrimSuffix(s, "MB")
	} else if strings.HasSuffix(s, "KB") {
		multiplier = 1024
		s = strings.TrimSuffix(s, "KB")
	}

	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("no numeric value in size string")
	}

	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid numeric value: %w", err)
	}

	if n < 0 {
		return 0, fmt.Errorf("negative size not allowed")
	}

	return n * multiplier, nil
}
