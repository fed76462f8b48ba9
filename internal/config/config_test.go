package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestConfig_Validate tests configuration validation
func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		check   func(*testing.T, *Config)
		wantErr bool
	}{
		{
			name:   "defaults are valid",
			modify: func(c *Config) {},
		},
		{
			name:   "workers below minimum defaults",
			modify: func(c *Config) { c.Resolve.Workers = 0 },
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, DefaultWorkers, c.Resolve.Workers)
			},
		},
		{
			name:   "max depth below minimum defaults",
			modify: func(c *Config) { c.Resolve.MaxDepth = -1 },
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, DefaultMaxDepth, c.Resolve.MaxDepth)
			},
		},
		{
			name:   "fetch timeout below minimum defaults",
			modify: func(c *Config) { c.Fetch.Timeout = 100 * time.Millisecond },
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, DefaultFetchTimeout, c.Fetch.Timeout)
			},
		},
		{
			name:   "negative retries clamp to zero",
			modify: func(c *Config) { c.Fetch.MaxRetries = -3 },
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, 0, c.Fetch.MaxRetries)
			},
		},
		{
			name: "max interval never below initial interval",
			modify: func(c *Config) {
				c.Fetch.InitialInterval = 2 * time.Second
				c.Fetch.MaxInterval = time.Second
			},
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, 2*time.Second, c.Fetch.MaxInterval)
			},
		},
		{
			name:   "cache TTL below minimum defaults",
			modify: func(c *Config) { c.Cache.TTL = 0 },
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, DefaultCacheTTL, c.Cache.TTL)
			},
		},
		{
			name:   "negative max entries clamps to unbounded",
			modify: func(c *Config) { c.Cache.MaxEntries = -1 },
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, 0, c.Cache.MaxEntries)
			},
		},
		{
			name:   "zero debounce defaults",
			modify: func(c *Config) { c.Watch.Debounce = 0 },
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, DefaultDebounce, c.Watch.Debounce)
			},
		},
		{
			name:   "empty sizes default",
			modify: func(c *Config) { c.Cache.MaxSize = ""; c.Fetch.MaxBodySize = "" },
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, DefaultCacheMaxSize, c.Cache.MaxSize)
				assert.Equal(t, DefaultMaxBodySize, c.Fetch.MaxBodySize)
			},
		},
		{
			name:    "invalid cache size",
			modify:  func(c *Config) { c.Cache.MaxSize = "lots" },
			wantErr: true,
		},
		{
			name:    "invalid body size",
			modify:  func(c *Config) { c.Fetch.MaxBodySize = "-1MB" },
			wantErr: true,
		},
		{
			name:    "invalid log level",
			modify:  func(c *Config) { c.Logging.Level = "chatty" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func TestParseSize(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"64MB", 64 * 1024 * 1024, false},
		{"1gb", 1024 * 1024 * 1024, false},
		{" 10 KB ", 10 * 1024, false},
		{"512", 512, false},
		{"", 0, true},
		{"MB", 0, true},
		{"ten", 0, true},
		{"-5", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSize(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConfig_ByteSizes(t *testing.T) {
	cfg := Default()
	cfg.Cache.MaxSize = "2MB"
	cfg.Fetch.MaxBodySize = "4KB"
	assert.Equal(t, int64(2*1024*1024), cfg.CacheMaxBytes())
	assert.Equal(t, int64(4*1024), cfg.FetchMaxBodyBytes())
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NotNil(t, cfg)

	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, DefaultCacheTTL, cfg.Cache.TTL)
	assert.Equal(t, CacheDir(), cfg.Cache.Directory)
	assert.Equal(t, DefaultMaxDepth, cfg.Resolve.MaxDepth)
	assert.False(t, cfg.Resolve.StrictVariables)
	assert.Equal(t, DefaultLogLevel, cfg.Logging.Level)
	assert.NotNil(t, cfg.Variables)
	assert.NoError(t, cfg.Validate())
}

func TestPaths(t *testing.T) {
	assert.Equal(t, ".whyml", filepath.Base(ConfigDir()))
	assert.Equal(t, filepath.Join(ConfigDir(), "cache"), CacheDir())
	assert.Equal(t, "config.yaml", filepath.Base(ConfigFilePath()))
}

func TestEnsureDirs(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	require.NoError(t, EnsureConfigDir())
	require.NoError(t, EnsureCacheDir())

	info, err := os.Stat(CacheDir())
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "whyml.yaml")
	content := `
cache:
  ttl: 10m
  max_entries: 50
  persistent: true
fetch:
  max_retries: 5
resolve:
  strict_variables: true
  workers: 2
logging:
  level: debug
  format: json
variables:
  brand: Acme
  size: 12
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, 10*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, 50, cfg.Cache.MaxEntries)
	assert.True(t, cfg.Cache.Persistent)
	assert.Equal(t, 5, cfg.Fetch.MaxRetries)
	assert.True(t, cfg.Resolve.StrictVariables)
	assert.Equal(t, 2, cfg.Resolve.Workers)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "Acme", cfg.Variables["brand"])
	assert.EqualValues(t, 12, cfg.Variables["size"])

	// untouched keys keep their defaults
	assert.Equal(t, DefaultFetchTimeout, cfg.Fetch.Timeout)
	assert.Equal(t, DefaultCacheMaxSize, cfg.Cache.MaxSize)
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadFile_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("invalid: yaml: content: ["), 0644))

	cfg, err := LoadFile(path)
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestLoadFile_InvalidValue(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("cache:\n  max_size: huge\n"), 0644))

	_, err := LoadFile(path)
	assert.ErrorContains(t, err, "cache.max_size")
}

func TestLoadFile_EnvironmentOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("resolve:\n  workers: 2\n"), 0644))
	t.Setenv("WHYML_RESOLVE_WORKERS", "7")
	t.Setenv("WHYML_LOGGING_LEVEL", "warn")

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Resolve.Workers)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoadWithViper_MissingConfig(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	chdir(t, t.TempDir())

	cfg, v, err := LoadWithViper()
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, DefaultWorkers, cfg.Resolve.Workers)
	assert.Equal(t, CacheDir(), cfg.Cache.Directory)
}

func TestLoadWithViper_WorkingDirectoryConfig(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("resolve:\n  max_depth: 8\n"), 0644))
	chdir(t, dir)

	cfg, _, err := LoadWithViper()
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Resolve.MaxDepth)
}

func TestLoadWith_BoundFlagsWin(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("resolve:\n  workers: 2\n  max_depth: 5\n"), 0644))

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("workers", 1, "")
	flags.Int("max-depth", 1, "")
	require.NoError(t, flags.Parse([]string{"--workers=9"}))

	v := viper.New()
	require.NoError(t, v.BindPFlag("resolve.workers", flags.Lookup("workers")))
	require.NoError(t, v.BindPFlag("resolve.max_depth", flags.Lookup("max-depth")))

	cfg, err := LoadWith(v, path)
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.Resolve.Workers)
	// an unchanged flag does not shadow the file
	assert.Equal(t, 5, cfg.Resolve.MaxDepth)
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (stand-in for testing.T.Chdir, added in Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}
