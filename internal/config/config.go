// Package config loads appshelf settings from an optional file and the
// environment.
package config

import (
	"os"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config is the full runtime configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Proxy     ProxyConfig     `mapstructure:"proxy"`
	Translate TranslateConfig `mapstructure:"translate"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Log       LogConfig       `mapstructure:"log"`

	v    *viper.Viper
	path string

	// fileKey holds translate.api_key as last read from disk. Only the
	// watcher goroutine touches v after Load; handlers read this instead.
	fileKey *atomic.Value
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Listen          string        `mapstructure:"listen"`
	StaticDir       string        `mapstructure:"static_dir"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// ProxyConfig controls API forwarding.
type ProxyConfig struct {
	UpstreamOrigin string        `mapstructure:"upstream_origin"`
	APIPrefix      string        `mapstructure:"api_prefix"`
	Timeout        time.Duration `mapstructure:"timeout"`
}

// TranslateConfig selects and tunes the translation backend.
type TranslateConfig struct {
	Provider          string   `mapstructure:"provider"`
	APIURL            string   `mapstructure:"api_url"`
	APIKey            string   `mapstructure:"api_key"`
	Model             string   `mapstructure:"model"`
	DefaultLanguage   string   `mapstructure:"default_language"`
	MaxRetries        int      `mapstructure:"max_retries"`
	RequestsPerMinute int      `mapstructure:"requests_per_minute"`
	BreakerFailures   uint32   `mapstructure:"breaker_failures"`
	Context           string   `mapstructure:"context"`
	ExcludedTerms     []string `mapstructure:"excluded_terms"`
}

// CacheConfig selects the translation cache backend.
type CacheConfig struct {
	Backend    string        `mapstructure:"backend"`
	MaxEntries int           `mapstructure:"max_entries"`
	TTL        time.Duration `mapstructure:"ttl"`
	RedisURL   string        `mapstructure:"redis_url"`
	KeyPrefix  string        `mapstructure:"key_prefix"`
}

// LogConfig controls log level and rotation.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	Compress   bool   `mapstructure:"compress"`
}

// Provider and cache backend names.
const (
	ProviderDeepL  = "deepl"
	ProviderOpenAI = "openai"
	ProviderMock   = "mock"

	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Path returns the config file that was read, or "" when none was.
func (c *Config) Path() string {
	return c.path
}

// TranslateAPIKey returns the current credential. The environment is checked
// on every call and then the value from the config file, which Watch keeps
// current. A key exported or written to a watched file after startup is
// picked up without a restart.
func (c *Config) TranslateAPIKey() string {
	if c.fileKey == nil {
		return c.Translate.APIKey
	}
	for _, name := range envNames("translate.api_key") {
		if key := os.Getenv(name); key != "" {
			return key
		}
	}
	key, _ := c.fileKey.Load().(string)
	return key
}

// Watch re-reads the config file when it changes on disk. Only the
// credential returned by TranslateAPIKey is refreshed.
func (c *Config) Watch() {
	if c.v == nil || c.path == "" {
		return
	}
	c.v.OnConfigChange(func(fsnotify.Event) {
		c.fileKey.Store(c.v.GetString("translate.api_key"))
	})
	c.v.WatchConfig()
}
