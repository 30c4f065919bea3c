package config

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. APPSHELF_SERVER_LISTEN.
const EnvPrefix = "APPSHELF"

// envAliases are conventional variable names accepted alongside the prefixed ones.
var envAliases = map[string][]string{
	"translate.api_key":     {"DEEPL_API_KEY", "OPENAI_API_KEY"},
	"proxy.upstream_origin": {"UPSTREAM_ORIGIN"},
	"cache.redis_url":       {"REDIS_URL"},
}

// Load reads configuration from path (or ./appshelf.{yaml,toml,json} when path
// is empty and such a file exists), applies defaults and environment
// overrides, and validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	if err := bindEnv(v); err != nil {
		return nil, err
	}

	readPath, err := readFile(v, path)
	if err != nil {
		return nil, err
	}

	cfg := &Config{v: v, path: readPath}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	normalize(cfg)
	cfg.fileKey = new(atomic.Value)
	cfg.fileKey.Store(cfg.Translate.APIKey)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.listen", ":8080")
	v.SetDefault("server.static_dir", "")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("proxy.upstream_origin", "")
	v.SetDefault("proxy.api_prefix", "/api")
	v.SetDefault("proxy.timeout", "0s")

	v.SetDefault("translate.provider", ProviderDeepL)
	v.SetDefault("translate.api_url", "https://api-free.deepl.com/v2/translate")
	v.SetDefault("translate.api_key", "")
	v.SetDefault("translate.model", "gpt-4o-mini")
	v.SetDefault("translate.default_language", "EN")
	v.SetDefault("translate.max_retries", 0)
	v.SetDefault("translate.requests_per_minute", 0)
	v.SetDefault("translate.breaker_failures", 0)
	v.SetDefault("translate.context", "")
	v.SetDefault("translate.excluded_terms", []string{})

	v.SetDefault("cache.backend", BackendMemory)
	v.SetDefault("cache.max_entries", 0)
	v.SetDefault("cache.ttl", "0s")
	v.SetDefault("cache.redis_url", "redis://localhost:6379/0")
	v.SetDefault("cache.key_prefix", "appshelf:")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 10)
	v.SetDefault("log.compress", true)
}

func bindEnv(v *viper.Viper) error {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key := range envAliases {
		if err := v.BindEnv(append([]string{key}, envNames(key)...)...); err != nil {
			return fmt.Errorf("bind env %s: %w", key, err)
		}
	}
	return nil
}

// envNames lists the variables consulted for key, highest precedence first.
func envNames(key string) []string {
	prefixed := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
	return append([]string{prefixed}, envAliases[key]...)
}

func readFile(v *viper.Viper, path string) (string, error) {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return "", fmt.Errorf("read config: %w", err)
		}
		return v.ConfigFileUsed(), nil
	}

	v.SetConfigName("appshelf")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return "", nil
		}
		return "", fmt.Errorf("read config: %w", err)
	}
	return v.ConfigFileUsed(), nil
}

func normalize(cfg *Config) {
	cfg.Proxy.UpstreamOrigin = strings.TrimRight(strings.TrimSpace(cfg.Proxy.UpstreamOrigin), "/")
	if p := strings.TrimRight(cfg.Proxy.APIPrefix, "/"); p != "" {
		cfg.Proxy.APIPrefix = p
	}
	cfg.Translate.Provider = strings.ToLower(strings.TrimSpace(cfg.Translate.Provider))
	cfg.Translate.DefaultLanguage = strings.ToUpper(strings.TrimSpace(cfg.Translate.DefaultLanguage))
	cfg.Cache.Backend = strings.ToLower(strings.TrimSpace(cfg.Cache.Backend))
}
