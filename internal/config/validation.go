package config

import (
	"errors"
	"net/url"
	"strings"

	"github.com/ZaguanLabs/appshelf"
)

// Validate checks every setting that has a fixed domain. The upstream origin
// is only required to serve, see ValidateServe.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	if c.Server.ShutdownTimeout < 0 {
		return newFieldError("server.shutdown_timeout", "must not be negative")
	}

	if c.Proxy.UpstreamOrigin != "" {
		if err := validateOrigin(c.Proxy.UpstreamOrigin); err != nil {
			return err
		}
	}
	if !strings.HasPrefix(c.Proxy.APIPrefix, "/") {
		return newFieldError("proxy.api_prefix", "must start with /")
	}
	if c.Proxy.Timeout < 0 {
		return newFieldError("proxy.timeout", "must not be negative")
	}

	switch c.Translate.Provider {
	case ProviderDeepL, ProviderOpenAI, ProviderMock:
	default:
		return newFieldError("translate.provider", "must be one of deepl|openai|mock")
	}
	if c.Translate.Provider == ProviderDeepL {
		if u, err := url.Parse(c.Translate.APIURL); err != nil || u.Scheme == "" || u.Host == "" {
			return newFieldError("translate.api_url", "must be an absolute URL")
		}
	}
	if !appshelf.Language(c.Translate.DefaultLanguage).IsSupported() {
		return newFieldError("translate.default_language", "unsupported language code")
	}
	if c.Translate.MaxRetries < 0 {
		return newFieldError("translate.max_retries", "must not be negative")
	}
	if c.Translate.RequestsPerMinute < 0 {
		return newFieldError("translate.requests_per_minute", "must not be negative")
	}

	switch c.Cache.Backend {
	case BackendMemory:
	case BackendRedis:
		if c.Cache.RedisURL == "" {
			return newFieldError("cache.redis_url", "required for the redis backend")
		}
	default:
		return newFieldError("cache.backend", "must be memory or redis")
	}
	if c.Cache.MaxEntries < 0 {
		return newFieldError("cache.max_entries", "must not be negative")
	}
	if c.Cache.TTL < 0 {
		return newFieldError("cache.ttl", "must not be negative")
	}

	return nil
}

// ValidateServe additionally requires what the edge server needs.
func (c *Config) ValidateServe() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Proxy.UpstreamOrigin == "" {
		return newFieldError("proxy.upstream_origin", "required")
	}
	if c.Server.Listen == "" {
		return newFieldError("server.listen", "required")
	}
	return nil
}

// DefaultLanguage returns the configured fallback target language.
func (c *Config) DefaultLanguage() appshelf.Language {
	return appshelf.Language(c.Translate.DefaultLanguage)
}

func validateOrigin(origin string) error {
	u, err := url.Parse(origin)
	if err != nil {
		return newFieldError("proxy.upstream_origin", "invalid URL: "+err.Error())
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return newFieldError("proxy.upstream_origin", "scheme must be http or https")
	}
	if u.Host == "" {
		return newFieldError("proxy.upstream_origin", "missing host")
	}
	if u.RawQuery != "" || u.Fragment != "" {
		return newFieldError("proxy.upstream_origin", "must not carry a query or fragment")
	}
	return nil
}
