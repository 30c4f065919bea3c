package server

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/ZaguanLabs/appshelf"
	"github.com/ZaguanLabs/appshelf/cache"
	"github.com/ZaguanLabs/appshelf/internal/config"
	"github.com/ZaguanLabs/appshelf/internal/metrics"
	"github.com/ZaguanLabs/appshelf/processor"
	"github.com/ZaguanLabs/appshelf/provider"
)

// Stack is the assembled translation machinery.
type Stack struct {
	Translator *appshelf.Translator
	Cache      appshelf.TranslationCache
	Provider   appshelf.Provider
}

// Close releases connections held by the cache backend.
func (s *Stack) Close() error {
	if c, ok := s.Cache.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

// NewProvider builds the configured backend and wraps it with rate limiting,
// retries and a circuit breaker when those are enabled.
func NewProvider(cfg *config.Config, logger logrus.FieldLogger) (appshelf.Provider, error) {
	var p appshelf.Provider
	switch cfg.Translate.Provider {
	case config.ProviderDeepL:
		p = provider.NewDeepLProvider(provider.DeepLConfig{
			APIURL:  cfg.Translate.APIURL,
			KeyFunc: cfg.TranslateAPIKey,
		})
	case config.ProviderOpenAI:
		p = provider.NewOpenAIProvider(provider.OpenAIConfig{
			KeyFunc: cfg.TranslateAPIKey,
			Model:   cfg.Translate.Model,
		})
	case config.ProviderMock:
		p = provider.NewMockProvider()
	default:
		return nil, fmt.Errorf("unknown translation provider %q", cfg.Translate.Provider)
	}

	if rpm := cfg.Translate.RequestsPerMinute; rpm > 0 {
		p = appshelf.NewRateLimitedProvider(p, appshelf.RateLimitConfig{RequestsPerMinute: rpm})
	}

	if n := cfg.Translate.MaxRetries; n > 0 {
		retry := appshelf.DefaultRetryConfig()
		retry.MaxRetries = n
		retry.OnRetry = func(attempt int, err error, delay time.Duration) {
			logger.WithFields(logrus.Fields{
				"action":  "translate_retry",
				"attempt": attempt,
				"delay":   delay.String(),
			}).WithError(err).Warn("retrying translation backend")
		}
		p = appshelf.NewRetryableProvider(p, retry)
	}

	if n := cfg.Translate.BreakerFailures; n > 0 {
		p = appshelf.NewBreakerProvider(p, appshelf.BreakerConfig{
			Name:                cfg.Translate.Provider,
			ConsecutiveFailures: n,
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.WithFields(logrus.Fields{
					"action":  "translate_breaker",
					"breaker": name,
					"from":    from.String(),
					"to":      to.String(),
				}).Warn("translation breaker changed state")
			},
		})
	}

	return p, nil
}

// NewCache builds the configured cache backend.
func NewCache(ctx context.Context, cfg *config.Config) (appshelf.TranslationCache, error) {
	switch cfg.Cache.Backend {
	case config.BackendRedis:
		c, err := cache.NewRedisCache(ctx, cache.RedisConfig{
			URL:       cfg.Cache.RedisURL,
			TTL:       cfg.Cache.TTL,
			KeyPrefix: cfg.Cache.KeyPrefix,
		})
		if err != nil {
			return nil, &appshelf.CacheError{Message: "connect to redis", Cause: err}
		}
		return c, nil
	case config.BackendMemory, "":
		return cache.NewInMemoryCache(
			cache.WithTTL(cfg.Cache.TTL),
			cache.WithMaxEntries(cfg.Cache.MaxEntries),
		), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
	}
}

// Build assembles provider, cache and translator from configuration. m may be nil.
func Build(ctx context.Context, cfg *config.Config, logger logrus.FieldLogger, m *metrics.Metrics) (*Stack, error) {
	p, err := NewProvider(cfg, logger)
	if err != nil {
		return nil, err
	}

	c, err := NewCache(ctx, cfg)
	if err != nil {
		return nil, err
	}

	opts := []appshelf.TranslatorOption{
		appshelf.WithCache(c),
		appshelf.WithProcessor(processor.NewHTMLProcessor()),
		appshelf.WithLogger(logger.WithField("component", "translator")),
	}
	if cfg.Translate.Context != "" {
		opts = append(opts, appshelf.WithContext(cfg.Translate.Context))
	}
	if len(cfg.Translate.ExcludedTerms) > 0 {
		opts = append(opts, appshelf.WithExcludedTerms(cfg.Translate.ExcludedTerms))
	}
	if cfg.Cache.Backend == config.BackendRedis {
		opts = append(opts, appshelf.WithParallelLookup(appshelf.BulkThreshold+1))
	}
	if m != nil {
		opts = append(opts, appshelf.WithRecorder(m.TranslationRecorder()))
	}

	return &Stack{
		Translator: appshelf.NewTranslator(p, opts...),
		Cache:      c,
		Provider:   p,
	}, nil
}
