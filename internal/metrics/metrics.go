// Package metrics exposes Prometheus collectors for the edge server.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ZaguanLabs/appshelf"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "appshelf"

// Metrics owns a private registry so several servers (and tests) can coexist
// in one process.
type Metrics struct {
	Registry *prometheus.Registry

	httpInFlight   prometheus.Gauge
	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
	cacheLookups   *prometheus.CounterVec
	fallbacks      *prometheus.CounterVec
	providerCalls  *prometheus.CounterVec
	providerTexts  prometheus.Counter
	upstreamErrors prometheus.Counter
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		}, []string{"method", "route"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "translate",
			Name:      "cache_total",
			Help:      "Translation cache lookups by result.",
		}, []string{"result"}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "translate",
			Name:      "fallback_total",
			Help:      "Translations that returned the original text, by reason.",
		}, []string{"reason"}),
		providerCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "translate",
			Name:      "provider_calls_total",
			Help:      "Requests sent to the translation backend.",
		}, []string{"mode"}),
		providerTexts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "translate",
			Name:      "provider_texts_total",
			Help:      "Texts sent to the translation backend.",
		}),
		upstreamErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "proxy",
			Name:      "upstream_errors_total",
			Help:      "API requests that failed to reach the upstream origin.",
		}),
	}

	m.Registry.MustRegister(
		m.httpInFlight,
		m.httpRequests,
		m.httpDuration,
		m.cacheLookups,
		m.fallbacks,
		m.providerCalls,
		m.providerTexts,
		m.upstreamErrors,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
	return m
}

// Handler returns an HTTP handler exposing the registered metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps next with request count and latency collection.
func (m *Metrics) InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		m.httpInFlight.Inc()
		defer m.httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		route := canonicalRoute(r.URL.Path)
		method := strings.ToUpper(r.Method)

		m.httpRequests.WithLabelValues(method, route, strconv.Itoa(rec.status)).Inc()
		m.httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	})
}

// ProxyError counts one failed upstream round trip.
func (m *Metrics) ProxyError() {
	m.upstreamErrors.Inc()
}

// TranslationRecorder returns an appshelf.Recorder feeding these metrics.
func (m *Metrics) TranslationRecorder() appshelf.Recorder {
	return translationRecorder{m: m}
}

type translationRecorder struct {
	m *Metrics
}

func (r translationRecorder) CacheLookup(_ appshelf.Language, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	r.m.cacheLookups.WithLabelValues(result).Inc()
}

func (r translationRecorder) ProviderCall(mode string, texts int) {
	r.m.providerCalls.WithLabelValues(mode).Inc()
	r.m.providerTexts.Add(float64(texts))
}

func (r translationRecorder) Fallback(reason string) {
	r.m.fallbacks.WithLabelValues(reason).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// canonicalRoute keeps label cardinality bounded: proxied API paths and static
// assets collapse to their first segment, /i18n routes keep their full path.
func canonicalRoute(raw string) string {
	trimmed := strings.Trim(raw, "/")
	if trimmed == "" {
		return "/"
	}
	parts := strings.Split(trimmed, "/")
	if parts[0] == "i18n" && len(parts) <= 3 {
		return "/" + trimmed
	}
	return "/" + parts[0]
}
