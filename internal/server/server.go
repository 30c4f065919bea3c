// Package server wires the edge HTTP surface: translation endpoints, the API
// proxy, static assets, health and metrics.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/ZaguanLabs/appshelf"
	"github.com/ZaguanLabs/appshelf/internal/edgeproxy"
	"github.com/ZaguanLabs/appshelf/internal/logging"
	"github.com/ZaguanLabs/appshelf/internal/metrics"
)

// maxBodyBytes bounds translation request bodies.
const maxBodyBytes = 1 << 20

// Options configures a Server.
type Options struct {
	Translator      *appshelf.Translator
	Proxy           *edgeproxy.Handler // Receives every path no other route claims
	Metrics         *metrics.Metrics   // Optional
	Logger          logrus.FieldLogger
	DefaultLanguage appshelf.Language
	HealthCheck     func(ctx context.Context) error // Optional, e.g. a Redis ping
}

// Server is the edge HTTP handler.
type Server struct {
	translator  *appshelf.Translator
	proxy       *edgeproxy.Handler
	metrics     *metrics.Metrics
	logger      logrus.FieldLogger
	defaultLang appshelf.Language
	healthCheck func(ctx context.Context) error
	router      *mux.Router
}

// New creates a Server and registers its routes.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	lang := opts.DefaultLanguage
	if !lang.IsSupported() {
		lang = appshelf.DefaultLanguage
	}

	s := &Server{
		translator:  opts.Translator,
		proxy:       opts.Proxy,
		metrics:     opts.Metrics,
		logger:      logger.WithField("component", "server"),
		defaultLang: lang,
		healthCheck: opts.HealthCheck,
		router:      mux.NewRouter(),
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	r := s.router

	i18n := r.PathPrefix("/i18n").Subrouter()
	i18n.HandleFunc("/translate", s.handleTranslate).Methods(http.MethodPost)
	i18n.HandleFunc("/translate/bulk", s.handleTranslateBulk).Methods(http.MethodPost)
	i18n.HandleFunc("/translate/html", s.handleTranslateHTML).Methods(http.MethodPost)
	i18n.HandleFunc("/language", s.handleLanguage).Methods(http.MethodGet)
	i18n.HandleFunc("/languages", s.handleLanguages).Methods(http.MethodGet)

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/version", s.handleVersion).Methods(http.MethodGet)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	}

	if s.proxy != nil {
		r.PathPrefix("/").Handler(s.proxy)
	}
}

// Handler returns the full middleware chain. Preflight sits outermost so that
// OPTIONS is answered for every path, including ones no route matches.
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.router
	if s.metrics != nil {
		h = s.metrics.InstrumentHandler(h)
	}
	return edgeproxy.Preflight(h)
}

// Run serves on addr until ctx is cancelled, then drains in-flight requests
// for up to shutdownTimeout.
func Run(ctx context.Context, addr string, handler http.Handler, shutdownTimeout time.Duration, logger logrus.FieldLogger) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return Serve(ctx, ln, handler, shutdownTimeout, logger)
}

// Serve is Run on an existing listener.
func Serve(ctx context.Context, ln net.Listener, handler http.Handler, shutdownTimeout time.Duration, logger logrus.FieldLogger) error {
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.WithFields(logrus.Fields{"action": "listen", "addr": ln.Addr().String()}).Info("edge server started")
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	logger.WithField("action", "shutdown").Info("edge server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.healthCheck != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.healthCheck(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"name":    appshelf.Name,
		"version": appshelf.FullVersion(),
		"commit":  appshelf.GitCommit,
		"built":   appshelf.BuildDate,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
