// Package edgeproxy forwards API calls from the storefront to the upstream
// origin and answers CORS preflights.
package edgeproxy

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ZaguanLabs/appshelf/internal/logging"
)

// DefaultAPIPrefix is the path prefix that is forwarded upstream.
const DefaultAPIPrefix = "/api"

// DefaultMaxBodyBytes bounds a buffered request body.
const DefaultMaxBodyBytes = 32 << 20

// Options configures a Handler.
type Options struct {
	UpstreamOrigin  string        // Scheme and host, e.g. https://catalog.example.com
	APIPrefix       string        // Forwarded prefix (default: /api)
	Fallback        http.Handler  // Serves non-API paths; nil means 404
	Client          *http.Client  // Upstream client (default: NewUpstreamClient(Timeout))
	Timeout         time.Duration // Used only when Client is nil
	MaxBodyBytes    int64         // Request body limit (default: DefaultMaxBodyBytes)
	Logger          logrus.FieldLogger
	OnUpstreamError func() // Called once per failed round trip
}

// Handler is the edge request router: preflights, API forwarding, fallback.
type Handler struct {
	origin     string
	prefix     string
	fallback   http.Handler
	client     *http.Client
	maxBody    int64
	logger     logrus.FieldLogger
	onUpstream func()
}

// errorBody is the JSON returned when the origin cannot be reached.
type errorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// New creates a Handler.
func New(opts Options) (*Handler, error) {
	origin := strings.TrimRight(opts.UpstreamOrigin, "/")
	if origin == "" {
		return nil, errors.New("edgeproxy: upstream origin is required")
	}

	prefix := strings.TrimRight(opts.APIPrefix, "/")
	if prefix == "" {
		prefix = DefaultAPIPrefix
	}

	fallback := opts.Fallback
	if fallback == nil {
		fallback = http.NotFoundHandler()
	}

	client := opts.Client
	if client == nil {
		client = NewUpstreamClient(opts.Timeout)
	}

	maxBody := opts.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = DefaultMaxBodyBytes
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	onUpstream := opts.OnUpstreamError
	if onUpstream == nil {
		onUpstream = func() {}
	}

	return &Handler{
		origin:     origin,
		prefix:     prefix,
		fallback:   fallback,
		client:     client,
		maxBody:    maxBody,
		logger:     logger.WithField("component", "edgeproxy"),
		onUpstream: onUpstream,
	}, nil
}

// Prefix returns the forwarded path prefix.
func (h *Handler) Prefix() string {
	return h.prefix
}

// Matches reports whether path is forwarded upstream.
func (h *Handler) Matches(path string) bool {
	return path == h.prefix || strings.HasPrefix(path, h.prefix+"/")
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.Method == http.MethodOptions:
		SetCORSHeaders(w.Header())
		w.WriteHeader(http.StatusNoContent)
	case h.Matches(r.URL.Path):
		h.Forward(w, r)
	default:
		h.fallback.ServeHTTP(w, r)
	}
}

// Forward relays r to the origin and streams the response back. It does not
// retry. The request body is buffered so that the client can replay it when
// the origin redirects with 307 or 308.
func (h *Handler) Forward(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	target := h.targetURL(r)

	requestID := r.Header.Get(RequestIDHeader)
	if requestID == "" {
		requestID = uuid.NewString()
	}

	var body io.Reader
	if r.Method != http.MethodGet && r.Method != http.MethodHead && r.Body != nil {
		data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBody))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				writeJSONError(w, requestID, http.StatusRequestEntityTooLarge, errorBody{Error: "Request body too large"})
				return
			}
			h.fail(w, r, requestID, target, err)
			return
		}
		// A *bytes.Reader gives the request a GetBody for redirects.
		body = bytes.NewReader(data)
	}

	out, err := http.NewRequestWithContext(r.Context(), r.Method, target, body)
	if err != nil {
		h.fail(w, r, requestID, target, err)
		return
	}
	CopyHeaders(out.Header, r.Header)
	out.Header.Del("Host")
	out.Header.Set(RequestIDHeader, requestID)

	resp, err := h.client.Do(out)
	if err != nil {
		h.fail(w, r, requestID, target, err)
		return
	}
	defer resp.Body.Close()

	CopyHeaders(w.Header(), resp.Header)
	SetCORSHeaders(w.Header())
	w.Header().Set(RequestIDHeader, requestID)
	w.WriteHeader(resp.StatusCode)

	n, copyErr := io.Copy(w, resp.Body)

	entry := h.logger.WithFields(logging.ProxyFields(requestID, r.Method, r.URL.Path, h.origin, resp.StatusCode)).
		WithFields(logrus.Fields{"bytes": n, "duration": time.Since(start).String()})
	if copyErr != nil {
		entry.WithError(copyErr).Warn("response body interrupted")
		return
	}
	entry.Info("proxied")
}

// targetURL is origin + escaped path + "?" + raw query (when present).
func (h *Handler) targetURL(r *http.Request) string {
	target := h.origin + r.URL.EscapedPath()
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}
	return target
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, requestID, target string, err error) {
	h.onUpstream()
	h.logger.WithFields(logging.ProxyFields(requestID, r.Method, r.URL.Path, h.origin, http.StatusInternalServerError)).
		WithField("target", target).
		WithError(err).
		Error("proxy error")

	writeJSONError(w, requestID, http.StatusInternalServerError, errorBody{Error: "Proxy error", Details: err.Error()})
}

func writeJSONError(w http.ResponseWriter, requestID string, status int, body errorBody) {
	SetCORSHeaders(w.Header())
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set(RequestIDHeader, requestID)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
