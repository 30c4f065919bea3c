package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ZaguanLabs/appshelf"
	"github.com/tidwall/gjson"
)

// DefaultDeepLURL is the DeepL free-tier translate endpoint.
const DefaultDeepLURL = "https://api-free.deepl.com/v2/translate"

// maxErrorBody bounds how much of a failed response is kept for the error.
const maxErrorBody = 512

// DeepLConfig holds configuration for the DeepL provider.
type DeepLConfig struct {
	APIURL     string       // Translate endpoint (default: DefaultDeepLURL)
	KeyFunc    KeyFunc      // Credential source, consulted on every call
	HTTPClient *http.Client // Optional client (default: 30s timeout)
}

// DeepLProvider implements Provider against the DeepL v2 translate API.
type DeepLProvider struct {
	apiURL  string
	keyFunc KeyFunc
	client  *http.Client
}

type deeplRequest struct {
	Text               []string `json:"text"`
	TargetLang         string   `json:"target_lang"`
	SourceLang         string   `json:"source_lang,omitempty"`
	Context            string   `json:"context,omitempty"`
	PreserveFormatting bool     `json:"preserve_formatting"`
}

// NewDeepLProvider creates a new DeepL provider.
func NewDeepLProvider(cfg DeepLConfig) *DeepLProvider {
	apiURL := cfg.APIURL
	if apiURL == "" {
		apiURL = DefaultDeepLURL
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	return &DeepLProvider{
		apiURL:  apiURL,
		keyFunc: cfg.KeyFunc,
		client:  client,
	}
}

// Translate sends all texts in one request. Translations come back in input order.
func (p *DeepLProvider) Translate(ctx context.Context, req TranslateRequest) ([]string, error) {
	if len(req.Texts) == 0 {
		return []string{}, nil
	}

	key := resolveKey(p.keyFunc)
	if key == "" {
		return nil, appshelf.ErrMissingCredential
	}

	body, err := json.Marshal(deeplRequest{
		Text:               req.Texts,
		TargetLang:         string(req.TargetLang),
		SourceLang:         string(req.SourceLang),
		Context:            req.Context,
		PreserveFormatting: true,
	})
	if err != nil {
		return nil, &appshelf.ProviderError{Message: "encoding request", Cause: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL, bytes.NewReader(body))
	if err != nil {
		return nil, &appshelf.ProviderError{Message: "building request", Cause: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "DeepL-Auth-Key "+key)
	httpReq.Header.Set("User-Agent", appshelf.UserAgent())

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, &appshelf.ProviderError{
			Message:   "DeepL request failed",
			Cause:     err,
			Retryable: ctx.Err() == nil,
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &appshelf.ProviderError{
			Message:    fmt.Sprintf("DeepL returned %s", resp.Status),
			Cause:      errorFromBody(snippet),
			StatusCode: resp.StatusCode,
			Retryable:  appshelf.RetryableStatus(resp.StatusCode),
		}
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &appshelf.ProviderError{Message: "reading DeepL response", Cause: err, Retryable: true}
	}

	return parseDeepLResponse(payload, len(req.Texts))
}

func parseDeepLResponse(payload []byte, expected int) ([]string, error) {
	if !gjson.ValidBytes(payload) {
		return nil, &appshelf.CountMismatchError{Expected: expected, Got: 0}
	}

	texts := gjson.GetBytes(payload, "translations.#.text").Array()
	if len(texts) != expected {
		return nil, &appshelf.CountMismatchError{Expected: expected, Got: len(texts)}
	}

	out := make([]string, len(texts))
	for i, t := range texts {
		out[i] = t.String()
	}
	return out, nil
}

// errorFromBody extracts DeepL's "message" field when present.
func errorFromBody(body []byte) error {
	if len(body) == 0 {
		return nil
	}
	if msg := gjson.GetBytes(body, "message"); msg.Exists() {
		return errors.New(msg.String())
	}
	return errors.New(string(bytes.TrimSpace(body)))
}

// Verify DeepLProvider implements Provider
var _ Provider = (*DeepLProvider)(nil)
