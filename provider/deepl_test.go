package provider

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ZaguanLabs/appshelf"
)

func newDeepLServer(t *testing.T, handler http.HandlerFunc) (*DeepLProvider, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	p := NewDeepLProvider(DeepLConfig{
		APIURL:     srv.URL,
		KeyFunc:    StaticKey("secret"),
		HTTPClient: srv.Client(),
	})
	return p, srv
}

func TestDeepL_RequestShape(t *testing.T) {
	var got deeplRequest
	var auth, contentType string

	p, _ := newDeepLServer(t, func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		contentType = r.Header.Get("Content-Type")
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST, got %s", r.Method)
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &got); err != nil {
			t.Errorf("Invalid request body: %v", err)
		}
		if !strings.Contains(string(body), `"preserve_formatting":true`) {
			t.Errorf("preserve_formatting missing from %s", body)
		}
		if strings.Contains(string(body), "source_lang") {
			t.Errorf("source_lang should be omitted when empty: %s", body)
		}
		if strings.Contains(string(body), `"context"`) {
			t.Errorf("context should be omitted when no hint is configured: %s", body)
		}
		w.Write([]byte(`{"translations":[{"detected_source_language":"EN","text":"Hola"},{"detected_source_language":"EN","text":"Mundo"}]}`))
	})

	out, err := p.Translate(context.Background(), TranslateRequest{
		Texts:      []string{"Hello", "World"},
		TargetLang: appshelf.LangES,
	})
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}

	if auth != "DeepL-Auth-Key secret" {
		t.Errorf("Unexpected Authorization header %q", auth)
	}
	if contentType != "application/json" {
		t.Errorf("Unexpected Content-Type %q", contentType)
	}
	if got.TargetLang != "ES" || len(got.Text) != 2 {
		t.Errorf("Unexpected request %+v", got)
	}
	if len(out) != 2 || out[0] != "Hola" || out[1] != "Mundo" {
		t.Errorf("Unexpected translations %v", out)
	}
}

func TestDeepL_SourceLang(t *testing.T) {
	var got deeplRequest
	p, _ := newDeepLServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"translations":[{"text":"Hallo"}]}`))
	})

	if _, err := p.Translate(context.Background(), TranslateRequest{
		Texts:      []string{"Hello"},
		TargetLang: appshelf.LangDE,
		SourceLang: appshelf.LangEN,
	}); err != nil {
		t.Fatalf("Translate failed: %v", err)
	}
	if got.SourceLang != "EN" {
		t.Errorf("Expected source_lang EN, got %q", got.SourceLang)
	}
}

func TestDeepL_ContextHint(t *testing.T) {
	var got deeplRequest
	p, _ := newDeepLServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"translations":[{"text":"Instalar"}]}`))
	})

	if _, err := p.Translate(context.Background(), TranslateRequest{
		Texts:      []string{"Install"},
		TargetLang: appshelf.LangES,
		Context:    "Mobile app store listing",
	}); err != nil {
		t.Fatalf("Translate failed: %v", err)
	}
	if got.Context != "Mobile app store listing" {
		t.Errorf("configured context hint not sent, got %q", got.Context)
	}
}

func TestDeepL_MissingKey(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	p := NewDeepLProvider(DeepLConfig{APIURL: srv.URL, KeyFunc: StaticKey("")})
	_, err := p.Translate(context.Background(), TranslateRequest{Texts: []string{"Hello"}, TargetLang: appshelf.LangES})
	if !errors.Is(err, appshelf.ErrMissingCredential) {
		t.Errorf("Expected ErrMissingCredential, got %v", err)
	}
	if called {
		t.Error("No request should be sent without a key")
	}
}

func TestDeepL_KeyReadPerCall(t *testing.T) {
	key := ""
	p, _ := newDeepLServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"translations":[{"text":"Hola"}]}`))
	})
	p.keyFunc = func() string { return key }

	req := TranslateRequest{Texts: []string{"Hello"}, TargetLang: appshelf.LangES}
	if _, err := p.Translate(context.Background(), req); !errors.Is(err, appshelf.ErrMissingCredential) {
		t.Fatalf("Expected missing credential first, got %v", err)
	}

	key = "late"
	if _, err := p.Translate(context.Background(), req); err != nil {
		t.Errorf("Expected success once the key is set, got %v", err)
	}
}

func TestDeepL_ErrorStatus(t *testing.T) {
	tests := []struct {
		status    int
		retryable bool
	}{
		{http.StatusForbidden, false},
		{456, false},
		{http.StatusTooManyRequests, true},
		{http.StatusServiceUnavailable, true},
	}

	for _, tt := range tests {
		p, _ := newDeepLServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
			w.Write([]byte(`{"message":"nope"}`))
		})

		_, err := p.Translate(context.Background(), TranslateRequest{Texts: []string{"Hello"}, TargetLang: appshelf.LangES})

		var perr *appshelf.ProviderError
		if !errors.As(err, &perr) {
			t.Fatalf("status %d: expected ProviderError, got %v", tt.status, err)
		}
		if perr.StatusCode != tt.status {
			t.Errorf("status %d: got StatusCode %d", tt.status, perr.StatusCode)
		}
		if perr.Retryable != tt.retryable {
			t.Errorf("status %d: expected retryable=%v", tt.status, tt.retryable)
		}
		if !strings.Contains(err.Error(), "nope") {
			t.Errorf("status %d: expected body message in error, got %v", tt.status, err)
		}
	}
}

func TestDeepL_MalformedResponse(t *testing.T) {
	bodies := []string{
		`not json`,
		`{}`,
		`{"translations":[]}`,
		`{"translations":[{"text":"a"},{"text":"b"}]}`,
	}

	for _, body := range bodies {
		p, _ := newDeepLServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(body))
		})

		_, err := p.Translate(context.Background(), TranslateRequest{Texts: []string{"Hello"}, TargetLang: appshelf.LangES})
		var mismatch *appshelf.CountMismatchError
		if !errors.As(err, &mismatch) {
			t.Errorf("body %q: expected CountMismatchError, got %v", body, err)
		}
	}
}

func TestDeepL_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	p := NewDeepLProvider(DeepLConfig{APIURL: url, KeyFunc: StaticKey("k")})
	_, err := p.Translate(context.Background(), TranslateRequest{Texts: []string{"Hello"}, TargetLang: appshelf.LangES})

	var perr *appshelf.ProviderError
	if !errors.As(err, &perr) {
		t.Fatalf("Expected ProviderError, got %v", err)
	}
	if perr.StatusCode != 0 || !perr.Retryable {
		t.Errorf("Unexpected transport error shape: %+v", perr)
	}
}

func TestDeepL_EmptyInput(t *testing.T) {
	p := NewDeepLProvider(DeepLConfig{})
	out, err := p.Translate(context.Background(), TranslateRequest{TargetLang: appshelf.LangES})
	if err != nil || len(out) != 0 {
		t.Errorf("Expected empty result, got %v, %v", out, err)
	}
}

func TestDeepL_TranslatorFallback(t *testing.T) {
	p, _ := newDeepLServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	tr := appshelf.NewTranslator(p)

	res := tr.Translate(context.Background(), "Free to play", appshelf.LangES, "")
	if res.Text != "Free to play" || !res.UsedFallback {
		t.Errorf("Expected fallback to original, got %+v", res)
	}
}
