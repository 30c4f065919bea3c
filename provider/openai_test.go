package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ZaguanLabs/appshelf"
)

func TestBuildSystemPrompt(t *testing.T) {
	p := NewOpenAIProvider(OpenAIConfig{KeyFunc: StaticKey("test")})

	req := TranslateRequest{
		TargetLang:    appshelf.LangES,
		SourceLang:    appshelf.LangEN,
		Context:       "Mobile game store page",
		ExcludedTerms: []string{"AppShelf", "SDK"},
	}

	prompt := p.buildSystemPrompt(req)

	if !strings.Contains(prompt, "from English to Spanish") {
		t.Error("Prompt should contain source and target language names")
	}
	if !strings.Contains(prompt, "Mobile game store page") {
		t.Error("Prompt should contain context")
	}
	if !strings.Contains(prompt, "AppShelf") || !strings.Contains(prompt, "SDK") {
		t.Error("Prompt should contain excluded terms")
	}
}

func TestBuildSystemPrompt_DetectSource(t *testing.T) {
	p := NewOpenAIProvider(OpenAIConfig{})

	prompt := p.buildSystemPrompt(TranslateRequest{TargetLang: appshelf.LangNB})

	if !strings.Contains(prompt, "detect it") {
		t.Error("Prompt should ask for source detection when no source is set")
	}
	if !strings.Contains(prompt, "Bokmål") {
		t.Error("Prompt should name the target language")
	}
	if strings.Contains(prompt, "# Exclusions") {
		t.Error("Prompt should not contain an exclusions section without terms")
	}
}

func TestBuildUserMessage_SimpleArray(t *testing.T) {
	p := NewOpenAIProvider(OpenAIConfig{})

	msg := p.buildUserMessage(TranslateRequest{Texts: []string{"Hello", "World"}})

	if msg != `["Hello","World"]` {
		t.Errorf("Expected JSON array, got: %s", msg)
	}
}

func TestBuildUserMessage_WithContexts(t *testing.T) {
	p := NewOpenAIProvider(OpenAIConfig{})

	msg := p.buildUserMessage(TranslateRequest{
		Texts:        []string{"Install", "Open"},
		TextContexts: []string{"in <button>", ""},
	})

	if !strings.Contains(msg, `"text":"Install"`) {
		t.Errorf("Message should contain text field, got: %s", msg)
	}
	if !strings.Contains(msg, `"context":"in \u003cbutton\u003e"`) {
		t.Errorf("Message should contain context field, got: %s", msg)
	}
}

func TestParseResponse(t *testing.T) {
	p := NewOpenAIProvider(OpenAIConfig{})

	tests := []struct {
		name    string
		content string
	}{
		{"translations key", `{"translations": ["Hola", "Mundo"]}`},
		{"direct array", `["Hola", "Mundo"]`},
		{"other array key", `{"results": ["Hola", "Mundo"]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := p.parseResponse(tt.content, 2)
			if err != nil {
				t.Fatalf("parseResponse failed: %v", err)
			}
			if result[0] != "Hola" || result[1] != "Mundo" {
				t.Errorf("Unexpected translations: %v", result)
			}
		})
	}
}

func TestParseResponse_Malformed(t *testing.T) {
	p := NewOpenAIProvider(OpenAIConfig{})

	for _, content := range []string{`{"translations": ["Hola"]}`, `not json`} {
		_, err := p.parseResponse(content, 2)
		var mismatch *appshelf.CountMismatchError
		if !errors.As(err, &mismatch) {
			t.Errorf("%q: expected CountMismatchError, got %v", content, err)
		}
	}
}

func TestOpenAI_MissingKey(t *testing.T) {
	p := NewOpenAIProvider(OpenAIConfig{KeyFunc: StaticKey("")})

	_, err := p.Translate(context.Background(), TranslateRequest{Texts: []string{"Hello"}, TargetLang: appshelf.LangES})
	if !errors.Is(err, appshelf.ErrMissingCredential) {
		t.Errorf("Expected ErrMissingCredential, got %v", err)
	}
}

func TestOpenAI_Translate(t *testing.T) {
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"{\"translations\":[\"Hola\"]}"},"finish_reason":"stop"}]}`)
	}))
	defer srv.Close()

	p := NewOpenAIProvider(OpenAIConfig{KeyFunc: StaticKey("sk-test"), BaseURL: srv.URL})
	out, err := p.Translate(context.Background(), TranslateRequest{Texts: []string{"Hello"}, TargetLang: appshelf.LangES})
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}
	if len(out) != 1 || out[0] != "Hola" {
		t.Errorf("Unexpected translations %v", out)
	}
	if auth != "Bearer sk-test" {
		t.Errorf("Unexpected Authorization header %q", auth)
	}
}

func TestOpenAI_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":{"message":"slow down","type":"rate_limit"}}`)
	}))
	defer srv.Close()

	p := NewOpenAIProvider(OpenAIConfig{KeyFunc: StaticKey("sk-test"), BaseURL: srv.URL})
	_, err := p.Translate(context.Background(), TranslateRequest{Texts: []string{"Hello"}, TargetLang: appshelf.LangES})

	var perr *appshelf.ProviderError
	if !errors.As(err, &perr) {
		t.Fatalf("Expected ProviderError, got %v", err)
	}
	if perr.StatusCode != http.StatusTooManyRequests || !perr.Retryable {
		t.Errorf("Unexpected error shape: %+v", perr)
	}
}

func TestOpenAI_ClientRebuiltOnKeyChange(t *testing.T) {
	p := NewOpenAIProvider(OpenAIConfig{})

	a := p.clientFor("one")
	if p.clientFor("one") != a {
		t.Error("Client should be reused for the same key")
	}
	if p.clientFor("two") == a {
		t.Error("Client should be rebuilt for a new key")
	}
}

func TestMockProvider(t *testing.T) {
	m := NewMockProvider()

	result, err := m.Translate(context.Background(), TranslateRequest{
		Texts:      []string{"Hello", "Unknown text"},
		TargetLang: appshelf.LangES,
	})
	if err != nil {
		t.Fatalf("MockProvider.Translate failed: %v", err)
	}

	if result[0] != "Hola" {
		t.Errorf("Expected 'Hola', got %q", result[0])
	}
	if result[1] != "[ES] Unknown text" {
		t.Errorf("Expected '[ES] Unknown text', got %q", result[1])
	}
	if m.CallCount() != 1 {
		t.Errorf("Expected CallCount 1, got %d", m.CallCount())
	}
	if m.LastRequest().TargetLang != appshelf.LangES {
		t.Error("LastRequest should record the target language")
	}

	m.Reset()
	if m.CallCount() != 0 || m.LastRequest() != nil {
		t.Error("Reset should clear state")
	}
}

func TestMockProvider_Err(t *testing.T) {
	m := NewMockProvider()
	m.Err = appshelf.ErrMissingCredential

	if _, err := m.Translate(context.Background(), TranslateRequest{Texts: []string{"Hello"}}); !errors.Is(err, appshelf.ErrMissingCredential) {
		t.Errorf("Expected configured error, got %v", err)
	}
}
