package appshelf

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

// mockProvider is a simple mock for testing
type mockProvider struct {
	translations map[string]string
	err          error
	short        bool // return one result fewer than requested
	callCount    int
	lastTexts    []string
	requests     []TranslateRequest
}

func newMockProvider() *mockProvider {
	return &mockProvider{
		translations: map[string]string{
			"Hello":        "Hola",
			"World":        "Mundo",
			"Hello World":  "Hola Mundo",
			"Free to play": "Gratis para jugar",
			"Top charts":   "Listas principales",
		},
	}
}

func (m *mockProvider) Translate(ctx context.Context, req TranslateRequest) ([]string, error) {
	m.callCount++
	m.lastTexts = req.Texts
	m.requests = append(m.requests, req)

	if m.err != nil {
		return nil, m.err
	}

	results := make([]string, len(req.Texts))
	for i, text := range req.Texts {
		if translation, ok := m.translations[text]; ok {
			results[i] = translation
		} else {
			results[i] = "[" + text + "]"
		}
	}
	if m.short && len(results) > 0 {
		results = results[:len(results)-1]
	}
	return results, nil
}

// mockCache is a simple mock cache for testing
type mockCache struct {
	data map[string]string
	gets int
	sets int
}

func newMockCache() *mockCache {
	return &mockCache{data: make(map[string]string)}
}

func (c *mockCache) Get(key string) (string, bool) {
	c.gets++
	val, ok := c.data[key]
	return val, ok
}

func (c *mockCache) Set(key string, value string) error {
	c.sets++
	c.data[key] = value
	return nil
}

// mockRecorder counts events
type mockRecorder struct {
	hits, misses int
	calls        map[string]int
	fallbacks    map[string]int
}

func newMockRecorder() *mockRecorder {
	return &mockRecorder{calls: map[string]int{}, fallbacks: map[string]int{}}
}

func (r *mockRecorder) CacheLookup(_ Language, hit bool) {
	if hit {
		r.hits++
	} else {
		r.misses++
	}
}

func (r *mockRecorder) ProviderCall(mode string, _ int) { r.calls[mode]++ }
func (r *mockRecorder) Fallback(reason string)          { r.fallbacks[reason]++ }

func TestTranslator_BasicTranslation(t *testing.T) {
	provider := newMockProvider()
	translator := NewTranslator(provider)

	res := translator.Translate(context.Background(), "Hello", LangES, "")

	if res.Text != "Hola" {
		t.Errorf("expected 'Hola', got %q", res.Text)
	}
	if res.UsedFallback || res.Cached {
		t.Errorf("unexpected flags: %+v", res)
	}
	if provider.lastTexts[0] != "Hello" {
		t.Errorf("provider received %v", provider.lastTexts)
	}
}

func TestTranslator_CacheHit(t *testing.T) {
	provider := newMockProvider()
	cache := newMockCache()
	translator := NewTranslator(provider, WithCache(cache))

	first := translator.Translate(context.Background(), "Hello World", LangES, "")
	second := translator.Translate(context.Background(), "Hello World", LangES, "")

	if first.Text != second.Text {
		t.Errorf("second call returned %q, first %q", second.Text, first.Text)
	}
	if first.Cached {
		t.Error("first call should not be cached")
	}
	if !second.Cached {
		t.Error("second call should be cached")
	}
	if provider.callCount != 1 {
		t.Errorf("expected 1 provider call, got %d", provider.callCount)
	}
}

func TestTranslator_CachePerTargetLanguage(t *testing.T) {
	provider := newMockProvider()
	translator := NewTranslator(provider, WithCache(newMockCache()))

	translator.Translate(context.Background(), "Hello", LangES, "")
	translator.Translate(context.Background(), "Hello", LangDE, "")

	if provider.callCount != 2 {
		t.Errorf("expected a call per target language, got %d", provider.callCount)
	}
}

func TestTranslator_EmptyInput(t *testing.T) {
	for _, input := range []string{"", "   ", "\n\t"} {
		provider := newMockProvider()
		cache := newMockCache()
		translator := NewTranslator(provider, WithCache(cache))

		res := translator.Translate(context.Background(), input, LangES, "")

		if res.Text != input {
			t.Errorf("Translate(%q) = %q, want unchanged", input, res.Text)
		}
		if res.UsedFallback {
			t.Errorf("Translate(%q) should not report a fallback", input)
		}
		if cache.gets != 0 || cache.sets != 0 {
			t.Errorf("Translate(%q) touched the cache", input)
		}
		if provider.callCount != 0 {
			t.Errorf("Translate(%q) called the provider", input)
		}
	}
}

func TestTranslator_MissingCredential(t *testing.T) {
	provider := newMockProvider()
	provider.err = ErrMissingCredential
	cache := newMockCache()
	rec := newMockRecorder()
	translator := NewTranslator(provider, WithCache(cache), WithRecorder(rec))

	res := translator.Translate(context.Background(), "Hello", LangES, "")

	if res.Text != "Hello" {
		t.Errorf("expected original text, got %q", res.Text)
	}
	if !res.UsedFallback {
		t.Error("expected UsedFallback")
	}
	if !errors.Is(res.Err, ErrMissingCredential) {
		t.Errorf("expected ErrMissingCredential, got %v", res.Err)
	}
	if cache.sets != 0 {
		t.Error("fallback results must not be cached")
	}
	if rec.fallbacks["missing_credential"] != 1 {
		t.Errorf("expected missing_credential fallback, got %v", rec.fallbacks)
	}
}

func TestTranslator_ProviderFailure(t *testing.T) {
	provider := newMockProvider()
	provider.err = &ProviderError{Message: "unexpected response", StatusCode: 503}
	translator := NewTranslator(provider)

	res := translator.Translate(context.Background(), "Hello", LangES, "")

	if res.Text != "Hello" || !res.UsedFallback {
		t.Errorf("expected fallback to original, got %+v", res)
	}

	// A later success is not blocked by the earlier failure.
	provider.err = nil
	res = translator.Translate(context.Background(), "Hello", LangES, "")
	if res.Text != "Hola" {
		t.Errorf("expected recovery, got %q", res.Text)
	}
}

func TestTranslator_MalformedResponse(t *testing.T) {
	provider := newMockProvider()
	provider.short = true
	translator := NewTranslator(provider)

	res := translator.Translate(context.Background(), "Hello", LangES, "")

	if res.Text != "Hello" || !res.UsedFallback {
		t.Errorf("expected fallback, got %+v", res)
	}
	var countErr *CountMismatchError
	if !errors.As(res.Err, &countErr) {
		t.Errorf("expected CountMismatchError, got %v", res.Err)
	}
}

func TestTranslator_NoProvider(t *testing.T) {
	translator := NewTranslator(nil)

	res := translator.Translate(context.Background(), "Hello", LangES, "")
	if res.Text != "Hello" || !res.UsedFallback {
		t.Errorf("expected fallback without provider, got %+v", res)
	}
}

func TestTranslator_SourceLang(t *testing.T) {
	provider := newMockProvider()
	translator := NewTranslator(provider, WithSourceLang(LangEN))

	translator.Translate(context.Background(), "Hello", LangES, "")
	if provider.requests[0].SourceLang != LangEN {
		t.Errorf("expected default source EN, got %q", provider.requests[0].SourceLang)
	}

	translator.Translate(context.Background(), "World", LangES, LangDE)
	if provider.requests[1].SourceLang != LangDE {
		t.Errorf("expected explicit source DE, got %q", provider.requests[1].SourceLang)
	}
}

func TestTranslator_ContextAndExcludedTerms(t *testing.T) {
	provider := newMockProvider()
	translator := NewTranslator(provider,
		WithContext("Mobile app store listing"),
		WithExcludedTerms([]string{"PhotoMagic"}),
	)

	translator.Translate(context.Background(), "Hello", LangES, "")

	req := provider.requests[0]
	if req.Context != "Mobile app store listing" {
		t.Errorf("context not forwarded: %q", req.Context)
	}
	if len(req.ExcludedTerms) != 1 || req.ExcludedTerms[0] != "PhotoMagic" {
		t.Errorf("excluded terms not forwarded: %v", req.ExcludedTerms)
	}
}

func TestTranslator_LogsFallback(t *testing.T) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)
	logger.SetFormatter(&logrus.JSONFormatter{})

	provider := newMockProvider()
	provider.err = ErrMissingCredential
	translator := NewTranslator(provider, WithLogger(logger))

	translator.Translate(context.Background(), "Hello", LangES, "")

	out := buf.String()
	if !strings.Contains(out, `"reason":"missing_credential"`) {
		t.Errorf("expected reason in log, got: %s", out)
	}
	if !strings.Contains(out, `"level":"warning"`) {
		t.Errorf("expected warning level, got: %s", out)
	}
}

func TestTranslateBulk_SmallBatchPerItem(t *testing.T) {
	provider := newMockProvider()
	rec := newMockRecorder()
	translator := NewTranslator(provider, WithCache(newMockCache()), WithRecorder(rec))

	texts := []string{"Hello", "World", "Free to play", "Top charts", "Hello World"}
	results := translator.TranslateBulk(context.Background(), texts, LangES, "")

	if provider.callCount != 5 {
		t.Errorf("expected 5 per-item calls, got %d", provider.callCount)
	}
	if rec.calls["single"] != 5 || rec.calls["bulk"] != 0 {
		t.Errorf("unexpected call modes: %v", rec.calls)
	}

	want := []string{"Hola", "Mundo", "Gratis para jugar", "Listas principales", "Hola Mundo"}
	for i, w := range want {
		if results[i].Text != w {
			t.Errorf("results[%d] = %q, want %q", i, results[i].Text, w)
		}
	}
}

func TestTranslateBulk_LargeBatchSingleCall(t *testing.T) {
	provider := newMockProvider()
	rec := newMockRecorder()
	cache := newMockCache()
	translator := NewTranslator(provider, WithCache(cache), WithRecorder(rec))

	texts := []string{"a", "b", "c", "d", "e", "f", "g"}
	results := translator.TranslateBulk(context.Background(), texts, LangES, "")

	if provider.callCount != 1 {
		t.Errorf("expected exactly 1 bulk call, got %d", provider.callCount)
	}
	if rec.calls["bulk"] != 1 {
		t.Errorf("expected bulk mode, got %v", rec.calls)
	}
	for i, text := range texts {
		if results[i].Text != "["+text+"]" {
			t.Errorf("results[%d] = %q", i, results[i].Text)
		}
	}

	// Every pair is cached, so per-item lookups now hit.
	res := translator.Translate(context.Background(), "d", LangES, "")
	if !res.Cached || res.Text != "[d]" {
		t.Errorf("expected cached '[d]', got %+v", res)
	}
	if provider.callCount != 1 {
		t.Errorf("cached lookup should not call the provider")
	}
}

func TestTranslateBulk_PreservesEmptyPositions(t *testing.T) {
	provider := newMockProvider()
	translator := NewTranslator(provider)

	texts := []string{"", "a", "  ", "b", "c", "", "d", "e", "f"}
	results := translator.TranslateBulk(context.Background(), texts, LangES, "")

	if len(results) != len(texts) {
		t.Fatalf("expected %d results, got %d", len(texts), len(results))
	}
	for _, i := range []int{0, 2, 5} {
		if results[i].Text != texts[i] || results[i].UsedFallback {
			t.Errorf("results[%d] = %+v, want passthrough %q", i, results[i], texts[i])
		}
	}
	if results[1].Text != "[a]" || results[8].Text != "[f]" {
		t.Errorf("unexpected translations: %v", Texts(results))
	}
	if provider.callCount != 1 {
		t.Errorf("6 non-empty texts should use one bulk call, got %d", provider.callCount)
	}
}

func TestTranslateBulk_EmptyPositionsSmallBatch(t *testing.T) {
	provider := newMockProvider()
	translator := NewTranslator(provider)

	texts := []string{"", "Hello", ""}
	got := Texts(translator.TranslateBulk(context.Background(), texts, LangES, ""))

	want := []string{"", "Hola", ""}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestTranslateBulk_Duplicates(t *testing.T) {
	provider := newMockProvider()
	translator := NewTranslator(provider)

	texts := []string{"Hello", "World", "Hello", "x", "World", "y", "Hello"}
	results := translator.TranslateBulk(context.Background(), texts, LangES, "")

	want := []string{"Hola", "Mundo", "Hola", "[x]", "Mundo", "[y]", "Hola"}
	for i, w := range want {
		if results[i].Text != w {
			t.Errorf("results[%d] = %q, want %q", i, results[i].Text, w)
		}
	}

	if len(provider.lastTexts) != 4 {
		t.Errorf("expected 4 distinct texts sent, got %v", provider.lastTexts)
	}
}

func TestTranslateBulk_FailureReturnsOriginals(t *testing.T) {
	provider := newMockProvider()
	provider.err = &ProviderError{Message: "boom", StatusCode: 500}
	translator := NewTranslator(provider)

	texts := []string{"a", "b", "", "c", "d", "e", "f"}
	results := translator.TranslateBulk(context.Background(), texts, LangES, "")

	for i, text := range texts {
		if results[i].Text != text {
			t.Errorf("results[%d] = %q, want original %q", i, results[i].Text, text)
		}
	}
	if !AnyFallback(results) {
		t.Error("expected a fallback to be reported")
	}
	if results[2].UsedFallback {
		t.Error("empty entry should not be marked as fallback")
	}
}

func TestTranslateBulk_CachedEntriesSurviveFailure(t *testing.T) {
	provider := newMockProvider()
	cache := newMockCache()
	cache.data[CacheKey("a", LangES)] = "A!"
	provider.err = errors.New("network down")
	translator := NewTranslator(provider, WithCache(cache))

	results := translator.TranslateBulk(context.Background(), []string{"a", "b", "c", "d", "e", "f"}, LangES, "")

	if results[0].Text != "A!" || !results[0].Cached || results[0].UsedFallback {
		t.Errorf("cached entry should be served, got %+v", results[0])
	}
	if results[1].Text != "b" || !results[1].UsedFallback {
		t.Errorf("uncached entry should fall back, got %+v", results[1])
	}
}

func TestTranslateBulk_AllEmpty(t *testing.T) {
	provider := newMockProvider()
	translator := NewTranslator(provider)

	results := translator.TranslateBulk(context.Background(), []string{"", " "}, LangES, "")
	if len(results) != 2 || provider.callCount != 0 {
		t.Errorf("expected passthrough without calls, got %v (%d calls)", results, provider.callCount)
	}
}

func TestTranslateHTML_NoProcessor(t *testing.T) {
	translator := NewTranslator(newMockProvider())

	_, err := translator.TranslateHTML(context.Background(), "<p>Hello</p>", LangES)
	var procErr *ProcessorError
	if !errors.As(err, &procErr) {
		t.Errorf("expected ProcessorError, got %v", err)
	}
}
