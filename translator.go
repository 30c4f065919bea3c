package appshelf

import (
	"context"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"
)

// Translator wraps a translation backend with caching and fail-open fallback.
type Translator struct {
	provider          Provider
	cache             TranslationCache
	sourceLang        Language
	context           string
	excludedTerms     []string
	processors        map[string]ContentProcessor
	logger            logrus.FieldLogger
	recorder          Recorder
	parallelThreshold int
}

// Provider is the interface for translation backends.
type Provider interface {
	Translate(ctx context.Context, req TranslateRequest) ([]string, error)
}

// TranslateRequest contains the parameters for a translation request.
type TranslateRequest struct {
	Texts         []string
	TargetLang    Language
	SourceLang    Language // Empty lets the backend detect the source
	Context       string
	TextContexts  []string
	ExcludedTerms []string
}

// TranslationCache is the interface for translation caching.
type TranslationCache interface {
	Get(key string) (string, bool)
	Set(key string, value string) error
}

// ContentProcessor is the interface for content processing.
type ContentProcessor interface {
	Extract(content string) (interface{}, []TextNode, error)
	Apply(parsed interface{}, nodes []TextNode, translations map[string]string) (string, error)
	ContentType() string
}

// Recorder receives translation events, typically for metrics.
type Recorder interface {
	CacheLookup(target Language, hit bool)
	ProviderCall(mode string, texts int)
	Fallback(reason string)
}

type nopRecorder struct{}

func (nopRecorder) CacheLookup(Language, bool) {}
func (nopRecorder) ProviderCall(string, int)   {}
func (nopRecorder) Fallback(string)            {}

// TranslatorOption is a functional option for configuring the Translator.
type TranslatorOption func(*Translator)

// WithSourceLang sets the default source language. Empty means auto-detect.
func WithSourceLang(lang Language) TranslatorOption {
	return func(t *Translator) {
		t.sourceLang = lang
	}
}

// WithCache sets the translation cache.
func WithCache(cache TranslationCache) TranslatorOption {
	return func(t *Translator) {
		t.cache = cache
	}
}

// WithContext sets a global context passed to the backend with every request.
func WithContext(ctx string) TranslatorOption {
	return func(t *Translator) {
		t.context = ctx
	}
}

// WithExcludedTerms sets terms that should not be translated, such as app names.
func WithExcludedTerms(terms []string) TranslatorOption {
	return func(t *Translator) {
		t.excludedTerms = terms
	}
}

// WithProcessor registers a content processor.
func WithProcessor(processor ContentProcessor) TranslatorOption {
	return func(t *Translator) {
		t.processors[processor.ContentType()] = processor
	}
}

// WithLogger sets the logger used for fallback reporting.
func WithLogger(logger logrus.FieldLogger) TranslatorOption {
	return func(t *Translator) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// WithRecorder sets the event recorder.
func WithRecorder(r Recorder) TranslatorOption {
	return func(t *Translator) {
		if r != nil {
			t.recorder = r
		}
	}
}

// WithParallelLookup enables concurrent cache lookups for bulk batches of at
// least n entries. Useful with network-backed caches.
func WithParallelLookup(n int) TranslatorOption {
	return func(t *Translator) {
		t.parallelThreshold = n
	}
}

// NewTranslator creates a new Translator backed by the given provider.
func NewTranslator(provider Provider, opts ...TranslatorOption) *Translator {
	silent := logrus.New()
	silent.SetOutput(io.Discard)

	t := &Translator{
		provider:   provider,
		processors: make(map[string]ContentProcessor),
		logger:     silent,
		recorder:   nopRecorder{},
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// Translate translates a single string into target. It never fails: on any
// error the original text is returned with UsedFallback set.
func (t *Translator) Translate(ctx context.Context, text string, target, source Language) Result {
	return t.translateOne(ctx, text, "", target, source)
}

func (t *Translator) translateOne(ctx context.Context, text, textContext string, target, source Language) Result {
	if strings.TrimSpace(text) == "" {
		return Result{Text: text}
	}

	key := CacheKey(text, target)
	if cached, ok := t.cacheGet(key, target); ok {
		return Result{Text: cached, Cached: true}
	}

	var contexts []string
	if textContext != "" {
		contexts = []string{textContext}
	}

	translated, err := t.callProvider(ctx, "single", []string{text}, contexts, target, source)
	if err != nil {
		t.reportFallback(err, target, 1)
		return Result{Text: text, UsedFallback: true, Err: err}
	}

	t.cacheSet(key, translated[0])
	return Result{Text: translated[0]}
}

// TranslateBulk translates texts into target. The result has one entry per
// input, in input order. Empty entries pass through unchanged.
//
// Up to BulkThreshold non-empty texts are translated one by one; larger
// batches are sent to the backend as one request containing every distinct
// text that missed the cache.
func (t *Translator) TranslateBulk(ctx context.Context, texts []string, target, source Language) []Result {
	return t.translateBulk(ctx, texts, nil, target, source)
}

func (t *Translator) translateBulk(ctx context.Context, texts, contexts []string, target, source Language) []Result {
	results := make([]Result, len(texts))

	var pending []int
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			results[i] = Result{Text: text}
			continue
		}
		pending = append(pending, i)
	}

	if len(pending) == 0 {
		return results
	}

	if len(pending) <= BulkThreshold {
		for _, i := range pending {
			results[i] = t.translateOne(ctx, texts[i], contextAt(contexts, i), target, source)
		}
		return results
	}

	keys := make([]string, len(pending))
	for n, i := range pending {
		keys[n] = CacheKey(texts[i], target)
	}
	hits := t.lookupCache(keys, target)

	// slot maps each uncached input position to its entry in misses.
	type slot struct{ pos, miss int }
	var (
		misses      []string
		missCtx     []string
		assignments []slot
	)
	seen := make(map[string]int)

	for n, i := range pending {
		if cached, ok := hits[keys[n]]; ok {
			results[i] = Result{Text: cached, Cached: true}
			continue
		}
		m, ok := seen[texts[i]]
		if !ok {
			m = len(misses)
			seen[texts[i]] = m
			misses = append(misses, texts[i])
			missCtx = append(missCtx, contextAt(contexts, i))
		}
		assignments = append(assignments, slot{pos: i, miss: m})
	}

	if len(misses) == 0 {
		return results
	}

	if contexts == nil {
		missCtx = nil
	}

	translated, err := t.callProvider(ctx, "bulk", misses, missCtx, target, source)
	if err != nil {
		t.reportFallback(err, target, len(misses))
		for _, a := range assignments {
			results[a.pos] = Result{Text: texts[a.pos], UsedFallback: true, Err: err}
		}
		return results
	}

	for m, text := range misses {
		t.cacheSet(CacheKey(text, target), translated[m])
	}
	for _, a := range assignments {
		results[a.pos] = Result{Text: translated[a.miss]}
	}

	return results
}

// TranslateHTML translates the text nodes of an HTML document or fragment.
// Only parse and serialization failures are returned as errors; nodes whose
// translation fails keep their original text.
func (t *Translator) TranslateHTML(ctx context.Context, content string, target Language) (*ProcessedContent, error) {
	processor, ok := t.processors["html"]
	if !ok {
		return nil, &ProcessorError{
			Message:     "no processor registered for content type",
			ContentType: "html",
		}
	}

	parsed, nodes, err := processor.Extract(content)
	if err != nil {
		return nil, err
	}

	if len(nodes) == 0 {
		return &ProcessedContent{Content: content}, nil
	}

	texts := make([]string, len(nodes))
	contexts := make([]string, len(nodes))
	for i, node := range nodes {
		texts[i] = node.Text
		contexts[i] = node.Context
	}

	results := t.translateBulk(ctx, texts, contexts, target, "")

	out := &ProcessedContent{TotalNodes: len(nodes)}
	translations := make(map[string]string, len(nodes))
	for i, res := range results {
		switch {
		case res.UsedFallback:
			out.FallbackCount++
			continue
		case res.Cached:
			out.CachedCount++
		default:
			out.TranslatedCount++
		}
		translations[nodes[i].Hash] = res.Text
	}

	rendered, err := processor.Apply(parsed, nodes, translations)
	if err != nil {
		return nil, err
	}

	if strings.Contains(strings.ToLower(content), "<html") {
		rendered = setHTMLLang(rendered, target)
	}

	out.Content = rendered
	return out, nil
}

// callProvider sends texts to the backend and validates the response shape.
func (t *Translator) callProvider(ctx context.Context, mode string, texts, contexts []string, target, source Language) ([]string, error) {
	if t.provider == nil {
		return nil, &TranslationError{Message: "no translation provider configured"}
	}

	if source == "" {
		source = t.sourceLang
	}

	t.recorder.ProviderCall(mode, len(texts))

	results, err := t.provider.Translate(ctx, TranslateRequest{
		Texts:         texts,
		TargetLang:    target,
		SourceLang:    source,
		Context:       t.context,
		TextContexts:  contexts,
		ExcludedTerms: t.excludedTerms,
	})
	if err != nil {
		return nil, err
	}

	if len(results) != len(texts) {
		return nil, &CountMismatchError{Expected: len(texts), Got: len(results)}
	}

	return results, nil
}

func (t *Translator) cacheGet(key string, target Language) (string, bool) {
	if t.cache == nil {
		return "", false
	}
	value, ok := t.cache.Get(key)
	t.recorder.CacheLookup(target, ok)
	return value, ok
}

func (t *Translator) cacheSet(key, value string) {
	if t.cache == nil {
		return
	}
	if err := t.cache.Set(key, value); err != nil {
		t.logger.WithFields(logrus.Fields{
			"action": "cache_set",
			"key":    key,
		}).WithError(err).Warn("translation not cached")
	}
}

func (t *Translator) reportFallback(err error, target Language, texts int) {
	reason := fallbackReason(err)
	t.recorder.Fallback(reason)

	entry := t.logger.WithFields(logrus.Fields{
		"action":      "translate",
		"target_lang": string(target),
		"texts":       texts,
		"reason":      reason,
	})
	if reason == "missing_credential" {
		entry.Warn("translation credential missing, returning original text")
		return
	}
	entry.WithError(err).Error("translation failed, returning original text")
}

func contextAt(contexts []string, i int) string {
	if i < len(contexts) {
		return contexts[i]
	}
	return ""
}

// setHTMLLang sets the lang attribute on the <html> tag.
func setHTMLLang(html string, target Language) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return html
	}

	htmlTag := doc.Find("html")
	if htmlTag.Length() == 0 {
		return html
	}
	htmlTag.SetAttr("lang", ToHTMLLang(target))

	result, err := doc.Html()
	if err != nil {
		return html
	}
	return result
}

// SourceLang returns the default source language.
func (t *Translator) SourceLang() Language {
	return t.sourceLang
}

// Cache returns the configured cache, or nil.
func (t *Translator) Cache() TranslationCache {
	return t.cache
}
