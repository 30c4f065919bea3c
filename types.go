package appshelf

// BulkThreshold is the largest batch TranslateBulk handles item by item.
// Larger batches go to the provider as a single bulk request.
const BulkThreshold = 5

// KeyPrefixLength is the number of characters of source text used for cache keys.
const KeyPrefixLength = 100

// Result is the outcome of translating one string.
type Result struct {
	Text         string // Translated text, or the original on fallback
	UsedFallback bool   // True when Text is the original because translation failed
	Cached       bool   // True when Text came from the cache
	Err          error  // Cause of the fallback, if any
}

// Texts flattens results into their text values, preserving order.
func Texts(results []Result) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Text
	}
	return out
}

// AnyFallback reports whether any result passed its original text through.
func AnyFallback(results []Result) bool {
	for _, r := range results {
		if r.UsedFallback {
			return true
		}
	}
	return false
}

// TextNode represents a translatable unit of HTML content.
type TextNode struct {
	ID       string            // Position-based identifier
	Text     string            // Original text content (trimmed)
	Hash     string            // SHA-256 hash of Text
	NodeType string            // Content type, "html_text"
	Context  string            // Disambiguation context for the provider
	Metadata map[string]string // Additional info (parent tag, etc.)
}

// ProcessedContent is the result of translating an HTML fragment.
type ProcessedContent struct {
	Content         string // Translated content
	TranslatedCount int    // Number of newly translated nodes
	CachedCount     int    // Number of cache hits
	FallbackCount   int    // Number of nodes left untranslated after a failure
	TotalNodes      int    // Total translatable nodes found
}

// IgnoredTags contains HTML tags whose content should not be translated.
var IgnoredTags = map[string]bool{
	"script":   true,
	"style":    true,
	"code":     true,
	"pre":      true,
	"textarea": true,
	"noscript": true,
}
