package appshelf

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// HashText computes the SHA-256 hash of the trimmed text.
func HashText(text string) string {
	trimmed := strings.TrimSpace(text)
	hash := sha256.Sum256([]byte(trimmed))
	return hex.EncodeToString(hash[:])
}

// KeyPrefix returns the first KeyPrefixLength characters of text.
// Texts sharing that prefix share a cache entry.
func KeyPrefix(text string) string {
	if len(text) <= KeyPrefixLength {
		return text
	}
	n := 0
	for i := range text {
		if n == KeyPrefixLength {
			return text[:i]
		}
		n++
	}
	return text
}

// CacheKey generates the cache key for a source text and target language.
func CacheKey(text string, target Language) string {
	hash := sha256.Sum256([]byte(KeyPrefix(text)))
	return hex.EncodeToString(hash[:]) + ":" + string(target)
}
