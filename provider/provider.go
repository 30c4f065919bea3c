// Package provider contains the translation backends used by appshelf.
//
// DeepLProvider speaks the DeepL v2 HTTP API and is the default. OpenAIProvider
// translates through a chat-completion model. MockProvider is deterministic and
// backs tests and dry runs.
package provider

import "github.com/ZaguanLabs/appshelf"

// Provider is an alias to the main package interface for convenience.
type Provider = appshelf.Provider

// TranslateRequest is an alias to the main package type.
type TranslateRequest = appshelf.TranslateRequest

// KeyFunc returns the current API credential. It is called on every request
// so that a rotated or late-configured key takes effect without a restart.
type KeyFunc func() string

// StaticKey returns a KeyFunc that always yields key.
func StaticKey(key string) KeyFunc {
	return func() string { return key }
}

func resolveKey(fn KeyFunc) string {
	if fn == nil {
		return ""
	}
	return fn()
}
