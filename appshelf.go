// Package appshelf is the edge layer of the appshelf app-catalog storefront.
//
// The root package holds the translation engine: a Translator that wraps a
// paid text-translation backend with a cache, deduplicates identical source
// strings, and falls back to the original text whenever translation is not
// possible. Callers never receive an error from Translate; the Result reports
// whether the text was translated, served from cache, or passed through.
//
// Basic usage:
//
//	import (
//	    "context"
//	    "github.com/ZaguanLabs/appshelf"
//	    "github.com/ZaguanLabs/appshelf/cache"
//	    "github.com/ZaguanLabs/appshelf/provider"
//	)
//
//	func main() {
//	    p := provider.NewDeepLProvider(provider.DeepLConfig{
//	        KeyFunc: func() string { return os.Getenv("DEEPL_API_KEY") },
//	    })
//
//	    t := appshelf.NewTranslator(p,
//	        appshelf.WithCache(cache.NewInMemoryCache()),
//	    )
//
//	    res := t.Translate(context.Background(), "Free to play", appshelf.LangES, "")
//	    fmt.Println(res.Text, res.UsedFallback)
//	}
//
// The Edge Proxy that forwards /api requests to the upstream backend lives in
// internal/edgeproxy and is served by cmd/appshelf.
package appshelf
