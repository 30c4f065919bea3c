package appshelf

import "sync"

// lookupCache resolves keys against the cache and returns the hits.
// Batches at or above the parallel threshold are looked up concurrently.
func (t *Translator) lookupCache(keys []string, target Language) map[string]string {
	hits := make(map[string]string)
	if t.cache == nil || len(keys) == 0 {
		return hits
	}

	if t.parallelThreshold <= 0 || len(keys) < t.parallelThreshold {
		for _, key := range keys {
			if _, done := hits[key]; done {
				continue
			}
			if value, ok := t.cacheGet(key, target); ok {
				hits[key] = value
			}
		}
		return hits
	}

	return ParallelCacheLookup(t.cache, keys, func(hit bool) {
		t.recorder.CacheLookup(target, hit)
	})
}

// ParallelCacheLookup performs cache lookups in parallel using goroutines.
// Duplicate keys are looked up once. observe, if non-nil, is called once per
// distinct key from the collecting goroutine.
func ParallelCacheLookup(cache TranslationCache, keys []string, observe func(hit bool)) map[string]string {
	type lookupResult struct {
		key   string
		value string
		found bool
	}

	unique := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		unique[key] = struct{}{}
	}

	results := make(chan lookupResult, len(unique))
	var wg sync.WaitGroup

	for key := range unique {
		wg.Add(1)
		go func(k string) {
			defer wg.Done()
			val, ok := cache.Get(k)
			results <- lookupResult{key: k, value: val, found: ok}
		}(key)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	hits := make(map[string]string)
	for result := range results {
		if observe != nil {
			observe(result.found)
		}
		if result.found {
			hits[result.key] = result.value
		}
	}

	return hits
}
