package storage

import (
	"context"
	"sync"
)

// CachingFetcher wraps a SheetFetcher and memoises downloads by URL.
// Batch re-runs against the same scanner upload bucket then hit the
// network once per sheet.
type CachingFetcher struct {
	inner      SheetFetcher
	mu         sync.Mutex
	entries    map[string][]byte
	order      []string
	maxEntries int
}

// NewCachingFetcher creates a caching decorator around inner. maxEntries
// bounds memory use; values below 1 fall back to 64.
func NewCachingFetcher(inner SheetFetcher, maxEntries int) *CachingFetcher {
	if maxEntries < 1 {
		maxEntries = 64
	}
	return &CachingFetcher{
		inner:      inner,
		entries:    make(map[string][]byte),
		maxEntries: maxEntries,
	}
}

// FetchSheet returns cached bytes when the URL was fetched before,
// otherwise delegates to the wrapped fetcher. Failed fetches are never
// cached.
func (c *CachingFetcher) FetchSheet(ctx context.Context, url string) ([]byte, error) {
	c.mu.Lock()
	if data, ok := c.entries[url]; ok {
		c.mu.Unlock()
		return data, nil
	}
	c.mu.Unlock()

	data, err := c.inner.FetchSheet(ctx, url)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[url]; !ok {
		if len(c.order) >= c.maxEntries {
			oldest := c.order[0]
			c.order = c.order[1:]
			delete(c.entries, oldest)
		}
		c.entries[url] = data
		c.order = append(c.order, url)
	}
	return data, nil
}

// Len reports how many URLs are currently cached.
func (c *CachingFetcher) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Invalidate drops one URL from the cache.
func (c *CachingFetcher) Invalidate(url string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[url]; !ok {
		return
	}
	delete(c.entries, url)
	for i, u := range c.order {
		if u == url {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}
