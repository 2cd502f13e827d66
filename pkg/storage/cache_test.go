package storage

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

type countingFetcher struct {
	calls map[string]int
	fail  bool
}

func (f *countingFetcher) FetchSheet(ctx context.Context, url string) ([]byte, error) {
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[url]++
	if f.fail {
		return nil, errors.New("fetch failed")
	}
	return []byte("bytes for " + url), nil
}

func TestCachingFetcherMemoises(t *testing.T) {
	inner := &countingFetcher{}
	cache := NewCachingFetcher(inner, 8)
	ctx := context.Background()

	first, err := cache.FetchSheet(ctx, "http://scans/sheet-1.png")
	if err != nil {
		t.Fatalf("First fetch failed: %v", err)
	}
	second, err := cache.FetchSheet(ctx, "http://scans/sheet-1.png")
	if err != nil {
		t.Fatalf("Second fetch failed: %v", err)
	}

	if inner.calls["http://scans/sheet-1.png"] != 1 {
		t.Errorf("Expected 1 upstream call, got %d", inner.calls["http://scans/sheet-1.png"])
	}
	if string(first) != string(second) {
		t.Error("Expected cached bytes to match the original fetch")
	}
}

func TestCachingFetcherDistinctURLs(t *testing.T) {
	inner := &countingFetcher{}
	cache := NewCachingFetcher(inner, 8)
	ctx := context.Background()

	if _, err := cache.FetchSheet(ctx, "http://scans/a.png"); err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if _, err := cache.FetchSheet(ctx, "http://scans/b.png"); err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	if cache.Len() != 2 {
		t.Errorf("Expected 2 cached entries, got %d", cache.Len())
	}
}

func TestCachingFetcherDoesNotCacheFailures(t *testing.T) {
	inner := &countingFetcher{fail: true}
	cache := NewCachingFetcher(inner, 8)
	ctx := context.Background()

	if _, err := cache.FetchSheet(ctx, "http://scans/bad.png"); err == nil {
		t.Fatal("Expected fetch error")
	}
	if cache.Len() != 0 {
		t.Errorf("Expected failed fetch to stay uncached, got %d entries", cache.Len())
	}

	inner.fail = false
	if _, err := cache.FetchSheet(ctx, "http://scans/bad.png"); err != nil {
		t.Fatalf("Expected retry to succeed, got %v", err)
	}
	if inner.calls["http://scans/bad.png"] != 2 {
		t.Errorf("Expected 2 upstream calls, got %d", inner.calls["http://scans/bad.png"])
	}
}

func TestCachingFetcherEvictsOldest(t *testing.T) {
	inner := &countingFetcher{}
	cache := NewCachingFetcher(inner, 2)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		url := fmt.Sprintf("http://scans/sheet-%d.png", i)
		if _, err := cache.FetchSheet(ctx, url); err != nil {
			t.Fatalf("Fetch %d failed: %v", i, err)
		}
	}

	if cache.Len() != 2 {
		t.Fatalf("Expected cache capped at 2 entries, got %d", cache.Len())
	}

	// The first URL was evicted, so fetching it again goes upstream.
	if _, err := cache.FetchSheet(ctx, "http://scans/sheet-1.png"); err != nil {
		t.Fatalf("Refetch failed: %v", err)
	}
	if inner.calls["http://scans/sheet-1.png"] != 2 {
		t.Errorf("Expected evicted URL to be refetched, got %d calls", inner.calls["http://scans/sheet-1.png"])
	}
}

func TestCachingFetcherInvalidate(t *testing.T) {
	inner := &countingFetcher{}
	cache := NewCachingFetcher(inner, 8)
	ctx := context.Background()

	if _, err := cache.FetchSheet(ctx, "http://scans/x.png"); err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	cache.Invalidate("http://scans/x.png")
	if cache.Len() != 0 {
		t.Errorf("Expected empty cache after invalidate, got %d entries", cache.Len())
	}

	if _, err := cache.FetchSheet(ctx, "http://scans/x.png"); err != nil {
		t.Fatalf("Refetch failed: %v", err)
	}
	if inner.calls["http://scans/x.png"] != 2 {
		t.Errorf("Expected 2 upstream calls after invalidate, got %d", inner.calls["http://scans/x.png"])
	}
}
