package openlibrary

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestMemoryCacheExpiry(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	cache := NewMemoryCache(time.Minute)
	cache.now = func() time.Time { return now }
	ctx := context.Background()

	cache.Set(ctx, "k", []byte("v"))
	if got, ok := cache.Get(ctx, "k"); !ok || string(got) != "v" {
		t.Fatalf("Get = (%q, %v), want (v, true)", got, ok)
	}

	now = now.Add(time.Minute)
	if _, ok := cache.Get(ctx, "k"); ok {
		t.Fatal("expected entry to expire after ttl")
	}
}

func TestMemoryCacheCopiesValue(t *testing.T) {
	cache := NewMemoryCache(time.Hour)
	ctx := context.Background()
	value := []byte("abc")
	cache.Set(ctx, "k", value)
	value[0] = 'z'
	got, _ := cache.Get(ctx, "k")
	if string(got) != "abc" {
		t.Fatalf("cached value mutated: %q", got)
	}
}

func TestCacheKeyStable(t *testing.T) {
	a := cacheKey("https://openlibrary.org/isbn/9780306406157.json")
	b := cacheKey("https://openlibrary.org/isbn/9780306406157.json")
	c := cacheKey("https://openlibrary.org/isbn/0306406152.json")
	if a != b || a == c {
		t.Fatalf("unexpected keys: %s %s %s", a, b, c)
	}
	if !strings.HasPrefix(a, cacheKeyPrefix) {
		t.Fatalf("key %q missing prefix", a)
	}
}
