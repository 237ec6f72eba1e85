package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type appRecord struct {
	ClientID     string   `json:"client_id"`
	RedirectURIs []string `json:"redirect_uris"`
}

func TestMemoryCache_GetSet(t *testing.T) {
	cache := NewMemoryCache[appRecord]()
	ctx := context.Background()

	want := appRecord{ClientID: "spa", RedirectURIs: []string{"https://a/cb"}}
	if err := cache.Set(ctx, "app:spa", want, time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, err := cache.Get(ctx, "app:spa")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.ClientID != want.ClientID || len(got.RedirectURIs) != 1 {
		t.Errorf("Expected %+v, got %+v", want, got)
	}
}

func TestMemoryCache_GetMiss(t *testing.T) {
	cache := NewMemoryCache[int64]()

	_, err := cache.Get(context.Background(), "non-existent")
	if !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Expected ErrCacheMiss, got %v", err)
	}
}

func TestMemoryCache_Expiration(t *testing.T) {
	cache := NewMemoryCache[int64]()
	ctx := context.Background()

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }

	if err := cache.Set(ctx, "expire-key", 100, 30*time.Second); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if _, err := cache.Get(ctx, "expire-key"); err != nil {
		t.Fatalf("Get failed before expiration: %v", err)
	}

	now = now.Add(30 * time.Second)
	if _, err := cache.Get(ctx, "expire-key"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Expected ErrCacheMiss at the TTL boundary, got %v", err)
	}

	// A later write sweeps the expired entry.
	_ = cache.Set(ctx, "other", 1, time.Minute)
	if n := cache.Len(); n != 1 {
		t.Errorf("Expected 1 entry after sweep, got %d", n)
	}
}

func TestMemoryCache_DeleteAndClose(t *testing.T) {
	cache := NewMemoryCache[int64]()
	ctx := context.Background()

	_ = cache.Set(ctx, "a", 1, time.Minute)
	_ = cache.Set(ctx, "b", 2, time.Minute)

	if err := cache.Delete(ctx, "a"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := cache.Get(ctx, "a"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Expected ErrCacheMiss after delete, got %v", err)
	}

	if err := cache.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if _, err := cache.Get(ctx, "b"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Expected ErrCacheMiss after close, got %v", err)
	}
	if err := cache.Health(ctx); err != nil {
		t.Errorf("Health failed: %v", err)
	}
}

func TestMemoryCache_GetWithFetch_CacheMiss(t *testing.T) {
	cache := NewMemoryCache[int64]()
	ctx := context.Background()

	calls := 0
	fetch := func(ctx context.Context, key string) (int64, error) {
		calls++
		return 7, nil
	}

	for range 3 {
		value, err := cache.GetWithFetch(ctx, "k", time.Minute, fetch)
		if err != nil {
			t.Fatalf("GetWithFetch failed: %v", err)
		}
		if value != 7 {
			t.Errorf("Expected 7, got %d", value)
		}
	}
	if calls != 1 {
		t.Errorf("Expected fetch to run once, ran %d times", calls)
	}
}

func TestMemoryCache_GetWithFetch_FetchError(t *testing.T) {
	cache := NewMemoryCache[int64]()
	ctx := context.Background()
	notFound := errors.New("record not found")

	_, err := cache.GetWithFetch(ctx, "k", time.Minute, func(context.Context, string) (int64, error) {
		return 0, notFound
	})
	if !errors.Is(err, notFound) {
		t.Fatalf("Expected fetch error to pass through, got %v", err)
	}
	if _, err := cache.Get(ctx, "k"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Errors must not be cached, got %v", err)
	}
}

func TestMemoryCache_GetWithFetch_Concurrent(t *testing.T) {
	cache := NewMemoryCache[int64]()
	ctx := context.Background()

	var calls atomic.Int32
	release := make(chan struct{})
	fetch := func(ctx context.Context, key string) (int64, error) {
		calls.Add(1)
		<-release
		return 42, nil
	}

	const workers = 20
	var wg sync.WaitGroup
	results := make(chan int64, workers)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			value, err := cache.GetWithFetch(ctx, "hot", time.Minute, fetch)
			if err != nil {
				t.Errorf("GetWithFetch failed: %v", err)
				return
			}
			results <- value
		}()
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	close(results)

	for value := range results {
		if value != 42 {
			t.Errorf("Expected 42, got %d", value)
		}
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("Expected a single fetch for concurrent misses, got %d", n)
	}
}

func TestCodec(t *testing.T) {
	raw, err := encode(appRecord{ClientID: "spa"})
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	got, err := decode[appRecord](raw)
	if err != nil || got.ClientID != "spa" {
		t.Fatalf("decode returned %+v, %v", got, err)
	}
	if _, err := decode[appRecord]("{not json"); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("Expected ErrInvalidValue, got %v", err)
	}
}
