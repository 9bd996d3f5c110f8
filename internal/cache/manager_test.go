package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"peakstay_mcp/internal/cache"
	"peakstay_mcp/internal/domain"
)

// fakeDurable mimics the Redis tier with an in-memory map; setErr simulates
// a durable-store outage.
type fakeDurable struct {
	store  map[string]cache.Envelope
	setErr error
	gets   int
}

func newFakeDurable() *fakeDurable { return &fakeDurable{store: map[string]cache.Envelope{}} }

func (f *fakeDurable) Get(ctx context.Context, key string, dst any) (bool, error) {
	f.gets++
	e, ok := f.store[key]
	if !ok {
		return false, nil
	}
	*dst.(*cache.Envelope) = e
	return true, nil
}

func (f *fakeDurable) Set(ctx context.Context, key string, v any, ttlSec int) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.store[key] = v.(cache.Envelope)
	return nil
}

func (f *fakeDurable) Del(ctx context.Context, key string) error {
	delete(f.store, key)
	return nil
}

func result(total int) *domain.SearchResult {
	return &domain.SearchResult{Summary: domain.SearchSummary{TotalFound: total}}
}

func params(loc, cur string) domain.SearchParams {
	return domain.SearchParams{
		Location: loc, Arrival: "2026-02-01", Departure: "2026-02-08",
		Ages: []int{30, 28}, Currency: cur, Lang: "en", Limit: 5, Page: 1,
	}
}

func TestBuildKey_NormalizationIdempotence(t *testing.T) {
	a := cache.BuildKey(params("  Zermatt ", "eur"))
	b := cache.BuildKey(params("zermatt", "EUR"))
	if a != b {
		t.Fatalf("keys differ:\n%s\n%s", a, b)
	}

	c := cache.BuildKey(params("zermatt", "CHF"))
	if a == c {
		t.Fatal("different currency must produce a different key")
	}
}

func TestManager_PutGet_TwoTier(t *testing.T) {
	d := newFakeDurable()
	m := cache.NewManager(d, 10, time.Hour, zerolog.Nop())
	ctx := context.Background()

	key := cache.BuildKey(params("zermatt", "EUR"))
	if _, ok := m.Get(ctx, key); ok {
		t.Fatal("expected miss on empty cache")
	}

	m.Put(ctx, key, result(2))

	got, ok := m.Get(ctx, key)
	if !ok || got.Summary.TotalFound != 2 {
		t.Fatalf("expected local hit with total 2, got ok=%v %+v", ok, got)
	}
	// second read returns the same payload again
	got2, ok := m.Get(ctx, key)
	if !ok || got2.Summary.TotalFound != 2 {
		t.Fatal("repeated get should hit")
	}
}

func TestManager_DurableBackfill(t *testing.T) {
	d := newFakeDurable()
	ctx := context.Background()

	// seed the durable tier only, as another process would have
	d.store["k"] = cache.Envelope{Result: *result(7), CreatedAt: time.Now(), TTLSec: 3600}

	m := cache.NewManager(d, 10, time.Hour, zerolog.Nop())
	got, ok := m.Get(ctx, "k")
	if !ok || got.Summary.TotalFound != 7 {
		t.Fatalf("expected durable hit, got ok=%v", ok)
	}

	// backfilled: the next get must not touch the durable store
	before := d.gets
	if _, ok := m.Get(ctx, "k"); !ok {
		t.Fatal("expected local hit after backfill")
	}
	if d.gets != before {
		t.Fatalf("durable tier consulted after backfill (%d reads)", d.gets-before)
	}
}

func TestManager_LazyExpiry(t *testing.T) {
	d := newFakeDurable()
	ctx := context.Background()

	// physically present in the durable store but past its TTL
	d.store["k"] = cache.Envelope{Result: *result(1), CreatedAt: time.Now().Add(-2 * time.Hour), TTLSec: 3600}

	m := cache.NewManager(d, 10, time.Hour, zerolog.Nop())
	if _, ok := m.Get(ctx, "k"); ok {
		t.Fatal("expired durable entry must be treated as absent")
	}
}

func TestManager_DurableWriteFailureIsSwallowed(t *testing.T) {
	d := newFakeDurable()
	d.setErr = context.DeadlineExceeded
	m := cache.NewManager(d, 10, time.Hour, zerolog.Nop())
	ctx := context.Background()

	m.Put(ctx, "k", result(3)) // must not panic or surface the error

	if got, ok := m.Get(ctx, "k"); !ok || got.Summary.TotalFound != 3 {
		t.Fatal("local tier should still serve the entry")
	}
}

func TestManager_EvictsOldestFifthAtCapacity(t *testing.T) {
	d := newFakeDurable()
	m := cache.NewManager(d, 10, time.Hour, zerolog.Nop())
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		m.Put(ctx, cache.BuildKey(params(string(rune('a'+i)), "EUR")), result(i))
		time.Sleep(time.Millisecond) // distinct creation timestamps
	}
	if m.LocalLen() != 10 {
		t.Fatalf("local len = %d, want 10", m.LocalLen())
	}

	// at capacity: the next put evicts the oldest 20% (2 entries) first
	m.Put(ctx, cache.BuildKey(params("k", "EUR")), result(99))
	if got := m.LocalLen(); got != 9 {
		t.Fatalf("local len after eviction = %d, want 9", got)
	}

	// oldest entry is gone from the local tier but still durable
	oldest := cache.BuildKey(params("a", "EUR"))
	if _, ok := m.Get(ctx, oldest); !ok {
		t.Fatal("evicted entry should still be served from the durable tier")
	}
}
