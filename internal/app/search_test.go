package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"peakstay_mcp/internal/app"
	"peakstay_mcp/internal/cache"
	"peakstay_mcp/internal/domain"
	"peakstay_mcp/internal/ratelimit"
	"peakstay_mcp/internal/shared"
)

// ---- fakes ----

type fakeProvider struct {
	mu       sync.Mutex
	searches int
	res      *domain.SearchResult
	err      error
}

func (f *fakeProvider) Search(ctx context.Context, p domain.SearchParams) (*domain.SearchResult, error) {
	f.mu.Lock()
	f.searches++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	res := *f.res
	return &res, nil
}

func (f *fakeProvider) FetchReferenceData(ctx context.Context) (*domain.ReferenceDataset, error) {
	return &domain.ReferenceDataset{FetchedAt: time.Now()}, nil
}

type fakeResolver struct {
	matches []domain.LocationMatch
	err     error
}

func (f *fakeResolver) Resolve(ctx context.Context, q string) ([]domain.LocationMatch, error) {
	return f.matches, f.err
}

type memDurable struct{ store map[string]cache.Envelope }

func (m *memDurable) Get(ctx context.Context, key string, dst any) (bool, error) {
	e, ok := m.store[key]
	if !ok {
		return false, nil
	}
	*dst.(*cache.Envelope) = e
	return true, nil
}
func (m *memDurable) Set(ctx context.Context, key string, v any, ttlSec int) error {
	m.store[key] = v.(cache.Envelope)
	return nil
}
func (m *memDurable) Del(ctx context.Context, key string) error { delete(m.store, key); return nil }

// ---- wiring ----

func testConfig() shared.Config {
	cfg := shared.Load()
	cfg.RateMax = 100
	cfg.RateWindow = time.Minute
	return cfg
}

func newService(p *fakeProvider, r *fakeResolver, cfg shared.Config) *app.SearchService {
	mgr := cache.NewManager(&memDurable{store: map[string]cache.Envelope{}}, 50, time.Hour, zerolog.Nop())
	lim := ratelimit.New(cfg.RateMax, cfg.RateWindow)
	return app.NewSearchService(p, mgr, lim, r, cfg, zerolog.Nop())
}

func validParams() domain.SearchParams {
	arrival := time.Now().UTC().AddDate(0, 0, 30)
	return domain.SearchParams{
		Location:  "Zermatt",
		Arrival:   arrival.Format("2006-01-02"),
		Departure: arrival.AddDate(0, 0, 7).Format("2006-01-02"),
		Ages:      []int{30, 28},
	}
}

func okResult() *domain.SearchResult {
	return &domain.SearchResult{
		Summary:        domain.SearchSummary{Strategy: "resort", TotalFound: 1},
		Accommodations: []domain.FormattedAccommodation{{Name: "Chalet Eira"}},
	}
}

// ---- tests ----

func TestSearch_CacheMissThenHit(t *testing.T) {
	p := &fakeProvider{res: okResult()}
	svc := newService(p, &fakeResolver{}, testConfig())
	ctx := context.Background()

	first, err := svc.Search(ctx, "client", validParams())
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if first.Summary.TotalFound != 1 {
		t.Fatalf("unexpected result: %+v", first)
	}

	// change what the provider would return; the second call must not see it
	p.res = &domain.SearchResult{Summary: domain.SearchSummary{TotalFound: 99}}

	second, err := svc.Search(ctx, "client", validParams())
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if second.Summary.TotalFound != 1 {
		t.Fatal("expected cached payload on second call")
	}
	if p.searches != 1 {
		t.Fatalf("provider called %d times, want 1", p.searches)
	}
}

func TestSearch_SemanticallyEqualRequestsShareCacheEntry(t *testing.T) {
	p := &fakeProvider{res: okResult()}
	svc := newService(p, &fakeResolver{}, testConfig())
	ctx := context.Background()

	if _, err := svc.Search(ctx, "client", validParams()); err != nil {
		t.Fatalf("err: %v", err)
	}

	variant := validParams()
	variant.Location = "  ZERMATT "
	variant.Currency = "eur"
	if _, err := svc.Search(ctx, "client", variant); err != nil {
		t.Fatalf("err: %v", err)
	}

	if p.searches != 1 {
		t.Fatalf("provider called %d times; casing/whitespace variants must share a key", p.searches)
	}
}

func TestSearch_ErrorsAreNotCached(t *testing.T) {
	p := &fakeProvider{err: domain.NewError(domain.ErrUpstreamUnavailable, "down")}
	svc := newService(p, &fakeResolver{}, testConfig())
	ctx := context.Background()

	if _, err := svc.Search(ctx, "client", validParams()); err == nil {
		t.Fatal("expected error")
	}

	// upstream recovers; the next call must reach it and succeed
	p.err = nil
	p.res = okResult()
	res, err := svc.Search(ctx, "client", validParams())
	if err != nil || res.Summary.TotalFound != 1 {
		t.Fatalf("transient failure did not self-heal: res=%+v err=%v", res, err)
	}
	if p.searches != 2 {
		t.Fatalf("provider called %d times, want 2", p.searches)
	}
}

func TestSearch_RateLimited(t *testing.T) {
	cfg := testConfig()
	cfg.RateMax = 2
	p := &fakeProvider{res: okResult()}
	svc := newService(p, &fakeResolver{}, cfg)
	ctx := context.Background()

	// cache hits still consume budget: the limiter runs first
	for i := 0; i < 2; i++ {
		if _, err := svc.Search(ctx, "greedy", validParams()); err != nil {
			t.Fatalf("call %d: %v", i+1, err)
		}
	}

	_, err := svc.Search(ctx, "greedy", validParams())
	var serr *domain.SearchError
	if !errors.As(err, &serr) || serr.Code != domain.ErrRateLimited {
		t.Fatalf("expected rate-limit error, got %v", err)
	}
	if len(serr.Suggestions) == 0 || serr.Timestamp == "" {
		t.Fatalf("rate-limit payload incomplete: %+v", serr)
	}

	// an unrelated client is unaffected
	if _, err := svc.Search(ctx, "other", validParams()); err != nil {
		t.Fatalf("other client: %v", err)
	}
}

func TestSearch_SelectorValidation(t *testing.T) {
	p := &fakeProvider{res: okResult()}
	svc := newService(p, &fakeResolver{}, testConfig())
	ctx := context.Background()

	none := validParams()
	none.Location = ""
	_, err := svc.Search(ctx, "c", none)
	var serr *domain.SearchError
	if !errors.As(err, &serr) || serr.Code != domain.ErrValidation {
		t.Fatalf("missing selector should fail validation, got %v", err)
	}

	both := validParams()
	both.ResortID = 7
	_, err = svc.Search(ctx, "c", both)
	if !errors.As(err, &serr) || serr.Code != domain.ErrValidation {
		t.Fatalf("ambiguous selectors should fail validation, got %v", err)
	}
	if p.searches != 0 {
		t.Fatalf("provider must not be called on validation failure (%d calls)", p.searches)
	}
}

func TestSearch_PersonsDefaultToAdultAges(t *testing.T) {
	p := &fakeProvider{res: okResult()}
	svc := newService(p, &fakeResolver{}, testConfig())

	params := validParams()
	params.Ages = nil
	params.Persons = 3
	if _, err := svc.Search(context.Background(), "c", params); err != nil {
		t.Fatalf("err: %v", err)
	}

	params.Persons = 0
	_, err := svc.Search(context.Background(), "c", params)
	var serr *domain.SearchError
	if !errors.As(err, &serr) || serr.Code != domain.ErrValidation {
		t.Fatalf("no ages and no persons should fail validation, got %v", err)
	}
}

func TestResolveLocation(t *testing.T) {
	r := &fakeResolver{matches: []domain.LocationMatch{{Type: domain.TypeResort, ID: 30, Name: "Livigno", Confidence: 0.95}}}
	svc := newService(&fakeProvider{res: okResult()}, r, testConfig())

	matches, err := svc.ResolveLocation(context.Background(), "c", "Livigno")
	if err != nil || len(matches) != 1 {
		t.Fatalf("matches=%v err=%v", matches, err)
	}

	_, err = svc.ResolveLocation(context.Background(), "c", "")
	var serr *domain.SearchError
	if !errors.As(err, &serr) || serr.Code != domain.ErrValidation {
		t.Fatalf("empty query should fail validation, got %v", err)
	}
}
