// Package app wires the request pipeline: rate limiter, cache manager and
// upstream client behind the tool operations.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"peakstay_mcp/internal/cache"
	"peakstay_mcp/internal/domain"
	"peakstay_mcp/internal/ratelimit"
	"peakstay_mcp/internal/shared"
)

type SearchService struct {
	provider domain.ProviderClient
	cache    *cache.Manager
	limiter  *ratelimit.Limiter
	resolver domain.LocationResolver
	cfg      shared.Config
	log      zerolog.Logger
}

func NewSearchService(
	provider domain.ProviderClient,
	c *cache.Manager,
	l *ratelimit.Limiter,
	r domain.LocationResolver,
	cfg shared.Config,
	log zerolog.Logger,
) *SearchService {
	return &SearchService{provider: provider, cache: c, limiter: l, resolver: r, cfg: cfg, log: log}
}

// Search runs the full pipeline for one tool call: admission, cache lookup,
// upstream search, cache fill. Errors are returned as *domain.SearchError
// and are never cached, so transient upstream failures self-heal on the
// next call.
func (s *SearchService) Search(ctx context.Context, clientID string, p domain.SearchParams) (*domain.SearchResult, error) {
	if s.limiter.IsLimited(clientID) {
		return nil, s.rateLimitError(clientID)
	}
	if serr := s.applyDefaults(&p); serr != nil {
		return nil, serr
	}
	if serr := validateSelector(p); serr != nil {
		return nil, serr
	}

	key := cache.BuildKey(p)
	if res, ok := s.cache.Get(ctx, key); ok {
		s.log.Debug().Str("key", key).Msg("search served from cache")
		return res, nil
	}

	res, err := s.provider.Search(ctx, p)
	if err != nil {
		return nil, err
	}

	s.cache.Put(ctx, key, res)
	s.log.Info().
		Str("location", p.Location).
		Str("strategy", res.Summary.Strategy).
		Int("found", res.Summary.TotalFound).
		Msg("search completed")
	return res, nil
}

// ResolveLocation ranks reference entities for a free-text query. It shares
// the client's rate budget with Search.
func (s *SearchService) ResolveLocation(ctx context.Context, clientID, query string) ([]domain.LocationMatch, error) {
	if s.limiter.IsLimited(clientID) {
		return nil, s.rateLimitError(clientID)
	}
	if query == "" {
		return nil, domain.NewValidationError(domain.ReasonParameter, "query must not be empty")
	}
	return s.resolver.Resolve(ctx, query)
}

// CleanupRateLimiter evicts stale per-client windows. Invoked by the owner
// of the process lifecycle, not by a timer inside the pipeline.
func (s *SearchService) CleanupRateLimiter() int {
	return s.limiter.Cleanup()
}

func (s *SearchService) rateLimitError(clientID string) *domain.SearchError {
	reset := s.limiter.ResetAt(clientID)
	return domain.NewError(domain.ErrRateLimited,
		fmt.Sprintf("rate limit exceeded; the window resets at %s", reset.UTC().Format(time.RFC3339)),
		"wait for the window to reset before retrying")
}

// applyDefaults fills currency, language, result limit and occupant ages.
func (s *SearchService) applyDefaults(p *domain.SearchParams) *domain.SearchError {
	if p.Currency == "" {
		p.Currency = s.cfg.DefaultCurrency
	}
	if p.Lang == "" {
		p.Lang = s.cfg.DefaultLang
	}
	if p.Limit == 0 {
		p.Limit = s.cfg.DefaultResults
	}
	if p.Limit < s.cfg.MinResults {
		p.Limit = s.cfg.MinResults
	}
	if p.Limit > s.cfg.MaxResults {
		p.Limit = s.cfg.MaxResults
	}
	if p.Page < 1 {
		p.Page = 1
	}

	if len(p.Ages) == 0 {
		if p.Persons <= 0 {
			return domain.NewValidationError(domain.ReasonParameter,
				"either occupant ages or a person count is required")
		}
		// person count without ages: assume adults
		p.Ages = make([]int, p.Persons)
		for i := range p.Ages {
			p.Ages[i] = 18
		}
	}
	for _, a := range p.Ages {
		if a < 0 || a > 120 {
			return domain.NewValidationError(domain.ReasonParameter,
				fmt.Sprintf("occupant age %d is out of range", a))
		}
	}
	return nil
}

// validateSelector enforces that exactly one location selector is present.
func validateSelector(p domain.SearchParams) *domain.SearchError {
	n := 0
	if p.Location != "" {
		n++
	}
	if len(p.AccommodationIDs) > 0 {
		n++
	}
	if p.ResortID > 0 {
		n++
	}
	if p.CityID > 0 {
		n++
	}
	if p.Geo != nil {
		n++
	}
	switch n {
	case 0:
		return domain.NewValidationError(domain.ReasonParameter,
			"a location is required: free-text location, accommodation ids, resort id, city id or geolocation")
	case 1:
		return nil
	default:
		return domain.NewValidationError(domain.ReasonParameter,
			"location selectors are mutually exclusive; provide exactly one")
	}
}
