// Package resolve ranks free-text location queries against the provider's
// reference dataset of countries, regions, cities, resorts and ski areas.
package resolve

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"peakstay_mcp/internal/domain"
	"peakstay_mcp/internal/match"
)

type Resolver struct {
	provider   domain.ProviderClient
	ttl        time.Duration
	threshold  float64
	priorities map[domain.EntityType]int
	log        zerolog.Logger

	mu sync.Mutex
	ds *domain.ReferenceDataset
}

func New(provider domain.ProviderClient, ttl time.Duration, threshold float64, priorities map[domain.EntityType]int, log zerolog.Logger) *Resolver {
	return &Resolver{
		provider:   provider,
		ttl:        ttl,
		threshold:  threshold,
		priorities: priorities,
		log:        log,
	}
}

// Resolve returns candidate entities for query, most confident first.
// Entity types with denser accommodation inventory (ski areas, resorts) rank
// above broader administrative units at equal confidence. An empty slice is
// a valid answer, not an error.
func (r *Resolver) Resolve(ctx context.Context, query string) ([]domain.LocationMatch, error) {
	ds, err := r.dataset(ctx)
	if err != nil {
		return nil, err
	}

	matches := []domain.LocationMatch{}
	collections := []struct {
		typ      domain.EntityType
		entities []domain.Entity
	}{
		{domain.TypeCountry, ds.Countries},
		{domain.TypeRegion, ds.Regions},
		{domain.TypeCity, ds.Cities},
		{domain.TypeResort, ds.Resorts},
		{domain.TypeSkiArea, ds.SkiAreas},
	}
	for _, col := range collections {
		for _, e := range col.entities {
			conf, name := scoreEntity(query, e, col.typ)
			if conf <= r.threshold {
				continue
			}
			matches = append(matches, domain.LocationMatch{
				Type:        col.typ,
				ID:          e.ID,
				Name:        name,
				Confidence:  conf,
				CountryCode: e.CountryCode,
				Coords:      e.Coords,
			})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		pi, pj := r.priorities[matches[i].Type], r.priorities[matches[j].Type]
		if pi != pj {
			return pi > pj
		}
		return matches[i].Confidence > matches[j].Confidence
	})
	return matches, nil
}

// scoreEntity takes the best score across all localized name variants (and
// the country code for countries) and returns it with the winning name.
func scoreEntity(query string, e domain.Entity, typ domain.EntityType) (float64, string) {
	best := 0.0
	bestName := ""
	for _, name := range e.Names {
		if s := match.Score(query, name); s > best {
			best = s
			bestName = name
		}
	}
	if typ == domain.TypeCountry && e.CountryCode != "" {
		if s := match.Score(query, e.CountryCode); s > best {
			best = s
			if bestName == "" {
				bestName = e.CountryCode
			}
		}
	}
	if bestName == "" {
		// display name falls back to the English variant
		bestName = e.Names["en"]
	}
	return best, bestName
}

// dataset returns the current snapshot, refreshing it when absent or older
// than the freshness window. The snapshot is replaced wholesale; a failed
// refresh leaves no partial state behind.
func (r *Resolver) dataset(ctx context.Context) (*domain.ReferenceDataset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ds != nil && time.Since(r.ds.FetchedAt) < r.ttl {
		return r.ds, nil
	}

	r.log.Debug().Msg("refreshing reference dataset")
	ds, err := r.provider.FetchReferenceData(ctx)
	if err != nil {
		return nil, err
	}
	r.ds = ds
	return r.ds, nil
}
