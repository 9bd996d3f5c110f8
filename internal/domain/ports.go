package domain

import "context"

// ProviderClient is the outbound port to the PeakStay booking API.
type ProviderClient interface {
	// Search runs the ordered strategy fallback and returns a normalized
	// result, or a *SearchError.
	Search(ctx context.Context, p SearchParams) (*SearchResult, error)
	// FetchReferenceData fetches all five reference collections. Any single
	// collection failure fails the whole call.
	FetchReferenceData(ctx context.Context) (*ReferenceDataset, error)
}

// DurableCache is the durable key-value tier shared across processes.
type DurableCache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}

// LocationResolver ranks reference entities against a free-text query.
type LocationResolver interface {
	Resolve(ctx context.Context, query string) ([]LocationMatch, error)
}
