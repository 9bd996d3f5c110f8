package peakstay

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"peakstay_mcp/internal/adapters/observability"
	"peakstay_mcp/internal/domain"
)

// refEntity tolerates both the flat single-name shape and the localized
// names-map shape the provider uses across collections.
type refEntity struct {
	ID          int64             `json:"id"`
	Name        string            `json:"name"`
	Names       map[string]string `json:"names"`
	CountryCode string            `json:"countryCode"`
	Code        string            `json:"code"`
	Lat         *float64          `json:"latitude"`
	Lon         *float64          `json:"longitude"`
	RegionID    int64             `json:"regionId"`
}

func (r refEntity) toDomain() domain.Entity {
	e := domain.Entity{
		ID:          r.ID,
		Names:       r.Names,
		CountryCode: r.CountryCode,
		RegionID:    r.RegionID,
	}
	if e.CountryCode == "" {
		e.CountryCode = r.Code
	}
	if len(e.Names) == 0 && r.Name != "" {
		e.Names = map[string]string{"en": r.Name}
	}
	if r.Lat != nil && r.Lon != nil {
		e.Coords = &domain.Coords{Lat: *r.Lat, Lon: *r.Lon}
	}
	return e
}

// FetchReferenceData pulls all five reference collections concurrently.
// The dataset is all-or-nothing: any single collection failure fails the
// whole call and no partial snapshot escapes.
func (c *Client) FetchReferenceData(ctx context.Context) (*domain.ReferenceDataset, error) {
	ds := &domain.ReferenceDataset{}
	targets := []struct {
		path string
		dst  *[]domain.Entity
	}{
		{"countries", &ds.Countries},
		{"regions", &ds.Regions},
		{"cities", &ds.Cities},
		{"resorts", &ds.Resorts},
		{"skiareas", &ds.SkiAreas},
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, t := range targets {
		t := t
		g.Go(func() error {
			raw, err := c.fetchCollection(gctx, t.path)
			if err != nil {
				return fmt.Errorf("fetch %s: %w", t.path, err)
			}
			out := make([]domain.Entity, 0, len(raw))
			for _, r := range raw {
				out = append(out, r.toDomain())
			}
			*t.dst = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		c.log.Warn().Err(err).Msg("reference data refresh failed")
		return nil, domain.NewError(domain.ErrReferenceData,
			"location reference data is currently unavailable; please try again later")
	}

	ds.FetchedAt = time.Now()
	c.log.Info().
		Int("countries", len(ds.Countries)).
		Int("regions", len(ds.Regions)).
		Int("cities", len(ds.Cities)).
		Int("resorts", len(ds.Resorts)).
		Int("ski_areas", len(ds.SkiAreas)).
		Msg("reference data refreshed")
	return ds, nil
}

func (c *Client) fetchCollection(ctx context.Context, path string) ([]refEntity, error) {
	if err := c.rl.Wait(ctx); err != nil {
		return nil, err
	}

	cctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	u := fmt.Sprintf("%s/reference/%s?apiKey=%s", c.base, path, c.key)
	req, err := http.NewRequestWithContext(cctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "peakstay-mcp/1.0")
	req.Header.Set("X-API-Key", c.key)

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		observability.ObserveProvider("reference/"+path, 0, time.Since(start))
		return nil, err
	}
	defer resp.Body.Close()
	observability.ObserveProvider("reference/"+path, resp.StatusCode, time.Since(start))

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		c.log.Warn().Int("status", resp.StatusCode).Str("path", path).
			Str("body", strings.TrimSpace(string(body))).Msg("reference collection fetch failed")
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	var out []refEntity
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return out, nil
}
