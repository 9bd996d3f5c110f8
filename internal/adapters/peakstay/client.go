// Package peakstay talks to the PeakStay booking API. Search runs the
// ordered strategy fallback (resort, city, region) and normalizes raw
// provider records into the output accommodation schema.
package peakstay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"peakstay_mcp/internal/adapters/observability"
	"peakstay_mcp/internal/domain"
)

const maxFutureArrival = 2 * 365 * 24 * time.Hour

// strategies is the fixed fallback order for free-text locations. Resorts
// and cities carry denser inventory than regions, so the narrower
// interpretation goes first.
var strategies = []string{"resort", "city", "region"}

type Client struct {
	base    string
	hc      *http.Client
	key     string
	rl      *rate.Limiter
	timeout time.Duration
	log     zerolog.Logger
}

func New(base, key string, timeout time.Duration, rps int, log zerolog.Logger) (*Client, error) {
	if key == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if rps <= 0 {
		rps = 5
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		base:    strings.TrimRight(base, "/"),
		hc:      &http.Client{Timeout: timeout + time.Second},
		key:     key,
		rl:      rate.NewLimiter(rate.Limit(rps), rps),
		timeout: timeout,
		log:     log,
	}, nil
}

type searchResponse struct {
	Accommodations []map[string]any `json:"accommodations"`
}

// Search validates the parameters, then issues one provider query per
// strategy until a response carries at least one accommodation. Classified
// upstream errors abort only their own strategy attempt.
func (c *Client) Search(ctx context.Context, p domain.SearchParams) (*domain.SearchResult, error) {
	nights, serr := validateDates(&p)
	if serr != nil {
		return nil, serr
	}

	// Structured selectors need no fallback: exactly one query.
	if sel := directSelector(p); sel != nil {
		resp, serr := c.query(ctx, p, sel)
		if serr != nil {
			return nil, serr
		}
		if len(resp.Accommodations) == 0 {
			return nil, notFound(p)
		}
		return c.assemble(p, "direct", nights, resp.Accommodations), nil
	}

	var lastErr *domain.SearchError
	answered := false
	for _, strat := range strategies {
		resp, serr := c.query(ctx, p, url.Values{strat: []string{p.Location}})
		if serr != nil {
			// One slow or broken strategy must not abort the rest.
			lastErr = serr
			c.log.Debug().Str("strategy", strat).Str("code", string(serr.Code)).Msg("strategy attempt failed")
			continue
		}
		answered = true
		if len(resp.Accommodations) == 0 {
			c.log.Debug().Str("strategy", strat).Msg("strategy returned no inventory")
			continue
		}
		return c.assemble(p, strat, nights, resp.Accommodations), nil
	}

	if !answered && lastErr != nil {
		// Every attempt errored out; the classified failure is more
		// actionable than a generic not-found.
		return nil, lastErr
	}
	return nil, notFound(p)
}

func (c *Client) assemble(p domain.SearchParams, strategy string, nights int, raw []map[string]any) *domain.SearchResult {
	accs := normalizeAccommodations(raw, p.Limit, strings.ToUpper(p.Currency), nights)
	return &domain.SearchResult{
		Summary: domain.SearchSummary{
			Location:   p.Location,
			Arrival:    p.Arrival,
			Departure:  p.Departure,
			Nights:     nights,
			Currency:   strings.ToUpper(p.Currency),
			Strategy:   strategy,
			TotalFound: len(accs),
		},
		Accommodations: accs,
	}
}

// query issues one GET against the accommodation search endpoint with a
// bounded timeout and classifies every failure mode. Raw provider error
// bodies are logged, never returned.
func (c *Client) query(ctx context.Context, p domain.SearchParams, selector url.Values) (*searchResponse, *domain.SearchError) {
	if err := c.rl.Wait(ctx); err != nil {
		return nil, domain.NewError(domain.ErrUpstreamTimeout, "search was cancelled before the provider could be reached")
	}

	q := url.Values{}
	q.Set("arrival", p.Arrival)
	q.Set("departure", p.Departure)
	q.Set("personsAges", joinInts(p.Ages))
	q.Set("currency", strings.ToUpper(p.Currency))
	q.Set("lang", p.Lang)
	q.Set("apiKey", c.key)
	for k, vs := range selector {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	if p.Page > 1 {
		q.Set("page", strconv.Itoa(p.Page))
	}
	endpoint := c.base + "/accommodations/search"

	cctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(cctx, http.MethodGet, endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, domain.NewError(domain.ErrUpstreamNetwork, "could not build the provider request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "peakstay-mcp/1.0")
	req.Header.Set("X-API-Key", c.key)

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		observability.ObserveProvider("search", 0, time.Since(start))
		if errors.Is(err, context.DeadlineExceeded) || cctx.Err() == context.DeadlineExceeded {
			return nil, domain.NewError(domain.ErrUpstreamTimeout,
				"the booking provider took too long to answer; please try again")
		}
		return nil, domain.NewError(domain.ErrUpstreamNetwork,
			"could not reach the booking provider; please try again later")
	}
	defer resp.Body.Close()
	observability.ObserveProvider("search", resp.StatusCode, time.Since(start))

	if resp.StatusCode != http.StatusOK {
		return nil, c.classify(resp)
	}

	var out searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		c.log.Warn().Err(err).Msg("provider returned a malformed search response")
		return nil, domain.NewError(domain.ErrUpstreamUnavailable,
			"the booking provider returned an unreadable response; please try again later")
	}
	return &out, nil
}

// classify maps an HTTP status onto a user-facing error. The response body
// is drained into the log only.
func (c *Client) classify(resp *http.Response) *domain.SearchError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	c.log.Warn().
		Int("status", resp.StatusCode).
		Str("body", strings.TrimSpace(string(body))).
		Msg("provider request failed")

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return domain.NewError(domain.ErrUpstreamAuth,
			"the booking provider rejected our credentials; check the configured API key")
	case resp.StatusCode == http.StatusTooManyRequests:
		msg := "the booking provider is rate limiting us; please retry shortly"
		if wait := retryAfter(resp); wait > 0 {
			msg = fmt.Sprintf("the booking provider is rate limiting us; retry in about %d seconds", int(wait.Seconds()))
		}
		return domain.NewError(domain.ErrUpstreamUnavailable, msg)
	case resp.StatusCode >= 500:
		return domain.NewError(domain.ErrUpstreamUnavailable,
			"the booking provider is temporarily unavailable; please try again later")
	default:
		return domain.NewError(domain.ErrUpstreamUnavailable,
			fmt.Sprintf("unexpected provider response (status %d)", resp.StatusCode))
	}
}

func notFound(p domain.SearchParams) *domain.SearchError {
	what := p.Location
	if what == "" {
		what = "the requested criteria"
	}
	return domain.NewError(domain.ErrNotFound,
		fmt.Sprintf("no accommodations found for %q between %s and %s", what, p.Arrival, p.Departure),
		"try the name of a nearby resort or city",
		"check the spelling of the location",
		"broaden the dates or the search area",
	)
}

// validateDates runs the fail-fast pre-validation and fills Departure from
// Nights when only a night count was given. Returns the stay length.
func validateDates(p *domain.SearchParams) (int, *domain.SearchError) {
	arrival, err := time.Parse("2006-01-02", p.Arrival)
	if err != nil {
		return 0, domain.NewValidationError(domain.ReasonInvalidDateFormat,
			fmt.Sprintf("arrival date %q is not a valid YYYY-MM-DD date", p.Arrival))
	}

	if p.Departure == "" && p.Nights > 0 {
		p.Departure = arrival.AddDate(0, 0, p.Nights).Format("2006-01-02")
	}
	departure, err := time.Parse("2006-01-02", p.Departure)
	if err != nil {
		return 0, domain.NewValidationError(domain.ReasonInvalidDateFormat,
			fmt.Sprintf("departure date %q is not a valid YYYY-MM-DD date", p.Departure))
	}

	if !departure.After(arrival) {
		return 0, domain.NewValidationError(domain.ReasonDateOrder,
			"departure date must be after the arrival date")
	}

	today := time.Now().UTC().Truncate(24 * time.Hour)
	if arrival.Before(today) {
		return 0, domain.NewValidationError(domain.ReasonPastDate,
			"arrival date is in the past")
	}
	if arrival.After(today.Add(maxFutureArrival)) {
		return 0, domain.NewValidationError(domain.ReasonDateRange,
			"arrival date is more than two years ahead; bookings open at most two years out")
	}

	return int(departure.Sub(arrival).Hours() / 24), nil
}

// directSelector returns provider query params for id/geo based searches,
// or nil when the free-text strategy fallback applies.
func directSelector(p domain.SearchParams) url.Values {
	switch {
	case len(p.AccommodationIDs) > 0:
		ids := make([]string, len(p.AccommodationIDs))
		for i, id := range p.AccommodationIDs {
			ids[i] = strconv.FormatInt(id, 10)
		}
		return url.Values{"accommodationIds": []string{strings.Join(ids, ",")}}
	case p.ResortID > 0:
		return url.Values{"resortId": []string{strconv.FormatInt(p.ResortID, 10)}}
	case p.CityID > 0:
		return url.Values{"cityId": []string{strconv.FormatInt(p.CityID, 10)}}
	case p.Geo != nil:
		return url.Values{
			"lat":    []string{strconv.FormatFloat(p.Geo.Lat, 'f', 6, 64)},
			"lon":    []string{strconv.FormatFloat(p.Geo.Lon, 'f', 6, 64)},
			"radius": []string{strconv.FormatFloat(p.Geo.RadiusKm, 'f', 1, 64)},
		}
	default:
		return nil
	}
}

func joinInts(xs []int) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = strconv.Itoa(x)
	}
	return strings.Join(parts, ",")
}

// retryAfter parses Retry-After (seconds or HTTP-date). Returns 0 if
// absent or invalid.
func retryAfter(resp *http.Response) time.Duration {
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}
