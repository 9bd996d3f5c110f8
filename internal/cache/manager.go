// Package cache implements the two-tier search-result cache: a
// capacity-bounded process-local map in front of the durable key-value store.
package cache

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"peakstay_mcp/internal/adapters/observability"
	"peakstay_mcp/internal/domain"
)

// Envelope is what gets persisted per key. CreatedAt and TTLSec let both
// tiers apply the same lazy validity check on read; entries are replaced,
// never mutated.
type Envelope struct {
	Result    domain.SearchResult `json:"result"`
	CreatedAt time.Time           `json:"created_at"`
	TTLSec    int                 `json:"ttl_sec"`
}

func (e Envelope) valid(now time.Time) bool {
	return now.Sub(e.CreatedAt) < time.Duration(e.TTLSec)*time.Second
}

type Manager struct {
	mu       sync.Mutex
	local    map[string]Envelope
	maxLocal int

	durable domain.DurableCache
	ttl     time.Duration
	log     zerolog.Logger
}

func NewManager(durable domain.DurableCache, maxLocal int, ttl time.Duration, log zerolog.Logger) *Manager {
	return &Manager{
		local:    make(map[string]Envelope),
		maxLocal: maxLocal,
		durable:  durable,
		ttl:      ttl,
		log:      log,
	}
}

// BuildKey derives the canonical cache key from the normalized parameter
// tuple. Location is lower-cased and trimmed, currency upper-cased, dates
// kept verbatim, and fields serialized in a fixed order so semantically
// equal requests collide.
func BuildKey(p domain.SearchParams) string {
	ages := make([]string, len(p.Ages))
	for i, a := range p.Ages {
		ages[i] = strconv.Itoa(a)
	}
	ids := make([]string, len(p.AccommodationIDs))
	for i, id := range p.AccommodationIDs {
		ids[i] = strconv.FormatInt(id, 10)
	}
	geo := ""
	if p.Geo != nil {
		geo = fmt.Sprintf("%.4f,%.4f,%.1f", p.Geo.Lat, p.Geo.Lon, p.Geo.RadiusKm)
	}
	return strings.Join([]string{
		"search",
		"loc=" + strings.ToLower(strings.TrimSpace(p.Location)),
		"acc=" + strings.Join(ids, ","),
		"resort=" + strconv.FormatInt(p.ResortID, 10),
		"city=" + strconv.FormatInt(p.CityID, 10),
		"geo=" + geo,
		"arr=" + p.Arrival,
		"dep=" + p.Departure,
		"ages=" + strings.Join(ages, ","),
		"cur=" + strings.ToUpper(p.Currency),
		"lang=" + strings.ToLower(p.Lang),
		"limit=" + strconv.Itoa(p.Limit),
		"page=" + strconv.Itoa(p.Page),
	}, "|")
}

// Get checks the local tier first, then the durable store, backfilling the
// local tier on a durable hit. Expired entries count as absent.
func (m *Manager) Get(ctx context.Context, key string) (*domain.SearchResult, bool) {
	now := time.Now()

	m.mu.Lock()
	if e, ok := m.local[key]; ok {
		if e.valid(now) {
			m.mu.Unlock()
			observability.ObserveCache("local", "hit")
			res := e.Result
			return &res, true
		}
		delete(m.local, key) // lazy expiry
	}
	m.mu.Unlock()
	observability.ObserveCache("local", "miss")

	var e Envelope
	ok, err := m.durable.Get(ctx, key, &e)
	if err != nil {
		m.log.Warn().Err(err).Str("key", key).Msg("durable cache read failed")
		return nil, false
	}
	if !ok || !e.valid(now) {
		return nil, false
	}

	m.mu.Lock()
	m.evictIfFull()
	m.local[key] = e
	m.mu.Unlock()

	res := e.Result
	return &res, true
}

// Put writes to the local tier and best-effort to the durable store. A
// durable write failure is logged, never returned; caching must not fail a
// completed search.
func (m *Manager) Put(ctx context.Context, key string, res *domain.SearchResult) {
	e := Envelope{Result: *res, CreatedAt: time.Now(), TTLSec: int(m.ttl.Seconds())}

	m.mu.Lock()
	m.evictIfFull()
	m.local[key] = e
	m.mu.Unlock()
	observability.ObserveCache("local", "set")

	if err := m.durable.Set(ctx, key, e, e.TTLSec); err != nil {
		observability.ObserveCache("redis", "error")
		m.log.Warn().Err(err).Str("key", key).Msg("durable cache write failed")
	}
}

// Invalidate drops a key from both tiers.
func (m *Manager) Invalidate(ctx context.Context, key string) {
	m.mu.Lock()
	delete(m.local, key)
	m.mu.Unlock()
	if err := m.durable.Del(ctx, key); err != nil {
		m.log.Warn().Err(err).Str("key", key).Msg("durable cache delete failed")
	}
}

// LocalLen reports the local tier size.
func (m *Manager) LocalLen() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.local)
}

// evictIfFull removes the oldest 20% of local entries by creation time when
// the tier is at capacity. Runs synchronously under m.mu before inserts.
func (m *Manager) evictIfFull() {
	if len(m.local) < m.maxLocal {
		return
	}
	type kv struct {
		key string
		at  time.Time
	}
	entries := make([]kv, 0, len(m.local))
	for k, e := range m.local {
		entries = append(entries, kv{k, e.CreatedAt})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].at.Before(entries[j].at) })

	n := len(entries) / 5
	if n < 1 {
		n = 1
	}
	for _, e := range entries[:n] {
		delete(m.local, e.key)
		observability.ObserveCache("local", "evict")
	}
}
