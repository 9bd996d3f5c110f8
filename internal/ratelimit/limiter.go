// Package ratelimit implements fixed-window per-client admission control for
// the request pipeline. Outbound smoothing toward the provider is a separate
// concern handled inside the upstream client.
package ratelimit

import (
	"sync"
	"time"

	"peakstay_mcp/internal/adapters/observability"
)

type windowState struct {
	count    int
	start    time.Time
	lastSeen time.Time
}

// Limiter counts requests per client id in fixed windows. State is
// process-local; a deployment with several processes grants each its own
// budget.
type Limiter struct {
	mu      sync.Mutex
	max     int
	window  time.Duration
	clients map[string]*windowState
}

func New(max int, window time.Duration) *Limiter {
	return &Limiter{
		max:     max,
		window:  window,
		clients: make(map[string]*windowState),
	}
}

// IsLimited records one request from clientID and reports whether it exceeds
// the window budget.
func (l *Limiter) IsLimited(clientID string) bool {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	st, ok := l.clients[clientID]
	if !ok || now.Sub(st.start) >= l.window {
		l.clients[clientID] = &windowState{count: 1, start: now, lastSeen: now}
		return false
	}

	st.count++
	st.lastSeen = now
	if st.count > l.max {
		observability.ObserveRateLimited()
		return true
	}
	return false
}

// ResetAt returns when the client's current window rolls over, for the
// retry hint in rate-limit error payloads.
func (l *Limiter) ResetAt(clientID string) time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()

	if st, ok := l.clients[clientID]; ok {
		return st.start.Add(l.window)
	}
	return time.Now()
}

// Cleanup evicts entries idle for at least twice the window length and
// returns how many were removed. It is invoked explicitly by the owner; the
// limiter runs no timers of its own.
func (l *Limiter) Cleanup() int {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	evicted := 0
	for id, st := range l.clients {
		if now.Sub(st.lastSeen) >= 2*l.window {
			delete(l.clients, id)
			evicted++
		}
	}
	return evicted
}
