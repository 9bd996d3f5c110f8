package ratelimit_test

import (
	"testing"
	"time"

	"peakstay_mcp/internal/ratelimit"
)

func TestLimiter_BlocksAfterMax(t *testing.T) {
	l := ratelimit.New(3, time.Minute)

	for i := 0; i < 3; i++ {
		if l.IsLimited("client-a") {
			t.Fatalf("request %d should not be limited", i+1)
		}
	}
	if !l.IsLimited("client-a") {
		t.Fatal("request beyond max should be limited")
	}
	// other clients keep their own budget
	if l.IsLimited("client-b") {
		t.Fatal("fresh client must not be limited")
	}
}

func TestLimiter_WindowRollover(t *testing.T) {
	l := ratelimit.New(1, 50*time.Millisecond)

	if l.IsLimited("c") {
		t.Fatal("first request limited")
	}
	if !l.IsLimited("c") {
		t.Fatal("second request in window should be limited")
	}

	time.Sleep(60 * time.Millisecond)

	if l.IsLimited("c") {
		t.Fatal("request after window rollover should reset to count=1")
	}
}

func TestLimiter_ResetAt(t *testing.T) {
	window := time.Minute
	l := ratelimit.New(5, window)

	before := time.Now()
	l.IsLimited("c")
	reset := l.ResetAt("c")

	if reset.Before(before.Add(window - time.Second)) || reset.After(time.Now().Add(window+time.Second)) {
		t.Fatalf("reset hint %v not ~one window from now", reset)
	}
}

func TestLimiter_Cleanup(t *testing.T) {
	l := ratelimit.New(5, 20*time.Millisecond)

	l.IsLimited("stale")
	time.Sleep(45 * time.Millisecond) // > 2x window
	l.IsLimited("fresh")

	if got := l.Cleanup(); got != 1 {
		t.Fatalf("cleanup evicted %d, want 1", got)
	}
	// evicted client starts a fresh window
	if l.IsLimited("stale") {
		t.Fatal("client re-created after cleanup should not be limited")
	}
}
