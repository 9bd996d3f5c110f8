package match_test

import (
	"math"
	"testing"

	"peakstay_mcp/internal/match"
)

func almostEqual(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestScore_Exact(t *testing.T) {
	for _, s := range []string{"Zermatt", "livigno", "St. Anton am Arlberg", ""} {
		if got := match.Score(s, s); got != 1.0 {
			t.Fatalf("Score(%q,%q) = %v, want 1.0", s, s, got)
		}
	}
	if got := match.Score("ZERMATT", "zermatt"); got != 1.0 {
		t.Fatalf("case-insensitive exact match should score 1.0, got %v", got)
	}
}

func TestScore_EmptyOneSide(t *testing.T) {
	if got := match.Score("", "x"); got != 0.0 {
		t.Fatalf("Score(\"\",\"x\") = %v, want 0.0", got)
	}
	if got := match.Score("x", ""); got != 0.0 {
		t.Fatalf("Score(\"x\",\"\") = %v, want 0.0", got)
	}
}

func TestScore_Substring(t *testing.T) {
	// "anton" (5) inside "st anton" (8) -> 5/8 either direction
	want := 5.0 / 8.0
	if got := match.Score("anton", "st anton"); !almostEqual(got, want) {
		t.Fatalf("substring score = %v, want %v", got, want)
	}
	if got := match.Score("st anton", "anton"); !almostEqual(got, want) {
		t.Fatalf("substring score reversed = %v, want %v", got, want)
	}
}

func TestScore_EditDistance(t *testing.T) {
	// "zermat" vs "zermot": distance 1, maxLen 6 -> 1 - 1/6
	want := 1.0 - 1.0/6.0
	if got := match.Score("zermat", "zermot"); !almostEqual(got, want) {
		t.Fatalf("edit-distance score = %v, want %v", got, want)
	}
}

func TestScore_Symmetry(t *testing.T) {
	pairs := [][2]string{
		{"zermatt", "zermott"},
		{"davos", "davos platz"},
		{"chamonix", "grindelwald"},
		{"a", "b"},
	}
	for _, p := range pairs {
		if a, b := match.Score(p[0], p[1]), match.Score(p[1], p[0]); !almostEqual(a, b) {
			t.Fatalf("Score(%q,%q)=%v != Score(%q,%q)=%v", p[0], p[1], a, p[1], p[0], b)
		}
	}
}

func TestScore_Bounds(t *testing.T) {
	for _, p := range [][2]string{{"abc", "xyz"}, {"a", "zzzzzzzzzz"}, {"völs", "зима"}} {
		got := match.Score(p[0], p[1])
		if got < 0 || got > 1 {
			t.Fatalf("Score(%q,%q) = %v out of [0,1]", p[0], p[1], got)
		}
	}
}
