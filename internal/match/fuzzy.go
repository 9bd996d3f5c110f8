// Package match scores free-text queries against reference entity names.
package match

import "strings"

// Score returns a similarity in [0,1] between query and target.
// Exact case-insensitive match scores 1.0; substring containment in either
// direction scores len(shorter)/len(longer); otherwise the score is
// 1 - editDistance/maxLen, floored at zero. Two empty strings score 1.0.
func Score(query, target string) float64 {
	q := strings.ToLower(strings.TrimSpace(query))
	t := strings.ToLower(strings.TrimSpace(target))

	if q == t {
		return 1.0
	}
	if q == "" || t == "" {
		return 0.0
	}
	if strings.Contains(q, t) || strings.Contains(t, q) {
		shorter, longer := len(q), len(t)
		if shorter > longer {
			shorter, longer = longer, shorter
		}
		return float64(shorter) / float64(longer)
	}

	maxLen := len(q)
	if len(t) > maxLen {
		maxLen = len(t)
	}
	s := 1.0 - float64(levenshtein(q, t))/float64(maxLen)
	if s < 0 {
		return 0.0
	}
	return s
}

// levenshtein computes edit distance with a two-row rolling table.
func levenshtein(a, b string) int {
	if a == "" {
		return len(b)
	}
	if b == "" {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for j := 0; j <= len(b); j++ {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		cur[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			cur[j] = min3(cur[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
