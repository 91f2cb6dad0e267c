package dataset

import (
	"regexp"
	"strings"
)

// ============================================================================
// COLUMN RESOLVER — Three-stage fuzzy lookup
// ============================================================================
// Resolves a free-text term against column names: exact match, then
// substring match, then best token overlap. Returns ok=false instead of
// guessing when nothing overlaps at all.
// ============================================================================

var tokenSplit = regexp.MustCompile(`[\s_\-()]+`)

// MatchColumn finds the best column for a query term.
func MatchColumn(columns []string, term string) (string, bool) {
	want := strings.ToLower(strings.TrimSpace(term))
	if want == "" {
		return "", false
	}

	// Stage 1: exact (case-insensitive)
	for _, col := range columns {
		if strings.ToLower(col) == want {
			return col, true
		}
	}

	// Stage 2: substring either way
	for _, col := range columns {
		lc := strings.ToLower(col)
		if strings.Contains(lc, want) || strings.Contains(want, lc) {
			return col, true
		}
	}

	// Stage 3: token overlap
	wantTokens := tokenSet(want)
	best := ""
	bestScore := 0
	for _, col := range columns {
		score := 0
		for tok := range tokenSet(strings.ToLower(col)) {
			if wantTokens[tok] {
				score++
			}
		}
		if score > bestScore {
			bestScore = score
			best = col
		}
	}
	if bestScore > 0 {
		return best, true
	}
	return "", false
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range tokenSplit.Split(s, -1) {
		if tok != "" {
			set[tok] = true
		}
	}
	return set
}
