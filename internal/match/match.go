// Package match holds the coverage, date and location primitives the
// conflict detector and ranker are built on. Every function is pure.
package match

import (
	"strings"
	"time"
)

// HasAll reports whether every element of required is in possessed,
// compared case-insensitively. An empty required set always matches.
func HasAll(required, possessed []string) bool {
	return len(Missing(required, possessed)) == 0
}

// Missing returns the elements of required absent from possessed, in the
// order they appear in required.
func Missing(required, possessed []string) []string {
	if len(required) == 0 {
		return nil
	}
	have := make(map[string]struct{}, len(possessed))
	for _, p := range possessed {
		have[fold(p)] = struct{}{}
	}
	var missing []string
	for _, r := range required {
		if _, ok := have[fold(r)]; !ok {
			missing = append(missing, r)
		}
	}
	return missing
}

// DatesOverlap reports whether [startA, endA] and [startB, endB] overlap.
// Ranges that only touch at a boundary (endA == startB) are adjacent, not
// overlapping. Ranges that begin at the same instant always overlap.
func DatesOverlap(startA, endA, startB, endB time.Time) bool {
	if startA.Equal(startB) {
		return true
	}
	return startA.Before(endB) && startB.Before(endA)
}

// WithinRange reports whether start <= t <= end.
func WithinRange(t, start, end time.Time) bool {
	return !t.Before(start) && !t.After(end)
}

// LocationsMatch compares two location names case-insensitively.
func LocationsMatch(a, b string) bool {
	return fold(a) == fold(b)
}

func fold(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
