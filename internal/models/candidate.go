package models

import "strings"

// Urgency controls how strictly replacement candidates are filtered.
type Urgency string

const (
	UrgencyLow      Urgency = "low"
	UrgencyNormal   Urgency = "normal"
	UrgencyHigh     Urgency = "high"
	UrgencyCritical Urgency = "critical"
)

// ValidUrgencies is the set of all valid urgency levels.
var ValidUrgencies = []Urgency{
	UrgencyLow,
	UrgencyNormal,
	UrgencyHigh,
	UrgencyCritical,
}

// IsValid returns true if the urgency level is recognized.
func (u Urgency) IsValid() bool {
	for _, v := range ValidUrgencies {
		if u == v {
			return true
		}
	}
	return false
}

// ParseUrgency lowercases and validates raw. An empty string means normal.
func ParseUrgency(raw string) (Urgency, bool) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return UrgencyNormal, true
	}
	u := Urgency(raw)
	return u, u.IsValid()
}

// RankedCandidate is a replacement pilot with its ranking score (lower is better).
type RankedCandidate struct {
	Pilot         Pilot      `json:"pilot"`
	Score         float64    `json:"score"`
	Conflicts     []Conflict `json:"conflicts"`
	LocationMatch bool       `json:"location_match"`
}
