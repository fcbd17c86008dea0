package match

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestHasAll(t *testing.T) {
	tests := []struct {
		name      string
		required  []string
		possessed []string
		want      bool
	}{
		{"empty required", nil, nil, true},
		{"empty required with skills", []string{}, []string{"Mapping"}, true},
		{"exact", []string{"Mapping"}, []string{"Mapping", "Thermal"}, true},
		{"case-insensitive", []string{"mapping", "THERMAL"}, []string{"Mapping", "Thermal"}, true},
		{"whitespace", []string{" Part107 "}, []string{"part107"}, true},
		{"missing one", []string{"Mapping", "Inspection"}, []string{"Mapping"}, false},
		{"nothing possessed", []string{"Mapping"}, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HasAll(tt.required, tt.possessed))
		})
	}
}

func TestHasAll_Monotonic(t *testing.T) {
	required := []string{"Mapping", "Thermal"}
	skills := []string{"mapping", "thermal"}
	assert.True(t, HasAll(required, skills))

	for _, extra := range []string{"Inspection", "Survey", "LiDAR", "MAPPING"} {
		skills = append(skills, extra)
		assert.True(t, HasAll(required, skills), "adding %q must not remove a match", extra)
	}
}

func TestMissing_PreservesRequiredOrder(t *testing.T) {
	got := Missing([]string{"Thermal", "Mapping", "Survey"}, []string{"mapping"})
	assert.Equal(t, []string{"Thermal", "Survey"}, got)
}

func TestDatesOverlap(t *testing.T) {
	tests := []struct {
		name         string
		startA, endA string
		startB, endB string
		want         bool
	}{
		{"disjoint points", "2024-03-01", "2024-03-01", "2024-03-02", "2024-03-02", false},
		{"disjoint ranges", "2024-03-01", "2024-03-05", "2024-03-07", "2024-03-09", false},
		{"adjacent shares boundary", "2024-03-01", "2024-03-05", "2024-03-05", "2024-03-09", false},
		{"adjacent reversed", "2024-03-05", "2024-03-09", "2024-03-01", "2024-03-05", false},
		{"partial overlap", "2024-03-01", "2024-03-05", "2024-03-03", "2024-03-10", true},
		{"contained", "2024-03-01", "2024-03-10", "2024-03-03", "2024-03-04", true},
		{"identical", "2024-03-01", "2024-03-05", "2024-03-01", "2024-03-05", true},
		{"same single day", "2024-03-01", "2024-03-01", "2024-03-01", "2024-03-01", true},
		{"same start", "2024-03-01", "2024-03-01", "2024-03-01", "2024-03-04", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DatesOverlap(day(tt.startA), day(tt.endA), day(tt.startB), day(tt.endB))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDatesOverlap_AnyRealOverlapCounts(t *testing.T) {
	a, b, c := day("2024-03-01"), day("2024-03-05"), day("2024-03-09")
	assert.False(t, DatesOverlap(a, b, b, c))
	assert.True(t, DatesOverlap(a, b, b.Add(-time.Nanosecond), c))
}

func TestWithinRange_Inclusive(t *testing.T) {
	start, end := day("2024-03-01"), day("2024-03-05")
	assert.True(t, WithinRange(start, start, end))
	assert.True(t, WithinRange(end, start, end))
	assert.True(t, WithinRange(day("2024-03-04"), start, end))
	assert.False(t, WithinRange(day("2024-02-29"), start, end))
	assert.False(t, WithinRange(day("2024-03-06"), start, end))
}

func TestLocationsMatch(t *testing.T) {
	assert.True(t, LocationsMatch("Pune", "pune"))
	assert.True(t, LocationsMatch("Bangalore ", "BANGALORE"))
	assert.False(t, LocationsMatch("Pune", "Mumbai"))
	assert.True(t, LocationsMatch("", ""))
}
