package models

import (
	"strings"
	"time"
)

// PilotStatus is the availability state of a pilot.
type PilotStatus string

const (
	PilotAvailable   PilotStatus = "Available"
	PilotAssigned    PilotStatus = "Assigned"
	PilotOnLeave     PilotStatus = "On Leave"
	PilotUnavailable PilotStatus = "Unavailable"
)

// ValidPilotStatuses is the set of all valid pilot statuses.
var ValidPilotStatuses = []PilotStatus{
	PilotAvailable,
	PilotAssigned,
	PilotOnLeave,
	PilotUnavailable,
}

// IsValid returns true if the pilot status is recognized.
func (s PilotStatus) IsValid() bool {
	for _, v := range ValidPilotStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Benched reports whether the pilot cannot be scheduled at all (on leave or unavailable).
func (s PilotStatus) Benched() bool {
	return s == PilotOnLeave || s == PilotUnavailable
}

// ParsePilotStatus accepts any casing plus the "OnLeave" / "on_leave" spellings.
func ParsePilotStatus(raw string) (PilotStatus, bool) {
	key := statusKey(raw)
	for _, v := range ValidPilotStatuses {
		if statusKey(string(v)) == key {
			return v, true
		}
	}
	return "", false
}

// Pilot is a member of the pilot roster.
type Pilot struct {
	ID                string      `json:"pilot_id" yaml:"pilot_id"`
	Name              string      `json:"name" yaml:"name"`
	Skills            []string    `json:"skills" yaml:"skills"`
	Certifications    []string    `json:"certifications" yaml:"certifications"`
	Location          string      `json:"location" yaml:"location"`
	Status            PilotStatus `json:"status" yaml:"status"`
	Priority          int         `json:"priority_level" yaml:"priority_level"`
	ExperienceHours   float64     `json:"drone_experience_hours" yaml:"drone_experience_hours"`
	CurrentAssignment string      `json:"current_assignment,omitempty" yaml:"current_assignment,omitempty"`
	AvailableFrom     *time.Time  `json:"availability_start_date,omitempty" yaml:"availability_start_date,omitempty"`
	AvailableUntil    *time.Time  `json:"availability_end_date,omitempty" yaml:"availability_end_date,omitempty"`
	ContactInfo       string      `json:"contact_info,omitempty" yaml:"contact_info,omitempty"`
}

// Clone returns a copy that shares no slices or pointers with p.
func (p Pilot) Clone() Pilot {
	p.Skills = cloneStrings(p.Skills)
	p.Certifications = cloneStrings(p.Certifications)
	p.AvailableFrom = cloneTime(p.AvailableFrom)
	p.AvailableUntil = cloneTime(p.AvailableUntil)
	return p
}

// statusKey folds case and drops spaces, underscores and dashes.
func statusKey(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '_', '-':
			return -1
		}
		return r
	}, strings.ToLower(strings.TrimSpace(s)))
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
