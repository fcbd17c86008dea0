package models

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidDateRange is returned when a mission ends before it starts.
var ErrInvalidDateRange = errors.New("mission end date before start date")

// MissionStatus is the lifecycle state of a mission.
type MissionStatus string

const (
	MissionPending   MissionStatus = "Pending"
	MissionActive    MissionStatus = "Active"
	MissionCompleted MissionStatus = "Completed"
	MissionCancelled MissionStatus = "Cancelled"
)

// ValidMissionStatuses is the set of all valid mission statuses.
var ValidMissionStatuses = []MissionStatus{
	MissionPending,
	MissionActive,
	MissionCompleted,
	MissionCancelled,
}

// IsValid returns true if the mission status is recognized.
func (s MissionStatus) IsValid() bool {
	for _, v := range ValidMissionStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Open reports whether a mission in this status still occupies its pilot and drone.
func (s MissionStatus) Open() bool {
	return s == MissionPending || s == MissionActive
}

// ParseMissionStatus matches a status case-insensitively.
func ParseMissionStatus(raw string) (MissionStatus, bool) {
	key := statusKey(raw)
	for _, v := range ValidMissionStatuses {
		if statusKey(string(v)) == key {
			return v, true
		}
	}
	return "", false
}

// Mission is a client project that needs a pilot and a drone.
// Start and End are inclusive.
type Mission struct {
	ID                     string        `json:"mission_id" yaml:"mission_id"`
	Client                 string        `json:"client_name" yaml:"client_name"`
	Location               string        `json:"location" yaml:"location"`
	Start                  time.Time     `json:"start_date" yaml:"start_date"`
	End                    time.Time     `json:"end_date" yaml:"end_date"`
	RequiredSkills         []string      `json:"required_skills" yaml:"required_skills"`
	RequiredCertifications []string      `json:"required_certifications" yaml:"required_certifications"`
	RequiredCapabilities   []string      `json:"required_capabilities" yaml:"required_capabilities"`
	Priority               int           `json:"priority" yaml:"priority"`
	Status                 MissionStatus `json:"status" yaml:"status"`
	AssignedPilotID        string        `json:"assigned_pilot_id,omitempty" yaml:"assigned_pilot_id,omitempty"`
	AssignedDroneID        string        `json:"assigned_drone_id,omitempty" yaml:"assigned_drone_id,omitempty"`
}

// CheckDates returns ErrInvalidDateRange when End precedes Start.
func (m Mission) CheckDates() error {
	if m.End.Before(m.Start) {
		return fmt.Errorf("mission %s: %w", m.ID, ErrInvalidDateRange)
	}
	return nil
}

// Clone returns a copy that shares no slices with m.
func (m Mission) Clone() Mission {
	m.RequiredSkills = cloneStrings(m.RequiredSkills)
	m.RequiredCertifications = cloneStrings(m.RequiredCertifications)
	m.RequiredCapabilities = cloneStrings(m.RequiredCapabilities)
	return m
}
