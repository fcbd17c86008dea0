package models

import "time"

// Severity classifies how serious a conflict is.
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityMedium   Severity = "MEDIUM"
)

// Blocking reports whether a conflict of this severity prevents an assignment from being committed.
func (s Severity) Blocking() bool {
	return s == SeverityCritical
}

// ConflictKind names the rule that produced a conflict.
type ConflictKind string

const (
	KindSkillMismatch              ConflictKind = "SKILL_MISMATCH"
	KindCertificationMismatch      ConflictKind = "CERTIFICATION_MISMATCH"
	KindPilotDoubleBooking         ConflictKind = "PILOT_DOUBLE_BOOKING"
	KindDroneDoubleBooking         ConflictKind = "DRONE_DOUBLE_BOOKING"
	KindDroneInMaintenance         ConflictKind = "DRONE_IN_MAINTENANCE"
	KindMaintenanceWindow          ConflictKind = "MAINTENANCE_WINDOW"
	KindPilotOnLeave               ConflictKind = "PILOT_ON_LEAVE"
	KindPilotUnavailable           ConflictKind = "PILOT_UNAVAILABLE"
	KindPilotAvailabilityMismatch  ConflictKind = "PILOT_AVAILABILITY_MISMATCH"
	KindPilotLocationMismatch      ConflictKind = "PILOT_LOCATION_MISMATCH"
	KindDroneLocationMismatch      ConflictKind = "DRONE_LOCATION_MISMATCH"
	KindCapabilityMismatch         ConflictKind = "CAPABILITY_MISMATCH"
	KindPilotDroneLocationMismatch ConflictKind = "PILOT_DRONE_LOCATION_MISMATCH"
	KindUnknownAssignment          ConflictKind = "UNKNOWN_ASSIGNMENT"
)

// Conflict is a rule violation detected for a pilot/drone/mission combination.
type Conflict struct {
	Kind             ConflictKind `json:"type"`
	Severity         Severity     `json:"severity"`
	Message          string       `json:"message"`
	MissionID        string       `json:"mission_id"`
	PilotID          string       `json:"pilot_id,omitempty"`
	DroneID          string       `json:"drone_id,omitempty"`
	RelatedMissionID string       `json:"conflicting_mission_id,omitempty"`
	Missing          []string     `json:"missing,omitempty"`
	MaintenanceDue   *time.Time   `json:"maintenance_date,omitempty"`
}

// MissionConflicts groups the conflicts found for one mission.
type MissionConflicts struct {
	MissionID string     `json:"mission_id"`
	Conflicts []Conflict `json:"conflicts"`
}

// SeverityGroup is a count plus the conflicts of one severity.
type SeverityGroup struct {
	Count     int        `json:"count"`
	Conflicts []Conflict `json:"conflicts"`
}

// ConflictSummary is the system-wide dashboard view of all conflicts.
type ConflictSummary struct {
	TotalCount int           `json:"total_count"`
	Critical   SeverityGroup `json:"critical"`
	High       SeverityGroup `json:"high"`
	Medium     SeverityGroup `json:"medium"`
}

// ValidationResult is the outcome of checking a proposed assignment.
type ValidationResult struct {
	Allowed           bool       `json:"allowed"`
	BlockingConflicts []Conflict `json:"blocking_conflicts"`
	Warnings          []Conflict `json:"warnings"`
}
