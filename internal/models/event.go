package models

import "time"

// EventKind classifies an assignment audit event.
type EventKind string

const (
	EventPilotAssigned   EventKind = "pilot_assigned"
	EventDroneAssigned   EventKind = "drone_assigned"
	EventPilotReassigned EventKind = "pilot_reassigned"
	EventDroneReassigned EventKind = "drone_reassigned"
)

// AssignmentEvent records a committed assignment change.
type AssignmentEvent struct {
	ID         string    `json:"id"`
	Kind       EventKind `json:"kind"`
	MissionID  string    `json:"mission_id"`
	AssigneeID string    `json:"assignee_id"`
	PreviousID string    `json:"previous_id,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	Overridden int       `json:"overridden_conflicts"` // conflicts accepted by the operator
	CreatedAt  time.Time `json:"created_at"`
}
