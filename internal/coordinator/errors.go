package coordinator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/vidhaanviswas/skylark-drone-coordinator/internal/models"
	"github.com/vidhaanviswas/skylark-drone-coordinator/internal/store"
)

// ErrValidationBlocked is returned when an assignment has critical conflicts.
var ErrValidationBlocked = errors.New("assignment blocked by critical conflicts")

// ErrInvalidInput is returned for arguments that cannot be acted on
// (empty ids, unknown status or urgency).
var ErrInvalidInput = errors.New("invalid input")

// NotFoundError reports a pilot, drone or mission id missing from the store.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error { return store.ErrNotFound }

// ValidationBlockedError carries the critical conflicts that stopped an assignment.
type ValidationBlockedError struct {
	MissionID string
	PilotID   string
	DroneID   string
	Blocking  []models.Conflict
}

func (e *ValidationBlockedError) Error() string {
	target := e.PilotID
	if target == "" {
		target = e.DroneID
	}
	kinds := make([]string, 0, len(e.Blocking))
	for i := range e.Blocking {
		kinds = append(kinds, string(e.Blocking[i].Kind))
	}
	return fmt.Sprintf("cannot assign %s to mission %s: %s", target, e.MissionID, strings.Join(kinds, ", "))
}

func (e *ValidationBlockedError) Unwrap() error { return ErrValidationBlocked }

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
