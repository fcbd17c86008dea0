package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/vidhaanviswas/skylark-drone-coordinator/internal/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrMalformedRecord is returned when a backend cannot coerce a stored row
// into a well-typed record.
var ErrMalformedRecord = errors.New("malformed record")

// MalformedRecordError describes a row rejected at load time.
type MalformedRecordError struct {
	Entity string // "pilot", "drone" or "mission"
	Row    int    // 1-based data row; 0 when the backend has no row numbers
	ID     string
	Reason string
}

func (e *MalformedRecordError) Error() string {
	switch {
	case e.ID != "" && e.Row > 0:
		return fmt.Sprintf("malformed %s %s (row %d): %s", e.Entity, e.ID, e.Row, e.Reason)
	case e.ID != "":
		return fmt.Sprintf("malformed %s %s: %s", e.Entity, e.ID, e.Reason)
	case e.Row > 0:
		return fmt.Sprintf("malformed %s (row %d): %s", e.Entity, e.Row, e.Reason)
	}
	return fmt.Sprintf("malformed %s: %s", e.Entity, e.Reason)
}

func (e *MalformedRecordError) Unwrap() error { return ErrMalformedRecord }

// Store defines the interface for pilot, drone and mission persistence.
// The core never deletes records, so there is no Delete.
type Store interface {
	// LoadPilots returns every pilot in the roster.
	LoadPilots(ctx context.Context) ([]models.Pilot, error)

	// LoadDrones returns every drone in the fleet.
	LoadDrones(ctx context.Context) ([]models.Drone, error)

	// LoadMissions returns every mission.
	LoadMissions(ctx context.Context) ([]models.Mission, error)

	// SavePilot inserts or replaces a pilot by ID.
	SavePilot(ctx context.Context, p models.Pilot) error

	// SaveDrone inserts or replaces a drone by ID.
	SaveDrone(ctx context.Context, d models.Drone) error

	// SaveMission inserts or replaces a mission by ID.
	SaveMission(ctx context.Context, m models.Mission) error

	// Close cleans up resources.
	Close() error
}

// SnapshotLoader is implemented by backends that can load all three
// tables in one round trip or in parallel.
type SnapshotLoader interface {
	LoadSnapshot(ctx context.Context) (*models.Snapshot, error)
}

// EventRecorder is implemented by backends that keep an audit trail of
// assignment changes.
type EventRecorder interface {
	RecordEvent(ctx context.Context, ev models.AssignmentEvent) error
	ListEvents(ctx context.Context, missionID string) ([]models.AssignmentEvent, error)
}

// Snapshot loads all three tables from st into an immutable snapshot.
func Snapshot(ctx context.Context, st Store) (*models.Snapshot, error) {
	if sl, ok := st.(SnapshotLoader); ok {
		return sl.LoadSnapshot(ctx)
	}
	pilots, err := st.LoadPilots(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading pilots: %w", err)
	}
	drones, err := st.LoadDrones(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading drones: %w", err)
	}
	missions, err := st.LoadMissions(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading missions: %w", err)
	}
	return newSnapshot(pilots, drones, missions)
}

// newSnapshot builds a snapshot from loaded tables. An ID that appears
// twice in one table is a malformed record.
func newSnapshot(pilots []models.Pilot, drones []models.Drone, missions []models.Mission) (*models.Snapshot, error) {
	if err := uniqueIDs("pilot", len(pilots), func(i int) string { return pilots[i].ID }); err != nil {
		return nil, err
	}
	if err := uniqueIDs("drone", len(drones), func(i int) string { return drones[i].ID }); err != nil {
		return nil, err
	}
	if err := uniqueIDs("mission", len(missions), func(i int) string { return missions[i].ID }); err != nil {
		return nil, err
	}
	return models.NewSnapshot(pilots, drones, missions), nil
}

func uniqueIDs(entity string, n int, id func(int) string) error {
	seen := make(map[string]struct{}, n)
	for i := 0; i < n; i++ {
		k := id(i)
		if _, dup := seen[k]; dup {
			return &MalformedRecordError{Entity: entity, Row: i + 1, ID: k, Reason: "duplicate id"}
		}
		seen[k] = struct{}{}
	}
	return nil
}

// Copy writes every record of src into dst.
func Copy(ctx context.Context, dst, src Store) (pilots, drones, missions int, err error) {
	snap, err := Snapshot(ctx, src)
	if err != nil {
		return 0, 0, 0, err
	}
	for _, p := range snap.Pilots() {
		if err := dst.SavePilot(ctx, p); err != nil {
			return pilots, drones, missions, fmt.Errorf("saving pilot %s: %w", p.ID, err)
		}
		pilots++
	}
	for _, d := range snap.Drones() {
		if err := dst.SaveDrone(ctx, d); err != nil {
			return pilots, drones, missions, fmt.Errorf("saving drone %s: %w", d.ID, err)
		}
		drones++
	}
	for _, m := range snap.Missions() {
		if err := dst.SaveMission(ctx, m); err != nil {
			return pilots, drones, missions, fmt.Errorf("saving mission %s: %w", m.ID, err)
		}
		missions++
	}
	return pilots, drones, missions, nil
}
