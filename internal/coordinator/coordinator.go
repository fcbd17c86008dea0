// Package coordinator is the caller-side orchestration around the conflict
// detector and ranker. It resolves ids against a fresh store snapshot,
// validates proposed assignments, and persists the records a committed
// change touches. All mutations are serialized.
package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vidhaanviswas/skylark-drone-coordinator/internal/conflict"
	"github.com/vidhaanviswas/skylark-drone-coordinator/internal/match"
	"github.com/vidhaanviswas/skylark-drone-coordinator/internal/metrics"
	"github.com/vidhaanviswas/skylark-drone-coordinator/internal/models"
	"github.com/vidhaanviswas/skylark-drone-coordinator/internal/rank"
	"github.com/vidhaanviswas/skylark-drone-coordinator/internal/store"
)

// Coordinator exposes the fleet operations over an injected store.
type Coordinator struct {
	st       store.Store
	detector *conflict.Detector
	ranker   *rank.Ranker
	logger   *slog.Logger

	mu    sync.Mutex
	now   func() time.Time
	newID func() string
}

// New creates a Coordinator.
func New(st store.Store, detector *conflict.Detector, ranker *rank.Ranker, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		st:       st,
		detector: detector,
		ranker:   ranker,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
		newID:    uuid.NewString,
	}
}

// Stats counts the records in the store.
type Stats struct {
	Pilots   int `json:"pilots"`
	Drones   int `json:"drones"`
	Missions int `json:"missions"`
}

// PilotFilter narrows QueryPilots. Zero fields match everything; Skills
// and Certifications must all be held.
type PilotFilter struct {
	Skills         []string
	Certifications []string
	Location       string
	Status         models.PilotStatus
}

// DroneFilter narrows QueryDrones.
type DroneFilter struct {
	Capabilities []string
	Location     string
	Status       models.DroneStatus
}

// Refresh reloads every table and reports the record counts. Malformed
// rows surface here.
func (c *Coordinator) Refresh(ctx context.Context) (Stats, error) {
	snap, err := c.snapshot(ctx)
	if err != nil {
		return Stats{}, err
	}
	st := Stats{Pilots: len(snap.Pilots()), Drones: len(snap.Drones()), Missions: len(snap.Missions())}
	c.logger.Info("store refreshed", "pilots", st.Pilots, "drones", st.Drones, "missions", st.Missions)
	return st, nil
}

// Pilot returns a pilot by id.
func (c *Coordinator) Pilot(ctx context.Context, id string) (models.Pilot, error) {
	snap, err := c.snapshot(ctx)
	if err != nil {
		return models.Pilot{}, err
	}
	return lookupPilot(snap, id)
}

// Drone returns a drone by id.
func (c *Coordinator) Drone(ctx context.Context, id string) (models.Drone, error) {
	snap, err := c.snapshot(ctx)
	if err != nil {
		return models.Drone{}, err
	}
	return lookupDrone(snap, id)
}

// Mission returns a mission by id.
func (c *Coordinator) Mission(ctx context.Context, id string) (models.Mission, error) {
	snap, err := c.snapshot(ctx)
	if err != nil {
		return models.Mission{}, err
	}
	return lookupMission(snap, id)
}

// QueryPilots returns the pilots matching f, in id order.
func (c *Coordinator) QueryPilots(ctx context.Context, f PilotFilter) ([]models.Pilot, error) {
	snap, err := c.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	out := []models.Pilot{}
	for _, p := range snap.Pilots() {
		if !match.HasAll(f.Skills, p.Skills) || !match.HasAll(f.Certifications, p.Certifications) {
			continue
		}
		if f.Location != "" && !match.LocationsMatch(f.Location, p.Location) {
			continue
		}
		if f.Status != "" && f.Status != p.Status {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// QueryDrones returns the drones matching f, in id order.
func (c *Coordinator) QueryDrones(ctx context.Context, f DroneFilter) ([]models.Drone, error) {
	snap, err := c.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	out := []models.Drone{}
	for _, d := range snap.Drones() {
		if !match.HasAll(f.Capabilities, d.Capabilities) {
			continue
		}
		if f.Location != "" && !match.LocationsMatch(f.Location, d.Location) {
			continue
		}
		if f.Status != "" && f.Status != d.Status {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

// AvailablePilots returns pilots who are Available or Assigned and whose
// availability window, if any, covers [start, end].
func (c *Coordinator) AvailablePilots(ctx context.Context, start, end time.Time) ([]models.Pilot, error) {
	if end.Before(start) {
		return nil, fmt.Errorf("available pilots: %w", models.ErrInvalidDateRange)
	}
	snap, err := c.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	out := []models.Pilot{}
	for _, p := range snap.Pilots() {
		if p.Status.Benched() {
			continue
		}
		if p.AvailableFrom != nil && start.Before(*p.AvailableFrom) {
			continue
		}
		if p.AvailableUntil != nil && end.After(*p.AvailableUntil) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// AvailableDrones returns drones not in maintenance whose scheduled
// maintenance does not fall inside [start, end].
func (c *Coordinator) AvailableDrones(ctx context.Context, start, end time.Time) ([]models.Drone, error) {
	if end.Before(start) {
		return nil, fmt.Errorf("available drones: %w", models.ErrInvalidDateRange)
	}
	snap, err := c.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	out := []models.Drone{}
	for _, d := range snap.Drones() {
		if d.Status == models.DroneMaintenance {
			continue
		}
		if d.MaintenanceDue != nil && match.WithinRange(*d.MaintenanceDue, start, end) {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

// Missions returns missions whose status is one of statuses; no statuses
// means every mission.
func (c *Coordinator) Missions(ctx context.Context, statuses ...models.MissionStatus) ([]models.Mission, error) {
	snap, err := c.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	out := []models.Mission{}
	for _, m := range snap.Missions() {
		if len(statuses) > 0 && !containsStatus(statuses, m.Status) {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

// UpdatePilotStatus sets a pilot's status.
func (c *Coordinator) UpdatePilotStatus(ctx context.Context, pilotID string, status models.PilotStatus) (models.Pilot, error) {
	if !status.IsValid() {
		return models.Pilot{}, invalid("unknown pilot status %q", status)
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	snap, err := c.snapshot(ctx)
	if err != nil {
		return models.Pilot{}, err
	}
	p, err := lookupPilot(snap, pilotID)
	if err != nil {
		return models.Pilot{}, err
	}
	prev := p.Status
	p.Status = status
	if err := c.savePilot(ctx, p); err != nil {
		return models.Pilot{}, err
	}
	c.logger.Info("pilot status updated", "pilot_id", p.ID, "from", prev, "to", status)
	return p, nil
}

// UpdateDroneStatus sets a drone's status and, when location is
// non-empty, moves it.
func (c *Coordinator) UpdateDroneStatus(ctx context.Context, droneID string, status models.DroneStatus, location string) (models.Drone, error) {
	if !status.IsValid() {
		return models.Drone{}, invalid("unknown drone status %q", status)
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	snap, err := c.snapshot(ctx)
	if err != nil {
		return models.Drone{}, err
	}
	d, err := lookupDrone(snap, droneID)
	if err != nil {
		return models.Drone{}, err
	}
	prev := d.Status
	d.Status = status
	if loc := strings.TrimSpace(location); loc != "" {
		d.Location = loc
	}
	if err := c.saveDrone(ctx, d); err != nil {
		return models.Drone{}, err
	}
	c.logger.Info("drone status updated", "drone_id", d.ID, "from", prev, "to", status, "location", d.Location)
	return d, nil
}

// Events returns the assignment audit trail, or nothing if the store
// does not keep one.
func (c *Coordinator) Events(ctx context.Context, missionID string) ([]models.AssignmentEvent, error) {
	rec, ok := c.st.(store.EventRecorder)
	if !ok {
		return []models.AssignmentEvent{}, nil
	}
	events, err := rec.ListEvents(ctx, missionID)
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}
	return events, nil
}

func (c *Coordinator) snapshot(ctx context.Context) (*models.Snapshot, error) {
	snap, err := store.Snapshot(ctx, c.st)
	if err != nil {
		return nil, fmt.Errorf("loading snapshot: %w", err)
	}
	return snap, nil
}

func (c *Coordinator) savePilot(ctx context.Context, p models.Pilot) error {
	if err := c.st.SavePilot(ctx, p); err != nil {
		return fmt.Errorf("saving pilot %s: %w", p.ID, err)
	}
	metrics.Inc(metrics.StoreSaves)
	return nil
}

func (c *Coordinator) saveDrone(ctx context.Context, d models.Drone) error {
	if err := c.st.SaveDrone(ctx, d); err != nil {
		return fmt.Errorf("saving drone %s: %w", d.ID, err)
	}
	metrics.Inc(metrics.StoreSaves)
	return nil
}

func (c *Coordinator) saveMission(ctx context.Context, m models.Mission) error {
	if err := c.st.SaveMission(ctx, m); err != nil {
		return fmt.Errorf("saving mission %s: %w", m.ID, err)
	}
	metrics.Inc(metrics.StoreSaves)
	return nil
}

func lookupPilot(snap *models.Snapshot, id string) (models.Pilot, error) {
	if p, ok := snap.Pilot(id); ok {
		return p, nil
	}
	return models.Pilot{}, &NotFoundError{Entity: "pilot", ID: id}
}

func lookupDrone(snap *models.Snapshot, id string) (models.Drone, error) {
	if d, ok := snap.Drone(id); ok {
		return d, nil
	}
	return models.Drone{}, &NotFoundError{Entity: "drone", ID: id}
}

func lookupMission(snap *models.Snapshot, id string) (models.Mission, error) {
	if m, ok := snap.Mission(id); ok {
		return m, nil
	}
	return models.Mission{}, &NotFoundError{Entity: "mission", ID: id}
}

func containsStatus(statuses []models.MissionStatus, s models.MissionStatus) bool {
	for _, v := range statuses {
		if v == s {
			return true
		}
	}
	return false
}
