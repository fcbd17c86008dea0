package coordinator

import (
	"context"
	"fmt"

	"github.com/vidhaanviswas/skylark-drone-coordinator/internal/conflict"
	"github.com/vidhaanviswas/skylark-drone-coordinator/internal/metrics"
	"github.com/vidhaanviswas/skylark-drone-coordinator/internal/models"
	"github.com/vidhaanviswas/skylark-drone-coordinator/internal/rank"
	"github.com/vidhaanviswas/skylark-drone-coordinator/internal/store"
)

// AssignmentResult describes a committed assignment change.
type AssignmentResult struct {
	Mission    models.Mission         `json:"mission"`
	Pilot      *models.Pilot          `json:"pilot,omitempty"`
	Drone      *models.Drone          `json:"drone,omitempty"`
	FreedPilot *models.Pilot          `json:"freed_pilot,omitempty"`
	FreedDrone *models.Drone          `json:"freed_drone,omitempty"`
	Warnings   []models.Conflict      `json:"warnings"`
	Event      models.AssignmentEvent `json:"event"`
}

// AssignPilot commits pilotID to missionID. It fails with a
// ValidationBlockedError when any critical conflict is present; other
// conflicts are returned as warnings.
func (c *Coordinator) AssignPilot(ctx context.Context, missionID, pilotID string) (*AssignmentResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap, err := c.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	mission, err := lookupMission(snap, missionID)
	if err != nil {
		return nil, err
	}
	pilot, err := lookupPilot(snap, pilotID)
	if err != nil {
		return nil, err
	}

	conflicts, err := c.detector.Detect(snap, &pilot, nil, mission)
	if err != nil {
		return nil, fmt.Errorf("assign pilot: %w", err)
	}
	if res := conflict.Validate(conflicts); !res.Allowed {
		metrics.Inc(metrics.BlockedAssignments)
		c.logger.Info("pilot assignment blocked", "mission_id", mission.ID, "pilot_id", pilot.ID, "blocking", len(res.BlockingConflicts))
		return nil, &ValidationBlockedError{MissionID: mission.ID, PilotID: pilot.ID, Blocking: res.BlockingConflicts}
	}

	out, err := c.commitPilot(ctx, snap, mission, pilot, models.EventPilotAssigned, "", conflicts)
	if err != nil {
		return nil, err
	}
	metrics.Inc(metrics.Assignments)
	return out, nil
}

// AssignDrone commits droneID to missionID, blocking on critical conflicts.
func (c *Coordinator) AssignDrone(ctx context.Context, missionID, droneID string) (*AssignmentResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap, err := c.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	mission, err := lookupMission(snap, missionID)
	if err != nil {
		return nil, err
	}
	drone, err := lookupDrone(snap, droneID)
	if err != nil {
		return nil, err
	}

	conflicts, err := c.detector.Detect(snap, nil, &drone, mission)
	if err != nil {
		return nil, fmt.Errorf("assign drone: %w", err)
	}
	if res := conflict.Validate(conflicts); !res.Allowed {
		metrics.Inc(metrics.BlockedAssignments)
		c.logger.Info("drone assignment blocked", "mission_id", mission.ID, "drone_id", drone.ID, "blocking", len(res.BlockingConflicts))
		return nil, &ValidationBlockedError{MissionID: mission.ID, DroneID: drone.ID, Blocking: res.BlockingConflicts}
	}

	out, err := c.commitDrone(ctx, snap, mission, drone, models.EventDroneAssigned, "", conflicts)
	if err != nil {
		return nil, err
	}
	metrics.Inc(metrics.Assignments)
	return out, nil
}

// ReassignMission moves a mission to newPilotID. It is the operator's
// override path: conflicts, critical ones included, are reported as
// warnings and never block. The previous pilot is freed when idle.
func (c *Coordinator) ReassignMission(ctx context.Context, missionID, newPilotID, reason string) (*AssignmentResult, error) {
	if newPilotID == "" {
		return nil, invalid("new pilot id is required")
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	snap, err := c.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	mission, err := lookupMission(snap, missionID)
	if err != nil {
		return nil, err
	}
	pilot, err := lookupPilot(snap, newPilotID)
	if err != nil {
		return nil, err
	}
	conflicts, err := c.detector.Detect(snap, &pilot, nil, mission)
	if err != nil {
		return nil, fmt.Errorf("reassign mission: %w", err)
	}

	out, err := c.commitPilot(ctx, snap, mission, pilot, models.EventPilotReassigned, reason, conflicts)
	if err != nil {
		return nil, err
	}
	metrics.Inc(metrics.Reassignments)
	return out, nil
}

// ReassignDrone moves a mission to newDroneID without blocking.
func (c *Coordinator) ReassignDrone(ctx context.Context, missionID, newDroneID, reason string) (*AssignmentResult, error) {
	if newDroneID == "" {
		return nil, invalid("new drone id is required")
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	snap, err := c.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	mission, err := lookupMission(snap, missionID)
	if err != nil {
		return nil, err
	}
	drone, err := lookupDrone(snap, newDroneID)
	if err != nil {
		return nil, err
	}
	conflicts, err := c.detector.Detect(snap, nil, &drone, mission)
	if err != nil {
		return nil, fmt.Errorf("reassign drone: %w", err)
	}

	out, err := c.commitDrone(ctx, snap, mission, drone, models.EventDroneReassigned, reason, conflicts)
	if err != nil {
		return nil, err
	}
	metrics.Inc(metrics.Reassignments)
	return out, nil
}

func (c *Coordinator) commitPilot(ctx context.Context, snap *models.Snapshot, mission models.Mission, pilot models.Pilot,
	kind models.EventKind, reason string, conflicts []models.Conflict) (*AssignmentResult, error) {
	res := rank.Reassign(snap, mission, pilot)
	activate(&res.Mission)

	if err := c.savePilot(ctx, *res.NewPilot); err != nil {
		return nil, err
	}
	if res.FreedPilot != nil {
		if err := c.savePilot(ctx, *res.FreedPilot); err != nil {
			return nil, err
		}
	}
	if err := c.saveMission(ctx, res.Mission); err != nil {
		return nil, err
	}

	ev := c.record(ctx, kind, res.Mission.ID, pilot.ID, res.PreviousID, reason, conflicts)
	c.logger.Info("pilot committed to mission", "kind", kind, "mission_id", res.Mission.ID,
		"pilot_id", pilot.ID, "previous", res.PreviousID, "warnings", len(conflicts))
	return &AssignmentResult{
		Mission:    res.Mission,
		Pilot:      res.NewPilot,
		FreedPilot: res.FreedPilot,
		Warnings:   nonNil(conflicts),
		Event:      ev,
	}, nil
}

func (c *Coordinator) commitDrone(ctx context.Context, snap *models.Snapshot, mission models.Mission, drone models.Drone,
	kind models.EventKind, reason string, conflicts []models.Conflict) (*AssignmentResult, error) {
	res := rank.ReassignDrone(snap, mission, drone)
	activate(&res.Mission)

	if err := c.saveDrone(ctx, *res.NewDrone); err != nil {
		return nil, err
	}
	if res.FreedDrone != nil {
		if err := c.saveDrone(ctx, *res.FreedDrone); err != nil {
			return nil, err
		}
	}
	if err := c.saveMission(ctx, res.Mission); err != nil {
		return nil, err
	}

	ev := c.record(ctx, kind, res.Mission.ID, drone.ID, res.PreviousID, reason, conflicts)
	c.logger.Info("drone committed to mission", "kind", kind, "mission_id", res.Mission.ID,
		"drone_id", drone.ID, "previous", res.PreviousID, "warnings", len(conflicts))
	return &AssignmentResult{
		Mission:    res.Mission,
		Drone:      res.NewDrone,
		FreedDrone: res.FreedDrone,
		Warnings:   nonNil(conflicts),
		Event:      ev,
	}, nil
}

// activate promotes a pending mission once it has both a pilot and a drone.
func activate(m *models.Mission) {
	if m.Status == models.MissionPending && m.AssignedPilotID != "" && m.AssignedDroneID != "" {
		m.Status = models.MissionActive
	}
}

// record builds the audit event and stores it when the backend keeps a
// trail. A failed write is logged, not returned: the assignment is
// already persisted.
func (c *Coordinator) record(ctx context.Context, kind models.EventKind, missionID, assigneeID, previousID, reason string, conflicts []models.Conflict) models.AssignmentEvent {
	ev := models.AssignmentEvent{
		ID:         c.newID(),
		Kind:       kind,
		MissionID:  missionID,
		AssigneeID: assigneeID,
		PreviousID: previousID,
		Reason:     reason,
		Overridden: countCritical(conflicts),
		CreatedAt:  c.now(),
	}
	if rec, ok := c.st.(store.EventRecorder); ok {
		if err := rec.RecordEvent(ctx, ev); err != nil {
			c.logger.Warn("failed to record assignment event", "event_id", ev.ID, "mission_id", missionID, "error", err)
		}
	}
	return ev
}

func countCritical(conflicts []models.Conflict) int {
	n := 0
	for i := range conflicts {
		if conflicts[i].Severity.Blocking() {
			n++
		}
	}
	return n
}
