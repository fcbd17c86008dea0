package coordinator

import (
	"context"
	"fmt"

	"github.com/vidhaanviswas/skylark-drone-coordinator/internal/conflict"
	"github.com/vidhaanviswas/skylark-drone-coordinator/internal/models"
)

// ConflictReport is the system-wide conflict dashboard: severity groups
// plus the per-mission breakdown.
type ConflictReport struct {
	models.ConflictSummary
	Missions []models.MissionConflicts `json:"missions"`
}

// CheckConflicts evaluates a pilot and/or drone against a mission. With
// neither id given, the mission's current assignment is checked. An
// assigned id that no longer resolves is reported as a conflict rather
// than an error.
func (c *Coordinator) CheckConflicts(ctx context.Context, pilotID, droneID, missionID string) ([]models.Conflict, error) {
	snap, err := c.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	mission, err := lookupMission(snap, missionID)
	if err != nil {
		return nil, err
	}

	if pilotID == "" && droneID == "" {
		conflicts, err := c.detector.DetectMission(snap, mission)
		if err != nil {
			return nil, fmt.Errorf("check conflicts: %w", err)
		}
		return nonNil(conflicts), nil
	}

	pilot, drone, err := resolvePair(snap, pilotID, droneID)
	if err != nil {
		return nil, err
	}
	conflicts, err := c.detector.Detect(snap, pilot, drone, mission)
	if err != nil {
		return nil, fmt.Errorf("check conflicts: %w", err)
	}
	return nonNil(conflicts), nil
}

// ValidateAssignment reports whether a proposed pilot and/or drone may be
// committed to a mission: allowed iff no critical conflict.
func (c *Coordinator) ValidateAssignment(ctx context.Context, pilotID, droneID, missionID string) (models.ValidationResult, error) {
	if pilotID == "" && droneID == "" {
		return models.ValidationResult{}, invalid("a pilot or drone id is required")
	}
	conflicts, err := c.CheckConflicts(ctx, pilotID, droneID, missionID)
	if err != nil {
		return models.ValidationResult{}, err
	}
	return conflict.Validate(conflicts), nil
}

// DetectAllConflicts scans every mission with an assignment.
func (c *Coordinator) DetectAllConflicts(ctx context.Context) (ConflictReport, error) {
	snap, err := c.snapshot(ctx)
	if err != nil {
		return ConflictReport{}, err
	}
	byMission := c.detector.DetectAll(snap)
	if byMission == nil {
		byMission = []models.MissionConflicts{}
	}
	return ConflictReport{
		ConflictSummary: conflict.Summarize(conflict.Flatten(byMission)),
		Missions:        byMission,
	}, nil
}

// FindReplacementCandidates ranks up to three pilots for a mission.
func (c *Coordinator) FindReplacementCandidates(ctx context.Context, missionID string, urgency models.Urgency) ([]models.RankedCandidate, error) {
	if !urgency.IsValid() {
		return nil, invalid("unknown urgency %q", urgency)
	}
	snap, err := c.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	mission, err := lookupMission(snap, missionID)
	if err != nil {
		return nil, err
	}
	cands, err := c.ranker.FindReplacementCandidates(snap, mission, urgency, snap.Pilots())
	if err != nil {
		return nil, err
	}
	c.logger.Info("replacement candidates ranked", "mission_id", mission.ID, "urgency", urgency, "count", len(cands))
	return cands, nil
}

func resolvePair(snap *models.Snapshot, pilotID, droneID string) (*models.Pilot, *models.Drone, error) {
	var pilot *models.Pilot
	var drone *models.Drone
	if pilotID != "" {
		p, err := lookupPilot(snap, pilotID)
		if err != nil {
			return nil, nil, err
		}
		pilot = &p
	}
	if droneID != "" {
		d, err := lookupDrone(snap, droneID)
		if err != nil {
			return nil, nil, err
		}
		drone = &d
	}
	return pilot, drone, nil
}

func nonNil(conflicts []models.Conflict) []models.Conflict {
	if conflicts == nil {
		return []models.Conflict{}
	}
	return conflicts
}
