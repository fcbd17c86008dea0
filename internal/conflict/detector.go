// Package conflict evaluates pilot/drone/mission combinations against the
// scheduling, availability and location rules and classifies every
// violation by severity. Conflicts are ordinary return values; the only
// errors are structurally invalid inputs.
package conflict

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/vidhaanviswas/skylark-drone-coordinator/internal/match"
	"github.com/vidhaanviswas/skylark-drone-coordinator/internal/metrics"
	"github.com/vidhaanviswas/skylark-drone-coordinator/internal/models"
)

const dateLayout = "2006-01-02"

// Detector runs the conflict rules over a snapshot. It holds no record state.
type Detector struct {
	logger *slog.Logger
}

// NewDetector creates a Detector.
func NewDetector(logger *slog.Logger) *Detector {
	return &Detector{logger: logger}
}

// Detect evaluates pilot and drone (either may be nil) against mission.
// The snapshot supplies the other missions used for double-booking checks.
// All applicable rules are emitted in a fixed order.
func (d *Detector) Detect(snap *models.Snapshot, pilot *models.Pilot, drone *models.Drone, mission models.Mission) ([]models.Conflict, error) {
	if err := mission.CheckDates(); err != nil {
		return nil, fmt.Errorf("detect: %w", err)
	}
	metrics.Inc(metrics.ConflictChecks)

	var out []models.Conflict

	if pilot != nil {
		out = append(out, d.pilotQualification(pilot, mission)...)
		out = append(out, pilotDoubleBookings(snap, pilot, mission)...)
	}
	if drone != nil {
		out = append(out, droneDoubleBookings(snap, drone, mission)...)
		out = append(out, droneMaintenance(drone, mission)...)
	}
	if pilot != nil {
		out = append(out, pilotAvailability(pilot, mission)...)
		if !match.LocationsMatch(pilot.Location, mission.Location) {
			out = append(out, models.Conflict{
				Kind:      models.KindPilotLocationMismatch,
				Severity:  models.SeverityMedium,
				Message:   fmt.Sprintf("Pilot location (%s) differs from mission location (%s)", pilot.Location, mission.Location),
				MissionID: mission.ID,
				PilotID:   pilot.ID,
			})
		}
	}
	if drone != nil {
		if !match.LocationsMatch(drone.Location, mission.Location) {
			out = append(out, models.Conflict{
				Kind:      models.KindDroneLocationMismatch,
				Severity:  models.SeverityMedium,
				Message:   fmt.Sprintf("Drone location (%s) differs from mission location (%s)", drone.Location, mission.Location),
				MissionID: mission.ID,
				DroneID:   drone.ID,
			})
		}
		if missing := match.Missing(mission.RequiredCapabilities, drone.Capabilities); len(missing) > 0 {
			out = append(out, models.Conflict{
				Kind:      models.KindCapabilityMismatch,
				Severity:  models.SeverityCritical,
				Message:   fmt.Sprintf("Drone %s lacks required capabilities: %s", drone.ID, strings.Join(missing, ", ")),
				MissionID: mission.ID,
				DroneID:   drone.ID,
				Missing:   missing,
			})
		}
	}
	if pilot != nil && drone != nil && !match.LocationsMatch(pilot.Location, drone.Location) {
		out = append(out, models.Conflict{
			Kind:      models.KindPilotDroneLocationMismatch,
			Severity:  models.SeverityMedium,
			Message:   fmt.Sprintf("Pilot %s (%s) and Drone %s (%s) are in different locations", pilot.ID, pilot.Location, drone.ID, drone.Location),
			MissionID: mission.ID,
			PilotID:   pilot.ID,
			DroneID:   drone.ID,
		})
	}

	metrics.Add(metrics.ConflictsFound, len(out))
	d.logger.Debug("conflict check", "mission_id", mission.ID, "pilot", pilotID(pilot), "drone", droneID(drone), "conflicts", len(out))
	return out, nil
}

// DetectMission checks a mission's current assignment. An assigned id
// missing from the snapshot is reported as a critical UNKNOWN_ASSIGNMENT
// conflict ahead of the rule results.
func (d *Detector) DetectMission(snap *models.Snapshot, m models.Mission) ([]models.Conflict, error) {
	var unknown []models.Conflict
	var pilot *models.Pilot
	var drone *models.Drone
	if m.AssignedPilotID != "" {
		if p, ok := snap.Pilot(m.AssignedPilotID); ok {
			pilot = &p
		} else {
			unknown = append(unknown, unknownAssignment(m, "pilot", m.AssignedPilotID))
		}
	}
	if m.AssignedDroneID != "" {
		if dr, ok := snap.Drone(m.AssignedDroneID); ok {
			drone = &dr
		} else {
			unknown = append(unknown, unknownAssignment(m, "drone", m.AssignedDroneID))
		}
	}

	conflicts, err := d.Detect(snap, pilot, drone, m)
	if err != nil {
		return nil, err
	}
	return append(unknown, conflicts...), nil
}

// DetectAll checks every mission that has an assigned pilot or drone, in
// mission ID order, whatever its status. Missions with malformed date
// ranges are logged and skipped; missions without conflicts are omitted.
func (d *Detector) DetectAll(snap *models.Snapshot) []models.MissionConflicts {
	var out []models.MissionConflicts

	for _, m := range snap.Missions() {
		if m.AssignedPilotID == "" && m.AssignedDroneID == "" {
			continue
		}
		conflicts, err := d.DetectMission(snap, m)
		if err != nil {
			d.logger.Warn("skipping mission with invalid dates", "mission_id", m.ID, "error", err)
			continue
		}
		if len(conflicts) == 0 {
			continue
		}
		out = append(out, models.MissionConflicts{MissionID: m.ID, Conflicts: conflicts})
	}
	return out
}

// Flatten concatenates per-mission results, preserving order.
func Flatten(results []models.MissionConflicts) []models.Conflict {
	var out []models.Conflict
	for i := range results {
		out = append(out, results[i].Conflicts...)
	}
	return out
}

// Summarize groups conflicts by severity for the dashboard.
func Summarize(conflicts []models.Conflict) models.ConflictSummary {
	s := models.ConflictSummary{
		TotalCount: len(conflicts),
		Critical:   models.SeverityGroup{Conflicts: []models.Conflict{}},
		High:       models.SeverityGroup{Conflicts: []models.Conflict{}},
		Medium:     models.SeverityGroup{Conflicts: []models.Conflict{}},
	}
	for i := range conflicts {
		switch conflicts[i].Severity {
		case models.SeverityCritical:
			s.Critical.Conflicts = append(s.Critical.Conflicts, conflicts[i])
		case models.SeverityHigh:
			s.High.Conflicts = append(s.High.Conflicts, conflicts[i])
		case models.SeverityMedium:
			s.Medium.Conflicts = append(s.Medium.Conflicts, conflicts[i])
		}
	}
	s.Critical.Count = len(s.Critical.Conflicts)
	s.High.Count = len(s.High.Conflicts)
	s.Medium.Count = len(s.Medium.Conflicts)
	return s
}

// Validate splits conflicts into blocking (critical) and advisory ones.
// An assignment is allowed iff nothing blocks.
func Validate(conflicts []models.Conflict) models.ValidationResult {
	res := models.ValidationResult{
		BlockingConflicts: []models.Conflict{},
		Warnings:          []models.Conflict{},
	}
	for i := range conflicts {
		if conflicts[i].Severity.Blocking() {
			res.BlockingConflicts = append(res.BlockingConflicts, conflicts[i])
		} else {
			res.Warnings = append(res.Warnings, conflicts[i])
		}
	}
	res.Allowed = len(res.BlockingConflicts) == 0
	return res
}

// HasCritical reports whether any conflict is critical.
func HasCritical(conflicts []models.Conflict) bool {
	for i := range conflicts {
		if conflicts[i].Severity == models.SeverityCritical {
			return true
		}
	}
	return false
}

func (d *Detector) pilotQualification(pilot *models.Pilot, mission models.Mission) []models.Conflict {
	var out []models.Conflict
	if missing := match.Missing(mission.RequiredSkills, pilot.Skills); len(missing) > 0 {
		out = append(out, models.Conflict{
			Kind:      models.KindSkillMismatch,
			Severity:  models.SeverityCritical,
			Message:   fmt.Sprintf("Pilot %s lacks required skills: %s", pilot.ID, strings.Join(missing, ", ")),
			MissionID: mission.ID,
			PilotID:   pilot.ID,
			Missing:   missing,
		})
	}
	if missing := match.Missing(mission.RequiredCertifications, pilot.Certifications); len(missing) > 0 {
		out = append(out, models.Conflict{
			Kind:      models.KindCertificationMismatch,
			Severity:  models.SeverityCritical,
			Message:   fmt.Sprintf("Pilot %s lacks required certifications: %s", pilot.ID, strings.Join(missing, ", ")),
			MissionID: mission.ID,
			PilotID:   pilot.ID,
			Missing:   missing,
		})
	}
	return out
}

// pilotDoubleBookings only considers open (pending or active) missions.
// Completed missions never occupy a slot, whatever their end date.
func pilotDoubleBookings(snap *models.Snapshot, pilot *models.Pilot, mission models.Mission) []models.Conflict {
	if snap == nil {
		return nil
	}
	var out []models.Conflict
	for _, other := range snap.MissionsForPilot(pilot.ID) {
		if other.ID == mission.ID || !other.Status.Open() {
			continue
		}
		if match.DatesOverlap(mission.Start, mission.End, other.Start, other.End) {
			out = append(out, models.Conflict{
				Kind:             models.KindPilotDoubleBooking,
				Severity:         models.SeverityCritical,
				Message:          fmt.Sprintf("Pilot %s is already assigned to mission %s during overlapping dates", pilot.ID, other.ID),
				MissionID:        mission.ID,
				PilotID:          pilot.ID,
				RelatedMissionID: other.ID,
			})
		}
	}
	return out
}

func droneDoubleBookings(snap *models.Snapshot, drone *models.Drone, mission models.Mission) []models.Conflict {
	if snap == nil {
		return nil
	}
	var out []models.Conflict
	for _, other := range snap.MissionsForDrone(drone.ID) {
		if other.ID == mission.ID || !other.Status.Open() {
			continue
		}
		if match.DatesOverlap(mission.Start, mission.End, other.Start, other.End) {
			out = append(out, models.Conflict{
				Kind:             models.KindDroneDoubleBooking,
				Severity:         models.SeverityCritical,
				Message:          fmt.Sprintf("Drone %s is already assigned to mission %s during overlapping dates", drone.ID, other.ID),
				MissionID:        mission.ID,
				DroneID:          drone.ID,
				RelatedMissionID: other.ID,
			})
		}
	}
	return out
}

// droneMaintenance keeps the status rule and the scheduled-window rule
// independent: a drone can trigger both.
func droneMaintenance(drone *models.Drone, mission models.Mission) []models.Conflict {
	var out []models.Conflict
	if drone.Status == models.DroneMaintenance {
		out = append(out, models.Conflict{
			Kind:      models.KindDroneInMaintenance,
			Severity:  models.SeverityCritical,
			Message:   fmt.Sprintf("Drone %s (%s) is currently in maintenance", drone.ID, drone.Model),
			MissionID: mission.ID,
			DroneID:   drone.ID,
		})
	}
	if drone.MaintenanceDue != nil && match.WithinRange(*drone.MaintenanceDue, mission.Start, mission.End) {
		due := *drone.MaintenanceDue
		out = append(out, models.Conflict{
			Kind:           models.KindMaintenanceWindow,
			Severity:       models.SeverityHigh,
			Message:        fmt.Sprintf("Drone %s has maintenance scheduled during mission dates (%s)", drone.ID, due.Format(dateLayout)),
			MissionID:      mission.ID,
			DroneID:        drone.ID,
			MaintenanceDue: &due,
		})
	}
	return out
}

func pilotAvailability(pilot *models.Pilot, mission models.Mission) []models.Conflict {
	var out []models.Conflict
	switch pilot.Status {
	case models.PilotOnLeave:
		out = append(out, models.Conflict{
			Kind:      models.KindPilotOnLeave,
			Severity:  models.SeverityHigh,
			Message:   fmt.Sprintf("Pilot %s (%s) is currently on leave", pilot.ID, pilot.Name),
			MissionID: mission.ID,
			PilotID:   pilot.ID,
		})
	case models.PilotUnavailable:
		out = append(out, models.Conflict{
			Kind:      models.KindPilotUnavailable,
			Severity:  models.SeverityHigh,
			Message:   fmt.Sprintf("Pilot %s (%s) is marked as unavailable", pilot.ID, pilot.Name),
			MissionID: mission.ID,
			PilotID:   pilot.ID,
		})
	}
	if pilot.AvailableFrom != nil && pilot.AvailableUntil != nil {
		if mission.Start.Before(*pilot.AvailableFrom) || mission.End.After(*pilot.AvailableUntil) {
			out = append(out, models.Conflict{
				Kind:      models.KindPilotAvailabilityMismatch,
				Severity:  models.SeverityHigh,
				Message:   fmt.Sprintf("Pilot %s is not available during mission dates", pilot.ID),
				MissionID: mission.ID,
				PilotID:   pilot.ID,
			})
		}
	}
	return out
}

func unknownAssignment(m models.Mission, entity, id string) models.Conflict {
	c := models.Conflict{
		Kind:      models.KindUnknownAssignment,
		Severity:  models.SeverityCritical,
		Message:   fmt.Sprintf("Mission %s references unknown %s %s", m.ID, entity, id),
		MissionID: m.ID,
	}
	if entity == "pilot" {
		c.PilotID = id
	} else {
		c.DroneID = id
	}
	return c
}

func pilotID(p *models.Pilot) string {
	if p == nil {
		return ""
	}
	return p.ID
}

func droneID(d *models.Drone) string {
	if d == nil {
		return ""
	}
	return d.ID
}
