package rank

import "github.com/vidhaanviswas/skylark-drone-coordinator/internal/models"

// ReassignResult holds the records changed by a reassignment. The
// caller persists them.
type ReassignResult struct {
	Mission    models.Mission `json:"mission"`
	NewPilot   *models.Pilot  `json:"new_pilot,omitempty"`
	FreedPilot *models.Pilot  `json:"freed_pilot,omitempty"`
	NewDrone   *models.Drone  `json:"new_drone,omitempty"`
	FreedDrone *models.Drone  `json:"freed_drone,omitempty"`
	PreviousID string         `json:"previous_id,omitempty"`
}

// Reassign points mission at newPilot and marks that pilot Assigned.
// The previous pilot goes back to Available only if it is currently
// Assigned and holds no other pending or active mission.
func Reassign(snap *models.Snapshot, mission models.Mission, newPilot models.Pilot) ReassignResult {
	res := ReassignResult{PreviousID: mission.AssignedPilotID}

	if prev := mission.AssignedPilotID; prev != "" && prev != newPilot.ID {
		if p, ok := snap.Pilot(prev); ok && p.Status == models.PilotAssigned && !pilotEngaged(snap, prev, mission.ID) {
			p.Status = models.PilotAvailable
			p.CurrentAssignment = ""
			res.FreedPilot = &p
		}
	}

	m := mission.Clone()
	m.AssignedPilotID = newPilot.ID
	res.Mission = m

	np := newPilot.Clone()
	np.Status = models.PilotAssigned
	np.CurrentAssignment = mission.ID
	res.NewPilot = &np
	return res
}

// ReassignDrone is the drone counterpart of Reassign: the new drone is
// marked Deployed and the previous one returns to Available if it is
// Deployed with nothing else open.
func ReassignDrone(snap *models.Snapshot, mission models.Mission, newDrone models.Drone) ReassignResult {
	res := ReassignResult{PreviousID: mission.AssignedDroneID}

	if prev := mission.AssignedDroneID; prev != "" && prev != newDrone.ID {
		if d, ok := snap.Drone(prev); ok && d.Status == models.DroneDeployed && !droneEngaged(snap, prev, mission.ID) {
			d.Status = models.DroneAvailable
			d.CurrentAssignment = ""
			res.FreedDrone = &d
		}
	}

	m := mission.Clone()
	m.AssignedDroneID = newDrone.ID
	res.Mission = m

	nd := newDrone.Clone()
	nd.Status = models.DroneDeployed
	nd.CurrentAssignment = mission.ID
	res.NewDrone = &nd
	return res
}

func pilotEngaged(snap *models.Snapshot, pilotID, exceptMission string) bool {
	for _, m := range snap.MissionsForPilot(pilotID) {
		if m.ID != exceptMission && m.Status.Open() {
			return true
		}
	}
	return false
}

func droneEngaged(snap *models.Snapshot, droneID, exceptMission string) bool {
	for _, m := range snap.MissionsForDrone(droneID) {
		if m.ID != exceptMission && m.Status.Open() {
			return true
		}
	}
	return false
}
