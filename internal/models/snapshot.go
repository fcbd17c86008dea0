package models

import "sort"

// Snapshot is an immutable view of the three record tables.
// Lookups return copies; callers may mutate them freely.
type Snapshot struct {
	pilots   []Pilot
	drones   []Drone
	missions []Mission

	pilotIdx   map[string]int
	droneIdx   map[string]int
	missionIdx map[string]int
}

// NewSnapshot copies the given tables and indexes them by ID.
// Records are kept in ascending ID order. On duplicate IDs the last record wins.
func NewSnapshot(pilots []Pilot, drones []Drone, missions []Mission) *Snapshot {
	s := &Snapshot{
		pilotIdx:   make(map[string]int, len(pilots)),
		droneIdx:   make(map[string]int, len(drones)),
		missionIdx: make(map[string]int, len(missions)),
	}
	for i := range pilots {
		if at, ok := s.pilotIdx[pilots[i].ID]; ok {
			s.pilots[at] = pilots[i].Clone()
			continue
		}
		s.pilotIdx[pilots[i].ID] = len(s.pilots)
		s.pilots = append(s.pilots, pilots[i].Clone())
	}
	for i := range drones {
		if at, ok := s.droneIdx[drones[i].ID]; ok {
			s.drones[at] = drones[i].Clone()
			continue
		}
		s.droneIdx[drones[i].ID] = len(s.drones)
		s.drones = append(s.drones, drones[i].Clone())
	}
	for i := range missions {
		if at, ok := s.missionIdx[missions[i].ID]; ok {
			s.missions[at] = missions[i].Clone()
			continue
		}
		s.missionIdx[missions[i].ID] = len(s.missions)
		s.missions = append(s.missions, missions[i].Clone())
	}

	sort.Slice(s.pilots, func(i, j int) bool { return s.pilots[i].ID < s.pilots[j].ID })
	sort.Slice(s.drones, func(i, j int) bool { return s.drones[i].ID < s.drones[j].ID })
	sort.Slice(s.missions, func(i, j int) bool { return s.missions[i].ID < s.missions[j].ID })
	for i := range s.pilots {
		s.pilotIdx[s.pilots[i].ID] = i
	}
	for i := range s.drones {
		s.droneIdx[s.drones[i].ID] = i
	}
	for i := range s.missions {
		s.missionIdx[s.missions[i].ID] = i
	}
	return s
}

// Pilots returns a copy of every pilot.
func (s *Snapshot) Pilots() []Pilot {
	out := make([]Pilot, len(s.pilots))
	for i := range s.pilots {
		out[i] = s.pilots[i].Clone()
	}
	return out
}

// Drones returns a copy of every drone.
func (s *Snapshot) Drones() []Drone {
	out := make([]Drone, len(s.drones))
	for i := range s.drones {
		out[i] = s.drones[i].Clone()
	}
	return out
}

// Missions returns a copy of every mission.
func (s *Snapshot) Missions() []Mission {
	out := make([]Mission, len(s.missions))
	for i := range s.missions {
		out[i] = s.missions[i].Clone()
	}
	return out
}

// Pilot looks up a pilot by ID.
func (s *Snapshot) Pilot(id string) (Pilot, bool) {
	i, ok := s.pilotIdx[id]
	if !ok {
		return Pilot{}, false
	}
	return s.pilots[i].Clone(), true
}

// Drone looks up a drone by ID.
func (s *Snapshot) Drone(id string) (Drone, bool) {
	i, ok := s.droneIdx[id]
	if !ok {
		return Drone{}, false
	}
	return s.drones[i].Clone(), true
}

// Mission looks up a mission by ID.
func (s *Snapshot) Mission(id string) (Mission, bool) {
	i, ok := s.missionIdx[id]
	if !ok {
		return Mission{}, false
	}
	return s.missions[i].Clone(), true
}

// MissionsForPilot derives the missions a pilot is assigned to, in ID order.
func (s *Snapshot) MissionsForPilot(pilotID string) []Mission {
	var out []Mission
	for i := range s.missions {
		if pilotID != "" && s.missions[i].AssignedPilotID == pilotID {
			out = append(out, s.missions[i].Clone())
		}
	}
	return out
}

// MissionsForDrone derives the missions a drone is assigned to, in ID order.
func (s *Snapshot) MissionsForDrone(droneID string) []Mission {
	var out []Mission
	for i := range s.missions {
		if droneID != "" && s.missions[i].AssignedDroneID == droneID {
			out = append(out, s.missions[i].Clone())
		}
	}
	return out
}
