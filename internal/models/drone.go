package models

import "time"

// DroneStatus is the operational state of a drone.
type DroneStatus string

const (
	DroneAvailable   DroneStatus = "Available"
	DroneDeployed    DroneStatus = "Deployed"
	DroneMaintenance DroneStatus = "Maintenance"
)

// ValidDroneStatuses is the set of all valid drone statuses.
var ValidDroneStatuses = []DroneStatus{
	DroneAvailable,
	DroneDeployed,
	DroneMaintenance,
}

// IsValid returns true if the drone status is recognized.
func (s DroneStatus) IsValid() bool {
	for _, v := range ValidDroneStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// ParseDroneStatus matches a status case-insensitively.
func ParseDroneStatus(raw string) (DroneStatus, bool) {
	key := statusKey(raw)
	for _, v := range ValidDroneStatuses {
		if statusKey(string(v)) == key {
			return v, true
		}
	}
	return "", false
}

// Drone is a member of the drone fleet.
type Drone struct {
	ID                string      `json:"drone_id" yaml:"drone_id"`
	Model             string      `json:"model" yaml:"model"`
	Capabilities      []string    `json:"capabilities" yaml:"capabilities"`
	Location          string      `json:"location" yaml:"location"`
	Status            DroneStatus `json:"status" yaml:"status"`
	MaintenanceDue    *time.Time  `json:"maintenance_due_date,omitempty" yaml:"maintenance_due_date,omitempty"`
	FlightHours       int         `json:"flight_hours" yaml:"flight_hours"`
	CurrentAssignment string      `json:"current_assignment,omitempty" yaml:"current_assignment,omitempty"`
	MaxRangeKM        float64     `json:"max_range_km,omitempty" yaml:"max_range_km,omitempty"`
}

// Clone returns a copy that shares no slices or pointers with d.
func (d Drone) Clone() Drone {
	d.Capabilities = cloneStrings(d.Capabilities)
	d.MaintenanceDue = cloneTime(d.MaintenanceDue)
	return d
}
