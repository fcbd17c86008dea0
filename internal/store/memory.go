package store

import (
	"context"
	"sort"
	"sync"

	"github.com/vidhaanviswas/skylark-drone-coordinator/internal/models"
)

// MemoryStore is an in-memory implementation of Store. It backs the
// memory backend and most tests.
type MemoryStore struct {
	mu       sync.RWMutex
	pilots   map[string]models.Pilot
	drones   map[string]models.Drone
	missions map[string]models.Mission
	events   []models.AssignmentEvent
}

// NewMemoryStore creates an empty memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		pilots:   make(map[string]models.Pilot),
		drones:   make(map[string]models.Drone),
		missions: make(map[string]models.Mission),
	}
}

// NewMemoryStoreFrom creates a memory store seeded with the given records.
func NewMemoryStoreFrom(pilots []models.Pilot, drones []models.Drone, missions []models.Mission) *MemoryStore {
	m := NewMemoryStore()
	for i := range pilots {
		m.pilots[pilots[i].ID] = pilots[i].Clone()
	}
	for i := range drones {
		m.drones[drones[i].ID] = drones[i].Clone()
	}
	for i := range missions {
		m.missions[missions[i].ID] = missions[i].Clone()
	}
	return m
}

// LoadPilots returns all pilots ordered by ID.
func (m *MemoryStore) LoadPilots(_ context.Context) ([]models.Pilot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Pilot, 0, len(m.pilots))
	for _, p := range m.pilots {
		out = append(out, p.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// LoadDrones returns all drones ordered by ID.
func (m *MemoryStore) LoadDrones(_ context.Context) ([]models.Drone, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Drone, 0, len(m.drones))
	for _, d := range m.drones {
		out = append(out, d.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// LoadMissions returns all missions ordered by ID.
func (m *MemoryStore) LoadMissions(_ context.Context) ([]models.Mission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Mission, 0, len(m.missions))
	for _, ms := range m.missions {
		out = append(out, ms.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// LoadSnapshot reads all three tables under a single lock.
func (m *MemoryStore) LoadSnapshot(_ context.Context) (*models.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	pilots := make([]models.Pilot, 0, len(m.pilots))
	for _, p := range m.pilots {
		pilots = append(pilots, p)
	}
	drones := make([]models.Drone, 0, len(m.drones))
	for _, d := range m.drones {
		drones = append(drones, d)
	}
	missions := make([]models.Mission, 0, len(m.missions))
	for _, ms := range m.missions {
		missions = append(missions, ms)
	}
	return models.NewSnapshot(pilots, drones, missions), nil
}

// SavePilot stores a copy of p.
func (m *MemoryStore) SavePilot(_ context.Context, p models.Pilot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pilots[p.ID] = p.Clone()
	return nil
}

// SaveDrone stores a copy of d.
func (m *MemoryStore) SaveDrone(_ context.Context, d models.Drone) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drones[d.ID] = d.Clone()
	return nil
}

// SaveMission stores a copy of ms.
func (m *MemoryStore) SaveMission(_ context.Context, ms models.Mission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.missions[ms.ID] = ms.Clone()
	return nil
}

// RecordEvent appends ev to the in-memory audit trail.
func (m *MemoryStore) RecordEvent(_ context.Context, ev models.AssignmentEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
	return nil
}

// ListEvents returns recorded events, oldest first. An empty missionID
// returns every event.
func (m *MemoryStore) ListEvents(_ context.Context, missionID string) ([]models.AssignmentEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.AssignmentEvent, 0, len(m.events))
	for _, ev := range m.events {
		if missionID == "" || ev.MissionID == missionID {
			out = append(out, ev)
		}
	}
	return out, nil
}

// Close is a no-op for the memory store.
func (m *MemoryStore) Close() error {
	return nil
}
