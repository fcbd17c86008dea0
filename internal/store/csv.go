package store

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/vidhaanviswas/skylark-drone-coordinator/internal/models"
)

// File names used by the CSV directory backend.
const (
	PilotsFile   = "pilot_roster.csv"
	DronesFile   = "drone_fleet.csv"
	MissionsFile = "missions.csv"
)

// CSVStore keeps each table in a CSV file inside one directory. A missing
// file is an empty table. Saves touch only the record's own row: other
// rows, including ones that would not decode, are written back verbatim,
// and columns the store does not know are kept. Each save replaces the
// whole file atomically.
type CSVStore struct {
	dir string
	mu  sync.Mutex
}

// NewCSVStore creates a CSV store rooted at dir, creating the directory if needed.
func NewCSVStore(dir string) (*CSVStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data dir %s: %w", dir, err)
	}
	return &CSVStore{dir: dir}, nil
}

// Dir returns the directory the store reads from.
func (s *CSVStore) Dir() string { return s.dir }

// LoadPilots reads the pilot roster.
func (s *CSVStore) LoadPilots(ctx context.Context) ([]models.Pilot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadPilots(ctx)
}

// LoadDrones reads the drone fleet.
func (s *CSVStore) LoadDrones(ctx context.Context) ([]models.Drone, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadDrones(ctx)
}

// LoadMissions reads the mission table.
func (s *CSVStore) LoadMissions(ctx context.Context) ([]models.Mission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadMissions(ctx)
}

// SavePilot replaces the pilot's row, or appends it.
func (s *CSVStore) SavePilot(ctx context.Context, p models.Pilot) error {
	return s.saveRow(ctx, PilotsFile, "pilot_id", p.ID, PilotHeaders, EncodePilot(p))
}

// SaveDrone replaces the drone's row, or appends it.
func (s *CSVStore) SaveDrone(ctx context.Context, d models.Drone) error {
	return s.saveRow(ctx, DronesFile, "drone_id", d.ID, DroneHeaders, EncodeDrone(d))
}

// SaveMission replaces the mission's row, or appends it.
func (s *CSVStore) SaveMission(ctx context.Context, m models.Mission) error {
	return s.saveRow(ctx, MissionsFile, "mission_id", m.ID, MissionHeaders, EncodeMission(m))
}

// Close is a no-op; files are not held open.
func (s *CSVStore) Close() error { return nil }

func (s *CSVStore) loadPilots(ctx context.Context) ([]models.Pilot, error) {
	rows, err := s.readTable(ctx, PilotsFile)
	if err != nil {
		return nil, err
	}
	out := make([]models.Pilot, 0, len(rows))
	for i, r := range rows {
		p, err := DecodePilot(r, i+1)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", PilotsFile, err)
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *CSVStore) loadDrones(ctx context.Context) ([]models.Drone, error) {
	rows, err := s.readTable(ctx, DronesFile)
	if err != nil {
		return nil, err
	}
	out := make([]models.Drone, 0, len(rows))
	for i, r := range rows {
		d, err := DecodeDrone(r, i+1)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", DronesFile, err)
		}
		out = append(out, d)
	}
	return out, nil
}

func (s *CSVStore) loadMissions(ctx context.Context) ([]models.Mission, error) {
	rows, err := s.readTable(ctx, MissionsFile)
	if err != nil {
		return nil, err
	}
	out := make([]models.Mission, 0, len(rows))
	for i, r := range rows {
		m, err := DecodeMission(r, i+1)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", MissionsFile, err)
		}
		out = append(out, m)
	}
	return out, nil
}

func (s *CSVStore) readTable(ctx context.Context, name string) ([]Row, error) {
	header, records, err := s.readRaw(ctx, name)
	if err != nil || header == nil {
		return nil, err
	}
	return RowsFromTable(header, records), nil
}

// readRaw returns the file's header and records as stored. A missing or
// empty file yields a nil header.
func (s *CSVStore) readRaw(ctx context.Context, name string) ([]string, [][]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	f, err := os.Open(filepath.Join(s.dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("opening %s: %w", name, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("reading %s header: %w", name, err)
	}
	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("reading %s: %w", name, err)
	}
	return header, records, nil
}

// saveRow rewrites the row whose id column matches id, or appends one.
// Canonical columns missing from the file are added at the end.
func (s *CSVStore) saveRow(ctx context.Context, name, idKey, id string, canonical []string, row Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	header, records, err := s.readRaw(ctx, name)
	if err != nil {
		return err
	}
	if header == nil {
		return s.writeTable(name, canonical, [][]string{row.Values(canonical)})
	}

	header = withColumns(header, canonical)
	idCol := columnIndex(header, idKey)
	for i, rec := range records {
		if idCol < len(rec) && strings.TrimSpace(rec[idCol]) == id {
			records[i] = row.Merge(header, rec)
			return s.writeTable(name, header, records)
		}
	}
	return s.writeTable(name, header, append(records, row.Merge(header, nil)))
}

// writeTable writes to a temp file in the same directory and renames it
// over the target.
func (s *CSVStore) writeTable(name string, header []string, records [][]string) error {
	tmp, err := os.CreateTemp(s.dir, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file for %s: %w", name, err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // already renamed on success

	w := csv.NewWriter(tmp)
	if err := w.Write(header); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing %s: %w", name, err)
	}
	if err := w.WriteAll(records); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, name)); err != nil {
		return fmt.Errorf("replacing %s: %w", name, err)
	}
	return nil
}
