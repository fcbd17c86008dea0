package store

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// fixtureDoc is the YAML fixture layout: three lists of column-keyed records.
// List cells may be YAML sequences or comma-separated strings.
type fixtureDoc struct {
	Pilots   []map[string]any `yaml:"pilots"`
	Drones   []map[string]any `yaml:"drones"`
	Missions []map[string]any `yaml:"missions"`
}

// LoadFixture decodes a YAML fixture into a memory store. Records go
// through the same row codec as the tabular backends.
func LoadFixture(r io.Reader) (*MemoryStore, error) {
	var doc fixtureDoc
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decoding fixture: %w", err)
	}

	st := NewMemoryStore()
	for i, rec := range doc.Pilots {
		p, err := DecodePilot(fixtureRow(rec), i+1)
		if err != nil {
			return nil, fmt.Errorf("fixture pilots: %w", err)
		}
		if _, dup := st.pilots[p.ID]; dup {
			return nil, fmt.Errorf("fixture pilots: %w", &MalformedRecordError{Entity: "pilot", Row: i + 1, ID: p.ID, Reason: "duplicate id"})
		}
		st.pilots[p.ID] = p
	}
	for i, rec := range doc.Drones {
		d, err := DecodeDrone(fixtureRow(rec), i+1)
		if err != nil {
			return nil, fmt.Errorf("fixture drones: %w", err)
		}
		if _, dup := st.drones[d.ID]; dup {
			return nil, fmt.Errorf("fixture drones: %w", &MalformedRecordError{Entity: "drone", Row: i + 1, ID: d.ID, Reason: "duplicate id"})
		}
		st.drones[d.ID] = d
	}
	for i, rec := range doc.Missions {
		m, err := DecodeMission(fixtureRow(rec), i+1)
		if err != nil {
			return nil, fmt.Errorf("fixture missions: %w", err)
		}
		if _, dup := st.missions[m.ID]; dup {
			return nil, fmt.Errorf("fixture missions: %w", &MalformedRecordError{Entity: "mission", Row: i + 1, ID: m.ID, Reason: "duplicate id"})
		}
		st.missions[m.ID] = m
	}
	return st, nil
}

// LoadFixtureFile opens path and decodes it with LoadFixture.
func LoadFixtureFile(path string) (*MemoryStore, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening fixture: %w", err)
	}
	defer f.Close()
	return LoadFixture(f)
}

func fixtureRow(rec map[string]any) Row {
	row := make(Row, len(rec))
	for k, v := range rec {
		row[normalizeHeader(k)] = fixtureCell(v)
	}
	return row
}

func fixtureCell(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case time.Time:
		return val.Format(DateLayout)
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			parts = append(parts, fixtureCell(item))
		}
		return strings.Join(parts, ",")
	default:
		return fmt.Sprint(val)
	}
}
