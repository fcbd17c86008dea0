package store

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidhaanviswas/skylark-drone-coordinator/internal/models"
)

func TestLoadFixtureFile(t *testing.T) {
	st, err := LoadFixtureFile("testdata/fleet.yaml")
	require.NoError(t, err)

	snap, err := Snapshot(context.Background(), st)
	require.NoError(t, err)
	require.Len(t, snap.Pilots(), 2)
	require.Len(t, snap.Drones(), 1)
	require.Len(t, snap.Missions(), 2)

	p1, ok := snap.Pilot("P1")
	require.True(t, ok)
	assert.Equal(t, []string{"Mapping", "Thermal"}, p1.Skills)
	assert.Equal(t, []string{"Part107"}, p1.Certifications)
	assert.InDelta(t, 500.0, p1.ExperienceHours, 1e-9)

	p2, ok := snap.Pilot("P2")
	require.True(t, ok)
	assert.Equal(t, models.PilotOnLeave, p2.Status)
	require.NotNil(t, p2.AvailableFrom)
	assert.Equal(t, "2024-03-10", p2.AvailableFrom.Format(DateLayout))

	d1, ok := snap.Drone("D1")
	require.True(t, ok)
	require.NotNil(t, d1.MaintenanceDue)
	assert.Equal(t, "2024-03-04", d1.MaintenanceDue.Format(DateLayout))
	assert.Equal(t, 340, d1.FlightHours)

	m1, ok := snap.Mission("M1")
	require.True(t, ok)
	assert.Equal(t, 2, m1.Priority)

	m2, ok := snap.Mission("M2")
	require.True(t, ok)
	assert.Equal(t, "Green Fields", m2.Client)
	assert.Equal(t, "P1", m2.AssignedPilotID)
	assert.Empty(t, m2.AssignedDroneID)
	assert.Equal(t, models.MissionActive, m2.Status)
}

func TestLoadFixture_Empty(t *testing.T) {
	st, err := LoadFixture(strings.NewReader(""))
	require.NoError(t, err)
	pilots, err := st.LoadPilots(context.Background())
	require.NoError(t, err)
	assert.Empty(t, pilots)
}

func TestLoadFixture_Malformed(t *testing.T) {
	_, err := LoadFixture(strings.NewReader("missions:\n  - mission_id: M1\n    start_date: 2024-03-05\n    end_date: 2024-03-01\n"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedRecord)
}

func TestLoadFixture_DuplicateID(t *testing.T) {
	_, err := LoadFixture(strings.NewReader("pilots:\n  - pilot_id: P1\n    name: Asha\n  - pilot_id: P1\n    name: Ravi\n"))
	var mre *MalformedRecordError
	require.ErrorAs(t, err, &mre)
	assert.Equal(t, "pilot", mre.Entity)
	assert.Equal(t, 2, mre.Row)
	assert.Equal(t, "duplicate id", mre.Reason)
}
