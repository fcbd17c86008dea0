package conflict

import (
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidhaanviswas/skylark-drone-coordinator/internal/models"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func dayPtr(s string) *time.Time {
	t := day(s)
	return &t
}

// missionM1 is the reference mission: Mapping + Part107 in Pune, 1-5 March 2024.
func missionM1() models.Mission {
	return models.Mission{
		ID:                     "M1",
		Client:                 "Skyline Surveys",
		Location:               "Pune",
		Start:                  day("2024-03-01"),
		End:                    day("2024-03-05"),
		RequiredSkills:         []string{"Mapping"},
		RequiredCertifications: []string{"Part107"},
		Priority:               2,
		Status:                 models.MissionPending,
	}
}

func pilotP1() models.Pilot {
	return models.Pilot{
		ID:              "P1",
		Name:            "Arjun",
		Skills:          []string{"Mapping", "Thermal"},
		Certifications:  []string{"Part107"},
		Location:        "Pune",
		Status:          models.PilotAvailable,
		Priority:        2,
		ExperienceHours: 500,
	}
}

func droneD1() models.Drone {
	return models.Drone{
		ID:           "D1",
		Model:        "DJI M300",
		Capabilities: []string{"RGB", "Thermal"},
		Location:     "Pune",
		Status:       models.DroneAvailable,
	}
}

func kinds(conflicts []models.Conflict) []models.ConflictKind {
	out := make([]models.ConflictKind, 0, len(conflicts))
	for i := range conflicts {
		out = append(out, conflicts[i].Kind)
	}
	return out
}

func TestDetect_QualifiedPilotHasNoConflicts(t *testing.T) {
	d := NewDetector(newTestLogger())
	m := missionM1()
	p := pilotP1()
	snap := models.NewSnapshot([]models.Pilot{p}, nil, []models.Mission{m})

	conflicts, err := d.Detect(snap, &p, nil, m)
	require.NoError(t, err)
	assert.Empty(t, conflicts)
	assert.True(t, Validate(conflicts).Allowed)
}

func TestDetect_SkillMismatchBlocks(t *testing.T) {
	d := NewDetector(newTestLogger())
	m := missionM1()
	p := pilotP1()
	p.ID = "P2"
	p.Skills = []string{"Thermal"}
	snap := models.NewSnapshot([]models.Pilot{p}, nil, []models.Mission{m})

	conflicts, err := d.Detect(snap, &p, nil, m)
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, models.KindSkillMismatch, conflicts[0].Kind)
	assert.Equal(t, models.SeverityCritical, conflicts[0].Severity)
	assert.Equal(t, []string{"Mapping"}, conflicts[0].Missing)

	res := Validate(conflicts)
	assert.False(t, res.Allowed)
	assert.Len(t, res.BlockingConflicts, 1)
	assert.Empty(t, res.Warnings)
}

func TestDetect_CertificationMismatchIsCaseInsensitive(t *testing.T) {
	d := NewDetector(newTestLogger())
	m := missionM1()
	p := pilotP1()
	p.Certifications = []string{"PART107"}

	conflicts, err := d.Detect(models.NewSnapshot(nil, nil, nil), &p, nil, m)
	require.NoError(t, err)
	assert.Empty(t, conflicts)

	p.Certifications = nil
	conflicts, err = d.Detect(models.NewSnapshot(nil, nil, nil), &p, nil, m)
	require.NoError(t, err)
	assert.Equal(t, []models.ConflictKind{models.KindCertificationMismatch}, kinds(conflicts))
}

func TestDetect_PilotDoubleBooking(t *testing.T) {
	d := NewDetector(newTestLogger())
	m1 := missionM1()
	p3 := pilotP1()
	p3.ID = "P3"
	m2 := models.Mission{
		ID:              "M2",
		Location:        "Pune",
		Start:           day("2024-03-03"),
		End:             day("2024-03-10"),
		Status:          models.MissionActive,
		AssignedPilotID: "P3",
	}
	snap := models.NewSnapshot([]models.Pilot{p3}, nil, []models.Mission{m1, m2})

	conflicts, err := d.Detect(snap, &p3, nil, m1)
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, models.KindPilotDoubleBooking, conflicts[0].Kind)
	assert.Equal(t, models.SeverityCritical, conflicts[0].Severity)
	assert.Equal(t, "M2", conflicts[0].RelatedMissionID)
}

func TestDetect_DoubleBookingIgnoresClosedAndAdjacentMissions(t *testing.T) {
	d := NewDetector(newTestLogger())
	m1 := missionM1()
	p := pilotP1()
	others := []models.Mission{
		{ID: "M2", Start: day("2024-03-02"), End: day("2024-03-04"), Status: models.MissionCompleted, AssignedPilotID: "P1"},
		{ID: "M3", Start: day("2024-03-02"), End: day("2024-03-04"), Status: models.MissionCancelled, AssignedPilotID: "P1"},
		{ID: "M4", Start: day("2024-03-05"), End: day("2024-03-08"), Status: models.MissionPending, AssignedPilotID: "P1"},
		{ID: "M5", Start: day("2024-02-20"), End: day("2024-03-01"), Status: models.MissionActive, AssignedPilotID: "P1"},
	}
	snap := models.NewSnapshot([]models.Pilot{p}, nil, append([]models.Mission{m1}, others...))

	conflicts, err := d.Detect(snap, &p, nil, m1)
	require.NoError(t, err)
	assert.Empty(t, conflicts)
}

func TestDetect_DroneDoubleBooking(t *testing.T) {
	d := NewDetector(newTestLogger())
	m1 := missionM1()
	dr := droneD1()
	m2 := models.Mission{ID: "M2", Start: day("2024-03-04"), End: day("2024-03-06"), Status: models.MissionPending, AssignedDroneID: "D1"}
	snap := models.NewSnapshot(nil, []models.Drone{dr}, []models.Mission{m1, m2})

	conflicts, err := d.Detect(snap, nil, &dr, m1)
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, models.KindDroneDoubleBooking, conflicts[0].Kind)
	assert.Equal(t, "M2", conflicts[0].RelatedMissionID)
}

func TestDetect_MaintenanceWindowIsAdvisory(t *testing.T) {
	d := NewDetector(newTestLogger())
	m := missionM1()
	dr := droneD1()
	dr.MaintenanceDue = dayPtr("2024-03-04")

	conflicts, err := d.Detect(models.NewSnapshot(nil, []models.Drone{dr}, []models.Mission{m}), nil, &dr, m)
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, models.KindMaintenanceWindow, conflicts[0].Kind)
	assert.Equal(t, models.SeverityHigh, conflicts[0].Severity)
	require.NotNil(t, conflicts[0].MaintenanceDue)
	assert.True(t, day("2024-03-04").Equal(*conflicts[0].MaintenanceDue))

	res := Validate(conflicts)
	assert.True(t, res.Allowed)
	assert.Len(t, res.Warnings, 1)
}

func TestDetect_MaintenanceWindowBoundaries(t *testing.T) {
	d := NewDetector(newTestLogger())
	m := missionM1()
	tests := []struct {
		due  *time.Time
		want bool
	}{
		{nil, false},
		{dayPtr("2024-03-01"), true},
		{dayPtr("2024-03-05"), true},
		{dayPtr("2024-02-29"), false},
		{dayPtr("2024-03-06"), false},
	}
	for _, tt := range tests {
		dr := droneD1()
		dr.MaintenanceDue = tt.due
		conflicts, err := d.Detect(nil, nil, &dr, m)
		require.NoError(t, err)
		assert.Equal(t, tt.want, len(conflicts) == 1, "due=%v", tt.due)
	}
}

func TestDetect_MaintenanceStatusAndWindowAreIndependent(t *testing.T) {
	d := NewDetector(newTestLogger())
	m := missionM1()
	dr := droneD1()
	dr.Status = models.DroneMaintenance
	dr.MaintenanceDue = dayPtr("2024-03-02")

	conflicts, err := d.Detect(nil, nil, &dr, m)
	require.NoError(t, err)
	assert.Equal(t, []models.ConflictKind{models.KindDroneInMaintenance, models.KindMaintenanceWindow}, kinds(conflicts))
	assert.False(t, Validate(conflicts).Allowed)
}

func TestDetect_DeployedDroneIsNotAConflict(t *testing.T) {
	d := NewDetector(newTestLogger())
	m := missionM1()
	dr := droneD1()
	dr.Status = models.DroneDeployed

	conflicts, err := d.Detect(nil, nil, &dr, m)
	require.NoError(t, err)
	assert.Empty(t, conflicts)
}

func TestDetect_PilotStatusAndLocation(t *testing.T) {
	d := NewDetector(newTestLogger())
	m := missionM1()

	onLeave := pilotP1()
	onLeave.Status = models.PilotOnLeave
	onLeave.Location = "Mumbai"
	conflicts, err := d.Detect(nil, &onLeave, nil, m)
	require.NoError(t, err)
	assert.Equal(t, []models.ConflictKind{models.KindPilotOnLeave, models.KindPilotLocationMismatch}, kinds(conflicts))
	assert.Equal(t, models.SeverityHigh, conflicts[0].Severity)
	assert.Equal(t, models.SeverityMedium, conflicts[1].Severity)

	unavailable := pilotP1()
	unavailable.Status = models.PilotUnavailable
	unavailable.Location = "PUNE"
	conflicts, err = d.Detect(nil, &unavailable, nil, m)
	require.NoError(t, err)
	assert.Equal(t, []models.ConflictKind{models.KindPilotUnavailable}, kinds(conflicts))
}

func TestDetect_AvailabilityWindow(t *testing.T) {
	d := NewDetector(newTestLogger())
	m := missionM1()
	p := pilotP1()
	p.AvailableFrom = dayPtr("2024-03-02")
	p.AvailableUntil = dayPtr("2024-03-31")

	conflicts, err := d.Detect(nil, &p, nil, m)
	require.NoError(t, err)
	assert.Equal(t, []models.ConflictKind{models.KindPilotAvailabilityMismatch}, kinds(conflicts))

	p.AvailableFrom = dayPtr("2024-03-01")
	conflicts, err = d.Detect(nil, &p, nil, m)
	require.NoError(t, err)
	assert.Empty(t, conflicts)
}

func TestDetect_AllRulesEmittedInOrder(t *testing.T) {
	d := NewDetector(newTestLogger())
	m := missionM1()
	m.RequiredCapabilities = []string{"LiDAR"}
	p := models.Pilot{ID: "PX", Name: "Nobody", Location: "Delhi", Status: models.PilotOnLeave, Priority: 5}
	dr := models.Drone{ID: "DX", Model: "Mini", Location: "Chennai", Status: models.DroneMaintenance, MaintenanceDue: dayPtr("2024-03-03")}
	busy := models.Mission{ID: "M9", Start: day("2024-03-02"), End: day("2024-03-03"), Status: models.MissionActive, AssignedPilotID: "PX", AssignedDroneID: "DX"}
	snap := models.NewSnapshot([]models.Pilot{p}, []models.Drone{dr}, []models.Mission{m, busy})

	conflicts, err := d.Detect(snap, &p, &dr, m)
	require.NoError(t, err)
	want := []models.ConflictKind{
		models.KindSkillMismatch,
		models.KindCertificationMismatch,
		models.KindPilotDoubleBooking,
		models.KindDroneDoubleBooking,
		models.KindDroneInMaintenance,
		models.KindMaintenanceWindow,
		models.KindPilotOnLeave,
		models.KindPilotLocationMismatch,
		models.KindDroneLocationMismatch,
		models.KindCapabilityMismatch,
		models.KindPilotDroneLocationMismatch,
	}
	if diff := cmp.Diff(want, kinds(conflicts)); diff != "" {
		t.Fatalf("conflict order mismatch (-want +got):\n%s", diff)
	}
}

func TestDetect_Idempotent(t *testing.T) {
	d := NewDetector(newTestLogger())
	m := missionM1()
	p := pilotP1()
	p.Skills = nil
	p.Location = "Nagpur"
	dr := droneD1()
	dr.MaintenanceDue = dayPtr("2024-03-02")
	snap := models.NewSnapshot([]models.Pilot{p}, []models.Drone{dr}, []models.Mission{m})

	first, err := d.Detect(snap, &p, &dr, m)
	require.NoError(t, err)
	second, err := d.Detect(snap, &p, &dr, m)
	require.NoError(t, err)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("repeated detection differs (-first +second):\n%s", diff)
	}
}

func TestDetect_InvalidDateRange(t *testing.T) {
	d := NewDetector(newTestLogger())
	m := missionM1()
	m.Start, m.End = m.End, m.Start
	p := pilotP1()

	_, err := d.Detect(nil, &p, nil, m)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrInvalidDateRange)
}

func TestDetectAll(t *testing.T) {
	d := NewDetector(newTestLogger())
	m1 := missionM1()
	m1.AssignedPilotID = "P2"
	m2 := models.Mission{ID: "M2", Location: "Pune", Start: day("2024-04-01"), End: day("2024-04-02"), Status: models.MissionPending}
	m3 := models.Mission{ID: "M3", Location: "Pune", Start: day("2024-04-01"), End: day("2024-04-02"), Status: models.MissionActive, AssignedDroneID: "D404"}
	m4 := models.Mission{ID: "M4", Location: "Pune", Start: day("2024-04-05"), End: day("2024-04-06"), Status: models.MissionActive, AssignedPilotID: "P1"}
	p1 := pilotP1()
	p2 := pilotP1()
	p2.ID = "P2"
	p2.Skills = []string{"Thermal"}
	snap := models.NewSnapshot([]models.Pilot{p1, p2}, nil, []models.Mission{m4, m3, m2, m1})

	results := d.DetectAll(snap)
	require.Len(t, results, 2)
	assert.Equal(t, "M1", results[0].MissionID)
	assert.Equal(t, []models.ConflictKind{models.KindSkillMismatch}, kinds(results[0].Conflicts))
	assert.Equal(t, "M3", results[1].MissionID)
	assert.Equal(t, []models.ConflictKind{models.KindUnknownAssignment}, kinds(results[1].Conflicts))
	assert.Equal(t, "D404", results[1].Conflicts[0].DroneID)

	summary := Summarize(Flatten(results))
	assert.Equal(t, 2, summary.TotalCount)
	assert.Equal(t, 2, summary.Critical.Count)
	assert.Equal(t, 0, summary.High.Count)
	assert.Empty(t, summary.Medium.Conflicts)
}

func TestSummarize_GroupsBySeverity(t *testing.T) {
	conflicts := []models.Conflict{
		{Kind: models.KindSkillMismatch, Severity: models.SeverityCritical},
		{Kind: models.KindMaintenanceWindow, Severity: models.SeverityHigh},
		{Kind: models.KindPilotOnLeave, Severity: models.SeverityHigh},
		{Kind: models.KindDroneLocationMismatch, Severity: models.SeverityMedium},
	}
	s := Summarize(conflicts)
	assert.Equal(t, 4, s.TotalCount)
	assert.Equal(t, 1, s.Critical.Count)
	assert.Equal(t, 2, s.High.Count)
	assert.Equal(t, 1, s.Medium.Count)
	assert.True(t, HasCritical(conflicts))
	assert.False(t, HasCritical(conflicts[1:]))
}

func TestDetectMission_UsesCurrentAssignment(t *testing.T) {
	d := NewDetector(newTestLogger())
	m := missionM1()
	m.AssignedPilotID = "P1"
	m.AssignedDroneID = "D9"
	p := pilotP1()
	p.Location = "Mumbai"
	snap := models.NewSnapshot([]models.Pilot{p}, nil, []models.Mission{m})

	conflicts, err := d.DetectMission(snap, m)
	require.NoError(t, err)
	assert.Equal(t, []models.ConflictKind{models.KindUnknownAssignment, models.KindPilotLocationMismatch}, kinds(conflicts))
	assert.Equal(t, "D9", conflicts[0].DroneID)

	m.AssignedPilotID, m.AssignedDroneID = "", ""
	conflicts, err = d.DetectMission(snap, m)
	require.NoError(t, err)
	assert.Empty(t, conflicts)
}
