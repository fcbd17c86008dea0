package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidhaanviswas/skylark-drone-coordinator/internal/config"
	"github.com/vidhaanviswas/skylark-drone-coordinator/internal/rank"
	"github.com/vidhaanviswas/skylark-drone-coordinator/internal/store"
)

const fixturePath = "../../internal/store/testdata/fleet.yaml"

func withConfig(t *testing.T, sc config.StoreConfig) {
	t.Helper()
	prev := cfg
	cfg = &config.Config{
		Store:   sc,
		Ranking: config.RankingConfig{Weights: rank.DefaultWeights(), Limit: rank.MaxCandidates},
		API:     config.APIConfig{ListenAddr: ":0"},
		Logging: config.LoggingConfig{Level: "error", Format: "text"},
	}
	t.Cleanup(func() { cfg = prev })
}

func TestNewStore_MemoryFixture(t *testing.T) {
	withConfig(t, config.StoreConfig{Backend: config.BackendMemory, Fixture: fixturePath})

	coord, st, err := openCoordinator("test")
	require.NoError(t, err)
	defer func() { _ = st.Close() }()

	stats, err := coord.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Pilots)
	assert.Equal(t, 1, stats.Drones)
	assert.Equal(t, 2, stats.Missions)
}

func TestNewStore_MemoryEmpty(t *testing.T) {
	withConfig(t, config.StoreConfig{Backend: config.BackendMemory})

	st, err := newStore(newLogger())
	require.NoError(t, err)
	pilots, err := st.LoadPilots(context.Background())
	require.NoError(t, err)
	assert.Empty(t, pilots)
}

func TestNewStore_SheetsRequiresIDs(t *testing.T) {
	withConfig(t, config.StoreConfig{Backend: config.BackendSheets})

	_, err := newStore(newLogger())
	require.Error(t, err)
}

func TestImportExport_CSVRoundTrip(t *testing.T) {
	dataDir := t.TempDir()
	withConfig(t, config.StoreConfig{Backend: config.BackendCSV, CSV: config.CSVConfig{Dir: dataDir}})

	imp := importCmd()
	imp.SetArgs([]string{"--file", fixturePath})
	imp.SetContext(context.Background())
	require.NoError(t, imp.Execute())

	for _, name := range []string{"pilot_roster.csv", "drone_fleet.csv", "missions.csv"} {
		_, err := os.Stat(filepath.Join(dataDir, name))
		require.NoError(t, err, name)
	}

	outDir := filepath.Join(t.TempDir(), "out")
	exp := exportCmd()
	exp.SetArgs([]string{"--output", outDir})
	exp.SetContext(context.Background())
	require.NoError(t, exp.Execute())

	exported, err := store.NewCSVStore(outDir)
	require.NoError(t, err)
	missions, err := exported.LoadMissions(context.Background())
	require.NoError(t, err)
	require.Len(t, missions, 2)
	byID := map[string]string{}
	for _, m := range missions {
		byID[m.ID] = m.AssignedPilotID + "/" + m.AssignedDroneID
	}
	assert.Equal(t, "P1/", byID["M2"])
	assert.Equal(t, "/", byID["M1"])
}

func TestImport_RequiresOneSource(t *testing.T) {
	withConfig(t, config.StoreConfig{Backend: config.BackendMemory})

	imp := importCmd()
	imp.SetArgs([]string{})
	imp.SetContext(context.Background())
	imp.SilenceUsage = true
	imp.SilenceErrors = true
	err := imp.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exactly one of --file or --csv-dir")
}

func TestAssign_RequiresTarget(t *testing.T) {
	withConfig(t, config.StoreConfig{Backend: config.BackendMemory, Fixture: fixturePath})

	cmd := assignCmd()
	cmd.SetArgs([]string{"M1"})
	cmd.SetContext(context.Background())
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--pilot or --drone is required")
}

func TestListenUntilDone_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	httpSrv := &http.Server{Addr: "127.0.0.1:0", Handler: http.NotFoundHandler(), ReadHeaderTimeout: time.Second}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	done := make(chan error, 1)
	go func() { done <- listenUntilDone(ctx, httpSrv, time.Second, logger) }()
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop after cancel")
	}
}

func TestListenUntilDone_ListenFailure(t *testing.T) {
	httpSrv := &http.Server{Addr: "127.0.0.1:-1", ReadHeaderTimeout: time.Second}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	err := listenUntilDone(context.Background(), httpSrv, time.Second, logger)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "serve: HTTP server")
}

func TestNewStore_SheetsBuildsClient(t *testing.T) {
	withConfig(t, config.StoreConfig{Backend: config.BackendSheets, Sheets: config.SheetsConfig{
		Endpoint:         "http://127.0.0.1:1/",
		Token:            "ya29.tok",
		PilotSheetID:     "a",
		PilotSheetName:   "Pilot Roster",
		DroneSheetID:     "b",
		DroneSheetName:   "Drone Fleet",
		MissionSheetID:   "c",
		MissionSheetName: "Missions",
	}})

	st, err := newStore(newLogger())
	require.NoError(t, err)
	assert.IsType(t, &store.SheetsStore{}, st)
}
