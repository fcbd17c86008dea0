package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidhaanviswas/skylark-drone-coordinator/internal/rank"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "{}\n"))
	require.NoError(t, err)

	assert.Equal(t, BackendMemory, cfg.Store.Backend)
	assert.Equal(t, "sqlite", cfg.Store.SQL.Driver)
	assert.Equal(t, "Pilot Roster", cfg.Store.Sheets.PilotSheetName)
	assert.Equal(t, 500*time.Millisecond, cfg.Store.Sheets.BackoffBase)
	assert.Equal(t, rank.DefaultWeights(), cfg.Ranking.Weights)
	assert.Equal(t, rank.MaxCandidates, cfg.Ranking.Limit)
	assert.Equal(t, ":8080", cfg.API.ListenAddr)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
store:
  backend: csv
  csv:
    dir: /var/lib/skylark
ranking:
  limit: 2
  weights:
    location_mismatch: 25
logging:
  format: json
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, BackendCSV, cfg.Store.Backend)
	assert.Equal(t, "/var/lib/skylark", cfg.Store.CSV.Dir)
	assert.Equal(t, 2, cfg.Ranking.Limit)
	assert.Equal(t, 25.0, cfg.Ranking.Weights.LocationMismatch)
	assert.Equal(t, 5.0, cfg.Ranking.Weights.Conflict, "unset weights keep their defaults")
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SKYLARK_API_LISTEN_ADDR", ":9999")
	t.Setenv("SKYLARK_STORE_BACKEND", "sheets")
	t.Setenv("PILOT_ROSTER_SHEET_ID", "roster-1")
	t.Setenv("DRONE_FLEET_SHEET_ID", "fleet-1")
	t.Setenv("MISSIONS_SHEET_ID", "missions-1")
	t.Setenv("MISSIONS_SHEET_NAME", "Projects")
	t.Setenv("GOOGLE_SHEETS_TOKEN", "ya29.secret-token")

	cfg, err := Load(writeConfig(t, "{}\n"))
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.API.ListenAddr)
	assert.Equal(t, BackendSheets, cfg.Store.Backend)
	assert.Equal(t, "roster-1", cfg.Store.Sheets.PilotSheetID)
	assert.Equal(t, "fleet-1", cfg.Store.Sheets.DroneSheetID)
	assert.Equal(t, "missions-1", cfg.Store.Sheets.MissionSheetID)
	assert.Equal(t, "Projects", cfg.Store.Sheets.MissionSheetName)
	assert.Equal(t, "ya29.secret-token", cfg.Store.Sheets.Token)
	assert.NotContains(t, cfg.Store.Sheets.String(), "secret")
}

func TestLoad_ServiceAccountEnv(t *testing.T) {
	t.Setenv("SKYLARK_STORE_BACKEND", "sheets")
	t.Setenv("PILOT_ROSTER_SHEET_ID", "roster-1")
	t.Setenv("DRONE_FLEET_SHEET_ID", "fleet-1")
	t.Setenv("MISSIONS_SHEET_ID", "missions-1")
	t.Setenv("GOOGLE_SHEETS_CREDENTIALS_JSON", `{"type":"service_account","private_key":"secret"}`)
	t.Setenv("GOOGLE_SHEETS_CREDENTIALS_PATH", "/etc/skylark/sa.json")

	cfg, err := Load(writeConfig(t, "{}\n"))
	require.NoError(t, err)

	assert.Empty(t, cfg.Store.Sheets.Token)
	assert.Equal(t, "/etc/skylark/sa.json", cfg.Store.Sheets.CredentialsFile)
	assert.Contains(t, cfg.Store.Sheets.CredentialsJSON, "service_account")
	assert.NotContains(t, cfg.Store.Sheets.String(), "secret")
}

func TestLoad_InvalidFileRejected(t *testing.T) {
	_, err := Load(writeConfig(t, "store:\n  backend: mongo\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.backend")
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestMaskToken(t *testing.T) {
	assert.Equal(t, "***", maskToken("short"))
	assert.Equal(t, "ya29****oken", maskToken("ya29.secret-token"))
}
