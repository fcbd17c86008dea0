package store

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"

	"github.com/vidhaanviswas/skylark-drone-coordinator/internal/models"
)

type fakeRange struct {
	Range  string     `json:"range,omitempty"`
	Values [][]string `json:"values"`
}

// fakeSheets emulates the subset of the Sheets v4 values API the store uses.
type fakeSheets struct {
	mu       sync.Mutex
	sheets   map[string][][]string // keyed by sheet name
	failures int                  // respond 503 this many times first
	calls    int
	appends  int
	token    string
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++

	if r.Header.Get("Authorization") != "Bearer "+f.token {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if f.failures > 0 {
		f.failures--
		http.Error(w, "backend error", http.StatusServiceUnavailable)
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/v4/spreadsheets/")
	parts := strings.SplitN(rest, "/values/", 2)
	if len(parts) != 2 {
		http.NotFound(w, r)
		return
	}
	rng := parts[1]
	appending := strings.HasSuffix(rng, ":append")
	rng = strings.TrimSuffix(rng, ":append")
	sheet, cell, _ := strings.Cut(rng, "!")

	switch {
	case r.Method == http.MethodGet:
		_ = json.NewEncoder(w).Encode(fakeRange{Range: rng, Values: f.sheets[sheet]})
	case r.Method == http.MethodPost && appending:
		var body fakeRange
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.sheets[sheet] = append(f.sheets[sheet], body.Values...)
		f.appends++
		_ = json.NewEncoder(w).Encode(map[string]any{"updates": map[string]int{"updatedRows": len(body.Values)}})
	case r.Method == http.MethodPut:
		var body fakeRange
		_ = json.NewDecoder(r.Body).Decode(&body)
		start, err := strconv.Atoi(strings.TrimPrefix(cell, "A"))
		if err != nil {
			http.Error(w, "bad range", http.StatusBadRequest)
			return
		}
		for i, row := range body.Values {
			idx := start - 1 + i
			for len(f.sheets[sheet]) <= idx {
				f.sheets[sheet] = append(f.sheets[sheet], nil)
			}
			f.sheets[sheet][idx] = row
		}
		_ = json.NewEncoder(w).Encode(map[string]int{"updatedRows": len(body.Values)})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func newTestSheetsStore(t *testing.T, fake *fakeSheets) *SheetsStore {
	t.Helper()
	return newTestSheetsStoreWithToken(t, fake, fake.token)
}

func newTestSheetsStoreWithToken(t *testing.T, fake *fakeSheets, token string) *SheetsStore {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	st, err := NewSheetsStore(context.Background(), SheetsOptions{
		Endpoint:    srv.URL + "/",
		Token:       token,
		Pilots:      SheetRef{SpreadsheetID: "roster", SheetName: "Pilot Roster"},
		Drones:      SheetRef{SpreadsheetID: "fleet", SheetName: "Drone Fleet"},
		Missions:    SheetRef{SpreadsheetID: "missions", SheetName: "Missions"},
		RateLimit:   1000,
		Burst:       10,
		BackoffBase: time.Millisecond,
	}, logger)
	require.NoError(t, err)
	return st
}

func TestSheetsStore(t *testing.T) {
	fake := &fakeSheets{sheets: map[string][][]string{}, token: "tok"}
	exerciseStore(t, newTestSheetsStore(t, fake))
}

func TestSheetsStore_LoadPadsShortRows(t *testing.T) {
	fake := &fakeSheets{token: "tok", sheets: map[string][][]string{
		"Pilot Roster": {
			{"pilot_id", "name", "skills", "certifications", "location", "status"},
			{"P1", "Asha", "Mapping", "Part107", "Pune", "Available"},
			{"P2", "Ravi"},
		},
		"Drone Fleet": {{"drone_id", "model", "status"}, {"D1", "M300", "Deployed"}},
	}}
	st := newTestSheetsStore(t, fake)

	snap, err := st.LoadSnapshot(context.Background())
	require.NoError(t, err)
	assert.Len(t, snap.Pilots(), 2)
	p2, ok := snap.Pilot("P2")
	require.True(t, ok)
	assert.Equal(t, models.PilotAvailable, p2.Status)
	assert.Empty(t, p2.Skills)
	d1, ok := snap.Drone("D1")
	require.True(t, ok)
	assert.Equal(t, models.DroneDeployed, d1.Status)
	assert.Empty(t, snap.Missions())
}

func TestSheetsStore_UpdateKeepsSheetColumnOrder(t *testing.T) {
	fake := &fakeSheets{token: "tok", sheets: map[string][][]string{
		"Missions": {
			{"project_id", "client", "location", "start_date", "end_date", "assigned_pilot_id", "status"},
			{"M0", "Old", "Delhi", "2024-01-01", "2024-01-02", "", "Completed"},
			{"M1", "Acme", "Pune", "2024-03-01", "2024-03-05", "", "Pending"},
		},
	}}
	st := newTestSheetsStore(t, fake)
	ctx := context.Background()

	ms, err := st.LoadMissions(ctx)
	require.NoError(t, err)
	require.Len(t, ms, 2)
	m := ms[1]
	m.AssignedPilotID = "P1"
	m.Status = models.MissionActive
	require.NoError(t, st.SaveMission(ctx, m))

	assert.Equal(t, 0, fake.appends)
	assert.Equal(t, []string{"M1", "Acme", "Pune", "2024-03-01", "2024-03-05", "P1", "Active"}, fake.sheets["Missions"][2])
	assert.Equal(t, "M0", fake.sheets["Missions"][1][0])

	require.NoError(t, st.SaveMission(ctx, testMission("M2")))
	assert.Equal(t, 1, fake.appends)
	assert.Len(t, fake.sheets["Missions"], 4)
}

func TestSheetsStore_RetriesServerErrors(t *testing.T) {
	fake := &fakeSheets{token: "tok", failures: 2, sheets: map[string][][]string{
		"Pilot Roster": {{"pilot_id", "name"}, {"P1", "Asha"}},
	}}
	st := newTestSheetsStore(t, fake)

	pilots, err := st.LoadPilots(context.Background())
	require.NoError(t, err)
	assert.Len(t, pilots, 1)
	assert.Equal(t, 3, fake.calls)
}

func TestSheetsStore_GivesUpAfterMaxRetries(t *testing.T) {
	fake := &fakeSheets{token: "tok", failures: 100, sheets: map[string][][]string{}}
	st := newTestSheetsStore(t, fake)

	_, err := st.LoadPilots(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 4 attempts")
	assert.Equal(t, 4, fake.calls)
}

func TestSheetsStore_ClientErrorNotRetried(t *testing.T) {
	fake := &fakeSheets{token: "right", sheets: map[string][][]string{}}
	st := newTestSheetsStoreWithToken(t, fake, "wrong")

	_, err := st.LoadPilots(context.Background())
	require.Error(t, err)
	var apiErr *googleapi.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Code)
	assert.Equal(t, 1, fake.calls)
}

func TestSheetsStore_SaveMatchesPaddedID(t *testing.T) {
	fake := &fakeSheets{token: "tok", sheets: map[string][][]string{
		"Pilot Roster": {
			{"pilot_id", "name", "status"},
			{" P1 ", "Asha", "Available"},
		},
	}}
	st := newTestSheetsStore(t, fake)
	ctx := context.Background()

	pilots, err := st.LoadPilots(ctx)
	require.NoError(t, err)
	require.Len(t, pilots, 1)
	require.Equal(t, "P1", pilots[0].ID)

	p := pilots[0]
	p.Status = models.PilotOnLeave
	require.NoError(t, st.SavePilot(ctx, p))

	assert.Equal(t, 0, fake.appends)
	require.Len(t, fake.sheets["Pilot Roster"], 2)
	assert.Equal(t, []string{"P1", "Asha", "On Leave"}, fake.sheets["Pilot Roster"][1])
}

func TestNewSheetsStore_RequiresCredentials(t *testing.T) {
	refs := SheetsOptions{
		Pilots:   SheetRef{SpreadsheetID: "a", SheetName: "Pilot Roster"},
		Drones:   SheetRef{SpreadsheetID: "b", SheetName: "Drone Fleet"},
		Missions: SheetRef{SpreadsheetID: "c", SheetName: "Missions"},
	}
	_, err := NewSheetsStore(context.Background(), refs, slog.Default())
	require.ErrorIs(t, err, ErrNoSheetsCredentials)
}

func TestSheetsOptions_CredentialPrecedence(t *testing.T) {
	opts := SheetsOptions{CredentialsJSON: "{}", CredentialsFile: "sa.json", Token: "tok"}
	got, err := opts.clientOptions()
	require.NoError(t, err)
	assert.Len(t, got, 2) // credentials JSON plus scopes

	opts = SheetsOptions{Endpoint: "http://localhost/", Token: "tok"}
	got, err = opts.clientOptions()
	require.NoError(t, err)
	assert.Len(t, got, 2) // endpoint plus token source
}

func TestNewSheetsStore_RequiresRefs(t *testing.T) {
	_, err := NewSheetsStore(context.Background(), SheetsOptions{Pilots: SheetRef{SpreadsheetID: "x", SheetName: "y"}}, slog.Default())
	require.Error(t, err)
}

func TestSheetsStore_SnapshotRejectsDuplicateIDs(t *testing.T) {
	fake := &fakeSheets{token: "tok", sheets: map[string][][]string{
		"Drone Fleet": {{"drone_id", "model"}, {"D1", "M300"}, {"D1", "Mavic"}},
	}}
	st := newTestSheetsStore(t, fake)

	_, err := st.LoadSnapshot(context.Background())
	var mre *MalformedRecordError
	require.ErrorAs(t, err, &mre)
	assert.Equal(t, "drone", mre.Entity)
	assert.Equal(t, "D1", mre.ID)
	assert.Equal(t, "duplicate id", mre.Reason)
}
