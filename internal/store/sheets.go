package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/vidhaanviswas/skylark-drone-coordinator/internal/models"
)

const (
	defaultSheetsMaxRetries = 3
	defaultSheetsBackoff    = 500 * time.Millisecond
)

// ErrNoSheetsCredentials is returned when none of the credential options is set.
var ErrNoSheetsCredentials = errors.New("sheets store: a token, credentials file or credentials JSON is required")

// SheetRef locates one table: a spreadsheet and a sheet (tab) inside it.
type SheetRef struct {
	SpreadsheetID string
	SheetName     string
}

// SheetsOptions configures a SheetsStore. Credentials are tried in the
// order CredentialsJSON, CredentialsFile, Token; service account
// credentials refresh their own access tokens.
type SheetsOptions struct {
	Endpoint        string // overrides the API root, mostly for tests
	CredentialsFile string
	CredentialsJSON string
	Token           string // static OAuth access token with the spreadsheets scope
	Pilots          SheetRef
	Drones          SheetRef
	Missions        SheetRef
	RateLimit       float64 // requests per second
	Burst           int
	MaxRetries      int // 0 selects the default; negative disables retries
	BackoffBase     time.Duration
	HTTPClient      *http.Client // used as-is, skipping credentials
}

func (o SheetsOptions) clientOptions() ([]option.ClientOption, error) {
	var out []option.ClientOption
	if o.Endpoint != "" {
		out = append(out, option.WithEndpoint(o.Endpoint))
	}
	switch {
	case o.HTTPClient != nil:
		out = append(out, option.WithHTTPClient(o.HTTPClient))
	case o.CredentialsJSON != "":
		out = append(out, option.WithCredentialsJSON([]byte(o.CredentialsJSON)), option.WithScopes(sheets.SpreadsheetsScope))
	case o.CredentialsFile != "":
		out = append(out, option.WithCredentialsFile(o.CredentialsFile), option.WithScopes(sheets.SpreadsheetsScope))
	case o.Token != "":
		out = append(out, option.WithTokenSource(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: o.Token})))
	default:
		return nil, ErrNoSheetsCredentials
	}
	return out, nil
}

// SheetsStore keeps each table in a Google Sheet. Reads use the
// sheet!A:Z range; saves rewrite the record's row in place or append it.
type SheetsStore struct {
	opts    SheetsOptions
	values  *sheets.SpreadsheetsValuesService
	limiter *rate.Limiter
	logger  *slog.Logger
	mu      sync.Mutex // serializes read-modify-write saves
}

// NewSheetsStore creates a Sheets-backed store.
func NewSheetsStore(ctx context.Context, opts SheetsOptions, logger *slog.Logger) (*SheetsStore, error) {
	for name, ref := range map[string]SheetRef{"pilots": opts.Pilots, "drones": opts.Drones, "missions": opts.Missions} {
		if ref.SpreadsheetID == "" || ref.SheetName == "" {
			return nil, fmt.Errorf("sheets store: %s spreadsheet id and sheet name are required", name)
		}
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 1
	}
	if opts.Burst <= 0 {
		opts.Burst = 1
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	} else if opts.MaxRetries == 0 {
		opts.MaxRetries = defaultSheetsMaxRetries
	}
	if opts.BackoffBase <= 0 {
		opts.BackoffBase = defaultSheetsBackoff
	}

	clientOpts, err := opts.clientOptions()
	if err != nil {
		return nil, err
	}
	svc, err := sheets.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("sheets store: creating service: %w", err)
	}
	return &SheetsStore{
		opts:    opts,
		values:  svc.Spreadsheets.Values,
		limiter: rate.NewLimiter(rate.Limit(opts.RateLimit), opts.Burst),
		logger:  logger,
	}, nil
}

// LoadPilots reads the pilot roster sheet.
func (s *SheetsStore) LoadPilots(ctx context.Context) ([]models.Pilot, error) {
	rows, err := s.readTable(ctx, s.opts.Pilots)
	if err != nil {
		return nil, err
	}
	out := make([]models.Pilot, 0, len(rows))
	for i, r := range rows {
		p, err := DecodePilot(r, i+1)
		if err != nil {
			return nil, fmt.Errorf("sheet %s: %w", s.opts.Pilots.SheetName, err)
		}
		out = append(out, p)
	}
	return out, nil
}

// LoadDrones reads the drone fleet sheet.
func (s *SheetsStore) LoadDrones(ctx context.Context) ([]models.Drone, error) {
	rows, err := s.readTable(ctx, s.opts.Drones)
	if err != nil {
		return nil, err
	}
	out := make([]models.Drone, 0, len(rows))
	for i, r := range rows {
		d, err := DecodeDrone(r, i+1)
		if err != nil {
			return nil, fmt.Errorf("sheet %s: %w", s.opts.Drones.SheetName, err)
		}
		out = append(out, d)
	}
	return out, nil
}

// LoadMissions reads the missions sheet.
func (s *SheetsStore) LoadMissions(ctx context.Context) ([]models.Mission, error) {
	rows, err := s.readTable(ctx, s.opts.Missions)
	if err != nil {
		return nil, err
	}
	out := make([]models.Mission, 0, len(rows))
	for i, r := range rows {
		m, err := DecodeMission(r, i+1)
		if err != nil {
			return nil, fmt.Errorf("sheet %s: %w", s.opts.Missions.SheetName, err)
		}
		out = append(out, m)
	}
	return out, nil
}

// LoadSnapshot fetches the three sheets concurrently.
func (s *SheetsStore) LoadSnapshot(ctx context.Context) (*models.Snapshot, error) {
	var (
		pilots   []models.Pilot
		drones   []models.Drone
		missions []models.Mission
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		pilots, err = s.LoadPilots(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		drones, err = s.LoadDrones(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		missions, err = s.LoadMissions(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return newSnapshot(pilots, drones, missions)
}

// SavePilot rewrites or appends the pilot's row.
func (s *SheetsStore) SavePilot(ctx context.Context, p models.Pilot) error {
	return s.saveRow(ctx, s.opts.Pilots, "pilot_id", p.ID, PilotHeaders, EncodePilot(p))
}

// SaveDrone rewrites or appends the drone's row.
func (s *SheetsStore) SaveDrone(ctx context.Context, d models.Drone) error {
	return s.saveRow(ctx, s.opts.Drones, "drone_id", d.ID, DroneHeaders, EncodeDrone(d))
}

// SaveMission rewrites or appends the mission's row.
func (s *SheetsStore) SaveMission(ctx context.Context, m models.Mission) error {
	return s.saveRow(ctx, s.opts.Missions, "mission_id", m.ID, MissionHeaders, EncodeMission(m))
}

// Close is a no-op; the API client holds no resources of its own.
func (s *SheetsStore) Close() error {
	return nil
}

func (s *SheetsStore) readTable(ctx context.Context, ref SheetRef) ([]Row, error) {
	values, err := s.getValues(ctx, ref)
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, nil
	}
	return RowsFromTable(values[0], values[1:]), nil
}

func (s *SheetsStore) getValues(ctx context.Context, ref SheetRef) ([][]string, error) {
	var vr *sheets.ValueRange
	err := s.call(ctx, "get "+ref.SheetName, func() error {
		var err error
		vr, err = s.values.Get(ref.SpreadsheetID, ref.SheetName+"!A:Z").Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("reading sheet %s: %w", ref.SheetName, err)
	}
	out := make([][]string, len(vr.Values))
	for i, rec := range vr.Values {
		out[i] = make([]string, len(rec))
		for j, cell := range rec {
			out[i][j] = fmt.Sprint(cell)
		}
	}
	return out, nil
}

// saveRow locates the record by its id column and overwrites that row in
// the sheet's own column order. An empty sheet gets the canonical header.
func (s *SheetsStore) saveRow(ctx context.Context, ref SheetRef, idKey, id string, headers []string, row Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.getValues(ctx, ref)
	if err != nil {
		return err
	}

	if len(values) == 0 {
		body := &sheets.ValueRange{Values: [][]any{cells(headers), cells(row.Values(headers))}}
		if err := s.update(ctx, ref, "A1", body); err != nil {
			return fmt.Errorf("saving %s %s: %w", idKey, id, err)
		}
		return nil
	}

	sheetHeaders := values[0]
	idCol := columnIndex(sheetHeaders, idKey)
	if idCol < 0 {
		return fmt.Errorf("saving %s %s: sheet %s has no %s column", idKey, id, ref.SheetName, idKey)
	}

	for i, rec := range values[1:] {
		// Loads trim cells, so the match must too.
		if idCol < len(rec) && strings.TrimSpace(rec[idCol]) == id {
			body := &sheets.ValueRange{Values: [][]any{cells(row.Merge(sheetHeaders, rec))}}
			// +2: one for the header row, one for 1-based rows.
			if err := s.update(ctx, ref, "A"+strconv.Itoa(i+2), body); err != nil {
				return fmt.Errorf("saving %s %s: %w", idKey, id, err)
			}
			return nil
		}
	}

	body := &sheets.ValueRange{Values: [][]any{cells(row.Values(sheetHeaders))}}
	err = s.call(ctx, "append "+ref.SheetName, func() error {
		_, err := s.values.Append(ref.SpreadsheetID, ref.SheetName+"!A1", body).
			ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
		return err
	})
	if err != nil {
		return fmt.Errorf("appending %s %s: %w", idKey, id, err)
	}
	return nil
}

func (s *SheetsStore) update(ctx context.Context, ref SheetRef, cell string, body *sheets.ValueRange) error {
	return s.call(ctx, "update "+ref.SheetName, func() error {
		_, err := s.values.Update(ref.SpreadsheetID, ref.SheetName+"!"+cell, body).
			ValueInputOption("RAW").Context(ctx).Do()
		return err
	})
}

// call runs one API call under the rate limiter, retrying 429, 5xx and
// transport failures with exponential backoff.
func (s *SheetsStore) call(ctx context.Context, op string, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= s.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := s.opts.BackoffBase * time.Duration(1<<(attempt-1))
			s.logger.Debug("retrying sheets request", "op", op, "attempt", attempt, "delay", delay, "error", lastErr)
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
		if err := s.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter error: %w", err)
		}

		err := fn()
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !retryable(err) {
			return err
		}
		lastErr = err
	}
	return fmt.Errorf("sheets request failed after %d attempts: %w", s.opts.MaxRetries+1, lastErr)
}

func retryable(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= 500
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}

func cells(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
