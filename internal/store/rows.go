package store

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/vidhaanviswas/skylark-drone-coordinator/internal/models"
)

// DateLayout is the on-disk date format for every date column.
const DateLayout = "2006-01-02"

// Canonical column headers written by the tabular backends.
var (
	PilotHeaders = []string{
		"pilot_id", "name", "skills", "certifications", "location", "current_assignment",
		"status", "availability_start_date", "availability_end_date",
		"drone_experience_hours", "priority_level", "contact_info",
	}
	DroneHeaders = []string{
		"drone_id", "model", "capabilities", "current_assignment", "status",
		"location", "maintenance_due_date", "flight_hours", "max_range_km",
	}
	MissionHeaders = []string{
		"mission_id", "client_name", "location", "required_skills",
		"required_certifications", "required_capabilities", "start_date", "end_date",
		"priority", "assigned_pilot_id", "assigned_drone_id", "status",
	}
)

// missionPriorityWords maps the spelled-out priorities found in older sheets.
var missionPriorityWords = map[string]string{
	"urgent":   "1",
	"high":     "2",
	"standard": "3",
	"medium":   "3",
	"low":      "4",
}

// Row is one header-keyed table row.
type Row map[string]string

// get returns the first of keys present in the row. Later keys are legacy aliases.
func (r Row) get(keys ...string) string {
	for _, k := range keys {
		if v, ok := r[k]; ok {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// headerAliases maps legacy column names to their canonical header.
var headerAliases = map[string]string{
	"maintenance_due":             "maintenance_due_date",
	"project_id":                  "mission_id",
	"client":                      "client_name",
	"required_certs":              "required_certifications",
	"required_drone_capabilities": "required_capabilities",
}

// canonicalHeader normalizes h and resolves legacy aliases.
func canonicalHeader(h string) string {
	h = normalizeHeader(h)
	if c, ok := headerAliases[h]; ok {
		return c
	}
	return h
}

// Values returns the row's cells in header order. Headers may use legacy
// aliases; unknown headers yield empty cells.
func (r Row) Values(headers []string) []string {
	out := make([]string, len(headers))
	for i, h := range headers {
		out[i] = r[canonicalHeader(h)]
	}
	return out
}

// Merge lays the row out in header order like Values, but keeps prev's
// cell for any column the row does not carry.
func (r Row) Merge(headers, prev []string) []string {
	out := make([]string, len(headers))
	for i, h := range headers {
		if v, ok := r[canonicalHeader(h)]; ok {
			out[i] = v
		} else if i < len(prev) {
			out[i] = prev[i]
		}
	}
	return out
}

// withColumns appends the canonical columns header lacks.
func withColumns(header, canonical []string) []string {
	have := make(map[string]bool, len(header))
	for _, h := range header {
		have[canonicalHeader(h)] = true
	}
	out := append([]string(nil), header...)
	for _, c := range canonical {
		if !have[c] {
			out = append(out, c)
		}
	}
	return out
}

// columnIndex returns the position of the column whose canonical name is
// key, or -1.
func columnIndex(header []string, key string) int {
	for i, h := range header {
		if canonicalHeader(h) == key {
			return i
		}
	}
	return -1
}

// RowsFromTable keys each record by the normalized header. Short records
// are padded with empty cells and blank lines are dropped.
func RowsFromTable(header []string, records [][]string) []Row {
	keys := make([]string, len(header))
	for i, h := range header {
		keys[i] = normalizeHeader(h)
	}
	rows := make([]Row, 0, len(records))
	for _, rec := range records {
		if blank(rec) {
			continue
		}
		row := make(Row, len(keys))
		for i, k := range keys {
			if k == "" {
				continue
			}
			if i < len(rec) {
				row[k] = rec[i]
			} else {
				row[k] = ""
			}
		}
		rows = append(rows, row)
	}
	return rows
}

func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
	return strings.ReplaceAll(h, " ", "_")
}

func blank(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// Row shapes. Cells are validated as strings before conversion; the col
// tag names the column in error messages.

type pilotRow struct {
	ID                string `col:"pilot_id" validate:"required"`
	Name              string `col:"name" validate:"required"`
	Skills            string `col:"skills"`
	Certifications    string `col:"certifications"`
	Location          string `col:"location"`
	CurrentAssignment string `col:"current_assignment"`
	Status            string `col:"status"`
	AvailableFrom     string `col:"availability_start_date" validate:"omitempty,datetime=2006-01-02"`
	AvailableUntil    string `col:"availability_end_date" validate:"omitempty,datetime=2006-01-02"`
	ExperienceHours   string `col:"drone_experience_hours" validate:"omitempty,numeric"`
	Priority          string `col:"priority_level" validate:"omitempty,oneof=1 2 3 4 5"`
	ContactInfo       string `col:"contact_info"`
}

type droneRow struct {
	ID                string `col:"drone_id" validate:"required"`
	Model             string `col:"model"`
	Capabilities      string `col:"capabilities"`
	CurrentAssignment string `col:"current_assignment"`
	Status            string `col:"status"`
	Location          string `col:"location"`
	MaintenanceDue    string `col:"maintenance_due_date" validate:"omitempty,datetime=2006-01-02"`
	FlightHours       string `col:"flight_hours" validate:"omitempty,number"`
	MaxRangeKM        string `col:"max_range_km" validate:"omitempty,numeric"`
}

type missionRow struct {
	ID                     string `col:"mission_id" validate:"required"`
	Client                 string `col:"client_name"`
	Location               string `col:"location"`
	RequiredSkills         string `col:"required_skills"`
	RequiredCertifications string `col:"required_certifications"`
	RequiredCapabilities   string `col:"required_capabilities"`
	Start                  string `col:"start_date" validate:"required,datetime=2006-01-02"`
	End                    string `col:"end_date" validate:"required,datetime=2006-01-02"`
	Priority               string `col:"priority" validate:"omitempty,oneof=1 2 3 4 5"`
	AssignedPilotID        string `col:"assigned_pilot_id"`
	AssignedDroneID        string `col:"assigned_drone_id"`
	Status                 string `col:"status"`
}

var rowValidator = newRowValidator()

func newRowValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("col"); name != "" {
			return name
		}
		return f.Name
	})
	return v
}

// validateRow converts validator errors into a single readable reason.
func validateRow(row any) string {
	err := rowValidator.Struct(row)
	if err == nil {
		return ""
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		msgs = append(msgs, fmt.Sprintf("column '%s' failed %s (value: '%v')", e.Field(), e.Tag(), e.Value()))
	}
	return strings.Join(msgs, "; ")
}

// DecodePilot converts a row into a pilot. line is the 1-based data row
// used in error messages.
func DecodePilot(r Row, line int) (models.Pilot, error) {
	raw := pilotRow{
		ID:                r.get("pilot_id"),
		Name:              r.get("name"),
		Skills:            r.get("skills"),
		Certifications:    r.get("certifications"),
		Location:          r.get("location"),
		CurrentAssignment: r.get("current_assignment"),
		Status:            r.get("status"),
		AvailableFrom:     r.get("availability_start_date"),
		AvailableUntil:    r.get("availability_end_date"),
		ExperienceHours:   r.get("drone_experience_hours"),
		Priority:          r.get("priority_level"),
		ContactInfo:       r.get("contact_info"),
	}
	bad := func(reason string) error {
		return &MalformedRecordError{Entity: "pilot", Row: line, ID: raw.ID, Reason: reason}
	}
	if reason := validateRow(raw); reason != "" {
		return models.Pilot{}, bad(reason)
	}

	status := models.PilotAvailable
	if raw.Status != "" {
		s, ok := models.ParsePilotStatus(raw.Status)
		if !ok {
			return models.Pilot{}, bad(fmt.Sprintf("unknown status %q", raw.Status))
		}
		status = s
	}
	hours, err := parseFloat(raw.ExperienceHours)
	if err != nil || hours < 0 {
		return models.Pilot{}, bad(fmt.Sprintf("invalid drone_experience_hours %q", raw.ExperienceHours))
	}

	p := models.Pilot{
		ID:                raw.ID,
		Name:              raw.Name,
		Skills:            splitList(raw.Skills),
		Certifications:    splitList(raw.Certifications),
		Location:          raw.Location,
		Status:            status,
		Priority:          parsePriority(raw.Priority),
		ExperienceHours:   hours,
		CurrentAssignment: assignment(raw.CurrentAssignment),
		AvailableFrom:     parseDate(raw.AvailableFrom),
		AvailableUntil:    parseDate(raw.AvailableUntil),
		ContactInfo:       raw.ContactInfo,
	}
	if p.AvailableFrom != nil && p.AvailableUntil != nil && p.AvailableUntil.Before(*p.AvailableFrom) {
		return models.Pilot{}, bad("availability ends before it starts")
	}
	return p, nil
}

// EncodePilot converts a pilot into a canonical row.
func EncodePilot(p models.Pilot) Row {
	return Row{
		"pilot_id":                p.ID,
		"name":                    p.Name,
		"skills":                  strings.Join(p.Skills, ","),
		"certifications":          strings.Join(p.Certifications, ","),
		"location":                p.Location,
		"current_assignment":      p.CurrentAssignment,
		"status":                  string(p.Status),
		"availability_start_date": formatDate(p.AvailableFrom),
		"availability_end_date":   formatDate(p.AvailableUntil),
		"drone_experience_hours":  strconv.FormatFloat(p.ExperienceHours, 'f', -1, 64),
		"priority_level":          strconv.Itoa(p.Priority),
		"contact_info":            p.ContactInfo,
	}
}

// DecodeDrone converts a row into a drone.
func DecodeDrone(r Row, line int) (models.Drone, error) {
	raw := droneRow{
		ID:                r.get("drone_id"),
		Model:             r.get("model"),
		Capabilities:      r.get("capabilities"),
		CurrentAssignment: r.get("current_assignment"),
		Status:            r.get("status"),
		Location:          r.get("location"),
		MaintenanceDue:    r.get("maintenance_due_date", "maintenance_due"),
		FlightHours:       r.get("flight_hours"),
		MaxRangeKM:        r.get("max_range_km"),
	}
	bad := func(reason string) error {
		return &MalformedRecordError{Entity: "drone", Row: line, ID: raw.ID, Reason: reason}
	}
	if reason := validateRow(raw); reason != "" {
		return models.Drone{}, bad(reason)
	}

	status := models.DroneAvailable
	if raw.Status != "" {
		s, ok := models.ParseDroneStatus(raw.Status)
		if !ok {
			return models.Drone{}, bad(fmt.Sprintf("unknown status %q", raw.Status))
		}
		status = s
	}
	flightHours := 0
	if raw.FlightHours != "" {
		n, err := strconv.Atoi(raw.FlightHours)
		if err != nil {
			return models.Drone{}, bad(fmt.Sprintf("invalid flight_hours %q", raw.FlightHours))
		}
		flightHours = n
	}
	maxRange, err := parseFloat(raw.MaxRangeKM)
	if err != nil {
		return models.Drone{}, bad(fmt.Sprintf("invalid max_range_km %q", raw.MaxRangeKM))
	}

	return models.Drone{
		ID:                raw.ID,
		Model:             raw.Model,
		Capabilities:      splitList(raw.Capabilities),
		Location:          raw.Location,
		Status:            status,
		MaintenanceDue:    parseDate(raw.MaintenanceDue),
		FlightHours:       flightHours,
		CurrentAssignment: assignment(raw.CurrentAssignment),
		MaxRangeKM:        maxRange,
	}, nil
}

// EncodeDrone converts a drone into a canonical row.
func EncodeDrone(d models.Drone) Row {
	return Row{
		"drone_id":             d.ID,
		"model":                d.Model,
		"capabilities":         strings.Join(d.Capabilities, ","),
		"current_assignment":   d.CurrentAssignment,
		"status":               string(d.Status),
		"location":             d.Location,
		"maintenance_due_date": formatDate(d.MaintenanceDue),
		"flight_hours":         strconv.Itoa(d.FlightHours),
		"max_range_km":         strconv.FormatFloat(d.MaxRangeKM, 'f', -1, 64),
	}
}

// DecodeMission converts a row into a mission.
func DecodeMission(r Row, line int) (models.Mission, error) {
	raw := missionRow{
		ID:                     r.get("mission_id", "project_id"),
		Client:                 r.get("client_name", "client"),
		Location:               r.get("location"),
		RequiredSkills:         r.get("required_skills"),
		RequiredCertifications: r.get("required_certifications", "required_certs"),
		RequiredCapabilities:   r.get("required_capabilities", "required_drone_capabilities"),
		Start:                  r.get("start_date"),
		End:                    r.get("end_date"),
		Priority:               r.get("priority"),
		AssignedPilotID:        r.get("assigned_pilot_id"),
		AssignedDroneID:        r.get("assigned_drone_id"),
		Status:                 r.get("status"),
	}
	if word, ok := missionPriorityWords[strings.ToLower(raw.Priority)]; ok {
		raw.Priority = word
	}
	bad := func(reason string) error {
		return &MalformedRecordError{Entity: "mission", Row: line, ID: raw.ID, Reason: reason}
	}
	if reason := validateRow(raw); reason != "" {
		return models.Mission{}, bad(reason)
	}

	status := models.MissionPending
	if raw.Status != "" {
		s, ok := models.ParseMissionStatus(raw.Status)
		if !ok {
			return models.Mission{}, bad(fmt.Sprintf("unknown status %q", raw.Status))
		}
		status = s
	}

	m := models.Mission{
		ID:                     raw.ID,
		Client:                 raw.Client,
		Location:               raw.Location,
		Start:                  *parseDate(raw.Start),
		End:                    *parseDate(raw.End),
		RequiredSkills:         splitList(raw.RequiredSkills),
		RequiredCertifications: splitList(raw.RequiredCertifications),
		RequiredCapabilities:   splitList(raw.RequiredCapabilities),
		Priority:               parsePriority(raw.Priority),
		Status:                 status,
		AssignedPilotID:        assignment(raw.AssignedPilotID),
		AssignedDroneID:        assignment(raw.AssignedDroneID),
	}
	if err := m.CheckDates(); err != nil {
		return models.Mission{}, bad("end_date before start_date")
	}
	return m, nil
}

// EncodeMission converts a mission into a canonical row.
func EncodeMission(m models.Mission) Row {
	return Row{
		"mission_id":              m.ID,
		"client_name":             m.Client,
		"location":                m.Location,
		"required_skills":         strings.Join(m.RequiredSkills, ","),
		"required_certifications": strings.Join(m.RequiredCertifications, ","),
		"required_capabilities":   strings.Join(m.RequiredCapabilities, ","),
		"start_date":              m.Start.Format(DateLayout),
		"end_date":                m.End.Format(DateLayout),
		"priority":                strconv.Itoa(m.Priority),
		"assigned_pilot_id":       m.AssignedPilotID,
		"assigned_drone_id":       m.AssignedDroneID,
		"status":                  string(m.Status),
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// assignment maps the dash placeholders used in sheets to "no assignment".
func assignment(s string) string {
	switch s {
	case "-", "–", "—":
		return ""
	}
	return s
}

// parseDate expects a value already validated against DateLayout.
func parseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return nil
	}
	return &t
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(DateLayout)
}

func parseFloat(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}

// parsePriority expects a validated 1..5 value; empty defaults to 3.
func parsePriority(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 3
	}
	return n
}
