package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/vidhaanviswas/skylark-drone-coordinator/internal/models"
)

// PilotModel represents the pilots table.
type PilotModel struct {
	PilotID           string     `gorm:"column:pilot_id;primaryKey"`
	Name              string     `gorm:"column:name;not null"`
	Skills            string     `gorm:"column:skills;type:text"`         // comma-separated
	Certifications    string     `gorm:"column:certifications;type:text"` // comma-separated
	Location          string     `gorm:"column:location"`
	Status            string     `gorm:"column:status;not null"`
	PriorityLevel     int        `gorm:"column:priority_level;not null;default:3"`
	ExperienceHours   float64    `gorm:"column:drone_experience_hours;not null;default:0"`
	CurrentAssignment string     `gorm:"column:current_assignment"`
	AvailableFrom     *time.Time `gorm:"column:availability_start_date"`
	AvailableUntil    *time.Time `gorm:"column:availability_end_date"`
	ContactInfo       string     `gorm:"column:contact_info"`
}

func (PilotModel) TableName() string {
	return "pilots"
}

// DroneModel represents the drones table.
type DroneModel struct {
	DroneID           string     `gorm:"column:drone_id;primaryKey"`
	Model             string     `gorm:"column:model"`
	Capabilities      string     `gorm:"column:capabilities;type:text"` // comma-separated
	Location          string     `gorm:"column:location"`
	Status            string     `gorm:"column:status;not null"`
	MaintenanceDue    *time.Time `gorm:"column:maintenance_due_date"`
	FlightHours       int        `gorm:"column:flight_hours;not null;default:0"`
	CurrentAssignment string     `gorm:"column:current_assignment"`
	MaxRangeKM        float64    `gorm:"column:max_range_km;not null;default:0"`
}

func (DroneModel) TableName() string {
	return "drones"
}

// MissionModel represents the missions table.
type MissionModel struct {
	MissionID              string    `gorm:"column:mission_id;primaryKey"`
	ClientName             string    `gorm:"column:client_name"`
	Location               string    `gorm:"column:location"`
	StartDate              time.Time `gorm:"column:start_date;not null"`
	EndDate                time.Time `gorm:"column:end_date;not null"`
	RequiredSkills         string    `gorm:"column:required_skills;type:text"`
	RequiredCertifications string    `gorm:"column:required_certifications;type:text"`
	RequiredCapabilities   string    `gorm:"column:required_capabilities;type:text"`
	Priority               int       `gorm:"column:priority;not null;default:3"`
	Status                 string    `gorm:"column:status;not null"`
	AssignedPilotID        string    `gorm:"column:assigned_pilot_id;index"`
	AssignedDroneID        string    `gorm:"column:assigned_drone_id;index"`
}

func (MissionModel) TableName() string {
	return "missions"
}

// AssignmentEventModel represents the assignment_events audit table.
type AssignmentEventModel struct {
	ID         string    `gorm:"column:id;primaryKey"`
	Kind       string    `gorm:"column:kind;not null"`
	MissionID  string    `gorm:"column:mission_id;not null;index"`
	AssigneeID string    `gorm:"column:assignee_id;not null"`
	PreviousID string    `gorm:"column:previous_id"`
	Reason     string    `gorm:"column:reason;type:text"`
	Overridden int       `gorm:"column:overridden_conflicts;not null;default:0"`
	CreatedAt  time.Time `gorm:"column:created_at;not null"`
}

func (AssignmentEventModel) TableName() string {
	return "assignment_events"
}

// SQLStore persists records through gorm on SQLite or PostgreSQL.
type SQLStore struct {
	db *gorm.DB
}

// OpenSQL opens a database connection and migrates the schema. driver is
// "sqlite" or "postgres". An empty sqlite DSN means an in-memory database.
func OpenSQL(driver, dsn string) (*SQLStore, error) {
	var dialector gorm.Dialector
	switch driver {
	case "postgres":
		dialector = postgres.Open(dsn)
	case "sqlite":
		if dsn == "" {
			dsn = ":memory:"
		}
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Each new sqlite connection to :memory: is a separate database.
	if driver == "sqlite" {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get underlying db: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if err := db.AutoMigrate(&PilotModel{}, &DroneModel{}, &MissionModel{}, &AssignmentEventModel{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return &SQLStore{db: db}, nil
}

// LoadPilots returns all pilots ordered by ID.
func (s *SQLStore) LoadPilots(ctx context.Context) ([]models.Pilot, error) {
	var rows []PilotModel
	if err := s.db.WithContext(ctx).Order("pilot_id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("loading pilots: %w", err)
	}
	out := make([]models.Pilot, 0, len(rows))
	for i := range rows {
		p, err := rows[i].toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// LoadDrones returns all drones ordered by ID.
func (s *SQLStore) LoadDrones(ctx context.Context) ([]models.Drone, error) {
	var rows []DroneModel
	if err := s.db.WithContext(ctx).Order("drone_id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("loading drones: %w", err)
	}
	out := make([]models.Drone, 0, len(rows))
	for i := range rows {
		d, err := rows[i].toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// LoadMissions returns all missions ordered by ID.
func (s *SQLStore) LoadMissions(ctx context.Context) ([]models.Mission, error) {
	var rows []MissionModel
	if err := s.db.WithContext(ctx).Order("mission_id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("loading missions: %w", err)
	}
	out := make([]models.Mission, 0, len(rows))
	for i := range rows {
		m, err := rows[i].toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

// SavePilot upserts a pilot.
func (s *SQLStore) SavePilot(ctx context.Context, p models.Pilot) error {
	row := pilotModelFrom(p)
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error; err != nil {
		return fmt.Errorf("saving pilot %s: %w", p.ID, err)
	}
	return nil
}

// SaveDrone upserts a drone.
func (s *SQLStore) SaveDrone(ctx context.Context, d models.Drone) error {
	row := droneModelFrom(d)
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error; err != nil {
		return fmt.Errorf("saving drone %s: %w", d.ID, err)
	}
	return nil
}

// SaveMission upserts a mission.
func (s *SQLStore) SaveMission(ctx context.Context, m models.Mission) error {
	row := missionModelFrom(m)
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error; err != nil {
		return fmt.Errorf("saving mission %s: %w", m.ID, err)
	}
	return nil
}

// RecordEvent inserts an audit event.
func (s *SQLStore) RecordEvent(ctx context.Context, ev models.AssignmentEvent) error {
	row := AssignmentEventModel{
		ID:         ev.ID,
		Kind:       string(ev.Kind),
		MissionID:  ev.MissionID,
		AssigneeID: ev.AssigneeID,
		PreviousID: ev.PreviousID,
		Reason:     ev.Reason,
		Overridden: ev.Overridden,
		CreatedAt:  ev.CreatedAt,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("recording event %s: %w", ev.ID, err)
	}
	return nil
}

// ListEvents returns audit events oldest first, optionally for one mission.
func (s *SQLStore) ListEvents(ctx context.Context, missionID string) ([]models.AssignmentEvent, error) {
	var rows []AssignmentEventModel
	q := s.db.WithContext(ctx).Order("created_at").Order("id")
	if missionID != "" {
		q = q.Where("mission_id = ?", missionID)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}
	out := make([]models.AssignmentEvent, 0, len(rows))
	for i := range rows {
		out = append(out, models.AssignmentEvent{
			ID:         rows[i].ID,
			Kind:       models.EventKind(rows[i].Kind),
			MissionID:  rows[i].MissionID,
			AssigneeID: rows[i].AssigneeID,
			PreviousID: rows[i].PreviousID,
			Reason:     rows[i].Reason,
			Overridden: rows[i].Overridden,
			CreatedAt:  rows[i].CreatedAt,
		})
	}
	return out, nil
}

// Close closes the database connection.
func (s *SQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func pilotModelFrom(p models.Pilot) PilotModel {
	return PilotModel{
		PilotID:           p.ID,
		Name:              p.Name,
		Skills:            strings.Join(p.Skills, ","),
		Certifications:    strings.Join(p.Certifications, ","),
		Location:          p.Location,
		Status:            string(p.Status),
		PriorityLevel:     p.Priority,
		ExperienceHours:   p.ExperienceHours,
		CurrentAssignment: p.CurrentAssignment,
		AvailableFrom:     p.AvailableFrom,
		AvailableUntil:    p.AvailableUntil,
		ContactInfo:       p.ContactInfo,
	}
}

func (m PilotModel) toDomain() (models.Pilot, error) {
	status, ok := models.ParsePilotStatus(m.Status)
	if !ok {
		return models.Pilot{}, &MalformedRecordError{Entity: "pilot", ID: m.PilotID, Reason: fmt.Sprintf("unknown status %q", m.Status)}
	}
	return models.Pilot{
		ID:                m.PilotID,
		Name:              m.Name,
		Skills:            splitList(m.Skills),
		Certifications:    splitList(m.Certifications),
		Location:          m.Location,
		Status:            status,
		Priority:          m.PriorityLevel,
		ExperienceHours:   m.ExperienceHours,
		CurrentAssignment: m.CurrentAssignment,
		AvailableFrom:     utcDate(m.AvailableFrom),
		AvailableUntil:    utcDate(m.AvailableUntil),
		ContactInfo:       m.ContactInfo,
	}, nil
}

func droneModelFrom(d models.Drone) DroneModel {
	return DroneModel{
		DroneID:           d.ID,
		Model:             d.Model,
		Capabilities:      strings.Join(d.Capabilities, ","),
		Location:          d.Location,
		Status:            string(d.Status),
		MaintenanceDue:    d.MaintenanceDue,
		FlightHours:       d.FlightHours,
		CurrentAssignment: d.CurrentAssignment,
		MaxRangeKM:        d.MaxRangeKM,
	}
}

func (m DroneModel) toDomain() (models.Drone, error) {
	status, ok := models.ParseDroneStatus(m.Status)
	if !ok {
		return models.Drone{}, &MalformedRecordError{Entity: "drone", ID: m.DroneID, Reason: fmt.Sprintf("unknown status %q", m.Status)}
	}
	return models.Drone{
		ID:                m.DroneID,
		Model:             m.Model,
		Capabilities:      splitList(m.Capabilities),
		Location:          m.Location,
		Status:            status,
		MaintenanceDue:    utcDate(m.MaintenanceDue),
		FlightHours:       m.FlightHours,
		CurrentAssignment: m.CurrentAssignment,
		MaxRangeKM:        m.MaxRangeKM,
	}, nil
}

func missionModelFrom(m models.Mission) MissionModel {
	return MissionModel{
		MissionID:              m.ID,
		ClientName:             m.Client,
		Location:               m.Location,
		StartDate:              m.Start,
		EndDate:                m.End,
		RequiredSkills:         strings.Join(m.RequiredSkills, ","),
		RequiredCertifications: strings.Join(m.RequiredCertifications, ","),
		RequiredCapabilities:   strings.Join(m.RequiredCapabilities, ","),
		Priority:               m.Priority,
		Status:                 string(m.Status),
		AssignedPilotID:        m.AssignedPilotID,
		AssignedDroneID:        m.AssignedDroneID,
	}
}

func (m MissionModel) toDomain() (models.Mission, error) {
	status, ok := models.ParseMissionStatus(m.Status)
	if !ok {
		return models.Mission{}, &MalformedRecordError{Entity: "mission", ID: m.MissionID, Reason: fmt.Sprintf("unknown status %q", m.Status)}
	}
	if m.Priority < 1 || m.Priority > 5 {
		return models.Mission{}, &MalformedRecordError{Entity: "mission", ID: m.MissionID, Reason: fmt.Sprintf("priority %d out of range", m.Priority)}
	}
	out := models.Mission{
		ID:                     m.MissionID,
		Client:                 m.ClientName,
		Location:               m.Location,
		Start:                  m.StartDate.UTC(),
		End:                    m.EndDate.UTC(),
		RequiredSkills:         splitList(m.RequiredSkills),
		RequiredCertifications: splitList(m.RequiredCertifications),
		RequiredCapabilities:   splitList(m.RequiredCapabilities),
		Priority:               m.Priority,
		Status:                 status,
		AssignedPilotID:        m.AssignedPilotID,
		AssignedDroneID:        m.AssignedDroneID,
	}
	if err := out.CheckDates(); err != nil {
		return models.Mission{}, &MalformedRecordError{Entity: "mission", ID: m.MissionID, Reason: "end_date before start_date"}
	}
	return out, nil
}

func utcDate(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
