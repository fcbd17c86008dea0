package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/vidhaanviswas/skylark-drone-coordinator/internal/rank"
)

// Store backends.
const (
	BackendMemory = "memory"
	BackendCSV    = "csv"
	BackendSQL    = "sql"
	BackendSheets = "sheets"
)

// Config holds all configuration for skylark.
type Config struct {
	Store   StoreConfig   `mapstructure:"store"`
	Ranking RankingConfig `mapstructure:"ranking"`
	API     APIConfig     `mapstructure:"api"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// StoreConfig selects and configures the record store backend.
type StoreConfig struct {
	Backend string       `mapstructure:"backend" validate:"required,oneof=memory csv sql sheets"`
	Fixture string       `mapstructure:"fixture"` // YAML seed for the memory backend
	CSV     CSVConfig    `mapstructure:"csv"`
	SQL     SQLConfig    `mapstructure:"sql"`
	Sheets  SheetsConfig `mapstructure:"sheets"`
}

// CSVConfig holds the CSV directory backend settings.
type CSVConfig struct {
	Dir string `mapstructure:"dir"`
}

// SQLConfig holds the gorm backend settings. An empty sqlite DSN is an
// in-memory database.
type SQLConfig struct {
	Driver string `mapstructure:"driver" validate:"omitempty,oneof=sqlite postgres"`
	DSN    string `mapstructure:"dsn"`
}

// SheetsConfig holds Google Sheets backend settings.
type SheetsConfig struct {
	Endpoint         string        `mapstructure:"endpoint" validate:"omitempty,url"` // empty uses the public API
	CredentialsFile  string        `mapstructure:"credentials_file"`                  // service account key file
	CredentialsJSON  string        `mapstructure:"credentials_json"`                  // service account key contents
	Token            string        `mapstructure:"token"`                             // static OAuth access token
	PilotSheetID     string        `mapstructure:"pilot_sheet_id"`
	PilotSheetName   string        `mapstructure:"pilot_sheet_name"`
	DroneSheetID     string        `mapstructure:"drone_sheet_id"`
	DroneSheetName   string        `mapstructure:"drone_sheet_name"`
	MissionSheetID   string        `mapstructure:"mission_sheet_id"`
	MissionSheetName string        `mapstructure:"mission_sheet_name"`
	RateLimit        float64       `mapstructure:"rate_limit" validate:"gte=0"` // requests per second
	Burst            int           `mapstructure:"burst" validate:"gte=0"`
	MaxRetries       int           `mapstructure:"max_retries"`
	BackoffBase      time.Duration `mapstructure:"backoff_base"`
}

// String returns a safe representation of SheetsConfig with secrets masked.
func (c SheetsConfig) String() string {
	creds := "none"
	if c.CredentialsJSON != "" {
		creds = "json:***"
	} else if c.CredentialsFile != "" {
		creds = "file:" + c.CredentialsFile
	}
	return fmt.Sprintf("SheetsConfig{Credentials:%s, Token:%s, Pilots:%s/%s, Drones:%s/%s, Missions:%s/%s}",
		creds, maskToken(c.Token), c.PilotSheetID, c.PilotSheetName, c.DroneSheetID, c.DroneSheetName,
		c.MissionSheetID, c.MissionSheetName)
}

// maskToken shows first 4 + last 4 chars, replacing the middle with asterisks.
func maskToken(key string) string {
	const visible = 4
	if len(key) <= visible*2 {
		return "***"
	}
	return key[:visible] + "****" + key[len(key)-visible:]
}

// RankingConfig holds replacement ranking weights.
type RankingConfig struct {
	Weights rank.Weights `mapstructure:"weights"`
	Limit   int          `mapstructure:"limit" validate:"gte=1,lte=3"`
}

// APIConfig holds HTTP API server settings.
type APIConfig struct {
	ListenAddr string `mapstructure:"listen_addr" validate:"required"`
	AuthToken  string `mapstructure:"auth_token"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"omitempty,oneof=text json"`
}

// Load reads configuration from .env, an optional config file and
// environment variables. An empty path searches ~/.skylark and ".".
func Load(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(filepath.Join(homeDir(), ".skylark"))
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("SKYLARK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Sheet variables keep their deployment names.
	_ = v.BindEnv("store.sheets.credentials_file", "SKYLARK_STORE_SHEETS_CREDENTIALS_FILE", "GOOGLE_SHEETS_CREDENTIALS_PATH")
	_ = v.BindEnv("store.sheets.credentials_json", "SKYLARK_STORE_SHEETS_CREDENTIALS_JSON", "GOOGLE_SHEETS_CREDENTIALS_JSON")
	_ = v.BindEnv("store.sheets.token", "SKYLARK_STORE_SHEETS_TOKEN", "GOOGLE_SHEETS_TOKEN")
	_ = v.BindEnv("store.sheets.pilot_sheet_id", "SKYLARK_STORE_SHEETS_PILOT_SHEET_ID", "PILOT_ROSTER_SHEET_ID")
	_ = v.BindEnv("store.sheets.pilot_sheet_name", "SKYLARK_STORE_SHEETS_PILOT_SHEET_NAME", "PILOT_ROSTER_SHEET_NAME")
	_ = v.BindEnv("store.sheets.drone_sheet_id", "SKYLARK_STORE_SHEETS_DRONE_SHEET_ID", "DRONE_FLEET_SHEET_ID")
	_ = v.BindEnv("store.sheets.drone_sheet_name", "SKYLARK_STORE_SHEETS_DRONE_SHEET_NAME", "DRONE_FLEET_SHEET_NAME")
	_ = v.BindEnv("store.sheets.mission_sheet_id", "SKYLARK_STORE_SHEETS_MISSION_SHEET_ID", "MISSIONS_SHEET_ID")
	_ = v.BindEnv("store.sheets.mission_sheet_name", "SKYLARK_STORE_SHEETS_MISSION_SHEET_NAME", "MISSIONS_SHEET_NAME")
	_ = v.BindEnv("store.sql.dsn", "SKYLARK_STORE_SQL_DSN", "DATABASE_URL")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("store.backend", BackendMemory)
	v.SetDefault("store.fixture", "")
	v.SetDefault("store.csv.dir", filepath.Join(homeDir(), ".skylark", "data"))
	v.SetDefault("store.sql.driver", "sqlite")
	v.SetDefault("store.sql.dsn", "")
	v.SetDefault("store.sheets.endpoint", "")
	v.SetDefault("store.sheets.credentials_file", "")
	v.SetDefault("store.sheets.credentials_json", "")
	v.SetDefault("store.sheets.token", "")
	v.SetDefault("store.sheets.pilot_sheet_id", "")
	v.SetDefault("store.sheets.pilot_sheet_name", "Pilot Roster")
	v.SetDefault("store.sheets.drone_sheet_id", "")
	v.SetDefault("store.sheets.drone_sheet_name", "Drone Fleet")
	v.SetDefault("store.sheets.mission_sheet_id", "")
	v.SetDefault("store.sheets.mission_sheet_name", "Missions")
	v.SetDefault("store.sheets.rate_limit", 2.0)
	v.SetDefault("store.sheets.burst", 2)
	v.SetDefault("store.sheets.max_retries", 3)
	v.SetDefault("store.sheets.backoff_base", 500*time.Millisecond)

	w := rank.DefaultWeights()
	v.SetDefault("ranking.weights.priority", w.Priority)
	v.SetDefault("ranking.weights.conflict", w.Conflict)
	v.SetDefault("ranking.weights.location_mismatch", w.LocationMismatch)
	v.SetDefault("ranking.weights.experience", w.Experience)
	v.SetDefault("ranking.limit", rank.MaxCandidates)

	v.SetDefault("api.listen_addr", ":8080")
	v.SetDefault("api.auth_token", "")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// Validate checks struct tags, then the rules that span fields.
func (c *Config) Validate() error {
	if err := NewValidator().Validate(c); err != nil {
		return err
	}
	w := c.Ranking.Weights
	if w.Priority < 0 || w.Conflict < 0 || w.LocationMismatch < 0 || w.Experience < 0 {
		return fmt.Errorf("ranking.weights must be >= 0")
	}
	switch c.Store.Backend {
	case BackendCSV:
		if c.Store.CSV.Dir == "" {
			return fmt.Errorf("store.csv.dir must not be empty for the csv backend")
		}
	case BackendSQL:
		if c.Store.SQL.Driver == "" {
			return fmt.Errorf("store.sql.driver must not be empty for the sql backend")
		}
		if c.Store.SQL.Driver == "postgres" && c.Store.SQL.DSN == "" {
			return fmt.Errorf("store.sql.dsn must not be empty for postgres")
		}
	case BackendSheets:
		s := c.Store.Sheets
		if s.PilotSheetID == "" || s.DroneSheetID == "" || s.MissionSheetID == "" {
			return fmt.Errorf("store.sheets pilot, drone and mission sheet ids must be set for the sheets backend")
		}
		if s.Token == "" && s.CredentialsFile == "" && s.CredentialsJSON == "" {
			return fmt.Errorf("store.sheets needs credentials_file, credentials_json or token for the sheets backend")
		}
	}
	return nil
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
