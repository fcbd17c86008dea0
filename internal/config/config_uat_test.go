package config

import (
	"strings"
	"testing"

	"github.com/vidhaanviswas/skylark-drone-coordinator/internal/rank"
)

// validCfg returns a fully-valid Config for mutation testing.
func validCfg() *Config {
	return &Config{
		Store: StoreConfig{
			Backend: BackendMemory,
			CSV:     CSVConfig{Dir: "/tmp/skylark"},
			SQL:     SQLConfig{Driver: "sqlite"},
			Sheets: SheetsConfig{
				RateLimit: 2,
				Burst:     2,
			},
		},
		Ranking: RankingConfig{Weights: rank.DefaultWeights(), Limit: 3},
		API:     APIConfig{ListenAddr: ":8080"},
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}
}

func expectError(t *testing.T, cfg *Config, contains string) {
	t.Helper()
	err := cfg.Validate()
	if err == nil {
		t.Fatalf("expected error containing %q", contains)
	}
	if !strings.Contains(err.Error(), contains) {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestUAT_Validate_ValidConfigPasses(t *testing.T) {
	if err := validCfg().Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestUAT_Validate_UnknownBackend(t *testing.T) {
	cfg := validCfg()
	cfg.Store.Backend = "mongo"
	expectError(t, cfg, "store.backend")
}

func TestUAT_Validate_LimitAboveThree(t *testing.T) {
	cfg := validCfg()
	cfg.Ranking.Limit = 4
	expectError(t, cfg, "ranking.limit")
}

func TestUAT_Validate_LimitZero(t *testing.T) {
	cfg := validCfg()
	cfg.Ranking.Limit = 0
	expectError(t, cfg, "ranking.limit")
}

func TestUAT_Validate_NegativeWeight(t *testing.T) {
	cfg := validCfg()
	cfg.Ranking.Weights.Conflict = -1
	expectError(t, cfg, "ranking.weights")
}

func TestUAT_Validate_EmptyListenAddr(t *testing.T) {
	cfg := validCfg()
	cfg.API.ListenAddr = ""
	expectError(t, cfg, "api.listen_addr")
}

func TestUAT_Validate_BadLogFormat(t *testing.T) {
	cfg := validCfg()
	cfg.Logging.Format = "xml"
	expectError(t, cfg, "logging.format")
}

func TestUAT_Validate_CSVWithoutDir(t *testing.T) {
	cfg := validCfg()
	cfg.Store.Backend = BackendCSV
	cfg.Store.CSV.Dir = ""
	expectError(t, cfg, "store.csv.dir")
}

func TestUAT_Validate_PostgresWithoutDSN(t *testing.T) {
	cfg := validCfg()
	cfg.Store.Backend = BackendSQL
	cfg.Store.SQL.Driver = "postgres"
	expectError(t, cfg, "store.sql.dsn")
}

func TestUAT_Validate_UnknownSQLDriver(t *testing.T) {
	cfg := validCfg()
	cfg.Store.SQL.Driver = "oracle"
	expectError(t, cfg, "store.sql.driver")
}

func TestUAT_Validate_SheetsWithoutIDs(t *testing.T) {
	cfg := validCfg()
	cfg.Store.Backend = BackendSheets
	cfg.Store.Sheets.Token = "tok"
	expectError(t, cfg, "sheet ids")
}

func sheetsCfg() *Config {
	cfg := validCfg()
	cfg.Store.Backend = BackendSheets
	cfg.Store.Sheets.PilotSheetID = "a"
	cfg.Store.Sheets.DroneSheetID = "b"
	cfg.Store.Sheets.MissionSheetID = "c"
	return cfg
}

func TestUAT_Validate_SheetsWithoutCredentials(t *testing.T) {
	expectError(t, sheetsCfg(), "credentials_file, credentials_json or token")
}

func TestUAT_Validate_SheetsAcceptsAnyCredential(t *testing.T) {
	for name, set := range map[string]func(*SheetsConfig){
		"json":  func(s *SheetsConfig) { s.CredentialsJSON = `{"type":"service_account"}` },
		"file":  func(s *SheetsConfig) { s.CredentialsFile = "/etc/skylark/sa.json" },
		"token": func(s *SheetsConfig) { s.Token = "ya29.tok" },
	} {
		t.Run(name, func(t *testing.T) {
			cfg := sheetsCfg()
			set(&cfg.Store.Sheets)
			if err := cfg.Validate(); err != nil {
				t.Fatalf("expected valid config, got: %v", err)
			}
		})
	}
}

func TestUAT_Validate_SheetsEndpointMustBeURL(t *testing.T) {
	cfg := sheetsCfg()
	cfg.Store.Sheets.Token = "tok"
	cfg.Store.Sheets.Endpoint = "not a url"
	expectError(t, cfg, "store.sheets.endpoint")
}

func TestUAT_Validate_NegativeRateLimit(t *testing.T) {
	cfg := validCfg()
	cfg.Store.Sheets.RateLimit = -1
	expectError(t, cfg, "store.sheets.rate_limit")
}
