package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vidhaanviswas/skylark-drone-coordinator/internal/config"
	"github.com/vidhaanviswas/skylark-drone-coordinator/internal/conflict"
	"github.com/vidhaanviswas/skylark-drone-coordinator/internal/coordinator"
	"github.com/vidhaanviswas/skylark-drone-coordinator/internal/rank"
	"github.com/vidhaanviswas/skylark-drone-coordinator/internal/store"
)

var (
	cfg     *config.Config
	cfgFile string
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	rootCmd := &cobra.Command{
		Use:   "skylark",
		Short: "Skylark drone operations coordinator",
		Long:  "Skylark tracks pilots, drones and missions, detects assignment conflicts and ranks replacement pilots.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			return nil
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.skylark/config.yaml)")

	rootCmd.AddCommand(
		pilotsCmd(),
		dronesCmd(),
		missionsCmd(),
		conflictsCmd(),
		replaceCmd(),
		assignCmd(),
		reassignCmd(),
		statusCmd(),
		importCmd(),
		exportCmd(),
		healthCmd(),
		serveCmd(),
		mcpCmd(),
	)

	rootCmd.SetContext(ctx)

	err := rootCmd.Execute()
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if cfg != nil {
		switch cfg.Logging.Level {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg != nil && cfg.Logging.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// newStore opens the configured backend.
func newStore(logger *slog.Logger) (store.Store, error) {
	sc := cfg.Store
	switch sc.Backend {
	case config.BackendCSV:
		return store.NewCSVStore(sc.CSV.Dir)
	case config.BackendSQL:
		return store.OpenSQL(sc.SQL.Driver, sc.SQL.DSN)
	case config.BackendSheets:
		return store.NewSheetsStore(context.Background(), store.SheetsOptions{
			Endpoint:        sc.Sheets.Endpoint,
			CredentialsFile: sc.Sheets.CredentialsFile,
			CredentialsJSON: sc.Sheets.CredentialsJSON,
			Token:           sc.Sheets.Token,
			Pilots:          store.SheetRef{SpreadsheetID: sc.Sheets.PilotSheetID, SheetName: sc.Sheets.PilotSheetName},
			Drones:          store.SheetRef{SpreadsheetID: sc.Sheets.DroneSheetID, SheetName: sc.Sheets.DroneSheetName},
			Missions:        store.SheetRef{SpreadsheetID: sc.Sheets.MissionSheetID, SheetName: sc.Sheets.MissionSheetName},
			RateLimit:       sc.Sheets.RateLimit,
			Burst:           sc.Sheets.Burst,
			MaxRetries:      sc.Sheets.MaxRetries,
			BackoffBase:     sc.Sheets.BackoffBase,
		}, logger)
	default:
		if sc.Fixture != "" {
			logger.Debug("loading fixture", "path", sc.Fixture)
			return store.LoadFixtureFile(sc.Fixture)
		}
		return store.NewMemoryStore(), nil
	}
}

func newCoordinator(st store.Store, logger *slog.Logger) *coordinator.Coordinator {
	det := conflict.NewDetector(logger)
	ranker := rank.NewRanker(cfg.Ranking.Weights, cfg.Ranking.Limit, det, logger)
	return coordinator.New(st, det, ranker, logger)
}

// openCoordinator opens the configured store and wraps it in a
// coordinator. The caller closes the returned store.
func openCoordinator(op string) (*coordinator.Coordinator, store.Store, error) {
	logger := newLogger()
	st, err := newStore(logger)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: opening store: %w", op, err)
	}
	return newCoordinator(st, logger), st, nil
}

func joinOrDash(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
