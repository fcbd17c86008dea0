package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vidhaanviswas/skylark-drone-coordinator/internal/config"
	"github.com/vidhaanviswas/skylark-drone-coordinator/internal/store"
)

func importCmd() *cobra.Command {
	var (
		filePath string
		csvDir   string
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import pilots, drones and missions into the configured store",
		Long: `Import records from a YAML fixture (--file) or a directory of
pilot_roster.csv, drone_fleet.csv and missions.csv (--csv-dir).
Existing records with the same id are replaced.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			if (filePath == "") == (csvDir == "") {
				return fmt.Errorf("import: exactly one of --file or --csv-dir is required")
			}
			if cfg.Store.Backend == config.BackendMemory {
				logger.Warn("import: the memory backend does not persist; records are dropped on exit")
			}

			var src store.Store
			var err error
			if filePath != "" {
				src, err = store.LoadFixtureFile(filePath)
			} else {
				src, err = store.NewCSVStore(csvDir)
			}
			if err != nil {
				return fmt.Errorf("import: opening source: %w", err)
			}
			defer func() { _ = src.Close() }()

			dst, err := newStore(logger)
			if err != nil {
				return fmt.Errorf("import: opening store: %w", err)
			}
			defer func() { _ = dst.Close() }()

			pilots, drones, missions, err := store.Copy(ctx, dst, src)
			if err != nil {
				return fmt.Errorf("import: %w", err)
			}
			fmt.Printf("Imported %d pilots, %d drones, %d missions\n", pilots, drones, missions)
			return nil
		},
	}

	cmd.Flags().StringVarP(&filePath, "file", "f", "", "path to a YAML fixture")
	cmd.Flags().StringVar(&csvDir, "csv-dir", "", "directory of CSV tables")
	return cmd
}
