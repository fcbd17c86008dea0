package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vidhaanviswas/skylark-drone-coordinator/internal/store"
)

func exportCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the configured store to a CSV directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			src, err := newStore(logger)
			if err != nil {
				return fmt.Errorf("export: opening store: %w", err)
			}
			defer func() { _ = src.Close() }()

			dst, err := store.NewCSVStore(dir)
			if err != nil {
				return fmt.Errorf("export: %w", err)
			}

			pilots, drones, missions, err := store.Copy(ctx, dst, src)
			if err != nil {
				return fmt.Errorf("export: %w", err)
			}
			fmt.Fprintf(os.Stderr, "Exported %d pilots, %d drones, %d missions to %s\n", pilots, drones, missions, dir)
			return nil
		},
	}

	cmd.Flags().StringVarP(&dir, "output", "o", "export", "output directory")
	return cmd
}
