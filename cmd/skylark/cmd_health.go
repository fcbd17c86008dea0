package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the configured store loads cleanly",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			backend := cfg.Store.Backend

			coord, st, err := openCoordinator("health")
			if err != nil {
				fmt.Printf("Store (%s): FAIL (%v)\n", backend, err)
				return fmt.Errorf("one or more health checks failed")
			}
			defer func() { _ = st.Close() }()

			stats, err := coord.Refresh(ctx)
			if err != nil {
				fmt.Printf("Store (%s): FAIL (%v)\n", backend, err)
				return fmt.Errorf("one or more health checks failed")
			}
			fmt.Printf("Store (%s): OK (%d pilots, %d drones, %d missions)\n",
				backend, stats.Pilots, stats.Drones, stats.Missions)

			if cfg.API.AuthToken == "" {
				fmt.Println("API auth: WARN (no auth token configured)")
			} else {
				fmt.Println("API auth: OK")
			}
			return nil
		},
	}
}
