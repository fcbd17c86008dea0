package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vidhaanviswas/skylark-drone-coordinator/internal/models"
)

func statusCmd() *cobra.Command {
	var location string

	cmd := &cobra.Command{
		Use:   "status pilot|drone <id> <status>",
		Short: "Update a pilot's or drone's status",
		Example: `  skylark status pilot P001 "On Leave"
  skylark status drone D002 Maintenance --location Mumbai`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			kind, id, raw := args[0], args[1], args[2]

			coord, st, err := openCoordinator("status")
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			switch kind {
			case "pilot":
				if location != "" {
					return fmt.Errorf("status: --location applies to drones only")
				}
				ps, ok := models.ParsePilotStatus(raw)
				if !ok {
					return fmt.Errorf("status: invalid pilot status %q", raw)
				}
				p, err := coord.UpdatePilotStatus(ctx, id, ps)
				if err != nil {
					return fmt.Errorf("status: %w", err)
				}
				fmt.Printf("Pilot %s status updated to %s\n", p.ID, p.Status)
			case "drone":
				ds, ok := models.ParseDroneStatus(raw)
				if !ok {
					return fmt.Errorf("status: invalid drone status %q", raw)
				}
				d, err := coord.UpdateDroneStatus(ctx, id, ds, location)
				if err != nil {
					return fmt.Errorf("status: %w", err)
				}
				fmt.Printf("Drone %s status updated to %s at %s\n", d.ID, d.Status, d.Location)
			default:
				return fmt.Errorf("status: unknown record kind %q (use pilot or drone)", kind)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&location, "location", "", "new drone location")
	return cmd
}
