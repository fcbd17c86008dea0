package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vidhaanviswas/skylark-drone-coordinator/internal/models"
)

func conflictsCmd() *cobra.Command {
	var missionID, pilotID, droneID string

	cmd := &cobra.Command{
		Use:   "conflicts",
		Short: "Detect conflicts for one mission or across the fleet",
		Long: `Without flags, scans every assigned mission and groups the conflicts by severity.
With --mission, checks that mission's current assignment, or the proposed
--pilot and/or --drone against it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			coord, st, err := openCoordinator("conflicts")
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			if missionID == "" {
				if pilotID != "" || droneID != "" {
					return fmt.Errorf("conflicts: --pilot and --drone require --mission")
				}
				report, err := coord.DetectAllConflicts(ctx)
				if err != nil {
					return fmt.Errorf("conflicts: %w", err)
				}
				fmt.Printf("Total: %d (critical %d, high %d, medium %d)\n",
					report.TotalCount, report.Critical.Count, report.High.Count, report.Medium.Count)
				for _, mc := range report.Missions {
					fmt.Printf("\nMission %s\n", mc.MissionID)
					printConflicts(mc.Conflicts)
				}
				return nil
			}

			conflicts, err := coord.CheckConflicts(ctx, pilotID, droneID, missionID)
			if err != nil {
				return fmt.Errorf("conflicts: %w", err)
			}
			printConflicts(conflicts)
			return nil
		},
	}

	cmd.Flags().StringVar(&missionID, "mission", "", "mission id")
	cmd.Flags().StringVar(&pilotID, "pilot", "", "proposed pilot id")
	cmd.Flags().StringVar(&droneID, "drone", "", "proposed drone id")
	return cmd
}

func replaceCmd() *cobra.Command {
	var urgency string

	cmd := &cobra.Command{
		Use:   "replace <mission-id>",
		Short: "Rank replacement pilots for a mission",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			u, ok := models.ParseUrgency(urgency)
			if !ok {
				return fmt.Errorf("replace: invalid urgency %q (use low, normal, high or critical)", urgency)
			}

			coord, st, err := openCoordinator("replace")
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			cands, err := coord.FindReplacementCandidates(ctx, args[0], u)
			if err != nil {
				return fmt.Errorf("replace: %w", err)
			}
			if len(cands) == 0 {
				fmt.Println("No replacement candidates found.")
				return nil
			}
			for i, c := range cands {
				fmt.Printf("[%d] %s %s (score %.2f, location match %t)\n", i+1, c.Pilot.ID, c.Pilot.Name, c.Score, c.LocationMatch)
				for _, cf := range c.Conflicts {
					fmt.Printf("    [%s] %s: %s\n", cf.Severity, cf.Kind, cf.Message)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&urgency, "urgency", "normal", "urgency: low, normal, high or critical")
	return cmd
}
