package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vidhaanviswas/skylark-drone-coordinator/internal/coordinator"
)

func assignCmd() *cobra.Command {
	var pilotID, droneID string

	cmd := &cobra.Command{
		Use:   "assign <mission-id>",
		Short: "Assign a pilot and/or drone to a mission",
		Long: `Assigns after validation. Any critical conflict refuses the assignment;
other conflicts are printed as warnings. With both flags the pilot is
committed first.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if pilotID == "" && droneID == "" {
				return fmt.Errorf("assign: --pilot or --drone is required")
			}
			ctx := cmd.Context()
			coord, st, err := openCoordinator("assign")
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			if pilotID != "" {
				res, err := coord.AssignPilot(ctx, args[0], pilotID)
				if err != nil {
					return assignFailure("assign", err)
				}
				fmt.Printf("Pilot %s assigned to mission %s (status %s)\n", pilotID, args[0], res.Mission.Status)
				printConflicts(res.Warnings)
			}
			if droneID != "" {
				res, err := coord.AssignDrone(ctx, args[0], droneID)
				if err != nil {
					return assignFailure("assign", err)
				}
				fmt.Printf("Drone %s assigned to mission %s (status %s)\n", droneID, args[0], res.Mission.Status)
				printConflicts(res.Warnings)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&pilotID, "pilot", "", "pilot id")
	cmd.Flags().StringVar(&droneID, "drone", "", "drone id")
	return cmd
}

func reassignCmd() *cobra.Command {
	var pilotID, droneID, reason string

	cmd := &cobra.Command{
		Use:   "reassign <mission-id>",
		Short: "Reassign a mission to a new pilot and/or drone",
		Long: `Reassignment is an operator override: conflicts are reported but never block.
The previous assignee is released when it has no other open mission.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if pilotID == "" && droneID == "" {
				return fmt.Errorf("reassign: --pilot or --drone is required")
			}
			ctx := cmd.Context()
			coord, st, err := openCoordinator("reassign")
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			if pilotID != "" {
				res, err := coord.ReassignMission(ctx, args[0], pilotID, reason)
				if err != nil {
					return fmt.Errorf("reassign: %w", err)
				}
				fmt.Printf("Mission %s reassigned to pilot %s (event %s)\n", args[0], pilotID, res.Event.ID)
				if res.FreedPilot != nil {
					fmt.Printf("Pilot %s released (%s)\n", res.FreedPilot.ID, res.FreedPilot.Status)
				}
				printConflicts(res.Warnings)
			}
			if droneID != "" {
				res, err := coord.ReassignDrone(ctx, args[0], droneID, reason)
				if err != nil {
					return fmt.Errorf("reassign: %w", err)
				}
				fmt.Printf("Mission %s reassigned to drone %s (event %s)\n", args[0], droneID, res.Event.ID)
				if res.FreedDrone != nil {
					fmt.Printf("Drone %s released (%s)\n", res.FreedDrone.ID, res.FreedDrone.Status)
				}
				printConflicts(res.Warnings)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&pilotID, "pilot", "", "new pilot id")
	cmd.Flags().StringVar(&droneID, "drone", "", "new drone id")
	cmd.Flags().StringVar(&reason, "reason", "", "reason for the reassignment")
	return cmd
}

// assignFailure prints the blocking conflicts of a refused assignment.
func assignFailure(op string, err error) error {
	var blocked *coordinator.ValidationBlockedError
	if errors.As(err, &blocked) {
		printConflicts(blocked.Blocking)
	}
	return fmt.Errorf("%s: %w", op, err)
}
