package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vidhaanviswas/skylark-drone-coordinator/internal/coordinator"
	"github.com/vidhaanviswas/skylark-drone-coordinator/internal/models"
	"github.com/vidhaanviswas/skylark-drone-coordinator/internal/store"
)

func pilotsCmd() *cobra.Command {
	var (
		skills, certs []string
		location      string
		status        string
	)

	cmd := &cobra.Command{
		Use:   "pilots [id]",
		Short: "List pilots, or show one pilot",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			coord, st, err := openCoordinator("pilots")
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			if len(args) == 1 {
				p, err := coord.Pilot(ctx, args[0])
				if err != nil {
					return fmt.Errorf("pilots: %w", err)
				}
				printPilot(p)
				return nil
			}

			f := coordinator.PilotFilter{Skills: skills, Certifications: certs, Location: location}
			if status != "" {
				ps, ok := models.ParsePilotStatus(status)
				if !ok {
					return fmt.Errorf("pilots: invalid status %q", status)
				}
				f.Status = ps
			}
			pilots, err := coord.QueryPilots(ctx, f)
			if err != nil {
				return fmt.Errorf("pilots: %w", err)
			}
			for i := range pilots {
				printPilot(pilots[i])
			}
			if len(pilots) == 0 {
				fmt.Println("No pilots found.")
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&skills, "skill", nil, "required skill (repeatable or comma-separated)")
	cmd.Flags().StringSliceVar(&certs, "cert", nil, "required certification (repeatable or comma-separated)")
	cmd.Flags().StringVar(&location, "location", "", "filter by location")
	cmd.Flags().StringVar(&status, "status", "", "filter by status")
	return cmd
}

func printPilot(p models.Pilot) {
	fmt.Printf("%s  %s [%s] %s\n", p.ID, p.Name, p.Status, p.Location)
	fmt.Printf("    Skills: %s | Certs: %s | Priority: %d | Hours: %.0f | Assignment: %s\n",
		joinOrDash(p.Skills), joinOrDash(p.Certifications), p.Priority, p.ExperienceHours, orDash(p.CurrentAssignment))
}

func dronesCmd() *cobra.Command {
	var (
		capabilities []string
		location     string
		status       string
	)

	cmd := &cobra.Command{
		Use:   "drones [id]",
		Short: "List drones, or show one drone",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			coord, st, err := openCoordinator("drones")
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			if len(args) == 1 {
				d, err := coord.Drone(ctx, args[0])
				if err != nil {
					return fmt.Errorf("drones: %w", err)
				}
				printDrone(d)
				return nil
			}

			f := coordinator.DroneFilter{Capabilities: capabilities, Location: location}
			if status != "" {
				ds, ok := models.ParseDroneStatus(status)
				if !ok {
					return fmt.Errorf("drones: invalid status %q", status)
				}
				f.Status = ds
			}
			drones, err := coord.QueryDrones(ctx, f)
			if err != nil {
				return fmt.Errorf("drones: %w", err)
			}
			for i := range drones {
				printDrone(drones[i])
			}
			if len(drones) == 0 {
				fmt.Println("No drones found.")
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&capabilities, "capability", nil, "required capability (repeatable or comma-separated)")
	cmd.Flags().StringVar(&location, "location", "", "filter by location")
	cmd.Flags().StringVar(&status, "status", "", "filter by status")
	return cmd
}

func printDrone(d models.Drone) {
	due := "-"
	if d.MaintenanceDue != nil {
		due = d.MaintenanceDue.Format(store.DateLayout)
	}
	fmt.Printf("%s  %s [%s] %s\n", d.ID, d.Model, d.Status, d.Location)
	fmt.Printf("    Capabilities: %s | Maintenance due: %s | Assignment: %s\n",
		joinOrDash(d.Capabilities), due, orDash(d.CurrentAssignment))
}

func missionsCmd() *cobra.Command {
	var statuses []string

	cmd := &cobra.Command{
		Use:   "missions [id]",
		Short: "List missions, or show one mission",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			coord, st, err := openCoordinator("missions")
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			if len(args) == 1 {
				m, err := coord.Mission(ctx, args[0])
				if err != nil {
					return fmt.Errorf("missions: %w", err)
				}
				printMission(m)
				return nil
			}

			filter := make([]models.MissionStatus, 0, len(statuses))
			for _, raw := range statuses {
				ms, ok := models.ParseMissionStatus(raw)
				if !ok {
					return fmt.Errorf("missions: invalid status %q", raw)
				}
				filter = append(filter, ms)
			}
			missions, err := coord.Missions(ctx, filter...)
			if err != nil {
				return fmt.Errorf("missions: %w", err)
			}
			for i := range missions {
				printMission(missions[i])
			}
			if len(missions) == 0 {
				fmt.Println("No missions found.")
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&statuses, "status", nil, "filter by status (repeatable or comma-separated)")
	return cmd
}

func printMission(m models.Mission) {
	fmt.Printf("%s  %s [%s] %s %s..%s (priority %d)\n", m.ID, m.Client, m.Status, m.Location,
		m.Start.Format(store.DateLayout), m.End.Format(store.DateLayout), m.Priority)
	fmt.Printf("    Needs: %s | Certs: %s | Drone: %s\n",
		joinOrDash(m.RequiredSkills), joinOrDash(m.RequiredCertifications), joinOrDash(m.RequiredCapabilities))
	fmt.Printf("    Pilot: %s | Drone: %s\n", orDash(m.AssignedPilotID), orDash(m.AssignedDroneID))
}

func printConflicts(conflicts []models.Conflict) {
	if len(conflicts) == 0 {
		fmt.Println("No conflicts.")
		return
	}
	for _, c := range conflicts {
		subject := strings.TrimSpace(c.PilotID + " " + c.DroneID)
		fmt.Printf("[%s] %s %s %s: %s\n", c.Severity, c.Kind, c.MissionID, orDash(subject), c.Message)
	}
}
