package cmd

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/psantana5/boxbot/pkg/navigation"
	"github.com/spf13/cobra"
)

// navigateCmd represents the navigate command
var navigateCmd = &cobra.Command{
	Use:   "navigate",
	Short: "Find the lightest box and spin next to it",
	Long: `Reads the mass of every box through the supervisor, picks the lightest one
and drives the robot to it with the SEARCHING / APPROACHING / SPINNING state
machine. Runs until the simulation time limit or Ctrl-C, then prints a summary.`,
	RunE: runNavigate,
}

func init() {
	rootCmd.AddCommand(navigateCmd)
}

func runNavigate(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd, navigation.ControllerName)
	if err != nil {
		return err
	}

	opts := []navigation.Option{
		navigation.WithLogger(s.logger),
		navigation.WithMetrics(s.metrics),
	}
	if s.store != nil {
		opts = append(opts, navigation.WithStore(s.store, s.runID))
	}

	ctrl, err := navigation.New(s.sim, cfg.Navigation, opts...)
	if err != nil {
		s.abort()
		return err
	}

	target := ""
	if box, ok := ctrl.Target(); ok {
		target = box.Name
	}
	s.begin(navigation.ControllerName, target)

	runErr := ctrl.Run(s.ctx)

	summary := ctrl.Summary()
	s.finish(cmd, summary.State, summary.Ticks)
	if runErr != nil {
		return runErr
	}

	printSummary(cmd.OutOrStdout(), s.runID, summary, s.sim.Elapsed())
	return nil
}

func printSummary(w io.Writer, runID string, summary navigation.Summary, elapsed time.Duration) {
	target := summary.Target
	mass := "-"
	if target == "" {
		target = "none"
	} else {
		mass = fmt.Sprintf("%.2fkg", summary.TargetMass)
	}

	table := tablewriter.NewWriter(w)
	table.Header("Field", "Value")
	table.Append("Run", runID)
	table.Append("Final state", summary.State.String())
	table.Append("Ticks", strconv.Itoa(summary.Ticks))
	table.Append("Simulated time", elapsed.String())
	table.Append("Target", target)
	table.Append("Target mass", mass)
	table.Append("Boxes loaded", strconv.Itoa(summary.BoxesLoaded))
	table.Append("Front sensors", strconv.Itoa(summary.FrontSensors))
	table.Append("Best distance", meters(summary.BestDistance))
	table.Append("Last distance", meters(summary.LastDistance))
	table.Append("Obstacle avoidances", strconv.Itoa(summary.ObstacleAvoidances))
	table.Append("Search restarts", strconv.Itoa(summary.SearchRestarts))
	table.Render()
}

func meters(d float64) string {
	if math.IsInf(d, 0) {
		return "-"
	}
	return fmt.Sprintf("%.3fm", d)
}
