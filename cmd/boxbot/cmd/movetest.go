package cmd

import (
	"fmt"

	"github.com/psantana5/boxbot/pkg/movetest"
	"github.com/spf13/cobra"
)

// movetestCmd represents the movetest command
var movetestCmd = &cobra.Command{
	Use:   "movetest",
	Short: "Run the open-loop wheel calibration sequence",
	Long: `Drives forward, rotates left, spins in place and stops, switching phases on
tick counts only. Useful to check wheel directions and speeds.`,
	RunE: runMovetest,
}

func init() {
	rootCmd.AddCommand(movetestCmd)
}

func runMovetest(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd, movetest.ControllerName)
	if err != nil {
		return err
	}

	tester, err := movetest.New(s.sim, cfg.MoveTest, s.logger, s.metrics)
	if err != nil {
		s.abort()
		return err
	}
	s.begin(movetest.ControllerName, "")

	runErr := tester.Run(s.ctx)
	s.finish(cmd, "", tester.Ticks())
	if runErr != nil {
		return runErr
	}

	pos, heading := s.sim.Pose()
	fmt.Fprintf(cmd.OutOrStdout(), "final phase %s after %d ticks (%s simulated), robot at (%.3f, %.3f) heading %.2f rad\n",
		tester.Phase(), tester.Ticks(), s.sim.Elapsed(), pos.X(), pos.Z(), heading)
	return nil
}
