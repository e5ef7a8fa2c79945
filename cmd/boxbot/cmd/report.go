package cmd

import (
	"github.com/psantana5/boxbot/pkg/reporter"
	"github.com/spf13/cobra"
)

var reportOnce bool

// reportCmd represents the report command
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print the position and mass of every box",
	Long: `Steps the simulation and prints two tables on every step: the X/Y/Z position
of each box and its mass with a light/heavy classification. Boxes without a
readable mass are shown as N/A.`,
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().BoolVar(&reportOnce, "once", false, "print a single report and exit")
}

func runReport(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd, reporter.ControllerName)
	if err != nil {
		return err
	}
	s.begin(reporter.ControllerName, "")

	r := reporter.New(s.sim, cfg.Reporter, cmd.OutOrStdout(), s.logger, s.metrics)

	var runErr error
	if reportOnce {
		if runErr = s.sim.Step(s.ctx, cfg.Reporter.TimeStep); runErr == nil {
			runErr = r.Report()
		}
	} else {
		runErr = r.Run(s.ctx)
	}

	s.finish(cmd, "", s.sim.Steps())
	return runErr
}
