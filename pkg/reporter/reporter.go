// Package reporter prints the position and mass of every arena box on each
// simulation step, using the supervisor's view of the scene.
package reporter

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/psantana5/boxbot/pkg/boxes"
	"github.com/psantana5/boxbot/pkg/host"
	"github.com/psantana5/boxbot/pkg/logging"
	"github.com/psantana5/boxbot/pkg/metrics"
	"github.com/psantana5/boxbot/pkg/models"
)

// ControllerName labels metrics and logs
const ControllerName = "reporter"

// NotAvailable is printed when a mass cannot be read
const NotAvailable = "N/A"

// Config controls the reporter loop
type Config struct {
	TimeStep  time.Duration `mapstructure:"time_step" yaml:"time_step" json:"time_step"`
	Interval  time.Duration `mapstructure:"interval" yaml:"interval" json:"interval"`
	BoxPrefix string        `mapstructure:"box_prefix" yaml:"box_prefix" json:"box_prefix"`
	BoxCount  int           `mapstructure:"box_count" yaml:"box_count" json:"box_count"`
}

// DefaultConfig returns the reporter defaults: a 512 ms step and a one
// second pause between reports.
func DefaultConfig() Config {
	return Config{
		TimeStep:  512 * time.Millisecond,
		Interval:  time.Second,
		BoxPrefix: boxes.DefaultPrefix,
		BoxCount:  boxes.DefaultCount,
	}
}

// Reporter prints box tables to an output writer
type Reporter struct {
	cfg     Config
	sup     host.Supervisor
	boxes   []models.Box
	out     io.Writer
	logger  *logging.Logger
	metrics *metrics.Metrics
	reports int
}

// New loads the boxes. Boxes that cannot be found are logged and left out of
// the reports.
func New(sup host.Supervisor, cfg Config, out io.Writer, logger *logging.Logger, m *metrics.Metrics) *Reporter {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Reporter{
		cfg:     cfg,
		sup:     sup,
		boxes:   boxes.Load(sup, cfg.BoxPrefix, cfg.BoxCount, logger),
		out:     out,
		logger:  logger,
		metrics: m,
	}
}

// Boxes returns the loaded box references
func (r *Reporter) Boxes() []models.Box {
	return r.boxes
}

// Reports returns how many reports were printed
func (r *Reporter) Reports() int {
	return r.reports
}

// Run reports on every step until the simulation ends or ctx is cancelled
func (r *Reporter) Run(ctx context.Context) error {
	for {
		if err := r.sup.Step(ctx, r.cfg.TimeStep); err != nil {
			if host.Ended(err) {
				r.logger.Info("simulation ended", logging.Fields{"reports": r.reports})
				return nil
			}
			return fmt.Errorf("simulation step failed: %w", err)
		}
		r.metrics.Tick(ControllerName)

		if err := r.Report(); err != nil {
			r.logger.Warn("failed to render report", logging.Fields{"error": err.Error()})
		}

		if r.cfg.Interval > 0 {
			select {
			case <-ctx.Done():
				r.logger.Info("reporter stopped", logging.Fields{"reports": r.reports})
				return nil
			case <-time.After(r.cfg.Interval):
			}
		}
	}
}

// Report prints the position table followed by the mass table
func (r *Reporter) Report() error {
	positions := tablewriter.NewWriter(r.out)
	positions.Header("Caixa", "X", "Y", "Z")

	masses := tablewriter.NewWriter(r.out)
	masses.Header("Nome", "Massa", "Material")

	for _, box := range r.boxes {
		pos := box.Node.Position()
		if err := positions.Append(
			box.Name,
			fmt.Sprintf("%6.2f", pos.X()),
			fmt.Sprintf("%6.2f", pos.Y()),
			fmt.Sprintf("%6.2f", pos.Z()),
		); err != nil {
			return err
		}

		mass, err := readMass(box)
		if err != nil {
			r.logger.Debug("mass unavailable", logging.Fields{"box": box.Name, "error": err.Error()})
			r.metrics.Box(box.Name, pos, 0, false)
			if err := masses.Append(box.Name, NotAvailable, NotAvailable); err != nil {
				return err
			}
			continue
		}
		r.metrics.Box(box.Name, pos, mass, true)
		if err := masses.Append(box.Name, fmt.Sprintf("%6.2fkg", mass), string(models.ClassifyMass(mass))); err != nil {
			return err
		}
	}

	if err := positions.Render(); err != nil {
		return err
	}
	fmt.Fprintln(r.out)
	if err := masses.Render(); err != nil {
		return err
	}
	fmt.Fprintln(r.out)

	r.reports++
	return nil
}

// readMass turns a panicking field accessor into an error so one broken box
// cannot stop the report.
func readMass(box models.Box) (mass float64, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%s: mass lookup panicked: %v", box.Name, rec)
		}
	}()
	return box.Mass()
}
