// Package movetest runs a fixed open-loop motor sequence for calibrating the
// wheel commands: forward, rotate left, spin in place, stop.
package movetest

import (
	"context"
	"fmt"
	"time"

	"github.com/psantana5/boxbot/pkg/drive"
	"github.com/psantana5/boxbot/pkg/host"
	"github.com/psantana5/boxbot/pkg/logging"
	"github.com/psantana5/boxbot/pkg/metrics"
)

// ControllerName labels metrics and logs
const ControllerName = "movetest"

// Phase is one step of the sequence
type Phase int

const (
	PhaseForward Phase = iota + 1
	PhaseRotateLeft
	PhaseSpin
	PhaseStopped
)

func (p Phase) String() string {
	switch p {
	case PhaseForward:
		return "forward"
	case PhaseRotateLeft:
		return "rotate-left"
	case PhaseSpin:
		return "spin"
	case PhaseStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Config sets the tick budget of each phase; a phase ends once its counter
// exceeds the budget. At 64 ms per tick the defaults are roughly 3 s, 2 s
// and 6 s.
type Config struct {
	TimeStep     time.Duration `mapstructure:"time_step" yaml:"time_step" json:"time_step"`
	MaxSpeed     float64       `mapstructure:"max_speed" yaml:"max_speed" json:"max_speed"`
	ForwardTicks int           `mapstructure:"forward_ticks" yaml:"forward_ticks" json:"forward_ticks"`
	RotateTicks  int           `mapstructure:"rotate_ticks" yaml:"rotate_ticks" json:"rotate_ticks"`
	SpinTicks    int           `mapstructure:"spin_ticks" yaml:"spin_ticks" json:"spin_ticks"`
	ForwardSpeed float64       `mapstructure:"forward_speed" yaml:"forward_speed" json:"forward_speed"`
	RotateSpeed  float64       `mapstructure:"rotate_speed" yaml:"rotate_speed" json:"rotate_speed"`
	SpinSpeed    float64       `mapstructure:"spin_speed" yaml:"spin_speed" json:"spin_speed"`
}

// DefaultConfig returns the calibration sequence defaults
func DefaultConfig() Config {
	return Config{
		TimeStep:     64 * time.Millisecond,
		MaxSpeed:     6.28,
		ForwardTicks: 50,
		RotateTicks:  30,
		SpinTicks:    100,
		ForwardSpeed: 0.5,
		RotateSpeed:  0.3,
		SpinSpeed:    0.4,
	}
}

// Tester drives the sequence from a tick counter; it never reads a sensor.
type Tester struct {
	cfg     Config
	robot   host.Robot
	drive   *drive.Differential
	phase   Phase
	count   int
	ticks   int
	logger  *logging.Logger
	metrics *metrics.Metrics
}

// New prepares both wheel motors for velocity control
func New(robot host.Robot, cfg Config, logger *logging.Logger, m *metrics.Metrics) (*Tester, error) {
	if logger == nil {
		logger = logging.Discard()
	}
	d, err := drive.New(robot, cfg.MaxSpeed)
	if err != nil {
		return nil, err
	}

	t := &Tester{
		cfg:     cfg,
		robot:   robot,
		drive:   d,
		phase:   PhaseForward,
		logger:  logger,
		metrics: m,
	}
	t.metrics.Phase(int(t.phase))
	return t, nil
}

// Phase returns the current phase
func (t *Tester) Phase() Phase {
	return t.phase
}

// Ticks returns the number of processed steps
func (t *Tester) Ticks() int {
	return t.ticks
}

// Run steps the host until it ends the simulation or ctx is cancelled
func (t *Tester) Run(ctx context.Context) error {
	t.logger.Info("basic movement test", logging.Fields{"phase": int(t.phase), "name": t.phase.String(), "seconds": t.phaseSeconds(t.cfg.ForwardTicks)})

	for {
		if err := t.robot.Step(ctx, t.cfg.TimeStep); err != nil {
			if host.Ended(err) {
				t.logger.Info("simulation ended", logging.Fields{"ticks": t.ticks, "phase": t.phase.String()})
				return nil
			}
			return fmt.Errorf("simulation step failed: %w", err)
		}
		t.Tick()
	}
}

// Tick applies the current phase's wheel command and advances the phase
// when its budget is exhausted.
func (t *Tester) Tick() {
	t.ticks++
	t.count++
	t.metrics.Tick(ControllerName)

	switch t.phase {
	case PhaseForward:
		t.drive.Forward(t.cfg.ForwardSpeed)
		if t.count > t.cfg.ForwardTicks {
			t.advance(PhaseRotateLeft, t.cfg.RotateTicks)
		}
	case PhaseRotateLeft:
		t.drive.TurnLeft(t.cfg.RotateSpeed)
		if t.count > t.cfg.RotateTicks {
			t.advance(PhaseSpin, t.cfg.SpinTicks)
		}
	case PhaseSpin:
		t.drive.TurnRight(t.cfg.SpinSpeed)
		if t.count > t.cfg.SpinTicks {
			t.advance(PhaseStopped, 0)
		}
	default:
		t.drive.Stop()
	}

	t.metrics.Wheels(t.drive.Velocities())
}

func (t *Tester) advance(next Phase, budget int) {
	t.phase = next
	t.count = 0
	t.metrics.Phase(int(next))

	fields := logging.Fields{"phase": int(next), "name": next.String(), "tick": t.ticks}
	if budget > 0 {
		fields["seconds"] = t.phaseSeconds(budget)
	}
	t.logger.Info("movement phase", fields)
}

func (t *Tester) phaseSeconds(ticks int) float64 {
	return (time.Duration(ticks) * t.cfg.TimeStep).Seconds()
}
