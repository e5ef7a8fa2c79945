package drive

import (
	"testing"

	"github.com/psantana5/boxbot/pkg/host/hosttest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSwitchesToVelocityControl(t *testing.T) {
	sup := hosttest.NewSupervisor()

	d, err := New(sup, 6.28)
	require.NoError(t, err)

	assert.True(t, sup.Left().VelocityControl())
	assert.True(t, sup.Right().VelocityControl())
	l, r := d.Velocities()
	assert.Zero(t, l)
	assert.Zero(t, r)
}

func TestNewMissingMotor(t *testing.T) {
	sup := hosttest.NewSupervisor()
	delete(sup.Motors, RightMotorName)

	_, err := New(sup, 6.28)
	assert.ErrorIs(t, err, ErrMissingMotor)
}

func TestCommands(t *testing.T) {
	tests := []struct {
		name      string
		apply     func(d *Differential)
		wantLeft  float64
		wantRight float64
	}{
		{"Forward", func(d *Differential) { d.Forward(0.5) }, 5, 5},
		{"TurnLeft", func(d *Differential) { d.TurnLeft(0.4) }, -4, 4},
		{"TurnRight", func(d *Differential) { d.TurnRight(0.4) }, 4, -4},
		{"Stop", func(d *Differential) { d.Forward(1); d.Stop() }, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := New(hosttest.NewSupervisor(), 10)
			require.NoError(t, err)

			tt.apply(d)
			l, r := d.Velocities()
			assert.InDelta(t, tt.wantLeft, l, 1e-9)
			assert.InDelta(t, tt.wantRight, r, 1e-9)
		})
	}
}
