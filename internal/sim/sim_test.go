package sim

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/psantana5/boxbot/pkg/drive"
	"github.com/psantana5/boxbot/pkg/geometry"
	"github.com/psantana5/boxbot/pkg/host"
	"github.com/psantana5/boxbot/pkg/models"
	"github.com/psantana5/boxbot/pkg/navigation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mass(m float64) *float64 { return &m }

func singleBox(x float64) *World {
	return &World{
		Name: "single",
		Boxes: []BoxSpec{{
			Def:      "CAIXA01",
			Position: geometry.Vec3{x, 0.025, 0},
			Size:     geometry.Vec3{0.05, 0.05, 0.05},
			Mass:     mass(0.5),
		}},
	}
}

func newSim(t *testing.T, w *World, opts ...Option) *Sim {
	t.Helper()
	s, err := New(w, opts...)
	require.NoError(t, err)
	return s
}

func stepN(t *testing.T, s *Sim, n int, step time.Duration) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, s.Step(context.Background(), step))
	}
}

func TestLookup(t *testing.T) {
	tests := []struct {
		distance float64
		want     float64
	}{
		{0, 4095},
		{0.0025, 3114},
		{0.02, 669},
		{0.045, 103},
		{math.Inf(1), 63},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, lookup(tt.distance), 1e-9, "distance %v", tt.distance)
	}
}

func TestFootprintCast(t *testing.T) {
	box := footprint{minX: -1, maxX: 1, minZ: -1, maxZ: 1}

	tests := []struct {
		name           string
		ox, oz, dx, dz float64
		want           float64
		hit            bool
	}{
		{name: "head on", ox: -3, dx: 1, want: 2, hit: true},
		{name: "from inside", ox: 0.5, dx: 1, want: 0, hit: true},
		{name: "pointing away", ox: -3, dx: -1},
		{name: "parallel miss", ox: -3, oz: 2, dx: 1},
		{name: "diagonal", ox: -2, oz: -2, dx: math.Sqrt2 / 2, dz: math.Sqrt2 / 2, want: math.Sqrt2, hit: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, hit := box.cast(tt.ox, tt.oz, tt.dx, tt.dz)
			assert.Equal(t, tt.hit, hit)
			if tt.hit {
				assert.InDelta(t, tt.want, got, 1e-9)
			}
		})
	}
}

func TestForwardMotion(t *testing.T) {
	s := newSim(t, &World{})
	d, err := drive.New(s, 6.28)
	require.NoError(t, err)

	d.Forward(1)
	stepN(t, s, 10, 100*time.Millisecond)

	pos, heading := s.Pose()
	assert.InDelta(t, 6.28*0.0205, pos.X(), 1e-9)
	assert.InDelta(t, 0, pos.Z(), 1e-9)
	assert.InDelta(t, 0, heading, 1e-9)
	assert.Equal(t, time.Second, s.Elapsed())
	assert.Equal(t, 10, s.Steps())
}

func TestTurnsMatchBearingConvention(t *testing.T) {
	s := newSim(t, &World{})
	d, err := drive.New(s, 6.28)
	require.NoError(t, err)

	// A goal on the robot's left must come round to dead ahead by turning left.
	goal := geometry.Vec3{0, 0, -0.5}
	self, _ := s.Self()
	require.Equal(t, geometry.BearingLeft, geometry.BearingTo(self.Position(), self.Orientation(), goal, 0.1))

	d.TurnLeft(0.2)
	for i := 0; i < 200; i++ {
		if geometry.BearingTo(self.Position(), self.Orientation(), goal, 0.1) == geometry.BearingForward {
			break
		}
		stepN(t, s, 1, 16*time.Millisecond)
	}
	assert.Equal(t, geometry.BearingForward, geometry.BearingTo(self.Position(), self.Orientation(), goal, 0.1))

	pos, heading := s.Pose()
	assert.InDelta(t, -math.Pi/2, heading, 0.25)
	assert.InDelta(t, 0, pos.Magnitude(), 1e-9, "turning in place does not translate")
}

func TestWheelsIdleOutsideVelocityMode(t *testing.T) {
	s := newSim(t, &World{})
	m, ok := s.Motor(drive.LeftMotorName)
	require.True(t, ok)

	m.SetVelocity(3)
	stepN(t, s, 5, 64*time.Millisecond)
	pos, heading := s.Pose()
	assert.Zero(t, pos.Magnitude())
	assert.Zero(t, heading)

	m.SetVelocity(100)
	assert.Equal(t, 6.28, m.Velocity())
}

func TestSensorsSeeBoxAhead(t *testing.T) {
	s := newSim(t, singleBox(0.1))

	front, ok := s.DistanceSensor("ps0")
	require.True(t, ok)
	back, ok := s.DistanceSensor("ps3")
	require.True(t, ok)
	idle, ok := s.DistanceSensor("ps7")
	require.True(t, ok)

	front.Enable(64 * time.Millisecond)
	back.Enable(64 * time.Millisecond)
	assert.Equal(t, 63.0, front.Value(), "ambient before the first step")

	stepN(t, s, 1, 64*time.Millisecond)
	assert.Greater(t, front.Value(), 80.0)
	assert.Less(t, front.Value(), 121.0)
	assert.Equal(t, 63.0, back.Value())
	assert.Equal(t, 63.0, idle.Value(), "disabled sensors are not sampled")

	_, ok = s.DistanceSensor("ps9")
	assert.False(t, ok)
}

func TestNodes(t *testing.T) {
	w := singleBox(0.3)
	w.Boxes = append(w.Boxes, BoxSpec{Def: "CAIXA02", Position: geometry.Vec3{0, 0.025, 1}, Size: geometry.Vec3{0.05, 0.05, 0.05}})
	s := newSim(t, w)

	box, ok := s.NodeByDef("CAIXA01")
	require.True(t, ok)
	assert.Equal(t, geometry.Vec3{0.3, 0.025, 0}, box.Position())
	f, ok := box.Field(models.MassField)
	require.True(t, ok)
	m, err := f.Float()
	require.NoError(t, err)
	assert.Equal(t, 0.5, m)

	noMass, ok := s.NodeByDef("CAIXA02")
	require.True(t, ok)
	_, ok = noMass.Field(models.MassField)
	assert.False(t, ok)

	_, ok = s.NodeByDef("CAIXA03")
	assert.False(t, ok)

	robot, ok := s.NodeByDef("EPUCK")
	require.True(t, ok)
	self, _ := s.Self()
	assert.Equal(t, self, robot)
	fx, fz := self.Orientation().Forward()
	assert.InDelta(t, 1, fx, 1e-9)
	assert.InDelta(t, 0, fz, 1e-9)
}

func TestStepLimits(t *testing.T) {
	w := &World{MaxDuration: time.Second}
	s := newSim(t, w)

	stepN(t, s, 4, 250*time.Millisecond)
	assert.ErrorIs(t, s.Step(context.Background(), 250*time.Millisecond), host.ErrSimulationEnded)
	assert.ErrorIs(t, s.Step(context.Background(), 250*time.Millisecond), host.ErrSimulationEnded)

	assert.ErrorIs(t, s.Step(context.Background(), 0), ErrInvalidStep)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, newSim(t, &World{}).Step(ctx, time.Millisecond), context.Canceled)
}

func TestMaxDurationOption(t *testing.T) {
	s := newSim(t, &World{MaxDuration: time.Hour}, WithMaxDuration(100*time.Millisecond))
	stepN(t, s, 2, 50*time.Millisecond)
	assert.ErrorIs(t, s.Step(context.Background(), 50*time.Millisecond), host.ErrSimulationEnded)
}

func TestRealtimePacing(t *testing.T) {
	s := newSim(t, &World{}, WithRealtime(true))

	start := time.Now()
	stepN(t, s, 4, 20*time.Millisecond)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestNavigatorReachesLightestBox(t *testing.T) {
	s := newSim(t, DefaultWorld(), WithMaxDuration(60*time.Second))

	ctrl, err := navigation.New(s, navigation.DefaultParams())
	require.NoError(t, err)

	target, ok := ctrl.Target()
	require.True(t, ok)
	assert.Equal(t, "CAIXA14", target.Name)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	params := navigation.DefaultParams()
	for ctrl.State() != models.StateSpinning {
		require.NoError(t, s.Step(ctx, params.TimeStep), "robot did not reach the box in time")
		ctrl.Tick()
	}

	pos, _ := s.Pose()
	assert.Less(t, geometry.PlanarDistance(pos, target.Node.Position()), params.ArriveDistance)
}
