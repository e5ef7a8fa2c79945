// Package sim is an in-process kinematic stand-in for the robot simulator.
// It implements the host ports over a YAML world: a differential-drive
// e-puck integrated step by step, infrared proximity sensors ray-cast against
// box footprints, and supervisor access to every node. There are no
// collisions and no dynamics; boxes never move.
package sim

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/psantana5/boxbot/pkg/drive"
	"github.com/psantana5/boxbot/pkg/geometry"
	"github.com/psantana5/boxbot/pkg/host"
	"github.com/psantana5/boxbot/pkg/logging"
	"github.com/psantana5/boxbot/pkg/models"
	"golang.org/x/time/rate"
)

// ErrInvalidStep is returned when Step is called with a non-positive duration
var ErrInvalidStep = errors.New("step must be positive")

// Sim is a single-threaded simulation; every call must come from the
// controller loop.
type Sim struct {
	world *World

	position geometry.Vec3
	heading  float64

	motors  map[string]*motor
	sensors map[string]*distanceSensor
	nodes   map[string]host.Node
	self    *robotNode
	boxes   []footprint

	elapsed     time.Duration
	steps       int
	maxDuration time.Duration
	ended       bool

	realtime    bool
	limiter     *rate.Limiter
	limiterStep time.Duration

	logger *logging.Logger
}

// Option configures a Sim
type Option func(*Sim)

// WithRealtime paces Step so simulated time does not outrun wall time
func WithRealtime(enabled bool) Option {
	return func(s *Sim) { s.realtime = enabled }
}

// WithMaxDuration ends the simulation after d of simulated time, overriding
// the world's own limit. Zero keeps the world value.
func WithMaxDuration(d time.Duration) Option {
	return func(s *Sim) {
		if d > 0 {
			s.maxDuration = d
		}
	}
}

// WithLogger sets the simulation logger
func WithLogger(logger *logging.Logger) Option {
	return func(s *Sim) { s.logger = logger }
}

// New places the robot at its start pose and registers every box node
func New(world *World, opts ...Option) (*Sim, error) {
	if world == nil {
		return nil, errors.New("world is required")
	}
	world.applyDefaults()
	if err := world.Validate(); err != nil {
		return nil, fmt.Errorf("invalid world: %w", err)
	}

	s := &Sim{
		world:       world,
		position:    world.Robot.Position,
		heading:     geometry.Normalize(world.Robot.Heading),
		maxDuration: world.MaxDuration,
		motors: map[string]*motor{
			drive.LeftMotorName:  {max: world.Robot.MaxVelocity},
			drive.RightMotorName: {max: world.Robot.MaxVelocity},
		},
		sensors: make(map[string]*distanceSensor, len(epuckSensors)),
		nodes:   make(map[string]host.Node, len(world.Boxes)+1),
		logger:  logging.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}

	for name, angle := range epuckSensors {
		s.sensors[name] = &distanceSensor{name: name, angle: angle, value: lookup(math.Inf(1))}
	}

	s.self = &robotNode{sim: s}
	s.nodes[world.Robot.Def] = s.self

	for _, b := range world.Boxes {
		s.nodes[b.Def] = &boxNode{spec: b}
		half := b.Size.X() / 2
		depth := b.Size.Z() / 2
		s.boxes = append(s.boxes, footprint{
			minX: b.Position.X() - half, maxX: b.Position.X() + half,
			minZ: b.Position.Z() - depth, maxZ: b.Position.Z() + depth,
		})
	}

	s.logger.Info("simulation ready", logging.Fields{
		"world":        world.Name,
		"boxes":        len(world.Boxes),
		"realtime":     s.realtime,
		"max_duration": s.maxDuration.String(),
	})
	return s, nil
}

// Motor returns a wheel motor by device name
func (s *Sim) Motor(name string) (host.Motor, bool) {
	m, ok := s.motors[name]
	if !ok {
		return nil, false
	}
	return m, true
}

// DistanceSensor returns a proximity sensor by device name
func (s *Sim) DistanceSensor(name string) (host.DistanceSensor, bool) {
	ds, ok := s.sensors[name]
	if !ok {
		return nil, false
	}
	return ds, true
}

// NodeByDef returns a box or the robot by DEF name
func (s *Sim) NodeByDef(def string) (host.Node, bool) {
	n, ok := s.nodes[def]
	return n, ok
}

// Self returns the robot node
func (s *Sim) Self() (host.Node, bool) {
	return s.self, true
}

// Elapsed returns the simulated time
func (s *Sim) Elapsed() time.Duration {
	return s.elapsed
}

// Steps returns the number of completed steps
func (s *Sim) Steps() int {
	return s.steps
}

// Pose returns the robot position and heading
func (s *Sim) Pose() (geometry.Vec3, float64) {
	return s.position, s.heading
}

// Step advances the world by step: wheel commands are integrated, then the
// enabled sensors are sampled at the new pose.
func (s *Sim) Step(ctx context.Context, step time.Duration) error {
	if step <= 0 {
		return ErrInvalidStep
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.maxDuration > 0 && s.elapsed+step > s.maxDuration {
		if !s.ended {
			s.ended = true
			s.logger.Info("simulation time limit reached", logging.Fields{
				"elapsed": s.elapsed.String(),
				"steps":   s.steps,
			})
		}
		return host.ErrSimulationEnded
	}

	if s.realtime {
		if err := s.pace(ctx, step); err != nil {
			return err
		}
	}

	s.integrate(step.Seconds())
	s.elapsed += step
	s.steps++
	s.sample()
	return nil
}

func (s *Sim) pace(ctx context.Context, step time.Duration) error {
	if s.limiter == nil || s.limiterStep != step {
		s.limiter = rate.NewLimiter(rate.Every(step), 1)
		s.limiterStep = step
	}
	if err := s.limiter.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("pacing step: %w", err)
	}
	return nil
}

// integrate moves the robot with midpoint differential-drive kinematics.
// A faster left wheel raises the heading, which is a right turn in the
// controllers' bearing convention.
func (s *Sim) integrate(dt float64) {
	r := s.world.Robot.WheelRadius
	vl := s.motors[drive.LeftMotorName].effective()
	vr := s.motors[drive.RightMotorName].effective()

	linear := (vl + vr) / 2 * r
	angular := (vl - vr) * r / s.world.Robot.AxleLength

	mid := s.heading + angular*dt/2
	s.position[0] += linear * math.Cos(mid) * dt
	s.position[2] += linear * math.Sin(mid) * dt
	s.heading = geometry.Normalize(s.heading + angular*dt)
}

func (s *Sim) sample() {
	for _, ds := range s.sensors {
		if !ds.enabled {
			continue
		}
		ds.value = lookup(s.ray(s.heading + ds.angle))
	}
}

// ray returns the distance from the body edge along angle to the nearest
// box, or +Inf when nothing is in range.
func (s *Sim) ray(angle float64) float64 {
	dx, dz := math.Cos(angle), math.Sin(angle)
	ox := s.position.X() + dx*s.world.Robot.BodyRadius
	oz := s.position.Z() + dz*s.world.Robot.BodyRadius

	nearest := math.Inf(1)
	for _, box := range s.boxes {
		if t, ok := box.cast(ox, oz, dx, dz); ok && t < nearest {
			nearest = t
		}
	}
	if nearest > sensorRange {
		return math.Inf(1)
	}
	return nearest
}

// motor is a wheel motor. Wheels only turn in velocity mode, i.e. after the
// target position was set to +Inf.
type motor struct {
	position float64
	velocity float64
	max      float64
}

func (m *motor) SetPosition(position float64) { m.position = position }

func (m *motor) SetVelocity(velocity float64) {
	if m.max > 0 {
		velocity = math.Max(-m.max, math.Min(m.max, velocity))
	}
	m.velocity = velocity
}

func (m *motor) Velocity() float64 { return m.velocity }

func (m *motor) effective() float64 {
	if !math.IsInf(m.position, 1) {
		return 0
	}
	return m.velocity
}

type robotNode struct {
	sim *Sim
}

func (n *robotNode) Position() geometry.Vec3 { return n.sim.position }

func (n *robotNode) Orientation() geometry.Mat3 { return geometry.RotationY(n.sim.heading) }

func (n *robotNode) Field(string) (host.Field, bool) { return nil, false }

type boxNode struct {
	spec BoxSpec
}

func (n *boxNode) Position() geometry.Vec3 { return n.spec.Position }

func (n *boxNode) Orientation() geometry.Mat3 { return geometry.Identity() }

func (n *boxNode) Field(name string) (host.Field, bool) {
	if name != models.MassField || n.spec.Mass == nil {
		return nil, false
	}
	return massField(*n.spec.Mass), true
}

type massField float64

func (f massField) Float() (float64, error) { return float64(f), nil }
