// Package navigation drives the robot to the lightest box with a three-state
// machine: SEARCHING steers towards the target from afar, APPROACHING closes
// in slowly, SPINNING rotates in place once the box is reached.
package navigation

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/psantana5/boxbot/pkg/boxes"
	"github.com/psantana5/boxbot/pkg/drive"
	"github.com/psantana5/boxbot/pkg/geometry"
	"github.com/psantana5/boxbot/pkg/host"
	"github.com/psantana5/boxbot/pkg/logging"
	"github.com/psantana5/boxbot/pkg/metrics"
	"github.com/psantana5/boxbot/pkg/models"
	"github.com/psantana5/boxbot/pkg/store"
)

// ControllerName labels metrics, logs and recorded runs
const ControllerName = "navigator"

type sensor struct {
	name string
	host.DistanceSensor
}

// Controller is the navigation state machine. All counters live here; it is
// not safe for concurrent use and is driven by a single Run loop.
type Controller struct {
	params  Params
	sup     host.Supervisor
	drive   *drive.Differential
	self    host.Node
	sensors []sensor
	boxes   []models.Box

	target     models.Box
	targetMass float64
	hasTarget  bool

	state         models.RobotState
	tick          int
	stableCounter int
	searchCounter int
	spinAnnounced bool
	bestDistance  float64
	lastDistance  float64

	avoidances int
	restarts   int

	logger  *logging.Logger
	metrics *metrics.Metrics
	store   store.Store
	runID   string
}

// Option configures a Controller
type Option func(*Controller)

// WithLogger sets the controller logger
func WithLogger(logger *logging.Logger) Option {
	return func(c *Controller) { c.logger = logger }
}

// WithMetrics publishes controller metrics to m
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// WithStore records state transitions of run runID in s
func WithStore(s store.Store, runID string) Option {
	return func(c *Controller) {
		c.store = s
		c.runID = runID
	}
}

// New wires the controller to the host: wheel motors in velocity mode,
// available distance sensors enabled, boxes loaded and the target chosen.
// Missing sensors and boxes only degrade the behaviour; missing wheel
// motors are an error because the robot cannot move.
func New(sup host.Supervisor, params Params, opts ...Option) (*Controller, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid navigation parameters: %w", err)
	}

	c := &Controller{
		params:       params,
		sup:          sup,
		state:        models.StateSearching,
		bestDistance: math.Inf(1),
		lastDistance: math.Inf(1),
		logger:       logging.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}

	d, err := drive.New(sup, params.MaxSpeed)
	if err != nil {
		return nil, err
	}
	c.drive = d

	self, ok := sup.Self()
	if !ok {
		c.logger.Warn("robot node unavailable, assuming origin pose")
	}
	c.self = self

	front := make(map[string]bool, len(params.FrontSensors))
	for _, name := range params.FrontSensors {
		front[name] = true
	}
	for _, name := range params.SensorNames {
		ds, ok := sup.DistanceSensor(name)
		if !ok {
			c.logger.Warn("distance sensor not found", logging.Fields{"sensor": name})
			continue
		}
		ds.Enable(params.TimeStep)
		if front[name] {
			c.sensors = append(c.sensors, sensor{name: name, DistanceSensor: ds})
		}
	}

	c.boxes = boxes.Load(sup, params.BoxPrefix, params.BoxCount, c.logger)
	sel := boxes.SelectTarget(c.boxes, c.logger)
	c.target, c.targetMass, c.hasTarget = sel.Target, sel.Mass, sel.Found

	c.metrics.SetState(c.state)
	return c, nil
}

// State returns the current navigation state
func (c *Controller) State() models.RobotState {
	return c.state
}

// Target returns the selected target box
func (c *Controller) Target() (models.Box, bool) {
	return c.target, c.hasTarget
}

// Run steps the host until it ends the simulation or ctx is cancelled. A
// normal end returns nil.
func (c *Controller) Run(ctx context.Context) error {
	if c.hasTarget {
		c.logger.Info("searching for the light box", logging.Fields{"target": c.target.Name, "mass_kg": c.targetMass})
	} else {
		c.logger.Warn("no light box in the world, robot will only search")
	}

	for {
		if err := c.sup.Step(ctx, c.params.TimeStep); err != nil {
			if host.Ended(err) {
				c.logger.Info("simulation ended", logging.Fields{"ticks": c.tick, "state": c.state.String()})
				return nil
			}
			return fmt.Errorf("simulation step failed: %w", err)
		}
		c.Tick()
	}
}

// Tick runs one iteration of the state machine
func (c *Controller) Tick() {
	c.tick++
	c.metrics.Tick(ControllerName)
	defer c.publishWheels()

	distance := c.distanceToTarget()
	c.lastDistance = distance
	if !math.IsInf(distance, 0) {
		c.metrics.TargetDistance(distance)
	}

	switch c.state {
	case models.StateSearching:
		c.search(distance)
	case models.StateApproaching:
		c.approach(distance)
	case models.StateSpinning:
		c.spin()
	}
}

func (c *Controller) search(distance float64) {
	if !c.hasTarget {
		c.logger.Debug("no target box, turning to search")
		c.drive.TurnLeft(c.params.TurnSpeed)
		return
	}

	if distance < c.params.ApproachDistance {
		c.logger.Info("light box close by, approaching", logging.Fields{"distance_m": round(distance)})
		c.transition(models.StateApproaching, distance)
		c.stableCounter = 0
		c.searchCounter = 0
		return
	}

	c.searchCounter++
	if c.searchCounter > c.params.StuckTicks && distance > c.bestDistance {
		c.logger.Warn("no progress towards target, restarting search", logging.Fields{
			"distance_m": round(distance),
			"best_m":     round(c.bestDistance),
		})
		c.searchCounter = 0
		c.restarts++
		c.metrics.SearchRestarted()
		c.drive.TurnLeft(c.params.TurnSpeed)
		return
	}
	c.bestDistance = math.Min(c.bestDistance, distance)

	bearing := c.bearing()

	// Close to the target the sensors see the target itself
	if c.obstacleAhead() && distance > c.params.ObstacleClearance {
		c.drive.TurnLeft(c.params.TurnSpeed)
		c.stableCounter = 0
		c.avoidances++
		c.metrics.ObstacleAvoided()
		c.logger.Debug("obstacle ahead, steering left", logging.Fields{"distance_m": round(distance)})
		return
	}

	switch bearing {
	case geometry.BearingLeft:
		c.stableCounter = 0
		c.drive.TurnLeft(c.params.TurnSpeed)
		c.logger.Debug("turning left towards target", logging.Fields{"distance_m": round(distance)})
	case geometry.BearingRight:
		c.stableCounter = 0
		c.drive.TurnRight(c.params.TurnSpeed)
		c.logger.Debug("turning right towards target", logging.Fields{"distance_m": round(distance)})
	default:
		c.stableCounter++
		if c.stableCounter <= c.params.StableTicks {
			c.drive.Stop()
			c.logger.Debug("aligning with target", logging.Fields{"distance_m": round(distance)})
			return
		}
		if distance > c.params.CruiseDistance {
			c.drive.Forward(c.params.CruiseSpeed)
		} else {
			c.drive.Forward(c.params.SlowSpeed)
		}
		c.logger.Debug("heading to target", logging.Fields{"distance_m": round(distance)})
	}
}

func (c *Controller) approach(distance float64) {
	if distance > c.params.LostDistance {
		c.logger.Warn("target lost while approaching, searching again", logging.Fields{"distance_m": round(distance)})
		c.transition(models.StateSearching, distance)
		c.searchCounter = 0
		return
	}

	if distance < c.params.ArriveDistance {
		c.logger.Info("reached target box, spinning", logging.Fields{"target": c.target.Name, "distance_m": round(distance)})
		c.transition(models.StateSpinning, distance)
		c.drive.Stop()
		return
	}

	switch c.bearing() {
	case geometry.BearingForward:
		speed := c.params.FarSpeed
		if distance < c.params.NearBand {
			speed = c.params.NearSpeed
		} else if distance < c.params.MidBand {
			speed = c.params.MidSpeed
		}
		c.drive.Forward(speed)
		c.logger.Debug("approaching box", logging.Fields{"distance_m": round(distance), "speed": speed})
	case geometry.BearingLeft:
		c.drive.TurnLeft(c.params.TurnSpeed)
		c.logger.Debug("adjusting left")
	default:
		c.drive.TurnRight(c.params.TurnSpeed)
		c.logger.Debug("adjusting right")
	}
}

func (c *Controller) spin() {
	c.drive.TurnRight(c.params.SpinSpeed)
	if !c.spinAnnounced {
		c.logger.Info("spinning on own axis")
		c.spinAnnounced = true
	}
}

func (c *Controller) transition(to models.RobotState, distance float64) {
	from := c.state
	if err := models.ValidateTransition(from, to); err != nil {
		c.logger.Error("rejected state transition", logging.Fields{"error": err.Error()})
		return
	}
	c.state = to
	c.metrics.Transition(from, to)
	if models.IsTerminalState(to) {
		// Terminal states are held until the simulation ends
		c.spinAnnounced = false
		c.logger.Info("terminal state reached", logging.Fields{"state": to.String(), "tick": c.tick})
	}

	if c.store == nil {
		return
	}
	err := c.store.AddTransition(&store.Transition{
		RunID:    c.runID,
		Tick:     c.tick,
		From:     from,
		To:       to,
		Distance: distance,
		At:       time.Now(),
	})
	if err != nil {
		c.logger.Warn("failed to record transition", logging.Fields{"error": err.Error()})
	}
}

func (c *Controller) pose() (geometry.Vec3, geometry.Mat3) {
	if c.self == nil {
		return geometry.Vec3{}, geometry.Identity()
	}
	return c.self.Position(), c.self.Orientation()
}

func (c *Controller) distanceToTarget() float64 {
	if !c.hasTarget {
		return math.Inf(1)
	}
	pos, _ := c.pose()
	return geometry.PlanarDistance(pos, c.target.Node.Position())
}

func (c *Controller) bearing() geometry.Bearing {
	if !c.hasTarget {
		return geometry.BearingForward
	}
	pos, rot := c.pose()
	return geometry.BearingTo(pos, rot, c.target.Node.Position(), c.params.ForwardDeadZone)
}

func (c *Controller) obstacleAhead() bool {
	for _, s := range c.sensors {
		if s.Value() > c.params.ObstacleThreshold {
			return true
		}
	}
	return false
}

func (c *Controller) publishWheels() {
	c.metrics.Wheels(c.drive.Velocities())
}

func round(v float64) float64 {
	return math.Round(v*1000) / 1000
}
