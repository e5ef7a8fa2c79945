// Package host defines the capabilities a controller consumes from the
// simulation engine. The engine owns physics, the scene graph and time; a
// controller only ever sees these ports, so it can run against the real
// simulator, the in-process kinematic host or a test fake.
package host

import (
	"context"
	"errors"
	"time"

	"github.com/psantana5/boxbot/pkg/geometry"
)

var (
	// ErrSimulationEnded is returned by Step when the host stops the simulation.
	ErrSimulationEnded = errors.New("simulation ended")

	// ErrNoField is returned when a node does not carry the requested field.
	ErrNoField = errors.New("field not found")
)

// Motor is a rotational wheel motor.
type Motor interface {
	// SetPosition sets the target position. +Inf switches to velocity control.
	SetPosition(position float64)
	// SetVelocity sets the target angular velocity in rad/s.
	SetVelocity(velocity float64)
	// Velocity returns the last commanded velocity.
	Velocity() float64
}

// DistanceSensor is a proximity sensor returning raw readings that grow as
// the obstacle gets closer.
type DistanceSensor interface {
	Enable(samplingPeriod time.Duration)
	Value() float64
}

// Field is a typed scene node field.
type Field interface {
	Float() (float64, error)
}

// Node is a handle into the scene graph.
type Node interface {
	Position() geometry.Vec3
	Orientation() geometry.Mat3
	// Field returns the named field, or false if the node has none.
	Field(name string) (Field, bool)
}

// Robot is the device-level API every controller gets.
type Robot interface {
	Motor(name string) (Motor, bool)
	DistanceSensor(name string) (DistanceSensor, bool)
	// Step advances the simulation by step. It returns ErrSimulationEnded when
	// the host terminates the run, or the context error if ctx is done.
	Step(ctx context.Context, step time.Duration) error
}

// Supervisor adds scene graph introspection to a Robot.
type Supervisor interface {
	Robot
	// NodeByDef looks up a node by its DEF name.
	NodeByDef(def string) (Node, bool)
	// Self returns the node of the robot running the controller.
	Self() (Node, bool)
}

// Ended reports whether err is a normal end of the simulation rather than a
// failure: the host sentinel or a cancelled context.
func Ended(err error) bool {
	return errors.Is(err, ErrSimulationEnded) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
