// Package drive commands the two wheel motors of a differential-drive robot.
package drive

import (
	"errors"
	"fmt"
	"math"

	"github.com/psantana5/boxbot/pkg/host"
)

// Default device names of the e-puck wheel motors
const (
	LeftMotorName  = "left wheel motor"
	RightMotorName = "right wheel motor"
)

// ErrMissingMotor is returned when a wheel motor cannot be found
var ErrMissingMotor = errors.New("wheel motor not found")

// Differential drives a left/right motor pair. Speeds are fractions of
// MaxSpeed; positive fractions turn the wheel forwards.
type Differential struct {
	left     host.Motor
	right    host.Motor
	maxSpeed float64
}

// New looks up both wheel motors, switches them to velocity control and
// stops them.
func New(robot host.Robot, maxSpeed float64) (*Differential, error) {
	left, ok := robot.Motor(LeftMotorName)
	if !ok {
		return nil, fmt.Errorf("%q: %w", LeftMotorName, ErrMissingMotor)
	}
	right, ok := robot.Motor(RightMotorName)
	if !ok {
		return nil, fmt.Errorf("%q: %w", RightMotorName, ErrMissingMotor)
	}

	left.SetPosition(math.Inf(1))
	right.SetPosition(math.Inf(1))

	d := &Differential{left: left, right: right, maxSpeed: maxSpeed}
	d.Stop()
	return d, nil
}

// Set commands each wheel to a fraction of the maximum speed
func (d *Differential) Set(left, right float64) {
	d.left.SetVelocity(left * d.maxSpeed)
	d.right.SetVelocity(right * d.maxSpeed)
}

// Forward drives both wheels at fraction
func (d *Differential) Forward(fraction float64) {
	d.Set(fraction, fraction)
}

// TurnLeft rotates in place anticlockwise seen from the robot: left wheel
// backwards, right wheel forwards.
func (d *Differential) TurnLeft(fraction float64) {
	d.Set(-fraction, fraction)
}

// TurnRight rotates in place the other way
func (d *Differential) TurnRight(fraction float64) {
	d.Set(fraction, -fraction)
}

// Stop sets both wheel velocities to zero
func (d *Differential) Stop() {
	d.left.SetVelocity(0)
	d.right.SetVelocity(0)
}

// Velocities returns the last commanded wheel velocities in rad/s
func (d *Differential) Velocities() (left, right float64) {
	return d.left.Velocity(), d.right.Velocity()
}
