// Package hosttest provides in-memory implementations of the host ports for
// controller unit tests.
package hosttest

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/psantana5/boxbot/pkg/geometry"
	"github.com/psantana5/boxbot/pkg/host"
)

// Motor records every command it receives.
type Motor struct {
	Position   float64
	velocity   float64
	Velocities []float64
}

func (m *Motor) SetPosition(position float64) { m.Position = position }

func (m *Motor) SetVelocity(velocity float64) {
	m.velocity = velocity
	m.Velocities = append(m.Velocities, velocity)
}

func (m *Motor) Velocity() float64 { return m.velocity }

// VelocityControl reports whether the motor was switched to velocity mode.
func (m *Motor) VelocityControl() bool { return math.IsInf(m.Position, 1) }

// Sensor returns a fixed reading.
type Sensor struct {
	Reading float64
	Period  time.Duration
}

func (s *Sensor) Enable(samplingPeriod time.Duration) { s.Period = samplingPeriod }
func (s *Sensor) Value() float64                      { return s.Reading }

// Field is a float field; Err makes reads fail.
type Field struct {
	Value float64
	Err   error
}

func (f *Field) Float() (float64, error) {
	if f.Err != nil {
		return 0, f.Err
	}
	return f.Value, nil
}

// Node is a mutable scene node.
type Node struct {
	Pos    geometry.Vec3
	Rot    geometry.Mat3
	Fields map[string]*Field
}

// NewNode returns a node at pos facing +X.
func NewNode(pos geometry.Vec3) *Node {
	return &Node{Pos: pos, Rot: geometry.Identity(), Fields: map[string]*Field{}}
}

// WithMass sets the mass field and returns the node.
func (n *Node) WithMass(mass float64) *Node {
	n.Fields["mass"] = &Field{Value: mass}
	return n
}

func (n *Node) Position() geometry.Vec3    { return n.Pos }
func (n *Node) Orientation() geometry.Mat3 { return n.Rot }

func (n *Node) Field(name string) (host.Field, bool) {
	f, ok := n.Fields[name]
	if !ok {
		return nil, false
	}
	return f, true
}

// Supervisor is a scriptable host. Each Step calls OnStep (if set) before
// returning, and ends the run after MaxSteps steps when MaxSteps > 0.
type Supervisor struct {
	Motors  map[string]*Motor
	Sensors map[string]*Sensor
	Nodes   map[string]*Node
	Robot   *Node

	MaxSteps int
	Steps    int
	OnStep   func(step int)
}

// NewSupervisor returns a host with the two wheel motors and no sensors.
func NewSupervisor() *Supervisor {
	return &Supervisor{
		Motors: map[string]*Motor{
			"left wheel motor":  {},
			"right wheel motor": {},
		},
		Sensors: map[string]*Sensor{},
		Nodes:   map[string]*Node{},
		Robot:   NewNode(geometry.Vec3{}),
	}
}

// AddSensors registers sensors with a zero reading.
func (s *Supervisor) AddSensors(names ...string) {
	for _, name := range names {
		s.Sensors[name] = &Sensor{}
	}
}

// AddBox registers a box node named prefix%02d.
func (s *Supervisor) AddBox(index int, pos geometry.Vec3, mass float64) *Node {
	n := NewNode(pos).WithMass(mass)
	s.Nodes[fmt.Sprintf("CAIXA%02d", index)] = n
	return n
}

func (s *Supervisor) Left() *Motor  { return s.Motors["left wheel motor"] }
func (s *Supervisor) Right() *Motor { return s.Motors["right wheel motor"] }

func (s *Supervisor) Motor(name string) (host.Motor, bool) {
	m, ok := s.Motors[name]
	if !ok {
		return nil, false
	}
	return m, true
}

func (s *Supervisor) DistanceSensor(name string) (host.DistanceSensor, bool) {
	ds, ok := s.Sensors[name]
	if !ok {
		return nil, false
	}
	return ds, true
}

func (s *Supervisor) NodeByDef(def string) (host.Node, bool) {
	n, ok := s.Nodes[def]
	if !ok {
		return nil, false
	}
	return n, true
}

func (s *Supervisor) Self() (host.Node, bool) {
	if s.Robot == nil {
		return nil, false
	}
	return s.Robot, true
}

func (s *Supervisor) Step(ctx context.Context, step time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.MaxSteps > 0 && s.Steps >= s.MaxSteps {
		return host.ErrSimulationEnded
	}
	s.Steps++
	if s.OnStep != nil {
		s.OnStep(s.Steps)
	}
	return nil
}

// ErrBrokenField is a convenience error for failing field reads.
var ErrBrokenField = errors.New("broken field")
