package sim

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/psantana5/boxbot/pkg/geometry"
	"gopkg.in/yaml.v3"
)

//go:embed arena.yaml
var defaultArena []byte

// World describes the arena: one e-puck and a set of boxes
type World struct {
	Name        string        `yaml:"name"`
	MaxDuration time.Duration `yaml:"max_duration"`
	Robot       RobotSpec     `yaml:"robot"`
	Boxes       []BoxSpec     `yaml:"boxes"`
}

// RobotSpec is the robot start pose and drive geometry. Heading is the yaw in
// radians; the robot drives along (cos, sin) on the X/Z plane.
type RobotSpec struct {
	Def         string        `yaml:"def"`
	Position    geometry.Vec3 `yaml:"position"`
	Heading     float64       `yaml:"heading"`
	WheelRadius float64       `yaml:"wheel_radius"`
	AxleLength  float64       `yaml:"axle_length"`
	BodyRadius  float64       `yaml:"body_radius"`
	MaxVelocity float64       `yaml:"max_velocity"`
}

// BoxSpec is an axis-aligned box. A nil Mass means the node has no mass
// field.
type BoxSpec struct {
	Def      string        `yaml:"def"`
	Position geometry.Vec3 `yaml:"position"`
	Size     geometry.Vec3 `yaml:"size"`
	Mass     *float64      `yaml:"mass,omitempty"`
}

// LoadWorld reads a world file
func LoadWorld(path string) (*World, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read world file: %w", err)
	}
	w, err := ParseWorld(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return w, nil
}

// DefaultWorld returns the built-in 20 box arena
func DefaultWorld() *World {
	w, err := ParseWorld(defaultArena)
	if err != nil {
		panic(fmt.Sprintf("embedded arena is invalid: %v", err))
	}
	return w
}

// ParseWorld decodes and validates a YAML world. Missing robot parameters
// fall back to e-puck values.
func ParseWorld(data []byte) (*World, error) {
	var w World
	if err := yaml.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("failed to parse world: %w", err)
	}
	w.applyDefaults()
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return &w, nil
}

func (w *World) applyDefaults() {
	if w.Robot.Def == "" {
		w.Robot.Def = "EPUCK"
	}
	if w.Robot.WheelRadius == 0 {
		w.Robot.WheelRadius = 0.0205
	}
	if w.Robot.AxleLength == 0 {
		w.Robot.AxleLength = 0.052
	}
	if w.Robot.BodyRadius == 0 {
		w.Robot.BodyRadius = 0.037
	}
	if w.Robot.MaxVelocity == 0 {
		w.Robot.MaxVelocity = 6.28
	}
}

// Validate checks drive geometry and box definitions
func (w *World) Validate() error {
	var errs []error
	if w.MaxDuration < 0 {
		errs = append(errs, errors.New("max_duration must not be negative"))
	}
	if w.Robot.WheelRadius <= 0 || w.Robot.AxleLength <= 0 || w.Robot.BodyRadius <= 0 || w.Robot.MaxVelocity <= 0 {
		errs = append(errs, errors.New("robot dimensions must be positive"))
	}

	seen := make(map[string]bool, len(w.Boxes)+1)
	seen[w.Robot.Def] = true
	for i, b := range w.Boxes {
		if b.Def == "" {
			errs = append(errs, fmt.Errorf("box %d: def is required", i))
			continue
		}
		if seen[b.Def] {
			errs = append(errs, fmt.Errorf("box %d: duplicate def %q", i, b.Def))
		}
		seen[b.Def] = true
		if b.Size.X() <= 0 || b.Size.Y() <= 0 || b.Size.Z() <= 0 {
			errs = append(errs, fmt.Errorf("box %q: size must be positive", b.Def))
		}
		if b.Mass != nil && *b.Mass < 0 {
			errs = append(errs, fmt.Errorf("box %q: mass must not be negative", b.Def))
		}
	}
	return errors.Join(errs...)
}
