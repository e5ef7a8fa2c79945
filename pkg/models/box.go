package models

import (
	"fmt"

	"github.com/psantana5/boxbot/pkg/host"
)

// MassField is the scene node field holding a box's mass in kg
const MassField = "mass"

// LightMassLimit separates light boxes from heavy ones
const LightMassLimit = 1.0

// MassClass labels a box by its mass
type MassClass string

const (
	MassLight MassClass = "Leve"
	MassHeavy MassClass = "Pesada"
)

// ClassifyMass returns MassLight below LightMassLimit and MassHeavy otherwise
func ClassifyMass(mass float64) MassClass {
	if mass < LightMassLimit {
		return MassLight
	}
	return MassHeavy
}

// Box is a reference to one of the numbered boxes in the scene
type Box struct {
	Name  string
	Index int
	Node  host.Node
}

// BoxName formats the DEF name of box index, e.g. CAIXA07
func BoxName(prefix string, index int) string {
	return fmt.Sprintf("%s%02d", prefix, index)
}

// Mass reads the box's mass field. It returns host.ErrNoField when the node
// has no mass field.
func (b Box) Mass() (float64, error) {
	field, ok := b.Node.Field(MassField)
	if !ok {
		return 0, fmt.Errorf("%s: %w", b.Name, host.ErrNoField)
	}
	mass, err := field.Float()
	if err != nil {
		return 0, fmt.Errorf("%s: read mass: %w", b.Name, err)
	}
	return mass, nil
}
