package navigation

import (
	"github.com/psantana5/boxbot/pkg/models"
)

// Summary describes a controller run so far
type Summary struct {
	State              models.RobotState
	Ticks              int
	Target             string
	TargetMass         float64
	BoxesLoaded        int
	FrontSensors       int
	BestDistance       float64
	LastDistance       float64
	ObstacleAvoidances int
	SearchRestarts     int
}

// Summary returns the run statistics collected by the controller
func (c *Controller) Summary() Summary {
	s := Summary{
		State:              c.state,
		Ticks:              c.tick,
		BoxesLoaded:        len(c.boxes),
		FrontSensors:       len(c.sensors),
		BestDistance:       c.bestDistance,
		LastDistance:       c.lastDistance,
		ObstacleAvoidances: c.avoidances,
		SearchRestarts:     c.restarts,
	}
	if c.hasTarget {
		s.Target = c.target.Name
		s.TargetMass = c.targetMass
	}
	return s
}
