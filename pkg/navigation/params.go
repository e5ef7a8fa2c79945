package navigation

import (
	"errors"
	"fmt"
	"time"

	"github.com/psantana5/boxbot/pkg/boxes"
)

// Params holds the tuned constants of the navigation controller. The
// defaults were found empirically on the e-puck arena; distances are in
// meters, speeds are fractions of MaxSpeed and counters are in ticks.
type Params struct {
	TimeStep  time.Duration `mapstructure:"time_step" yaml:"time_step" json:"time_step"`
	MaxSpeed  float64       `mapstructure:"max_speed" yaml:"max_speed" json:"max_speed"`
	BoxPrefix string        `mapstructure:"box_prefix" yaml:"box_prefix" json:"box_prefix"`
	BoxCount  int           `mapstructure:"box_count" yaml:"box_count" json:"box_count"`

	SensorNames       []string `mapstructure:"sensor_names" yaml:"sensor_names" json:"sensor_names"`
	FrontSensors      []string `mapstructure:"front_sensors" yaml:"front_sensors" json:"front_sensors"`
	ObstacleThreshold float64  `mapstructure:"obstacle_threshold" yaml:"obstacle_threshold" json:"obstacle_threshold"`
	ObstacleClearance float64  `mapstructure:"obstacle_clearance" yaml:"obstacle_clearance" json:"obstacle_clearance"`

	ForwardDeadZone  float64 `mapstructure:"forward_dead_zone" yaml:"forward_dead_zone" json:"forward_dead_zone"`
	ApproachDistance float64 `mapstructure:"approach_distance" yaml:"approach_distance" json:"approach_distance"`
	LostDistance     float64 `mapstructure:"lost_distance" yaml:"lost_distance" json:"lost_distance"`
	ArriveDistance   float64 `mapstructure:"arrive_distance" yaml:"arrive_distance" json:"arrive_distance"`
	CruiseDistance   float64 `mapstructure:"cruise_distance" yaml:"cruise_distance" json:"cruise_distance"`
	NearBand         float64 `mapstructure:"near_band" yaml:"near_band" json:"near_band"`
	MidBand          float64 `mapstructure:"mid_band" yaml:"mid_band" json:"mid_band"`

	StuckTicks  int `mapstructure:"stuck_ticks" yaml:"stuck_ticks" json:"stuck_ticks"`
	StableTicks int `mapstructure:"stable_ticks" yaml:"stable_ticks" json:"stable_ticks"`

	CruiseSpeed float64 `mapstructure:"cruise_speed" yaml:"cruise_speed" json:"cruise_speed"`
	SlowSpeed   float64 `mapstructure:"slow_speed" yaml:"slow_speed" json:"slow_speed"`
	TurnSpeed   float64 `mapstructure:"turn_speed" yaml:"turn_speed" json:"turn_speed"`
	SpinSpeed   float64 `mapstructure:"spin_speed" yaml:"spin_speed" json:"spin_speed"`
	NearSpeed   float64 `mapstructure:"near_speed" yaml:"near_speed" json:"near_speed"`
	MidSpeed    float64 `mapstructure:"mid_speed" yaml:"mid_speed" json:"mid_speed"`
	FarSpeed    float64 `mapstructure:"far_speed" yaml:"far_speed" json:"far_speed"`
}

// DefaultParams returns the values the controller was tuned with
func DefaultParams() Params {
	return Params{
		TimeStep:  64 * time.Millisecond,
		MaxSpeed:  6.28,
		BoxPrefix: boxes.DefaultPrefix,
		BoxCount:  boxes.DefaultCount,

		SensorNames:       []string{"ps0", "ps1", "ps2", "ps3", "ps4", "ps5", "ps6", "ps7"},
		FrontSensors:      []string{"ps0", "ps1", "ps2", "ps6", "ps7"},
		ObstacleThreshold: 80,
		ObstacleClearance: 0.15,

		ForwardDeadZone:  0.1,
		ApproachDistance: 0.25,
		LostDistance:     0.5,
		ArriveDistance:   0.08,
		CruiseDistance:   0.3,
		NearBand:         0.10,
		MidBand:          0.20,

		StuckTicks:  200,
		StableTicks: 2,

		CruiseSpeed: 0.7,
		SlowSpeed:   0.4,
		TurnSpeed:   0.4,
		SpinSpeed:   0.4,
		NearSpeed:   0.3,
		MidSpeed:    0.5,
		FarSpeed:    0.6,
	}
}

// Validate rejects parameter sets the state machine cannot work with
func (p Params) Validate() error {
	var errs []error
	if p.TimeStep <= 0 {
		errs = append(errs, fmt.Errorf("time_step must be positive, got %s", p.TimeStep))
	}
	if p.MaxSpeed <= 0 {
		errs = append(errs, fmt.Errorf("max_speed must be positive, got %v", p.MaxSpeed))
	}
	if p.BoxCount < 1 {
		errs = append(errs, fmt.Errorf("box_count must be at least 1, got %d", p.BoxCount))
	}
	if p.ArriveDistance >= p.ApproachDistance {
		errs = append(errs, fmt.Errorf("arrive_distance (%v) must be below approach_distance (%v)", p.ArriveDistance, p.ApproachDistance))
	}
	if p.ApproachDistance >= p.LostDistance {
		errs = append(errs, fmt.Errorf("approach_distance (%v) must be below lost_distance (%v)", p.ApproachDistance, p.LostDistance))
	}
	if p.NearBand > p.MidBand {
		errs = append(errs, fmt.Errorf("near_band (%v) must not exceed mid_band (%v)", p.NearBand, p.MidBand))
	}
	if p.StuckTicks < 0 || p.StableTicks < 0 {
		errs = append(errs, errors.New("tick counters must not be negative"))
	}
	return errors.Join(errs...)
}
