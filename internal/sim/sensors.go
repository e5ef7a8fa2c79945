package sim

import (
	"math"
	"time"
)

// lookupPoint maps an obstacle distance in meters to a raw sensor value
type lookupPoint struct {
	distance float64
	value    float64
}

// e-puck infrared proximity response; the raw value falls steeply with
// distance and flattens into ambient noise beyond 7 cm.
var epuckLookup = []lookupPoint{
	{0, 4095},
	{0.005, 2133},
	{0.01, 1465},
	{0.015, 999},
	{0.02, 669},
	{0.03, 283},
	{0.04, 121},
	{0.05, 85},
	{0.06, 70},
	{0.07, 63},
}

// sensorRange is the distance past which a sensor reports ambient level
var sensorRange = epuckLookup[len(epuckLookup)-1].distance

// epuckSensors are the mounting angles in radians relative to the heading,
// positive to the right: ps0..ps2 on the right, ps5..ps7 on the left.
var epuckSensors = map[string]float64{
	"ps0": 0.30,
	"ps1": 0.80,
	"ps2": 1.57,
	"ps3": 2.64,
	"ps4": -2.64,
	"ps5": -1.57,
	"ps6": -0.80,
	"ps7": -0.30,
}

// lookup interpolates the response curve at distance
func lookup(distance float64) float64 {
	if distance <= 0 {
		return epuckLookup[0].value
	}
	for i := 1; i < len(epuckLookup); i++ {
		hi := epuckLookup[i]
		if distance <= hi.distance {
			lo := epuckLookup[i-1]
			f := (distance - lo.distance) / (hi.distance - lo.distance)
			return lo.value + f*(hi.value-lo.value)
		}
	}
	return epuckLookup[len(epuckLookup)-1].value
}

// footprint is the X/Z extent of a box
type footprint struct {
	minX, maxX float64
	minZ, maxZ float64
}

func (f footprint) contains(x, z float64) bool {
	return x >= f.minX && x <= f.maxX && z >= f.minZ && z <= f.maxZ
}

// cast returns the distance along (dx, dz) from (ox, oz) to the footprint
// edge, using the slab method.
func (f footprint) cast(ox, oz, dx, dz float64) (float64, bool) {
	if f.contains(ox, oz) {
		return 0, true
	}

	tmin, tmax := math.Inf(-1), math.Inf(1)
	for _, axis := range [2][4]float64{
		{ox, dx, f.minX, f.maxX},
		{oz, dz, f.minZ, f.maxZ},
	} {
		o, d, lo, hi := axis[0], axis[1], axis[2], axis[3]
		if math.Abs(d) < 1e-12 {
			if o < lo || o > hi {
				return 0, false
			}
			continue
		}
		t1, t2 := (lo-o)/d, (hi-o)/d
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tmin = math.Max(tmin, t1)
		tmax = math.Min(tmax, t2)
	}
	if tmax < tmin || tmax < 0 {
		return 0, false
	}
	return math.Max(tmin, 0), true
}

// distanceSensor is a host.DistanceSensor bound to a mounting angle
type distanceSensor struct {
	name    string
	angle   float64
	period  time.Duration
	enabled bool
	value   float64
}

func (s *distanceSensor) Enable(samplingPeriod time.Duration) {
	s.period = samplingPeriod
	s.enabled = samplingPeriod > 0
}

// Value returns the reading taken at the last step
func (s *distanceSensor) Value() float64 {
	return s.value
}
