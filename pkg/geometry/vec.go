package geometry

import "math"

// Vec3 is a position or direction in simulator world coordinates.
// Y points up; the robot drives on the X/Z plane.
type Vec3 [3]float64

func (v Vec3) X() float64 { return v[0] }
func (v Vec3) Y() float64 { return v[1] }
func (v Vec3) Z() float64 { return v[2] }

func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{v[0] - o[0], v[1] - o[1], v[2] - o[2]}
}

func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{v[0] + o[0], v[1] + o[1], v[2] + o[2]}
}

func (v Vec3) Magnitude() float64 {
	return math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
}

// PlanarDistance is the distance between a and b ignoring height.
func PlanarDistance(a, b Vec3) float64 {
	dx := b[0] - a[0]
	dz := b[2] - a[2]
	return math.Sqrt(dx*dx + dz*dz)
}

// Mat3 is a row-major 3x3 rotation matrix, laid out the way the simulator
// returns node orientations.
type Mat3 [9]float64

// Identity returns the identity rotation.
func Identity() Mat3 {
	return Mat3{1, 0, 0, 0, 1, 0, 0, 0, 1}
}

// RotationY returns the rotation of angle radians about the vertical axis.
// Its first row carries (cos, 0, sin), which is what the controllers read as
// the forward direction.
func RotationY(angle float64) Mat3 {
	c, s := math.Cos(angle), math.Sin(angle)
	return Mat3{
		c, 0, s,
		0, 1, 0,
		-s, 0, c,
	}
}

// Forward returns the planar forward direction encoded in an orientation.
func (m Mat3) Forward() (x, z float64) {
	return m[0], m[2]
}

// Normalize wraps an angle into [-pi, pi].
func Normalize(rads float64) float64 {
	if rads > math.Pi || rads < -math.Pi {
		rads = math.Atan2(math.Sin(rads), math.Cos(rads))
	}
	return rads
}
