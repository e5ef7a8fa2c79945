package geometry

// Bearing is the coarse steering hint towards a goal.
type Bearing string

const (
	BearingForward Bearing = "forward"
	BearingLeft    Bearing = "left"
	BearingRight   Bearing = "right"
)

// Products returns the planar cross and dot products between the vector
// from robot to goal and the robot's forward direction.
func Products(robot Vec3, orientation Mat3, goal Vec3) (cross, dot float64) {
	dx := goal[0] - robot[0]
	dz := goal[2] - robot[2]
	fx, fz := orientation.Forward()

	cross = dx*fz - dz*fx
	dot = dx*fx + dz*fz
	return cross, dot
}

// Classify turns the cross/dot products into a bearing. The goal is straight
// ahead when |cross| is inside deadZone and it lies in front of the robot.
// The products are not normalised, so the dead zone widens as the goal gets
// closer.
func Classify(cross, dot, deadZone float64) Bearing {
	if abs(cross) < deadZone && dot > 0 {
		return BearingForward
	}
	if cross > 0 {
		return BearingLeft
	}
	return BearingRight
}

// BearingTo combines Products and Classify.
func BearingTo(robot Vec3, orientation Mat3, goal Vec3, deadZone float64) Bearing {
	cross, dot := Products(robot, orientation, goal)
	return Classify(cross, dot, deadZone)
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
