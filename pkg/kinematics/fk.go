package kinematics

import (
	"math"

	"github.com/golang/geo/r3"

	"github.com/connorklee/webots-arm/pkg/robot"
)

// Forward returns the gripper tip position for the given joint angles. It
// is the inverse of Solve for any angles Solve produces.
func Forward(angles Angles) r3.Vector {
	l1 := robot.LinkLength(robot.Joint1)
	l2 := robot.LinkLength(robot.Joint2)
	l3 := robot.LinkLength(robot.Joint3)
	hand := robot.LinkLength(robot.Joint4) + robot.LinkLength(robot.Joint5)

	// Link elevations above the horizontal, in the plane of the arm.
	// Joint 2 at zero points the upper arm straight up.
	upper := math.Pi/2 + angles.Joint(robot.Joint2)
	fore := upper + angles.Joint(robot.Joint3)
	wrist := fore + angles.Joint(robot.Joint4)

	reach := l2*math.Cos(upper) + l3*math.Cos(fore) + hand*math.Cos(wrist)
	height := l1 + l2*math.Sin(upper) + l3*math.Sin(fore) + hand*math.Sin(wrist)

	base := angles.Joint(robot.Joint1)
	return r3.Vector{
		X: reach * math.Cos(base),
		Y: height,
		Z: -reach * math.Sin(base),
	}
}
