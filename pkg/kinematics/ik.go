// Package kinematics maps between Cartesian points and the joint angles of
// the five joint arm.
//
// The arm frame has y pointing up and x pointing forward from the base; a
// positive z lies to the arm's left. Solutions keep the gripper pointing
// straight down, so the wrist is always L4+L5 above the target.
package kinematics

import (
	"errors"
	"fmt"
	"math"

	"github.com/golang/geo/r3"

	"github.com/connorklee/webots-arm/pkg/robot"
)

var (
	// ErrZeroReach is returned for a target on the vertical axis through the
	// base, where the base angle is undefined.
	ErrZeroReach = errors.New("target has zero horizontal reach")
	// ErrUnreachable is returned for a target outside the annulus the
	// shoulder and elbow links can span.
	ErrUnreachable = errors.New("target out of reach")
)

// Angles holds one angle per joint, in radians; Angles[0] is joint 1.
type Angles [robot.NumJoints]float64

// Joint returns the angle of joint j, or 0 for an unknown joint.
func (a Angles) Joint(j robot.JointID) float64 {
	if !j.Valid() {
		return 0
	}
	return a[j-1]
}

// Solve computes the joint angles that place the gripper tip at target.
//
// The base only covers the front half plane: for a target behind the base
// (X < 0) Solve returns the solution for its mirror in front of the base,
// (-X, Y, Z), without an error. Check X before calling when that matters.
func Solve(target r3.Vector) (Angles, error) {
	l1 := robot.LinkLength(robot.Joint1)
	l4 := robot.LinkLength(robot.Joint4)
	l5 := robot.LinkLength(robot.Joint5)

	// Horizontal reach and height of the wrist above the shoulder
	x1 := math.Hypot(target.X, target.Z)
	y1 := target.Y + l4 + l5 - l1
	if x1 == 0 {
		return Angles{}, fmt.Errorf("solve %v: %w", target, ErrZeroReach)
	}

	a := robot.LinkLength(robot.Joint2)
	b := robot.LinkLength(robot.Joint3)
	c := math.Hypot(x1, y1)

	shoulderCos := (a*a + c*c - b*b) / (2 * a * c)
	elbowCos := (a*a + b*b - c*c) / (2 * a * b)
	if !inUnitRange(shoulderCos) || !inUnitRange(elbowCos) {
		return Angles{}, fmt.Errorf("solve %v: wrist distance %.4f m outside [%.4f, %.4f]: %w",
			target, c, math.Abs(a-b), a+b, ErrUnreachable)
	}

	// |z| <= x1 always; clamp rounding so asin stays defined
	sinAlpha := max(-1, min(1, target.Z/x1))

	alpha := -math.Asin(sinAlpha)
	beta := -(math.Pi/2 - math.Acos(shoulderCos) - math.Atan(y1/x1))
	gamma := -(math.Pi - math.Acos(elbowCos))
	delta := -(math.Pi + (beta + gamma))
	epsilon := math.Pi/2 + alpha

	return Angles{alpha, beta, gamma, delta, epsilon}, nil
}

func inUnitRange(v float64) bool {
	return v >= -1 && v <= 1
}
