package robot

import (
	"context"
	"errors"
	"fmt"
	"math"
)

// ErrNonFiniteAngle is returned when a position command is NaN or infinite.
var ErrNonFiniteAngle = errors.New("angle is not finite")

// Actuator commands the arm's joint motors. Commands are fire-and-forget: an
// implementation returns once the command is issued, not when the joint has
// reached its target.
type Actuator interface {
	// SetPosition commands joint j to move toward an angle in radians.
	// Non-finite angles are rejected with ErrNonFiniteAngle.
	SetPosition(ctx context.Context, j JointID, radians float64) error
	// SetVelocity sets the speed joint j moves at, in radians per second.
	SetVelocity(ctx context.Context, j JointID, radiansPerSecond float64) error
}

// Ensure both actuators implement Actuator
var (
	_ Actuator = (*Arm)(nil)
	_ Actuator = (*SimArm)(nil)
)

func checkAngle(j JointID, radians float64) error {
	if math.IsNaN(radians) || math.IsInf(radians, 0) {
		return fmt.Errorf("set position %s: %v: %w", j, radians, ErrNonFiniteAngle)
	}
	return nil
}
