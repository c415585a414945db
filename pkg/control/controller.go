// Package control provides the positional controller for the five joint
// arm: discrete height and orientation presets, direct joint commands and
// inverse-kinematics moves.
package control

import (
	"context"
	"fmt"

	"github.com/golang/geo/r3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/connorklee/webots-arm/pkg/kinematics"
	"github.com/connorklee/webots-arm/pkg/robot"
)

// ShoulderVelocity is the speed of joint 2, in rad/s, set once when the
// controller is created.
const ShoulderVelocity = 0.5

// parkPose is the folded pose applied by Reset, joints 1-5.
var parkPose = kinematics.Angles{0.0, 1.57, -2.635, 1.78, 0.0}

// Options configures a Controller.
type Options struct {
	Logger *zap.Logger

	// StrictPresets rejects invalid preset indices without recording them.
	// By default an invalid index is still stored as the current preset.
	StrictPresets bool
}

// Controller tracks the current height and orientation presets of the arm
// and turns preset changes into joint commands. It is not safe for
// concurrent use.
type Controller struct {
	actuator robot.Actuator
	logger   *zap.Logger
	strict   bool

	height      robot.HeightPreset
	orientation robot.OrientationPreset
	commanded   kinematics.Angles
}

// NewController sets the shoulder velocity and moves the arm to the reset
// height facing front.
func NewController(ctx context.Context, actuator robot.Actuator, opts Options) (*Controller, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Controller{
		actuator:    actuator,
		logger:      logger,
		strict:      opts.StrictPresets,
		height:      robot.HeightReset,
		orientation: robot.Front,
	}

	if err := actuator.SetVelocity(ctx, robot.Joint2, ShoulderVelocity); err != nil {
		return nil, fmt.Errorf("set shoulder velocity: %w", err)
	}
	if err := c.SetHeight(ctx, robot.HeightReset); err != nil {
		return nil, fmt.Errorf("initial height: %w", err)
	}
	if err := c.SetOrientation(ctx, robot.Front); err != nil {
		return nil, fmt.Errorf("initial orientation: %w", err)
	}
	return c, nil
}

// Height returns the current height preset.
func (c *Controller) Height() robot.HeightPreset {
	return c.height
}

// Orientation returns the current orientation preset.
func (c *Controller) Orientation() robot.OrientationPreset {
	return c.orientation
}

// Commanded returns the last angle sent to each joint.
func (c *Controller) Commanded() kinematics.Angles {
	return c.commanded
}

// Reset moves every joint to the folded park pose. The park pose is fixed
// and does not follow the reset height preset.
func (c *Controller) Reset(ctx context.Context) error {
	c.logger.Debug("reset")
	return c.apply(ctx, robot.AllJoints(), parkPose[:])
}

// SetHeight moves joints 2-5 to the angles of preset h.
func (c *Controller) SetHeight(ctx context.Context, h robot.HeightPreset) error {
	angles, err := h.Angles()
	if err != nil {
		c.logger.Warn("set height called with a wrong argument", zap.Int("height", int(h)))
		if !c.strict {
			c.height = h
		}
		return err
	}

	c.logger.Debug("set height", zap.Stringer("height", h))
	err = c.apply(ctx, []robot.JointID{robot.Joint2, robot.Joint3, robot.Joint4, robot.Joint5}, angles[:])
	c.height = h
	return err
}

// SetOrientation moves joint 1 to the angle of preset o.
func (c *Controller) SetOrientation(ctx context.Context, o robot.OrientationPreset) error {
	angle, err := o.Angle()
	if err != nil {
		c.logger.Warn("set orientation called with a wrong argument", zap.Int("orientation", int(o)))
		if !c.strict {
			c.orientation = o
		}
		return err
	}

	c.logger.Debug("set orientation", zap.Stringer("orientation", o))
	err = c.apply(ctx, []robot.JointID{robot.Joint1}, []float64{angle})
	c.orientation = o
	return err
}

// IncreaseHeight steps to the next height preset, saturating at the last.
func (c *Controller) IncreaseHeight(ctx context.Context) error {
	return c.SetHeight(ctx, clamp(c.height+1, robot.MaxHeight))
}

// DecreaseHeight steps to the previous height preset, saturating at the first.
func (c *Controller) DecreaseHeight(ctx context.Context) error {
	return c.SetHeight(ctx, clamp(c.height-1, robot.MaxHeight))
}

// IncreaseOrientation steps to the next orientation preset, saturating at the last.
func (c *Controller) IncreaseOrientation(ctx context.Context) error {
	return c.SetOrientation(ctx, clamp(c.orientation+1, robot.MaxSide))
}

// DecreaseOrientation steps to the previous orientation preset, saturating at the first.
func (c *Controller) DecreaseOrientation(ctx context.Context) error {
	return c.SetOrientation(ctx, clamp(c.orientation-1, robot.MaxSide))
}

// SetJoint commands a single joint to an angle. The angle is passed through
// unchecked; range limits belong to the actuator.
func (c *Controller) SetJoint(ctx context.Context, j robot.JointID, radians float64) error {
	c.logger.Debug("set joint", zap.Stringer("joint", j), zap.Float64("radians", radians))
	return c.apply(ctx, []robot.JointID{j}, []float64{radians})
}

// LinkLength returns the length of the link driven by joint j, or 0 for an
// unknown joint.
func (c *Controller) LinkLength(j robot.JointID) float64 {
	return robot.LinkLength(j)
}

// MoveTo solves the joint angles for target and applies them to all five
// joints. Nothing is commanded when the target cannot be solved.
func (c *Controller) MoveTo(ctx context.Context, target r3.Vector) error {
	angles, err := kinematics.Solve(target)
	if err != nil {
		c.logger.Warn("inverse kinematics failed", zap.Error(err))
		return err
	}

	c.logger.Debug("move to", zap.Float64("x", target.X), zap.Float64("y", target.Y), zap.Float64("z", target.Z))
	return c.apply(ctx, robot.AllJoints(), angles[:])
}

// clamp saturates a preset index into [0, limit-1]. A stored index left out
// of range by an invalid set is pulled back in on the next step.
func clamp[T ~int](v, limit T) T {
	return max(0, min(v, limit-1))
}

// apply sends angles[i] to joints[i]. Every joint is attempted; failures
// are combined.
func (c *Controller) apply(ctx context.Context, joints []robot.JointID, angles []float64) error {
	var errs error
	for i, j := range joints {
		if err := c.actuator.SetPosition(ctx, j, angles[i]); err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		if j.Valid() {
			c.commanded[j-1] = angles[i]
		}
	}
	return errs
}
