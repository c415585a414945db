package control

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gonum.org/v1/gonum/floats"

	"github.com/connorklee/webots-arm/pkg/kinematics"
	"github.com/connorklee/webots-arm/pkg/robot"
)

// failingActuator rejects commands for the joints in fail.
type failingActuator struct {
	robot.SimArm
	fail map[robot.JointID]bool
}

func (f *failingActuator) SetPosition(ctx context.Context, j robot.JointID, radians float64) error {
	if f.fail[j] {
		return errors.New("bus timeout on " + j.String())
	}
	return f.SimArm.SetPosition(ctx, j, radians)
}

func newTestController(t *testing.T, opts Options) (*Controller, *robot.SimArm) {
	t.Helper()
	sim := robot.NewSimArm()
	c, err := NewController(context.Background(), sim, opts)
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}
	sim.ClearCommands()
	return c, sim
}

func TestNewController_InitialState(t *testing.T) {
	sim := robot.NewSimArm()
	c, err := NewController(context.Background(), sim, Options{})
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}

	if c.Height() != robot.HeightReset {
		t.Errorf("Height() = %v, want reset", c.Height())
	}
	if c.Orientation() != robot.Front {
		t.Errorf("Orientation() = %v, want front", c.Orientation())
	}

	cmds := sim.Commands()
	if len(cmds) != 6 {
		t.Fatalf("got %d commands, want velocity + 4 height + 1 orientation: %+v", len(cmds), cmds)
	}
	if cmds[0] != (robot.Command{Joint: robot.Joint2, Velocity: true, Value: 0.5}) {
		t.Errorf("first command = %+v, want joint 2 velocity 0.5", cmds[0])
	}
	for _, cmd := range cmds[1:] {
		if cmd.Velocity {
			t.Errorf("unexpected velocity command %+v", cmd)
		}
	}
	if got := sim.Angle(robot.Joint3); got != -2.635 {
		t.Errorf("joint 3 = %f, want -2.635", got)
	}
}

func TestReset_ParkPose(t *testing.T) {
	c, sim := newTestController(t, Options{})

	if err := c.SetOrientation(context.Background(), robot.BackLeft); err != nil {
		t.Fatal(err)
	}
	if err := c.Reset(context.Background()); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	want := []float64{0.0, 1.57, -2.635, 1.78, 0.0}
	for i, j := range robot.AllJoints() {
		if got := sim.Angle(j); got != want[i] {
			t.Errorf("%s = %f, want %f", j, got, want[i])
		}
	}
	// Reset does not touch the preset indices
	if c.Orientation() != robot.BackLeft {
		t.Errorf("Orientation() = %v after reset, want back_left", c.Orientation())
	}
}

func TestSetHeight_ReadBack(t *testing.T) {
	c, sim := newTestController(t, Options{})
	ctx := context.Background()

	for h := robot.HeightPreset(0); h < robot.MaxHeight; h++ {
		sim.ClearCommands()
		if err := c.SetHeight(ctx, h); err != nil {
			t.Fatalf("SetHeight(%v): %v", h, err)
		}
		if c.Height() != h {
			t.Errorf("Height() = %v, want %v", c.Height(), h)
		}

		want, _ := h.Angles()
		cmds := sim.Commands()
		if len(cmds) != 4 {
			t.Fatalf("SetHeight(%v) issued %d commands, want 4", h, len(cmds))
		}
		for i, cmd := range cmds {
			if cmd.Joint != robot.JointID(i+2) || cmd.Value != want[i] {
				t.Errorf("SetHeight(%v) command %d = %+v, want arm%d=%f", h, i, cmd, i+2, want[i])
			}
		}
	}
}

func TestSetOrientation_ReadBack(t *testing.T) {
	c, sim := newTestController(t, Options{})
	ctx := context.Background()

	for o := robot.OrientationPreset(0); o < robot.MaxSide; o++ {
		if err := c.SetOrientation(ctx, o); err != nil {
			t.Fatalf("SetOrientation(%v): %v", o, err)
		}
		if c.Orientation() != o {
			t.Errorf("Orientation() = %v, want %v", c.Orientation(), o)
		}
		want, _ := o.Angle()
		if got := sim.Angle(robot.Joint1); got != want {
			t.Errorf("SetOrientation(%v): joint 1 = %f, want %f", o, got, want)
		}
	}
}

func TestSetOrientation_FrontRightThenRight(t *testing.T) {
	c, sim := newTestController(t, Options{})
	ctx := context.Background()

	if err := c.SetOrientation(ctx, robot.FrontRight); err != nil {
		t.Fatal(err)
	}
	if got := sim.Angle(robot.Joint1); got != 0.2 {
		t.Errorf("joint 1 = %f, want 0.2", got)
	}
	if c.Orientation() != 4 {
		t.Errorf("Orientation() = %d, want 4", c.Orientation())
	}

	if err := c.IncreaseOrientation(ctx); err != nil {
		t.Fatal(err)
	}
	if got := sim.Angle(robot.Joint1); got != math.Pi/2 {
		t.Errorf("joint 1 = %f, want pi/2", got)
	}
	if c.Orientation() != 5 {
		t.Errorf("Orientation() = %d, want 5", c.Orientation())
	}
}

func TestIncreaseDecrease_Saturates(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name  string
		step  func(*Controller) error
		read  func(*Controller) int
		start func(*Controller) error
		want  int
		limit int
		steps int
	}{
		{
			name:  "increase height",
			step:  func(c *Controller) error { return c.IncreaseHeight(ctx) },
			read:  func(c *Controller) int { return int(c.Height()) },
			start: func(c *Controller) error { return c.SetHeight(ctx, robot.FrontFloor) },
			want:  int(robot.MaxHeight - 1),
			limit: int(robot.MaxHeight),
			steps: int(robot.MaxHeight) + 5,
		},
		{
			name:  "decrease height",
			step:  func(c *Controller) error { return c.DecreaseHeight(ctx) },
			read:  func(c *Controller) int { return int(c.Height()) },
			start: func(c *Controller) error { return c.SetHeight(ctx, robot.BackPlateLow) },
			want:  0,
			limit: int(robot.MaxHeight),
			steps: int(robot.MaxHeight) + 5,
		},
		{
			name:  "increase orientation",
			step:  func(c *Controller) error { return c.IncreaseOrientation(ctx) },
			read:  func(c *Controller) int { return int(c.Orientation()) },
			start: func(c *Controller) error { return c.SetOrientation(ctx, robot.BackLeft) },
			want:  int(robot.MaxSide - 1),
			limit: int(robot.MaxSide),
			steps: int(robot.MaxSide) + 5,
		},
		{
			name:  "decrease orientation",
			step:  func(c *Controller) error { return c.DecreaseOrientation(ctx) },
			read:  func(c *Controller) int { return int(c.Orientation()) },
			start: func(c *Controller) error { return c.SetOrientation(ctx, robot.BackRight) },
			want:  0,
			limit: int(robot.MaxSide),
			steps: int(robot.MaxSide) + 5,
		},
	}

	for _, tt := range tests {
		c, _ := newTestController(t, Options{})
		if err := tt.start(c); err != nil {
			t.Fatalf("%s: start: %v", tt.name, err)
		}
		for i := 0; i < tt.steps; i++ {
			if err := tt.step(c); err != nil {
				t.Fatalf("%s: step %d: %v", tt.name, i, err)
			}
			if got := tt.read(c); got < 0 || got >= tt.limit {
				t.Fatalf("%s: step %d left index %d out of range", tt.name, i, got)
			}
		}
		if got := tt.read(c); got != tt.want {
			t.Errorf("%s: index = %d after %d steps, want %d", tt.name, got, tt.steps, tt.want)
		}
	}
}

func TestIncreaseHeight_SaturatedStillCommands(t *testing.T) {
	c, sim := newTestController(t, Options{})
	ctx := context.Background()

	if err := c.SetHeight(ctx, robot.BackPlateLow); err != nil {
		t.Fatal(err)
	}
	sim.ClearCommands()
	if err := c.IncreaseHeight(ctx); err != nil {
		t.Fatal(err)
	}
	if n := len(sim.Commands()); n != 4 {
		t.Errorf("saturated increase issued %d commands, want 4", n)
	}
}

func TestSetHeight_Invalid(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	c, sim := newTestController(t, Options{Logger: zap.New(core)})
	ctx := context.Background()

	err := c.SetHeight(ctx, robot.MaxHeight)
	if !errors.Is(err, robot.ErrInvalidPreset) {
		t.Errorf("SetHeight(MaxHeight) error = %v, want ErrInvalidPreset", err)
	}
	if n := len(sim.Commands()); n != 0 {
		t.Errorf("invalid height issued %d commands", n)
	}
	// Legacy behaviour keeps the rejected index
	if c.Height() != robot.MaxHeight {
		t.Errorf("Height() = %d, want %d", c.Height(), robot.MaxHeight)
	}
	if logs.FilterMessage("set height called with a wrong argument").Len() != 1 {
		t.Errorf("expected one warning, got %v", logs.All())
	}

	// The next step pulls the index back into range
	if err := c.DecreaseHeight(ctx); err != nil {
		t.Fatalf("DecreaseHeight: %v", err)
	}
	if c.Height() != robot.MaxHeight-1 {
		t.Errorf("Height() = %d after decrease, want %d", c.Height(), robot.MaxHeight-1)
	}
}

func TestSetOrientation_InvalidStrict(t *testing.T) {
	c, sim := newTestController(t, Options{StrictPresets: true})
	ctx := context.Background()

	for _, o := range []robot.OrientationPreset{-1, robot.MaxSide, 42} {
		err := c.SetOrientation(ctx, o)
		if !errors.Is(err, robot.ErrInvalidPreset) {
			t.Errorf("SetOrientation(%d) error = %v, want ErrInvalidPreset", o, err)
		}
		if c.Orientation() != robot.Front {
			t.Errorf("SetOrientation(%d) changed orientation to %d", o, c.Orientation())
		}
	}
	if n := len(sim.Commands()); n != 0 {
		t.Errorf("invalid orientation issued %d commands", n)
	}
}

func TestSetJoint_Passthrough(t *testing.T) {
	c, sim := newTestController(t, Options{})

	// Out-of-range angles are not the controller's concern
	if err := c.SetJoint(context.Background(), robot.Joint4, 12.5); err != nil {
		t.Fatalf("SetJoint: %v", err)
	}
	if got := sim.Angle(robot.Joint4); got != 12.5 {
		t.Errorf("joint 4 = %f, want 12.5", got)
	}
	if got := c.Commanded().Joint(robot.Joint4); got != 12.5 {
		t.Errorf("Commanded joint 4 = %f, want 12.5", got)
	}

	if err := c.SetJoint(context.Background(), robot.JointID(9), 1); err == nil {
		t.Error("SetJoint on unknown joint should surface the actuator error")
	}
}

func TestSetJoint_NonFinite(t *testing.T) {
	c, sim := newTestController(t, Options{})
	before := c.Commanded().Joint(robot.Joint2)

	for _, bad := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		err := c.SetJoint(context.Background(), robot.Joint2, bad)
		if !errors.Is(err, robot.ErrNonFiniteAngle) {
			t.Errorf("SetJoint(%v) error = %v, want ErrNonFiniteAngle", bad, err)
		}
	}
	if got := c.Commanded().Joint(robot.Joint2); got != before {
		t.Errorf("Commanded joint 2 = %f, want unchanged %f", got, before)
	}
	if n := len(sim.Commands()); n != 0 {
		t.Errorf("non-finite angles issued %d commands", n)
	}
}

func TestLinkLength(t *testing.T) {
	c, _ := newTestController(t, Options{})

	tests := []struct {
		joint robot.JointID
		want  float64
	}{
		{robot.Joint1, 0.253},
		{robot.Joint2, 0.155},
		{robot.Joint3, 0.135},
		{robot.Joint4, 0.081},
		{robot.Joint5, 0.105},
		{0, 0.0},
		{6, 0.0},
		{-3, 0.0},
	}

	for _, tt := range tests {
		for i := 0; i < 3; i++ {
			if got := c.LinkLength(tt.joint); got != tt.want {
				t.Errorf("LinkLength(%d) = %f, want %f", tt.joint, got, tt.want)
			}
		}
	}
}

func TestMoveTo(t *testing.T) {
	c, sim := newTestController(t, Options{})
	target := r3.Vector{X: 0.2, Y: 0.0, Z: 0.05}

	if err := c.MoveTo(context.Background(), target); err != nil {
		t.Fatalf("MoveTo: %v", err)
	}

	var got kinematics.Angles
	for _, j := range robot.AllJoints() {
		got[j-1] = sim.Angle(j)
	}
	want, _ := kinematics.Solve(target)
	if !floats.EqualApprox(got[:], want[:], 1e-12) {
		t.Errorf("joint angles = %v, want %v", got, want)
	}
	if p := kinematics.Forward(c.Commanded()); p.Distance(target) > 1e-6 {
		t.Errorf("commanded pose reaches %v, want %v", p, target)
	}
}

func TestMoveTo_Errors(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	c, sim := newTestController(t, Options{Logger: zap.New(core)})
	ctx := context.Background()

	if err := c.MoveTo(ctx, r3.Vector{Y: 0.1}); !errors.Is(err, kinematics.ErrZeroReach) {
		t.Errorf("MoveTo on base axis error = %v, want ErrZeroReach", err)
	}
	if err := c.MoveTo(ctx, r3.Vector{X: 1.0}); !errors.Is(err, kinematics.ErrUnreachable) {
		t.Errorf("MoveTo far target error = %v, want ErrUnreachable", err)
	}
	if n := len(sim.Commands()); n != 0 {
		t.Errorf("failed moves issued %d commands", n)
	}
	if logs.Len() != 2 {
		t.Errorf("expected 2 warnings, got %d", logs.Len())
	}
}

func TestActuatorErrorsCombined(t *testing.T) {
	act := &failingActuator{fail: map[robot.JointID]bool{}}
	c, err := NewController(context.Background(), act, Options{})
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}

	act.fail[robot.Joint2] = true
	act.fail[robot.Joint4] = true
	act.ClearCommands()

	err = c.SetHeight(context.Background(), robot.FrontPlate)
	if n := len(multierr.Errors(err)); n != 2 {
		t.Errorf("SetHeight error = %v, want 2 combined errors", err)
	}
	// Healthy joints still move
	if n := len(act.Commands()); n != 2 {
		t.Errorf("got %d successful commands, want 2", n)
	}
	if c.Height() != robot.FrontPlate {
		t.Errorf("Height() = %v, want front_plate", c.Height())
	}
}
