package main

import (
	"context"
	"fmt"
	"math"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/golang/geo/r3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/connorklee/webots-arm/pkg/control"
	"github.com/connorklee/webots-arm/pkg/kinematics"
	"github.com/connorklee/webots-arm/pkg/robot"
)

// run opens a session, applies fn and reports the commanded pose.
func run(fn func(ctx context.Context, ctrl *control.Controller) error) error {
	logger, err := newLogger("")
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}

	ctx := context.Background()
	s, err := openSession(ctx, logger)
	if err != nil {
		return err
	}

	err = fn(ctx, s.ctrl)
	if err == nil {
		var measured map[robot.JointID]float64
		if s.arm != nil {
			// Servos report the position at the time of the read, not the target
			if measured, err = s.arm.ReadAngles(ctx); err != nil {
				s.logger.Warn("read angles failed", zap.Error(err))
				err = nil
			}
		}
		printPose(s.ctrl, measured)
	}
	return multierr.Append(err, s.Close())
}

func printPose(ctrl *control.Controller, measured map[robot.JointID]float64) {
	angles := ctrl.Commanded()
	tip := kinematics.Forward(angles)

	fmt.Printf("height: %s  orientation: %s\n",
		subHeaderStyle.Render(ctrl.Height().String()),
		subHeaderStyle.Render(ctrl.Orientation().String()))
	for _, j := range robot.AllJoints() {
		line := fmt.Sprintf("  %s %8.3f rad", j, angles.Joint(j))
		if a, ok := measured[j]; ok {
			line += dimStyle.Render(fmt.Sprintf("  (now %.3f)", a))
		}
		fmt.Println(line)
	}
	fmt.Println(dimStyle.Render(fmt.Sprintf("gripper tip: (%.3f, %.3f, %.3f) m", tip.X, tip.Y, tip.Z)))
}

type ResetCommand struct{}

func (c *ResetCommand) Execute(args []string) error {
	return run(func(ctx context.Context, ctrl *control.Controller) error {
		return ctrl.Reset(ctx)
	})
}

type PoseCommand struct {
	Height      string `long:"height" description:"Height preset, e.g. front_plate"`
	Orientation string `long:"orientation" description:"Orientation preset, e.g. front_left"`
}

func (c *PoseCommand) Execute(args []string) error {
	if c.Height == "" && c.Orientation == "" {
		return fmt.Errorf("pose needs --height and/or --orientation (see 'armctl info')")
	}

	// Parse before connecting so a typo never moves the arm
	var (
		h   robot.HeightPreset
		o   robot.OrientationPreset
		err error
	)
	if c.Height != "" {
		if h, err = robot.ParseHeight(c.Height); err != nil {
			return err
		}
	}
	if c.Orientation != "" {
		if o, err = robot.ParseOrientation(c.Orientation); err != nil {
			return err
		}
	}

	return run(func(ctx context.Context, ctrl *control.Controller) error {
		if c.Height != "" {
			if err := ctrl.SetHeight(ctx, h); err != nil {
				return err
			}
		}
		if c.Orientation != "" {
			if err := ctrl.SetOrientation(ctx, o); err != nil {
				return err
			}
		}
		return nil
	})
}

type JointCommand struct {
	Args struct {
		Joint   string  `positional-arg-name:"joint" description:"arm1 .. arm5"`
		Radians float64 `positional-arg-name:"radians"`
	} `positional-args:"yes" required:"yes"`
}

func (c *JointCommand) Execute(args []string) error {
	j, err := robot.ParseJoint(c.Args.Joint)
	if err != nil {
		return err
	}
	return run(func(ctx context.Context, ctrl *control.Controller) error {
		return ctrl.SetJoint(ctx, j, c.Args.Radians)
	})
}

type ReachCommand struct {
	Args struct {
		X float64 `positional-arg-name:"x" description:"forward, metres"`
		Y float64 `positional-arg-name:"y" description:"up, metres"`
		Z float64 `positional-arg-name:"z" description:"left, metres"`
	} `positional-args:"yes" required:"yes"`
}

func (c *ReachCommand) Execute(args []string) error {
	target := r3.Vector{X: c.Args.X, Y: c.Args.Y, Z: c.Args.Z}

	// Solve up front so an unreachable target fails without touching the arm
	if _, err := kinematics.Solve(target); err != nil {
		return err
	}
	return run(func(ctx context.Context, ctrl *control.Controller) error {
		return ctrl.MoveTo(ctx, target)
	})
}

type InfoCommand struct{}

func (c *InfoCommand) Execute(args []string) error {
	cellStyle := lipgloss.NewStyle().Padding(0, 1)
	tableHeaderStyle := cellStyle.Bold(true).Foreground(lipgloss.Color("12"))
	styleFunc := func(row, col int) lipgloss.Style {
		if row == table.HeaderRow {
			return tableHeaderStyle
		}
		return cellStyle
	}

	links := make([][]string, 0, robot.NumJoints)
	for _, j := range robot.AllJoints() {
		links = append(links, []string{j.String(), fmt.Sprintf("%.3f", robot.LinkLength(j))})
	}
	fmt.Println(table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("Joint", "Link (m)").
		Rows(links...).
		StyleFunc(styleFunc).
		Render())

	heights := make([][]string, 0, robot.MaxHeight)
	for h := robot.HeightPreset(0); h < robot.MaxHeight; h++ {
		a, _ := h.Angles()
		heights = append(heights, []string{
			h.String(),
			formatAngle(a[0]), formatAngle(a[1]), formatAngle(a[2]), formatAngle(a[3]),
		})
	}
	fmt.Println(table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("Height", "arm2", "arm3", "arm4", "arm5").
		Rows(heights...).
		StyleFunc(styleFunc).
		Render())

	sides := make([][]string, 0, robot.MaxSide)
	for o := robot.OrientationPreset(0); o < robot.MaxSide; o++ {
		a, _ := o.Angle()
		sides = append(sides, []string{o.String(), formatAngle(a)})
	}
	fmt.Println(table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("Orientation", "arm1").
		Rows(sides...).
		StyleFunc(styleFunc).
		Render())

	return nil
}

func formatAngle(rad float64) string {
	return fmt.Sprintf("%7.3f (%4.0f°)", rad, rad*180/math.Pi)
}
