package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/hipsterbrown/feetech-servo/feetech"
	"go.bug.st/serial"
	"go.uber.org/multierr"

	"github.com/connorklee/webots-arm/pkg/robot"
)

var (
	headerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	subHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	successStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type SetupCommand struct {
	Port string `long:"port" description:"Serial port to use instead of scanning"`
}

func (c *SetupCommand) Execute(args []string) error {
	fmt.Println(headerStyle.Render("armctl setup"))
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━"))
	fmt.Println()

	// Step 1: Find the arm
	port := c.Port
	if port == "" {
		var err error
		if port, err = choosePort(); err != nil {
			return err
		}
	}

	// Step 2: Calibrate
	fmt.Println()
	fmt.Println(subHeaderStyle.Render("━━━ Calibrating Arm ━━━"))
	fmt.Println()
	cal, err := calibrateArm(port)
	if err != nil {
		return err
	}

	cfg := &robot.Config{
		Port:        port,
		BaudRate:    robot.DefaultBaudRate,
		Calibration: cal,
	}
	if err := cfg.SaveTo(opts.Config); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	fmt.Println()
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"))
	fmt.Println(successStyle.Render("Setup complete!"))
	fmt.Printf("Configuration saved to %s\n", opts.Config)
	fmt.Println()
	fmt.Println("Drive the arm with: " + headerStyle.Render("armctl drive"))

	return nil
}

func choosePort() (string, error) {
	fmt.Println("Scanning for arms...")
	fmt.Println()

	arms := findArms()
	if len(arms) == 0 {
		return "", errors.New("no arm found; make sure it is connected and powered on")
	}
	if len(arms) == 1 {
		arms[0].bus.Close()
		fmt.Printf("Using arm on %s\n", arms[0].port)
		return arms[0].port, nil
	}

	fmt.Printf("Found %d arms. Let's pick one...\n\n", len(arms))

	// Wiggle each arm until the user claims one
	var port string
	for _, arm := range arms {
		if port != "" {
			arm.bus.Close()
			continue
		}
		if identifyArmWithWiggle(arm) {
			port = arm.port
		}
	}
	if port == "" {
		return "", errors.New("no arm selected")
	}
	return port, nil
}

type armInfo struct {
	port   string
	servos []feetech.FoundServo
	bus    *feetech.Bus
}

func findArms() []armInfo {
	ports, err := serial.GetPortsList()
	if err != nil {
		fmt.Printf("Error listing ports: %v\n", err)
		return nil
	}

	var arms []armInfo

	for _, port := range ports {
		// Skip Bluetooth ports on macOS
		if strings.Contains(port, "Bluetooth") {
			continue
		}

		bus, servos, err := connectToArm(port)
		if err != nil {
			continue
		}
		fmt.Printf("  Found arm on %s\n", port)
		arms = append(arms, armInfo{
			port:   port,
			servos: servos,
			bus:    bus,
		})
	}

	return arms
}

// isArm reports whether the bus holds exactly the five servos with IDs 1-5.
func isArm(servos []feetech.FoundServo) bool {
	if len(servos) != robot.NumJoints {
		return false
	}

	ids := make(map[int]bool)
	for _, s := range servos {
		ids[s.ID] = true
	}

	for _, j := range robot.AllJoints() {
		if !ids[int(j)] {
			return false
		}
	}

	return true
}

func identifyArmWithWiggle(arm armInfo) bool {
	defer arm.bus.Close()

	ctx := context.Background()

	// Wiggle the base joint
	var servo *feetech.Servo
	for _, s := range arm.servos {
		if s.ID == int(robot.Joint1) {
			servo = feetech.NewServo(arm.bus, s.ID, s.Model)
			break
		}
	}
	if servo == nil {
		return false
	}

	originalPos, err := servo.Position(ctx)
	if err != nil {
		fmt.Printf("  Error reading position: %v\n", err)
		return false
	}

	if err := servo.Enable(ctx); err != nil {
		fmt.Printf("  Error enabling servo: %v\n", err)
		return false
	}

	fmt.Printf("\n  Wiggling arm on %s...\n", arm.port)
	if err := wiggle(ctx, servo, originalPos, 30, 500*time.Millisecond); err != nil {
		fmt.Printf("  Error wiggling servo: %v\n", err)
		return false
	}

	var use bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Use the arm on %s?", arm.port)).
				Description("The arm that just wiggled").
				Affirmative("Use it").
				Negative("Skip").
				Value(&use),
		),
	)
	if err := form.Run(); err != nil {
		return false
	}
	return use
}

// wiggleServo is the part of a servo the identification wiggle drives.
type wiggleServo interface {
	SetPositionWithTime(ctx context.Context, position, timeMs int) error
	Disable(ctx context.Context) error
}

// wiggle swings a servo by amount steps either side of origin and back, then
// releases torque. Torque is released even when a move fails.
func wiggle(ctx context.Context, servo wiggleServo, origin, amount int, moveTime time.Duration) error {
	var err error
	for _, pos := range []int{origin + amount, origin - amount, origin} {
		if err = servo.SetPositionWithTime(ctx, pos, int(moveTime.Milliseconds())); err != nil {
			err = fmt.Errorf("move to %d: %w", pos, err)
			break
		}
		time.Sleep(moveTime + moveTime/5)
	}
	if derr := servo.Disable(ctx); derr != nil {
		err = multierr.Append(err, fmt.Errorf("disable: %w", derr))
	}
	return err
}

// releaseTorque disables every servo so the arm can be moved by hand.
// All servos are attempted; failures are combined.
func releaseTorque[S interface{ Disable(context.Context) error }](ctx context.Context, servos map[robot.JointID]S) error {
	var errs error
	for j, s := range servos {
		if err := s.Disable(ctx); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", j, err))
		}
	}
	return errs
}

func connectToArm(port string) (*feetech.Bus, []feetech.FoundServo, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	bus, err := feetech.NewBus(feetech.BusConfig{
		Port:     port,
		BaudRate: robot.DefaultBaudRate,
		Protocol: feetech.ProtocolSTS,
		Timeout:  100 * time.Millisecond,
	})
	if err != nil {
		return nil, nil, err
	}

	servos, err := bus.Scan(ctx, 1, robot.NumJoints)
	if err != nil {
		bus.Close()
		return nil, nil, err
	}

	if !isArm(servos) {
		bus.Close()
		return nil, nil, fmt.Errorf("not a five joint arm (expected servos with IDs 1-%d)", robot.NumJoints)
	}

	return bus, servos, nil
}

func calibrateArm(port string) (robot.Calibration, error) {
	fmt.Printf("Calibrating arm on %s\n", port)
	fmt.Println()

	bus, servos, err := connectToArm(port)
	if err != nil {
		return nil, fmt.Errorf("connect to arm: %w", err)
	}
	defer bus.Close()

	servoMap := make(map[robot.JointID]*feetech.Servo)
	for _, s := range servos {
		servoMap[robot.JointID(s.ID)] = feetech.NewServo(bus, s.ID, s.Model)
	}

	// Disable all servos so user can move arm freely
	ctx := context.Background()
	if err := releaseTorque(ctx, servoMap); err != nil {
		return nil, fmt.Errorf("disable torque: %w", err)
	}

	// Zero pose: upper arm, forearm and hand stacked straight up, facing front
	fmt.Println(subHeaderStyle.Render("Record zero pose"))
	fmt.Println("Stand the arm straight up with the gripper facing front.")
	waitForUser()

	joints := robot.AllJoints()
	homing := make(map[robot.JointID]int)
	for _, j := range joints {
		pos, err := servoMap[j].Position(ctx)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", j, err)
		}
		homing[j] = pos
	}

	fmt.Println()
	fmt.Println(subHeaderStyle.Render("Record range of motion"))
	fmt.Println("Move each joint to its minimum AND maximum positions.")
	fmt.Println()

	model := newCalibrationModel(joints, servoMap, homing)
	p := tea.NewProgram(model)
	finalModel, err := p.Run()
	if err != nil {
		return nil, fmt.Errorf("run calibration: %w", err)
	}
	cm := finalModel.(calibrationModel)

	cal := make(robot.Calibration, len(joints))
	for _, j := range joints {
		cal[j] = robot.JointCalibration{
			ID:           int(j),
			HomingOffset: homing[j],
			RangeMin:     cm.minPositions[j],
			RangeMax:     cm.maxPositions[j],
		}
	}

	fmt.Println()
	fmt.Println("Arm calibrated.")
	return cal, nil
}

func waitForUser() {
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("").
				Affirmative("Continue").
				Negative("").
				Value(new(bool)),
		),
	)
	if err := form.Run(); err != nil {
		fmt.Println()
	}
}

// Calibration TUI model
type calibrationModel struct {
	joints       []robot.JointID
	servoMap     map[robot.JointID]*feetech.Servo
	curPositions map[robot.JointID]int
	minPositions map[robot.JointID]int
	maxPositions map[robot.JointID]int
	quitting     bool
}

type tickMsg time.Time

func newCalibrationModel(
	joints []robot.JointID,
	servoMap map[robot.JointID]*feetech.Servo,
	start map[robot.JointID]int,
) calibrationModel {
	m := calibrationModel{
		joints:       joints,
		servoMap:     servoMap,
		curPositions: make(map[robot.JointID]int, len(joints)),
		minPositions: make(map[robot.JointID]int, len(joints)),
		maxPositions: make(map[robot.JointID]int, len(joints)),
	}
	for _, j := range joints {
		m.curPositions[j] = start[j]
		m.minPositions[j] = start[j]
		m.maxPositions[j] = start[j]
	}
	return m
}

func tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m calibrationModel) Init() tea.Cmd {
	return tick()
}

func (m calibrationModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "enter", "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case tickMsg:
		ctx := context.Background()
		for _, j := range m.joints {
			pos, err := m.servoMap[j].Position(ctx)
			if err != nil {
				continue
			}
			m.curPositions[j] = pos
			m.minPositions[j] = min(m.minPositions[j], pos)
			m.maxPositions[j] = max(m.maxPositions[j], pos)
		}
		return m, tick()
	}

	return m, nil
}

func (m calibrationModel) View() string {
	if m.quitting {
		return ""
	}

	var sb strings.Builder

	tableHeaderStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	tableJointStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Padding(0, 1)
	tableCellStyle := lipgloss.NewStyle().Padding(0, 1)
	tableCurrentStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Padding(0, 1)
	tableRangeGoodStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Padding(0, 1)
	tableRangeLowStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Padding(0, 1)

	rows := make([][]string, 0, len(m.joints))
	ranges := make([]int, 0, len(m.joints))
	for _, j := range m.joints {
		rangeSize := m.maxPositions[j] - m.minPositions[j]
		ranges = append(ranges, rangeSize)
		rows = append(rows, []string{
			j.String(),
			fmt.Sprintf("%d", m.curPositions[j]),
			fmt.Sprintf("%d", m.minPositions[j]),
			fmt.Sprintf("%d", m.maxPositions[j]),
			fmt.Sprintf("%d", rangeSize),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("Joint", "Current", "Min", "Max", "Range").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			switch col {
			case 0:
				return tableJointStyle
			case 1:
				return tableCurrentStyle
			case 4:
				if row >= 0 && row < len(ranges) && ranges[row] > 500 {
					return tableRangeGoodStyle
				}
				return tableRangeLowStyle
			default:
				return tableCellStyle
			}
		})

	sb.WriteString(t.Render())
	sb.WriteString("\n\n")
	sb.WriteString(dimStyle.Render("Press Enter when done"))

	return sb.String()
}
