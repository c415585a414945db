package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"go.uber.org/zap"

	"github.com/NimbleMarkets/ntcharts/canvas/runes"
	"github.com/NimbleMarkets/ntcharts/linechart/streamlinechart"

	"github.com/connorklee/webots-arm/pkg/control"
	"github.com/connorklee/webots-arm/pkg/kinematics"
	"github.com/connorklee/webots-arm/pkg/robot"
)

type DriveCommand struct {
	LogFile string `long:"log-file" default:"armctl.log" description:"Where to write logs while the UI is running"`
}

const (
	headerHeight = 2  // title + blank line
	legendHeight = 2  // legend row + blank
	tableHeight  = 9  // joint table
	footerHeight = 7  // log box height
	maxLogs      = 5  // number of log messages to show
	borderSize   = 2  // chart border
	sampleRate   = 10 // chart samples per second
)

// Joint colors - distinct colors for each joint
var jointColors = map[robot.JointID]string{
	robot.Joint1: "196", // red
	robot.Joint2: "208", // orange
	robot.Joint3: "226", // yellow
	robot.Joint4: "46",  // green
	robot.Joint5: "51",  // cyan
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	chartStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type driveModel struct {
	ctx      context.Context
	ctrl     *control.Controller
	chart    *streamlinechart.Model
	width    int      // terminal width
	height   int      // terminal height
	logs     []string // last N log messages
	quitting bool
}

type sampleMsg time.Time

func (m *driveModel) addLog(format string, args ...any) {
	msg := fmt.Sprintf("[%s] %s", time.Now().Format("15:04:05"), fmt.Sprintf(format, args...))
	m.logs = append(m.logs, msg)
	if len(m.logs) > maxLogs {
		m.logs = m.logs[len(m.logs)-maxLogs:]
	}
}

// chartSize calculates the size of the chart based on terminal dimensions
func (m *driveModel) chartSize() (width, height int) {
	if m.width == 0 || m.height == 0 {
		return 80, 12 // default size before we know terminal size
	}
	width = max(m.width-borderSize-2, 40)
	height = max(m.height-headerHeight-legendHeight-tableHeight-footerHeight-borderSize, 6)
	return width, height
}

func newDriveModel(ctx context.Context, ctrl *control.Controller) driveModel {
	// Every joint stays within half a turn either way
	chart := streamlinechart.New(80, 12,
		streamlinechart.WithYRange(-3.2, 3.2),
	)

	for _, j := range robot.AllJoints() {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(jointColors[j]))
		chart.SetDataSetStyles(j.String(), runes.ThinLineStyle, style)
	}

	return driveModel{
		ctx:   ctx,
		ctrl:  ctrl,
		chart: &chart,
	}
}

func sample() tea.Cmd {
	return tea.Tick(time.Second/sampleRate, func(t time.Time) tea.Msg {
		return sampleMsg(t)
	})
}

func (m driveModel) Init() tea.Cmd {
	return sample()
}

// keyActions maps keys to controller operations.
var keyActions = map[string]func(*control.Controller, context.Context) error{
	"up":    (*control.Controller).IncreaseHeight,
	"k":     (*control.Controller).IncreaseHeight,
	"down":  (*control.Controller).DecreaseHeight,
	"j":     (*control.Controller).DecreaseHeight,
	"right": (*control.Controller).IncreaseOrientation,
	"l":     (*control.Controller).IncreaseOrientation,
	"left":  (*control.Controller).DecreaseOrientation,
	"h":     (*control.Controller).DecreaseOrientation,
	"r":     (*control.Controller).Reset,
}

func (m driveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.chart.Resize(m.chartSize())
		return m, nil

	case tea.KeyMsg:
		key := msg.String()
		switch key {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}
		if action, ok := keyActions[key]; ok {
			if err := action(m.ctrl, m.ctx); err != nil {
				m.addLog("Error: %v", err)
			} else {
				m.addLog("%s -> %s / %s", key, m.ctrl.Height(), m.ctrl.Orientation())
			}
		}
		return m, nil

	case sampleMsg:
		angles := m.ctrl.Commanded()
		for _, j := range robot.AllJoints() {
			m.chart.PushDataSet(j.String(), angles.Joint(j))
		}
		m.chart.DrawAll()
		return m, sample()
	}

	return m, nil
}

func (m driveModel) View() string {
	if m.quitting {
		return "Drive stopped.\n"
	}

	var sb strings.Builder

	// Header
	sb.WriteString(titleStyle.Render("armctl drive"))
	sb.WriteString(fmt.Sprintf(" - height %s, orientation %s", m.ctrl.Height(), m.ctrl.Orientation()))
	if m.width > 0 {
		sb.WriteString(statusStyle.Render(fmt.Sprintf("  [%dx%d]", m.width, m.height)))
	}
	sb.WriteString("\n\n")

	// Chart
	sb.WriteString(chartStyle.Render(m.chart.View()))
	sb.WriteString("\n")

	// Legend
	sb.WriteString(renderLegend())
	sb.WriteString("\n")

	sb.WriteString(renderJointTable(m.ctrl))
	sb.WriteString("\n")

	// Log box
	logStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Width(max(m.width-4, 40))

	var logLines string
	if len(m.logs) == 0 {
		logLines = statusStyle.Render("↑/↓ height  ←/→ orientation  r reset  q quit")
	} else {
		logLines = strings.Join(m.logs, "\n")
	}
	sb.WriteString(logStyle.Render(logLines))
	sb.WriteString("\n")

	return sb.String()
}

func renderLegend() string {
	var items []string
	for _, j := range robot.AllJoints() {
		colorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(jointColors[j])).Bold(true)
		items = append(items, colorStyle.Render("━━")+" "+j.String())
	}
	return strings.Join(items, "  ")
}

func renderJointTable(ctrl *control.Controller) string {
	angles := ctrl.Commanded()
	tip := kinematics.Forward(angles)

	rows := make([][]string, 0, robot.NumJoints)
	for _, j := range robot.AllJoints() {
		rows = append(rows, []string{
			j.String(),
			formatAngle(angles.Joint(j)),
			fmt.Sprintf("%.3f", ctrl.LinkLength(j)),
		})
	}

	cellStyle := lipgloss.NewStyle().Padding(0, 1)
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("Joint", "Commanded", "Link (m)").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return cellStyle.Bold(true).Foreground(lipgloss.Color("12"))
			}
			return cellStyle
		})

	return t.Render() + "\n" + dimStyle.Render(fmt.Sprintf("tip (%.3f, %.3f, %.3f) m", tip.X, tip.Y, tip.Z))
}

func (c *DriveCommand) Execute(args []string) error {
	logger, err := newLogger(c.LogFile)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}

	ctx := context.Background()
	s, err := openSession(ctx, logger)
	if err != nil {
		return err
	}
	defer s.Close()

	logger.Info("drive started", zap.String("height", s.ctrl.Height().String()))

	p := tea.NewProgram(newDriveModel(ctx, s.ctrl), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run drive UI: %w", err)
	}

	logger.Info("drive stopped")
	return nil
}
