// Package teleop is a terminal UI for driving the robot by hand: WASD for
// the wheels, arrow keys for the camera mount, and a live chart of the
// wheel speeds.
package teleop

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/NimbleMarkets/ntcharts/canvas/runes"
	"github.com/NimbleMarkets/ntcharts/linechart/streamlinechart"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/teslashibe/go-jetbot/pkg/drive"
	"github.com/teslashibe/go-jetbot/pkg/ptz"
)

// Driver is the part of drive.Controller the UI uses.
type Driver interface {
	Forward(speed float64) error
	Backward(speed float64) error
	TurnLeft(speed float64) error
	TurnRight(speed float64) error
	Halt() error
	Wheels() drive.Wheels
}

var _ Driver = (*drive.Controller)(nil)

// Mount is the part of ptz.Mount the UI uses.
type Mount interface {
	RelativeMove(ctx context.Context, dPan, dTilt float64) (ptz.Position, error)
	Center(ctx context.Context) error
	Position() ptz.Position
}

var _ Mount = (*ptz.Mount)(nil)

// Config sets speeds and step sizes.
type Config struct {
	Speed     float64 // initial wheel speed
	SpeedStep float64 // change per +/- press
	MinSpeed  float64
	MaxSpeed  float64

	// Degrees per arrow press.
	PanStep  float64
	TiltStep float64

	Refresh time.Duration // chart sample period
}

// DefaultConfig matches the speeds used by the hardware test.
func DefaultConfig() Config {
	return Config{
		Speed:     0.3,
		SpeedStep: 0.05,
		MinSpeed:  0.05,
		MaxSpeed:  1,
		PanStep:   5,
		TiltStep:  5,
		Refresh:   100 * time.Millisecond,
	}
}

const (
	headerHeight = 3
	legendHeight = 2
	footerHeight = 7
	maxLogs      = 5
	borderSize   = 2
)

// Actions shown in the header.
const (
	ActionStop     = "stop"
	ActionForward  = "forward"
	ActionBackward = "backward"
	ActionLeft     = "left"
	ActionRight    = "right"
)

var wheelColors = map[string]string{
	drive.MotorLeft:  "208",
	drive.MotorRight: "51",
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	chartStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	actionStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("46"))
)

const helpText = "w/s forward/back  a/d turn  space stop  +/- speed  arrows camera  c centre  q quit"

// Model is the bubbletea model.
type Model struct {
	ctx    context.Context
	driver Driver
	mount  Mount
	cfg    Config

	speed  float64
	action string

	chart    *streamlinechart.Model
	width    int
	height   int
	logs     []string
	quitting bool
}

type tickMsg time.Time

// New builds the model. mount may be nil when no pan/tilt head is fitted.
func New(ctx context.Context, d Driver, mount Mount, cfg Config) Model {
	chart := streamlinechart.New(80, 20, streamlinechart.WithYRange(-100, 100))
	for name, color := range wheelColors {
		chart.SetDataSetStyles(name, runes.ThinLineStyle, lipgloss.NewStyle().Foreground(lipgloss.Color(color)))
	}
	return Model{
		ctx:    ctx,
		driver: d,
		mount:  mount,
		cfg:    cfg,
		speed:  cfg.Speed,
		action: ActionStop,
		chart:  &chart,
	}
}

// Speed is the current drive speed.
func (m Model) Speed() float64 { return m.speed }

// Action is the current motion.
func (m Model) Action() string { return m.action }

// Logs returns the recent messages.
func (m Model) Logs() []string { return m.logs }

func (m *Model) addLog(msg string) {
	m.logs = append(m.logs, msg)
	if len(m.logs) > maxLogs {
		m.logs = m.logs[len(m.logs)-maxLogs:]
	}
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.cfg.Refresh, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Init starts the chart ticker.
func (m Model) Init() tea.Cmd {
	return m.tick()
}

// Update handles keys, resizes and chart ticks.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.chart.Resize(m.chartSize())
		return m, nil

	case tickMsg:
		w := m.driver.Wheels()
		m.chart.PushDataSet(drive.MotorLeft, w.Left*100)
		m.chart.PushDataSet(drive.MotorRight, w.Right*100)
		m.chart.DrawAll()
		return m, m.tick()

	case tea.KeyMsg:
		return m.handleKey(msg.String())
	}
	return m, nil
}

func (m Model) handleKey(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "q", "ctrl+c", "esc":
		m.quitting = true
		if err := m.driver.Halt(); err != nil {
			m.addLog(err.Error())
		}
		return m, tea.Quit
	case "w":
		m.drive(ActionForward)
	case "s":
		m.drive(ActionBackward)
	case "a":
		m.drive(ActionLeft)
	case "d":
		m.drive(ActionRight)
	case " ":
		m.drive(ActionStop)
	case "+", "=":
		m.setSpeed(m.speed + m.cfg.SpeedStep)
	case "-", "_":
		m.setSpeed(m.speed - m.cfg.SpeedStep)
	case "left":
		m.look(-m.cfg.PanStep, 0)
	case "right":
		m.look(m.cfg.PanStep, 0)
	case "up":
		m.look(0, m.cfg.TiltStep)
	case "down":
		m.look(0, -m.cfg.TiltStep)
	case "c":
		if m.mount != nil {
			if err := m.mount.Center(m.ctx); err != nil {
				m.addLog(fmt.Sprintf("centre: %v", err))
			}
		}
	}
	return m, nil
}

// drive applies action at the current speed.
func (m *Model) drive(action string) {
	var err error
	switch action {
	case ActionForward:
		err = m.driver.Forward(m.speed)
	case ActionBackward:
		err = m.driver.Backward(m.speed)
	case ActionLeft:
		err = m.driver.TurnLeft(m.speed)
	case ActionRight:
		err = m.driver.TurnRight(m.speed)
	default:
		action = ActionStop
		err = m.driver.Halt()
	}
	if err != nil {
		m.addLog(fmt.Sprintf("%s: %v", action, err))
		return
	}
	m.action = action
}

// setSpeed changes the speed and re-applies the current motion.
func (m *Model) setSpeed(v float64) {
	v = math.Max(m.cfg.MinSpeed, math.Min(m.cfg.MaxSpeed, v))
	// Keep two decimals so repeated steps do not drift.
	m.speed = math.Round(v*100) / 100
	if m.action != ActionStop {
		m.drive(m.action)
	}
}

func (m *Model) look(dPan, dTilt float64) {
	if m.mount == nil {
		m.addLog("no camera mount")
		return
	}
	if _, err := m.mount.RelativeMove(m.ctx, dPan, dTilt); err != nil {
		m.addLog(fmt.Sprintf("camera: %v", err))
	}
}

func (m Model) chartSize() (width, height int) {
	if m.width == 0 || m.height == 0 {
		return 80, 20
	}
	width = max(m.width-borderSize-2, 40)
	height = max(m.height-headerHeight-legendHeight-footerHeight-borderSize, 10)
	return width, height
}

// View renders the UI.
func (m Model) View() string {
	if m.quitting {
		return "Manual control stopped.\n"
	}

	var sb strings.Builder
	sb.WriteString(titleStyle.Render("JetBot Manual Control"))
	sb.WriteString(fmt.Sprintf(" - speed %.2f  ", m.speed))
	sb.WriteString(actionStyle.Render(m.action))
	if m.mount != nil {
		p := m.mount.Position()
		sb.WriteString(statusStyle.Render(fmt.Sprintf("  camera pan %.0f tilt %.0f", p.Pan, p.Tilt)))
	}
	sb.WriteString("\n")
	sb.WriteString(statusStyle.Render(helpText))
	sb.WriteString("\n\n")

	sb.WriteString(chartStyle.Render(m.chart.View()))
	sb.WriteString("\n")
	sb.WriteString(renderLegend())
	sb.WriteString("\n")

	logStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Width(max(m.width-4, 20)).
		Foreground(lipgloss.Color("9"))
	lines := statusStyle.Render("Press 'q' to quit")
	if len(m.logs) > 0 {
		lines = strings.Join(m.logs, "\n")
	}
	sb.WriteString(logStyle.Render(lines))
	sb.WriteString("\n")
	return sb.String()
}

func renderLegend() string {
	var items []string
	for _, name := range []string{drive.MotorLeft, drive.MotorRight} {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(wheelColors[name])).Bold(true)
		items = append(items, style.Render("━━")+" "+name+" wheel")
	}
	return strings.Join(items, "  ")
}

// Run shows the UI until the user quits or ctx is cancelled. The motors
// are halted on the way out.
func Run(ctx context.Context, d Driver, mount Mount, cfg Config) error {
	p := tea.NewProgram(New(ctx, d, mount, cfg), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if haltErr := d.Halt(); err == nil {
		err = haltErr
	}
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
