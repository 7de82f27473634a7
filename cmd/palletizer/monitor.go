package main

import (
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/NimbleMarkets/ntcharts/canvas/runes"
	"github.com/NimbleMarkets/ntcharts/linechart/streamlinechart"

	"github.com/gwillem/palletizer/internal/logging"
	"github.com/gwillem/palletizer/pkg/protocol"
	"github.com/gwillem/palletizer/pkg/robot"
	"github.com/gwillem/palletizer/pkg/sim"
)

type MonitorCommand struct {
	Listen string `long:"listen" short:"l" description:"Address to listen on (default: :<udp-port> from the configuration)"`
}

const (
	headerHeight = 2 // title + blank line
	legendHeight = 2 // legend row + blank
	footerHeight = 7 // log box height
	maxLogs      = 5 // number of log messages to show
	borderSize   = 2 // chart border
)

// Joint colors - distinct colors for each joint
var jointColors = map[robot.Joint]string{
	robot.J1: "196", // red
	robot.J2: "208", // orange
	robot.J3: "46",  // green
	robot.J4: "51",  // cyan
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	chartStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type monitorModel struct {
	listener *sim.Listener
	addr     string
	chart    *streamlinechart.Model
	width    int      // terminal width
	height   int      // terminal height
	logs     []string // last N received messages
	count    int
	led      protocol.LED
	quitting bool
}

func (m *monitorModel) addLog(msg string) {
	m.logs = append(m.logs, msg)
	if len(m.logs) > maxLogs {
		m.logs = m.logs[len(m.logs)-maxLogs:]
	}
}

type receivedMsg sim.Received
type listenerClosedMsg struct{}

func waitForMessage(l *sim.Listener) tea.Cmd {
	return func() tea.Msg {
		r, ok := <-l.Messages()
		if !ok {
			return listenerClosedMsg{}
		}
		return receivedMsg(r)
	}
}

// chartSize calculates the size of the chart based on terminal dimensions
func (m *monitorModel) chartSize() (width, height int) {
	if m.width == 0 || m.height == 0 {
		return 80, 20 // default size before we know terminal size
	}
	width = m.width - borderSize - 2
	if width < 40 {
		width = 40
	}
	height = m.height - headerHeight - legendHeight - footerHeight - borderSize
	if height < 10 {
		height = 10
	}
	return width, height
}

func (m *monitorModel) resizeChart() {
	w, h := m.chartSize()
	m.chart.Resize(w, h)
}

func initialMonitorModel(l *sim.Listener) monitorModel {
	// j4 spans the widest range; the others fit inside it
	wide := robot.DefaultLimits()[robot.J4]
	chart := streamlinechart.New(80, 20,
		streamlinechart.WithYRange(wide.Min, wide.Max),
	)

	for _, j := range robot.AllJoints() {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(jointColors[j]))
		chart.SetDataSetStyles(string(j), runes.ThinLineStyle, style)
	}

	return monitorModel{
		listener: l,
		addr:     l.Addr().String(),
		chart:    &chart,
	}
}

func (m monitorModel) Init() tea.Cmd {
	return waitForMessage(m.listener)
}

func (m monitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeChart()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case receivedMsg:
		m.count++
		switch v := msg.Message.(type) {
		case protocol.Move:
			m.pushJoints(v.Joints)
		case protocol.SyncMove:
			m.pushJoints(v.Joints)
		case protocol.LED:
			m.led = v
		}
		m.addLog(describe(sim.Received(msg)))
		return m, waitForMessage(m.listener)

	case listenerClosedMsg:
		m.quitting = true
		return m, tea.Quit
	}

	return m, nil
}

func (m *monitorModel) pushJoints(j protocol.Joints) {
	m.chart.PushDataSet(string(robot.J1), j.J1)
	m.chart.PushDataSet(string(robot.J2), j.J2)
	m.chart.PushDataSet(string(robot.J3), j.J3)
	m.chart.PushDataSet(string(robot.J4), j.J4)
	m.chart.DrawAll()
}

func (m monitorModel) View() string {
	if m.quitting {
		return "Monitor stopped.\n"
	}

	var sb strings.Builder

	// Header
	sb.WriteString(titleStyle.Render("Palletizer Monitor"))
	sb.WriteString(fmt.Sprintf(" - %s - %d messages ", m.addr, m.count))
	sb.WriteString(renderLED(m.led))
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

	// Log box
	logStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240"))
	if m.width > 4 {
		logStyle = logStyle.Width(m.width - 4)
	}

	var logLines string
	if len(m.logs) == 0 {
		logLines = statusStyle.Render("Waiting for messages... press 'q' to quit")
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
		items = append(items, colorStyle.Render("━━")+" "+string(j))
	}
	return strings.Join(items, "  ")
}

func renderLED(l protocol.LED) string {
	hex := fmt.Sprintf("#%02x%02x%02x", l.R, l.G, l.B)
	return lipgloss.NewStyle().Background(lipgloss.Color(hex)).Render("    ")
}

// describe renders one received message as a log line.
func describe(r sim.Received) string {
	ts := r.At.Format("15:04:05.000")
	switch v := r.Message.(type) {
	case protocol.Move:
		return fmt.Sprintf("%s move      %s", ts, describeJoints(v.Joints))
	case protocol.SyncMove:
		return fmt.Sprintf("%s sync_move %s", ts, describeJoints(v.Joints))
	case protocol.LED:
		return fmt.Sprintf("%s led       r=%d g=%d b=%d", ts, v.R, v.G, v.B)
	}
	return fmt.Sprintf("%s %T", ts, r.Message)
}

func describeJoints(j protocol.Joints) string {
	return fmt.Sprintf("j1=%.1f j2=%.1f j3=%.1f j4=%.1f speed=%d", j.J1, j.J2, j.J3, j.J4, j.Speed)
}

func (c *MonitorCommand) Execute(args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	addr := c.Listen
	if addr == "" {
		addr = fmt.Sprintf(":%d", cfg.Connection.WithDefaults().UDPPort)
	}

	// The TUI owns the terminal, so logs only go to log.file
	l, err := sim.Listen(addr, logging.NewFileOnly(cfg.Log))
	if err != nil {
		return err
	}
	defer l.Close()

	p := tea.NewProgram(initialMonitorModel(l), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("run monitor: %w", err)
	}
	return nil
}
