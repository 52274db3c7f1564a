package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tui "github.com/charmbracelet/bubbletea"
	styles "github.com/charmbracelet/lipgloss"
	plot "github.com/chriskim06/drawille-go"

	"github.com/ik2sb/irqtop/irqstats"
	"github.com/ik2sb/irqtop/mpstat"
)

const (
	rateHistoryLen = 120
	plotHeight     = 8
	cycleRingSize  = 256
)

var (
	accentColor = styles.AdaptiveColor{Light: "0", Dark: "9"}
	borderColor = styles.AdaptiveColor{Light: "#555", Dark: "#555"}
	titleStyle  = styles.NewStyle().Bold(true)
	accentFg    = styles.NewStyle().Foreground(accentColor)
	borderFg    = styles.NewStyle().Foreground(borderColor)
	plotStyle   = styles.NewStyle().
			BorderStyle(styles.NormalBorder()).
			Foreground(borderColor).
			BorderForeground(borderColor)
)

type model struct {
	monitor  *irqstats.Monitor
	sampler  *mpstat.Sampler
	interval time.Duration

	width, height int
	warmedUp      bool
	paused        bool
	stalled       bool // a cycle landed while paused; re-arm on resume
	showPlot      bool
	err           error

	table        table.Model
	columnsReady bool
	help         help.Model
	plot         *plot.Canvas
	history      []float64
	latest       cycle
	cycles       *durationRing
}

func newModel(monitor *irqstats.Monitor, sampler *mpstat.Sampler, interval time.Duration) *model {
	const (
		defaultWidth  = 80
		defaultHeight = 20
	)

	t := table.New(table.WithHeight(defaultHeight / 2))
	ts := table.DefaultStyles()
	ts.Header = ts.Header.
		BorderStyle(styles.NormalBorder()).
		BorderForeground(borderColor).
		BorderBottom(true).
		Bold(false)
	ts.Selected = ts.Selected.
		Foreground(accentColor).
		Bold(false)
	t.SetStyles(ts)

	p := plot.NewCanvas(defaultWidth-2, plotHeight)
	p.NumDataPoints = rateHistoryLen
	p.ShowAxis = false
	p.LineColors = []plot.Color{plot.Red}

	return &model{
		monitor:  monitor,
		sampler:  sampler,
		interval: interval,
		showPlot: true,
		table:    t,
		help:     help.New(),
		plot:     &p,
		history:  make([]float64, 0, rateHistoryLen),
		cycles:   newDurationRing(cycleRingSize),
	}
}

type warmupMsg struct{}

type cycleMsg struct{ c cycle }

type errMsg struct{ err error }

// warmupCmd establishes the counter baselines; nothing is reported from it.
func (m *model) warmupCmd() tui.Cmd {
	return func() tui.Msg {
		if err := m.monitor.Collect(true); err != nil {
			return errMsg{err}
		}
		return warmupMsg{}
	}
}

// cycleCmd runs one monitoring cycle. The embedded mpstat run blocks for the
// sampling interval, so this command doubles as the refresh tick. Commands
// are re-armed one at a time, keeping the monitor single-mutator.
func (m *model) cycleCmd() tui.Cmd {
	return func() tui.Msg {
		c, err := runCycle(context.Background(), m.monitor, m.sampler, m.interval)
		if err != nil {
			return errMsg{err}
		}
		return cycleMsg{c}
	}
}

func (m *model) Init() tui.Cmd {
	return m.warmupCmd()
}

func (m *model) Update(msg tui.Msg) (tui.Model, tui.Cmd) {
	switch msg := msg.(type) {
	case errMsg:
		m.err = msg.err
		return m, tui.Quit
	case warmupMsg:
		m.warmedUp = true
		return m, m.cycleCmd()
	case cycleMsg:
		m.applyCycle(msg.c)
		if m.paused {
			m.stalled = true
			return m, nil
		}
		return m, m.cycleCmd()
	case tui.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		return m, nil
	case tui.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			return m, tui.Quit
		case key.Matches(msg, keys.Pause):
			m.paused = !m.paused
			if !m.paused && m.stalled {
				m.stalled = false
				return m, m.cycleCmd()
			}
			return m, nil
		case key.Matches(msg, keys.Plot):
			m.showPlot = !m.showPlot
			m.resize()
			return m, nil
		}
	}
	var cmd tui.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m *model) applyCycle(c cycle) {
	m.latest = c
	m.cycles.add(c.took)
	m.history = append(m.history, c.rate)
	if len(m.history) > rateHistoryLen {
		m.history = m.history[len(m.history)-rateHistoryLen:]
	}
	if !m.columnsReady {
		m.table.SetColumns(irqColumns(c.onlineCPUs))
		m.columnsReady = true
		m.resize()
	}
	m.table.SetRows(irqRows(c))
	m.plot.Fill([][]float64{m.history})
}

func (m *model) resize() {
	if m.width == 0 {
		return
	}
	m.table.SetWidth(m.width)
	reserved := len(m.latest.stats) + len(m.latest.summaries) + 5
	if m.showPlot {
		reserved += plotHeight + 2
	}
	m.table.SetHeight(max(3, m.height-reserved))
	p := plot.NewCanvas(max(1, m.width-2), plotHeight)
	p.NumDataPoints = m.plot.NumDataPoints
	p.ShowAxis = m.plot.ShowAxis
	p.LineColors = m.plot.LineColors
	m.plot = &p
	if len(m.history) > 0 {
		m.plot.Fill([][]float64{m.history})
	}
}

func irqColumns(cpus int) []table.Column {
	columns := make([]table.Column, 0, cpus+3)
	columns = append(columns, table.Column{Title: "IRQ", Width: 8})
	for cpu := 0; cpu < cpus; cpu++ {
		columns = append(columns, table.Column{Title: fmt.Sprintf("CPU%d", cpu), Width: 9})
	}
	columns = append(columns,
		table.Column{Title: "SOURCE", Width: 28},
		table.Column{Title: "AFFINITY", Width: 28},
	)
	return columns
}

func irqRows(c cycle) []table.Row {
	rows := make([]table.Row, 0, len(c.rows))
	for _, r := range c.rows {
		cells := make(table.Row, 0, len(r.deltas)+3)
		cells = append(cells, r.name)
		for _, d := range r.deltas {
			cells = append(cells, fmt.Sprintf("%d", d))
		}
		cells = append(cells, r.detail, r.affinity)
		rows = append(rows, cells)
	}
	return rows
}

func (m *model) View() string {
	if m.err != nil {
		errStyle := styles.NewStyle().Foreground(styles.AdaptiveColor{Light: "1", Dark: "9"})
		return errStyle.Render("ERROR: " + m.err.Error())
	}
	if !m.warmedUp {
		return "collecting baselines..."
	}

	parts := []string{titleStyle.Render(titleLine(m.interval, m.latest.onlineCPUs, m.paused))}

	if len(m.latest.stats) > 0 {
		cpuLines := make([]string, 0, len(m.latest.stats))
		for _, s := range m.latest.stats {
			cpuLines = append(cpuLines, formatCPUStat(s))
		}
		parts = append(parts, strings.Join(cpuLines, "\n"))
	}

	parts = append(parts, m.table.View())

	if m.showPlot {
		parts = append(parts, plotStyle.Render(m.plot.String()))
	}

	for _, s := range m.latest.summaries {
		parts = append(parts, accentFg.Render(formatSummary(s)))
	}

	snap := m.cycles.snapshot()
	parts = append(parts, borderFg.Render(fmt.Sprintf(
		"%.1f hardirq/s  collect last %s avg %s max %s",
		m.latest.rate,
		formatMetricDuration(snap.last),
		formatMetricDuration(snap.avg),
		formatMetricDuration(snap.max))))

	parts = append(parts, m.help.View(keys))
	return styles.JoinVertical(styles.Left, parts...)
}

// titleLine stays plain ASCII so its cell width is exactly its length.
func titleLine(interval time.Duration, cpus int, paused bool) string {
	title := fmt.Sprintf("%s %s - every %s - %d cpus", appName, appVersion, interval, cpus)
	if paused {
		title += " (paused)"
	}
	return title
}

type keyMap struct {
	Pause key.Binding
	Plot  key.Binding
	Up    key.Binding
	Down  key.Binding
	Quit  key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Quit, k.Pause, k.Plot}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Quit, k.Pause},
		{k.Up, k.Down, k.Plot},
	}
}

var keys = keyMap{
	Pause: key.NewBinding(
		key.WithKeys("p", " "),
		key.WithHelp("p/space", "pause"),
	),
	Plot: key.NewBinding(
		key.WithKeys("g"),
		key.WithHelp("g", "graph"),
	),
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q/ctrl+c", "quit"),
	),
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
