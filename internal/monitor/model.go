package monitor

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/san-kum/mpm/internal/mpm"
)

const (
	barWidth     = 40
	historyLimit = 200
)

// ProgressMsg is one throttled sample of a running simulation.
type ProgressMsg struct {
	Time, Final   float64
	Step          int
	Particles     int
	KineticEnergy float64
	Frame         string
}

// DoneMsg reports the end of the run.
type DoneMsg struct {
	RunID  string
	Result *mpm.Result
	Err    error
}

type Model struct {
	title  string
	cancel context.CancelFunc

	progress ProgressMsg
	energy   []float64
	samples  int

	done   bool
	runID  string
	result *mpm.Result
	err    error

	width, height int
}

// NewModel returns the monitor for a run. cancel, if set, is called when
// the user asks to stop.
func NewModel(title string, cancel context.CancelFunc) Model {
	return Model{title: title, cancel: cancel, width: 80, height: 24}
}

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			if m.cancel != nil {
				m.cancel()
			}
			if m.done {
				return m, tea.Quit
			}
		}
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
	case ProgressMsg:
		m.progress = msg
		m.samples++
		m.energy = append(m.energy, msg.KineticEnergy)
		if len(m.energy) > historyLimit {
			m.energy = m.energy[len(m.energy)-historyLimit:]
		}
	case DoneMsg:
		m.done = true
		m.runID = msg.RunID
		m.result = msg.Result
		m.err = msg.Err
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) Done() bool { return m.done }

func (m Model) Err() error { return m.err }

func (m Model) status() string {
	switch {
	case m.err != nil:
		return StatusFailed.Render("stopped: " + m.err.Error())
	case m.done && m.result != nil:
		return StatusRunning.Render("done: " + m.result.Reason.String())
	case m.done:
		return StatusRunning.Render("done")
	}
	return StatusRunning.Render(Spinner(m.samples) + " running")
}

func metric(label, value string) string {
	return MetricLabel.Render(label+" ") + MetricValue.Render(value)
}

func (m Model) View() string {
	var b strings.Builder
	p := m.progress

	b.WriteString(Title.Render(m.title) + "  " + m.status() + "\n\n")

	fraction := 0.0
	if p.Final > 0 {
		fraction = p.Time / p.Final
	}
	b.WriteString(ProgressBar(fraction, barWidth) + fmt.Sprintf(" %3.0f%%\n", 100*fraction))
	b.WriteString(strings.Join([]string{
		metric("t", fmt.Sprintf("%.4g / %.4g", p.Time, p.Final)),
		metric("step", fmt.Sprintf("%d", p.Step)),
		metric("particles", fmt.Sprintf("%d", p.Particles)),
	}, "   ") + "\n")
	b.WriteString(metric("kinetic energy", fmt.Sprintf("%.4g", p.KineticEnergy)) + "\n")
	b.WriteString(Sparkline(m.energy, min(barWidth, max(10, m.width-4))) + "\n")

	if p.Frame != "" {
		b.WriteString(Panel.Render(strings.TrimRight(p.Frame, "\n")) + "\n")
	}
	if m.runID != "" {
		b.WriteString(metric("run", m.runID) + "\n")
	}
	b.WriteString(KeyHint.Render("q stop"))
	return b.String()
}
