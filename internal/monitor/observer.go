package monitor

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/san-kum/mpm/internal/dw"
	"github.com/san-kum/mpm/internal/metrics"
	"github.com/san-kum/mpm/internal/patch"
)

// Sender receives progress messages; *tea.Program satisfies it.
type Sender interface {
	Send(msg tea.Msg)
}

// Observer forwards at most one ProgressMsg per interval. The frame is
// rendered while the warehouse is still consistent, inside OnStep.
type Observer struct {
	sender Sender
	patch  *patch.Patch
	every  time.Duration
	last   time.Time
	canvas *Canvas
}

func NewObserver(s Sender, p *patch.Patch, every time.Duration, width, height int) *Observer {
	return &Observer{
		sender: s,
		patch:  p,
		every:  every,
		canvas: NewCanvas(width, height),
	}
}

func (o *Observer) OnStep(w *dw.DataWarehouse, t float64) {
	now := time.Now()
	if !o.last.IsZero() && now.Sub(o.last) < o.every {
		return
	}
	o.last = now

	o.canvas.Clear()
	o.canvas.Plot(w, o.patch)
	o.sender.Send(ProgressMsg{
		Time:          t,
		Final:         o.patch.Tf,
		Step:          w.Step(),
		Particles:     w.NumParticles(),
		KineticEnergy: metrics.TotalKineticEnergy(w),
		Frame:         o.canvas.String(),
	})
}
