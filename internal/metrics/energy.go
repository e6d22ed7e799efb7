package metrics

import (
	"math"

	"github.com/san-kum/mpm/internal/dw"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r2"
)

// TotalKineticEnergy is ½ Σ m|v|² over every material.
func TotalKineticEnergy(w *dw.DataWarehouse) float64 {
	ke := 0.0
	for _, dwi := range w.Indices() {
		ps, _ := w.Particles(dwi)
		vsq := make([]float64, ps.Len())
		for p, v := range ps.V {
			vsq[p] = r2.Dot(v, v)
		}
		ke += 0.5 * floats.Dot(ps.Mass, vsq)
	}
	return ke
}

// TotalMomentum is Σ m v over every material.
func TotalMomentum(w *dw.DataWarehouse) r2.Vec {
	var out r2.Vec
	for _, dwi := range w.Indices() {
		ps, _ := w.Particles(dwi)
		vx := make([]float64, ps.Len())
		vy := make([]float64, ps.Len())
		for p, v := range ps.V {
			vx[p], vy[p] = v.X, v.Y
		}
		out = r2.Add(out, r2.Vec{X: floats.Dot(ps.Mass, vx), Y: floats.Dot(ps.Mass, vy)})
	}
	return out
}

func TotalMass(w *dw.DataWarehouse) float64 {
	m := 0.0
	for _, dwi := range w.Indices() {
		ps, _ := w.Particles(dwi)
		m += floats.Sum(ps.Mass)
	}
	return m
}

type KineticEnergy struct {
	name string
	last float64
	peak float64
}

func NewKineticEnergy() *KineticEnergy {
	return &KineticEnergy{name: "kinetic_energy"}
}

func (k *KineticEnergy) Name() string { return k.name }

func (k *KineticEnergy) Observe(w *dw.DataWarehouse, t float64) {
	k.last = TotalKineticEnergy(w)
	k.peak = math.Max(k.peak, k.last)
}

// Value is the kinetic energy of the latest observed state.
func (k *KineticEnergy) Value() float64 { return k.last }

func (k *KineticEnergy) Peak() float64 { return k.peak }

func (k *KineticEnergy) Reset() {
	k.last = 0
	k.peak = 0
}

// MomentumDrift tracks the largest change |p(t) - p(0)| of total momentum
// since the first observation. It is absolute, in mass times velocity, so
// runs with and without initial motion report on the same scale. External
// forces such as gravity show up as drift.
type MomentumDrift struct {
	name     string
	initial  r2.Vec
	started  bool
	maxDrift float64
}

func NewMomentumDrift() *MomentumDrift {
	return &MomentumDrift{name: "momentum_drift"}
}

func (m *MomentumDrift) Name() string { return m.name }

func (m *MomentumDrift) Observe(w *dw.DataWarehouse, t float64) {
	p := TotalMomentum(w)
	if !m.started {
		m.initial, m.started = p, true
	}
	m.maxDrift = math.Max(m.maxDrift, r2.Norm(r2.Sub(p, m.initial)))
}

func (m *MomentumDrift) Value() float64 { return m.maxDrift }

func (m *MomentumDrift) Reset() {
	m.initial = r2.Vec{}
	m.started = false
	m.maxDrift = 0
}
