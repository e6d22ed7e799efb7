package mpm_test

import (
	"github.com/san-kum/mpm/internal/bc"
	"github.com/san-kum/mpm/internal/contact"
	"github.com/san-kum/mpm/internal/dw"
	"github.com/san-kum/mpm/internal/material"
	"github.com/san-kum/mpm/internal/mpm"
	"github.com/san-kum/mpm/internal/patch"
	"github.com/san-kum/mpm/internal/shape"
	"gonum.org/v1/gonum/spatial/r2"

	. "github.com/onsi/gomega"
)

var soft = material.Props{Modulus: 100, Poisson: 0.3, Density: 1}

type body struct {
	x     []r2.Vec
	v     []r2.Vec
	vol   float64
	model material.Model
	g     r2.Vec
}

type world struct {
	kernel   shape.Kernel
	cells    int
	dt, tf   float64
	interval float64
	bodies   []body
	contacts []*contact.Friction
	bcs      []*bc.BoundaryCondition
	opts     mpm.Options
}

// build assembles a simulation on [0, cells]² with unit spacing.
func build(w world) *mpm.Simulation {
	if w.kernel == nil {
		w.kernel = shape.Linear{}
	}
	if w.cells == 0 {
		w.cells = 2
	}
	if w.tf == 0 {
		w.tf = 1
	}
	if w.opts == (mpm.Options{}) {
		w.opts = mpm.DefaultOptions()
	}
	p, err := patch.New(r2.Vec{}, r2.Vec{X: float64(w.cells), Y: float64(w.cells)},
		[2]int{w.cells, w.cells}, w.kernel.Ghost(), 0, w.tf, w.dt, 1, 4)
	Expect(err).NotTo(HaveOccurred())

	wh := dw.New(w.interval)
	var mats []*material.Material
	for i, b := range w.bodies {
		Expect(wh.CreateGrid(i, p)).To(Succeed())
		vol := make([]float64, len(b.x))
		for k := range vol {
			vol[k] = b.vol
			if vol[k] == 0 {
				vol[k] = 1
			}
		}
		_, err := wh.AddParticles(i, b.x, vol, soft.Density, shape.Support(w.kernel))
		Expect(err).NotTo(HaveOccurred())
		ps, _ := wh.Particles(i)
		copy(ps.V, b.v)

		model := b.model
		if model == nil {
			model = material.LinearElastic{}
		}
		m, err := material.New(i, "body", soft, model)
		Expect(err).NotTo(HaveOccurred())
		m.SetExternalAcceleration(ps, b.g)
		mats = append(mats, m)
	}

	s, err := mpm.New(p, wh, w.kernel, mats, w.contacts, w.bcs, w.opts)
	Expect(err).NotTo(HaveOccurred())
	return s
}

func particles(s *mpm.Simulation, dwi int) *dw.ParticleSet {
	ps, err := s.DW.Particles(dwi)
	Expect(err).NotTo(HaveOccurred())
	return ps
}

func nodes(s *mpm.Simulation, dwi int) *dw.NodeSet {
	ns, err := s.DW.Nodes(dwi)
	Expect(err).NotTo(HaveOccurred())
	return ns
}

func totalMomentum(s *mpm.Simulation) r2.Vec {
	var p r2.Vec
	for _, dwi := range s.DW.Indices() {
		ps := particles(s, dwi)
		for q := range ps.V {
			p = r2.Add(p, r2.Scale(ps.Mass[q], ps.V[q]))
		}
	}
	return p
}

type recordingSink struct {
	snaps []*dw.DataWarehouse
	times []float64
}

func (r *recordingSink) Checkpoint(snap *dw.DataWarehouse, t float64) error {
	r.snaps = append(r.snaps, snap)
	r.times = append(r.times, t)
	return nil
}
