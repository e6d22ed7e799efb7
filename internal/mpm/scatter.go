package mpm

import (
	"github.com/san-kum/mpm/internal/dw"
	"github.com/san-kum/mpm/internal/shape"
	"gonum.org/v1/gonum/spatial/r2"
)

// scatterBuf is one worker's private copy of the accumulated node fields.
type scatterBuf struct {
	mass   []float64
	mom    []r2.Vec
	fext   []r2.Vec
	fint   []r2.Vec
	normal []r2.Vec
}

func newScatterBuf(n int) *scatterBuf {
	return &scatterBuf{
		mass:   make([]float64, n),
		mom:    make([]r2.Vec, n),
		fext:   make([]r2.Vec, n),
		fint:   make([]r2.Vec, n),
		normal: make([]r2.Vec, n),
	}
}

func (b *scatterBuf) zero() {
	clear(b.mass)
	clear(b.mom)
	clear(b.fext)
	clear(b.fint)
	clear(b.normal)
}

func (s *Simulation) buffers(nodes int) []*scatterBuf {
	for len(s.bufs) < s.Options.Workers {
		s.bufs = append(s.bufs, newScatterBuf(nodes))
	}
	return s.bufs
}

// updateContributions rebuilds the node indices, weights and weight
// gradients of every particle from its current position.
func (s *Simulation) updateContributions(ps *dw.ParticleSet) {
	k := s.Kernel
	span, off := k.Span(), k.Offset()
	p := s.Patch

	ParallelFor(ps.Len(), s.Options.Workers, s.Options.MinChunk, func(_, start, end int) {
		for q := start; q < end; q++ {
			ci, cj := p.CellIJ(ps.X[q])
			idx, w, g := ps.Contrib(q)
			c := 0
			for b := 0; b < span; b++ {
				for a := 0; a < span; a++ {
					node := p.Index(ci+off+a, cj+off+b)
					idx[c] = node
					w[c], g[c] = shape.Eval2(k, r2.Sub(ps.X[q], p.NodePos(node)), p.DX)
					c++
				}
			}
		}
	})
}

// scatter accumulates mass, momentum, external force, internal force and
// the mass gradient of one material onto its nodes. Workers fill private
// buffers which are summed in worker order.
func (s *Simulation) scatter(ps *dw.ParticleSet, ns *dw.NodeSet) {
	bufs := s.buffers(ns.Len())

	used := ParallelFor(ps.Len(), s.Options.Workers, s.Options.MinChunk, func(worker, start, end int) {
		b := bufs[worker]
		b.zero()
		for q := start; q < end; q++ {
			idx, w, g := ps.Contrib(q)
			m := ps.Mass[q]
			mom := r2.Scale(m, ps.V[q])
			fe := ps.Fe[q]
			sig := ps.Stress[q]
			vol := ps.Vol[q]
			for c, i := range idx {
				b.mass[i] += m * w[c]
				b.mom[i] = r2.Add(b.mom[i], r2.Scale(w[c], mom))
				b.fext[i] = r2.Add(b.fext[i], r2.Scale(w[c], fe))
				b.normal[i] = r2.Add(b.normal[i], r2.Scale(m, g[c]))
				b.fint[i] = r2.Sub(b.fint[i], r2.Scale(vol, sig.MulVec(g[c])))
			}
		}
	})

	for w := 0; w < used; w++ {
		b := bufs[w]
		for i := range ns.Mass {
			ns.Mass[i] += b.mass[i]
			ns.Momentum[i] = r2.Add(ns.Momentum[i], b.mom[i])
			ns.Fext[i] = r2.Add(ns.Fext[i], b.fext[i])
			ns.Fint[i] = r2.Add(ns.Fint[i], b.fint[i])
			ns.Normal[i] = r2.Add(ns.Normal[i], b.normal[i])
		}
	}
}

// gather interpolates node velocity and acceleration back to the particles.
// It writes the velocity gradient into ps.L and stages the new positions and
// velocities without touching ps.X or ps.V.
func (s *Simulation) gather(ps *dw.ParticleSet, ns *dw.NodeSet, st *staged) {
	dt := s.Patch.Dt
	flip := s.Options.FLIP

	ParallelFor(ps.Len(), s.Options.Workers, s.Options.MinChunk, func(_, start, end int) {
		for q := start; q < end; q++ {
			idx, w, g := ps.Contrib(q)
			var vI, aI r2.Vec
			var l dw.Tensor
			for c, i := range idx {
				vI = r2.Add(vI, r2.Scale(w[c], ns.Velocity[i]))
				aI = r2.Add(aI, r2.Scale(w[c], ns.Accel[i]))
				l = l.Add(dw.Outer(ns.Velocity[i], g[c]))
			}
			ps.L[q] = l
			vFlip := r2.Add(ps.V[q], r2.Scale(dt, aI))
			st.v[q] = r2.Add(r2.Scale(flip, vFlip), r2.Scale(1-flip, vI))
			st.x[q] = r2.Add(ps.X[q], r2.Scale(dt, vI))
		}
	})
}
