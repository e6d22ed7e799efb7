package mpm_test

import (
	"errors"
	"math/rand"

	"github.com/san-kum/mpm/internal/bc"
	"github.com/san-kum/mpm/internal/contact"
	"github.com/san-kum/mpm/internal/dw"
	"github.com/san-kum/mpm/internal/material"
	"github.com/san-kum/mpm/internal/mpm"
	"github.com/san-kum/mpm/internal/shape"
	"gonum.org/v1/gonum/spatial/r2"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Step", func() {
	Context("with a single particle at rest in a cell centre", func() {
		var s *mpm.Simulation

		BeforeEach(func() {
			s = build(world{dt: 1e-3, bodies: []body{{x: []r2.Vec{{X: 0.5, Y: 0.5}}}}})
		})

		It("splits the mass evenly over the four cell nodes", func() {
			r := s.Step()
			Expect(r.Status).To(Equal(mpm.StepOK))
			ns := nodes(s, 0)
			for _, ij := range [][2]int{{1, 1}, {2, 1}, {1, 2}, {2, 2}} {
				Expect(ns.Mass[s.Patch.Index(ij[0], ij[1])]).To(BeNumerically("~", 0.25, 1e-15))
			}
			total := 0.0
			for _, m := range ns.Mass {
				total += m
			}
			Expect(total).To(BeNumerically("~", 1, 1e-15))
		})

		It("keeps the particle in place with an undeformed jacobian", func() {
			for i := 0; i < 5; i++ {
				Expect(s.Step().Status).To(Equal(mpm.StepOK))
			}
			ps := particles(s, 0)
			Expect(ps.X[0]).To(Equal(r2.Vec{X: 0.5, Y: 0.5}))
			Expect(ps.F[0].Det()).To(BeNumerically("~", 1, 1e-15))
			Expect(s.DW.Step()).To(Equal(5))
			Expect(s.Patch.T).To(BeNumerically("~", 5e-3, 1e-15))
		})
	})

	It("accelerates a free particle by gravity", func() {
		g := r2.Vec{Y: -9.8}
		s := build(world{dt: 1e-2, bodies: []body{{x: []r2.Vec{{X: 0.7, Y: 1.2}}, g: g}}})
		Expect(s.Step().Status).To(Equal(mpm.StepOK))
		ps := particles(s, 0)
		Expect(ps.V[0].Y).To(BeNumerically("~", -9.8e-2, 1e-12))
		Expect(ps.V[0].X).To(BeNumerically("~", 0, 1e-15))
	})

	It("holds a particle against a fixed velocity plane", func() {
		floor := &bc.BoundaryCondition{Axis: bc.Y, Threshold: 0, Field: bc.FieldVelocity, Materials: []int{0}, Value: bc.Zero}
		top := &bc.BoundaryCondition{Axis: bc.Y, Threshold: 1, Field: bc.FieldVelocity, Materials: []int{0}, Value: bc.Zero}
		s := build(world{dt: 1e-2, bcs: []*bc.BoundaryCondition{floor, top},
			bodies: []body{{x: []r2.Vec{{X: 0.5, Y: 0.5}}, v: []r2.Vec{{Y: -1}}}}})
		Expect(s.Step().Status).To(Equal(mpm.StepOK))
		ns := nodes(s, 0)
		for _, i := range floor.Nodes(s.Patch) {
			Expect(ns.Velocity[i]).To(Equal(r2.Vec{}))
			Expect(ns.Momentum[i]).To(Equal(r2.Vec{}))
		}
		Expect(particles(s, 0).X[0]).To(Equal(r2.Vec{X: 0.5, Y: 0.5}))
	})

	Describe("conservation", func() {
		var s *mpm.Simulation

		BeforeEach(func() {
			rng := rand.New(rand.NewSource(11))
			randomBody := func(lo, hi float64, drift float64) body {
				var b body
				for i := 0; i < 40; i++ {
					b.x = append(b.x, r2.Vec{X: lo + (hi-lo)*rng.Float64(), Y: 1 + 2*rng.Float64()})
					b.v = append(b.v, r2.Vec{X: drift + 0.05*rng.NormFloat64(), Y: 0.05 * rng.NormFloat64()})
				}
				b.vol = 0.1
				return b
			}
			s = build(world{
				kernel: shape.NewGIMP(4),
				cells:  4,
				dt:     1e-3,
				bodies: []body{randomBody(0.8, 2, 0.2), randomBody(2, 3.2, -0.2)},
				contacts: []*contact.Friction{
					{A: 0, B: 1, Mu: 0.4, Policy: contact.Averaged},
				},
				opts: mpm.Options{Workers: 3, MinChunk: 8, FLIP: 0.9},
			})
		})

		It("projects exactly the particle mass onto the grid", func() {
			for i := 0; i < 3; i++ {
				Expect(s.Step().Status).To(Equal(mpm.StepOK))
				for _, dwi := range s.DW.Indices() {
					ps, ns := particles(s, dwi), nodes(s, dwi)
					pm, nm := 0.0, 0.0
					for _, m := range ps.Mass {
						pm += m
					}
					for _, m := range ns.Mass {
						nm += m
					}
					Expect(nm).To(BeNumerically("~", pm, 1e-12*pm))
				}
			}
		})

		It("conserves total momentum without external forces", func() {
			before := totalMomentum(s)
			for i := 0; i < 10; i++ {
				Expect(s.Step().Status).To(Equal(mpm.StepOK))
				after := totalMomentum(s)
				Expect(after.X).To(BeNumerically("~", before.X, 1e-10))
				Expect(after.Y).To(BeNumerically("~", before.Y, 1e-10))
			}
		})
	})

	Describe("head-on contact without friction", func() {
		for _, policy := range []contact.NormalPolicy{contact.OneSided, contact.Averaged} {
			policy := policy
			It("brings both bodies to rest at the shared node using "+policy.String()+" normals", func() {
				s := build(world{
					dt: 1e-3,
					bodies: []body{
						{x: []r2.Vec{{X: 0.5, Y: 1}}, v: []r2.Vec{{X: 1}}},
						{x: []r2.Vec{{X: 1.5, Y: 1}}, v: []r2.Vec{{X: -1}}},
					},
					contacts: []*contact.Friction{{A: 0, B: 1, Mu: 0, Policy: policy}},
				})
				Expect(s.Step().Status).To(Equal(mpm.StepOK))

				shared := s.Patch.Index(2, 2)
				na, nb := nodes(s, 0), nodes(s, 1)
				Expect(na.Velocity[shared].X).To(BeNumerically("~", 0, 1e-12))
				Expect(nb.Velocity[shared].X).To(BeNumerically("~", 0, 1e-12))
				Expect(na.Velocity[shared]).To(Equal(nb.Velocity[shared]))

				Expect(particles(s, 0).V[0].X).To(BeNumerically("~", 0.5, 1e-12))
				Expect(particles(s, 1).V[0].X).To(BeNumerically("~", -0.5, 1e-12))
			})
		}
	})

	Describe("degeneracy", func() {
		var s *mpm.Simulation

		BeforeEach(func() {
			s = build(world{
				dt: 0.1,
				bodies: []body{{
					x: []r2.Vec{{X: 0.5, Y: 1}, {X: 1.5, Y: 1}},
					v: []r2.Vec{{X: 100}, {X: -100}},
				}},
			})
		})

		It("abandons the step without touching particle state", func() {
			ps := particles(s, 0)
			x := append([]r2.Vec(nil), ps.X...)
			v := append([]r2.Vec(nil), ps.V...)
			f := append([]dw.Tensor(nil), ps.F...)
			vol := append([]float64(nil), ps.Vol...)

			r := s.Step()
			Expect(r.Status).To(Equal(mpm.StepDegenerate))
			Expect(errors.Is(r.Err, mpm.ErrGeometryDegeneracy)).To(BeTrue())

			var derr *mpm.DegeneracyError
			Expect(errors.As(r.Err, &derr)).To(BeTrue())
			Expect(derr.Material).To(Equal(0))
			Expect(derr.Particle).To(Equal(0))
			Expect(derr.Jacobian).To(BeNumerically("<=", 0))
			Expect(derr.Step).To(Equal(0))

			Expect(ps.X).To(Equal(x))
			Expect(ps.V).To(Equal(v))
			Expect(ps.F).To(Equal(f))
			Expect(ps.Vol).To(Equal(vol))
			Expect(s.Patch.T).To(Equal(0.0))
			Expect(s.DW.Step()).To(Equal(0))
		})
	})

	It("is reproducible for a fixed worker count", func() {
		run := func() []r2.Vec {
			rng := rand.New(rand.NewSource(5))
			var b body
			for i := 0; i < 60; i++ {
				b.x = append(b.x, r2.Vec{X: 1 + 2*rng.Float64(), Y: 1 + 2*rng.Float64()})
				b.v = append(b.v, r2.Vec{X: 0.1 * rng.NormFloat64(), Y: 0.1 * rng.NormFloat64()})
			}
			b.vol = 0.05
			s := build(world{kernel: shape.NewGIMP(4), cells: 4, dt: 1e-3, bodies: []body{b},
				opts: mpm.Options{Workers: 4, MinChunk: 4, FLIP: 1}})
			for i := 0; i < 5; i++ {
				Expect(s.Step().Status).To(Equal(mpm.StepOK))
			}
			return append([]r2.Vec(nil), particles(s, 0).X...)
		}
		Expect(run()).To(Equal(run()))
	})
})

var _ = Describe("New", func() {
	It("rejects a patch with too few ghost layers for the kernel", func() {
		s := build(world{dt: 1e-3, bodies: []body{{x: []r2.Vec{{X: 1, Y: 1}}}}})
		_, err := mpm.New(s.Patch, s.DW, shape.NewGIMP(4), s.Materials, nil, nil, mpm.DefaultOptions())
		Expect(errors.Is(err, mpm.ErrInvalidConfig)).To(BeTrue())
	})

	It("rejects contacts on unknown materials", func() {
		s := build(world{dt: 1e-3, bodies: []body{{x: []r2.Vec{{X: 1, Y: 1}}}}})
		_, err := mpm.New(s.Patch, s.DW, s.Kernel, s.Materials,
			[]*contact.Friction{{A: 0, B: 4}}, nil, mpm.DefaultOptions())
		Expect(errors.Is(err, mpm.ErrInvalidConfig)).To(BeTrue())
	})

	It("rejects an out of range FLIP fraction", func() {
		s := build(world{dt: 1e-3, bodies: []body{{x: []r2.Vec{{X: 1, Y: 1}}}}})
		opts := mpm.DefaultOptions()
		opts.FLIP = 1.5
		_, err := mpm.New(s.Patch, s.DW, s.Kernel, s.Materials, nil, nil, opts)
		Expect(errors.Is(err, mpm.ErrInvalidConfig)).To(BeTrue())
	})

	It("rejects a stress-free body placed outside the domain", func() {
		s := build(world{dt: 1e-3, bodies: []body{{x: []r2.Vec{{X: 1, Y: 1}}, model: material.StressFree{}}}})
		ps := particles(s, 0)
		ps.X[0] = r2.Vec{X: 5, Y: 1}
		_, err := mpm.New(s.Patch, s.DW, s.Kernel, s.Materials, nil, nil, mpm.DefaultOptions())
		Expect(errors.Is(err, mpm.ErrInvalidConfig)).To(BeTrue())
	})
})
