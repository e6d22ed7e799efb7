package mpm_test

import (
	"context"
	"errors"

	"github.com/san-kum/mpm/internal/dw"
	"github.com/san-kum/mpm/internal/mpm"
	"gonum.org/v1/gonum/spatial/r2"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type countingMetric struct{ n int }

func (c *countingMetric) Name() string                       { return "count" }
func (c *countingMetric) Observe(*dw.DataWarehouse, float64) { c.n++ }
func (c *countingMetric) Value() float64                     { return float64(c.n) }
func (c *countingMetric) Reset()                             { c.n = 0 }

type timesMetric struct{ times []float64 }

func (m *timesMetric) Name() string                           { return "times" }
func (m *timesMetric) Observe(_ *dw.DataWarehouse, t float64) { m.times = append(m.times, t) }
func (m *timesMetric) Value() float64                         { return float64(len(m.times)) }
func (m *timesMetric) Reset()                                 { m.times = nil }

type timeObserver struct{ times []float64 }

func (o *timeObserver) OnStep(_ *dw.DataWarehouse, t float64) { o.times = append(o.times, t) }

var _ = Describe("Run", func() {
	var sink *recordingSink

	BeforeEach(func() {
		sink = &recordingSink{}
	})

	It("runs to the final time and checkpoints on the output interval", func() {
		s := build(world{dt: 0.1, tf: 1, interval: 0.5, bodies: []body{{x: []r2.Vec{{X: 1, Y: 1}}}}})
		metric := &countingMetric{}
		obs := &timeObserver{}
		s.AddMetric(metric)
		s.AddObserver(obs)

		res, err := s.Run(context.Background(), sink)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Reason).To(Equal(mpm.StopFinalTime))
		Expect(res.Steps).To(Equal(10))
		Expect(res.Time).To(BeNumerically("~", 1, 1e-9))
		Expect(res.Checkpoints).To(Equal(3))
		Expect(sink.times).To(HaveLen(3))
		Expect(sink.times[0]).To(Equal(0.0))
		Expect(sink.times[1]).To(BeNumerically("~", 0.5, 1e-9))
		Expect(sink.times[2]).To(BeNumerically("~", 1, 1e-9))
		Expect(obs.times).To(HaveLen(10))
		Expect(res.Metrics).To(HaveKeyWithValue("count", 11.0))
	})

	It("stops when a particle leaves the domain", func() {
		s := build(world{dt: 0.05, bodies: []body{{x: []r2.Vec{{X: 1.9, Y: 1}}, v: []r2.Vec{{X: 10}}}}})
		res, err := s.Run(context.Background(), sink)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Reason).To(Equal(mpm.StopDomainExit))
		Expect(res.Steps).To(Equal(1))
		Expect(res.Checkpoints).To(Equal(2))
		last, _ := sink.snaps[1].Particles(0)
		Expect(last.X[0].X).To(BeNumerically(">", 2))
	})

	It("persists the last valid state when a particle inverts", func() {
		s := build(world{
			dt: 0.1,
			bodies: []body{{
				x: []r2.Vec{{X: 0.5, Y: 1}, {X: 1.5, Y: 1}},
				v: []r2.Vec{{X: 100}, {X: -100}},
			}},
		})
		res, err := s.Run(context.Background(), sink)
		Expect(errors.Is(err, mpm.ErrGeometryDegeneracy)).To(BeTrue())
		Expect(res.Reason).To(Equal(mpm.StopDegenerate))
		Expect(res.Steps).To(Equal(0))
		Expect(res.Time).To(Equal(0.0))
		Expect(sink.snaps).To(HaveLen(1))

		saved, _ := sink.snaps[0].Particles(0)
		Expect(saved.X).To(Equal([]r2.Vec{{X: 0.5, Y: 1}, {X: 1.5, Y: 1}}))
		Expect(saved.V).To(Equal([]r2.Vec{{X: 100}, {X: -100}}))
	})

	It("observes a state only once when a step fails", func() {
		s := build(world{
			dt: 0.1,
			bodies: []body{{
				x: []r2.Vec{{X: 0.5, Y: 1}, {X: 1.5, Y: 1}},
				v: []r2.Vec{{X: 100}, {X: -100}},
			}},
		})
		metric := &timesMetric{}
		s.AddMetric(metric)

		res, err := s.Run(context.Background(), nil)
		Expect(errors.Is(err, mpm.ErrGeometryDegeneracy)).To(BeTrue())
		Expect(metric.times).To(Equal([]float64{0}))
		Expect(res.Metrics).To(HaveKeyWithValue("times", 1.0))
	})

	It("observes the final state once after a domain exit", func() {
		s := build(world{dt: 0.05, bodies: []body{{x: []r2.Vec{{X: 1.9, Y: 1}}, v: []r2.Vec{{X: 10}}}}})
		metric := &timesMetric{}
		s.AddMetric(metric)

		res, err := s.Run(context.Background(), nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Reason).To(Equal(mpm.StopDomainExit))
		Expect(metric.times).To(HaveLen(2))
		Expect(metric.times[0]).To(Equal(0.0))
		Expect(metric.times[1]).To(BeNumerically("~", 0.05, 1e-12))
	})

	It("honours context cancellation between steps", func() {
		s := build(world{dt: 0.1, bodies: []body{{x: []r2.Vec{{X: 1, Y: 1}}}}})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		res, err := s.Run(ctx, nil)
		Expect(errors.Is(err, context.Canceled)).To(BeTrue())
		Expect(res.Reason).To(Equal(mpm.StopCanceled))
		Expect(res.Steps).To(Equal(0))
	})

	It("keeps checkpoints independent of the running state", func() {
		s := build(world{dt: 0.1, tf: 0.5, bodies: []body{{x: []r2.Vec{{X: 1, Y: 1}}, g: r2.Vec{Y: -1}}}})
		_, err := s.Run(context.Background(), sink)
		Expect(err).NotTo(HaveOccurred())
		first, _ := sink.snaps[0].Particles(0)
		Expect(first.X[0]).To(Equal(r2.Vec{X: 1, Y: 1}))
		Expect(first.V[0]).To(Equal(r2.Vec{}))
		Expect(particles(s, 0).V[0].Y).To(BeNumerically("<", 0))
	})
})
