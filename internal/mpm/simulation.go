// Package mpm is the explicit material point method engine: the time-advance
// kernel and the stepping loop around it.
package mpm

import (
	"fmt"
	"io"
	"log/slog"
	"runtime"

	"github.com/san-kum/mpm/internal/bc"
	"github.com/san-kum/mpm/internal/contact"
	"github.com/san-kum/mpm/internal/dw"
	"github.com/san-kum/mpm/internal/material"
	"github.com/san-kum/mpm/internal/patch"
	"github.com/san-kum/mpm/internal/shape"
	"gonum.org/v1/gonum/spatial/r2"
)

type Options struct {
	// Workers bounds the goroutines used by particle loops.
	Workers int
	// MinChunk is the smallest particle range handed to one worker.
	MinChunk int
	// FLIP blends the particle velocity update: 1 is pure FLIP, 0 pure PIC.
	FLIP float64
	// MassEpsilon is the node mass below which a node counts as empty.
	MassEpsilon float64
	Logger      *slog.Logger
}

func DefaultOptions() Options {
	return Options{
		Workers:     runtime.NumCPU(),
		MinChunk:    256,
		FLIP:        1,
		MassEpsilon: 1e-14,
	}
}

// Simulation is everything one run needs. Nothing is shared between
// simulations.
type Simulation struct {
	Patch     *patch.Patch
	DW        *dw.DataWarehouse
	Kernel    shape.Kernel
	Materials []*material.Material
	Contacts  []*contact.Friction
	BCs       []*bc.BoundaryCondition
	Options   Options

	log       *slog.Logger
	metrics   []Metric
	observers []Observer

	bufs  []*scatterBuf
	stage map[int]*staged
}

type staged struct {
	x, v []r2.Vec
}

func New(p *patch.Patch, w *dw.DataWarehouse, k shape.Kernel, mats []*material.Material,
	contacts []*contact.Friction, bcs []*bc.BoundaryCondition, opts Options) (*Simulation, error) {
	if p == nil || w == nil || k == nil {
		return nil, fmt.Errorf("%w: patch, warehouse and kernel are required", ErrInvalidConfig)
	}
	if len(mats) == 0 {
		return nil, fmt.Errorf("%w: no materials", ErrInvalidConfig)
	}
	if p.NGhost < k.Ghost() {
		return nil, fmt.Errorf("%w: kernel %s needs %d ghost layers, patch has %d",
			ErrInvalidConfig, k.Name(), k.Ghost(), p.NGhost)
	}

	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.MinChunk < 1 {
		opts.MinChunk = DefaultOptions().MinChunk
	}
	if opts.FLIP < 0 || opts.FLIP > 1 {
		return nil, fmt.Errorf("%w: FLIP fraction %g outside [0, 1]", ErrInvalidConfig, opts.FLIP)
	}
	if opts.MassEpsilon < 0 {
		return nil, fmt.Errorf("%w: negative mass epsilon", ErrInvalidConfig)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	s := &Simulation{
		Patch:     p,
		DW:        w,
		Kernel:    k,
		Materials: mats,
		Contacts:  contacts,
		BCs:       bcs,
		Options:   opts,
		log:       logger,
		stage:     make(map[int]*staged),
	}

	seen := make(map[int]bool)
	for _, m := range mats {
		if seen[m.Index] {
			return nil, fmt.Errorf("%w: material index %d used twice", ErrInvalidConfig, m.Index)
		}
		seen[m.Index] = true
		ps, err := w.Particles(m.Index)
		if err != nil {
			return nil, fmt.Errorf("%w: material %q: %w", ErrInvalidConfig, m.Name, err)
		}
		if ps.Len() > 0 && ps.Support != shape.Support(k) {
			return nil, fmt.Errorf("%w: material %q has support %d, kernel %s needs %d",
				ErrInvalidConfig, m.Name, ps.Support, k.Name(), shape.Support(k))
		}
		if !p.AllInPatch(ps.X) {
			return nil, fmt.Errorf("%w: material %q has particles outside the domain", ErrInvalidConfig, m.Name)
		}
	}
	for _, c := range contacts {
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
		if !seen[c.A] || !seen[c.B] {
			return nil, fmt.Errorf("%w: contact %v names an unknown material", ErrInvalidConfig, c)
		}
		if c.MassEpsilon == 0 {
			c.MassEpsilon = opts.MassEpsilon
		}
	}
	for _, b := range bcs {
		for _, m := range b.Materials {
			if !seen[m] {
				return nil, fmt.Errorf("%w: boundary %v names unknown material %d", ErrInvalidConfig, b, m)
			}
		}
	}
	return s, nil
}

func (s *Simulation) AddMetric(m Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulation) AddObserver(o Observer) { s.observers = append(s.observers, o) }

// sets returns the particle and node sets of a material. New has checked
// that both exist.
func (s *Simulation) sets(m *material.Material) (*dw.ParticleSet, *dw.NodeSet) {
	ps, _ := s.DW.Particles(m.Index)
	ns, _ := s.DW.Nodes(m.Index)
	return ps, ns
}

// InDomain reports whether every particle lies inside the physical domain.
func (s *Simulation) InDomain() bool {
	for _, m := range s.Materials {
		ps, _ := s.sets(m)
		if !s.Patch.AllInPatch(ps.X) {
			return false
		}
	}
	return true
}
