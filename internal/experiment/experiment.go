package experiment

import (
	"context"
	"fmt"

	"github.com/san-kum/mpm/internal/bc"
	"github.com/san-kum/mpm/internal/config"
	"github.com/san-kum/mpm/internal/contact"
	"github.com/san-kum/mpm/internal/dw"
	"github.com/san-kum/mpm/internal/geom"
	"github.com/san-kum/mpm/internal/material"
	"github.com/san-kum/mpm/internal/metrics"
	"github.com/san-kum/mpm/internal/mpm"
	"github.com/san-kum/mpm/internal/patch"
	"github.com/san-kum/mpm/internal/shape"
	"github.com/san-kum/mpm/internal/storage"
	"gonum.org/v1/gonum/spatial/r2"
)

// Experiment is a scenario built into a ready-to-run simulation.
type Experiment struct {
	Scenario *config.Scenario
	Sim      *mpm.Simulation
	Metrics  []mpm.Metric
	// Track follows the particle nearest the scenario's track point; nil
	// when the scenario tracks nothing.
	Track *metrics.Displacement
}

// Outcome is what Run reports back.
type Outcome struct {
	RunID  string
	Result *mpm.Result
}

func vec(a [2]float64) r2.Vec { return r2.Vec{X: a[0], Y: a[1]} }

// Build builds s with the default registry.
func Build(s *config.Scenario, opts mpm.Options) (*Experiment, error) {
	return NewRegistry().Build(s, opts)
}

// Build validates s, seeds every material with particles from its level set
// and assembles the simulation. The scenario's FLIP fraction overrides
// opts.FLIP.
func (r *Registry) Build(s *config.Scenario, opts mpm.Options) (*Experiment, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	dt, err := s.TimeStep()
	if err != nil {
		return nil, err
	}
	d := s.Domain
	p, err := patch.New(vec(d.X0), vec(d.X1), d.Cells, d.Ghost, s.T0, s.Tf, dt, d.Thick, d.PPC)
	if err != nil {
		return nil, err
	}
	k, err := r.GetKernel(s.Kernel, d.PPC)
	if err != nil {
		return nil, err
	}

	w := dw.New(s.OutputInterval)
	mats := make([]*material.Material, len(s.Materials))
	for i, mc := range s.Materials {
		if err := w.CreateGrid(i, p); err != nil {
			return nil, err
		}
		ls, err := mc.Shape.LevelSet()
		if err != nil {
			return nil, fmt.Errorf("%w: material %q: %w", config.ErrInvalidScenario, mc.Name, err)
		}
		xs, vols := geom.Fill(ls, p)
		if len(xs) == 0 {
			return nil, fmt.Errorf("%w: material %q has no particles inside the domain",
				config.ErrInvalidScenario, mc.Name)
		}
		if _, err := w.AddParticles(i, xs, vols, mc.Props.Density, shape.Support(k)); err != nil {
			return nil, err
		}
		ps, _ := w.Particles(i)
		for j := range ps.V {
			ps.V[j] = vec(mc.Velocity)
		}

		model, err := r.GetModel(mc.Model)
		if err != nil {
			return nil, err
		}
		m, err := material.New(i, mc.Name, mc.Props, model)
		if err != nil {
			return nil, err
		}
		m.SetExternalAcceleration(ps, vec(mc.Gravity))
		if mc.Normal == "levelset" {
			m.Normal = ls.Normal
		}
		mats[i] = m
	}

	var contacts []*contact.Friction
	for _, cc := range s.Contacts {
		a, _ := s.MaterialIndex(cc.A)
		b, _ := s.MaterialIndex(cc.B)
		policy, err := contact.ParsePolicy(cc.Policy)
		if err != nil {
			return nil, err
		}
		contacts = append(contacts, &contact.Friction{
			A:       a,
			B:       b,
			Mu:      cc.Mu,
			Policy:  policy,
			NormalA: mats[a].Normal,
			NormalB: mats[b].Normal,
		})
	}

	var bcs []*bc.BoundaryCondition
	for _, bcfg := range s.Boundaries {
		axis, err := bc.ParseAxis(bcfg.Axis)
		if err != nil {
			return nil, err
		}
		field, err := bc.ParseField(bcfg.Field)
		if err != nil {
			return nil, err
		}
		side, err := bc.ParseSide(bcfg.Side)
		if err != nil {
			return nil, err
		}
		var on []int
		if len(bcfg.Materials) == 0 {
			on = w.Indices()
		}
		for _, name := range bcfg.Materials {
			idx, _ := s.MaterialIndex(name)
			on = append(on, idx)
		}
		bcs = append(bcs, &bc.BoundaryCondition{
			Axis:      axis,
			Threshold: bcfg.Threshold,
			Side:      side,
			Field:     field,
			Materials: on,
			Value:     bc.Constant(vec(bcfg.Value)),
		})
	}

	opts.FLIP = s.FLIP
	sim, err := mpm.New(p, w, k, mats, contacts, bcs, opts)
	if err != nil {
		return nil, err
	}

	e := &Experiment{Scenario: s, Sim: sim, Metrics: r.DefaultMetrics()}
	if s.Track != nil {
		idx, _ := s.MaterialIndex(s.Track.Material)
		ps, _ := w.Particles(idx)
		e.Track = metrics.NewDisplacement(idx, geom.Nearest(ps.X, vec(s.Track.Point)))
		e.Metrics = append(e.Metrics, e.Track)
	}
	for _, m := range e.Metrics {
		sim.AddMetric(m)
	}
	return e, nil
}

// Run runs the simulation to completion. With a store every checkpoint is
// written to a new run directory, finished with metadata even when the run
// stops early. A nil store runs without output.
func (e *Experiment) Run(ctx context.Context, store *storage.Store) (*Outcome, error) {
	if store == nil {
		res, err := e.Sim.Run(ctx, nil)
		return &Outcome{Result: res}, err
	}

	run, err := store.Create(e.Scenario.Name)
	if err != nil {
		return nil, err
	}
	res, runErr := e.Sim.Run(ctx, run)
	out := &Outcome{RunID: run.ID, Result: res}

	if e.Track != nil {
		if err := run.WriteTrace(e.Track.Name(), e.Track.Times, e.Track.Values); err != nil && runErr == nil {
			runErr = err
		}
	}
	if err := run.Finish(e.metadata(res, runErr)); err != nil && runErr == nil {
		runErr = err
	}
	return out, runErr
}

func (e *Experiment) metadata(res *mpm.Result, runErr error) storage.RunMetadata {
	names := make([]string, len(e.Sim.Materials))
	for i, m := range e.Sim.Materials {
		names[i] = m.Name
	}
	meta := storage.RunMetadata{
		Scenario:  e.Scenario.Name,
		Dt:        e.Sim.Patch.Dt,
		FinalTime: e.Sim.Patch.Tf,
		Kernel:    e.Sim.Kernel.Name(),
		Materials: names,
	}
	if res != nil {
		meta.Reason = res.Reason.String()
		meta.Steps = res.Steps
		meta.Time = res.Time
		meta.Checkpoints = res.Checkpoints
		meta.Metrics = res.Metrics
	}
	if runErr != nil {
		meta.Error = runErr.Error()
	}
	return meta
}
