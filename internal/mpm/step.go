package mpm

import (
	"errors"
	"fmt"

	"github.com/san-kum/mpm/internal/bc"
	"github.com/san-kum/mpm/internal/material"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/spatial/r2"
)

type StepStatus int

const (
	StepOK StepStatus = iota
	StepDegenerate
	StepFailed
)

func (s StepStatus) String() string {
	switch s {
	case StepOK:
		return "ok"
	case StepDegenerate:
		return "degenerate"
	case StepFailed:
		return "failed"
	}
	return fmt.Sprintf("StepStatus(%d)", int(s))
}

// StepResult reports the outcome of one time step. Time and Iteration
// describe the state the warehouse holds afterwards.
type StepResult struct {
	Status    StepStatus
	Time      float64
	Iteration int
	Err       error
}

// Step advances the simulation by one time increment. If any particle would
// invert, no particle position, velocity, deformation or stress is changed
// and the result carries a *DegeneracyError.
func (s *Simulation) Step() StepResult {
	iter, t := s.DW.Step(), s.Patch.T

	err := s.timeAdvance()
	if err == nil {
		return StepResult{Status: StepOK, Time: s.Patch.T, Iteration: s.DW.Step()}
	}

	var jerr *material.JacobianError
	if errors.As(err, &jerr) {
		derr := &DegeneracyError{Step: iter, Time: t, Material: jerr.Material, Particle: jerr.Particle, Jacobian: jerr.Jacobian}
		s.log.Error("negative jacobian", "step", iter, "t", t,
			"material", jerr.Material, "particle", jerr.Particle, "J", jerr.Jacobian)
		return StepResult{Status: StepDegenerate, Time: t, Iteration: iter, Err: derr}
	}
	return StepResult{Status: StepFailed, Time: t, Iteration: iter, Err: fmt.Errorf("%w: %w", ErrStepAbandoned, err)}
}

func (s *Simulation) timeAdvance() error {
	dt := s.Patch.Dt
	eps := s.Options.MassEpsilon

	s.DW.ZeroGrid()

	for _, m := range s.Materials {
		ps, ns := s.sets(m)
		s.updateContributions(ps)
		s.scatter(ps, ns)
		for i := range ns.Mass {
			v := nodeVelocity(ns.Mass[i], ns.Momentum[i], eps)
			ns.Velocity[i] = v
			ns.Velocity0[i] = v
			ns.Momentum[i] = r2.Add(ns.Momentum[i], r2.Scale(dt, r2.Add(ns.Fint[i], ns.Fext[i])))
		}
	}

	for _, c := range s.Contacts {
		st, err := c.Apply(s.DW, s.Patch)
		if err != nil {
			return err
		}
		if st.Corrected > 0 {
			s.log.Debug("contact", "pair", c.String(), "shared", st.Shared, "corrected", st.Corrected)
		}
	}

	for _, m := range s.Materials {
		_, ns := s.sets(m)
		for i := range ns.Mass {
			ns.Velocity[i] = nodeVelocity(ns.Mass[i], ns.Momentum[i], eps)
		}
	}
	if err := s.applyBCs(bc.FieldVelocity); err != nil {
		return err
	}
	for _, m := range s.Materials {
		_, ns := s.sets(m)
		for i := range ns.Mass {
			if ns.Mass[i] <= eps {
				ns.Momentum[i] = r2.Vec{}
				ns.Accel[i] = r2.Vec{}
				continue
			}
			ns.Momentum[i] = r2.Scale(ns.Mass[i], ns.Velocity[i])
			ns.Accel[i] = r2.Scale(1/dt, r2.Sub(ns.Velocity[i], ns.Velocity0[i]))
		}
	}
	if err := s.applyBCs(bc.FieldAcceleration); err != nil {
		return err
	}

	for _, m := range s.Materials {
		ps, ns := s.sets(m)
		st := s.staging(m.Index, ps.Len())
		s.gather(ps, ns, st)
	}

	for _, m := range s.Materials {
		ps, _ := s.sets(m)
		if err := m.CheckDeformation(ps, dt); err != nil {
			return err
		}
	}

	var g errgroup.Group
	for _, m := range s.Materials {
		m := m
		ps, _ := s.sets(m)
		st := s.stage[m.Index]
		copy(ps.X, st.x)
		copy(ps.V, st.v)
		g.Go(func() error {
			m.UpdateStress(ps, dt)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	s.Patch.Advance()
	s.DW.Advance()
	return nil
}

func nodeVelocity(mass float64, mom r2.Vec, eps float64) r2.Vec {
	if mass <= eps {
		return r2.Vec{}
	}
	return r2.Scale(1/mass, mom)
}

func (s *Simulation) applyBCs(field bc.Field) error {
	for _, b := range s.BCs {
		if b.Field != field {
			continue
		}
		if err := b.Apply(s.DW, s.Patch); err != nil {
			return err
		}
	}
	return nil
}

func (s *Simulation) staging(dwi, n int) *staged {
	st, ok := s.stage[dwi]
	if !ok || len(st.x) != n {
		st = &staged{x: make([]r2.Vec, n), v: make([]r2.Vec, n)}
		s.stage[dwi] = st
	}
	return st
}
