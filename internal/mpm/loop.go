package mpm

import (
	"context"
	"fmt"

	"github.com/san-kum/mpm/internal/dw"
)

// Sink persists checkpoints. The warehouse it receives is a private deep
// copy and may be retained.
type Sink interface {
	Checkpoint(snap *dw.DataWarehouse, t float64) error
}

type Metric interface {
	Name() string
	Observe(w *dw.DataWarehouse, t float64)
	Value() float64
	Reset()
}

type Observer interface {
	OnStep(w *dw.DataWarehouse, t float64)
}

type StopReason int

const (
	StopFinalTime StopReason = iota
	StopDomainExit
	StopDegenerate
	StopCanceled
	StopFailed
)

func (r StopReason) String() string {
	switch r {
	case StopFinalTime:
		return "final time reached"
	case StopDomainExit:
		return "particle left the domain"
	case StopDegenerate:
		return "negative jacobian"
	case StopCanceled:
		return "canceled"
	case StopFailed:
		return "step failed"
	}
	return fmt.Sprintf("StopReason(%d)", int(r))
}

type Result struct {
	Reason      StopReason
	Steps       int
	Time        float64
	Checkpoints int
	Metrics     map[string]float64
}

// Run steps until the final time, a particle leaves the domain, a step
// fails or ctx is canceled. The first and the last state are always
// checkpointed; in between the warehouse's output interval decides. A nil
// sink disables checkpoints.
func (s *Simulation) Run(ctx context.Context, sink Sink) (*Result, error) {
	for _, m := range s.metrics {
		m.Reset()
	}
	res := &Result{Metrics: make(map[string]float64)}

	lastSaved, observed := -1, -1
	observe := func() {
		for _, m := range s.metrics {
			m.Observe(s.DW, s.Patch.T)
		}
		observed = s.DW.Step()
	}
	save := func() error {
		if sink == nil || lastSaved == s.DW.Step() {
			return nil
		}
		if err := sink.Checkpoint(s.DW.Snapshot(), s.Patch.T); err != nil {
			return fmt.Errorf("checkpoint at t=%g: %w", s.Patch.T, err)
		}
		lastSaved = s.DW.Step()
		res.Checkpoints++
		s.log.Info("checkpoint", "step", lastSaved, "t", s.Patch.T)
		return nil
	}
	finish := func(reason StopReason, cause error) (*Result, error) {
		// a failed step leaves the observed state in place
		if observed != s.DW.Step() {
			observe()
		}
		for _, m := range s.metrics {
			res.Metrics[m.Name()] = m.Value()
		}
		res.Reason = reason
		res.Steps = s.DW.Step()
		res.Time = s.Patch.T
		if err := save(); err != nil && cause == nil {
			cause = err
		}
		s.log.Info("run stopped", "reason", reason.String(), "steps", res.Steps, "t", res.Time)
		return res, cause
	}

	if err := save(); err != nil {
		return res, err
	}

	for !s.Patch.Done() {
		select {
		case <-ctx.Done():
			return finish(StopCanceled, ctx.Err())
		default:
		}

		if s.DW.ShouldCheckpoint(s.Patch.T, s.Patch.Dt) {
			if err := save(); err != nil {
				return finish(StopFailed, err)
			}
		}
		observe()
		for _, o := range s.observers {
			o.OnStep(s.DW, s.Patch.T)
		}

		r := s.Step()
		switch r.Status {
		case StepDegenerate:
			return finish(StopDegenerate, r.Err)
		case StepFailed:
			return finish(StopFailed, r.Err)
		}

		if !s.InDomain() {
			return finish(StopDomainExit, nil)
		}
	}
	return finish(StopFinalTime, nil)
}
