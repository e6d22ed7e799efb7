package mpm

import (
	"errors"
	"fmt"
)

// Domain errors for the engine.
var (
	// ErrGeometryDegeneracy indicates a particle's deformation would invert.
	ErrGeometryDegeneracy = errors.New("mpm: geometry degeneracy (non-positive jacobian)")

	// ErrInvalidConfig indicates a simulation that cannot be assembled.
	ErrInvalidConfig = errors.New("mpm: invalid configuration")

	// ErrStepAbandoned indicates a step failed for a reason other than
	// degeneracy. The particle state is left as it was before the step.
	ErrStepAbandoned = errors.New("mpm: step abandoned")
)

// DegeneracyError locates the first particle whose trial Jacobian was
// non-positive. Step and Time describe the last valid state.
type DegeneracyError struct {
	Step     int
	Time     float64
	Material int
	Particle int
	Jacobian float64
}

func (e *DegeneracyError) Error() string {
	return fmt.Sprintf("mpm: negative jacobian at step %d (t=%g): material %d particle %d J=%g",
		e.Step, e.Time, e.Material, e.Particle, e.Jacobian)
}

func (e *DegeneracyError) Unwrap() error { return ErrGeometryDegeneracy }
