// Package material binds material properties and a constitutive model to the
// particles of one material index.
package material

import (
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/mpm/internal/dw"
	"gonum.org/v1/gonum/spatial/r2"
)

var (
	ErrUnknownModel     = errors.New("material: unknown model")
	ErrInvalidProps     = errors.New("material: invalid properties")
	ErrNegativeJacobian = errors.New("material: non-positive jacobian")
)

// JacobianError identifies the particle whose trial deformation would invert.
type JacobianError struct {
	Material int
	Particle int
	Jacobian float64
}

func (e *JacobianError) Error() string {
	return fmt.Sprintf("material %d particle %d: jacobian %g", e.Material, e.Particle, e.Jacobian)
}

func (e *JacobianError) Unwrap() error { return ErrNegativeJacobian }

type Props struct {
	Modulus float64 `yaml:"modulus"`
	Poisson float64 `yaml:"poisson"`
	Density float64 `yaml:"density"`
}

func (p Props) Validate() error {
	if p.Modulus < 0 {
		return fmt.Errorf("%w: modulus %g", ErrInvalidProps, p.Modulus)
	}
	if p.Density <= 0 {
		return fmt.Errorf("%w: density %g", ErrInvalidProps, p.Density)
	}
	if p.Poisson < 0 || p.Poisson >= 0.5 {
		return fmt.Errorf("%w: poisson ratio %g outside [0, 0.5)", ErrInvalidProps, p.Poisson)
	}
	return nil
}

// Lame returns the plane strain Lamé parameters.
func (p Props) Lame() (lambda, mu float64) {
	mu = p.Modulus / (2 * (1 + p.Poisson))
	lambda = p.Modulus * p.Poisson / ((1 + p.Poisson) * (1 - 2*p.Poisson))
	return lambda, mu
}

// WaveSpeed is the bar wave speed sqrt(E/ρ).
func (p Props) WaveSpeed() float64 { return math.Sqrt(p.Modulus / p.Density) }

type Material struct {
	Index int
	Name  string
	Props Props
	Model Model

	// Accel is the body acceleration applied as external force.
	Accel r2.Vec
	// Normal is the outward surface normal of the body's level set. Nil
	// means contact falls back to the grid mass gradient.
	Normal func(r2.Vec) r2.Vec
}

func New(index int, name string, props Props, model Model) (*Material, error) {
	if err := props.Validate(); err != nil {
		return nil, fmt.Errorf("material %q: %w", name, err)
	}
	if model == nil {
		model = LinearElastic{}
	}
	return &Material{Index: index, Name: name, Props: props, Model: model}, nil
}

// SetExternalAcceleration sets Fe = m*g on every particle.
func (m *Material) SetExternalAcceleration(ps *dw.ParticleSet, g r2.Vec) {
	m.Accel = g
	for p := range ps.Fe {
		ps.Fe[p] = r2.Scale(ps.Mass[p], g)
	}
}

func trialGradient(ps *dw.ParticleSet, p int, dt float64) (dw.Tensor, float64) {
	f := dw.Identity().Add(ps.L[p].Scale(dt)).Mul(ps.F[p])
	return f, f.Det()
}

// CheckDeformation verifies that no particle's trial deformation gradient
// inverts. It reads ps only.
func (m *Material) CheckDeformation(ps *dw.ParticleSet, dt float64) error {
	for p := 0; p < ps.Len(); p++ {
		_, j := trialGradient(ps, p, dt)
		if !(j > 0) {
			return &JacobianError{Material: m.Index, Particle: p, Jacobian: j}
		}
	}
	return nil
}

// UpdateStress advances F, the current volume and the stress of every
// particle. CheckDeformation must have passed for the same L and dt.
func (m *Material) UpdateStress(ps *dw.ParticleSet, dt float64) {
	for p := 0; p < ps.Len(); p++ {
		f, j := trialGradient(ps, p, dt)
		ps.F[p] = f
		ps.Vol[p] = j * ps.Vol0[p]
		ps.Stress[p] = m.Model.Stress(f, j, ps.L[p], ps.Stress[p], dt, m.Props)
	}
}
