package dw

import "gonum.org/v1/gonum/spatial/r2"

// ParticleSet holds the material points of one material as parallel arrays.
// Index p addresses the same particle in every field; particles are only ever
// appended, so indices stay stable for the life of a run.
type ParticleSet struct {
	// Support is the number of grid nodes each particle contributes to.
	Support int

	X0 []r2.Vec // reference position
	X  []r2.Vec
	V  []r2.Vec
	Fe []r2.Vec // external force

	Mass []float64
	Vol  []float64
	Vol0 []float64

	Stress []Tensor
	F      []Tensor
	L      []Tensor

	// Contributions, flattened Len()*Support, rebuilt every step.
	CIdx  []int
	CW    []float64
	CGrad []r2.Vec
}

func (ps *ParticleSet) Len() int { return len(ps.X) }

// Contrib returns the contribution block of particle p.
func (ps *ParticleSet) Contrib(p int) (idx []int, w []float64, grad []r2.Vec) {
	lo, hi := p*ps.Support, (p+1)*ps.Support
	return ps.CIdx[lo:hi], ps.CW[lo:hi], ps.CGrad[lo:hi]
}

func (ps *ParticleSet) grow(x []r2.Vec, vol []float64, density float64) {
	for i := range x {
		ps.X0 = append(ps.X0, x[i])
		ps.X = append(ps.X, x[i])
		ps.V = append(ps.V, r2.Vec{})
		ps.Fe = append(ps.Fe, r2.Vec{})
		ps.Mass = append(ps.Mass, density*vol[i])
		ps.Vol = append(ps.Vol, vol[i])
		ps.Vol0 = append(ps.Vol0, vol[i])
		ps.Stress = append(ps.Stress, Tensor{})
		ps.F = append(ps.F, Identity())
		ps.L = append(ps.L, Tensor{})
	}
	n := ps.Len() * ps.Support
	ps.CIdx = make([]int, n)
	ps.CW = make([]float64, n)
	ps.CGrad = make([]r2.Vec, n)
}

func (ps *ParticleSet) clone() *ParticleSet {
	return &ParticleSet{
		Support: ps.Support,
		X0:      append([]r2.Vec(nil), ps.X0...),
		X:       append([]r2.Vec(nil), ps.X...),
		V:       append([]r2.Vec(nil), ps.V...),
		Fe:      append([]r2.Vec(nil), ps.Fe...),
		Mass:    append([]float64(nil), ps.Mass...),
		Vol:     append([]float64(nil), ps.Vol...),
		Vol0:    append([]float64(nil), ps.Vol0...),
		Stress:  append([]Tensor(nil), ps.Stress...),
		F:       append([]Tensor(nil), ps.F...),
		L:       append([]Tensor(nil), ps.L...),
		CIdx:    append([]int(nil), ps.CIdx...),
		CW:      append([]float64(nil), ps.CW...),
		CGrad:   append([]r2.Vec(nil), ps.CGrad...),
	}
}
