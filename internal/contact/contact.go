// Package contact resolves grid-based frictional contact between pairs of
// materials. It works on node momenta after internal and external forces have
// been integrated and before velocities are mapped back to particles.
package contact

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/san-kum/mpm/internal/dw"
	"github.com/san-kum/mpm/internal/geom"
	"github.com/san-kum/mpm/internal/patch"
	"gonum.org/v1/gonum/spatial/r2"
)

var (
	ErrUnknownPolicy = errors.New("contact: unknown normal policy")
	ErrInvalidPair   = errors.New("contact: invalid material pair")
)

// NormalPolicy selects how the contact normal is built at a shared node.
type NormalPolicy int

const (
	// OneSided uses the outward normal of the first material.
	OneSided NormalPolicy = iota
	// Averaged uses unit(nA - nB).
	Averaged
)

func (p NormalPolicy) String() string {
	switch p {
	case OneSided:
		return "onesided"
	case Averaged:
		return "averaged"
	}
	return fmt.Sprintf("NormalPolicy(%d)", int(p))
}

func ParsePolicy(s string) (NormalPolicy, error) {
	switch strings.ToLower(s) {
	case "onesided", "one-sided", "":
		return OneSided, nil
	case "averaged", "average":
		return Averaged, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
}

// Friction is Coulomb friction between materials A and B. Mu = +Inf is
// no-slip: approaching nodes move with the centre of mass velocity.
type Friction struct {
	A, B   int
	Mu     float64
	Policy NormalPolicy

	// NormalA and NormalB give the outward surface normal of each body. A
	// nil func falls back to the scattered mass gradient.
	NormalA func(r2.Vec) r2.Vec
	NormalB func(r2.Vec) r2.Vec

	// MassEpsilon is the minimum node mass for a node to count as occupied.
	MassEpsilon float64
}

// Stats summarises one application of a contact.
type Stats struct {
	Shared    int // nodes carrying mass of both materials
	Corrected int // nodes where the bodies were approaching
}

func (c *Friction) Validate() error {
	if c.A == c.B {
		return fmt.Errorf("%w: %d with itself", ErrInvalidPair, c.A)
	}
	if c.Mu < 0 || math.IsNaN(c.Mu) {
		return fmt.Errorf("%w: friction coefficient %g", ErrInvalidPair, c.Mu)
	}
	return nil
}

func (c *Friction) String() string {
	return fmt.Sprintf("friction(%d,%d mu=%g %s)", c.A, c.B, c.Mu, c.Policy)
}

func (c *Friction) normal(ns *dw.NodeSet, fn func(r2.Vec) r2.Vec, p *patch.Patch, i int) r2.Vec {
	if fn != nil {
		return geom.Unit(fn(p.NodePos(i)))
	}
	return geom.Unit(ns.Normal[i])
}

// Apply corrects the node momenta of both materials so that no shared node
// keeps an approaching normal velocity.
func (c *Friction) Apply(w *dw.DataWarehouse, p *patch.Patch) (Stats, error) {
	var st Stats
	na, err := w.Nodes(c.A)
	if err != nil {
		return st, fmt.Errorf("contact %v: %w", c, err)
	}
	nb, err := w.Nodes(c.B)
	if err != nil {
		return st, fmt.Errorf("contact %v: %w", c, err)
	}

	for i := range na.Mass {
		if na.Mass[i] <= c.MassEpsilon || nb.Mass[i] <= c.MassEpsilon {
			continue
		}
		st.Shared++

		n := c.normal(na, c.NormalA, p, i)
		if c.Policy == Averaged {
			n = geom.Unit(r2.Sub(n, c.normal(nb, c.NormalB, p, i)))
		}
		if n == (r2.Vec{}) {
			continue
		}

		dp, ok := Resolve(na.Mass[i], nb.Mass[i], na.Momentum[i], nb.Momentum[i], n, c.Mu)
		if !ok {
			continue
		}
		na.Momentum[i] = r2.Add(na.Momentum[i], dp)
		nb.Momentum[i] = r2.Sub(nb.Momentum[i], dp)
		st.Corrected++
	}
	return st, nil
}

// Resolve computes the momentum impulse on body A at one node, given node
// masses, momenta and the unit normal pointing from A towards B. B receives
// the opposite impulse. ok is false when the bodies are not approaching.
func Resolve(mA, mB float64, pA, pB, n r2.Vec, mu float64) (dp r2.Vec, ok bool) {
	vA := r2.Scale(1/mA, pA)
	vB := r2.Scale(1/mB, pB)
	if r2.Dot(r2.Sub(vB, vA), n) >= 0 {
		return r2.Vec{}, false
	}
	vcm := r2.Scale(1/(mA+mB), r2.Add(pA, pB))

	dn := r2.Scale(mA*r2.Dot(r2.Sub(vcm, vA), n), n)

	rel := r2.Sub(vA, vcm)
	tang := r2.Sub(rel, r2.Scale(r2.Dot(rel, n), n))
	stick := r2.Scale(-mA, tang)

	scale := 1.0
	if s := r2.Norm(stick); !math.IsInf(mu, 1) && s > 0 {
		scale = math.Min(1, mu*r2.Norm(dn)/s)
	}
	return r2.Add(dn, r2.Scale(scale, stick)), true
}
