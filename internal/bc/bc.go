// Package bc enforces grid boundary conditions on planes of nodes.
package bc

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/san-kum/mpm/internal/dw"
	"github.com/san-kum/mpm/internal/patch"
	"gonum.org/v1/gonum/spatial/r2"
)

var (
	ErrUnknownField = errors.New("bc: unknown field")
	ErrUnknownAxis  = errors.New("bc: unknown axis")
	ErrUnknownSide  = errors.New("bc: unknown side")
)

// Field is the node quantity a condition overwrites.
type Field int

const (
	FieldVelocity Field = iota
	FieldAcceleration
)

func (f Field) String() string {
	switch f {
	case FieldVelocity:
		return "velocity"
	case FieldAcceleration:
		return "acceleration"
	}
	return fmt.Sprintf("Field(%d)", int(f))
}

func ParseField(s string) (Field, error) {
	switch strings.ToLower(s) {
	case "velocity", "gv", "v":
		return FieldVelocity, nil
	case "acceleration", "ga", "a":
		return FieldAcceleration, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownField, s)
}

type Axis int

const (
	X Axis = iota
	Y
)

func (a Axis) String() string {
	if a == Y {
		return "y"
	}
	return "x"
}

func ParseAxis(s string) (Axis, error) {
	switch strings.ToLower(s) {
	case "x":
		return X, nil
	case "y":
		return Y, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownAxis, s)
}

// Side widens a condition from its plane to the half space beyond it.
// Below and Above include every node, ghosts too, on that side of the
// plane.
type Side int

const (
	OnPlane Side = iota
	Below
	Above
)

func (s Side) String() string {
	switch s {
	case OnPlane:
		return "plane"
	case Below:
		return "below"
	case Above:
		return "above"
	}
	return fmt.Sprintf("Side(%d)", int(s))
}

func ParseSide(s string) (Side, error) {
	switch strings.ToLower(s) {
	case "", "plane":
		return OnPlane, nil
	case "below":
		return Below, nil
	case "above":
		return Above, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownSide, s)
}

// Zero is the homogeneous boundary value.
func Zero(r2.Vec) r2.Vec { return r2.Vec{} }

// Constant returns a value func that ignores position.
func Constant(v r2.Vec) func(r2.Vec) r2.Vec {
	return func(r2.Vec) r2.Vec { return v }
}

// BoundaryCondition prescribes Field on every node whose Axis coordinate
// equals Threshold, for each listed material. A Below or Above side also
// covers the nodes past the plane, which keeps a floor closed for kernels
// that reach the ghost layers.
type BoundaryCondition struct {
	Axis      Axis
	Threshold float64
	Side      Side
	Field     Field
	Materials []int
	Value     func(r2.Vec) r2.Vec
}

func (b *BoundaryCondition) String() string {
	if b.Side != OnPlane {
		return fmt.Sprintf("%s %s=%g %s %v", b.Field, b.Axis, b.Threshold, b.Side, b.Materials)
	}
	return fmt.Sprintf("%s %s=%g %v", b.Field, b.Axis, b.Threshold, b.Materials)
}

func coord(x r2.Vec, a Axis) float64 {
	if a == Y {
		return x.Y
	}
	return x.X
}

// Nodes returns the node indices the condition covers.
func (b *BoundaryCondition) Nodes(p *patch.Patch) []int {
	var out []int
	for i := 0; i < p.NumNodes(); i++ {
		d := coord(p.NodePos(i), b.Axis) - b.Threshold
		switch {
		case math.Abs(d) <= p.Tol,
			b.Side == Below && d < 0,
			b.Side == Above && d > 0:
			out = append(out, i)
		}
	}
	return out
}

// Apply overwrites the field on the condition's nodes. Applying it twice is
// the same as applying it once.
func (b *BoundaryCondition) Apply(w *dw.DataWarehouse, p *patch.Patch) error {
	value := b.Value
	if value == nil {
		value = Zero
	}
	nodes := b.Nodes(p)
	for _, m := range b.Materials {
		ns, err := w.Nodes(m)
		if err != nil {
			return fmt.Errorf("boundary %v: %w", b, err)
		}
		target := ns.Velocity
		if b.Field == FieldAcceleration {
			target = ns.Accel
		}
		for _, i := range nodes {
			target[i] = value(p.NodePos(i))
		}
	}
	return nil
}
