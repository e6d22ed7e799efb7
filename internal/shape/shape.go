// Package shape provides the particle-grid interpolation kernels.
//
// Kernels are separable: a kernel evaluates one axis and [Eval2] combines two
// axes into a weight and gradient with the chain rule. Every kernel in this
// package forms a partition of unity over its support block, which is what
// keeps the particle-to-grid transfer conservative.
package shape

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/spatial/r2"
)

var ErrUnknownKernel = errors.New("shape: unknown kernel")

type Kernel interface {
	Name() string
	// Span is the number of support nodes along one axis.
	Span() int
	// Offset is the first support node relative to the located cell.
	Offset() int
	// Ghost is the minimum number of ghost layers the kernel needs so that
	// every particle inside the domain has its full support on the grid.
	Ghost() int
	// Eval returns the weight and its derivative for a particle-to-node
	// offset along one axis with node spacing h.
	Eval(offset, h float64) (w, g float64)
}

// Support is the number of nodes a particle contributes to in 2D.
func Support(k Kernel) int { return k.Span() * k.Span() }

// Eval2 evaluates a separable kernel in two dimensions.
func Eval2(k Kernel, r, h r2.Vec) (float64, r2.Vec) {
	sx, gx := k.Eval(r.X, h.X)
	sy, gy := k.Eval(r.Y, h.Y)
	return sx * sy, r2.Vec{X: gx * sy, Y: gy * sx}
}

func sign(x float64) float64 {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	}
	return 0
}

// Linear is the bilinear hat kernel.
type Linear struct{}

func (Linear) Name() string { return "linear" }
func (Linear) Span() int    { return 2 }
func (Linear) Offset() int  { return 0 }
func (Linear) Ghost() int   { return 1 }

func (Linear) Eval(offset, h float64) (float64, float64) {
	r := math.Abs(offset)
	if r < h {
		return 1 - r/h, -sign(offset) / h
	}
	return 0, 0
}

// GIMP is the uniform generalized interpolation kernel. Ratio is the
// particle half width as a fraction of the cell size.
type GIMP struct {
	Ratio float64
}

// NewGIMP sizes the particle domain from the particles-per-cell target.
func NewGIMP(ppc int) *GIMP {
	n := math.Round(math.Sqrt(float64(ppc)))
	if n < 1 {
		n = 1
	}
	return &GIMP{Ratio: math.Min(0.5/n, 0.5)}
}

func (*GIMP) Name() string { return "gimp" }
func (*GIMP) Span() int    { return 4 }
func (*GIMP) Offset() int  { return -1 }
func (*GIMP) Ghost() int   { return 2 }

func (k *GIMP) Eval(offset, h float64) (float64, float64) {
	lp := k.Ratio * h
	r := math.Abs(offset)
	switch {
	case r < lp:
		return 1 - (offset*offset+lp*lp)/(2*h*lp), -offset / (h * lp)
	case r < h-lp:
		return 1 - r/h, -sign(offset) / h
	case r < h+lp:
		d := h + lp - r
		return d * d / (4 * h * lp), -sign(offset) * d / (2 * h * lp)
	}
	return 0, 0
}

// Names lists the kernel names ByName accepts, without aliases.
func Names() []string { return []string{"gimp", "linear"} }

// ByName builds a kernel from its configuration name.
func ByName(name string, ppc int) (Kernel, error) {
	switch strings.ToLower(name) {
	case "linear":
		return Linear{}, nil
	case "gimp", "":
		return NewGIMP(ppc), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKernel, name)
}
