// Package patch describes the background grid a simulation is solved on.
//
// A [Patch] is immutable once built except for the current time, which only
// the time-advance step moves forward. Nodes are numbered row-major over the
// ghost-padded grid: index = j*Nn[0] + i.
package patch

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// ErrInvalidPatch reports a grid description that cannot be solved on.
var ErrInvalidPatch = errors.New("patch: invalid grid description")

type Patch struct {
	X0, X1 r2.Vec
	Nc     [2]int // cells per axis
	Nn     [2]int // nodes per axis, ghosts included
	NGhost int
	DX     r2.Vec

	Thick float64
	PPC   int

	T, Tf, Dt float64
	Tol       float64
}

func New(x0, x1 r2.Vec, nc [2]int, nGhost int, t0, tf, dt, thick float64, ppc int) (*Patch, error) {
	if x1.X <= x0.X || x1.Y <= x0.Y {
		return nil, fmt.Errorf("%w: upper corner %v not above lower corner %v", ErrInvalidPatch, x1, x0)
	}
	if nc[0] <= 0 || nc[1] <= 0 {
		return nil, fmt.Errorf("%w: cell counts must be positive, got %v", ErrInvalidPatch, nc)
	}
	if nGhost < 0 {
		return nil, fmt.Errorf("%w: negative ghost count %d", ErrInvalidPatch, nGhost)
	}
	if dt <= 0 {
		return nil, fmt.Errorf("%w: dt must be positive, got %g", ErrInvalidPatch, dt)
	}
	if tf <= t0 {
		return nil, fmt.Errorf("%w: final time %g not after start %g", ErrInvalidPatch, tf, t0)
	}
	if thick <= 0 {
		thick = 1
	}
	if ppc <= 0 {
		ppc = 1
	}

	dx := r2.Vec{
		X: (x1.X - x0.X) / float64(nc[0]),
		Y: (x1.Y - x0.Y) / float64(nc[1]),
	}
	return &Patch{
		X0:     x0,
		X1:     x1,
		Nc:     nc,
		Nn:     [2]int{nc[0] + 1 + 2*nGhost, nc[1] + 1 + 2*nGhost},
		NGhost: nGhost,
		DX:     dx,
		Thick:  thick,
		PPC:    ppc,
		T:      t0,
		Tf:     tf,
		Dt:     dt,
		Tol:    1e-10 * math.Min(dx.X, dx.Y),
	}, nil
}

// NumNodes is the total node count including ghost layers.
func (p *Patch) NumNodes() int { return p.Nn[0] * p.Nn[1] }

// Index linearises node coordinates.
func (p *Patch) Index(i, j int) int { return j*p.Nn[0] + i }

// IJ is the inverse of Index.
func (p *Patch) IJ(idx int) (i, j int) { return idx % p.Nn[0], idx / p.Nn[0] }

// NodePos returns the physical coordinates of a node.
func (p *Patch) NodePos(idx int) r2.Vec {
	i, j := p.IJ(idx)
	return r2.Vec{
		X: p.X0.X + float64(i-p.NGhost)*p.DX.X,
		Y: p.X0.Y + float64(j-p.NGhost)*p.DX.Y,
	}
}

// CellIJ returns the node coordinates of the lower-left corner of the cell
// holding pos. A position exactly on a node maps to that node.
func (p *Patch) CellIJ(pos r2.Vec) (i, j int) {
	i = int(math.Floor((pos.X-p.X0.X)/p.DX.X)) + p.NGhost
	j = int(math.Floor((pos.Y-p.X0.Y)/p.DX.Y)) + p.NGhost
	return i, j
}

// LocateCell maps a position to the flat index of its cell's lower-left node.
// The caller guarantees pos lies inside the ghost-padded domain.
func (p *Patch) LocateCell(pos r2.Vec) int {
	i, j := p.CellIJ(pos)
	return p.Index(i, j)
}

func (p *Patch) InPatch(pos r2.Vec) bool {
	return pos.X >= p.X0.X && pos.X <= p.X1.X &&
		pos.Y >= p.X0.Y && pos.Y <= p.X1.Y
}

func (p *Patch) AllInPatch(xs []r2.Vec) bool {
	for _, x := range xs {
		if !p.InPatch(x) {
			return false
		}
	}
	return true
}

// PointsPerAxis is the number of particles per cell along one axis.
func (p *Patch) PointsPerAxis() int {
	n := int(math.Round(math.Sqrt(float64(p.PPC))))
	if n < 1 {
		n = 1
	}
	return n
}

// Advance moves the clock forward by one step.
func (p *Patch) Advance() { p.T += p.Dt }

// Done reports whether the final time has been reached. A tiny slack keeps
// accumulated rounding in T from forcing one extra step.
func (p *Patch) Done() bool { return p.T >= p.Tf-1e-9*p.Dt }
