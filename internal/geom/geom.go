// Package geom describes bodies as level sets and fills them with particles.
package geom

import (
	"math"

	"github.com/san-kum/mpm/internal/patch"
	"gonum.org/v1/gonum/spatial/r2"
)

// LevelSet is positive inside a body, zero on its surface and negative
// outside. Normal points outward.
type LevelSet interface {
	Value(x r2.Vec) float64
	Normal(x r2.Vec) r2.Vec
}

// Unit normalises v; the zero vector stays zero.
func Unit(v r2.Vec) r2.Vec {
	n := r2.Norm(v)
	if n == 0 {
		return r2.Vec{}
	}
	return r2.Scale(1/n, v)
}

type Circle struct {
	Center r2.Vec
	Radius float64
}

func (c Circle) Value(x r2.Vec) float64 { return c.Radius - r2.Norm(r2.Sub(x, c.Center)) }
func (c Circle) Normal(x r2.Vec) r2.Vec { return Unit(r2.Sub(x, c.Center)) }

// HalfPlane is the region behind Point with respect to the outward normal N.
type HalfPlane struct {
	Point r2.Vec
	N     r2.Vec
}

func (h HalfPlane) Value(x r2.Vec) float64 { return r2.Dot(r2.Sub(h.Point, x), Unit(h.N)) }
func (h HalfPlane) Normal(r2.Vec) r2.Vec   { return Unit(h.N) }

// Box is an axis-aligned rectangle.
type Box struct {
	Min, Max r2.Vec
}

func (b Box) faces(x r2.Vec) [4]float64 {
	return [4]float64{x.X - b.Min.X, b.Max.X - x.X, x.Y - b.Min.Y, b.Max.Y - x.Y}
}

func (b Box) Value(x r2.Vec) float64 {
	d := b.faces(x)
	return math.Min(math.Min(d[0], d[1]), math.Min(d[2], d[3]))
}

// Normal is the outward normal of the nearest face.
func (b Box) Normal(x r2.Vec) r2.Vec {
	normals := [4]r2.Vec{{X: -1}, {X: 1}, {Y: -1}, {Y: 1}}
	d := b.faces(x)
	best := 0
	for i := 1; i < 4; i++ {
		if d[i] < d[best] {
			best = i
		}
	}
	return normals[best]
}

// Fill places PointsPerAxis² particles on a regular lattice in every cell of
// the patch and keeps those inside ls. Each particle gets an equal share of
// its cell's volume.
func Fill(ls LevelSet, p *patch.Patch) ([]r2.Vec, []float64) {
	n := p.PointsPerAxis()
	vol := p.DX.X * p.DX.Y * p.Thick / float64(n*n)

	var xs []r2.Vec
	var vols []float64
	for j := 0; j < p.Nc[1]; j++ {
		for i := 0; i < p.Nc[0]; i++ {
			for b := 0; b < n; b++ {
				for a := 0; a < n; a++ {
					x := r2.Vec{
						X: p.X0.X + (float64(i)+(float64(a)+0.5)/float64(n))*p.DX.X,
						Y: p.X0.Y + (float64(j)+(float64(b)+0.5)/float64(n))*p.DX.Y,
					}
					if ls.Value(x) > 0 {
						xs = append(xs, x)
						vols = append(vols, vol)
					}
				}
			}
		}
	}
	return xs, vols
}

// Nearest returns the index of the point in xs closest to target, or -1 for
// an empty slice.
func Nearest(xs []r2.Vec, target r2.Vec) int {
	best, bestD := -1, math.Inf(1)
	for i, x := range xs {
		if d := r2.Norm(r2.Sub(x, target)); d < bestD {
			best, bestD = i, d
		}
	}
	return best
}
