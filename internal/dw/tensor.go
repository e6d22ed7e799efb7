package dw

import "gonum.org/v1/gonum/spatial/r2"

// Tensor is a 2x2 second-order tensor stored row-major.
type Tensor [4]float64

func Identity() Tensor { return Tensor{1, 0, 0, 1} }

// Outer returns a ⊗ b.
func Outer(a, b r2.Vec) Tensor {
	return Tensor{a.X * b.X, a.X * b.Y, a.Y * b.X, a.Y * b.Y}
}

func (t Tensor) Det() float64   { return t[0]*t[3] - t[1]*t[2] }
func (t Tensor) Trace() float64 { return t[0] + t[3] }

func (t Tensor) Transpose() Tensor { return Tensor{t[0], t[2], t[1], t[3]} }

func (t Tensor) Add(o Tensor) Tensor {
	return Tensor{t[0] + o[0], t[1] + o[1], t[2] + o[2], t[3] + o[3]}
}

func (t Tensor) Scale(f float64) Tensor {
	return Tensor{t[0] * f, t[1] * f, t[2] * f, t[3] * f}
}

// Sym is the symmetric part of t.
func (t Tensor) Sym() Tensor {
	off := 0.5 * (t[1] + t[2])
	return Tensor{t[0], off, off, t[3]}
}

func (t Tensor) Mul(o Tensor) Tensor {
	return Tensor{
		t[0]*o[0] + t[1]*o[2], t[0]*o[1] + t[1]*o[3],
		t[2]*o[0] + t[3]*o[2], t[2]*o[1] + t[3]*o[3],
	}
}

func (t Tensor) MulVec(v r2.Vec) r2.Vec {
	return r2.Vec{X: t[0]*v.X + t[1]*v.Y, Y: t[2]*v.X + t[3]*v.Y}
}
