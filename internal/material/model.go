package material

import (
	"fmt"
	"math"
	"strings"

	"github.com/san-kum/mpm/internal/dw"
	"gonum.org/v1/gonum/mat"
)

// Model computes the Cauchy stress of one particle after its deformation
// gradient has been updated. prev is the stress at the start of the step.
type Model interface {
	Name() string
	Stress(F dw.Tensor, J float64, L dw.Tensor, prev dw.Tensor, dt float64, p Props) dw.Tensor
}

// StressFree carries no stress, so its bodies deform freely. A body only
// behaves rigidly when boundary conditions hold it or its density dwarfs
// that of its contact partners.
type StressFree struct{}

func (StressFree) Name() string { return "stressfree" }

func (StressFree) Stress(dw.Tensor, float64, dw.Tensor, dw.Tensor, float64, Props) dw.Tensor {
	return dw.Tensor{}
}

// LinearElastic is the hypoelastic rate form: σ' = σ + (λ tr(D) I + 2μ D) dt
// with D the symmetric part of the velocity gradient.
type LinearElastic struct{}

func (LinearElastic) Name() string { return "linear" }

func (LinearElastic) Stress(_ dw.Tensor, _ float64, L dw.Tensor, prev dw.Tensor, dt float64, p Props) dw.Tensor {
	lam, mu := p.Lame()
	d := L.Sym()
	rate := dw.Identity().Scale(lam * d.Trace()).Add(d.Scale(2 * mu))
	return prev.Add(rate.Scale(dt))
}

// NeoHookean is the compressible plane strain neo-Hookean solid:
// σ = μ/J (B - I) + λ ln(J)/J I, B = F Fᵀ.
type NeoHookean struct{}

func (NeoHookean) Name() string { return "neohookean" }

func (NeoHookean) Stress(F dw.Tensor, J float64, _ dw.Tensor, _ dw.Tensor, _ float64, p Props) dw.Tensor {
	lam, mu := p.Lame()
	f := mat.NewDense(2, 2, []float64{F[0], F[1], F[2], F[3]})
	var b mat.Dense
	b.Mul(f, f.T())
	b.Sub(&b, identity2)
	b.Scale(mu/J, &b)

	vol := lam * math.Log(J) / J
	return dw.Tensor{
		b.At(0, 0) + vol, b.At(0, 1),
		b.At(1, 0), b.At(1, 1) + vol,
	}
}

var identity2 = mat.NewDiagDense(2, []float64{1, 1})

// ModelNames lists the model names ModelByName accepts, without aliases.
func ModelNames() []string { return []string{"linear", "neohookean", "stressfree"} }

// ModelByName resolves a configured model name.
func ModelByName(name string) (Model, error) {
	switch strings.ToLower(name) {
	case "stressfree":
		return StressFree{}, nil
	case "linear", "linearelastic", "":
		return LinearElastic{}, nil
	case "neohookean", "planestrainneohookean":
		return NeoHookean{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownModel, name)
}
