package metrics

import (
	"github.com/san-kum/mpm/internal/dw"
	"gonum.org/v1/gonum/spatial/r2"
)

// Displacement follows one particle and records its distance from where it
// was at the first observation. The series is kept for plotting.
type Displacement struct {
	name     string
	material int
	particle int

	origin  r2.Vec
	samples int
	Times   []float64
	Values  []float64
}

func NewDisplacement(material, particle int) *Displacement {
	return &Displacement{
		name:     "displacement",
		material: material,
		particle: particle,
	}
}

func (d *Displacement) Name() string { return d.name }

func (d *Displacement) Observe(w *dw.DataWarehouse, t float64) {
	ps, err := w.Particles(d.material)
	if err != nil || d.particle < 0 || d.particle >= ps.Len() {
		return
	}
	x := ps.X[d.particle]
	if d.samples == 0 {
		d.origin = x
	}
	d.samples++
	d.Times = append(d.Times, t)
	d.Values = append(d.Values, r2.Norm(r2.Sub(x, d.origin)))
}

// Value is the latest displacement.
func (d *Displacement) Value() float64 {
	if len(d.Values) == 0 {
		return 0
	}
	return d.Values[len(d.Values)-1]
}

func (d *Displacement) Reset() {
	d.origin = r2.Vec{}
	d.samples = 0
	d.Times = d.Times[:0]
	d.Values = d.Values[:0]
}
