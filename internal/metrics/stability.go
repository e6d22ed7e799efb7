package metrics

import (
	"math"

	"github.com/san-kum/mpm/internal/dw"
)

// Compression records the smallest Jacobian det F seen over the run and how
// many observed states had a particle compressed below the threshold.
type Compression struct {
	name       string
	threshold  float64
	minJ       float64
	violations int
	samples    int
}

func NewCompression(threshold float64) *Compression {
	return &Compression{
		name:      "min_jacobian",
		threshold: threshold,
		minJ:      math.Inf(1),
	}
}

func (c *Compression) Name() string {
	return c.name
}

func (c *Compression) Observe(w *dw.DataWarehouse, t float64) {
	c.samples++
	stateMin := math.Inf(1)
	for _, dwi := range w.Indices() {
		ps, _ := w.Particles(dwi)
		for _, f := range ps.F {
			stateMin = math.Min(stateMin, f.Det())
		}
	}
	if stateMin < c.threshold {
		c.violations++
	}
	c.minJ = math.Min(c.minJ, stateMin)
}

func (c *Compression) Value() float64 {
	if c.samples == 0 {
		return 1.0
	}
	return c.minJ
}

// Violations is the number of observed states below the threshold.
func (c *Compression) Violations() int { return c.violations }

func (c *Compression) Reset() {
	c.minJ = math.Inf(1)
	c.violations = 0
	c.samples = 0
}
