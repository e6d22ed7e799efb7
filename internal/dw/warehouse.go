// Package dw is the data warehouse: the per-material particle and grid state
// of a simulation, keyed by material index.
package dw

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/san-kum/mpm/internal/patch"
	"gonum.org/v1/gonum/spatial/r2"
)

var (
	ErrUnknownMaterial = errors.New("dw: unknown material index")
	ErrFieldLength     = errors.New("dw: mismatched field lengths")
	ErrGridExists      = errors.New("dw: grid already created")
)

type DataWarehouse struct {
	// OutputInterval is the simulated time between checkpoints. Zero or
	// negative disables periodic checkpoints.
	OutputInterval float64

	step      int
	particles map[int]*ParticleSet
	nodes     map[int]*NodeSet
}

func New(outputInterval float64) *DataWarehouse {
	return &DataWarehouse{
		OutputInterval: outputInterval,
		particles:      make(map[int]*ParticleSet),
		nodes:          make(map[int]*NodeSet),
	}
}

// CreateGrid allocates the node fields of material dwi over the patch.
func (d *DataWarehouse) CreateGrid(dwi int, p *patch.Patch) error {
	if _, ok := d.nodes[dwi]; ok {
		return fmt.Errorf("%w: material %d", ErrGridExists, dwi)
	}
	d.nodes[dwi] = newNodeSet(p.NumNodes())
	d.particles[dwi] = &ParticleSet{}
	return nil
}

// AddParticles appends particles to material dwi and returns the index of
// the first one added. Mass is density*vol; F starts at identity.
func (d *DataWarehouse) AddParticles(dwi int, x []r2.Vec, vol []float64, density float64, support int) (int, error) {
	ps, ok := d.particles[dwi]
	if !ok {
		return 0, fmt.Errorf("%w: %d", ErrUnknownMaterial, dwi)
	}
	if len(x) != len(vol) {
		return 0, fmt.Errorf("%w: %d positions, %d volumes", ErrFieldLength, len(x), len(vol))
	}
	if support <= 0 {
		return 0, fmt.Errorf("%w: support %d", ErrFieldLength, support)
	}
	if ps.Len() > 0 && ps.Support != support {
		return 0, fmt.Errorf("%w: support %d, material %d uses %d", ErrFieldLength, support, dwi, ps.Support)
	}
	first := ps.Len()
	ps.Support = support
	ps.grow(x, vol, density)
	return first, nil
}

func (d *DataWarehouse) Particles(dwi int) (*ParticleSet, error) {
	ps, ok := d.particles[dwi]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownMaterial, dwi)
	}
	return ps, nil
}

func (d *DataWarehouse) Nodes(dwi int) (*NodeSet, error) {
	ns, ok := d.nodes[dwi]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownMaterial, dwi)
	}
	return ns, nil
}

// Indices returns the material indices in ascending order.
func (d *DataWarehouse) Indices() []int {
	out := make([]int, 0, len(d.nodes))
	for dwi := range d.nodes {
		out = append(out, dwi)
	}
	sort.Ints(out)
	return out
}

func (d *DataWarehouse) ZeroGrid() {
	for _, ns := range d.nodes {
		ns.Zero()
	}
}

// NumParticles is the particle count over all materials.
func (d *DataWarehouse) NumParticles() int {
	n := 0
	for _, ps := range d.particles {
		n += ps.Len()
	}
	return n
}

func (d *DataWarehouse) Step() int { return d.step }

// Advance bumps the step counter.
func (d *DataWarehouse) Advance() { d.step++ }

// Snapshot returns a deep copy that shares no memory with d.
func (d *DataWarehouse) Snapshot() *DataWarehouse {
	out := New(d.OutputInterval)
	out.step = d.step
	for dwi, ps := range d.particles {
		out.particles[dwi] = ps.clone()
	}
	for dwi, ns := range d.nodes {
		out.nodes[dwi] = ns.clone()
	}
	return out
}

// ShouldCheckpoint reports whether t falls within half a step of a multiple
// of the output interval. The window is half open so a single step fires per
// interval.
func (d *DataWarehouse) ShouldCheckpoint(t, dt float64) bool {
	if d.OutputInterval <= 0 {
		return false
	}
	r := math.Mod(t, d.OutputInterval)
	return r < dt/2 || d.OutputInterval-r <= dt/2
}
