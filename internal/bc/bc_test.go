package bc

import (
	"errors"
	"testing"

	"github.com/san-kum/mpm/internal/dw"
	"github.com/san-kum/mpm/internal/patch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"
)

func grid(t *testing.T) (*dw.DataWarehouse, *patch.Patch) {
	t.Helper()
	p, err := patch.New(r2.Vec{}, r2.Vec{X: 2, Y: 2}, [2]int{2, 2}, 1, 0, 1, 1e-3, 1, 1)
	require.NoError(t, err)
	w := dw.New(0)
	require.NoError(t, w.CreateGrid(0, p))
	require.NoError(t, w.CreateGrid(1, p))
	for _, m := range w.Indices() {
		ns, _ := w.Nodes(m)
		for i := range ns.Velocity {
			ns.Velocity[i] = r2.Vec{X: 1, Y: 1}
			ns.Accel[i] = r2.Vec{X: 2, Y: 2}
		}
	}
	return w, p
}

func TestNodesOnPlane(t *testing.T) {
	_, p := grid(t)
	floor := &BoundaryCondition{Axis: Y, Threshold: 0}
	nodes := floor.Nodes(p)
	require.Len(t, nodes, 5)
	for _, i := range nodes {
		_, j := p.IJ(i)
		assert.Equal(t, 1, j)
	}
	assert.Empty(t, (&BoundaryCondition{Axis: X, Threshold: 0.5}).Nodes(p))
}

func TestApplyVelocity(t *testing.T) {
	w, p := grid(t)
	wall := &BoundaryCondition{Axis: X, Threshold: 2, Field: FieldVelocity, Materials: []int{1}, Value: Constant(r2.Vec{Y: -3})}
	require.NoError(t, wall.Apply(w, p))

	n0, _ := w.Nodes(0)
	n1, _ := w.Nodes(1)
	for i := 0; i < p.NumNodes(); i++ {
		assert.Equal(t, r2.Vec{X: 1, Y: 1}, n0.Velocity[i], "unlisted material untouched")
		ii, _ := p.IJ(i)
		if ii == 3 {
			assert.Equal(t, r2.Vec{Y: -3}, n1.Velocity[i])
		} else {
			assert.Equal(t, r2.Vec{X: 1, Y: 1}, n1.Velocity[i])
		}
		assert.Equal(t, r2.Vec{X: 2, Y: 2}, n1.Accel[i])
	}
}

func TestApplyIsIdempotent(t *testing.T) {
	w, p := grid(t)
	floor := &BoundaryCondition{Axis: Y, Threshold: 0, Field: FieldAcceleration, Materials: []int{0, 1},
		Value: func(x r2.Vec) r2.Vec { return r2.Vec{X: x.X} }}
	require.NoError(t, floor.Apply(w, p))
	once := w.Snapshot()
	require.NoError(t, floor.Apply(w, p))

	for _, m := range w.Indices() {
		a, _ := once.Nodes(m)
		b, _ := w.Nodes(m)
		assert.Equal(t, a.Accel, b.Accel)
		assert.Equal(t, a.Velocity, b.Velocity)
	}
}

func TestApplyUnknownMaterial(t *testing.T) {
	w, p := grid(t)
	err := (&BoundaryCondition{Materials: []int{9}}).Apply(w, p)
	assert.True(t, errors.Is(err, dw.ErrUnknownMaterial))
}

func TestParse(t *testing.T) {
	f, err := ParseField("gv")
	require.NoError(t, err)
	assert.Equal(t, FieldVelocity, f)
	f, err = ParseField("Acceleration")
	require.NoError(t, err)
	assert.Equal(t, FieldAcceleration, f)
	_, err = ParseField("stress")
	assert.True(t, errors.Is(err, ErrUnknownField))

	a, err := ParseAxis("Y")
	require.NoError(t, err)
	assert.Equal(t, Y, a)
	_, err = ParseAxis("z")
	assert.True(t, errors.Is(err, ErrUnknownAxis))
}

func TestNodesPastPlane(t *testing.T) {
	_, p := grid(t)
	floor := &BoundaryCondition{Axis: Y, Threshold: 0, Side: Below}
	nodes := floor.Nodes(p)
	require.Len(t, nodes, 10)
	for _, i := range nodes {
		assert.LessOrEqual(t, p.NodePos(i).Y, 0.0)
	}

	right := &BoundaryCondition{Axis: X, Threshold: 1, Side: Above}
	nodes = right.Nodes(p)
	require.Len(t, nodes, 15)
	for _, i := range nodes {
		assert.GreaterOrEqual(t, p.NodePos(i).X, 1.0)
	}
}

func TestApplyClosesGhostLayer(t *testing.T) {
	w, p := grid(t)
	floor := &BoundaryCondition{Axis: Y, Threshold: 0, Side: Below, Materials: []int{0}}
	require.NoError(t, floor.Apply(w, p))

	ns, _ := w.Nodes(0)
	for i := 0; i < p.NumNodes(); i++ {
		if _, j := p.IJ(i); j <= 1 {
			assert.Equal(t, r2.Vec{}, ns.Velocity[i])
		} else {
			assert.Equal(t, r2.Vec{X: 1, Y: 1}, ns.Velocity[i])
		}
	}
}

func TestParseSide(t *testing.T) {
	for in, want := range map[string]Side{"": OnPlane, "plane": OnPlane, "Below": Below, "above": Above} {
		got, err := ParseSide(in)
		require.NoError(t, err)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseSide("inside")
	assert.True(t, errors.Is(err, ErrUnknownSide))
	assert.Equal(t, "velocity y=0 below [0]", (&BoundaryCondition{Axis: Y, Side: Below, Materials: []int{0}}).String())
}
