package material

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/mpm/internal/dw"
	"github.com/san-kum/mpm/internal/patch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"
)

var steel = Props{Modulus: 1e6, Poisson: 0.3, Density: 1000}

func particles(t *testing.T, n int) *dw.ParticleSet {
	t.Helper()
	p, err := patch.New(r2.Vec{}, r2.Vec{X: 4, Y: 4}, [2]int{4, 4}, 1, 0, 1, 1e-3, 1, 1)
	require.NoError(t, err)
	w := dw.New(0)
	require.NoError(t, w.CreateGrid(0, p))
	x := make([]r2.Vec, n)
	vol := make([]float64, n)
	for i := range x {
		x[i] = r2.Vec{X: 0.5 + float64(i), Y: 0.5}
		vol[i] = 0.5
	}
	_, err = w.AddParticles(0, x, vol, steel.Density, 4)
	require.NoError(t, err)
	ps, err := w.Particles(0)
	require.NoError(t, err)
	return ps
}

func TestLame(t *testing.T) {
	lam, mu := steel.Lame()
	assert.InDelta(t, 1e6/2.6, mu, 1e-6)
	assert.InDelta(t, 0.3e6/(1.3*0.4), lam, 1e-6)
	assert.InDelta(t, math.Sqrt(1000), steel.WaveSpeed(), 1e-12)
}

func TestPropsValidate(t *testing.T) {
	tests := []struct {
		name  string
		props Props
		ok    bool
	}{
		{"valid", steel, true},
		{"zero density", Props{Modulus: 1, Poisson: 0.3}, false},
		{"incompressible", Props{Modulus: 1, Poisson: 0.5, Density: 1}, false},
		{"negative modulus", Props{Modulus: -1, Poisson: 0.3, Density: 1}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.props.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.True(t, errors.Is(err, ErrInvalidProps))
			}
		})
	}
}

func TestModelsAtRest(t *testing.T) {
	for _, m := range []Model{StressFree{}, LinearElastic{}, NeoHookean{}} {
		s := m.Stress(dw.Identity(), 1, dw.Tensor{}, dw.Tensor{}, 1e-3, steel)
		for i := range s {
			assert.InDelta(t, 0, s[i], 1e-9, "%s component %d", m.Name(), i)
		}
	}
}

func TestNeoHookeanSmallStrainMatchesLinear(t *testing.T) {
	const eps = 1e-6
	dt := 1.0
	L := dw.Tensor{eps, 0, 0, 0}
	F := dw.Identity().Add(L.Scale(dt))

	lin := LinearElastic{}.Stress(F, F.Det(), L, dw.Tensor{}, dt, steel)
	nh := NeoHookean{}.Stress(F, F.Det(), L, dw.Tensor{}, dt, steel)
	for i := range lin {
		assert.InDelta(t, lin[i], nh[i], 1e-3*math.Abs(lin[0]), "component %d", i)
	}
	lam, mu := steel.Lame()
	assert.InDelta(t, (lam+2*mu)*eps, lin[0], 1e-9)
	assert.InDelta(t, lam*eps, lin[3], 1e-9)
}

func TestModelByName(t *testing.T) {
	for name, want := range map[string]string{
		"StressFree":            "stressfree",
		"Linear":                "linear",
		"neoHookean":            "neohookean",
		"planeStrainNeoHookean": "neohookean",
	} {
		m, err := ModelByName(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, m.Name())
	}
	for _, name := range []string{"plasticity", "rigid"} {
		_, err := ModelByName(name)
		assert.True(t, errors.Is(err, ErrUnknownModel), name)
	}
}

func TestModelNamesResolve(t *testing.T) {
	for _, name := range ModelNames() {
		m, err := ModelByName(name)
		require.NoError(t, err)
		assert.Equal(t, name, m.Name())
	}
}

func TestStressFreeIgnoresDeformation(t *testing.T) {
	F := dw.Tensor{0.5, 0.2, 0, 1.5}
	L := dw.Tensor{3, 1, -1, 2}
	s := StressFree{}.Stress(F, F.Det(), L, dw.Tensor{7, 0, 0, 7}, 1e-3, steel)
	assert.Equal(t, dw.Tensor{}, s)
}

func TestSetExternalAcceleration(t *testing.T) {
	ps := particles(t, 2)
	m, err := New(0, "body", steel, nil)
	require.NoError(t, err)

	g := r2.Vec{Y: -9.8}
	m.SetExternalAcceleration(ps, g)
	assert.Equal(t, g, m.Accel)
	for p := range ps.Fe {
		assert.InDelta(t, -9.8*500, ps.Fe[p].Y, 1e-9)
		assert.Zero(t, ps.Fe[p].X)
	}
}

func TestCheckDeformationLeavesStateUntouched(t *testing.T) {
	ps := particles(t, 3)
	m, err := New(2, "body", steel, LinearElastic{})
	require.NoError(t, err)

	ps.L[1] = dw.Tensor{-2000, 0, 0, 0}
	err = m.CheckDeformation(ps, 1e-3)
	require.Error(t, err)

	var jerr *JacobianError
	require.True(t, errors.As(err, &jerr))
	assert.Equal(t, 2, jerr.Material)
	assert.Equal(t, 1, jerr.Particle)
	assert.InDelta(t, -1, jerr.Jacobian, 1e-12)
	assert.True(t, errors.Is(err, ErrNegativeJacobian))

	assert.Equal(t, dw.Identity(), ps.F[1])
	assert.Equal(t, 0.5, ps.Vol[1])
}

func TestUpdateStress(t *testing.T) {
	ps := particles(t, 1)
	m, err := New(0, "body", steel, LinearElastic{})
	require.NoError(t, err)

	dt := 1e-3
	ps.L[0] = dw.Tensor{1, 0, 0, 0}
	require.NoError(t, m.CheckDeformation(ps, dt))
	m.UpdateStress(ps, dt)

	assert.InDelta(t, 1+dt, ps.F[0][0], 1e-15)
	assert.InDelta(t, (1+dt)*0.5, ps.Vol[0], 1e-15)
	lam, mu := steel.Lame()
	assert.InDelta(t, (lam+2*mu)*dt, ps.Stress[0][0], 1e-6)
}
