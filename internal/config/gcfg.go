package config

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/san-kum/mpm/internal/material"
	"gopkg.in/gcfg.v1"
)

// ExampleGcfgFile documents the INI scenario format.
const ExampleGcfgFile = `[Run]
Name = bounce
# linear or gimp
Kernel = gimp
# Dt = 0 derives the step from Cfl and the stiffest material.
Cfl = 0.15
Tf = 2
OutputInterval = 0.01
Flip = 1

[Domain]
X0 = 0
Y0 = 0
X1 = 0.3
Y1 = 0.3
CellsX = 30
CellsY = 30
Ghost = 2
Thick = 0.02
Ppc = 4

# Materials are indexed by Order, then by name.
[Material "plane"]
Order = 0
Model = neohookean
Modulus = 1.24e9
Poisson = 0.3
Density = 8e8
Shape = halfplane
Py = 0.018
Ny = 1
Normal = levelset

[Material "cylinder"]
Order = 1
Model = neohookean
Modulus = 1.24e6
Poisson = 0.3
Density = 8e3
Shape = circle
Cx = 0.081
Cy = 0.2295
Radius = 0.0405
Gy = -9.8
Normal = levelset

[Contact "floor"]
A = plane
B = cylinder
Mu = 0.5
Policy = onesided

[Boundary "bottom"]
Axis = y
Threshold = 0
Side = below
Field = velocity
# repeat Material for several, omit for all
Material = plane
Material = cylinder

[Track]
Material = cylinder
X = 0.081
Y = 0.2295
`

type gcfgFile struct {
	Run struct {
		Name           string
		Kernel         string
		Dt             float64
		Cfl            float64
		T0             float64
		Tf             float64
		OutputInterval float64
		Flip           float64
	}
	Domain struct {
		X0, Y0, X1, Y1 float64
		CellsX, CellsY int
		Ghost          int
		Thick          float64
		Ppc            int
	}
	Material map[string]*gcfgMaterial
	Contact  map[string]*gcfgContact
	Boundary map[string]*gcfgBoundary
	Track    struct {
		Material string
		X, Y     float64
	}
}

type gcfgMaterial struct {
	Order                  int
	Model                  string
	Modulus                float64
	Poisson                float64
	Density                float64
	Shape                  string
	Cx, Cy, Radius         float64
	MinX, MinY, MaxX, MaxY float64
	Px, Py, Nx, Ny         float64
	Vx, Vy, Gx, Gy         float64
	Normal                 string
}

type gcfgContact struct {
	A, B   string
	Mu     string
	Policy string
}

type gcfgBoundary struct {
	Axis      string
	Threshold float64
	Side      string
	Field     string
	Material  []string
	Vx, Vy    float64
}

// LoadGcfg reads an INI scenario file.
func LoadGcfg(path string) (*Scenario, error) {
	def := DefaultScenario()

	var f gcfgFile
	f.Run.Name = def.Name
	f.Run.Kernel = def.Kernel
	f.Run.Cfl = def.CFL
	f.Run.Tf = def.Tf
	f.Run.OutputInterval = def.OutputInterval
	f.Run.Flip = def.FLIP
	f.Domain.X1, f.Domain.Y1 = def.Domain.X1[0], def.Domain.X1[1]
	f.Domain.CellsX, f.Domain.CellsY = def.Domain.Cells[0], def.Domain.Cells[1]
	f.Domain.Ghost = def.Domain.Ghost
	f.Domain.Thick = def.Domain.Thick
	f.Domain.Ppc = def.Domain.PPC

	if err := gcfg.ReadFileInto(&f, path); err != nil {
		return nil, err
	}
	return f.scenario()
}

func (f *gcfgFile) scenario() (*Scenario, error) {
	s := &Scenario{
		Name:           f.Run.Name,
		Kernel:         f.Run.Kernel,
		Dt:             f.Run.Dt,
		CFL:            f.Run.Cfl,
		T0:             f.Run.T0,
		Tf:             f.Run.Tf,
		OutputInterval: f.Run.OutputInterval,
		FLIP:           f.Run.Flip,
		Domain: DomainConfig{
			X0:    [2]float64{f.Domain.X0, f.Domain.Y0},
			X1:    [2]float64{f.Domain.X1, f.Domain.Y1},
			Cells: [2]int{f.Domain.CellsX, f.Domain.CellsY},
			Ghost: f.Domain.Ghost,
			Thick: f.Domain.Thick,
			PPC:   f.Domain.Ppc,
		},
	}

	names := make([]string, 0, len(f.Material))
	for name := range f.Material {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		oi, oj := f.Material[names[i]].Order, f.Material[names[j]].Order
		if oi != oj {
			return oi < oj
		}
		return names[i] < names[j]
	})
	for _, name := range names {
		s.Materials = append(s.Materials, f.Material[name].config(name))
	}

	for _, name := range sortedKeys(f.Contact) {
		c := f.Contact[name]
		mu := 0.0
		if c.Mu != "" {
			v, err := strconv.ParseFloat(strings.TrimSpace(c.Mu), 64)
			if err != nil {
				return nil, fmt.Errorf("%w: contact %q: friction %q", ErrInvalidScenario, name, c.Mu)
			}
			mu = v
		}
		s.Contacts = append(s.Contacts, ContactConfig{A: c.A, B: c.B, Mu: mu, Policy: c.Policy})
	}

	for _, name := range sortedKeys(f.Boundary) {
		b := f.Boundary[name]
		s.Boundaries = append(s.Boundaries, BoundaryConfig{
			Axis:      b.Axis,
			Threshold: b.Threshold,
			Side:      b.Side,
			Field:     b.Field,
			Materials: b.Material,
			Value:     [2]float64{b.Vx, b.Vy},
		})
	}

	if f.Track.Material != "" {
		s.Track = &TrackConfig{Material: f.Track.Material, Point: [2]float64{f.Track.X, f.Track.Y}}
	}
	return s, nil
}

func (m *gcfgMaterial) config(name string) MaterialConfig {
	return MaterialConfig{
		Name:  name,
		Model: m.Model,
		Props: material.Props{Modulus: m.Modulus, Poisson: m.Poisson, Density: m.Density},
		Shape: ShapeConfig{
			Type:   m.Shape,
			Center: [2]float64{m.Cx, m.Cy},
			Radius: m.Radius,
			Min:    [2]float64{m.MinX, m.MinY},
			Max:    [2]float64{m.MaxX, m.MaxY},
			Point:  [2]float64{m.Px, m.Py},
			Dir:    [2]float64{m.Nx, m.Ny},
		},
		Velocity: [2]float64{m.Vx, m.Vy},
		Gravity:  [2]float64{m.Gx, m.Gy},
		Normal:   m.Normal,
	}
}

func sortedKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
