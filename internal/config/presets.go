package config

import (
	"sort"

	"github.com/san-kum/mpm/internal/material"
)

var (
	elastic = material.Props{Modulus: 1000, Poisson: 0.3, Density: 1000}
	jelly   = material.Props{Modulus: 1e5, Poisson: 0.3, Density: 1000}
	steel   = material.Props{Modulus: 1.24e6, Poisson: 0.3, Density: 8e3}
	anvil   = material.Props{Modulus: 1.24e9, Poisson: 0.3, Density: 8e8}
)

// Presets are ready-made scenarios, keyed by name.
var Presets = map[string]*Scenario{
	"single": {
		Name:   "single",
		Domain: DomainConfig{X0: [2]float64{0, -0.1}, X1: [2]float64{1, 1}, Cells: [2]int{10, 11}, Ghost: 2, Thick: 1, PPC: 4},
		Kernel: "gimp", CFL: 0.2, Tf: 0.5, OutputInterval: 0.05, FLIP: 1,
		Materials: []MaterialConfig{{
			Name: "disk", Model: "linear", Props: jelly,
			Shape:   ShapeConfig{Type: "circle", Center: [2]float64{0.5, 0.3}, Radius: 0.2},
			Gravity: [2]float64{0, -9.8},
		}},
		Boundaries: []BoundaryConfig{{Axis: "y", Threshold: 0, Side: "below", Field: "velocity"}},
		Track:      &TrackConfig{Material: "disk", Point: [2]float64{0.5, 0.3}},
	},
	"collide": {
		Name:   "collide",
		Domain: DomainConfig{X1: [2]float64{1, 1}, Cells: [2]int{20, 20}, Ghost: 2, Thick: 1, PPC: 4},
		Kernel: "gimp", CFL: 0.2, Tf: 3, OutputInterval: 0.1, FLIP: 1,
		Materials: []MaterialConfig{
			{
				Name: "left", Model: "linear", Props: elastic,
				Shape:    ShapeConfig{Type: "circle", Center: [2]float64{0.25, 0.25}, Radius: 0.2},
				Velocity: [2]float64{0.1, 0.1},
			},
			{
				Name: "right", Model: "linear", Props: elastic,
				Shape:    ShapeConfig{Type: "circle", Center: [2]float64{0.75, 0.75}, Radius: 0.2},
				Velocity: [2]float64{-0.1, -0.1},
			},
		},
		Contacts: []ContactConfig{{A: "left", B: "right", Mu: 0, Policy: "averaged"}},
		Track:    &TrackConfig{Material: "left", Point: [2]float64{0.25, 0.25}},
	},
	"bounce": {
		Name:   "bounce",
		Domain: DomainConfig{X1: [2]float64{0.3, 0.3}, Cells: [2]int{30, 30}, Ghost: 2, Thick: 0.02, PPC: 4},
		Kernel: "gimp", CFL: 0.15, Tf: 2, OutputInterval: 0.01, FLIP: 1,
		Materials: []MaterialConfig{
			{
				Name: "cylinder1", Model: "neohookean", Props: steel, Normal: "levelset",
				Shape:   ShapeConfig{Type: "circle", Center: [2]float64{0.081, 0.2295}, Radius: 0.0405},
				Gravity: [2]float64{0, -9.8},
			},
			{
				Name: "cylinder2", Model: "neohookean", Props: steel, Normal: "levelset",
				Shape:   ShapeConfig{Type: "circle", Center: [2]float64{0.2025, 0.2295}, Radius: 0.0405},
				Gravity: [2]float64{0, -9.8},
			},
			{
				Name: "plane", Model: "neohookean", Props: anvil, Normal: "levelset",
				Shape: ShapeConfig{Type: "halfplane", Point: [2]float64{0, 0.018}, Dir: [2]float64{0, 1}},
			},
		},
		Contacts: []ContactConfig{
			{A: "plane", B: "cylinder1", Mu: 0.5, Policy: "onesided"},
			{A: "plane", B: "cylinder2", Mu: 0.5, Policy: "averaged"},
		},
		Boundaries: []BoundaryConfig{{Axis: "y", Threshold: 0, Side: "below", Field: "velocity"}},
		Track:      &TrackConfig{Material: "cylinder1", Point: [2]float64{0.081, 0.2295}},
	},
	"block": {
		Name:   "block",
		Domain: DomainConfig{X1: [2]float64{2, 1}, Cells: [2]int{16, 8}, Ghost: 1, Thick: 1, PPC: 4},
		Kernel: "linear", CFL: 0.3, Tf: 1, OutputInterval: 0.05, FLIP: 0.95,
		Materials: []MaterialConfig{{
			Name: "block", Model: "neohookean", Props: jelly,
			Shape:   ShapeConfig{Type: "box", Min: [2]float64{0.75, 0}, Max: [2]float64{1.25, 0.5}},
			Gravity: [2]float64{0, -9.8},
		}},
		Boundaries: []BoundaryConfig{{Axis: "y", Threshold: 0, Side: "below", Field: "velocity"}},
		Track:      &TrackConfig{Material: "block", Point: [2]float64{1, 0.5}},
	},
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(name string) *Scenario {
	p, ok := Presets[name]
	if !ok {
		return nil
	}
	s := *p
	s.Materials = append([]MaterialConfig(nil), p.Materials...)
	s.Contacts = append([]ContactConfig(nil), p.Contacts...)
	s.Boundaries = append([]BoundaryConfig(nil), p.Boundaries...)
	if p.Track != nil {
		tr := *p.Track
		s.Track = &tr
	}
	return &s
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
