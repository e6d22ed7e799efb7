package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/san-kum/mpm/internal/bc"
	"github.com/san-kum/mpm/internal/contact"
	"github.com/san-kum/mpm/internal/geom"
	"github.com/san-kum/mpm/internal/material"
	"github.com/san-kum/mpm/internal/shape"
	"gonum.org/v1/gonum/spatial/r2"
	"gopkg.in/yaml.v3"
)

const (
	DefaultKernel   = "gimp"
	DefaultCFL      = 0.2
	DefaultFinal    = 1.0
	DefaultPPC      = 4
	DefaultGhost    = 2
	DefaultFLIP     = 1.0
	DefaultInterval = 0.05
)

var ErrInvalidScenario = errors.New("config: invalid scenario")

type Scenario struct {
	Name           string           `yaml:"name"`
	Domain         DomainConfig     `yaml:"domain"`
	Kernel         string           `yaml:"kernel"`
	Dt             float64          `yaml:"dt"`
	CFL            float64          `yaml:"cfl"`
	T0             float64          `yaml:"t0"`
	Tf             float64          `yaml:"tf"`
	OutputInterval float64          `yaml:"output_interval"`
	FLIP           float64          `yaml:"flip"`
	Materials      []MaterialConfig `yaml:"materials"`
	Contacts       []ContactConfig  `yaml:"contacts,omitempty"`
	Boundaries     []BoundaryConfig `yaml:"boundaries,omitempty"`
	Track          *TrackConfig     `yaml:"track,omitempty"`
}

type DomainConfig struct {
	X0    [2]float64 `yaml:"x0"`
	X1    [2]float64 `yaml:"x1"`
	Cells [2]int     `yaml:"cells"`
	Ghost int        `yaml:"ghost"`
	Thick float64    `yaml:"thick"`
	PPC   int        `yaml:"ppc"`
}

type MaterialConfig struct {
	Name     string         `yaml:"name"`
	Model    string         `yaml:"model"`
	Props    material.Props `yaml:",inline"`
	Shape    ShapeConfig    `yaml:"shape"`
	Velocity [2]float64     `yaml:"velocity"`
	Gravity  [2]float64     `yaml:"gravity"`
	// Normal selects the contact normal source: "levelset" or "gradient".
	Normal string `yaml:"normal,omitempty"`
}

// ShapeConfig describes a level set. Type is circle, box or halfplane.
type ShapeConfig struct {
	Type   string     `yaml:"type"`
	Center [2]float64 `yaml:"center,omitempty"`
	Radius float64    `yaml:"radius,omitempty"`
	Min    [2]float64 `yaml:"min,omitempty"`
	Max    [2]float64 `yaml:"max,omitempty"`
	Point  [2]float64 `yaml:"point,omitempty"`
	Dir    [2]float64 `yaml:"normal,omitempty"`
}

// ContactConfig pairs two materials by name. Mu may be .inf for no-slip.
type ContactConfig struct {
	A      string  `yaml:"a"`
	B      string  `yaml:"b"`
	Mu     float64 `yaml:"mu"`
	Policy string  `yaml:"policy,omitempty"`
}

// BoundaryConfig prescribes a node field on a plane. Side "below" or
// "above" extends it over the nodes past the plane, which is how a closed
// floor or wall is built.
type BoundaryConfig struct {
	Axis      string     `yaml:"axis"`
	Threshold float64    `yaml:"threshold"`
	Side      string     `yaml:"side,omitempty"`
	Field     string     `yaml:"field"`
	Materials []string   `yaml:"materials,omitempty"` // empty means all
	Value     [2]float64 `yaml:"value"`
}

// TrackConfig names a point whose nearest particle is followed for the
// displacement series.
type TrackConfig struct {
	Material string     `yaml:"material"`
	Point    [2]float64 `yaml:"point"`
}

func DefaultScenario() *Scenario {
	return &Scenario{
		Name: "custom",
		Domain: DomainConfig{
			X1:    [2]float64{1, 1},
			Cells: [2]int{20, 20},
			Ghost: DefaultGhost,
			Thick: 1,
			PPC:   DefaultPPC,
		},
		Kernel:         DefaultKernel,
		CFL:            DefaultCFL,
		Tf:             DefaultFinal,
		OutputInterval: DefaultInterval,
		FLIP:           DefaultFLIP,
	}
}

// Load reads a scenario file. .gcfg and .ini files use the INI format, all
// others YAML.
func Load(path string) (*Scenario, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gcfg", ".ini":
		return LoadGcfg(path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s := DefaultScenario()
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

func Save(path string, s *Scenario) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func vec(a [2]float64) r2.Vec { return r2.Vec{X: a[0], Y: a[1]} }

// MaterialIndex returns the position of the named material.
func (s *Scenario) MaterialIndex(name string) (int, bool) {
	for i, m := range s.Materials {
		if m.Name == name {
			return i, true
		}
	}
	return 0, false
}

func (s *Scenario) invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidScenario, s.Name, fmt.Sprintf(format, args...))
}

func (s *Scenario) Validate() error {
	d := s.Domain
	if d.X1[0] <= d.X0[0] || d.X1[1] <= d.X0[1] {
		return s.invalid("domain upper corner %v not above %v", d.X1, d.X0)
	}
	if d.Cells[0] <= 0 || d.Cells[1] <= 0 {
		return s.invalid("cell counts must be positive, got %v", d.Cells)
	}
	if d.PPC <= 0 {
		return s.invalid("particles per cell must be positive, got %d", d.PPC)
	}
	k, err := shape.ByName(s.Kernel, d.PPC)
	if err != nil {
		return s.invalid("%v", err)
	}
	if d.Ghost < k.Ghost() {
		return s.invalid("kernel %s needs %d ghost layers, got %d", k.Name(), k.Ghost(), d.Ghost)
	}
	if s.Dt < 0 || (s.Dt == 0 && s.CFL <= 0) {
		return s.invalid("need a positive dt or cfl")
	}
	if s.Tf <= s.T0 {
		return s.invalid("final time %g not after start %g", s.Tf, s.T0)
	}
	if s.OutputInterval < 0 {
		return s.invalid("negative output interval")
	}
	if s.FLIP < 0 || s.FLIP > 1 {
		return s.invalid("flip fraction %g outside [0, 1]", s.FLIP)
	}
	if len(s.Materials) == 0 {
		return s.invalid("no materials")
	}

	names := make(map[string]bool)
	for _, m := range s.Materials {
		if m.Name == "" || names[m.Name] {
			return s.invalid("material names must be unique and non-empty, got %q", m.Name)
		}
		names[m.Name] = true
		if _, err := material.ModelByName(m.Model); err != nil {
			return s.invalid("material %q: %v", m.Name, err)
		}
		if err := m.Props.Validate(); err != nil {
			return s.invalid("material %q: %v", m.Name, err)
		}
		if _, err := m.Shape.LevelSet(); err != nil {
			return s.invalid("material %q: %v", m.Name, err)
		}
		switch m.Normal {
		case "", "gradient", "levelset":
		default:
			return s.invalid("material %q: unknown normal source %q", m.Name, m.Normal)
		}
	}
	for _, c := range s.Contacts {
		if !names[c.A] || !names[c.B] || c.A == c.B {
			return s.invalid("contact %s/%s needs two distinct known materials", c.A, c.B)
		}
		if c.Mu < 0 || math.IsNaN(c.Mu) {
			return s.invalid("contact %s/%s: friction %g", c.A, c.B, c.Mu)
		}
		if _, err := contact.ParsePolicy(c.Policy); err != nil {
			return s.invalid("%v", err)
		}
	}
	for _, b := range s.Boundaries {
		if _, err := bc.ParseAxis(b.Axis); err != nil {
			return s.invalid("%v", err)
		}
		if _, err := bc.ParseField(b.Field); err != nil {
			return s.invalid("%v", err)
		}
		if _, err := bc.ParseSide(b.Side); err != nil {
			return s.invalid("%v", err)
		}
		for _, m := range b.Materials {
			if !names[m] {
				return s.invalid("boundary names unknown material %q", m)
			}
		}
	}
	if s.Track != nil && !names[s.Track.Material] {
		return s.invalid("track names unknown material %q", s.Track.Material)
	}
	if _, err := s.TimeStep(); err != nil {
		return err
	}
	return nil
}

// TimeStep returns dt, or derives it from the CFL number and the fastest
// material wave speed when dt is zero.
func (s *Scenario) TimeStep() (float64, error) {
	if s.Dt > 0 {
		return s.Dt, nil
	}
	c := 0.0
	for _, m := range s.Materials {
		c = math.Max(c, m.Props.WaveSpeed())
	}
	if c == 0 {
		return 0, s.invalid("no material has a wave speed to derive dt from")
	}
	dx := math.Min(
		(s.Domain.X1[0]-s.Domain.X0[0])/float64(s.Domain.Cells[0]),
		(s.Domain.X1[1]-s.Domain.X0[1])/float64(s.Domain.Cells[1]),
	)
	return s.CFL * dx / c, nil
}

func (c ShapeConfig) LevelSet() (geom.LevelSet, error) {
	switch strings.ToLower(c.Type) {
	case "circle":
		if c.Radius <= 0 {
			return nil, fmt.Errorf("circle radius must be positive, got %g", c.Radius)
		}
		return geom.Circle{Center: vec(c.Center), Radius: c.Radius}, nil
	case "box":
		if c.Max[0] <= c.Min[0] || c.Max[1] <= c.Min[1] {
			return nil, fmt.Errorf("box max %v not above min %v", c.Max, c.Min)
		}
		return geom.Box{Min: vec(c.Min), Max: vec(c.Max)}, nil
	case "halfplane":
		if c.Dir == [2]float64{} {
			return nil, fmt.Errorf("half plane needs a normal")
		}
		return geom.HalfPlane{Point: vec(c.Point), N: vec(c.Dir)}, nil
	}
	return nil, fmt.Errorf("unknown shape %q", c.Type)
}
