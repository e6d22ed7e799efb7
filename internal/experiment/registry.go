package experiment

import (
	"sort"

	"github.com/san-kum/mpm/internal/material"
	"github.com/san-kum/mpm/internal/metrics"
	"github.com/san-kum/mpm/internal/mpm"
	"github.com/san-kum/mpm/internal/shape"
)

// MinJacobian is the compression below which a state counts as a violation
// in the default metrics.
const MinJacobian = 0.5

// Registry resolves the named parts of a scenario. Models and kernels go
// through material.ModelByName and shape.ByName, the same lookups
// config.Scenario.Validate uses, so a name either builds or fails
// validation.
type Registry struct {
	metrics map[string]func() mpm.Metric
}

func NewRegistry() *Registry {
	r := &Registry{metrics: make(map[string]func() mpm.Metric)}

	r.metrics["kinetic_energy"] = func() mpm.Metric { return metrics.NewKineticEnergy() }
	r.metrics["momentum_drift"] = func() mpm.Metric { return metrics.NewMomentumDrift() }
	r.metrics["min_jacobian"] = func() mpm.Metric { return metrics.NewCompression(MinJacobian) }

	return r
}

func (r *Registry) GetModel(name string) (material.Model, error) {
	return material.ModelByName(name)
}

func (r *Registry) GetKernel(name string, ppc int) (shape.Kernel, error) {
	return shape.ByName(name, ppc)
}

func (r *Registry) ListModels() []string { return material.ModelNames() }

func (r *Registry) ListKernels() []string { return shape.Names() }

func (r *Registry) ListMetrics() []string { return sortedKeys(r.metrics) }

// DefaultMetrics builds one of each registered metric, in name order.
func (r *Registry) DefaultMetrics() []mpm.Metric {
	out := make([]mpm.Metric, 0, len(r.metrics))
	for _, name := range r.ListMetrics() {
		out = append(out, r.metrics[name]())
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
