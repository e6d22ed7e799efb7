package dw

import "gonum.org/v1/gonum/spatial/r2"

// NodeSet is the grid state of one material. Every field is rebuilt from the
// particles at the start of each step.
type NodeSet struct {
	Mass      []float64
	Momentum  []r2.Vec
	Velocity  []r2.Vec
	Velocity0 []r2.Vec // velocity before forces were applied
	Accel     []r2.Vec
	Fint      []r2.Vec
	Fext      []r2.Vec
	Normal    []r2.Vec // mass gradient
}

func newNodeSet(n int) *NodeSet {
	return &NodeSet{
		Mass:      make([]float64, n),
		Momentum:  make([]r2.Vec, n),
		Velocity:  make([]r2.Vec, n),
		Velocity0: make([]r2.Vec, n),
		Accel:     make([]r2.Vec, n),
		Fint:      make([]r2.Vec, n),
		Fext:      make([]r2.Vec, n),
		Normal:    make([]r2.Vec, n),
	}
}

func (ns *NodeSet) Len() int { return len(ns.Mass) }

// Zero clears every field.
func (ns *NodeSet) Zero() {
	clear(ns.Mass)
	clear(ns.Momentum)
	clear(ns.Velocity)
	clear(ns.Velocity0)
	clear(ns.Accel)
	clear(ns.Fint)
	clear(ns.Fext)
	clear(ns.Normal)
}

func (ns *NodeSet) clone() *NodeSet {
	return &NodeSet{
		Mass:      append([]float64(nil), ns.Mass...),
		Momentum:  append([]r2.Vec(nil), ns.Momentum...),
		Velocity:  append([]r2.Vec(nil), ns.Velocity...),
		Velocity0: append([]r2.Vec(nil), ns.Velocity0...),
		Accel:     append([]r2.Vec(nil), ns.Accel...),
		Fint:      append([]r2.Vec(nil), ns.Fint...),
		Fext:      append([]r2.Vec(nil), ns.Fext...),
		Normal:    append([]r2.Vec(nil), ns.Normal...),
	}
}
