package block

import (
	"github.com/cpmech/zerod/dof"
	"github.com/cpmech/zerod/sparse"
)

func init() {
	SetAllocator("RCR", func(name string, inlet, outlet []string, paramIDs []int) Block {
		return NewWindkesselBC(name, inlet, paramIDs)
	})
}

// WindkesselBC parameter ordinals, grounded on WindkesselBC.cpp: proximal
// resistance, capacitance, distal resistance, distal pressure. Model's
// to_steady caches and zeroes the capacitance at ordinal 1.
const (
	WindkesselRp = iota
	WindkesselC
	WindkesselRd
	WindkesselPd
)

// WindkesselBC is a three-element Windkessel boundary condition with an
// internal capacitor node, grounded on
// original_source/src/model/WindkesselBC.cpp.
//
// Local variables: [p_in(0), q_in(1), pressure_c(2)].
type WindkesselBC struct {
	Base
}

// NewWindkesselBC builds a Windkessel BC at inletNodes[0], with paramIDs
// in [Rp, C, Rd, Pd] order.
func NewWindkesselBC(name string, inletNodes []string, paramIDs []int) *WindkesselBC {
	return &WindkesselBC{Base: newBase(name, "RCR", inletNodes, nil, []string{"pressure_c"}, paramIDs)}
}

// SetupDofs registers the flow-continuity and capacitor-node equations.
func (b *WindkesselBC) SetupDofs(reg *dof.Registry) error { return b.setupDofs(reg, 2) }

// Schema reports the [R_p, C, R_d, P_d] declaration.
func (b *WindkesselBC) Schema() Schema { return ordinalSchema("Rp", "C", "Rd", "Pd") }

// TripletBudget reports this block's sparse reservation.
func (b *WindkesselBC) TripletBudget() sparse.TripletBudget {
	return sparse.TripletBudget{F: 5, E: 1}
}

// UpdateConstant writes the coupling of the node to the internal
// capacitor pressure.
func (b *WindkesselBC) UpdateConstant(sys *sparse.System, params []float64) {
	sys.PutF(b.Eqn(0), b.Var(0), 1.0)
	sys.PutF(b.Eqn(0), b.Var(2), -1.0)
	sys.PutF(b.Eqn(1), b.Var(2), -1.0)
}

// UpdateTime writes the proximal/distal resistances and distal
// pressure, all of which may be time-varying parameters.
func (b *WindkesselBC) UpdateTime(sys *sparse.System, t float64, params []float64) {
	Rp := b.P(params, WindkesselRp)
	C := b.P(params, WindkesselC)
	Rd := b.P(params, WindkesselRd)
	Pd := b.P(params, WindkesselPd)

	sys.PutE(b.Eqn(1), b.Var(2), -Rd*C)
	sys.PutF(b.Eqn(0), b.Var(1), -Rp)
	sys.PutF(b.Eqn(1), b.Var(1), Rd)
	sys.SetC(b.Eqn(1), Pd)
}

// UpdateSolution is a no-op: WindkesselBC is purely linear.
func (b *WindkesselBC) UpdateSolution(sys *sparse.System, params []float64, y, ydot []float64) {}
