package block

import (
	"github.com/cpmech/zerod/dof"
	"github.com/cpmech/zerod/sparse"
)

func init() {
	SetAllocator("ClosedLoopRCR", func(name string, inlet, outlet []string, paramIDs []int) Block {
		return NewClosedLoopRCRBC(name, inlet, outlet, paramIDs)
	})
}

// ClosedLoopRCRBC parameter ordinals, grounded on ClosedLoopRCRBC.h.
const (
	ClosedLoopRCRRp = iota
	ClosedLoopRCRC
	ClosedLoopRCRRd
)

// ClosedLoopRCRBC is a three-element Windkessel connected to other
// blocks on both sides, grounded on
// original_source/src/model/ClosedLoopRCRBC.cpp.
//
// Local variables: [p_in(0), q_in(1), p_out(2), q_out(3), P_c(4)].
type ClosedLoopRCRBC struct {
	Base
}

// NewClosedLoopRCRBC builds a closed-loop RCR BC with paramIDs in
// [Rp, C, Rd] order.
func NewClosedLoopRCRBC(name string, inletNodes, outletNodes []string, paramIDs []int) *ClosedLoopRCRBC {
	return &ClosedLoopRCRBC{Base: newBase(name, "ClosedLoopRCR", inletNodes, outletNodes, []string{"P_c"}, paramIDs)}
}

// SetupDofs registers the three governing equations.
func (b *ClosedLoopRCRBC) SetupDofs(reg *dof.Registry) error { return b.setupDofs(reg, 3) }

// Schema reports the [Rp, C, Rd] declaration.
func (b *ClosedLoopRCRBC) Schema() Schema { return ordinalSchema("Rp", "C", "Rd") }

// TripletBudget reports this block's sparse reservation.
func (b *ClosedLoopRCRBC) TripletBudget() sparse.TripletBudget {
	return sparse.TripletBudget{F: 8, E: 1}
}

// UpdateConstant writes all of this block's entries: unlike
// WindkesselBC, the closed-loop variant's resistances are not
// time-varying (matching the original's comment that unsteady Rp/Rd are
// "not currently implemented").
func (b *ClosedLoopRCRBC) UpdateConstant(sys *sparse.System, params []float64) {
	eq0, eq1, eq2 := b.Eqn(0), b.Eqn(1), b.Eqn(2)
	pIn, qIn, pOut, qOut, pC := b.Var(0), b.Var(1), b.Var(2), b.Var(3), b.Var(4)

	sys.PutF(eq0, qIn, -1.0)
	sys.PutF(eq0, qOut, 1.0)
	sys.PutF(eq1, pIn, 1.0)
	sys.PutF(eq1, pC, -1.0)
	sys.PutF(eq2, pOut, -1.0)
	sys.PutF(eq2, pC, 1.0)

	sys.PutE(eq0, pC, b.P(params, ClosedLoopRCRC))
	sys.PutF(eq1, qIn, -b.P(params, ClosedLoopRCRRp))
	sys.PutF(eq2, qOut, -b.P(params, ClosedLoopRCRRd))
}

// UpdateTime is a no-op.
func (b *ClosedLoopRCRBC) UpdateTime(sys *sparse.System, t float64, params []float64) {}

// UpdateSolution is a no-op: ClosedLoopRCRBC is purely linear.
func (b *ClosedLoopRCRBC) UpdateSolution(sys *sparse.System, params []float64, y, ydot []float64) {}
