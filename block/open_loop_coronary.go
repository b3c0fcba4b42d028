package block

import (
	"github.com/cpmech/zerod/dof"
	"github.com/cpmech/zerod/sparse"
)

func init() {
	SetAllocator("CORONARY", func(name string, inlet, outlet []string, paramIDs []int) Block {
		return NewOpenLoopCoronaryBC(name, inlet, paramIDs)
	})
}

// OpenLoopCoronaryBC parameter ordinals, grounded on
// original_source/src/model/OpenLoopCoronaryBC.cpp's global_param_ids
// usage (which does not match the doc comment's construction-parameter
// names one-for-one; the .cpp body is authoritative).
const (
	OpenLoopCoronaryRa = iota
	OpenLoopCoronaryRam
	OpenLoopCoronaryRv
	OpenLoopCoronaryCa
	OpenLoopCoronaryCim
	OpenLoopCoronaryPim
	OpenLoopCoronaryPv
)

// OpenLoopCoronaryBC models a coronary vascular bed driven by an
// externally specified intramyocardial pressure, grounded on
// original_source/src/model/OpenLoopCoronaryBC.{h,cpp} (Kim et al.
// coronary model).
//
// Local variables: [p_in(0), q_in(1), volume_im(2)].
type OpenLoopCoronaryBC struct {
	Base

	steady bool

	// pCim0 and pim0 are derived once from the initial state by
	// SetupInitialStateDependentParams and held fixed thereafter.
	pCim0 float64
	pim0  float64
}

// NewOpenLoopCoronaryBC builds an open-loop coronary BC at
// inletNodes[0], with paramIDs in
// [Ra, Ram, Rv, Ca, Cim, Pim, Pv] order.
func NewOpenLoopCoronaryBC(name string, inletNodes []string, paramIDs []int) *OpenLoopCoronaryBC {
	return &OpenLoopCoronaryBC{Base: newBase(name, "CORONARY", inletNodes, nil, []string{"volume_im"}, paramIDs)}
}

// SetupDofs registers the two governing equations.
func (b *OpenLoopCoronaryBC) SetupDofs(reg *dof.Registry) error { return b.setupDofs(reg, 2) }

// Schema reports the [Ra, Ram, Rv, Ca, Cim, Pim, Pv] declaration, with
// Pim flagged optional. SetupInitialStateDependentParams reads Pim; it
// does not derive it.
func (b *OpenLoopCoronaryBC) Schema() Schema {
	s := ordinalSchema("Ra", "Ram", "Rv", "Ca", "Cim", "Pim", "Pv")
	s[OpenLoopCoronaryPim].Optional = true
	return s
}

// TripletBudget reports this block's sparse reservation, sized for the
// (larger) non-steady form.
func (b *OpenLoopCoronaryBC) TripletBudget() sparse.TripletBudget {
	return sparse.TripletBudget{F: 5, E: 4}
}

// SetSteady switches between the unsteady RLC-like form and the
// degenerate pure-resistance form used while solving for a steady
// initial condition.
func (b *OpenLoopCoronaryBC) SetSteady(steady bool) { b.steady = steady }

// SetupInitialStateDependentParams derives the initial intramyocardial
// and pre-capacitor pressures from the initial state, held fixed for
// the remainder of the simulation.
func (b *OpenLoopCoronaryBC) SetupInitialStateDependentParams(y, ydot []float64, params []float64) {
	pIn := y[b.Var(0)]
	qIn := y[b.Var(1)]
	pInDot := ydot[b.Var(0)]
	qInDot := ydot[b.Var(1)]
	Ra := b.P(params, OpenLoopCoronaryRa)
	Ram := b.P(params, OpenLoopCoronaryRam)
	Ca := b.P(params, OpenLoopCoronaryCa)

	pCa := pIn - Ra*qIn
	pCaDot := pInDot - Ra*qInDot
	qAm := qIn - Ca*pCaDot
	b.pCim0 = pCa - Ram*qAm
	b.pim0 = b.P(params, OpenLoopCoronaryPim)
}

// UpdateConstant writes either the degenerate steady form or the full
// RLC-like form, depending on SetSteady.
func (b *OpenLoopCoronaryBC) UpdateConstant(sys *sparse.System, params []float64) {
	Ra := b.P(params, OpenLoopCoronaryRa)
	Ram := b.P(params, OpenLoopCoronaryRam)
	Rv := b.P(params, OpenLoopCoronaryRv)
	Ca := b.P(params, OpenLoopCoronaryCa)
	Cim := b.P(params, OpenLoopCoronaryCim)

	eq0, eq1 := b.Eqn(0), b.Eqn(1)
	pIn, qIn, volIm := b.Var(0), b.Var(1), b.Var(2)

	if b.steady {
		sys.PutF(eq0, volIm, 1.0)
		sys.PutF(eq1, pIn, -1.0)
		sys.PutF(eq1, qIn, Ra+Ram+Rv)
		return
	}

	sys.PutF(eq0, qIn, Cim*Rv)
	sys.PutF(eq0, volIm, -1.0)
	sys.PutF(eq1, pIn, Cim*Rv)
	sys.PutF(eq1, qIn, -Cim*Rv*Ra)
	sys.PutF(eq1, volIm, -(Rv + Ram))

	sys.PutE(eq0, pIn, -Ca*Cim*Rv)
	sys.PutE(eq0, qIn, Ra*Ca*Cim*Rv)
	sys.PutE(eq0, volIm, -Cim*Rv)
	sys.PutE(eq1, volIm, -Cim*Rv*Ram)
}

// UpdateTime writes the intramyocardial and venous pressure
// contributions, again branching on SetSteady.
func (b *OpenLoopCoronaryBC) UpdateTime(sys *sparse.System, t float64, params []float64) {
	Ram := b.P(params, OpenLoopCoronaryRam)
	Rv := b.P(params, OpenLoopCoronaryRv)
	Cim := b.P(params, OpenLoopCoronaryCim)
	Pim := b.P(params, OpenLoopCoronaryPim)
	Pv := b.P(params, OpenLoopCoronaryPv)

	eq0, eq1 := b.Eqn(0), b.Eqn(1)

	if b.steady {
		sys.SetC(eq1, Pv)
		return
	}

	sys.SetC(eq0, Cim*(-Pim+Pv+b.pim0-b.pCim0))
	sys.SetC(eq1, (Ram*Cim*Pv)-Cim*(Rv+Ram)*(Pim+b.pCim0-b.pim0))
}

// UpdateSolution is a no-op: OpenLoopCoronaryBC is purely linear given
// its current steady/unsteady form.
func (b *OpenLoopCoronaryBC) UpdateSolution(sys *sparse.System, params []float64, y, ydot []float64) {
}
