package block

import (
	"github.com/cpmech/zerod/dof"
	"github.com/cpmech/zerod/sparse"
)

func init() {
	SetAllocator("FLOW", func(name string, inlet, outlet []string, paramIDs []int) Block {
		return NewFlowReferenceBC(name, inlet, paramIDs)
	})
	SetAllocator("PRESSURE", func(name string, inlet, outlet []string, paramIDs []int) Block {
		return NewPressureReferenceBC(name, inlet, paramIDs)
	})
	SetAllocator("RESISTANCE", func(name string, inlet, outlet []string, paramIDs []int) Block {
		return NewResistanceBC(name, inlet, paramIDs)
	})
}

// FlowReferenceBC prescribes the flow at its single node to a (possibly
// time-varying) parameter, grounded on
// original_source/src/model/FlowReferenceBC.h. paramIDs has one entry: Q.
type FlowReferenceBC struct {
	Base
}

// NewFlowReferenceBC builds a flow boundary condition at inletNodes[0].
func NewFlowReferenceBC(name string, inletNodes []string, paramIDs []int) *FlowReferenceBC {
	return &FlowReferenceBC{Base: newBase(name, "FLOW", inletNodes, nil, nil, paramIDs)}
}

// SetupDofs registers the single flow-prescription equation.
func (b *FlowReferenceBC) SetupDofs(reg *dof.Registry) error { return b.setupDofs(reg, 1) }

// TripletBudget reports this block's sparse reservation.
func (b *FlowReferenceBC) TripletBudget() sparse.TripletBudget { return sparse.TripletBudget{F: 1} }

// UpdateConstant writes the constant flow coefficient.
func (b *FlowReferenceBC) UpdateConstant(sys *sparse.System, params []float64) {
	sys.PutF(b.Eqn(0), b.Var(1), 1.0)
}

// UpdateTime writes the prescribed flow value.
func (b *FlowReferenceBC) UpdateTime(sys *sparse.System, t float64, params []float64) {
	sys.SetC(b.Eqn(0), -b.P(params, 0))
}

// UpdateSolution is a no-op.
func (b *FlowReferenceBC) UpdateSolution(sys *sparse.System, params []float64, y, ydot []float64) {}

// Schema reports the single Q declaration.
func (b *FlowReferenceBC) Schema() Schema { return ordinalSchema("Q") }

// PressureReferenceBC prescribes the pressure at its single node to a
// (possibly time-varying) parameter, grounded on
// original_source/src/model/PressureReferenceBC.h. paramIDs has one
// entry: P.
type PressureReferenceBC struct {
	Base
}

// NewPressureReferenceBC builds a pressure boundary condition at
// inletNodes[0].
func NewPressureReferenceBC(name string, inletNodes []string, paramIDs []int) *PressureReferenceBC {
	return &PressureReferenceBC{Base: newBase(name, "PRESSURE", inletNodes, nil, nil, paramIDs)}
}

// SetupDofs registers the single pressure-prescription equation.
func (b *PressureReferenceBC) SetupDofs(reg *dof.Registry) error { return b.setupDofs(reg, 1) }

// TripletBudget reports this block's sparse reservation.
func (b *PressureReferenceBC) TripletBudget() sparse.TripletBudget {
	return sparse.TripletBudget{F: 1}
}

// UpdateConstant writes the constant pressure coefficient.
func (b *PressureReferenceBC) UpdateConstant(sys *sparse.System, params []float64) {
	sys.PutF(b.Eqn(0), b.Var(0), 1.0)
}

// UpdateTime writes the prescribed pressure value.
func (b *PressureReferenceBC) UpdateTime(sys *sparse.System, t float64, params []float64) {
	sys.SetC(b.Eqn(0), -b.P(params, 0))
}

// UpdateSolution is a no-op.
func (b *PressureReferenceBC) UpdateSolution(sys *sparse.System, params []float64, y, ydot []float64) {
}

// Schema reports the single P declaration.
func (b *PressureReferenceBC) Schema() Schema { return ordinalSchema("P") }

// ResistanceBC relates pressure and flow at its single node through a
// (possibly time-varying) resistance to a (possibly time-varying)
// distal pressure, grounded on
// original_source/src/model/ResistanceBC.cpp. paramIDs is [R, P_d].
type ResistanceBC struct {
	Base
}

// NewResistanceBC builds a resistance boundary condition at
// inletNodes[0].
func NewResistanceBC(name string, inletNodes []string, paramIDs []int) *ResistanceBC {
	return &ResistanceBC{Base: newBase(name, "RESISTANCE", inletNodes, nil, nil, paramIDs)}
}

// SetupDofs registers the single resistive equation.
func (b *ResistanceBC) SetupDofs(reg *dof.Registry) error { return b.setupDofs(reg, 1) }

// TripletBudget reports this block's sparse reservation.
func (b *ResistanceBC) TripletBudget() sparse.TripletBudget { return sparse.TripletBudget{F: 2} }

// UpdateConstant writes the constant pressure coefficient.
func (b *ResistanceBC) UpdateConstant(sys *sparse.System, params []float64) {
	sys.PutF(b.Eqn(0), b.Var(0), 1.0)
}

// UpdateTime writes the resistive flow coefficient and distal pressure.
func (b *ResistanceBC) UpdateTime(sys *sparse.System, t float64, params []float64) {
	sys.PutF(b.Eqn(0), b.Var(1), -b.P(params, 0))
	sys.SetC(b.Eqn(0), -b.P(params, 1))
}

// UpdateSolution is a no-op.
func (b *ResistanceBC) UpdateSolution(sys *sparse.System, params []float64, y, ydot []float64) {}

// Schema reports the [R, P_d] declaration.
func (b *ResistanceBC) Schema() Schema { return ordinalSchema("R", "P_d") }
