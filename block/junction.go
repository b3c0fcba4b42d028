package block

import (
	"github.com/cpmech/zerod/dof"
	"github.com/cpmech/zerod/sparse"
)

func init() {
	SetAllocator("NORMAL_JUNCTION", func(name string, inlet, outlet []string, paramIDs []int) Block {
		return NewJunction(name, inlet, outlet)
	})
	SetAllocator("resistive_junction", func(name string, inlet, outlet []string, paramIDs []int) Block {
		return NewResistiveJunction(name, inlet, outlet, paramIDs)
	})
}

// Junction conserves mass across an arbitrary number of inlets and
// outlets and equates every node's pressure to the first inlet's,
// grounded on original_source/src/model/Junction.cpp.
type Junction struct {
	Base
}

// NewJunction builds a mass- and pressure-conserving junction with no
// parameters.
func NewJunction(name string, inletNodes, outletNodes []string) *Junction {
	return &Junction{Base: newBase(name, "NORMAL_JUNCTION", inletNodes, outletNodes, nil, nil)}
}

// SetupDofs registers n+m-1 pressure-conservation equations plus one
// mass-conservation equation.
func (b *Junction) SetupDofs(reg *dof.Registry) error {
	n := b.NumInlets() + b.NumOutlets()
	return b.setupDofs(reg, n)
}

// TripletBudget reports this block's sparse reservation.
func (b *Junction) TripletBudget() sparse.TripletBudget {
	n := b.NumInlets() + b.NumOutlets()
	return sparse.TripletBudget{F: (n-1)*2 + n}
}

// UpdateConstant writes the pressure- and mass-conservation rows.
func (b *Junction) UpdateConstant(sys *sparse.System, params []float64) {
	n := b.NumInlets() + b.NumOutlets()
	for i := 0; i < n-1; i++ {
		sys.PutF(b.Eqn(i), b.Var(0), 1.0)
		sys.PutF(b.Eqn(i), b.Var(2*(i+1)), -1.0)
	}
	massEqn := b.Eqn(n - 1)
	for i := 0; i < b.NumInlets(); i++ {
		sys.PutF(massEqn, b.Var(2*i+1), 1.0)
	}
	for i := b.NumInlets(); i < n; i++ {
		sys.PutF(massEqn, b.Var(2*i+1), -1.0)
	}
}

// UpdateTime is a no-op: Junction has no time-dependent contributions.
func (b *Junction) UpdateTime(sys *sparse.System, t float64, params []float64) {}

// UpdateSolution is a no-op: Junction is purely linear and constant.
func (b *Junction) UpdateSolution(sys *sparse.System, params []float64, y, ydot []float64) {}

// Schema reports an empty declaration: a plain Junction has no parameters.
func (b *Junction) Schema() Schema { return nil }

// ResistiveJunction is a Junction where every leg connects through a
// resistance to a shared internal node instead of directly to the first
// inlet, grounded on original_source/src/model/ResistiveJunction.cpp.
type ResistiveJunction struct {
	Base
}

// NewResistiveJunction builds a resistive junction with one resistance
// parameter per leg, in inlet-then-outlet order.
func NewResistiveJunction(name string, inletNodes, outletNodes []string, paramIDs []int) *ResistiveJunction {
	return &ResistiveJunction{Base: newBase(name, "resistive_junction", inletNodes, outletNodes, []string{"pressure_c"}, paramIDs)}
}

// SetupDofs registers one equation per leg plus a trailing
// mass-conservation equation, and the internal pressure_c variable.
func (b *ResistiveJunction) SetupDofs(reg *dof.Registry) error {
	n := b.NumInlets() + b.NumOutlets()
	return b.setupDofs(reg, n+1)
}

// TripletBudget reports this block's sparse reservation.
func (b *ResistiveJunction) TripletBudget() sparse.TripletBudget {
	n := b.NumInlets() + b.NumOutlets()
	return sparse.TripletBudget{F: n * 4}
}

// Schema reports a single "R" declaration repeated once per leg (inlet
// then outlet order).
func (b *ResistiveJunction) Schema() Schema {
	s := ordinalSchema("R")
	s[0].IsArray = true
	return s
}

// UpdateConstant writes each leg's resistive coupling to the shared
// internal node plus the trailing mass-conservation row.
func (b *ResistiveJunction) UpdateConstant(sys *sparse.System, params []float64) {
	n := b.NumInlets() + b.NumOutlets()
	pressureC := b.Var(2 * n)
	for i := 0; i < b.NumInlets(); i++ {
		R := b.P(params, i)
		sys.PutF(b.Eqn(i), b.Var(2*i), 1.0)
		sys.PutF(b.Eqn(i), b.Var(2*i+1), -R)
		sys.PutF(b.Eqn(i), pressureC, -1.0)
	}
	for i := b.NumInlets(); i < n; i++ {
		R := b.P(params, i)
		sys.PutF(b.Eqn(i), b.Var(2*i), -1.0)
		sys.PutF(b.Eqn(i), b.Var(2*i+1), -R)
		sys.PutF(b.Eqn(i), pressureC, 1.0)
	}
	massEqn := b.Eqn(n)
	for i := 0; i < b.NumInlets(); i++ {
		sys.PutF(massEqn, b.Var(2*i+1), 1.0)
	}
	for i := b.NumInlets(); i < n; i++ {
		sys.PutF(massEqn, b.Var(2*i+1), -1.0)
	}
}

// UpdateTime is a no-op.
func (b *ResistiveJunction) UpdateTime(sys *sparse.System, t float64, params []float64) {}

// UpdateSolution is a no-op: ResistiveJunction is purely linear.
func (b *ResistiveJunction) UpdateSolution(sys *sparse.System, params []float64, y, ydot []float64) {
}
