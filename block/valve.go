package block

import (
	"math"

	"github.com/cpmech/zerod/dof"
	"github.com/cpmech/zerod/sparse"
)

func init() {
	SetAllocator("ValveTanh", func(name string, inlet, outlet []string, paramIDs []int) Block {
		return NewValveTanh(name, inlet, outlet, paramIDs)
	})
}

// ValveTanh parameter ordinals, grounded on ValveTanh.h's ParamId enum.
const (
	ValveTanhRmax = iota
	ValveTanhRmin
	ValveTanhSteepness
)

// ValveTanh models a diode-like valve as a continuous hyperbolic-tangent
// resistor rather than a discrete switch, grounded on
// original_source/src/model/ValveTanh.cpp (Pfaller 2019, eqns 16, 22).
//
// Local variables: [p_in(0), q_in(1), p_out(2), q_out(3), valve_status(4)].
type ValveTanh struct {
	Base
}

// NewValveTanh builds a tanh valve with paramIDs in
// [Rmax, Rmin, Steepness] order.
func NewValveTanh(name string, inletNodes, outletNodes []string, paramIDs []int) *ValveTanh {
	return &ValveTanh{Base: newBase(name, "ValveTanh", inletNodes, outletNodes, []string{"valve_status"}, paramIDs)}
}

// SetupDofs registers the pressure-drop, flow-continuity and
// valve-status equations.
func (b *ValveTanh) SetupDofs(reg *dof.Registry) error { return b.setupDofs(reg, 3) }

// Schema reports the [Rmax, Rmin, steepness] declaration.
func (b *ValveTanh) Schema() Schema { return ordinalSchema("R_max", "R_min", "steepness") }

// TripletBudget reports this block's sparse reservation.
func (b *ValveTanh) TripletBudget() sparse.TripletBudget {
	return sparse.TripletBudget{F: 5, D: 3}
}

// UpdateConstant writes the mean-resistance pressure drop, flow
// continuity, and the valve-status row's F entry.
func (b *ValveTanh) UpdateConstant(sys *sparse.System, params []float64) {
	rmax := b.P(params, ValveTanhRmax)
	rmin := b.P(params, ValveTanhRmin)

	pIn, qIn, pOut, qOut, status := b.Var(0), b.Var(1), b.Var(2), b.Var(3), b.Var(4)
	eq0, eq1, eq2 := b.Eqn(0), b.Eqn(1), b.Eqn(2)

	sys.PutF(eq0, pIn, 1.0)
	sys.PutF(eq0, pOut, -1.0)
	sys.PutF(eq0, qIn, -0.5*(rmax+rmin))
	sys.PutF(eq1, qIn, 1.0)
	sys.PutF(eq1, qOut, -1.0)
	sys.PutF(eq2, status, 1.0)
}

// UpdateTime is a no-op: ValveTanh has no explicit time dependence.
func (b *ValveTanh) UpdateTime(sys *sparse.System, t float64, params []float64) {}

// UpdateSolution writes the nonlinear resistance swing and its partials.
func (b *ValveTanh) UpdateSolution(sys *sparse.System, params []float64, y, ydot []float64) {
	rmax := b.P(params, ValveTanhRmax)
	rmin := b.P(params, ValveTanhRmin)
	steep := b.P(params, ValveTanhSteepness)

	pIn, qIn, pOut := b.Var(0), b.Var(1), b.Var(2)
	eq0, eq2 := b.Eqn(0), b.Eqn(2)

	pInV, qInV, pOutV := y[pIn], y[qIn], y[pOut]
	tanhTerm := math.Tanh(steep * (pOutV - pInV))
	coshTerm := 0.5 * steep / (math.Cosh(steep*(pInV-pOutV)) * math.Cosh(steep*(pInV-pOutV)))

	sys.SetC(eq0, -0.5*qInV*(rmax-rmin)*tanhTerm)
	sys.SetC(eq2, -0.5*(1.0+tanhTerm))

	sys.PutDCDy(eq0, pIn, 0.5*qInV*(rmax-rmin)*steep*(1.0-tanhTerm*tanhTerm))
	sys.PutDCDy(eq0, qIn, -0.5*(rmax-rmin)*tanhTerm)
	sys.PutDCDy(eq0, pOut, -0.5*qInV*(rmax-rmin)*steep*(1.0-tanhTerm*tanhTerm))
	sys.PutDCDy(eq2, pIn, coshTerm)
	sys.PutDCDy(eq2, pOut, -coshTerm)
}
