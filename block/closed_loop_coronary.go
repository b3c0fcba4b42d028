package block

import (
	"github.com/cpmech/gosl/chk"

	"github.com/cpmech/zerod/dof"
	"github.com/cpmech/zerod/sparse"
)

func init() {
	SetAllocator("ClosedLoopCoronaryLeft", func(name string, inlet, outlet []string, paramIDs []int) Block {
		return newClosedLoopCoronaryBC(name, inlet, outlet, paramIDs, "ClosedLoopCoronaryLeft")
	})
	SetAllocator("ClosedLoopCoronaryRight", func(name string, inlet, outlet []string, paramIDs []int) Block {
		return newClosedLoopCoronaryBC(name, inlet, outlet, paramIDs, "ClosedLoopCoronaryRight")
	})
}

// ClosedLoopCoronaryBC parameter ordinals, grounded on
// ClosedLoopCoronaryBC.h.
const (
	ClosedLoopCoronaryRa = iota
	ClosedLoopCoronaryRam
	ClosedLoopCoronaryRv
	ClosedLoopCoronaryCa
	ClosedLoopCoronaryCim
)

// ClosedLoopCoronaryBC is a coronary vascular bed connected to other
// blocks on both sides, whose intramyocardial pressure is driven by a
// ventricular pressure read from the heart block rather than a fixed
// parameter, grounded on
// original_source/src/model/ClosedLoopCoronaryBC.cpp and its Left/Right
// subclasses.
//
// Local variables: [p_in(0), q_in(1), p_out(2), q_out(3), volume_im(4)].
type ClosedLoopCoronaryBC struct {
	Base

	side string // "ClosedLoopCoronaryLeft" or "ClosedLoopCoronaryRight"

	ventricleVarID int
	imParamID      int
}

func newClosedLoopCoronaryBC(name string, inletNodes, outletNodes []string, paramIDs []int, side string) *ClosedLoopCoronaryBC {
	return &ClosedLoopCoronaryBC{
		Base: newBase(name, side, inletNodes, outletNodes, []string{"volume_im"}, paramIDs),
		side: side,
	}
}

// SetupDofs registers the three governing equations.
func (b *ClosedLoopCoronaryBC) SetupDofs(reg *dof.Registry) error { return b.setupDofs(reg, 3) }

// Schema reports the [Ra, Ram, Rv, Ca, Cim] declaration.
func (b *ClosedLoopCoronaryBC) Schema() Schema {
	return ordinalSchema("Ra", "Ram", "Rv", "Ca", "Cim")
}

// TripletBudget reports this block's sparse reservation.
func (b *ClosedLoopCoronaryBC) TripletBudget() sparse.TripletBudget {
	return sparse.TripletBudget{F: 9, E: 5}
}

// SetupModelDependentParams locates the "CLH" heart block and resolves
// which ventricular pressure variable and intramyocardial-pressure-gain
// parameter drive this coronary bed's update_solution.
func (b *ClosedLoopCoronaryBC) SetupModelDependentParams(lookup func(name string) (Block, bool)) error {
	heartBlock, ok := lookup("CLH")
	if !ok {
		return chk.Err("%s: requires a ClosedLoopHeartPulmonary block named %q", b.Name(), "CLH")
	}
	heart, ok := heartBlock.(*ClosedLoopHeartPulmonary)
	if !ok {
		return chk.Err("%s: block %q is not a ClosedLoopHeartPulmonary", b.Name(), "CLH")
	}
	switch b.side {
	case "ClosedLoopCoronaryLeft":
		b.imParamID = heart.ParamIDs()[HeartIML]
		b.ventricleVarID = heart.LVPressureVarID()
	case "ClosedLoopCoronaryRight":
		b.imParamID = heart.ParamIDs()[HeartIMR]
		b.ventricleVarID = heart.RVPressureVarID()
	default:
		chk.Panic("closed-loop coronary BC: unknown side %q", b.side)
	}
	return nil
}

// UpdateConstant writes the resistive/inductive/capacitive coefficients
// of the vascular bed.
func (b *ClosedLoopCoronaryBC) UpdateConstant(sys *sparse.System, params []float64) {
	ra := b.P(params, ClosedLoopCoronaryRa)
	ram := b.P(params, ClosedLoopCoronaryRam)
	rv := b.P(params, ClosedLoopCoronaryRv)
	ca := b.P(params, ClosedLoopCoronaryCa)
	cim := b.P(params, ClosedLoopCoronaryCim)

	eq0, eq1, eq2 := b.Eqn(0), b.Eqn(1), b.Eqn(2)
	pIn, qIn, pOut, qOut, volIm := b.Var(0), b.Var(1), b.Var(2), b.Var(3), b.Var(4)

	sys.PutE(eq0, pIn, -ram*ca)
	sys.PutE(eq0, qIn, ram*ra*ca)
	sys.PutE(eq1, pIn, -ca)
	sys.PutE(eq1, qIn, ca*ra)
	sys.PutE(eq1, volIm, -1.0)

	sys.PutF(eq0, pIn, -1.0)
	sys.PutF(eq0, qIn, ra+ram)
	sys.PutF(eq0, pOut, 1.0)
	sys.PutF(eq0, qOut, rv)
	sys.PutF(eq1, qIn, 1.0)
	sys.PutF(eq1, qOut, -1.0)
	sys.PutF(eq2, pOut, cim)
	sys.PutF(eq2, qOut, cim*rv)
	sys.PutF(eq2, volIm, -1.0)
}

// UpdateTime is a no-op.
func (b *ClosedLoopCoronaryBC) UpdateTime(sys *sparse.System, t float64, params []float64) {}

// UpdateSolution writes the ventricular-pressure-driven
// intramyocardial-pressure term.
func (b *ClosedLoopCoronaryBC) UpdateSolution(sys *sparse.System, params []float64, y, ydot []float64) {
	cim := b.P(params, ClosedLoopCoronaryCim)
	im := params[b.imParamID]
	pim := im * y[b.ventricleVarID]
	sys.SetC(b.Eqn(2), -cim*pim)
}
