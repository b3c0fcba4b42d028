package block

import (
	"math"

	"github.com/cpmech/zerod/dof"
	"github.com/cpmech/zerod/sparse"
)

func init() {
	SetAllocator("BloodVessel", func(name string, inlet, outlet []string, paramIDs []int) Block {
		return NewBloodVessel(name, inlet, outlet, paramIDs)
	})
}

// BloodVessel parameter ordinals, grounded on BloodVessel.h's constructor
// parameter sequence: resistance, capacitance, inductance, stenosis
// coefficient.
const (
	BloodVesselR = iota
	BloodVesselC
	BloodVesselL
	BloodVesselS
)

// BloodVessel models a single RLC vessel segment with an optional
// quadratic stenosis resistance, grounded on
// original_source/src/model/BloodVessel.cpp.
//
// Local variables: [p_in(0), q_in(1), p_out(2), q_out(3)].
type BloodVessel struct {
	Base
}

// NewBloodVessel builds a BloodVessel connecting one inlet node to one
// outlet node, with paramIDs in [R, C, L, S] order.
func NewBloodVessel(name string, inletNodes, outletNodes []string, paramIDs []int) *BloodVessel {
	return &BloodVessel{Base: newBase(name, "BloodVessel", inletNodes, outletNodes, nil, paramIDs)}
}

// SetupDofs registers the 2 equations of a BloodVessel.
func (b *BloodVessel) SetupDofs(reg *dof.Registry) error { return b.setupDofs(reg, 2) }

// Schema reports the [R, C, L, stenosis_coefficient] declaration, the
// one kind spec.md §4.4.1 documents in full.
func (b *BloodVessel) Schema() Schema {
	return ordinalSchema("R", "C", "L", "stenosis_coefficient")
}

// TripletBudget reports this block's sparse reservation.
func (b *BloodVessel) TripletBudget() sparse.TripletBudget {
	return sparse.TripletBudget{F: 8, E: 2, D: 3}
}

// UpdateConstant writes the RLC coefficients of F and E.
func (b *BloodVessel) UpdateConstant(sys *sparse.System, params []float64) {
	R := b.P(params, BloodVesselR)
	C := b.P(params, BloodVesselC)
	L := b.P(params, BloodVesselL)

	pIn, qIn, pOut, qOut := b.Var(0), b.Var(1), b.Var(2), b.Var(3)
	eq0, eq1 := b.Eqn(0), b.Eqn(1)

	sys.PutE(eq0, qOut, -L)
	sys.PutE(eq1, pIn, -C)
	sys.PutE(eq1, qIn, C*R)

	sys.PutF(eq0, pIn, 1.0)
	sys.PutF(eq0, qIn, -R)
	sys.PutF(eq0, pOut, -1.0)
	sys.PutF(eq1, qIn, 1.0)
	sys.PutF(eq1, qOut, -1.0)
}

// UpdateTime is a no-op: BloodVessel has no block-local time dependence
// beyond the parameter refresh package param already performs.
func (b *BloodVessel) UpdateTime(sys *sparse.System, t float64, params []float64) {}

// UpdateSolution writes the stenosis contribution and its partials.
func (b *BloodVessel) UpdateSolution(sys *sparse.System, params []float64, y, ydot []float64) {
	S := b.P(params, BloodVesselS)
	capacitance := b.P(params, BloodVesselC)

	qIn := y[b.Var(1)]
	dqIn := ydot[b.Var(1)]
	stenosisR := S * math.Abs(qIn)
	eq0, eq1 := b.Eqn(0), b.Eqn(1)

	sys.SetC(eq0, -stenosisR*qIn)
	sys.SetC(eq1, stenosisR*2.0*capacitance*dqIn)

	sgnQIn := sign(qIn)
	sys.PutDCDy(eq0, b.Var(1), S*sgnQIn*-2.0*qIn)
	sys.PutDCDy(eq1, b.Var(1), S*sgnQIn*2.0*capacitance*dqIn)
	sys.PutDCDyDot(eq1, b.Var(1), stenosisR*2.0*capacitance)
}

// UpdateGradient writes the residual and its partials with respect to
// R, C, L and S for Levenberg-Marquardt calibration.
func (b *BloodVessel) UpdateGradient(sink GradientSink, params []float64, y, ydot []float64) error {
	R := b.P(params, BloodVesselR)
	capacitance := b.P(params, BloodVesselC)
	L := b.P(params, BloodVesselL)
	S := b.P(params, BloodVesselS)

	pIn, qIn, pOut, qOut := y[b.Var(0)], y[b.Var(1)], y[b.Var(2)], y[b.Var(3)]
	dpIn, dqOut := ydot[b.Var(0)], ydot[b.Var(3)]
	stenosisR := S * math.Abs(qIn)
	eq0, eq1 := b.Eqn(0), b.Eqn(1)

	sink.AddResidual(eq0, pIn-(R+stenosisR)*qIn-pOut-L*dqOut)
	sink.AddResidual(eq1, qIn-qOut-capacitance*dpIn+capacitance*(R+2.0*stenosisR)*ydot[b.Var(1)])

	paramIDs := b.ParamIDs()
	sink.AddJacobian(eq0, paramIDs[BloodVesselR], -qIn)
	sink.AddJacobian(eq0, paramIDs[BloodVesselL], -dqOut)
	sink.AddJacobian(eq0, paramIDs[BloodVesselS], -math.Abs(qIn)*qIn)
	sink.AddJacobian(eq1, paramIDs[BloodVesselC], -dpIn+(R+2.0*stenosisR)*ydot[b.Var(1)])
	sink.AddJacobian(eq1, paramIDs[BloodVesselR], capacitance*ydot[b.Var(1)])
	sink.AddJacobian(eq1, paramIDs[BloodVesselS], capacitance*2.0*math.Abs(qIn)*ydot[b.Var(1)])
	return nil
}

func sign(v float64) float64 {
	switch {
	case v > 0:
		return 1.0
	case v < 0:
		return -1.0
	default:
		return 0.0
	}
}
