package block

import (
	"math"

	"github.com/cpmech/zerod/dof"
	"github.com/cpmech/zerod/sparse"
)

func init() {
	SetAllocator("BloodVesselJunction", func(name string, inlet, outlet []string, paramIDs []int) Block {
		return NewBloodVesselJunction(name, inlet, outlet, paramIDs)
	})
}

// BloodVesselJunction merges a single inlet vessel into one or more
// outlet vessel legs, each with its own resistance, inductance and
// stenosis coefficient, grounded on
// original_source/src/model/BloodVesselJunction.cpp.
//
// paramIDs holds 3 entries per outlet leg, in [R, L, S] order.
type BloodVesselJunction struct {
	Base
}

// NewBloodVesselJunction builds a junction with exactly one inlet and
// any number of outlets.
func NewBloodVesselJunction(name string, inletNodes, outletNodes []string, paramIDs []int) *BloodVesselJunction {
	return &BloodVesselJunction{Base: newBase(name, "BloodVesselJunction", inletNodes, outletNodes, nil, paramIDs)}
}

// SetupDofs registers one mass-conservation equation plus one momentum
// equation per outlet leg.
func (b *BloodVesselJunction) SetupDofs(reg *dof.Registry) error {
	return b.setupDofs(reg, b.NumOutlets()+1)
}

// TripletBudget reports this block's sparse reservation.
func (b *BloodVesselJunction) TripletBudget() sparse.TripletBudget {
	n := b.NumOutlets()
	return sparse.TripletBudget{F: 1 + 4*n, E: 3 * n, D: 2 * n}
}

// Schema reports the [R, L, stenosis_coefficient] declaration, repeated
// once per outlet leg.
func (b *BloodVesselJunction) Schema() Schema {
	s := ordinalSchema("R", "L", "stenosis_coefficient")
	for i := range s {
		s[i].IsArray = true
	}
	return s
}

func (b *BloodVesselJunction) qIn() int  { return b.Var(1) }
func (b *BloodVesselJunction) pIn() int  { return b.Var(0) }
func (b *BloodVesselJunction) pOut(i int) int { return b.Var(2 + 2*i) }
func (b *BloodVesselJunction) qOut(i int) int { return b.Var(3 + 2*i) }

// UpdateConstant writes the mass-conservation row and each outlet's
// resistive/inductive momentum row.
func (b *BloodVesselJunction) UpdateConstant(sys *sparse.System, params []float64) {
	n := b.NumOutlets()
	eq0 := b.Eqn(0)
	sys.PutF(eq0, b.qIn(), 1.0)
	for i := 0; i < n; i++ {
		R := params[b.ParamIDs()[3*i+0]]
		L := params[b.ParamIDs()[3*i+1]]
		eqi := b.Eqn(i + 1)
		sys.PutF(eq0, b.qOut(i), -1.0)
		sys.PutF(eqi, b.qOut(i), -R)
		sys.PutF(eqi, b.pIn(), 1.0)
		sys.PutF(eqi, b.pOut(i), -1.0)
		sys.PutE(eqi, b.qOut(i), -L)
	}
}

// UpdateTime is a no-op: BloodVesselJunction has no block-local time
// dependence.
func (b *BloodVesselJunction) UpdateTime(sys *sparse.System, t float64, params []float64) {}

// UpdateSolution writes each outlet's quadratic stenosis contribution.
func (b *BloodVesselJunction) UpdateSolution(sys *sparse.System, params []float64, y, ydot []float64) {
	n := b.NumOutlets()
	for i := 0; i < n; i++ {
		S := params[b.ParamIDs()[3*i+2]]
		qOut := y[b.qOut(i)]
		stenosisR := S * math.Abs(qOut)
		eqi := b.Eqn(i + 1)
		sys.SetC(eqi, -stenosisR*qOut)
		sys.PutDCDy(eqi, b.qOut(i), -2.0*stenosisR)
	}
}

// UpdateGradient writes the mass-conservation and per-outlet momentum
// residuals and their partials with respect to R, L and S.
func (b *BloodVesselJunction) UpdateGradient(sink GradientSink, params []float64, y, ydot []float64) error {
	n := b.NumOutlets()
	qIn := y[b.qIn()]
	sumQOut := 0.0
	for i := 0; i < n; i++ {
		sumQOut += y[b.qOut(i)]
	}
	sink.AddResidual(b.Eqn(0), qIn-sumQOut)

	for i := 0; i < n; i++ {
		R := params[b.ParamIDs()[3*i+0]]
		qOut := y[b.qOut(i)]
		dqOut := ydot[b.qOut(i)]
		S := params[b.ParamIDs()[3*i+2]]
		stenosisR := S * math.Abs(qOut)
		eqi := b.Eqn(i + 1)

		sink.AddResidual(eqi, y[b.pIn()]-y[b.pOut(i)]-(R+stenosisR)*qOut-params[b.ParamIDs()[3*i+1]]*dqOut)
		sink.AddJacobian(eqi, b.ParamIDs()[3*i+0], -qOut)
		sink.AddJacobian(eqi, b.ParamIDs()[3*i+1], -dqOut)
		sink.AddJacobian(eqi, b.ParamIDs()[3*i+2], -math.Abs(qOut)*qOut)
	}
	return nil
}
