package block

import (
	"math"

	"github.com/cpmech/zerod/dof"
	"github.com/cpmech/zerod/sparse"
)

func init() {
	SetAllocator("ChamberElastanceInductor", func(name string, inlet, outlet []string, paramIDs []int) Block {
		return NewChamberElastanceInductor(name, inlet, outlet, paramIDs)
	})
}

// ChamberElastanceInductor parameter ordinals, grounded on
// ChamberElastanceInductor.h's ParamId enum.
const (
	ChamberEmax = iota
	ChamberEmin
	ChamberVrd
	ChamberVrs
	ChamberTActive
	ChamberTTwitch
	ChamberImpedance
)

// ChamberElastanceInductor models a cardiac chamber as a time-varying
// capacitor (elastance, with activation-dependent resting volume) plus
// an outflow inductor, grounded on
// original_source/src/model/ChamberElastanceInductor.cpp (Kerckhoffs
// 2007, eqns 1-2).
//
// Local variables: [p_in(0), q_in(1), p_out(2), q_out(3), Vc(4)].
type ChamberElastanceInductor struct {
	Base

	cardiacCyclePeriod float64
	currentTime        float64

	elastance float64
	vrest     float64
}

// NewChamberElastanceInductor builds a chamber with paramIDs in
// [Emax, Emin, Vrd, Vrs, t_active, t_twitch, Impedance] order.
func NewChamberElastanceInductor(name string, inletNodes, outletNodes []string, paramIDs []int) *ChamberElastanceInductor {
	return &ChamberElastanceInductor{Base: newBase(name, "ChamberElastanceInductor", inletNodes, outletNodes, []string{"Vc"}, paramIDs)}
}

// SetCardiacCyclePeriod records the model-wide cardiac cycle period
// used to phase-lock the activation function.
func (b *ChamberElastanceInductor) SetCardiacCyclePeriod(t float64) { b.cardiacCyclePeriod = t }

// SetupDofs registers the pressure, momentum and volume-continuity
// equations.
func (b *ChamberElastanceInductor) SetupDofs(reg *dof.Registry) error { return b.setupDofs(reg, 3) }

// Schema reports the [Emax, Emin, Vrd, Vrs, t_active, t_twitch, impedance]
// declaration.
func (b *ChamberElastanceInductor) Schema() Schema {
	return ordinalSchema("Emax", "Emin", "Vrd", "Vrs", "t_active", "t_twitch", "impedance")
}

// TripletBudget reports this block's sparse reservation.
func (b *ChamberElastanceInductor) TripletBudget() sparse.TripletBudget {
	return sparse.TripletBudget{F: 6, E: 2}
}

// UpdateConstant writes the momentum-inductor and volume-continuity
// rows and the pressure row's inlet coefficient.
func (b *ChamberElastanceInductor) UpdateConstant(sys *sparse.System, params []float64) {
	L := b.P(params, ChamberImpedance)
	pIn, qIn, pOut, qOut, vc := b.Var(0), b.Var(1), b.Var(2), b.Var(3), b.Var(4)
	eq0, eq1, eq2 := b.Eqn(0), b.Eqn(1), b.Eqn(2)

	sys.PutF(eq0, pIn, 1.0)

	sys.PutF(eq1, pIn, 1.0)
	sys.PutF(eq1, pOut, -1.0)
	sys.PutE(eq1, qOut, -L)

	sys.PutF(eq2, qIn, 1.0)
	sys.PutF(eq2, qOut, -1.0)
	sys.PutE(eq2, vc, -1.0)
}

// UpdateTime recomputes the elastance and resting-volume activation
// functions and writes the pressure row's elastance coupling.
func (b *ChamberElastanceInductor) UpdateTime(sys *sparse.System, t float64, params []float64) {
	b.currentTime = t
	b.computeElastance(params)

	vc := b.Var(4)
	eq0 := b.Eqn(0)
	sys.PutF(eq0, vc, -b.elastance)
	sys.SetC(eq0, b.elastance*b.vrest)
}

func (b *ChamberElastanceInductor) computeElastance(params []float64) {
	Emax := b.P(params, ChamberEmax)
	Emin := b.P(params, ChamberEmin)
	Vrd := b.P(params, ChamberVrd)
	Vrs := b.P(params, ChamberVrs)
	tActive := b.P(params, ChamberTActive)
	tTwitch := b.P(params, ChamberTTwitch)

	tInCycle := math.Mod(b.currentTime, b.cardiacCyclePeriod)
	if tInCycle < 0 {
		tInCycle += b.cardiacCyclePeriod
	}

	tContract := 0.0
	if tInCycle >= tActive {
		tContract = tInCycle - tActive
	}

	act := 0.0
	if tContract <= tTwitch {
		act = -0.5*math.Cos(2.0*math.Pi*tContract/tTwitch) + 0.5
	}

	b.vrest = (1.0-act)*(Vrd-Vrs) + Vrs
	b.elastance = (Emax-Emin)*act + Emin
}

// UpdateSolution is a no-op: ChamberElastanceInductor is purely linear
// given the current time-step's elastance/resting-volume values.
func (b *ChamberElastanceInductor) UpdateSolution(sys *sparse.System, params []float64, y, ydot []float64) {
}
