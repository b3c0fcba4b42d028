package block

import (
	"math"

	"github.com/cpmech/zerod/dof"
	"github.com/cpmech/zerod/sparse"
)

func init() {
	SetAllocator("ClosedLoopHeartAndPulmonary", func(name string, inlet, outlet []string, paramIDs []int) Block {
		return NewClosedLoopHeartPulmonary(name, inlet, outlet, paramIDs)
	})
}

// ClosedLoopHeartPulmonary parameter ordinals, grounded on
// ClosedLoopHeartPulmonary.h's ParamId enum.
const (
	HeartTsa = iota
	HeartTpwave
	HeartErvS
	HeartElvS
	HeartIML
	HeartIMR
	HeartLraV
	HeartRraV
	HeartLrvA
	HeartRrvA
	HeartLlaV
	HeartRlaV
	HeartLlvA
	HeartRlvAo
	HeartVrvU
	HeartVlvU
	HeartRpd
	HeartCp
	HeartCpa
	HeartKxpRa
	HeartKxvRa
	HeartKxpLa
	HeartKxvLa
	HeartEmaxRa
	HeartEmaxLa
	HeartVasoRa
	HeartVasoLa
)

// Internal-variable local var offsets, counted from the block's first
// internal DOF (index 4, after p_in, q_in, p_out, q_out).
const (
	heartVRA = 4 + iota
	heartQRA
	heartPRV
	heartVRV
	heartQRV
	heartPPul
	heartPLA
	heartVLA
	heartQLA
	heartPLV
	heartVLV
	heartQLV
)

// elastanceModes is the 25-mode Fourier series reproducing the
// calibrated left-ventricular elastance waveform bit-identically,
// grounded on ClosedLoopHeartPulmonary.cpp's Ft_elastance table
// ("copied from J. Tran's tuning framework").
var elastanceModes = [25][2]float64{
	{0.283748803, 0.000000000}, {0.031830626, -0.374299825},
	{-0.209472400, -0.018127770}, {0.020520047, 0.073971113},
	{0.008316883, -0.047249597}, {-0.041677660, 0.003212163},
	{0.000867323, 0.019441411}, {-0.001675379, -0.005565534},
	{-0.011252277, 0.003401432}, {-0.000414677, 0.008376795},
	{0.000253749, -0.000071880}, {-0.002584966, 0.001566861},
	{0.000584752, 0.003143555}, {0.000028502, -0.000024787},
	{0.000022961, -0.000007476}, {0.000018735, -0.000001281},
	{0.000015573, 0.000001781}, {0.000013133, 0.000003494},
	{0.000011199, 0.000004507}, {0.000009634, 0.000005117},
	{0.000008343, 0.000005481}, {0.000007265, 0.000005687},
	{0.000006354, 0.000005789}, {0.000005575, 0.000005821},
	{0.000004903, 0.000005805},
}

// ClosedLoopHeartPulmonary models the 4 heart chambers plus pulmonary
// circulation as one block, grounded on
// original_source/src/model/ClosedLoopHeartPulmonary.cpp (Sankaran
// 2012, Menon 2023).
//
// Local variables: [p_in(0), q_in(1), p_out(2), q_out(3), V_RA(4),
// Q_RA(5), P_RV(6), V_RV(7), Q_RV(8), P_pul(9), P_LA(10), V_LA(11),
// Q_LA(12), P_LV(13), V_LV(14), Q_LV(15)].
type ClosedLoopHeartPulmonary struct {
	Base

	cardiacCyclePeriod float64
	currentTime        float64

	aa, elv, erv                         float64
	psiRA, psiLA, psiRADeriv, psiLADeriv float64
	valveRA, valveRV, valveLA, valveLV   float64
}

// NewClosedLoopHeartPulmonary builds the heart-pulmonary block with
// paramIDs in the 27-entry order documented by the ParamId enum above.
func NewClosedLoopHeartPulmonary(name string, inletNodes, outletNodes []string, paramIDs []int) *ClosedLoopHeartPulmonary {
	internals := []string{
		"V_RA", "Q_RA", "P_RV", "V_RV", "Q_RV", "P_pul",
		"P_LA", "V_LA", "Q_LA", "P_LV", "V_LV", "Q_LV",
	}
	return &ClosedLoopHeartPulmonary{
		Base:    newBase(name, "ClosedLoopHeartAndPulmonary", inletNodes, outletNodes, internals, paramIDs),
		valveRA: 1.0, valveRV: 1.0, valveLA: 1.0, valveLV: 1.0,
	}
}

// SetCardiacCyclePeriod records the model-wide cardiac cycle period.
func (b *ClosedLoopHeartPulmonary) SetCardiacCyclePeriod(t float64) { b.cardiacCyclePeriod = t }

// LVPressureVarID returns the global variable index of P_LV, resolved
// by a left-side ClosedLoopCoronaryBC's SetupModelDependentParams.
func (b *ClosedLoopHeartPulmonary) LVPressureVarID() int { return b.Var(heartPLV) }

// RVPressureVarID returns the global variable index of P_RV, resolved
// by a right-side ClosedLoopCoronaryBC's SetupModelDependentParams.
func (b *ClosedLoopHeartPulmonary) RVPressureVarID() int { return b.Var(heartPRV) }

// SetupDofs registers the 14 governing equations and 12 internal
// chamber/volume variables.
func (b *ClosedLoopHeartPulmonary) SetupDofs(reg *dof.Registry) error { return b.setupDofs(reg, 14) }

// TripletBudget reports this block's sparse reservation.
func (b *ClosedLoopHeartPulmonary) TripletBudget() sparse.TripletBudget {
	return sparse.TripletBudget{F: 33, E: 10, D: 2}
}

// Schema reports the 27-entry parameter declaration in ParamId order.
func (b *ClosedLoopHeartPulmonary) Schema() Schema {
	return ordinalSchema(
		"Tsa", "tpwave", "Erv_s", "Elv_s", "IML", "IMR",
		"Lra_v", "Rra_v", "Lrv_a", "Rrv_a", "Lla_v", "Rla_v", "Llv_a", "Rlv_ao",
		"Vrv_u", "Vlv_u", "Rpd", "Cp", "Cpa",
		"Kxp_ra", "Kxv_ra", "Kxp_la", "Kxv_la",
		"Emax_ra", "Emax_la", "Vaso_ra", "Vaso_la",
	)
}

// SetupInitialStateDependentParams evaluates the atrial pressure-volume
// helper (grounded on get_psi_ra_la) once from the initial state.
// UpdateSolution evaluates the same helper again at the start of every
// Newton iteration, so these psi_ra/psi_la values are replaced before
// any equation reads them.
func (b *ClosedLoopHeartPulmonary) SetupInitialStateDependentParams(y, ydot []float64, params []float64) {
	b.atrialPressure(params, y)
}

// UpdateConstant writes the time- and solution-independent rows shared
// by every chamber and the pulmonary circuit.
func (b *ClosedLoopHeartPulmonary) UpdateConstant(sys *sparse.System, params []float64) {
	pIn, qIn, pOut, qOut := b.Var(0), b.Var(1), b.Var(2), b.Var(3)
	vRA, qRA, pRV, vRV, qRV := b.Var(heartVRA), b.Var(heartQRA), b.Var(heartPRV), b.Var(heartVRV), b.Var(heartQRV)
	pPul, pLA, vLA, qLA := b.Var(heartPPul), b.Var(heartPLA), b.Var(heartVLA), b.Var(heartQLA)
	pLV, vLV, qLV := b.Var(heartPLV), b.Var(heartVLV), b.Var(heartQLV)

	eq := func(i int) int { return b.Eqn(i) }

	sys.PutF(eq(0), pIn, 1.0)

	sys.PutE(eq(1), pOut, b.P(params, HeartCpa))
	sys.PutF(eq(1), qOut, 1.0)

	sys.PutE(eq(2), vRA, 1.0)
	sys.PutF(eq(2), qIn, -1.0)

	sys.PutE(eq(3), qRA, b.P(params, HeartLraV))
	sys.PutF(eq(3), pIn, -1.0)
	sys.PutF(eq(3), pRV, 1.0)

	sys.PutF(eq(4), pRV, 1.0)

	sys.PutE(eq(5), vRV, 1.0)

	sys.PutE(eq(6), qRV, b.P(params, HeartLrvA))
	sys.PutF(eq(6), pRV, -1.0)
	sys.PutF(eq(6), pPul, 1.0)

	sys.PutE(eq(7), pPul, b.P(params, HeartCp))
	sys.PutF(eq(7), pPul, 1.0/b.P(params, HeartRpd))
	sys.PutF(eq(7), pLA, -1.0/b.P(params, HeartRpd))

	sys.PutF(eq(8), pLA, 1.0)

	sys.PutE(eq(9), vLA, 1.0)

	sys.PutE(eq(10), qLA, b.P(params, HeartLlaV))
	sys.PutF(eq(10), pLA, -1.0)
	sys.PutF(eq(10), pLV, 1.0)

	sys.PutF(eq(11), pLV, 1.0)

	sys.PutE(eq(12), vLV, 1.0)

	sys.PutF(eq(13), pOut, 1.0)
	sys.PutF(eq(13), pLV, -1.0)
	sys.PutE(eq(13), qLV, b.P(params, HeartLlvA))
}

// UpdateTime recomputes the atrial activation function and the
// 25-mode Fourier ventricular elastance, then writes every
// time-dependent elastance row.
func (b *ClosedLoopHeartPulmonary) UpdateTime(sys *sparse.System, t float64, params []float64) {
	b.currentTime = t
	b.computeActivationAndElastance(params)

	vRA, vRV, vLA, vLV := b.Var(heartVRA), b.Var(heartVRV), b.Var(heartVLA), b.Var(heartVLV)

	sys.PutF(b.Eqn(0), vRA, -b.aa*b.P(params, HeartEmaxRa))

	sys.PutF(b.Eqn(4), vRV, -b.erv)
	sys.SetC(b.Eqn(4), b.erv*b.P(params, HeartVrvU))

	sys.PutF(b.Eqn(8), vLA, -b.aa*b.P(params, HeartEmaxLa))

	sys.PutF(b.Eqn(11), vLV, -b.elv)
	sys.SetC(b.Eqn(11), b.elv*b.P(params, HeartVlvU))
}

func (b *ClosedLoopHeartPulmonary) computeActivationAndElastance(params []float64) {
	T := b.cardiacCyclePeriod
	Tsa := T * b.P(params, HeartTsa)
	tpwave := T / b.P(params, HeartTpwave)
	tInCycle := math.Mod(b.currentTime, T)
	if tInCycle < 0 {
		tInCycle += T
	}

	switch {
	case tInCycle <= tpwave:
		b.aa = 0.5 * (1.0 - math.Cos(2.0*math.Pi*(tInCycle-tpwave+Tsa)/Tsa))
	case tInCycle >= (T-Tsa)+tpwave && tInCycle < T:
		b.aa = 0.5 * (1.0 - math.Cos(2.0*math.Pi*(tInCycle-tpwave-(T-Tsa))/Tsa))
	default:
		b.aa = 0.0
	}

	elvI := 0.0
	for i, mode := range elastanceModes {
		elvI += mode[0]*math.Cos(2.0*math.Pi*float64(i)*tInCycle/T) -
			mode[1]*math.Sin(2.0*math.Pi*float64(i)*tInCycle/T)
	}
	b.elv = elvI * b.P(params, HeartElvS)
	b.erv = elvI * b.P(params, HeartErvS)
}

// atrialPressure computes the exponential atrial pressure-volume
// sub-expressions (psi_ra/psi_la) and their volume derivatives from y,
// grounded on get_psi_ra_la.
func (b *ClosedLoopHeartPulmonary) atrialPressure(params []float64, y []float64) {
	raVolume := y[b.Var(heartVRA)]
	laVolume := y[b.Var(heartVLA)]
	kxpRa, kxvRa := b.P(params, HeartKxpRa), b.P(params, HeartKxvRa)
	kxpLa, kxvLa := b.P(params, HeartKxpLa), b.P(params, HeartKxvLa)
	vasoRa, vasoLa := b.P(params, HeartVasoRa), b.P(params, HeartVasoLa)

	expRA := math.Exp((raVolume - vasoRa) * kxvRa)
	expLA := math.Exp((laVolume - vasoLa) * kxvLa)

	b.psiRA = kxpRa * (expRA - 1.0)
	b.psiLA = kxpLa * (expLA - 1.0)
	b.psiRADeriv = kxpRa * expRA * kxvRa
	b.psiLADeriv = kxpLa * expLA * kxvLa
}

// updateValvePositions re-evaluates the four diode valves' open/closed
// state from the current iterate, held fixed for the remainder of this
// Newton solve.
func (b *ClosedLoopHeartPulmonary) updateValvePositions(y []float64) {
	b.valveRA, b.valveRV, b.valveLA, b.valveLV = 1.0, 1.0, 1.0, 1.0

	pRA, pRV := y[b.Var(0)], y[b.Var(heartPRV)]
	qRA := y[b.Var(heartQRA)]
	if pRA <= pRV && qRA <= 0.0 {
		b.valveRA = 0.0
	}

	pPul := y[b.Var(heartPPul)]
	qRV := y[b.Var(heartQRV)]
	if pRV <= pPul && qRV <= 0.0 {
		b.valveRV = 0.0
	}

	pLA, pLV := y[b.Var(heartPLA)], y[b.Var(heartPLV)]
	qLA := y[b.Var(heartQLA)]
	if pLA <= pLV && qLA <= 0.0 {
		b.valveLA = 0.0
	}

	pAorta := y[b.Var(2)]
	qLV := y[b.Var(heartQLV)]
	if pLV <= pAorta && qLV <= 0.0 {
		b.valveLV = 0.0
	}
}

// UpdateSolution writes the nonlinear atrial pressure-volume terms and
// the valve-gated momentum/continuity rows, with valve positions frozen
// for this Newton solve.
func (b *ClosedLoopHeartPulmonary) UpdateSolution(sys *sparse.System, params []float64, y, ydot []float64) {
	b.atrialPressure(params, y)
	b.updateValvePositions(y)

	emaxRa, vasoRa := b.P(params, HeartEmaxRa), b.P(params, HeartVasoRa)
	emaxLa, vasoLa := b.P(params, HeartEmaxLa), b.P(params, HeartVasoLa)

	vRA, qRA, qRV := b.Var(heartVRA), b.Var(heartQRA), b.Var(heartQRV)
	vLA, qLA, qLV := b.Var(heartVLA), b.Var(heartQLA), b.Var(heartQLV)

	sys.SetC(b.Eqn(0), b.aa*emaxRa*vasoRa+b.psiRA*(b.aa-1.0))
	sys.PutDCDy(b.Eqn(0), vRA, b.psiRADeriv*(b.aa-1.0))

	sys.SetC(b.Eqn(8), b.aa*emaxLa*vasoLa+b.psiLA*(b.aa-1.0))
	sys.PutDCDy(b.Eqn(8), vLA, b.psiLADeriv*(b.aa-1.0))

	sys.PutF(b.Eqn(1), qLV, -b.valveLV)
	sys.PutF(b.Eqn(7), qRV, -b.valveRV)

	sys.PutF(b.Eqn(2), qRA, b.valveRA)

	sys.PutF(b.Eqn(5), qRA, -b.valveRA)
	sys.PutF(b.Eqn(5), qRV, b.valveRV)

	sys.PutF(b.Eqn(9), qRV, -b.valveRV)
	sys.PutF(b.Eqn(9), qLA, b.valveLA)

	sys.PutF(b.Eqn(12), qLA, -b.valveLA)
	sys.PutF(b.Eqn(12), qLV, b.valveLV)

	sys.PutF(b.Eqn(3), qRA, b.P(params, HeartRraV)*b.valveRA)
	sys.PutF(b.Eqn(6), qRV, b.P(params, HeartRrvA)*b.valveRV)
	sys.PutF(b.Eqn(10), qLA, b.P(params, HeartRlaV)*b.valveLA)
	sys.PutF(b.Eqn(13), qLV, b.P(params, HeartRlvAo)*b.valveLV)
}

// PostSolve forces the flow DOF of every closed valve to zero; the
// integrator calls it after each linear solve of a Newton iteration.
func (b *ClosedLoopHeartPulmonary) PostSolve(y []float64) {
	if b.valveRA < 0.5 {
		y[b.Var(heartQRA)] = 0.0
	}
	if b.valveRV < 0.5 {
		y[b.Var(heartQRV)] = 0.0
	}
	if b.valveLA < 0.5 {
		y[b.Var(heartQLA)] = 0.0
	}
	if b.valveLV < 0.5 {
		y[b.Var(heartQLV)] = 0.0
	}
}
