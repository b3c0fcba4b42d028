package integrator

import (
	"bytes"
	"encoding/gob"
	"math"
	"testing"

	_ "github.com/cpmech/zerod/block"
	"github.com/cpmech/zerod/model"
)

// buildRCModel wires a flow-driven resistor-capacitor vessel: inflow
// at n1, a BloodVessel with zero inductance/stenosis to n2, and a
// fixed pressure at n2. Small enough to exercise one full Newton
// solve by hand.
func buildRCModel(t *testing.T) *model.Model {
	t.Helper()
	m := model.New()
	if _, err := m.AddNode("n1", []string{"inflow"}, []string{"vessel"}); err != nil {
		t.Fatalf("AddNode n1: %v", err)
	}
	if _, err := m.AddNode("n2", []string{"vessel"}, []string{"outflow"}); err != nil {
		t.Fatalf("AddNode n2: %v", err)
	}
	qID := m.Params().AddConstant(1.0)
	rID := m.Params().AddConstant(1.0)
	cID := m.Params().AddConstant(1.0)
	lID := m.Params().AddConstant(0.0)
	sID := m.Params().AddConstant(0.0)
	pID := m.Params().AddConstant(0.0)

	if _, err := m.AddBlock("FLOW", "inflow", []string{"n1"}, nil, []int{qID}); err != nil {
		t.Fatalf("AddBlock inflow: %v", err)
	}
	if _, err := m.AddBlock("BloodVessel", "vessel", []string{"n1"}, []string{"n2"}, []int{rID, cID, lID, sID}); err != nil {
		t.Fatalf("AddBlock vessel: %v", err)
	}
	if _, err := m.AddBlock("PRESSURE", "outflow", []string{"n2"}, nil, []int{pID}); err != nil {
		t.Fatalf("AddBlock outflow: %v", err)
	}
	if err := m.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	return m
}

func TestGeneralizedAlphaCoefficients(t *testing.T) {
	m := buildRCModel(t)
	rho := 0.5
	it, err := New(m, 0.01, rho, 1e-8, 30)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	wantAlphaM := 0.5 * (3.0 - rho) / (1.0 + rho)
	wantAlphaF := 1.0 / (1.0 + rho)
	wantGamma := 0.5 + wantAlphaM - wantAlphaF
	wantYdotInit := 1.0 - 1.0/wantGamma
	wantYCoeff := wantGamma * 0.01
	wantYCoeffJac := wantAlphaF * wantYCoeff

	const eps = 1e-12
	if math.Abs(it.alphaM-wantAlphaM) > eps {
		t.Errorf("alpha_m = %v, want %v", it.alphaM, wantAlphaM)
	}
	if math.Abs(it.alphaF-wantAlphaF) > eps {
		t.Errorf("alpha_f = %v, want %v", it.alphaF, wantAlphaF)
	}
	if math.Abs(it.gamma-wantGamma) > eps {
		t.Errorf("gamma = %v, want %v", it.gamma, wantGamma)
	}
	if math.Abs(it.ydotInitCoeff-wantYdotInit) > eps {
		t.Errorf("ydot_init_coeff = %v, want %v", it.ydotInitCoeff, wantYdotInit)
	}
	if math.Abs(it.yCoeff-wantYCoeff) > eps {
		t.Errorf("y_coeff = %v, want %v", it.yCoeff, wantYCoeff)
	}
	if math.Abs(it.yCoeffJac-wantYCoeffJac) > eps {
		t.Errorf("y_coeff_jacobian = %v, want %v", it.yCoeffJac, wantYCoeffJac)
	}
}

func TestGeneralizedAlphaRho1ReducesToTrapezoidal(t *testing.T) {
	m := buildRCModel(t)
	it, err := New(m, 0.01, 1.0, 1e-8, 30)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if it.alphaM != 0.5 || it.alphaF != 0.5 {
		t.Fatalf("rho_inf=1 should give alpha_m=0.5, alpha_f=0.5, got %v, %v", it.alphaM, it.alphaF)
	}
	if math.Abs(it.gamma-0.5) > 1e-12 {
		t.Fatalf("rho_inf=1 should give gamma=0.5, got %v", it.gamma)
	}
}

func TestStepConvergesAndAdvancesTime(t *testing.T) {
	m := buildRCModel(t)
	it, err := New(m, 0.01, 0.5, 1e-8, 30)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	state := NewState(m.Size())
	next, err := it.Step(state, 0.0)
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if !CheckFinite(next.Y) || !CheckFinite(next.Ydot) {
		t.Fatalf("expected finite state after step")
	}
	if it.AverageNonlinearIterations() <= 0 {
		t.Fatalf("expected at least one nonlinear iteration to be recorded")
	}
}

func TestStateEncodeDecodeRoundTrip(t *testing.T) {
	s := State{Y: []float64{1.0, 2.0, 3.0}, Ydot: []float64{-1.0, 0.5}}

	var buf bytes.Buffer
	if err := s.Encode(gob.NewEncoder(&buf)); err != nil {
		t.Fatalf("Encode: %v", err)
	}

	var got State
	if err := got.Decode(gob.NewDecoder(&buf)); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(got.Y) != len(s.Y) || len(got.Ydot) != len(s.Ydot) {
		t.Fatalf("round-tripped lengths mismatch: got %+v, want %+v", got, s)
	}
	for i := range s.Y {
		if got.Y[i] != s.Y[i] {
			t.Errorf("Y[%d] = %v, want %v", i, got.Y[i], s.Y[i])
		}
	}
	for i := range s.Ydot {
		if got.Ydot[i] != s.Ydot[i] {
			t.Errorf("Ydot[%d] = %v, want %v", i, got.Ydot[i], s.Ydot[i])
		}
	}
}

func TestStepDivergesWithSingleIterationBudget(t *testing.T) {
	m := buildRCModel(t)
	it, err := New(m, 0.01, 0.5, 1e-12, 1)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	state := NewState(m.Size())
	if _, err := it.Step(state, 0.0); err == nil {
		t.Fatalf("expected NonlinearDivergence with a single permitted iteration and an unreachable tolerance")
	}
}
