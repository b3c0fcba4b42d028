package simulator

import (
	"testing"

	_ "github.com/cpmech/zerod/block"
	"github.com/cpmech/zerod/integrator"
	"github.com/cpmech/zerod/model"
)

// buildPeriodicModel wires a sinusoidal flow source into a single
// vessel terminated by a three-element Windkessel, enough to exercise
// a standalone run with cycle-to-cycle convergence checking.
func buildPeriodicModel(t *testing.T) *model.Model {
	t.Helper()
	m := model.New()
	if _, err := m.AddNode("n1", []string{"inflow"}, []string{"vessel"}); err != nil {
		t.Fatalf("AddNode n1: %v", err)
	}
	if _, err := m.AddNode("n2", []string{"vessel"}, []string{"rcr"}); err != nil {
		t.Fatalf("AddNode n2: %v", err)
	}

	times := []float64{0.0, 0.25, 0.5, 0.75, 1.0}
	values := []float64{1.0, 2.0, 1.0, 0.5, 1.0}
	qID, err := m.Params().AddSeries(times, values, true)
	if err != nil {
		t.Fatalf("AddSeries: %v", err)
	}
	rID := m.Params().AddConstant(0.1)
	cID := m.Params().AddConstant(1.0)
	lID := m.Params().AddConstant(0.0)
	sID := m.Params().AddConstant(0.0)

	rpID := m.Params().AddConstant(0.1)
	wkCID := m.Params().AddConstant(2.0)
	rdID := m.Params().AddConstant(1.0)
	pdID := m.Params().AddConstant(10.0)

	if _, err := m.AddBlock("FLOW", "inflow", []string{"n1"}, nil, []int{qID}); err != nil {
		t.Fatalf("AddBlock inflow: %v", err)
	}
	if _, err := m.AddBlock("BloodVessel", "vessel", []string{"n1"}, []string{"n2"}, []int{rID, cID, lID, sID}); err != nil {
		t.Fatalf("AddBlock vessel: %v", err)
	}
	if _, err := m.AddBlock("RCR", "rcr", []string{"n2"}, nil, []int{rpID, wkCID, rdID, pdID}); err != nil {
		t.Fatalf("AddBlock rcr: %v", err)
	}
	if err := m.SetVesselRole("vessel", "both"); err != nil {
		t.Fatalf("SetVesselRole: %v", err)
	}
	if err := m.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	return m
}

func TestNewAppliesWindkesselCycleOverride(t *testing.T) {
	m := buildPeriodicModel(t)
	params := Parameters{
		Rho: 0.5, Atol: 1e-8, MaxNliter: 30,
		PointsPerCycle: 11, NumCycles: 1,
		OutputInterval: 1, OutputAllCycles: true,
		UseCycleToCycleError: true, CycleToCycleError: 0.01,
	}
	s, err := New(m, params)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if s.numTimeSteps <= 11 {
		t.Fatalf("expected windkessel cycle override to extend the schedule past 1 cycle, got %d steps", s.numTimeSteps)
	}
}

func TestRunStandaloneProducesOutputs(t *testing.T) {
	m := buildPeriodicModel(t)
	params := Parameters{
		Rho: 0.5, Atol: 1e-8, MaxNliter: 30,
		PointsPerCycle: 11, NumCycles: 2,
		OutputInterval:  1,
		OutputAllCycles: true,
	}
	s, err := New(m, params)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	initial := integrator.NewState(m.Size())
	result, err := s.Run(initial)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.Times) != len(result.States) {
		t.Fatalf("times/states length mismatch: %d vs %d", len(result.Times), len(result.States))
	}
	if len(result.Times) != s.NumTimeSteps() {
		t.Fatalf("expected one output per step with OutputInterval=1 and OutputAllCycles=true, got %d outputs for %d steps",
			len(result.Times), s.NumTimeSteps())
	}
}

func TestRunOutputLastCycleOnlyZerosTime(t *testing.T) {
	m := buildPeriodicModel(t)
	params := Parameters{
		Rho: 0.5, Atol: 1e-8, MaxNliter: 30,
		PointsPerCycle: 11, NumCycles: 2,
		OutputInterval:  1,
		OutputAllCycles: false,
	}
	s, err := New(m, params)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	initial := integrator.NewState(m.Size())
	result, err := s.Run(initial)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.Times) == 0 {
		t.Fatalf("expected at least one output")
	}
	if result.Times[0] != 0.0 {
		t.Fatalf("expected output times to start from 0 when OutputAllCycles is false, got %v", result.Times[0])
	}
}

func TestSteadyInitialRejectedWithClosedLoopHeart(t *testing.T) {
	m := model.New()
	if _, err := m.AddNode("n1", nil, []string{"CLH"}); err != nil {
		t.Fatalf("AddNode: %v", err)
	}
	paramIDs := make([]int, 27)
	for i := range paramIDs {
		paramIDs[i] = m.Params().AddConstant(1.0)
	}
	if _, err := m.AddBlock("ClosedLoopHeartAndPulmonary", "CLH", []string{"n1"}, []string{"n1"}, paramIDs); err != nil {
		t.Fatalf("AddBlock CLH: %v", err)
	}

	_, err := New(m, Parameters{SteadyInitial: true})
	if err == nil {
		t.Fatalf("expected steady-initial to be rejected when a ClosedLoopHeartAndPulmonary block is present")
	}
}
