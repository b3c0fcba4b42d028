package coupling

import (
	"testing"

	_ "github.com/cpmech/zerod/block"
	"github.com/cpmech/zerod/integrator"
	"github.com/cpmech/zerod/model"
)

func buildCoupledModel(t *testing.T) (*model.Model, int, int) {
	t.Helper()
	m := model.New()
	if _, err := m.AddNode("n1", []string{"inflow"}, []string{"vessel"}); err != nil {
		t.Fatalf("AddNode n1: %v", err)
	}
	if _, err := m.AddNode("n2", []string{"vessel"}, []string{"outflow"}); err != nil {
		t.Fatalf("AddNode n2: %v", err)
	}

	qID := m.Params().AddConstant(2.0)
	rID := m.Params().AddConstant(0.5)
	cID := m.Params().AddConstant(1.0)
	lID := m.Params().AddConstant(0.02)
	sID := m.Params().AddConstant(0.0)
	pID := m.Params().AddConstant(15.0)

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
	return m, qID, pID
}

func TestInitializeReturnsMetadata(t *testing.T) {
	m, _, _ := buildCoupledModel(t)
	r := NewRegistry()
	id, ptsPerCycle, numCycles, numOutputSteps, blockNames, variableNames, err := r.Initialize(Config{
		Model: m, Rho: 0.5, Atol: 1e-8, MaxNliter: 30,
		Coupled: true, ExternalStepSize: 0.1, NumTimeSteps: 11,
		OutputAllCycles: true,
		Initial:         integrator.NewState(m.Size()),
	})
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if ptsPerCycle != 0 || numCycles != 0 {
		t.Fatalf("standalone-only fields should pass through unmodified, got %d, %d", ptsPerCycle, numCycles)
	}
	if numOutputSteps != 11 {
		t.Fatalf("numOutputSteps = %d, want 11", numOutputSteps)
	}
	if len(blockNames) != 3 {
		t.Fatalf("expected 3 block names, got %d", len(blockNames))
	}
	if len(variableNames) != m.Size() {
		t.Fatalf("expected %d variable names, got %d", m.Size(), len(variableNames))
	}
	if _, err := r.get(id); err != nil {
		t.Fatalf("expected handle %d to be registered: %v", id, err)
	}
}

func TestIncrementTimeAdvancesState(t *testing.T) {
	m, _, _ := buildCoupledModel(t)
	r := NewRegistry()
	id, _, _, _, _, _, err := r.Initialize(Config{
		Model: m, Rho: 0.5, Atol: 1e-8, MaxNliter: 30,
		Coupled: true, ExternalStepSize: 0.1, NumTimeSteps: 11,
		OutputAllCycles: true,
		Initial:         integrator.NewState(m.Size()),
	})
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	y, err := r.IncrementTime(id, 0.0)
	if err != nil {
		t.Fatalf("IncrementTime: %v", err)
	}
	if len(y) != m.Size() {
		t.Fatalf("expected solution of length %d, got %d", m.Size(), len(y))
	}
}

func TestUpdateAndReadBlockParamsRoundTrip(t *testing.T) {
	m, qID, _ := buildCoupledModel(t)
	r := NewRegistry()
	id, _, _, _, _, _, err := r.Initialize(Config{
		Model: m, Rho: 0.5, Atol: 1e-8, MaxNliter: 30,
		Coupled: true, ExternalStepSize: 0.1, NumTimeSteps: 11,
		OutputAllCycles: true,
		Initial:         integrator.NewState(m.Size()),
	})
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	newSeries := []float64{2, 0.0, 0.5, 3.0, 4.0}
	if err := r.UpdateBlockParams(id, "inflow", newSeries); err != nil {
		t.Fatalf("UpdateBlockParams: %v", err)
	}
	if got := m.Params().Value(qID); got != 3.0 {
		t.Fatalf("expected flow value at t=0 to become 3.0, got %v", got)
	}

	vesselParams, err := r.ReadBlockParams(id, "vessel")
	if err != nil {
		t.Fatalf("ReadBlockParams: %v", err)
	}
	if len(vesselParams) != 4 {
		t.Fatalf("expected 4 vessel parameters, got %d", len(vesselParams))
	}

	newVessel := []float64{0.6, 1.2, 0.03, 0.1}
	if err := r.UpdateBlockParams(id, "vessel", newVessel); err != nil {
		t.Fatalf("UpdateBlockParams vessel: %v", err)
	}
	got, err := r.ReadBlockParams(id, "vessel")
	if err != nil {
		t.Fatalf("ReadBlockParams: %v", err)
	}
	for i, want := range newVessel {
		if got[i] != want {
			t.Errorf("vessel param %d = %v, want %v", i, got[i], want)
		}
	}
}

func TestGetBlockNodeIndicesLayout(t *testing.T) {
	m, _, _ := buildCoupledModel(t)
	r := NewRegistry()
	id, _, _, _, _, _, err := r.Initialize(Config{
		Model: m, Rho: 0.5, Atol: 1e-8, MaxNliter: 30,
		Coupled: true, ExternalStepSize: 0.1, NumTimeSteps: 11,
		OutputAllCycles: true,
		Initial:         integrator.NewState(m.Size()),
	})
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	layout, err := r.GetBlockNodeIndices(id, "vessel")
	if err != nil {
		t.Fatalf("GetBlockNodeIndices: %v", err)
	}
	if layout[0] != 1 {
		t.Fatalf("expected 1 inlet node, got %d", layout[0])
	}
	afterInlet := 1 + 2*layout[0]
	if layout[afterInlet] != 1 {
		t.Fatalf("expected 1 outlet node, got %d", layout[afterInlet])
	}
}

func TestUpdateStateAndGetters(t *testing.T) {
	m, _, _ := buildCoupledModel(t)
	r := NewRegistry()
	id, _, _, _, _, _, err := r.Initialize(Config{
		Model: m, Rho: 0.5, Atol: 1e-8, MaxNliter: 30,
		Coupled: true, ExternalStepSize: 0.1, NumTimeSteps: 11,
		OutputAllCycles: true,
		Initial:         integrator.NewState(m.Size()),
	})
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	y := make([]float64, m.Size())
	ydot := make([]float64, m.Size())
	for i := range y {
		y[i] = float64(i) + 1.0
		ydot[i] = 0.5
	}
	if err := r.UpdateState(id, y, ydot); err != nil {
		t.Fatalf("UpdateState: %v", err)
	}
	gotY, err := r.GetY(id)
	if err != nil {
		t.Fatalf("GetY: %v", err)
	}
	for i := range gotY {
		if gotY[i] != y[i] {
			t.Errorf("y[%d] = %v, want %v", i, gotY[i], y[i])
		}
	}
	gotYdot, err := r.GetYdot(id)
	if err != nil {
		t.Fatalf("GetYdot: %v", err)
	}
	for i := range gotYdot {
		if gotYdot[i] != ydot[i] {
			t.Errorf("ydot[%d] = %v, want %v", i, gotYdot[i], ydot[i])
		}
	}
}

func TestRunSimulationProducesOutputs(t *testing.T) {
	m, _, _ := buildCoupledModel(t)
	r := NewRegistry()
	id, _, _, numOutputSteps, _, _, err := r.Initialize(Config{
		Model: m, Rho: 0.5, Atol: 1e-8, MaxNliter: 30,
		Coupled: true, ExternalStepSize: 0.1, NumTimeSteps: 11,
		OutputAllCycles: true,
		Initial:         integrator.NewState(m.Size()),
	})
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	times, solutions, errorCode, err := r.RunSimulation(id, 0.0)
	if err != nil {
		t.Fatalf("RunSimulation: %v", err)
	}
	if errorCode != 0 {
		t.Fatalf("expected errorCode 0, got %d", errorCode)
	}
	if len(times) != numOutputSteps {
		t.Fatalf("expected %d output times, got %d", numOutputSteps, len(times))
	}
	if len(solutions) != numOutputSteps*m.Size() {
		t.Fatalf("expected %d solution entries, got %d", numOutputSteps*m.Size(), len(solutions))
	}
}

// TestRunSimulationLastCycleOnlyUsesTrailingWindow pins down a bug
// where the history buffer was sized to numOutputSteps (the last
// cycle's point count) but indexed by the absolute step number, so
// only the *first* pointsPerCycle steps of a multi-cycle run were ever
// recorded; the last-cycle extraction window then read past what had
// been stored and returned all-zero output.
func TestRunSimulationLastCycleOnlyUsesTrailingWindow(t *testing.T) {
	m, _, _ := buildCoupledModel(t)
	r := NewRegistry()
	const pointsPerCycle = 5
	id, _, _, numOutputSteps, _, _, err := r.Initialize(Config{
		Model: m, Rho: 0.5, Atol: 1e-8, MaxNliter: 30,
		Coupled: true, ExternalStepSize: 0.2, NumTimeSteps: 21,
		OutputAllCycles: false, PointsPerCycle: pointsPerCycle,
		Initial: integrator.NewState(m.Size()),
	})
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if numOutputSteps != pointsPerCycle {
		t.Fatalf("expected numOutputSteps = %d, got %d", pointsPerCycle, numOutputSteps)
	}

	times, solutions, errorCode, err := r.RunSimulation(id, 0.0)
	if err != nil {
		t.Fatalf("RunSimulation: %v", err)
	}
	if errorCode != 0 {
		t.Fatalf("expected errorCode 0, got %d", errorCode)
	}
	if len(times) != pointsPerCycle {
		t.Fatalf("expected %d output times, got %d", pointsPerCycle, len(times))
	}
	if times[0] != 0.0 {
		t.Fatalf("expected output time to be zeroed at the window start, got %v", times[0])
	}
	for i := 1; i < len(times); i++ {
		if times[i] <= times[i-1] {
			t.Fatalf("expected strictly increasing output times, got %v", times)
		}
	}
	allZero := true
	for _, v := range solutions {
		if v != 0.0 {
			allZero = false
			break
		}
	}
	if allZero {
		t.Fatalf("expected non-degenerate solution output from the trailing window, got all zeros")
	}
}

func TestUnknownProblemIDFails(t *testing.T) {
	r := NewRegistry()
	if _, err := r.GetY(999); err == nil {
		t.Fatalf("expected an error for an unregistered problem id")
	}
}
