package model

import (
	"testing"

	_ "github.com/cpmech/zerod/block"
	"github.com/cpmech/zerod/sparse"
)

func buildTwoNodeModel(t *testing.T) *Model {
	t.Helper()
	m := New()

	if _, err := m.AddNode("n1", []string{"inflow"}, []string{"vessel"}); err != nil {
		t.Fatalf("AddNode n1: %v", err)
	}
	if _, err := m.AddNode("n2", []string{"vessel"}, []string{"outflow"}); err != nil {
		t.Fatalf("AddNode n2: %v", err)
	}

	qID := m.Params().AddConstant(5.0)
	rID := m.Params().AddConstant(0.1)
	cID := m.Params().AddConstant(1.0)
	lID := m.Params().AddConstant(0.01)
	sID := m.Params().AddConstant(0.0)
	pID := m.Params().AddConstant(80.0)

	if _, err := m.AddBlock("FLOW", "inflow", []string{"n1"}, nil, []int{qID}); err != nil {
		t.Fatalf("AddBlock inflow: %v", err)
	}
	if _, err := m.AddBlock("BloodVessel", "vessel", []string{"n1"}, []string{"n2"}, []int{rID, cID, lID, sID}); err != nil {
		t.Fatalf("AddBlock vessel: %v", err)
	}
	if _, err := m.AddBlock("PRESSURE", "outflow", []string{"n2"}, nil, []int{pID}); err != nil {
		t.Fatalf("AddBlock outflow: %v", err)
	}

	if err := m.SetVesselRole("vessel", "both"); err != nil {
		t.Fatalf("SetVesselRole: %v", err)
	}
	return m
}

func TestModelFinalizeConsistentDofs(t *testing.T) {
	m := buildTwoNodeModel(t)
	if err := m.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if !m.DOFs().Consistent() {
		t.Fatalf("expected variable/equation count to match after Finalize, got %d vars vs %d eqns",
			m.DOFs().NumVariables(), m.DOFs().Size())
	}
	if m.Size() != 4 {
		t.Fatalf("expected 4 DOFs (pressure/flow at 2 nodes), got %d", m.Size())
	}
}

func TestModelDuplicateNodeRejected(t *testing.T) {
	m := New()
	if _, err := m.AddNode("n1", nil, nil); err != nil {
		t.Fatalf("AddNode: %v", err)
	}
	if _, err := m.AddNode("n1", nil, nil); err == nil {
		t.Fatalf("expected duplicate node name to fail")
	}
}

func TestModelDuplicateBlockRejected(t *testing.T) {
	m := New()
	if _, err := m.AddNode("n1", nil, nil); err != nil {
		t.Fatalf("AddNode: %v", err)
	}
	qID := m.Params().AddConstant(1.0)
	if _, err := m.AddBlock("FLOW", "b1", []string{"n1"}, nil, []int{qID}); err != nil {
		t.Fatalf("AddBlock: %v", err)
	}
	if _, err := m.AddBlock("FLOW", "b1", []string{"n1"}, nil, []int{qID}); err == nil {
		t.Fatalf("expected duplicate block name to fail")
	}
}

func TestModelVesselCapDOFs(t *testing.T) {
	m := buildTwoNodeModel(t)
	if err := m.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	caps := m.VesselCapDOFs()
	if len(caps) != 2 {
		t.Fatalf("expected 2 caps for a 'both' role vessel, got %d", len(caps))
	}
}

func TestModelSteadyRoundTrip(t *testing.T) {
	m := New()
	if _, err := m.AddNode("n1", nil, []string{"rcr"}); err != nil {
		t.Fatalf("AddNode: %v", err)
	}
	rpID := m.Params().AddConstant(0.1)
	cID := m.Params().AddConstant(2.0)
	rdID := m.Params().AddConstant(1.0)
	pdID := m.Params().AddConstant(10.0)
	if _, err := m.AddBlock("RCR", "rcr", []string{"n1"}, nil, []int{rpID, cID, rdID, pdID}); err != nil {
		t.Fatalf("AddBlock: %v", err)
	}
	if err := m.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if !m.HasWindkessel() {
		t.Fatalf("expected HasWindkessel to be true")
	}
	if got, want := m.LargestWindkesselTimeConstant(), 2.0; got != want {
		t.Fatalf("LargestWindkesselTimeConstant = %v, want %v", got, want)
	}

	before := m.Params().Value(cID)
	m.ToSteady()
	if got := m.Params().Value(cID); got != 0.0 {
		t.Fatalf("expected capacitance zeroed under ToSteady, got %v", got)
	}
	m.ToUnsteady()
	if got := m.Params().Value(cID); got != before {
		t.Fatalf("expected capacitance restored under ToUnsteady, got %v want %v", got, before)
	}
}

func TestModelUpdatePasses(t *testing.T) {
	m := buildTwoNodeModel(t)
	if err := m.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	sys := sparse.NewSystem(m.Size(), "")
	m.UpdateConstant(sys)
	m.UpdateTime(sys, 0.0)
	y := make([]float64, m.Size())
	ydot := make([]float64, m.Size())
	for i := range y {
		y[i] = 1.0
		ydot[i] = 1.0
	}
	m.UpdateSolution(sys, y, ydot)
	m.PostSolve(y)
}
