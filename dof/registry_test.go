package dof

import (
	"testing"

	"github.com/cpmech/gosl/chk"
)

func TestRegistryBasic(tst *testing.T) {
	chk.PrintTitle("RegistryBasic")

	r := NewRegistry()
	pIn, err := r.RegisterVariable(PressureName("n0"))
	if err != nil {
		tst.Fatal(err)
	}
	qIn, err := r.RegisterVariable(FlowName("n0"))
	if err != nil {
		tst.Fatal(err)
	}
	chk.IntAssert(pIn, 0)
	chk.IntAssert(qIn, 1)

	if _, err := r.RegisterEquation("row0"); err != nil {
		tst.Fatal(err)
	}
	if _, err := r.RegisterEquation("row1"); err != nil {
		tst.Fatal(err)
	}

	if !r.Consistent() {
		tst.Fatalf("expected variable/equation counts to match")
	}
	chk.IntAssert(r.Size(), 2)
	chk.IntAssert(r.NumVariables(), 2)

	idx, err := r.IndexOf(PressureName("n0"))
	if err != nil || idx != 0 {
		tst.Fatalf("IndexOf failed: %v %v", idx, err)
	}

	if _, err := r.RegisterVariable(PressureName("n0")); err == nil {
		tst.Fatalf("expected duplicate-name error")
	}

	if _, err := r.IndexOf("nonexistent"); err == nil {
		tst.Fatalf("expected NameUnknown error")
	}
}

func TestRegistryInternalName(tst *testing.T) {
	chk.PrintTitle("RegistryInternalName")
	r := NewRegistry()
	idx, err := r.RegisterVariable(InternalName("pressure_c", "wk0"))
	if err != nil {
		tst.Fatal(err)
	}
	chk.IntAssert(idx, 0)
	got, err := r.IndexOf("pressure_c:wk0")
	if err != nil || got != 0 {
		tst.Fatalf("unexpected: %v %v", got, err)
	}
}
