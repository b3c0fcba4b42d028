package block

import "testing"

// schemaArity returns the number of scalar parameter slots a schema
// describes for a block with the given number of array-dimensioned
// legs: fixed (non-array) entries count once, array entries count once
// per leg.
func schemaArity(s Schema, legs int) int {
	n := 0
	for _, p := range s {
		if p.IsArray {
			n += legs
		} else {
			n++
		}
	}
	return n
}

func TestBloodVesselSchemaMatchesParams(t *testing.T) {
	rID, cID, lID, sID := 0, 1, 2, 3
	b := NewBloodVessel("v", []string{"n1"}, []string{"n2"}, []int{rID, cID, lID, sID})
	s := b.Schema()
	if got, want := len(s), len(b.ParamIDs()); got != want {
		t.Fatalf("schema length = %d, want %d", got, want)
	}
	wantNames := []string{"R", "C", "L", "stenosis_coefficient"}
	for i, name := range wantNames {
		if s[i].N != name {
			t.Errorf("schema[%d].N = %q, want %q", i, s[i].N, name)
		}
	}
}

func TestBloodVesselJunctionSchemaArityScalesWithLegs(t *testing.T) {
	b := NewBloodVesselJunction("bvj", []string{"in"}, []string{"o1", "o2", "o3"},
		[]int{0, 1, 2, 3, 4, 5, 6, 7, 8})
	s := b.Schema()
	if got, want := schemaArity(s, b.NumOutlets()), len(b.ParamIDs()); got != want {
		t.Fatalf("schema arity = %d, want %d (3 legs x 3 params)", got, want)
	}
	for _, p := range s {
		if !p.IsArray {
			t.Errorf("expected every BloodVesselJunction schema entry to be array-dimensioned, got %+v", p)
		}
	}
}

func TestJunctionSchemaEmpty(t *testing.T) {
	b := NewJunction("j", []string{"n1", "n2"}, []string{"n3"})
	if s := b.Schema(); s != nil {
		t.Fatalf("expected a plain Junction to declare no parameters, got %+v", s)
	}
}

func TestResistiveJunctionSchemaIsSingleArrayEntry(t *testing.T) {
	b := NewResistiveJunction("rj", []string{"n1", "n2"}, []string{"n3"}, []int{0, 1, 2})
	s := b.Schema()
	if len(s) != 1 || !s[0].IsArray || s[0].N != "R" {
		t.Fatalf("expected a single array-dimensioned %q entry, got %+v", "R", s)
	}
	legs := b.NumInlets() + b.NumOutlets()
	if got, want := schemaArity(s, legs), len(b.ParamIDs()); got != want {
		t.Fatalf("schema arity = %d, want %d", got, want)
	}
}

func TestHeartSchemaMatchesParamCount(t *testing.T) {
	paramIDs := make([]int, 27)
	for i := range paramIDs {
		paramIDs[i] = i
	}
	b := NewClosedLoopHeartPulmonary("heart", []string{"in"}, []string{"out"}, paramIDs)
	s := b.Schema()
	if got, want := len(s), len(paramIDs); got != want {
		t.Fatalf("schema length = %d, want %d", got, want)
	}
	if s[0].N != "Tsa" || s[len(s)-1].N != "Vaso_la" {
		t.Fatalf("unexpected schema boundary names: first=%q last=%q", s[0].N, s[len(s)-1].N)
	}
}

func TestOpenLoopCoronarySchemaMarksPimOptional(t *testing.T) {
	b := NewOpenLoopCoronaryBC("cor", []string{"n1"}, []int{0, 1, 2, 3, 4, 5, 6})
	s := b.Schema()
	for _, p := range s {
		if p.N == "Pim" {
			if !p.Optional {
				t.Fatalf("expected Pim to be optional in OpenLoopCoronaryBC schema, got %+v", p)
			}
			return
		}
	}
	t.Fatalf("expected a Pim entry in schema, got %+v", s)
}
