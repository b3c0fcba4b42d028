// Package block implements the catalog of circuit-analog block kinds that
// make up a model graph: each block contributes rows to the DAE's F, E,
// ∂C/∂y, ∂C/∂ẏ and C via the sparse.System it is handed.
//
// Grounded on original_source/src/model/Block.h's setup_dofs_/global_var_ids/
// global_param_ids contract and on gofem's ele.Element capability-interface
// style (WithIntVars, Connector, CanExtrapolate, WithFixedKM): a block
// implements the mandatory Block interface, and optionally one or more of
// ModelDependent, InitialStateDependent, SteadyToggler, PostSolver and
// Gradient, discovered by the model package via type assertion instead of
// empty method stubs.
package block

import (
	"fmt"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/fun/dbf"

	"github.com/cpmech/zerod/dof"
	"github.com/cpmech/zerod/sparse"
)

// Block is the mandatory surface every block kind implements.
type Block interface {
	Name() string
	Kind() string

	// SetupDofs registers this block's equations and internal variables
	// with reg and resolves its node variables, in the order fixed by
	// original_source's global_var_ids layout: inlet (pressure, flow)
	// pairs, then outlet (pressure, flow) pairs, then internal variables.
	SetupDofs(reg *dof.Registry) error

	// UpdateConstant writes the time- and solution-independent entries
	// of F and E. Called during sparse.System.Reserve, and again through
	// model.Model.UpdateConstant whenever the time step size changes.
	UpdateConstant(sys *sparse.System, params []float64)

	// UpdateTime writes the entries of F, E and C that depend on time
	// and on parameters but not on the current solution iterate.
	UpdateTime(sys *sparse.System, t float64, params []float64)

	// UpdateSolution writes the entries of C, ∂C/∂y and ∂C/∂ẏ that
	// depend on the current Newton iterate y, ẏ.
	UpdateSolution(sys *sparse.System, params []float64, y, ydot []float64)

	// TripletBudget returns the {F, E, D} reservation this block needs.
	TripletBudget() sparse.TripletBudget
}

// ModelDependent is implemented by blocks whose parameters resolve by
// looking up another block in the finished model graph (the closed-loop
// coronary BCs locating the heart block's intramyocardial pressure
// parameter and ventricle variable).
type ModelDependent interface {
	SetupModelDependentParams(lookup func(name string) (Block, bool)) error
}

// InitialStateDependent is implemented by blocks that derive a parameter
// from the initial state vector (OpenLoopCoronaryBC's P_Cim_0/Pim_0).
type InitialStateDependent interface {
	SetupInitialStateDependentParams(y, ydot []float64, params []float64)
}

// SteadyToggler is implemented by blocks whose equations change shape
// (not just parameter values) under a steady-initial-condition solve.
type SteadyToggler interface {
	SetSteady(steady bool)
}

// CardiacCycleAware is implemented by blocks whose time-dependent
// contributions are phase-locked to the cardiac cycle (the heart block's
// activation functions, a chamber's elastance waveform) but which cannot
// derive the period from their own parameters since it is a model-wide
// quantity fixed at Model.Finalize.
type CardiacCycleAware interface {
	SetCardiacCyclePeriod(t float64)
}

// PostSolver is implemented by blocks that edit the solution iterate
// after each linear solve of a Newton iteration, before that
// iteration's increment is applied (ClosedLoopHeartPulmonary zeroing
// closed valve flows).
type PostSolver interface {
	PostSolve(y []float64)
}

// GradientSink is the narrow, block-package-local surface the calibrator
// writes through, kept here (instead of in package calibrate) so neither
// package imports the other.
type GradientSink interface {
	AddResidual(eqnRow int, v float64)
	AddJacobian(eqnRow, paramCol int, v float64)
}

// Gradient is implemented by blocks that support Levenberg-Marquardt
// calibration: the partials of their residual with respect to their own
// parameters.
type Gradient interface {
	UpdateGradient(sink GradientSink, params []float64, y, ydot []float64) error
}

// ParamSpec declares one entry of a block kind's input-parameter schema
// (§3's "declared input-parameter schema"): a name and default carried
// by an embedded dbf.P (the same {N, V} pair gofem's inp.FuncData uses
// for dbf.Params-shaped declarations), plus the three flags the
// JSON-consuming front end (out of scope here) would need to validate a
// supplied value: Optional, IsArray (repeats once per vessel-junction
// outlet leg, e.g.), IsNumber (false for a string-valued declaration;
// every schema in this package declares numeric entries only).
type ParamSpec struct {
	*dbf.P
	Optional bool
	IsArray  bool
	IsNumber bool
}

// Schema is a block kind's ordered parameter declaration list, in the
// same ordinal order ParamIDs()/P(params, i) index into.
type Schema []ParamSpec

// Schematized is implemented by block kinds that publish their declared
// parameter schema; every concrete kind does, but it is kept optional
// (rather than folded into Block) so GradientSink-only test doubles
// need not implement it.
type Schematized interface {
	Schema() Schema
}

// ordinalSchema builds the common case: every ordinal a required,
// numeric scalar, defaulting to 0.
func ordinalSchema(names ...string) Schema {
	s := make(Schema, len(names))
	for i, n := range names {
		s[i] = ParamSpec{P: &dbf.P{N: n, V: 0.0}, IsNumber: true}
	}
	return s
}

// Base provides the DOF bookkeeping shared by every concrete block kind.
type Base struct {
	name string
	kind string

	inletNodes   []string
	outletNodes  []string
	internalVars []string
	paramIDs     []int

	varIDs []int
	eqnIDs []int

	vesselRole string
}

// newBase records the static shape of a block; SetupDofs resolves actual
// indices once the node variables are registered.
func newBase(name, kind string, inletNodes, outletNodes, internalVars []string, paramIDs []int) Base {
	return Base{
		name:         name,
		kind:         kind,
		inletNodes:   inletNodes,
		outletNodes:  outletNodes,
		internalVars: internalVars,
		paramIDs:     paramIDs,
	}
}

// Name returns the block's unique name.
func (b *Base) Name() string { return b.name }

// Kind returns the block's factory tag.
func (b *Base) Kind() string { return b.kind }

// NumInlets returns the number of inlet nodes.
func (b *Base) NumInlets() int { return len(b.inletNodes) }

// NumOutlets returns the number of outlet nodes.
func (b *Base) NumOutlets() int { return len(b.outletNodes) }

// InletNodes returns the node names this block reads as inlets.
func (b *Base) InletNodes() []string { return b.inletNodes }

// OutletNodes returns the node names this block reads as outlets.
func (b *Base) OutletNodes() []string { return b.outletNodes }

// VesselRole returns this block's declared position in the network —
// "inlet", "outlet", "both" or "" (neither) — used by the simulator to
// identify caps for cycle-to-cycle convergence. Declared by the caller
// via SetVesselRole, not derived from topology.
func (b *Base) VesselRole() string { return b.vesselRole }

// SetVesselRole records this block's vessel role.
func (b *Base) SetVesselRole(role string) { b.vesselRole = role }

// Var returns the global variable index at local position i.
func (b *Base) Var(i int) int { return b.varIDs[i] }

// Eqn returns the global equation index at local position i.
func (b *Base) Eqn(i int) int { return b.eqnIDs[i] }

// ParamIDs returns the global parameter indices of this block, in the
// order documented by the concrete kind's parameter sequence.
func (b *Base) ParamIDs() []int { return b.paramIDs }

// P reads params[b.paramIDs[i]], the value of this block's i-th declared
// parameter.
func (b *Base) P(params []float64, i int) float64 { return params[b.paramIDs[i]] }

// setupDofs registers numEquations equations and resolves global_var_ids
// in inlet/outlet/internal order, mirroring Block::setup_dofs_.
func (b *Base) setupDofs(reg *dof.Registry, numEquations int) error {
	var varIDs []int
	for _, n := range b.inletNodes {
		p, err := reg.IndexOf(dof.PressureName(n))
		if err != nil {
			return err
		}
		q, err := reg.IndexOf(dof.FlowName(n))
		if err != nil {
			return err
		}
		varIDs = append(varIDs, p, q)
	}
	for _, n := range b.outletNodes {
		p, err := reg.IndexOf(dof.PressureName(n))
		if err != nil {
			return err
		}
		q, err := reg.IndexOf(dof.FlowName(n))
		if err != nil {
			return err
		}
		varIDs = append(varIDs, p, q)
	}
	for _, iv := range b.internalVars {
		idx, err := reg.RegisterVariable(dof.InternalName(iv, b.name))
		if err != nil {
			return err
		}
		varIDs = append(varIDs, idx)
	}
	eqnIDs := make([]int, numEquations)
	for i := 0; i < numEquations; i++ {
		idx, err := reg.RegisterEquation(fmt.Sprintf("%s:%s:eq%d", b.kind, b.name, i))
		if err != nil {
			return err
		}
		eqnIDs[i] = idx
	}
	b.varIDs = varIDs
	b.eqnIDs = eqnIDs
	return nil
}

// Allocator builds a block of a specific kind from its wiring and
// resolved global parameter ids.
type Allocator func(name string, inletNodes, outletNodes []string, paramIDs []int) Block

var allocators = make(map[string]Allocator)

// SetAllocator registers a block kind's allocator under its factory tag,
// the string names used by original_source/src/model/Model.cpp's
// block_factory_map. Panics if the tag is already registered.
func SetAllocator(kind string, fcn Allocator) {
	if _, ok := allocators[kind]; ok {
		chk.Panic("block: cannot set allocator for kind %q because it exists already", kind)
	}
	allocators[kind] = fcn
}

// GetAllocator returns the allocator registered for kind, panicking if
// none was registered — a programmer error, not a recoverable one.
func GetAllocator(kind string) Allocator {
	if fcn, ok := allocators[kind]; ok {
		return fcn
	}
	chk.Panic("block: no allocator registered for kind %q", kind)
	return nil
}

// New allocates a block of the given kind.
func New(kind, name string, inletNodes, outletNodes []string, paramIDs []int) Block {
	return GetAllocator(kind)(name, inletNodes, outletNodes, paramIDs)
}

// Kinds returns the factory tags of every registered block kind, in map
// iteration order: the order is not defined and may differ between calls.
func Kinds() []string {
	ks := make([]string, 0, len(allocators))
	for k := range allocators {
		ks = append(ks, k)
	}
	return ks
}
