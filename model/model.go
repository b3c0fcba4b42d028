// Package model implements the model graph (C5): it owns blocks, nodes,
// the parameter store and the DOF registry, and orchestrates the
// populate/finalize phases plus the per-step update calls the
// integrator drives.
//
// Grounded on fem/domain.go's NewDomains/SetStage orchestration (phase
// ordering, per-element DOF assignment, subset bucketing via type
// assertions in add_element_to_subsets) and on
// original_source/src/model/Model.cpp for the exact phase list and
// steady-collapse special case.
package model

import (
	"github.com/cpmech/gosl/chk"

	"github.com/cpmech/zerod/block"
	"github.com/cpmech/zerod/dof"
	"github.com/cpmech/zerod/param"
	"github.com/cpmech/zerod/sparse"
)

// Node is a connection point between blocks: it owns no state, existing
// only to route a pressure and a flow DOF into the registry.
// InletBlocks/OutletBlocks are the block names adjacent to the node,
// recorded for block-node duality checks and cap identification.
type Node struct {
	Name         string
	InletBlocks  []string // blocks whose outlet is this node
	OutletBlocks []string // blocks whose inlet is this node
}

// Model owns the blocks, nodes, parameter store and DOF registry of one
// hemodynamic network, plus runtime state mutated only by the
// integrator.
type Model struct {
	nodes    []*Node
	nodeIdx  map[string]int
	blocks   []block.Block
	hidden   []bool
	blockIdx map[string]int

	params   *param.Store
	dofs     *dof.Registry
	finalize bool

	cardiacCyclePeriod float64

	time float64

	hasWindkessel                 bool
	largestWindkesselTimeConstant float64

	// steadyCapacitance caches the capacitance parameter (second
	// declared ordinal) of WindkesselBC/ClosedLoopRCRBC blocks across a
	// ToSteady/ToUnsteady round trip.
	steadyCapacitance map[string]float64
	steady            bool
}

// New returns an empty model graph backed by a fresh parameter store
// and DOF registry.
func New() *Model {
	return &Model{
		nodeIdx:           make(map[string]int),
		blockIdx:          make(map[string]int),
		params:            param.NewStore(),
		dofs:              dof.NewRegistry(),
		steadyCapacitance: make(map[string]float64),
	}
}

// Params returns the model's parameter store.
func (m *Model) Params() *param.Store { return m.params }

// DOFs returns the model's DOF registry.
func (m *Model) DOFs() *dof.Registry { return m.dofs }

// Time returns the most recently set simulation time.
func (m *Model) Time() float64 { return m.time }

// CardiacCyclePeriod returns the model-wide cardiac cycle period,
// pinned at Finalize.
func (m *Model) CardiacCyclePeriod() float64 { return m.cardiacCyclePeriod }

// HasWindkessel reports whether any WindkesselBC block exists.
func (m *Model) HasWindkessel() bool { return m.hasWindkessel }

// LargestWindkesselTimeConstant returns max(R_d*C) over WindkesselBC
// blocks, or 0 if none exist.
func (m *Model) LargestWindkesselTimeConstant() float64 { return m.largestWindkesselTimeConstant }

// Blocks returns every visible block in insertion order.
func (m *Model) Blocks() []block.Block {
	out := make([]block.Block, 0, len(m.blocks))
	for i, b := range m.blocks {
		if !m.hidden[i] {
			out = append(out, b)
		}
	}
	return out
}

// Block looks up a block by name.
func (m *Model) Block(name string) (block.Block, bool) {
	i, ok := m.blockIdx[name]
	if !ok {
		return nil, false
	}
	return m.blocks[i], true
}

// Nodes returns every node in insertion order.
func (m *Model) Nodes() []*Node { return m.nodes }

// AddNode registers a node by name, with the names of the blocks
// connected to it for adjacency bookkeeping. Fails if the name is
// already used.
func (m *Model) AddNode(name string, inletBlocks, outletBlocks []string) (*Node, error) {
	if _, dup := m.nodeIdx[name]; dup {
		return nil, chk.Err("model: node %q already exists", name)
	}
	n := &Node{Name: name, InletBlocks: inletBlocks, OutletBlocks: outletBlocks}
	m.nodeIdx[name] = len(m.nodes)
	m.nodes = append(m.nodes, n)
	return n, nil
}

// AddBlock allocates a block of kind using the catalog's factory and
// registers it by name. Fails if the name is already used.
func (m *Model) AddBlock(kind, name string, inletNodes, outletNodes []string, paramIDs []int) (block.Block, error) {
	return m.addBlock(kind, name, inletNodes, outletNodes, paramIDs, false)
}

// AddHiddenBlock allocates a block that is registered by name but is
// not surfaced by Blocks(). Finalize and the update, post-solve and
// steady passes skip hidden blocks, so a hidden block registers no DOFs
// and contributes no equations.
func (m *Model) AddHiddenBlock(kind, name string, inletNodes, outletNodes []string, paramIDs []int) (block.Block, error) {
	return m.addBlock(kind, name, inletNodes, outletNodes, paramIDs, true)
}

func (m *Model) addBlock(kind, name string, inletNodes, outletNodes []string, paramIDs []int, hidden bool) (block.Block, error) {
	if _, dup := m.blockIdx[name]; dup {
		return nil, chk.Err("model: block %q already exists", name)
	}
	b := block.New(kind, name, inletNodes, outletNodes, paramIDs)
	m.blockIdx[name] = len(m.blocks)
	m.blocks = append(m.blocks, b)
	m.hidden = append(m.hidden, hidden)
	return b, nil
}

// SetVesselRole records a vessel-class block's declared position:
// "inlet", "outlet", "both" or "" (neither).
func (m *Model) SetVesselRole(blockName, role string) error {
	b, ok := m.Block(blockName)
	if !ok {
		return chk.Err("model: unknown block %q", blockName)
	}
	type roleSetter interface{ SetVesselRole(string) }
	rs, ok := b.(roleSetter)
	if !ok {
		return chk.Err("model: block %q does not support a vessel role", blockName)
	}
	rs.SetVesselRole(role)
	return nil
}

// Finalize must be called exactly once before any integration or
// calibration. It registers every node's DOFs, then every visible
// block's DOFs and model-dependent parameters, in insertion order, and
// pins the cardiac cycle period if no parameter did.
func (m *Model) Finalize() error {
	if m.finalize {
		chk.Panic("model: Finalize called twice")
	}
	for _, n := range m.nodes {
		if _, err := m.dofs.RegisterVariable(dof.PressureName(n.Name)); err != nil {
			return err
		}
		if _, err := m.dofs.RegisterVariable(dof.FlowName(n.Name)); err != nil {
			return err
		}
	}
	for i, b := range m.blocks {
		if m.hidden[i] {
			continue
		}
		if err := b.SetupDofs(m.dofs); err != nil {
			return err
		}
	}
	lookup := func(name string) (block.Block, bool) { return m.Block(name) }
	for i, b := range m.blocks {
		if m.hidden[i] {
			continue
		}
		if md, ok := b.(block.ModelDependent); ok {
			if err := md.SetupModelDependentParams(lookup); err != nil {
				return err
			}
		}
	}
	if m.params.CardiacCyclePeriod() > 0.0 {
		m.cardiacCyclePeriod = m.params.CardiacCyclePeriod()
	} else {
		m.cardiacCyclePeriod = 1.0
	}
	for i, b := range m.blocks {
		if m.hidden[i] {
			continue
		}
		if cca, ok := b.(block.CardiacCycleAware); ok {
			cca.SetCardiacCyclePeriod(m.cardiacCyclePeriod)
		}
	}
	m.detectWindkessel()
	m.finalize = true
	return nil
}

func (m *Model) detectWindkessel() {
	m.hasWindkessel = false
	m.largestWindkesselTimeConstant = 0.0
	for i, b := range m.blocks {
		if m.hidden[i] || b.Kind() != "RCR" {
			continue
		}
		m.hasWindkessel = true
		ids := b.(interface{ ParamIDs() []int }).ParamIDs()
		rd := m.params.Value(ids[block.WindkesselRd])
		c := m.params.Value(ids[block.WindkesselC])
		tau := rd * c
		if tau > m.largestWindkesselTimeConstant {
			m.largestWindkesselTimeConstant = tau
		}
	}
}

// UpdateConstant drives every visible block's UpdateConstant; the
// integrator calls it again whenever the time step size changes.
func (m *Model) UpdateConstant(sys *sparse.System) {
	values := m.params.Values()
	for i, b := range m.blocks {
		if !m.hidden[i] {
			b.UpdateConstant(sys, values)
		}
	}
}

// UpdateTime refreshes the parameter cache at t and drives every
// visible block's UpdateTime, called once per integrator step before
// any Newton iteration.
func (m *Model) UpdateTime(sys *sparse.System, t float64) {
	m.time = t
	m.params.UpdateTime(t)
	values := m.params.Values()
	for i, b := range m.blocks {
		if !m.hidden[i] {
			b.UpdateTime(sys, t, values)
		}
	}
}

// UpdateSolution drives every visible block's UpdateSolution, called
// once per Newton iteration.
func (m *Model) UpdateSolution(sys *sparse.System, y, ydot []float64) {
	values := m.params.Values()
	for i, b := range m.blocks {
		if !m.hidden[i] {
			b.UpdateSolution(sys, values, y, ydot)
		}
	}
}

// PostSolve drives every visible block's optional post-Newton
// projection.
func (m *Model) PostSolve(y []float64) {
	for i, b := range m.blocks {
		if m.hidden[i] {
			continue
		}
		if ps, ok := b.(block.PostSolver); ok {
			ps.PostSolve(y)
		}
	}
}

// SetupInitialStateDependentParameters drives every block's optional
// initial-state-dependent parameter derivation, called once after the
// steady prefix (or from the raw initial condition if no steady prefix
// ran).
func (m *Model) SetupInitialStateDependentParameters(y, ydot []float64) {
	values := m.params.Values()
	for i, b := range m.blocks {
		if m.hidden[i] {
			continue
		}
		if isd, ok := b.(block.InitialStateDependent); ok {
			isd.SetupInitialStateDependentParams(y, ydot, values)
		}
	}
}

// ToSteady collapses every time-series parameter to its mean and, for
// WindkesselBC/ClosedLoopRCRBC blocks, additionally caches and zeroes
// the capacitance parameter so the steady prefix sees a pure resistance.
// Every block is flagged steady via SteadyToggler.
func (m *Model) ToSteady() {
	if m.steady {
		return
	}
	m.params.ToSteady()
	for i, b := range m.blocks {
		if m.hidden[i] {
			continue
		}
		if b.Kind() == "RCR" || b.Kind() == "ClosedLoopRCR" {
			ids := b.(interface{ ParamIDs() []int }).ParamIDs()
			capID := capacitanceParamID(b.Kind(), ids)
			m.steadyCapacitance[b.Name()] = m.params.Value(capID)
			if p := m.params.Get(capID); p.IsConstant() {
				p.Update(0.0)
			} else {
				p.UpdateSeries([]float64{0.0, 1.0}, []float64{0.0, 0.0})
			}
			m.params.SetValue(capID, 0.0)
		}
		if st, ok := b.(block.SteadyToggler); ok {
			st.SetSteady(true)
		}
	}
	m.steady = true
}

// ToUnsteady restores every steady-converted parameter and cached
// capacitance.
func (m *Model) ToUnsteady() {
	if !m.steady {
		return
	}
	m.params.ToUnsteady()
	for i, b := range m.blocks {
		if m.hidden[i] {
			continue
		}
		if c, ok := m.steadyCapacitance[b.Name()]; ok {
			ids := b.(interface{ ParamIDs() []int }).ParamIDs()
			capID := capacitanceParamID(b.Kind(), ids)
			if p := m.params.Get(capID); p.IsConstant() {
				p.Update(c)
			}
			m.params.SetValue(capID, c)
		}
		if st, ok := b.(block.SteadyToggler); ok {
			st.SetSteady(false)
		}
	}
	m.steady = false
}

func capacitanceParamID(kind string, ids []int) int {
	switch kind {
	case "RCR":
		return ids[block.WindkesselC]
	case "ClosedLoopRCR":
		return ids[block.ClosedLoopRCRC]
	default:
		chk.Panic("model: %q has no capacitance ordinal for steady collapse", kind)
		return -1
	}
}

// adapter narrows a block.Block plus this model's live parameter
// values into the sparse.Block surface sparse.System.Reserve needs:
// the three dummy-pass hooks and the triplet budget.
type adapter struct {
	blk    block.Block
	params *param.Store
}

func (a adapter) UpdateConstant(sys *sparse.System)              { a.blk.UpdateConstant(sys, a.params.Values()) }
func (a adapter) UpdateTime(sys *sparse.System, t float64)       { a.blk.UpdateTime(sys, t, a.params.Values()) }
func (a adapter) UpdateSolution(sys *sparse.System, y, ydot []float64) {
	a.blk.UpdateSolution(sys, a.params.Values(), y, ydot)
}
func (a adapter) TripletBudget() sparse.TripletBudget { return a.blk.TripletBudget() }

// SparseBlocks returns the sparse.Block adapters sparse.System.Reserve
// needs, one per visible block.
func (m *Model) SparseBlocks() []sparse.Block {
	out := make([]sparse.Block, 0, len(m.blocks))
	for i, b := range m.blocks {
		if !m.hidden[i] {
			out = append(out, adapter{blk: b, params: m.params})
		}
	}
	return out
}

// Size returns the DOF registry's dimension, valid after Finalize.
func (m *Model) Size() int { return m.dofs.Size() }

// VesselCapDOFs returns the (flowDOF, pressureDOF) pair for every cap —
// the inlet of an inlet-or-both-role vessel, the outlet of an
// outlet-or-both-role vessel — used by the simulator's cycle-to-cycle
// convergence check.
func (m *Model) VesselCapDOFs() [][2]int {
	type vesselRoler interface{ VesselRole() string }
	var caps [][2]int
	for i, b := range m.blocks {
		if m.hidden[i] || b.Kind() != "BloodVessel" {
			continue
		}
		vr, ok := b.(vesselRoler)
		if !ok {
			continue
		}
		role := vr.VesselRole()
		base := b.(interface {
			Var(int) int
		})
		if role == "inlet" || role == "both" {
			caps = append(caps, [2]int{base.Var(1), base.Var(0)})
		}
		if role == "outlet" || role == "both" {
			caps = append(caps, [2]int{base.Var(3), base.Var(2)})
		}
	}
	return caps
}
