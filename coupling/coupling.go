// Package coupling implements the external coupling facade (C9): a
// handle-keyed surface a 3D solver drives to advance a 0D network in
// lockstep with its own time stepping, read and write block
// parameters mid-run, and inspect or overwrite the current state.
//
// Grounded on original_source/src/interface/interface.cpp's
// SolverInterface and its extern "C" functions (initialize,
// set_external_step_size, increment_time, run_simulation,
// update_block_params, read_block_params, get_block_node_IDs,
// update_state, return_y/return_ydot). The original keys every
// instance into a file-scope static map (interface_list_/problem_id_);
// this package replaces that with an explicit Registry a caller owns,
// in the style of fem's session-scoped state rather than package
// globals.
package coupling

import (
	"math"
	"strings"

	"github.com/cpmech/gosl/chk"

	"github.com/cpmech/zerod/block"
	"github.com/cpmech/zerod/dof"
	"github.com/cpmech/zerod/integrator"
	"github.com/cpmech/zerod/model"
)

// nanScanInterval mirrors run_simulation's "i % 100 == 0" NaN scan
// cadence.
const nanScanInterval = 100

// Config configures one coupled problem, mirroring the fields
// SolverInterface reads out of the simulation configuration before
// constructing its Integrator.
type Config struct {
	Model *model.Model // already finalized

	Rho       float64
	Atol      float64
	MaxNliter int

	PointsPerCycle int
	NumCycles      int

	Coupled          bool
	ExternalStepSize float64
	NumTimeSteps     int

	SteadyInitial   bool
	OutputAllCycles bool

	Initial integrator.State
}

type handle struct {
	model *model.Model
	it    *integrator.Integrator

	state integrator.State

	timeStepSize     float64
	externalStepSize float64
	rho              float64
	atol             float64
	maxNliter        int

	numTimeSteps    int
	pointsPerCycle  int
	numOutputSteps  int
	outputAllCycles bool

	timeStep int
	times    []float64
	states   []integrator.State
}

// Registry owns a set of live coupled problems, keyed by an opaque
// handle id returned from Initialize.
type Registry struct {
	handles map[int]*handle
	nextID  int
}

// NewRegistry returns an empty handle registry.
func NewRegistry() *Registry {
	return &Registry{handles: make(map[int]*handle)}
}

func (r *Registry) get(id int) (*handle, error) {
	h, ok := r.handles[id]
	if !ok {
		return nil, chk.Err("coupling: unknown problem id %d", id)
	}
	return h, nil
}

// Initialize builds an integrator for cfg.Model, optionally computing
// a steady initial condition first, and returns a handle plus the
// metadata an external driver needs: points per cycle, number of
// cycles, block and variable names.
func (r *Registry) Initialize(cfg Config) (id, ptsPerCycle, numCycles, numOutputSteps int, blockNames, variableNames []string, err error) {
	m := cfg.Model
	if cfg.SteadyInitial {
		if _, ok := m.Block("CLH"); ok {
			return 0, 0, 0, 0, nil, nil, chk.Err(
				"coupling: steady initial condition is not compatible with a ClosedLoopHeartAndPulmonary block")
		}
	}

	var dt float64
	if !cfg.Coupled {
		dt = m.CardiacCyclePeriod() / (float64(cfg.PointsPerCycle) - 1.0)
	} else {
		dt = cfg.ExternalStepSize / (float64(cfg.NumTimeSteps) - 1.0)
	}

	state := cfg.Initial
	if cfg.SteadyInitial {
		dtSteady := m.CardiacCyclePeriod() / 10.0
		m.ToSteady()
		steadyIt, serr := integrator.New(m, dtSteady, cfg.Rho, cfg.Atol, cfg.MaxNliter)
		if serr != nil {
			return 0, 0, 0, 0, nil, nil, serr
		}
		for i := 0; i < 31; i++ {
			state, serr = steadyIt.Step(state, dtSteady*float64(i))
			if serr != nil {
				return 0, 0, 0, 0, nil, nil, serr
			}
		}
		m.ToUnsteady()
	}

	it, err := integrator.New(m, dt, cfg.Rho, cfg.Atol, cfg.MaxNliter)
	if err != nil {
		return 0, 0, 0, 0, nil, nil, err
	}

	if cfg.OutputAllCycles {
		numOutputSteps = cfg.NumTimeSteps
	} else {
		numOutputSteps = cfg.PointsPerCycle
	}

	h := &handle{
		model:            m,
		it:               it,
		state:            state,
		timeStepSize:     dt,
		externalStepSize: cfg.ExternalStepSize,
		rho:              cfg.Rho,
		atol:             cfg.Atol,
		maxNliter:        cfg.MaxNliter,
		numTimeSteps:     cfg.NumTimeSteps,
		pointsPerCycle:   cfg.PointsPerCycle,
		numOutputSteps:   numOutputSteps,
		outputAllCycles:  cfg.OutputAllCycles,
		// Sized to hold every step RunSimulation's loop writes by
		// absolute index, not just numOutputSteps: when
		// !OutputAllCycles, numOutputSteps is only the last cycle's
		// worth of points, but the loop runs and records across all
		// numTimeSteps before the last-cycle window is sliced out at
		// extraction time.
		times:  make([]float64, cfg.NumTimeSteps),
		states: make([]integrator.State, cfg.NumTimeSteps),
	}

	id = r.nextID
	r.nextID++
	r.handles[id] = h

	for _, b := range m.Blocks() {
		blockNames = append(blockNames, b.Name())
	}
	variableNames = m.DOFs().Variables()

	return id, cfg.PointsPerCycle, cfg.NumCycles, numOutputSteps, blockNames, variableNames, nil
}

// SetExternalStepSize recomputes the internal Δt from a new external
// step size, for cases where the 3D solver's time step changes mid-run.
func (r *Registry) SetExternalStepSize(id int, externalStepSize float64) error {
	h, err := r.get(id)
	if err != nil {
		return err
	}
	h.externalStepSize = externalStepSize
	h.timeStepSize = externalStepSize / (float64(h.numTimeSteps) - 1.0)
	h.it.UpdateTimeStepSize(h.timeStepSize)
	return nil
}

// IncrementTime advances the coupled problem by exactly one step and
// returns the new y vector.
func (r *Registry) IncrementTime(id int, externalTime float64) ([]float64, error) {
	h, err := r.get(id)
	if err != nil {
		return nil, err
	}
	next, err := h.it.Step(h.state, externalTime)
	if err != nil {
		return nil, err
	}
	h.state = next
	h.timeStep++
	return append([]float64(nil), next.Y...), nil
}

// RunSimulation advances the configured number of steps from
// externalTime, scanning the state for NaN every nanScanInterval steps.
// On detection it returns immediately with errorCode 1 and no output.
func (r *Registry) RunSimulation(id int, externalTime float64) (times, solutions []float64, errorCode int, err error) {
	h, err := r.get(id)
	if err != nil {
		return nil, nil, 0, err
	}

	state := h.state
	time := externalTime
	h.times[0] = time
	h.states[0] = state
	h.timeStep = 0

	for i := 1; i < h.numTimeSteps; i++ {
		h.timeStep++
		state, err = h.it.Step(state, time)
		if err != nil {
			return nil, nil, 0, err
		}
		if i%nanScanInterval == 0 && hasNaN(state.Y) {
			return nil, nil, 1, nil
		}
		time += h.timeStepSize
		h.times[i] = time
		h.states[i] = state
	}
	h.state = state

	systemSize := h.model.Size()
	startIdx := 0
	startTime := 0.0
	if !h.outputAllCycles {
		startIdx = h.numTimeSteps - h.pointsPerCycle
		if startIdx < 0 {
			startIdx = 0
		}
		startTime = h.times[startIdx]
	}

	times = make([]float64, h.numOutputSteps)
	solutions = make([]float64, h.numOutputSteps*systemSize)
	for t := startIdx; t < startIdx+h.numOutputSteps && t < len(h.states); t++ {
		outIdx := t - startIdx
		times[outIdx] = h.times[t] - startTime
		copy(solutions[outIdx*systemSize:(outIdx+1)*systemSize], h.states[t].Y)
	}

	return times, solutions, 0, nil
}

// schemaNames renders a block's declared parameter names for an
// ArityMismatch diagnostic, falling back to "?" when the block kind
// does not publish a block.Schematized schema.
func schemaNames(b block.Block) string {
	s, ok := b.(block.Schematized)
	if !ok {
		return "?"
	}
	names := make([]string, len(s.Schema()))
	for i, spec := range s.Schema() {
		names[i] = spec.N
	}
	return strings.Join(names, ", ")
}

func hasNaN(y []float64) bool {
	for _, v := range y {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}

type paramIDer interface {
	ParamIDs() []int
}

// UpdateBlockParams replaces a block's parameters. For flow-bc and
// pressure-bc blocks, params is interpreted as
// [N, t_1, ..., t_N, v_1, ..., v_N] and replaces the block's time
// series; for every other block kind, params must match the block's
// parameter arity and is applied component-wise.
func (r *Registry) UpdateBlockParams(id int, blockName string, params []float64) error {
	h, err := r.get(id)
	if err != nil {
		return err
	}
	b, ok := h.model.Block(blockName)
	if !ok {
		return chk.Err("coupling: unknown block %q", blockName)
	}
	pid, ok := b.(paramIDer)
	if !ok {
		return chk.Err("coupling: block %q exposes no parameter ids", blockName)
	}
	ids := pid.ParamIDs()

	if b.Kind() == "FLOW" || b.Kind() == "PRESSURE" {
		if len(params) < 1 {
			return chk.Err("coupling: empty parameter vector for block %q", blockName)
		}
		n := int(params[0])
		if len(params) != 1+2*n {
			return chk.Err("coupling: time-series parameter vector for block %q has inconsistent length", blockName)
		}
		times := append([]float64(nil), params[1:1+n]...)
		values := append([]float64(nil), params[1+n:1+2*n]...)
		return h.model.Params().Get(ids[0]).UpdateSeries(times, values)
	}

	if len(params) != len(ids) {
		return chk.Err("coupling: parameter vector for block %q has length %d, want %d (schema: %s)",
			blockName, len(params), len(ids), schemaNames(b))
	}
	for i, id := range ids {
		if err := h.model.Params().Get(id).Update(params[i]); err != nil {
			return err
		}
		h.model.Params().SetValue(id, params[i])
	}
	return nil
}

// ReadBlockParams returns a block's current parameter values, in arity
// order.
func (r *Registry) ReadBlockParams(id int, blockName string) ([]float64, error) {
	h, err := r.get(id)
	if err != nil {
		return nil, err
	}
	b, ok := h.model.Block(blockName)
	if !ok {
		return nil, chk.Err("coupling: unknown block %q", blockName)
	}
	pid, ok := b.(paramIDer)
	if !ok {
		return nil, chk.Err("coupling: block %q exposes no parameter ids", blockName)
	}
	ids := pid.ParamIDs()
	out := make([]float64, len(ids))
	for i, pid := range ids {
		out[i] = h.model.Params().Value(pid)
	}
	return out, nil
}

type nodeLister interface {
	InletNodes() []string
	OutletNodes() []string
}

// GetBlockNodeIndices returns a block's adjacent node DOF layout as
// [n_in, (q_in_0, p_in_0), ..., n_out, (q_out_0, p_out_0), ...] using
// global DOF indices, matching get_block_node_IDs.
func (r *Registry) GetBlockNodeIndices(id int, blockName string) ([]int, error) {
	h, err := r.get(id)
	if err != nil {
		return nil, err
	}
	b, ok := h.model.Block(blockName)
	if !ok {
		return nil, chk.Err("coupling: unknown block %q", blockName)
	}
	nl, ok := b.(nodeLister)
	if !ok {
		return nil, chk.Err("coupling: block %q exposes no adjacent nodes", blockName)
	}

	reg := h.model.DOFs()
	layout := []int{len(nl.InletNodes())}
	for _, n := range nl.InletNodes() {
		q, err := reg.IndexOf(dof.FlowName(n))
		if err != nil {
			return nil, err
		}
		p, err := reg.IndexOf(dof.PressureName(n))
		if err != nil {
			return nil, err
		}
		layout = append(layout, q, p)
	}
	layout = append(layout, len(nl.OutletNodes()))
	for _, n := range nl.OutletNodes() {
		q, err := reg.IndexOf(dof.FlowName(n))
		if err != nil {
			return nil, err
		}
		p, err := reg.IndexOf(dof.PressureName(n))
		if err != nil {
			return nil, err
		}
		layout = append(layout, q, p)
	}
	return layout, nil
}

// UpdateState overwrites the current (y, ẏ) state in place.
func (r *Registry) UpdateState(id int, y, ydot []float64) error {
	h, err := r.get(id)
	if err != nil {
		return err
	}
	n := h.model.Size()
	if len(y) != n || len(ydot) != n {
		return chk.Err("coupling: state vector size mismatch for problem %d", id)
	}
	h.state = integrator.State{Y: append([]float64(nil), y...), Ydot: append([]float64(nil), ydot...)}
	return nil
}

// GetY returns the current y state vector.
func (r *Registry) GetY(id int) ([]float64, error) {
	h, err := r.get(id)
	if err != nil {
		return nil, err
	}
	return append([]float64(nil), h.state.Y...), nil
}

// GetYdot returns the current ẏ state vector.
func (r *Registry) GetYdot(id int) ([]float64, error) {
	h, err := r.get(id)
	if err != nil {
		return nil, err
	}
	return append([]float64(nil), h.state.Ydot...), nil
}
