// Package integrator implements the generalized-α time-stepping scheme
// (C6): a predictor/Newton-corrector step that advances one (y, ẏ)
// pair across one time increment.
//
// Grounded on original_source/src/algebra/Integrator.cpp, translated
// from Eigen vectors into plain []float64 and from exceptions into
// Go's explicit error returns, in the style of fem's stepwise
// Newton-Raphson solver in sol/solverimplicit.go (predictor, residual
// norm check, factorize-and-solve, increment).
package integrator

import (
	"math"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/utl"

	"github.com/cpmech/zerod/model"
	"github.com/cpmech/zerod/sparse"
)

// State is the DAE solution pair advanced by one Step.
type State struct {
	Y    []float64
	Ydot []float64
}

// NewState returns a zero-valued state sized for n DOFs.
func NewState(n int) State {
	return State{Y: make([]float64, n), Ydot: make([]float64, n)}
}

// Clone returns a deep copy of s.
func (s State) Clone() State {
	return State{Y: append([]float64(nil), s.Y...), Ydot: append([]float64(nil), s.Ydot...)}
}

// Encode writes s through enc, so a snapshot of the state can be
// persisted, in the same Encode(enc utl.Encoder) shape gofem's
// ele.Element uses for its internal-variable checkpoints.
func (s State) Encode(enc utl.Encoder) error {
	if err := enc.Encode(s.Y); err != nil {
		return err
	}
	return enc.Encode(s.Ydot)
}

// Decode reads s from dec, the Encode counterpart.
func (s *State) Decode(dec utl.Decoder) error {
	if err := dec.Decode(&s.Y); err != nil {
		return err
	}
	return dec.Decode(&s.Ydot)
}

// Integrator advances a model's state using the generalized-α method
// (Jansen, Whiting & Hulbert 2000).
type Integrator struct {
	model *model.Model
	sys   *sparse.System

	alphaM, alphaF, gamma float64
	ydotInitCoeff         float64
	yCoeff, yCoeffJac     float64

	timeStepSize float64
	atol         float64
	maxIter      int

	nIter       int
	nNonlinIter int
}

// New builds an integrator for model m with time step dt, spectral
// radius rho in [0, 1], Newton absolute tolerance atol, and maxIter
// Newton iterations per step. It reserves the sparse system's
// triplet structure, matching original_source's constructor calling
// system.reserve(model).
func New(m *model.Model, dt, rho, atol float64, maxIter int) (*Integrator, error) {
	it := &Integrator{
		model:        m,
		timeStepSize: dt,
		atol:         atol,
		maxIter:      maxIter,
	}
	it.alphaM = 0.5 * (3.0 - rho) / (1.0 + rho)
	it.alphaF = 1.0 / (1.0 + rho)
	it.gamma = 0.5 + it.alphaM - it.alphaF
	it.ydotInitCoeff = 1.0 - 1.0/it.gamma
	it.yCoeff = it.gamma * dt
	it.yCoeffJac = it.alphaF * it.yCoeff

	it.sys = sparse.NewSystem(m.Size(), "")
	if err := it.sys.Reserve(m.SparseBlocks()); err != nil {
		return nil, err
	}
	return it, nil
}

// System returns the sparse system the integrator solves against, for
// inspection by callers that need direct residual/Jacobian access.
func (it *Integrator) System() *sparse.System { return it.sys }

// UpdateTimeStepSize changes Δt in place, rederiving the coefficients
// that depend on it and re-running the constant/zero-time assembly
// pass, matching Integrator::update_params. The coupling facade calls
// it when the external step size changes; the simulator builds a new
// integrator for each Δt instead.
func (it *Integrator) UpdateTimeStepSize(dt float64) {
	it.timeStepSize = dt
	it.yCoeff = it.gamma * dt
	it.yCoeffJac = it.alphaF * it.yCoeff
	it.model.UpdateConstant(it.sys)
	it.model.UpdateTime(it.sys, 0.0)
}

// AverageNonlinearIterations returns the mean Newton iteration count
// across every Step call so far, or 0 if Step has never been called.
func (it *Integrator) AverageNonlinearIterations() float64 {
	if it.nIter == 0 {
		return 0.0
	}
	return float64(it.nNonlinIter) / float64(it.nIter)
}

// Step advances old from time t by one Δt using the generalized-α
// predictor/Newton-corrector procedure.
func (it *Integrator) Step(old State, t float64) (State, error) {
	n := len(old.Y)
	next := NewState(n)
	for i := 0; i < n; i++ {
		next.Ydot[i] = old.Ydot[i] * it.ydotInitCoeff
		next.Y[i] = old.Y[i]
	}

	tMid := t + it.alphaF*it.timeStepSize
	it.model.UpdateTime(it.sys, tMid)

	it.nIter++

	yAf := make([]float64, n)
	ydotAm := make([]float64, n)

	for iter := 0; iter < it.maxIter; iter++ {
		for i := 0; i < n; i++ {
			ydotAm[i] = old.Ydot[i] + (next.Ydot[i]-old.Ydot[i])*it.alphaM
			yAf[i] = old.Y[i] + (next.Y[i]-old.Y[i])*it.alphaF
		}

		it.model.UpdateSolution(it.sys, yAf, ydotAm)
		it.sys.UpdateResidual(yAf, ydotAm)

		if it.sys.ResidualInfNorm() < it.atol {
			break
		}
		if iter == it.maxIter-1 {
			return State{}, chk.Err("integrator: maximum number of nonlinear iterations (%d) reached, residual = %v", it.maxIter, it.sys.ResidualInfNorm())
		}

		if err := it.sys.UpdateJacobian(it.alphaM, it.yCoeffJac); err != nil {
			return State{}, err
		}
		if err := it.sys.Solve(); err != nil {
			return State{}, err
		}

		it.model.PostSolve(next.Y)

		for i := 0; i < n; i++ {
			next.Ydot[i] += it.sys.Dydot[i]
			next.Y[i] += it.sys.Dydot[i] * it.yCoeff
		}

		it.nNonlinIter++
	}

	return next, nil
}

// checkFinite reports whether every entry of v is finite, used by the
// simulator's NaN-scan through CheckFinite.
func checkFinite(v []float64) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

// CheckFinite reports whether every entry of v is finite.
func CheckFinite(v []float64) bool { return checkFinite(v) }
