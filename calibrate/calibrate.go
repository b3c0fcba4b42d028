// Package calibrate implements the Levenberg-Marquardt least-squares
// fitter (C8): it reuses the block.Gradient hooks the catalog already
// exposes to recover a small set of parameters (vessel resistance,
// capacitance, inductance, stenosis coefficient) from a batch of
// observed (y, ẏ) states.
//
// Grounded on original_source/src/optimize/LevenbergMarquardtOptimizer.cpp
// for the damping schedule and the stacked-residual/Jacobian assembly,
// and on gofem's iterative solvers (e.g. fem's Newton driver) for the
// convergence-logging idiom via gosl/io. Where the original temporarily
// rewrites a block's global_eqn_ids to offset it by i*N_eq for
// observation i, this package instead hands each block a GradientSink
// already carrying that offset, leaving block state untouched.
package calibrate

import (
	"math"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
	"github.com/cpmech/gosl/la"

	"github.com/cpmech/zerod/block"
	"github.com/cpmech/zerod/model"
)

// Observation is one sampled DAE state used to fit parameters: the
// solution y and its time derivative ẏ at some instant, of length
// m.Size().
type Observation struct {
	Y    []float64
	Ydot []float64
}

// Parameters configures one calibration run.
type Parameters struct {
	// ParamIDs lists the global parameter ids being calibrated, in the
	// order the returned Alpha vector follows.
	ParamIDs []int

	Lambda0 float64 // initial Marquardt damping
	TolGrad float64 // convergence tolerance on ||g||
	TolInc  float64 // convergence tolerance on ||Δα||
	MaxIter int

	Verbose bool
}

// Result is the outcome of a calibration run.
type Result struct {
	Alpha      []float64
	Iterations int
	Converged  bool
	NormGrad   float64
	NormInc    float64
}

// gradientSink stacks one observation's residual/Jacobian contribution
// into the full batch arrays at rowOffset, and restricts Jacobian
// columns to the parameters under calibration via colOf.
type gradientSink struct {
	rowOffset int
	colOf     map[int]int
	residual  []float64
	jac       [][]float64
}

func (s *gradientSink) AddResidual(eqnRow int, v float64) {
	s.residual[s.rowOffset+eqnRow] += v
}

func (s *gradientSink) AddJacobian(eqnRow, paramCol int, v float64) {
	col, ok := s.colOf[paramCol]
	if !ok {
		return
	}
	s.jac[s.rowOffset+eqnRow][col] += v
}

// Run calibrates params.ParamIDs against obs by nonlinear least squares
// over the blocks of m that implement block.Gradient. Blocks that do
// not implement it contribute neither rows nor columns: their
// equations stay zero in the stacked residual and never affect the
// fit, matching the original's "most blocks opt out" design.
func Run(m *model.Model, obs []Observation, params Parameters) (Result, error) {
	var gradBlocks []block.Gradient
	for _, b := range m.Blocks() {
		if g, ok := b.(block.Gradient); ok {
			gradBlocks = append(gradBlocks, g)
		}
	}
	if len(gradBlocks) == 0 {
		return Result{}, chk.Err("calibrate: no block in the model implements Gradient")
	}
	if len(obs) == 0 {
		return Result{}, chk.Err("calibrate: no observations supplied")
	}
	P := len(params.ParamIDs)
	if P == 0 {
		return Result{}, chk.Err("calibrate: no parameters selected for calibration")
	}

	colOf := make(map[int]int, P)
	for col, id := range params.ParamIDs {
		colOf[id] = col
	}

	nEq := m.Size()
	nRows := len(obs) * nEq

	alpha := make([]float64, P)
	for col, id := range params.ParamIDs {
		alpha[col] = m.Params().Value(id)
	}

	var lambda float64
	var normGradPrev float64
	var result Result

	for iter := 0; iter < params.MaxIter; iter++ {
		for col, id := range params.ParamIDs {
			m.Params().SetValue(id, alpha[col])
		}
		values := m.Params().Values()

		residual := make([]float64, nRows)
		jac := la.MatAlloc(nRows, P)

		for i, o := range obs {
			sink := &gradientSink{rowOffset: i * nEq, colOf: colOf, residual: residual, jac: jac}
			for _, g := range gradBlocks {
				if err := g.UpdateGradient(sink, values, o.Y, o.Ydot); err != nil {
					return Result{}, err
				}
			}
		}

		g := make([]float64, P)
		for r := 0; r < nRows; r++ {
			for c := 0; c < P; c++ {
				g[c] += jac[r][c] * residual[r]
			}
		}
		normGrad := vecNorm(g)

		if iter == 0 {
			lambda = params.Lambda0
		} else if normGradPrev > 0 {
			lambda *= normGrad / normGradPrev
		}
		normGradPrev = normGrad

		h := la.MatAlloc(P, P)
		for r := 0; r < nRows; r++ {
			row := jac[r]
			for a := 0; a < P; a++ {
				if row[a] == 0.0 {
					continue
				}
				for b := 0; b < P; b++ {
					h[a][b] += row[a] * row[b]
				}
			}
		}
		normalMat := la.MatAlloc(P, P)
		for a := 0; a < P; a++ {
			for b := 0; b < P; b++ {
				normalMat[a][b] = h[a][b]
			}
			normalMat[a][a] += lambda * h[a][a]
		}

		inv := la.MatAlloc(P, P)
		if _, err := la.MatInv(inv, normalMat, 1e-14); err != nil {
			return Result{}, chk.Err("calibrate: normal-equation matrix is singular at iteration %d: %v", iter, err)
		}
		delta := make([]float64, P)
		for a := 0; a < P; a++ {
			for b := 0; b < P; b++ {
				delta[a] += inv[a][b] * g[b]
			}
		}
		normInc := vecNorm(delta)

		for a := 0; a < P; a++ {
			alpha[a] -= delta[a]
		}

		if params.Verbose {
			io.Pf(">> iteration %d: lambda=%v, norm_inc=%v, norm_grad=%v\n", iter, lambda, normInc, normGrad)
		}

		result = Result{Alpha: append([]float64(nil), alpha...), Iterations: iter + 1, NormGrad: normGrad, NormInc: normInc}
		if normGrad < params.TolGrad && normInc < params.TolInc {
			result.Converged = true
			if params.Verbose {
				io.PfGreen(">> converged after %d iterations\n", result.Iterations)
			}
			return result, nil
		}
	}

	if params.Verbose {
		io.PfRed(">> calibration did not converge within %d iterations\n", params.MaxIter)
	}
	return result, chk.Err("calibrate: did not converge within %d iterations (norm_grad=%v, norm_inc=%v)",
		params.MaxIter, result.NormGrad, result.NormInc)
}

func vecNorm(v []float64) float64 {
	sum := 0.0
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}
