// Package sparse implements the global DAE system owned by the
// integrator: the matrices E, F, ∂C/∂y, ∂C/∂ẏ and the nonlinear
// contribution vector C, plus the assembled residual and Jacobian and
// the symbolic-then-numeric LU solve.
//
// Grounded on fem/domain.go's Kb *la.Triplet reservation/Init pattern
// and la.GetSolver-based symbolic/numeric factorization split used by
// fem.NewDomains. F, E, ∂C/∂y and ∂C/∂ẏ need persistent per-cell
// overwrite semantics (a block rewrites the same position with a fresh
// value every call, it never accumulates into it) — la.Triplet's COO
// Put accumulates duplicate positions, the right behavior for one-shot
// FEM element assembly but the wrong one for a block that revisits the
// same cell on every update_time/update_solution call. These four
// matrices are therefore kept as plain overwrite-by-key maps; the
// assembled Jacobian — where the real sparse LU factorization happens —
// is written into one persistent gosl la.Triplet, allocated once by
// Reserve and handed to la.GetSolver for symbolic analysis. Every
// subsequent Newton iteration rewinds that same triplet with Start()
// and re-Puts the merged values into it, so the pointer the solver was
// Init'd with keeps seeing the current iterate when Fact() runs.
package sparse

import (
	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/la"
)

type cell struct{ i, j int }

// TripletBudget is the {F, E, D} nonzero reservation a block declares
// ahead of assembly.
type TripletBudget struct {
	F, E, D int
}

// Add accumulates another block's budget into the running total.
func (b *TripletBudget) Add(o TripletBudget) {
	b.F += o.F
	b.E += o.E
	b.D += o.D
}

// System owns the DAE's sparse matrices and dense contribution/residual
// vectors for a DOF space of size N.
type System struct {
	N          int
	solverName string

	f, e, dcdy, dcdydot map[cell]float64

	C        []float64
	Residual []float64
	Dydot    []float64

	jac      *la.Triplet
	solver   la.LinSol
	reserved bool
}

// NewSystem allocates an (initially empty) system of dimension n using
// solverName ("umfpack" or "mumps", matching fem's sim.LinSol.Name) for
// the Jacobian factorization.
func NewSystem(n int, solverName string) *System {
	if solverName == "" {
		solverName = "umfpack"
	}
	return &System{
		N:          n,
		solverName: solverName,
		f:          make(map[cell]float64),
		e:          make(map[cell]float64),
		dcdy:       make(map[cell]float64),
		dcdydot:    make(map[cell]float64),
		C:          make([]float64, n),
		Residual:   make([]float64, n),
		Dydot:      make([]float64, n),
	}
}

// PutF sets F[i][j] = v, overwriting any previous value at that cell.
func (s *System) PutF(i, j int, v float64) { s.f[cell{i, j}] = v }

// PutE sets E[i][j] = v.
func (s *System) PutE(i, j int, v float64) { s.e[cell{i, j}] = v }

// PutDCDy sets (∂C/∂y)[i][j] = v.
func (s *System) PutDCDy(i, j int, v float64) { s.dcdy[cell{i, j}] = v }

// PutDCDyDot sets (∂C/∂ẏ)[i][j] = v.
func (s *System) PutDCDyDot(i, j int, v float64) { s.dcdydot[cell{i, j}] = v }

// SetC sets C[i] = v.
func (s *System) SetC(i int, v float64) { s.C[i] = v }

// AddC accumulates into C[i]; used where a row legitimately receives
// contributions from more than one term within the same block (e.g. a
// mass-conservation row summing several outlet flows).
func (s *System) AddC(i int, v float64) { s.C[i] += v }

// Block is the minimal model-graph surface the sparse system needs for
// reservation: the three dummy-pass hooks with unit vectors and the
// aggregate triplet budget.
type Block interface {
	UpdateConstant(sys *System)
	UpdateTime(sys *System, t float64)
	UpdateSolution(sys *System, y, ydot []float64)
	TripletBudget() TripletBudget
}

// Reserve performs the one-time dummy-pass assembly: invoke
// update_constant, update_time(0), and update_solution(ones, ones) so
// every sparse slot that will ever be
// touched is materialized, then forms the Jacobian sparsity once via
// UpdateJacobian(1, 1) and hands it to the solver for symbolic
// analysis. Must be called exactly once, after the model's Finalize.
func (s *System) Reserve(blocks []Block) error {
	ones := make([]float64, s.N)
	for i := range ones {
		ones[i] = 1.0
	}
	var budget TripletBudget
	for _, b := range blocks {
		budget.Add(b.TripletBudget())
	}
	s.jac = new(la.Triplet)
	s.jac.Init(s.N, s.N, budget.F+budget.E+2*budget.D+1)

	for _, b := range blocks {
		b.UpdateConstant(s)
	}
	for _, b := range blocks {
		b.UpdateTime(s, 0.0)
	}
	for _, b := range blocks {
		b.UpdateSolution(s, ones, ones)
	}
	if err := s.UpdateJacobian(1.0, 1.0); err != nil {
		return err
	}
	s.solver = la.GetSolver(s.solverName)
	if err := s.solver.Init(s.jac, false, false, ""); err != nil {
		return chk.Err("sparse: symbolic analysis failed: %v", err)
	}
	s.reserved = true
	return nil
}

// UpdateResidual computes residual ← −C − E·ẏ − F·y.
func (s *System) UpdateResidual(y, ydot []float64) {
	for i := range s.Residual {
		s.Residual[i] = -s.C[i]
	}
	for c, v := range s.e {
		s.Residual[c.i] -= v * ydot[c.j]
	}
	for c, v := range s.f {
		s.Residual[c.i] -= v * y[c.j]
	}
}

// ResidualInfNorm returns ‖residual‖_∞, used by the integrator's Newton
// convergence check.
func (s *System) ResidualInfNorm() float64 {
	max := 0.0
	for _, v := range s.Residual {
		if v < 0 {
			v = -v
		}
		if v > max {
			max = v
		}
	}
	return max
}

// UpdateJacobian rebuilds jacobian ← (E + ∂C/∂ẏ)·cYdot + (F + ∂C/∂y)·cY,
// reusing the same la.Triplet Reserve allocated (Start() rewinds its
// write position without releasing the underlying arrays) instead of
// handing the solver a new object every Newton iteration — the solver
// was bound to this triplet's pointer once, in Reserve, and only sees
// fresh values if that same pointer is reused, matching fem's
// d.Kb.Start()-then-re-Put assembly loop in s_implicit.go.
func (s *System) UpdateJacobian(cYdot, cY float64) error {
	merged := make(map[cell]float64, len(s.e)+len(s.f)+len(s.dcdy)+len(s.dcdydot))
	for c, v := range s.e {
		merged[c] += v * cYdot
	}
	for c, v := range s.dcdydot {
		merged[c] += v * cYdot
	}
	for c, v := range s.f {
		merged[c] += v * cY
	}
	for c, v := range s.dcdy {
		merged[c] += v * cY
	}
	s.jac.Start()
	for c, v := range merged {
		s.jac.Put(c.i, c.j, v)
	}
	return nil
}

// Solve numerically factorizes the current Jacobian on the pre-analyzed
// symbolic pattern and solves jacobian·dydot = residual, failing with a
// NumericSingular error if the factor is singular.
func (s *System) Solve() error {
	if !s.reserved {
		chk.Panic("sparse: Solve called before Reserve")
	}
	if err := s.solver.Fact(); err != nil {
		return chk.Err("sparse: singular system during factorization: %v", err)
	}
	if err := s.solver.Solve(s.Dydot, s.Residual, false); err != nil {
		return chk.Err("sparse: singular system during solve: %v", err)
	}
	return nil
}

// Free releases the solver's native workspace. Two Systems must never
// share one solver instance.
func (s *System) Free() {
	if s.solver != nil {
		s.solver.Free()
	}
}
