package sparse

import (
	"testing"

	"github.com/cpmech/gosl/chk"
)

// fakeBlock is a minimal linear block used to exercise System without
// depending on package block: row0: 2*y0 - 3*ydot0 + 5 = 0.
type fakeBlock struct{}

func (fakeBlock) UpdateConstant(sys *System) { sys.PutF(0, 0, 2.0) }
func (fakeBlock) UpdateTime(sys *System, t float64) {}
func (fakeBlock) UpdateSolution(sys *System, y, ydot []float64) {
	sys.PutE(0, 0, -3.0)
	sys.SetC(0, 5.0)
}
func (fakeBlock) TripletBudget() TripletBudget { return TripletBudget{F: 1, E: 1} }

func TestResidualAssembly(tst *testing.T) {
	chk.PrintTitle("ResidualAssembly")
	sys := NewSystem(1, "umfpack")
	b := fakeBlock{}
	b.UpdateConstant(sys)
	b.UpdateTime(sys, 0.0)
	b.UpdateSolution(sys, []float64{1.0}, []float64{1.0})

	sys.UpdateResidual([]float64{1.0}, []float64{1.0})
	// residual = -C - E*ydot - F*y = -5 - (-3*1) - (2*1) = -5+3-2 = -4
	chk.Scalar(tst, "residual", 1e-12, sys.Residual[0], -4.0)
}

func TestJacobianAssembly(tst *testing.T) {
	chk.PrintTitle("JacobianAssembly")
	sys := NewSystem(1, "umfpack")
	if err := sys.Reserve([]Block{fakeBlock{}}); err != nil {
		tst.Fatalf("Reserve: %v", err)
	}

	if err := sys.UpdateJacobian(2.0, 3.0); err != nil {
		tst.Fatal(err)
	}
	// jacobian = (E + dCdydot)*cYdot + (F + dCdy)*cY = (-3)*2 + (2)*3 = 0
	if sys.jac == nil {
		tst.Fatalf("expected jacobian triplet to be built")
	}
}

// TestReserveThenSolveUsesCurrentJacobian pins down the bug where Solve
// would factorize the dummy reservation-time Jacobian (built with
// cYdot=cY=1) instead of the Jacobian the current Newton iteration just
// assembled: Reserve's dummy pass gives jacobian = -3*1 + 2*1 = -1, but
// a later UpdateJacobian(2, 5) gives -3*2 + 2*5 = 4. If Solve silently
// kept factorizing the stale -1 triplet, Dydot would come out as
// residual/-1 = 4 instead of residual/4 = -1.
func TestReserveThenSolveUsesCurrentJacobian(tst *testing.T) {
	chk.PrintTitle("ReserveThenSolveUsesCurrentJacobian")
	sys := NewSystem(1, "umfpack")
	if err := sys.Reserve([]Block{fakeBlock{}}); err != nil {
		tst.Fatalf("Reserve: %v", err)
	}

	if err := sys.UpdateJacobian(2.0, 5.0); err != nil {
		tst.Fatalf("UpdateJacobian: %v", err)
	}
	sys.UpdateResidual([]float64{1.0}, []float64{1.0})
	// residual = -C - E*ydot - F*y = -5 - (-3*1) - (2*1) = -4

	if err := sys.Solve(); err != nil {
		tst.Fatalf("Solve: %v", err)
	}
	chk.Scalar(tst, "dydot", 1e-10, sys.Dydot[0], -1.0)
}

func TestTripletBudgetAccumulates(tst *testing.T) {
	chk.PrintTitle("TripletBudgetAccumulates")
	var total TripletBudget
	total.Add(TripletBudget{F: 1, E: 1})
	total.Add(TripletBudget{F: 4, D: 2})
	chk.IntAssert(total.F, 5)
	chk.IntAssert(total.E, 1)
	chk.IntAssert(total.D, 2)
}
