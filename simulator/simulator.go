// Package simulator implements the driver (C7) that composes the
// integrator with time-step selection, a steady-state initialization
// prefix, output subsampling, and cycle-to-cycle convergence checking.
//
// Grounded on original_source/src/solve/Solver.cpp's run()/constructor
// (Δt selection, the 31-step steady prefix, the windkessel cycle-count
// override "equation 21 of Pfaller 2021", output subsampling and
// time-zeroing), with progress reporting in the style of
// fem/fem.go's FEM.Run stage loop (colored io.Pf/io.PfGreen/io.PfRed
// messages gated by a Verbose flag).
package simulator

import (
	"math"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"

	"github.com/cpmech/zerod/integrator"
	"github.com/cpmech/zerod/model"
)

// Parameters configures one simulation run.
type Parameters struct {
	Rho       float64 // spectral radius rho_infty in [0, 1]
	Atol      float64 // Newton absolute tolerance
	MaxNliter int     // maximum Newton iterations per step

	PointsPerCycle int // points per cardiac cycle (standalone mode)
	NumCycles      int // number of cardiac cycles (standalone mode)

	SteadyInitial bool // compute a steady initial condition first

	OutputInterval  int  // output every this many accepted steps
	OutputAllCycles bool // output every cycle, not just the last

	Coupled           bool    // externally-coupled time stepping
	ExternalStepSize  float64 // coupled mode: simulated time spanned by this call
	NumTimeSteps      int     // coupled mode: number of steps across ExternalStepSize

	UseCycleToCycleError bool    // extend/validate cycles until caps converge
	CycleToCycleError    float64 // relative convergence tolerance
	MaxExtraCycles       int     // 0 means unbounded, matching the original's while(!converged)

	Verbose bool // emit progress diagnostics via gosl/io
}

// Result is the subsampled time history produced by Run.
type Result struct {
	Times                      []float64
	States                     []integrator.State
	AverageNonlinearIterations float64
}

// Simulator drives one model through one configured run.
type Simulator struct {
	model  *model.Model
	params Parameters

	timeStepSize float64
	numTimeSteps int
}

// New validates params against m and derives the time-step size and
// step count, without running anything yet.
func New(m *model.Model, params Parameters) (*Simulator, error) {
	if params.SteadyInitial {
		if _, ok := m.Block("CLH"); ok {
			return nil, chk.Err("simulator: steady initial condition is not compatible with a ClosedLoopHeartAndPulmonary block")
		}
	}

	s := &Simulator{model: m, params: params}

	if !params.Coupled && params.UseCycleToCycleError && m.HasWindkessel() {
		tauMax := m.LargestWindkesselTimeConstant()
		T := m.CardiacCyclePeriod()
		s.params.NumCycles = int(math.Ceil(-tauMax / T * math.Log(params.CycleToCycleError)))
		params = s.params
	}

	if !params.Coupled {
		s.numTimeSteps = (params.PointsPerCycle-1)*params.NumCycles + 1
		s.timeStepSize = m.CardiacCyclePeriod() / (float64(params.PointsPerCycle) - 1.0)
	} else {
		s.numTimeSteps = params.NumTimeSteps
		s.timeStepSize = params.ExternalStepSize / (float64(params.NumTimeSteps) - 1.0)
	}

	return s, nil
}

// TimeStepSize returns the derived Δt.
func (s *Simulator) TimeStepSize() float64 { return s.timeStepSize }

// NumTimeSteps returns the derived total step count, after any
// windkessel cycle-count override.
func (s *Simulator) NumTimeSteps() int { return s.numTimeSteps }

// Run advances the model from initial through the full schedule and
// returns the subsampled output history.
func (s *Simulator) Run(initial integrator.State) (Result, error) {
	state := initial

	if s.params.SteadyInitial {
		if s.params.Verbose {
			io.Pf(">> Calculating steady initial condition\n")
		}
		dtSteady := s.model.CardiacCyclePeriod() / 10.0
		s.model.ToSteady()

		steadyIt, err := integrator.New(s.model, dtSteady, s.params.Rho, s.params.Atol, s.params.MaxNliter)
		if err != nil {
			return Result{}, err
		}
		for i := 0; i < 31; i++ {
			state, err = steadyIt.Step(state, dtSteady*float64(i))
			if err != nil {
				return Result{}, err
			}
		}
		s.model.ToUnsteady()
	}

	s.model.SetupInitialStateDependentParameters(state.Y, state.Ydot)

	if s.params.Verbose {
		io.Pf(">> Setting up time integration\n")
	}
	it, err := integrator.New(s.model, s.timeStepSize, s.params.Rho, s.params.Atol, s.params.MaxNliter)
	if err != nil {
		return Result{}, err
	}

	var times []float64
	var states []integrator.State
	time := 0.0

	intervalCounter := 0
	startLastCycle := s.numTimeSteps - s.params.PointsPerCycle

	if s.params.OutputAllCycles || 0 >= startLastCycle {
		times = append(times, time)
		states = append(states, state.Clone())
	}

	var numTimePtsInTwoCycles int
	var statesLastTwoCycles []integrator.State
	lastTwoCyclesCounter := 0
	if s.params.UseCycleToCycleError {
		numTimePtsInTwoCycles = 2*(s.params.PointsPerCycle-1) + 1
		statesLastTwoCycles = make([]integrator.State, numTimePtsInTwoCycles)
		for i := range statesLastTwoCycles {
			statesLastTwoCycles[i] = state.Clone()
		}
	}

	if s.params.Verbose {
		io.Pf(">> Running time integration\n")
	}
	for i := 1; i < s.numTimeSteps; i++ {
		if s.params.UseCycleToCycleError && i == s.numTimeSteps-numTimePtsInTwoCycles+1 {
			statesLastTwoCycles[lastTwoCyclesCounter] = state.Clone()
			lastTwoCyclesCounter++
		}

		state, err = it.Step(state, time)
		if err != nil {
			if s.params.Verbose {
				io.PfRed(">> Failed at step %d\n", i)
			}
			return Result{}, err
		}
		if !integrator.CheckFinite(state.Y) || !integrator.CheckFinite(state.Ydot) {
			return Result{}, chk.Err("simulator: non-finite state encountered at step %d", i)
		}

		if s.params.UseCycleToCycleError && lastTwoCyclesCounter > 0 {
			statesLastTwoCycles[lastTwoCyclesCounter] = state.Clone()
			lastTwoCyclesCounter++
		}

		intervalCounter++
		time = s.timeStepSize * float64(i)

		if intervalCounter == s.params.OutputInterval || (!s.params.OutputAllCycles && i == startLastCycle) {
			if s.params.OutputAllCycles || i >= startLastCycle {
				times = append(times, time)
				states = append(states, state.Clone())
			}
			intervalCounter = 0
		}
	}

	if s.params.UseCycleToCycleError {
		capDOFs := s.model.VesselCapDOFs()

		if !s.model.HasWindkessel() {
			converged := checkConvergence(statesLastTwoCycles, capDOFs, s.params.PointsPerCycle, s.params.CycleToCycleError)
			extraCycles := 0

			for !converged {
				if s.params.MaxExtraCycles > 0 && extraCycles >= s.params.MaxExtraCycles {
					return Result{}, chk.Err("simulator: cycle-to-cycle convergence not reached within %d extra cycles", s.params.MaxExtraCycles)
				}

				rotateLeft(statesLastTwoCycles, s.params.PointsPerCycle-1)
				lastTwoCyclesCounter = s.params.PointsPerCycle

				for i := 1; i < s.params.PointsPerCycle; i++ {
					state, err = it.Step(state, time)
					if err != nil {
						return Result{}, err
					}
					statesLastTwoCycles[lastTwoCyclesCounter] = state.Clone()
					lastTwoCyclesCounter++
					intervalCounter++
					time += s.timeStepSize

					if intervalCounter == s.params.OutputInterval || (!s.params.OutputAllCycles && i == startLastCycle) {
						if s.params.OutputAllCycles || i >= startLastCycle {
							times = append(times, time)
							states = append(states, state.Clone())
						}
						intervalCounter = 0
					}
				}
				extraCycles++
				converged = checkConvergence(statesLastTwoCycles, capDOFs, s.params.PointsPerCycle, s.params.CycleToCycleError)
			}
			if s.params.Verbose {
				io.Pf(">> Ran simulation for %d more cycles to converge flow and pressure at caps\n", extraCycles)
			}
		} else if s.params.Verbose {
			for _, dofs := range capDOFs {
				errFlow, errPressure := cycleToCycleErrors(statesLastTwoCycles, dofs, s.params.PointsPerCycle)
				io.Pf(">> cap (flow dof %d, pressure dof %d): flow error %v%%, pressure error %v%%\n",
					dofs[0], dofs[1], errFlow*100.0, errPressure*100.0)
			}
		}
	}

	if s.params.Verbose {
		io.PfGreen(">> Average nonlinear iterations per step: %v\n", it.AverageNonlinearIterations())
	}

	if !s.params.OutputAllCycles && len(times) > 0 {
		start := times[0]
		for i := range times {
			times[i] -= start
		}
	}

	return Result{Times: times, States: states, AverageNonlinearIterations: it.AverageNonlinearIterations()}, nil
}

// checkConvergence reports whether every vessel cap's mean flow and
// mean pressure agree within tol between the second-to-last and last
// simulated cardiac cycles.
func checkConvergence(statesLastTwoCycles []integrator.State, capDOFs [][2]int, pointsPerCycle int, tol float64) bool {
	for _, dofs := range capDOFs {
		errFlow, errPressure := cycleToCycleErrors(statesLastTwoCycles, dofs, pointsPerCycle)
		if errFlow > tol || errPressure > tol {
			return false
		}
	}
	return true
}

// cycleToCycleErrors computes the relative change in cycle-mean flow
// and pressure at one cap's DOF pair between the second-to-last and
// last cycle recorded in statesLastTwoCycles.
func cycleToCycleErrors(statesLastTwoCycles []integrator.State, dofs [2]int, pointsPerCycle int) (flowErr, pressureErr float64) {
	flowDOF, pressureDOF := dofs[0], dofs[1]
	var meanFlowPrev, meanPressurePrev, meanFlowLast, meanPressureLast float64
	for i := 0; i < pointsPerCycle; i++ {
		meanFlowPrev += statesLastTwoCycles[i].Y[flowDOF]
		meanPressurePrev += statesLastTwoCycles[i].Y[pressureDOF]
		meanFlowLast += statesLastTwoCycles[pointsPerCycle-1+i].Y[flowDOF]
		meanPressureLast += statesLastTwoCycles[pointsPerCycle-1+i].Y[pressureDOF]
	}
	n := float64(pointsPerCycle)
	meanFlowPrev /= n
	meanPressurePrev /= n
	meanFlowLast /= n
	meanPressureLast /= n

	flowErr = math.Abs((meanFlowLast - meanFlowPrev) / meanFlowPrev)
	pressureErr = math.Abs((meanPressureLast - meanPressurePrev) / meanPressurePrev)
	return
}

// rotateLeft rotates s left by k positions in place, matching
// std::rotate(begin, begin+k, end).
func rotateLeft(s []integrator.State, k int) {
	if len(s) == 0 {
		return
	}
	k = k % len(s)
	if k < 0 {
		k += len(s)
	}
	rotated := make([]integrator.State, len(s))
	copy(rotated, s[k:])
	copy(rotated[len(s)-k:], s[:k])
	copy(s, rotated)
}
