// Package param holds the scalar parameters (constant or periodic
// time-series) that parameterize block contributions.
//
// Grounded on original_source/src/model/Parameter.cpp, translated from
// the binary-search interpolation/extrapolation contract into Go, with
// error handling in the style of inp/func.go's FuncsData.
package param

import (
	"math"
	"sort"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/fun"
)

// Store owns an ordered set of parameters and their current evaluated
// values.
type Store struct {
	params []*Parameter
	values []float64

	// cardiacCyclePeriod is pinned by the first periodic series added;
	// later periodic series must agree with it or AddSeries fails.
	cardiacCyclePeriod float64
}

// NewStore returns an empty parameter store.
func NewStore() *Store {
	return &Store{cardiacCyclePeriod: -1.0}
}

// Parameter is either a constant scalar or a periodic/non-periodic
// piecewise-linear time series.
type Parameter struct {
	id       int
	constant bool
	periodic bool

	value float64 // valid when constant

	times  []float64 // valid when !constant
	values []float64

	cyclePeriod float64

	// steady collapse state
	steady        bool
	savedTimes    []float64
	savedValues   []float64
	savedPeriodic bool
}

// ID returns the parameter's global identifier.
func (p *Parameter) ID() int { return p.id }

// IsConstant reports whether the parameter is a constant scalar.
func (p *Parameter) IsConstant() bool { return p.constant }

// CyclePeriod returns the derived cycle period of a periodic series
// parameter (times.last - times.first). It is set the same way for
// non-periodic series and is zero for constants.
func (p *Parameter) CyclePeriod() float64 { return p.cyclePeriod }

// AddConstant records a constant-valued parameter and returns its id.
func (s *Store) AddConstant(v float64) int {
	id := len(s.params)
	p := &Parameter{id: id, constant: true, value: v}
	s.params = append(s.params, p)
	s.values = append(s.values, v)
	return id
}

// AddSeries records a piecewise-linear time-series parameter. times must
// be strictly increasing and the same length as values. If periodic is
// true and its derived cycle period conflicts with a cycle period
// already pinned by an earlier periodic series, the call fails.
func (s *Store) AddSeries(times, values []float64, periodic bool) (int, error) {
	if len(times) != len(values) {
		return 0, chk.Err("param: times and values length mismatch (%d != %d)", len(times), len(values))
	}
	if len(times) < 2 {
		return 0, chk.Err("param: series must have at least two points, got %d", len(times))
	}
	for i := 1; i < len(times); i++ {
		if times[i] <= times[i-1] {
			return 0, chk.Err("param: times must be strictly increasing at index %d (%v <= %v)", i, times[i], times[i-1])
		}
	}
	cyclePeriod := times[len(times)-1] - times[0]
	isConst := allEqual(values)

	if periodic && !isConst {
		if s.cardiacCyclePeriod > 0.0 && cyclePeriod != s.cardiacCyclePeriod {
			return 0, chk.Err("param: inconsistent cardiac cycle period defined in parameters (%v != %v)", cyclePeriod, s.cardiacCyclePeriod)
		}
		s.cardiacCyclePeriod = cyclePeriod
	}

	id := len(s.params)
	p := &Parameter{
		id:          id,
		constant:    false,
		periodic:    periodic,
		times:       append([]float64(nil), times...),
		values:      append([]float64(nil), values...),
		cyclePeriod: cyclePeriod,
	}
	s.params = append(s.params, p)
	s.values = append(s.values, p.evaluateAt(0.0))
	return id, nil
}

// CardiacCyclePeriod returns the period pinned by the first periodic,
// non-constant series added (or -1.0 if none has been added yet).
func (s *Store) CardiacCyclePeriod() float64 { return s.cardiacCyclePeriod }

func allEqual(v []float64) bool {
	for i := 1; i < len(v); i++ {
		if v[i] != v[0] {
			return false
		}
	}
	return true
}

// Get returns the parameter with the given id.
func (s *Store) Get(id int) *Parameter { return s.params[id] }

// Value returns the cached current value of parameter id.
func (s *Store) Value(id int) float64 { return s.values[id] }

// SetValue overwrites the cached current value of parameter id, used by
// the coupling facade when updating a constant-parameter block in place
// without waiting for the next update_time.
func (s *Store) SetValue(id int, v float64) { s.values[id] = v }

// Values returns the whole parameter-value cache, refreshed in place by
// UpdateTime. Callers must not retain the slice across a call that may
// grow the store.
func (s *Store) Values() []float64 { return s.values }

// UpdateTime refreshes the value cache of every parameter, constants
// included, at time t; model.Model.UpdateTime delegates here.
func (s *Store) UpdateTime(t float64) {
	for _, p := range s.params {
		s.values[p.id] = p.evaluateAt(t)
	}
}

// EvaluateAt evaluates parameter id at time t without touching the cache.
func (s *Store) EvaluateAt(id int, t float64) float64 {
	return s.params[id].evaluateAt(t)
}

// F evaluates the parameter at time t, ignoring x: it lets a Parameter
// stand in anywhere a gofem-style fun.Func is expected (x is the spatial
// coordinate fun.Func's signature carries for FEM source terms; every
// parameter here is spatially uniform).
func (p *Parameter) F(t float64, x []float64) float64 { return p.evaluateAt(t) }

// AsFunc returns parameter id as a fun.Func, for callers (observation
// generators, external plotting) that compose against that interface
// rather than calling EvaluateAt directly.
func (s *Store) AsFunc(id int) fun.Func { return s.params[id] }

// Update replaces a constant parameter's value in place.
func (p *Parameter) Update(v float64) error {
	if !p.constant {
		return chk.Err("param: Update(value) called on a non-constant parameter %d", p.id)
	}
	p.value = v
	return nil
}

// UpdateSeries replaces a series parameter's knots in place, used by the
// coupling facade's flow/pressure BC update path.
func (p *Parameter) UpdateSeries(times, values []float64) error {
	if p.constant {
		return chk.Err("param: UpdateSeries called on constant parameter %d", p.id)
	}
	if len(times) != len(values) || len(times) < 2 {
		return chk.Err("param: invalid series replacement for parameter %d", p.id)
	}
	for i := 1; i < len(times); i++ {
		if times[i] <= times[i-1] {
			return chk.Err("param: replacement times must be strictly increasing")
		}
	}
	p.times = append([]float64(nil), times...)
	p.values = append([]float64(nil), values...)
	p.cyclePeriod = times[len(times)-1] - times[0]
	return nil
}

func (p *Parameter) evaluateAt(t float64) float64 {
	if p.constant {
		return p.value
	}
	tau := t
	if p.periodic {
		tau = math.Mod(t-p.times[0], p.cyclePeriod)
		if tau < 0 {
			tau += p.cyclePeriod
		}
		tau += p.times[0]
	}
	return interpolate(p.times, p.values, tau, p.periodic)
}

// interpolate performs binary-search bracketing, exact-knot shortcut,
// linear interpolation within range, and linear extrapolation via the
// first/last two knots when non-periodic and out of range.
func interpolate(times, values []float64, tau float64, periodic bool) float64 {
	n := len(times)
	if tau <= times[0] {
		if tau == times[0] || periodic {
			return values[0]
		}
		// extrapolate below using first two knots
		slope := (values[1] - values[0]) / (times[1] - times[0])
		return values[0] + slope*(tau-times[0])
	}
	if tau >= times[n-1] {
		if tau == times[n-1] || periodic {
			return values[n-1]
		}
		slope := (values[n-1] - values[n-2]) / (times[n-1] - times[n-2])
		return values[n-1] + slope*(tau-times[n-1])
	}
	// binary search for the bracketing interval: smallest i such that times[i] >= tau
	i := sort.SearchFloat64s(times, tau)
	if times[i] == tau {
		return values[i]
	}
	lo, hi := i-1, i
	frac := (tau - times[lo]) / (times[hi] - times[lo])
	return values[lo] + frac*(values[hi]-values[lo])
}

// ToSteady replaces every non-constant parameter by the arithmetic mean
// of its values, flagging it for later restoration. Idempotent.
func (s *Store) ToSteady() {
	for _, p := range s.params {
		p.toSteady()
		s.values[p.id] = p.evaluateAt(0.0)
	}
}

func (p *Parameter) toSteady() {
	if p.constant || p.steady {
		return
	}
	p.savedTimes = p.times
	p.savedValues = p.values
	p.savedPeriodic = p.periodic
	mean := 0.0
	for _, v := range p.values {
		mean += v
	}
	mean /= float64(len(p.values))
	p.times = []float64{0.0, 1.0}
	p.values = []float64{mean, mean}
	p.periodic = false
	p.steady = true
}

// ToUnsteady restores every steady-converted parameter to its original
// time series, exactly as it was before ToSteady.
func (s *Store) ToUnsteady() {
	for _, p := range s.params {
		p.toUnsteady()
		s.values[p.id] = p.evaluateAt(0.0)
	}
}

func (p *Parameter) toUnsteady() {
	if !p.steady {
		return
	}
	p.times = p.savedTimes
	p.values = p.savedValues
	p.periodic = p.savedPeriodic
	p.savedTimes = nil
	p.savedValues = nil
	p.steady = false
}
