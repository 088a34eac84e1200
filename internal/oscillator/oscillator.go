// Package oscillator simulates simple harmonic motion analytically.
//
// Displacement is amplitude·cos(2πt/T) with T from the formula library;
// nothing is integrated numerically. A cycle completes each time the
// displacement turns positive after being non-positive, and the inter-cycle
// times feed a running period estimate. A run ends after CycleBudget cycles.
//
// The period and amplitude are frozen when a run begins, so parameter
// changes cannot affect a run in progress.
package oscillator

import (
	"math"

	"github.com/san-kum/vlab/internal/lab"
)

// CycleBudget is the number of cycles after which a run completes.
const CycleBudget = 10

const (
	MeasureCycleCount        = "cycle_count"
	MeasurePeriodEstimate    = "period_estimate"
	MeasureTheoreticalPeriod = "theoretical_period"
	MeasureElapsed           = "elapsed"
)

// system is what distinguishes a pendulum from a spring.
type system interface {
	kind() lab.Kind
	specs() []lab.ParamSpec
	validate(name string, v float64) error
	period(p map[string]float64) float64
	// amplitude in the unit of the displacement (radians or metres).
	amplitude(p map[string]float64) float64
	// state maps parameters onto the generic oscillator fields.
	state(p map[string]float64) (amp, massOrLength, stiffnessOrGravity float64)
}

type Simulator struct {
	sys    system
	params map[string]float64

	// frozen at Begin
	period float64
	amp    float64

	elapsed      float64
	displacement float64
	cycles       int
	estimate     float64
	lastCross    float64

	prevSign int
	hasSign  bool

	active bool
	halted bool
}

func newSimulator(sys system) *Simulator {
	s := &Simulator{sys: sys, params: lab.SpecDefaults(sys.specs())}
	s.Reset()
	return s
}

func (s *Simulator) Kind() lab.Kind              { return s.sys.kind() }
func (s *Simulator) ParamSpecs() []lab.ParamSpec { return s.sys.specs() }

func (s *Simulator) GetParams() map[string]float64 {
	out := make(map[string]float64, len(s.params))
	for k, v := range s.params {
		out[k] = v
	}
	return out
}

func (s *Simulator) SetParam(name string, value float64) error {
	if _, ok := s.params[name]; !ok {
		return lab.UnknownParameter(name, value)
	}
	if s.active {
		from := lab.StatusRunning
		if s.halted || s.cycles >= CycleBudget {
			from = lab.StatusCompleted
		}
		return &lab.TransitionError{Op: "set " + name, From: from}
	}
	if err := s.sys.validate(name, value); err != nil {
		return err
	}
	s.params[name] = value
	s.Reset()
	return nil
}

// TheoreticalPeriod is the period of the current run, or of the current
// parameters when no run has begun.
func (s *Simulator) TheoreticalPeriod() float64 {
	return s.period
}

func (s *Simulator) Begin() {
	s.Reset()
	s.active = true
}

func (s *Simulator) Tick(elapsed float64) ([]lab.EventKind, bool) {
	if !s.active || s.halted || s.cycles >= CycleBudget {
		return nil, true
	}
	// Elapsed time never rewinds; a stale sample would fake a crossing.
	if elapsed < s.elapsed {
		return nil, false
	}

	s.elapsed = elapsed
	s.displacement = s.amp * math.Cos(2*math.Pi*elapsed/s.period)

	var events []lab.EventKind
	sign := signOf(s.displacement)
	// Zero counts as its own sign, so -,0,+ fires once on the 0 to + step.
	if s.hasSign && sign != s.prevSign && sign > 0 {
		s.cycles++
		if s.cycles > 1 {
			n := float64(s.cycles - 1)
			s.estimate = (s.estimate*(n-1) + (elapsed - s.lastCross)) / n
		}
		s.lastCross = elapsed
		events = append(events, lab.EventCycleCompleted)
	}
	s.prevSign, s.hasSign = sign, true

	return events, s.cycles >= CycleBudget
}

func signOf(x float64) int {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	default:
		return 0
	}
}

// Halt freezes the oscillator at its last sample.
func (s *Simulator) Halt() {
	s.halted = true
}

func (s *Simulator) Reset() {
	s.period = s.sys.period(s.params)
	s.amp = s.sys.amplitude(s.params)
	s.elapsed = 0
	s.displacement = s.amp
	s.cycles = 0
	s.estimate = 0
	s.lastCross = 0
	s.prevSign = 0
	s.hasSign = false
	s.active = false
	s.halted = false
}

func (s *Simulator) CycleCount() int { return s.cycles }

// PeriodEstimate is the mean time between detected cycles, zero until two
// cycles have been seen.
func (s *Simulator) PeriodEstimate() float64 { return s.estimate }

func (s *Simulator) Snapshot() lab.Snapshot {
	amp, ml, sg := s.sys.state(s.params)
	return lab.Snapshot{
		Kind:    s.sys.kind(),
		Elapsed: s.elapsed,
		Oscillator: &lab.OscillatorState{
			Amplitude:          amp,
			MassOrLength:       ml,
			StiffnessOrGravity: sg,
			Elapsed:            s.elapsed,
			CycleCount:         s.cycles,
			PeriodEstimate:     s.estimate,
			TheoreticalPeriod:  s.period,
			Displacement:       s.displacement,
		},
	}
}

func (s *Simulator) Measurements() map[string]float64 {
	return map[string]float64{
		MeasureCycleCount:        float64(s.cycles),
		MeasurePeriodEstimate:    s.estimate,
		MeasureTheoreticalPeriod: s.period,
		MeasureElapsed:           s.elapsed,
	}
}

// Report compares the period estimate with T. Fewer than two cycles give a
// no-data report and ErrDegenerateMeasurement.
func (s *Simulator) Report() (lab.Report, error) {
	if s.estimate <= 0 {
		return lab.NoDataReport(s.period, "s"), lab.ErrDegenerateMeasurement
	}
	return lab.NewReport(s.estimate, s.period, "s"), nil
}
