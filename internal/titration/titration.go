// Package titration simulates a burette dispensing titrant into a flask.
//
// Each tick releases one drop of DropVolume. The flask colour is a pure
// function of the volume added so far, and the endpoint flag latches once
// the variant's expected endpoint is reached. An empty burette ends the run.
package titration

import (
	"math"

	"github.com/san-kum/vlab/internal/formula"
	"github.com/san-kum/vlab/internal/lab"
)

// DropVolume is dispensed per tick, in mL, for every variant.
const DropVolume = 0.1

const (
	ParamInitialVolume = "initial_volume"

	MeasureVolumeAdded   = "volume_added"
	MeasureCurrentVolume = "current_volume"
	MeasureElapsed       = "elapsed"
	ExtraFerrous         = "ferrous_concentration"
)

type Simulator struct {
	variant Variant
	initial float64

	drops    int
	added    float64
	elapsed  float64
	flowing  bool
	endpoint bool
}

func New(v Variant) *Simulator {
	return &Simulator{variant: v, initial: v.InitialVolume}
}

func NewAcidBase() *Simulator { return New(AcidBase()) }
func NewRedox() *Simulator     { return New(Redox()) }

func (s *Simulator) Kind() lab.Kind   { return s.variant.Kind }
func (s *Simulator) Variant() Variant { return s.variant }

func (s *Simulator) ParamSpecs() []lab.ParamSpec {
	return []lab.ParamSpec{
		{Name: ParamInitialVolume, Unit: "mL", Default: s.variant.InitialVolume, Min: 10, Max: 100, Step: 5},
	}
}

func (s *Simulator) GetParams() map[string]float64 {
	return map[string]float64{ParamInitialVolume: s.initial}
}

func (s *Simulator) SetParam(name string, value float64) error {
	switch name {
	case ParamInitialVolume:
		if s.flowing {
			return &lab.TransitionError{Op: "set " + name, From: lab.StatusRunning}
		}
		if s.drops > 0 {
			return &lab.TransitionError{Op: "set " + name, From: lab.StatusCompleted}
		}
		if err := lab.RequirePositive(name, value); err != nil {
			return err
		}
		s.initial = value
		s.Reset()
	default:
		return lab.UnknownParameter(name, value)
	}
	return nil
}

func (s *Simulator) Begin() {
	s.Reset()
	s.flowing = true
}

// Tick dispenses one drop. The volume is derived from the drop count so
// repeated subtraction cannot drift past a colour threshold.
func (s *Simulator) Tick(elapsed float64) ([]lab.EventKind, bool) {
	if !s.flowing {
		return nil, true
	}
	s.elapsed = elapsed
	s.drops++
	s.added = math.Min(formula.Round(float64(s.drops)*DropVolume, 9), s.initial)

	var events []lab.EventKind
	if !s.endpoint && s.added >= s.variant.Endpoint {
		s.endpoint = true
		events = append(events, lab.EventEndpointReached)
	}

	if s.current() <= 0 {
		s.flowing = false
		return events, true
	}
	return events, false
}

func (s *Simulator) Halt() {
	s.flowing = false
}

func (s *Simulator) Reset() {
	s.drops = 0
	s.added = 0
	s.elapsed = 0
	s.flowing = false
	s.endpoint = false
}

func (s *Simulator) current() float64 {
	return math.Max(formula.Round(s.initial-s.added, 9), 0)
}

// VolumeAdded is the titrant dispensed so far, in mL.
func (s *Simulator) VolumeAdded() float64 { return s.added }

func (s *Simulator) Snapshot() lab.Snapshot {
	return lab.Snapshot{
		Kind:    s.variant.Kind,
		Elapsed: s.elapsed,
		Burette: &lab.BuretteState{
			InitialVolume: s.initial,
			CurrentVolume: s.current(),
			VolumeAdded:   s.added,
			SolutionLabel: s.variant.Titrant,
			IsFlowing:     s.flowing,
		},
		Flask: &lab.FlaskState{
			SolutionLabel:   s.variant.Analyte,
			IndicatorLabel:  s.variant.Indicator,
			ColorPhase:      s.variant.Phase(s.added),
			EndpointReached: s.endpoint,
		},
	}
}

func (s *Simulator) Measurements() map[string]float64 {
	return map[string]float64{
		MeasureVolumeAdded:   s.added,
		MeasureCurrentVolume: s.current(),
		MeasureElapsed:       s.elapsed,
	}
}

// Report compares the dispensed volume with the expected endpoint. With no
// titrant dispensed it returns a no-data report and ErrDegenerateMeasurement.
func (s *Simulator) Report() (lab.Report, error) {
	if s.added <= 0 {
		return lab.NoDataReport(s.variant.Endpoint, "mL"), lab.ErrDegenerateMeasurement
	}
	r := lab.NewReport(s.added, s.variant.Endpoint, "mL")
	if v := s.variant; v.ReactionRatio > 0 {
		r.Extras = map[string]float64{
			ExtraFerrous: formula.FerrousConcentration(s.added, v.TitrantMolarity, v.ReactionRatio, v.AnalyteLitres),
		}
	}
	return r, nil
}
