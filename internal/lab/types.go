package lab

import (
	"fmt"
	"strings"
)

type Status int

const (
	StatusSetup Status = iota
	StatusRunning
	StatusCompleted
)

func (s Status) String() string {
	switch s {
	case StatusSetup:
		return "setup"
	case StatusRunning:
		return "running"
	case StatusCompleted:
		return "completed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(b []byte) error {
	switch strings.ToLower(string(b)) {
	case "setup":
		*s = StatusSetup
	case "running":
		*s = StatusRunning
	case "completed":
		*s = StatusCompleted
	default:
		return fmt.Errorf("unknown status: %q", string(b))
	}
	return nil
}

// Kind identifies an experiment. Values match the catalogue ids.
type Kind string

const (
	KindTitration       Kind = "titration"
	KindPermanganometry Kind = "permanganometry"
	KindPendulum        Kind = "pendulum"
	KindSpring          Kind = "springoscillation"
)

type EventKind string

const (
	EventTick            EventKind = "tick"
	EventStatusChanged   EventKind = "status_changed"
	EventEndpointReached EventKind = "endpoint_reached"
	EventCycleCompleted  EventKind = "cycle_completed"
)

// Event is delivered to subscribers after the tick or operation that caused it.
type Event struct {
	Kind     EventKind `json:"kind"`
	RunID    string    `json:"run_id,omitempty"`
	Snapshot Snapshot  `json:"snapshot"`
}

// ColorPhase is the visible colour of the titration flask. Each titration
// variant uses an ordered subset of these values.
type ColorPhase int

const (
	PhaseClear ColorPhase = iota
	PhaseVeryLightPink
	PhaseLightPink
	PhaseDarkPink
	PhaseVeryLightYellow
	PhaseFlashPink
	PhaseLightPurple
	PhaseDarkPurple
)

func (p ColorPhase) String() string {
	switch p {
	case PhaseClear:
		return "clear"
	case PhaseVeryLightPink:
		return "very-light-pink"
	case PhaseLightPink:
		return "light-pink"
	case PhaseDarkPink:
		return "dark-pink"
	case PhaseVeryLightYellow:
		return "very-light-yellow"
	case PhaseFlashPink:
		return "flash-pink"
	case PhaseLightPurple:
		return "light-purple"
	case PhaseDarkPurple:
		return "dark-purple"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

func (p ColorPhase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *ColorPhase) UnmarshalText(b []byte) error {
	name := strings.ToLower(string(b))
	for c := PhaseClear; c <= PhaseDarkPurple; c++ {
		if c.String() == name {
			*p = c
			return nil
		}
	}
	return fmt.Errorf("unknown colour phase: %q", string(b))
}

type BuretteState struct {
	InitialVolume float64 `json:"initial_volume"`
	CurrentVolume float64 `json:"current_volume"`
	VolumeAdded   float64 `json:"volume_added"`
	SolutionLabel string  `json:"solution"`
	IsFlowing     bool    `json:"is_flowing"`
}

type FlaskState struct {
	SolutionLabel   string     `json:"solution"`
	IndicatorLabel  string     `json:"indicator,omitempty"`
	ColorPhase      ColorPhase `json:"color"`
	EndpointReached bool       `json:"endpoint_reached"`
}

type OscillatorState struct {
	Amplitude          float64 `json:"amplitude"`
	MassOrLength       float64 `json:"mass_or_length"`
	StiffnessOrGravity float64 `json:"stiffness_or_gravity"`
	Elapsed            float64 `json:"elapsed"`
	CycleCount         int     `json:"cycle_count"`
	PeriodEstimate     float64 `json:"period_estimate"`
	TheoreticalPeriod  float64 `json:"theoretical_period"`
	Displacement       float64 `json:"displacement"`
}

// Snapshot is a copy of simulator state. Mutating it has no effect on the simulator.
type Snapshot struct {
	RunID      string           `json:"run_id,omitempty"`
	Kind       Kind             `json:"kind"`
	Status     Status           `json:"status"`
	Elapsed    float64          `json:"elapsed"`
	Burette    *BuretteState    `json:"burette,omitempty"`
	Flask      *FlaskState      `json:"flask,omitempty"`
	Oscillator *OscillatorState `json:"oscillator,omitempty"`
}

// ParamSpec describes one tunable parameter and the range a UI control offers.
type ParamSpec struct {
	Name    string  `json:"name"`
	Unit    string  `json:"unit"`
	Default float64 `json:"default"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Step    float64 `json:"step"`
}

type Configurable interface {
	GetParams() map[string]float64
	SetParam(name string, value float64) error
	ParamSpecs() []ParamSpec
}

// Simulator is the per-experiment state machine driven by the controller.
//
// Tick receives the elapsed seconds since the run started and returns the
// domain events it produced and whether the run reached its built-in budget.
type Simulator interface {
	Configurable
	Kind() Kind
	Begin()
	Tick(elapsed float64) (events []EventKind, done bool)
	Halt()
	Reset()
	Snapshot() Snapshot
	Measurements() map[string]float64
	Report() (Report, error)
}
