package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/vlab/internal/lab"
	"github.com/san-kum/vlab/internal/oscillator"
	"github.com/san-kum/vlab/internal/titration"
)

// Info is a catalogue entry.
type Info struct {
	ID          lab.Kind `json:"id" yaml:"id"`
	Name        string   `json:"name" yaml:"name"`
	Subject     string   `json:"subject" yaml:"subject"`
	Description string   `json:"description" yaml:"description"`
}

type entry struct {
	info Info
	new  func() lab.Simulator
}

type Registry struct {
	entries map[lab.Kind]entry
}

func NewRegistry() *Registry {
	r := &Registry{entries: make(map[lab.Kind]entry)}

	r.Register(Info{
		ID:          lab.KindTitration,
		Name:        "Acid-Base Titration",
		Subject:     "Chemistry",
		Description: "Determine the concentration of an acid using a standard base solution.",
	}, func() lab.Simulator { return titration.NewAcidBase() })

	r.Register(Info{
		ID:          lab.KindPermanganometry,
		Name:        "Permanganometry",
		Subject:     "Chemistry",
		Description: "Redox titration of ferrous ions with potassium permanganate.",
	}, func() lab.Simulator { return titration.NewRedox() })

	r.Register(Info{
		ID:          lab.KindPendulum,
		Name:        "Simple Pendulum",
		Subject:     "Physics",
		Description: "Measure the period of a pendulum and compare it with 2π√(L/g).",
	}, func() lab.Simulator { return oscillator.NewPendulum() })

	r.Register(Info{
		ID:          lab.KindSpring,
		Name:        "Spring Oscillation",
		Subject:     "Physics",
		Description: "Measure the period of a mass on a spring and compare it with 2π√(m/k).",
	}, func() lab.Simulator { return oscillator.NewSpring() })

	return r
}

// Register adds or replaces an experiment.
func (r *Registry) Register(info Info, factory func() lab.Simulator) {
	r.entries[info.ID] = entry{info: info, new: factory}
}

// New instantiates a simulator with default parameters.
func (r *Registry) New(kind lab.Kind) (lab.Simulator, error) {
	e, ok := r.entries[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", lab.ErrUnknownExperiment, kind)
	}
	return e.new(), nil
}

func (r *Registry) Info(kind lab.Kind) (Info, error) {
	e, ok := r.entries[kind]
	if !ok {
		return Info{}, fmt.Errorf("%w: %s", lab.ErrUnknownExperiment, kind)
	}
	return e.info, nil
}

// List returns the catalogue ordered by subject, then id.
func (r *Registry) List() []Info {
	out := make([]Info, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.info)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Subject != out[j].Subject {
			return out[i].Subject < out[j].Subject
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// ParamSpecs reports the tunable parameters of kind.
func (r *Registry) ParamSpecs(kind lab.Kind) ([]lab.ParamSpec, error) {
	s, err := r.New(kind)
	if err != nil {
		return nil, err
	}
	return s.ParamSpecs(), nil
}
