package experiment

import (
	"errors"
	"testing"

	"github.com/san-kum/vlab/internal/lab"
)

func TestRegistry_New(t *testing.T) {
	r := NewRegistry()

	for _, kind := range []lab.Kind{lab.KindTitration, lab.KindPermanganometry, lab.KindPendulum, lab.KindSpring} {
		s, err := r.New(kind)
		if err != nil {
			t.Fatalf("New(%s): %v", kind, err)
		}
		if s.Kind() != kind {
			t.Errorf("New(%s).Kind() = %s", kind, s.Kind())
		}
		if len(s.ParamSpecs()) == 0 {
			t.Errorf("%s has no parameter specs", kind)
		}
	}

	if _, err := r.New("electrolysis"); !errors.Is(err, lab.ErrUnknownExperiment) {
		t.Errorf("unknown kind: err = %v", err)
	}
}

func TestRegistry_List(t *testing.T) {
	list := NewRegistry().List()
	if len(list) != 4 {
		t.Fatalf("List() returned %d entries, want 4", len(list))
	}

	want := []lab.Kind{lab.KindPermanganometry, lab.KindTitration, lab.KindPendulum, lab.KindSpring}
	for i, info := range list {
		if info.ID != want[i] {
			t.Errorf("List()[%d] = %s, want %s", i, info.ID, want[i])
		}
	}
	if list[0].Subject != "Chemistry" || list[3].Subject != "Physics" {
		t.Errorf("unexpected subjects: %+v", list)
	}
}

func TestRegistry_ParamSpecsMatchDefaults(t *testing.T) {
	r := NewRegistry()
	for _, info := range r.List() {
		s, _ := r.New(info.ID)
		params := s.GetParams()
		for _, spec := range s.ParamSpecs() {
			if params[spec.Name] != spec.Default {
				t.Errorf("%s.%s = %v, spec default %v", info.ID, spec.Name, params[spec.Name], spec.Default)
			}
			if spec.Default < spec.Min || spec.Default > spec.Max {
				t.Errorf("%s.%s default %v outside [%v, %v]", info.ID, spec.Name, spec.Default, spec.Min, spec.Max)
			}
		}
	}
}

func TestHint(t *testing.T) {
	tests := []struct {
		kind   lab.Kind
		status lab.Status
		want   string
	}{
		{lab.KindTitration, lab.StatusSetup, hints[lab.KindTitration][lab.StatusSetup]},
		{lab.KindPendulum, lab.StatusCompleted, hints[lab.KindPendulum][lab.StatusCompleted]},
		{lab.KindSpring, lab.StatusRunning, genericHint},
		{"", lab.StatusSetup, genericHint},
	}

	for _, tt := range tests {
		if got := Hint(tt.kind, tt.status); got != tt.want {
			t.Errorf("Hint(%s, %s) = %q, want %q", tt.kind, tt.status, got, tt.want)
		}
	}
}
