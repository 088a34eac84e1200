package lab

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/san-kum/vlab/internal/formula"
)

func TestStatus_Text(t *testing.T) {
	tests := []struct {
		status Status
		text   string
	}{
		{StatusSetup, "setup"},
		{StatusRunning, "running"},
		{StatusCompleted, "completed"},
	}

	for _, tt := range tests {
		b, err := tt.status.MarshalText()
		if err != nil {
			t.Fatalf("MarshalText: %v", err)
		}
		if string(b) != tt.text {
			t.Errorf("MarshalText(%d) = %q, want %q", tt.status, b, tt.text)
		}

		var back Status
		if err := back.UnmarshalText(b); err != nil {
			t.Fatalf("UnmarshalText(%q): %v", b, err)
		}
		if back != tt.status {
			t.Errorf("UnmarshalText(%q) = %v, want %v", b, back, tt.status)
		}
	}

	var s Status
	if err := s.UnmarshalText([]byte("paused")); err == nil {
		t.Error("expected error for unknown status")
	}
}

func TestColorPhase_Text(t *testing.T) {
	for p := PhaseClear; p <= PhaseDarkPurple; p++ {
		b, err := p.MarshalText()
		if err != nil {
			t.Fatalf("MarshalText: %v", err)
		}
		var back ColorPhase
		if err := back.UnmarshalText(b); err != nil {
			t.Fatalf("UnmarshalText(%q): %v", b, err)
		}
		if back != p {
			t.Errorf("UnmarshalText(%q) = %v, want %v", b, back, p)
		}
	}

	var p ColorPhase
	if err := p.UnmarshalText([]byte("blue")); err == nil {
		t.Error("expected error for unknown phase")
	}
}

func TestSnapshot_JSONRoundTrip(t *testing.T) {
	snap := Snapshot{
		RunID:   "r1",
		Kind:    KindPermanganometry,
		Status:  StatusCompleted,
		Elapsed: 20,
		Burette: &BuretteState{InitialVolume: 50, CurrentVolume: 40, VolumeAdded: 10, SolutionLabel: "KMnO4"},
		Flask:   &FlaskState{ColorPhase: PhaseDarkPurple, EndpointReached: true},
	}
	data, err := json.Marshal(snap)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var back Snapshot
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal %s: %v", data, err)
	}
	if back.Status != snap.Status || back.Kind != snap.Kind || back.RunID != snap.RunID {
		t.Errorf("header = %+v, want %+v", back, snap)
	}
	if *back.Burette != *snap.Burette || *back.Flask != *snap.Flask {
		t.Errorf("decoded %+v %+v, want %+v %+v", *back.Burette, *back.Flask, *snap.Burette, *snap.Flask)
	}
}

func TestSnapshot_JSON(t *testing.T) {
	snap := Snapshot{
		Kind:   KindTitration,
		Status: StatusRunning,
		Flask:  &FlaskState{ColorPhase: PhaseLightPink, EndpointReached: true},
	}

	data, err := json.Marshal(snap)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	out := string(data)
	for _, want := range []string{`"status":"running"`, `"color":"light-pink"`, `"kind":"titration"`} {
		if !strings.Contains(out, want) {
			t.Errorf("snapshot json %s missing %s", out, want)
		}
	}
	if strings.Contains(out, "oscillator") {
		t.Errorf("snapshot json %s should omit oscillator", out)
	}
}

func TestNewReport(t *testing.T) {
	tests := []struct {
		name        string
		measured    float64
		theoretical float64
		wantPE      float64
		wantLabel   string
	}{
		{"exact", 25, 25, 0, formula.Excellent},
		{"rounds down into excellent", 25.251, 25, 1.0, formula.Excellent},
		{"very good", 25.4, 25, 1.6, formula.VeryGood},
		{"good", 26, 25, 4, formula.Good},
		{"needs improvement", 30, 25, 20, formula.NeedsImprovement},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewReport(tt.measured, tt.theoretical, "mL")
			if r.PercentError != tt.wantPE {
				t.Errorf("PercentError = %v, want %v", r.PercentError, tt.wantPE)
			}
			if r.Accuracy != tt.wantLabel {
				t.Errorf("Accuracy = %q, want %q", r.Accuracy, tt.wantLabel)
			}
			if r.NoData {
				t.Error("NoData should be false")
			}
		})
	}
}

func TestNoDataReport(t *testing.T) {
	r := NoDataReport(2.0, "s")
	if !r.NoData || r.Accuracy != NoDataLabel {
		t.Errorf("unexpected no-data report: %+v", r)
	}
}

func TestErrors(t *testing.T) {
	err := error(&TransitionError{Op: "start", From: StatusRunning})
	if !errors.Is(err, ErrInvalidTransition) {
		t.Error("TransitionError should unwrap to ErrInvalidTransition")
	}
	if !strings.Contains(err.Error(), "start") || !strings.Contains(err.Error(), "running") {
		t.Errorf("unexpected message: %s", err)
	}

	err = &ParameterError{Name: "mass", Value: -1, Reason: "must be positive", Wrapped: ErrInvalidParameter}
	if !errors.Is(err, ErrInvalidParameter) {
		t.Error("ParameterError should unwrap to its wrapped error")
	}
}
