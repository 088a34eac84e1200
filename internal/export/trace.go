// Package export records one run and writes it out as CSV, JSON or SVG.
//
// Nothing is kept between runs: a Recorder holds the most recent run only,
// and writers target an io.Writer or a path chosen by the caller.
package export

import (
	"sync"
	"time"

	"github.com/san-kum/vlab/internal/lab"
)

// Column names per experiment family.
const (
	ColVolumeAdded   = "volume_added"
	ColCurrentVolume = "current_volume"
	ColColorPhase    = "color_phase"
	ColEndpoint      = "endpoint_reached"

	ColDisplacement   = "displacement"
	ColCycleCount     = "cycle_count"
	ColPeriodEstimate = "period_estimate"
)

// Mark is a domain event on the trace timeline.
type Mark struct {
	Time float64       `json:"time"`
	Kind lab.EventKind `json:"kind"`
}

// Trace is the sampled history of a single run.
type Trace struct {
	RunID     string             `json:"run_id"`
	Kind      lab.Kind           `json:"kind"`
	StartedAt time.Time          `json:"started_at"`
	Params    map[string]float64 `json:"params,omitempty"`
	Columns   []string           `json:"columns"`
	Times     []float64          `json:"times"`
	Rows      [][]float64        `json:"rows"`
	Marks     []Mark             `json:"marks,omitempty"`
	Report    *lab.Report        `json:"report,omitempty"`
}

// Series returns one column of the trace, or nil if it does not exist.
func (t *Trace) Series(column string) []float64 {
	idx := -1
	for i, c := range t.Columns {
		if c == column {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}
	out := make([]float64, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = row[idx]
	}
	return out
}

// Len is the number of samples.
func (t *Trace) Len() int { return len(t.Times) }

// DefaultColumn is the series most worth plotting for the trace's kind.
func (t *Trace) DefaultColumn() string {
	if isTitration(t.Kind) {
		return ColVolumeAdded
	}
	return ColDisplacement
}

func isTitration(k lab.Kind) bool {
	return k == lab.KindTitration || k == lab.KindPermanganometry
}

func columnsFor(k lab.Kind) []string {
	if isTitration(k) {
		return []string{ColVolumeAdded, ColCurrentVolume, ColColorPhase, ColEndpoint}
	}
	return []string{ColDisplacement, ColCycleCount, ColPeriodEstimate}
}

func rowFor(s lab.Snapshot) []float64 {
	switch {
	case s.Burette != nil && s.Flask != nil:
		endpoint := 0.0
		if s.Flask.EndpointReached {
			endpoint = 1
		}
		return []float64{
			s.Burette.VolumeAdded,
			s.Burette.CurrentVolume,
			float64(s.Flask.ColorPhase),
			endpoint,
		}
	case s.Oscillator != nil:
		return []float64{s.Oscillator.Displacement, float64(s.Oscillator.CycleCount), s.Oscillator.PeriodEstimate}
	default:
		return nil
	}
}

// Recorder samples every tick of the current run. Observe is meant to be
// passed to Controller.Subscribe.
type Recorder struct {
	mu    sync.Mutex
	now   func() time.Time
	trace *Trace
}

func NewRecorder() *Recorder {
	return &Recorder{now: time.Now}
}

func (r *Recorder) Observe(ev lab.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := ev.Snapshot
	if ev.RunID == "" {
		return
	}
	if r.trace == nil || r.trace.RunID != ev.RunID {
		r.trace = &Trace{
			RunID:     ev.RunID,
			Kind:      snap.Kind,
			StartedAt: r.now(),
			Columns:   columnsFor(snap.Kind),
		}
	}

	switch ev.Kind {
	case lab.EventTick:
		if row := rowFor(snap); row != nil {
			r.trace.Times = append(r.trace.Times, snap.Elapsed)
			r.trace.Rows = append(r.trace.Rows, row)
		}
	case lab.EventEndpointReached, lab.EventCycleCompleted:
		r.trace.Marks = append(r.trace.Marks, Mark{Time: snap.Elapsed, Kind: ev.Kind})
	}
}

// Trace returns a copy of the current run, or nil if nothing was recorded.
func (r *Recorder) Trace() *Trace {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.trace == nil {
		return nil
	}
	out := *r.trace
	out.Columns = append([]string(nil), r.trace.Columns...)
	out.Times = append([]float64(nil), r.trace.Times...)
	out.Rows = make([][]float64, len(r.trace.Rows))
	for i, row := range r.trace.Rows {
		out.Rows[i] = append([]float64(nil), row...)
	}
	out.Marks = append([]Mark(nil), r.trace.Marks...)
	return &out
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.trace = nil
}
