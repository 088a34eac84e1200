// Package sweep runs one experiment headless across a range of values of a
// single parameter, several runs at a time.
//
// Each run gets its own controller on a manual clock, so runs share nothing
// and finish as fast as the CPU allows.
package sweep

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/san-kum/vlab/internal/clock"
	"github.com/san-kum/vlab/internal/experiment"
	"github.com/san-kum/vlab/internal/lab"
)

// DefaultMaxTicks bounds a single run.
const DefaultMaxTicks = 100000

// ticksPerCheck is how often a run looks at its context.
const ticksPerCheck = 1000

// Point is the outcome of one run. Err is set when the value was rejected
// or the run measured nothing; Report then holds whatever was available.
type Point struct {
	Value  float64
	Report lab.Report
	Err    error
}

type Sweep struct {
	Kind     lab.Kind
	Param    string
	Values   []float64
	Base     map[string]float64
	MaxTicks int
	// StopAt ends each run after this many seconds of lab time, if positive.
	StopAt float64
}

// Linspace returns steps evenly spaced values from lo to hi inclusive.
func Linspace(lo, hi float64, steps int) []float64 {
	switch {
	case steps <= 0:
		return nil
	case steps == 1:
		return []float64{lo}
	}
	out := make([]float64, steps)
	for i := range out {
		out[i] = lo + (hi-lo)*float64(i)/float64(steps-1)
	}
	return out
}

// Run executes every value with at most workers runs in flight and returns
// the points in the order of Values. It fails only for an unknown experiment
// or parameter, or when ctx is cancelled.
func (s Sweep) Run(ctx context.Context, workers int) ([]Point, error) {
	reg := experiment.NewRegistry()
	specs, err := reg.ParamSpecs(s.Kind)
	if err != nil {
		return nil, err
	}
	if !hasParam(specs, s.Param) {
		return nil, &lab.ParameterError{Name: s.Param, Wrapped: lab.ErrUnknownParameter}
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	points := make([]Point, len(s.Values))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, v := range s.Values {
		g.Go(func() error {
			p, err := s.runOne(ctx, reg, v)
			points[i] = p
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return points, nil
}

func hasParam(specs []lab.ParamSpec, name string) bool {
	for _, sp := range specs {
		if sp.Name == name {
			return true
		}
	}
	return false
}

// runOne returns a non-nil error only for cancellation.
func (s Sweep) runOne(ctx context.Context, reg *experiment.Registry, value float64) (Point, error) {
	p := Point{Value: value}
	if err := ctx.Err(); err != nil {
		return p, err
	}

	manual := clock.NewManual()
	ctl := experiment.NewController(
		experiment.WithClock(manual),
		experiment.WithRegistry(reg),
	)
	defer ctl.Close()

	if err := ctl.Select(s.Kind); err != nil {
		p.Err = err
		return p, nil
	}
	if err := ctl.ApplyParams(s.Base); err != nil {
		p.Err = err
		return p, nil
	}
	if err := ctl.SetParam(s.Param, value); err != nil {
		p.Err = err
		return p, nil
	}
	if s.StopAt > 0 {
		ctl.Subscribe(func(ev lab.Event) {
			if ev.Kind == lab.EventTick && ev.Snapshot.Elapsed >= s.StopAt {
				ctl.Stop()
			}
		})
	}
	if err := ctl.Start(); err != nil {
		p.Err = err
		return p, nil
	}

	budget := s.MaxTicks
	if budget <= 0 {
		budget = DefaultMaxTicks
	}
	for budget > 0 && manual.Running() {
		if err := ctx.Err(); err != nil {
			return p, err
		}
		budget -= manual.RunUntilStopped(min(budget, ticksPerCheck))
	}
	if ctl.Status() == lab.StatusRunning {
		ctl.Stop()
	}

	p.Report, p.Err = ctl.Report()
	if p.Err != nil && !errors.Is(p.Err, lab.ErrDegenerateMeasurement) {
		return p, fmt.Errorf("report for %s=%g: %w", s.Param, value, p.Err)
	}
	return p, nil
}
