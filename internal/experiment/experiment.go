// Package experiment owns the lifecycle of one lab session.
//
// A Controller holds the selected simulator, its status and the clock that
// drives it. Operations are the only way to mutate a session:
//
//	Select -> Setup -> Start -> Running -> Stop/auto-stop -> Completed
//	Reset from Running or Completed returns to Setup.
//
// Calling an operation from a status that does not permit it returns an
// error wrapping lab.ErrInvalidTransition and leaves state unchanged.
//
// # Thread Safety
//
// All methods are safe for concurrent use. Ticks are serialized and events
// are delivered after the tick that produced them has been applied. After
// Stop, Reset or Select returns, no further tick mutates the session.
// Subscribers may call Stop and Reset; they must not call Start or Select.
package experiment

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/san-kum/vlab/internal/clock"
	"github.com/san-kum/vlab/internal/lab"
	"github.com/san-kum/vlab/internal/logging"
)

type Option func(*Controller)

func WithClock(c clock.Clock) Option {
	return func(ctl *Controller) { ctl.clk = c }
}

func WithLogger(l *slog.Logger) Option {
	return func(ctl *Controller) { ctl.log = l }
}

func WithRegistry(r *Registry) Option {
	return func(ctl *Controller) { ctl.reg = r }
}

// WithRunIDs replaces the run identifier generator.
func WithRunIDs(fn func() string) Option {
	return func(ctl *Controller) { ctl.newID = fn }
}

// WithInterval sets the tick cadence for one experiment kind.
func WithInterval(kind lab.Kind, d time.Duration) Option {
	return func(ctl *Controller) { ctl.intervals[kind] = d }
}

type subscriber struct {
	id int
	fn func(lab.Event)
}

type Controller struct {
	mu    sync.Mutex
	reg   *Registry
	clk   clock.Clock
	log   *slog.Logger
	newID func() string

	intervals map[lab.Kind]time.Duration

	sim    lab.Simulator
	status lab.Status
	runID  string
	// epoch changes whenever a run is started or abandoned; a tick from an
	// older epoch is discarded.
	epoch       uint64
	dispatching int

	subMu   sync.Mutex
	subs    []subscriber
	nextSub int
}

func NewController(opts ...Option) *Controller {
	c := &Controller{
		intervals: map[lab.Kind]time.Duration{
			lab.KindTitration:       clock.TitrationInterval,
			lab.KindPermanganometry: clock.TitrationInterval,
			lab.KindPendulum:        clock.FrameInterval,
			lab.KindSpring:          clock.FrameInterval,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.reg == nil {
		c.reg = NewRegistry()
	}
	if c.clk == nil {
		c.clk = clock.NewTicker()
	}
	if c.log == nil {
		c.log = logging.Discard()
	}
	if c.newID == nil {
		c.newID = func() string { return uuid.New().String() }
	}
	return c
}

func (c *Controller) Registry() *Registry { return c.reg }

// Select discards the current session, stopping any run, and instantiates
// kind with default parameters in Setup.
func (c *Controller) Select(kind lab.Kind) error {
	sim, err := c.reg.New(kind)
	if err != nil {
		return err
	}

	c.mu.Lock()
	wasRunning := c.status == lab.StatusRunning
	if wasRunning {
		c.sim.Halt()
	}
	c.sim = sim
	c.status = lab.StatusSetup
	c.runID = ""
	c.epoch++
	wait := c.dispatching == 0
	snap := c.snapshotLocked()
	c.mu.Unlock()

	if wasRunning && wait {
		c.clk.Stop()
	}
	c.log.Info("experiment selected", "experiment", kind)
	c.emit(lab.Event{Kind: lab.EventStatusChanged, Snapshot: snap})
	return nil
}

func (c *Controller) Start() error {
	c.mu.Lock()
	if c.sim == nil {
		c.mu.Unlock()
		return lab.ErrNoExperiment
	}
	if c.status != lab.StatusSetup {
		err := &lab.TransitionError{Op: "start", From: c.status}
		c.mu.Unlock()
		return err
	}

	c.sim.Begin()
	c.status = lab.StatusRunning
	c.runID = c.newID()
	c.epoch++
	epoch := c.epoch
	kind := c.sim.Kind()
	interval := c.intervals[kind]
	if interval <= 0 {
		interval = clock.FrameInterval
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.log.Info("run started", "experiment", kind, "run_id", snap.RunID, "interval", interval)
	c.emit(lab.Event{Kind: lab.EventStatusChanged, RunID: snap.RunID, Snapshot: snap})
	c.clk.Start(interval, c.onTick(epoch))
	return nil
}

func (c *Controller) onTick(epoch uint64) clock.TickFunc {
	return func(elapsed float64) bool {
		c.mu.Lock()
		if c.epoch != epoch || c.status != lab.StatusRunning {
			c.mu.Unlock()
			return false
		}

		kinds, done := c.sim.Tick(elapsed)
		snap := c.snapshotLocked()
		events := make([]lab.Event, 0, len(kinds)+2)
		events = append(events, lab.Event{Kind: lab.EventTick, RunID: c.runID, Snapshot: snap})
		for _, k := range kinds {
			events = append(events, lab.Event{Kind: k, RunID: c.runID, Snapshot: snap})
		}
		if done {
			c.sim.Halt()
			c.status = lab.StatusCompleted
			events = append(events, lab.Event{Kind: lab.EventStatusChanged, RunID: c.runID, Snapshot: c.snapshotLocked()})
		}
		c.dispatching++
		c.mu.Unlock()

		if c.log.Enabled(context.Background(), logging.LevelTrace) {
			c.log.Log(context.Background(), logging.LevelTrace, "tick",
				"experiment", snap.Kind, "run_id", snap.RunID, "elapsed", elapsed, "events", len(kinds))
		}
		if done {
			c.log.Info("run completed", "experiment", snap.Kind, "run_id", snap.RunID, "elapsed", elapsed)
		}
		c.emit(events...)

		c.mu.Lock()
		c.dispatching--
		keep := c.epoch == epoch && c.status == lab.StatusRunning
		c.mu.Unlock()
		return keep
	}
}

// Stop ends a run at the current reading.
func (c *Controller) Stop() error {
	c.mu.Lock()
	if c.sim == nil {
		c.mu.Unlock()
		return lab.ErrNoExperiment
	}
	if c.status != lab.StatusRunning {
		err := &lab.TransitionError{Op: "stop", From: c.status}
		c.mu.Unlock()
		return err
	}

	c.sim.Halt()
	c.status = lab.StatusCompleted
	c.epoch++
	wait := c.dispatching == 0
	snap := c.snapshotLocked()
	c.mu.Unlock()

	// From inside a tick the clock stops itself when the tick returns.
	if wait {
		c.clk.Stop()
	}
	c.log.Info("run stopped", "experiment", snap.Kind, "run_id", snap.RunID, "elapsed", snap.Elapsed)
	c.emit(lab.Event{Kind: lab.EventStatusChanged, RunID: snap.RunID, Snapshot: snap})
	return nil
}

// Reset discards all progress and returns to Setup. It is a no-op in Setup.
func (c *Controller) Reset() error {
	c.mu.Lock()
	if c.sim == nil {
		c.mu.Unlock()
		return lab.ErrNoExperiment
	}
	if c.status == lab.StatusSetup {
		c.mu.Unlock()
		return nil
	}

	wasRunning := c.status == lab.StatusRunning
	c.sim.Reset()
	c.status = lab.StatusSetup
	runID := c.runID
	c.runID = ""
	c.epoch++
	wait := c.dispatching == 0
	snap := c.snapshotLocked()
	c.mu.Unlock()

	if wasRunning && wait {
		c.clk.Stop()
	}
	c.log.Info("run reset", "experiment", snap.Kind, "run_id", runID)
	c.emit(lab.Event{Kind: lab.EventStatusChanged, Snapshot: snap})
	return nil
}

// SetParam changes a parameter of the selected experiment. Only allowed in Setup.
func (c *Controller) SetParam(name string, value float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sim == nil {
		return lab.ErrNoExperiment
	}
	if c.status != lab.StatusSetup {
		return &lab.TransitionError{Op: "set " + name, From: c.status}
	}
	if err := c.sim.SetParam(name, value); err != nil {
		c.log.Debug("parameter rejected", "experiment", c.sim.Kind(), "param", name, "value", value, "error", err)
		return err
	}
	c.log.Debug("parameter set", "experiment", c.sim.Kind(), "param", name, "value", value)
	return nil
}

// ApplyParams sets every parameter in sorted name order, stopping at the first error.
func (c *Controller) ApplyParams(params map[string]float64) error {
	for _, name := range lab.ParamNames(params) {
		if err := c.SetParam(name, params[name]); err != nil {
			return err
		}
	}
	return nil
}

func (c *Controller) Params() (map[string]float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sim == nil {
		return nil, lab.ErrNoExperiment
	}
	return c.sim.GetParams(), nil
}

func (c *Controller) ParamSpecs() ([]lab.ParamSpec, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sim == nil {
		return nil, lab.ErrNoExperiment
	}
	return c.sim.ParamSpecs(), nil
}

func (c *Controller) Status() lab.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Kind reports the selected experiment, or "" before Select.
func (c *Controller) Kind() lab.Kind {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sim == nil {
		return ""
	}
	return c.sim.Kind()
}

func (c *Controller) Snapshot() (lab.Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sim == nil {
		return lab.Snapshot{}, lab.ErrNoExperiment
	}
	return c.snapshotLocked(), nil
}

func (c *Controller) snapshotLocked() lab.Snapshot {
	snap := c.sim.Snapshot()
	snap.RunID = c.runID
	snap.Status = c.status
	return snap
}

// Report is available once the run is Completed. A run with nothing to
// measure yields a no-data report together with lab.ErrDegenerateMeasurement.
func (c *Controller) Report() (lab.Report, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sim == nil {
		return lab.Report{}, lab.ErrNoExperiment
	}
	if c.status != lab.StatusCompleted {
		return lab.Report{}, &lab.TransitionError{Op: "report", From: c.status}
	}
	r, err := c.sim.Report()
	if err != nil {
		c.log.Warn("report has no data", "experiment", c.sim.Kind(), "run_id", c.runID, "error", err)
		return r, err
	}
	c.log.Info("report", "experiment", c.sim.Kind(), "run_id", c.runID,
		"measured", r.Measured, "theoretical", r.Theoretical, "percent_error", r.PercentError, "accuracy", r.Accuracy)
	return r, nil
}

// AssistantState returns the status and readings of the selected experiment.
func (c *Controller) AssistantState() AssistantState {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sim == nil {
		return AssistantState{Status: c.status, Measurements: map[string]float64{}}
	}
	return AssistantState{
		Experiment:   c.sim.Kind(),
		Status:       c.status,
		Measurements: c.sim.Measurements(),
	}
}

// Hint returns a contextual tip for the current session.
func (c *Controller) Hint() string {
	return c.AssistantState().Hint()
}

// Subscribe registers fn for every event and returns a function that removes it.
// Events are delivered synchronously, in subscription order.
func (c *Controller) Subscribe(fn func(lab.Event)) (unsubscribe func()) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	c.nextSub++
	id := c.nextSub
	c.subs = append(c.subs, subscriber{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() {
			c.subMu.Lock()
			defer c.subMu.Unlock()
			for i, s := range c.subs {
				if s.id == id {
					c.subs = append(c.subs[:i:i], c.subs[i+1:]...)
					return
				}
			}
		})
	}
}

func (c *Controller) emit(events ...lab.Event) {
	c.subMu.Lock()
	subs := make([]subscriber, len(c.subs))
	copy(subs, c.subs)
	c.subMu.Unlock()

	for _, ev := range events {
		for _, s := range subs {
			s.fn(ev)
		}
	}
}

// Close stops the clock. The controller must not be used afterwards.
func (c *Controller) Close() {
	c.mu.Lock()
	c.epoch++
	wait := c.dispatching == 0
	c.mu.Unlock()
	if wait {
		c.clk.Stop()
	}
}
