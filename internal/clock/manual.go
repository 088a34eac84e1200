package clock

import (
	"sync"
	"time"
)

// Manual is a clock whose time only moves when the caller advances it.
// Ticks are delivered synchronously on the caller's goroutine.
type Manual struct {
	mu       sync.Mutex
	interval time.Duration
	elapsed  time.Duration
	onTick   TickFunc
	gen      int
}

func NewManual() *Manual {
	return &Manual{}
}

func (m *Manual) Start(interval time.Duration, onTick TickFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gen++
	m.interval = interval
	m.elapsed = 0
	m.onTick = onTick
}

func (m *Manual) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gen++
	m.onTick = nil
}

func (m *Manual) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.onTick != nil
}

// Interval reports the cadence of the current run.
func (m *Manual) Interval() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.interval
}

// Elapsed reports virtual time since Start.
func (m *Manual) Elapsed() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.elapsed
}

// Step delivers exactly one tick and reports whether the clock is still running.
func (m *Manual) Step() bool {
	m.mu.Lock()
	if m.onTick == nil || m.interval <= 0 {
		m.mu.Unlock()
		return false
	}
	m.elapsed += m.interval
	fn, gen, elapsed := m.onTick, m.gen, m.elapsed
	m.mu.Unlock()

	// Called without the lock so the TickFunc may Stop or restart the clock.
	keep := fn(elapsed.Seconds())

	m.mu.Lock()
	defer m.mu.Unlock()
	if !keep && m.gen == gen {
		m.gen++
		m.onTick = nil
	}
	return m.onTick != nil
}

// Advance delivers one tick per whole interval in d and returns the number delivered.
func (m *Manual) Advance(d time.Duration) int {
	n := 0
	interval := m.Interval()
	if interval <= 0 {
		return 0
	}
	for d >= interval && m.Running() {
		m.Step()
		d -= interval
		n++
	}
	return n
}

// RunUntilStopped steps until the clock stops or maxTicks ticks were delivered.
func (m *Manual) RunUntilStopped(maxTicks int) int {
	n := 0
	for n < maxTicks && m.Running() {
		m.Step()
		n++
	}
	return n
}
