// Package clock drives experiment updates.
//
// A [Clock] calls a [TickFunc] at a fixed cadence with the seconds elapsed
// since Start. Elapsed time is always measured from the start instant, never
// reconstructed from a tick count, so scheduler jitter does not accumulate.
//
//   - [Ticker]: wall-clock driver backed by a goroutine and time.Ticker
//   - [Manual]: virtual time advanced by the caller (tests, fast-forward)
//
// Starting a clock that is already running stops the previous run first.
// After Stop returns, no further tick is delivered.
package clock

import "time"

// TickFunc receives elapsed seconds since Start. Returning false stops the
// clock; this is the only safe way to stop a clock from inside its own tick.
type TickFunc func(elapsed float64) bool

type Clock interface {
	Start(interval time.Duration, onTick TickFunc)
	Stop()
	Running() bool
}

// Cadences used by the lab.
const (
	// TitrationInterval is the burette drip cadence.
	TitrationInterval = 200 * time.Millisecond
	// FrameInterval matches a 60 Hz animation frame.
	FrameInterval = time.Second / 60
)
