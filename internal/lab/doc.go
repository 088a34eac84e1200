// Package lab provides the shared vocabulary of the virtual lab engine.
//
// The package defines the types every experiment speaks:
//
//   - [Status]: setup, running or completed
//   - [Kind]: which experiment is loaded
//   - [Simulator]: per-experiment state machine advanced by a clock
//   - [Snapshot]: read-only view published after every tick
//   - [Event]: endpoint reached, cycle completed, status changes
//   - [Report]: measured vs theoretical value with an accuracy label
//
// # Example
//
//	sim := titration.New(titration.AcidBase())
//	sim.Begin()
//	for !done {
//	    _, done = sim.Tick(elapsed)
//	}
//	report, err := sim.Report()
//
// # Thread Safety
//
// Simulator instances are NOT thread-safe. The experiment controller
// serializes every tick and every mutation of the simulator it owns.
package lab
