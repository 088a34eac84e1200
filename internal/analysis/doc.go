// Package analysis estimates oscillation properties from recorded traces.
//
// The cycle counter in the oscillator simulators measures the period from
// zero crossings. [DominantPeriod] gives an independent estimate from the
// spectrum of the whole displacement series:
//
//	T, err := analysis.DominantPeriod(trace.Series("displacement"), 1.0/60)
package analysis
