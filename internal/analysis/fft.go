package analysis

import (
	"errors"
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
)

// MinSamples is the shortest series DominantPeriod accepts.
const MinSamples = 16

var ErrTooShort = errors.New("analysis: series too short")
var ErrNoPeak = errors.New("analysis: no dominant frequency")

// PowerSpectrum returns the one-sided magnitude spectrum of data after
// removing its mean and applying a Hann window.
func PowerSpectrum(data []float64) []float64 {
	n := len(data)
	if n == 0 {
		return nil
	}

	mean := 0.0
	for _, v := range data {
		mean += v
	}
	mean /= float64(n)

	w := window.Hann(n)
	x := make([]float64, n)
	for i, v := range data {
		x[i] = (v - mean) * w[i]
	}

	spec := fft.FFTReal(x)
	ps := make([]float64, n/2+1)
	for i := range ps {
		ps[i] = cmplx.Abs(spec[i])
	}
	return ps
}

// DominantPeriod estimates the period of the strongest oscillation in
// samples taken every dt seconds. The peak bin is refined by fitting a
// parabola through the log magnitudes of its neighbours.
func DominantPeriod(samples []float64, dt float64) (float64, error) {
	n := len(samples)
	if n < MinSamples {
		return 0, ErrTooShort
	}
	if dt <= 0 {
		return 0, errors.New("analysis: sample interval must be positive")
	}

	ps := PowerSpectrum(samples)
	peak := 0
	for k := 1; k < len(ps); k++ {
		if ps[k] > ps[peak] {
			peak = k
		}
	}
	if peak == 0 || ps[peak] == 0 {
		return 0, ErrNoPeak
	}

	bin := float64(peak)
	if peak+1 < len(ps) && ps[peak-1] > 0 && ps[peak+1] > 0 {
		a, b, c := math.Log(ps[peak-1]), math.Log(ps[peak]), math.Log(ps[peak+1])
		if d := a - 2*b + c; d != 0 {
			bin += 0.5 * (a - c) / d
		}
	}

	freq := bin / (float64(n) * dt)
	return 1 / freq, nil
}
