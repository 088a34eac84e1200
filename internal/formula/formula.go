// Package formula holds the closed-form predictions the lab measures against.
//
// Every function is pure. Domain validation (positive masses, lengths and so
// on) is the caller's job; the functions return whatever the arithmetic gives.
package formula

import "math"

// Accuracy labels, best to worst.
const (
	Excellent        = "Excellent"
	VeryGood         = "Very good"
	Good             = "Good"
	NeedsImprovement = "Needs improvement"
)

// TitrationEndpointVolume applies c1·v1 = c2·v2 and returns the titrant
// volume in the unit of acidVolume.
func TitrationEndpointVolume(acidConcentration, acidVolume, baseConcentration float64) float64 {
	return (acidConcentration * acidVolume) / baseConcentration
}

// PendulumPeriod is T = 2π√(L/g) under the small-angle approximation.
func PendulumPeriod(length, gravity float64) float64 {
	return 2 * math.Pi * math.Sqrt(length/gravity)
}

// SpringPeriod is T = 2π√(m/k).
func SpringPeriod(mass, springConstant float64) float64 {
	return 2 * math.Pi * math.Sqrt(mass/springConstant)
}

func PercentError(measured, theoretical float64) float64 {
	return math.Abs(measured-theoretical) / theoretical * 100
}

// ClassifyAccuracy cascades from worst to best with strict comparisons, so
// 1, 2 and 5 exactly fall into the better band.
func ClassifyAccuracy(percentError float64) string {
	switch {
	case percentError > 5:
		return NeedsImprovement
	case percentError > 2:
		return Good
	case percentError > 1:
		return VeryGood
	default:
		return Excellent
	}
}

func ToRadians(degrees float64) float64 {
	return degrees * math.Pi / 180
}

func ToDegrees(radians float64) float64 {
	return radians * 180 / math.Pi
}

// Round rounds half away from zero to the given number of decimal places.
func Round(x float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(x*p) / p
}

// FerrousConcentration returns mol/L of Fe²⁺ titrated by volumeMl of
// permanganate at titrantMolarity, given ratio mol Fe²⁺ per mol MnO₄⁻ and
// the analyte volume in litres.
func FerrousConcentration(volumeMl, titrantMolarity, ratio, analyteLitres float64) float64 {
	titrantMoles := volumeMl * titrantMolarity / 1000
	return titrantMoles * ratio / analyteLitres
}
