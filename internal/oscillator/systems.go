package oscillator

import (
	"github.com/san-kum/vlab/internal/formula"
	"github.com/san-kum/vlab/internal/lab"
)

const (
	ParamLength  = "length"
	ParamAngle   = "angle"
	ParamGravity = "gravity"

	ParamSpringConstant = "spring_constant"
	ParamMass           = "mass"
	ParamDisplacement   = "displacement"
)

// MaxAngle bounds the release angle in degrees.
const MaxAngle = 90.0

type pendulum struct{}

// NewPendulum swings a simple pendulum released from rest at angle degrees.
// Displacement is reported in radians.
func NewPendulum() *Simulator { return newSimulator(pendulum{}) }

func (pendulum) kind() lab.Kind { return lab.KindPendulum }

func (pendulum) specs() []lab.ParamSpec {
	return []lab.ParamSpec{
		{Name: ParamLength, Unit: "m", Default: 1.0, Min: 0.1, Max: 2.0, Step: 0.1},
		{Name: ParamAngle, Unit: "deg", Default: 15, Min: 5, Max: 45, Step: 5},
		{Name: ParamGravity, Unit: "m/s²", Default: 9.8, Min: 1.0, Max: 25.0, Step: 0.1},
	}
}

func (pendulum) validate(name string, v float64) error {
	if name == ParamAngle {
		return lab.RequireRange(name, v, 0, MaxAngle)
	}
	return lab.RequirePositive(name, v)
}

func (pendulum) period(p map[string]float64) float64 {
	return formula.PendulumPeriod(p[ParamLength], p[ParamGravity])
}

func (pendulum) amplitude(p map[string]float64) float64 {
	return formula.ToRadians(p[ParamAngle])
}

func (pendulum) state(p map[string]float64) (float64, float64, float64) {
	return p[ParamAngle], p[ParamLength], p[ParamGravity]
}

type spring struct{}

// NewSpring oscillates a mass on a spring released at displacement metres.
func NewSpring() *Simulator { return newSimulator(spring{}) }

func (spring) kind() lab.Kind { return lab.KindSpring }

func (spring) specs() []lab.ParamSpec {
	return []lab.ParamSpec{
		{Name: ParamSpringConstant, Unit: "N/m", Default: 10, Min: 5, Max: 30, Step: 1},
		{Name: ParamMass, Unit: "kg", Default: 0.5, Min: 0.1, Max: 2.0, Step: 0.1},
		{Name: ParamDisplacement, Unit: "m", Default: 0.15, Min: 0.05, Max: 0.30, Step: 0.05},
	}
}

func (spring) validate(name string, v float64) error {
	return lab.RequirePositive(name, v)
}

func (spring) period(p map[string]float64) float64 {
	return formula.SpringPeriod(p[ParamMass], p[ParamSpringConstant])
}

func (spring) amplitude(p map[string]float64) float64 {
	return p[ParamDisplacement]
}

func (spring) state(p map[string]float64) (float64, float64, float64) {
	return p[ParamDisplacement], p[ParamMass], p[ParamSpringConstant]
}
