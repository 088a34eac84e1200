package lab

import (
	"errors"
	"fmt"
)

// Domain errors for lab operations.
var (
	// ErrInvalidTransition indicates an operation not permitted in the current status.
	ErrInvalidTransition = errors.New("lab: invalid state transition")

	// ErrInvalidParameter indicates a parameter outside its physical domain.
	ErrInvalidParameter = errors.New("lab: parameter out of valid bounds")

	// ErrUnknownParameter indicates a parameter name the experiment does not have.
	ErrUnknownParameter = errors.New("lab: unknown parameter")

	// ErrDegenerateMeasurement indicates a report requested before any usable measurement.
	ErrDegenerateMeasurement = errors.New("lab: no measurement data")

	// ErrUnknownExperiment indicates an experiment kind with no registered simulator.
	ErrUnknownExperiment = errors.New("lab: unknown experiment")

	// ErrNoExperiment indicates an operation issued before any experiment was selected.
	ErrNoExperiment = errors.New("lab: no experiment selected")
)

// TransitionError wraps ErrInvalidTransition with the rejected operation.
type TransitionError struct {
	Op   string
	From Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: cannot %s while %s", ErrInvalidTransition, e.Op, e.From)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// ParameterError wraps a parameter failure with the offending name and value.
type ParameterError struct {
	Name    string
	Value   float64
	Reason  string
	Wrapped error
}

func (e *ParameterError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%s: %s=%g", e.Wrapped, e.Name, e.Value)
	}
	return fmt.Sprintf("%s: %s=%g (%s)", e.Wrapped, e.Name, e.Value, e.Reason)
}

func (e *ParameterError) Unwrap() error {
	return e.Wrapped
}
