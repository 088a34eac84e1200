package lab

import (
	"math"
	"sort"
)

// RequirePositive rejects zero, negative, NaN and infinite values.
func RequirePositive(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return &ParameterError{Name: name, Value: v, Reason: "must be finite", Wrapped: ErrInvalidParameter}
	}
	if v <= 0 {
		return &ParameterError{Name: name, Value: v, Reason: "must be positive", Wrapped: ErrInvalidParameter}
	}
	return nil
}

// RequireRange rejects values outside (lo, hi].
func RequireRange(name string, v, lo, hi float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return &ParameterError{Name: name, Value: v, Reason: "must be finite", Wrapped: ErrInvalidParameter}
	}
	if v <= lo || v > hi {
		return &ParameterError{Name: name, Value: v, Reason: "out of range", Wrapped: ErrInvalidParameter}
	}
	return nil
}

func UnknownParameter(name string, v float64) error {
	return &ParameterError{Name: name, Value: v, Wrapped: ErrUnknownParameter}
}

// SpecDefaults returns the default value of every spec.
func SpecDefaults(specs []ParamSpec) map[string]float64 {
	out := make(map[string]float64, len(specs))
	for _, s := range specs {
		out[s.Name] = s.Default
	}
	return out
}

// ParamNames returns the sorted keys of params.
func ParamNames(params map[string]float64) []string {
	names := make([]string, 0, len(params))
	for k := range params {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
