package lab

import "github.com/san-kum/vlab/internal/formula"

// NoDataLabel is the accuracy label of a report with nothing to measure.
const NoDataLabel = "No data"

// Report compares a measurement with its closed-form prediction.
type Report struct {
	Measured     float64            `json:"measured"`
	Theoretical  float64            `json:"theoretical"`
	PercentError float64            `json:"percent_error"`
	Accuracy     string             `json:"accuracy"`
	Unit         string             `json:"unit"`
	NoData       bool               `json:"no_data,omitempty"`
	Extras       map[string]float64 `json:"extras,omitempty"`
}

// NewReport builds a report. The percent error is kept at the two decimals
// a student sees, and the accuracy label is classified from that value.
func NewReport(measured, theoretical float64, unit string) Report {
	pe := formula.Round(formula.PercentError(measured, theoretical), 2)
	return Report{
		Measured:     measured,
		Theoretical:  theoretical,
		PercentError: pe,
		Accuracy:     formula.ClassifyAccuracy(pe),
		Unit:         unit,
	}
}

// NoDataReport is returned alongside ErrDegenerateMeasurement.
func NoDataReport(theoretical float64, unit string) Report {
	return Report{
		Theoretical: theoretical,
		Accuracy:    NoDataLabel,
		Unit:        unit,
		NoData:      true,
	}
}
