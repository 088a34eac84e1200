package titration

import (
	"github.com/san-kum/vlab/internal/formula"
	"github.com/san-kum/vlab/internal/lab"
)

// Band switches the flask colour once volumeAdded passes From. When Open is
// set, From itself still belongs to the previous band.
type Band struct {
	From  float64
	Open  bool
	Phase lab.ColorPhase
}

// Variant is the fixed chemistry of one titration. The simulator knows the
// expected endpoint; it is not derived from what the student observes.
type Variant struct {
	Kind      lab.Kind
	Name      string
	Titrant   string
	Analyte   string
	Indicator string

	InitialVolume float64 // mL
	Endpoint      float64 // mL

	// Bands are ascending; volumes below the first band show Base.
	Base  lab.ColorPhase
	Bands []Band

	// Stoichiometry for the analyte concentration extra. Zero ReactionRatio disables it.
	TitrantMolarity float64
	ReactionRatio   float64
	AnalyteLitres   float64
}

// AcidBase is NaOH into HCl with phenolphthalein. The endpoint follows from
// equal 0.1 M concentrations and a 25 mL aliquot.
func AcidBase() Variant {
	e := formula.TitrationEndpointVolume(0.1, 25, 0.1)
	return Variant{
		Kind:          lab.KindTitration,
		Name:          "Acid-Base Titration",
		Titrant:       "NaOH (0.1M)",
		Analyte:       "HCl (0.1M)",
		Indicator:     "Phenolphthalein",
		InitialVolume: 50,
		Endpoint:      e,
		Base:          lab.PhaseClear,
		Bands: []Band{
			{From: e - 0.5, Phase: lab.PhaseVeryLightPink},
			{From: e, Phase: lab.PhaseLightPink},
			{From: e + 2, Phase: lab.PhaseDarkPink},
		},
	}
}

// Redox is KMnO₄ into acidified Fe²⁺. Permanganate is its own indicator.
// The endpoint is fixed at 20 mL with 5 mol Fe²⁺ per mol MnO₄⁻.
func Redox() Variant {
	const e = 20.0
	return Variant{
		Kind:          lab.KindPermanganometry,
		Name:          "Permanganometry",
		Titrant:       "KMnO₄ (0.02M)",
		Analyte:       "Fe²⁺ (0.1M) in H₂SO₄",
		InitialVolume: 50,
		Endpoint:      e,
		Base:          lab.PhaseClear,
		Bands: []Band{
			{From: 0, Open: true, Phase: lab.PhaseVeryLightYellow},
			{From: e - 1, Phase: lab.PhaseFlashPink},
			{From: e, Phase: lab.PhaseLightPurple},
			{From: e + 1, Phase: lab.PhaseDarkPurple},
		},
		TitrantMolarity: 0.02,
		ReactionRatio:   5,
		AnalyteLitres:   0.1,
	}
}

// Phase maps the dispensed volume to a flask colour.
func (v Variant) Phase(added float64) lab.ColorPhase {
	phase := v.Base
	for _, b := range v.Bands {
		if added > b.From || (!b.Open && added == b.From) {
			phase = b.Phase
			continue
		}
		break
	}
	return phase
}

// Phases lists every colour the variant can show, in order.
func (v Variant) Phases() []lab.ColorPhase {
	out := []lab.ColorPhase{v.Base}
	for _, b := range v.Bands {
		out = append(out, b.Phase)
	}
	return out
}
