package experiment

import "github.com/san-kum/vlab/internal/lab"

// AssistantState is the read-only view handed to the chat assistant.
type AssistantState struct {
	Experiment   lab.Kind           `json:"experiment,omitempty"`
	Status       lab.Status         `json:"status"`
	Measurements map[string]float64 `json:"measurements"`
}

const genericHint = "Tip: Careful observation is key to successful experiments. Take your time and pay attention to details."

var hints = map[lab.Kind]map[lab.Status]string{
	lab.KindTitration: {
		lab.StatusSetup:     "Tip: In real titrations, you'd first rinse the burette with the solution it will contain, then fill it to the 0 mL mark. Here, you can just click Start when ready.",
		lab.StatusRunning:   "Tip: Watch the flask carefully for the first sign of color change. In a real lab, you might add the titrant drop by drop near the expected endpoint.",
		lab.StatusCompleted: "Tip: In a real titration, you'd repeat the experiment 2-3 times and take the average for more accurate results.",
	},
	lab.KindPendulum: {
		lab.StatusSetup:     "Tip: Try adjusting the pendulum length and observe how it affects the theoretical period calculation before starting.",
		lab.StatusRunning:   "Tip: Count the number of complete oscillations and divide the total time by that number to get the period. The simulation is automatically doing this for you.",
		lab.StatusCompleted: "Tip: Compare your measured period with the theoretical period. The small difference is due to the simplifications in the pendulum model.",
	},
}

// Hint returns a short contextual tip for the experiment in the given status.
func Hint(kind lab.Kind, status lab.Status) string {
	if h, ok := hints[kind][status]; ok {
		return h
	}
	return genericHint
}

// Hint returns the tip for this state.
func (s AssistantState) Hint() string {
	return Hint(s.Experiment, s.Status)
}
