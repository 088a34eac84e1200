package config

import "sort"

// Presets holds named parameter sets per experiment id.
var Presets = map[string]map[string]*Config{
	"titration": {
		"half_burette":  {Experiment: "titration", Params: map[string]float64{"initial_volume": 25}},
		"large_burette": {Experiment: "titration", Params: map[string]float64{"initial_volume": 100}},
	},
	"permanganometry": {
		"half_burette": {Experiment: "permanganometry", Params: map[string]float64{"initial_volume": 25}},
	},
	"pendulum": {
		"short": {Experiment: "pendulum", Params: map[string]float64{"length": 0.5}},
		"long":  {Experiment: "pendulum", Params: map[string]float64{"length": 2.0}},
		"moon":  {Experiment: "pendulum", Params: map[string]float64{"gravity": 1.62}},
		"wide":  {Experiment: "pendulum", Params: map[string]float64{"angle": 45}},
	},
	"springoscillation": {
		"soft":  {Experiment: "springoscillation", Params: map[string]float64{"spring_constant": 5, "mass": 1.0}},
		"stiff": {Experiment: "springoscillation", Params: map[string]float64{"spring_constant": 30, "mass": 0.2}},
	},
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(experiment, preset string) *Config {
	expPresets, ok := Presets[experiment]
	if !ok {
		return nil
	}
	cfg, ok := expPresets[preset]
	if !ok {
		return nil
	}
	return cfg.Clone()
}

func ListPresets(experiment string) []string {
	expPresets, ok := Presets[experiment]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(expPresets))
	for name := range expPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
