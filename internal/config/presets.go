package config

import (
	"sort"

	"github.com/san-kum/rkadapt/internal/experiment"
)

var Presets = map[string]*Problem{
	"decay": {
		Name: "decay", Start: 0, End: 1, Step: 0.1, MaxCalls: 10000, Tolerance: 1e-6,
		InitialState: []float64{1},
		System:       experiment.SystemSpec{Model: "decay"},
	},
	"decay-budget": {
		Name: "decay-budget", Start: 0, End: 1, Step: 0.1, MaxCalls: 4, Tolerance: 1e-6,
		InitialState: []float64{1},
		System:       experiment.SystemSpec{Model: "decay"},
	},
	"constant": {
		Name: "constant", Start: 0, End: 10, Step: 0.01, MaxCalls: 10000, Tolerance: 1e-6,
		InitialState: []float64{3},
		System:       experiment.SystemSpec{Model: "constant"},
	},
	"harmonic": {
		Name: "harmonic", Start: 0, End: 6.283185307179586, Step: 0.1, MaxCalls: 20000, Tolerance: 1e-8,
		InitialState: []float64{1, 0},
		System:       experiment.SystemSpec{Model: "harmonic"},
	},
	"vanderpol": {
		Name: "vanderpol", Start: 0, End: 20, Step: 0.1, MaxCalls: 100000, Tolerance: 1e-6,
		InitialState: []float64{2, 0},
		System:       experiment.SystemSpec{Model: "vanderpol"},
	},
	"vanderpol-stiff": {
		Name: "vanderpol-stiff", Start: 0, End: 20, Step: 0.1, MaxCalls: 50000, Tolerance: 1e-6, MinStep: 1e-9,
		InitialState: []float64{2, 0},
		System:       experiment.SystemSpec{Model: "vanderpol", Params: map[string]float64{"mu": 50}},
	},
	"lorenz": {
		Name: "lorenz", Start: 0, End: 10, Step: 0.01, MaxCalls: 200000, Tolerance: 1e-6,
		InitialState: []float64{1, 1, 1},
		System:       experiment.SystemSpec{Model: "lorenz"},
	},
	"logistic": {
		Name: "logistic", Start: 0, End: 10, Step: 0.5, MaxCalls: 10000, Tolerance: 1e-7,
		InitialState: []float64{0.1},
		System:       experiment.SystemSpec{Equations: []string{"y[1] * (1 - y[1])"}},
	},
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(name string) *Problem {
	p, ok := Presets[name]
	if !ok {
		return nil
	}
	c := p.Clone()
	if c.Granularity == "" {
		c.Granularity = "vector"
	}
	return c
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
