package experiment

import (
	"errors"
	"fmt"
	"sort"

	"github.com/san-kum/rkadapt/internal/dynamo"
	"github.com/san-kum/rkadapt/internal/expr"
	"github.com/san-kum/rkadapt/internal/physics"
)

var ErrNoSystem = errors.New("experiment: no system source (model, equations or script)")

// SystemSpec names where a right-hand side comes from. Exactly one of Model,
// Equations or Script is set.
type SystemSpec struct {
	Model     string             `yaml:"model,omitempty" json:"model,omitempty"`
	Params    map[string]float64 `yaml:"params,omitempty" json:"params,omitempty"`
	Equations []string           `yaml:"equations,omitempty" json:"equations,omitempty"`
	Script    string             `yaml:"script,omitempty" json:"script,omitempty"`
}

func (s SystemSpec) Validate() error {
	n := 0
	if s.Model != "" {
		n++
	}
	if len(s.Equations) > 0 {
		n++
	}
	if s.Script != "" {
		n++
	}
	switch {
	case n == 0:
		return ErrNoSystem
	case n > 1:
		return fmt.Errorf("experiment: set only one of model, equations or script")
	}
	return nil
}

// Label is a short human-readable name for the source.
func (s SystemSpec) Label() string {
	switch {
	case s.Model != "":
		return s.Model
	case len(s.Equations) > 0:
		return "equations"
	case s.Script != "":
		return "script"
	}
	return "unknown"
}

type Registry struct {
	models map[string]func(dim int) dynamo.System
}

func NewRegistry() *Registry {
	r := &Registry{
		models: make(map[string]func(int) dynamo.System),
	}

	r.models["decay"] = func(dim int) dynamo.System {
		if dim < 1 {
			dim = 1
		}
		return physics.NewDecayN(dim)
	}
	r.models["constant"] = func(dim int) dynamo.System { return physics.NewConstant(dim) }
	r.models["harmonic"] = func(int) dynamo.System { return physics.NewHarmonic() }
	r.models["vanderpol"] = func(int) dynamo.System { return physics.NewVanDerPol() }
	r.models["lorenz"] = func(int) dynamo.System { return physics.NewLorenz() }
	r.models["rossler"] = func(int) dynamo.System { return physics.NewRossler() }
	r.models["duffing"] = func(int) dynamo.System { return physics.NewDuffing() }
	r.models["pendulum"] = func(int) dynamo.System { return physics.NewPendulum() }

	return r
}

// GetModel returns a built-in system. dim only matters for models whose size
// follows the initial state (decay, constant).
func (r *Registry) GetModel(name string, dim int) (dynamo.System, error) {
	fn, ok := r.models[name]
	if !ok {
		return nil, fmt.Errorf("unknown model: %s", name)
	}
	return fn(dim), nil
}

func (r *Registry) ListModels() []string {
	names := make([]string, 0, len(r.models))
	for name := range r.models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Build turns a SystemSpec into a System for an initial state of dimension dim.
func (r *Registry) Build(spec SystemSpec, dim int) (dynamo.System, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	var (
		sys dynamo.System
		err error
	)
	switch {
	case spec.Model != "":
		sys, err = r.GetModel(spec.Model, dim)
	case len(spec.Equations) > 0:
		sys, err = expr.FromEquations(spec.Equations)
	default:
		sys, err = expr.FromScript(spec.Script, dim)
	}
	if err != nil {
		return nil, err
	}

	if len(spec.Params) > 0 {
		cfg, ok := sys.(dynamo.Configurable)
		if !ok {
			return nil, fmt.Errorf("model %s has no parameters", spec.Label())
		}
		keys := make([]string, 0, len(spec.Params))
		for k := range spec.Params {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if err := cfg.SetParam(k, spec.Params[k]); err != nil {
				return nil, fmt.Errorf("model %s: %w", spec.Label(), err)
			}
		}
	}

	if sys.Dim() != dim {
		return nil, fmt.Errorf("%w: %s has %d equations, initial state has %d", dynamo.ErrDimensionMismatch, spec.Label(), sys.Dim(), dim)
	}
	return sys, nil
}

// DefaultState returns the model's preferred starting point, if it has one.
func (r *Registry) DefaultState(name string) (dynamo.State, bool) {
	fn, ok := r.models[name]
	if !ok {
		return nil, false
	}
	if d, ok := fn(0).(dynamo.Defaulter); ok {
		return d.DefaultState(), true
	}
	return nil, false
}
