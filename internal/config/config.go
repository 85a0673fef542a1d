package config

import (
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/rkadapt/internal/dynamo"
	"github.com/san-kum/rkadapt/internal/experiment"
)

const (
	DefaultStart     = 0.0
	DefaultEnd       = 1.0
	DefaultStep      = 0.1
	DefaultMaxCalls  = 10000
	DefaultTolerance = 1e-6
)

// Problem is everything needed for one integration run.
type Problem struct {
	Name         string                `yaml:"name"`
	Start        float64               `yaml:"start"`
	End          float64               `yaml:"end"`
	Step         float64               `yaml:"step"`
	MaxCalls     int64                 `yaml:"max_calls"`
	Tolerance    float64               `yaml:"tolerance"`
	MinStep      float64               `yaml:"min_step,omitempty"`
	Granularity  string                `yaml:"granularity,omitempty"`
	InitialState []float64             `yaml:"initial_state"`
	System       experiment.SystemSpec `yaml:"system"`
}

func DefaultProblem() *Problem {
	return &Problem{
		Name:        "decay",
		Start:       DefaultStart,
		End:         DefaultEnd,
		Step:        DefaultStep,
		MaxCalls:    DefaultMaxCalls,
		Tolerance:   DefaultTolerance,
		Granularity: string(dynamo.GranularityVector),
		System:      experiment.SystemSpec{Model: "decay"},
	}
}

func Load(path string) (*Problem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func Parse(data []byte) (*Problem, error) {
	p := DefaultProblem()
	p.System = experiment.SystemSpec{}
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("parse problem: %w", err)
	}
	return p, nil
}

func Save(path string, p *Problem) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks the problem before any derivative is evaluated. A
// non-positive or NaN tolerance would never reject a step or halve it until
// the budget runs out, so it is refused here. NaN fails every check below.
func (p *Problem) Validate() error {
	var errs []error
	if !(p.Start < p.End) || math.IsInf(p.Start, 0) || math.IsInf(p.End, 0) {
		errs = append(errs, fmt.Errorf("%w: start=%g end=%g", dynamo.ErrInvalidInterval, p.Start, p.End))
	}
	if !(p.Step > 0) || math.IsInf(p.Step, 1) {
		errs = append(errs, fmt.Errorf("%w, got %g", dynamo.ErrInvalidStep, p.Step))
	}
	if p.MaxCalls < 0 {
		errs = append(errs, fmt.Errorf("max_calls must be non-negative, got %d", p.MaxCalls))
	}
	if !(p.Tolerance > 0) || math.IsInf(p.Tolerance, 1) {
		errs = append(errs, fmt.Errorf("%w, got %g", dynamo.ErrNonPositiveTolerance, p.Tolerance))
	}
	if !(p.MinStep >= 0) {
		errs = append(errs, fmt.Errorf("min_step must be non-negative, got %g", p.MinStep))
	}
	if _, err := dynamo.ParseGranularity(p.Granularity); err != nil {
		errs = append(errs, err)
	}
	if len(p.InitialState) == 0 {
		errs = append(errs, errors.New("initial_state must not be empty"))
	}
	if err := p.System.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// RunConfig converts the problem into the integrator's configuration.
func (p *Problem) RunConfig() dynamo.Config {
	g, _ := dynamo.ParseGranularity(p.Granularity)
	return dynamo.Config{
		Start:         p.Start,
		End:           p.End,
		Step:          p.Step,
		MaxCalls:      p.MaxCalls,
		Tolerance:     p.Tolerance,
		MinStep:       p.MinStep,
		Granularity:   g,
		ValidateState: true,
	}
}

func (p *Problem) InitState() dynamo.State {
	return dynamo.State(p.InitialState).Clone()
}

func (p *Problem) Clone() *Problem {
	c := *p
	c.InitialState = append([]float64(nil), p.InitialState...)
	c.System.Equations = append([]string(nil), p.System.Equations...)
	if p.System.Params != nil {
		c.System.Params = make(map[string]float64, len(p.System.Params))
		for k, v := range p.System.Params {
			c.System.Params[k] = v
		}
	}
	return &c
}
