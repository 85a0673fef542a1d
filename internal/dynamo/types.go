package dynamo

import (
	"fmt"
	"math"
)

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s State) Norm() float64 {
	sum := 0.0
	for _, v := range s {
		sum += v * v
	}
	return math.Sqrt(sum)
}

func (s State) Add(other State) State {
	result := make(State, len(s))
	for i := range s {
		if i < len(other) {
			result[i] = s[i] + other[i]
		} else {
			result[i] = s[i]
		}
	}
	return result
}

func (s State) Scale(factor float64) State {
	result := make(State, len(s))
	for i := range s {
		result[i] = s[i] * factor
	}
	return result
}

func (s State) Sub(other State) State {
	result := make(State, len(s))
	for i := range s {
		if i < len(other) {
			result[i] = s[i] - other[i]
		} else {
			result[i] = s[i]
		}
	}
	return result
}

// System is the right-hand side f(t, y) of dy/dt = f(t, y).
type System interface {
	Derive(t float64, y State) (State, error)
	Dim() int
}

// Configurable is implemented by systems with named scalar parameters.
type Configurable interface {
	GetParams() map[string]float64
	SetParam(name string, value float64) error
}

// Defaulter is implemented by systems that carry a sensible initial state.
type Defaulter interface {
	DefaultState() State
}

type Hamiltonian interface {
	Energy(y State) float64
}

// Analytic is implemented by systems with a closed-form solution.
type Analytic interface {
	Solution(t0 float64, y0 State, t float64) State
}

// Record is one line of the trajectory. Step 0 is the initial condition.
type Record struct {
	Step        int     `json:"step"`
	Time        float64 `json:"time"`
	StepSize    float64 `json:"step_size"`
	Error       float64 `json:"error"`
	Evaluations int64   `json:"evaluations"`
	State       State   `json:"state"`
}

type Observer interface {
	OnStep(rec Record) error
}

// ObserverFunc adapts a plain function to Observer.
type ObserverFunc func(rec Record) error

func (f ObserverFunc) OnStep(rec Record) error { return f(rec) }

type Granularity string

const (
	// GranularityVector charges one unit per derivative call.
	GranularityVector Granularity = "vector"
	// GranularityEquation charges one unit per equation per derivative call.
	GranularityEquation Granularity = "equation"
)

func ParseGranularity(s string) (Granularity, error) {
	switch Granularity(s) {
	case "", GranularityVector:
		return GranularityVector, nil
	case GranularityEquation:
		return GranularityEquation, nil
	}
	return "", fmt.Errorf("unknown granularity %q (want %q or %q)", s, GranularityVector, GranularityEquation)
}

type Config struct {
	Start         float64
	End           float64
	Step          float64
	MaxCalls      int64
	Tolerance     float64
	MinStep       float64
	Granularity   Granularity
	ValidateState bool
}

func DefaultConfig() Config {
	return Config{
		Start:         0,
		End:           1,
		Step:          0.1,
		MaxCalls:      10000,
		Tolerance:     1e-6,
		Granularity:   GranularityVector,
		ValidateState: true,
	}
}

type Status int

const (
	StatusCompleted Status = iota
	StatusBudgetExhausted
	// StatusFailed marks a partial result returned next to an error.
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusCompleted:
		return "completed"
	case StatusBudgetExhausted:
		return "budget_exhausted"
	case StatusFailed:
		return "failed"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(b []byte) error {
	switch string(b) {
	case "completed":
		*s = StatusCompleted
	case "budget_exhausted":
		*s = StatusBudgetExhausted
	case "failed":
		*s = StatusFailed
	default:
		return fmt.Errorf("unknown status %q", b)
	}
	return nil
}

// Stats mirrors the counters an adaptive integrator reports after a run.
type Stats struct {
	Accepted    int     `json:"accepted"`
	Rejected    int     `json:"rejected"`
	Evaluations int64   `json:"evaluations"`
	MinStep     float64 `json:"min_step"`
	MaxStep     float64 `json:"max_step"`
	NextStep    float64 `json:"next_step"`
}

type Result struct {
	Final  Record
	Status Status
	Stats  Stats
}
