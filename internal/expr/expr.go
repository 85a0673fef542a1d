// Package expr evaluates user-supplied right-hand sides with an embedded Lua
// interpreter.
//
// A script must define a global function derive(t, y) returning a table of
// derivatives. The state table y is indexed from 1. Equation lists are
// wrapped into such a function, with the common math functions (exp, log,
// sin, cos, tan, sqrt, abs, pow, pi) available unqualified:
//
//	sys, err := expr.FromEquations([]string{"y[2]", "-y[1]"})
//
// A System owns its interpreter state and must not be shared between
// goroutines; build one per run.
package expr

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Shopify/go-lua"

	"github.com/san-kum/rkadapt/internal/dynamo"
)

const entry = "derive"

var (
	ErrNoEntry    = errors.New("expr: script does not define function derive(t, y)")
	ErrNoEquation = errors.New("expr: no equations given")
	ErrEvaluation = errors.New("expr: evaluation failed")
)

const prelude = `local exp, log, sin, cos, tan, sqrt, abs, pi = math.exp, math.log, math.sin, math.cos, math.tan, math.sqrt, math.abs, math.pi
local pow = function(a, b) return a ^ b end
`

type System struct {
	l      *lua.State
	dim    int
	source string
}

// FromScript loads a Lua chunk defining derive(t, y) for a system of dim
// equations.
func FromScript(src string, dim int) (*System, error) {
	if dim < 1 {
		return nil, fmt.Errorf("expr: dimension must be positive, got %d", dim)
	}

	l := lua.NewState()
	lua.OpenLibraries(l)

	if err := lua.DoString(l, src); err != nil {
		return nil, fmt.Errorf("expr: load script: %w", err)
	}

	l.Global(entry)
	isFn := l.IsFunction(-1)
	l.Pop(1)
	if !isFn {
		return nil, ErrNoEntry
	}

	return &System{l: l, dim: dim, source: src}, nil
}

// FromEquations builds a system from one expression per equation, in order.
func FromEquations(eqs []string) (*System, error) {
	if len(eqs) == 0 {
		return nil, ErrNoEquation
	}

	check := lua.NewState()
	var b strings.Builder
	b.WriteString(prelude)
	b.WriteString("function " + entry + "(t, y)\n\treturn {\n")
	for i, eq := range eqs {
		eq = strings.TrimSpace(eq)
		if eq == "" {
			return nil, fmt.Errorf("expr: equation %d is empty", i+1)
		}
		if err := lua.LoadString(check, "return "+eq); err != nil {
			return nil, fmt.Errorf("expr: equation %d %q: %w", i+1, eq, err)
		}
		check.Pop(1)
		fmt.Fprintf(&b, "\t\t(%s),\n", eq)
	}
	b.WriteString("\t}\nend\n")

	return FromScript(b.String(), len(eqs))
}

func (s *System) Dim() int       { return s.dim }
func (s *System) Source() string { return s.source }

func (s *System) Derive(t float64, y dynamo.State) (dynamo.State, error) {
	l := s.l
	top := l.Top()
	defer l.SetTop(top)

	l.Global(entry)
	l.PushNumber(t)
	l.CreateTable(len(y), 0)
	for i, v := range y {
		l.PushNumber(v)
		l.RawSetInt(-2, i+1)
	}

	if err := l.ProtectedCall(2, 1, 0); err != nil {
		return nil, fmt.Errorf("%w at t=%g: %v", ErrEvaluation, t, err)
	}
	if !l.IsTable(-1) {
		return nil, fmt.Errorf("%w at t=%g: derive returned %s, want table", ErrEvaluation, t, lua.TypeNameOf(l, -1))
	}

	n := l.RawLength(-1)
	if n != len(y) {
		return nil, fmt.Errorf("%w: derive returned %d values, state has %d", dynamo.ErrDimensionMismatch, n, len(y))
	}

	dy := make(dynamo.State, n)
	for i := 0; i < n; i++ {
		l.RawGetInt(-1, i+1)
		v, ok := l.ToNumber(-1)
		l.Pop(1)
		if !ok {
			return nil, fmt.Errorf("%w at t=%g: component %d is not a number", ErrEvaluation, t, i+1)
		}
		dy[i] = v
	}
	return dy, nil
}
