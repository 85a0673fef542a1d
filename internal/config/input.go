package config

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/san-kum/rkadapt/internal/experiment"
)

// ReadInput reads a problem in the line format of the interactive program:
//
//	start
//	end
//	initial step
//	max derivative calls
//	tolerance
//	number of equations n
//	n lines, one Lua expression per equation over t and y[1..n]
//	one line with n initial values separated by spaces
//
// Blank lines are skipped.
func ReadInput(r io.Reader) (*Problem, error) {
	sc := bufio.NewScanner(r)
	line := 0
	next := func(what string) (string, error) {
		for sc.Scan() {
			line++
			s := strings.TrimSpace(sc.Text())
			if s != "" {
				return s, nil
			}
		}
		if err := sc.Err(); err != nil {
			return "", err
		}
		return "", fmt.Errorf("input: unexpected end of input, want %s", what)
	}
	float := func(what string) (float64, error) {
		s, err := next(what)
		if err != nil {
			return 0, err
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("input line %d: %s: %w", line, what, err)
		}
		return v, nil
	}
	integer := func(what string) (int64, error) {
		s, err := next(what)
		if err != nil {
			return 0, err
		}
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("input line %d: %s: %w", line, what, err)
		}
		return v, nil
	}

	p := DefaultProblem()
	p.Name = "stdin"

	var err error
	if p.Start, err = float("start"); err != nil {
		return nil, err
	}
	if p.End, err = float("end"); err != nil {
		return nil, err
	}
	if p.Step, err = float("initial step"); err != nil {
		return nil, err
	}
	if p.MaxCalls, err = integer("max calls"); err != nil {
		return nil, err
	}
	if p.Tolerance, err = float("tolerance"); err != nil {
		return nil, err
	}
	n, err := integer("number of equations")
	if err != nil {
		return nil, err
	}
	if n < 1 {
		return nil, fmt.Errorf("input line %d: number of equations must be positive, got %d", line, n)
	}

	eqs := make([]string, 0, n)
	for i := int64(0); i < n; i++ {
		eq, err := next(fmt.Sprintf("equation %d", i+1))
		if err != nil {
			return nil, err
		}
		eqs = append(eqs, eq)
	}
	p.System = experiment.SystemSpec{Equations: eqs}

	s, err := next("initial conditions")
	if err != nil {
		return nil, err
	}
	fields := strings.Fields(s)
	if int64(len(fields)) != n {
		return nil, fmt.Errorf("input line %d: got %d initial values, want %d", line, len(fields), n)
	}
	p.InitialState = make([]float64, n)
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("input line %d: initial value %d: %w", line, i+1, err)
		}
		p.InitialState[i] = v
	}

	return p, nil
}
