package dynamo

import (
	"fmt"
	"sync/atomic"
)

// Budget counts derivative evaluations against a fixed limit. The counter
// only ever grows; a run that needs a fresh count needs a fresh Budget.
type Budget struct {
	used  atomic.Int64
	limit int64
}

func NewBudget(limit int64) *Budget {
	return &Budget{limit: limit}
}

func (b *Budget) Charge(units int64) int64 { return b.used.Add(units) }
func (b *Budget) Used() int64              { return b.used.Load() }
func (b *Budget) Limit() int64             { return b.limit }

// Exhausted reports whether no further attempt may start.
func (b *Budget) Exhausted() bool { return b.used.Load() >= b.limit }

// CountedSystem charges a Budget for every call to the wrapped System and
// rejects derivatives whose length does not match the system dimension.
type CountedSystem struct {
	sys    System
	budget *Budget
	units  int64
}

func Counted(sys System, budget *Budget, g Granularity) *CountedSystem {
	units := int64(1)
	if g == GranularityEquation {
		units = int64(sys.Dim())
	}
	return &CountedSystem{sys: sys, budget: budget, units: units}
}

func (c *CountedSystem) Dim() int        { return c.sys.Dim() }
func (c *CountedSystem) Budget() *Budget { return c.budget }

func (c *CountedSystem) Derive(t float64, y State) (State, error) {
	c.budget.Charge(c.units)
	dy, err := c.sys.Derive(t, y)
	if err != nil {
		return nil, err
	}
	if len(dy) != len(y) {
		return nil, fmt.Errorf("%w: derivative has %d components, state has %d", ErrDimensionMismatch, len(dy), len(y))
	}
	return dy, nil
}
