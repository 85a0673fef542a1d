package sim

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/san-kum/rkadapt/internal/dynamo"
)

// Factory builds a fresh System for each run of a sweep. Systems backed by an
// interpreter are not safe to share between goroutines.
type Factory func() (dynamo.System, error)

// SweepRun is the outcome of one tolerance in a sweep.
type SweepRun struct {
	Tolerance float64
	Result    *dynamo.Result
	Records   []dynamo.Record
}

// Sweep repeats one problem for several tolerances. Each run is sequential
// and owns its budget; only the runs themselves execute in parallel.
type Sweep struct {
	factory Factory
	workers int
	logger  *slog.Logger
}

func NewSweep(factory Factory, workers int, logger *slog.Logger) *Sweep {
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweep{factory: factory, workers: workers, logger: logger}
}

func (sw *Sweep) Run(ctx context.Context, x0 dynamo.State, cfg dynamo.Config, tolerances []float64) ([]SweepRun, error) {
	runs := make([]SweepRun, len(tolerances))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(sw.workers)

	for i, tol := range tolerances {
		g.Go(func() error {
			dyn, err := sw.factory()
			if err != nil {
				return fmt.Errorf("build system: %w", err)
			}

			cfgCopy := cfg
			cfgCopy.Tolerance = tol

			records := make([]dynamo.Record, 0)
			s := New(dyn, WithLogger(sw.logger.With("tolerance", tol)))
			s.AddObserver(dynamo.ObserverFunc(func(rec dynamo.Record) error {
				records = append(records, rec)
				return nil
			}))

			res, err := s.Run(ctx, x0, cfgCopy)
			if err != nil {
				return fmt.Errorf("tolerance %g: %w", tol, err)
			}

			runs[i] = SweepRun{Tolerance: tol, Result: res, Records: records}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return runs, nil
}
