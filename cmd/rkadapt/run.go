package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/san-kum/rkadapt/internal/analysis"
	"github.com/san-kum/rkadapt/internal/config"
	"github.com/san-kum/rkadapt/internal/dynamo"
	"github.com/san-kum/rkadapt/internal/experiment"
	"github.com/san-kum/rkadapt/internal/sim"
	"github.com/san-kum/rkadapt/internal/storage"
	"github.com/san-kum/rkadapt/internal/trajectory"
	"github.com/san-kum/rkadapt/internal/viz"
)

// loadProblem picks the problem source (stdin, file, preset) and applies any
// flags the user set explicitly on top of it.
func loadProblem(cmd *cobra.Command, args []string) (*config.Problem, error) {
	var (
		p   *config.Problem
		err error
	)
	switch {
	case fromStdin:
		p, err = config.ReadInput(os.Stdin)
	case len(args) == 1:
		p, err = config.Load(args[0])
	case problemPreset != "":
		p = config.GetPreset(problemPreset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", problemPreset, config.ListPresets())
		}
	default:
		return nil, fmt.Errorf("no problem given: pass a problem file, --preset or --stdin")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load problem: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("start") {
		p.Start = start
	}
	if flags.Changed("end") {
		p.End = end
	}
	if flags.Changed("step") {
		p.Step = step
	}
	if flags.Changed("max-calls") {
		p.MaxCalls = maxCalls
	}
	if flags.Changed("tol") {
		p.Tolerance = tolerance
	}
	if flags.Changed("min-step") {
		p.MinStep = minStep
	}
	if flags.Changed("granularity") {
		p.Granularity = granularity
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func runProblem(cmd *cobra.Command, args []string) error {
	p, err := loadProblem(cmd, args)
	if err != nil {
		return err
	}

	registry := experiment.NewRegistry()
	dyn, err := registry.Build(p.System, len(p.InitialState))
	if err != nil {
		return err
	}

	s := sim.New(dyn, sim.WithLogger(logger))
	recorder := trajectory.NewRecorder()
	s.AddObserver(recorder)
	s.AddObserver(trajectory.NewLogObserver(logger))

	var flush func() error
	switch format {
	case "table":
		t := trajectory.NewTable(os.Stdout)
		s.AddObserver(t)
		flush = t.Flush
	case "csv":
		c := trajectory.NewCSV(os.Stdout)
		s.AddObserver(c)
		flush = c.Flush
	case "json", "none":
	default:
		return fmt.Errorf("unknown format: %s (want table, csv, json or none)", format)
	}

	startTime := time.Now()
	res, runErr := s.Run(context.Background(), p.InitState(), p.RunConfig())
	if flush != nil {
		if err := flush(); err != nil && runErr == nil {
			runErr = err
		}
	}
	if runErr != nil {
		return runErr
	}
	logger.Info("run complete", "name", p.Name, "elapsed", time.Since(startTime))

	meta := metadataFor(p, res)

	if format == "json" {
		if err := storage.ExportJSON(os.Stdout, meta, recorder.Records); err != nil {
			return err
		}
	}

	if save {
		st := storage.New(dataDir)
		if err := st.Init(); err != nil {
			return err
		}
		runID, err := st.Save(meta, recorder.Records)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "run id: %s\n", runID)
	}

	if showSummary {
		fmt.Fprintln(os.Stderr, viz.Summary(p.Name, res, p.Start, p.End, recorder.Records))
	}

	if showPlot {
		opts := viz.DefaultPlotOptions()
		fmt.Fprint(os.Stderr, viz.PlotStates(recorder.Records, opts))
		opts.Log = true
		fmt.Fprintln(os.Stderr, viz.PlotStepSize(recorder.Records, opts))
	}

	return nil
}

func metadataFor(p *config.Problem, res *dynamo.Result) storage.RunMetadata {
	return storage.RunMetadata{
		Name:         p.Name,
		System:       p.System,
		Start:        p.Start,
		End:          p.End,
		Step:         p.Step,
		MaxCalls:     p.MaxCalls,
		Tolerance:    p.Tolerance,
		MinStep:      p.MinStep,
		Granularity:  p.Granularity,
		InitialState: p.InitialState,
		Status:       res.Status,
		Stats:        res.Stats,
	}
}

func sweepProblem(cmd *cobra.Command, args []string) error {
	p, err := loadProblem(cmd, args)
	if err != nil {
		return err
	}
	if len(tolerances) == 0 {
		return fmt.Errorf("no tolerances given")
	}
	for _, tol := range tolerances {
		if !(tol > 0) {
			return fmt.Errorf("%w, got %g", dynamo.ErrNonPositiveTolerance, tol)
		}
	}

	registry := experiment.NewRegistry()
	dim := len(p.InitialState)
	factory := func() (dynamo.System, error) { return registry.Build(p.System, dim) }

	// one system up front for the optional exact-solution column
	probe, err := factory()
	if err != nil {
		return err
	}
	exact, hasExact := probe.(dynamo.Analytic)

	sweep := sim.NewSweep(factory, workers, logger)
	runs, err := sweep.Run(context.Background(), p.InitState(), p.RunConfig(), tolerances)
	if err != nil {
		return err
	}

	fmt.Printf("sweep %s on [%g, %g], h0=%g, max_calls=%d\n\n", p.Name, p.Start, p.End, p.Step, p.MaxCalls)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	header := "TOL\tSTATUS\tFINAL_T\tACCEPTED\tREJECTED\tEVALS\tMAX_EST"
	if hasExact {
		header += "\tGLOBAL_ERR"
	}
	fmt.Fprintln(w, header)

	series := make([][]float64, 0, len(runs))
	captions := make([]string, 0, len(runs))
	for _, r := range runs {
		sum := analysis.Summarize(r.Records)
		line := fmt.Sprintf("%.0e\t%s\t%.6g\t%d\t%d\t%d\t%.3e",
			r.Tolerance, r.Result.Status, r.Result.Final.Time,
			r.Result.Stats.Accepted, r.Result.Stats.Rejected, r.Result.Stats.Evaluations, sum.MaxError)
		if hasExact {
			line += fmt.Sprintf("\t%.3e", analysis.GlobalError(r.Records, exact))
		}
		fmt.Fprintln(w, line)

		hs := make([]float64, 0, len(r.Records))
		for _, rec := range r.Records[1:] {
			hs = append(hs, rec.StepSize)
		}
		if len(hs) > 1 {
			series = append(series, hs)
			captions = append(captions, fmt.Sprintf("%.0e", r.Tolerance))
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if len(series) > 0 {
		fmt.Println()
		fmt.Println(viz.PlotSweep(series, captions, viz.DefaultPlotOptions()))
		fmt.Println("step size per accepted step, tolerances: " + strings.Join(captions, ", "))
	}
	return nil
}

func listModels(cmd *cobra.Command, args []string) error {
	registry := experiment.NewRegistry()
	for _, name := range registry.ListModels() {
		sys, err := registry.GetModel(name, 1)
		if err != nil {
			return err
		}
		params := ""
		if c, ok := sys.(dynamo.Configurable); ok {
			b, _ := json.Marshal(c.GetParams())
			params = string(b)
		}
		fmt.Printf("  %-10s dim=%d %s\n", name, sys.Dim(), params)
	}
	return nil
}
