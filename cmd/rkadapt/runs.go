package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/san-kum/rkadapt/internal/analysis"
	"github.com/san-kum/rkadapt/internal/dynamo"
	"github.com/san-kum/rkadapt/internal/experiment"
	"github.com/san-kum/rkadapt/internal/integrators"
	"github.com/san-kum/rkadapt/internal/storage"
	"github.com/san-kum/rkadapt/internal/trajectory"
	"github.com/san-kum/rkadapt/internal/viz"
)

func loadRun(runID string) (*storage.RunMetadata, []dynamo.Record, error) {
	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load run %s: %w", runID, err)
	}
	records, err := st.LoadRecords(runID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load trajectory %s: %w", runID, err)
	}
	return meta, records, nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no stored runs in", dataDir)
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSYSTEM\tSTATUS\tINTERVAL\tTOL\tACCEPTED\tEVALS\tTIMESTAMP")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t[%g, %g]\t%g\t%d\t%d/%d\t%s\n",
			r.ID, r.System.Label(), r.Status, r.Start, r.End, r.Tolerance,
			r.Stats.Accepted, r.Stats.Evaluations, r.MaxCalls,
			r.Timestamp.Format(time.DateTime))
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	meta, records, err := loadRun(args[0])
	if err != nil {
		return err
	}

	opts := viz.DefaultPlotOptions()
	fmt.Println(viz.Title.Render(meta.ID))
	fmt.Println()
	fmt.Print(viz.PlotStates(records, opts))
	opts.Log = logScale
	fmt.Println(viz.PlotStepSize(records, opts))
	return nil
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	meta, records, err := loadRun(args[0])
	if err != nil {
		return err
	}

	sum := analysis.Summarize(records)
	fmt.Printf("run %s (%s, %s)\n\n", meta.ID, meta.System.Label(), meta.Status)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "accepted steps\t%d\n", sum.Accepted)
	fmt.Fprintf(w, "rejected attempts\t%d\n", meta.Stats.Rejected)
	fmt.Fprintf(w, "step doublings\t%d\n", sum.Doublings)
	fmt.Fprintf(w, "step shrinks\t%d\n", sum.Shrinks)
	fmt.Fprintf(w, "step min/mean/max\t%.3e / %.3e / %.3e\n", sum.MinStep, sum.MeanStep, sum.MaxStep)
	fmt.Fprintf(w, "max error estimate\t%.3e (tol %g)\n", sum.MaxError, meta.Tolerance)
	fmt.Fprintf(w, "final time\t%.6g of %.6g\n", sum.FinalTime, meta.End)
	fmt.Fprintf(w, "evaluations\t%d of %d\n", sum.Evaluations, meta.MaxCalls)
	fmt.Fprintf(w, "evaluations per step\t%.2f\n", sum.EvalsPerStep)

	perAttempt := integrators.NewStepDoubling().Evaluations()
	if dynamo.Granularity(meta.Granularity) == dynamo.GranularityEquation {
		perAttempt *= len(meta.InitialState)
	}
	fmt.Fprintf(w, "rejection overhead\t%.1f%%\n", 100*analysis.RejectionOverhead(sum, perAttempt))

	// rebuild the system to compare against what it knows about itself
	sys, err := experiment.NewRegistry().Build(meta.System, len(meta.InitialState))
	if err != nil {
		logger.Warn("cannot rebuild system", "run", meta.ID, "error", err)
	} else {
		if a, ok := sys.(dynamo.Analytic); ok {
			fmt.Fprintf(w, "global error\t%.3e\n", analysis.GlobalError(records, a))
		}
		if h, ok := sys.(dynamo.Hamiltonian); ok {
			fmt.Fprintf(w, "energy drift\t%.3e\n", analysis.EnergyDrift(records, h))
		}
	}
	return w.Flush()
}

func replayRun(cmd *cobra.Command, args []string) error {
	meta, records, err := loadRun(args[0])
	if err != nil {
		return err
	}

	m := viz.NewReplay(meta.ID, records, time.Duration(interval)*time.Millisecond)
	_, err = tea.NewProgram(m).Run()
	return err
}

func exportJSON(cmd *cobra.Command, args []string) error {
	meta, records, err := loadRun(args[0])
	if err != nil {
		return err
	}
	return storage.ExportJSON(os.Stdout, *meta, records)
}

func exportCSV(cmd *cobra.Command, args []string) error {
	_, records, err := loadRun(args[0])
	if err != nil {
		return err
	}
	w := trajectory.NewCSV(os.Stdout)
	for _, rec := range records {
		if err := w.OnStep(rec); err != nil {
			return err
		}
	}
	return w.Flush()
}
