package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/san-kum/rkadapt/internal/config"
	"github.com/san-kum/rkadapt/internal/logging"
)

var (
	dataDir   string
	logLevel  string
	logFormat string
	workers   int

	// problem sources
	problemPreset string
	fromStdin     bool

	// problem overrides
	start       float64
	end         float64
	step        float64
	maxCalls    int64
	tolerance   float64
	minStep     float64
	granularity string

	// output
	format      string
	save        bool
	showSummary bool
	showPlot    bool
	logScale    bool

	tolerances []float64
	interval   int

	logger *slog.Logger
)

// main registers the commands and runs the root command, exiting with status
// 1 if it returns an error.
func main() {
	rootCmd := &cobra.Command{
		Use:           "rkadapt",
		Short:         "adaptive step-size RK4 integrator",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setup(cmd)
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", "", "data directory (default $RKADAPT_DATA_DIR or .rkadapt)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: text or json")

	runCmd := &cobra.Command{
		Use:   "run [problem.yaml]",
		Short: "integrate a problem and print its trajectory",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runProblem,
	}
	addProblemFlags(runCmd)
	runCmd.Flags().StringVar(&format, "format", "table", "trajectory output: table, csv, json or none")
	runCmd.Flags().BoolVar(&save, "save", false, "store the run in the data directory")
	runCmd.Flags().BoolVar(&showSummary, "summary", false, "print a summary panel to stderr")
	runCmd.Flags().BoolVar(&showPlot, "plot", false, "plot the trajectory after the run")

	sweepCmd := &cobra.Command{
		Use:   "sweep [problem.yaml]",
		Short: "run one problem for several tolerances in parallel",
		Args:  cobra.MaximumNArgs(1),
		RunE:  sweepProblem,
	}
	addProblemFlags(sweepCmd)
	sweepCmd.Flags().Float64SliceVar(&tolerances, "tols", []float64{1e-3, 1e-4, 1e-5, 1e-6, 1e-7, 1e-8}, "tolerances to compare")
	sweepCmd.Flags().IntVar(&workers, "workers", 0, "parallel runs (default $RKADAPT_WORKERS)")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a stored trajectory and its step sizes",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().BoolVar(&logScale, "log", true, "plot step size on a log10 scale")

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "step statistics and error against known solutions",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}

	replayCmd := &cobra.Command{
		Use:   "replay [run_id]",
		Short: "step through a stored trajectory interactively",
		Args:  cobra.ExactArgs(1),
		RunE:  replayRun,
	}
	replayCmd.Flags().IntVar(&interval, "interval", 100, "playback interval in milliseconds")

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export a stored run as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export a stored trajectory as CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list built-in problems",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range config.ListPresets() {
				p := config.GetPreset(name)
				fmt.Printf("  %-16s %s [%g, %g] tol=%g max_calls=%d\n", name, p.System.Label(), p.Start, p.End, p.Tolerance, p.MaxCalls)
			}
			return nil
		},
	}

	modelsCmd := &cobra.Command{
		Use:   "models",
		Short: "list built-in derivative systems",
		RunE:  listModels,
	}

	rootCmd.AddCommand(runCmd, sweepCmd, listCmd, plotCmd, analyzeCmd, replayCmd, exportJSONCmd, exportCSVCmd, presetsCmd, modelsCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func addProblemFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&problemPreset, "preset", "", "use a built-in problem")
	cmd.Flags().BoolVar(&fromStdin, "stdin", false, "read the problem from stdin in line format")
	cmd.Flags().Float64Var(&start, "start", 0, "start time")
	cmd.Flags().Float64Var(&end, "end", 1, "end time")
	cmd.Flags().Float64Var(&step, "step", 0.1, "initial step size")
	cmd.Flags().Int64Var(&maxCalls, "max-calls", 10000, "derivative evaluation budget")
	cmd.Flags().Float64Var(&tolerance, "tol", 1e-6, "local error tolerance")
	cmd.Flags().Float64Var(&minStep, "min-step", 0, "fail when the step falls below this (0 disables)")
	cmd.Flags().StringVar(&granularity, "granularity", "vector", "budget unit: vector (per call) or equation (per component)")
}

// setup resolves environment defaults and installs the process logger.
func setup(cmd *cobra.Command) error {
	env, err := config.LoadEnv()
	if err != nil {
		return err
	}
	if !cmd.Flags().Changed("data") {
		dataDir = env.DataDir
	}
	if !cmd.Flags().Changed("log-level") {
		logLevel = env.LogLevel
	}
	if !cmd.Flags().Changed("log-format") {
		logFormat = env.LogFormat
	}
	if workers <= 0 {
		workers = env.Workers
	}

	logger, err = logging.New(os.Stderr, logLevel, logFormat)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)
	return nil
}
