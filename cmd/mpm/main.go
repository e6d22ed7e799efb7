package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/mpm/internal/config"
	"github.com/san-kum/mpm/internal/experiment"
	"github.com/san-kum/mpm/internal/monitor"
	"github.com/san-kum/mpm/internal/mpm"
	"github.com/san-kum/mpm/internal/storage"
	"github.com/spf13/cobra"
)

var (
	dataDir string
	// Scenario sources
	configFile string
	preset     string
	initPreset string
	// Overrides
	dt       float64
	tf       float64
	flip     float64
	workers  int
	logLevel string
	watch    bool
	// Plotting
	column string
	trace  string
	output string
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "mpm",
		Short:         "explicit material point method simulations",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".mpm", "data directory")

	runCmd := &cobra.Command{
		Use:   "run [scenario file|preset]",
		Short: "run a scenario",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runScenario,
	}
	runCmd.Flags().StringVar(&configFile, "config", "", "scenario file (yaml, gcfg or ini)")
	runCmd.Flags().StringVar(&preset, "preset", "", "use a built-in scenario")
	runCmd.Flags().Float64Var(&dt, "dt", 0, "time step, overrides the scenario")
	runCmd.Flags().Float64Var(&tf, "tf", 0, "final time, overrides the scenario")
	runCmd.Flags().Float64Var(&flip, "flip", 1, "FLIP fraction, overrides the scenario")
	runCmd.Flags().IntVar(&workers, "workers", mpm.DefaultOptions().Workers, "particle loop goroutines")
	runCmd.Flags().StringVar(&logLevel, "log-level", "info", "debug, info, warn or error")
	runCmd.Flags().BoolVar(&watch, "watch", false, "show live progress")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list built-in scenarios, models and kernels",
		RunE:  listPresets,
	}

	initCmd := &cobra.Command{
		Use:   "init [file]",
		Short: "write a scenario file to start from",
		Args:  cobra.ExactArgs(1),
		RunE:  initScenario,
	}
	initCmd.Flags().StringVar(&initPreset, "preset", "bounce", "preset to write (yaml only)")

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a run's series",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVar(&column, "column", "kinetic_energy", "series.csv column")
	plotCmd.Flags().StringVar(&trace, "trace", "", "plot a named trace instead, e.g. displacement")

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export run metadata and series as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}
	exportCmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")

	inspectCmd := &cobra.Command{
		Use:   "inspect [run_id]",
		Short: "show a run summary",
		Args:  cobra.ExactArgs(1),
		RunE:  inspectRun,
	}

	rootCmd.AddCommand(runCmd, listCmd, presetsCmd, initCmd, plotCmd, exportCmd, inspectCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// loadScenario resolves the scenario from --preset, --config or the
// positional argument, which may name either.
func loadScenario(args []string) (*config.Scenario, error) {
	src := configFile
	if preset != "" {
		src = preset
	}
	if len(args) > 0 {
		src = args[0]
	}
	if src == "" {
		return nil, fmt.Errorf("no scenario given (presets: %s)", strings.Join(config.ListPresets(), ", "))
	}
	if s := config.GetPreset(src); s != nil && configFile == "" {
		return s, nil
	}
	s, err := config.Load(src)
	if err != nil {
		return nil, fmt.Errorf("failed to load scenario: %w", err)
	}
	return s, nil
}

func newLogger(level string, w io.Writer) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})), nil
}

func runScenario(cmd *cobra.Command, args []string) error {
	s, err := loadScenario(args)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("dt") {
		s.Dt = dt
	}
	if cmd.Flags().Changed("tf") {
		s.Tf = tf
	}
	if cmd.Flags().Changed("flip") {
		s.FLIP = flip
	}

	var logOut io.Writer = os.Stderr
	if watch {
		logOut = io.Discard
	}
	logger, err := newLogger(logLevel, logOut)
	if err != nil {
		return err
	}

	opts := mpm.DefaultOptions()
	opts.Workers = workers
	opts.Logger = logger

	e, err := experiment.Build(s, opts)
	if err != nil {
		return err
	}
	st := storage.New(dataDir)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if !watch {
		fmt.Printf("running %s (dt=%.4g, tf=%.4g)...\n", s.Name, e.Sim.Patch.Dt, s.Tf)
	}
	start := time.Now()

	var out *experiment.Outcome
	if watch {
		out, err = runWatched(ctx, cancel, e, st)
	} else {
		out, err = e.Run(ctx, st)
	}
	elapsed := time.Since(start)

	var degen *mpm.DegeneracyError
	if errors.As(err, &degen) {
		fmt.Fprintf(os.Stderr, "simulation stopped at t=%g after %d iterations: %v\n", degen.Time, degen.Step, err)
		if out != nil && out.RunID != "" {
			fmt.Fprintf(os.Stderr, "partial run saved as %s\n", out.RunID)
		}
		os.Exit(1)
	}
	if err != nil && (out == nil || out.Result == nil || out.Result.Reason != mpm.StopCanceled) {
		return err
	}

	res := out.Result
	fmt.Printf("completed in %v\n", elapsed.Round(time.Millisecond))
	fmt.Printf("run id: %s\n", out.RunID)
	fmt.Printf("stopped: %s at t=%.6g\n", res.Reason, res.Time)
	fmt.Printf("steps: %d, checkpoints: %d\n", res.Steps, res.Checkpoints)
	fmt.Println("\nmetrics:")
	names := make([]string, 0, len(res.Metrics))
	for name := range res.Metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("  %s: %.6g\n", name, res.Metrics[name])
	}
	return nil
}

// runWatched runs the experiment in the background while the monitor owns
// the terminal.
func runWatched(ctx context.Context, cancel context.CancelFunc, e *experiment.Experiment, st *storage.Store) (*experiment.Outcome, error) {
	prog := tea.NewProgram(monitor.NewModel(e.Scenario.Name, cancel))
	e.Sim.AddObserver(monitor.NewObserver(prog, e.Sim.Patch, 100*time.Millisecond, 60, 20))

	type done struct {
		out *experiment.Outcome
		err error
	}
	ch := make(chan done, 1)
	go func() {
		out, err := e.Run(ctx, st)
		ch <- done{out, err}
		msg := monitor.DoneMsg{Err: err}
		if out != nil {
			msg.RunID, msg.Result = out.RunID, out.Result
		}
		prog.Send(msg)
	}()

	if _, err := prog.Run(); err != nil {
		cancel()
		<-ch
		return nil, err
	}
	d := <-ch
	return d.out, d.err
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSCENARIO\tTIME\tKERNEL\tDT\tSTEPS\tSTOPPED")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.3g\t%d\t%s\n",
			run.ID,
			run.Scenario,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Kernel,
			run.Dt,
			run.Steps,
			run.Reason,
		)
	}
	return w.Flush()
}

func listPresets(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PRESET\tKERNEL\tTF\tMATERIALS")
	for _, name := range config.ListPresets() {
		s := config.GetPreset(name)
		mats := make([]string, len(s.Materials))
		for i, m := range s.Materials {
			mats[i] = m.Name + "(" + m.Model + ")"
		}
		fmt.Fprintf(w, "%s\t%s\t%g\t%s\n", name, s.Kernel, s.Tf, strings.Join(mats, " "))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	reg := experiment.NewRegistry()
	fmt.Printf("\nmodels: %s\n", strings.Join(reg.ListModels(), ", "))
	fmt.Printf("kernels: %s\n", strings.Join(reg.ListKernels(), ", "))
	fmt.Printf("metrics: %s\n", strings.Join(reg.ListMetrics(), ", "))
	return nil
}

func initScenario(cmd *cobra.Command, args []string) error {
	path := args[0]
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gcfg", ".ini":
		return os.WriteFile(path, []byte(config.ExampleGcfgFile), 0644)
	}
	s := config.GetPreset(initPreset)
	if s == nil {
		return fmt.Errorf("unknown preset: %s (available: %v)", initPreset, config.ListPresets())
	}
	return config.Save(path, s)
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}

	var data []float64
	caption := column
	if trace != "" {
		_, data, err = st.LoadTrace(runID, trace)
		if err != nil {
			return err
		}
		caption = trace
	} else {
		header, cols, err := st.LoadSeries(runID)
		if err != nil {
			return err
		}
		for i, h := range header {
			if h == column {
				data = cols[i]
			}
		}
		if data == nil {
			return fmt.Errorf("no column %q (have %s)", column, strings.Join(header, ", "))
		}
	}
	if len(data) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("scenario: %s\n", meta.Scenario)
	fmt.Printf("samples: %d\n\n", len(data))

	graph := asciigraph.Plot(data,
		asciigraph.Height(10),
		asciigraph.Width(80),
		asciigraph.Caption(caption+" vs sample"),
	)
	fmt.Println(graph)
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	if output != "" {
		return st.ExportFile(args[0], output)
	}
	return st.Export(args[0], os.Stdout)
}

func inspectRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	fmt.Println(monitor.Summary(meta))
	return nil
}
