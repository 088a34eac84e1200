package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/gorilla/handlers"
	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/vlab/internal/analysis"
	"github.com/san-kum/vlab/internal/api"
	"github.com/san-kum/vlab/internal/clock"
	"github.com/san-kum/vlab/internal/config"
	"github.com/san-kum/vlab/internal/experiment"
	"github.com/san-kum/vlab/internal/export"
	"github.com/san-kum/vlab/internal/lab"
	"github.com/san-kum/vlab/internal/logging"
	"github.com/san-kum/vlab/internal/metrics"
	"github.com/san-kum/vlab/internal/sweep"
	"github.com/san-kum/vlab/internal/titration"
	"github.com/san-kum/vlab/internal/viz"
)

var (
	configFile string
	preset     string
	paramFlags []string
	logLevel   string
	logFormat  string
	// run
	stopAt         float64
	stopAtEndpoint bool
	outPath        string
	plotHeight     int
	// live
	theme   string
	gifPath string
	// serve
	addr string
	// sweep
	sweepSteps   int
	sweepWorkers int
)

// main registers the vlab commands and exits with status 1 if one fails.
// With no subcommand it opens the live lab.
func main() {
	rootCmd := &cobra.Command{
		Use:          "vlab [experiment]",
		Short:        "virtual lab experiments: titrations, pendulum, spring",
		Args:         cobra.MaximumNArgs(1),
		RunE:         runLive,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml)")
	rootCmd.PersistentFlags().StringVar(&preset, "preset", "", "use preset parameters")
	rootCmd.PersistentFlags().StringArrayVarP(&paramFlags, "param", "p", nil, "parameter override name=value (repeatable)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", config.DefaultLogLevel, "log level: trace|debug|info|warn|error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", config.DefaultLogFormat, "log format: text|json")
	rootCmd.Flags().StringVar(&theme, "theme", config.DefaultTheme, "colour theme")
	rootCmd.Flags().StringVar(&gifPath, "gif", "vlab.gif", "GIF recording path")

	runCmd := &cobra.Command{
		Use:   "run [experiment]",
		Short: "run an experiment headless and print the report",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runHeadless,
	}
	runCmd.Flags().Float64Var(&stopAt, "stop-at", 0, "stop the run after this many seconds of lab time")
	runCmd.Flags().BoolVar(&stopAtEndpoint, "stop-at-endpoint", false, "stop a titration at the first endpoint colour")
	runCmd.Flags().StringVarP(&outPath, "out", "o", "", "export the trace (.csv, .json or .svg)")
	runCmd.Flags().IntVar(&plotHeight, "plot-height", 10, "height of the trace plot, 0 to disable")

	liveCmd := &cobra.Command{
		Use:   "live [experiment]",
		Short: "open the live terminal lab",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLive,
	}
	liveCmd.Flags().StringVar(&theme, "theme", config.DefaultTheme, "colour theme: "+strings.Join(viz.ThemeNames(), "|"))
	liveCmd.Flags().StringVar(&gifPath, "gif", "vlab.gif", "GIF recording path")

	serveCmd := &cobra.Command{
		Use:   "serve [experiment]",
		Short: "serve the lab session over HTTP",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runServe,
	}
	serveCmd.Flags().StringVar(&addr, "addr", config.DefaultAddr, "listen address")

	sweepCmd := &cobra.Command{
		Use:   "sweep [experiment] [param] [from] [to]",
		Short: "run an experiment across a range of one parameter",
		Args:  cobra.ExactArgs(4),
		RunE:  runSweep,
	}
	sweepCmd.Flags().IntVar(&sweepSteps, "steps", 7, "number of values")
	sweepCmd.Flags().IntVar(&sweepWorkers, "workers", 0, "parallel runs, 0 for one per CPU")
	sweepCmd.Flags().Float64Var(&stopAt, "stop-at", 0, "stop each run after this many seconds of lab time")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list experiments",
		RunE:  listExperiments,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets [experiment]",
		Short: "list available presets for an experiment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			presets := config.ListPresets(args[0])
			if len(presets) == 0 {
				fmt.Printf("no presets for experiment: %s\n", args[0])
				return nil
			}
			fmt.Printf("presets for %s:\n", args[0])
			for _, name := range presets {
				p := config.GetPreset(args[0], name)
				fmt.Printf("  %-14s %s\n", name, formatParams(p.Params))
			}
			return nil
		},
	}

	paramsCmd := &cobra.Command{
		Use:   "params [experiment]",
		Short: "show tunable parameters",
		Args:  cobra.ExactArgs(1),
		RunE:  showParams,
	}

	configCmd := &cobra.Command{
		Use:   "config [path]",
		Short: "write the default config file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "vlab.yaml"
			if len(args) > 0 {
				path = args[0]
			}
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists", path)
			}
			if err := config.Save(path, config.DefaultConfig()); err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", path)
			return nil
		},
	}

	rootCmd.AddCommand(runCmd, liveCmd, serveCmd, sweepCmd, listCmd, presetsCmd, paramsCmd, configCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig layers defaults, the config file, a preset and --param flags,
// in that order. Log flags override the file only when given.
func loadConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}
	if len(args) > 0 {
		if args[0] != cfg.Experiment {
			cfg.Params = nil
		}
		cfg.Experiment = args[0]
	}

	if preset != "" {
		p := config.GetPreset(cfg.Experiment, preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(cfg.Experiment))
		}
		cfg = cfg.Merge(p)
	}

	overrides, err := parseParams(paramFlags)
	if err != nil {
		return nil, err
	}
	cfg = cfg.Merge(&config.Config{Params: overrides})

	if cmd.Flags().Changed("log-level") || configFile == "" {
		cfg.Log.Level = logLevel
	}
	if cmd.Flags().Changed("log-format") || configFile == "" {
		cfg.Log.Format = logFormat
	}
	if f := cmd.Flags().Lookup("theme"); f != nil && (f.Changed || configFile == "") {
		cfg.Theme = theme
	}
	if f := cmd.Flags().Lookup("addr"); f != nil && (f.Changed || configFile == "") {
		cfg.Server.Addr = addr
	}
	return cfg, nil
}

func parseParams(flags []string) (map[string]float64, error) {
	out := make(map[string]float64, len(flags))
	for _, f := range flags {
		name, raw, ok := strings.Cut(f, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --param %q, want name=value", f)
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid --param %q: %w", f, err)
		}
		out[strings.TrimSpace(name)] = v
	}
	return out, nil
}

// newSession builds a controller on clk, selects the configured experiment
// and applies its parameters.
func newSession(cfg *config.Config, clk clock.Clock, log *slog.Logger) (*experiment.Controller, error) {
	opts := []experiment.Option{
		experiment.WithClock(clk),
		experiment.WithLogger(log),
	}
	for _, info := range experiment.NewRegistry().List() {
		d := cfg.Clock.FrameInterval
		if info.ID == lab.KindTitration || info.ID == lab.KindPermanganometry {
			d = cfg.Clock.TitrationInterval
		}
		opts = append(opts, experiment.WithInterval(info.ID, d))
	}

	ctl := experiment.NewController(opts...)
	if err := ctl.Select(lab.Kind(cfg.Experiment)); err != nil {
		ctl.Close()
		return nil, err
	}
	if err := ctl.ApplyParams(cfg.Params); err != nil {
		ctl.Close()
		return nil, err
	}
	return ctl, nil
}

func runHeadless(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	log := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)

	manual := clock.NewManual()
	ctl, err := newSession(cfg, manual, log)
	if err != nil {
		return err
	}
	defer ctl.Close()

	rec := export.NewRecorder()
	ctl.Subscribe(rec.Observe)
	ctl.Subscribe(func(ev lab.Event) {
		if ev.Snapshot.Status != lab.StatusRunning {
			return
		}
		switch {
		case stopAtEndpoint && ev.Kind == lab.EventEndpointReached:
			ctl.Stop()
		case stopAt > 0 && ev.Kind == lab.EventTick && ev.Snapshot.Elapsed >= stopAt:
			ctl.Stop()
		}
	})

	params, _ := ctl.Params()
	fmt.Printf("running %s...\n", cfg.Experiment)
	start := time.Now()
	if err := ctl.Start(); err != nil {
		return err
	}
	ticks := manual.RunUntilStopped(cfg.Clock.MaxTicks)
	if ctl.Status() == lab.StatusRunning {
		log.Warn("tick budget exhausted, stopping", "max_ticks", cfg.Clock.MaxTicks)
		if err := ctl.Stop(); err != nil {
			return err
		}
	}
	report, reportErr := ctl.Report()
	if reportErr != nil && !errors.Is(reportErr, lab.ErrDegenerateMeasurement) {
		return reportErr
	}

	snap, _ := ctl.Snapshot()
	fmt.Printf("completed in %v\n", time.Since(start))
	fmt.Printf("run id: %s\n", snap.RunID)
	fmt.Printf("ticks: %d (%.1fs lab time)\n", ticks, snap.Elapsed)
	fmt.Printf("params: %s\n", formatParams(params))
	printReport(report)

	tr := rec.Trace()
	if tr == nil {
		return nil
	}
	tr.Params = params
	tr.Report = &report

	if snap.Oscillator != nil {
		interval := cfg.Clock.FrameInterval.Seconds()
		if T, err := analysis.DominantPeriod(tr.Series(export.ColDisplacement), interval); err == nil {
			fmt.Printf("  spectral period  %.4f s\n", T)
		} else {
			log.Debug("spectral period unavailable", "error", err)
		}
	}

	if plotHeight > 0 && tr.Len() > 1 {
		col := tr.DefaultColumn()
		graph := asciigraph.Plot(tr.Series(col),
			asciigraph.Height(plotHeight),
			asciigraph.Width(80),
			asciigraph.Caption(col+" vs tick"),
		)
		fmt.Println()
		fmt.Println(graph)
	}

	if outPath != "" {
		if err := export.SaveFile(outPath, tr); err != nil {
			return fmt.Errorf("export: %w", err)
		}
		fmt.Printf("\nexported %d samples to %s\n", tr.Len(), outPath)
	}
	return nil
}

func printReport(r lab.Report) {
	fmt.Println("\nreport:")
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	if r.NoData {
		fmt.Fprintf(w, "  theoretical\t%.4f %s\n", r.Theoretical, r.Unit)
		fmt.Fprintf(w, "  accuracy\t%s\n", r.Accuracy)
		w.Flush()
		return
	}
	fmt.Fprintf(w, "  measured\t%.4f %s\n", r.Measured, r.Unit)
	fmt.Fprintf(w, "  theoretical\t%.4f %s\n", r.Theoretical, r.Unit)
	fmt.Fprintf(w, "  percent error\t%.2f%%\n", r.PercentError)
	fmt.Fprintf(w, "  accuracy\t%s\n", r.Accuracy)
	if fe, ok := r.Extras[titration.ExtraFerrous]; ok {
		fmt.Fprintf(w, "  Fe²⁺ concentration\t%.4f M\n", fe)
	}
	w.Flush()
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	// the TUI owns the terminal
	ctl, err := newSession(cfg, clock.NewTicker(), logging.Discard())
	if err != nil {
		return err
	}
	defer ctl.Close()
	return viz.Run(ctl, viz.Options{Theme: cfg.Theme, GIFPath: gifPath})
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	log := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)

	ctl, err := newSession(cfg, clock.NewTicker(), log)
	if err != nil {
		return err
	}
	defer ctl.Close()

	m := metrics.New()
	ctl.Subscribe(m.Observe)
	router := api.NewServer(ctl, api.WithMetrics(m), api.WithLogger(log)).Router()

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handlers.LoggingHandler(os.Stdout, router),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", cfg.Server.Addr, "experiment", cfg.Experiment)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args[:1])
	if err != nil {
		return err
	}
	from, err := strconv.ParseFloat(args[2], 64)
	if err != nil {
		return fmt.Errorf("invalid from: %w", err)
	}
	to, err := strconv.ParseFloat(args[3], 64)
	if err != nil {
		return fmt.Errorf("invalid to: %w", err)
	}

	sw := sweep.Sweep{
		Kind:     lab.Kind(cfg.Experiment),
		Param:    args[1],
		Values:   sweep.Linspace(from, to, sweepSteps),
		Base:     cfg.Params,
		MaxTicks: cfg.Clock.MaxTicks,
		StopAt:   stopAt,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	start := time.Now()
	points, err := sw.Run(ctx, sweepWorkers)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\tMEASURED\tTHEORETICAL\tERROR\tACCURACY\n", strings.ToUpper(sw.Param))
	var measured []float64
	for _, p := range points {
		if p.Err != nil && !errors.Is(p.Err, lab.ErrDegenerateMeasurement) {
			fmt.Fprintf(w, "%g\t-\t-\t-\t%v\n", p.Value, p.Err)
			continue
		}
		r := p.Report
		fmt.Fprintf(w, "%g\t%.4f\t%.4f\t%.2f%%\t%s\n", p.Value, r.Measured, r.Theoretical, r.PercentError, r.Accuracy)
		measured = append(measured, r.Measured)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("\n%d runs in %v\n", len(points), time.Since(start))

	if len(measured) > 1 {
		fmt.Println()
		fmt.Println(asciigraph.Plot(measured,
			asciigraph.Height(10),
			asciigraph.Width(60),
			asciigraph.Caption("measured vs "+sw.Param),
		))
	}
	return nil
}

func listExperiments(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tSUBJECT\tDESCRIPTION")
	for _, info := range experiment.NewRegistry().List() {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", info.ID, info.Name, info.Subject, info.Description)
	}
	return w.Flush()
}

func showParams(cmd *cobra.Command, args []string) error {
	specs, err := experiment.NewRegistry().ParamSpecs(lab.Kind(args[0]))
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tUNIT\tDEFAULT\tMIN\tMAX\tSTEP")
	for _, s := range specs {
		fmt.Fprintf(w, "%s\t%s\t%g\t%g\t%g\t%g\n", s.Name, s.Unit, s.Default, s.Min, s.Max, s.Step)
	}
	return w.Flush()
}

func formatParams(params map[string]float64) string {
	parts := make([]string, 0, len(params))
	for _, name := range lab.ParamNames(params) {
		parts = append(parts, fmt.Sprintf("%s=%g", name, params[name]))
	}
	return strings.Join(parts, " ")
}
