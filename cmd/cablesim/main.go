package main

import (
	"context"
	"fmt"
	"io"
	"maps"
	"os"
	"os/signal"
	"slices"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/guptarohit/asciigraph"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/san-kum/cablesim/internal/analysis"
	"github.com/san-kum/cablesim/internal/config"
	"github.com/san-kum/cablesim/internal/export"
	"github.com/san-kum/cablesim/internal/joint"
	"github.com/san-kum/cablesim/internal/link"
	"github.com/san-kum/cablesim/internal/logging"
	"github.com/san-kum/cablesim/internal/metrics"
	"github.com/san-kum/cablesim/internal/sim"
	"github.com/san-kum/cablesim/internal/storage"
	"github.com/san-kum/cablesim/internal/viz"
)

var (
	dataDir     string
	logLevel    string
	logFile     string
	configFile  string
	dt          float64
	duration    float64
	unbreakable bool
	runAll      bool
	outFile     string
	svgFile     string
	drawAt      float64
	drawOut     string

	graylogAddr string
	useIndex    = true
	scenario    string
	snappedOnly bool
	format      string

	logger  = zerolog.Nop()
	closers []io.Closer
)

func main() {
	settings := newSettings()
	rootCmd := &cobra.Command{
		Use:           "cablesim",
		Short:         "cable joint simulation",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := loadSettings(settings, cmd.Root()); err != nil {
				return err
			}
			dataDir = settings.GetString(keyData)
			logLevel = settings.GetString(keyLogLevel)
			logFile = settings.GetString(keyLogFile)
			graylogAddr = settings.GetString(keyGraylog)
			useIndex = settings.GetBool(keyIndex)
			return setupLogger()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			for _, c := range closers {
				c.Close()
			}
		},
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".cablesim", "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", config.DefaultLogLevel, "log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "also write logs to this file")
	rootCmd.PersistentFlags().StringVar(&graylogAddr, "graylog", "", "also send logs to a GELF UDP endpoint (host:port)")
	rootCmd.PersistentFlags().BoolVar(&useIndex, "index", true, "keep the SQLite run index up to date")

	runCmd := &cobra.Command{
		Use:   "run [preset]",
		Short: "run a scenario and store the result",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runScenario,
	}
	addScenarioFlags(runCmd)
	runCmd.Flags().BoolVar(&runAll, "all", false, "run every preset concurrently")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}
	listCmd.Flags().StringVar(&scenario, "scenario", "", "only runs of this scenario (uses the index)")
	listCmd.Flags().BoolVar(&snappedOnly, "snapped", false, "only runs where the cable snapped (uses the index)")

	reindexCmd := &cobra.Command{
		Use:   "reindex",
		Short: "rebuild the run index from the run directories",
		Args:  cobra.NoArgs,
		RunE:  reindexRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot stretch and tension of a run (latest by default)",
		Args:  cobra.MaximumNArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVar(&svgFile, "svg", "", "also write the chart to this SVG file")

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export a run to JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE:  exportRun,
	}
	exportCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default stdout)")
	exportCmd.Flags().StringVar(&format, "format", "json", "json or influx (line protocol)")

	linksCmd := &cobra.Command{
		Use:   "links [run_id]",
		Short: "show the final link state of a run",
		Args:  cobra.MaximumNArgs(1),
		RunE:  showLinks,
	}

	checkCmd := &cobra.Command{
		Use:   "check [run_id]",
		Short: "restore a run's link state onto its scenario peers",
		Args:  cobra.MaximumNArgs(1),
		RunE:  checkLinks,
	}
	checkCmd.Flags().StringVar(&configFile, "config", "", "scenario file the run was made from")

	liveCmd := &cobra.Command{
		Use:   "live [preset]",
		Short: "run a scenario with live visualization",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLive,
	}
	addScenarioFlags(liveCmd)

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available scenarios",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tBODIES\tDURATION\tEVENTS")
			for _, name := range config.ListPresets() {
				cfg := config.GetPreset(name)
				fmt.Fprintf(w, "%s\t%d\t%.1fs\t%d\n", name, len(cfg.Bodies), cfg.Duration, len(cfg.Events))
			}
			return w.Flush()
		},
	}

	drawCmd := &cobra.Command{
		Use:   "draw [preset]",
		Short: "render the scene at a point in time to SVG",
		Args:  cobra.MaximumNArgs(1),
		RunE:  drawScene,
	}
	addScenarioFlags(drawCmd)
	drawCmd.Flags().Float64Var(&drawAt, "at", 0, "simulation time to render")
	drawCmd.Flags().StringVarP(&drawOut, "out", "o", "scene.svg", "output file")

	rootCmd.AddCommand(runCmd, listCmd, plotCmd, exportCmd, linksCmd, checkCmd, liveCmd, presetsCmd, drawCmd, reindexCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func addScenarioFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "scenario file (yaml)")
	cmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "timestep")
	cmd.Flags().Float64Var(&duration, "time", config.DefaultDuration, "duration")
	cmd.Flags().BoolVar(&unbreakable, "unbreakable", false, "start with an unbreakable cable")
}

func setupLogger() error {
	var sinks logging.Sinks
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		closers = append(closers, f)
		sinks.File = f
	}
	if graylogAddr != "" {
		w, err := logging.DialGraylog(graylogAddr)
		if err != nil {
			return fmt.Errorf("dial graylog: %w", err)
		}
		closers = append(closers, w)
		sinks.Graylog = w
	}
	logger = logging.New(os.Stderr, logLevel, sinks)
	return nil
}

// loadScenario resolves the scenario from --config or a preset name. Flags
// given on the command line override the file.
func loadScenario(cmd *cobra.Command, args []string) (*config.Config, error) {
	var cfg *config.Config
	switch {
	case configFile != "":
		c, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = c
	case len(args) == 1:
		cfg = config.GetPreset(args[0])
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", args[0], config.ListPresets())
		}
	default:
		cfg = config.GetPreset("hanging")
	}

	if cmd.Flags().Changed("dt") {
		cfg.Dt = dt
	}
	if cmd.Flags().Changed("time") {
		cfg.Duration = duration
	}
	if cmd.Flags().Changed("unbreakable") {
		cfg.Unbreakable = unbreakable
	}
	return cfg, cfg.Validate()
}

func breakForce(cfg *config.Config) float64 {
	force, _ := joint.BreakLimits(cfg.Cable, cfg.Unbreakable)
	return force
}

func newRunner(cfg *config.Config) *sim.Runner {
	r := sim.NewRunner(logger)
	for _, m := range metrics.Standard(breakForce(cfg)) {
		r.AddMetric(m)
	}
	return r
}

func runScenario(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if runAll {
		return runPresets(ctx, cmd.OutOrStdout())
	}

	cfg, err := loadScenario(cmd, args)
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "running %s...\n", cfg.Name)
	start := time.Now()
	result, err := newRunner(cfg).Run(ctx, cfg)
	if err != nil && result == nil {
		return err
	}
	if err != nil {
		logger.Warn().Err(err).Int("steps", result.StepsTaken).Msg("run interrupted, saving partial result")
	}

	runID, saveErr := st.Save(cfg, result)
	if saveErr != nil {
		return saveErr
	}
	indexRuns(st, runID)
	printResult(cmd.OutOrStdout(), runID, time.Since(start), result)
	return err
}

func runPresets(ctx context.Context, out io.Writer) error {
	names := config.ListPresets()
	cfgs := make([]*config.Config, len(names))
	for i, name := range names {
		cfgs[i] = config.GetPreset(name)
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	start := time.Now()
	results, err := sim.RunBatch(ctx, cfgs, newRunner)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RUN\tSTEPS\tEVENTS\tMAX STRETCH\tPEAK TENSION")
	ids := make([]string, 0, len(results))
	for k, res := range results {
		runID, err := st.Save(cfgs[k], res)
		if err != nil {
			return err
		}
		ids = append(ids, runID)
		fmt.Fprintf(w, "%s\t%d\t%d\t%.2f%%\t%.0f N\n", runID, res.StepsTaken, len(res.Events),
			res.Metrics["max_stretch"]*100, res.Metrics["peak_tension"])
	}
	fmt.Fprintf(w, "\n%d scenarios in %v\n", len(results), elapsed)
	indexRuns(st, ids...)
	return w.Flush()
}

// indexRuns records saved runs in the SQLite index. The run directories
// are already written, so index failures are only logged.
func indexRuns(st *storage.Store, ids ...string) {
	if !useIndex {
		return
	}
	ix, err := st.OpenIndex()
	if err != nil {
		logger.Warn().Err(err).Msg("run index unavailable")
		return
	}
	defer ix.Close()
	for _, id := range ids {
		meta, err := st.Load(id)
		if err == nil {
			err = ix.Record(*meta)
		}
		if err != nil {
			logger.Warn().Err(err).Str("run", id).Msg("failed to index run")
		}
	}
}

func printResult(out io.Writer, runID string, elapsed time.Duration, res *sim.Result) {
	fmt.Fprintf(out, "completed in %v\n", elapsed)
	fmt.Fprintf(out, "run id: %s\n", runID)
	fmt.Fprintf(out, "steps: %d\n", res.StepsTaken)
	if res.Dropped > 0 {
		fmt.Fprintf(out, "dropped environment forces: %d\n", res.Dropped)
	}

	if len(res.Events) > 0 {
		fmt.Fprintln(out, "\nevents:")
		for _, ev := range res.Events {
			line := fmt.Sprintf("  %7.2fs  %-11s %s", ev.Time, ev.Kind, ev.Detail)
			if ev.Force > 0 {
				line += fmt.Sprintf(" (%.0f N)", ev.Force)
			}
			fmt.Fprintln(out, line)
		}
	}

	fmt.Fprintln(out, "\nmetrics:")
	for _, m := range slices.Sorted(maps.Keys(res.Metrics)) {
		fmt.Fprintf(out, "  %s: %.6f\n", m, res.Metrics[m])
	}
}

// resolveRun returns the run named by args, or the latest run.
func resolveRun(st *storage.Store, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	return st.Latest()
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	if scenario != "" || snappedOnly {
		return listIndexed(cmd.OutOrStdout(), st)
	}

	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no runs found")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSCENARIO\tTIME\tDURATION\tDT\tSTEPS\tEVENTS")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.2fs\t%.4fs\t%d\t%d\n",
			run.ID,
			run.Scenario,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Duration,
			run.Dt,
			run.Steps,
			len(run.Events),
		)
	}
	return w.Flush()
}

func listIndexed(out io.Writer, st *storage.Store) error {
	ix, err := st.OpenIndex()
	if err != nil {
		return err
	}
	defer ix.Close()

	rows, err := ix.Find(storage.Query{Scenario: scenario, SnappedOnly: snappedOnly})
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Fprintln(out, "no matching runs (try cablesim reindex)")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSCENARIO\tTIME\tSTEPS\tSNAPPED\tPEAK TENSION\tMAX STRETCH")
	for _, r := range rows {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%t\t%.0f N\t%.2f%%\n",
			r.ID,
			r.Scenario,
			r.Timestamp.Format("2006-01-02 15:04:05"),
			r.Steps,
			r.Snapped,
			r.PeakTension,
			r.MaxStretch*100,
		)
	}
	return w.Flush()
}

func reindexRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	ix, err := st.OpenIndex()
	if err != nil {
		return err
	}
	defer ix.Close()

	n, err := ix.Rebuild(st)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "indexed %d runs\n", n)
	return nil
}

func plotRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runID, err := resolveRun(st, args)
	if err != nil {
		return err
	}
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	frames, err := st.LoadFrames(runID)
	if err != nil {
		return err
	}
	if len(frames) == 0 {
		return fmt.Errorf("no data to plot")
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "run: %s\n", meta.ID)
	fmt.Fprintf(out, "scenario: %s\n", meta.Scenario)
	fmt.Fprintf(out, "samples: %d\n\n", len(frames))

	times := make([]float64, len(frames))
	stretch := make([]float64, len(frames))
	tension := make([]float64, len(frames))
	for i, f := range frames {
		times[i] = f.Time
		stretch[i] = f.Stretch.Ratio * 100
		tension[i] = f.Tension
	}

	for _, series := range []struct {
		data    []float64
		caption string
	}{
		{stretch, "stretch (%)"},
		{tension, "tension (N)"},
	} {
		graph := asciigraph.Plot(series.data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(series.caption),
		)
		fmt.Fprintln(out, graph)
		fmt.Fprintln(out)
	}

	if osc, err := analysis.Analyze(stretch, meta.Dt); err == nil {
		fmt.Fprintf(out, "stretch oscillation: %s\n", osc)
	} else {
		logger.Debug().Err(err).Msg("skipping oscillation analysis")
	}

	if svgFile != "" {
		svg := export.ChartToSVG(times, []export.Series{
			{Label: "stretch (%)", Color: "#00ff00", Values: stretch},
			{Label: "tension (N)", Color: "#ff8800", Values: tension},
		}, 800, 400)
		if err := os.WriteFile(svgFile, []byte(svg), 0644); err != nil {
			return err
		}
		fmt.Fprintf(out, "wrote %s\n", svgFile)
	}
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runID, err := resolveRun(st, args)
	if err != nil {
		return err
	}

	var write func(io.Writer, string) error
	switch format {
	case "json":
		write = st.ExportJSON
	case "influx":
		write = st.ExportLineProtocol
	default:
		return fmt.Errorf("unknown export format: %s (json, influx)", format)
	}

	if outFile == "" {
		return write(cmd.OutOrStdout(), runID)
	}
	f, err := os.Create(outFile)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := write(f, runID); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "exported %s to %s\n", runID, outFile)
	return nil
}

func showLinks(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runID, err := resolveRun(st, args)
	if err != nil {
		return err
	}
	snaps, err := st.LoadLinks(runID)
	if err != nil {
		return err
	}
	return printSnapshots(cmd.OutOrStdout(), snaps)
}

func printSnapshots(out io.Writer, snaps []link.Snapshot) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PEER\tSTATE\tLINKED TO\tBLOCKED")
	for _, s := range snaps {
		other := s.LinkedPeer
		if other == "" {
			other = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%t\n", s.Peer, s.State, other, s.Blocked)
	}
	return w.Flush()
}

// checkLinks rebuilds the run's peers and restores the stored snapshot onto
// them. A snapshot that does not restore cleanly is reported as an error.
func checkLinks(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runID, err := resolveRun(st, args)
	if err != nil {
		return err
	}
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	snaps, err := st.LoadLinks(runID)
	if err != nil {
		return err
	}

	var cfg *config.Config
	if configFile != "" {
		if cfg, err = config.Load(configFile); err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
	} else if cfg = config.GetPreset(meta.Scenario); cfg == nil {
		return fmt.Errorf("scenario %q is not a preset, pass --config", meta.Scenario)
	}

	reg, err := peerRegistry(cfg)
	if err != nil {
		return err
	}
	if err := reg.Restore(snaps); err != nil {
		return fmt.Errorf("run %s: %w", runID, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "run %s: link state restores cleanly\n", runID)
	return printSnapshots(cmd.OutOrStdout(), reg.Snapshot())
}

// peerRegistry registers the scenario's peers without building a world.
// Body ids follow declaration order.
func peerRegistry(cfg *config.Config) (*link.Registry, error) {
	ids := make(map[string]link.BodyID, len(cfg.Bodies))
	for i, b := range cfg.Bodies {
		ids[b.Name] = link.BodyID(i + 1)
	}
	reg := link.NewRegistry()
	for _, p := range cfg.Peers {
		peer := link.NewPeer(p.Name, ids[p.Body], p.LinkType, p.Node, link.Pose{
			Position:    p.Anchor,
			Orientation: config.Quat(p.AnchorRotation),
		})
		if err := reg.Add(peer); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

func drawScene(cmd *cobra.Command, args []string) error {
	cfg, err := loadScenario(cmd, args)
	if err != nil {
		return err
	}
	scene, err := sim.NewScene(cfg, sim.WithSceneLogger(logger))
	if err != nil {
		return err
	}
	for !scene.Done() && scene.Time()+cfg.Dt/2 < drawAt {
		if _, err := scene.Step(); err != nil {
			return err
		}
	}

	canvas := viz.NewCanvas(80, 30)
	viz.DrawScene(canvas, viz.FitScene(canvas, cfg), scene)
	if err := os.WriteFile(drawOut, []byte(export.CanvasToSVG(canvas, 4)), 0644); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s at %.2fs (%s) -> %s\n", cfg.Name, scene.Time(), scene.Ctrl.Phase(), drawOut)
	return nil
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := loadScenario(cmd, args)
	if err != nil {
		return err
	}

	// The view owns the terminal; only warnings and above reach stderr.
	m, err := viz.NewModel(cfg, logger.Level(zerolog.WarnLevel))
	if err != nil {
		return err
	}

	p := tea.NewProgram(m)
	if _, err := p.Run(); err != nil {
		return err
	}
	return nil
}

