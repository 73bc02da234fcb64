package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/san-kum/convsim/internal/analysis"
	"github.com/san-kum/convsim/internal/api"
	"github.com/san-kum/convsim/internal/circuit"
	"github.com/san-kum/convsim/internal/config"
	"github.com/san-kum/convsim/internal/engine"
	"github.com/san-kum/convsim/internal/export"
	"github.com/san-kum/convsim/internal/logging"
	"github.com/san-kum/convsim/internal/metrics"
	"github.com/san-kum/convsim/internal/publish"
	"github.com/san-kum/convsim/internal/results"
	"github.com/san-kum/convsim/internal/storage"
	"github.com/san-kum/convsim/internal/viz"
)

var (
	configFile string
	dataDir    string
	logLevel   string

	endTime  float64
	stepSize float64
	method   string
	noAlign  bool
	publishR bool
	viewRun  bool

	outPath   string
	withPlots bool
	variables []string
	window    float64
	period    float64

	overrides []string
	varName   string

	addr string

	cfg    *config.Config
	logger *slog.Logger
	logOut io.Closer
)

func main() {
	rootCmd := &cobra.Command{
		Use:               "convsim",
		Short:             "power electronics converter simulator",
		SilenceUsage:      true,
		PersistentPreRunE: setup,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logOut != nil {
				logOut.Close()
			}
		},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", config.DefaultDataDir, "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	runCmd := &cobra.Command{
		Use:   "run [preset | circuit.json]",
		Short: "simulate a preset or a saved circuit",
		Args:  cobra.ExactArgs(1),
		RunE:  runSimulation,
	}
	runCmd.Flags().Float64Var(&endTime, "time", 0, "end time in seconds (default from preset or config)")
	runCmd.Flags().Float64Var(&stepSize, "dt", 0, "output step in seconds (default from preset or config)")
	runCmd.Flags().StringVar(&method, "method", "", "integration method (rk45, rk4)")
	runCmd.Flags().BoolVar(&noAlign, "no-align", false, "do not end steps on switching edges")
	runCmd.Flags().BoolVar(&publishR, "publish", false, "send the result to the configured sink")
	runCmd.Flags().BoolVar(&viewRun, "view", false, "open the result viewer when done")
	runCmd.Flags().StringArrayVar(&overrides, "set", nil, "override a parameter as <component type>.<parameter>=<value>, e.g. pwm_source.duty_cycle=0.4")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot waveforms in the terminal, or to an image with --out",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringSliceVar(&variables, "var", nil, "variables to plot (default all)")
	plotCmd.Flags().StringVarP(&outPath, "out", "o", "", "write a .png, .svg or .pdf instead")

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export a run as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}
	exportJSONCmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default stdout)")
	exportJSONCmd.Flags().BoolVar(&withPlots, "plots", false, "embed base64 PNG plots")

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export a run as CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}
	exportCSVCmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default stdout)")

	exportHTMLCmd := &cobra.Command{
		Use:   "export-html [run_id]",
		Short: "export a run as an interactive HTML chart",
		Args:  cobra.ExactArgs(1),
		RunE:  exportHTML,
	}
	exportHTMLCmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default <run_id>.html)")

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "steady-state figures, spectrum and switching-period samples",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}
	analyzeCmd.Flags().StringVar(&varName, "var", "", "variable to analyze (default output voltage)")
	analyzeCmd.Flags().Float64Var(&window, "window", metrics.DefaultWindow, "trailing fraction of the run treated as steady state")
	analyzeCmd.Flags().Float64Var(&period, "period", 0, "sampling period (default switching period)")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list preset circuits",
		RunE:  listPresets,
	}

	componentsCmd := &cobra.Command{
		Use:   "components",
		Short: "print the component library",
		RunE:  listComponents,
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "run the HTTP backend for the circuit editor",
		RunE:  serve,
	}
	serveCmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")

	viewCmd := &cobra.Command{
		Use:   "view [run_id]",
		Short: "browse a stored run interactively",
		Args:  cobra.ExactArgs(1),
		RunE:  viewStored,
	}

	configCmd := &cobra.Command{
		Use:   "config-init [path]",
		Short: "write the default configuration",
		Args:  cobra.MaximumNArgs(1),
		RunE:  initConfig,
	}

	rootCmd.AddCommand(runCmd, listCmd, plotCmd, exportJSONCmd, exportCSVCmd, exportHTMLCmd,
		analyzeCmd, presetsCmd, componentsCmd, serveCmd, viewCmd, configCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup loads the configuration and opens the logger. Flags override the
// file, and the environment overrides the log section.
func setup(cmd *cobra.Command, args []string) error {
	cfg = config.DefaultConfig()
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if cmd.Flags().Changed("data") || configFile == "" {
		cfg.DataDir = dataDir
	}

	opts := logging.FromEnv(cfg.Log)
	if logLevel != "" {
		opts.Level = logLevel
	}
	var err error
	logger, logOut, err = logging.Open(os.Stderr, opts)
	return err
}

func newEngine() *engine.Engine {
	opts := cfg.Simulation.Options()
	align := cfg.Simulation.AlignEvents && !noAlign
	return engine.New(
		engine.WithOptions(opts),
		engine.WithLogger(logger),
		engine.WithEventAlignment(align),
	)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// loadCircuit resolves a preset name or a circuit file and the run
// settings that go with it.
func loadCircuit(cmd *cobra.Command, arg string) (*circuit.Circuit, engine.Params, error) {
	p := engine.Params{EndTime: cfg.Simulation.EndTime, StepSize: cfg.Simulation.StepSize}

	var c *circuit.Circuit
	if strings.HasSuffix(arg, ".json") {
		loaded, err := circuit.Load(arg)
		if err != nil {
			return nil, p, err
		}
		c = loaded
	} else {
		preset := config.GetPreset(arg)
		if preset == nil {
			return nil, p, fmt.Errorf("unknown preset: %s (available: %v)", arg, config.ListPresets())
		}
		c = preset.Circuit()
		p = engine.Params{EndTime: preset.EndTime, StepSize: preset.StepSize}
	}

	if cmd.Flags().Changed("time") {
		p.EndTime = endTime
	}
	if cmd.Flags().Changed("dt") {
		p.StepSize = stepSize
	}
	return c, p, nil
}

func runSimulation(cmd *cobra.Command, args []string) error {
	if method != "" {
		cfg.Simulation.Method = method
	}
	c, p, err := loadCircuit(cmd, args[0])
	if err != nil {
		return err
	}
	for _, o := range overrides {
		if err := applyOverride(c, o); err != nil {
			return err
		}
	}

	ctx, cancel := signalContext()
	defer cancel()

	fmt.Printf("simulating %s for %g s...\n", c.Name, p.EndTime)
	start := time.Now()

	res, err := newEngine().Simulate(ctx, c, p)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	st := storage.New(cfg.DataDir)
	runID, err := st.Save(storage.Run{
		Circuit:  c,
		EndTime:  p.EndTime,
		StepSize: p.StepSize,
		Method:   cfg.Simulation.Method,
	}, res)
	if err != nil {
		return err
	}

	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("topology: %s\n", res.Topology)
	fmt.Printf("points: %d\n", res.Len())
	fmt.Printf("steps: %d accepted, %d rejected, %d evaluations\n\n",
		res.Stats.Accepted, res.Stats.Rejected, res.Stats.Evaluations)
	printSummary(os.Stdout, res, metrics.DefaultWindow)

	if publishR {
		if err := publishResult(ctx, res); err != nil {
			return err
		}
	}
	if viewRun {
		return viz.Run(res)
	}
	return nil
}

func publishResult(ctx context.Context, res *results.Result) error {
	sink, err := publish.New(cfg.Sink, logger)
	if err != nil {
		return err
	}
	defer sink.Close()

	if err := sink.Publish(ctx, res); err != nil {
		return err
	}
	fmt.Printf("\npublished to %s sink, topic %s\n", cfg.Sink.Kind, cfg.Sink.Topic)
	return nil
}

func printSummary(w io.Writer, res *results.Result, window float64) {
	summary := metrics.Summary(res, window)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "VARIABLE\tMEAN\tRMS\tRIPPLE\tMIN\tMAX\tFINAL\n")
	for _, name := range res.Names() {
		s := summary[name]
		fmt.Fprintf(tw, "%s\t%.6g\t%.6g\t%.6g\t%.6g\t%.6g\t%.6g\n",
			name, s.Mean, s.RMS, s.Ripple, s.Min, s.Max, s.Final)
	}
	tw.Flush()
}

func listRuns(cmd *cobra.Command, args []string) error {
	runs, err := storage.New(cfg.DataDir).List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCIRCUIT\tTOPOLOGY\tTIME\tEND\tSTEP\tPOINTS")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%gs\t%gs\t%d\n",
			run.ID,
			run.CircuitName,
			run.Topology,
			run.Timestamp.Local().Format("2006-01-02 15:04:05"),
			run.EndTime,
			run.StepSize,
			run.Points,
		)
	}

	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(cfg.DataDir)
	res, err := st.LoadResult(runID)
	if err != nil {
		return err
	}

	names := variables
	if len(names) == 0 {
		names = res.Names()
	}

	if outPath != "" {
		if err := export.SavePlot(outPath, res, names...); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", outPath)
		return nil
	}

	fmt.Printf("run: %s\n", runID)
	fmt.Printf("topology: %s\n", res.Topology)
	fmt.Printf("samples: %d\n\n", res.Len())

	for _, name := range names {
		data, ok := res.Get(name)
		if !ok {
			return fmt.Errorf("unknown variable %q (available: %v)", name, res.Names())
		}
		caption := name
		if u := export.Unit(name); u != "" {
			caption += " [" + u + "]"
		}
		fmt.Println(viz.Plot(data, caption, 80, 10))
		fmt.Println()
	}
	return nil
}

// output opens path for writing, or stdout when path is empty.
func output(path string) (io.WriteCloser, error) {
	if path == "" {
		return nopCloser{os.Stdout}, nil
	}
	return os.Create(path)
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

func exportJSON(cmd *cobra.Command, args []string) error {
	res, err := storage.New(cfg.DataDir).LoadResult(args[0])
	if err != nil {
		return err
	}
	w, err := output(outPath)
	if err != nil {
		return err
	}
	if err := export.WriteJSON(w, res, withPlots); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

func exportCSV(cmd *cobra.Command, args []string) error {
	res, err := storage.New(cfg.DataDir).LoadResult(args[0])
	if err != nil {
		return err
	}
	w, err := output(outPath)
	if err != nil {
		return err
	}
	if err := storage.WriteCSV(w, res); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

func exportHTML(cmd *cobra.Command, args []string) error {
	runID := args[0]
	res, err := storage.New(cfg.DataDir).LoadResult(runID)
	if err != nil {
		return err
	}
	path := outPath
	if path == "" {
		path = filepath.Base(runID) + ".html"
	}
	if err := export.ExportHTML(path, res); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", path)
	return nil
}

// applyOverride sets one parameter on every component of a type, as in
// "resistor.resistance=5".
func applyOverride(c *circuit.Circuit, o string) error {
	key, value, ok := strings.Cut(o, "=")
	if !ok {
		return fmt.Errorf("--set %q: missing =", o)
	}
	typ, param, ok := strings.Cut(key, ".")
	if !ok || param == "" {
		return fmt.Errorf("--set %q: want <component type>.<parameter>=<value>", o)
	}
	ct, known := circuit.ParseType(typ)
	if !known {
		return fmt.Errorf("--set %q: unknown component type %q", o, typ)
	}
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("--set %q: %w", o, err)
	}
	if c.CountByType()[ct] == 0 {
		return fmt.Errorf("--set %q: circuit has no %s", o, ct)
	}
	engine.SetParam(c, ct, param, v)
	return nil
}

// outputVariable picks the variable analyses default to.
func outputVariable(res *results.Result, name string) (string, error) {
	if name != "" {
		if _, ok := res.Get(name); !ok {
			return "", fmt.Errorf("unknown variable %q (available: %v)", name, res.Names())
		}
		return name, nil
	}
	if _, ok := res.Get("capacitor_voltage"); ok {
		return "capacitor_voltage", nil
	}
	names := res.Names()
	if len(names) == 0 {
		return "", errors.New("run has no variables")
	}
	return names[0], nil
}

// switchingPeriod returns 1/f of the first PWM source in c, or zero.
func switchingPeriod(c *circuit.Circuit) float64 {
	if c == nil {
		return 0
	}
	for _, id := range c.SortedIDs() {
		comp := c.Components[id]
		if comp.Type != circuit.PWMSource {
			continue
		}
		if f, ok := comp.Param(circuit.ParamFrequency); ok && f > 0 {
			return 1 / f
		}
	}
	return 0
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(cfg.DataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	res, err := st.LoadResult(runID)
	if err != nil {
		return err
	}
	name, err := outputVariable(res, varName)
	if err != nil {
		return err
	}

	fmt.Printf("analysis: %s\n", meta.ID)
	fmt.Printf("topology: %s\n\n", meta.Topology)
	printSummary(os.Stdout, res, window)
	fmt.Println()

	values, _ := res.Get(name)
	start := metrics.SteadyState(res.Time, window)
	steady := values[start:]

	freqs, mags := analysis.Spectrum(steady, meta.StepSize)
	if len(mags) > 1 {
		shown := mags[1:max(2, len(mags)/8)]
		fmt.Println(viz.Plot(shown, fmt.Sprintf("spectrum of %s (0 .. %.4g Hz)", name, freqs[len(shown)]), 80, 12))
		fmt.Println()
	}

	if f := analysis.DominantFrequency(steady, meta.StepSize); f > 0 {
		fmt.Printf("dominant frequency: %.6g Hz\n", f)
		fmt.Printf("period: %.6g s\n", 1/f)
	}

	if ts := metrics.Settling(res.Time, values, metrics.MeanOf(steady), 0.02); !math.IsNaN(ts) {
		fmt.Printf("within 2%% of steady-state mean from: %.6g s\n", ts)
	}

	T := period
	if T == 0 {
		c, err := st.LoadCircuit(runID)
		if err == nil {
			T = switchingPeriod(c)
		}
	}
	if T <= 0 || len(res.Order) < 2 {
		return nil
	}

	sec, err := analysis.Stroboscopic(res, res.Order[0], res.Order[1], T, window)
	if err != nil {
		return err
	}
	distinct := sec.Distinct(1e-3)
	fmt.Printf("\nsampled every %.6g s: %d points, %d distinct\n", T, len(sec.Points), len(distinct))
	switch len(distinct) {
	case 0:
	case 1:
		fmt.Println("periodic at the switching frequency")
	default:
		fmt.Printf("%d distinct states per switching period (subharmonic or not settled)\n", len(distinct))
	}
	fmt.Println(analysis.SectionToASCII(sec, 60, 15))
	return nil
}

func listPresets(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tEND\tSTEP\tDESCRIPTION")
	for _, name := range config.ListPresets() {
		p := config.GetPreset(name)
		fmt.Fprintf(w, "%s\t%gs\t%gs\t%s\n", name, p.EndTime, p.StepSize, p.Description)
	}
	return w.Flush()
}

func listComponents(cmd *cobra.Command, args []string) error {
	lib := circuit.Library()
	groups := make([]string, 0, len(lib))
	for g := range lib {
		groups = append(groups, g)
	}
	sort.Strings(groups)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "GROUP\tTYPE\tNAME\tDEFAULTS")
	for _, g := range groups {
		for _, e := range lib[g] {
			params, _ := json.Marshal(e.Params)
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", g, e.Type, e.Name, params)
		}
	}
	return w.Flush()
}

func serve(cmd *cobra.Command, args []string) error {
	listen := cfg.Server.Addr
	if addr != "" {
		listen = addr
	}

	sink, err := publish.New(cfg.Sink, logger)
	if err != nil {
		return err
	}
	defer sink.Close()

	srv := api.New(api.Options{
		Engine:       newEngine(),
		Defaults:     engine.Params{EndTime: cfg.Simulation.EndTime, StepSize: cfg.Simulation.StepSize},
		MaxEndTime:   cfg.Simulation.MaxEndTime,
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
		DataDir:      filepath.Join(cfg.DataDir, "circuits"),
		Sink:         sink,
		Logger:       logger,
		AccessLog:    os.Stdout,
	})

	ctx, cancel := signalContext()
	defer cancel()
	return srv.ListenAndServe(ctx, listen)
}

func viewStored(cmd *cobra.Command, args []string) error {
	res, err := storage.New(cfg.DataDir).LoadResult(args[0])
	if err != nil {
		return err
	}
	return viz.Run(res)
}

func initConfig(cmd *cobra.Command, args []string) error {
	path := "convsim.yaml"
	if len(args) == 1 {
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
}
