package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"syscall"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/ctrlab/internal/analysis"
	"github.com/san-kum/ctrlab/internal/compens"
	"github.com/san-kum/ctrlab/internal/config"
	"github.com/san-kum/ctrlab/internal/export"
	"github.com/san-kum/ctrlab/internal/jsonx"
	"github.com/san-kum/ctrlab/internal/lti"
	"github.com/san-kum/ctrlab/internal/server"
	"github.com/san-kum/ctrlab/internal/storage"
	"github.com/san-kum/ctrlab/internal/tui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	dataDir     string
	addr        string
	staticDir   string
	openBrowser bool
	configFile  string
	numStr      string
	denStr      string
	phaseMargin float64
	desiredKv   float64
	safety      float64
	asJSON      bool
	saveRun     bool
	svgPath     string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "ctrlab",
		Short: "control system analysis and compensator design lab",
		RunE: func(cmd *cobra.Command, args []string) error {
			return tui.RunInteractive()
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".ctrlab", "data directory")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "run the analysis HTTP server",
		RunE:  runServe,
	}
	serveCmd.Flags().StringVar(&addr, "addr", config.DefaultAddr, "listen address")
	serveCmd.Flags().StringVar(&staticDir, "static", "", "directory of static files to serve at /")
	serveCmd.Flags().BoolVar(&openBrowser, "open", false, "open the browser after startup")
	serveCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")

	analyzeCmd := &cobra.Command{
		Use:   "analyze",
		Short: "analyze a transfer function",
		RunE:  runAnalyze,
	}
	analyzeCmd.Flags().StringVar(&numStr, "num", "1", "numerator coefficients, highest degree first")
	analyzeCmd.Flags().StringVar(&denStr, "den", "1,1,0", "denominator coefficients, highest degree first")
	analyzeCmd.Flags().BoolVar(&asJSON, "json", false, "emit the full JSON report")
	analyzeCmd.Flags().BoolVar(&saveRun, "save", false, "persist the run under the data directory")
	analyzeCmd.Flags().StringVar(&svgPath, "svg", "", "write the step response plot as SVG")

	designCmd := &cobra.Command{
		Use:   "design [lead|lag|laglead]",
		Short: "design a compensator",
		Args:  cobra.ExactArgs(1),
		RunE:  runDesign,
	}
	designCmd.Flags().StringVar(&numStr, "num", "1", "numerator coefficients, highest degree first")
	designCmd.Flags().StringVar(&denStr, "den", "1,1,0", "denominator coefficients, highest degree first")
	designCmd.Flags().Float64Var(&phaseMargin, "pm", 50, "desired phase margin (degrees)")
	designCmd.Flags().Float64Var(&desiredKv, "kv", 10, "desired velocity error constant")
	designCmd.Flags().Float64Var(&safety, "safety", config.DefaultSafety, "safety margin added to the phase lead (degrees)")
	designCmd.Flags().BoolVar(&asJSON, "json", false, "emit the full JSON report")
	designCmd.Flags().BoolVar(&saveRun, "save", false, "persist the run under the data directory")
	designCmd.Flags().StringVar(&svgPath, "svg", "", "write the comparison step plot as SVG")

	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "list saved runs",
		RunE:  listRuns,
	}

	showCmd := &cobra.Command{
		Use:   "show [run_id]",
		Short: "print the saved report of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  showRun,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot the saved response of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	tuiCmd := &cobra.Command{
		Use:   "tui",
		Short: "interactive terminal mode",
		RunE: func(cmd *cobra.Command, args []string) error {
			return tui.RunInteractive()
		},
	}

	rootCmd.AddCommand(serveCmd, analyzeCmd, designCmd, runsCmd, showCmd, plotCmd, tuiCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.DefaultConfig()
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}
	if cmd.Flags().Changed("addr") {
		cfg.Server.Addr = addr
	}
	if cmd.Flags().Changed("static") {
		cfg.Server.StaticDir = staticDir
	}
	if cmd.Flags().Changed("open") {
		cfg.Server.OpenBrowser = openBrowser
	}

	log, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Server.OpenBrowser {
		go openURL("http://" + cfg.Server.Addr)
	}

	return server.New(cfg, log).Start(ctx)
}

// openURL launches the platform browser. Failure is silent; the server
// keeps running either way.
func openURL(url string) {
	var c *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		c = exec.Command("open", url)
	case "windows":
		c = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		c = exec.Command("xdg-open", url)
	}
	_ = c.Start()
}

func parseSystem() (lti.TF, error) {
	num, err := tui.ParseCoeffs(numStr)
	if err != nil {
		return lti.TF{}, err
	}
	den, err := tui.ParseCoeffs(denStr)
	if err != nil {
		return lti.TF{}, err
	}
	return lti.New(num, den)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	sys, err := parseSystem()
	if err != nil {
		return err
	}

	report, err := analysis.AnalyzeTF(sys)
	if err != nil {
		return err
	}

	if asJSON {
		return emitJSON(report)
	}

	fmt.Printf("stability: %s\n", report.Stability.Status)
	for _, p := range report.Stability.Poles {
		fmt.Printf("  pole %s\n", p)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "\nMETRIC\tVALUE")
	fmt.Fprintf(w, "rise time\t%s\n", report.Metrics.RiseTime)
	fmt.Fprintf(w, "peak time\t%s\n", report.Metrics.PeakTime)
	fmt.Fprintf(w, "max overshoot\t%s\n", report.Metrics.MaxOvershoot)
	fmt.Fprintf(w, "settling time (2%%)\t%s\n", report.Metrics.SettlingTime2Pct)
	fmt.Fprintf(w, "settling time (5%%)\t%s\n", report.Metrics.SettlingTime5Pct)
	if err := w.Flush(); err != nil {
		return err
	}

	times, resp, err := sys.Feedback().StepResponse()
	if err == nil && len(resp) > 1 {
		fmt.Println()
		fmt.Println(asciigraph.Plot(resp,
			asciigraph.Height(12),
			asciigraph.Width(80),
			asciigraph.Caption("closed-loop step response"),
		))
	}

	ms := compens.ExtractMargins(sys)
	fmt.Printf("\ngain margin:   %.2f dB\nphase margin:  %.2f deg\n",
		float64(ms.GainMarginDB), float64(ms.PhaseMargin))

	if svgPath != "" && len(resp) > 1 {
		svg := export.CurvesToSVG([]export.Curve{{X: times, Y: resp}}, 800, 400, "closed-loop step response")
		if err := os.WriteFile(svgPath, []byte(svg), 0644); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", svgPath)
	}

	if saveRun {
		st := storage.New(dataDir)
		if err := st.Init(); err != nil {
			return err
		}
		summary := map[string]float64{
			"gain_margin_db":   float64(ms.GainMarginDB),
			"phase_margin_deg": float64(ms.PhaseMargin),
		}
		runID, err := st.Save("analyze", sys.Num, sys.Den, summary, report, times, resp)
		if err != nil {
			return err
		}
		fmt.Printf("run id: %s\n", runID)
	}

	return nil
}

func runDesign(cmd *cobra.Command, args []string) error {
	sys, err := parseSystem()
	if err != nil {
		return err
	}

	var (
		msg   string
		perf  compens.Performance
		plots compens.Plots
		full  any
	)
	switch args[0] {
	case "lead":
		report, err := compens.DesignLead(sys, phaseMargin, safety, compens.DefaultSweep())
		if err != nil {
			return err
		}
		msg, perf, plots, full = report.Message, report.Performance, report.Plots, report
	case "lag":
		report, err := compens.DesignLag(sys, desiredKv, compens.DefaultSweep())
		if err != nil {
			return err
		}
		msg, perf, plots, full = report.Message, report.Performance, report.Plots, report
	case "laglead":
		report, err := compens.DesignLagLead(sys, phaseMargin, desiredKv, safety, compens.DefaultSweep())
		if err != nil {
			return err
		}
		msg, perf, plots, full = report.Message, report.Performance, report.Plots, report
	default:
		return fmt.Errorf("unknown compensator type: %s (want lead, lag, or laglead)", args[0])
	}

	if asJSON {
		return emitJSON(full)
	}

	fmt.Println(msg)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "\nMARGIN\tBEFORE\tAFTER")
	fmt.Fprintf(w, "phase (deg)\t%.2f\t%.2f\n", float64(perf.Before.PhaseMargin), float64(perf.After.PhaseMargin))
	fmt.Fprintf(w, "gain (dB)\t%.2f\t%.2f\n", float64(perf.Before.GainMarginDB), float64(perf.After.GainMarginDB))
	if perf.Before.Kv != nil && perf.After.Kv != nil {
		fmt.Fprintf(w, "kv\t%.2f\t%.2f\n", float64(*perf.Before.Kv), float64(*perf.After.Kv))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	times := unwrapFloats(plots.Step.CompTime)
	resp := unwrapFloats(plots.Step.CompResponse)
	if len(resp) > 1 {
		fmt.Println()
		fmt.Println(asciigraph.Plot(resp,
			asciigraph.Height(12),
			asciigraph.Width(80),
			asciigraph.Caption("compensated closed-loop step response"),
		))
	}

	if svgPath != "" {
		curves := []export.Curve{
			{X: unwrapFloats(plots.Step.UncompTime), Y: unwrapFloats(plots.Step.UncompResponse), Color: "#8888ff"},
			{X: times, Y: resp, Color: "#00ff88"},
		}
		svg := export.CurvesToSVG(curves, 800, 400, "step response: uncompensated vs compensated")
		if err := os.WriteFile(svgPath, []byte(svg), 0644); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", svgPath)
	}

	if saveRun {
		st := storage.New(dataDir)
		if err := st.Init(); err != nil {
			return err
		}
		summary := map[string]float64{
			"phase_margin_before": float64(perf.Before.PhaseMargin),
			"phase_margin_after":  float64(perf.After.PhaseMargin),
		}
		runID, err := st.Save(args[0], sys.Num, sys.Den, summary, full, times, resp)
		if err != nil {
			return err
		}
		fmt.Printf("run id: %s\n", runID)
	}

	return nil
}

func unwrapFloats(xs []jsonx.Float) []float64 {
	out := make([]float64, len(xs))
	for i, v := range xs {
		out[i] = float64(v)
	}
	return out
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
	fmt.Fprintln(w, "ID\tTASK\tTIME\tNUM\tDEN")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%v\t%v\n",
			run.ID,
			run.Task,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Numerator,
			run.Denominator,
		)
	}
	return w.Flush()
}

func showRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	report, err := st.LoadReport(args[0])
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(report)
	return err
}

func plotRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	_, resp, err := st.LoadResponse(args[0])
	if err != nil {
		return err
	}
	if len(resp) < 2 {
		return fmt.Errorf("no response data to plot")
	}

	fmt.Printf("run: %s\ntask: %s\nsamples: %d\n\n", meta.ID, meta.Task, len(resp))
	fmt.Println(asciigraph.Plot(resp,
		asciigraph.Height(12),
		asciigraph.Width(80),
		asciigraph.Caption("saved response"),
	))
	return nil
}

func emitJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
