package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/rs/zerolog"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"amdscan/internal/backtest"
	"amdscan/internal/config"
	"amdscan/internal/detector"
	"amdscan/internal/feed"
	"amdscan/internal/scanner"
	"amdscan/pkg/model"
)

var (
	cfgFile      string
	csvPath      string
	symbolList   string
	profile      string
	breakout     string
	atrWindow    int
	expandMult   float64
	targetMethod string
	tpPct        float64
	slPct        float64
	riskTier     string
	slMult       float64
	riskReward   float64
	workers      int
	format       string
	outCSV       string
	replay       bool
	replayRate   float64
	verbose      bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "amdscan",
		Short: "Accumulation-Manipulation-Distribution pattern backtester",
		Long: `Amdscan scans OHLC bar series for the three-phase AMD market
structure pattern (accumulation range, liquidity sweep, reversal entry),
simulates outcomes and aggregates backtest statistics.

Profiles:
  SmallManipulation  - 40-bar accumulation, tight sweep margin
  ShortAccumulation  - 11-bar accumulation
  BigManipulation    - 40-bar accumulation, wide sweep margin

Examples:
  amdscan --csv data/XAUUSD.csv --profile ShortAccumulation
  amdscan --csv data/ --symbols EURUSD,GBPUSD --target Fixed --tp 0.3 --sl 0.4
  amdscan --csv data/XAUUSD.csv --replay`,
		RunE: run,
	}

	rootCmd.Flags().StringVar(&cfgFile, "config", "config.yaml", "config file path")
	rootCmd.Flags().StringVar(&csvPath, "csv", "", "CSV bar file or directory of <symbol>.csv files")
	rootCmd.Flags().StringVar(&symbolList, "symbols", "", "comma-separated list of symbols (default: all in --csv dir)")
	rootCmd.Flags().StringVar(&profile, "profile", "", "detection profile: SmallManipulation, ShortAccumulation, BigManipulation")
	rootCmd.Flags().StringVar(&breakout, "breakout", "", "breakout method: Close, Wick")
	rootCmd.Flags().IntVar(&atrWindow, "atr-window", 0, "ATR window length in bars")
	rootCmd.Flags().Float64Var(&expandMult, "expand", 0, "range boundary expansion multiplier (x ATR)")
	rootCmd.Flags().StringVar(&targetMethod, "target", "", "target method: Fixed, Dynamic")
	rootCmd.Flags().Float64Var(&tpPct, "tp", 0, "take-profit percent (Fixed)")
	rootCmd.Flags().Float64Var(&slPct, "sl", 0, "stop-loss percent (Fixed)")
	rootCmd.Flags().StringVar(&riskTier, "risk-tier", "", "risk tier: Highest, High, Normal, Low, Lowest, Custom")
	rootCmd.Flags().Float64Var(&slMult, "sl-multiplier", 0, "custom ATR stop-loss multiplier (risk-tier Custom)")
	rootCmd.Flags().Float64Var(&riskReward, "rr", 0, "risk:reward ratio (Dynamic)")
	rootCmd.Flags().IntVar(&workers, "workers", 0, "number of parallel workers for multi-symbol scans")
	rootCmd.Flags().StringVar(&format, "format", "table", "output format: table, json")
	rootCmd.Flags().StringVar(&outCSV, "out", "", "write resolved patterns to a CSV file")
	rootCmd.Flags().BoolVar(&replay, "replay", false, "also replay the series incrementally and verify batch parity")
	rootCmd.Flags().Float64Var(&replayRate, "replay-rate", 500, "replay pace in bars per second")
	rootCmd.Flags().BoolVar(&verbose, "verbose", false, "log pattern lifecycle transitions")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	applyFlagOverrides(cmd, cfg)

	detCfg, err := cfg.Detector.Resolve()
	if err != nil {
		return fmt.Errorf("resolving detector config: %w", err)
	}

	log, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}

	if csvPath == "" {
		return fmt.Errorf("--csv is required (bar file or directory)")
	}
	source := feed.NewCSVSource(csvPath)

	symbols, err := resolveSymbols(source)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nInterrupted. Stopping...")
		cancel()
	}()

	if len(symbols) > 1 {
		return runScan(ctx, cfg, detCfg, source, symbols, log)
	}
	return runSingle(ctx, detCfg, source, symbols[0], log)
}

// applyFlagOverrides lets CLI flags win over the config file.
func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config) {
	if profile != "" {
		cfg.Detector.Profile = profile
	}
	if breakout != "" {
		cfg.Detector.BreakoutMethod = breakout
	}
	if atrWindow > 0 {
		cfg.Detector.ATRWindow = atrWindow
	}
	if cmd.Flags().Changed("expand") {
		cfg.Detector.ExpandMultiplier = expandMult
	}
	if targetMethod != "" {
		cfg.Detector.Target.Method = targetMethod
	}
	if cmd.Flags().Changed("tp") {
		cfg.Detector.Target.TPPercent = tpPct
	}
	if cmd.Flags().Changed("sl") {
		cfg.Detector.Target.SLPercent = slPct
	}
	if riskTier != "" {
		cfg.Detector.Target.RiskTier = riskTier
	}
	if cmd.Flags().Changed("sl-multiplier") {
		cfg.Detector.Target.CustomSLMultiplier = slMult
	}
	if cmd.Flags().Changed("rr") {
		cfg.Detector.Target.RiskRewardRatio = riskReward
	}
	if workers > 0 {
		cfg.Scanner.Workers = workers
	}
	if verbose {
		cfg.Log.Level = "info"
	}
}

func newLogger(cfg config.Log) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("invalid log level: %w", err)
	}

	var out = os.Stderr
	var log zerolog.Logger
	if cfg.Format == "console" {
		log = zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"})
	} else {
		log = zerolog.New(out)
	}
	return log.Level(level).With().Timestamp().Logger(), nil
}

func resolveSymbols(source feed.Source) ([]string, error) {
	if symbolList != "" {
		var symbols []string
		for _, s := range strings.Split(symbolList, ",") {
			if s = strings.TrimSpace(s); s != "" {
				symbols = append(symbols, s)
			}
		}
		return symbols, nil
	}

	symbols, err := source.Symbols()
	if err != nil {
		return nil, fmt.Errorf("listing symbols: %w", err)
	}
	if len(symbols) == 0 {
		return nil, fmt.Errorf("no bar series found at %s", csvPath)
	}
	return symbols, nil
}

func runSingle(ctx context.Context, detCfg detector.Config, source feed.Source, symbol string, log zerolog.Logger) error {
	bars, err := source.Bars(ctx, symbol)
	if err != nil {
		return fmt.Errorf("loading bars: %w", err)
	}

	engine := backtest.NewEngine(detCfg, log)

	bar := newProgressBar(len(bars), "Processing")
	result, err := engine.RunWithProgress(ctx, symbol, bars, func(processed, total int) {
		bar.Set(processed)
	})
	if err != nil {
		return err
	}
	bar.Finish()
	fmt.Println()

	if replay {
		streamResult, err := engine.RunStream(ctx, symbol, feed.Replay(ctx, bars, replayRate))
		if err != nil {
			return err
		}
		if err := verifyParity(result, streamResult); err != nil {
			return err
		}
		fmt.Printf("Replay parity OK: %d resolved patterns identical between batch and incremental runs\n\n",
			streamResult.Stats.Total)
	}

	if outCSV != "" {
		if err := backtest.WriteCSV(result.Patterns, outCSV); err != nil {
			return fmt.Errorf("writing %s: %w", outCSV, err)
		}
		fmt.Printf("Wrote resolved patterns to %s\n", outCSV)
	}

	if format == "json" {
		return outputJSON(result)
	}
	outputResultTable(result)
	return nil
}

func runScan(ctx context.Context, cfg *config.Config, detCfg detector.Config, source feed.Source, symbols []string, log zerolog.Logger) error {
	fmt.Printf("Backtesting %d symbols...\n\n", len(symbols))

	s := scanner.NewScanner(source, detCfg, log, cfg.Scanner.Workers, cfg.Scanner.Timeout)

	bar := newProgressBar(len(symbols), "Scanning")
	s.SetProgressCallback(func(scanned, total int) {
		bar.Set(scanned)
	})

	result, err := s.Scan(ctx, symbols)
	if err != nil {
		return fmt.Errorf("scanning: %w", err)
	}
	bar.Finish()
	fmt.Println()

	if outCSV != "" {
		var all []model.Pattern
		for _, r := range result.Results {
			all = append(all, r.Patterns...)
		}
		if err := backtest.WriteCSV(all, outCSV); err != nil {
			return fmt.Errorf("writing %s: %w", outCSV, err)
		}
		fmt.Printf("Wrote resolved patterns to %s\n", outCSV)
	}

	if format == "json" {
		return outputJSON(result)
	}
	outputScanTable(result)
	return nil
}

// verifyParity checks that batch and incremental runs produced the same
// resolved pattern history.
func verifyParity(batch, stream *backtest.Result) error {
	a := resolvedOf(batch)
	b := resolvedOf(stream)
	if len(a) != len(b) {
		return fmt.Errorf("replay parity violation: %d resolved patterns in batch, %d in stream", len(a), len(b))
	}
	for i := range a {
		if a[i].EntryPrice != b[i].EntryPrice || a[i].ExitPrice != b[i].ExitPrice || a[i].Outcome != b[i].Outcome {
			return fmt.Errorf("replay parity violation at pattern %d: batch %+v vs stream %+v", a[i].ID, a[i], b[i])
		}
	}
	return nil
}

func resolvedOf(r *backtest.Result) []model.Pattern {
	var out []model.Pattern
	for _, p := range r.Patterns {
		if p.State == model.StateResolved {
			out = append(out, p)
		}
	}
	return out
}

func newProgressBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]█[reset]",
			SaucerHead:    "[green]█[reset]",
			SaucerPadding: "░",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}

func outputResultTable(result *backtest.Result) {
	fmt.Printf("[%s] %s  (%d bars", result.Symbol, result.Period, result.Bars)
	if result.Skipped > 0 {
		fmt.Printf(", %d malformed skipped", result.Skipped)
	}
	fmt.Printf(")  run %s\n\n", result.RunID)

	s := result.Stats
	summary := tablewriter.NewTable(os.Stdout,
		tablewriter.WithHeader([]string{"Patterns", "Wins", "Losses", "Win Rate", "Avg Return", "Cum Return"}),
	)
	summary.Append([]string{
		fmt.Sprintf("%d", s.Total),
		fmt.Sprintf("%d", s.Wins),
		fmt.Sprintf("%d", s.Losses),
		fmt.Sprintf("%.1f%%", s.WinRate),
		fmt.Sprintf("%+.2f%%", s.AvgReturnPct),
		fmt.Sprintf("%+.2f%%", s.CumulativeReturnPct),
	})
	summary.Render()

	resolved := resolvedOf(result)
	if len(resolved) == 0 {
		fmt.Println("\nNo resolved patterns.")
		if result.Open != nil {
			fmt.Printf("One pattern still %s at feed end (excluded from stats).\n", result.Open.State)
		}
		return
	}

	fmt.Println()
	table := tablewriter.NewTable(os.Stdout,
		tablewriter.WithHeader([]string{"ID", "Dir", "Entry", "Exit", "Stop", "Target", "Outcome", "Return"}),
	)
	for _, p := range resolved {
		table.Append([]string{
			fmt.Sprintf("%d", p.ID),
			string(p.Direction),
			fmt.Sprintf("%.4f", p.EntryPrice),
			fmt.Sprintf("%.4f", p.ExitPrice),
			fmt.Sprintf("%.4f", p.StopLoss),
			fmt.Sprintf("%.4f", p.TakeProfit),
			string(p.Outcome),
			fmt.Sprintf("%+.2f%%", p.ReturnPct()),
		})
	}
	table.Render()

	if result.Open != nil {
		fmt.Printf("\nOne pattern still %s at feed end (excluded from stats).\n", result.Open.State)
	}
}

func outputScanTable(result *scanner.ScanResult) {
	fmt.Printf("Scanned %d symbols in %s", result.TotalScanned, result.ScanTime.Round(10*time.Millisecond))
	if result.Failed > 0 {
		fmt.Printf(" (%d failed)", result.Failed)
	}
	fmt.Print("\n\n")

	table := tablewriter.NewTable(os.Stdout,
		tablewriter.WithHeader([]string{"Symbol", "Bars", "Patterns", "Win Rate", "Avg Return", "Cum Return"}),
	)
	for _, r := range result.Results {
		table.Append([]string{
			r.Symbol,
			fmt.Sprintf("%d", r.Bars),
			fmt.Sprintf("%d", r.Stats.Total),
			fmt.Sprintf("%.1f%%", r.Stats.WinRate),
			fmt.Sprintf("%+.2f%%", r.Stats.AvgReturnPct),
			fmt.Sprintf("%+.2f%%", r.Stats.CumulativeReturnPct),
		})
	}
	table.Render()

	for sym, msg := range result.Errors {
		fmt.Printf("  %s: %s\n", sym, msg)
	}
}

func outputJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
