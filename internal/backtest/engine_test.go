package backtest

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"amdscan/internal/detector"
	"amdscan/internal/feed"
	"amdscan/pkg/model"
)

func testConfig() detector.Config {
	return detector.Config{
		Lookback:         5,
		AccumulationMult: 3.0,
		ManipulationMult: 1.0,
		ExpandMult:       0.5,
		ATRWindow:        3,
		Breakout:         model.BreakoutWick,
		Target: detector.TargetConfig{
			Method:    model.TargetFixed,
			TPPercent: 1.0,
			SLPercent: 1.0,
		},
		RecentLimit: 50,
	}
}

func barAt(i int, high, low, close float64) model.Bar {
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	return model.Bar{
		Time:  base.Add(time.Duration(i) * time.Minute),
		Open:  close,
		High:  high,
		Low:   low,
		Close: close,
	}
}

// lifecycleSeries produces one complete pattern per 10-bar block: flat
// accumulation, breakout, bullish sweep, short entry, take-profit.
func lifecycleSeries(blocks int) []model.Bar {
	var bars []model.Bar
	i := 0
	next := func(high, low, close float64) {
		bars = append(bars, barAt(i, high, low, close))
		i++
	}
	for b := 0; b < blocks; b++ {
		for k := 0; k < 6; k++ {
			next(101, 99, 100)
		}
		next(104, 99, 103.5)
		next(106, 103, 105)
		next(105, 103, 104)
		next(104.4, 102, 103)
	}
	return bars
}

func TestEngineRunResolvesPatterns(t *testing.T) {
	e := NewEngine(testConfig(), zerolog.Nop())

	result, err := e.Run(context.Background(), "TEST", lifecycleSeries(3))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if result.Symbol != "TEST" || result.RunID == "" {
		t.Errorf("Expected tagged result, got symbol %q run %q", result.Symbol, result.RunID)
	}
	if result.Bars != 30 || result.Skipped != 0 {
		t.Errorf("Expected 30 bars, 0 skipped, got %d/%d", result.Bars, result.Skipped)
	}
	if result.Stats.Total != 3 || result.Stats.Wins != 3 {
		t.Errorf("Expected 3 wins, got %+v", result.Stats)
	}
	if result.Open != nil {
		t.Errorf("Expected no open pattern at feed end, got %+v", result.Open)
	}
	// 5 transitions per full lifecycle.
	if len(result.Transitions) != 15 {
		t.Errorf("Expected 15 transitions, got %d", len(result.Transitions))
	}
	if result.Period == "" {
		t.Error("Expected period to be populated")
	}
}

func TestEngineSkipsMalformedBars(t *testing.T) {
	bars := lifecycleSeries(1)
	// Inverted bar, then a timestamp replay of its predecessor.
	bad1 := barAt(100, 95, 105, 100)
	bad2 := bars[2]
	bars = append(bars[:3], append([]model.Bar{bad1, bad2}, bars[3:]...)...)

	e := NewEngine(testConfig(), zerolog.Nop())
	result, err := e.Run(context.Background(), "TEST", bars)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if result.Skipped != 2 {
		t.Errorf("Expected 2 skipped bars, got %d", result.Skipped)
	}
	if result.Bars != 10 {
		t.Errorf("Expected 10 accepted bars, got %d", result.Bars)
	}
	// The surviving series is the original one: the pattern still resolves.
	if result.Stats.Total != 1 || result.Stats.Wins != 1 {
		t.Errorf("Expected pattern unaffected by skipped bars, got %+v", result.Stats)
	}
}

func TestEngineStreamMatchesBatch(t *testing.T) {
	bars := lifecycleSeries(2)
	e := NewEngine(testConfig(), zerolog.Nop())

	batch, err := e.Run(context.Background(), "TEST", bars)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	streamed, err := e.RunStream(context.Background(), "TEST", feed.Replay(context.Background(), bars, 5000))
	if err != nil {
		t.Fatalf("RunStream: %v", err)
	}

	if !reflect.DeepEqual(batch.Patterns, streamed.Patterns) {
		t.Errorf("Pattern history diverged:\nbatch:  %+v\nstream: %+v", batch.Patterns, streamed.Patterns)
	}
	if !reflect.DeepEqual(batch.Transitions, streamed.Transitions) {
		t.Error("Transition history diverged between batch and stream runs")
	}
	if batch.Stats != streamed.Stats {
		t.Errorf("Stats diverged: %+v vs %+v", batch.Stats, streamed.Stats)
	}
}

func TestEngineRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := NewEngine(testConfig(), zerolog.Nop())
	if _, err := e.Run(ctx, "TEST", lifecycleSeries(1)); err == nil {
		t.Error("Expected context error from cancelled run")
	}
}

func TestEngineProgressCallback(t *testing.T) {
	bars := lifecycleSeries(1)
	e := NewEngine(testConfig(), zerolog.Nop())

	var calls, lastProcessed, lastTotal int
	_, err := e.RunWithProgress(context.Background(), "TEST", bars, func(processed, total int) {
		calls++
		lastProcessed, lastTotal = processed, total
	})
	if err != nil {
		t.Fatalf("RunWithProgress: %v", err)
	}
	if calls != len(bars) || lastProcessed != len(bars) || lastTotal != len(bars) {
		t.Errorf("Expected %d progress calls ending at %d/%d, got %d ending at %d/%d",
			len(bars), len(bars), len(bars), calls, lastProcessed, lastTotal)
	}
}

func TestWriteCSV(t *testing.T) {
	e := NewEngine(testConfig(), zerolog.Nop())
	result, err := e.Run(context.Background(), "TEST", lifecycleSeries(2))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	path := filepath.Join(t.TempDir(), "trades.csv")
	if err := WriteCSV(result.Patterns, path); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("Expected header + 2 trades, got %d rows", len(rows))
	}
	if rows[0][0] != "id" || rows[0][8] != "outcome" {
		t.Errorf("Unexpected header: %v", rows[0])
	}
	if rows[1][1] != "Short" || rows[1][8] != "TakeProfit" {
		t.Errorf("Unexpected trade row: %v", rows[1])
	}
}
