package backtest

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"amdscan/internal/detector"
	"amdscan/internal/feed"
	"amdscan/pkg/model"
)

// Result contains one full detector run over a single series.
type Result struct {
	RunID   string `json:"run_id"`
	Symbol  string `json:"symbol"`
	Period  string `json:"period"`
	Bars    int    `json:"bars"`
	Skipped int    `json:"skipped_bars"` // malformed bars dropped from the series

	Patterns    []model.Pattern    `json:"patterns"`
	Transitions []model.Transition `json:"transitions"`
	Open        *model.Pattern     `json:"open,omitempty"` // unresolved at feed end
	Stats       Stats              `json:"stats"`
}

// ProgressCallback reports processing progress for batch runs.
type ProgressCallback func(processed, total int)

// Engine drives one detector per run over a bar series, applying the
// per-bar skip-and-continue policy for malformed bars.
type Engine struct {
	cfg detector.Config
	log zerolog.Logger
}

// NewEngine creates an engine. The logger carries the transition stream.
func NewEngine(cfg detector.Config, log zerolog.Logger) *Engine {
	return &Engine{cfg: cfg, log: log}
}

// Run processes a full historical batch.
func (e *Engine) Run(ctx context.Context, symbol string, bars []model.Bar) (*Result, error) {
	return e.RunWithProgress(ctx, symbol, bars, nil)
}

// RunWithProgress processes a full historical batch, reporting progress
// after each bar.
func (e *Engine) RunWithProgress(ctx context.Context, symbol string, bars []model.Bar, progress ProgressCallback) (*Result, error) {
	det, result, err := e.newRun(symbol)
	if err != nil {
		return nil, err
	}

	var prev *model.Bar
	for n := range bars {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		e.processBar(det, result, bars[n], &prev)

		if progress != nil {
			progress(n+1, len(bars))
		}
	}

	e.finish(det, result)
	return result, nil
}

// RunStream consumes bars incrementally as they close (live mode). Given
// the same sequence, the pattern history is identical to a batch run.
func (e *Engine) RunStream(ctx context.Context, symbol string, bars <-chan model.Bar) (*Result, error) {
	det, result, err := e.newRun(symbol)
	if err != nil {
		return nil, err
	}

	var prev *model.Bar
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case bar, ok := <-bars:
			if !ok {
				e.finish(det, result)
				return result, nil
			}
			e.processBar(det, result, bar, &prev)
		}
	}
}

func (e *Engine) newRun(symbol string) (*detector.Detector, *Result, error) {
	log := e.log.With().Str("symbol", symbol).Logger()
	det, err := detector.New(e.cfg, log)
	if err != nil {
		return nil, nil, fmt.Errorf("run %s: %w", symbol, err)
	}
	return det, &Result{RunID: uuid.NewString(), Symbol: symbol}, nil
}

func (e *Engine) processBar(det *detector.Detector, result *Result, bar model.Bar, prev **model.Bar) {
	if err := feed.ValidateBar(bar, *prev); err != nil {
		result.Skipped++
		e.log.Warn().Str("symbol", result.Symbol).Err(err).Msg("skipping malformed bar")
		return
	}

	accepted := bar
	*prev = &accepted

	if result.Period == "" {
		result.Period = bar.Time.Format("2006-01-02")
	}
	result.Period = result.Period[:10] + " ~ " + bar.Time.Format("2006-01-02")

	result.Transitions = append(result.Transitions, det.ProcessBar(bar)...)
}

func (e *Engine) finish(det *detector.Detector, result *Result) {
	result.Bars = det.BarCount()
	result.Patterns = det.Patterns()
	result.Open = det.ActivePattern()
	result.Stats = Compute(result.Patterns)
}
