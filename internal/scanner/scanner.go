package scanner

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"amdscan/internal/backtest"
	"amdscan/internal/detector"
	"amdscan/internal/feed"
)

// ProgressCallback is called with progress updates.
type ProgressCallback func(scanned, total int)

// ScanResult aggregates independent per-symbol backtests.
type ScanResult struct {
	TotalScanned int               `json:"total_scanned"`
	Failed       int               `json:"failed"`
	Results      []backtest.Result `json:"results"`
	Errors       map[string]string `json:"errors,omitempty"`
	ScanTime     time.Duration     `json:"scan_time"`
}

// Scanner runs backtests across symbols in parallel. Every worker builds
// an independent detector per symbol; no range/ATR/pattern state is
// shared between instruments.
type Scanner struct {
	source       feed.Source
	cfg          detector.Config
	log          zerolog.Logger
	workers      int
	timeout      time.Duration
	progressFunc ProgressCallback
}

// NewScanner creates a scanner.
func NewScanner(source feed.Source, cfg detector.Config, log zerolog.Logger, workers int, timeout time.Duration) *Scanner {
	if workers < 1 {
		workers = 1
	}
	return &Scanner{
		source:  source,
		cfg:     cfg,
		log:     log,
		workers: workers,
		timeout: timeout,
	}
}

// SetProgressCallback sets the progress callback function.
func (s *Scanner) SetProgressCallback(fn ProgressCallback) {
	s.progressFunc = fn
}

// Scan backtests every symbol and returns the aggregate, sorted by
// cumulative return descending.
func (s *Scanner) Scan(ctx context.Context, symbols []string) (*ScanResult, error) {
	startTime := time.Now()

	result := &ScanResult{
		TotalScanned: len(symbols),
		Errors:       make(map[string]string),
	}
	if len(symbols) == 0 {
		result.ScanTime = time.Since(startTime)
		return result, nil
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	jobChan := make(chan string, len(symbols))
	for _, sym := range symbols {
		jobChan <- sym
	}
	close(jobChan)

	type symbolResult struct {
		symbol string
		res    *backtest.Result
		err    error
	}
	resultChan := make(chan symbolResult, len(symbols))

	var scannedCount int64

	var wg sync.WaitGroup
	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			engine := backtest.NewEngine(s.cfg, s.log)

			for sym := range jobChan {
				select {
				case <-ctx.Done():
					return
				default:
				}

				res, err := s.runSymbol(ctx, engine, sym)
				resultChan <- symbolResult{symbol: sym, res: res, err: err}

				count := atomic.AddInt64(&scannedCount, 1)
				if s.progressFunc != nil {
					s.progressFunc(int(count), len(symbols))
				}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	for sr := range resultChan {
		if sr.err != nil {
			result.Failed++
			result.Errors[sr.symbol] = sr.err.Error()
			continue
		}
		result.Results = append(result.Results, *sr.res)
	}

	sort.Slice(result.Results, func(i, j int) bool {
		return result.Results[i].Stats.CumulativeReturnPct > result.Results[j].Stats.CumulativeReturnPct
	})

	result.ScanTime = time.Since(startTime)
	return result, nil
}

func (s *Scanner) runSymbol(ctx context.Context, engine *backtest.Engine, symbol string) (*backtest.Result, error) {
	bars, err := s.source.Bars(ctx, symbol)
	if err != nil {
		return nil, err
	}
	return engine.Run(ctx, symbol, bars)
}
