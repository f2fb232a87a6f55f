package detector

import (
	"fmt"

	"github.com/rs/zerolog"

	"amdscan/pkg/model"
)

// Config holds the resolved detector parameters. Profile names are
// translated into these concrete values by the config package; the
// detector itself only sees numbers.
type Config struct {
	Lookback         int     // accumulation window length, in bars
	AccumulationMult float64 // compression threshold = ATR * this
	ManipulationMult float64 // sweep margin = ATR * this
	ExpandMult       float64 // range boundary buffer = ATR * this
	ATRWindow        int
	Breakout         model.BreakoutMethod
	Target           TargetConfig
	RecentLimit      int // bounded recently-active index for reporting
}

// Validate rejects configurations that cannot produce meaningful
// thresholds. Fatal for the run.
func (c Config) Validate() error {
	if c.Lookback <= 0 {
		return fmt.Errorf("lookback must be positive, got %d", c.Lookback)
	}
	if c.AccumulationMult <= 0 {
		return fmt.Errorf("accumulation multiplier must be positive, got %v", c.AccumulationMult)
	}
	if c.ManipulationMult <= 0 {
		return fmt.Errorf("manipulation multiplier must be positive, got %v", c.ManipulationMult)
	}
	if c.ExpandMult <= 0 {
		return fmt.Errorf("expand multiplier must be positive, got %v", c.ExpandMult)
	}
	if c.ATRWindow <= 0 {
		return fmt.Errorf("atr window must be positive, got %d", c.ATRWindow)
	}
	if c.Breakout != model.BreakoutClose && c.Breakout != model.BreakoutWick {
		return fmt.Errorf("unknown breakout method %q", c.Breakout)
	}
	return c.Target.Validate()
}

// Detector owns the full per-instrument scan state: the bar history, the
// single active pattern slot and the pattern arena. It has no package
// level state, so independent instruments get independent detectors and
// may be processed in parallel.
//
// Bars must be fed oldest first, one call per confirmed bar. Feeding the
// same series in one loop (batch) or bar-by-bar as bars close (live)
// goes through the identical code path and yields identical histories.
type Detector struct {
	cfg Config
	log zerolog.Logger

	bars   []model.Bar
	state  model.PatternState
	active *model.Pattern
	arena  *Arena
}

// New creates a detector. The logger receives the lifecycle transition
// stream; pass zerolog.Nop() to silence it.
func New(cfg Config, log zerolog.Logger) (*Detector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("detector config: %w", err)
	}
	return &Detector{
		cfg:   cfg,
		log:   log,
		state: model.StateIdle,
		arena: NewArena(cfg.RecentLimit),
	}, nil
}

// ProcessBar ingests the next confirmed bar and returns the lifecycle
// transitions it produced, in order. The bar's Index is assigned here
// (monotonic, 0 = oldest).
func (d *Detector) ProcessBar(bar model.Bar) []model.Transition {
	bar.Index = len(d.bars)
	d.bars = append(d.bars, bar)
	i := bar.Index

	atr, err := AverageTrueRange(d.bars, i, d.cfg.ATRWindow)
	if err != nil {
		// Only reachable during warmup: every state past Idle required a
		// ready ATR to enter, and history never shrinks.
		return nil
	}

	var ts []model.Transition

	switch d.state {
	case model.StateIdle:
		d.tryConfirmRange(i, atr, &ts)

	case model.StateRangeConfirmed:
		if d.checkBreakout(i, &ts) {
			// The breakout bar may already clear the manipulation margin.
			d.checkManipulation(i, atr, &ts)
		} else {
			d.slideRange(i, atr)
		}

	case model.StateWaitingManipulation:
		d.checkManipulation(i, atr, &ts)

	case model.StateEntrySignaled:
		d.openPattern(i, atr, &ts)

	case model.StateOpen:
		d.checkOutcome(i, &ts)
	}

	return ts
}

// tryConfirmRange opens a new pattern when the accumulation condition
// holds and no pattern is active.
func (d *Detector) tryConfirmRange(i int, atr float64, ts *[]model.Transition) {
	rng, ok := FindRange(d.bars, i, d.cfg.Lookback, atr, d.cfg.AccumulationMult, d.cfg.ExpandMult)
	if !ok {
		return
	}

	p := &model.Pattern{
		State:   model.StateRangeConfirmed,
		Range:   rng,
		Outcome: model.OutcomePending,
	}
	d.arena.Add(p)
	d.active = p
	d.transition(i, model.StateIdle, model.StateRangeConfirmed, ts)
}

// checkBreakout tests the current bar against the (pre-margin) range
// boundaries. A breakout freezes the range end at the breakout bar.
func (d *Detector) checkBreakout(i int, ts *[]model.Transition) bool {
	hi, lo := d.extremes(i)
	rng := &d.active.Range

	if hi <= rng.Top && lo >= rng.Bottom {
		return false
	}

	rng.EndIndex = i
	d.transition(i, model.StateRangeConfirmed, model.StateWaitingManipulation, ts)
	return true
}

// slideRange re-tests the compression condition over the advanced window.
// While compression holds the range re-locks onto the new window; when it
// fails the confirmed boundaries persist (the wait for a breakout is
// open-ended) and only the provisional end index advances.
func (d *Detector) slideRange(i int, atr float64) {
	if rng, ok := FindRange(d.bars, i, d.cfg.Lookback, atr, d.cfg.AccumulationMult, d.cfg.ExpandMult); ok {
		d.active.Range = rng
		return
	}
	d.active.Range.EndIndex = i - 1
}

// checkManipulation tests the sweep margins. The bullish side (above the
// range) is checked before the bearish side; a bar crossing both margins
// resolves bullish.
func (d *Detector) checkManipulation(i int, atr float64, ts *[]model.Transition) {
	hi, lo := d.extremes(i)
	margin := atr * d.cfg.ManipulationMult
	rng := d.active.Range

	var sweep model.SweepDirection
	var extreme float64

	switch {
	case hi > rng.Top+margin:
		sweep = model.SweepBullish
		extreme = hi
	case lo < rng.Bottom-margin:
		sweep = model.SweepBearish
		extreme = lo
	default:
		return
	}

	d.active.Manipulation = &model.ManipulationEvent{
		Direction:    sweep,
		TriggerIndex: i,
		ExtremePrice: extreme,
	}
	d.active.Direction = sweep.EntryDirection()
	d.transition(i, model.StateWaitingManipulation, model.StateEntrySignaled, ts)
}

// openPattern fills the entry on the bar after the signal at that bar's
// close and computes the targets.
func (d *Detector) openPattern(i int, atr float64, ts *[]model.Transition) {
	bar := d.bars[i]
	p := d.active

	p.EntryIndex = i
	p.EntryTime = bar.Time
	p.EntryPrice = bar.Close
	p.StopLoss, p.TakeProfit = ComputeTargets(d.cfg.Target, p.Direction, p.EntryPrice, atr)
	d.transition(i, model.StateEntrySignaled, model.StateOpen, ts)
}

// checkOutcome tests both target crossings for the current bar using the
// method-specific comparison rules. When a single bar crosses both
// targets the stop-loss wins (pessimistic intrabar fill).
func (d *Detector) checkOutcome(i int, ts *[]model.Transition) {
	bar := d.bars[i]
	p := d.active

	var tpHit, slHit bool
	switch d.cfg.Target.Method {
	case model.TargetFixed:
		// Percentage excursion from entry, matching how the levels were set.
		if p.Direction == model.DirectionLong {
			tpHit = (bar.High-p.EntryPrice)/p.EntryPrice*100 >= d.cfg.Target.TPPercent
			slHit = (p.EntryPrice-bar.Low)/p.EntryPrice*100 >= d.cfg.Target.SLPercent
		} else {
			tpHit = (p.EntryPrice-bar.Low)/p.EntryPrice*100 >= d.cfg.Target.TPPercent
			slHit = (bar.High-p.EntryPrice)/p.EntryPrice*100 >= d.cfg.Target.SLPercent
		}
	case model.TargetDynamic:
		// Price against the absolute levels.
		if p.Direction == model.DirectionLong {
			tpHit = bar.High >= p.TakeProfit
			slHit = bar.Low <= p.StopLoss
		} else {
			tpHit = bar.Low <= p.TakeProfit
			slHit = bar.High >= p.StopLoss
		}
	}

	switch {
	case slHit:
		d.resolve(i, bar, model.OutcomeStopLoss, p.StopLoss, ts)
	case tpHit:
		d.resolve(i, bar, model.OutcomeTakeProfit, p.TakeProfit, ts)
	}
}

// resolve terminates the active pattern and frees the active slot. A new
// range may confirm from the next bar on.
func (d *Detector) resolve(i int, bar model.Bar, outcome model.Outcome, exitPrice float64, ts *[]model.Transition) {
	p := d.active
	p.ExitIndex = i
	p.ExitTime = bar.Time
	p.ExitPrice = exitPrice
	p.Outcome = outcome
	d.transition(i, model.StateOpen, model.StateResolved, ts)
	d.active = nil
	d.state = model.StateIdle
}

// extremes returns the prices compared against boundaries for the bar at
// index i: high/low for the Wick method, close for both sides otherwise.
func (d *Detector) extremes(i int) (hi, lo float64) {
	bar := d.bars[i]
	if d.cfg.Breakout == model.BreakoutWick {
		return bar.High, bar.Low
	}
	return bar.Close, bar.Close
}

// transition advances the active pattern and detector state, records the
// step and logs it.
func (d *Detector) transition(barIdx int, from, to model.PatternState, ts *[]model.Transition) {
	p := d.active
	p.State = to
	if to != model.StateResolved {
		d.state = to
	}

	tr := model.Transition{
		PatternID: p.ID,
		From:      from,
		To:        to,
		BarIndex:  barIdx,
		Time:      d.bars[barIdx].Time,
	}
	*ts = append(*ts, tr)

	ev := d.log.Info().
		Int("pattern", p.ID).
		Str("from", string(from)).
		Str("to", string(to)).
		Int("bar", barIdx)
	if to == model.StateResolved {
		ev = ev.Str("outcome", string(p.Outcome)).Float64("exit", p.ExitPrice)
	}
	ev.Msg("pattern transition")
}

// State returns the detector's current machine state.
func (d *Detector) State() model.PatternState {
	return d.state
}

// ActivePattern returns a copy of the in-flight pattern, or nil.
func (d *Detector) ActivePattern() *model.Pattern {
	if d.active == nil {
		return nil
	}
	p := *d.active
	return &p
}

// Patterns returns every pattern ever created, oldest first.
func (d *Detector) Patterns() []model.Pattern {
	return d.arena.All()
}

// Resolved returns resolved patterns only, oldest first.
func (d *Detector) Resolved() []model.Pattern {
	return d.arena.Resolved()
}

// Recent returns up to n recently created patterns for reporting.
func (d *Detector) Recent(n int) []model.Pattern {
	return d.arena.Recent(n)
}

// BarCount returns the number of bars ingested so far.
func (d *Detector) BarCount() int {
	return len(d.bars)
}
