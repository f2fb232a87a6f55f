package model

import "time"

// Bar represents a single confirmed (closed) OHLCV bar.
// Index is assigned at ingestion and is monotonic with 0 = oldest bar.
// Bars are immutable once ingested.
type Bar struct {
	Index  int       `json:"index"`
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// PatternState is the lifecycle state of a pattern
type PatternState string

const (
	StateIdle                PatternState = "Idle"
	StateRangeConfirmed      PatternState = "RangeConfirmed"
	StateWaitingManipulation PatternState = "WaitingManipulation"
	StateEntrySignaled       PatternState = "EntrySignaled"
	StateOpen                PatternState = "Open"
	StateResolved            PatternState = "Resolved"
)

// Direction is the trade direction of a pattern entry
type Direction string

const (
	DirectionLong  Direction = "Long"
	DirectionShort Direction = "Short"
)

// SweepDirection is the direction of a liquidity sweep (manipulation)
type SweepDirection string

const (
	SweepBullish SweepDirection = "Bullish"
	SweepBearish SweepDirection = "Bearish"
)

// EntryDirection returns the trade direction taken against the sweep:
// a bullish sweep above the range is faded with a short, a bearish
// sweep below the range is faded with a long.
func (d SweepDirection) EntryDirection() Direction {
	if d == SweepBullish {
		return DirectionShort
	}
	return DirectionLong
}

// Outcome is the terminal result of a pattern
type Outcome string

const (
	OutcomePending    Outcome = "Pending"
	OutcomeTakeProfit Outcome = "TakeProfit"
	OutcomeStopLoss   Outcome = "StopLoss"
)

// BreakoutMethod selects which bar price is compared against range boundaries
type BreakoutMethod string

const (
	BreakoutClose BreakoutMethod = "Close"
	BreakoutWick  BreakoutMethod = "Wick"
)

// TargetMethod selects how stop-loss/take-profit levels are computed
type TargetMethod string

const (
	TargetFixed   TargetMethod = "Fixed"
	TargetDynamic TargetMethod = "Dynamic"
)

// RiskTier names a preset ATR stop-loss multiplier for the Dynamic method
type RiskTier string

const (
	RiskHighest RiskTier = "Highest"
	RiskHigh    RiskTier = "High"
	RiskNormal  RiskTier = "Normal"
	RiskLow     RiskTier = "Low"
	RiskLowest  RiskTier = "Lowest"
	RiskCustom  RiskTier = "Custom"
)

// Range is a confirmed accumulation range. Top/Bottom are the window
// high/low expanded outward by the volatility buffer.
// Invariant: Top > Bottom and EndIndex >= StartIndex.
// The range is provisional (EndIndex slides forward each bar) until a
// breakout freezes it.
type Range struct {
	Top        float64 `json:"top"`
	Bottom     float64 `json:"bottom"`
	StartIndex int     `json:"start_index"`
	EndIndex   int     `json:"end_index"`
}

// Contains reports whether a price sits inside the range boundaries
func (r Range) Contains(price float64) bool {
	return price <= r.Top && price >= r.Bottom
}

// Height returns the vertical extent of the range
func (r Range) Height() float64 {
	return r.Top - r.Bottom
}

// ManipulationEvent records a liquidity sweep beyond the range boundary
// by more than the volatility-relative margin.
type ManipulationEvent struct {
	Direction    SweepDirection `json:"direction"`
	TriggerIndex int            `json:"trigger_index"`
	ExtremePrice float64        `json:"extreme_price"`
}

// Pattern is the aggregate root of one accumulation-manipulation-distribution
// sequence. IDs increase monotonically per detector instance.
type Pattern struct {
	ID           int                `json:"id"`
	State        PatternState       `json:"state"`
	Range        Range              `json:"range"`
	Manipulation *ManipulationEvent `json:"manipulation,omitempty"`

	EntryIndex int       `json:"entry_index"`
	EntryTime  time.Time `json:"entry_time"`
	EntryPrice float64   `json:"entry_price"`
	Direction  Direction `json:"direction,omitempty"`

	StopLoss   float64 `json:"stop_loss"`
	TakeProfit float64 `json:"take_profit"`

	ExitIndex int       `json:"exit_index"`
	ExitTime  time.Time `json:"exit_time"`
	ExitPrice float64   `json:"exit_price"`
	Outcome   Outcome   `json:"outcome"`
}

// Active reports whether the pattern still occupies the detector's
// single active slot.
func (p *Pattern) Active() bool {
	return p.State != StateResolved
}

// ReturnPct returns the signed percentage return of a resolved pattern:
// positive for wins, negative for losses, zero while unresolved.
func (p *Pattern) ReturnPct() float64 {
	if p.State != StateResolved || p.EntryPrice == 0 {
		return 0
	}
	move := p.ExitPrice - p.EntryPrice
	if move < 0 {
		move = -move
	}
	pct := move / p.EntryPrice * 100
	if !p.IsWin() {
		pct = -pct
	}
	return pct
}

// IsWin reports whether a resolved pattern exited in profit
func (p *Pattern) IsWin() bool {
	if p.State != StateResolved {
		return false
	}
	if p.Direction == DirectionLong {
		return p.ExitPrice > p.EntryPrice
	}
	return p.ExitPrice < p.EntryPrice
}

// Transition is one pattern lifecycle step, emitted for rendering and
// reporting consumers.
type Transition struct {
	PatternID int          `json:"pattern_id"`
	From      PatternState `json:"from"`
	To        PatternState `json:"to"`
	BarIndex  int          `json:"bar_index"`
	Time      time.Time    `json:"time"`
}
