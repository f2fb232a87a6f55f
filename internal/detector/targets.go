package detector

import (
	"fmt"

	"amdscan/pkg/model"
)

// TargetConfig holds stop-loss/take-profit parameters for both methods.
// Fixed uses TPPercent/SLPercent; Dynamic uses the risk tier multiplier
// and the risk:reward ratio.
type TargetConfig struct {
	Method model.TargetMethod

	// Fixed
	TPPercent float64
	SLPercent float64

	// Dynamic
	RiskTier           model.RiskTier
	CustomSLMultiplier float64
	RiskReward         float64
}

// slMultipliers maps named risk tiers to ATR stop-loss multipliers.
var slMultipliers = map[model.RiskTier]float64{
	model.RiskHighest: 8.0,
	model.RiskHigh:    6.5,
	model.RiskNormal:  5.0,
	model.RiskLow:     3.5,
	model.RiskLowest:  2.0,
}

// SLMultiplier resolves the effective ATR multiplier for the Dynamic method.
func (c TargetConfig) SLMultiplier() float64 {
	if c.RiskTier == model.RiskCustom {
		return c.CustomSLMultiplier
	}
	return slMultipliers[c.RiskTier]
}

// Validate rejects parameter combinations that would produce degenerate
// targets. Fatal at configuration time.
func (c TargetConfig) Validate() error {
	switch c.Method {
	case model.TargetFixed:
		if c.TPPercent <= 0 {
			return fmt.Errorf("fixed target: tp percent must be positive, got %v", c.TPPercent)
		}
		if c.SLPercent <= 0 {
			return fmt.Errorf("fixed target: sl percent must be positive, got %v", c.SLPercent)
		}
	case model.TargetDynamic:
		if c.RiskReward <= 0 {
			return fmt.Errorf("dynamic target: risk:reward ratio must be positive, got %v", c.RiskReward)
		}
		if c.SLMultiplier() <= 0 {
			return fmt.Errorf("dynamic target: risk tier %q resolves to non-positive sl multiplier", c.RiskTier)
		}
	default:
		return fmt.Errorf("unknown target method %q", c.Method)
	}
	return nil
}

// ComputeTargets returns the stop-loss and take-profit levels for an
// entry at entryPrice in the given direction. atr is the volatility
// scale at the entry bar and is only consulted by the Dynamic method.
func ComputeTargets(cfg TargetConfig, dir model.Direction, entryPrice, atr float64) (stopLoss, takeProfit float64) {
	switch cfg.Method {
	case model.TargetFixed:
		// Distributed form: entry +/- entry*pct/100. Multiplying by
		// (1 +/- pct/100) loses the last bit for round percentages.
		if dir == model.DirectionLong {
			stopLoss = entryPrice - entryPrice*cfg.SLPercent/100
			takeProfit = entryPrice + entryPrice*cfg.TPPercent/100
		} else {
			stopLoss = entryPrice + entryPrice*cfg.SLPercent/100
			takeProfit = entryPrice - entryPrice*cfg.TPPercent/100
		}
	case model.TargetDynamic:
		risk := atr * cfg.SLMultiplier()
		if dir == model.DirectionLong {
			stopLoss = entryPrice - risk
			takeProfit = entryPrice + risk*cfg.RiskReward
		} else {
			stopLoss = entryPrice + risk
			takeProfit = entryPrice - risk*cfg.RiskReward
		}
	}
	return stopLoss, takeProfit
}
