package backtest

import (
	"math"
	"testing"

	"amdscan/pkg/model"
)

func resolvedLong(entry, exit float64) model.Pattern {
	return model.Pattern{
		State:      model.StateResolved,
		Direction:  model.DirectionLong,
		EntryPrice: entry,
		ExitPrice:  exit,
	}
}

func TestComputeStats(t *testing.T) {
	patterns := []model.Pattern{
		resolvedLong(100, 101),  // +1.0%
		resolvedLong(100, 102),  // +2.0%
		resolvedLong(100, 98.5), // -1.5%
	}

	s := Compute(patterns)
	if s.Total != 3 || s.Wins != 2 || s.Losses != 1 {
		t.Errorf("Expected 3/2/1, got %d/%d/%d", s.Total, s.Wins, s.Losses)
	}
	if math.Abs(s.WinRate-100.0*2/3) > 1e-9 {
		t.Errorf("Expected win rate 66.67, got %v", s.WinRate)
	}
	if math.Abs(s.CumulativeReturnPct-1.5) > 1e-9 {
		t.Errorf("Expected cumulative return 1.5, got %v", s.CumulativeReturnPct)
	}
	if math.Abs(s.AvgReturnPct-0.5) > 1e-9 {
		t.Errorf("Expected average return 0.5, got %v", s.AvgReturnPct)
	}
}

func TestComputeStatsSkipsUnresolved(t *testing.T) {
	patterns := []model.Pattern{
		resolvedLong(100, 101),
		{State: model.StateOpen, Direction: model.DirectionLong, EntryPrice: 100},
		{State: model.StateRangeConfirmed},
	}

	s := Compute(patterns)
	if s.Total != 1 || s.Wins != 1 {
		t.Errorf("Expected unresolved patterns excluded, got %+v", s)
	}
}

func TestComputeStatsEmpty(t *testing.T) {
	s := Compute(nil)
	if s.Total != 0 || s.WinRate != 0 || s.AvgReturnPct != 0 {
		t.Errorf("Expected zero stats on empty input, got %+v", s)
	}
}

func TestComputeStatsShortDirection(t *testing.T) {
	p := model.Pattern{
		State:      model.StateResolved,
		Direction:  model.DirectionShort,
		EntryPrice: 100,
		ExitPrice:  99, // short exit below entry is a win
	}
	s := Compute([]model.Pattern{p})
	if s.Wins != 1 || s.CumulativeReturnPct <= 0 {
		t.Errorf("Expected winning short, got %+v", s)
	}
}
