package detector

import (
	"math"
	"testing"

	"amdscan/pkg/model"
)

func flatSeries(n int, price float64) []model.Bar {
	bars := make([]model.Bar, n)
	for i := range bars {
		bars[i] = barHLC(i, price+1, price-1, price)
	}
	return bars
}

func TestFindRangeConfirmsCompressedWindow(t *testing.T) {
	// ShortAccumulation parameters: 11-bar lookback, 2.0 accumulation
	// multiplier. Window span 2.0 <= ATR 2.0 * 2.0.
	bars := flatSeries(12, 100)

	rng, ok := FindRange(bars, 11, 11, 2.0, 2.0, 0.5)
	if !ok {
		t.Fatal("Expected range confirmation on flat 11-bar window")
	}

	if math.Abs(rng.Top-102.0) > 1e-12 {
		t.Errorf("Expected top 102.0, got %v", rng.Top)
	}
	if math.Abs(rng.Bottom-98.0) > 1e-12 {
		t.Errorf("Expected bottom 98.0, got %v", rng.Bottom)
	}
	if rng.StartIndex != 0 || rng.EndIndex != 10 {
		t.Errorf("Expected window [0,10], got [%d,%d]", rng.StartIndex, rng.EndIndex)
	}
	if rng.Top <= rng.Bottom {
		t.Errorf("Invariant violated: top %v <= bottom %v", rng.Top, rng.Bottom)
	}
}

func TestFindRangeRejectsWideWindow(t *testing.T) {
	bars := flatSeries(12, 100)
	bars[5] = barHLC(5, 110, 99, 105) // spike widens the window beyond the threshold

	if _, ok := FindRange(bars, 11, 11, 2.0, 2.0, 0.5); ok {
		t.Error("Expected no confirmation when window exceeds ATR multiple")
	}
}

func TestFindRangeExcludesCurrentBar(t *testing.T) {
	bars := flatSeries(12, 100)
	bars[11] = barHLC(11, 120, 99, 118) // current bar may spike without blocking confirmation

	if _, ok := FindRange(bars, 11, 11, 2.0, 2.0, 0.5); !ok {
		t.Error("Expected confirmation: the current bar is excluded from the window")
	}
}

func TestFindRangeNeedsFullLookback(t *testing.T) {
	bars := flatSeries(8, 100)

	if _, ok := FindRange(bars, 7, 11, 2.0, 2.0, 0.5); ok {
		t.Error("Expected no confirmation with fewer bars than the lookback")
	}
}
