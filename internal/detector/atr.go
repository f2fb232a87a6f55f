package detector

import (
	"errors"
	"fmt"

	"amdscan/pkg/model"
)

// ErrInsufficientData is returned when fewer bars are available than a
// rolling window requires. Callers skip the bar and retry once enough
// history has accumulated.
var ErrInsufficientData = errors.New("insufficient data for rolling window")

// TrueRange returns the per-bar true range:
// max(high-low, |high-prevClose|, |low-prevClose|)
func TrueRange(bar, prev model.Bar) float64 {
	tr := bar.High - bar.Low

	if hc := abs(bar.High - prev.Close); hc > tr {
		tr = hc
	}
	if lc := abs(bar.Low - prev.Close); lc > tr {
		tr = lc
	}
	return tr
}

// AverageTrueRange computes the arithmetic mean of the per-bar true range
// over the window bars ending at endIdx (inclusive). Every bar in the
// window needs its predecessor for the previous close, so at least
// window+1 bars up to endIdx must exist; otherwise ErrInsufficientData
// is returned rather than averaging over a short (possibly empty) count.
func AverageTrueRange(bars []model.Bar, endIdx, window int) (float64, error) {
	if window <= 0 {
		return 0, fmt.Errorf("atr window must be positive, got %d", window)
	}
	if endIdx < 0 || endIdx >= len(bars) {
		return 0, fmt.Errorf("atr end index %d out of bounds (have %d bars)", endIdx, len(bars))
	}
	if endIdx < window {
		return 0, fmt.Errorf("atr needs %d bars before index %d: %w", window, endIdx, ErrInsufficientData)
	}

	var sum float64
	for i := endIdx - window + 1; i <= endIdx; i++ {
		sum += TrueRange(bars[i], bars[i-1])
	}
	return sum / float64(window), nil
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
