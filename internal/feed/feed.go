// Package feed supplies ordered bar series to the detector, either as a
// full historical batch or incrementally as each bar closes. The
// detector behaves identically either way.
package feed

import (
	"context"
	"fmt"

	"amdscan/pkg/model"
)

// Source supplies ordered, oldest-first bar series by symbol.
type Source interface {
	// Symbols lists the symbols this source can serve.
	Symbols() ([]string, error)

	// Bars returns the full series for one symbol, oldest first.
	Bars(ctx context.Context, symbol string) ([]model.Bar, error)
}

// MalformedBarError reports a bar that violates basic series invariants.
// The run skips the offending bar and continues.
type MalformedBarError struct {
	Index  int
	Reason string
}

func (e *MalformedBarError) Error() string {
	return fmt.Sprintf("malformed bar %d: %s", e.Index, e.Reason)
}

// ValidateBar checks a bar against the series invariants: high >= low
// and a timestamp strictly after the previous accepted bar (prev is nil
// for the first bar).
func ValidateBar(bar model.Bar, prev *model.Bar) error {
	if bar.High < bar.Low {
		return &MalformedBarError{Index: bar.Index, Reason: fmt.Sprintf("high %v below low %v", bar.High, bar.Low)}
	}
	if prev != nil && !bar.Time.After(prev.Time) {
		return &MalformedBarError{
			Index:  bar.Index,
			Reason: fmt.Sprintf("timestamp %s not after previous bar %s", bar.Time.Format("2006-01-02T15:04:05"), prev.Time.Format("2006-01-02T15:04:05")),
		}
	}
	return nil
}
