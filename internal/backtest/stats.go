package backtest

import "amdscan/pkg/model"

// Stats aggregates resolved patterns. Patterns still open (or earlier in
// the lifecycle) when the feed ends are excluded.
type Stats struct {
	Total               int     `json:"total"`
	Wins                int     `json:"wins"`
	Losses              int     `json:"losses"`
	WinRate             float64 `json:"win_rate"`              // percent
	AvgReturnPct        float64 `json:"avg_return_pct"`        // signed
	CumulativeReturnPct float64 `json:"cumulative_return_pct"` // signed
}

// Compute folds the given patterns into aggregate statistics. A pattern
// counts as a win iff it exited on the profitable side of its entry for
// its direction; the per-pattern contribution is the signed percentage
// return.
func Compute(patterns []model.Pattern) Stats {
	var s Stats
	for i := range patterns {
		p := &patterns[i]
		if p.State != model.StateResolved {
			continue
		}
		s.Total++
		s.CumulativeReturnPct += p.ReturnPct()
		if p.IsWin() {
			s.Wins++
		} else {
			s.Losses++
		}
	}

	if s.Total > 0 {
		s.WinRate = float64(s.Wins) / float64(s.Total) * 100
		s.AvgReturnPct = s.CumulativeReturnPct / float64(s.Total)
	}
	return s
}
