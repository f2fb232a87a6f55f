package backtest

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"amdscan/pkg/model"
)

// WriteCSV exports resolved patterns as a CSV report for external
// dashboards. Unresolved patterns are omitted.
func WriteCSV(patterns []model.Pattern, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	_ = w.Write([]string{
		"id", "direction", "entry_time", "exit_time",
		"entry", "exit", "stop_loss", "take_profit", "outcome", "return_pct",
	})
	for i := range patterns {
		p := &patterns[i]
		if p.State != model.StateResolved {
			continue
		}
		_ = w.Write([]string{
			strconv.Itoa(p.ID),
			string(p.Direction),
			p.EntryTime.Format("2006-01-02T15:04:05Z07:00"),
			p.ExitTime.Format("2006-01-02T15:04:05Z07:00"),
			formatF(p.EntryPrice), formatF(p.ExitPrice),
			formatF(p.StopLoss), formatF(p.TakeProfit),
			string(p.Outcome),
			formatF(p.ReturnPct()),
		})
	}

	w.Flush()
	return w.Error()
}

func formatF(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }
