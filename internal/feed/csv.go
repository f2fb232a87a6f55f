package feed

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"amdscan/pkg/model"
)

// CSVSource reads bar series from CSV files: either a single file (one
// symbol, named after the file) or a directory of <symbol>.csv files.
// Row format: time,open,high,low,close,volume with an optional header.
type CSVSource struct {
	path string
}

// NewCSVSource creates a source over a file or directory path.
func NewCSVSource(path string) *CSVSource {
	return &CSVSource{path: path}
}

// Symbols lists the available symbols: the file base name for a single
// file, or every *.csv base name in the directory.
func (s *CSVSource) Symbols() ([]string, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", s.path, err)
	}

	if !info.IsDir() {
		return []string{symbolFromFile(s.path)}, nil
	}

	entries, err := os.ReadDir(s.path)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", s.path, err)
	}

	var symbols []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".csv") {
			continue
		}
		symbols = append(symbols, symbolFromFile(e.Name()))
	}
	return symbols, nil
}

// Bars loads the series for one symbol, oldest first, with indices
// assigned 0..n-1.
func (s *CSVSource) Bars(ctx context.Context, symbol string) ([]model.Bar, error) {
	path := s.path
	if info, err := os.Stat(s.path); err == nil && info.IsDir() {
		path = filepath.Join(s.path, symbol+".csv")
	}
	return ReadBars(path)
}

// ReadBars parses one CSV file into a bar series.
func ReadBars(path string) ([]model.Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	bars := make([]model.Bar, 0, len(rows))
	for n, row := range rows {
		if len(row) < 5 {
			return nil, fmt.Errorf("%s row %d: expected time,open,high,low,close[,volume], got %d fields", path, n+1, len(row))
		}

		ts, err := parseTime(row[0])
		if err != nil {
			if n == 0 {
				continue // header row
			}
			return nil, fmt.Errorf("%s row %d: %w", path, n+1, err)
		}

		bar := model.Bar{Index: len(bars), Time: ts}
		if bar.Open, err = strconv.ParseFloat(row[1], 64); err != nil {
			return nil, fmt.Errorf("%s row %d open: %w", path, n+1, err)
		}
		if bar.High, err = strconv.ParseFloat(row[2], 64); err != nil {
			return nil, fmt.Errorf("%s row %d high: %w", path, n+1, err)
		}
		if bar.Low, err = strconv.ParseFloat(row[3], 64); err != nil {
			return nil, fmt.Errorf("%s row %d low: %w", path, n+1, err)
		}
		if bar.Close, err = strconv.ParseFloat(row[4], 64); err != nil {
			return nil, fmt.Errorf("%s row %d close: %w", path, n+1, err)
		}
		if len(row) > 5 && row[5] != "" {
			vol, err := strconv.ParseFloat(row[5], 64)
			if err != nil {
				return nil, fmt.Errorf("%s row %d volume: %w", path, n+1, err)
			}
			bar.Volume = int64(vol)
		}

		bars = append(bars, bar)
	}

	return bars, nil
}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)

	// Unix seconds or milliseconds
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n > 1e12 {
			return time.UnixMilli(n).UTC(), nil
		}
		return time.Unix(n, 0).UTC(), nil
	}

	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", s)
}

func symbolFromFile(path string) string {
	return strings.TrimSuffix(filepath.Base(path), ".csv")
}
