package publish

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/elonfeng/signalradar/pkg/trend"
)

// Columns is the exact header of the published CSV.
var Columns = []string{"published", "title", "link", "category", "primary_keyword", "trend_score", "status"}

// WriteCSV writes the header and one row per signal in the given order.
func WriteCSV(w io.Writer, signals []trend.Signal) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for i := range signals {
		if err := cw.Write(Row(signals[i])); err != nil {
			return fmt.Errorf("write csv row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// Row renders a signal as CSV fields matching Columns.
func Row(s trend.Signal) []string {
	return []string{
		s.PublishedISO,
		s.Title,
		s.Link,
		string(s.Category),
		s.PrimaryKeyword,
		FormatScore(s.TrendScore),
		string(s.Tier),
	}
}

// FormatScore prints a score with at most two decimals, keeping ".0" on whole numbers.
func FormatScore(v float64) string {
	if v == math.Trunc(v) {
		return strconv.FormatFloat(v, 'f', 1, 64)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ReadCSV parses a published CSV back into rows keyed by column name.
func ReadCSV(r io.Reader) ([]map[string]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(Columns)
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("read csv: missing header")
	}
	for i, col := range Columns {
		if records[0][i] != col {
			return nil, fmt.Errorf("read csv: unexpected column %q at %d, want %q", records[0][i], i, col)
		}
	}

	rows := make([]map[string]string, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := make(map[string]string, len(Columns))
		for i, col := range Columns {
			row[col] = rec[i]
		}
		rows = append(rows, row)
	}
	return rows, nil
}
