package core

import (
	"fmt"
	"io"
	"log/slog"
)

// ColumnNulls is the missing-value count of one column.
type ColumnNulls struct {
	Column string `json:"column"`
	Nulls  int    `json:"nulls"`
}

// Stats summarizes the shape of a table and its missing values.
type Stats struct {
	Rows    int           `json:"rows"`
	Columns int           `json:"columns"`
	Nulls   []ColumnNulls `json:"nulls"`
}

// Inspect computes Stats for t. It does not modify t.
func Inspect(t *Table) Stats {
	s := Stats{
		Rows:    t.NumRows(),
		Columns: t.NumColumns(),
		Nulls:   make([]ColumnNulls, t.NumColumns()),
	}
	for i, name := range t.header {
		s.Nulls[i] = ColumnNulls{Column: name, Nulls: t.NullCount(i)}
	}
	return s
}

// Lines returns the report as text lines: the shape first, then one line
// per column in table order.
func (s Stats) Lines() []string {
	lines := make([]string, 0, len(s.Nulls)+1)
	lines = append(lines, fmt.Sprintf("Data frame contains %d columns and %d rows", s.Columns, s.Rows))
	for _, n := range s.Nulls {
		lines = append(lines, fmt.Sprintf("column %s has %d empty rows", n.Column, n.Nulls))
	}
	return lines
}

// Report writes Lines to w, one per line.
func (s Stats) Report(w io.Writer) error {
	for _, line := range s.Lines() {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
	}
	return nil
}

// Log emits the report as structured log entries.
func (s Stats) Log(logger *slog.Logger) {
	logger.Info("table shape", "rows", s.Rows, "columns", s.Columns)
	for _, n := range s.Nulls {
		logger.Info("column nulls", "column", n.Column, "nulls", n.Nulls)
	}
}
