package core

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"
)

// MissingText is the text form of a missing cell.
const MissingText = "NA"

// ErrColumnNotFound is returned when a named column is not part of a table.
var ErrColumnNotFound = errors.New("column not found")

// Cell is a single table value. Valid=false marks a missing value.
type Cell = pgtype.Text

// TextCell returns a present cell holding s.
func TextCell(s string) Cell {
	return Cell{String: s, Valid: true}
}

// MissingCell returns a missing cell.
func MissingCell() Cell {
	return Cell{}
}

// FloatCell returns a present cell holding the shortest decimal form of f.
func FloatCell(f float64) Cell {
	return TextCell(strconv.FormatFloat(f, 'f', -1, 64))
}

// CellText coerces a cell to text. Missing cells become MissingText.
func CellText(c Cell) string {
	if !c.Valid {
		return MissingText
	}
	return c.String
}

// Table is a column-oriented set of rows. Tables are treated as values:
// methods that change data return a new Table and leave the receiver alone.
type Table struct {
	header  []string
	columns [][]Cell
	rows    int
}

// NewTable builds a table from a header and row-major records.
// Short records are padded with missing cells; long records are rejected.
func NewTable(header []string, records [][]Cell) (*Table, error) {
	t := &Table{
		header:  append([]string(nil), header...),
		columns: make([][]Cell, len(header)),
		rows:    len(records),
	}
	for i := range t.columns {
		t.columns[i] = make([]Cell, len(records))
	}

	for r, rec := range records {
		if len(rec) > len(header) {
			return nil, fmt.Errorf("invalid csv: row %d has %d fields, header has %d", r+1, len(rec), len(header))
		}
		for c := range header {
			if c < len(rec) {
				t.columns[c][r] = rec[c]
			}
		}
	}

	return t, nil
}

// NumRows returns the number of data rows.
func (t *Table) NumRows() int { return t.rows }

// NumColumns returns the number of columns.
func (t *Table) NumColumns() int { return len(t.header) }

// Header returns a copy of the column names in order.
func (t *Table) Header() []string {
	return append([]string(nil), t.header...)
}

// ColumnIndex returns the position of the named column.
// An exact match wins; otherwise names are compared case-insensitively
// after trimming whitespace.
func (t *Table) ColumnIndex(name string) (int, error) {
	for i, h := range t.header {
		if h == name {
			return i, nil
		}
	}
	want := strings.ToLower(strings.TrimSpace(name))
	for i, h := range t.header {
		if strings.ToLower(strings.TrimSpace(h)) == want {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %q", ErrColumnNotFound, name)
}

// Column returns a copy of the named column.
func (t *Table) Column(name string) ([]Cell, error) {
	idx, err := t.ColumnIndex(name)
	if err != nil {
		return nil, err
	}
	return append([]Cell(nil), t.columns[idx]...), nil
}

// Row returns a copy of row i in column order.
func (t *Table) Row(i int) []Cell {
	row := make([]Cell, len(t.columns))
	for c := range t.columns {
		row[c] = t.columns[c][i]
	}
	return row
}

// WithColumn returns a new table in which the named column is replaced by
// cells. Other columns are shared with the receiver.
func (t *Table) WithColumn(name string, cells []Cell) (*Table, error) {
	idx, err := t.ColumnIndex(name)
	if err != nil {
		return nil, err
	}
	if len(cells) != t.rows {
		return nil, fmt.Errorf("column %q: got %d cells, table has %d rows", name, len(cells), t.rows)
	}

	out := &Table{
		header:  t.header,
		columns: append([][]Cell(nil), t.columns...),
		rows:    t.rows,
	}
	out.columns[idx] = append([]Cell(nil), cells...)
	return out, nil
}

// WithoutRows returns a new table with the given row indexes removed.
func (t *Table) WithoutRows(drop map[int]bool) *Table {
	if len(drop) == 0 {
		return t
	}

	out := &Table{
		header:  t.header,
		columns: make([][]Cell, len(t.columns)),
	}
	for c, col := range t.columns {
		kept := make([]Cell, 0, len(col))
		for r, cell := range col {
			if !drop[r] {
				kept = append(kept, cell)
			}
		}
		out.columns[c] = kept
	}
	if len(out.columns) > 0 {
		out.rows = len(out.columns[0])
	} else {
		out.rows = t.rows - len(drop)
	}
	return out
}

// NullCount returns the number of missing cells in column i.
func (t *Table) NullCount(i int) int {
	n := 0
	for _, c := range t.columns[i] {
		if !c.Valid {
			n++
		}
	}
	return n
}
