package tableio

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/JonMunkholm/apcclean/internal/core"
)

// Write writes t as UTF-8 CSV: the header, then every row. Missing cells
// are written as core.MissingText.
func Write(w io.Writer, t *core.Table) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(t.Header()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	record := make([]string, t.NumColumns())
	for i := 0; i < t.NumRows(); i++ {
		for c, cell := range t.Row(i) {
			record[c] = core.CellText(cell)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// Save writes t to path, replacing any existing file.
func Save(path string, t *core.Table) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return Write(f, t)
}
