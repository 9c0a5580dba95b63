package tableio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/transform"

	"github.com/JonMunkholm/apcclean/internal/core"
)

// DefaultNullTokens are the cell values read as missing. They follow what
// spreadsheet tools and dataframe libraries write for empty values.
var DefaultNullTokens = []string{
	"", "NA", "N/A", "n/a", "NaN", "nan", "NULL", "null", "None", "#N/A", "<NA>",
}

// Options controls how CSV input is decoded.
type Options struct {
	// Encoding is an IANA charset name. Empty means DefaultEncoding.
	Encoding string

	// NullTokens replaces DefaultNullTokens when non-nil. An empty,
	// non-nil slice disables null detection.
	NullTokens []string

	// Comma is the field delimiter. Zero means ','.
	Comma rune

	// MaxBytes caps the input size. Zero or less means no limit.
	MaxBytes int64
}

func (o Options) nullSet() map[string]struct{} {
	tokens := o.NullTokens
	if tokens == nil {
		tokens = DefaultNullTokens
	}
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}

// Load reads the CSV file at path with the given encoding.
func Load(path, encoding string) (*core.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	t, err := Read(f, Options{Encoding: encoding})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Read parses CSV from r. The first record is the header; every following
// record is a row. Rows shorter than the header are padded with missing
// cells.
func Read(r io.Reader, opts Options) (*core.Table, error) {
	enc, err := ResolveEncoding(opts.Encoding)
	if err != nil {
		return nil, err
	}

	var src io.Reader = newBOMReader(&limitReader{r: r, max: opts.MaxBytes})
	if isUTF8(enc) {
		src = newUTF8Sanitizer(src)
	} else {
		src = transform.NewReader(src, enc.NewDecoder())
	}

	cr := csv.NewReader(src)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	if opts.Comma != 0 {
		cr.Comma = opts.Comma
	}

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, core.ErrEmptyFile
	}
	if err != nil {
		return nil, fmt.Errorf("invalid csv: %w", err)
	}
	for i, h := range header {
		header[i] = strings.TrimSpace(h)
	}

	nulls := opts.nullSet()
	var records [][]core.Cell
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if errors.Is(err, core.ErrFileTooLarge) {
				return nil, err
			}
			return nil, fmt.Errorf("invalid csv: %w", err)
		}
		row := make([]core.Cell, len(rec))
		for i, v := range rec {
			if _, ok := nulls[v]; ok {
				row[i] = core.MissingCell()
			} else {
				row[i] = core.TextCell(v)
			}
		}
		records = append(records, row)
	}

	return core.NewTable(header, records)
}
