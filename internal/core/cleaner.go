package core

// cleaner.go applies the cell normalizers to a loaded table.
//
// The normalizers themselves are independent pure functions. Cleaner is the
// caller that composes them column by column:
//
//  1. Identifier column through NormalizeIdentifier
//  2. Each name column through the injected NameNormalizer
//  3. Cost column through StripCurrency, then outlier capping against the
//     column's own 90th percentile, computed once
//
// A malformed cost is handled according to Plan.OnCostError. Every run gets
// a UUID that is logged and returned with the result.

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/apcclean/internal/logging"
)

// CostErrorPolicy decides what happens to a row whose cost does not parse.
type CostErrorPolicy string

const (
	// CostErrorAbort stops the run and returns the ParseError.
	CostErrorAbort CostErrorPolicy = "abort"
	// CostErrorSkip drops the row from the output.
	CostErrorSkip CostErrorPolicy = "skip"
	// CostErrorKeep keeps the row with a missing cost.
	CostErrorKeep CostErrorPolicy = "keep"
)

// ErrInvalidPolicy is returned for an unknown cost error policy.
var ErrInvalidPolicy = errors.New("invalid cost error policy")

// ParseCostErrorPolicy validates a policy name, ignoring case. The empty
// string means abort.
func ParseCostErrorPolicy(s string) (CostErrorPolicy, error) {
	switch p := CostErrorPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return CostErrorAbort, nil
	case CostErrorAbort, CostErrorSkip, CostErrorKeep:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q (want abort, skip or keep)", ErrInvalidPolicy, s)
	}
}

// ErrInvalidThreshold is returned for a negative or non-numeric threshold.
var ErrInvalidThreshold = errors.New("invalid cost threshold")

// ParseThreshold parses a cost threshold. The empty string means 0.
func ParseThreshold(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 || math.IsNaN(v) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidThreshold, s)
	}
	return v, nil
}

// Plan names the columns to clean. Empty column names are skipped.
type Plan struct {
	IDColumn    string
	NameColumns []string
	CostColumn  string

	// CostThreshold caps costs at or above it. Zero or less disables capping.
	CostThreshold float64
	OnCostError   CostErrorPolicy
}

// FailedRow records a row whose cost could not be parsed.
type FailedRow struct {
	Line   int    `json:"line"` // 1-based line in the source file, header is line 1
	Column string `json:"column"`
	Value  string `json:"value"`
	Reason string `json:"reason"`
}

// Result is the outcome of a cleaning run.
type Result struct {
	RunID      uuid.UUID
	Table      *Table
	Before     Stats
	After      Stats
	FailedRows []FailedRow
	Capped     int     // number of costs replaced by CapValue
	CapValue   float64 // NaN when capping is disabled or no cost parsed
	Duration   time.Duration
}

// Cleaner applies a Plan to tables.
type Cleaner struct {
	names *NameNormalizer
}

// NewCleaner creates a Cleaner that normalizes names with names.
func NewCleaner(names *NameNormalizer) *Cleaner {
	return &Cleaner{names: names}
}

// Clean returns a cleaned copy of t. The input table is not modified.
func (c *Cleaner) Clean(ctx context.Context, t *Table, plan Plan) (*Result, error) {
	start := time.Now()
	res := &Result{
		RunID:    uuid.New(),
		Before:   Inspect(t),
		CapValue: math.NaN(),
	}
	logger := logging.WithFields(ctx, "run_id", res.RunID.String())
	logger.Debug("clean started", "rows", t.NumRows(), "columns", t.NumColumns())

	out := t
	var err error

	if plan.IDColumn != "" {
		out, err = c.cleanIdentifiers(out, plan.IDColumn)
		if err != nil {
			return nil, err
		}
	}

	for _, col := range plan.NameColumns {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out, err = c.cleanNames(out, col)
		if err != nil {
			return nil, err
		}
	}

	if plan.CostColumn != "" {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out, err = c.cleanCosts(out, plan, res)
		if err != nil {
			return nil, err
		}
	}

	res.Table = out
	res.After = Inspect(out)
	res.Duration = time.Since(start)

	logger.Info("clean completed",
		"rows_in", t.NumRows(),
		"rows_out", out.NumRows(),
		"failed_rows", len(res.FailedRows),
		"capped", res.Capped,
		"duration_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}

func (c *Cleaner) cleanIdentifiers(t *Table, column string) (*Table, error) {
	cells, err := t.Column(column)
	if err != nil {
		return nil, fmt.Errorf("identifier column: %w", err)
	}
	return t.WithColumn(column, NormalizeIdentifierColumn(cells))
}

func (c *Cleaner) cleanNames(t *Table, column string) (*Table, error) {
	cells, err := t.Column(column)
	if err != nil {
		return nil, fmt.Errorf("name column: %w", err)
	}
	return t.WithColumn(column, c.names.NormalizeColumn(cells))
}

// cleanCosts parses every present cost cell, applies the failure policy,
// then caps outliers against the parsed values. Missing cost cells stay
// missing and are left out of the percentile.
func (c *Cleaner) cleanCosts(t *Table, plan Plan, res *Result) (*Table, error) {
	cells, err := t.Column(plan.CostColumn)
	if err != nil {
		return nil, fmt.Errorf("cost column: %w", err)
	}

	policy, err := ParseCostErrorPolicy(string(plan.OnCostError))
	if err != nil {
		return nil, err
	}

	values := make([]float64, len(cells))
	parsed := make([]bool, len(cells))
	reference := make([]float64, 0, len(cells))
	drop := make(map[int]bool)

	for i, cell := range cells {
		if !cell.Valid {
			continue
		}
		v, err := StripCurrency(cell.String)
		if err != nil {
			line := i + 2
			if policy == CostErrorAbort {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			res.FailedRows = append(res.FailedRows, FailedRow{
				Line:   line,
				Column: plan.CostColumn,
				Value:  cell.String,
				Reason: err.Error(),
			})
			if policy == CostErrorSkip {
				drop[i] = true
			}
			continue
		}
		values[i] = v
		parsed[i] = true
		reference = append(reference, v)
	}

	var sanitizer *CostSanitizer
	if plan.CostThreshold > 0 && len(reference) > 0 {
		sanitizer = NewCostSanitizer(reference, plan.CostThreshold)
		res.CapValue = sanitizer.CapValue()
	}

	out := make([]Cell, len(cells))
	for i := range cells {
		if !parsed[i] {
			out[i] = MissingCell()
			continue
		}
		v := values[i]
		if sanitizer != nil {
			if v >= sanitizer.Threshold() {
				res.Capped++
			}
			v = sanitizer.Cap(v)
		}
		out[i] = FloatCell(v)
	}

	cleaned, err := t.WithColumn(plan.CostColumn, out)
	if err != nil {
		return nil, err
	}
	return cleaned.WithoutRows(drop), nil
}
