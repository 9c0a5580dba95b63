package core

// cost.go converts the APC cost column to numbers and caps outliers.
//
// Cost cells carry a one-character currency prefix ("£1200.00") and
// sometimes stray dollar signs. StripCurrency removes every '$', then drops
// exactly one leading character whether or not it is a currency symbol.
// Inputs without a prefix therefore lose their first digit: "$45" parses
// as 5.

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// OutlierQuantile is the quantile substituted for capped cost values.
const OutlierQuantile = 0.9

// ErrInvalidNumber is matched by every ParseError.
var ErrInvalidNumber = errors.New("invalid number")

var (
	errNotDecimal = errors.New("not a decimal number")
	errNegative   = errors.New("cost is negative")
	errNotFinite  = errors.New("cost is not finite")
)

// ParseError reports a cost cell that is not numeric once the currency
// symbol has been removed.
type ParseError struct {
	Input string // raw cell text
	Text  string // text handed to the float parser
	Err   error
}

func (e *ParseError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("invalid number %q", e.Input)
	}
	return fmt.Sprintf("invalid number %q: %v", e.Input, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrInvalidNumber) true for any ParseError.
func (e *ParseError) Is(target error) bool { return target == ErrInvalidNumber }

// StripCurrency removes all '$' characters and the first remaining
// character from raw, then parses the rest as a decimal float. Hex and
// underscore-separated forms, negative values, NaN and infinities are
// ParseErrors.
func StripCurrency(raw string) (float64, error) {
	s := strings.ReplaceAll(raw, "$", "")

	// Drop one rune so multi-byte symbols like '£' go as a whole.
	runes := []rune(s)
	if len(runes) > 0 {
		s = string(runes[1:])
	}
	s = strings.TrimSpace(s)

	if s == "" {
		return 0, &ParseError{Input: raw, Text: s}
	}

	if !isDecimal(s) {
		return 0, &ParseError{Input: raw, Text: s, Err: errNotDecimal}
	}

	v, err := strconv.ParseFloat(s, 64)
	switch {
	case err != nil:
		return 0, &ParseError{Input: raw, Text: s, Err: err}
	case math.IsNaN(v) || math.IsInf(v, 0):
		return 0, &ParseError{Input: raw, Text: s, Err: errNotFinite}
	case v < 0:
		return 0, &ParseError{Input: raw, Text: s, Err: errNegative}
	}
	return v, nil
}

// isDecimal rejects the syntax strconv.ParseFloat accepts beyond plain
// decimal notation: base prefixes and digit separators.
func isDecimal(s string) bool {
	if strings.ContainsRune(s, '_') {
		return false
	}
	unsigned := strings.TrimLeft(s, "+-")
	return !(len(unsigned) > 1 && unsigned[0] == '0' && strings.ContainsRune("xXbBoO", rune(unsigned[1])))
}

// Percentile returns the q-quantile of values using linear interpolation
// between the closest ranks. NaN values are ignored. It returns NaN when no
// values remain.
func Percentile(values []float64, q float64) float64 {
	sorted := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			sorted = append(sorted, v)
		}
	}
	if len(sorted) == 0 {
		return math.NaN()
	}
	sort.Float64s(sorted)

	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}

	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}

// CapOutliers returns the 90th percentile of reference when value is at or
// above threshold, and value otherwise. The percentile is recomputed on
// every call; use CostSanitizer to cap a whole column.
func CapOutliers(value float64, reference []float64, threshold float64) float64 {
	if value >= threshold {
		return Percentile(reference, OutlierQuantile)
	}
	return value
}

// CostSanitizer caps values against a reference column whose percentile is
// computed once.
type CostSanitizer struct {
	threshold float64
	cap       float64
}

// NewCostSanitizer precomputes the 90th percentile of reference.
func NewCostSanitizer(reference []float64, threshold float64) *CostSanitizer {
	return &CostSanitizer{
		threshold: threshold,
		cap:       Percentile(reference, OutlierQuantile),
	}
}

// Threshold returns the outlier threshold.
func (c *CostSanitizer) Threshold() float64 { return c.threshold }

// CapValue returns the value substituted for outliers.
func (c *CostSanitizer) CapValue() float64 { return c.cap }

// Cap applies the outlier rule to a single value.
func (c *CostSanitizer) Cap(value float64) float64 {
	if value >= c.threshold {
		return c.cap
	}
	return value
}

// CapAll applies Cap to every value and returns a new slice.
func (c *CostSanitizer) CapAll(values []float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = c.Cap(v)
	}
	return out
}
