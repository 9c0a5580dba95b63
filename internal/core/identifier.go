package core

// identifier.go normalizes the PMID/PMCID cross-reference column.
//
// Raw cells arrive in many shapes: "PMC3456789", "PMID: 23456789",
// "PMCID PMC3456789 / PMID:23456789", bare digits, free text, or nothing.
// NormalizeIdentifier reduces each one to a single canonical value:
//
//   - the first "PMC<digits>" substring, if any
//   - else the first PMID reference, rewritten as "PMID<digits>"
//   - else bare digits prefixed by the leading-digit convention
//     (2... is a PubMed ID, 3... is a PubMed Central ID)
//   - else "NA"

import (
	"regexp"
	"strings"
	"unicode"
)

// IdentifierMissing is the normalized value for cells with no usable identifier.
const IdentifierMissing = "NA"

var (
	pmcidRegex = regexp.MustCompile(`PMC(?:ID)?\d+`)
	pmidRegex  = regexp.MustCompile(`PMID\s*:?\s*\d+`)
)

// MatchPMCID reports whether text contains "PMC" followed by digits and
// returns the first such substring. The "PMCID<digits>" form produced by
// NormalizeIdentifier also matches, so normalized cells are left unchanged.
func MatchPMCID(text string) (bool, string) {
	m := pmcidRegex.FindString(text)
	if m == "" {
		return false, ""
	}
	return true, m
}

// MatchPMID reports whether text contains a PMID reference ("PMID123",
// "PMID:123", "PMID: 123", "PMID 123") and returns the first one with
// colons and whitespace removed.
func MatchPMID(text string) (bool, string) {
	m := pmidRegex.FindString(text)
	if m == "" {
		return false, ""
	}
	return true, strings.Map(func(r rune) rune {
		if r == ':' || unicode.IsSpace(r) {
			return -1
		}
		return r
	}, m)
}

// NormalizeIdentifier reduces a raw identifier cell to its canonical form.
//
// All-digit input whose first digit is neither '2' nor '3' yields the empty
// string, not IdentifierMissing.
func NormalizeIdentifier(raw string) string {
	data := strings.Trim(raw, "\n")

	hasPMCID, pmcid := MatchPMCID(data)
	hasPMID, pmid := MatchPMID(data)

	switch {
	case hasPMCID:
		return pmcid
	case hasPMID:
		return pmid
	case isDigits(data):
		switch data[0] {
		case '2':
			return "PMID" + data
		case '3':
			return "PMCID" + data
		default:
			return ""
		}
	default:
		return IdentifierMissing
	}
}

// NormalizeIdentifierColumn applies NormalizeIdentifier to every cell.
// Missing cells are coerced to text first, so they come out as "NA".
func NormalizeIdentifierColumn(cells []Cell) []Cell {
	out := make([]Cell, len(cells))
	for i, c := range cells {
		out[i] = TextCell(NormalizeIdentifier(CellText(c)))
	}
	return out
}

// isDigits reports whether s is non-empty and made only of ASCII digits.
func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
