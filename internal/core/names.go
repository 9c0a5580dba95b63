package core

import (
	"sort"
	"strings"
	"unicode"
)

// NameNormalizer canonicalizes publisher and journal names.
//
// Names are folded to title case and then looked up in a synonym table whose
// keys are title-cased variants. The table is copied at construction and
// never modified, so a NameNormalizer is safe for concurrent use.
type NameNormalizer struct {
	synonyms map[string]string
}

// Synonym is a single variant to canonical name mapping.
type Synonym struct {
	Variant   string `json:"variant" yaml:"variant"`
	Canonical string `json:"canonical" yaml:"canonical"`
}

// NewNameNormalizer creates a normalizer over a copy of synonyms.
func NewNameNormalizer(synonyms map[string]string) *NameNormalizer {
	m := make(map[string]string, len(synonyms))
	for k, v := range synonyms {
		m[k] = v
	}
	return &NameNormalizer{synonyms: m}
}

// Normalize title-cases raw and substitutes its canonical name if the
// title-cased form is a known variant.
func (n *NameNormalizer) Normalize(raw string) string {
	name := TitleCase(strings.ToLower(raw))
	if canonical, ok := n.synonyms[name]; ok {
		return canonical
	}
	return name
}

// MissingNameText is the text a missing name cell is coerced to before
// normalization. Spreadsheet exports of this data write it as "nan", so
// missing names come out as "Nan".
const MissingNameText = "nan"

// NormalizeColumn applies Normalize to every cell. Missing cells are coerced
// to MissingNameText first.
func (n *NameNormalizer) NormalizeColumn(cells []Cell) []Cell {
	out := make([]Cell, len(cells))
	for i, c := range cells {
		text := MissingNameText
		if c.Valid {
			text = c.String
		}
		out[i] = TextCell(n.Normalize(text))
	}
	return out
}

// Lookup returns the canonical name for an already title-cased variant.
func (n *NameNormalizer) Lookup(variant string) (string, bool) {
	canonical, ok := n.synonyms[variant]
	return canonical, ok
}

// Len returns the number of variants in the table.
func (n *NameNormalizer) Len() int { return len(n.synonyms) }

// Synonyms returns the table sorted by variant.
func (n *NameNormalizer) Synonyms() []Synonym {
	out := make([]Synonym, 0, len(n.synonyms))
	for k, v := range n.synonyms {
		out = append(out, Synonym{Variant: k, Canonical: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Variant < out[j].Variant })
	return out
}

// TitleCase upper-cases every cased letter that follows an uncased
// character (or starts the string) and lower-cases every other cased
// letter. Word boundaries are therefore any non-letter: spaces, hyphens,
// apostrophes, digits and punctuation. "o'reilly-smith 2nd" becomes
// "O'Reilly-Smith 2Nd".
func TitleCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	prevCased := false
	for _, r := range s {
		if isCased(r) {
			if prevCased {
				b.WriteRune(unicode.ToLower(r))
			} else {
				b.WriteRune(unicode.ToTitle(r))
			}
			prevCased = true
			continue
		}
		b.WriteRune(r)
		prevCased = false
	}
	return b.String()
}

func isCased(r rune) bool {
	return unicode.IsUpper(r) || unicode.IsLower(r) || unicode.IsTitle(r)
}
