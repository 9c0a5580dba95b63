package tables

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/JonMunkholm/apcclean/internal/core"
)

// ErrInvalidSynonym is returned for a synonym file entry with an empty side.
var ErrInvalidSynonym = errors.New("invalid synonym entry")

// SynonymFile is the YAML layout of an extra synonym table:
//
//	synonyms:
//	  - variant: springer nature
//	    canonical: Springer
type SynonymFile struct {
	Synonyms []core.Synonym `yaml:"synonyms"`
}

// LoadSynonymsFile reads extra synonyms from a YAML file. Variants are
// folded the same way cells are (lower case, then title case), so the file
// can spell them in any case.
func LoadSynonymsFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read synonyms file: %w", err)
	}
	return ParseSynonyms(data)
}

// ParseSynonyms decodes a SynonymFile document.
func ParseSynonyms(data []byte) (map[string]string, error) {
	var f SynonymFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse synonyms YAML: %w", err)
	}

	m := make(map[string]string, len(f.Synonyms))
	for i, s := range f.Synonyms {
		variant := strings.TrimSpace(s.Variant)
		canonical := strings.TrimSpace(s.Canonical)
		if variant == "" || canonical == "" {
			return nil, fmt.Errorf("%w: synonyms[%d]", ErrInvalidSynonym, i)
		}
		m[core.TitleCase(strings.ToLower(variant))] = canonical
	}
	return m, nil
}

// MarshalSynonyms renders a normalizer's table in the SynonymFile layout.
// Variants no cell can reach (not already in folded form, such as
// "Oxford Journals (OUP)") are left out: ParseSynonyms would fold them into
// reachable keys, and loading the output would then change cleaning results.
func MarshalSynonyms(n *core.NameNormalizer) ([]byte, error) {
	var f SynonymFile
	for _, s := range n.Synonyms() {
		if Reachable(s.Variant) {
			f.Synonyms = append(f.Synonyms, s)
		}
	}

	data, err := yaml.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal synonyms: %w", err)
	}
	return data, nil
}

// Reachable reports whether a synonym key can match a normalized cell,
// i.e. it is unchanged by lower-casing and title-casing.
func Reachable(variant string) bool {
	return core.TitleCase(strings.ToLower(variant)) == variant
}

// LoadNormalizer returns the publisher normalizer extended with the
// synonyms in path. An empty path yields the built-in table alone.
func LoadNormalizer(path string) (*core.NameNormalizer, error) {
	if path == "" {
		return NewPublisherNormalizer(nil), nil
	}
	extra, err := LoadSynonymsFile(path)
	if err != nil {
		return nil, err
	}
	return NewPublisherNormalizer(extra), nil
}
