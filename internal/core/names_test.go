package core

import (
	"sync"
	"testing"
)

func testSynonyms() map[string]string {
	return map[string]string{
		"Bmj Publishing Group Ltd": "British Medical Journal",
		"Plos 1":                   "Plos One",
		"Neuroimage":               "NeuroImage",
		"Oup":                      "Oxford University Press",
	}
}

func TestTitleCase(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"unknown press", "Unknown Press"},
		{"UNKNOWN PRESS", "Unknown Press"},
		{"wiley-blackwell", "Wiley-Blackwell"},
		{"o'reilly media", "O'Reilly Media"},
		{"cenveo publisher services/asm jv1", "Cenveo Publisher Services/Asm Jv1"},
		{"2nd edition", "2Nd Edition"},
		{"plos 1", "Plos 1"},
		{"élan éditions", "Élan Éditions"},
		{"  spaced  out  ", "  Spaced  Out  "},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := TitleCase(tt.input); got != tt.want {
				t.Errorf("TitleCase(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNameNormalizer_Normalize(t *testing.T) {
	n := NewNameNormalizer(testSynonyms())

	tests := []struct {
		input string
		want  string
	}{
		{"bmj publishing group ltd", "British Medical Journal"},
		{"BMJ Publishing Group Ltd", "British Medical Journal"},
		{"plos 1", "Plos One"},
		{"NEUROIMAGE", "NeuroImage"},
		{"OUP", "Oxford University Press"},
		{"Unknown Press", "Unknown Press"},
		{"elsevier", "Elsevier"},
		// Surrounding whitespace is part of the key, so no substitution.
		{" oup", " Oup"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := n.Normalize(tt.input); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNameNormalizer_CopiesTable(t *testing.T) {
	src := testSynonyms()
	n := NewNameNormalizer(src)

	src["Oup"] = "Changed"
	delete(src, "Neuroimage")

	if got := n.Normalize("oup"); got != "Oxford University Press" {
		t.Errorf("Normalize after source change = %q, want original mapping", got)
	}
	if got := n.Normalize("neuroimage"); got != "NeuroImage" {
		t.Errorf("Normalize after source delete = %q, want NeuroImage", got)
	}
}

func TestNameNormalizer_NormalizeColumn(t *testing.T) {
	n := NewNameNormalizer(testSynonyms())
	got := n.NormalizeColumn([]Cell{TextCell("oup"), MissingCell()})

	if got[0].String != "Oxford University Press" {
		t.Errorf("cell 0 = %q, want Oxford University Press", got[0].String)
	}
	// Missing cells are coerced to "nan" and title-cased like any other text.
	if !got[1].Valid || got[1].String != "Nan" {
		t.Errorf("cell 1 = %+v, want \"Nan\"", got[1])
	}
}

func TestNameNormalizer_Synonyms(t *testing.T) {
	n := NewNameNormalizer(testSynonyms())
	list := n.Synonyms()

	if len(list) != n.Len() {
		t.Fatalf("Synonyms() returned %d entries, Len() = %d", len(list), n.Len())
	}
	for i := 1; i < len(list); i++ {
		if list[i-1].Variant >= list[i].Variant {
			t.Errorf("Synonyms() not sorted at %d: %q >= %q", i, list[i-1].Variant, list[i].Variant)
		}
	}
	if canonical, ok := n.Lookup("Plos 1"); !ok || canonical != "Plos One" {
		t.Errorf("Lookup(Plos 1) = (%q, %v)", canonical, ok)
	}
}

func TestNameNormalizer_ConcurrentUse(t *testing.T) {
	n := NewNameNormalizer(testSynonyms())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if got := n.Normalize("bmj publishing group ltd"); got != "British Medical Journal" {
					t.Errorf("Normalize = %q", got)
					return
				}
			}
		}()
	}
	wg.Wait()
}
