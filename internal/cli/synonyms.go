package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/apcclean/internal/core"
	"github.com/JonMunkholm/apcclean/internal/core/tables"
)

func newSynonymsCommand(a *app) *cobra.Command {
	var asYAML bool

	cmd := &cobra.Command{
		Use:   "synonyms",
		Short: "List the publisher synonym table",
		Long: `Synonyms prints every known variant and its canonical name, including
entries loaded from CLEAN_SYNONYMS_FILE. With --yaml the output can be
edited and used as a synonyms file; variants that no cell can match are
left out of it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if !asYAML {
				return writeSynonyms(out, a.names.Synonyms())
			}
			data, err := tables.MarshalSynonyms(a.names)
			if err != nil {
				return err
			}
			_, err = out.Write(data)
			return err
		},
	}

	cmd.Flags().BoolVar(&asYAML, "yaml", false, "print as a synonyms YAML file")
	return cmd
}

// writeSynonyms prints a two-column table padded by display width, so
// variants with wide characters stay aligned.
func writeSynonyms(w io.Writer, synonyms []core.Synonym) error {
	const header = "VARIANT"

	width := runewidth.StringWidth(header)
	for _, s := range synonyms {
		if sw := runewidth.StringWidth(s.Variant); sw > width {
			width = sw
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s\n", runewidth.FillRight(header, width), "CANONICAL")
	for _, s := range synonyms {
		fmt.Fprintf(&b, "%s  %s\n", runewidth.FillRight(s.Variant, width), s.Canonical)
	}
	_, err := io.WriteString(w, b.String())
	return err
}
