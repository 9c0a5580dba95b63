package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/apcclean/internal/core"
	"github.com/JonMunkholm/apcclean/internal/tableio"
)

func newInspectCommand(a *app) *cobra.Command {
	var encoding string

	cmd := &cobra.Command{
		Use:   "inspect FILE",
		Short: "Report row, column and empty-cell counts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := a.load(args[0], encoding)
			if err != nil {
				return err
			}
			return core.Inspect(t).Report(cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&encoding, "encoding", "", "input charset (default from CLEAN_ENCODING)")
	return cmd
}

// load reads the CSV file at path with the configured null tokens. An
// empty encoding falls back to CLEAN_ENCODING.
func (a *app) load(path, encoding string) (*core.Table, error) {
	if encoding == "" {
		encoding = a.cfg.Clean.Encoding
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	t, err := tableio.Read(f, tableio.Options{
		Encoding:   encoding,
		NullTokens: a.cfg.Clean.NullTokenList(),
		MaxBytes:   a.cfg.Clean.MaxFileSize,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}
