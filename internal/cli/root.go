// Package cli implements the apcclean command line.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/apcclean/internal/config"
	"github.com/JonMunkholm/apcclean/internal/core"
	"github.com/JonMunkholm/apcclean/internal/core/tables"
	"github.com/JonMunkholm/apcclean/internal/logging"
)

// app is the state shared by subcommands once the root has run.
type app struct {
	envFile string
	verbose bool

	cfg   *config.Config
	names *core.NameNormalizer
}

// NewRootCommand builds the apcclean command tree.
func NewRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "apcclean",
		Short: "Inspect and clean APC spreadsheets",
		Long: `apcclean normalizes article processing charge (APC) spreadsheets:
PMID/PMCID identifiers, publisher and journal names, and cost values.

Defaults come from CLEAN_* environment variables or a .env file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "load environment variables from this file if it exists")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "log at debug level")

	root.AddCommand(
		newInspectCommand(a),
		newCleanCommand(a),
		newSynonymsCommand(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	if err := config.LoadDotEnv(a.envFile); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	a.cfg = cfg

	level := cfg.Logging.Level
	if a.verbose {
		level = "debug"
	}
	logging.SetupWriter(cmd.ErrOrStderr(), level, cfg.Logging.Format)

	names, err := tables.LoadNormalizer(cfg.Clean.SynonymsFile)
	if err != nil {
		return err
	}
	a.names = names
	return nil
}

// Execute runs the command line and exits non-zero on failure.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		if core.IsUserFacing(err) {
			fmt.Fprintln(os.Stderr, core.FormatUserError(err))
		}
		os.Exit(1)
	}
}
