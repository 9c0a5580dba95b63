package cli

import (
	"context"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/apcclean/internal/core"
	"github.com/JonMunkholm/apcclean/internal/store"
	"github.com/JonMunkholm/apcclean/internal/tableio"
)

type cleanOptions struct {
	output      string
	encoding    string
	threshold   string
	onCostError string
	export      string
	idColumn    string
	nameColumns string
	costColumn  string
}

func newCleanCommand(a *app) *cobra.Command {
	var opts cleanOptions

	cmd := &cobra.Command{
		Use:   "clean FILE",
		Short: "Normalize identifiers, names and costs",
		Long: `Clean loads FILE, normalizes the identifier, name and cost columns,
and writes the result as UTF-8 CSV. Missing values are written as NA.

Without -o the output goes next to FILE as <name>_clean.csv.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runClean(cmd, args[0], opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.output, "output", "o", "", "output CSV path, - for stdout")
	f.StringVar(&opts.encoding, "encoding", "", "input charset (default from CLEAN_ENCODING)")
	f.StringVar(&opts.threshold, "threshold", "", "cap costs at or above this value, 0 disables (default from CLEAN_COST_THRESHOLD)")
	f.StringVar(&opts.onCostError, "on-cost-error", "", "abort, skip or keep (default from CLEAN_COST_ON_ERROR)")
	f.StringVar(&opts.export, "export", "", "also copy the cleaned rows into this Postgres table")
	f.StringVar(&opts.idColumn, "id-column", "", "identifier column (default from CLEAN_ID_COLUMN)")
	f.StringVar(&opts.nameColumns, "name-columns", "", "comma-separated name columns (default from CLEAN_NAME_COLUMNS)")
	f.StringVar(&opts.costColumn, "cost-column", "", "cost column (default from CLEAN_COST_COLUMN)")
	return cmd
}

// plan starts from the configured plan and applies flags that were set.
func (a *app) plan(opts cleanOptions) (core.Plan, error) {
	c := a.cfg.Clean
	plan := core.Plan{
		IDColumn:      c.IDColumn,
		NameColumns:   c.NameColumns,
		CostColumn:    c.CostColumn,
		CostThreshold: c.CostThreshold,
	}

	if opts.idColumn != "" {
		plan.IDColumn = opts.idColumn
	}
	if opts.nameColumns != "" {
		plan.NameColumns = splitList(opts.nameColumns)
	}
	if opts.costColumn != "" {
		plan.CostColumn = opts.costColumn
	}
	if opts.threshold != "" {
		t, err := core.ParseThreshold(opts.threshold)
		if err != nil {
			return core.Plan{}, err
		}
		plan.CostThreshold = t
	}

	policy := opts.onCostError
	if policy == "" {
		policy = c.OnCostError
	}
	p, err := core.ParseCostErrorPolicy(policy)
	if err != nil {
		return core.Plan{}, err
	}
	plan.OnCostError = p
	return plan, nil
}

func (a *app) runClean(cmd *cobra.Command, path string, opts cleanOptions) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	plan, err := a.plan(opts)
	if err != nil {
		return err
	}

	t, err := a.load(path, opts.encoding)
	if err != nil {
		return err
	}

	res, err := core.NewCleaner(a.names).Clean(ctx, t, plan)
	if err != nil {
		return err
	}

	output := opts.output
	if output == "" {
		output = defaultOutput(path)
	}
	if output == "-" {
		err = tableio.Write(cmd.OutOrStdout(), res.Table)
	} else {
		err = tableio.Save(output, res.Table)
	}
	if err != nil {
		return err
	}

	var exported int64
	if opts.export != "" {
		exported, err = a.export(ctx, opts.export, res)
		if err != nil {
			return err
		}
	}

	printSummary(cmd.ErrOrStderr(), output, opts.export, exported, res)
	return nil
}

func (a *app) export(ctx context.Context, table string, res *core.Result) (int64, error) {
	if !a.cfg.Database.ExportEnabled() {
		return 0, core.ErrExportDisabled
	}

	pool, err := store.Open(ctx, a.cfg.Database)
	if err != nil {
		return 0, err
	}
	defer pool.Close()

	return store.NewExporter(pool).Export(ctx, table, res.RunID, res.Table)
}

func printSummary(w io.Writer, output, table string, exported int64, res *core.Result) {
	fmt.Fprintf(w, "run %s: %d rows in, %d rows out\n", res.RunID, res.Before.Rows, res.After.Rows)
	if output != "-" {
		fmt.Fprintf(w, "wrote %s\n", output)
	}
	if !math.IsNaN(res.CapValue) {
		fmt.Fprintf(w, "capped %d costs at %.2f\n", res.Capped, res.CapValue)
	}
	for _, fr := range res.FailedRows {
		fmt.Fprintf(w, "line %d: %s\n", fr.Line, fr.Reason)
	}
	if table != "" {
		fmt.Fprintf(w, "exported %d rows to %s\n", exported, table)
	}
}

// defaultOutput turns "dir/apc.csv" into "dir/apc_clean.csv".
func defaultOutput(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "_clean.csv"
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
