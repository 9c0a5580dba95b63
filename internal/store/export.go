package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/apcclean/internal/core"
	"github.com/JonMunkholm/apcclean/internal/logging"
)

// RunIDColumn is the column holding the cleaning run's UUID.
const RunIDColumn = "run_id"

// ErrInvalidTableName is returned for export targets that are not plain
// (optionally schema-qualified) lower-case identifiers.
var ErrInvalidTableName = errors.New("invalid table name")

var tableNameRegex = regexp.MustCompile(`^[a-z_][a-z0-9_]*(\.[a-z_][a-z0-9_]*)?$`)

// Beginner starts transactions. *pgxpool.Pool and *pgx.Conn satisfy it.
type Beginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Exporter writes cleaned tables to Postgres.
type Exporter struct {
	db Beginner
}

// NewExporter creates an Exporter on db.
func NewExporter(db Beginner) *Exporter {
	return &Exporter{db: db}
}

// Export creates the target table if needed and copies every row of t into
// it, tagged with runID. The table is created and filled in one
// transaction. It returns the number of rows copied.
func (e *Exporter) Export(ctx context.Context, name string, runID uuid.UUID, t *core.Table) (int64, error) {
	ident, err := ParseTableName(name)
	if err != nil {
		return 0, err
	}
	columns := ColumnNames(t.Header())

	tx, err := e.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, CreateTableSQL(ident, columns)); err != nil {
		return 0, fmt.Errorf("create table %s: %w", ident.Sanitize(), err)
	}
	for _, col := range columns {
		if _, err := tx.Exec(ctx, addColumnSQL(ident, col)); err != nil {
			return 0, fmt.Errorf("add column %s: %w", col, err)
		}
	}

	n, err := tx.CopyFrom(ctx, ident, append([]string{RunIDColumn}, columns...), rowSource(runID, t))
	if err != nil {
		return 0, fmt.Errorf("copy into %s: %w", ident.Sanitize(), err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}

	logging.FromContext(ctx).Info("table exported",
		"table", ident.Sanitize(),
		"run_id", runID.String(),
		"rows", n,
	)
	return n, nil
}

// ParseTableName validates name and splits an optional schema prefix.
func ParseTableName(name string) (pgx.Identifier, error) {
	if !tableNameRegex.MatchString(name) {
		return nil, fmt.Errorf("%w: %q (use lower-case letters, digits and _)", ErrInvalidTableName, name)
	}
	return pgx.Identifier(strings.Split(name, ".")), nil
}

// ColumnNames turns a CSV header into distinct Postgres column names:
// lower case, runs of other characters collapsed to '_'. Empty results
// become column_<n>; clashes, including with run_id, get a numeric suffix.
//
// "COST (£) charged to Wellcome" -> "cost_charged_to_wellcome"
func ColumnNames(header []string) []string {
	seen := map[string]bool{RunIDColumn: true}
	out := make([]string, len(header))

	for i, h := range header {
		base := snakeCase(h)
		if base == "" {
			base = "column_" + strconv.Itoa(i+1)
		}

		name := base
		for n := 2; seen[name]; n++ {
			name = base + "_" + strconv.Itoa(n)
		}
		seen[name] = true
		out[i] = name
	}
	return out
}

func snakeCase(s string) string {
	var b strings.Builder
	underscore := false
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if underscore && b.Len() > 0 {
				b.WriteByte('_')
			}
			underscore = false
			b.WriteRune(r)
			continue
		}
		underscore = true
	}
	return b.String()
}

// CreateTableSQL returns the CREATE TABLE IF NOT EXISTS statement for an
// export table with the given text columns.
func CreateTableSQL(ident pgx.Identifier, columns []string) string {
	defs := make([]string, 0, len(columns)+1)
	defs = append(defs, pgx.Identifier{RunIDColumn}.Sanitize()+" uuid NOT NULL")
	for _, c := range columns {
		defs = append(defs, pgx.Identifier{c}.Sanitize()+" text")
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", ident.Sanitize(), strings.Join(defs, ", "))
}

// addColumnSQL lets a later export with extra columns reuse the table.
func addColumnSQL(ident pgx.Identifier, column string) string {
	return fmt.Sprintf("ALTER TABLE %s ADD COLUMN IF NOT EXISTS %s text",
		ident.Sanitize(), pgx.Identifier{column}.Sanitize())
}

// rowSource feeds t to CopyFrom. Cells are pgtype.Text, so missing cells
// arrive as NULL.
func rowSource(runID uuid.UUID, t *core.Table) pgx.CopyFromSource {
	id := pgtype.UUID{Bytes: runID, Valid: true}
	return pgx.CopyFromSlice(t.NumRows(), func(i int) ([]any, error) {
		row := t.Row(i)
		values := make([]any, 0, len(row)+1)
		values = append(values, id)
		for _, c := range row {
			values = append(values, c)
		}
		return values, nil
	})
}
