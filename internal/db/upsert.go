package db

import (
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// Dialect selects the bind-parameter style of the generated SQL.
type Dialect int

const (
	// Postgres uses numbered $n placeholders.
	Postgres Dialect = iota
	// SQLite uses ? placeholders.
	SQLite
)

// UpsertConfig defines the parameters for a single-row upsert statement.
type UpsertConfig struct {
	Table        string   // target table (e.g., "public.leads")
	Columns      []string // all columns being inserted, in bind order
	ConflictKeys []string // columns forming the unique constraint
	Preserve     []string // columns written on insert but never on conflict
	Returning    []string // columns returned after the write; nil = none
}

// UpdateColumns returns the columns refreshed on conflict: every column
// that is neither a conflict key nor preserved.
func (c UpsertConfig) UpdateColumns() []string {
	skip := make(map[string]bool, len(c.ConflictKeys)+len(c.Preserve))
	for _, k := range c.ConflictKeys {
		skip[k] = true
	}
	for _, k := range c.Preserve {
		skip[k] = true
	}
	var out []string
	for _, col := range c.Columns {
		if !skip[col] {
			out = append(out, col)
		}
	}
	return out
}

// UpsertSQL builds INSERT ... VALUES ... ON CONFLICT (keys) DO UPDATE SET ...
// for one row. Both Postgres and SQLite (3.35+) accept the generated form.
func UpsertSQL(d Dialect, cfg UpsertConfig) (string, error) {
	if cfg.Table == "" {
		return "", eris.New("db: upsert: no table specified")
	}
	if len(cfg.Columns) == 0 {
		return "", eris.New("db: upsert: no columns specified")
	}
	if len(cfg.ConflictKeys) == 0 {
		return "", eris.New("db: upsert: no conflict keys specified")
	}
	updateCols := cfg.UpdateColumns()
	if len(updateCols) == 0 {
		return "", eris.Errorf("db: upsert: nothing to update on conflict for %s", cfg.Table)
	}

	setClauses := make([]string, len(updateCols))
	for i, col := range updateCols {
		q := pgx.Identifier{col}.Sanitize()
		setClauses[i] = fmt.Sprintf("%s = EXCLUDED.%s", q, q)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO UPDATE SET %s",
		sanitizeTable(cfg.Table),
		quoteAndJoin(cfg.Columns),
		Placeholders(d, len(cfg.Columns)),
		quoteAndJoin(cfg.ConflictKeys),
		strings.Join(setClauses, ", "),
	)
	if len(cfg.Returning) > 0 {
		fmt.Fprintf(&b, " RETURNING %s", quoteAndJoin(cfg.Returning))
	}
	return b.String(), nil
}

// Placeholders returns n comma-separated bind parameters for the dialect.
func Placeholders(d Dialect, n int) string {
	ps := make([]string, n)
	for i := range ps {
		if d == SQLite {
			ps[i] = "?"
		} else {
			ps[i] = fmt.Sprintf("$%d", i+1)
		}
	}
	return strings.Join(ps, ", ")
}

// SelectSQL builds a SELECT of the given columns from table.
func SelectSQL(table string, cols []string) string {
	return fmt.Sprintf("SELECT %s FROM %s", quoteAndJoin(cols), sanitizeTable(table))
}

// sanitizeTable handles schema-qualified table names like "public.leads".
func sanitizeTable(table string) string {
	parts := strings.SplitN(table, ".", 2)
	if len(parts) == 2 {
		return pgx.Identifier{parts[0], parts[1]}.Sanitize()
	}
	return pgx.Identifier{table}.Sanitize()
}

// quoteAndJoin quotes each column name and joins with commas.
func quoteAndJoin(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = pgx.Identifier{c}.Sanitize()
	}
	return strings.Join(quoted, ", ")
}
