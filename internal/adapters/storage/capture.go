package storage

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/jarvis-lab/netguard/internal/core/domain"
)

// runSuffixRe matches the timestamp suffix of a run table name.
var runSuffixRe = regexp.MustCompile(`^\d{8}_\d{6}$`)

// buildCreateTable renders the DDL for a capture table. Identifiers come
// from compiled-in TableSpecs, never from user input.
func buildCreateTable(name string, columns []domain.Column) string {
	var b strings.Builder
	b.WriteString("CREATE TABLE IF NOT EXISTS ")
	b.WriteString(name)
	b.WriteString(" (id INTEGER PRIMARY KEY AUTOINCREMENT")
	for _, col := range columns {
		b.WriteString(", ")
		b.WriteString(col.Name)
		b.WriteString(" ")
		b.WriteString(col.Type)
	}
	b.WriteString(")")
	return b.String()
}

// CreateRunTable creates a fresh table for one collector run.
func (a *SQLiteAdapter) CreateRunTable(ctx context.Context, spec domain.TableSpec, startedAt time.Time) (string, error) {
	name := spec.Prefix + "_" + startedAt.Format(domain.RunTableLayout)
	if !domain.IsValidTableName(name) {
		return "", fmt.Errorf("invalid run table name %q", name)
	}
	if _, err := a.raw.ExecContext(ctx, buildCreateTable(name, spec.Columns)); err != nil {
		return "", fmt.Errorf("create run table %s: %w", name, err)
	}
	for _, col := range spec.Indexes {
		stmt := fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_%s ON %s(%s)", name, col, name, col)
		if _, err := a.raw.ExecContext(ctx, stmt); err != nil {
			return "", fmt.Errorf("index %s on %s: %w", col, name, err)
		}
	}
	return name, nil
}

// InsertRows appends parsed rows to a run table inside one transaction.
func (a *SQLiteAdapter) InsertRows(ctx context.Context, table string, columns []domain.Column, rows []domain.Row) error {
	if len(rows) == 0 {
		return nil
	}
	if !domain.IsValidTableName(table) {
		return fmt.Errorf("invalid table name %q", table)
	}

	names := make([]string, len(columns))
	marks := make([]string, len(columns))
	for i, col := range columns {
		names[i] = col.Name
		marks[i] = "?"
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(names, ", "), strings.Join(marks, ", "))

	tx, err := a.raw.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		if len(row) != len(columns) {
			return fmt.Errorf("row has %d values, table %s needs %d", len(row), table, len(columns))
		}
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return fmt.Errorf("insert into %s: %w", table, err)
		}
	}

	return tx.Commit()
}

// runTables returns the run table names for a prefix, ascending. The
// timestamp suffix sorts lexicographically in chronological order.
func (a *SQLiteAdapter) runTables(ctx context.Context, prefix string) ([]string, error) {
	rows, err := a.raw.QueryContext(ctx,
		`SELECT name FROM sqlite_master WHERE type='table' AND name LIKE ? ESCAPE '\'`,
		strings.ReplaceAll(prefix, "_", `\_`)+`\_%`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		if runSuffixRe.MatchString(strings.TrimPrefix(name, prefix+"_")) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, rows.Err()
}

// LatestTable returns the newest run table for a prefix, or "".
func (a *SQLiteAdapter) LatestTable(ctx context.Context, prefix string) (string, error) {
	names, err := a.runTables(ctx, prefix)
	if err != nil {
		return "", err
	}
	if len(names) == 0 {
		return "", nil
	}
	return names[len(names)-1], nil
}

// ListCaptureTables returns all run tables grouped by family prefix.
func (a *SQLiteAdapter) ListCaptureTables(ctx context.Context) (map[string][]string, error) {
	out := make(map[string][]string)
	for _, spec := range domain.AllTableSpecs() {
		names, err := a.runTables(ctx, spec.Prefix)
		if err != nil {
			return nil, err
		}
		if len(names) > 0 {
			out[spec.Prefix] = names
		}
	}
	return out, nil
}

// TableRows reads back rows from a run table, newest first.
func (a *SQLiteAdapter) TableRows(ctx context.Context, table string, limit int) ([]domain.TableRow, error) {
	return a.TableRowsPage(ctx, table, limit, 0)
}

// TableRowsPage reads one page of a run table, newest rows first.
func (a *SQLiteAdapter) TableRowsPage(ctx context.Context, table string, limit, offset int) ([]domain.TableRow, error) {
	if !domain.IsValidTableName(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := a.raw.QueryContext(ctx,
		fmt.Sprintf("SELECT * FROM %s ORDER BY id DESC LIMIT ? OFFSET ?", table), limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []domain.TableRow
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}

		row := make(domain.TableRow, len(cols))
		for i, col := range cols {
			v := vals[i]
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			row[col] = v
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// CountRows returns the number of rows in a run table.
func (a *SQLiteAdapter) CountRows(ctx context.Context, table string) (int64, error) {
	if !domain.IsValidTableName(table) {
		return 0, fmt.Errorf("invalid table name %q", table)
	}
	var n int64
	err := a.raw.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n)
	return n, err
}

// CaptureTableCount counts existing run tables across all families.
func (a *SQLiteAdapter) CaptureTableCount(ctx context.Context) (int, error) {
	tables, err := a.ListCaptureTables(ctx)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, names := range tables {
		n += len(names)
	}
	return n, nil
}
