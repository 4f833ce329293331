package sqlite

import (
	"context"
	"fmt"

	"github.com/sakif/notebook/internal/apperror"
	"github.com/sakif/notebook/internal/migrate"
	"github.com/sakif/notebook/internal/schema"
)

var (
	_ schema.Inspector = (*DB)(nil)
	_ migrate.Source   = (*DB)(nil)
)

// columnTypes maps portable column kinds to SQLite declared types.
var columnTypes = map[schema.Kind]string{
	schema.Text:    "TEXT",
	schema.Integer: "INTEGER",
	schema.Date:    "DATE",
	schema.Time:    "TIME",
}

// Columns lists a table's column names using pragma_table_info.
// A table that does not exist has no columns, which we report as NotFound.
func (db *DB) Columns(ctx context.Context, table string) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT name FROM pragma_table_info(?) ORDER BY cid`, table,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: reading columns of %s: %w", table, err)
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("sqlite: scanning column name: %w", err)
		}
		cols = append(cols, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating columns: %w", err)
	}

	if len(cols) == 0 {
		return nil, apperror.NotFound("table", table)
	}
	return cols, nil
}

// AddColumn adds a nullable column with no default. ALTER TABLE ... ADD
// COLUMN in SQLite never rewrites existing rows; they read back as NULL.
func (db *DB) AddColumn(ctx context.Context, table string, col schema.Column) error {
	typ, ok := columnTypes[col.Kind]
	if !ok {
		return fmt.Errorf("sqlite: no column type for kind %s", col.Kind)
	}

	_, err := db.conn.ExecContext(ctx, fmt.Sprintf(
		`ALTER TABLE %s ADD COLUMN %s %s`, quoteIdent(table), quoteIdent(col.Name), typ,
	))
	if err != nil {
		return fmt.Errorf("sqlite: adding column %s.%s: %w", table, col.Name, err)
	}
	return nil
}

// Tables lists user tables, skipping SQLite's own sqlite_* tables.
func (db *DB) Tables(ctx context.Context) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT name FROM sqlite_master
		 WHERE type = 'table' AND name NOT LIKE 'sqlite\_%' ESCAPE '\'
		 ORDER BY name`,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing tables: %w", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("sqlite: scanning table name: %w", err)
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating tables: %w", err)
	}
	return tables, nil
}

// Rows reads every row of table with whatever columns it has.
func (db *DB) Rows(ctx context.Context, table string) ([]migrate.Row, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT * FROM `+quoteIdent(table)+` ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: reading %s: %w", table, err)
	}
	defer rows.Close()

	out, err := migrate.ScanRows(rows)
	if err != nil {
		return nil, fmt.Errorf("sqlite: reading %s: %w", table, err)
	}
	return out, nil
}

// Count returns the number of rows in table.
func (db *DB) Count(ctx context.Context, table string) (int64, error) {
	var n int64
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+quoteIdent(table)).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite: counting %s: %w", table, err)
	}
	return n, nil
}
