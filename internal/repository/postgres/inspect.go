package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm/clause"

	"github.com/sakif/notebook/internal/apperror"
	"github.com/sakif/notebook/internal/migrate"
	"github.com/sakif/notebook/internal/schema"
)

var (
	_ schema.Inspector = (*DB)(nil)
	_ migrate.Source   = (*DB)(nil)
)

// columnTypes maps portable column kinds to PostgreSQL types.
var columnTypes = map[schema.Kind]string{
	schema.Text:    "TEXT",
	schema.Integer: "BIGINT",
	schema.Date:    "DATE",
	schema.Time:    "TIME",
}

// Columns lists the columns of table in the current schema.
func (db *DB) Columns(ctx context.Context, table string) ([]string, error) {
	m := db.gorm.WithContext(ctx).Migrator()
	if !m.HasTable(table) {
		return nil, apperror.NotFound("table", table)
	}

	types, err := m.ColumnTypes(table)
	if err != nil {
		return nil, fmt.Errorf("postgres: reading columns of %s: %w", table, err)
	}
	cols := make([]string, 0, len(types))
	for _, ct := range types {
		cols = append(cols, ct.Name())
	}
	return cols, nil
}

// AddColumn adds a nullable column with no default. IF NOT EXISTS keeps a
// concurrent start of a second process from failing on the same column.
func (db *DB) AddColumn(ctx context.Context, table string, col schema.Column) error {
	typ, ok := columnTypes[col.Kind]
	if !ok {
		return fmt.Errorf("postgres: no column type for kind %s", col.Kind)
	}

	err := db.gorm.WithContext(ctx).Exec(
		"ALTER TABLE ? ADD COLUMN IF NOT EXISTS ? "+typ,
		clause.Table{Name: table}, clause.Column{Name: col.Name},
	).Error
	if err != nil {
		return fmt.Errorf("postgres: adding column %s.%s: %w", table, col.Name, err)
	}
	return nil
}

// Tables lists the tables of the current schema.
func (db *DB) Tables(ctx context.Context) ([]string, error) {
	tables, err := db.gorm.WithContext(ctx).Migrator().GetTables()
	if err != nil {
		return nil, fmt.Errorf("postgres: listing tables: %w", err)
	}
	return tables, nil
}

// Rows reads every row of table, in id order, with whatever columns it has.
func (db *DB) Rows(ctx context.Context, table string) ([]migrate.Row, error) {
	rows, err := db.gorm.WithContext(ctx).Table(table).Order("id").Rows()
	if err != nil {
		return nil, fmt.Errorf("postgres: reading %s: %w", table, err)
	}
	defer rows.Close()

	out, err := migrate.ScanRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: reading %s: %w", table, err)
	}
	return out, nil
}

// Count returns the number of rows in table.
func (db *DB) Count(ctx context.Context, table string) (int64, error) {
	var n int64
	if err := db.gorm.WithContext(ctx).Table(table).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("postgres: counting %s: %w", table, err)
	}
	return n, nil
}
