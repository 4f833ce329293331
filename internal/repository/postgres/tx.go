package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/sakif/notebook/internal/migrate"
	"github.com/sakif/notebook/internal/model"
)

var _ migrate.Target = (*DB)(nil)

// InTx runs fn in one GORM transaction. GORM commits when fn returns nil
// and rolls back otherwise.
func (db *DB) InTx(ctx context.Context, fn func(w migrate.Writer) error) error {
	return db.gorm.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(txWriter{tx: tx})
	})
}

type txWriter struct {
	tx *gorm.DB
}

func (w txWriter) InsertUser(ctx context.Context, u *model.User) error {
	return insertUser(w.tx.WithContext(ctx), u)
}

func (w txWriter) InsertNote(ctx context.Context, n *model.Note) error {
	return insertNote(w.tx.WithContext(ctx), n)
}
