package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sakif/notebook/internal/migrate"
	"github.com/sakif/notebook/internal/model"
)

var _ migrate.Target = (*DB)(nil)

// InTx runs fn inside one transaction. The transaction commits only if fn
// returns nil; on any error every insert made through the Writer is rolled back.
func (db *DB) InTx(ctx context.Context, fn func(w migrate.Writer) error) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning transaction: %w", err)
	}

	if err := fn(txWriter{tx: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback also failed: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing transaction: %w", err)
	}
	return nil
}

// txWriter inserts through an open transaction using the same statements
// as the repositories.
type txWriter struct {
	tx *sql.Tx
}

func (w txWriter) InsertUser(ctx context.Context, u *model.User) error {
	return insertUser(ctx, w.tx, u)
}

func (w txWriter) InsertNote(ctx context.Context, n *model.Note) error {
	return insertNote(ctx, w.tx, n)
}
