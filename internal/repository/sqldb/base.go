package sqldb

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
)

type txKey struct{}

// BaseRepository provides common functionality for all repositories
type BaseRepository struct {
	db *sqlx.DB
}

// NewBaseRepository creates a new base repository
func NewBaseRepository(db *sqlx.DB) BaseRepository {
	return BaseRepository{db: db}
}

// NewTransactor exposes transaction scoping to the service layer.
func NewTransactor(db *sqlx.DB) *BaseRepository {
	base := NewBaseRepository(db)
	return &base
}

// GetDB returns the database instance
func (r *BaseRepository) GetDB() *sqlx.DB {
	return r.db
}

// ext returns the transaction carried by ctx, or the pool when there is none.
func (r *BaseRepository) ext(ctx context.Context) sqlx.ExtContext {
	if tx, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return tx
	}
	return r.db
}

// WithinTx executes fn within a transaction. A ctx that already carries a
// transaction is reused so that nested calls share one unit of work.
func (r *BaseRepository) WithinTx(ctx context.Context, readOnly bool, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return fn(ctx)
	}

	return r.WithTx(ctx, readOnly, func(tx *sqlx.Tx) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// WithTx executes a function within a transaction
func (r *BaseRepository) WithTx(ctx context.Context, readOnly bool, fn func(*sqlx.Tx) error) error {
	var opts *sql.TxOptions
	// read-only mode is only requested from PostgreSQL
	if readOnly && r.db.DriverName() == DriverPostgres {
		opts = &sql.TxOptions{ReadOnly: true}
	}

	tx, err := r.db.BeginTxx(ctx, opts)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// execAffected runs a write and reports whether any row matched.
func (r *BaseRepository) execAffected(ctx context.Context, query string, args ...interface{}) (bool, error) {
	q := r.ext(ctx)
	result, err := q.ExecContext(ctx, q.Rebind(query), args...)
	if err != nil {
		return false, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows > 0, nil
}
