package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB is satisfied by both the pool and a transaction, so repositories run
// unchanged inside or outside a unit of work.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// Store hands out the repositories over one pool.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// RunTx runs fn in a transaction, read committed unless opts says
// otherwise. fn's error rolls back and is returned unwrapped so callers can
// still classify it.
func (s *Store) RunTx(
	ctx context.Context,
	opts *pgx.TxOptions,
	fn func(ctx context.Context, tx DB) error,
) error {
	return runTx(ctx, s.pool, opts, fn)
}

func runTx(
	ctx context.Context,
	pool *pgxpool.Pool,
	opts *pgx.TxOptions,
	fn func(ctx context.Context, tx DB) error,
) (err error) {
	const op = "postgres.runTx"

	txOpts := pgx.TxOptions{IsoLevel: pgx.ReadCommitted, AccessMode: pgx.ReadWrite}
	if opts != nil {
		txOpts = *opts
	}

	tx, err := pool.BeginTx(ctx, txOpts)
	if err != nil {
		return fmt.Errorf("%s: begin: %w", op, err)
	}

	defer func() {
		if err == nil {
			return
		}
		if rbErr := tx.Rollback(context.WithoutCancel(ctx)); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			err = errors.Join(err, fmt.Errorf("%s: rollback: %w", op, rbErr))
		}
	}()

	if err = fn(ctx, tx); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("%s: commit: %w", op, err)
	}

	return nil
}

func (s *Store) Orders() *OrderRepo             { return &OrderRepo{pool: s.pool} }
func (s *Store) Seats() *SeatRepo               { return &SeatRepo{pool: s.pool} }
func (s *Store) Performances() *PerformanceRepo { return &PerformanceRepo{pool: s.pool} }
func (s *Store) Reports() *ReportRepo           { return &ReportRepo{pool: s.pool} }
