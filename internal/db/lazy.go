package db

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// LazyPool defers connecting until the first query. Concurrent first callers
// share a single connect attempt, and its error is returned from then on.
type LazyPool struct {
	dsn     string
	connect func(ctx context.Context, dsn string) (*pgxpool.Pool, error)

	once sync.Once
	pool *pgxpool.Pool
	err  error
}

func NewLazyPool(dsn string) *LazyPool {
	return &LazyPool{dsn: dsn, connect: NewPool}
}

// Get returns the shared pool, connecting on first use.
func (l *LazyPool) Get(ctx context.Context) (*pgxpool.Pool, error) {
	l.once.Do(func() {
		// connect must outlive the request that happened to trigger it
		l.pool, l.err = l.connect(context.WithoutCancel(ctx), l.dsn)
		if l.err != nil {
			l.err = fmt.Errorf("lazy connect: %w", l.err)
		}
	})
	return l.pool, l.err
}

func (l *LazyPool) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	pool, err := l.Get(ctx)
	if err != nil {
		return nil, err
	}
	return pool.Query(ctx, sql, args...)
}

func (l *LazyPool) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	pool, err := l.Get(ctx)
	if err != nil {
		return errRow{err: err}
	}
	return pool.QueryRow(ctx, sql, args...)
}

func (l *LazyPool) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	pool, err := l.Get(ctx)
	if err != nil {
		return pgconn.CommandTag{}, err
	}
	return pool.Exec(ctx, sql, arguments...)
}

func (l *LazyPool) BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error) {
	pool, err := l.Get(ctx)
	if err != nil {
		return nil, err
	}
	return pool.BeginTx(ctx, txOptions)
}

// Close releases the pool if it was ever opened.
func (l *LazyPool) Close() {
	// run the once so a later Get cannot connect after Close
	l.once.Do(func() { l.err = fmt.Errorf("lazy connect: pool closed") })
	if l.pool != nil {
		l.pool.Close()
	}
}

type errRow struct{ err error }

func (r errRow) Scan(...any) error { return r.err }
