package store

import (
	"context"
	"errors"
	"time"

	"docmend/internal/platform/store/pg"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// pgxQuerier is what *pgxpool.Pool and pgx.Tx have in common
type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// querier implements RowQuerier over pgx and reports every statement to tracer.
// slow < 0 never flags a statement as slow
type querier struct {
	q      pgxQuerier
	tracer pg.QueryTracer
	slow   time.Duration
}

func (q querier) Exec(ctx context.Context, sql string, args ...any) (CommandTag, error) {
	done := q.observe(ctx, sql, args)
	ct, err := q.q.Exec(ctx, sql, args...)
	done(err)
	return ct, err
}

// Query is traced when the rows are closed, so paging time is included
func (q querier) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	done := q.observe(ctx, sql, args)
	rs, err := q.q.Query(ctx, sql, args...)
	if err != nil {
		done(err)
		return nil, err
	}
	return &pgRows{Rows: rs, done: done}, nil
}

// QueryRow is traced after Scan
func (q querier) QueryRow(ctx context.Context, sql string, args ...any) Row {
	return pgRow{Row: q.q.QueryRow(ctx, sql, args...), done: q.observe(ctx, sql, args)}
}

func (q querier) observe(ctx context.Context, sql string, args []any) func(error) {
	if q.tracer == nil {
		return func(error) {}
	}
	start := time.Now()
	return func(err error) {
		took := time.Since(start)
		q.tracer.OnQuery(ctx, pg.QueryEvent{
			SQL:       sql,
			Args:      args,
			ElapsedUS: took.Microseconds(),
			Err:       err,
			Slow:      q.slow >= 0 && took >= q.slow,
		})
	}
}

// in runs fn on tx, committing on success and rolling back otherwise
func (q querier) in(ctx context.Context, tx pgx.Tx, fn func(RowQuerier) error) error {
	if err := fn(querier{q: tx, tracer: q.tracer, slow: q.slow}); err != nil {
		// the caller's ctx may already be cancelled
		if rbErr := tx.Rollback(context.WithoutCancel(ctx)); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			return errors.Join(err, rbErr)
		}
		return err
	}
	return tx.Commit(ctx)
}

// pgDB is the TxRunner over an opened pool
type pgDB struct {
	querier
	p *pg.PG
}

func newPGDB(p *pg.PG) *pgDB {
	return &pgDB{
		querier: querier{q: p.Pool, tracer: p.Tracer, slow: time.Duration(p.SlowMs) * time.Millisecond},
		p:       p,
	}
}

// Ping round trips through the traced path
func (d *pgDB) Ping(ctx context.Context) error {
	if d == nil || d.p == nil {
		return errors.New("pg: not open")
	}
	var one int
	return d.QueryRow(ctx, "SELECT 1").Scan(&one)
}

func (d *pgDB) Close() error { d.p.Close(); return nil }

// Tx runs fn in one transaction; an error from fn rolls it back
func (d *pgDB) Tx(ctx context.Context, fn func(q RowQuerier) error) error {
	tx, err := d.p.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	return d.in(ctx, tx, fn)
}

type pgRow struct {
	pgx.Row
	done func(error)
}

func (r pgRow) Scan(dest ...any) error {
	err := r.Row.Scan(dest...)
	r.done(err)
	return err
}

type pgRows struct {
	pgx.Rows
	done func(error)
}

func (r *pgRows) Close() {
	r.Rows.Close()
	if r.done != nil {
		r.done(r.Rows.Err())
		r.done = nil
	}
}
