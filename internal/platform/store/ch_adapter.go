package store

import (
	"context"
	"errors"

	"docmend/internal/platform/store/ch"
)

// ledgerConn exposes *ch.CH as the Clickhouse seam
type ledgerConn struct{ c *ch.CH }

var (
	_ Clickhouse = ledgerConn{}
	_ Pinger     = ledgerConn{}
)

func (l ledgerConn) Exec(ctx context.Context, sql string, args ...any) error {
	return l.c.Exec(ctx, sql, args...)
}

func (l ledgerConn) Insert(ctx context.Context, table string, rows [][]any) error {
	return l.c.Insert(ctx, table, rows)
}

func (l ledgerConn) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	rs, err := l.c.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return chRows{rs}, nil
}

func (l ledgerConn) Ping(ctx context.Context) error {
	if l.c == nil {
		return errors.New("ch: not open")
	}
	return l.c.Ping(ctx)
}

func (l ledgerConn) Close() error { return l.c.Close() }

// chRows drops the error from ch.Rows.Close
type chRows struct{ ch.Rows }

func (r chRows) Close() { _ = r.Rows.Close() }
