package repokit

import (
	"context"
	"strconv"
	"time"
)

// BeginHook runs first in every transaction, on the tx bound Queryer
type BeginHook func(ctx context.Context, q Queryer) error

// WithBeginHooks wraps inner so each Tx runs hooks before fn.
// A failing hook aborts the transaction
func WithBeginHooks(inner TxRunner, hooks ...BeginHook) TxRunner {
	if len(hooks) == 0 {
		return inner
	}
	return hookedTx{inner: inner, hooks: hooks}
}

// SetLocal sets a postgres setting for the rest of the transaction
func SetLocal(name, value string) BeginHook {
	return func(ctx context.Context, q Queryer) error {
		_, err := q.Exec(ctx, `SELECT set_config($1, $2, true)`, name, value)
		return err
	}
}

// StatementTimeout caps each statement in the transaction; zero or less is a noop hook
func StatementTimeout(d time.Duration) BeginHook {
	if d <= 0 {
		return func(context.Context, Queryer) error { return nil }
	}
	return SetLocal("statement_timeout", strconv.FormatInt(d.Milliseconds(), 10))
}

type hookedTx struct {
	inner TxRunner
	hooks []BeginHook
}

func (h hookedTx) Tx(ctx context.Context, fn func(q Queryer) error) error {
	return h.inner.Tx(ctx, func(q Queryer) error {
		for _, hk := range h.hooks {
			if err := hk(ctx, q); err != nil {
				return err
			}
		}
		return fn(q)
	})
}

func (h hookedTx) Exec(ctx context.Context, sql string, args ...any) (CommandTag, error) {
	return h.inner.Exec(ctx, sql, args...)
}

func (h hookedTx) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	return h.inner.Query(ctx, sql, args...)
}

func (h hookedTx) QueryRow(ctx context.Context, sql string, args ...any) Row {
	return h.inner.QueryRow(ctx, sql, args...)
}
