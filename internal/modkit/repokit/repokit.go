// Package repokit binds document repositories to a transaction scoped querier
package repokit

import "docmend/internal/platform/store"

type (
	// Queryer is the read and write surface a bound repo sees
	Queryer = store.RowQuerier

	// TxRunner opens transactions for a store
	TxRunner = store.TxRunner

	// Rows are the result set of a query
	Rows = store.Rows

	// Row is a single row result
	Row = store.Row

	// CommandTag reports rows affected by a write
	CommandTag = store.CommandTag
)

// Binder binds a repo of type T to a Queryer, usually the one a Tx hands out
type Binder[T any] interface {
	Bind(Queryer) T
}

// BindFunc adapts a plain function to a Binder
type BindFunc[T any] func(Queryer) T

// Bind calls f
func (f BindFunc[T]) Bind(q Queryer) T { return f(q) }

// MustBind binds b to q and panics on a nil q
func MustBind[T any](b Binder[T], q Queryer) T {
	if q == nil {
		panic("repokit: nil Queryer")
	}
	return b.Bind(q)
}
