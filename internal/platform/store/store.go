// Package store opens the postgres documents table and the optional clickhouse
// run ledger. Repos see them only through the small interfaces below
package store

import (
	"context"
	"errors"
	"fmt"

	"docmend/internal/platform/logger"
)

type (
	// Row is a single result row
	Row interface {
		Scan(dest ...any) error
	}

	// Rows is a result set; Close must be called
	Rows interface {
		Row
		Next() bool
		Err() error
		Close()
	}

	// CommandTag reports what a write did
	CommandTag interface {
		String() string
		RowsAffected() int64
	}

	// RowQuerier runs sql statements
	RowQuerier interface {
		Exec(ctx context.Context, sql string, args ...any) (CommandTag, error)
		Query(ctx context.Context, sql string, args ...any) (Rows, error)
		QueryRow(ctx context.Context, sql string, args ...any) Row
	}

	// TxRunner is a RowQuerier that can also run fn inside one transaction
	TxRunner interface {
		RowQuerier
		Tx(ctx context.Context, fn func(q RowQuerier) error) error
	}

	// Clickhouse is what the run ledger writes through
	Clickhouse interface {
		Exec(ctx context.Context, sql string, args ...any) error
		Insert(ctx context.Context, table string, rows [][]any) error
		Query(ctx context.Context, sql string, args ...any) (Rows, error)
		Close() error
	}

	Pinger interface{ Ping(context.Context) error }
)

// Store holds whichever backends were enabled; nil fields are disabled
type Store struct {
	Log logger.Logger
	PG  TxRunner
	CH  Clickhouse
}

// Open brings up the documents store and then the ledger as cfg enables them.
// When the ledger fails the documents store is closed again
func Open(ctx context.Context, cfg Config, opts ...Option) (*Store, error) {
	s := &Store{}
	for _, o := range opts {
		if err := o(s); err != nil {
			return nil, err
		}
	}

	var err error
	if cfg.PG.Enabled {
		if s.PG, err = openPG(ctx, cfg, s); err != nil {
			return nil, fmt.Errorf("open documents: %w", err)
		}
	}
	if cfg.CH.Enabled {
		if s.CH, err = openCH(ctx, cfg, s); err != nil {
			_ = s.Close(ctx)
			return nil, fmt.Errorf("open ledger: %w", err)
		}
	}
	return s, nil
}

// Guard pings every opened backend and reports all failures at once
func (s *Store) Guard(ctx context.Context) error {
	if s == nil {
		return errors.New("store: not opened")
	}
	backends := []struct {
		name string
		b    any
	}{
		{"documents (pg)", s.PG},
		{"ledger (ch)", s.CH},
	}
	var errs []error
	for _, be := range backends {
		p, ok := be.b.(Pinger)
		if !ok {
			continue
		}
		if err := p.Ping(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", be.name, err))
		}
	}
	return errors.Join(errs...)
}

// Close shuts the ledger and then the documents store; safe on nil
func (s *Store) Close(_ context.Context) error {
	if s == nil {
		return nil
	}
	var errs []error
	if s.CH != nil {
		errs = append(errs, s.CH.Close())
	}
	if c, ok := s.PG.(interface{ Close() error }); ok {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}
