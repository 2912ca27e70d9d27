// Package module provides the repair module implementation
package module

import (
	"context"

	"docmend/internal/core/classify"
	"docmend/internal/core/normalize"
	"docmend/internal/modkit"
	perr "docmend/internal/platform/errors"
	"docmend/internal/platform/logger"
	"docmend/internal/services/repair/domain"
	"docmend/internal/services/repair/guardrails"
	"docmend/internal/services/repair/ledger"
	"docmend/internal/services/repair/repo"
	"docmend/internal/services/repair/service"
)

// Name is the default module name
const Name = "repair"

// Ports defines the repair module ports
type Ports struct {
	Runner domain.RunnerPort
	Store  domain.DocStore
}

// Module implements the repair module
type Module struct {
	deps   modkit.Deps
	opts   Options
	name   string
	ports  Ports
	ledger domain.Ledger
}

// ensurer is implemented by ledgers that create their table up front
type ensurer interface {
	Ensure(ctx context.Context) error
}

var _ ensurer = (*ledger.CH)(nil)

// New constructs the repair module from validated options.
// modkit.WithPorts(domain.Ports{...}) replaces the Postgres store or the ClickHouse ledger
func New(deps modkit.Deps, opts Options, mopts ...modkit.Option) (*Module, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	b := modkit.Build(mopts...)
	over, _ := b.Ports.(domain.Ports)

	table, err := classify.TableByName(opts.Thresholds)
	if err != nil {
		return nil, perr.WithField(perr.Wrap(err, perr.ErrorCodeInvalidArgument, err.Error()), "thresholds")
	}
	generic := normalize.Generic
	generic.Fallback = opts.GenericFallback
	norm := normalize.New(
		normalize.WithClassifier(classify.New(table)),
		normalize.WithRuleSet(generic),
	)

	st := over.Store
	if st == nil {
		if deps.PG == nil {
			return nil, perr.New(perr.ErrorCodeUnavailable, "repair: postgres is not configured")
		}
		st = repo.NewPGStore(deps.PG,
			repo.WithPageSize(opts.PageSize),
			repo.WithStatementTimeout(opts.StatementTimeout),
		)
	}
	led := over.Ledger
	if led == nil {
		led = ledger.FromStore(deps.CH, opts.LedgerTable)
	}

	svc := service.New(st, norm, led, service.Config{
		DryRun:    opts.DryRun,
		Backup:    opts.Backup,
		Verbose:   opts.Verbose,
		ChunkSize: opts.BatchSize,
		Preview:   opts.Preview,
		MaxErrors: opts.MaxErrors,
		All:       opts.All,
		Known:     opts.Known,
		Timeouts: guardrails.Timeouts{
			Collection: opts.CollectionTimeout,
			Scan:       opts.ScanTimeout,
			Chunk:      opts.ChunkTimeout,
		},
	})
	if opts.Out != nil {
		svc.Out = opts.Out
	}

	return &Module{
		deps:   deps,
		opts:   opts,
		name:   b.NameOr(Name),
		ports:  Ports{Runner: svc, Store: st},
		ledger: led,
	}, nil
}

// Prepare creates the documents table when the store is Postgres and EnsureSchema is set,
// then the run ledger table when the ledger needs one
func (m *Module) Prepare(ctx context.Context) error {
	if pg, ok := m.ports.Store.(*repo.PGStore); ok && m.opts.EnsureSchema {
		if err := pg.EnsureSchema(ctx); err != nil {
			return err
		}
		logger.C(ctx).Debug().Msg("repair: documents schema ensured")
	}
	if e, ok := m.ledger.(ensurer); ok {
		if err := e.Ensure(ctx); err != nil {
			return perr.Wrap(err, perr.ErrorCodeUnavailable, "ledger: create table")
		}
		logger.C(ctx).Debug().Msg("repair: ledger table ensured")
	}
	return nil
}

// Name returns the module name
func (m *Module) Name() string { return m.name }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }
