// Package ledger records one row per collection run in ClickHouse
package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	perr "docmend/internal/platform/errors"
	"docmend/internal/platform/store"
	"docmend/internal/platform/validate"
	"docmend/internal/services/repair/domain"
)

// DefaultTable is the ledger table name
const DefaultTable = "repair_runs"

const createSQL = `
	CREATE TABLE IF NOT EXISTS %s (
		run_id      String,
		collection  String,
		kind        LowCardinality(String),
		dry_run     UInt8,
		backup      String,
		scanned     UInt32,
		updated     UInt32,
		unchanged   UInt32,
		failed      UInt32,
		failed_in   LowCardinality(String),
		error       String,
		started_at  DateTime64(3, 'UTC'),
		finished_at DateTime64(3, 'UTC')
	)
	ENGINE = MergeTree
	ORDER BY (started_at, run_id, collection)
`

// CH writes ledger rows through the store ClickHouse seam
type CH struct {
	ch    store.Clickhouse
	table string

	once    sync.Once
	initErr error
}

// New returns a ClickHouse ledger writing into table
func New(ch store.Clickhouse, table string) *CH {
	if ch == nil {
		panic("ledger.CH requires a non nil Clickhouse")
	}
	if table == "" {
		table = DefaultTable
	}
	if !validate.Ident(table) {
		panic("ledger: invalid table name " + table)
	}
	return &CH{ch: ch, table: table}
}

// FromStore returns a ClickHouse ledger, or Nop when ClickHouse is not configured
func FromStore(ch store.Clickhouse, table string) domain.Ledger {
	if ch == nil {
		return Nop{}
	}
	return New(ch, table)
}

// Ensure creates the ledger table once per process
func (l *CH) Ensure(ctx context.Context) error {
	l.once.Do(func() {
		l.initErr = l.ch.Exec(ctx, fmt.Sprintf(createSQL, l.table))
	})
	return l.initErr
}

// Record appends the outcome of one collection run
func (l *CH) Record(ctx context.Context, runID string, out domain.CollectionOutcome) error {
	if err := l.Ensure(ctx); err != nil {
		return perr.Wrap(err, perr.ErrorCodeUnavailable, "ledger: create table")
	}
	if err := l.ch.Insert(ctx, l.table, [][]any{Row(runID, out)}); err != nil {
		return perr.Wrap(err, perr.ErrorCodeUnavailable, "ledger: insert")
	}
	return nil
}

// Row maps an outcome to the ledger column order
func Row(runID string, out domain.CollectionOutcome) []any {
	var (
		dry    uint8
		errTxt string
	)
	if out.DryRun {
		dry = 1
	}
	if out.Err != nil {
		errTxt = out.Err.Error()
	}
	return []any{
		runID,
		out.Collection,
		out.Kind,
		dry,
		out.Backup,
		uint32(out.Stats.Scanned),
		uint32(out.Stats.Updated),
		uint32(out.Stats.Unchanged),
		uint32(out.Stats.Failed),
		string(out.FailedIn),
		errTxt,
		utc(out.Started),
		utc(out.Finished),
	}
}

func utc(t time.Time) time.Time {
	if t.IsZero() {
		return time.Unix(0, 0).UTC()
	}
	return t.UTC()
}

// Nop discards ledger rows
type Nop struct{}

// Record implements domain.Ledger
func (Nop) Record(context.Context, string, domain.CollectionOutcome) error { return nil }
