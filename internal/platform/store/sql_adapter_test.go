package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"docmend/internal/platform/store/pg"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// fakeTx is a pgx.Tx serving one canned document row
type fakeTx struct {
	execErr  error
	queryErr error
	scanErr  error
	rbErr    error

	committed, rolledBack bool
	rows                  *fakePgxRows
}

func (f *fakeTx) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	if f.execErr != nil {
		return pgconn.CommandTag{}, f.execErr
	}
	return pgconn.NewCommandTag("UPDATE 1"), nil
}

func (f *fakeTx) Query(context.Context, string, ...any) (pgx.Rows, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	f.rows = &fakePgxRows{ids: []string{"a", "b"}, i: -1}
	return f.rows, nil
}

func (f *fakeTx) QueryRow(context.Context, string, ...any) pgx.Row { return fakePgxRow{f.scanErr} }

func (f *fakeTx) Begin(context.Context) (pgx.Tx, error) { return f, nil }
func (f *fakeTx) Commit(context.Context) error          { f.committed = true; return nil }
func (f *fakeTx) Rollback(context.Context) error        { f.rolledBack = true; return f.rbErr }
func (f *fakeTx) CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error) {
	return 0, errors.New("unsupported")
}
func (f *fakeTx) SendBatch(context.Context, *pgx.Batch) pgx.BatchResults { return nil }
func (f *fakeTx) LargeObjects() pgx.LargeObjects                          { return pgx.LargeObjects{} }
func (f *fakeTx) Prepare(context.Context, string, string) (*pgconn.StatementDescription, error) {
	return nil, errors.New("unsupported")
}
func (f *fakeTx) Conn() *pgx.Conn { return nil }

type fakePgxRow struct{ err error }

func (r fakePgxRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*dest[0].(*int) = 1
	return nil
}

type fakePgxRows struct {
	ids    []string
	i      int
	closed bool
}

func (r *fakePgxRows) Next() bool                    { r.i++; return r.i < len(r.ids) }
func (r *fakePgxRows) Scan(dest ...any) error        { *dest[0].(*string) = r.ids[r.i]; return nil }
func (r *fakePgxRows) Err() error                    { return nil }
func (r *fakePgxRows) Close()                        { r.closed = true }
func (r *fakePgxRows) CommandTag() pgconn.CommandTag { return pgconn.NewCommandTag("SELECT 2") }
func (r *fakePgxRows) Values() ([]any, error)        { return nil, nil }
func (r *fakePgxRows) RawValues() [][]byte           { return nil }
func (r *fakePgxRows) Conn() *pgx.Conn               { return nil }
func (r *fakePgxRows) FieldDescriptions() []pgconn.FieldDescription {
	return []pgconn.FieldDescription{{Name: "id"}}
}

type recTracer struct{ events []pg.QueryEvent }

func (r *recTracer) OnQuery(_ context.Context, ev pg.QueryEvent) { r.events = append(r.events, ev) }

func TestQuerier_Exec(t *testing.T) {
	t.Parallel()

	tr := &recTracer{}
	q := querier{q: &fakeTx{}, tracer: tr, slow: -1}
	ct, err := q.Exec(context.Background(), "UPDATE documents SET fields = $1", "{}")
	if err != nil || ct.RowsAffected() != 1 {
		t.Fatalf("Exec = %v, %v", ct, err)
	}
	if len(tr.events) != 1 || tr.events[0].Slow || tr.events[0].Args.([]any)[0] != "{}" {
		t.Fatalf("events = %+v", tr.events)
	}
}

func TestQuerier_QueryTracedOnClose(t *testing.T) {
	t.Parallel()

	tr := &recTracer{}
	fx := &fakeTx{}
	q := querier{q: fx, tracer: tr}

	rs, err := q.Query(context.Background(), "SELECT id FROM documents")
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	var ids []string
	for rs.Next() {
		var id string
		if err := rs.Scan(&id); err != nil {
			t.Fatal(err)
		}
		ids = append(ids, id)
	}
	if len(tr.events) != 0 {
		t.Fatal("query traced before close")
	}
	rs.Close()
	rs.Close()
	if len(ids) != 2 || !fx.rows.closed {
		t.Fatalf("ids = %v closed = %v", ids, fx.rows.closed)
	}
	if len(tr.events) != 1 || !tr.events[0].Slow {
		t.Fatalf("want one slow event, got %+v", tr.events)
	}
}

func TestQuerier_QueryRowTracedAfterScan(t *testing.T) {
	t.Parallel()

	tr := &recTracer{}
	boom := errors.New("no rows")
	q := querier{q: &fakeTx{scanErr: boom}, tracer: tr, slow: time.Hour}

	var n int
	if err := q.QueryRow(context.Background(), "SELECT 1").Scan(&n); !errors.Is(err, boom) {
		t.Fatalf("Scan err = %v", err)
	}
	if len(tr.events) != 1 || !errors.Is(tr.events[0].Err, boom) || tr.events[0].Slow {
		t.Fatalf("events = %+v", tr.events)
	}
}

func TestQuerier_ErrorsWithoutTracer(t *testing.T) {
	t.Parallel()

	q := querier{q: &fakeTx{execErr: errors.New("exec"), queryErr: errors.New("query")}}
	if _, err := q.Exec(context.Background(), "x"); err == nil {
		t.Fatal("expected Exec error")
	}
	if _, err := q.Query(context.Background(), "x"); err == nil {
		t.Fatal("expected Query error")
	}
}

func TestQuerier_In(t *testing.T) {
	t.Parallel()

	ok := &fakeTx{}
	err := querier{}.in(context.Background(), ok, func(q RowQuerier) error {
		_, err := q.Exec(context.Background(), "UPDATE documents")
		return err
	})
	if err != nil || !ok.committed || ok.rolledBack {
		t.Fatalf("err=%v committed=%v rolledBack=%v", err, ok.committed, ok.rolledBack)
	}

	fail := errors.New("fail")
	bad := &fakeTx{}
	if err := (querier{}).in(context.Background(), bad, func(RowQuerier) error { return fail }); !errors.Is(err, fail) {
		t.Fatalf("err = %v", err)
	}
	if bad.committed || !bad.rolledBack {
		t.Fatal("want rollback only")
	}

	rb := errors.New("rollback")
	worse := &fakeTx{rbErr: rb}
	err = querier{}.in(context.Background(), worse, func(RowQuerier) error { return fail })
	if !errors.Is(err, fail) || !errors.Is(err, rb) {
		t.Fatalf("want both errors, got %v", err)
	}
}

func TestPGDB_NilPing(t *testing.T) {
	t.Parallel()

	var d *pgDB
	if err := d.Ping(context.Background()); err == nil {
		t.Fatal("expected error on nil db")
	}
}
