package ch

import (
	"context"
	"errors"
	"testing"

	"docmend/internal/platform/testkit"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

// fakeBatch embeds driver.Batch so only the methods Insert uses need bodies
type fakeBatch struct {
	driver.Batch
	appended  [][]any
	appendErr error
	sent      bool
	aborted   bool
}

func (b *fakeBatch) Append(v ...any) error {
	if b.appendErr != nil {
		return b.appendErr
	}
	b.appended = append(b.appended, v)
	return nil
}
func (b *fakeBatch) Send() error  { b.sent = true; return nil }
func (b *fakeBatch) Abort() error { b.aborted = true; return nil }

type fakeConn struct {
	batch    *fakeBatch
	prepared string
	execSQL  string
	pingErr  error
	closed   bool
}

func (f *fakeConn) Ping(context.Context) error { return f.pingErr }
func (f *fakeConn) Exec(_ context.Context, q string, _ ...any) error {
	f.execSQL = q
	return nil
}
func (f *fakeConn) Query(context.Context, string, ...any) (driver.Rows, error) {
	return nil, errors.New("not used")
}
func (f *fakeConn) PrepareBatch(_ context.Context, q string, _ ...driver.PrepareBatchOption) (driver.Batch, error) {
	f.prepared = q
	return f.batch, nil
}
func (f *fakeConn) Close() error { f.closed = true; return nil }

func TestOpen_EmptyURL(t *testing.T) {
	t.Parallel()

	if _, err := Open(context.Background(), Config{URL: "  "}); err == nil {
		t.Fatalf("expected error for empty url")
	}
}

func TestOpen_BadDSN(t *testing.T) {
	t.Parallel()

	if _, err := Open(context.Background(), Config{URL: "clickhouse://host:port:bad/%zz"}); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestOpen_SetsClientInfo(t *testing.T) {
	testkit.Serial(t)

	var got *clickhouse.Options
	fc := &fakeConn{}
	testkit.Swap(t, &openConn, func(opts *clickhouse.Options) (conn, error) {
		got = opts
		return fc, nil
	})

	c, err := Open(context.Background(), Config{URL: "clickhouse://default:@localhost:9000/docmend", Role: "ledger", App: "docmend-normalize"})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if got == nil || len(got.ClientInfo.Products) == 0 {
		t.Fatalf("client info not set")
	}
	if got.ClientInfo.Products[0].Name != "docmend-normalize" || got.ClientInfo.Products[1].Version != "ledger" {
		t.Fatalf("unexpected products: %+v", got.ClientInfo.Products)
	}
	if got.Auth.Database != "docmend" {
		t.Fatalf("database = %q", got.Auth.Database)
	}
	if err := c.Close(); err != nil || !fc.closed {
		t.Fatalf("Close: %v closed=%v", err, fc.closed)
	}
}

func TestInsert_AppendsAndSends(t *testing.T) {
	t.Parallel()

	fc := &fakeConn{batch: &fakeBatch{}}
	c := &CH{conn: fc}
	rows := [][]any{{"r1", uint64(3)}, {"r2", uint64(4)}}
	if err := c.Insert(context.Background(), "repair_runs", rows); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if fc.prepared != "INSERT INTO repair_runs" {
		t.Fatalf("prepared %q", fc.prepared)
	}
	if len(fc.batch.appended) != 2 || !fc.batch.sent {
		t.Fatalf("batch appended=%d sent=%v", len(fc.batch.appended), fc.batch.sent)
	}
}

func TestInsert_AppendErrorAborts(t *testing.T) {
	t.Parallel()

	fc := &fakeConn{batch: &fakeBatch{appendErr: errors.New("bad column")}}
	c := &CH{conn: fc}
	if err := c.Insert(context.Background(), "t", [][]any{{1}}); err == nil {
		t.Fatalf("expected append error")
	}
	if !fc.batch.aborted || fc.batch.sent {
		t.Fatalf("batch should be aborted, not sent")
	}
}

func TestInsert_EmptyIsNoop(t *testing.T) {
	t.Parallel()

	fc := &fakeConn{}
	c := &CH{conn: fc}
	if err := c.Insert(context.Background(), "t", nil); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if fc.prepared != "" {
		t.Fatalf("no batch expected")
	}
}

func TestClose_NilSafe(t *testing.T) {
	t.Parallel()

	var c *CH
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestBuildClientInfo(t *testing.T) {
	t.Parallel()

	ci := BuildClientInfo(" ", " docmend-normalize ")
	if len(ci.Products) != 5 {
		t.Fatalf("products = %+v", ci.Products)
	}
	if ci.Products[0].Name != "docmend-normalize" || ci.Products[0].Version != "dev" {
		t.Fatalf("app product = %+v", ci.Products[0])
	}
	if ci.Products[1].Name != "role" || ci.Products[1].Version != "unknown" {
		t.Fatalf("role product = %+v", ci.Products[1])
	}
}
