//go:build integration_pg
// +build integration_pg

package repo

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"docmend/internal/core/value"
	perr "docmend/internal/platform/errors"
	"docmend/internal/platform/store"

	"github.com/rs/zerolog"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// startPostgres launches a disposable Postgres and returns DSN + stop func
func startPostgres(t *testing.T) (dsn string, stop func()) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)

	req := tc.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "postgres",
			"POSTGRES_PASSWORD": "postgres",
			"POSTGRES_DB":       "postgres",
		},
		WaitingFor: wait.ForAll(
			wait.ForListeningPort("5432/tcp"),
			wait.ForLog("database system is ready to accept connections"),
		).WithDeadline(2 * time.Minute),
	}
	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		cancel()
		t.Fatalf("failed to start postgres container: %v", err)
	}

	host, err := c.Host(ctx)
	if err != nil {
		_ = c.Terminate(context.Background())
		cancel()
		t.Fatalf("failed to get container host: %v", err)
	}
	mp, err := c.MappedPort(ctx, "5432/tcp")
	if err != nil {
		_ = c.Terminate(context.Background())
		cancel()
		t.Fatalf("failed to get mapped port: %v", err)
	}

	dsn = fmt.Sprintf("postgres://postgres:postgres@%s:%s/postgres?sslmode=disable", host, mp.Port())
	stop = func() {
		_ = c.Terminate(context.Background())
		cancel()
	}
	return dsn, stop
}

func openStore(t *testing.T, ctx context.Context, dsn string) *store.Store {
	t.Helper()
	st, err := store.Open(ctx, store.Config{
		AppName: "docmend-test",
		PG: store.PGConfig{
			Enabled:  true,
			URL:      dsn,
			MaxConns: 2,
			LogSQL:   true,
		},
	}, store.WithLogger(zerolog.New(io.Discard)))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close(context.Background()) })
	return st
}

func TestPGStore_Integration_RoundTrip(t *testing.T) {
	dsn, stop := startPostgres(t)
	defer stop()

	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	st := openStore(t, ctx, dsn)
	s := NewPGStore(st.PG, WithPageSize(2), WithStatementTimeout(10*time.Second))
	if err := s.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}

	ts, _ := value.NewTimestamp(1_700_000_000, 500)
	seed := s.NewWriteGroup()
	for i := 0; i < 5; i++ {
		seed.Set("captures", fmt.Sprintf("doc-%d", i), value.Fields{
			"timestamp":  value.Number(1.7e12),
			"image_path": value.String("  a.png "),
			"nested":     value.Map(value.Fields{"at": value.TimestampOf(ts)}),
		})
	}
	if err := seed.Commit(ctx); err != nil {
		t.Fatalf("seed commit: %v", err)
	}

	docs, err := s.Scan(ctx, "captures")
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(docs) != 5 || docs[0].ID != "doc-0" || docs[4].ID != "doc-4" {
		t.Fatalf("scan order wrong: %d docs", len(docs))
	}
	nested, _ := docs[0].Fields["nested"].AsMap()
	if !nested["at"].Equal(value.TimestampOf(ts)) {
		t.Fatalf("native timestamp did not round trip: %v", nested["at"])
	}

	g := s.NewWriteGroup()
	g.Update("captures", "doc-1", value.Fields{"image_path": value.String("a.png"), "captured_at": value.ServerTime()})
	if err := g.Commit(ctx); err != nil {
		t.Fatalf("update commit: %v", err)
	}
	docs, _ = s.Scan(ctx, "captures")
	f := docs[1].Fields
	if p, _ := f["image_path"].AsString(); p != "a.png" {
		t.Fatalf("image_path = %q", p)
	}
	if f["captured_at"].Kind() != value.KindTimestamp {
		t.Fatalf("server time not resolved: %v", f["captured_at"].Kind())
	}
	if _, ok := f["nested"]; !ok {
		t.Fatal("partial update dropped untouched fields")
	}

	bad := s.NewWriteGroup()
	bad.Update("captures", "doc-2", value.Fields{"image_path": value.String("b.png")})
	bad.Update("captures", "missing", value.Fields{"x": value.Int(1)})
	if err := bad.Commit(ctx); !perr.IsCode(err, perr.ErrorCodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	docs, _ = s.Scan(ctx, "captures")
	if p, _ := docs[2].Fields["image_path"].AsString(); p != "  a.png " {
		t.Fatal("failed group must roll back every write")
	}

	n, err := s.Count(ctx, "captures")
	if err != nil || n != 5 {
		t.Fatalf("Count = %d, %v", n, err)
	}
}
