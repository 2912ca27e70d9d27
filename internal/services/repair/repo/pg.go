// Package repo provides document stores for repair runs
package repo

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"docmend/internal/core/value"
	"docmend/internal/modkit/repokit"
	perr "docmend/internal/platform/errors"
	"docmend/internal/platform/store"
	"docmend/internal/services/repair/domain"
)

// DefaultPageSize is the number of rows fetched per scan page
const DefaultPageSize = 1000

const documentsDDL = `
	CREATE TABLE IF NOT EXISTS documents (
		collection text        NOT NULL,
		id         text        NOT NULL,
		fields     jsonb       NOT NULL DEFAULT '{}'::jsonb,
		updated_at timestamptz NOT NULL DEFAULT now(),
		PRIMARY KEY (collection, id)
	)
`

type (
	// PG is a Postgres binder for domain.DocQueries
	PG      struct{}
	queries struct{ q repokit.Queryer }
)

// NewPG returns a Postgres binder for domain.DocQueries
func NewPG() repokit.Binder[domain.DocQueries] { return PG{} }

// Bind implements repokit.Binder
func (PG) Bind(q repokit.Queryer) domain.DocQueries { return &queries{q: q} }

// EnsureSchema creates the documents table when missing
func (r *queries) EnsureSchema(ctx context.Context) error {
	_, err := r.q.Exec(ctx, documentsDDL)
	return err
}

// ScanPage returns up to limit documents with id greater than afterID, ordered by id
func (r *queries) ScanPage(ctx context.Context, collection, afterID string, limit int) ([]value.Document, error) {
	return store.Many(ctx, r.q, scanDocument, `
		SELECT id, fields
		FROM documents
		WHERE collection = $1 AND id > $2
		ORDER BY id
		LIMIT $3
	`, collection, afterID, limit)
}

// Count returns the number of documents in collection
func (r *queries) Count(ctx context.Context, collection string) (int, error) {
	n, err := store.Scalar[int64](ctx, r.q, `SELECT count(*) FROM documents WHERE collection = $1`, collection)
	return int(n), err
}

// Now returns the transaction timestamp used to resolve server time markers
func (r *queries) Now(ctx context.Context) (value.Timestamp, error) {
	t, err := store.Scalar[time.Time](ctx, r.q, `SELECT now()`)
	if err != nil {
		return value.Timestamp{}, err
	}
	return value.FromTime(t)
}

// Update merges patch into an existing document, failing when the document is gone
func (r *queries) Update(ctx context.Context, collection, id string, patch value.Fields) error {
	b, err := json.Marshal(patch)
	if err != nil {
		return perr.Wrapf(err, perr.ErrorCodeValidation, "encode patch for %s/%s", collection, id)
	}
	err = store.ExecOne(ctx, r.q, `
		UPDATE documents
		SET fields = fields || $3::jsonb, updated_at = now()
		WHERE collection = $1 AND id = $2
	`, collection, id, string(b))
	var rc *store.RowCountError
	if errors.As(err, &rc) && rc.Got == 0 {
		return perr.Wrapf(err, perr.ErrorCodeNotFound, "document %s/%s", collection, id)
	}
	return err
}

// Set creates or replaces a document
func (r *queries) Set(ctx context.Context, collection, id string, fields value.Fields) error {
	if fields == nil {
		fields = value.Fields{}
	}
	b, err := json.Marshal(fields)
	if err != nil {
		return perr.Wrapf(err, perr.ErrorCodeValidation, "encode document %s/%s", collection, id)
	}
	_, err = r.q.Exec(ctx, `
		INSERT INTO documents (collection, id, fields)
		VALUES ($1, $2, $3::jsonb)
		ON CONFLICT (collection, id) DO UPDATE
		SET fields = EXCLUDED.fields, updated_at = now()
	`, collection, id, string(b))
	return err
}

func scanDocument(row store.Row) (value.Document, error) {
	var (
		id  string
		raw []byte
	)
	if err := row.Scan(&id, &raw); err != nil {
		return value.Document{}, err
	}
	var f value.Fields
	if err := json.Unmarshal(raw, &f); err != nil {
		return value.Document{}, perr.Wrapf(err, perr.ErrorCodeJSON, "decode document %s", id)
	}
	return value.Document{ID: id, Fields: f}, nil
}

// PGStore implements domain.DocStore on the Postgres documents table
type PGStore struct {
	db       repokit.TxRunner
	binder   repokit.Binder[domain.DocQueries]
	pageSize int
}

// PGOption configures a PGStore
type PGOption func(*PGStore)

// WithPageSize sets the scan page size
func WithPageSize(n int) PGOption {
	return func(s *PGStore) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

// WithStatementTimeout bounds every statement of a store transaction
func WithStatementTimeout(d time.Duration) PGOption {
	return func(s *PGStore) {
		if d > 0 {
			s.db = repokit.WithBeginHooks(s.db, repokit.StatementTimeout(d))
		}
	}
}

// NewPGStore constructs a PGStore
func NewPGStore(db repokit.TxRunner, opts ...PGOption) *PGStore {
	if db == nil {
		panic("repair.PGStore requires a non nil TxRunner")
	}
	s := &PGStore{db: db, binder: NewPG(), pageSize: DefaultPageSize}
	for _, o := range opts {
		o(s)
	}
	return s
}

// EnsureSchema creates the documents table when missing
func (s *PGStore) EnsureSchema(ctx context.Context) error {
	err := s.db.Tx(ctx, func(q repokit.Queryer) error {
		return repokit.MustBind(s.binder, q).EnsureSchema(ctx)
	})
	return perr.FromPostgres(err, "ensure documents schema")
}

// Scan reads the whole collection in id order inside one transaction
func (s *PGStore) Scan(ctx context.Context, collection string) ([]value.Document, error) {
	var out []value.Document
	err := s.db.Tx(ctx, func(q repokit.Queryer) error {
		r := repokit.MustBind(s.binder, q)
		after := ""
		for {
			page, err := r.ScanPage(ctx, collection, after, s.pageSize)
			if err != nil {
				return err
			}
			out = append(out, page...)
			if len(page) < s.pageSize {
				return nil
			}
			after = page[len(page)-1].ID
		}
	})
	if err != nil {
		return nil, wrapDB(err, "scan "+collection)
	}
	return out, nil
}

// Count returns the number of documents in collection
func (s *PGStore) Count(ctx context.Context, collection string) (int, error) {
	var n int
	err := s.db.Tx(ctx, func(q repokit.Queryer) error {
		var e error
		n, e = repokit.MustBind(s.binder, q).Count(ctx, collection)
		return e
	})
	return n, wrapDB(err, "count "+collection)
}

// NewWriteGroup starts an empty write group
func (s *PGStore) NewWriteGroup() domain.WriteGroup { return &pgWriteGroup{s: s} }

type opKind uint8

const (
	opUpdate opKind = iota
	opSet
)

type writeOp struct {
	kind       opKind
	collection string
	id         string
	fields     value.Fields
}

type pgWriteGroup struct {
	s   *PGStore
	ops []writeOp
}

func (g *pgWriteGroup) Update(collection, id string, patch value.Fields) {
	g.ops = append(g.ops, writeOp{kind: opUpdate, collection: collection, id: id, fields: patch})
}

func (g *pgWriteGroup) Set(collection, id string, fields value.Fields) {
	g.ops = append(g.ops, writeOp{kind: opSet, collection: collection, id: id, fields: fields})
}

func (g *pgWriteGroup) Len() int { return len(g.ops) }

// Commit applies every buffered write in one transaction
func (g *pgWriteGroup) Commit(ctx context.Context) error {
	if len(g.ops) == 0 {
		return nil
	}
	err := g.s.db.Tx(ctx, func(q repokit.Queryer) error {
		r := repokit.MustBind(g.s.binder, q)

		var (
			now     value.Timestamp
			haveNow bool
		)
		for _, op := range g.ops {
			fields := op.fields
			if fields.HasServerTime() {
				if !haveNow {
					t, err := r.Now(ctx)
					if err != nil {
						return err
					}
					now, haveNow = t, true
				}
				fields = fields.ResolveServerTime(now)
			}

			var err error
			switch op.kind {
			case opUpdate:
				err = r.Update(ctx, op.collection, op.id, fields)
			case opSet:
				err = r.Set(ctx, op.collection, op.id, fields)
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
	return wrapDB(err, "commit write group")
}

// wrapDB maps driver errors and keeps project errors as they are
func wrapDB(err error, msg string) error {
	if err == nil {
		return nil
	}
	if _, ok := perr.As(err); ok {
		return err
	}
	return perr.FromPostgres(err, msg)
}
