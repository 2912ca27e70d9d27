package repo

import (
	"context"
	"sort"
	"sync"
	"time"

	"docmend/internal/core/value"
	perr "docmend/internal/platform/errors"
	"docmend/internal/services/repair/domain"
)

// Memory is an in process DocStore for fixtures and tests
type Memory struct {
	mu      sync.Mutex
	docs    map[string]map[string]value.Fields
	commits int
	writes  int

	// Now resolves server time markers on commit, defaults to time.Now
	Now func() time.Time

	// FailCommit injects a commit failure; seq counts commit attempts from 1
	FailCommit func(seq int, ops int) error

	// FailScan injects a scan or count failure per collection
	FailScan map[string]error
}

// NewMemory returns an empty Memory store
func NewMemory() *Memory {
	return &Memory{docs: map[string]map[string]value.Fields{}}
}

// Put seeds a document without counting it as a write
func (m *Memory) Put(collection, id string, f value.Fields) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.put(collection, id, f.Clone())
}

func (m *Memory) put(collection, id string, f value.Fields) {
	c, ok := m.docs[collection]
	if !ok {
		c = map[string]value.Fields{}
		m.docs[collection] = c
	}
	c[id] = f
}

// Get returns a copy of a stored document
func (m *Memory) Get(collection, id string) (value.Fields, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.docs[collection][id]
	if !ok {
		return nil, false
	}
	return f.Clone(), true
}

// Collections returns the collection names in sorted order
func (m *Memory) Collections() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.docs))
	for name := range m.docs {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Writes returns the number of applied document writes
func (m *Memory) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

// Commits returns the number of commit attempts
func (m *Memory) Commits() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.commits
}

// Scan returns copies of every document ordered by id
func (m *Memory) Scan(ctx context.Context, collection string) ([]value.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeUnavailable, "scan "+collection)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.FailScan[collection]; err != nil {
		return nil, err
	}
	c := m.docs[collection]
	out := make([]value.Document, 0, len(c))
	for id, f := range c {
		out = append(out, value.Document{ID: id, Fields: f.Clone()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Count returns the number of documents in collection
func (m *Memory) Count(ctx context.Context, collection string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, perr.Wrap(err, perr.ErrorCodeUnavailable, "count "+collection)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.FailScan[collection]; err != nil {
		return 0, err
	}
	return len(m.docs[collection]), nil
}

// NewWriteGroup starts an empty write group
func (m *Memory) NewWriteGroup() domain.WriteGroup { return &memGroup{m: m} }

type memGroup struct {
	m   *Memory
	ops []writeOp
}

func (g *memGroup) Update(collection, id string, patch value.Fields) {
	g.ops = append(g.ops, writeOp{kind: opUpdate, collection: collection, id: id, fields: patch.Clone()})
}

func (g *memGroup) Set(collection, id string, fields value.Fields) {
	g.ops = append(g.ops, writeOp{kind: opSet, collection: collection, id: id, fields: fields.Clone()})
}

func (g *memGroup) Len() int { return len(g.ops) }

// Commit applies all writes or none
func (g *memGroup) Commit(ctx context.Context) error {
	if len(g.ops) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return perr.Wrap(err, perr.ErrorCodeUnavailable, "commit write group")
	}

	m := g.m
	m.mu.Lock()
	defer m.mu.Unlock()

	m.commits++
	if m.FailCommit != nil {
		if err := m.FailCommit(m.commits, len(g.ops)); err != nil {
			return err
		}
	}

	// validate first so a missing document leaves the group unapplied
	for _, op := range g.ops {
		if op.kind != opUpdate {
			continue
		}
		if _, ok := m.docs[op.collection][op.id]; !ok {
			return perr.NotFoundf("document %s/%s", op.collection, op.id)
		}
	}

	clock := m.Now
	if clock == nil {
		clock = time.Now
	}
	now, err := value.FromTime(clock())
	if err != nil {
		return err
	}

	for _, op := range g.ops {
		fields := op.fields.ResolveServerTime(now)
		switch op.kind {
		case opUpdate:
			m.put(op.collection, op.id, m.docs[op.collection][op.id].Merge(fields))
		case opSet:
			m.put(op.collection, op.id, fields)
		}
		m.writes++
	}
	return nil
}
