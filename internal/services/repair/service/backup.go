package service

import (
	"context"
	"strconv"
	"sync"
	"time"

	"docmend/internal/core/value"
	perr "docmend/internal/platform/errors"
	"docmend/internal/platform/logger"
	"docmend/internal/services/repair/domain"
)

// Backuper copies collections into timestamped snapshot collections
type Backuper struct {
	Store     domain.DocStore
	Committer Committer
	Now       func() time.Time

	mu   sync.Mutex
	used map[string]struct{}
}

// NewBackuper returns a Backuper sharing the committer's chunking
func NewBackuper(c Committer) *Backuper {
	return &Backuper{Store: c.Store, Committer: c, Now: time.Now, used: map[string]struct{}{}}
}

// Name reserves a backup name for collection, <collection>_backup_<millis> with a _<n> suffix on collision
func (b *Backuper) Name(ctx context.Context, collection string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.used == nil {
		b.used = map[string]struct{}{}
	}
	now := b.Now
	if now == nil {
		now = time.Now
	}

	base := collection + "_backup_" + strconv.FormatInt(now().UnixMilli(), 10)
	name := base
	for n := 1; b.taken(ctx, name); n++ {
		name = base + "_" + strconv.Itoa(n)
	}
	b.used[name] = struct{}{}
	return name
}

func (b *Backuper) taken(ctx context.Context, name string) bool {
	if _, ok := b.used[name]; ok {
		return true
	}
	n, err := b.Store.Count(ctx, name)
	return err == nil && n > 0
}

// Backup scans collection and copies it
func (b *Backuper) Backup(ctx context.Context, collection string) (string, error) {
	docs, err := b.Store.Scan(ctx, collection)
	if err != nil {
		return "", err
	}
	return b.BackupSnapshot(ctx, collection, docs)
}

// BackupSnapshot copies an already scanned snapshot with full Set writes.
// The source collection is never written. Any failed chunk fails the backup.
// An empty snapshot writes nothing and returns no name
func (b *Backuper) BackupSnapshot(ctx context.Context, collection string, docs []value.Document) (string, error) {
	if len(docs) == 0 {
		logger.C(ctx).Info().Str("collection", collection).Msg("repair: backup skipped, collection is empty")
		return "", nil
	}
	name := b.Name(ctx, collection)
	rep := b.Committer.chunks(ctx, name, len(docs),
		func(i int) string { return docs[i].ID },
		func(g domain.WriteGroup, i int) { g.Set(name, docs[i].ID, docs[i].Fields) },
	)
	if err := rep.Err(); err != nil {
		code := perr.CodeOf(err)
		if code == perr.ErrorCodeUnknown {
			code = perr.ErrorCodeDB
		}
		return name, perr.Wrapf(err, code, "backup %s: %d of %d chunks failed", name, rep.FailedChunks(), len(rep.Chunks))
	}
	logger.C(ctx).Info().Str("backup", name).Int("docs", rep.Committed).Msg("repair: backup written")
	return name, nil
}
