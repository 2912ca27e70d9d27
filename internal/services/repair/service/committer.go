package service

import (
	"context"

	perr "docmend/internal/platform/errors"
	"docmend/internal/platform/logger"
	"docmend/internal/services/repair/domain"
	"docmend/internal/services/repair/guardrails"
)

// DefaultChunkSize is the number of writes per atomic group
const DefaultChunkSize = 500

// Committer writes change records in sequential atomic chunks
type Committer struct {
	Store     domain.DocStore
	ChunkSize int
	Timeouts  guardrails.Timeouts
}

// Commit writes the patches of records into collection in chunks of chunkSize
func Commit(ctx context.Context, store domain.DocStore, collection string, records []domain.ChangeRecord, chunkSize int) domain.CommitReport {
	return Committer{Store: store, ChunkSize: chunkSize}.Commit(ctx, collection, records)
}

// Commit writes the patches of records as partial updates.
// A failed chunk fails its documents and the next chunk still runs
func (c Committer) Commit(ctx context.Context, collection string, records []domain.ChangeRecord) domain.CommitReport {
	return c.chunks(ctx, collection, len(records),
		func(i int) string { return records[i].ID },
		func(g domain.WriteGroup, i int) { g.Update(collection, records[i].ID, records[i].Patch) },
	)
}

func (c Committer) size() int {
	if c.ChunkSize <= 0 {
		return DefaultChunkSize
	}
	return c.ChunkSize
}

// chunks drives n writes through consecutive write groups, strictly one after another
func (c Committer) chunks(ctx context.Context, collection string, n int, id func(int) string, fill func(domain.WriteGroup, int)) domain.CommitReport {
	var (
		rep  domain.CommitReport
		size = c.size()
		log  = logger.C(ctx)
	)
	for idx, lo := 0, 0; lo < n; idx, lo = idx+1, lo+size {
		hi := min(lo+size, n)

		// a canceled run fails the rest without submitting anything
		err := ctx.Err()
		if err != nil {
			err = perr.Wrap(err, perr.ErrorCodeUnavailable, "run canceled before commit")
		} else {
			g := c.Store.NewWriteGroup()
			for i := lo; i < hi; i++ {
				fill(g, i)
			}
			cctx, cancel := guardrails.ForChunk(ctx, c.Timeouts)
			err = g.Commit(cctx)
			cancel()
		}

		rep.Chunks = append(rep.Chunks, domain.ChunkOutcome{Index: idx, Size: hi - lo, Err: err})
		if err != nil {
			log.Error().Err(err).Str("target", collection).Int("chunk", idx).Int("docs", hi-lo).Msg("repair: chunk commit failed")
			for i := lo; i < hi; i++ {
				rep.Failed = append(rep.Failed, domain.DocError{Collection: collection, ID: id(i), Err: err})
			}
			continue
		}
		rep.Committed += hi - lo
		log.Debug().Str("target", collection).Int("chunk", idx).Int("docs", hi-lo).Int("committed", rep.Committed).Msg("repair: chunk committed")
	}
	return rep
}
