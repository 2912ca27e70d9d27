// Package guardrails holds cross cutting safety helpers for repair runs
package guardrails

import (
	"context"
	"time"
)

// Timeouts is an optional budget bundle for one collection run.
// Zero values mean no extra timeout at that level
type Timeouts struct {
	// Collection is the overall budget for one collection, scan to commit
	Collection time.Duration

	// Scan caps the snapshot read
	Scan time.Duration

	// Chunk caps the commit of a single write group
	Chunk time.Duration
}

// WithCollection returns a context limited by the collection budget without extending any parent deadline.
// if Collection is zero it returns a cancelable child that simply inherits the parent deadline
func WithCollection(parent context.Context, t Timeouts) (context.Context, context.CancelFunc) {
	return withChildTimeout(parent, t.Collection)
}

// ForScan returns a sub context for the scan phase bounded by Scan and any remaining parent budget
func ForScan(parent context.Context, t Timeouts) (context.Context, context.CancelFunc) {
	return withChildTimeout(parent, t.Scan)
}

// ForChunk returns a sub context for one chunk commit bounded by Chunk and any remaining parent budget
func ForChunk(parent context.Context, t Timeouts) (context.Context, context.CancelFunc) {
	return withChildTimeout(parent, t.Chunk)
}

// Remaining returns the time until the deadline on ctx or zero when none is set or already expired
func Remaining(ctx context.Context) time.Duration {
	if dl, ok := ctx.Deadline(); ok {
		d := time.Until(dl)
		if d > 0 {
			return d
		}
	}
	return 0
}

// withChildTimeout chooses the tighter of the requested duration and any parent remainder.
// Never extends the parent deadline
func withChildTimeout(parent context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	// zero adds no limit
	if d <= 0 {
		return context.WithCancel(parent)
	}
	if rem := Remaining(parent); rem > 0 && rem < d {
		return context.WithTimeout(parent, rem)
	}
	return context.WithTimeout(parent, d)
}
