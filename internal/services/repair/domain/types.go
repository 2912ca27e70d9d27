// Package domain holds the core data structures for document repair runs
package domain

import (
	"time"

	"docmend/internal/core/value"
)

// ChangeRecord is the planned mutation of one document
type ChangeRecord struct {
	ID         string
	Original   value.Fields
	Normalized value.Fields
	Patch      value.Fields // only the differing fields, written as a partial update
	Changed    bool

	// Fallbacks lists timestamp fields that were replaced by the server time marker
	Fallbacks []string
}

// DocError is a per document failure
type DocError struct {
	Collection string
	ID         string
	Err        error
}

// Error implements error
func (e DocError) Error() string {
	if e.Err == nil {
		return e.Collection + "/" + e.ID
	}
	return e.Collection + "/" + e.ID + ": " + e.Err.Error()
}

// Unwrap exposes the underlying cause
func (e DocError) Unwrap() error { return e.Err }

// RunStatistics counts document outcomes. Values are threaded explicitly, never shared
type RunStatistics struct {
	Scanned   int
	Updated   int
	Unchanged int
	Failed    int
	Errors    []DocError
}

// Fail records one failed document
func (s *RunStatistics) Fail(e DocError) {
	s.Failed++
	s.Errors = append(s.Errors, e)
}

// Merge adds o into s
func (s *RunStatistics) Merge(o RunStatistics) {
	s.Scanned += o.Scanned
	s.Updated += o.Updated
	s.Unchanged += o.Unchanged
	s.Failed += o.Failed
	s.Errors = append(s.Errors, o.Errors...)
}

// ChunkOutcome is the result of committing one write group
type ChunkOutcome struct {
	Index int
	Size  int
	Err   error
}

// CommitReport is the outcome of a chunked commit
type CommitReport struct {
	Chunks    []ChunkOutcome
	Committed int
	Failed    []DocError
}

// FailedChunks returns the number of chunks that did not commit
func (r CommitReport) FailedChunks() int {
	n := 0
	for _, c := range r.Chunks {
		if c.Err != nil {
			n++
		}
	}
	return n
}

// Err returns the first chunk error, nil when every chunk committed
func (r CommitReport) Err() error {
	for _, c := range r.Chunks {
		if c.Err != nil {
			return c.Err
		}
	}
	return nil
}

// Apply moves the failed documents of r from Updated to Failed
func (r CommitReport) Apply(s *RunStatistics) {
	for _, e := range r.Failed {
		if s.Updated > 0 {
			s.Updated--
		}
		s.Fail(e)
	}
}

// Phase is a collection run state
type Phase string

// Collection run states in order
const (
	PhaseScanning   Phase = "scanning"
	PhaseBackingUp  Phase = "backing_up"
	PhasePlanning   Phase = "planning"
	PhaseReporting  Phase = "reporting"
	PhaseCommitting Phase = "committing"
	PhaseDone       Phase = "done"
)

// CollectionOutcome is the result of one collection run
type CollectionOutcome struct {
	Collection string
	Kind       string
	DryRun     bool
	Stats      RunStatistics

	// Backup is the snapshot collection name, empty when none was taken
	Backup string

	// FailedIn is the phase a fatal error happened in
	FailedIn Phase
	Err      error

	Started  time.Time
	Finished time.Time
}

// CollectionCount is one line of the list target
type CollectionCount struct {
	Collection string
	Count      int
}
