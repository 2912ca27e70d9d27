package domain

import (
	"fmt"
	"io"
	"strings"
)

// DefaultMaxErrors is the number of failure details printed by default
const DefaultMaxErrors = 10

// Summary is the result of a whole run
type Summary struct {
	RunID       string
	DryRun      bool
	Collections []CollectionOutcome

	// MaxErrors caps the failure details printed, <=0 uses DefaultMaxErrors
	MaxErrors int
}

// Totals merges the statistics of every collection
func (s Summary) Totals() RunStatistics {
	var t RunStatistics
	for _, c := range s.Collections {
		t.Merge(c.Stats)
	}
	return t
}

// Backups returns the snapshot collections created during the run
func (s Summary) Backups() []string {
	var out []string
	for _, c := range s.Collections {
		if c.Backup != "" {
			out = append(out, c.Backup)
		}
	}
	return out
}

// Fatal returns the collections that stopped on a fatal error
func (s Summary) Fatal() []CollectionOutcome {
	var out []CollectionOutcome
	for _, c := range s.Collections {
		if c.Err != nil {
			out = append(out, c)
		}
	}
	return out
}

// OK reports whether the run finished without fatal or per document failures
func (s Summary) OK() bool {
	return len(s.Fatal()) == 0 && s.Totals().Failed == 0
}

// Print writes the human readable run summary to w
func (s Summary) Print(w io.Writer) {
	t := s.Totals()
	mode, updated := "commit", "Updated"
	if s.DryRun {
		mode, updated = "dry run", "Would update"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Normalization summary (run %s, %s)\n", s.RunID, mode)
	for _, c := range s.Collections {
		fmt.Fprintf(&b, "  %-20s scanned=%d updated=%d unchanged=%d failed=%d\n",
			c.Collection, c.Stats.Scanned, c.Stats.Updated, c.Stats.Unchanged, c.Stats.Failed)
	}
	fmt.Fprintf(&b, "Scanned:   %d\n", t.Scanned)
	fmt.Fprintf(&b, "%s: %d\n", updated, t.Updated)
	fmt.Fprintf(&b, "Unchanged: %d\n", t.Unchanged)
	fmt.Fprintf(&b, "Failed:    %d\n", t.Failed)

	for _, name := range s.Backups() {
		fmt.Fprintf(&b, "Backup available at: %s\n", name)
	}
	for _, c := range s.Fatal() {
		fmt.Fprintf(&b, "Collection %s failed while %s: %v\n", c.Collection, c.FailedIn, c.Err)
	}

	if len(t.Errors) > 0 {
		limit := s.MaxErrors
		if limit <= 0 {
			limit = DefaultMaxErrors
		}
		b.WriteString("Errors:\n")
		for i, e := range t.Errors {
			if i == limit {
				fmt.Fprintf(&b, "  ... and %d more errors\n", len(t.Errors)-limit)
				break
			}
			fmt.Fprintf(&b, "  - %s\n", e.Error())
		}
	}
	_, _ = io.WriteString(w, b.String())
}
