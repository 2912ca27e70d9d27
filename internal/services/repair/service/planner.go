package service

import (
	"docmend/internal/core/normalize"
	"docmend/internal/core/value"
	perr "docmend/internal/platform/errors"
	"docmend/internal/services/repair/domain"
)

// ChangePlan is the planned mutation set of one snapshot
type ChangePlan struct {
	Records []domain.ChangeRecord
	Stats   domain.RunStatistics
}

// Plan normalizes every document of a snapshot.
// Each document ends up as exactly one of change record, unchanged or failed
func Plan(collection string, docs []value.Document, kind normalize.Kind, n *normalize.Normalizer) ChangePlan {
	var p ChangePlan
	for _, d := range docs {
		p.Stats.Scanned++

		res, err := normalizeOne(n, kind, d)
		if err != nil {
			p.Stats.Fail(domain.DocError{Collection: collection, ID: d.ID, Err: err})
			continue
		}
		if !res.Changed {
			p.Stats.Unchanged++
			continue
		}
		p.Records = append(p.Records, domain.ChangeRecord{
			ID:         d.ID,
			Original:   d.Fields,
			Normalized: res.Normalized,
			Patch:      res.Patch,
			Changed:    true,
			Fallbacks:  res.Fallbacks,
		})
		p.Stats.Updated++
	}
	return p
}

// normalizeOne turns a rule panic into a document failure
func normalizeOne(n *normalize.Normalizer, kind normalize.Kind, d value.Document) (res normalize.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			res, err = normalize.Result{}, perr.PanicErrf("normalize %s: %v", d.ID, r)
		}
	}()
	return n.Normalize(kind, d)
}
