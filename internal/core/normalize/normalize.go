// Package normalize maps a raw document to its canonical form using a
// per-kind rule set
// Rules per field class
// - timestamp: canonicalize through the classifier, fall back to the server time marker
// - text: trim, coerce to string, apply a default
// - ratio: parse, read >1 as a percentage, clamp to [0,1]
// Only differing fields end up in Result.Patch (partial update)
package normalize

import (
	"docmend/internal/core/classify"
	"docmend/internal/core/value"
)

// Result is the outcome of normalizing one document
type Result struct {
	// Normalized is the full document after normalization
	Normalized value.Fields

	// Patch holds only the fields whose value changed
	Patch value.Fields

	// Changed is true when Patch is non-empty
	Changed bool

	// Fallbacks lists present timestamp fields that could not be classified
	Fallbacks []string
}

// Normalizer applies rule sets; safe for concurrent use
type Normalizer struct {
	classifier *classify.Classifier
	sets       map[Kind]RuleSet
}

// Option configures a Normalizer
type Option func(*Normalizer)

// WithClassifier overrides the classifier (default classify.Default)
func WithClassifier(c *classify.Classifier) Option {
	return func(n *Normalizer) { n.classifier = c }
}

// WithRuleSet replaces the rule set registered for rs.Kind
func WithRuleSet(rs RuleSet) Option {
	return func(n *Normalizer) { n.sets[rs.Kind] = rs }
}

// New returns a Normalizer with the built-in rule sets
func New(opts ...Option) *Normalizer {
	n := &Normalizer{
		classifier: classify.Default,
		sets: map[Kind]RuleSet{
			KindCapture:    Capture,
			KindPrediction: Prediction,
			KindGeneric:    Generic,
		},
	}
	for _, o := range opts {
		o(n)
	}
	return n
}

// RuleSet returns the rules used for kind; unknown kinds get the generic set
func (n *Normalizer) RuleSet(kind Kind) RuleSet {
	if rs, ok := n.sets[kind]; ok {
		return rs
	}
	return n.sets[KindGeneric]
}

// Normalize applies the rule set for kind to doc
// An error means a rule could not coerce a field; doc is left untouched
func (n *Normalizer) Normalize(kind Kind, doc value.Document) (Result, error) {
	rs := n.RuleSet(kind)
	in := doc.Fields
	patch := value.Fields{}
	var fallbacks []string

	for _, name := range timestampFields(rs, in) {
		raw, ok := in[name]
		if !ok {
			continue
		}
		next, fellBack, use := n.timestamp(raw, rs.Fallback)
		if !use {
			continue
		}
		if fellBack {
			fallbacks = append(fallbacks, name)
		}
		if !next.Equal(raw) {
			patch[name] = next
		}
	}

	for _, tr := range rs.Texts {
		raw, ok := in[tr.Field]
		if !ok {
			continue
		}
		if tr.OnlyTruthy && !raw.Truthy() {
			continue
		}
		s, err := Text(raw, tr.Default)
		if err != nil {
			return Result{}, fieldErr(tr.Field, err)
		}
		if next := value.String(s); !next.Equal(raw) {
			patch[tr.Field] = next
		}
	}

	for _, name := range rs.Ratios {
		raw, ok := in[name]
		if !ok {
			continue
		}
		if r, changed := Ratio(raw); changed {
			patch[name] = value.Number(r)
		}
	}

	return Result{
		Normalized: in.Merge(patch),
		Patch:      patch,
		Changed:    len(patch) > 0,
		Fallbacks:  fallbacks,
	}, nil
}

// timestamp returns the canonical value for raw
// use=false means the field is left as is (unclassifiable with no fallback)
func (n *Normalizer) timestamp(raw value.Value, fallback bool) (next value.Value, fellBack, use bool) {
	if ts, ok := n.classifier.Classify(raw); ok {
		return value.TimestampOf(ts), false, true
	}
	if !fallback {
		return value.Value{}, false, false
	}
	return value.ServerTime(), true, true
}

// timestampFields returns the timestamp field names of rs present in f, in a stable order
func timestampFields(rs RuleSet, f value.Fields) []string {
	if rs.MatchTimestamp == nil {
		return rs.Timestamps
	}
	var out []string
	for _, k := range f.Keys() {
		if rs.MatchTimestamp(k) {
			out = append(out, k)
		}
	}
	return out
}
