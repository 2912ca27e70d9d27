package normalize

import (
	"strings"
	"sync"

	"golang.org/x/text/cases"
)

// Kind selects a rule set
type Kind string

const (
	// KindCapture is the rule set for capture documents
	KindCapture Kind = "capture"
	// KindPrediction is the rule set for prediction documents
	KindPrediction Kind = "prediction"
	// KindGeneric infers timestamp fields from their names
	KindGeneric Kind = "generic"
)

// TextRule trims one free-text field
type TextRule struct {
	Field string

	// Default replaces missing-ish values (null, false, 0, "") and blank results
	Default string

	// OnlyTruthy leaves falsy values alone and applies no default
	OnlyTruthy bool
}

// RuleSet is the field rules for one document kind
type RuleSet struct {
	Kind Kind

	// Timestamps is the fixed list of timestamp fields
	Timestamps []string

	// MatchTimestamp selects timestamp fields by name when set
	MatchTimestamp func(name string) bool

	// Fallback writes the server time marker when a present timestamp field cannot be classified
	Fallback bool

	Texts  []TextRule
	Ratios []string
}

// Capture rules
var Capture = RuleSet{
	Kind:       KindCapture,
	Timestamps: []string{"timestamp", "created_at", "updated_at", "captured_at"},
	Fallback:   true,
	Texts: []TextRule{
		{Field: "image_path", OnlyTruthy: true},
		{Field: "user_id", OnlyTruthy: true},
	},
}

// Prediction rules
var Prediction = RuleSet{
	Kind:       KindPrediction,
	Timestamps: []string{"timestamp"},
	Fallback:   true,
	Texts: []TextRule{
		{Field: "variety", Default: "Unknown"},
		{Field: "description", Default: ""},
	},
	Ratios: []string{"accuracy"},
}

// Generic rules
var Generic = RuleSet{
	Kind:           KindGeneric,
	MatchTimestamp: IsTimestampName,
	Fallback:       true,
}

// ParseKind maps a kind name to a Kind; unknown names become KindGeneric
func ParseKind(s string) Kind {
	switch Kind(fold(strings.TrimSpace(s))) {
	case KindCapture:
		return KindCapture
	case KindPrediction:
		return KindPrediction
	default:
		return KindGeneric
	}
}

// KindFor picks the rule set for a collection name
func KindFor(collection string) Kind {
	switch fold(strings.TrimSpace(collection)) {
	case "captures":
		return KindCapture
	case "predictions":
		return KindPrediction
	default:
		return KindGeneric
	}
}

// IsTimestampName reports whether a field name looks like it holds a timestamp:
// it contains "time" or "date" (any case) or ends in "_at"
func IsTimestampName(name string) bool {
	f := fold(name)
	return strings.Contains(f, "time") || strings.Contains(f, "date") || strings.HasSuffix(name, "_at")
}

// pool of case folders, a cases.Caser is not safe for concurrent use
var folderPool = sync.Pool{
	New: func() any { return cases.Fold() },
}

func fold(s string) string {
	c := folderPool.Get().(cases.Caser)
	out := c.String(s)
	folderPool.Put(c)
	return out
}
