// Package value models dynamically typed document fields as a tagged union
// Every field value read from or written to a document store is a Value;
// callers switch on Kind instead of inspecting raw interface types
package value

import (
	"math"
	"sort"
	"strconv"
	"time"
)

// Kind tags the variant held by a Value
type Kind uint8

const (
	// KindNull is an explicit null (also the zero Value)
	KindNull Kind = iota

	// KindBool is a boolean
	KindBool

	// KindNumber is an IEEE-754 double, matching JSON numbers
	KindNumber

	// KindString is a UTF-8 string
	KindString

	// KindTimestamp is the store's native timestamp type (canonical form)
	KindTimestamp

	// KindDateTime is a foreign date/time object that is not yet canonical
	KindDateTime

	// KindMap is a nested mapping
	KindMap

	// KindList is an ordered list
	KindList

	// KindServerTime is the write-only marker resolved to the store's clock at commit
	KindServerTime
)

// String returns the lowercase kind name used in logs and errors
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindTimestamp:
		return "timestamp"
	case KindDateTime:
		return "datetime"
	case KindMap:
		return "map"
	case KindList:
		return "list"
	case KindServerTime:
		return "server_time"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Value is an immutable field value
// The zero Value is Null
type Value struct {
	kind Kind
	b    bool
	n    float64
	s    string
	ts   Timestamp
	dt   time.Time
	m    Fields
	l    []Value
}

// Fields maps field names to values
type Fields map[string]Value

// Constructors

// Null returns the null value
func Null() Value { return Value{} }

// Bool wraps a boolean
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Number wraps a float64
func Number(n float64) Value { return Value{kind: KindNumber, n: n} }

// Int wraps an integer as a number
func Int(n int64) Value { return Value{kind: KindNumber, n: float64(n)} }

// String wraps a string
func String(s string) Value { return Value{kind: KindString, s: s} }

// TimestampOf wraps a canonical timestamp
func TimestampOf(ts Timestamp) Value { return Value{kind: KindTimestamp, ts: ts} }

// DateTime wraps a foreign date/time object
func DateTime(t time.Time) Value { return Value{kind: KindDateTime, dt: t} }

// Map wraps a nested mapping; the map is not copied
func Map(m Fields) Value { return Value{kind: KindMap, m: m} }

// List wraps a list; the slice is not copied
func List(l []Value) Value { return Value{kind: KindList, l: l} }

// ServerTime returns the server timestamp marker
func ServerTime() Value { return Value{kind: KindServerTime} }

// Accessors

// Kind returns the variant tag
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is null
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsBool returns the boolean and whether v is a bool
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

// AsNumber returns the number and whether v is a number
func (v Value) AsNumber() (float64, bool) { return v.n, v.kind == KindNumber }

// AsString returns the string and whether v is a string
func (v Value) AsString() (string, bool) { return v.s, v.kind == KindString }

// AsTimestamp returns the timestamp and whether v is a native timestamp
func (v Value) AsTimestamp() (Timestamp, bool) { return v.ts, v.kind == KindTimestamp }

// AsDateTime returns the date/time object and whether v is one
func (v Value) AsDateTime() (time.Time, bool) { return v.dt, v.kind == KindDateTime }

// AsMap returns the nested mapping and whether v is a map
func (v Value) AsMap() (Fields, bool) { return v.m, v.kind == KindMap }

// AsList returns the list and whether v is a list
func (v Value) AsList() ([]Value, bool) { return v.l, v.kind == KindList }

// Truthy mirrors loose truthiness: null, false, 0, NaN and "" are falsy
func (v Value) Truthy() bool {
	switch v.kind {
	case KindNull:
		return false
	case KindBool:
		return v.b
	case KindNumber:
		return v.n != 0 && !math.IsNaN(v.n)
	case KindString:
		return v.s != ""
	case KindTimestamp, KindDateTime, KindMap, KindList, KindServerTime:
		return true
	default:
		return false
	}
}

// Equal reports value equality
// Timestamps compare by instant; a DateTime and a Timestamp for the same
// instant are still different representations and therefore not equal
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull, KindServerTime:
		return true
	case KindBool:
		return v.b == o.b
	case KindNumber:
		return v.n == o.n || (math.IsNaN(v.n) && math.IsNaN(o.n))
	case KindString:
		return v.s == o.s
	case KindTimestamp:
		return v.ts.Equal(o.ts)
	case KindDateTime:
		return v.dt.Equal(o.dt)
	case KindMap:
		return v.m.Equal(o.m)
	case KindList:
		if len(v.l) != len(o.l) {
			return false
		}
		for i := range v.l {
			if !v.l[i].Equal(o.l[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Equal reports whether both field sets hold equal values under the same keys
func (f Fields) Equal(o Fields) bool {
	if len(f) != len(o) {
		return false
	}
	for k, v := range f {
		ov, ok := o[k]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}

// Clone returns a shallow copy of f; nested values are immutable so sharing is safe
func (f Fields) Clone() Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// Keys returns the field names in sorted order
func (f Fields) Keys() []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Merge returns a copy of f with patch applied on top (partial update semantics)
func (f Fields) Merge(patch Fields) Fields {
	out := f.Clone()
	for k, v := range patch {
		out[k] = v
	}
	return out
}

// Document is one stored document: an id unique within its collection plus its fields
type Document struct {
	ID     string
	Fields Fields
}
