package value

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// Reserved single-key objects that carry non-JSON kinds through JSON storage
const (
	tagTimestamp  = "$timestamp"
	tagDate       = "$date"
	tagServerTime = "$serverTimestamp"
)

type wireTimestamp struct {
	Seconds int64 `json:"seconds"`
	Nanos   int32 `json:"nanos"`
}

// MarshalJSON encodes v using plain JSON for JSON kinds and tagged objects for the rest
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNull:
		return []byte("null"), nil
	case KindBool:
		return json.Marshal(v.b)
	case KindNumber:
		if math.IsNaN(v.n) || math.IsInf(v.n, 0) {
			return nil, fmt.Errorf("value: cannot encode non-finite number %v", v.n)
		}
		return json.Marshal(v.n)
	case KindString:
		return json.Marshal(v.s)
	case KindTimestamp:
		return json.Marshal(map[string]wireTimestamp{tagTimestamp: {Seconds: v.ts.Seconds, Nanos: v.ts.Nanos}})
	case KindDateTime:
		return json.Marshal(map[string]string{tagDate: v.dt.UTC().Format(time.RFC3339Nano)})
	case KindMap:
		return json.Marshal(v.m)
	case KindList:
		if v.l == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.l)
	case KindServerTime:
		return json.Marshal(map[string]bool{tagServerTime: true})
	default:
		return nil, fmt.Errorf("value: unknown kind %s", v.kind)
	}
}

// UnmarshalJSON decodes any JSON document into a Value
func (v *Value) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	out, err := FromJSON(raw)
	if err != nil {
		return err
	}
	*v = out
	return nil
}

// UnmarshalJSON decodes a JSON object into Fields
func (f *Fields) UnmarshalJSON(b []byte) error {
	var v Value
	if err := v.UnmarshalJSON(b); err != nil {
		return err
	}
	m, ok := v.AsMap()
	if !ok {
		return fmt.Errorf("value: expected JSON object, got %s", v.Kind())
	}
	*f = m
	return nil
}

// FromJSON converts the generic output of encoding/json into a Value
// Accepts float64 or json.Number for numbers
func FromJSON(raw any) (Value, error) {
	switch x := raw.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(x), nil
	case float64:
		return Number(x), nil
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("value: bad number %q: %w", x.String(), err)
		}
		return Number(f), nil
	case string:
		return String(x), nil
	case []any:
		out := make([]Value, len(x))
		for i, e := range x {
			ev, err := FromJSON(e)
			if err != nil {
				return Value{}, err
			}
			out[i] = ev
		}
		return List(out), nil
	case map[string]any:
		if tv, ok, err := fromTagged(x); ok || err != nil {
			return tv, err
		}
		out := make(Fields, len(x))
		for k, e := range x {
			ev, err := FromJSON(e)
			if err != nil {
				return Value{}, fmt.Errorf("%s: %w", k, err)
			}
			out[k] = ev
		}
		return Map(out), nil
	default:
		return Value{}, fmt.Errorf("value: unsupported JSON type %T", raw)
	}
}

// fromTagged recognizes the reserved single-key objects
func fromTagged(m map[string]any) (Value, bool, error) {
	if len(m) != 1 {
		return Value{}, false, nil
	}
	if raw, ok := m[tagTimestamp]; ok {
		obj, ok := raw.(map[string]any)
		if !ok {
			return Value{}, true, fmt.Errorf("value: %s must be an object", tagTimestamp)
		}
		sec, err := intField(obj, "seconds")
		if err != nil {
			return Value{}, true, err
		}
		ns, err := intField(obj, "nanos")
		if err != nil {
			return Value{}, true, err
		}
		ts, err := NewTimestamp(sec, int32(ns))
		if err != nil {
			return Value{}, true, err
		}
		return TimestampOf(ts), true, nil
	}
	if raw, ok := m[tagDate]; ok {
		s, ok := raw.(string)
		if !ok {
			return Value{}, true, fmt.Errorf("value: %s must be a string", tagDate)
		}
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return Value{}, true, fmt.Errorf("value: bad %s: %w", tagDate, err)
		}
		return DateTime(t), true, nil
	}
	if _, ok := m[tagServerTime]; ok {
		return ServerTime(), true, nil
	}
	return Value{}, false, nil
}

func intField(obj map[string]any, name string) (int64, error) {
	switch x := obj[name].(type) {
	case nil:
		return 0, nil
	case float64:
		return int64(x), nil
	case json.Number:
		return x.Int64()
	default:
		return 0, fmt.Errorf("value: %s.%s must be a number", tagTimestamp, name)
	}
}

// HasServerTime reports whether any value in f (recursively) is the server time marker
func (f Fields) HasServerTime() bool {
	for _, v := range f {
		if v.hasServerTime() {
			return true
		}
	}
	return false
}

func (v Value) hasServerTime() bool {
	switch v.kind {
	case KindServerTime:
		return true
	case KindMap:
		return v.m.HasServerTime()
	case KindList:
		for _, e := range v.l {
			if e.hasServerTime() {
				return true
			}
		}
	}
	return false
}

// ResolveServerTime returns a copy of f with every server time marker replaced by now
func (f Fields) ResolveServerTime(now Timestamp) Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v.resolve(now)
	}
	return out
}

func (v Value) resolve(now Timestamp) Value {
	switch v.kind {
	case KindServerTime:
		return TimestampOf(now)
	case KindMap:
		return Map(v.m.ResolveServerTime(now))
	case KindList:
		out := make([]Value, len(v.l))
		for i, e := range v.l {
			out[i] = e.resolve(now)
		}
		return List(out)
	default:
		return v
	}
}
