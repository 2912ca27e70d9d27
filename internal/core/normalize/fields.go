package normalize

import (
	"math"
	"strconv"
	"strings"
	"time"

	"docmend/internal/core/value"
	perr "docmend/internal/platform/errors"
)

// RatioEpsilon is the smallest numeric difference treated as a change
const RatioEpsilon = 1e-6

// Text coerces v to a trimmed string
// Falsy values, blank results and values with no text form (maps, lists,
// the server time marker) become def
func Text(v value.Value, def string) (string, error) {
	var s string
	switch v.Kind() {
	case value.KindNull:
		return def, nil
	case value.KindBool:
		b, _ := v.AsBool()
		if !b {
			return def, nil
		}
		s = "true"
	case value.KindNumber:
		n, _ := v.AsNumber()
		if n == 0 || math.IsNaN(n) {
			return def, nil
		}
		s = strconv.FormatFloat(n, 'f', -1, 64)
	case value.KindString:
		s, _ = v.AsString()
	case value.KindTimestamp:
		ts, _ := v.AsTimestamp()
		s = ts.ISO()
	case value.KindDateTime:
		t, _ := v.AsDateTime()
		s = t.UTC().Format(time.RFC3339Nano)
	case value.KindMap, value.KindList, value.KindServerTime:
		return def, nil
	default:
		return "", perr.Newf(perr.ErrorCodeValidation, "cannot coerce %s to text", v.Kind())
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return def, nil
	}
	return s, nil
}

// Ratio normalizes a score expected in [0,1]
// Unparseable input reads as 0, values above 1 are taken as percentages,
// and the result is clamped. changed is true when the stored value, read as
// a number, moved by more than RatioEpsilon; stored values with no numeric
// reading are always rewritten
func Ratio(v value.Value) (r float64, changed bool) {
	old, comparable := numeric(v)

	x := 0.0
	if v.Kind() == value.KindNumber || v.Kind() == value.KindString {
		x = old
	}
	if math.IsNaN(x) {
		x = 0
	}
	if x > 1 {
		x /= 100
	}
	r = math.Max(0, math.Min(1, x))

	if !comparable {
		return r, true
	}
	return r, math.Abs(old-r) > RatioEpsilon
}

// numeric reads v as a number the way arithmetic on the stored value would:
// null and false are 0, true is 1, numeric strings parse
func numeric(v value.Value) (float64, bool) {
	switch v.Kind() {
	case value.KindNull:
		return 0, true
	case value.KindBool:
		if b, _ := v.AsBool(); b {
			return 1, true
		}
		return 0, true
	case value.KindNumber:
		n, _ := v.AsNumber()
		return n, !math.IsNaN(n)
	case value.KindString:
		s, _ := v.AsString()
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil || math.IsNaN(f) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func fieldErr(field string, err error) error {
	return perr.WithFieldChain(perr.WithOp(err, "normalize"), field)
}
