// Package classify decides whether a single field value denotes a timestamp
// and computes its canonical value
//
// Rules, first match wins
// 1 native timestamp is returned unchanged
// 2 a date/time object converts exactly
// 3 a number is read through the threshold Table
// 4 a string is parsed as a date first, then as a number (rule 3)
// 5 anything else is rejected
//
// Classification is pure and total: it never panics and never errors,
// a rejection is reported as ok=false
package classify

import (
	"math"
	"strconv"
	"strings"
	"time"

	"docmend/internal/core/value"

	"github.com/araddon/dateparse"
)

// Classifier applies the rules with a fixed threshold table
type Classifier struct {
	table Table
}

// New returns a Classifier using table
func New(table Table) *Classifier { return &Classifier{table: table} }

// Default uses the Primary table
var Default = New(Primary)

// Classify runs the Default classifier
func Classify(v value.Value) (value.Timestamp, bool) { return Default.Classify(v) }

// Table returns the threshold table in use
func (c *Classifier) Table() Table { return c.table }

// Classify returns the canonical timestamp for v, or ok=false when v is not one
func (c *Classifier) Classify(v value.Value) (value.Timestamp, bool) {
	switch v.Kind() {
	case value.KindTimestamp:
		ts, _ := v.AsTimestamp()
		return ts, true
	case value.KindDateTime:
		t, _ := v.AsDateTime()
		ts, err := value.FromTime(t)
		return ts, err == nil
	case value.KindNumber:
		n, _ := v.AsNumber()
		return c.Number(n)
	case value.KindString:
		s, _ := v.AsString()
		return c.String(s)
	case value.KindNull, value.KindBool, value.KindMap, value.KindList, value.KindServerTime:
		return value.Timestamp{}, false
	default:
		return value.Timestamp{}, false
	}
}

// Number classifies a bare number through the threshold table
func (c *Classifier) Number(n float64) (value.Timestamp, bool) {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return value.Timestamp{}, false
	}
	var (
		ts  value.Timestamp
		err error
	)
	switch c.table.Unit(n) {
	case Millis:
		ts, err = value.FromFloatMillis(n)
	case Seconds:
		ts, err = value.FromFloatMillis(n * 1000)
	default:
		return value.Timestamp{}, false
	}
	return ts, err == nil
}

// String classifies a string: date formats first, then a numeric reading
// Digit runs longer than maxDateDigits are epoch values and go straight to the
// threshold table, shorter ones are tried as a year or a compact date first
func (c *Classifier) String(s string) (value.Timestamp, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return value.Timestamp{}, false
	}
	n, numErr := strconv.ParseFloat(s, 64)
	if numErr == nil && !shortDigits(s) {
		return c.Number(n)
	}
	if t, ok := parseDate(s); ok {
		ts, err := value.FromTime(t)
		return ts, err == nil
	}
	if numErr == nil {
		return c.Number(n)
	}
	return value.Timestamp{}, false
}

// maxDateDigits is the longest digit run read as a date (yyyymmdd)
const maxDateDigits = 8

func shortDigits(s string) bool {
	if len(s) > maxDateDigits {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// parseDate tries strict RFC 3339 first and then the format-flexible parser
// Zone-less inputs are read as UTC
func parseDate(s string) (t time.Time, ok bool) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	if shortDigits(s) {
		for _, layout := range []string{"2006", "20060102"} {
			if len(layout) == len(s) {
				t, err := time.Parse(layout, s)
				return t, err == nil
			}
		}
		return time.Time{}, false
	}
	defer func() {
		if r := recover(); r != nil {
			t, ok = time.Time{}, false
		}
	}()
	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
