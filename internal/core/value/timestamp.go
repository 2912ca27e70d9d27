package value

import (
	"errors"
	"math"
	"time"
)

// Timestamp is the canonical instant: whole seconds since the Unix epoch plus
// a nanosecond fraction in [0, 1e9)
type Timestamp struct {
	Seconds int64
	Nanos   int32
}

// Valid range, 0001-01-01T00:00:00Z through 9999-12-31T23:59:59.999999999Z
const (
	MinTimestampSeconds int64 = -62135596800
	MaxTimestampSeconds int64 = 253402300799
)

// Errors returned by the timestamp constructors
var (
	ErrTimestampRange = errors.New("timestamp out of range")
	ErrTimestampNanos = errors.New("timestamp nanos out of range")
)

// NewTimestamp builds a Timestamp from a (seconds, nanos) pair and validates it
func NewTimestamp(seconds int64, nanos int32) (Timestamp, error) {
	if nanos < 0 || nanos >= 1e9 {
		return Timestamp{}, ErrTimestampNanos
	}
	if seconds < MinTimestampSeconds || seconds > MaxTimestampSeconds {
		return Timestamp{}, ErrTimestampRange
	}
	return Timestamp{Seconds: seconds, Nanos: nanos}, nil
}

// FromTime converts a time.Time, rejecting instants outside the valid range
func FromTime(t time.Time) (Timestamp, error) {
	return NewTimestamp(t.Unix(), int32(t.Nanosecond()))
}

// FromMillis converts milliseconds since the epoch, flooring toward negative infinity
func FromMillis(ms int64) (Timestamp, error) {
	sec := ms / 1000
	rem := ms % 1000
	if rem < 0 {
		sec--
		rem += 1000
	}
	return NewTimestamp(sec, int32(rem*1e6))
}

// maxAbsMillis bounds float millis before the int64 conversion
const maxAbsMillis = float64(MaxTimestampSeconds+1) * 1000

// FromFloatMillis floors a float millisecond count and converts it
// NaN, infinities and out of range magnitudes are rejected
func FromFloatMillis(ms float64) (Timestamp, error) {
	if math.IsNaN(ms) || math.IsInf(ms, 0) || math.Abs(ms) > maxAbsMillis {
		return Timestamp{}, ErrTimestampRange
	}
	return FromMillis(int64(math.Floor(ms)))
}

// ParseISO parses an RFC 3339 / ISO-8601 instant
func ParseISO(s string) (Timestamp, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return Timestamp{}, err
	}
	return FromTime(t)
}

// Time returns the instant as a UTC time.Time
func (t Timestamp) Time() time.Time { return time.Unix(t.Seconds, int64(t.Nanos)).UTC() }

// Millis returns milliseconds since the epoch, truncating sub-millisecond precision
func (t Timestamp) Millis() int64 { return t.Seconds*1000 + int64(t.Nanos)/1e6 }

// Equal reports whether both timestamps denote the same instant
func (t Timestamp) Equal(o Timestamp) bool { return t.Seconds == o.Seconds && t.Nanos == o.Nanos }

// ISO formats the instant as RFC 3339 with nanoseconds in UTC
func (t Timestamp) ISO() string { return t.Time().Format(time.RFC3339Nano) }

// String implements fmt.Stringer
func (t Timestamp) String() string { return t.ISO() }
