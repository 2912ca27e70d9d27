package classify

import (
	"fmt"
	"math"
	"strings"
)

// Unit says how a number inside a band is read
type Unit uint8

const (
	// Reject means the number is not a timestamp
	Reject Unit = iota
	// Millis reads the number as milliseconds since the epoch
	Millis
	// Seconds reads the number as seconds since the epoch
	Seconds
)

// String implements fmt.Stringer
func (u Unit) String() string {
	switch u {
	case Reject:
		return "reject"
	case Millis:
		return "millis"
	case Seconds:
		return "seconds"
	default:
		return fmt.Sprintf("unit(%d)", uint8(u))
	}
}

// Band matches numbers strictly above Above and strictly below Below
// A NaN bound is open on that side
type Band struct {
	Above float64
	Below float64
	Unit  Unit
}

func (b Band) matches(v float64) bool {
	if !math.IsNaN(b.Above) && !(v > b.Above) {
		return false
	}
	if !math.IsNaN(b.Below) && !(v < b.Below) {
		return false
	}
	return true
}

// Table is an ordered list of bands; the first matching band wins and
// Fallback applies when none does
type Table struct {
	Name     string
	Bands    []Band
	Fallback Unit
}

// Unit returns how v is read under t
func (t Table) Unit(v float64) Unit {
	for _, b := range t.Bands {
		if b.matches(v) {
			return b.Unit
		}
	}
	return t.Fallback
}

var open = math.NaN()

// Primary table thresholds
const (
	// PrimaryRejectAbove rejects values that would be ~year 2096+ as millis
	PrimaryRejectAbove = 4e12
	// PrimaryMillisAbove reads larger values as milliseconds (after ~2001-09)
	PrimaryMillisAbove = 1e12
	// PrimarySecondsAbove and PrimarySecondsBelow bound the seconds window (~2001-09 .. ~2096)
	PrimarySecondsAbove = 1e9
	PrimarySecondsBelow = 4e9
)

// Legacy table thresholds
const (
	// LegacyMillisAbove reads larger values as milliseconds
	LegacyMillisAbove = 1e14
	// LegacySecondsBelow reads smaller values as seconds
	LegacySecondsBelow = 1e11
)

// Primary is the default table. Values in (4e9, 1e12] are rejected
var Primary = Table{
	Name: "primary",
	Bands: []Band{
		{Above: PrimaryRejectAbove, Below: open, Unit: Reject},
		{Above: PrimaryMillisAbove, Below: open, Unit: Millis},
		{Above: PrimarySecondsAbove, Below: PrimarySecondsBelow, Unit: Seconds},
	},
	Fallback: Reject,
}

// Legacy reproduces the first-generation script. Values in [4e9, 1e11)
// are read as seconds here but rejected by Primary
var Legacy = Table{
	Name: "legacy",
	Bands: []Band{
		{Above: LegacyMillisAbove, Below: open, Unit: Millis},
		{Above: open, Below: LegacySecondsBelow, Unit: Seconds},
	},
	Fallback: Millis,
}

// TableNames lists the selectable table names
var TableNames = []string{Primary.Name, Legacy.Name}

// TableByName looks up a table by its name (case-insensitive)
func TableByName(name string) (Table, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", Primary.Name:
		return Primary, nil
	case Legacy.Name:
		return Legacy, nil
	default:
		return Table{}, fmt.Errorf("classify: unknown threshold table %q (want one of %s)", name, strings.Join(TableNames, ", "))
	}
}
