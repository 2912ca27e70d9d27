// Package raw reads configuration without logging, so the logger can use it at boot
package raw

import (
	"os"
	"strconv"
	"strings"
)

// Lookup resolves a fully qualified key
type Lookup func(key string) (string, bool)

// Conf is a prefixed view over a Lookup, the process environment by default
type Conf struct {
	prefix string
	lookup Lookup
}

// New reads from the process environment
func New() Conf { return Conf{lookup: os.LookupEnv} }

// FromMap reads from m; handy in tests
func FromMap(m map[string]string) Conf {
	return Conf{lookup: func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}}
}

// Prefix returns a child view, e.g. Prefix("LOG_")
func (c Conf) Prefix(p string) Conf { return Conf{prefix: c.prefix + p, lookup: c.lookup} }

// Key returns the fully qualified name of key
func (c Conf) Key(key string) string { return c.prefix + key }

// Value returns the trimmed value of key, "" when unset
func (c Conf) Value(key string) string {
	if c.lookup == nil {
		return ""
	}
	v, _ := c.lookup(c.Key(key))
	return strings.TrimSpace(v)
}

// Get returns the value of key or def when blank
func (c Conf) Get(key, def string) string {
	if v := c.Value(key); v != "" {
		return v
	}
	return def
}

// GetBool treats 1, true and yes as true; blank is def
func (c Conf) GetBool(key string, def bool) bool {
	switch strings.ToLower(c.Value(key)) {
	case "":
		return def
	case "1", "true", "yes":
		return true
	default:
		return false
	}
}

// GetInt parses a non negative integer; blank or invalid is def
func (c Conf) GetInt(key string, def int) int {
	n, err := strconv.Atoi(c.Value(key))
	if err != nil || n < 0 {
		return def
	}
	return n
}
