// Package config reads typed settings from prefixed environment variables
// (CORE_REPAIR_*, SERVICE_PGSQL_*), logging and falling back on bad values
package config

import (
	"strconv"
	"strings"
	"time"

	"docmend/internal/platform/config/raw"
	"docmend/internal/platform/logger"
)

// Conf is a prefixed view over the environment, e.g. New().Prefix("CORE_REPAIR_")
type Conf struct{ raw raw.Conf }

// New reads from the process environment
func New() Conf { return Conf{raw: raw.New()} }

// FromMap reads from m instead of the environment
func FromMap(m map[string]string) Conf { return Conf{raw: raw.FromMap(m)} }

// Prefix returns a child view with p appended to the prefix
func (c Conf) Prefix(p string) Conf { return Conf{raw: c.raw.Prefix(p)} }

// MayString returns the value of key or def when blank
func (c Conf) MayString(key, def string) string { return c.raw.Get(key, def) }

// MayInt returns key as an int, def when blank or invalid
func (c Conf) MayInt(key string, def int) int {
	return may(c, key, def, "int", strconv.Atoi)
}

// MayBool returns key as a bool, def when blank or invalid
func (c Conf) MayBool(key string, def bool) bool {
	return may(c, key, def, "bool", strconv.ParseBool)
}

// MayDuration returns key as a duration (250ms, 2s, 1h), def when blank or invalid
func (c Conf) MayDuration(key string, def time.Duration) time.Duration {
	return may(c, key, def, "duration", time.ParseDuration)
}

// MayCSV splits key on commas, dropping blanks; def when nothing is left
func (c Conf) MayCSV(key string, def []string) []string {
	var out []string
	for _, p := range strings.Split(c.raw.Value(key), ",") {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}

func may[T any](c Conf, key string, def T, kind string, parse func(string) (T, error)) T {
	s := c.raw.Value(key)
	if s == "" {
		return def
	}
	v, err := parse(s)
	if err != nil {
		logger.Get().Warn().Str("key", c.raw.Key(key)).Str("value", s).Interface("default", def).
			Msgf("invalid %s; using default", kind)
		return def
	}
	return v
}
