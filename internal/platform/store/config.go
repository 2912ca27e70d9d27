package store

import (
	"time"

	"docmend/internal/platform/logger"
)

// Config selects and configures the backends Open brings up
type Config struct {
	// AppName is reported to postgres as application_name and to clickhouse as client info
	AppName string

	PG PGConfig
	CH CHConfig
}

// PGConfig configures the postgres document store
type PGConfig struct {
	Enabled     bool
	URL         string
	MaxConns    int32
	LogSQL      bool
	SlowQueryMs int
	Timezone    string // session timezone, UTC when empty

	ConnectRetries int           // ping attempts before Open fails, default 20
	PingTimeout    time.Duration // per attempt, default 3s
}

// CHConfig configures the optional clickhouse run ledger
type CHConfig struct {
	Enabled bool
	URL     string
}

// Option mutates Store during Open
type Option func(*Store) error

// WithLogger sets the logger handed to the pg tracer and boot retries
func WithLogger(log logger.Logger) Option {
	return func(s *Store) error {
		s.Log = log
		return nil
	}
}
