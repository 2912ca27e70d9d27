// Package pg opens the pgx pool behind the document store
package pg

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DefaultTimezone is the session timezone; document timestamps round trip as UTC
const DefaultTimezone = "UTC"

// Config configures the pool
type Config struct {
	URL      string
	MaxConns int32
	SlowMs   int

	// AppName shows up as application_name in pg_stat_activity
	AppName string

	// Timezone overrides DefaultTimezone
	Timezone string
}

// PG is a pgx pool with an optional query tracer
type PG struct {
	Pool   *pgxpool.Pool
	Tracer QueryTracer
	SlowMs int
}

var newPool = pgxpool.NewWithConfig

// Open parses cfg.URL and builds the pool; mut may adjust the pool config last
func Open(ctx context.Context, cfg Config, tracer QueryTracer, mut func(*pgxpool.Config)) (*PG, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, err
	}
	if cfg.MaxConns > 0 {
		pcfg.MaxConns = cfg.MaxConns
	}
	params := pcfg.ConnConfig.RuntimeParams
	if cfg.AppName != "" {
		params["application_name"] = cfg.AppName
	}
	params["timezone"] = DefaultTimezone
	if cfg.Timezone != "" {
		params["timezone"] = cfg.Timezone
	}
	if mut != nil {
		mut(pcfg)
	}
	pool, err := newPool(ctx, pcfg)
	if err != nil {
		return nil, err
	}
	return &PG{Pool: pool, Tracer: tracer, SlowMs: cfg.SlowMs}, nil
}

// Close closes the pool; safe on nil
func (p *PG) Close() {
	if p != nil && p.Pool != nil {
		p.Pool.Close()
	}
}
