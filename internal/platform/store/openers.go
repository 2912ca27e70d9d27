package store

import (
	"context"
	"fmt"
	"time"

	chx "docmend/internal/platform/store/ch"
	"docmend/internal/platform/store/pg"
)

const (
	defaultConnectRetries = 20
	defaultPingTimeout    = 3 * time.Second

	backoffStart   = 150 * time.Millisecond
	backoffCeiling = 2 * time.Second
)

// sleep is swapped in tests
var sleep = func(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// waitReady pings with a doubling pause, capped at backoffCeiling, until ping succeeds or attempts run out
func waitReady(ctx context.Context, s *Store, name string, attempts int, timeout time.Duration, ping func(context.Context) error) error {
	if attempts <= 0 {
		attempts = defaultConnectRetries
	}
	if timeout <= 0 {
		timeout = defaultPingTimeout
	}

	var err error
	pause := backoffStart
	for i := 1; ; i++ {
		pctx, cancel := context.WithTimeout(ctx, timeout)
		err = ping(pctx)
		cancel()
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if i == attempts {
			return fmt.Errorf("%s not ready after %d attempts: %w", name, attempts, err)
		}
		s.Log.Debug().Str("backend", name).Int("attempt", i).Err(err).Msg("backend not ready")
		if err := sleep(ctx, pause); err != nil {
			return err
		}
		pause = min(pause*2, backoffCeiling)
	}
}

// openPG builds the pool and waits for postgres; pings bypass the tracer
func openPG(ctx context.Context, cfg Config, s *Store) (TxRunner, error) {
	var tracer pg.QueryTracer
	if cfg.PG.LogSQL {
		tracer = pg.Tracer(s.Log)
	}
	p, err := pg.Open(ctx, pg.Config{
		URL:      cfg.PG.URL,
		MaxConns: cfg.PG.MaxConns,
		SlowMs:   cfg.PG.SlowQueryMs,
		AppName:  cfg.AppName,
		Timezone: cfg.PG.Timezone,
	}, tracer, nil)
	if err != nil {
		return nil, err
	}
	if err := waitReady(ctx, s, "postgres", cfg.PG.ConnectRetries, cfg.PG.PingTimeout, p.Pool.Ping); err != nil {
		p.Close()
		return nil, err
	}
	return newPGDB(p), nil
}

// openCH opens the ledger connection; the driver dials lazily and Guard pings it
func openCH(ctx context.Context, cfg Config, _ *Store) (Clickhouse, error) {
	c, err := chx.Open(ctx, chx.Config{URL: cfg.CH.URL, Role: "ledger", App: cfg.AppName})
	if err != nil {
		return nil, err
	}
	return ledgerConn{c: c}, nil
}
