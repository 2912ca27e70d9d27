package module

import (
	"testing"
	"time"

	"docmend/internal/platform/config"
	perr "docmend/internal/platform/errors"
)

func TestFromConfig_Defaults(t *testing.T) {
	o := FromConfig(config.New())

	if o.BatchSize != 500 || o.Preview != 5 || o.MaxErrors != 10 || o.Thresholds != "primary" {
		t.Fatalf("defaults = %+v", o)
	}
	if len(o.All) != 2 || len(o.Known) != 7 || !o.GenericFallback || !o.EnsureSchema {
		t.Fatalf("defaults = %+v", o)
	}
	if o.LedgerTable != "repair_runs" || o.PageSize != 1000 {
		t.Fatalf("defaults = %+v", o)
	}
	if err := o.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestFromConfig_Env(t *testing.T) {
	t.Setenv("CORE_REPAIR_BATCH_SIZE", "100")
	t.Setenv("CORE_REPAIR_THRESHOLDS", "LEGACY")
	t.Setenv("CORE_REPAIR_ALL", "users, settings")
	t.Setenv("CORE_REPAIR_CHUNK_TIMEOUT", "30s")
	t.Setenv("CORE_REPAIR_GENERIC_FALLBACK", "false")
	t.Setenv("CORE_REPAIR_DRY_RUN", "true")

	o := FromConfig(config.New())
	if o.BatchSize != 100 || o.Thresholds != "legacy" || !o.DryRun || o.GenericFallback {
		t.Fatalf("env = %+v", o)
	}
	if len(o.All) != 2 || o.All[1] != "settings" {
		t.Fatalf("All = %v", o.All)
	}
	if o.ChunkTimeout != 30*time.Second {
		t.Fatalf("ChunkTimeout = %v", o.ChunkTimeout)
	}
}

func TestOptions_Validate(t *testing.T) {
	base := FromConfig(config.New())

	cases := []struct {
		name  string
		mut   func(*Options)
		field string
	}{
		{"batch too big", func(o *Options) { o.BatchSize = 501 }, "batch-size"},
		{"batch zero", func(o *Options) { o.BatchSize = 0 }, "batch-size"},
		{"negative preview", func(o *Options) { o.Preview = -1 }, "preview"},
		{"unknown table", func(o *Options) { o.Thresholds = "fast" }, "thresholds"},
		{"empty all", func(o *Options) { o.All = nil }, "ALL"},
		{"bad collection", func(o *Options) { o.Known = []string{"a/b"} }, "KNOWN[0]"},
		{"bad ledger table", func(o *Options) { o.LedgerTable = "runs;drop" }, "LEDGER_TABLE"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			o := base
			tc.mut(&o)
			err := o.Validate()
			if !perr.IsCode(err, perr.ErrorCodeValidation) {
				t.Fatalf("err = %v", err)
			}
			if e, _ := perr.As(err); e.Field() != tc.field {
				t.Fatalf("field = %q, want %q", e.Field(), tc.field)
			}
		})
	}
}
