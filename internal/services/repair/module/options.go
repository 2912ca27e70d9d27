package module

import (
	"io"
	"strings"
	"time"

	"docmend/internal/platform/config"
	"docmend/internal/platform/validate"
	"docmend/internal/services/repair/ledger"
	"docmend/internal/services/repair/repo"
	"docmend/internal/services/repair/service"
)

// Default collection sets
var (
	DefaultAll   = []string{"captures", "predictions"}
	DefaultKnown = []string{"captures", "predictions", "users", "settings", "analytics", "feedback", "exports"}
)

// Options holds configuration options for the repair service.
// Flag tags name the CLI flag that overrides a field
type Options struct {
	DryRun  bool `flag:"dry-run"`
	Backup  bool `flag:"backup"`
	Verbose bool `flag:"verbose"`

	BatchSize  int    `flag:"batch-size" validate:"min=1,max=500"`
	Preview    int    `flag:"preview" validate:"min=0,max=1000"`
	Thresholds string `flag:"thresholds" validate:"oneof=primary legacy"`

	MaxErrors       int      `env:"MAX_ERRORS" validate:"min=1"`
	All             []string `env:"ALL" validate:"min=1,dive,collection"`
	Known           []string `env:"KNOWN" validate:"dive,collection"`
	GenericFallback bool     `env:"GENERIC_FALLBACK"`

	CollectionTimeout time.Duration `env:"COLLECTION_TIMEOUT"`
	ScanTimeout       time.Duration `env:"SCAN_TIMEOUT"`
	ChunkTimeout      time.Duration `env:"CHUNK_TIMEOUT"`
	StatementTimeout  time.Duration `env:"STATEMENT_TIMEOUT"`

	PageSize     int    `env:"PAGE_SIZE" validate:"min=1,max=10000"`
	EnsureSchema bool   `env:"ENSURE_SCHEMA"`
	LedgerTable  string `env:"LEDGER_TABLE" validate:"ident"`

	// Out receives dry run previews, stdout when nil
	Out io.Writer `validate:"-"`
}

// FromConfig reads the repair options from config with CORE_REPAIR_ prefix
func FromConfig(cfg config.Conf) Options {
	rp := cfg.Prefix("CORE_REPAIR_")
	return Options{
		DryRun:            rp.MayBool("DRY_RUN", false),
		Backup:            rp.MayBool("BACKUP", false),
		Verbose:           rp.MayBool("VERBOSE", false),
		BatchSize:         rp.MayInt("BATCH_SIZE", service.DefaultChunkSize),
		Preview:           rp.MayInt("PREVIEW", 5),
		Thresholds:        strings.ToLower(rp.MayString("THRESHOLDS", "primary")),
		MaxErrors:         rp.MayInt("MAX_ERRORS", 10),
		All:               rp.MayCSV("ALL", DefaultAll),
		Known:             rp.MayCSV("KNOWN", DefaultKnown),
		GenericFallback:   rp.MayBool("GENERIC_FALLBACK", true),
		CollectionTimeout: rp.MayDuration("COLLECTION_TIMEOUT", 0),
		ScanTimeout:       rp.MayDuration("SCAN_TIMEOUT", 0),
		ChunkTimeout:      rp.MayDuration("CHUNK_TIMEOUT", 0),
		StatementTimeout:  rp.MayDuration("STATEMENT_TIMEOUT", 0),
		PageSize:          rp.MayInt("PAGE_SIZE", repo.DefaultPageSize),
		EnsureSchema:      rp.MayBool("ENSURE_SCHEMA", true),
		LedgerTable:       rp.MayString("LEDGER_TABLE", ledger.DefaultTable),
	}
}

// Validate checks the options and reports the first bad field
func (o Options) Validate() error { return validate.Struct(o) }
