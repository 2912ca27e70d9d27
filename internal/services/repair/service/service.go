// Package service provides the repair run orchestration
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"docmend/internal/core/normalize"
	"docmend/internal/core/value"
	"docmend/internal/platform/logger"
	"docmend/internal/services/repair/domain"
	"docmend/internal/services/repair/guardrails"

	"github.com/google/uuid"
)

// TargetAll expands to Config.All
const TargetAll = "all"

// Config holds configuration options for the repair service
type Config struct {
	DryRun  bool
	Backup  bool
	Verbose bool

	ChunkSize int // writes per atomic group; <=0 -> DefaultChunkSize
	Preview   int // changes shown in a dry run; <0 -> none
	MaxErrors int // failure details in the summary; <=0 -> domain.DefaultMaxErrors

	All   []string // collections behind the "all" target
	Known []string // collections reported by List

	Timeouts guardrails.Timeouts
}

// Service implements the repair run
type Service struct {
	Store  domain.DocStore
	Norm   *normalize.Normalizer
	Ledger domain.Ledger
	Cfg    Config

	// Out receives dry run previews
	Out io.Writer

	Now      func() time.Time
	NewRunID func() string

	committer Committer
	backups   *Backuper
}

// New constructs the repair service
func New(store domain.DocStore, norm *normalize.Normalizer, ledger domain.Ledger, cfg Config) *Service {
	if store == nil {
		panic("repair.Service requires a non nil DocStore")
	}
	if norm == nil {
		panic("repair.Service requires a non nil Normalizer")
	}
	if ledger == nil {
		panic("repair.Service requires a non nil Ledger")
	}
	c := Committer{Store: store, ChunkSize: cfg.ChunkSize, Timeouts: cfg.Timeouts}
	s := &Service{
		Store: store, Norm: norm, Ledger: ledger, Cfg: cfg,
		Out:       os.Stdout,
		Now:       time.Now,
		NewRunID:  uuid.NewString,
		committer: c,
		backups:   NewBackuper(c),
	}
	s.backups.Now = func() time.Time { return s.Now() }
	return s
}

// Targets expands the "all" target and drops duplicates, keeping order
func (s *Service) Targets(targets []string) []string {
	seen := map[string]bool{}
	var out []string
	add := func(c string) {
		c = strings.TrimSpace(c)
		if c != "" && !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	for _, t := range targets {
		if t == TargetAll {
			for _, c := range s.Cfg.All {
				add(c)
			}
			continue
		}
		add(t)
	}
	return out
}

// Run repairs every target collection in order and returns the summary.
// A fatal error in one collection never stops the next one
func (s *Service) Run(ctx context.Context, targets []string) domain.Summary {
	runID := s.NewRunID()
	ctx = logger.WithRun(ctx, runID)

	sum := domain.Summary{RunID: runID, DryRun: s.Cfg.DryRun, MaxErrors: s.Cfg.MaxErrors}
	cols := s.Targets(targets)
	logger.C(ctx).Info().Strs("collections", cols).Bool("dry_run", s.Cfg.DryRun).Bool("backup", s.Cfg.Backup).Msg("repair: run started")

	for _, c := range cols {
		out := s.RunCollection(ctx, c)
		if err := s.Ledger.Record(ctx, runID, out); err != nil {
			logger.C(ctx).Warn().Err(err).Str("target", c).Msg("repair: ledger record failed")
		}
		sum.Collections = append(sum.Collections, out)
	}

	t := sum.Totals()
	logger.C(ctx).Info().
		Int("scanned", t.Scanned).Int("updated", t.Updated).
		Int("unchanged", t.Unchanged).Int("failed", t.Failed).
		Msg("repair: run finished")
	return sum
}

// RunCollection drives one collection from SCANNING to DONE
func (s *Service) RunCollection(ctx context.Context, collection string) (out domain.CollectionOutcome) {
	ctx = logger.WithCollection(ctx, collection)
	log := logger.C(ctx)

	kind := normalize.KindFor(collection)
	out = domain.CollectionOutcome{
		Collection: collection,
		Kind:       string(kind),
		DryRun:     s.Cfg.DryRun,
		Started:    s.Now(),
	}
	defer func() {
		out.Finished = s.Now()
		s.enter(ctx, domain.PhaseDone)
	}()

	ctx, cancel := guardrails.WithCollection(ctx, s.Cfg.Timeouts)
	defer cancel()

	s.enter(ctx, domain.PhaseScanning)
	sctx, scancel := guardrails.ForScan(ctx, s.Cfg.Timeouts)
	docs, err := s.Store.Scan(sctx, collection)
	scancel()
	if err != nil {
		return fatal(ctx, out, domain.PhaseScanning, err)
	}

	if s.Cfg.Backup && !s.Cfg.DryRun {
		s.enter(ctx, domain.PhaseBackingUp)
		name, err := s.backups.BackupSnapshot(ctx, collection, docs)
		if err != nil {
			out.Stats.Scanned = len(docs)
			return fatal(ctx, out, domain.PhaseBackingUp, err)
		}
		out.Backup = name
	}

	s.enter(ctx, domain.PhasePlanning)
	plan := Plan(collection, docs, kind, s.Norm)
	out.Stats = plan.Stats
	if s.Cfg.Verbose {
		for _, r := range plan.Records {
			if len(r.Fallbacks) > 0 {
				log.Debug().Str("doc", r.ID).Strs("fields", r.Fallbacks).Msg("repair: unclassifiable timestamps set to server time")
			}
		}
	}
	for _, e := range plan.Stats.Errors {
		log.Warn().Err(e.Err).Str("doc", e.ID).Msg("repair: document failed")
	}

	if s.Cfg.DryRun {
		s.enter(ctx, domain.PhaseReporting)
		s.preview(collection, plan.Records)
		return out
	}

	s.enter(ctx, domain.PhaseCommitting)
	rep := s.committer.Commit(ctx, collection, plan.Records)
	rep.Apply(&out.Stats)
	return out
}

// List reports document counts for the known collections, skipping empty or unreachable ones
func (s *Service) List(ctx context.Context) []domain.CollectionCount {
	var out []domain.CollectionCount
	for _, c := range s.Cfg.Known {
		n, err := s.Store.Count(ctx, c)
		if err != nil {
			logger.C(ctx).Debug().Err(err).Str("target", c).Msg("repair: count failed")
			continue
		}
		if n == 0 {
			continue
		}
		out = append(out, domain.CollectionCount{Collection: c, Count: n})
	}
	return out
}

func (s *Service) enter(ctx context.Context, p domain.Phase) {
	logger.C(ctx).Info().Str("phase", string(p)).Msg("repair: phase")
}

func fatal(ctx context.Context, out domain.CollectionOutcome, p domain.Phase, err error) domain.CollectionOutcome {
	logger.C(ctx).Error().Err(err).Str("phase", string(p)).Msg("repair: collection aborted")
	out.FailedIn, out.Err = p, err
	return out
}

// preview prints before and after of the first Cfg.Preview changes
func (s *Service) preview(collection string, records []domain.ChangeRecord) {
	n := s.Cfg.Preview
	if n <= 0 || s.Out == nil {
		return
	}
	if len(records) < n {
		n = len(records)
	}
	for _, r := range records[:n] {
		before := value.Fields{}
		for k := range r.Patch {
			if v, ok := r.Original[k]; ok {
				before[k] = v
			}
		}
		fmt.Fprintf(s.Out, "%s/%s\n  before: %s\n  after:  %s\n", collection, r.ID, compact(before), compact(r.Patch))
	}
	if rest := len(records) - n; rest > 0 {
		fmt.Fprintf(s.Out, "  ... and %d more changes in %s\n", rest, collection)
	}
}

func compact(f value.Fields) string {
	b, err := json.Marshal(f)
	if err != nil {
		return fmt.Sprintf("%v", map[string]value.Value(f))
	}
	return string(b)
}
