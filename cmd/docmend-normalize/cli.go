package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"docmend/internal/core/version"
	"docmend/internal/modkit"
	"docmend/internal/modkit/module"
	"docmend/internal/platform/config"
	perr "docmend/internal/platform/errors"
	"docmend/internal/platform/logger"
	"docmend/internal/platform/store"
	"docmend/internal/platform/validate"

	repairmod "docmend/internal/services/repair/module"
	repairsvc "docmend/internal/services/repair/service"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Exit codes
const (
	exitOK    = 0
	exitFatal = 1
	exitUsage = 2
)

// TargetList prints document counts instead of running
const TargetList = "list"

// exitError carries a process exit code through cobra
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func fatalf(code int, err error, format string, a ...any) error {
	return &exitError{code: code, err: fmt.Errorf(format+": %w", append(a, err)...)}
}

// exitFor maps input errors to a usage exit and everything else to fatal
func exitFor(err error) int {
	if perr.Usage(perr.CodeOf(err)) {
		return exitUsage
	}
	return exitFatal
}

// openDeps opens the stores behind the repair module; swapped in tests
var openDeps = func(ctx context.Context, cfg config.Conf, log logger.Logger) (modkit.Deps, func(), error) {
	pgCfg := cfg.Prefix("SERVICE_PGSQL_")
	chCfg := cfg.Prefix("SERVICE_CLICKHOUSE_")

	url := pgCfg.MayString("DBURL", "")
	if url == "" {
		return modkit.Deps{}, nil, perr.New(perr.ErrorCodeInvalidArgument, "SERVICE_PGSQL_DBURL is not set")
	}
	st, err := store.Open(ctx, store.Config{
		AppName: version.Info().Service,
		PG: store.PGConfig{
			Enabled:        true,
			URL:            url,
			MaxConns:       int32(pgCfg.MayInt("MAX_CONNS", 4)),
			SlowQueryMs:    pgCfg.MayInt("SLOW_MS", 500),
			LogSQL:         pgCfg.MayBool("LOG_SQL", false),
			Timezone:       pgCfg.MayString("TIMEZONE", ""),
			ConnectRetries: pgCfg.MayInt("CONNECT_RETRIES", 5),
			PingTimeout:    pgCfg.MayDuration("PING_TIMEOUT", 0),
		},
		CH: store.CHConfig{
			Enabled: chCfg.MayBool("ENABLED", false),
			URL:     chCfg.MayString("DBURL", ""),
		},
	}, store.WithLogger(log))
	if err != nil {
		return modkit.Deps{}, nil, err
	}
	if err := st.Guard(ctx); err != nil {
		_ = st.Close(ctx)
		return modkit.Deps{}, nil, err
	}
	closeFn := func() {
		if err := st.Close(context.Background()); err != nil {
			log.Error().Err(err).Msg("failed to close store")
		}
	}
	return modkit.Deps{Log: log, Cfg: cfg, PG: st.PG, CH: st.CH}, closeFn, nil
}

// moduleOptions are extra modkit options for the repair module; swapped in tests
var moduleOptions = func() []modkit.Option { return nil }

type runFlags struct {
	dryRun     bool
	backup     bool
	verbose    bool
	batchSize  int
	preview    int
	thresholds string
}

// Execute runs the CLI and returns the process exit code
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if err == nil {
		return exitOK
	}
	fmt.Fprintln(stderr, "error:", err)

	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return exitUsage
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "docmend-normalize",
		Short:         "Normalize inconsistent field representations across document collections",
		Version:       version.Info().String(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetVersionTemplate("{{.Version}}\n")
	root.AddCommand(newRunCmd())
	return root
}

func newRunCmd() *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "run <collection|all|list> [credentialPath]",
		Short: "Scan, normalize and rewrite a collection",
		Long: `Scan a collection, normalize timestamp, text and ratio fields, and write back only the changed fields.

Targets:
  <collection>  one collection by name
  all           the configured collection set (CORE_REPAIR_ALL)
  list          document counts for the known collections (CORE_REPAIR_KNOWN)

credentialPath is a dotenv file loaded into the environment before configuration is read.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runE(cmd, args, f)
		},
	}
	fl := cmd.Flags()
	fl.BoolVar(&f.dryRun, "dry-run", false, "plan and preview changes without writing")
	fl.BoolVar(&f.backup, "backup", false, "copy each collection to <name>_backup_<millis> before writing")
	fl.BoolVar(&f.verbose, "verbose", false, "debug logging, including unclassifiable timestamps")
	fl.IntVar(&f.batchSize, "batch-size", 500, "writes per atomic chunk (1-500)")
	fl.IntVar(&f.preview, "preview", 5, "changes shown in a dry run")
	fl.StringVar(&f.thresholds, "thresholds", "primary", "numeric timestamp table: primary | legacy")
	return cmd
}

func runE(cmd *cobra.Command, args []string, f runFlags) error {
	ctx := cmd.Context()
	target := args[0]

	if len(args) == 2 {
		if err := godotenv.Load(args[1]); err != nil {
			return fatalf(exitFatal, err, "load credentials %s", args[1])
		}
	}

	cfg := config.New()
	opts := repairmod.FromConfig(cfg)
	applyFlags(cmd, f, &opts)
	opts.Out = cmd.OutOrStdout()

	lo := logger.FromEnv()
	lo.Writer = cmd.ErrOrStderr()
	lo.Service = version.Info().Service
	if opts.Verbose {
		lo.Level = "debug"
	}
	logger.Init(lo)
	l := logger.Get()

	if err := opts.Validate(); err != nil {
		return fatalf(exitUsage, err, "invalid options")
	}
	if target != TargetList && target != repairsvc.TargetAll {
		if !validate.Collection(target) {
			return &exitError{code: exitUsage, err: perr.InvalidArgf("%q is not a valid collection name", target)}
		}
	}

	deps, closeFn, err := openDeps(ctx, cfg, *l)
	if err != nil {
		l.Error().Err(err).Msg("store open failed")
		return fatalf(exitFatal, err, "open store")
	}
	if closeFn != nil {
		defer closeFn()
	}

	rm, err := repairmod.New(deps, opts, moduleOptions()...)
	if err != nil {
		return fatalf(exitFor(err), err, "repair module")
	}
	module.Register(rm.Name(), rm.Ports())
	if err := rm.Prepare(ctx); err != nil {
		l.Error().Err(err).Msg("schema setup failed")
		return fatalf(exitFatal, err, "prepare store")
	}

	runner := module.MustPortsOf[repairmod.Ports](rm).Runner
	out := cmd.OutOrStdout()

	if target == TargetList {
		counts := runner.List(ctx)
		if len(counts) == 0 {
			fmt.Fprintln(out, "no non-empty collections found")
		}
		for _, c := range counts {
			fmt.Fprintf(out, "%-20s %d\n", c.Collection, c.Count)
		}
		return nil
	}

	sum := runner.Run(ctx, []string{target})
	sum.Print(out)
	return nil
}

// applyFlags lets explicitly set flags win over CORE_REPAIR_* config
func applyFlags(cmd *cobra.Command, f runFlags, o *repairmod.Options) {
	fl := cmd.Flags()
	if fl.Changed("dry-run") {
		o.DryRun = f.dryRun
	}
	if fl.Changed("backup") {
		o.Backup = f.backup
	}
	if fl.Changed("verbose") {
		o.Verbose = f.verbose
	}
	if fl.Changed("batch-size") {
		o.BatchSize = f.batchSize
	}
	if fl.Changed("preview") {
		o.Preview = f.preview
	}
	if fl.Changed("thresholds") {
		o.Thresholds = f.thresholds
	}
}
