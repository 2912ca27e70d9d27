// Package logger wraps zerolog with run scoped context fields
package logger

import (
	"context"
	"io"
	"os"
	"runtime/debug"
	"strings"
	"sync/atomic"
	"time"

	"docmend/internal/platform/config/raw"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/pkgerrors"
)

// Logger is the project logger
type Logger = zerolog.Logger

// Options configures New
type Options struct {
	Level       string // trace..panic; unknown levels mean info
	Format      string // console or json
	Service     string
	Component   string
	Writer      io.Writer // os.Stderr when nil
	WithCaller  bool
	SampleEvery int
	Fields      map[string]string
}

// FromEnv reads LOG_* through raw, which never logs
func FromEnv() Options {
	rc := raw.New().Prefix("LOG_")
	return Options{
		Level:       rc.Get("LEVEL", "info"),
		Format:      strings.ToLower(rc.Get("FORMAT", "console")),
		Service:     rc.Get("SERVICE", ""),
		Component:   rc.Get("COMPONENT", ""),
		WithCaller:  rc.GetBool("CALLER", false),
		SampleEvery: rc.GetInt("SAMPLE_EVERY", 0),
	}
}

func init() {
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
	zerolog.TimeFieldFormat = time.RFC3339Nano
}

// New builds a logger from opt without touching the root
func New(opt Options) Logger {
	w := opt.Writer
	if w == nil {
		w = os.Stderr
	}
	if opt.Format != "json" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	b := zerolog.New(w).Level(ParseLevel(opt.Level)).With().Timestamp()
	if bi, ok := debug.ReadBuildInfo(); ok {
		b = b.Str("go_version", bi.GoVersion)
	}
	if opt.Service != "" {
		b = b.Str("service", opt.Service)
	}
	if opt.Component != "" {
		b = b.Str("component", opt.Component)
	}
	for k, v := range opt.Fields {
		b = b.Str(k, v)
	}
	if opt.WithCaller {
		b = b.Caller()
	}

	l := b.Logger()
	if opt.SampleEvery > 1 {
		l = l.Sample(&zerolog.BasicSampler{N: uint32(opt.SampleEvery)})
	}
	return l
}

var root atomic.Pointer[Logger]

// Init replaces the root logger; later calls win
func Init(opt Options) {
	l := New(opt)
	root.Store(&l)
}

// Get returns the root logger, built from the environment on first use
func Get() *Logger {
	if l := root.Load(); l != nil {
		return l
	}
	l := New(FromEnv())
	root.CompareAndSwap(nil, &l)
	return root.Load()
}

// ParseLevel maps a level name to zerolog, falling back to info
func ParseLevel(s string) zerolog.Level {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "warning" {
		s = "warn"
	}
	lvl, err := zerolog.ParseLevel(s)
	if err != nil || s == "" {
		return zerolog.InfoLevel
	}
	return lvl
}

type ctxKey int

const (
	keyRunID ctxKey = iota
	keyCollection
)

// WithRun tags ctx with the run id; blank ids are ignored
func WithRun(ctx context.Context, runID string) context.Context {
	if runID == "" {
		return ctx
	}
	return context.WithValue(ctx, keyRunID, runID)
}

// WithCollection tags ctx with the collection being repaired
func WithCollection(ctx context.Context, collection string) context.Context {
	if collection == "" {
		return ctx
	}
	return context.WithValue(ctx, keyCollection, collection)
}

func RunID(ctx context.Context) string {
	s, _ := ctx.Value(keyRunID).(string)
	return s
}

func Collection(ctx context.Context) string {
	s, _ := ctx.Value(keyCollection).(string)
	return s
}

// C returns the root logger with the run_id and collection found in ctx
func C(ctx context.Context) *Logger {
	run, coll := RunID(ctx), Collection(ctx)
	if run == "" && coll == "" {
		return Get()
	}
	b := Get().With()
	if run != "" {
		b = b.Str("run_id", run)
	}
	if coll != "" {
		b = b.Str("collection", coll)
	}
	l := b.Logger()
	return &l
}
