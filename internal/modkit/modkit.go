// Package modkit wires batch modules to the shared stores
package modkit

import (
	"docmend/internal/modkit/repokit"
	"docmend/internal/platform/config"
	"docmend/internal/platform/logger"
	"docmend/internal/platform/store"
)

// Deps are the shared dependencies handed to every module.
// PG backs the document store; CH is the optional run ledger and may be nil
type Deps struct {
	Log logger.Logger
	Cfg config.Conf
	PG  repokit.TxRunner
	CH  store.Clickhouse
}

// Module is what a module exposes to the process that composes it
type Module interface {
	Name() string
	Ports() any
}

// Option overrides how a module is built
type Option func(*Built)

// Built is the result of applying options
type Built struct {
	Name  string
	Ports any
}

// WithName overrides the module name
func WithName(name string) Option {
	return func(b *Built) { b.Name = name }
}

// WithPorts injects a port set, typically to replace a store in tests.
// The concrete type is owned by the module that reads it
func WithPorts[T any](p T) Option {
	return func(b *Built) { b.Ports = p }
}

// Build applies opts in order, skipping nil ones
func Build(opts ...Option) Built {
	var b Built
	for _, o := range opts {
		if o != nil {
			o(&b)
		}
	}
	return b
}

// NameOr returns the overridden name or def
func (b Built) NameOr(def string) string {
	if b.Name == "" {
		return def
	}
	return b.Name
}
