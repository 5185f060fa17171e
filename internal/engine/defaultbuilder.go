package engine

import "github.com/samply/bridgehead-go/internal/registry"

// DefaultBuilder constructs a service purely from the ambient site config
// (or no config at all), given its full identity (so a parameterized
// family can read its binding back out of id.Params).
type DefaultBuilder func(e *Engine, id registry.Identity) (any, error)

// defaultBuilders is populated once, at program start, by each service
// package's init() calling RegisterDefaultBuilder for the families it
// offers a from-default-config constructor for. This mirrors the
// register-yourself-at-init convention of database/sql drivers: the table
// is write-once-then-read-only for the lifetime of the process, never
// mutated while an apply run is in progress.
var defaultBuilders = map[string]DefaultBuilder{}

// RegisterDefaultBuilder declares that every identity in family can be
// default-constructed by builder. Call from an init() function.
func RegisterDefaultBuilder(family string, builder DefaultBuilder) {
	defaultBuilders[family] = builder
}

func defaultBuilderFor(id registry.Identity) (DefaultBuilder, bool) {
	b, ok := defaultBuilders[id.Family]
	return b, ok
}
