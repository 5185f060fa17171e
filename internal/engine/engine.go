// Package engine is the composition engine: a dependency-injection
// container in which each service is a distinct typed identity with
// declared dependencies, constructed in topological order, with optional
// dependencies allowed to remain unsatisfied and post-install hooks able to
// mutate a dependency after a later sibling needs to register into it.
package engine

import (
	"fmt"
	"reflect"

	"github.com/rs/zerolog"

	"github.com/samply/bridgehead-go/internal/bherr"
	"github.com/samply/bridgehead-go/internal/config"
	"github.com/samply/bridgehead-go/internal/depgraph"
	"github.com/samply/bridgehead-go/internal/logging"
	"github.com/samply/bridgehead-go/internal/registry"
	"github.com/samply/bridgehead-go/internal/secretmint"
	"github.com/samply/bridgehead-go/internal/secretsync"
)

// DepEdge declares one dependency of a service: the identity it depends on,
// and whether that dependency is required or may remain absent.
type DepEdge struct {
	ID       registry.Identity
	Required bool
}

// Required is a convenience constructor for a required DepEdge.
func Required(id registry.Identity) DepEdge { return DepEdge{ID: id, Required: true} }

// Optional is a convenience constructor for an optional DepEdge.
func Optional(id registry.Identity) DepEdge { return DepEdge{ID: id, Required: false} }

type constructorEntry struct {
	build func(e *Engine) (any, error)
	deps  []DepEdge
	typ   reflect.Type
}

// Engine owns the registry, the dependency graph, and every recorded
// constructor and post-install hook. It is single-use: build one Engine per
// apply run.
type Engine struct {
	Site  *config.SiteConfig
	Local *config.LocalStore
	Mint  *secretmint.Mint
	Sync  *secretsync.Syncer

	reg          *registry.Registry
	graph        *depgraph.Graph
	constructors map[registry.Identity]constructorEntry
	postInstall  map[registry.Identity][]func(any)
	logger       zerolog.Logger
}

// New builds an Engine bound to the given site config and local store.
func New(site *config.SiteConfig, local *config.LocalStore, sync *secretsync.Syncer) *Engine {
	return &Engine{
		Site:         site,
		Local:        local,
		Mint:         secretmint.New(local.Seed, local),
		Sync:         sync,
		reg:          registry.New(),
		graph:        depgraph.New(),
		constructors: make(map[registry.Identity]constructorEntry),
		postInstall:  make(map[registry.Identity][]func(any)),
		logger:       logging.With(logging.ComponentEngine),
	}
}

// Registry exposes the underlying registry for the render phase.
func (e *Engine) Registry() *registry.Registry { return e.reg }

// Builder is returned by InstallWithConfig/InstallDefault so callers can
// chain PostInstall hooks onto the just-registered identity.
type Builder[T any] struct {
	e  *Engine
	id registry.Identity
}

// PostInstall queues hook to run on the constructed instance after it is
// built, before it is inserted into the registry. Hooks accumulate in FIFO
// order across repeated installs of the same identity, even when a later
// InstallWithConfig call replaces the constructor (last-write-wins applies
// to the constructor and config, not to accumulated hooks).
func (b *Builder[T]) PostInstall(hook func(*T)) *Builder[T] {
	b.e.postInstall[b.id] = append(b.e.postInstall[b.id], func(v any) {
		hook(v.(*T))
	})
	return b
}

// InstallWithConfig records a constructor for T under id, with explicit
// config baked into build via closure, and registers its dependency edges
// into the graph. A second InstallWithConfig for the same id overrides the
// prior constructor (last-write-wins); previously queued post-install hooks
// are kept.
func InstallWithConfig[T any](e *Engine, id registry.Identity, deps []DepEdge, build func(e *Engine) (*T, error)) *Builder[T] {
	e.constructors[id] = constructorEntry{
		build: func(e *Engine) (any, error) { return build(e) },
		deps:  deps,
		typ:   reflect.TypeOf((*T)(nil)),
	}
	e.graph.Register(registry.Root, id)
	e.graph.RegisterMany(id, depIDs(deps))
	if _, ok := e.postInstall[id]; !ok {
		e.postInstall[id] = nil
	}
	return &Builder[T]{e: e, id: id}
}

// InstallDefault is InstallWithConfig for a service whose config is derived
// purely from the ambient site config (or needs none at all). It exists
// mainly so a module can attach PostInstall hooks to a default-creatable
// service it wants installed unconditionally; the engine reaches the same
// construction path automatically when a required dependency nobody
// installed turns out to be default-constructible — see defaultBuilderFor.
func InstallDefault[T any](e *Engine, id registry.Identity, deps []DepEdge, build func(e *Engine) (*T, error)) *Builder[T] {
	return InstallWithConfig(e, id, deps, build)
}

func depIDs(deps []DepEdge) []registry.Identity {
	ids := make([]registry.Identity, len(deps))
	for i, d := range deps {
		ids[i] = d.ID
	}
	return ids
}

// Slot is the present/absent value a constructor receives for each optional
// dependency in its tuple.
type Slot[T any] struct {
	Value   *T
	Present bool
}

// DependencyError reports a required dependency that could not be
// materialized: not explicitly installed, and not default-constructible.
type DependencyError struct {
	Dependent  registry.Identity
	Missing    registry.Identity
	ConfigKind string
}

func (d *DependencyError) Error() string {
	return fmt.Sprintf("service %s requires %s, which was never installed and has no default config (needs %s)", d.Dependent, d.Missing, d.ConfigKind)
}

// Materialize walks the dependency graph in topological order and
// constructs every reachable, not-yet-present service that was installed or
// is the target of a required edge. An identity reached only through
// optional edges and never installed stays absent. It is the single entry
// point callers invoke once after every InstallWithConfig/InstallDefault
// call has been made.
func (e *Engine) Materialize() error {
	order, err := e.graph.Toposort()
	if err != nil {
		return bherr.Wrap(bherr.Registration, "computing install order", err)
	}
	required := make(map[registry.Identity]bool)
	for _, entry := range e.constructors {
		for _, d := range entry.deps {
			if d.Required {
				required[d.ID] = true
			}
		}
	}
	for _, id := range order {
		if _, explicit := e.constructors[id]; !explicit && !required[id] {
			continue
		}
		if err := e.ensure(id); err != nil {
			return err
		}
	}
	return nil
}

// ensure materializes id if it is not already present. If id has no
// explicit constructor and is not default-constructible, it is treated as
// an optional dependency nobody installed and is silently skipped — the
// required/optional distinction is enforced at the point a constructor
// asks for a dependency (RequireDep), not here.
func (e *Engine) ensure(id registry.Identity) error {
	if e.reg.Contains(id) {
		return nil
	}
	entry, explicit := e.constructors[id]
	if !explicit {
		builder, ok := defaultBuilderFor(id)
		if !ok {
			return nil
		}
		instance, err := builder(e, id)
		if err != nil {
			return bherr.Wrap(bherr.Registration, fmt.Sprintf("default-constructing %s", id), err)
		}
		e.finish(id, instance)
		return nil
	}
	instance, err := entry.build(e)
	if err != nil {
		return bherr.Wrap(bherr.Registration, fmt.Sprintf("constructing %s", id), err)
	}
	e.finish(id, instance)
	return nil
}

func (e *Engine) finish(id registry.Identity, instance any) {
	for _, hook := range e.postInstall[id] {
		hook(instance)
	}
	e.reg.InsertAny(id, instance)
	e.logger.Debug().Str("identity", id.String()).Msg("materialized service")
}

// RequireDep resolves a required dependency of dependent: if id is not yet
// present it is materialized on demand (covers default-constructible
// dependencies that have no explicit Root edge of their own), and a
// DependencyError is returned naming dependent, id and id's required config
// kind if it cannot be constructed at all.
func RequireDep[T any](e *Engine, dependent, id registry.Identity) (*T, error) {
	if !e.reg.Contains(id) {
		if err := e.ensure(id); err != nil {
			return nil, err
		}
	}
	v, ok := registry.GetMut[T](e.reg, id)
	if !ok {
		kind := "an explicit config"
		if _, has := defaultBuilderFor(id); has {
			kind = "site config or unit (internal error: default builder present but construction failed)"
		}
		return nil, &DependencyError{Dependent: dependent, Missing: id, ConfigKind: kind}
	}
	return v, nil
}

// OptionalDep resolves an optional dependency of dependent without
// attempting default materialization: present only if something else
// already installed and constructed it.
func OptionalDep[T any](e *Engine, id registry.Identity) Slot[T] {
	v, ok := registry.GetMut[T](e.reg, id)
	return Slot[T]{Value: v, Present: ok}
}

// ResolveMany is the disjoint-many-mut primitive exposed to constructors
// and post-install hooks that need simultaneous mutable references to
// several already-materialized services, e.g. to register an application
// key into a shared proxy while also recording it on the owning service.
func (e *Engine) ResolveMany(ids []registry.Identity) ([]any, error) {
	return e.reg.DisjointManyMut(ids)
}
