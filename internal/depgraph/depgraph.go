// Package depgraph records required/optional edges between service
// identities and yields a topological order rooted at a synthetic root.
// Edges do not distinguish required from optional here — that distinction
// is applied by internal/engine at materialization time.
package depgraph

import (
	"fmt"

	"github.com/samply/bridgehead-go/internal/registry"
)

// Graph is an adjacency list over service identities.
type Graph struct {
	children map[registry.Identity][]registry.Identity
}

// New returns an empty Graph.
func New() *Graph {
	return &Graph{children: make(map[registry.Identity][]registry.Identity)}
}

// Register adds a single parent -> child edge.
func (g *Graph) Register(parent, child registry.Identity) {
	g.children[parent] = append(g.children[parent], child)
}

// RegisterMany adds an edge from parent to each of children.
func (g *Graph) RegisterMany(parent registry.Identity, children []registry.Identity) {
	for _, c := range children {
		g.Register(parent, c)
	}
}

type color int

const (
	white color = iota
	grey
	black
)

// Toposort returns every transitive child of registry.Root exactly once, in
// an order where a node always appears before every node that depends on it
// (i.e. dependencies are ready to be visited before their dependents need
// them). A cycle is a fatal error
// naming the identity where the back-edge was found.
func (g *Graph) Toposort() ([]registry.Identity, error) {
	colors := make(map[registry.Identity]color)
	var order []registry.Identity

	var visit func(id registry.Identity) error
	visit = func(id registry.Identity) error {
		switch colors[id] {
		case black:
			return nil
		case grey:
			return fmt.Errorf("depgraph: cycle detected at %s", id)
		}
		colors[id] = grey
		for _, child := range g.children[id] {
			if err := visit(child); err != nil {
				return err
			}
		}
		colors[id] = black
		if id != registry.Root {
			order = append(order, id)
		}
		return nil
	}

	if err := visit(registry.Root); err != nil {
		return nil, err
	}
	return order, nil
}
