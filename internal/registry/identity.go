// Package registry is the typed service container: a map from a service's
// stable identity to its materialized field-bag instance, with a
// disjoint-many-mut primitive for the composition engine to pull several
// mutable references out of the same map in one call.
package registry

import "fmt"

// Identity is the stable, comparable key for one service instance. Two
// parameterizations of the same family (e.g. Focus<ccp> and Focus<bbmri>)
// are distinct identities: Family names the Go type, Params names the
// stable parameter binding.
type Identity struct {
	Family string
	Params string
}

func (id Identity) String() string {
	if id.Params == "" {
		return id.Family
	}
	return fmt.Sprintf("%s<%s>", id.Family, id.Params)
}

// Root is the synthetic identity the dependency graph is rooted at. It is
// never installed or materialized.
var Root = Identity{Family: "__root__"}
