// Package modules translates declarative site-config subsystem subsections
// into composition-engine registrations. A module is a stateless policy:
// given the site config it decides whether it applies and, if so, which
// services to install and how to wire them together. The module list is
// static and deterministic; modules.All is applied in declaration order by
// internal/render's caller.
package modules

import (
	"github.com/samply/bridgehead-go/internal/config"
	"github.com/samply/bridgehead-go/internal/engine"
)

// Module is one subsystem's installation policy.
type Module interface {
	// Name identifies the module for logging.
	Name() string
	// Enabled reports whether this module's subsystem subsection is
	// present in the declared site config.
	Enabled(cfg *config.SiteConfig) bool
	// Install performs zero or more engine registrations.
	Install(e *engine.Engine, cfg *config.SiteConfig)
}

// All is the static, ordered list of every known module. Edge runs first so
// the shared forward-proxy/traefik identities exist before any broker
// module's post-install hooks might want to reach into them.
var All = []Module{
	edgeModule{},
	ccpModule{},
	bbmriModule{},
	dnpmModule{},
}

// Apply runs every enabled module against e in declaration order, then
// materializes the resulting graph.
func Apply(e *engine.Engine, cfg *config.SiteConfig) error {
	for _, m := range All {
		if m.Enabled(cfg) {
			m.Install(e, cfg)
		}
	}
	return e.Materialize()
}
