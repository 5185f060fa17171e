package modules

import (
	"github.com/samply/bridgehead-go/internal/config"
	"github.com/samply/bridgehead-go/internal/engine"
	"github.com/samply/bridgehead-go/internal/services"
)

// edgeModule always installs the two services every bridgehead runs
// regardless of which research networks are enabled: the shared outbound
// forward-proxy and the traefik edge. Both are also default-constructible
// (internal/services registers default builders for them), so installing
// them explicitly here is belt-and-suspenders — it guarantees their service
// names appear even before any broker module's dependency edges would pull
// them in on demand.
type edgeModule struct{}

func (edgeModule) Name() string { return "edge" }

func (edgeModule) Enabled(cfg *config.SiteConfig) bool { return true }

func (edgeModule) Install(e *engine.Engine, cfg *config.SiteConfig) {
	services.InstallForwardProxy(e)
	services.InstallTraefik(e)
}
