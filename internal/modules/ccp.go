package modules

import (
	"context"

	"github.com/samply/bridgehead-go/internal/config"
	"github.com/samply/bridgehead-go/internal/engine"
	"github.com/samply/bridgehead-go/internal/logging"
	"github.com/samply/bridgehead-go/internal/registry"
	"github.com/samply/bridgehead-go/internal/services"
)

const ccpBroker = "ccp"
const ccpBrokerURL = "https://broker.ccp.samply.de"

// ccpModule installs the DKTK/CCP broker stack: a dedicated beam-proxy, a
// Blaze backing store, and a Focus query executor wired to both. Focus's
// PostInstall hook registers its application key into the shared beam-proxy
// — a dependent reaching back into a shared dependency it needs a mutable
// reference into — and kicks off the beam-proxy's OIDC sync.
type ccpModule struct{}

func (ccpModule) Name() string { return "ccp" }

func (ccpModule) Enabled(cfg *config.SiteConfig) bool { return cfg.SubsystemEnabled("ccp") }

func (ccpModule) Install(e *engine.Engine, cfg *config.SiteConfig) {
	services.InstallBeamProxy(e, services.BeamProxyConfig{
		Broker:    ccpBroker,
		BrokerURL: ccpBrokerURL,
	})
	services.InstallBlaze(e, ccpBroker)

	focusID := services.FocusIdentity(ccpBroker)
	beamProxyID := services.BeamProxyIdentity(ccpBroker)
	builder := services.InstallFocus(e, services.FocusConfig{Broker: ccpBroker})
	builder.PostInstall(func(focus *services.Focus) {
		refs, err := e.ResolveMany([]registry.Identity{beamProxyID})
		if err != nil {
			logging.With(logging.ComponentModules).Err(err).Str("focus", focusID.String()).Msg("resolving ccp beam-proxy")
			return
		}
		bp := refs[0].(*services.BeamProxy)
		placeholder := bp.RegisterAppKey("focus", e.Mint.Placeholder)
		focus.SetAppKey(placeholder)
		bp.EnsureOIDCSync(context.Background(), e.Site.Hostname, []string{"/ccp/focus/oidc/callback"})
	})
}
