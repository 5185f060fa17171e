package modules

import (
	"context"
	"fmt"

	"github.com/samply/bridgehead-go/internal/config"
	"github.com/samply/bridgehead-go/internal/engine"
	"github.com/samply/bridgehead-go/internal/logging"
	"github.com/samply/bridgehead-go/internal/registry"
	"github.com/samply/bridgehead-go/internal/services"
)

const bbmriBroker = "bbmri"
const bbmriBrokerURL = "https://broker.bbmri-eric.samply.de"

// bbmriModule installs the BBMRI broker stack, mirroring ccpModule, and
// conditionally adds a directory-sync service when the bbmri subsection
// opts in (`directory_sync = true`).
type bbmriModule struct{}

func (bbmriModule) Name() string { return "bbmri" }

func (bbmriModule) Enabled(cfg *config.SiteConfig) bool { return cfg.SubsystemEnabled("bbmri") }

func (bbmriModule) Install(e *engine.Engine, cfg *config.SiteConfig) {
	services.InstallBeamProxy(e, services.BeamProxyConfig{
		Broker:    bbmriBroker,
		BrokerURL: bbmriBrokerURL,
	})
	services.InstallBlaze(e, bbmriBroker)

	focusID := services.FocusIdentity(bbmriBroker)
	beamProxyID := services.BeamProxyIdentity(bbmriBroker)
	builder := services.InstallFocus(e, services.FocusConfig{Broker: bbmriBroker})
	builder.PostInstall(func(focus *services.Focus) {
		refs, err := e.ResolveMany([]registry.Identity{beamProxyID})
		if err != nil {
			logging.With(logging.ComponentModules).Err(err).Str("focus", focusID.String()).Msg("resolving bbmri beam-proxy")
			return
		}
		bp := refs[0].(*services.BeamProxy)
		placeholder := bp.RegisterAppKey("focus", e.Mint.Placeholder)
		focus.SetAppKey(placeholder)
		bp.EnsureOIDCSync(context.Background(), e.Site.Hostname, []string{"/bbmri/focus/oidc/callback"})
	})

	if directorySyncEnabled(cfg) {
		dsID := services.DirectorySyncIdentity(bbmriBroker)
		traefikID := services.TraefikIdentity()
		builder := services.InstallDirectorySync(e, services.DirectorySyncConfig{
			Broker:       bbmriBroker,
			DirectoryURL: stringField(cfg.BBMRI, "directory_url", "https://directory.bbmri-eric.eu"),
		})
		builder.PostInstall(func(ds *services.DirectorySync) {
			refs, err := e.ResolveMany([]registry.Identity{traefikID})
			if err != nil {
				logging.With(logging.ComponentModules).Err(err).Str("directory_sync", dsID.String()).Msg("resolving traefik for bbmri directory-sync")
				return
			}
			traefik := refs[0].(*services.Traefik)
			err = traefik.RegisterBasicAuth(bbmriBroker+"-directory-sync", ds.AdminPath(), func() (string, error) {
				return e.Mint.Generate(bbmriBroker+"-directory-sync", "admin"), nil
			})
			if err != nil {
				logging.With(logging.ComponentModules).Err(err).Msg("registering bbmri directory-sync basic auth")
			}
		})
	}
}

func directorySyncEnabled(cfg *config.SiteConfig) bool {
	v, ok := cfg.BBMRI["directory_sync"]
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

func stringField(m map[string]any, key, def string) string {
	v, ok := m[key]
	if !ok {
		return def
	}
	s, ok := v.(string)
	if !ok {
		return fmt.Sprintf("%v", v)
	}
	return s
}
