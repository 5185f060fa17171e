package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/samply/bridgehead-go/internal/engine"
	"github.com/samply/bridgehead-go/internal/secretsync"
)

// BeamProxyConfig is the explicit, non-default config a BeamProxy needs:
// which broker it connects to and at which URL.
// Not default-constructible — a module must supply the broker URL, which
// is known per-network, not derivable from the generic site config alone.
type BeamProxyConfig struct {
	Broker       string
	BrokerURL    string
	RootCertPath string
}

// BeamProxy is the shared per-broker message-routing proxy. Dependents
// (Focus) register an application key into it via RegisterAppKey from a
// PostInstall hook.
type BeamProxy struct {
	name    string
	cfg     BeamProxyConfig
	appKeys map[string]string
	sync    *secretsync.Syncer
}

// InstallBeamProxy records the constructor for cfg.Broker's beam proxy.
func InstallBeamProxy(e *engine.Engine, cfg BeamProxyConfig) *engine.Builder[BeamProxy] {
	id := BeamProxyIdentity(cfg.Broker)
	deps := []engine.DepEdge{engine.Required(ForwardProxyIdentity())}
	return engine.InstallWithConfig(e, id, deps, func(e *engine.Engine) (*BeamProxy, error) {
		if _, err := engine.RequireDep[ForwardProxy](e, id, ForwardProxyIdentity()); err != nil {
			return nil, err
		}
		bp := &BeamProxy{name: cfg.Broker + "-beam-proxy", cfg: cfg, appKeys: map[string]string{}, sync: e.Sync}
		return bp, nil
	})
}

// RegisterAppKey mints (or recalls) an application key for appName behind
// this proxy and records it so the proxy's own template can authorize it.
// Returns the ${PLACEHOLDER} to embed in the dependent's own manifest.
func (b *BeamProxy) RegisterAppKey(appName string, mint func(service, logical string) string) string {
	placeholder := mint(b.name, appName+"_key")
	b.appKeys[appName] = placeholder
	return placeholder
}

// EnsureOIDCSync triggers (at most once per process) the OIDC credential
// exchange for this proxy's broker, covering redirectPaths on the site
// hostname. Non-fatal on failure: a pre-enrolment site can still generate
// its bundle, just without a working OIDC client secret yet.
func (b *BeamProxy) EnsureOIDCSync(ctx context.Context, hostname string, redirectPaths []string) {
	if b.sync == nil {
		return
	}
	defs := []secretsync.SecretDefinition{
		{Name: b.cfg.Broker, Kind: "public"},
		{Name: b.cfg.Broker, Kind: "private"},
	}
	for i := range defs {
		var urls []string
		for _, p := range redirectPaths {
			urls = append(urls, secretsync.RedirectURLs(hostname, p)...)
		}
		defs[i].RedirectTo = urls
	}
	b.sync.Sync(ctx, b.cfg.Broker, defs)
}

// ClientSecret returns the private OIDC client secret synced for this
// proxy's broker, or "" pre-enrolment (see internal/secretsync).
func (b *BeamProxy) ClientSecret() string {
	if b.sync == nil {
		return ""
	}
	return b.sync.ClientSecret(b.cfg.Broker)
}

func (b *BeamProxy) ServiceName() string { return b.name }

func (b *BeamProxy) Render() (string, error) {
	names := make([]string, 0, len(b.appKeys))
	for n := range b.appKeys {
		names = append(names, n)
	}
	sort.Strings(names)
	env := map[string]string{
		"BROKER_URL": b.cfg.BrokerURL,
		"PROXY_ID":   b.cfg.Broker,
	}
	for _, n := range names {
		env[fmt.Sprintf("APP_%s_KEY", n)] = b.appKeys[n]
	}
	return renderFragment(b.name, ComposeService{
		Image:       "samply/beam-proxy:latest",
		Restart:     "unless-stopped",
		Networks:    []string{"bridgehead"},
		Environment: env,
	})
}
