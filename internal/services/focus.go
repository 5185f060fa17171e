package services

import (
	"fmt"

	"github.com/samply/bridgehead-go/internal/engine"
)

// FocusConfig is Focus's explicit, non-default config: which broker network
// it queries through. Its Blaze backend is the one bound to the same
// broker. Two Focus
// identities with different broker bindings (CCP vs BBMRI) are distinct
// engine identities even though they share this Go type.
type FocusConfig struct {
	Broker string
}

// Focus is the query-executor service, parameterized by (broker, backend).
// Its application key lives in the shared BeamProxy for its broker; the
// key is registered after construction (SetAppKey) by the owning module's
// PostInstall hook, which receives the Focus itself and resolves its
// BeamProxy via engine.Engine.ResolveMany, the primitive for registering a
// dependent's requirement into a shared dependency it doesn't otherwise own.
type Focus struct {
	name      string
	broker    string
	version   string
	blazeName string
	appKey    string
}

// InstallFocus records the constructor for broker's Focus instance. Backend
// (Blaze) and the shared BeamProxy are required dependencies; ForwardProxy
// is required transitively through BeamProxy but Focus also talks directly
// to the outbound proxy for its own queries, so it is declared here too.
func InstallFocus(e *engine.Engine, cfg FocusConfig) *engine.Builder[Focus] {
	id := FocusIdentity(cfg.Broker)
	deps := []engine.DepEdge{
		engine.Required(BlazeIdentity(cfg.Broker)),
		engine.Required(BeamProxyIdentity(cfg.Broker)),
		engine.Required(ForwardProxyIdentity()),
	}
	return engine.InstallWithConfig(e, id, deps, func(e *engine.Engine) (*Focus, error) {
		blaze, err := engine.RequireDep[Blaze](e, id, BlazeIdentity(cfg.Broker))
		if err != nil {
			return nil, err
		}
		if _, err := engine.RequireDep[ForwardProxy](e, id, ForwardProxyIdentity()); err != nil {
			return nil, err
		}
		return &Focus{
			name:      cfg.Broker + "-focus",
			broker:    cfg.Broker,
			version:   e.Site.Version,
			blazeName: blaze.ServiceName(),
		}, nil
	})
}

// SetAppKey records the ${PLACEHOLDER} minted for this Focus's entry in its
// broker's shared beam proxy.
func (f *Focus) SetAppKey(placeholder string) { f.appKey = placeholder }

func (f *Focus) ServiceName() string { return f.name }

func (f *Focus) Render() (string, error) {
	return renderFragment(f.name, ComposeService{
		Image:    fmt.Sprintf("samply/focus:%s", f.version),
		Restart:  "unless-stopped",
		Networks: []string{"bridgehead"},
		Environment: map[string]string{
			"BEAM_APP_ID": f.broker + ".focus",
			"APP_KEY":     f.appKey,
			"BLAZE_URL":   "http://" + f.blazeName + ":8080/fhir",
		},
		DependsOn: []string{f.blazeName, f.broker + "-beam-proxy"},
	})
}
