package services

import (
	"fmt"

	"github.com/samply/bridgehead-go/internal/engine"
	"github.com/samply/bridgehead-go/internal/registry"
)

// ForwardProxy is the outbound-traffic proxy shared by every other
// installed service. It has no dependencies of its own and is
// default-constructible from the site config alone, so any service that
// requires it gets one even if no module explicitly installed it first.
type ForwardProxy struct {
	name       string
	httpsProxy string
	noProxy    []string
	version    string
}

func init() {
	engine.RegisterDefaultBuilder(ForwardProxyIdentity().Family, func(e *engine.Engine, id registry.Identity) (any, error) {
		return newForwardProxy(e), nil
	})
}

// InstallForwardProxy registers the explicit constructor. Modules call this
// so the forward proxy is installed even before any dependent needs it
// (e.g. to guarantee scenario 1's "forward-proxy" appears even if a future
// module graph changes which service first requires it).
func InstallForwardProxy(e *engine.Engine) *engine.Builder[ForwardProxy] {
	return engine.InstallDefault(e, ForwardProxyIdentity(), nil, func(e *engine.Engine) (*ForwardProxy, error) {
		return newForwardProxy(e), nil
	})
}

func newForwardProxy(e *engine.Engine) *ForwardProxy {
	return &ForwardProxy{
		name:       "forward-proxy",
		httpsProxy: e.Site.HTTPSProxy,
		noProxy:    e.Site.NoProxy,
		version:    e.Site.Version,
	}
}

func (f *ForwardProxy) ServiceName() string { return f.name }

func (f *ForwardProxy) Render() (string, error) {
	env := map[string]string{}
	if f.httpsProxy != "" {
		env["HTTPS_PROXY"] = f.httpsProxy
		env["ALL_PROXY"] = f.httpsProxy
	}
	if len(f.noProxy) > 0 {
		noProxy := ""
		for i, h := range f.noProxy {
			if i > 0 {
				noProxy += ","
			}
			noProxy += h
		}
		env["NO_PROXY"] = noProxy
	}
	return renderFragment(f.name, ComposeService{
		Image:       fmt.Sprintf("samply/forward-proxy:%s", f.version),
		Restart:     "unless-stopped",
		Environment: env,
	})
}
