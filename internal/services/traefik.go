package services

import (
	"fmt"
	"sort"

	"github.com/samply/bridgehead-go/internal/config"
	"github.com/samply/bridgehead-go/internal/engine"
	"github.com/samply/bridgehead-go/internal/registry"
)

// Traefik is the reverse-proxy edge service. It owns the basic-auth user
// registry: dependents that want a path protected call RegisterBasicAuth
// from a post-install hook, which both records the user in the local store
// and remembers the path/user pairing for its own template.
type Traefik struct {
	name     string
	version  string
	local    *config.LocalStore
	protects []protectedPath
}

type protectedPath struct {
	path string
	user string
}

func init() {
	engine.RegisterDefaultBuilder(TraefikIdentity().Family, func(e *engine.Engine, id registry.Identity) (any, error) {
		return newTraefik(e), nil
	})
}

// InstallTraefik registers the explicit constructor for the edge module.
func InstallTraefik(e *engine.Engine) *engine.Builder[Traefik] {
	deps := []engine.DepEdge{engine.Required(ForwardProxyIdentity())}
	return engine.InstallDefault(e, TraefikIdentity(), deps, func(e *engine.Engine) (*Traefik, error) {
		if _, err := engine.RequireDep[ForwardProxy](e, TraefikIdentity(), ForwardProxyIdentity()); err != nil {
			return nil, err
		}
		return newTraefik(e), nil
	})
}

func newTraefik(e *engine.Engine) *Traefik {
	return &Traefik{name: "traefik", version: e.Site.Version, local: e.Local}
}

func (f *Traefik) ServiceName() string { return f.name }

// RegisterBasicAuth protects path with a basic-auth user named user,
// minting a password via mint if user does not already exist in the local
// store so repeated runs don't rotate the credential. Intended to be called
// from a dependent's PostInstall hook via engine.ResolveMany.
func (t *Traefik) RegisterBasicAuth(user, path string, mint func() (string, error)) error {
	if _, ok := t.local.BasicAuth[user]; !ok {
		pw, err := mint()
		if err != nil {
			return fmt.Errorf("generating password for %s: %w", user, err)
		}
		au, err := config.NewBasicAuthUser(pw)
		if err != nil {
			return fmt.Errorf("hashing password for %s: %w", user, err)
		}
		t.local.PutBasicAuthUser(user, au)
	}
	t.protects = append(t.protects, protectedPath{path: path, user: user})
	return nil
}

func (t *Traefik) Render() (string, error) {
	sort.Slice(t.protects, func(i, j int) bool { return t.protects[i].path < t.protects[j].path })
	labels := map[string]string{}
	for _, p := range t.protects {
		labels[fmt.Sprintf("traefik.http.routers.%s.rule", p.user)] = fmt.Sprintf("PathPrefix(`%s`)", p.path)
		labels[fmt.Sprintf("traefik.http.middlewares.%s-auth.basicauth.users", p.user)] = "${" + fmt.Sprintf("TRAEFIK_%s_HTPASSWD", p.user) + "}"
	}
	return renderFragment(t.name, ComposeService{
		Image:    fmt.Sprintf("traefik:%s", t.version),
		Restart:  "unless-stopped",
		Networks: []string{"bridgehead"},
		Labels:   labels,
	})
}
