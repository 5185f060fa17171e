package services

import (
	"fmt"

	"github.com/samply/bridgehead-go/internal/engine"
	"github.com/samply/bridgehead-go/internal/registry"
)

// Blaze is the FHIR data-store backend, one instance per broker network.
// It needs nothing beyond the site config and which broker it is for (its
// own identity's Params), so it is default-constructible: a Focus that
// requires a Blaze nobody explicitly installed still gets one.
type Blaze struct {
	name    string
	broker  string
	version string
}

func init() {
	engine.RegisterDefaultBuilder(BlazeIdentity("").Family, func(e *engine.Engine, id registry.Identity) (any, error) {
		return newBlaze(e, id.Params), nil
	})
}

// InstallBlaze registers the explicit constructor for broker.
func InstallBlaze(e *engine.Engine, broker string) *engine.Builder[Blaze] {
	id := BlazeIdentity(broker)
	return engine.InstallDefault(e, id, nil, func(e *engine.Engine) (*Blaze, error) {
		return newBlaze(e, broker), nil
	})
}

func newBlaze(e *engine.Engine, broker string) *Blaze {
	return &Blaze{name: broker + "-blaze", broker: broker, version: e.Site.Version}
}

func (b *Blaze) ServiceName() string { return b.name }

func (b *Blaze) Render() (string, error) {
	return renderFragment(b.name, ComposeService{
		Image:    fmt.Sprintf("samply/blaze:%s", b.version),
		Restart:  "unless-stopped",
		Networks: []string{"bridgehead"},
		Environment: map[string]string{
			"STORAGE": "standalone",
		},
	})
}
