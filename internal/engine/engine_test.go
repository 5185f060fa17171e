package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samply/bridgehead-go/internal/config"
	"github.com/samply/bridgehead-go/internal/registry"
)

func newTestEngine() *Engine {
	site := &config.SiteConfig{SiteID: "teststandort", Hostname: "bridgehead.example.org"}
	local := config.NewLocalStore(42, time.Now())
	return New(site, local, nil)
}

type forwardProxy struct{ name string }
type focus struct {
	broker string
	proxy  *forwardProxy
}

var forwardProxyID = registry.Identity{Family: "ForwardProxy"}
var focusCCPID = registry.Identity{Family: "Focus", Params: "ccp"}

func TestMaterializeConstructsInDependencyOrder(t *testing.T) {
	e := newTestEngine()
	InstallWithConfig(e, forwardProxyID, nil, func(e *Engine) (*forwardProxy, error) {
		return &forwardProxy{name: "fp"}, nil
	})
	InstallWithConfig(e, focusCCPID, []DepEdge{Required(forwardProxyID)}, func(e *Engine) (*focus, error) {
		p, err := RequireDep[forwardProxy](e, focusCCPID, forwardProxyID)
		if err != nil {
			return nil, err
		}
		return &focus{broker: "ccp", proxy: p}, nil
	})

	require.NoError(t, e.Materialize())

	f, ok := registry.GetMut[focus](e.Registry(), focusCCPID)
	require.True(t, ok)
	assert.Equal(t, "fp", f.proxy.name)
}

func TestMissingRequiredDependencyErrors(t *testing.T) {
	e := newTestEngine()
	InstallWithConfig(e, focusCCPID, []DepEdge{Required(forwardProxyID)}, func(e *Engine) (*focus, error) {
		_, err := RequireDep[forwardProxy](e, focusCCPID, forwardProxyID)
		return nil, err
	})

	err := e.Materialize()
	require.Error(t, err)
}

func TestOptionalDependencyAbsentIsNotAnError(t *testing.T) {
	e := newTestEngine()
	exporterID := registry.Identity{Family: "Exporter"}
	InstallWithConfig(e, focusCCPID, []DepEdge{Optional(exporterID)}, func(e *Engine) (*focus, error) {
		slot := OptionalDep[forwardProxy](e, exporterID)
		assert.False(t, slot.Present)
		return &focus{broker: "ccp"}, nil
	})

	require.NoError(t, e.Materialize())
	_, ok := registry.GetMut[focus](e.Registry(), focusCCPID)
	assert.True(t, ok)
}

func TestPostInstallHooksRunInFIFOOrderAndAccumulateAcrossReinstall(t *testing.T) {
	e := newTestEngine()
	var calls []string

	b := InstallWithConfig(e, forwardProxyID, nil, func(e *Engine) (*forwardProxy, error) {
		return &forwardProxy{name: "fp"}, nil
	})
	b.PostInstall(func(p *forwardProxy) { calls = append(calls, "first") })

	// Re-install the same identity: constructor/config replaced, but the
	// already-queued hook above must still run, and a second hook added to
	// the new builder appends after it.
	b2 := InstallWithConfig(e, forwardProxyID, nil, func(e *Engine) (*forwardProxy, error) {
		return &forwardProxy{name: "fp2"}, nil
	})
	b2.PostInstall(func(p *forwardProxy) { calls = append(calls, "second") })

	require.NoError(t, e.Materialize())
	assert.Equal(t, []string{"first", "second"}, calls)

	p, ok := registry.GetMut[forwardProxy](e.Registry(), forwardProxyID)
	require.True(t, ok)
	assert.Equal(t, "fp2", p.name, "last-write-wins on the constructor")
}

func TestResolveManyReturnsLiveReferences(t *testing.T) {
	e := newTestEngine()
	idA := registry.Identity{Family: "A"}
	idB := registry.Identity{Family: "B"}
	InstallWithConfig(e, idA, nil, func(e *Engine) (*forwardProxy, error) { return &forwardProxy{name: "a"}, nil })
	InstallWithConfig(e, idB, nil, func(e *Engine) (*forwardProxy, error) { return &forwardProxy{name: "b"}, nil })

	require.NoError(t, e.Materialize())

	refs, err := e.ResolveMany([]registry.Identity{idA, idB})
	require.NoError(t, err)
	require.Len(t, refs, 2)
	refs[0].(*forwardProxy).name = "a2"

	a, _ := registry.GetMut[forwardProxy](e.Registry(), idA)
	assert.Equal(t, "a2", a.name)
}

func TestDefaultConstructibleDependencyIsBuiltWithoutExplicitInstall(t *testing.T) {
	e := newTestEngine()
	traefikID := registry.Identity{Family: "testTraefik"}
	RegisterDefaultBuilder("testTraefik", func(e *Engine, id registry.Identity) (any, error) {
		return &forwardProxy{name: "default-traefik"}, nil
	})

	InstallWithConfig(e, focusCCPID, []DepEdge{Required(traefikID)}, func(e *Engine) (*focus, error) {
		p, err := RequireDep[forwardProxy](e, focusCCPID, traefikID)
		if err != nil {
			return nil, err
		}
		return &focus{proxy: p}, nil
	})

	require.NoError(t, e.Materialize())
	f, ok := registry.GetMut[focus](e.Registry(), focusCCPID)
	require.True(t, ok)
	assert.Equal(t, "default-traefik", f.proxy.name)
}
