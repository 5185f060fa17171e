package render

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samply/bridgehead-go/internal/config"
	"github.com/samply/bridgehead-go/internal/engine"
	"github.com/samply/bridgehead-go/internal/registry"
)

type fakeService struct{ name, body string }

func (f *fakeService) ServiceName() string     { return f.name }
func (f *fakeService) Render() (string, error) { return f.body, nil }

func newTestStore(t *testing.T) *config.Store {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(`
site_id = "teststandort"
hostname = "bridgehead.example.org"
`), 0o644))
	store, err := config.Load(dir)
	require.NoError(t, err)
	return store
}

func TestWriteProducesOneManifestPerService(t *testing.T) {
	store := newTestStore(t)
	e := engine.New(store.Site, store.Local, nil)
	engine.InstallWithConfig(e, registry.Identity{Family: "A"}, nil, func(e *engine.Engine) (*fakeService, error) {
		return &fakeService{name: "svc-a", body: "services:\n  svc-a:\n    image: a\n"}, nil
	})
	engine.InstallWithConfig(e, registry.Identity{Family: "B"}, nil, func(e *engine.Engine) (*fakeService, error) {
		return &fakeService{name: "svc-b", body: "services:\n  svc-b:\n    image: b\n"}, nil
	})
	require.NoError(t, e.Materialize())

	require.NoError(t, Write(context.Background(), e, store, OrchestratorConfig{}))

	for _, name := range []string{"svc-a", "svc-b"} {
		data, err := os.ReadFile(filepath.Join(store.ServicesDir(), name+".yml"))
		require.NoError(t, err)
		assert.Contains(t, string(data), name)
	}

	_, err := os.Stat(store.LauncherPath())
	require.NoError(t, err)
	info, err := os.Stat(store.LauncherPath())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())

	_, err = os.Stat(filepath.Join(store.Dir, ".gitignore"))
	require.NoError(t, err)
	_, err = os.Stat(store.EnvPath())
	require.NoError(t, err)
}

func TestWriteRejectsDuplicateServiceNames(t *testing.T) {
	store := newTestStore(t)
	e := engine.New(store.Site, store.Local, nil)
	engine.InstallWithConfig(e, registry.Identity{Family: "A"}, nil, func(e *engine.Engine) (*fakeService, error) {
		return &fakeService{name: "dup", body: "x"}, nil
	})
	engine.InstallWithConfig(e, registry.Identity{Family: "B"}, nil, func(e *engine.Engine) (*fakeService, error) {
		return &fakeService{name: "dup", body: "y"}, nil
	})
	require.NoError(t, e.Materialize())

	err := Write(context.Background(), e, store, OrchestratorConfig{})
	require.Error(t, err)
}

func TestWriteIsIdempotentByteForByte(t *testing.T) {
	store := newTestStore(t)
	build := func() *engine.Engine {
		e := engine.New(store.Site, store.Local, nil)
		engine.InstallWithConfig(e, registry.Identity{Family: "A"}, nil, func(e *engine.Engine) (*fakeService, error) {
			return &fakeService{name: "svc-a", body: "services:\n  svc-a:\n    image: a\n"}, nil
		})
		require.NoError(t, e.Materialize())
		return e
	}

	require.NoError(t, Write(context.Background(), build(), store, OrchestratorConfig{}))
	first, err := os.ReadFile(filepath.Join(store.ServicesDir(), "svc-a.yml"))
	require.NoError(t, err)

	require.NoError(t, Write(context.Background(), build(), store, OrchestratorConfig{}))
	second, err := os.ReadFile(filepath.Join(store.ServicesDir(), "svc-a.yml"))
	require.NoError(t, err)

	assert.Equal(t, first, second)
}
