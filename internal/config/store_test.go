package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
}

func TestLoadRejectsNonAbsolutePath(t *testing.T) {
	_, err := Load("relative/path")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "relative/path")
}

func TestLoadRejectsUnknownField(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "config.toml"), `
site_id = "teststandort"
hostname = "bridgehead.example.org"
not_a_real_field = true
`)
	_, err := Load(dir)
	require.Error(t, err)
}

func TestMissingLocalConfigCreatesFreshSeededStore(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "config.toml"), `
site_id = "teststandort"
hostname = "bridgehead.example.org"
`)
	store, err := Load(dir)
	require.NoError(t, err)
	assert.NotEmpty(t, store.Local.Seed)
	assert.Equal(t, EnvProduction, store.Site.Environment)
	assert.Equal(t, "latest", store.Site.Version)
}

func TestPersistRoundTrip(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "config.toml"), `
site_id = "teststandort"
hostname = "bridgehead.example.org"

[ccp]
`)
	store, err := Load(dir)
	require.NoError(t, err)

	au, err := NewBasicAuthUser("s3cret")
	require.NoError(t, err)
	store.Local.PutBasicAuthUser("grafana", au)
	store.Local.PutOidc("ccp_public_client", "abc123")
	store.Local.PutSecret("CCP_BEAM_PROXY_FOCUS_KEY", "xyz")

	require.NoError(t, store.Persist())

	reloaded, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, store.Local.Seed, reloaded.Local.Seed)
	assert.Equal(t, "abc123", reloaded.Local.Oidc["ccp_public_client"])
	require.Contains(t, reloaded.Local.BasicAuth, "grafana")
	assert.True(t, reloaded.Local.BasicAuth["grafana"].Verify("s3cret"))
	// Secrets are re-derived every run, never round-tripped through
	// config.local.toml.
	assert.Empty(t, reloaded.Local.Secrets)

	envContents, err := os.ReadFile(store.EnvPath())
	require.NoError(t, err)
	assert.Contains(t, string(envContents), `CCP_BEAM_PROXY_FOCUS_KEY="xyz"`)
	assert.Contains(t, string(envContents), `OIDC_CCP_PUBLIC_CLIENT="abc123"`)
}

func TestSubsystemEnabled(t *testing.T) {
	cfg := &SiteConfig{CCP: map[string]any{}, BBMRI: nil}
	assert.True(t, cfg.SubsystemEnabled("ccp"))
	assert.False(t, cfg.SubsystemEnabled("bbmri"))
	assert.False(t, cfg.SubsystemEnabled("unknown"))
}

func TestRemoteSyncEnabledDefersToHasRemoteWhenUnset(t *testing.T) {
	cfg := &SiteConfig{}
	assert.True(t, cfg.RemoteSyncEnabled(func() bool { return true }))
	assert.False(t, cfg.RemoteSyncEnabled(func() bool { return false }))

	enabled := true
	cfg.GitSync = &enabled
	assert.True(t, cfg.RemoteSyncEnabled(func() bool { return false }))
}
