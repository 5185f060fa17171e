package secretsync

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeLocalStore struct {
	oidc map[string]string
}

func (f *fakeLocalStore) PutOidc(key, value string) {
	if f.oidc == nil {
		f.oidc = make(map[string]string)
	}
	f.oidc[key] = value
}

func TestClientSecretDegradesToEmptyBeforeSync(t *testing.T) {
	s := New(ProcessConfig{}, &fakeLocalStore{}, nil)
	assert.Equal(t, "", s.ClientSecret("ccp"))
	assert.Equal(t, "", s.PublicClient("ccp"))
}

func TestClientSecretSeededFromPersistedStore(t *testing.T) {
	seed := map[string]string{"ccp_client_secret": "already-synced"}
	s := New(ProcessConfig{}, &fakeLocalStore{}, seed)
	assert.Equal(t, "already-synced", s.ClientSecret("ccp"))
}

func TestEncodeDefinitionsJoinsWithRecordSeparator(t *testing.T) {
	defs := []SecretDefinition{
		{Name: "ccp", Kind: "private", RedirectTo: []string{"https://a.example.org/cb"}},
		{Name: "ccp-public", Kind: "public", RedirectTo: []string{"https://a.example.org/cb", "https://example.org/cb"}},
	}
	encoded := EncodeDefinitions(defs)
	assert.Equal(t,
		"OIDC:ccp:private;https://a.example.org/cb\x1EOIDC:ccp-public:public;https://a.example.org/cb,https://example.org/cb",
		encoded)
}

func TestParseKeyValueLines(t *testing.T) {
	out := parseKeyValueLines("CCP_CLIENT_SECRET=\"abc123\"\n\nCCP_PUBLIC_CLIENT=\"xyz\"\n")
	assert.Equal(t, "abc123", out["CCP_CLIENT_SECRET"])
	assert.Equal(t, "xyz", out["CCP_PUBLIC_CLIENT"])
}

func TestRedirectURLsHostnameWithSubdomain(t *testing.T) {
	urls := RedirectURLs("bridgehead.samply.de", "/oidc/cb")
	assert.Equal(t, []string{
		"https://bridgehead.samply.de/oidc/cb",
		"https://samply.de/oidc/cb",
	}, urls)
}

func TestRedirectURLsBareHostname(t *testing.T) {
	urls := RedirectURLs("localhost", "/oidc/cb")
	assert.Equal(t, []string{"https://localhost/oidc/cb"}, urls)
}

func TestRedirectURLsIPv4(t *testing.T) {
	urls := RedirectURLs("192.0.2.10", "/oidc/cb")
	assert.Equal(t, []string{"https://192.0.2.10/oidc/cb"}, urls)
}

func TestRedirectURLsIPv6IsBracketed(t *testing.T) {
	urls := RedirectURLs("2001:db8::1", "/oidc/cb")
	assert.Equal(t, []string{"https://[2001:db8::1]/oidc/cb"}, urls)
}

func TestSyncIsMemoizedPerProvider(t *testing.T) {
	local := &fakeLocalStore{}
	s := New(ProcessConfig{ProxyBinary: "/bin/false", SyncBinary: "/bin/false"}, local, nil)
	assert.False(t, s.attempted["ccp"])
	s.Sync(context.Background(), "ccp", nil) // fails; logged and swallowed
	assert.True(t, s.attempted["ccp"])

	// Binaries that would now succeed and emit KEY=VALUE lines (env prints
	// the OIDC_PROVIDER etc. it was given) must not be run a second time.
	s.proc = ProcessConfig{ProxyBinary: "/bin/true", SyncBinary: "/usr/bin/env"}
	s.Sync(context.Background(), "ccp", nil)
	assert.Empty(t, local.oidc, "a second Sync for the same provider must not spawn the helpers again")
}
