package secretmint

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	secrets map[string]string
}

func newFakeStore() *fakeStore { return &fakeStore{secrets: map[string]string{}} }

func (f *fakeStore) PutSecret(canonical, value string) { f.secrets[canonical] = value }

func TestCanonicalize(t *testing.T) {
	assert.Equal(t, "CCP_BEAM_PROXY_FOCUS_KEY", Canonicalize("ccp-beam-proxy", "focus-key"))
}

func TestPlaceholderIsDeterministic(t *testing.T) {
	store1 := newFakeStore()
	mint1 := New(42, store1)
	ph1 := mint1.Placeholder("ccp-focus", "beam-secret")

	store2 := newFakeStore()
	mint2 := New(42, store2)
	ph2 := mint2.Placeholder("ccp-focus", "beam-secret")

	require.Equal(t, ph1, ph2)
	assert.Equal(t, store1.secrets, store2.secrets)
}

func TestPlaceholderDiffersByServiceOrLogical(t *testing.T) {
	store := newFakeStore()
	mint := New(42, store)
	mint.Placeholder("ccp-focus", "beam-secret")
	mint.Placeholder("bbmri-focus", "beam-secret")
	mint.Placeholder("ccp-focus", "other-secret")

	assert.Len(t, store.secrets, 3)
	values := map[string]bool{}
	for _, v := range store.secrets {
		values[v] = true
	}
	assert.Len(t, values, 3, "distinct (service, logical) pairs must mint distinct values")
}

func TestPlaceholderDiffersBySeed(t *testing.T) {
	storeA := newFakeStore()
	New(1, storeA).Placeholder("ccp-focus", "beam-secret")

	storeB := newFakeStore()
	New(2, storeB).Placeholder("ccp-focus", "beam-secret")

	var a, b string
	for _, v := range storeA.secrets {
		a = v
	}
	for _, v := range storeB.secrets {
		b = v
	}
	assert.NotEqual(t, a, b)
}

func TestSecretMatchesAlphabetAndLength(t *testing.T) {
	store := newFakeStore()
	mint := New(7, store)
	mint.Placeholder("ccp-beam-proxy", "focus-key")

	valid := regexp.MustCompile(`^[A-Za-z0-9)(*&^%#@!~]+$`)
	for canonical, v := range store.secrets {
		assert.Len(t, v, defaultLength, "secret for %s", canonical)
		assert.Regexp(t, valid, v)
	}
}

func TestEnvKeyShape(t *testing.T) {
	store := newFakeStore()
	mint := New(1, store)
	mint.Placeholder("ccp-beam-proxy", "focus-key")

	envKeyShape := regexp.MustCompile(`^[A-Z0-9_]+$`)
	for canonical := range store.secrets {
		assert.Regexp(t, envKeyShape, canonical)
	}
}
