package config

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// BasicAuthUser is a traefik-protected-path credential. The hash is always
// persisted; Password is kept only so an operator can retrieve the
// cleartext they were given once, at creation time.
type BasicAuthUser struct {
	Hash     string `toml:"hash"`
	Password string `toml:"password,omitempty"`
}

// NewBasicAuthUser bcrypt-hashes password at cost 12 and returns a record
// ready to persist.
func NewBasicAuthUser(password string) (BasicAuthUser, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), 12)
	if err != nil {
		return BasicAuthUser{}, err
	}
	return BasicAuthUser{Hash: string(hash), Password: password}, nil
}

// Verify reports whether password matches the stored hash.
func (u BasicAuthUser) Verify(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.Hash), []byte(password)) == nil
}

// LocalStore is the persisted companion document, config.local.toml. Oidc
// and BasicAuth are serialized (go-toml/v2 marshals map[string]V keys in
// sorted order, which is what gives the "ordered by key" diff stability the
// invariant asks for); Secrets is never written to config.local.toml — it
// is re-derived from Seed and each secret's (service, logical) name on every
// run and only ever flows into the .env file.
type LocalStore struct {
	Seed      uint32                   `toml:"seed"`
	CreatedAt time.Time                `toml:"created_at"`
	Oidc      map[string]string        `toml:"oidc"`
	BasicAuth map[string]BasicAuthUser `toml:"basic_auth"`

	Secrets map[string]string `toml:"-"`
}

// NewLocalStore synthesizes a fresh local store with a random seed, used
// when config.local.toml is missing or fails to parse.
func NewLocalStore(seed uint32, now time.Time) *LocalStore {
	return &LocalStore{
		Seed:      seed,
		CreatedAt: now,
		Oidc:      make(map[string]string),
		BasicAuth: make(map[string]BasicAuthUser),
		Secrets:   make(map[string]string),
	}
}

func (l *LocalStore) ensureMaps() {
	if l.Oidc == nil {
		l.Oidc = make(map[string]string)
	}
	if l.BasicAuth == nil {
		l.BasicAuth = make(map[string]BasicAuthUser)
	}
	if l.Secrets == nil {
		l.Secrets = make(map[string]string)
	}
}

// PutSecret records a minted secret's canonical name and value. Called by
// internal/secretmint; never persisted to config.local.toml, only to .env.
func (l *LocalStore) PutSecret(canonical, value string) {
	l.ensureMaps()
	l.Secrets[canonical] = value
}

// PutOidc records an OIDC key/value pair obtained from a secret-sync run.
func (l *LocalStore) PutOidc(key, value string) {
	l.ensureMaps()
	l.Oidc[key] = value
}

// PutBasicAuthUser registers (or overwrites) a basic-auth user record.
func (l *LocalStore) PutBasicAuthUser(name string, user BasicAuthUser) {
	l.ensureMaps()
	l.BasicAuth[name] = user
}
