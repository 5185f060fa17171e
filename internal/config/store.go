package config

import (
	"bytes"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/samply/bridgehead-go/internal/bherr"
	"github.com/samply/bridgehead-go/internal/logging"
)

// Store owns the on-disk configuration directory: the declared config, the
// mutable local store, and every path derived from the directory root.
type Store struct {
	Dir   string
	Site  *SiteConfig
	Local *LocalStore
}

// Load reads config.toml and config.local.toml from dir. dir must be an
// absolute path; Load fails otherwise. A missing or unparsable
// config.local.toml is replaced with a freshly seeded default and a warning
// is logged, never an error.
func Load(dir string) (*Store, error) {
	if !filepath.IsAbs(dir) {
		return nil, bherr.Wrap(bherr.ConfigLoad, fmt.Sprintf("config path %q is not absolute", dir), fmt.Errorf("absolute path required"))
	}

	site, err := loadSiteConfig(filepath.Join(dir, "config.toml"))
	if err != nil {
		return nil, bherr.Wrap(bherr.ConfigLoad, "loading config.toml", err)
	}
	site.applyDefaults()

	local := loadOrCreateLocalStore(filepath.Join(dir, "config.local.toml"))

	return &Store{Dir: dir, Site: site, Local: local}, nil
}

// Reload re-reads config.toml and config.local.toml in place, used by the
// git diff tracker's needs-reload path after a pull advances HEAD.
func (s *Store) Reload() error {
	fresh, err := Load(s.Dir)
	if err != nil {
		return err
	}
	s.Site = fresh.Site
	// Carry forward the in-memory store: a reload must not drop secrets
	// minted, or OIDC credentials synced, earlier in this same run.
	fresh.Local.Secrets = s.Local.Secrets
	for k, v := range s.Local.Oidc {
		if _, ok := fresh.Local.Oidc[k]; !ok {
			fresh.Local.Oidc[k] = v
		}
	}
	s.Local = fresh.Local
	return nil
}

func loadSiteConfig(path string) (*SiteConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var site SiteConfig
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&site); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &site, nil
}

func loadOrCreateLocalStore(path string) *LocalStore {
	data, err := os.ReadFile(path)
	if err != nil {
		logging.With(logging.ComponentConfig).Warn().Str("path", path).Msg("config.local.toml missing, creating a fresh one")
		return NewLocalStore(rand.Uint32(), time.Now())
	}
	var local LocalStore
	if err := toml.Unmarshal(data, &local); err != nil {
		logging.With(logging.ComponentConfig).Warn().Err(err).Str("path", path).Msg("config.local.toml unparsable, creating a fresh one")
		return NewLocalStore(rand.Uint32(), time.Now())
	}
	local.ensureMaps()
	return &local
}

// Persist writes config.local.toml and the derived .env atomically within
// this run (temp file + rename); it makes no cross-process concurrency
// guarantee.
func (s *Store) Persist() error {
	data, err := toml.Marshal(s.Local)
	if err != nil {
		return bherr.Wrap(bherr.IO, "marshaling config.local.toml", err)
	}
	if err := writeFileAtomic(s.LocalConfigPath(), data, 0o600); err != nil {
		return bherr.Wrap(bherr.IO, "writing config.local.toml", err)
	}
	if err := writeFileAtomic(s.EnvPath(), []byte(s.renderEnv()), 0o600); err != nil {
		return bherr.Wrap(bherr.IO, "writing .env", err)
	}
	return nil
}

func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, perm); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Derived paths.

func (s *Store) TrustedCACertsDir() string { return filepath.Join(s.Dir, "trusted-ca-certs") }
func (s *Store) LocalConfigPath() string   { return filepath.Join(s.Dir, "config.local.toml") }
func (s *Store) EnvPath() string           { return filepath.Join(s.Dir, ".env") }
func (s *Store) ServicesDir() string       { return filepath.Join(s.Dir, "services") }
func (s *Store) LauncherPath() string      { return filepath.Join(s.Dir, "bridgehead") }
func (s *Store) PrivateKeyPath() string {
	return filepath.Join(s.Dir, "pki", s.Site.SiteID+".priv.pem")
}
func (s *Store) ComposeOverridePath() string {
	return filepath.Join(s.Dir, "docker-compose.override.yml")
}
