// Package config loads the two-layer bridgehead configuration: the
// operator-declared config.toml and the locally-persisted config.local.toml,
// and owns every path derived from the config directory.
package config

// Environment is the deployment tier a site declares itself as running in.
type Environment string

const (
	EnvProduction Environment = "production"
	EnvAcceptance Environment = "acceptance"
	EnvTest       Environment = "test"
)

// SiteConfig is the operator-declared document loaded from config.toml.
// Unknown top-level fields are rejected by the decoder in store.go.
type SiteConfig struct {
	SiteID      string      `toml:"site_id"`
	Hostname    string      `toml:"hostname"`
	Environment Environment `toml:"environment"`
	Version     string      `toml:"version"`
	HTTPSProxy  string      `toml:"https_proxy"`
	NoProxy     []string    `toml:"no_proxy"`
	GitSync     *bool       `toml:"git_sync"`
	SrvDir      string      `toml:"srv_dir"`

	// Subsystem subsections. Each is an open bag of keys whose concrete
	// shape is owned by the module that consumes it (internal/modules),
	// not by the core engine.
	CCP   map[string]any `toml:"ccp"`
	BBMRI map[string]any `toml:"bbmri"`
	DNPM  map[string]any `toml:"dnpm"`
}

// applyDefaults fills in the documented defaults for fields the operator
// left unset. Called once right after decode.
func (c *SiteConfig) applyDefaults() {
	if c.Environment == "" {
		c.Environment = EnvProduction
	}
	if c.Version == "" {
		c.Version = "latest"
	}
	if c.SrvDir == "" {
		c.SrvDir = "/srv/docker/bridgehead"
	}
}

// RemoteSyncEnabled reports whether the operator opted into pushing/pulling
// the managed git directory. A nil GitSync defers to whether the directory
// has a remote configured (resolved by internal/gittrack).
func (c *SiteConfig) RemoteSyncEnabled(hasRemote func() bool) bool {
	if c.GitSync != nil {
		return *c.GitSync
	}
	return hasRemote()
}

// SubsystemEnabled reports whether the named subsystem subsection is present
// at all (even if empty), which is how a module decides to install itself.
func (c *SiteConfig) SubsystemEnabled(name string) bool {
	switch name {
	case "ccp":
		return c.CCP != nil
	case "bbmri":
		return c.BBMRI != nil
	case "dnpm":
		return c.DNPM != nil
	default:
		return false
	}
}
