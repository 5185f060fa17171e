// Package secretsync performs the out-of-band exchange with a central OIDC
// issuer over an external message-broker proxy. It is lazily triggered by
// the engine the first time an OIDC-dependent service is materialized, and
// its failures are non-fatal: a caller asking for a client secret before a
// successful sync gets the empty string, so the launcher script can still
// be generated pre-enrolment.
package secretsync

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"os/exec"
	"strings"

	"github.com/samply/bridgehead-go/internal/logging"
	"github.com/samply/bridgehead-go/internal/metrics"
)

// SecretDefinition is one entry of the wire format sent to the secret-sync
// helper: `OIDC:<name>:<public|private>;<csv of redirect URLs>`.
type SecretDefinition struct {
	Name       string
	Kind       string // "public" or "private"
	RedirectTo []string
}

func (d SecretDefinition) encode() string {
	return fmt.Sprintf("OIDC:%s:%s;%s", d.Name, d.Kind, strings.Join(d.RedirectTo, ","))
}

// EncodeDefinitions joins definitions with the record separator \x1E, as
// the secret-sync helper expects in SECRET_DEFINITIONS.
func EncodeDefinitions(defs []SecretDefinition) string {
	parts := make([]string, len(defs))
	for i, d := range defs {
		parts[i] = d.encode()
	}
	return strings.Join(parts, "\x1E")
}

// ProcessConfig names the two external binaries and the parameters they are
// invoked with.
type ProcessConfig struct {
	ProxyBinary      string
	SyncBinary       string
	PrivateKeyPath   string
	RootCertPath     string
	BrokerURL        string
	ProxyID          string
	HTTPSProxy       string // optional, becomes ALL_PROXY
	TLSCACertsDir    string
	CacheDir         string
	AppSecretSyncKey string
}

// LocalStore is the narrow interface secretsync needs to merge a sync run's
// output back into the persisted local store.
type LocalStore interface {
	PutOidc(key, value string)
}

// Syncer runs at most one sync attempt per OIDC provider per process.
type Syncer struct {
	proc      ProcessConfig
	local     LocalStore
	attempted map[string]bool
	cache     map[string]string
}

// New returns a Syncer that writes successful sync results into local.
// seed pre-populates the cache from a previously persisted LocalStore.Oidc,
// so a client secret synced in an earlier run survives a process restart.
func New(proc ProcessConfig, local LocalStore, seed map[string]string) *Syncer {
	cache := make(map[string]string, len(seed))
	for k, v := range seed {
		cache[k] = v
	}
	return &Syncer{proc: proc, local: local, attempted: make(map[string]bool), cache: cache}
}

// Sync runs the two-step exchange for provider if it has not already been
// attempted this process. Failures are logged and swallowed: ClientSecret
// and PublicClient simply keep returning "" for this provider.
func (s *Syncer) Sync(ctx context.Context, provider string, defs []SecretDefinition) {
	if s.attempted[provider] {
		return
	}
	s.attempted[provider] = true

	log := logging.With(logging.ComponentSecretSync)
	outcome := "success"
	if err := s.sync(ctx, provider, defs); err != nil {
		outcome = "failure"
		log.Warn().Err(err).Str("provider", provider).Msg("OIDC secret sync failed, continuing pre-enrolment")
	}
	metrics.SecretSyncAttempts.WithLabelValues(provider, outcome).Inc()
}

func (s *Syncer) sync(ctx context.Context, provider string, defs []SecretDefinition) error {
	if err := s.spawnProxy(ctx); err != nil {
		return fmt.Errorf("spawning forwarding proxy: %w", err)
	}
	out, err := s.spawnSecretSync(ctx, provider, defs)
	if err != nil {
		return fmt.Errorf("spawning secret-sync helper: %w", err)
	}
	for k, v := range parseKeyValueLines(out) {
		s.cache[k] = v
		s.local.PutOidc(k, v)
	}
	return nil
}

func (s *Syncer) spawnProxy(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, s.proc.ProxyBinary)
	cmd.Env = append(cmd.Env,
		"PRIVKEY_FILE="+s.proc.PrivateKeyPath,
		"ROOTCERT_FILE="+s.proc.RootCertPath,
		"BROKER_URL="+s.proc.BrokerURL,
		"PROXY_ID="+s.proc.ProxyID,
		"TLS_CA_CERTIFICATES_DIR="+s.proc.TLSCACertsDir,
	)
	if s.proc.HTTPSProxy != "" {
		cmd.Env = append(cmd.Env, "ALL_PROXY="+s.proc.HTTPSProxy)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%w: %s", err, stderr.String())
	}
	return nil
}

func (s *Syncer) spawnSecretSync(ctx context.Context, provider string, defs []SecretDefinition) (string, error) {
	cmd := exec.CommandContext(ctx, s.proc.SyncBinary)
	cachePath := s.proc.CacheDir + "/" + provider + ".cache"
	cmd.Env = append(cmd.Env,
		"OIDC_PROVIDER="+provider,
		"SECRET_DEFINITIONS="+EncodeDefinitions(defs),
		"CACHE_PATH="+cachePath,
		"APP_secret-sync_KEY="+s.proc.AppSecretSyncKey,
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%w: %s", err, stderr.String())
	}
	return stdout.String(), nil
}

// parseKeyValueLines parses `KEY="VALUE"` lines emitted by the secret-sync
// helper's updated cache file.
func parseKeyValueLines(s string) map[string]string {
	out := make(map[string]string)
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		eq := strings.IndexByte(line, '=')
		if eq < 0 {
			continue
		}
		key := line[:eq]
		val := strings.Trim(line[eq+1:], `"`)
		out[key] = val
	}
	return out
}

// ClientSecret returns the private client secret for provider, or "" if
// no sync has succeeded yet for it (deliberate degradation, not an error).
func (s *Syncer) ClientSecret(provider string) string {
	return s.cache[provider+"_client_secret"]
}

// PublicClient returns the public client id for provider, or "" if absent.
func (s *Syncer) PublicClient(provider string) string {
	return s.cache[provider+"_public_client"]
}

// RedirectURLs computes the HTTPS redirect URLs an OIDC registration needs
// for a given callback path: one on the full hostname, one on the first
// subdomain-stripped root, since the issuer may redirect to either. IP
// hosts (v4 or v6) produce a single URL.
func RedirectURLs(hostname, path string) []string {
	if ip := net.ParseIP(hostname); ip != nil {
		host := hostname
		if ip.To4() == nil {
			host = "[" + hostname + "]"
		}
		return []string{"https://" + host + path}
	}
	urls := []string{"https://" + hostname + path}
	parts := strings.SplitN(hostname, ".", 2)
	if len(parts) == 2 && parts[1] != "" {
		root := parts[1]
		if root != hostname {
			urls = append(urls, "https://"+root+path)
		}
	}
	return urls
}
