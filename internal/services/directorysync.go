package services

import (
	"fmt"

	"github.com/samply/bridgehead-go/internal/engine"
)

// DirectorySyncConfig is the explicit config for a directory-sync instance:
// which broker's biobank directory it keeps Blaze in sync with.
type DirectorySyncConfig struct {
	Broker        string
	DirectoryURL  string
	SyncFrequency string
}

// DirectorySync periodically pushes biobank directory entries into its
// broker's Blaze. Blaze is required; the beam proxy is optional — a site
// can run directory-sync in a local-only mode without beam connectivity.
type DirectorySync struct {
	name      string
	cfg       DirectorySyncConfig
	blazeName string
}

// AdminPath is the path its module registers behind Traefik's basic auth,
// protecting the sync service's manual-trigger endpoint.
func (d *DirectorySync) AdminPath() string { return "/" + d.name + "/admin" }

// InstallDirectorySync records the constructor for cfg.Broker.
func InstallDirectorySync(e *engine.Engine, cfg DirectorySyncConfig) *engine.Builder[DirectorySync] {
	id := DirectorySyncIdentity(cfg.Broker)
	deps := []engine.DepEdge{
		engine.Required(BlazeIdentity(cfg.Broker)),
		engine.Optional(BeamProxyIdentity(cfg.Broker)),
		engine.Optional(TraefikIdentity()),
	}
	return engine.InstallWithConfig(e, id, deps, func(e *engine.Engine) (*DirectorySync, error) {
		blaze, err := engine.RequireDep[Blaze](e, id, BlazeIdentity(cfg.Broker))
		if err != nil {
			return nil, err
		}
		return &DirectorySync{name: cfg.Broker + "-directory-sync", cfg: cfg, blazeName: blaze.ServiceName()}, nil
	})
}

func (d *DirectorySync) ServiceName() string { return d.name }

func (d *DirectorySync) Render() (string, error) {
	freq := d.cfg.SyncFrequency
	if freq == "" {
		freq = "0 2 * * *"
	}
	return renderFragment(d.name, ComposeService{
		Image:   "samply/directory-sync:latest",
		Restart: "unless-stopped",
		Environment: map[string]string{
			"DIRECTORY_URL": d.cfg.DirectoryURL,
			"BLAZE_URL":     fmt.Sprintf("http://%s:8080/fhir", d.blazeName),
			"SYNC_CRON":     freq,
		},
		DependsOn: []string{d.blazeName},
	})
}
