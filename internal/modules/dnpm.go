package modules

import (
	"github.com/samply/bridgehead-go/internal/config"
	"github.com/samply/bridgehead-go/internal/engine"
	"github.com/samply/bridgehead-go/internal/services"
)

// dnpmModule installs the DNPM (Molecular Tumor Board network) node and its
// oBDS/POedSt-to-FHIR transform pipeline.
type dnpmModule struct{}

func (dnpmModule) Name() string { return "dnpm" }

func (dnpmModule) Enabled(cfg *config.SiteConfig) bool { return cfg.SubsystemEnabled("dnpm") }

func (dnpmModule) Install(e *engine.Engine, cfg *config.SiteConfig) {
	services.InstallDnpmNode(e)
	if boolField(cfg.DNPM, "obds", true) {
		services.InstallObds2Fhir(e)
	}
	if boolField(cfg.DNPM, "podest", true) {
		services.InstallPodest2Fhir(e)
	}
}

func boolField(m map[string]any, key string, def bool) bool {
	v, ok := m[key]
	if !ok {
		return def
	}
	b, ok := v.(bool)
	if !ok {
		return def
	}
	return b
}
