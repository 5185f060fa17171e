// Package services holds the concrete service families the bridgehead
// generator knows how to install: the shared edge services (forward proxy,
// traefik), the per-network broker/backend pair (beam-proxy, blaze, focus),
// BBMRI's directory-sync add-on, and the DNPM pipeline. Each type is a
// distinct engine.Identity family; a parameterized family (Focus, Blaze,
// BeamProxy, DirectorySync) gets one identity per broker it is installed
// for. Render produces a docker-compose-style manifest fragment per
// service; the orchestrator consuming that fragment owns everything beyond
// the compose shape itself.
package services

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/samply/bridgehead-go/internal/registry"
)

// Renderer is implemented by every service type; internal/render calls it
// once per materialized instance to produce services/<name>.yml.
type Renderer interface {
	ServiceName() string
	Render() (string, error)
}

// Identity helpers. Family names match the Go type; Params carries the
// broker binding for parameterized families, empty for singletons.
func ForwardProxyIdentity() registry.Identity { return registry.Identity{Family: "ForwardProxy"} }
func TraefikIdentity() registry.Identity      { return registry.Identity{Family: "Traefik"} }

func BeamProxyIdentity(broker string) registry.Identity {
	return registry.Identity{Family: "BeamProxy", Params: broker}
}

func BlazeIdentity(broker string) registry.Identity {
	return registry.Identity{Family: "Blaze", Params: broker}
}

func FocusIdentity(broker string) registry.Identity {
	return registry.Identity{Family: "Focus", Params: broker}
}

func DirectorySyncIdentity(broker string) registry.Identity {
	return registry.Identity{Family: "DirectorySync", Params: broker}
}

func DnpmNodeIdentity() registry.Identity    { return registry.Identity{Family: "DnpmNode"} }
func Obds2FhirIdentity() registry.Identity   { return registry.Identity{Family: "Obds2Fhir"} }
func Podest2FhirIdentity() registry.Identity { return registry.Identity{Family: "Podest2Fhir"} }

// ComposeService is the docker-compose service shape every manifest
// fragment renders into: a struct per compose field, marshaled via
// yaml.v3, rather than hand-built YAML strings. Real deployments would
// carry volumes, healthchecks, cap_add etc; the fields here are the
// bounded set every family in this package actually uses.
type ComposeService struct {
	Image       string            `yaml:"image"`
	Restart     string            `yaml:"restart,omitempty"`
	Environment map[string]string `yaml:"environment,omitempty"`
	EnvFile     []string          `yaml:"env_file,omitempty"`
	Networks    []string          `yaml:"networks,omitempty"`
	DependsOn   []string          `yaml:"depends_on,omitempty"`
	Labels      map[string]string `yaml:"labels,omitempty"`
}

// renderFragment marshals a single named compose service into the
// `services: {name: {...}}` shape written to services/<name>.yml.
func renderFragment(name string, svc ComposeService) (string, error) {
	doc := map[string]map[string]ComposeService{
		"services": {name: svc},
	}
	out, err := yaml.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("rendering %s: %w", name, err)
	}
	return string(out), nil
}
