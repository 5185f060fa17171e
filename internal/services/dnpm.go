package services

import (
	"github.com/samply/bridgehead-go/internal/engine"
	"github.com/samply/bridgehead-go/internal/registry"
)

// DnpmNode is the German cancer-consortium (DNPM) node store. It needs
// nothing beyond the site config and is default-constructible, the way
// Blaze is for the broker networks.
type DnpmNode struct {
	name    string
	version string
}

func init() {
	engine.RegisterDefaultBuilder(DnpmNodeIdentity().Family, func(e *engine.Engine, id registry.Identity) (any, error) {
		return newDnpmNode(e), nil
	})
}

func InstallDnpmNode(e *engine.Engine) *engine.Builder[DnpmNode] {
	return engine.InstallDefault(e, DnpmNodeIdentity(), nil, func(e *engine.Engine) (*DnpmNode, error) {
		return newDnpmNode(e), nil
	})
}

func newDnpmNode(e *engine.Engine) *DnpmNode {
	return &DnpmNode{name: "dnpm-node", version: e.Site.Version}
}

func (d *DnpmNode) ServiceName() string { return d.name }

func (d *DnpmNode) Render() (string, error) {
	return renderFragment(d.name, ComposeService{
		Image:    "samply/dnpm-node:" + d.version,
		Restart:  "unless-stopped",
		Networks: []string{"bridgehead"},
	})
}

// Obds2Fhir transforms oBDS reports into FHIR resources and feeds DnpmNode.
// DnpmNode is required: without a node to write into, the transform has
// nowhere to send its output.
type Obds2Fhir struct{ name, nodeName string }

func InstallObds2Fhir(e *engine.Engine) *engine.Builder[Obds2Fhir] {
	id := Obds2FhirIdentity()
	deps := []engine.DepEdge{engine.Required(DnpmNodeIdentity())}
	return engine.InstallWithConfig(e, id, deps, func(e *engine.Engine) (*Obds2Fhir, error) {
		node, err := engine.RequireDep[DnpmNode](e, id, DnpmNodeIdentity())
		if err != nil {
			return nil, err
		}
		return &Obds2Fhir{name: "obds2fhir", nodeName: node.ServiceName()}, nil
	})
}

func (o *Obds2Fhir) ServiceName() string { return o.name }

func (o *Obds2Fhir) Render() (string, error) {
	return renderFragment(o.name, ComposeService{
		Image:     "samply/obds2fhir:latest",
		Restart:   "unless-stopped",
		DependsOn: []string{o.nodeName},
	})
}

// Podest2Fhir transforms POedSt reports into FHIR. It requires DnpmNode and
// optionally chains after Obds2Fhir when both pipelines are enabled, so the
// two transforms' container start order is deterministic; Obds2Fhir being
// absent (oBDS disabled) is not an error.
type Podest2Fhir struct {
	name        string
	nodeName    string
	afterObds   bool
	obdsSvcName string
}

func InstallPodest2Fhir(e *engine.Engine) *engine.Builder[Podest2Fhir] {
	id := Podest2FhirIdentity()
	deps := []engine.DepEdge{
		engine.Required(DnpmNodeIdentity()),
		engine.Optional(Obds2FhirIdentity()),
	}
	return engine.InstallWithConfig(e, id, deps, func(e *engine.Engine) (*Podest2Fhir, error) {
		node, err := engine.RequireDep[DnpmNode](e, id, DnpmNodeIdentity())
		if err != nil {
			return nil, err
		}
		p := &Podest2Fhir{name: "podest2fhir", nodeName: node.ServiceName()}
		if slot := engine.OptionalDep[Obds2Fhir](e, Obds2FhirIdentity()); slot.Present {
			p.afterObds = true
			p.obdsSvcName = slot.Value.ServiceName()
		}
		return p, nil
	})
}

func (p *Podest2Fhir) ServiceName() string { return p.name }

func (p *Podest2Fhir) Render() (string, error) {
	dependsOn := []string{p.nodeName}
	if p.afterObds {
		dependsOn = append(dependsOn, p.obdsSvcName)
	}
	return renderFragment(p.name, ComposeService{
		Image:     "samply/podest2fhir:latest",
		Restart:   "unless-stopped",
		DependsOn: dependsOn,
	})
}
