// Package render pulls a template-backed rendering out of every
// materialized service and persists the whole deployment bundle to disk:
// per-service manifests, the compose override passthrough, the launcher
// script, .gitignore, and (optionally) an orchestrator-generated image
// lockfile.
package render

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"

	"github.com/samply/bridgehead-go/internal/bherr"
	"github.com/samply/bridgehead-go/internal/config"
	"github.com/samply/bridgehead-go/internal/engine"
	"github.com/samply/bridgehead-go/internal/logging"
	"github.com/samply/bridgehead-go/internal/registry"
	"github.com/samply/bridgehead-go/internal/services"
)

const gitignoreContents = `# generated by bridgehead apply - do not commit local secrets
config.local.toml
.env
pki/
`

// launcherScript is the fixed content emitted by the 'bootstrap' CLI
// subcommand and written to disk by Write.
const launcherScript = `#!/bin/sh
# bridgehead launcher - generated, do not edit by hand.
set -eu
cd "$(dirname "$0")"
exec docker compose \
  --env-file .env \
  -f docker-compose.yml \
  $( [ -f docker-compose.override.yml ] && echo -f docker-compose.override.yml ) \
  "$@"
`

// OrchestratorConfig names the external binary Write optionally invokes
// after writing the manifests, to generate docker-image.lock.yml and
// pre-pull images. Empty Binary skips invocation entirely.
type OrchestratorConfig struct {
	Binary string
	Args   []string
}

// Write performs the full render-and-write choreography for one apply run:
// rebuild services/, write each manifest, write the launcher script and
// .gitignore, persist the local store and .env, and optionally invoke the
// orchestrator. It is the single entry point `update` calls after
// Engine.Materialize succeeds.
func Write(ctx context.Context, e *engine.Engine, store *config.Store, orch OrchestratorConfig) error {
	log := logging.With(logging.ComponentRender)

	if err := rebuildServicesDir(store.ServicesDir()); err != nil {
		return bherr.Wrap(bherr.IO, "recreating services directory", err)
	}

	ids := e.Registry().All()
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	seenNames := make(map[string]registry.Identity, len(ids))
	for _, id := range ids {
		instance, _ := e.Registry().Get(id)
		r, ok := instance.(services.Renderer)
		if !ok {
			continue
		}
		name := r.ServiceName()
		if prior, dup := seenNames[name]; dup {
			return bherr.Wrap(bherr.Render, fmt.Sprintf("service name %q used by both %s and %s", name, prior, id), fmt.Errorf("duplicate service name"))
		}
		seenNames[name] = id

		text, err := r.Render()
		if err != nil {
			return bherr.Wrap(bherr.Render, fmt.Sprintf("rendering %s (%s)", name, id), err)
		}
		path := filepath.Join(store.ServicesDir(), name+".yml")
		if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
			return bherr.Wrap(bherr.IO, fmt.Sprintf("writing %s", path), err)
		}
		log.Debug().Str("service", name).Msg("wrote manifest")
	}

	if err := os.WriteFile(store.LauncherPath(), []byte(launcherScript), 0o755); err != nil {
		return bherr.Wrap(bherr.IO, "writing launcher script", err)
	}
	if err := os.WriteFile(filepath.Join(store.Dir, ".gitignore"), []byte(gitignoreContents), 0o644); err != nil {
		return bherr.Wrap(bherr.IO, "writing .gitignore", err)
	}
	if err := store.Persist(); err != nil {
		return err
	}

	if orch.Binary != "" && len(ids) > 0 {
		if err := runOrchestrator(ctx, store.Dir, orch); err != nil {
			return bherr.Wrap(bherr.ExternalProcess, "invoking container orchestrator", err)
		}
	} else if orch.Binary != "" {
		log.Info().Msg("no services installed, skipping orchestrator invocation")
	}

	return nil
}

func rebuildServicesDir(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return err
	}
	return os.MkdirAll(dir, 0o755)
}

func runOrchestrator(ctx context.Context, dir string, orch OrchestratorConfig) error {
	cmd := exec.CommandContext(ctx, orch.Binary, orch.Args...)
	cmd.Dir = dir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// WriteLauncherOnly writes only the launcher script, used by
// `bootstrap bridgehead --config=PATH` which must not touch any other
// output file.
func WriteLauncherOnly(store *config.Store) error {
	if err := os.MkdirAll(store.Dir, 0o755); err != nil {
		return bherr.Wrap(bherr.IO, "ensuring config directory exists", err)
	}
	if err := os.WriteFile(store.LauncherPath(), []byte(launcherScript), 0o755); err != nil {
		return bherr.Wrap(bherr.IO, "writing launcher script", err)
	}
	return nil
}

// LauncherScript returns the fixed launcher script text, used by the
// `bootstrap` (no args) subcommand which prints it to standard output.
func LauncherScript() string { return launcherScript }
