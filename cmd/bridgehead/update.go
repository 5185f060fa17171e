package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/samply/bridgehead-go/internal/config"
	"github.com/samply/bridgehead-go/internal/engine"
	"github.com/samply/bridgehead-go/internal/gittrack"
	"github.com/samply/bridgehead-go/internal/logging"
	"github.com/samply/bridgehead-go/internal/metrics"
	"github.com/samply/bridgehead-go/internal/modules"
	"github.com/samply/bridgehead-go/internal/render"
	"github.com/samply/bridgehead-go/internal/secretsync"
)

// Exit codes: 0 means nothing changed, 3 means changes were applied and the
// caller should restart the running stack, anything else is an error.
const (
	exitNoChanges = 0
	exitApplied   = 3
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Load config, materialize services, render and commit the result",
	RunE:  runUpdate,
}

func init() {
	updateCmd.Flags().String("config", "", "Absolute path to the site's config directory (or set BRIDGEHEAD_CONFIG_PATH)")
	updateCmd.Flags().String("orchestrator", "", "Container orchestrator binary to invoke after rendering (optional)")
}

func runUpdate(cmd *cobra.Command, args []string) error {
	dir, _ := cmd.Flags().GetString("config")
	if dir == "" {
		dir = os.Getenv("BRIDGEHEAD_CONFIG_PATH")
	}
	if dir == "" {
		return fmt.Errorf("--config or BRIDGEHEAD_CONFIG_PATH is required")
	}
	orchBinary, _ := cmd.Flags().GetString("orchestrator")

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	changed, err := apply(ctx, dir, orchBinary)
	if err != nil {
		return err
	}
	if changed {
		os.Exit(exitApplied)
	}
	os.Exit(exitNoChanges)
	return nil
}

// apply runs one end-to-end update: load, start git tracking, materialize,
// render & write, commit. A pull that advances HEAD reloads config and
// re-enters exactly once.
func apply(ctx context.Context, dir, orchBinary string) (bool, error) {
	runID := uuid.New().String()
	log := logging.With(logging.ComponentApply)
	log.Info().Str("run_id", runID).Str("config_dir", dir).Msg("starting apply run")

	timer := metrics.Timer(metrics.ApplyDuration)
	defer timer()

	store, err := config.Load(dir)
	if err != nil {
		return false, err
	}
	logging.UseSite(store.Site.SiteID)

	result, tracker, err := gittrack.Start(ctx, dir, store.Site.GitSync)
	if err != nil {
		return false, err
	}
	if result == gittrack.NeedsConfigReload {
		log.Info().Msg("remote pull advanced HEAD, reloading config")
		if err := store.Reload(); err != nil {
			return false, err
		}
		result, tracker, err = gittrack.Start(ctx, dir, store.Site.GitSync)
		if err != nil {
			return false, err
		}
		if result == gittrack.NeedsConfigReload {
			return false, fmt.Errorf("remote pull advanced HEAD twice in one run")
		}
	}

	if err := materializeAndRender(ctx, store, orchBinary); err != nil {
		return false, err
	}

	if result == gittrack.NotAGitRepo {
		return false, nil
	}

	changed, err := tracker.Commit(ctx)
	if err != nil {
		return false, err
	}
	if changed {
		metrics.GitChangeDetected.Inc()
	}
	return changed, nil
}

func materializeAndRender(ctx context.Context, store *config.Store, orchBinary string) error {
	syncer := newSyncer(store)
	e := engine.New(store.Site, store.Local, syncer)

	if err := modules.Apply(e, store.Site); err != nil {
		return err
	}
	metrics.ServicesMaterialized.Set(float64(len(e.Registry().All())))

	return render.Write(ctx, e, store, render.OrchestratorConfig{Binary: orchBinary})
}

func newSyncer(store *config.Store) *secretsync.Syncer {
	proc := secretsync.ProcessConfig{
		ProxyBinary:      "beam-connect",
		SyncBinary:       "samply-secret-sync",
		PrivateKeyPath:   store.PrivateKeyPath(),
		RootCertPath:     store.Dir + "/root.crt.pem",
		ProxyID:          store.Site.SiteID,
		HTTPSProxy:       store.Site.HTTPSProxy,
		TLSCACertsDir:    store.TrustedCACertsDir(),
		CacheDir:         store.Dir,
		AppSecretSyncKey: fmt.Sprintf("%d", store.Local.Seed),
	}
	return secretsync.New(proc, store.Local, store.Local.Oidc)
}
