// Package gittrack wraps the site directory's git working tree across one
// apply run: it stashes local edits, pulls, lets the caller render, then
// commits and pushes with a message that reflects what actually changed.
// Untracked-but-ignored local files (config.local.toml, rendered secrets)
// are tracked separately by content hash, since git itself won't report on
// them.
package gittrack

import (
	"bytes"
	"context"
	"fmt"
	"hash/fnv"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	gitignore "github.com/sabhiram/go-gitignore"

	"github.com/samply/bridgehead-go/internal/bherr"
	"github.com/samply/bridgehead-go/internal/logging"
)

const commandTimeout = 2 * time.Minute

// Result reports what Start found before any rendering happened.
type Result int

const (
	// Ready means tracking started normally; call Commit when done.
	Ready Result = iota
	// NeedsConfigReload means a pull advanced HEAD and the caller must
	// reload config before rendering, since it may have changed upstream.
	NeedsConfigReload
	// NotAGitRepo means the site directory isn't a git repo; tracking is a
	// no-op and Commit must not be called.
	NotAGitRepo
)

// Tracker holds the pre-render state needed to compute a diff at Commit
// time: the set of locally-changed files and the content hash of every
// ignored file, taken before rendering ran.
type Tracker struct {
	dir            string
	syncEnabled    bool
	before         map[string]uint64
	stashedChanges string
}

// Start begins tracking dir, a git working tree. syncEnabled overrides the
// has-a-remote auto-detection when non-nil (mirrors the site config's
// optional git_sync field); nil falls back to auto-detection.
func Start(ctx context.Context, dir string, syncEnabled *bool) (Result, *Tracker, error) {
	log := logging.With(logging.ComponentGitTrack)
	if !isGitRepo(dir) {
		log.Info().Str("dir", dir).Msg("directory is not a git repository, skipping diff tracking")
		return NotAGitRepo, nil, nil
	}

	t := &Tracker{dir: dir}
	t.syncEnabled = resolveSyncEnabled(syncEnabled, t.hasRemote(ctx))

	modified, err := t.modified(ctx)
	if err != nil {
		return 0, nil, err
	}
	if modified != "" {
		initial, err := t.isInitialCommit(ctx)
		if err != nil {
			return 0, nil, err
		}
		if initial {
			log.Info().Msg("no initial commit yet, not stashing changes")
		} else {
			if err := t.stashAll(ctx, modified); err != nil {
				return 0, nil, err
			}
			t.stashedChanges = modified
		}
	}

	if t.syncEnabled {
		before, err := t.headHash(ctx)
		if err != nil {
			return 0, nil, err
		}
		log.Info().Msg("pulling changes from remote")
		if err := t.pull(ctx); err != nil {
			return 0, nil, err
		}
		after, err := t.headHash(ctx)
		if err != nil {
			return 0, nil, err
		}
		if before != after {
			return NeedsConfigReload, nil, nil
		}
	}

	before, err := t.hashIgnoredFiles(ctx)
	if err != nil {
		return 0, nil, bherr.Wrap(bherr.IO, "hashing local files before render", err)
	}
	t.before = before
	return Ready, t, nil
}

func resolveSyncEnabled(override *bool, hasRemote bool) bool {
	if override != nil {
		return *override
	}
	return hasRemote
}

func isGitRepo(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, ".git"))
	return err == nil && info.IsDir()
}

func (t *Tracker) gitCommand(ctx context.Context, args ...string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = t.dir
	return cmd
}

func (t *Tracker) run(ctx context.Context, op string, args ...string) (string, error) {
	runCtx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()
	cmd := t.gitCommand(runCtx, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	if err != nil {
		return "", bherr.Wrap(bherr.ExternalProcess, op, fmt.Errorf("%w: %s", err, stderr.String()))
	}
	return stdout.String(), nil
}

func (t *Tracker) modified(ctx context.Context) (string, error) {
	return t.run(ctx, "git status", "status", "--porcelain")
}

func (t *Tracker) isInitialCommit(ctx context.Context) (bool, error) {
	runCtx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()
	cmd := t.gitCommand(runCtx, "rev-parse", "--verify", "HEAD")
	err := cmd.Run()
	return err != nil, nil
}

func (t *Tracker) headHash(ctx context.Context) (string, error) {
	out, err := t.run(ctx, "git rev-parse HEAD", "rev-parse", "--verify", "HEAD")
	if err != nil {
		// No HEAD yet (initial commit): treat as a stable, distinct value.
		return "", nil
	}
	return out, nil
}

func (t *Tracker) stashAll(ctx context.Context, modified string) error {
	logging.With(logging.ComponentGitTrack).Info().Str("diff", modified).Msg("stashing untracked changes")
	_, err := t.run(ctx, "git stash", "stash", "push", "-m", "auto-stash", "--include-untracked")
	return err
}

func (t *Tracker) hasRemote(ctx context.Context) bool {
	out, err := t.run(ctx, "git remote", "remote")
	return err == nil && strings.TrimSpace(out) != ""
}

func (t *Tracker) pull(ctx context.Context) error {
	_, err := t.run(ctx, "git pull --rebase", "pull", "--rebase")
	return err
}

func (t *Tracker) push(ctx context.Context) error {
	_, err := t.run(ctx, "git push", "push")
	return err
}

func (t *Tracker) addAll(ctx context.Context) error {
	_, err := t.run(ctx, "git add", "add", ".")
	return err
}

// hashIgnoredFiles hashes every file the working tree reports as untracked
// and ignored: the local secrets/config layer bridgehead itself renders,
// which git never tracks but whose drift still belongs in the commit
// message.
func (t *Tracker) hashIgnoredFiles(ctx context.Context) (map[string]uint64, error) {
	out, err := t.run(ctx, "git ls-files (ignored)", "ls-files", "--others", "--exclude-standard", "--ignored")
	if err != nil {
		return nil, err
	}
	hashes := make(map[string]uint64)
	for _, rel := range strings.Split(out, "\n") {
		rel = strings.TrimSpace(rel)
		if rel == "" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(t.dir, rel))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", rel, err)
		}
		h := fnv.New64a()
		h.Write(data)
		hashes[rel] = h.Sum64()
	}
	return hashes, nil
}

// Commit finalizes a tracked run: it diffs the working tree and the ignored
// local files against their pre-render snapshots, commits with a message
// describing what changed, restashes nothing (a successful run consumes
// the stash implicitly via the commit), and pushes if sync is enabled. It
// returns whether anything changed at all.
func (t *Tracker) Commit(ctx context.Context) (bool, error) {
	gitDiff, err := t.modified(ctx)
	if err != nil {
		return false, err
	}
	after, err := t.hashIgnoredFiles(ctx)
	if err != nil {
		return false, bherr.Wrap(bherr.IO, "hashing local files after render", err)
	}
	localDiff := diffHashes(t.before, after)
	localDiffStr := formatLocalDiff(localDiff)

	args := []string{"commit", "-m"}
	gitEmpty, localEmpty := gitDiff == "", len(localDiff) == 0
	switch {
	case gitEmpty && localEmpty:
		args = append(args, "Nothing changed", "--allow-empty")
	case gitEmpty && !localEmpty:
		args = append(args, fmt.Sprintf("Only local files changed\n\nlocal:\n%s", localDiffStr), "--allow-empty")
	case !gitEmpty && localEmpty:
		if err := t.addAll(ctx); err != nil {
			return false, err
		}
		args = append(args, fmt.Sprintf("Git files changed\n\ngit:\n%s", gitDiff))
	default:
		if err := t.addAll(ctx); err != nil {
			return false, err
		}
		args = append(args, fmt.Sprintf("Local files and git changed\n\ngit:\n%s\nlocal:\n%s", gitDiff, localDiffStr))
	}
	if t.stashedChanges != "" {
		args = append(args, "-m", fmt.Sprintf("stashed changes:\n%s", t.stashedChanges))
	}
	if _, err := t.run(ctx, "git commit", args...); err != nil {
		return false, err
	}

	if t.syncEnabled {
		logging.With(logging.ComponentGitTrack).Info().Msg("pushing changes to remote")
		if err := t.push(ctx); err != nil {
			return false, err
		}
	}
	return !(gitEmpty && localEmpty), nil
}

func diffHashes(before, after map[string]uint64) map[string]byte {
	diff := make(map[string]byte)
	for file, b := range before {
		a, ok := after[file]
		if !ok {
			diff[file] = 'D'
			continue
		}
		if a != b {
			diff[file] = 'M'
		}
	}
	for file := range after {
		if _, ok := before[file]; !ok {
			diff[file] = 'A'
		}
	}
	return diff
}

func formatLocalDiff(diff map[string]byte) string {
	files := make([]string, 0, len(diff))
	for f := range diff {
		files = append(files, f)
	}
	sort.Strings(files)
	lines := make([]string, len(files))
	for i, f := range files {
		lines[i] = fmt.Sprintf("%c %s", diff[f], f)
	}
	return strings.Join(lines, "\n")
}

// LoadIgnoreMatcher reads dir's .gitignore, if any, for callers that need
// to decide whether a path is one git tracks or one only gittrack itself
// watches by hash. The hashing pass in this package does not use it; it
// takes its file list from git ls-files.
func LoadIgnoreMatcher(dir string) (*gitignore.GitIgnore, error) {
	path := filepath.Join(dir, ".gitignore")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return gitignore.CompileIgnoreLines(), nil
	}
	m, err := gitignore.CompileIgnoreFile(path)
	if err != nil {
		return nil, bherr.Wrap(bherr.IO, "parsing .gitignore", err)
	}
	return m, nil
}
