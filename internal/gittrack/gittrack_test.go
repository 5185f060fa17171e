package gittrack

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func runGit(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME=test", "GIT_AUTHOR_EMAIL=test@example.org",
		"GIT_COMMITTER_NAME=test", "GIT_COMMITTER_EMAIL=test@example.org",
	)
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "git %v: %s", args, out)
}

func initRepoWithCommit(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	runGit(t, dir, "init", "-b", "main")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("hello\n"), 0o644))
	runGit(t, dir, "add", ".")
	runGit(t, dir, "commit", "-m", "initial commit")
	return dir
}

func TestNonGitDirectorySkipsTracking(t *testing.T) {
	dir := t.TempDir()
	result, tracker, err := Start(context.Background(), dir, nil)
	require.NoError(t, err)
	require.Equal(t, NotAGitRepo, result)
	require.Nil(t, tracker)
}

func TestApplyWithOnlyLocalFileChangesCommitsAllowingEmptyGitDiff(t *testing.T) {
	dir := initRepoWithCommit(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".gitignore"), []byte("config.local.toml\n"), 0o644))
	runGit(t, dir, "add", ".gitignore")
	runGit(t, dir, "commit", "-m", "ignore local config")
	syncOff := false
	result, tracker, err := Start(context.Background(), dir, &syncOff)
	require.NoError(t, err)
	require.Equal(t, Ready, result)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.local.toml"), []byte("seed = 1\n"), 0o644))

	changed, err := tracker.Commit(context.Background())
	require.NoError(t, err)
	require.True(t, changed)
}

func TestApplyWithNoChangesIsANoOpCommit(t *testing.T) {
	dir := initRepoWithCommit(t)
	syncOff := false
	result, tracker, err := Start(context.Background(), dir, &syncOff)
	require.NoError(t, err)
	require.Equal(t, Ready, result)

	changed, err := tracker.Commit(context.Background())
	require.NoError(t, err)
	require.False(t, changed)
}

func TestLoadIgnoreMatcherWithNoGitignoreIsEmpty(t *testing.T) {
	dir := t.TempDir()
	m, err := LoadIgnoreMatcher(dir)
	require.NoError(t, err)
	require.False(t, m.MatchesPath("anything"))
}
