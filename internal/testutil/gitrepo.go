// Package testutil provides helpers for tests that need a real git work tree.
package testutil

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// GitRepo is a throwaway repository in a test's temp directory.
type GitRepo struct {
	t    *testing.T
	Root string
}

// NewGitRepo initializes an empty repository, skipping the test when git
// is not installed.
func NewGitRepo(t *testing.T) *GitRepo {
	t.Helper()

	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available on PATH")
	}

	root, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to resolve temp dir: %v", err)
	}

	r := &GitRepo{t: t, Root: root}
	r.Git("init", "--quiet")
	r.Git("config", "user.name", "Test User")
	r.Git("config", "user.email", "test@example.com")
	r.Git("config", "commit.gpgsign", "false")
	return r
}

// Git runs a git command in the repository and returns trimmed stdout.
func (r *GitRepo) Git(args ...string) string {
	r.t.Helper()

	cmd := exec.Command("git", args...)
	cmd.Dir = r.Root
	cmd.Env = append(os.Environ(), "GIT_CONFIG_NOSYSTEM=1", "GIT_TERMINAL_PROMPT=0")
	out, err := cmd.CombinedOutput()
	if err != nil {
		r.t.Fatalf("git %s: %v\n%s", strings.Join(args, " "), err, out)
	}
	return strings.TrimSpace(string(out))
}

// Path returns the absolute path of rel inside the repository.
func (r *GitRepo) Path(rel string) string {
	return filepath.Join(r.Root, filepath.FromSlash(rel))
}

// WriteFile writes content to rel, creating parent directories.
func (r *GitRepo) WriteFile(rel, content string) {
	r.t.Helper()

	p := r.Path(rel)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		r.t.Fatalf("Failed to create directory for %s: %v", rel, err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		r.t.Fatalf("Failed to write %s: %v", rel, err)
	}
}

// Commit stages everything and commits it, returning the new HEAD.
func (r *GitRepo) Commit(message string) string {
	r.t.Helper()

	r.Git("add", "-A")
	r.Git("commit", "--quiet", "--allow-empty", "-m", message)
	return r.Git("rev-parse", "HEAD")
}

// Lines joins lines with trailing newlines, the way source files are written.
func Lines(lines ...string) string {
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}
