package git

import (
	"context"
	"path/filepath"
	"strings"

	"stackresolve/internal/diff"
	"stackresolve/internal/paths"
)

// IsValidRevision reports whether sha resolves to a commit in repoPath.
func (g *GitAdapter) IsValidRevision(ctx context.Context, repoPath, sha string) bool {
	if strings.TrimSpace(sha) == "" || strings.HasPrefix(sha, "-") {
		return false
	}
	_, err := g.executeGitCommand(ctx, repoPath, "rev-parse", "--verify", "--quiet", sha+"^{commit}")
	return err == nil
}

// FetchAllRemotes runs "git fetch --all" with the fetch timeout.
func (g *GitAdapter) FetchAllRemotes(ctx context.Context, repoPath string) error {
	g.logger.Info("Fetching all remotes", map[string]interface{}{
		"repo": repoPath,
	})
	_, err := g.run(ctx, repoPath, g.fetchTimeout, "fetch", "--all", "--quiet")
	return err
}

// DiffBetween returns the changes to file from revA to revB. file may be
// absolute or relative to repoPath. A nil diff means no changes.
func (g *GitAdapter) DiffBetween(ctx context.Context, repoPath, revA, revB, file string) (*diff.UnifiedDiff, error) {
	rel, err := repoRelative(repoPath, file)
	if err != nil {
		return nil, err
	}

	output, err := g.run(ctx, repoPath, g.queryTimeout,
		"diff", "--no-color", "--no-ext-diff", "--no-renames", revA, revB, "--", rel)
	if err != nil {
		return nil, err
	}
	if len(output) == 0 {
		return nil, nil
	}
	return diff.ParseGitDiff(string(output))
}

// FileContentAt returns the contents of file at rev. It returns nil, nil
// when the path does not exist at that revision.
func (g *GitAdapter) FileContentAt(ctx context.Context, repoPath, file, rev string) (*string, error) {
	rel, err := repoRelative(repoPath, file)
	if err != nil {
		return nil, err
	}

	output, err := g.run(ctx, repoPath, g.queryTimeout, "show", rev+":"+rel)
	if err != nil {
		stderr := stderrOf(err)
		if strings.Contains(stderr, "does not exist") || strings.Contains(stderr, "exists on disk, but not in") {
			return nil, nil
		}
		return nil, err
	}
	content := string(output)
	return &content, nil
}

// repoRelative returns file relative to repoPath with forward slashes.
func repoRelative(repoPath, file string) (string, error) {
	if !filepath.IsAbs(file) {
		return paths.NormalizePath(file), nil
	}
	return paths.CanonicalizePath(file, repoPath)
}
