package git

import (
	"context"
	"strings"
)

// ListRemotes returns the distinct fetch URLs of repoPath's remotes.
func (g *GitAdapter) ListRemotes(ctx context.Context, repoPath string) ([]string, error) {
	lines, err := g.executeGitCommandLines(ctx, repoPath, "remote", "-v")
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	remotes := make([]string, 0, len(lines))
	for _, line := range lines {
		// origin	git@github.com:acme/shop.git (fetch)
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		if len(fields) >= 3 && fields[2] != "(fetch)" {
			continue
		}
		if !seen[fields[1]] {
			seen[fields[1]] = true
			remotes = append(remotes, fields[1])
		}
	}
	return remotes, nil
}

// RepoRoot returns the top-level directory of the work tree containing path.
func (g *GitAdapter) RepoRoot(ctx context.Context, path string) (string, error) {
	return g.executeGitCommand(ctx, path, "rev-parse", "--show-toplevel")
}

// Head returns the full hash of the commit HEAD points at.
func (g *GitAdapter) Head(ctx context.Context, repoPath string) (string, error) {
	return g.executeGitCommand(ctx, repoPath, "rev-parse", "HEAD")
}
