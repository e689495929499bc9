package git

import (
	"context"

	"stackresolve/internal/diff"
)

// GitBackend is the set of git queries needed to follow a file across
// revisions. Every call names the repository it runs in.
type GitBackend interface {
	// IsAvailable checks that the git binary can be run
	IsAvailable() bool

	// IsValidRevision reports whether sha names a commit in the repository
	IsValidRevision(ctx context.Context, repoPath, sha string) bool

	// FetchAllRemotes fetches every configured remote
	FetchAllRemotes(ctx context.Context, repoPath string) error

	// DiffBetween returns the diff of file between two revisions, or nil
	// when the file did not change
	DiffBetween(ctx context.Context, repoPath, revA, revB, file string) (*diff.UnifiedDiff, error)

	// FileContentAt returns file as of rev, or nil if it does not exist there
	FileContentAt(ctx context.Context, repoPath, file, rev string) (*string, error)

	// ListRemotes returns the fetch URLs of all remotes
	ListRemotes(ctx context.Context, repoPath string) ([]string, error)

	// RepoRoot returns the top-level directory of the work tree containing path
	RepoRoot(ctx context.Context, path string) (string, error)

	// Head returns the commit HEAD points at
	Head(ctx context.Context, repoPath string) (string, error)
}
