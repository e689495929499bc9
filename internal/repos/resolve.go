package repos

import (
	"os"
	"path/filepath"
)

// RepoEnvVar names the repository used when no --repo flag is given.
const RepoEnvVar = "STACKRESOLVE_REPO"

// ResolutionSource indicates how the active repo was determined.
type ResolutionSource string

const (
	// ResolvedFromFlag indicates the repo was set via --repo flag.
	ResolvedFromFlag ResolutionSource = "flag"

	// ResolvedFromEnv indicates the repo was set via STACKRESOLVE_REPO.
	ResolvedFromEnv ResolutionSource = "env"

	// ResolvedFromCWD indicates the CWD is inside a registered repo.
	ResolvedFromCWD ResolutionSource = "cwd"

	// ResolvedNone indicates no active repo could be determined.
	ResolvedNone ResolutionSource = ""
)

// ResolvedRepo contains the resolved active repository and how it was determined.
type ResolvedRepo struct {
	// Entry is the resolved repository entry, nil if none.
	Entry *RepoEntry

	// Source indicates how the repo was resolved.
	Source ResolutionSource

	// DetectedGitRoot is set when CWD is in a git repo that is not registered.
	// Used to suggest "repos add".
	DetectedGitRoot string
}

// ResolveActiveRepo determines the active repository using the resolution order:
// 1. flagValue (--repo flag, if provided)
// 2. STACKRESOLVE_REPO environment variable
// 3. Current working directory inside a registered repo
// 4. No active repo
func ResolveActiveRepo(registry *Registry, flagValue string) (*ResolvedRepo, error) {
	if flagValue != "" {
		entry, _, err := registry.Get(flagValue)
		if err != nil {
			return nil, err
		}
		return &ResolvedRepo{Entry: entry, Source: ResolvedFromFlag}, nil
	}

	if envRepo := os.Getenv(RepoEnvVar); envRepo != "" {
		entry, _, err := registry.Get(envRepo)
		if err != nil {
			return nil, err
		}
		return &ResolvedRepo{Entry: entry, Source: ResolvedFromEnv}, nil
	}

	cwd, _ := os.Getwd()
	if cwd != "" {
		if entry := findRepoContainingPath(registry.List(), cwd); entry != nil {
			return &ResolvedRepo{Entry: entry, Source: ResolvedFromCWD}, nil
		}
		return &ResolvedRepo{Source: ResolvedNone, DetectedGitRoot: FindGitRoot(cwd)}, nil
	}

	return &ResolvedRepo{Source: ResolvedNone}, nil
}

// findRepoContainingPath finds a registered repo whose path contains the given path.
// This handles the case where the user is in a subdirectory of a registered repo.
// When multiple repos match, returns the most specific one (longest path).
func findRepoContainingPath(entries []RepoEntry, path string) *RepoEntry {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil
	}
	absPath = filepath.Clean(absPath)

	// Resolve symlinks for comparison (handles macOS /var -> /private/var)
	resolvedPath, err := filepath.EvalSymlinks(absPath)
	if err != nil {
		resolvedPath = absPath
	}

	var bestMatch *RepoEntry
	bestMatchLen := -1

	for _, entry := range entries {
		resolvedEntryPath, err := filepath.EvalSymlinks(entry.Path)
		if err != nil {
			resolvedEntryPath = entry.Path
		}

		rel, err := filepath.Rel(resolvedEntryPath, resolvedPath)
		if err != nil {
			continue
		}

		// Path is inside repo if:
		// - rel == "." (exact match)
		// - rel doesn't climb out with ".."
		isInside := rel == "." || (rel != ".." && !startsWithParent(rel))
		if !isInside {
			continue
		}

		// Pick the most specific match (longest path wins)
		if len(resolvedEntryPath) > bestMatchLen {
			bestMatchLen = len(resolvedEntryPath)
			entryCopy := entry
			bestMatch = &entryCopy
		}
	}

	return bestMatch
}

func startsWithParent(rel string) bool {
	return len(rel) >= 3 && rel[:3] == ".."+string(filepath.Separator)
}

// FindGitRoot walks up the directory tree from the given path to find the git root.
// Returns the path containing .git, or empty string if not in a git repo.
func FindGitRoot(path string) string {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return ""
	}

	// Resolve symlinks (handles macOS /var -> /private/var)
	absPath, err = filepath.EvalSymlinks(absPath)
	if err != nil {
		// Fall back to original path
		absPath, _ = filepath.Abs(path)
	}

	current := absPath
	for {
		gitPath := filepath.Join(current, ".git")
		if info, err := os.Stat(gitPath); err == nil {
			// .git can be a directory (normal repo) or file (worktree/submodule)
			if info.IsDir() || info.Mode().IsRegular() {
				return current
			}
		}

		parent := filepath.Dir(current)
		if parent == current {
			// Reached root
			return ""
		}
		current = parent
	}
}
