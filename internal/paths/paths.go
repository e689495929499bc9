package paths

import (
	"context"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// CanonicalizePath returns absolutePath relative to repoRoot with forward
// slashes. Symlinks are resolved on both sides when they exist, so a work
// tree reached through a link still yields paths git understands.
func CanonicalizePath(absolutePath string, repoRoot string) (string, error) {
	file, err := evalIfExists(absolutePath)
	if err != nil {
		return "", err
	}
	root, err := evalIfExists(repoRoot)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(root, file)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

// evalIfExists resolves symlinks in the longest existing prefix of p and
// keeps the missing tail as written.
func evalIfExists(p string) (string, error) {
	p = filepath.Clean(p)
	resolved, err := filepath.EvalSymlinks(p)
	if err == nil {
		return resolved, nil
	}
	if !os.IsNotExist(err) {
		return "", err
	}
	parent := filepath.Dir(p)
	if parent == p {
		return p, nil
	}
	base, err := evalIfExists(parent)
	if err != nil {
		return "", err
	}
	return filepath.Join(base, filepath.Base(p)), nil
}

// IsWithinRepo reports whether path lies under repoRoot. Frame paths and
// position requests outside the work tree are never diffed.
func IsWithinRepo(path string, repoRoot string) bool {
	rel, err := CanonicalizePath(path, repoRoot)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, "../")
}

// NormalizePath converts OS separators to forward slashes.
func NormalizePath(path string) string {
	return filepath.ToSlash(path)
}

// JoinRepoPath joins a repository-relative path onto repoRoot. Both slash
// styles are accepted since traces from Windows hosts use backslashes.
func JoinRepoPath(repoRoot string, relPath string) string {
	parts := strings.Split(strings.ReplaceAll(relPath, "\\", "/"), "/")
	return filepath.Join(append([]string{repoRoot}, parts...)...)
}

// FileURI returns the file:// URI of an absolute path. Buffers pushed by
// editors are keyed by these URIs.
func FileURI(absolutePath string) string {
	p := filepath.ToSlash(absolutePath)
	if !strings.HasPrefix(p, "/") {
		// Windows drive paths become file:///C:/...
		p = "/" + p
	}
	return (&url.URL{Scheme: "file", Path: p}).String()
}

// PathFromURI converts a file:// URI back to a local path. Plain paths are
// returned cleaned.
func PathFromURI(uri string) (string, error) {
	if !strings.HasPrefix(uri, "file:") {
		return filepath.Clean(uri), nil
	}
	u, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("invalid file uri %q: %w", uri, err)
	}
	p := u.Path
	if len(p) >= 3 && p[0] == '/' && p[2] == ':' {
		p = p[1:]
	}
	return filepath.FromSlash(p), nil
}

// ListFiles returns every regular file under root, skipping directories whose
// base name is in excluded. Paths are absolute and in walk order.
func ListFiles(ctx context.Context, root string, excluded []string) ([]string, error) {
	skip := make(map[string]bool, len(excluded))
	for _, name := range excluded {
		skip[name] = true
	}

	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable entries are skipped, not fatal.
			if d != nil && d.IsDir() && path != root {
				return filepath.SkipDir
			}
			if path == root {
				return err
			}
			return nil
		}
		if d.IsDir() {
			if path != root && skip[d.Name()] {
				return filepath.SkipDir
			}
			return ctx.Err()
		}
		if d.Type().IsRegular() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}
