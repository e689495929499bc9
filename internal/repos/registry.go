// Package repos keeps the workspace: the local clones a stack trace may be
// resolved against. The registry lives in a TOML file shared by the CLI and
// a running server.
package repos

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"

	"stackresolve/internal/errors"
)

// RepoState represents the current state of a registered repository.
type RepoState string

const (
	RepoStateValid   RepoState = "valid"   // Path exists and is a git work tree
	RepoStateNotGit  RepoState = "not-git" // Path exists, no .git
	RepoStateMissing RepoState = "missing" // Path doesn't exist
)

// RepoEntry represents a registered repository.
type RepoEntry struct {
	ID         string     `toml:"id" json:"id"`
	Name       string     `toml:"name" json:"name"`
	Path       string     `toml:"path" json:"path"` // Always absolute, cleaned
	AddedAt    time.Time  `toml:"added_at" json:"addedAt"`
	LastUsedAt *time.Time `toml:"last_used_at,omitempty" json:"lastUsedAt,omitempty"`
}

type registryFile struct {
	Version int         `toml:"version"`
	Repos   []RepoEntry `toml:"repo"`
}

// Registry is the workspace file. Reads pick up changes made by other
// processes; writes are serialized with a lock file.
type Registry struct {
	path string

	mu      sync.RWMutex
	repos   []RepoEntry
	modTime time.Time
}

const currentRegistryVersion = 1

var namePattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)

// LoadRegistry opens the workspace file at path. A missing file is an
// empty workspace.
func LoadRegistry(path string) (*Registry, error) {
	r := &Registry{path: path}
	if err := r.reload(true); err != nil {
		return nil, err
	}
	return r, nil
}

// Path returns the workspace file location.
func (r *Registry) Path() string {
	return r.path
}

// reload re-reads the file when its modification time changed.
func (r *Registry) reload(force bool) error {
	info, err := os.Stat(r.path)
	if os.IsNotExist(err) {
		r.mu.Lock()
		r.repos = nil
		r.modTime = time.Time{}
		r.mu.Unlock()
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stat workspace: %w", err)
	}

	r.mu.RLock()
	fresh := !force && info.ModTime().Equal(r.modTime)
	r.mu.RUnlock()
	if fresh {
		return nil
	}

	var file registryFile
	if _, err := toml.DecodeFile(r.path, &file); err != nil {
		return fmt.Errorf("failed to parse workspace: %w", err)
	}
	if file.Version > currentRegistryVersion {
		return fmt.Errorf("workspace version %d not supported (max: %d)", file.Version, currentRegistryVersion)
	}

	r.mu.Lock()
	r.repos = file.Repos
	r.modTime = info.ModTime()
	r.mu.Unlock()
	return nil
}

// save persists the registry with file locking.
func (r *Registry) save() error {
	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create workspace directory: %w", err)
	}

	lock, err := acquireLock(r.path + ".lock")
	if err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	defer func() { _ = lock.Release() }()

	r.mu.RLock()
	file := registryFile{Version: currentRegistryVersion, Repos: append([]RepoEntry(nil), r.repos...)}
	r.mu.RUnlock()

	// Write atomically
	tmpPath := r.path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("failed to write workspace: %w", err)
	}
	if err := toml.NewEncoder(f).Encode(file); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to encode workspace: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write workspace: %w", err)
	}
	if err := os.Rename(tmpPath, r.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename workspace: %w", err)
	}

	if info, err := os.Stat(r.path); err == nil {
		r.mu.Lock()
		r.modTime = info.ModTime()
		r.mu.Unlock()
	}
	return nil
}

// ValidateName checks if a repo name is valid.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("repo name cannot be empty")
	}
	if !namePattern.MatchString(name) {
		return fmt.Errorf("repo name must contain only letters, numbers, dots, underscores, and hyphens")
	}
	return nil
}

// Add registers the git work tree containing path. An empty name defaults
// to the directory name.
func (r *Registry) Add(name, path string) (*RepoEntry, error) {
	if err := r.reload(false); err != nil {
		return nil, err
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("path does not exist: %s", absPath)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("path is not a directory: %s", absPath)
	}
	root := FindGitRoot(absPath)
	if root == "" {
		return nil, errors.New(errors.InvalidArgument, "Path is not inside a git repository", nil).
			WithDetails(map[string]interface{}{"path": absPath})
	}

	if name == "" {
		name = filepath.Base(root)
	}
	if err := ValidateName(name); err != nil {
		return nil, err
	}

	r.mu.Lock()
	for _, e := range r.repos {
		if e.Name == name {
			r.mu.Unlock()
			return nil, fmt.Errorf("repo '%s' already exists", name)
		}
		if e.Path == root {
			r.mu.Unlock()
			return nil, fmt.Errorf("path %s is already registered as '%s'", root, e.Name)
		}
	}
	entry := RepoEntry{
		ID:      uuid.NewString(),
		Name:    name,
		Path:    root,
		AddedAt: time.Now().UTC().Truncate(time.Second),
	}
	r.repos = append(r.repos, entry)
	r.mu.Unlock()

	if err := r.save(); err != nil {
		return nil, err
	}
	return &entry, nil
}

// Remove unregisters a repository by id or name.
func (r *Registry) Remove(idOrName string) error {
	if err := r.reload(false); err != nil {
		return err
	}

	r.mu.Lock()
	idx := r.indexLocked(idOrName)
	if idx < 0 {
		r.mu.Unlock()
		return notFound(idOrName)
	}
	r.repos = append(r.repos[:idx], r.repos[idx+1:]...)
	r.mu.Unlock()

	return r.save()
}

// Get returns a repo entry by id or name together with its current state.
func (r *Registry) Get(idOrName string) (*RepoEntry, RepoState, error) {
	if err := r.reload(false); err != nil {
		return nil, "", err
	}

	r.mu.RLock()
	idx := r.indexLocked(idOrName)
	var entry RepoEntry
	if idx >= 0 {
		entry = r.repos[idx]
	}
	r.mu.RUnlock()

	if idx < 0 {
		return nil, "", notFound(idOrName)
	}
	return &entry, entry.State(), nil
}

// GetByPath finds the repo whose work tree contains path. When several
// match, the most specific one wins.
func (r *Registry) GetByPath(path string) (*RepoEntry, error) {
	if err := r.reload(false); err != nil {
		return nil, err
	}
	if entry := findRepoContainingPath(r.List(), path); entry != nil {
		return entry, nil
	}
	return nil, errors.New(errors.RepoNotFound, "No repository registered for path", nil).
		WithDetails(map[string]interface{}{"path": path})
}

// List returns all registered repos ordered by name.
func (r *Registry) List() []RepoEntry {
	_ = r.reload(false)

	r.mu.RLock()
	entries := append([]RepoEntry{}, r.repos...)
	r.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name < entries[j].Name
	})
	return entries
}

// TouchLastUsed updates the last used timestamp.
func (r *Registry) TouchLastUsed(idOrName string) error {
	r.mu.Lock()
	idx := r.indexLocked(idOrName)
	if idx < 0 {
		r.mu.Unlock()
		return notFound(idOrName)
	}
	now := time.Now().UTC().Truncate(time.Second)
	r.repos[idx].LastUsedAt = &now
	r.mu.Unlock()

	return r.save()
}

// State checks whether the entry's work tree is still usable.
func (e RepoEntry) State() RepoState {
	info, err := os.Stat(e.Path)
	if err != nil || !info.IsDir() {
		return RepoStateMissing
	}
	if _, err := os.Stat(filepath.Join(e.Path, ".git")); err != nil {
		return RepoStateNotGit
	}
	return RepoStateValid
}

func (r *Registry) indexLocked(idOrName string) int {
	for i, e := range r.repos {
		if e.ID == idOrName {
			return i
		}
	}
	for i, e := range r.repos {
		if e.Name == idOrName {
			return i
		}
	}
	return -1
}

func notFound(idOrName string) error {
	return errors.New(errors.RepoNotFound, fmt.Sprintf("Repo '%s' not found", idOrName), nil)
}

// FileLock represents a file-based lock.
type FileLock struct {
	file *os.File
}

// Release releases the file lock.
func (l *FileLock) Release() error {
	if l.file != nil {
		_ = unlockFile(l.file)
		_ = l.file.Close()
		l.file = nil
	}
	return nil
}

func acquireLock(path string) (*FileLock, error) {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, err
	}

	if err := lockFile(f); err != nil {
		_ = f.Close()
		return nil, err
	}

	return &FileLock{file: f}, nil
}
