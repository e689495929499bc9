// Package resolver maps the frames of a stack trace captured at one commit
// onto the code a developer has open now: the trace's repository is found
// among the registered work trees, each frame's file is matched by path
// suffix, and its position is carried through the diff from the trace's
// commit to HEAD and from HEAD to the current buffer.
package resolver

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"stackresolve/internal/config"
	"stackresolve/internal/diff"
	"stackresolve/internal/errors"
	"stackresolve/internal/language"
	"stackresolve/internal/logging"
	"stackresolve/internal/repos"
	"stackresolve/internal/stacktrace"
)

// Git is the subset of the git backend the resolver needs.
type Git interface {
	IsValidRevision(ctx context.Context, repoPath, sha string) bool
	FetchAllRemotes(ctx context.Context, repoPath string) error
	DiffBetween(ctx context.Context, repoPath, revA, revB, file string) (*diff.UnifiedDiff, error)
	FileContentAt(ctx context.Context, repoPath, file, rev string) (*string, error)
	ListRemotes(ctx context.Context, repoPath string) ([]string, error)
}

// RepositoryLister exposes the registered work trees.
type RepositoryLister interface {
	List() []repos.RepoEntry
	Get(idOrName string) (*repos.RepoEntry, repos.RepoState, error)
}

// RemoteNormalizer decides whether two remote URLs name the same repository.
type RemoteNormalizer interface {
	Matches(ctx context.Context, remote string, candidates []string) bool
}

// DocumentProvider returns the current text of a file:// URI, preferring
// an open editor buffer over the file on disk.
type DocumentProvider interface {
	Text(uri string) (string, error)
}

// SymbolLocator finds the declaration enclosing a 1-based line.
type SymbolLocator interface {
	Enclosing(ctx context.Context, path, source string, line int) (*stacktrace.Symbol, error)
}

// Deps are the collaborators of a Resolver. Symbols may be nil.
type Deps struct {
	Git       Git
	Repos     RepositoryLister
	Remotes   RemoteNormalizer
	Documents DocumentProvider
	Symbols   SymbolLocator
}

// Resolver resolves stack traces. It holds no per-request state and is
// safe for concurrent use.
type Resolver struct {
	git       Git
	repos     RepositoryLister
	remotes   RemoteNormalizer
	documents DocumentProvider
	symbols   SymbolLocator
	parser    *stacktrace.Registry
	logger    *logging.Logger

	// fetches coalesces concurrent fetches of the same work tree.
	fetches singleflight.Group

	concurrency  int
	excludedDirs []string
	helpURL      string
	fetchTimeout time.Duration
}

// defaultFetchTimeout bounds a shared fetch when the config sets none.
const defaultFetchTimeout = 60 * time.Second

// alwaysExcluded directories are never searched for frame files.
var alwaysExcluded = []string{".git", "node_modules"}

// New creates a resolver. Git, Repos, Remotes and Documents are required.
func New(cfg *config.Config, deps Deps, logger *logging.Logger) (*Resolver, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	if deps.Git == nil || deps.Repos == nil || deps.Remotes == nil || deps.Documents == nil {
		return nil, errors.New(errors.InvalidArgument, "Resolver requires git, repositories, remotes and documents", nil)
	}

	detector, err := NewDetector(cfg)
	if err != nil {
		return nil, err
	}

	concurrency := cfg.Resolution.FrameConcurrency
	if concurrency < 1 {
		concurrency = 1
	}

	excluded := append([]string{}, alwaysExcluded...)
	for _, d := range cfg.Resolution.ExcludedDirs {
		if !containsString(excluded, d) {
			excluded = append(excluded, d)
		}
	}

	fetchTimeout := defaultFetchTimeout
	if cfg.Git.FetchTimeoutMs > 0 {
		fetchTimeout = time.Duration(cfg.Git.FetchTimeoutMs) * time.Millisecond
	}

	symbols := deps.Symbols
	if !cfg.Resolution.SymbolContext {
		symbols = nil
	}

	return &Resolver{
		git:          deps.Git,
		repos:        deps.Repos,
		remotes:      deps.Remotes,
		documents:    deps.Documents,
		symbols:      symbols,
		parser:       stacktrace.NewRegistry(detector, logger),
		logger:       logger,
		concurrency:  concurrency,
		excludedDirs: excluded,
		helpURL:      cfg.Resolution.HelpURL,
		fetchTimeout: fetchTimeout,
	}, nil
}

// NewDetector builds the language detector with the configured extension
// mappings added to the built-in ones.
func NewDetector(cfg *config.Config) (*language.Detector, error) {
	mappings := make([]language.Mapping, 0, len(cfg.Languages.Extensions))
	for _, m := range cfg.Languages.Extensions {
		mapping, err := language.ParseMapping(m.Extension, m.Language)
		if err != nil {
			return nil, fmt.Errorf("invalid language mapping: %w", err)
		}
		mappings = append(mappings, mapping)
	}
	return language.NewDetector(mappings...), nil
}

// ParseStackTrace parses raw without touching any repository.
func (r *Resolver) ParseStackTrace(ctx context.Context, raw string) *stacktrace.ParsedStackTrace {
	return r.parser.Parse(raw)
}

// Warning is a non-fatal outcome the user can act on.
type Warning struct {
	Message string `json:"message"`
	HelpURL string `json:"helpUrl,omitempty"`
}

// ResolveRequest asks for a whole trace to be resolved.
type ResolveRequest struct {
	StackTrace   []string `json:"stackTrace"`
	RepoRemote   string   `json:"repoRemote"`
	Sha          string   `json:"sha"`
	TraceID      string   `json:"traceId,omitempty"`
	OccurrenceID string   `json:"occurrenceId,omitempty"`

	// OnFrameResolved, when set, is called once per frame as soon as it is
	// resolved. Calls may come from several goroutines and in any order.
	OnFrameResolved func(index int, frame stacktrace.Frame) `json:"-"`
}

// ResolveResponse carries either a warning, an error message, or both
// views of the trace: ParsedStackInfo is relative to Sha, ResolvedStackInfo
// to the current buffers.
type ResolveResponse struct {
	TraceID           string                       `json:"traceId"`
	RepoID            string                       `json:"repoId,omitempty"`
	ParsedStackInfo   *stacktrace.ParsedStackTrace `json:"parsedStackInfo,omitempty"`
	ResolvedStackInfo *stacktrace.ParsedStackTrace `json:"resolvedStackInfo,omitempty"`
	Warning           *Warning                     `json:"warning,omitempty"`
	Error             string                       `json:"error,omitempty"`
}

// PositionRequest asks for a single position in a registered repository.
// Line and Column are 1-based; a Column of 0 means unknown.
type PositionRequest struct {
	Sha      string `json:"sha"`
	RepoID   string `json:"repoId"`
	FilePath string `json:"filePath"`
	Line     int    `json:"line"`
	Column   int    `json:"column,omitempty"`
}

// PositionResponse is the resolved position or an error message.
type PositionResponse struct {
	Line   *int               `json:"line,omitempty"`
	Column *int               `json:"column,omitempty"`
	Path   string             `json:"path,omitempty"`
	Symbol *stacktrace.Symbol `json:"symbol,omitempty"`
	Error  string             `json:"error,omitempty"`
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
