package resolver

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"stackresolve/internal/errors"
	"stackresolve/internal/logging"
	"stackresolve/internal/pathmatch"
	"stackresolve/internal/paths"
	"stackresolve/internal/repos"
	"stackresolve/internal/stacktrace"
)

// ResolveStackTrace resolves every frame of req.StackTrace. Outcomes the
// user can act on (unknown repository, missing commit, unparsable trace)
// come back in the response; the error is reserved for failures of git or
// the file system while setting up.
func (r *Resolver) ResolveStackTrace(ctx context.Context, req ResolveRequest) (*ResolveResponse, error) {
	start := time.Now()
	traceID := req.TraceID
	if traceID == "" {
		traceID = uuid.NewString()
	}
	logger := r.logger.With(map[string]interface{}{
		"traceId":      traceID,
		"occurrenceId": req.OccurrenceID,
	})
	resp := &ResolveResponse{TraceID: traceID}

	repo, err := r.matchRepo(ctx, req.RepoRemote)
	if err != nil {
		logger.Error("Repository matching failed", map[string]interface{}{
			"remote": req.RepoRemote,
			"error":  err.Error(),
		})
		return nil, err
	}
	if repo == nil {
		logger.Info("No registered repository matches remote", map[string]interface{}{
			"remote": req.RepoRemote,
		})
		resp.Warning = &Warning{Message: repoNotFoundMessage(req.RepoRemote), HelpURL: r.helpURL}
		return resp, nil
	}
	resp.RepoID = repo.ID
	logger = logger.With(map[string]interface{}{"repo": repo.Name})

	if !r.ensureRevision(ctx, repo.Path, req.Sha, logger) {
		if err := ctx.Err(); err != nil {
			return nil, errors.New(errors.Timeout, "Stack trace resolution cancelled", err)
		}
		missing := errors.New(errors.MissingRevision, "Commit not found after fetching", nil).
			WithDetails(map[string]interface{}{"sha": req.Sha, "repo": repo.Path})
		logger.Warn("Commit unavailable", map[string]interface{}{
			"sha":   req.Sha,
			"error": missing.Error(),
		})
		resp.Error = missingShaMessage(req.Sha)
		return resp, nil
	}

	parsed := r.parser.Parse(strings.Join(req.StackTrace, "\n"))
	if !parsed.Resolvable() {
		logger.Warn("Stack trace has no resolvable frames", map[string]interface{}{
			"language":   parsed.Language.String(),
			"parseError": parsed.ParseError,
			"frames":     len(parsed.Lines),
		})
		resp.Error = missingShaMessage(req.Sha)
		return resp, nil
	}

	files, err := paths.ListFiles(ctx, repo.Path, r.excludedDirs)
	if err != nil {
		wrapped := errors.New(errors.InternalError, "Failed to enumerate repository files", err).
			WithDetails(map[string]interface{}{"repo": repo.Path})
		logger.Error("File enumeration failed", map[string]interface{}{
			"error": wrapped.Error(),
		})
		return nil, wrapped
	}

	parsedInfo := cloneTrace(parsed)
	resolvedInfo := cloneTrace(parsed)

	g := new(errgroup.Group)
	g.SetLimit(r.concurrency)
	for i := range parsed.Lines {
		i := i
		g.Go(func() error {
			p, res := r.resolveFrameSafe(ctx, repo, files, req.Sha, parsed.Lines[i], logger)
			parsedInfo.Lines[i] = p
			resolvedInfo.Lines[i] = res
			if req.OnFrameResolved != nil {
				req.OnFrameResolved(i, res.Clone())
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, errors.New(errors.Timeout, "Stack trace resolution cancelled", err)
	}

	resp.ParsedStackInfo = parsedInfo
	resp.ResolvedStackInfo = resolvedInfo

	failed := 0
	for _, f := range resolvedInfo.Lines {
		if f.Error != nil {
			failed++
		}
	}
	logger.Info("Stack trace resolved", map[string]interface{}{
		"language": parsed.Language.String(),
		"frames":   len(resolvedInfo.Lines),
		"failed":   failed,
		"files":    len(files),
		"duration": time.Since(start).String(),
	})
	return resp, nil
}

// matchRepo returns the first valid registered work tree with a remote
// naming the same repository as remote, or nil.
func (r *Resolver) matchRepo(ctx context.Context, remote string) (*repos.RepoEntry, error) {
	if strings.TrimSpace(remote) == "" {
		return nil, nil
	}
	for _, entry := range r.repos.List() {
		if entry.State() != repos.RepoStateValid {
			r.logger.Debug("Skipping unusable repository", map[string]interface{}{
				"repo":  entry.Name,
				"path":  entry.Path,
				"state": string(entry.State()),
			})
			continue
		}
		remotes, err := r.git.ListRemotes(ctx, entry.Path)
		if err != nil {
			return nil, fmt.Errorf("listing remotes of %s: %w", entry.Path, err)
		}
		if r.remotes.Matches(ctx, remote, remotes) {
			e := entry
			return &e, nil
		}
	}
	return nil, nil
}

// ensureRevision checks sha, fetching all remotes once when it is missing.
// Concurrent callers for the same work tree share one fetch, which runs
// detached from any single caller's cancellation and is bounded by the
// fetch timeout. A caller whose ctx ends stops waiting and gets false.
func (r *Resolver) ensureRevision(ctx context.Context, repoPath, sha string, logger *logging.Logger) bool {
	if r.git.IsValidRevision(ctx, repoPath, sha) {
		return true
	}
	logger.Info("Commit not found locally, fetching remotes", map[string]interface{}{
		"sha": sha,
	})
	ch := r.fetches.DoChan(repoPath, func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.fetchTimeout)
		defer cancel()
		return nil, r.git.FetchAllRemotes(fetchCtx, repoPath)
	})

	select {
	case res := <-ch:
		if res.Shared {
			logger.Debug("Joined in-flight fetch", map[string]interface{}{
				"repo": repoPath,
			})
		}
		if res.Err != nil {
			logger.Warn("Fetch failed", map[string]interface{}{
				"error": res.Err.Error(),
			})
		}
	case <-ctx.Done():
		logger.Warn("Stopped waiting for fetch", map[string]interface{}{
			"error": ctx.Err().Error(),
		})
		return false
	}
	return r.git.IsValidRevision(ctx, repoPath, sha)
}

// resolveFrameSafe turns a panic while resolving one frame into a frame error.
func (r *Resolver) resolveFrameSafe(ctx context.Context, repo *repos.RepoEntry, files []string, sha string, frame stacktrace.Frame, logger *logging.Logger) (parsed, resolved stacktrace.Frame) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Warn("Frame resolution panicked", map[string]interface{}{
				"panic": fmt.Sprint(rec),
			})
			parsed = frame.Clone()
			resolved = frame.Clone()
			msg := fmt.Sprintf("Unable to resolve frame: %v", rec)
			resolved.Error = &msg
		}
	}()
	return r.resolveFrame(ctx, repo, files, sha, frame, logger)
}

// resolveFrame returns the frame annotated with its repository-relative
// path and the frame moved to the current buffer.
func (r *Resolver) resolveFrame(ctx context.Context, repo *repos.RepoEntry, files []string, sha string, frame stacktrace.Frame, logger *logging.Logger) (stacktrace.Frame, stacktrace.Frame) {
	parsed := frame.Clone()
	resolved := frame.Clone()
	if frame.Error != nil {
		return parsed, resolved
	}

	fail := func(msg string) (stacktrace.Frame, stacktrace.Frame) {
		resolved.Error = &msg
		logger.Debug("Frame not resolved", map[string]interface{}{
			"error": msg,
		})
		return parsed, resolved
	}

	suffix := ""
	if frame.FileFullPath != nil {
		suffix = *frame.FileFullPath
	}
	match, ok := pathmatch.BestMatch(suffix, files)
	if !ok {
		return fail(unmatchedFileMessage(suffix))
	}
	rel, err := filepath.Rel(repo.Path, match)
	if err != nil {
		return fail(unmatchedFileMessage(suffix))
	}
	rel = filepath.ToSlash(rel)
	parsed.FileRelativePath = &rel
	resolved.FileRelativePath = &rel
	resolved.FileFullPath = &match

	if frame.Line == nil {
		return fail(noLineMessage)
	}

	pos := r.translate(ctx, repo.Path, match, sha, *frame.Line, frame.Column)
	if pos.err != "" {
		return fail(pos.err)
	}
	resolved.Line = &pos.line
	resolved.Column = pos.column
	resolved.Symbol = pos.symbol
	return parsed, resolved
}

func cloneTrace(p *stacktrace.ParsedStackTrace) *stacktrace.ParsedStackTrace {
	c := *p
	c.Lines = make([]stacktrace.Frame, len(p.Lines))
	for i, f := range p.Lines {
		c.Lines[i] = f.Clone()
	}
	return &c
}
