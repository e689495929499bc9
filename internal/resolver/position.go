package resolver

import (
	"context"
	"path/filepath"

	"stackresolve/internal/diff"
	"stackresolve/internal/errors"
	"stackresolve/internal/location"
	"stackresolve/internal/paths"
	"stackresolve/internal/repos"
	"stackresolve/internal/stacktrace"
)

// ResolveStackTracePosition moves one position of a registered repository
// from req.Sha to the current buffer. No remote matching or fetching takes
// place. Resolution failures are reported in the response.
func (r *Resolver) ResolveStackTracePosition(ctx context.Context, req PositionRequest) (*PositionResponse, error) {
	if req.RepoID == "" || req.FilePath == "" || req.Sha == "" {
		return nil, errors.New(errors.InvalidArgument, "sha, repoId and filePath are required", nil)
	}
	if req.Line < 1 {
		return &PositionResponse{Error: noLineMessage}, nil
	}

	repo, state, err := r.repos.Get(req.RepoID)
	if err != nil {
		return nil, err
	}
	if state != repos.RepoStateValid {
		return nil, errors.New(errors.RepoNotFound, "Repository is not a usable git work tree", nil).
			WithDetails(map[string]interface{}{"repo": repo.Name, "state": string(state)})
	}

	file := req.FilePath
	if !filepath.IsAbs(file) {
		file = paths.JoinRepoPath(repo.Path, file)
	}
	if !paths.IsWithinRepo(file, repo.Path) {
		return nil, errors.New(errors.InvalidArgument, "filePath is outside the repository", nil).
			WithDetails(map[string]interface{}{"repo": repo.Name, "filePath": req.FilePath})
	}

	var column *int
	if req.Column > 0 {
		c := req.Column
		column = &c
	}

	pos := r.translate(ctx, repo.Path, file, req.Sha, req.Line, column)
	if pos.err != "" {
		r.logger.Debug("Position not resolved", map[string]interface{}{
			"repo":  repo.Name,
			"file":  file,
			"error": pos.err,
		})
		return &PositionResponse{Error: pos.err}, nil
	}
	return &PositionResponse{
		Line:   &pos.line,
		Column: pos.column,
		Path:   file,
		Symbol: pos.symbol,
	}, nil
}

// position is a translated 1-based location or the reason there is none.
type position struct {
	line   int
	column *int
	symbol *stacktrace.Symbol
	err    string
}

// translate carries a 1-based line and optional column of file from sha to
// HEAD and then from HEAD to the current buffer. A column that cannot be
// carried over comes back nil.
func (r *Resolver) translate(ctx context.Context, repoPath, file, sha string, line int, column *int) position {
	toHead, err := r.git.DiffBetween(ctx, repoPath, sha, "HEAD", file)
	if err != nil {
		return position{err: diffFailedMessage(sha)}
	}
	if toHead != nil && toHead.FileDeleted {
		return position{err: deletedAtHeadMessage(file, sha)}
	}

	headText, err := r.git.FileContentAt(ctx, repoPath, file, "HEAD")
	if err != nil || headText == nil {
		return position{err: unreadableHeadMessage(file)}
	}
	head := diff.NormalizeText(*headText)
	if toHead != nil {
		toHead.NewLineCount = len(diff.SplitLines(head))
	}

	bufferText, err := r.documents.Text(paths.FileURI(file))
	if err != nil {
		return position{err: unreadableBufferMessage(file)}
	}
	buffer := diff.NormalizeText(bufferText)

	col := 0
	if column != nil && *column > 0 {
		col = *column - 1
	}
	anchor := location.Point(line-1, col)
	anchor = location.Translate(anchor, toHead)
	anchor = location.Translate(anchor, diff.Lines(head, buffer))

	pos := position{line: anchor.LineStart + 1}
	if column != nil && anchor.ColStart != location.MaxRangeValue {
		c := anchor.ColStart + 1
		pos.column = &c
	}

	if r.symbols != nil {
		sym, err := r.symbols.Enclosing(ctx, file, buffer, pos.line)
		if err != nil {
			r.logger.Debug("Symbol lookup failed", map[string]interface{}{
				"file":  file,
				"error": err.Error(),
			})
		}
		pos.symbol = sym
	}
	return pos
}
