package git

import (
	"bytes"
	"context"
	stderrors "errors"
	"os/exec"
	"strings"
	"time"

	"stackresolve/internal/config"
	"stackresolve/internal/errors"
	"stackresolve/internal/logging"
)

const (
	// DefaultQueryTimeout is the default timeout for git operations (5000ms)
	DefaultQueryTimeout = 5000 * time.Millisecond

	// DefaultFetchTimeout bounds network operations (60s)
	DefaultFetchTimeout = 60 * time.Second
)

// GitAdapter runs the git binary. It is not bound to a repository; each
// query names the work tree it runs in.
type GitAdapter struct {
	binary       string
	queryTimeout time.Duration
	fetchTimeout time.Duration
	logger       *logging.Logger
}

var _ GitBackend = (*GitAdapter)(nil)

// NewGitAdapter creates a new Git backend adapter
func NewGitAdapter(cfg *config.Config, logger *logging.Logger) (*GitAdapter, error) {
	if logger == nil {
		return nil, errors.New(errors.InternalError, "Logger is required for GitAdapter", nil)
	}
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	timeout := DefaultQueryTimeout
	if cfg.Git.TimeoutMs > 0 {
		timeout = time.Duration(cfg.Git.TimeoutMs) * time.Millisecond
	}
	fetchTimeout := DefaultFetchTimeout
	if cfg.Git.FetchTimeoutMs > 0 {
		fetchTimeout = time.Duration(cfg.Git.FetchTimeoutMs) * time.Millisecond
	}
	binary := cfg.Git.Binary
	if binary == "" {
		binary = "git"
	}

	adapter := &GitAdapter{
		binary:       binary,
		queryTimeout: timeout,
		fetchTimeout: fetchTimeout,
		logger:       logger,
	}

	if !adapter.IsAvailable() {
		return nil, errors.New(
			errors.BackendUnavailable,
			"Git is not available on PATH",
			nil,
		).WithDetails(map[string]interface{}{"binary": binary})
	}

	logger.Debug("Git adapter initialized", map[string]interface{}{
		"binary":       binary,
		"timeout":      timeout.String(),
		"fetchTimeout": fetchTimeout.String(),
	})

	return adapter, nil
}

// IsAvailable checks that the git binary can be found
func (g *GitAdapter) IsAvailable() bool {
	_, err := exec.LookPath(g.binary)
	return err == nil
}

// run executes git in dir and returns raw stdout.
func (g *GitAdapter) run(ctx context.Context, dir string, timeout time.Duration, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, g.binary, args...)
	cmd.Dir = dir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	g.logger.Debug("Executing git command", map[string]interface{}{
		"args":    args,
		"dir":     dir,
		"timeout": timeout.String(),
	})

	output, err := cmd.Output()
	if err != nil {
		if stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, errors.New(errors.Timeout, "Git command timed out", err).
				WithDetails(map[string]interface{}{"args": args})
		}

		var exitErr *exec.ExitError
		if stderrors.As(err, &exitErr) {
			return nil, errors.New(errors.InternalError, "Git command failed", err).
				WithDetails(map[string]interface{}{
					"args":     args,
					"exitCode": exitErr.ExitCode(),
					"stderr":   strings.TrimSpace(stderr.String()),
				})
		}

		return nil, errors.New(errors.BackendUnavailable, "Failed to execute git command", err)
	}

	return output, nil
}

// executeGitCommand runs a git command with timeout and returns trimmed output
func (g *GitAdapter) executeGitCommand(ctx context.Context, dir string, args ...string) (string, error) {
	output, err := g.run(ctx, dir, g.queryTimeout, args...)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(output)), nil
}

// executeGitCommandLines runs a git command and returns output as lines
func (g *GitAdapter) executeGitCommandLines(ctx context.Context, dir string, args ...string) ([]string, error) {
	output, err := g.executeGitCommand(ctx, dir, args...)
	if err != nil {
		return nil, err
	}

	if output == "" {
		return []string{}, nil
	}

	lines := strings.Split(output, "\n")
	result := make([]string, 0, len(lines))
	for _, line := range lines {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result, nil
}

// stderrOf returns the captured stderr of a failed git command.
func stderrOf(err error) string {
	var se *errors.StackError
	if !stderrors.As(err, &se) {
		return ""
	}
	if details, ok := se.Details.(map[string]interface{}); ok {
		if s, ok := details["stderr"].(string); ok {
			return s
		}
	}
	return ""
}
