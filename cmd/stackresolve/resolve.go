package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"stackresolve/internal/resolver"
	"stackresolve/internal/stacktrace"
)

var (
	resolveRemote  string
	resolveSha     string
	resolveTraceID string
)

var resolveCmd = &cobra.Command{
	Use:   "resolve [file]",
	Short: "Resolve a stack trace against the matching local work tree",
	Long: `Resolve every frame of a stack trace to the current contents of the
registered work tree whose remote matches --remote. Frames are followed
through the commits between --sha and HEAD and through uncommitted edits.

When --remote is omitted the first remote of the active repository is used
(see --repo).

Examples:
  stackresolve resolve crash.txt --sha 3f2c1a9 --remote git@github.com:acme/shop.git
  stackresolve resolve --sha 3f2c1a9 < crash.txt`,
	Args: cobra.MaximumNArgs(1),
	RunE: runResolve,
}

func init() {
	resolveCmd.Flags().StringVar(&resolveRemote, "remote", "", "Remote URL of the repository that produced the trace")
	resolveCmd.Flags().StringVar(&resolveSha, "sha", "", "Commit the failing code was built from")
	resolveCmd.Flags().StringVar(&resolveTraceID, "trace-id", "", "Correlation id echoed in the output")
	_ = resolveCmd.MarkFlagRequired("sha")
	rootCmd.AddCommand(resolveCmd)
}

func runResolve(cmd *cobra.Command, args []string) error {
	format, err := outputFormat()
	if err != nil {
		return err
	}
	raw, err := readTrace(cmd, args)
	if err != nil {
		return err
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	remote := resolveRemote
	if remote == "" {
		remote, err = a.activeRemote(ctx)
		if err != nil {
			return err
		}
	}

	resp, err := a.resolver.ResolveStackTrace(ctx, resolver.ResolveRequest{
		StackTrace: strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n"),
		RepoRemote: remote,
		Sha:        resolveSha,
		TraceID:    resolveTraceID,
		OnFrameResolved: func(index int, frame stacktrace.Frame) {
			fields := map[string]interface{}{"index": index}
			if frame.Error != nil {
				fields["error"] = *frame.Error
			} else if frame.Line != nil {
				fields["position"] = position(displayPath(frame), frame.Line, frame.Column)
			}
			a.logger.Debug("Frame resolved", fields)
		},
	})
	if err != nil {
		return err
	}
	if resp.RepoID != "" {
		_ = a.registry.TouchLastUsed(resp.RepoID)
	}
	return printResponse(cmd, resp, format)
}

// activeRemote returns the first remote of the active repository.
func (a *app) activeRemote(ctx context.Context) (string, error) {
	entry, err := a.activeRepo()
	if err != nil {
		return "", err
	}
	remotes, err := a.git.ListRemotes(ctx, entry.Path)
	if err != nil {
		return "", err
	}
	if len(remotes) == 0 {
		return "", fmt.Errorf("repository %s has no remotes; pass --remote", entry.Name)
	}
	return remotes[0], nil
}
