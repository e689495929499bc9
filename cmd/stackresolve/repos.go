package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"stackresolve/internal/backends/git"
	"stackresolve/internal/repos"
)

var reposAddName string

var reposCmd = &cobra.Command{
	Use:   "repos",
	Short: "Manage the work trees stack traces are resolved against",
	Long: `Manage the workspace: the local work trees stack traces can be resolved
against. A trace is matched to a work tree by comparing its remote URL with
the work tree's git remotes.

Workspace location: ~/.stackresolve/workspace.toml`,
}

var reposAddCmd = &cobra.Command{
	Use:   "add [path]",
	Short: "Register a work tree",
	Long: `Register the git work tree containing path, or the current directory
when path is omitted. The name defaults to the work tree's directory name.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReposAdd,
}

var reposListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered work trees",
	RunE:  runReposList,
}

var reposRemoveCmd = &cobra.Command{
	Use:   "remove <name|id>",
	Short: "Unregister a work tree",
	Args:  cobra.ExactArgs(1),
	RunE:  runReposRemove,
}

func init() {
	reposAddCmd.Flags().StringVar(&reposAddName, "name", "", "Name for the work tree")

	reposCmd.AddCommand(reposAddCmd)
	reposCmd.AddCommand(reposListCmd)
	reposCmd.AddCommand(reposRemoveCmd)
	rootCmd.AddCommand(reposCmd)
}

// RepoListResponseCLI is the output of "repos list".
type RepoListResponseCLI struct {
	Repos []RepoRowCLI `json:"repos"`
}

// RepoRowCLI is one registered work tree.
type RepoRowCLI struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Path       string          `json:"path"`
	State      repos.RepoState `json:"state"`
	Remotes    []string        `json:"remotes,omitempty"`
	AddedAt    time.Time       `json:"addedAt"`
	LastUsedAt *time.Time      `json:"lastUsedAt,omitempty"`
}

func runReposAdd(cmd *cobra.Command, args []string) error {
	path := ""
	if len(args) == 1 {
		path = args[0]
	} else {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get current directory: %w", err)
		}
		path = cwd
	}

	registry, _, err := openRegistry()
	if err != nil {
		return err
	}
	entry, err := registry.Add(reposAddName, path)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Added %s\n", entry.Name)
	fmt.Fprintf(out, "  ID:   %s\n", entry.ID)
	fmt.Fprintf(out, "  Path: %s\n", entry.Path)
	return nil
}

func runReposList(cmd *cobra.Command, args []string) error {
	format, err := outputFormat()
	if err != nil {
		return err
	}
	registry, cfg, err := openRegistry()
	if err != nil {
		return err
	}

	// Remotes are informational; a missing git binary only hides them.
	adapter, _ := git.NewGitAdapter(cfg, newLogger(cfg))
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	resp := &RepoListResponseCLI{Repos: []RepoRowCLI{}}
	for _, entry := range registry.List() {
		row := RepoRowCLI{
			ID:         entry.ID,
			Name:       entry.Name,
			Path:       entry.Path,
			State:      entry.State(),
			AddedAt:    entry.AddedAt,
			LastUsedAt: entry.LastUsedAt,
		}
		if adapter != nil && row.State == repos.RepoStateValid {
			row.Remotes, _ = adapter.ListRemotes(ctx, entry.Path)
		}
		resp.Repos = append(resp.Repos, row)
	}
	return printResponse(cmd, resp, format)
}

func runReposRemove(cmd *cobra.Command, args []string) error {
	registry, _, err := openRegistry()
	if err != nil {
		return err
	}
	if err := registry.Remove(args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[0])
	return nil
}
