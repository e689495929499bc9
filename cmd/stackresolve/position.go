package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"stackresolve/internal/resolver"
)

var positionSha string

var positionCmd = &cobra.Command{
	Use:   "position <file> <line> [column]",
	Short: "Resolve one position from a past commit to the current file",
	Long: `Move a single line (and optional column) of file at --sha to where it
is now. file is absolute or relative to the active repository (see --repo).

Examples:
  stackresolve position src/server.js 42 7 --sha 3f2c1a9
  stackresolve position --repo shop lib/cart.rb 10 --sha 3f2c1a9`,
	Args: cobra.RangeArgs(2, 3),
	RunE: runPosition,
}

func init() {
	positionCmd.Flags().StringVar(&positionSha, "sha", "", "Commit the position refers to")
	_ = positionCmd.MarkFlagRequired("sha")
	rootCmd.AddCommand(positionCmd)
}

func runPosition(cmd *cobra.Command, args []string) error {
	format, err := outputFormat()
	if err != nil {
		return err
	}
	line, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid line %q", args[1])
	}
	column := 0
	if len(args) == 3 {
		if column, err = strconv.Atoi(args[2]); err != nil {
			return fmt.Errorf("invalid column %q", args[2])
		}
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	entry, err := a.activeRepo()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	resp, err := a.resolver.ResolveStackTracePosition(ctx, resolver.PositionRequest{
		Sha:      positionSha,
		RepoID:   entry.ID,
		FilePath: args[0],
		Line:     line,
		Column:   column,
	})
	if err != nil {
		return err
	}
	return printResponse(cmd, resp, format)
}
