package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"stackresolve/internal/resolver"
	"stackresolve/internal/stacktrace"
)

var parseCmd = &cobra.Command{
	Use:   "parse [file]",
	Short: "Parse a stack trace into frames",
	Long: `Parse a stack trace and print its frames. The language is detected
from the trace itself.

Reads the trace from file, or from stdin when file is omitted or "-".

Examples:
  stackresolve parse crash.txt
  pbpaste | stackresolve parse --format json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runParse,
}

func init() {
	rootCmd.AddCommand(parseCmd)
}

func runParse(cmd *cobra.Command, args []string) error {
	format, err := outputFormat()
	if err != nil {
		return err
	}
	raw, err := readTrace(cmd, args)
	if err != nil {
		return err
	}

	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	detector, err := resolver.NewDetector(cfg)
	if err != nil {
		return err
	}
	registry := stacktrace.NewRegistry(detector, newLogger(cfg))
	return printResponse(cmd, registry.Parse(raw), format)
}

// readTrace reads args[0], or stdin when it is absent or "-".
func readTrace(cmd *cobra.Command, args []string) (string, error) {
	var (
		data []byte
		err  error
	)
	if len(args) == 0 || args[0] == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(args[0])
	}
	if err != nil {
		return "", fmt.Errorf("failed to read stack trace: %w", err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return "", fmt.Errorf("stack trace is empty")
	}
	return string(data), nil
}

func printResponse(cmd *cobra.Command, resp interface{}, format OutputFormat) error {
	out, err := FormatResponse(resp, format)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), out)
	return err
}
