package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"stackresolve/internal/config"
	"stackresolve/internal/logging"
	"stackresolve/internal/version"
)

var (
	formatFlag    string
	configDirFlag string
	logLevelFlag  string
	repoFlag      string
)

var rootCmd = &cobra.Command{
	Use:   "stackresolve",
	Short: "Map production stack traces onto your local code",
	Long: `stackresolve parses stack traces from JavaScript, Ruby, PHP, Python, C#,
Java and Go, finds the local work tree whose git remote matches the
failing service, and moves every frame from the deployed commit to the
current contents of your files, unsaved buffers included.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate("stackresolve version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&formatFlag, "format", string(FormatHuman),
		"Output format: human, json, yaml or toml")
	rootCmd.PersistentFlags().StringVar(&configDirFlag, "config-dir", "",
		"Directory holding config.json and workspace.toml (default: $STACKRESOLVE_HOME or ~/.stackresolve)")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "",
		"Log level: debug, info, warn or error (default: from config)")
	rootCmd.PersistentFlags().StringVar(&repoFlag, "repo", "",
		"Registered repository id or name (default: $STACKRESOLVE_REPO, then the current directory)")
}

// outputFormat validates --format.
func outputFormat() (OutputFormat, error) {
	f := OutputFormat(formatFlag)
	switch f {
	case FormatHuman, FormatJSON, FormatYAML, FormatTOML:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported format: %s", formatFlag)
	}
}

// loadConfig reads the configuration directory selected by flags.
func loadConfig() (*config.Config, string, error) {
	dir := configDirFlag
	if dir == "" {
		d, err := config.DefaultDir()
		if err != nil {
			return nil, "", err
		}
		dir = d
	}
	cfg, err := config.LoadConfig(dir)
	if err != nil {
		return nil, "", err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	return cfg, dir, nil
}

func newLogger(cfg *config.Config) *logging.Logger {
	level := cfg.Logging.Level
	if logLevelFlag != "" {
		level = logLevelFlag
	}
	return logging.NewLogger(logging.Config{
		Format: logging.Format(cfg.Logging.Format),
		Level:  logging.ParseLevel(level),
	})
}
