package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"stackresolve/internal/config"
)

var (
	configShowDiff  bool
	configInitForce bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage stackresolve configuration",
	Long:  "View and manage the configuration stored in ~/.stackresolve/config.json",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long: `Display the effective configuration, environment overrides included.

Examples:
  stackresolve config show                 # Pretty-print current config
  stackresolve config show --format json   # Raw JSON output
  stackresolve config show --diff          # Only show non-default values`,
	RunE: runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration file",
	RunE:  runConfigInit,
}

func init() {
	configShowCmd.Flags().BoolVar(&configShowDiff, "diff", false, "Only show non-default values")
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "Overwrite an existing config.json")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}

// ConfigShowResponse is the response format for config show
type ConfigShowResponse struct {
	ConfigDir     string                 `json:"configDir"`
	ConfigFile    string                 `json:"configFile"`
	UsedDefaults  bool                   `json:"usedDefaults"`
	WorkspaceFile string                 `json:"workspaceFile"`
	Config        map[string]interface{} `json:"config"`
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	format, err := outputFormat()
	if err != nil {
		return err
	}
	cfg, dir, err := loadConfig()
	if err != nil {
		return err
	}

	configMap, err := toMap(cfg)
	if err != nil {
		return err
	}
	if configShowDiff {
		defaults, err := toMap(config.DefaultConfig())
		if err != nil {
			return err
		}
		configMap = computeDiff(configMap, defaults)
	}

	file := filepath.Join(dir, "config.json")
	_, statErr := os.Stat(file)

	return printResponse(cmd, &ConfigShowResponse{
		ConfigDir:     dir,
		ConfigFile:    file,
		UsedDefaults:  os.IsNotExist(statErr),
		WorkspaceFile: cfg.WorkspacePath(dir),
		Config:        configMap,
	}, format)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	dir := configDirFlag
	if dir == "" {
		d, err := config.DefaultDir()
		if err != nil {
			return err
		}
		dir = d
	}
	file := filepath.Join(dir, "config.json")
	if _, err := os.Stat(file); err == nil && !configInitForce {
		return fmt.Errorf("%s already exists; pass --force to overwrite", file)
	}
	if err := config.DefaultConfig().Save(dir); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", file)
	return nil
}

func toMap(v interface{}) (map[string]interface{}, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func computeDiff(current, defaults map[string]interface{}) map[string]interface{} {
	diff := make(map[string]interface{})
	computeDiffRecursive(current, defaults, diff)
	return diff
}

func computeDiffRecursive(current, defaults map[string]interface{}, diff map[string]interface{}) {
	for key, currentVal := range current {
		defaultVal, exists := defaults[key]
		if !exists {
			diff[key] = currentVal
			continue
		}

		currentMap, currentIsMap := currentVal.(map[string]interface{})
		defaultMap, defaultIsMap := defaultVal.(map[string]interface{})

		if currentIsMap && defaultIsMap {
			nestedDiff := make(map[string]interface{})
			computeDiffRecursive(currentMap, defaultMap, nestedDiff)
			if len(nestedDiff) > 0 {
				diff[key] = nestedDiff
			}
		} else if fmt.Sprintf("%v", currentVal) != fmt.Sprintf("%v", defaultVal) {
			diff[key] = currentVal
		}
	}
}
