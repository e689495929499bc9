package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// CurrentVersion is the only config schema version this build understands.
const CurrentVersion = 1

// EnvPrefix prefixes every environment override, e.g. STACKRESOLVE_GIT_TIMEOUTMS.
const EnvPrefix = "STACKRESOLVE"

// Config represents the complete stackresolve configuration
type Config struct {
	Version int `json:"version" mapstructure:"version"`

	Git        GitConfig        `json:"git" mapstructure:"git"`
	Resolution ResolutionConfig `json:"resolution" mapstructure:"resolution"`
	Languages  LanguagesConfig  `json:"languages" mapstructure:"languages"`
	Remotes    RemotesConfig    `json:"remotes" mapstructure:"remotes"`
	Workspace  WorkspaceConfig  `json:"workspace" mapstructure:"workspace"`
	Server     ServerConfig     `json:"server" mapstructure:"server"`
	Logging    LoggingConfig    `json:"logging" mapstructure:"logging"`
}

// GitConfig contains settings for the git subprocess backend
type GitConfig struct {
	Binary         string `json:"binary" mapstructure:"binary"`
	TimeoutMs      int    `json:"timeoutMs" mapstructure:"timeoutMs"`
	FetchTimeoutMs int    `json:"fetchTimeoutMs" mapstructure:"fetchTimeoutMs"`
}

// ResolutionConfig controls how stack traces are resolved
type ResolutionConfig struct {
	FrameConcurrency int      `json:"frameConcurrency" mapstructure:"frameConcurrency"`
	ExcludedDirs     []string `json:"excludedDirs" mapstructure:"excludedDirs"`
	SymbolContext    bool     `json:"symbolContext" mapstructure:"symbolContext"`
	HelpURL          string   `json:"helpUrl" mapstructure:"helpUrl"`
}

// ExtensionMapping maps a file extension to a stack trace language name.
// Language names accept the usual aliases ("csharp", "golang", "node").
type ExtensionMapping struct {
	Extension string `json:"extension" mapstructure:"extension"`
	Language  string `json:"language" mapstructure:"language"`
}

// LanguagesConfig extends the built-in extension table used for language detection
type LanguagesConfig struct {
	Extensions []ExtensionMapping `json:"extensions" mapstructure:"extensions"`
}

// RemotesConfig contains remote URL normalization settings
type RemotesConfig struct {
	ResolveSSHAliases bool   `json:"resolveSshAliases" mapstructure:"resolveSshAliases"`
	SSHBinary         string `json:"sshBinary" mapstructure:"sshBinary"`
	SSHTimeoutMs      int    `json:"sshTimeoutMs" mapstructure:"sshTimeoutMs"`
}

// WorkspaceConfig points at the registry of locally open repositories
type WorkspaceConfig struct {
	Path string `json:"path" mapstructure:"path"`
}

// ServerConfig contains HTTP API settings
type ServerConfig struct {
	Host string `json:"host" mapstructure:"host"`
	Port int    `json:"port" mapstructure:"port"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Format string `json:"format" mapstructure:"format"`
	Level  string `json:"level" mapstructure:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version: CurrentVersion,
		Git: GitConfig{
			Binary:         "git",
			TimeoutMs:      5000,
			FetchTimeoutMs: 60000,
		},
		Resolution: ResolutionConfig{
			FrameConcurrency: 4,
			ExcludedDirs:     []string{".git", "node_modules"},
			SymbolContext:    true,
			HelpURL:          "",
		},
		Languages: LanguagesConfig{
			Extensions: []ExtensionMapping{},
		},
		Remotes: RemotesConfig{
			ResolveSSHAliases: true,
			SSHBinary:         "ssh",
			SSHTimeoutMs:      3000,
		},
		Workspace: WorkspaceConfig{
			Path: "",
		},
		Server: ServerConfig{
			Host: "localhost",
			Port: 9330,
		},
		Logging: LoggingConfig{
			Format: "human",
			Level:  "info",
		},
	}
}

// DefaultDir returns the directory holding config.json and the workspace
// registry. STACKRESOLVE_HOME overrides ~/.stackresolve.
func DefaultDir() (string, error) {
	if dir := os.Getenv(EnvPrefix + "_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".stackresolve"), nil
}

// WorkspacePath returns the configured workspace file, defaulting to
// workspace.toml next to config.json.
func (c *Config) WorkspacePath(dir string) string {
	if c.Workspace.Path != "" {
		return expandHome(c.Workspace.Path)
	}
	return filepath.Join(dir, "workspace.toml")
}

func newViper() *viper.Viper {
	v := viper.New()

	def := DefaultConfig()
	v.SetDefault("version", def.Version)
	v.SetDefault("git.binary", def.Git.Binary)
	v.SetDefault("git.timeoutMs", def.Git.TimeoutMs)
	v.SetDefault("git.fetchTimeoutMs", def.Git.FetchTimeoutMs)
	v.SetDefault("resolution.frameConcurrency", def.Resolution.FrameConcurrency)
	v.SetDefault("resolution.excludedDirs", def.Resolution.ExcludedDirs)
	v.SetDefault("resolution.symbolContext", def.Resolution.SymbolContext)
	v.SetDefault("resolution.helpUrl", def.Resolution.HelpURL)
	v.SetDefault("languages.extensions", def.Languages.Extensions)
	v.SetDefault("remotes.resolveSshAliases", def.Remotes.ResolveSSHAliases)
	v.SetDefault("remotes.sshBinary", def.Remotes.SSHBinary)
	v.SetDefault("remotes.sshTimeoutMs", def.Remotes.SSHTimeoutMs)
	v.SetDefault("workspace.path", def.Workspace.Path)
	v.SetDefault("server.host", def.Server.Host)
	v.SetDefault("server.port", def.Server.Port)
	v.SetDefault("logging.format", def.Logging.Format)
	v.SetDefault("logging.level", def.Logging.Level)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// LoadConfig loads configuration from <dir>/config.json. A missing file
// yields the defaults, still subject to environment overrides.
func LoadConfig(dir string) (*Config, error) {
	v := newViper()

	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(dir)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	return &cfg, nil
}

// Save writes the configuration to <dir>/config.json
func (c *Config) Save(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(dir, "config.json"), data, 0o644)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Version != CurrentVersion {
		return &ConfigError{Field: "version", Message: fmt.Sprintf("unsupported config version %d", c.Version)}
	}
	if c.Git.Binary == "" {
		return &ConfigError{Field: "git.binary", Message: "must not be empty"}
	}
	if c.Git.TimeoutMs <= 0 {
		return &ConfigError{Field: "git.timeoutMs", Message: "must be positive"}
	}
	if c.Git.FetchTimeoutMs <= 0 {
		return &ConfigError{Field: "git.fetchTimeoutMs", Message: "must be positive"}
	}
	if c.Resolution.FrameConcurrency < 1 {
		return &ConfigError{Field: "resolution.frameConcurrency", Message: "must be at least 1"}
	}
	for i, m := range c.Languages.Extensions {
		if !strings.HasPrefix(m.Extension, ".") {
			return &ConfigError{
				Field:   fmt.Sprintf("languages.extensions[%d].extension", i),
				Message: fmt.Sprintf("%q must start with a dot", m.Extension),
			}
		}
	}
	switch c.Logging.Format {
	case "human", "json":
	default:
		return &ConfigError{Field: "logging.format", Message: fmt.Sprintf("unknown format %q", c.Logging.Format)}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}
