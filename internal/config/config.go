package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"atelier/internal/logging"

	"github.com/BurntSushi/toml"
	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

const APP_NAME = "atelier" // application name used for config directory

// ConfigPathEnv overrides the config file location when set.
const ConfigPathEnv = "ATELIER_CONFIG_PATH"

// LocalConfigPath is checked after the user config, relative to the working directory.
const LocalConfigPath = "config/default.toml"

// Version is stamped at build time with -ldflags "-X atelier/internal/config.Version=...".
var Version = "0.1.0"

// Config holds user configuration for atelier.
type Config struct {
	Server  ServerConfig  `yaml:"server" toml:"server"`
	Fabric  FabricConfig  `yaml:"fabric" toml:"fabric"`
	LLM     LLMConfig     `yaml:"llm" toml:"llm"`
	Metrics MetricsConfig `yaml:"metrics" toml:"metrics"`
}

// ServerConfig is reported to MCP clients in the initialize handshake.
type ServerConfig struct {
	Name    string `yaml:"name" toml:"name"`
	Version string `yaml:"version" toml:"version"`
}

// FabricConfig locates patterns and the fabric CLI.
type FabricConfig struct {
	// PatternsDir is checked before the built-in candidate locations when set.
	PatternsDir string `yaml:"patterns_dir,omitempty" toml:"patterns_dir"`
	CLIPath     string `yaml:"cli_path,omitempty" toml:"cli_path"`
	TimeoutSecs int    `yaml:"timeout_secs" toml:"timeout_secs"`
	// MaxFileSize bounds system.md in bytes.
	MaxFileSize int64  `yaml:"max_file_size" toml:"max_file_size"`
	RepoURL     string `yaml:"repo_url" toml:"repo_url"`
	RepoBranch  string `yaml:"repo_branch,omitempty" toml:"repo_branch"`
	RepoPath    string `yaml:"repo_path" toml:"repo_path"`
}

// LLMConfig selects the provider used by the ask command.
type LLMConfig struct {
	Provider  string `yaml:"provider" toml:"provider"`
	Model     string `yaml:"model" toml:"model"`
	BaseURL   string `yaml:"base_url,omitempty" toml:"base_url"`
	MaxTokens int    `yaml:"max_tokens" toml:"max_tokens"`
}

// MetricsConfig enables the Prometheus endpoint when Addr is non-empty.
type MetricsConfig struct {
	Addr string `yaml:"addr,omitempty" toml:"addr"`
}

// Timeout returns the fabric CLI timeout as a duration.
func (f FabricConfig) Timeout() time.Duration {
	return time.Duration(f.TimeoutSecs) * time.Second
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Name:    APP_NAME,
			Version: Version,
		},
		Fabric: FabricConfig{
			TimeoutSecs: 30,
			MaxFileSize: 5 * 1024 * 1024,
			RepoURL:     "https://github.com/danielmiessler/fabric.git",
			RepoPath:    "data/fabric",
		},
		LLM: LLMConfig{
			Provider:  "anthropic",
			Model:     "claude-3-7-sonnet-latest",
			MaxTokens: 4096,
		},
	}
}

// ConfigPath returns the standard config file path for the current platform
func ConfigPath() (string, error) {
	if override := strings.TrimSpace(os.Getenv(ConfigPathEnv)); override != "" {
		return override, nil
	}

	configDir := filepath.Join(xdg.ConfigHome, APP_NAME)
	configPath := filepath.Join(configDir, "config.yaml")

	logging.Debug("Determined config paths", "path", configPath)
	return configPath, nil
}

// FindConfigFile returns the path to an existing config file, and whether it exists.
// The user config wins over ./config/default.toml.
func FindConfigFile() (string, bool) {
	primary, err := ConfigPath()
	if err != nil {
		logging.Error("Failed to get config path", "error", err)
		return "", false
	}

	if _, err := os.Stat(primary); err == nil {
		logging.Debug("Config found at primary path", "path", primary)
		return primary, true
	}

	if _, err := os.Stat(LocalConfigPath); err == nil {
		logging.Debug("Config found at local path", "path", LocalConfigPath)
		return LocalConfigPath, true
	}

	return primary, false
}

// Load loads the config from the standard locations. A missing file is not an
// error: defaults are returned.
func Load() (*Config, error) {
	configPath, exists := FindConfigFile()
	if !exists {
		logging.Debug("No config file found, using defaults", "path", configPath)
		cfg := Default()
		return &cfg, nil
	}

	return LoadFrom(configPath)
}

// LoadFrom loads config from a specific path. Files ending in .toml are decoded
// as TOML, everything else as YAML. Fields absent from the file keep their defaults.
func LoadFrom(path string) (*Config, error) {
	logging.Debug("Reading config file", "path", path)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	cfg := Default()
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.NewDecoder(f).Decode(&cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file '%s': %w", path, err)
		}
	} else {
		dec := yaml.NewDecoder(f)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to parse config file '%s': %w", path, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file '%s': %w", path, err)
	}

	return &cfg, nil
}

// Validate rejects values that would make the server unusable.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Server.Name) == "" {
		return fmt.Errorf("server.name cannot be empty")
	}
	if c.Fabric.TimeoutSecs <= 0 {
		return fmt.Errorf("fabric.timeout_secs must be positive, got %d", c.Fabric.TimeoutSecs)
	}
	if c.Fabric.MaxFileSize <= 0 {
		return fmt.Errorf("fabric.max_file_size must be positive, got %d", c.Fabric.MaxFileSize)
	}
	return nil
}

// Save writes the config to the standard location
func (c *Config) Save() error {
	configPath, err := ConfigPath()
	if err != nil {
		return err
	}
	return c.SaveTo(configPath)
}

// SaveTo writes the config to a specific path as YAML.
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Create file with restrictive permissions (600) for security
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	enc := yaml.NewEncoder(f)
	defer enc.Close()

	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}
