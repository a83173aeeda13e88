package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	API      API      `yaml:"api"`
	Analysis Analysis `yaml:"analysis"`
	History  History  `yaml:"history"`
	Output   Output   `yaml:"output"`
	Logging  Logging  `yaml:"logging"`
}

type API struct {
	BaseURL        string `yaml:"base_url"`
	AuthURL        string `yaml:"auth_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type Analysis struct {
	PollIntervalSeconds       int `yaml:"poll_interval_seconds"`
	QueueRetryIntervalSeconds int `yaml:"queue_retry_interval_seconds"`
	MaxPollAttempts           int `yaml:"max_poll_attempts"`
}

type History struct {
	PageSize int `yaml:"page_size"`
}

type Output struct {
	DataDir string `yaml:"data_dir"`
}

type Logging struct {
	Level string `yaml:"level"`
}

// ConfigDir returns the XDG config directory for habrsum.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "habrsum")
}

// DataDir returns the XDG data directory for habrsum.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "habrsum")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/habrsum/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'habrsum init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file, then applies env overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg, err := parse(data)
	if err != nil {
		return nil, err
	}
	cfg.applyEnv()
	return cfg, nil
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		API: API{
			BaseURL:        "http://localhost:8000/api/v1",
			AuthURL:        "http://localhost:8000/auth",
			TimeoutSeconds: 30,
		},
		Analysis: Analysis{
			PollIntervalSeconds:       5,
			QueueRetryIntervalSeconds: 30,
			MaxPollAttempts:           120,
		},
		History: History{PageSize: 10},
		Logging: Logging{Level: "INFO"},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// applyEnv lets the endpoint prefixes be overridden without editing the
// config file, e.g. to point at a staging backend.
func (c *Config) applyEnv() {
	if v := os.Getenv("HABRSUM_API_BASE"); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv("HABRSUM_AUTH_BASE"); v != "" {
		c.API.AuthURL = v
	}
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

// RequestTimeout returns the per-request HTTP timeout.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.API.TimeoutSeconds) * time.Second
}

// PollInterval returns the delay between result polls.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Analysis.PollIntervalSeconds) * time.Second
}

// QueueRetryInterval returns the delay between admission re-checks.
func (c *Config) QueueRetryInterval() time.Duration {
	return time.Duration(c.Analysis.QueueRetryIntervalSeconds) * time.Second
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
