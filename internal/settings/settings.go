// Package settings manages persisted application configuration and runtime
// file paths.
package settings

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/xenitz/cloudsocks/internal/util"
)

// ProxyConfig is the local SOCKS endpoint the tunnel listens on and the
// system proxy points at.
type ProxyConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// GCPConfig remembers the last-used gcloud target parameters.
type GCPConfig struct {
	Project  string `yaml:"project"`
	Zone     string `yaml:"zone"`
	Instance string `yaml:"instance"`
}

// AWSConfig remembers the last-used EC2 target parameters.
type AWSConfig struct {
	Region     string `yaml:"region"`
	InstanceID string `yaml:"instance_id"`
	Host       string `yaml:"host,omitempty"`
	User       string `yaml:"user"`
	KeyFile    string `yaml:"key_file,omitempty"`
}

// UIConfig contains TUI display settings.
type UIConfig struct {
	RefreshSeconds int `yaml:"refresh_seconds"`
}

// Config holds application-level configuration. Values are loaded once at
// startup and saved back when the user accepts a new connection form, so
// the next launch starts pre-filled.
type Config struct {
	Provider          string      `yaml:"provider"`
	Proxy             ProxyConfig `yaml:"proxy"`
	GCP               GCPConfig   `yaml:"gcp"`
	AWS               AWSConfig   `yaml:"aws"`
	SkipUpdateVersion string      `yaml:"skip_update_version,omitempty"`
	UI                UIConfig    `yaml:"ui"`
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		Provider: "gcp",
		Proxy:    ProxyConfig{Host: "127.0.0.1", Port: util.DefaultSocksPort},
		AWS:      AWSConfig{User: "ec2-user"},
		UI:       UIConfig{RefreshSeconds: util.DefaultRefreshSeconds},
	}
}

// ConfigDir returns the application config directory path.
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config/cloudsocks.
func ConfigDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "cloudsocks"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home: %w", err)
	}
	return filepath.Join(home, ".config", "cloudsocks"), nil
}

// JournalFilePath returns the full path to events.jsonl.
func JournalFilePath() (string, error) {
	d, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(d, "events.jsonl"), nil
}

// HistoryFilePath returns the full path to history.json.
func HistoryFilePath() (string, error) {
	d, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(d, "history.json"), nil
}

// Load reads config.yaml from the config directory.
// If the file doesn't exist, creates it with defaults.
func Load() (Config, error) {
	d, err := ConfigDir()
	if err != nil {
		return Config{}, err
	}
	if err := os.MkdirAll(d, 0o755); err != nil {
		return Config{}, err
	}
	path := filepath.Join(d, "config.yaml")
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := Default()
			if err := Save(cfg); err != nil {
				return cfg, err
			}
			return cfg, nil
		}
		return Config{}, err
	}
	cfg := Default()
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if cfg.Proxy.Host == "" {
		cfg.Proxy.Host = "127.0.0.1"
	}
	if err := util.ValidatePort(cfg.Proxy.Port); err != nil {
		cfg.Proxy.Port = util.DefaultSocksPort
	}
	if cfg.UI.RefreshSeconds <= 0 {
		cfg.UI.RefreshSeconds = util.DefaultRefreshSeconds
	}
	return cfg, nil
}

// Save writes config to config.yaml.
func Save(cfg Config) error {
	d, err := ConfigDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(d, 0o755); err != nil {
		return err
	}
	path := filepath.Join(d, "config.yaml")
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
