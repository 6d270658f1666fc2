// Package config holds the on-disk client configuration.
package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"
)

var (
	home, _           = os.UserHomeDir()
	DefaultConfigPath = filepath.Join(home, ".treemirror", "config.json")
)

// Config describes one producer tree and/or one mirror.
type Config struct {
	TreeDir        string   `json:"tree_dir,omitempty"`
	MirrorDir      string   `json:"mirror_dir,omitempty"`
	Origin         string   `json:"origin,omitempty"`
	ScanInterval   Duration `json:"scan_interval,omitempty"`
	UpdateInterval Duration `json:"update_interval,omitempty"`
	Ignore         []string `json:"ignore,omitempty"`

	Path string `json:"-"`
}

// Duration marshals as a human-readable string ("30s").
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("config: bad duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// ValidateOrigin checks that origin is an absolute http(s) URL.
func ValidateOrigin(origin string) error {
	u, err := url.Parse(origin)
	if err != nil {
		return fmt.Errorf("config: origin %q: %w", origin, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return fmt.Errorf("config: origin %q: must be an http(s) URL", origin)
	}
	return nil
}

// Load reads a config file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	cfg.Path = path
	return &cfg, nil
}

// Save writes the config as indented JSON, creating parent directories.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
