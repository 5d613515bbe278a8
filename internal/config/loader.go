// Package config loads the daemon's optional configuration file.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds runtime parameters for the daemon.
// Zero values mean "unspecified" and will be replaced by defaults in main.
type Config struct {
	Addr string `json:"addr" yaml:"addr" toml:"addr"`

	// Local inference daemon.
	OllamaURL      string `json:"ollama_url" yaml:"ollama_url" toml:"ollama_url"`
	OllamaBinary   string `json:"ollama_binary" yaml:"ollama_binary" toml:"ollama_binary"`
	ProbeTimeoutMS int    `json:"probe_timeout_ms" yaml:"probe_timeout_ms" toml:"probe_timeout_ms"`
	SettleDelayMS  int    `json:"settle_delay_ms" yaml:"settle_delay_ms" toml:"settle_delay_ms"`

	// Catalog override file and credential storage location.
	CatalogPath    string `json:"catalog_path" yaml:"catalog_path" toml:"catalog_path"`
	CredentialPath string `json:"credential_path" yaml:"credential_path" toml:"credential_path"`

	// Background retry period while the local daemon is unavailable.
	PollIntervalSec int `json:"poll_interval_sec" yaml:"poll_interval_sec" toml:"poll_interval_sec"`

	// Session memory governor.
	SessionCeiling  int `json:"session_ceiling" yaml:"session_ceiling" toml:"session_ceiling"`
	SessionKeep     int `json:"session_keep" yaml:"session_keep" toml:"session_keep"`
	SweepIntervalSec int `json:"sweep_interval_sec" yaml:"sweep_interval_sec" toml:"sweep_interval_sec"`

	// CORS for the desktop shell's webview.
	CORSEnabled bool     `json:"cors_enabled" yaml:"cors_enabled" toml:"cors_enabled"`
	CORSOrigins []string `json:"cors_origins" yaml:"cors_origins" toml:"cors_origins"`

	MaxBodyBytes int64 `json:"max_body_bytes" yaml:"max_body_bytes" toml:"max_body_bytes"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}
