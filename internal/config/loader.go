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

// Config holds runtime parameters for the service.
// Zero values mean "unspecified" and will be replaced by defaults in main.
type Config struct {
	Addr           string `json:"addr" yaml:"addr" toml:"addr"`
	CatalogPath    string `json:"catalog" yaml:"catalog" toml:"catalog"`
	ModelStatePath string `json:"model_state" yaml:"model_state" toml:"model_state"`
	DefaultModel   string `json:"default_model" yaml:"default_model" toml:"default_model"`
	MemoryBudgetMB int    `json:"memory_budget_mb" yaml:"memory_budget_mb" toml:"memory_budget_mb"`
	MaxConcurrency int    `json:"max_concurrency" yaml:"max_concurrency" toml:"max_concurrency"`
	QueueDepth     int    `json:"queue_depth" yaml:"queue_depth" toml:"queue_depth"`
	QueueWaitSec   int    `json:"queue_wait_sec" yaml:"queue_wait_sec" toml:"queue_wait_sec"`
	DrainTimeoutMS int    `json:"drain_timeout_ms" yaml:"drain_timeout_ms" toml:"drain_timeout_ms"`
	LoadTimeoutSec int    `json:"load_timeout_sec" yaml:"load_timeout_sec" toml:"load_timeout_sec"`
	GenTimeoutSec  int    `json:"gen_timeout_sec" yaml:"gen_timeout_sec" toml:"gen_timeout_sec"`
	Device         string `json:"device" yaml:"device" toml:"device"`
	LogLevel       string `json:"log_level" yaml:"log_level" toml:"log_level"`
	CORSEnabled    bool   `json:"cors_enabled" yaml:"cors_enabled" toml:"cors_enabled"`
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
