package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"chatd/pkg/types"
)

// Catalog is a read-only mapping from model alias to descriptor. It is
// built once at startup and never mutated afterwards.
type Catalog struct {
	models  []types.ModelDescriptor
	byAlias map[string]types.ModelDescriptor
}

// catalogFile is the on-disk shape of a catalog document.
type catalogFile struct {
	Models []types.ModelDescriptor `json:"models" yaml:"models" toml:"models"`
}

// New validates descriptors and builds a catalog. Aliases must be unique
// and non-empty; an unset device defaults to auto.
func New(models []types.ModelDescriptor) (*Catalog, error) {
	c := &Catalog{byAlias: make(map[string]types.ModelDescriptor, len(models))}
	for _, d := range models {
		if strings.TrimSpace(d.Alias) == "" {
			return nil, fmt.Errorf("catalog entry with empty alias (model_id=%q)", d.ModelID)
		}
		if strings.TrimSpace(d.ModelID) == "" {
			return nil, fmt.Errorf("catalog entry %q has empty model_id", d.Alias)
		}
		if d.EstMemoryMB < 0 {
			return nil, fmt.Errorf("catalog entry %q has negative est_memory_mb", d.Alias)
		}
		if _, dup := c.byAlias[d.Alias]; dup {
			return nil, fmt.Errorf("duplicate catalog alias %q", d.Alias)
		}
		switch d.Device {
		case "":
			d.Device = types.DeviceAuto
		case types.DeviceCPU, types.DeviceGPU, types.DeviceAuto:
		default:
			return nil, fmt.Errorf("catalog entry %q has unknown device %q", d.Alias, d.Device)
		}
		c.byAlias[d.Alias] = d
		c.models = append(c.models, d)
	}
	return c, nil
}

// Load reads a catalog file based on its extension (.yaml/.yml, .json, .toml).
func Load(path string) (*Catalog, error) {
	base, err := expandHome(path)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(base)
	if err != nil {
		return nil, err
	}
	var doc catalogFile
	switch ext := strings.ToLower(filepath.Ext(base)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &doc); err != nil {
			return nil, fmt.Errorf("catalog %s: %w", path, err)
		}
	case ".json":
		if err := json.Unmarshal(b, &doc); err != nil {
			return nil, fmt.Errorf("catalog %s: %w", path, err)
		}
	case ".toml":
		if err := toml.Unmarshal(b, &doc); err != nil {
			return nil, fmt.Errorf("catalog %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("unsupported catalog extension: %s", ext)
	}
	return New(doc.Models)
}

// Resolve looks up a descriptor by alias.
func (c *Catalog) Resolve(alias string) (types.ModelDescriptor, bool) {
	d, ok := c.byAlias[alias]
	return d, ok
}

// List returns a copy of all descriptors in file order.
func (c *Catalog) List() []types.ModelDescriptor {
	out := make([]types.ModelDescriptor, len(c.models))
	copy(out, c.models)
	return out
}

// expandHome expands a leading '~' to the user's home directory.
func expandHome(path string) (string, error) {
	if path == "" || path[0] != '~' {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home dir: %w", err)
	}
	if path == "~" {
		return home, nil
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~/")), nil
}
