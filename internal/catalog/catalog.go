// Package catalog holds the installable-model catalog: static descriptors for
// the models the application knows how to recommend and download, plus
// host-specific pre-flight advisories.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"inferd/internal/common/fsutil"
	"inferd/internal/hwprofile"
	"inferd/pkg/types"
)

// Default returns the built-in catalog. Entries are static data, never
// mutated at runtime.
func Default() []types.ModelDescriptor {
	return []types.ModelDescriptor{
		{
			Name:        "tinyllama",
			Description: "TinyLlama 1.1B - Fast and lightweight model for basic analysis",
			SizeGB:      1.1,
			MinRAMGB:    4.0,
			Medical:     false,
			Tier:        hwprofile.TierTiny,
		},
		{
			Name:        "phi3:mini",
			Description: "Phi-3 Mini - Balanced performance for general analysis",
			SizeGB:      2.2,
			MinRAMGB:    6.0,
			Medical:     false,
			Tier:        hwprofile.TierMini,
		},
		{
			Name:        "biomistral:7b",
			Description: "BioMistral 7B - Specialized medical research model",
			SizeGB:      4.1,
			MinRAMGB:    8.0,
			Medical:     true,
			Tier:        hwprofile.TierMedical7B,
		},
	}
}

// catalogFile is the on-disk override shape.
type catalogFile struct {
	Models []types.ModelDescriptor `json:"models" yaml:"models" toml:"models"`
}

// Load reads a catalog override file based on its extension (.yaml/.yml,
// .json, .toml). An empty path returns the built-in catalog.
func Load(path string) ([]types.ModelDescriptor, error) {
	if path == "" {
		return Default(), nil
	}
	expanded, err := fsutil.ExpandHome(path)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(expanded)
	if err != nil {
		return nil, err
	}
	var cf catalogFile
	switch ext := strings.ToLower(filepath.Ext(expanded)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cf); err != nil {
			return nil, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cf); err != nil {
			return nil, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cf); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported catalog extension: %s", ext)
	}
	if len(cf.Models) == 0 {
		return nil, fmt.Errorf("catalog file %s contains no models", path)
	}
	return cf.Models, nil
}

// ByName looks up a descriptor by its daemon tag.
func ByName(models []types.ModelDescriptor, name string) (types.ModelDescriptor, bool) {
	for _, m := range models {
		if m.Name == name {
			return m, true
		}
	}
	return types.ModelDescriptor{}, false
}

// ForTier returns the first descriptor in the given tier.
func ForTier(models []types.ModelDescriptor, tier string) (types.ModelDescriptor, bool) {
	for _, m := range models {
		if m.Tier == tier {
			return m, true
		}
	}
	return types.ModelDescriptor{}, false
}

// Advise reports a pre-flight resource advisory when the model's RAM floor
// exceeds the host's total memory. It steers selection; it is not an error.
func Advise(p types.HardwareProfile, d types.ModelDescriptor) (string, bool) {
	if d.MinRAMGB <= p.TotalMemoryGB {
		return "", false
	}
	return fmt.Sprintf("%s recommends %.0fGB RAM; this host has %.1fGB", d.Name, d.MinRAMGB, p.TotalMemoryGB), true
}
