package l2geometry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadPlanar reads a Description from a .json, .yaml or .yml file and
// builds the geometry. Planes without a dimensionality default to pixel
// planes.
func LoadPlanar(path string) (*Planar, error) {
	cleanPath := filepath.Clean(path)
	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read geometry file: %w", err)
	}

	var desc Description
	switch ext := strings.ToLower(filepath.Ext(cleanPath)); ext {
	case ".json":
		err = json.Unmarshal(data, &desc)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &desc)
	default:
		return nil, fmt.Errorf("geometry file must have .json, .yaml or .yml extension, got %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse geometry file: %w", err)
	}

	for i := range desc.Planes {
		if desc.Planes[i].Dimensionality == 0 {
			desc.Planes[i].Dimensionality = 2
		}
	}
	return NewPlanar(desc)
}
