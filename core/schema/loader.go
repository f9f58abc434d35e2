package schema

import (
	"errors"
	"io/fs"
	"os"

	"jsoncache/core/cacheerr"

	"gopkg.in/yaml.v3"
)

// Load reads a model from a YAML or JSON file.
func Load(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, cacheerr.ModelNotFound(path, err)
		}
		return nil, cacheerr.ModelInitialization(path, err)
	}
	return Parse(path, data)
}

// Parse decodes a model document. source is only used in error messages.
func Parse(source string, data []byte) (*Model, error) {
	var m Model
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, cacheerr.ModelInitialization(source, err)
	}
	if err := m.init(); err != nil {
		return nil, cacheerr.ModelInitialization(source, err)
	}
	return &m, nil
}
