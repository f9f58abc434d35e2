package sync

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/tidwall/gjson"
)

// Mapping assigns a gjson path inside a bundle document to an entity name.
type Mapping map[string]string

// ParseMapping parses "Entity=path" pairs. An omitted path defaults to the
// entity name.
func ParseMapping(pairs []string) (Mapping, error) {
	m := make(Mapping, len(pairs))
	for _, pair := range pairs {
		entity, path, found := strings.Cut(pair, "=")
		entity = strings.TrimSpace(entity)
		if entity == "" {
			return nil, fmt.Errorf("invalid mapping %q", pair)
		}
		if !found || strings.TrimSpace(path) == "" {
			path = entity
		}
		m[entity] = strings.TrimSpace(path)
	}
	return m, nil
}

// LoadBundle extracts the dictionaries of every mapped entity from a JSON
// document. A path may hold an array of objects or a single object.
func LoadBundle(data []byte, mapping Mapping) (map[string][]map[string]any, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("bundle is not valid JSON")
	}

	out := make(map[string][]map[string]any, len(mapping))
	for _, entity := range slices.Sorted(maps.Keys(mapping)) {
		path := mapping[entity]
		result := gjson.GetBytes(data, path)
		if !result.Exists() {
			return nil, fmt.Errorf("bundle path %q for %s not found", path, entity)
		}

		var dicts []map[string]any
		switch {
		case result.IsArray():
			for i, item := range result.Array() {
				dict, ok := item.Value().(map[string]any)
				if !ok {
					return nil, fmt.Errorf("bundle path %q item %d is not an object", path, i)
				}
				dicts = append(dicts, dict)
			}
		case result.IsObject():
			dicts = append(dicts, result.Value().(map[string]any))
		default:
			return nil, fmt.Errorf("bundle path %q for %s is neither an array nor an object", path, entity)
		}
		out[entity] = dicts
	}
	return out, nil
}
