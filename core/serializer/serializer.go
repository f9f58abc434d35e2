package serializer

import (
	"encoding/json"
	"fmt"
	"reflect"
	"time"
	"unicode"
	"unicode/utf8"

	"jsoncache/core/casing"
	"jsoncache/core/dates"
	"jsoncache/core/store"

	"github.com/go-viper/mapstructure/v2"
)

// Serializer produces external JSON dictionaries.
type Serializer struct {
	converter casing.Converter
	dates     dates.Format
}

// New creates a serializer for the given casing and date format.
func New(mode casing.Mode, format dates.Format) *Serializer {
	if format == "" {
		format = dates.ISO8601WithSeparators
	}
	return &Serializer{converter: casing.New(mode), dates: format}
}

// ToJSON returns the attributes of obj and the identifiers of its to-one
// relationships. Unset values are omitted.
func (s *Serializer) ToJSON(obj *store.Object) map[string]any {
	e := obj.Entity()
	dict := make(map[string]any)

	for _, a := range e.Attributes {
		v, ok := obj.Value(a.Name)
		if !ok || v == nil {
			continue
		}
		if t, ok := v.(time.Time); ok {
			v = s.dates.Value(t)
		}
		dict[a.Name] = v
	}
	for _, r := range e.ToOneRelationships() {
		key, ok := obj.RelationshipKey(r.Name)
		if !ok || key.Entity == "" {
			continue
		}
		dict[r.Name] = key.ID
	}

	return s.converter.ConvertMap(casing.ToExternal, dict, e.Name)
}

// ToJSONList serializes objs in order.
func (s *Serializer) ToJSONList(objs []*store.Object) []map[string]any {
	out := make([]map[string]any, 0, len(objs))
	for _, obj := range objs {
		out = append(out, s.ToJSON(obj))
	}
	return out
}

// Marshal converts a struct or map to an external dictionary. Nil and empty
// string fields are omitted; untagged field names start lower case.
func (s *Serializer) Marshal(v any) (map[string]any, error) {
	var raw map[string]any
	if err := mapstructure.Decode(v, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode %T: %w", v, err)
	}

	dict := make(map[string]any, len(raw))
	for key, value := range raw {
		value, ok := present(value)
		if !ok {
			continue
		}
		if t, ok := value.(time.Time); ok {
			value = s.dates.Value(t)
		}
		dict[lowerFirst(key)] = value
	}
	return s.converter.ConvertMap(casing.ToExternal, dict, ""), nil
}

// present dereferences pointers and reports whether the value should be kept.
func present(v any) (any, bool) {
	if v == nil {
		return nil, false
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}
	if rv.Kind() == reflect.String && rv.Len() == 0 {
		return nil, false
	}
	return rv.Interface(), true
}

// ToJSONString renders a dictionary as indented JSON.
func ToJSONString(dict map[string]any) (string, error) {
	data, err := json.MarshalIndent(dict, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode dictionary: %w", err)
	}
	return string(data), nil
}

func lowerFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError || unicode.IsLower(r) {
		return s
	}
	return string(unicode.ToLower(r)) + s[size:]
}
