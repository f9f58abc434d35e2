package merge

import (
	"jsoncache/core/casing"
	"jsoncache/core/dates"
)

// Options is the configuration an Engine is constructed with.
type Options struct {
	// Casing is the key convention of staged and serialized dictionaries.
	Casing casing.Mode
	// DateFormat is the JSON representation of date attributes.
	DateFormat dates.Format
}

func (o Options) withDefaults() Options {
	if o.Casing == "" {
		o.Casing = casing.CamelCase
	}
	if o.DateFormat == "" {
		o.DateFormat = dates.ISO8601WithSeparators
	}
	return o
}
