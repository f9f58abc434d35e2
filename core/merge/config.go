package merge

import (
	"fmt"

	"jsoncache/core/casing"
	"jsoncache/core/dates"
)

// Config is the textual cache configuration section.
type Config struct {
	// Casing is the JSON key convention (camelCase, snake_case).
	Casing string `mapstructure:"casing" default:"camelCase"`
	// DateFormat is the JSON date representation
	// (iso8601WithSeparators, iso8601WithoutSeparators, timeIntervalSince1970).
	DateFormat string `mapstructure:"date_format" default:"iso8601WithSeparators"`
	// ModelPath is the YAML or JSON model file.
	ModelPath string `mapstructure:"model_path" default:"model.yaml"`
}

// Options validates the section and converts it to engine options.
func (c Config) Options() (Options, error) {
	mode, err := casing.ParseMode(c.Casing)
	if err != nil {
		return Options{}, fmt.Errorf("cache.casing: %w", err)
	}
	format, err := dates.ParseFormat(c.DateFormat)
	if err != nil {
		return Options{}, fmt.Errorf("cache.date_format: %w", err)
	}
	return Options{Casing: mode, DateFormat: format}, nil
}
