package casing

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Mode is the casing convention of external JSON keys.
type Mode string

const (
	CamelCase Mode = "camelCase"
	SnakeCase Mode = "snake_case"
)

// Direction selects which way a key is converted.
type Direction int

const (
	// FromExternal converts an external JSON key into an internal attribute name.
	FromExternal Direction = iota
	// ToExternal converts an internal attribute name into an external JSON key.
	ToExternal
)

const (
	reservedDescription = "description"
	descriptionSuffix   = "Description"
)

var wordBoundary = regexp.MustCompile(`([a-z])([A-Z])`)

// ParseMode parses a configured casing mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case CamelCase, SnakeCase:
		return Mode(s), nil
	case "":
		return CamelCase, nil
	default:
		return "", fmt.Errorf("unknown casing mode %q", s)
	}
}

// Converter converts keys according to its Mode. The zero value behaves as CamelCase.
type Converter struct {
	Mode Mode
}

// New returns a Converter for mode.
func New(mode Mode) Converter {
	return Converter{Mode: mode}
}

// Convert converts a single key. qualifier may be empty.
func (c Converter) Convert(dir Direction, key, qualifier string) string {
	if dir == FromExternal {
		return c.fromExternal(key, qualifier)
	}
	return c.toExternal(key, qualifier)
}

// ConvertMap converts every key of m and returns a new map. Values are not copied.
func (c Converter) ConvertMap(dir Direction, m map[string]any, qualifier string) map[string]any {
	converted := make(map[string]any, len(m))
	for key, value := range m {
		converted[c.Convert(dir, key, qualifier)] = value
	}
	return converted
}

func (c Converter) fromExternal(key, qualifier string) string {
	if qualifier != "" && key == reservedDescription {
		return Qualify(qualifier)
	}
	if c.Mode != SnakeCase || !strings.Contains(key, "_") {
		return key
	}

	// Casers are stateful and must not be shared between goroutines.
	title := cases.Title(language.Und)

	var b strings.Builder
	for i, component := range strings.Split(key, "_") {
		if i == 0 {
			b.WriteString(lowerFirst(component))
			continue
		}
		b.WriteString(title.String(component))
	}

	converted := b.String()
	if qualifier != "" && converted == reservedDescription {
		return Qualify(qualifier)
	}
	return converted
}

func (c Converter) toExternal(key, qualifier string) string {
	if strings.HasSuffix(key, descriptionSuffix) {
		if qualifier == "" || key == Qualify(qualifier) {
			return reservedDescription
		}
	}
	if c.Mode != SnakeCase {
		return key
	}
	return Snake(key)
}

// Qualify returns the internal attribute name of the reserved `description`
// key for the given qualifier.
func Qualify(qualifier string) string {
	return lowerFirst(qualifier) + descriptionSuffix
}

// Snake converts a camelCase identifier to snake_case regardless of mode.
// It is also used to derive table and column names from the model.
func Snake(s string) string {
	return strings.ToLower(wordBoundary.ReplaceAllString(s, "${1}_${2}"))
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
