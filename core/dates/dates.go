package dates

import (
	"fmt"
	"time"

	"github.com/spf13/cast"
)

// Format is a JSON date representation.
type Format string

const (
	ISO8601WithSeparators    Format = "iso8601WithSeparators"
	ISO8601WithoutSeparators Format = "iso8601WithoutSeparators"
	TimeIntervalSince1970    Format = "timeIntervalSince1970"
)

const (
	layoutWithSeparators    = "2006-01-02T15:04:05Z"
	layoutWithoutSeparators = "20060102T150405Z"
)

// ParseFormat parses a configured date format. Empty selects ISO8601WithSeparators.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case ISO8601WithSeparators, ISO8601WithoutSeparators, TimeIntervalSince1970:
		return Format(s), nil
	case "":
		return ISO8601WithSeparators, nil
	default:
		return "", fmt.Errorf("unknown date format %q", s)
	}
}

// Parse converts a JSON value to a time, falling back to the epoch.
func (f Format) Parse(value any) time.Time {
	t, err := f.ParseStrict(value)
	if err != nil {
		return time.Unix(0, 0).UTC()
	}
	return t
}

// ParseStrict converts a JSON value to a time.
func (f Format) ParseStrict(value any) (time.Time, error) {
	if t, ok := value.(time.Time); ok {
		return t.UTC(), nil
	}

	switch f {
	case TimeIntervalSince1970:
		seconds, err := cast.ToFloat64E(value)
		if err != nil {
			return time.Time{}, fmt.Errorf("date %v is not a number: %w", value, err)
		}
		return fromSeconds(seconds), nil
	default:
		s, ok := value.(string)
		if !ok {
			return time.Time{}, fmt.Errorf("date %v is not a string", value)
		}
		t, err := time.ParseInLocation(f.layout(), s, time.UTC)
		if err != nil {
			return time.Time{}, err
		}
		return t, nil
	}
}

// Value converts a time to its JSON value.
func (f Format) Value(t time.Time) any {
	if f == TimeIntervalSince1970 {
		return float64(t.Unix()) + float64(t.Nanosecond())/float64(time.Second)
	}
	return t.UTC().Format(f.layout())
}

func (f Format) layout() string {
	if f == ISO8601WithoutSeparators {
		return layoutWithoutSeparators
	}
	return layoutWithSeparators
}

func fromSeconds(seconds float64) time.Time {
	whole := int64(seconds)
	frac := seconds - float64(whole)
	return time.Unix(whole, int64(frac*float64(time.Second))).UTC()
}
