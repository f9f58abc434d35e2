package utils

import (
	"fmt"
	"math"
	"time"

	"github.com/spf13/cast"
)

// ToInt64 converts JSON and driver values to int64.
// JSON numbers arrive as float64; fractional values are rejected rather than truncated.
func ToInt64(val any) (int64, error) {
	switch v := val.(type) {
	case float64:
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("%v is not an integer", v)
		}
		return int64(v), nil
	case []byte:
		return cast.ToInt64E(string(v))
	default:
		return cast.ToInt64E(v)
	}
}

// ToFloat64 converts JSON and driver values to float64.
func ToFloat64(val any) (float64, error) {
	if b, ok := val.([]byte); ok {
		return cast.ToFloat64E(string(b))
	}
	return cast.ToFloat64E(val)
}

// ToString converts various types to string.
func ToString(val any) (string, error) {
	switch v := val.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	default:
		return cast.ToStringE(v)
	}
}

// ToBool converts various types to bool.
// It handles bool, numeric types (non-zero is true), and strings ("1", "true").
func ToBool(val any) (bool, error) {
	if b, ok := val.([]byte); ok {
		return cast.ToBoolE(string(b))
	}
	return cast.ToBoolE(val)
}

// ToTime converts driver values (time.Time, strings, []byte) to a UTC time.
func ToTime(val any) (time.Time, error) {
	if b, ok := val.([]byte); ok {
		val = string(b)
	}
	t, err := cast.ToTimeE(val)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
