package utils_test

import (
	"testing"
	"time"

	"jsoncache/core/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToInt64(t *testing.T) {
	tests := []struct {
		name    string
		in      any
		want    int64
		wantErr bool
	}{
		{"json number", float64(1974), 1974, false},
		{"driver int", int64(7), 7, false},
		{"int", 3, 3, false},
		{"string", "42", 42, false},
		{"bytes", []byte("12"), 12, false},
		{"fraction", 1.5, 0, true},
		{"garbage", "abc", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := utils.ToInt64(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestToString(t *testing.T) {
	s, err := utils.ToString("Japan")
	require.NoError(t, err)
	assert.Equal(t, "Japan", s)

	s, err = utils.ToString([]byte("Virgin"))
	require.NoError(t, err)
	assert.Equal(t, "Virgin", s)

	s, err = utils.ToString(float64(5))
	require.NoError(t, err)
	assert.Equal(t, "5", s)
}

func TestToBool(t *testing.T) {
	for _, in := range []any{true, int64(1), "true", "1", []byte("1")} {
		b, err := utils.ToBool(in)
		require.NoError(t, err)
		assert.True(t, b, "%v", in)
	}
	for _, in := range []any{false, int64(0), "false", "0"} {
		b, err := utils.ToBool(in)
		require.NoError(t, err)
		assert.False(t, b, "%v", in)
	}
}

func TestToFloat64(t *testing.T) {
	f, err := utils.ToFloat64([]byte("2.5"))
	require.NoError(t, err)
	assert.Equal(t, 2.5, f)
}

func TestToTime(t *testing.T) {
	ref := time.Date(1991, 4, 8, 0, 0, 0, 0, time.UTC)

	got, err := utils.ToTime(ref.In(time.FixedZone("X", 7200)))
	require.NoError(t, err)
	assert.True(t, ref.Equal(got))
	assert.Equal(t, time.UTC, got.Location())

	got, err = utils.ToTime("1991-04-08T00:00:00Z")
	require.NoError(t, err)
	assert.True(t, ref.Equal(got))
}
