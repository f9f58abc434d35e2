package sync

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const musicBundle = `{
  "data": {
    "bands": [
      {"name": "Japan", "formed": 1974, "other_names": "Rain Tree Crow"},
      {"name": "U2", "formed": 1976}
    ],
    "albums": [
      {"name": "Assemblage", "band": "Japan", "released": "1981-09-01T00:00:00Z"}
    ]
  },
  "featured": {"name": "Bono", "born": 1960}
}`

func TestParseMapping(t *testing.T) {
	m, err := ParseMapping([]string{"Band=data.bands", " Album = data.albums ", "Musician"})
	require.NoError(t, err)
	assert.Equal(t, Mapping{"Band": "data.bands", "Album": "data.albums", "Musician": "Musician"}, m)

	_, err = ParseMapping([]string{"=data.bands"})
	assert.Error(t, err)
}

func TestLoadBundle(t *testing.T) {
	out, err := LoadBundle([]byte(musicBundle), Mapping{
		"Band":     "data.bands",
		"Album":    "data.albums",
		"Musician": "featured",
	})
	require.NoError(t, err)

	require.Len(t, out["Band"], 2)
	assert.Equal(t, "Japan", out["Band"][0]["name"])
	assert.Equal(t, float64(1974), out["Band"][0]["formed"])
	assert.Equal(t, "Rain Tree Crow", out["Band"][0]["other_names"])
	assert.Equal(t, []map[string]any{{"name": "Assemblage", "band": "Japan", "released": "1981-09-01T00:00:00Z"}}, out["Album"])
	assert.Equal(t, []map[string]any{{"name": "Bono", "born": float64(1960)}}, out["Musician"])
}

func TestLoadBundle_Errors(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		mapping Mapping
		want    string
	}{
		{"Invalid JSON", `{"bands": [`, Mapping{"Band": "bands"}, "not valid JSON"},
		{"Missing Path", musicBundle, Mapping{"Band": "data.groups"}, "not found"},
		{"Scalar", `{"bands": 3}`, Mapping{"Band": "bands"}, "neither an array nor an object"},
		{"Array Of Scalars", `{"bands": ["U2"]}`, Mapping{"Band": "bands"}, "item 0 is not an object"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadBundle([]byte(tt.data), tt.mapping)
			assert.ErrorContains(t, err, tt.want)
		})
	}
}
