package schema_test

import (
	"os"
	"path/filepath"
	"testing"

	"jsoncache/core/cacheerr"
	"jsoncache/core/schema"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Music(t *testing.T) {
	m, err := schema.Load("testdata/music.yaml")
	require.NoError(t, err)
	assert.Equal(t, "Music", m.Name)
	assert.Len(t, m.Entities, 4)

	band, ok := m.Entity("Band")
	require.True(t, ok)
	assert.Equal(t, "band", band.Table)
	assert.Equal(t, "name", band.IdentifierAttribute().Name)

	attr, ok := band.Attribute("otherNames")
	require.True(t, ok)
	assert.Equal(t, "other_names", attr.Column)
	assert.Equal(t, schema.String, attr.Type)

	member, ok := m.Entity("BandMember")
	require.True(t, ok)
	assert.Equal(t, "band_members", member.Table)
	assert.Equal(t, "id", member.IdentifierAttribute().Name, "attribute literally named id is the identifier")

	rel, ok := member.Relationship("musician")
	require.True(t, ok)
	assert.Equal(t, "musician_id", rel.Column)
	assert.Len(t, member.ToOneRelationships(), 2)
	assert.Empty(t, band.ToOneRelationships())

	_, ok = m.Entity("Label")
	assert.False(t, ok)
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := schema.Load(filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, err, cacheerr.ErrModelNotFound)

	broken := filepath.Join(dir, "broken.yaml")
	require.NoError(t, os.WriteFile(broken, []byte("entities: [unclosed"), 0o644))
	_, err = schema.Load(broken)
	assert.ErrorIs(t, err, cacheerr.ErrModelInitialization)
}

func TestParse_JSON(t *testing.T) {
	doc := `{"name": "Tiny", "entities": [{"name": "Thing", "attributes": [{"name": "id", "type": "integer"}]}]}`
	m, err := schema.Parse("tiny.json", []byte(doc))
	require.NoError(t, err)

	thing, ok := m.Entity("Thing")
	require.True(t, ok)
	assert.Equal(t, schema.Integer, thing.IdentifierAttribute().Type)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{
			name: "no identifier",
			doc: `
entities:
  - name: Thing
    attributes: [{name: label, type: string}]`,
		},
		{
			name: "two identifiers",
			doc: `
entities:
  - name: Thing
    attributes: [{name: id, type: string}, {name: code, type: string, identifier: true}]`,
		},
		{
			name: "unknown attribute type",
			doc: `
entities:
  - name: Thing
    attributes: [{name: id, type: blob}]`,
		},
		{
			name: "unknown destination",
			doc: `
entities:
  - name: Thing
    attributes: [{name: id, type: string}]
    relationships: [{name: owner, destination: Person}]`,
		},
		{
			name: "to-many without inverse",
			doc: `
entities:
  - name: Thing
    attributes: [{name: id, type: string}]
    relationships: [{name: parts, destination: Thing, to_many: true}]`,
		},
		{
			name: "to-many with to-many inverse",
			doc: `
entities:
  - name: Thing
    attributes: [{name: id, type: string}]
    relationships: [{name: parts, destination: Thing, to_many: true, inverse: parts}]`,
		},
		{
			name: "no entities",
			doc:  `name: Empty`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := schema.Parse(tt.name, []byte(tt.doc))
			assert.ErrorIs(t, err, cacheerr.ErrModelInitialization)
		})
	}
}

func TestNewModel(t *testing.T) {
	m, err := schema.NewModel("Inline", &schema.Entity{
		Name:       "Label",
		Attributes: []schema.Attribute{{Name: "code", Type: schema.String, Identifier: true}},
	})
	require.NoError(t, err)

	label, ok := m.Entity("Label")
	require.True(t, ok)
	assert.Equal(t, "code", label.IdentifierAttribute().Name)
}
