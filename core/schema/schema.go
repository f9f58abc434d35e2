package schema

import (
	"fmt"

	"jsoncache/core/casing"

	"github.com/go-playground/validator/v10"
)

// AttributeType is the scalar type of an attribute.
type AttributeType string

const (
	String  AttributeType = "string"
	Integer AttributeType = "integer"
	Float   AttributeType = "float"
	Boolean AttributeType = "boolean"
	Date    AttributeType = "date"
)

// IdentifierName is the attribute name that is always treated as the identifier.
const IdentifierName = "id"

var validate = validator.New()

// Attribute is a named scalar field of an entity.
type Attribute struct {
	Name       string        `yaml:"name" validate:"required"`
	Type       AttributeType `yaml:"type" validate:"required,oneof=string integer float boolean date"`
	Identifier bool          `yaml:"identifier"`
	// Required attributes must be non-nil when a context is saved.
	Required bool `yaml:"required"`
	// Column overrides the storage column name.
	Column string `yaml:"column"`
}

// Relationship is a directed edge from an entity to a destination entity.
type Relationship struct {
	Name        string `yaml:"name" validate:"required"`
	Destination string `yaml:"destination" validate:"required"`
	ToMany      bool   `yaml:"to_many"`
	// Inverse names the relationship on the destination pointing back.
	Inverse string `yaml:"inverse" validate:"required_if=ToMany true"`
	// Column overrides the storage column of a to-one relationship.
	Column string `yaml:"column"`
}

// Entity is a type of stored object.
type Entity struct {
	Name          string         `yaml:"name" validate:"required"`
	Table         string         `yaml:"table"`
	Attributes    []Attribute    `yaml:"attributes" validate:"required,min=1,dive"`
	Relationships []Relationship `yaml:"relationships" validate:"dive"`

	identifier    int
	attributes    map[string]int
	relationships map[string]int
}

// Model is a validated set of entities.
type Model struct {
	Name     string    `yaml:"name"`
	Entities []*Entity `yaml:"entities" validate:"required,min=1,dive,required"`

	byName map[string]*Entity
}

// NewModel validates entities and indexes them by name.
func NewModel(name string, entities ...*Entity) (*Model, error) {
	m := &Model{Name: name, Entities: entities}
	if err := m.init(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Model) init() error {
	if err := validate.Struct(m); err != nil {
		return fmt.Errorf("invalid model %q: %w", m.Name, err)
	}

	m.byName = make(map[string]*Entity, len(m.Entities))
	for _, e := range m.Entities {
		if _, dup := m.byName[e.Name]; dup {
			return fmt.Errorf("duplicate entity %q", e.Name)
		}
		if err := e.init(); err != nil {
			return err
		}
		m.byName[e.Name] = e
	}

	for _, e := range m.Entities {
		for _, r := range e.Relationships {
			dest, ok := m.byName[r.Destination]
			if !ok {
				return fmt.Errorf("entity %q: relationship %q targets unknown entity %q", e.Name, r.Name, r.Destination)
			}
			if !r.ToMany {
				continue
			}
			inverse, ok := dest.Relationship(r.Inverse)
			if !ok || inverse.ToMany || inverse.Destination != e.Name {
				return fmt.Errorf("entity %q: to-many relationship %q needs a to-one inverse %q on %q", e.Name, r.Name, r.Inverse, r.Destination)
			}
		}
	}
	return nil
}

// Entity returns the entity with the given name.
func (m *Model) Entity(name string) (*Entity, bool) {
	e, ok := m.byName[name]
	return e, ok
}

func (e *Entity) init() error {
	if e.Table == "" {
		e.Table = casing.Snake(e.Name)
	}

	e.identifier = -1
	e.attributes = make(map[string]int, len(e.Attributes))
	for i := range e.Attributes {
		a := &e.Attributes[i]
		if _, dup := e.attributes[a.Name]; dup {
			return fmt.Errorf("entity %q: duplicate attribute %q", e.Name, a.Name)
		}
		if a.Column == "" {
			a.Column = casing.Snake(a.Name)
		}
		e.attributes[a.Name] = i

		if a.Name == IdentifierName || a.Identifier {
			if e.identifier >= 0 {
				return fmt.Errorf("entity %q: more than one identifier attribute", e.Name)
			}
			e.identifier = i
		}
	}
	if e.identifier < 0 {
		return fmt.Errorf("entity %q: no identifier attribute", e.Name)
	}

	e.relationships = make(map[string]int, len(e.Relationships))
	for i := range e.Relationships {
		r := &e.Relationships[i]
		if _, dup := e.relationships[r.Name]; dup {
			return fmt.Errorf("entity %q: duplicate relationship %q", e.Name, r.Name)
		}
		if _, clash := e.attributes[r.Name]; clash {
			return fmt.Errorf("entity %q: relationship %q shadows an attribute", e.Name, r.Name)
		}
		if !r.ToMany && r.Column == "" {
			r.Column = casing.Snake(r.Name) + "_id"
		}
		e.relationships[r.Name] = i
	}
	return nil
}

// IdentifierAttribute returns the identifier attribute of the entity.
func (e *Entity) IdentifierAttribute() Attribute {
	return e.Attributes[e.identifier]
}

// Attribute returns the attribute with the given name.
func (e *Entity) Attribute(name string) (Attribute, bool) {
	i, ok := e.attributes[name]
	if !ok {
		return Attribute{}, false
	}
	return e.Attributes[i], true
}

// Relationship returns the relationship with the given name.
func (e *Entity) Relationship(name string) (Relationship, bool) {
	i, ok := e.relationships[name]
	if !ok {
		return Relationship{}, false
	}
	return e.Relationships[i], true
}

// ToOneRelationships returns the stored relationships of the entity, in declaration order.
func (e *Entity) ToOneRelationships() []Relationship {
	var out []Relationship
	for _, r := range e.Relationships {
		if !r.ToMany {
			out = append(out, r)
		}
	}
	return out
}
