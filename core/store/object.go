package store

import (
	"fmt"
	"maps"
	"reflect"
	"time"

	"jsoncache/core/cacheerr"
	"jsoncache/core/schema"
	"jsoncache/core/utils"
)

// Key addresses a stored object. ID holds the identifier normalized to the
// identifier attribute's type, so keys compare correctly across JSON and
// database sources.
type Key struct {
	Entity string
	ID     any
}

func (k Key) String() string {
	return fmt.Sprintf("%s(%v)", k.Entity, k.ID)
}

// Object is an instance of an entity inside a Context.
type Object struct {
	entity    *schema.Entity
	values    map[string]any
	relations map[string]Key
	// inserted is true until the object has been written to the database.
	inserted bool
	changed  map[string]struct{}
}

func newObject(entity *schema.Entity, inserted bool) *Object {
	return &Object{
		entity:    entity,
		values:    make(map[string]any),
		relations: make(map[string]Key),
		inserted:  inserted,
		changed:   make(map[string]struct{}),
	}
}

// Entity returns the entity description of the object.
func (o *Object) Entity() *schema.Entity {
	return o.entity
}

// Identifier returns the identifier value, or nil if it has not been set yet.
func (o *Object) Identifier() any {
	return o.values[o.entity.IdentifierAttribute().Name]
}

// Key returns the composite key of the object. ok is false while the identifier is unset.
func (o *Object) Key() (Key, bool) {
	id := o.Identifier()
	if id == nil {
		return Key{}, false
	}
	return Key{Entity: o.entity.Name, ID: id}, true
}

// Value returns an attribute value.
func (o *Object) Value(name string) (any, bool) {
	v, ok := o.values[name]
	return v, ok
}

// Values returns a copy of all attribute values.
func (o *Object) Values() map[string]any {
	return maps.Clone(o.values)
}

// RelationshipKey returns the key of the destination of a to-one relationship.
func (o *Object) RelationshipKey(name string) (Key, bool) {
	k, ok := o.relations[name]
	return k, ok
}

// IsInserted reports whether the object has not reached the database yet.
func (o *Object) IsInserted() bool {
	return o.inserted
}

// HasChanges reports whether the object carries unsaved changes.
func (o *Object) HasChanges() bool {
	return o.inserted || len(o.changed) > 0
}

func (o *Object) clone() *Object {
	return &Object{
		entity:    o.entity,
		values:    maps.Clone(o.values),
		relations: maps.Clone(o.relations),
		inserted:  o.inserted,
		changed:   maps.Clone(o.changed),
	}
}

// absorb copies the changed fields of other into o.
func (o *Object) absorb(other *Object) {
	for name := range other.changed {
		if v, ok := other.values[name]; ok {
			o.values[name] = v
		}
		if k, ok := other.relations[name]; ok {
			o.relations[name] = k
		}
		o.changed[name] = struct{}{}
	}
	o.inserted = o.inserted || other.inserted
}

func (o *Object) clearChanges() {
	o.inserted = false
	clear(o.changed)
}

// validate checks the object can be saved.
func (o *Object) validate() error {
	if o.Identifier() == nil {
		return cacheerr.BadState(o.entity.Name, "missing identifier")
	}
	for _, a := range o.entity.Attributes {
		if a.Required && o.values[a.Name] == nil {
			return fmt.Errorf("%s: required attribute %q is missing", o.entity.Name, a.Name)
		}
	}
	return nil
}

// normalizeID coerces an identifier value to the type of the identifier attribute.
func normalizeID(entity *schema.Entity, id any) (any, error) {
	if id == nil {
		return nil, cacheerr.BadState(entity.Name, "missing identifier")
	}
	v, err := coerce(entity.IdentifierAttribute().Type, id, nil)
	if err != nil {
		return nil, cacheerr.BadState(entity.Name, fmt.Sprintf("identifier %v: %v", id, err))
	}
	if !reflect.TypeOf(v).Comparable() {
		return nil, cacheerr.BadState(entity.Name, fmt.Sprintf("identifier %v is not comparable", id))
	}
	return v, nil
}

// coerce converts a JSON or driver value to the Go type of an attribute.
// parseDate converts JSON date values; nil means driver values (time.Time or strings).
func coerce(t schema.AttributeType, v any, parseDate func(any) time.Time) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch t {
	case schema.String:
		return utils.ToString(v)
	case schema.Integer:
		return utils.ToInt64(v)
	case schema.Float:
		return utils.ToFloat64(v)
	case schema.Boolean:
		return utils.ToBool(v)
	case schema.Date:
		if parseDate != nil {
			return parseDate(v), nil
		}
		return utils.ToTime(v)
	default:
		return nil, fmt.Errorf("unsupported attribute type %q", t)
	}
}
