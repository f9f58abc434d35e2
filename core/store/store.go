package store

import (
	"context"
	"fmt"
	"strings"

	"jsoncache/core/cacheerr"
	"jsoncache/core/dates"
	"jsoncache/core/schema"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Adapter is the object store surface a merge cycle works against.
// *Context implements it.
type Adapter interface {
	IdentifierAttribute(entityName string) (string, error)
	KeyFor(entityName string, id any) (Key, error)
	FetchByKey(ctx context.Context, entityName string, id any) (*Object, error)
	FetchByKeys(ctx context.Context, entityName string, ids []any) ([]*Object, error)
	InsertNew(entityName string) (*Object, error)
	SetAttributes(obj *Object, dict map[string]any) error
	RelationshipsOf(obj *Object) []schema.Relationship
	SetRelationship(obj *Object, name string, target *Object) error
	Save(ctx context.Context) error
	Rollback()
}

var _ Adapter = (*Context)(nil)

// Options configures a Store.
type Options struct {
	// DateFormat governs how JSON date values are parsed by SetAttributes.
	DateFormat dates.Format
	Logger     *zap.Logger
}

// Store maps a schema.Model onto a GORM database.
type Store struct {
	db     *gorm.DB
	model  *schema.Model
	dates  dates.Format
	logger *zap.Logger
	main   *Context
}

// Open creates a store over db for model and starts its main context.
func Open(db *gorm.DB, model *schema.Model, opts Options) (*Store, error) {
	if db == nil {
		return nil, cacheerr.StoreUnavailable()
	}
	if model == nil {
		return nil, cacheerr.ModelNotFound("nil model", nil)
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.DateFormat == "" {
		opts.DateFormat = dates.ISO8601WithSeparators
	}

	s := &Store{
		db:     db,
		model:  model,
		dates:  opts.DateFormat,
		logger: opts.Logger,
	}
	s.main = newContext(s, nil)
	return s, nil
}

// Model returns the model of the store.
func (s *Store) Model() *schema.Model {
	if s == nil {
		return nil
	}
	return s.model
}

// Main returns the main context. It is nil for a nil store.
func (s *Store) Main() *Context {
	if s == nil {
		return nil
	}
	return s.main
}

// NewChildContext returns a fresh context whose parent is the main context.
// Close it when done.
func (s *Store) NewChildContext() (*Context, error) {
	if s == nil || s.main == nil {
		return nil, cacheerr.StoreUnavailable()
	}
	return newContext(s, s.main), nil
}

// IdentifierAttribute returns the identifier attribute name of an entity.
func (s *Store) IdentifierAttribute(entityName string) (string, error) {
	if s == nil {
		return "", cacheerr.StoreUnavailable()
	}
	e, ok := s.model.Entity(entityName)
	if !ok {
		return "", cacheerr.NoSuchEntity(entityName)
	}
	return e.IdentifierAttribute().Name, nil
}

// Close stops the main context queue.
func (s *Store) Close() {
	if s == nil {
		return
	}
	s.main.Close()
}

// Migrate creates missing tables and columns for every entity of the model.
func (s *Store) Migrate(ctx context.Context) error {
	if s == nil {
		return cacheerr.StoreUnavailable()
	}

	db := s.db.WithContext(ctx)
	m := db.Migrator()
	for _, e := range s.model.Entities {
		columns := s.columns(e)

		if !m.HasTable(e.Table) {
			parts := make([]string, 0, len(columns))
			vars := []any{clause.Table{Name: e.Table}}
			for _, c := range columns {
				parts = append(parts, "? "+c.sqlType)
				vars = append(vars, clause.Column{Name: c.name})
			}
			sql := fmt.Sprintf("CREATE TABLE ? (%s)", strings.Join(parts, ", "))
			if err := db.Exec(sql, vars...).Error; err != nil {
				return cacheerr.Store(e.Name, fmt.Errorf("failed to create table %s: %w", e.Table, err))
			}
			s.logger.Debug("Created table", zap.String("entity", e.Name), zap.String("table", e.Table))
			continue
		}

		for _, c := range columns {
			if c.primary || m.HasColumn(e.Table, c.name) {
				continue
			}
			if err := db.Exec("ALTER TABLE ? ADD COLUMN ? "+c.sqlType, clause.Table{Name: e.Table}, clause.Column{Name: c.name}).Error; err != nil {
				return cacheerr.Store(e.Name, fmt.Errorf("failed to add column %s.%s: %w", e.Table, c.name, err))
			}
			s.logger.Debug("Added column", zap.String("table", e.Table), zap.String("column", c.name))
		}
	}
	return nil
}

type column struct {
	name    string
	sqlType string
	primary bool
}

func (s *Store) columns(e *schema.Entity) []column {
	id := e.IdentifierAttribute()
	cols := []column{{name: id.Column, sqlType: sqlType(id.Type, true) + " NOT NULL PRIMARY KEY", primary: true}}

	for _, a := range e.Attributes {
		if a.Name == id.Name {
			continue
		}
		cols = append(cols, column{name: a.Column, sqlType: sqlType(a.Type, false)})
	}
	for _, r := range e.ToOneRelationships() {
		dest, _ := s.model.Entity(r.Destination)
		cols = append(cols, column{name: r.Column, sqlType: sqlType(dest.IdentifierAttribute().Type, true)})
	}
	return cols
}

// sqlType picks a column type understood by both MySQL and SQLite.
func sqlType(t schema.AttributeType, key bool) string {
	switch t {
	case schema.Integer:
		return "BIGINT"
	case schema.Float:
		return "DOUBLE"
	case schema.Boolean:
		return "BOOLEAN"
	case schema.Date:
		return "DATETIME"
	default:
		if key {
			return "VARCHAR(255)"
		}
		return "TEXT"
	}
}

// loadRows queries rows of an entity, optionally filtered by column = value.
func (s *Store) loadRows(ctx context.Context, e *schema.Entity, where clause.Expression, limit int) ([]*Object, error) {
	tx := s.db.WithContext(ctx).Table(e.Table)
	if where != nil {
		tx = tx.Where(where)
	}
	if limit > 0 {
		tx = tx.Limit(limit)
	}

	var rows []map[string]any
	if err := tx.Find(&rows).Error; err != nil {
		return nil, cacheerr.Store(e.Name, err)
	}

	objects := make([]*Object, 0, len(rows))
	for _, row := range rows {
		obj, err := s.objectFromRow(e, row)
		if err != nil {
			return nil, err
		}
		objects = append(objects, obj)
	}
	return objects, nil
}

func (s *Store) objectFromRow(e *schema.Entity, row map[string]any) (*Object, error) {
	obj := newObject(e, false)
	for _, a := range e.Attributes {
		v, ok := row[a.Column]
		if !ok {
			continue
		}
		coerced, err := coerce(a.Type, v, nil)
		if err != nil {
			return nil, cacheerr.Store(e.Name, fmt.Errorf("column %s: %w", a.Column, err))
		}
		obj.values[a.Name] = coerced
	}
	for _, r := range e.ToOneRelationships() {
		v := row[r.Column]
		if v == nil {
			continue
		}
		dest, _ := s.model.Entity(r.Destination)
		id, err := normalizeID(dest, v)
		if err != nil {
			return nil, cacheerr.Store(e.Name, fmt.Errorf("column %s: %w", r.Column, err))
		}
		obj.relations[r.Name] = Key{Entity: dest.Name, ID: id}
	}
	return obj, nil
}

// rowOf builds the column values to write for obj.
func rowOf(obj *Object) map[string]any {
	e := obj.entity
	row := make(map[string]any)
	include := func(name string) bool {
		if obj.inserted {
			return true
		}
		_, ok := obj.changed[name]
		return ok
	}

	for _, a := range e.Attributes {
		v, ok := obj.values[a.Name]
		if ok && include(a.Name) {
			row[a.Column] = v
		}
	}
	for _, r := range e.ToOneRelationships() {
		k, ok := obj.relations[r.Name]
		if !ok || !include(r.Name) {
			continue
		}
		if k.Entity == "" {
			row[r.Column] = nil
			continue
		}
		row[r.Column] = k.ID
	}
	return row
}

// writePending writes objects to the database in one transaction.
func (s *Store) writePending(ctx context.Context, pending []*Object) error {
	inserts, updates := 0, 0
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, obj := range pending {
			e := obj.entity
			row := rowOf(obj)
			if len(row) == 0 {
				continue
			}
			if obj.inserted {
				if err := tx.Table(e.Table).Create(row).Error; err != nil {
					return cacheerr.Store(e.Name, fmt.Errorf("failed to insert %v: %w", obj.Identifier(), err))
				}
				inserts++
				continue
			}
			id := e.IdentifierAttribute()
			where := clause.Eq{Column: clause.Column{Name: id.Column}, Value: obj.Identifier()}
			if err := tx.Table(e.Table).Where(where).Updates(row).Error; err != nil {
				return cacheerr.Store(e.Name, fmt.Errorf("failed to update %v: %w", obj.Identifier(), err))
			}
			updates++
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Debug("Saved main context", zap.Int("inserts", inserts), zap.Int("updates", updates))
	return nil
}

// DB returns the underlying database handle.
func (s *Store) DB() *gorm.DB {
	if s == nil {
		return nil
	}
	return s.db
}
