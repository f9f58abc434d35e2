package store

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"

	"jsoncache/core/cacheerr"
	"jsoncache/core/schema"

	"gorm.io/gorm/clause"
)

var errContextClosed = errors.New("context closed")

// Context is a unit of change over the store. See the package documentation
// for the main/child relationship.
type Context struct {
	store  *Store
	parent *Context

	mu      sync.Mutex
	objects map[Key]*Object
	unkeyed []*Object

	queue     chan func()
	stop      chan struct{}
	closeOnce sync.Once
}

func newContext(s *Store, parent *Context) *Context {
	c := &Context{
		store:   s,
		parent:  parent,
		objects: make(map[Key]*Object),
		queue:   make(chan func()),
		stop:    make(chan struct{}),
	}
	go c.run()
	return c
}

func (c *Context) run() {
	for {
		select {
		case fn := <-c.queue:
			fn()
		case <-c.stop:
			return
		}
	}
}

// PerformAndWait runs fn on the context's queue and waits for it to return.
// Calling it from inside fn deadlocks.
func (c *Context) PerformAndWait(fn func()) error {
	done := make(chan struct{})
	if err := c.Perform(func() { defer close(done); fn() }); err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-c.stop:
		select {
		case <-done:
			return nil
		default:
			return errContextClosed
		}
	}
}

// Perform schedules fn on the context's queue without waiting for it.
// Work scheduled after Close never runs.
func (c *Context) Perform(fn func()) error {
	if err := c.check(); err != nil {
		return err
	}
	select {
	case <-c.stop:
		return errContextClosed
	default:
	}
	go func() {
		select {
		case c.queue <- fn:
		case <-c.stop:
		}
	}()
	return nil
}

// Close stops the context queue. Pending changes are discarded.
func (c *Context) Close() {
	if c == nil {
		return
	}
	c.closeOnce.Do(func() { close(c.stop) })
	c.Rollback()
}

// IsChild reports whether the context has a parent.
func (c *Context) IsChild() bool {
	return c != nil && c.parent != nil
}

func (c *Context) check() error {
	if c == nil || c.store == nil {
		return cacheerr.StoreUnavailable()
	}
	return nil
}

func (c *Context) entity(name string) (*schema.Entity, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	e, ok := c.store.model.Entity(name)
	if !ok {
		return nil, cacheerr.NoSuchEntity(name)
	}
	return e, nil
}

// IdentifierAttribute returns the identifier attribute name of an entity.
func (c *Context) IdentifierAttribute(entityName string) (string, error) {
	e, err := c.entity(entityName)
	if err != nil {
		return "", err
	}
	return e.IdentifierAttribute().Name, nil
}

// KeyFor returns the key addressing an entity identifier.
func (c *Context) KeyFor(entityName string, id any) (Key, error) {
	e, err := c.entity(entityName)
	if err != nil {
		return Key{}, err
	}
	nid, err := normalizeID(e, id)
	if err != nil {
		return Key{}, err
	}
	return Key{Entity: e.Name, ID: nid}, nil
}

// FetchByKey returns the object with the given identifier, or nil if none exists.
func (c *Context) FetchByKey(ctx context.Context, entityName string, id any) (*Object, error) {
	e, err := c.entity(entityName)
	if err != nil {
		return nil, err
	}
	key, err := c.KeyFor(entityName, id)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	obj := c.objects[key]
	c.mu.Unlock()
	if obj != nil {
		return obj, nil
	}

	obj, err = c.load(ctx, e, key)
	if err != nil || obj == nil {
		return nil, err
	}
	obj.clearChanges()
	return c.adopt(key, obj), nil
}

// FetchByKeys returns the existing objects among ids. Missing ids are skipped.
func (c *Context) FetchByKeys(ctx context.Context, entityName string, ids []any) ([]*Object, error) {
	if _, err := c.entity(entityName); err != nil {
		return nil, err
	}
	out := make([]*Object, 0, len(ids))
	for _, id := range ids {
		obj, err := c.FetchByKey(ctx, entityName, id)
		if err != nil {
			return nil, err
		}
		if obj != nil {
			out = append(out, obj)
		}
	}
	return out, nil
}

// adopt registers a fetched object in child contexts. The main context only
// tracks objects once they change, so reads do not accumulate there.
func (c *Context) adopt(key Key, obj *Object) *Object {
	if c.parent == nil {
		return obj
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.objects[key]; ok {
		return existing
	}
	c.objects[key] = obj
	return obj
}

// load returns a detached copy of the object as this context sees it.
func (c *Context) load(ctx context.Context, e *schema.Entity, key Key) (*Object, error) {
	c.mu.Lock()
	if obj, ok := c.objects[key]; ok {
		cp := obj.clone()
		c.mu.Unlock()
		return cp, nil
	}
	c.mu.Unlock()

	if c.parent != nil {
		return c.parent.load(ctx, e, key)
	}

	id := e.IdentifierAttribute()
	objs, err := c.store.loadRows(ctx, e, clause.Eq{Column: clause.Column{Name: id.Column}, Value: key.ID}, 1)
	if err != nil || len(objs) == 0 {
		return nil, err
	}
	return objs[0], nil
}

// InsertNew creates a new object of the entity in this context.
func (c *Context) InsertNew(entityName string) (*Object, error) {
	e, err := c.entity(entityName)
	if err != nil {
		return nil, err
	}
	obj := newObject(e, true)

	c.mu.Lock()
	c.unkeyed = append(c.unkeyed, obj)
	c.mu.Unlock()
	return obj, nil
}

// SetAttributes assigns every attribute of obj's entity present in dict,
// coercing values to the declared type. Keys that are not attributes are ignored.
func (c *Context) SetAttributes(obj *Object, dict map[string]any) error {
	if err := c.check(); err != nil {
		return err
	}
	e := obj.entity
	idName := e.IdentifierAttribute().Name

	updates := make(map[string]any)
	for _, a := range e.Attributes {
		v, ok := dict[a.Name]
		if !ok {
			continue
		}
		var (
			coerced any
			err     error
		)
		if a.Name == idName {
			coerced, err = normalizeID(e, v)
		} else {
			coerced, err = coerce(a.Type, v, c.store.dates.Parse)
		}
		if err != nil {
			return cacheerr.BadState(e.Name, fmt.Sprintf("attribute %q: %v", a.Name, err))
		}
		updates[a.Name] = coerced
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for name, v := range updates {
		obj.values[name] = v
		obj.changed[name] = struct{}{}
	}
	c.track(obj)
	return nil
}

// RelationshipsOf returns the relationship descriptors of obj's entity.
func (c *Context) RelationshipsOf(obj *Object) []schema.Relationship {
	return slices.Clone(obj.entity.Relationships)
}

// SetRelationship points a to-one relationship of obj at target. A nil target clears it.
func (c *Context) SetRelationship(obj *Object, name string, target *Object) error {
	if err := c.check(); err != nil {
		return err
	}
	e := obj.entity
	rel, ok := e.Relationship(name)
	if !ok {
		return cacheerr.BadState(e.Name, fmt.Sprintf("no relationship %q", name))
	}
	if rel.ToMany {
		return cacheerr.BadState(e.Name, fmt.Sprintf("relationship %q is to-many", name))
	}

	var key Key
	if target != nil {
		if target.entity.Name != rel.Destination {
			return cacheerr.BadState(e.Name, fmt.Sprintf("relationship %q expects %s, got %s", name, rel.Destination, target.entity.Name))
		}
		k, ok := target.Key()
		if !ok {
			return cacheerr.BadState(rel.Destination, "relationship target has no identifier")
		}
		key = k
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	obj.relations[name] = key
	obj.changed[name] = struct{}{}
	c.track(obj)
	return nil
}

// Relationship returns the destination of a to-one relationship, or nil if unset.
func (c *Context) Relationship(ctx context.Context, obj *Object, name string) (*Object, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	rel, ok := obj.entity.Relationship(name)
	if !ok || rel.ToMany {
		return nil, cacheerr.BadState(obj.entity.Name, fmt.Sprintf("no to-one relationship %q", name))
	}
	key, ok := obj.RelationshipKey(name)
	if !ok || key.Entity == "" {
		return nil, nil
	}
	return c.FetchByKey(ctx, key.Entity, key.ID)
}

// Related returns the objects on the far side of a to-many relationship,
// found through the inverse to-one relationship on the destination entity.
func (c *Context) Related(ctx context.Context, obj *Object, name string) ([]*Object, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	rel, ok := obj.entity.Relationship(name)
	if !ok || !rel.ToMany {
		return nil, cacheerr.BadState(obj.entity.Name, fmt.Sprintf("no to-many relationship %q", name))
	}
	dest, err := c.entity(rel.Destination)
	if err != nil {
		return nil, err
	}
	inverse, _ := dest.Relationship(rel.Inverse)

	self, ok := obj.Key()
	if !ok {
		return nil, nil
	}
	where := clause.Eq{Column: clause.Column{Name: inverse.Column}, Value: self.ID}
	match := func(o *Object) bool {
		k, ok := o.relations[inverse.Name]
		return ok && k == self
	}
	return c.query(ctx, dest, where, match)
}

// FetchAll returns every object of an entity, including unsaved ones in this context.
func (c *Context) FetchAll(ctx context.Context, entityName string) ([]*Object, error) {
	e, err := c.entity(entityName)
	if err != nil {
		return nil, err
	}
	return c.query(ctx, e, nil, func(*Object) bool { return true })
}

// query returns detached objects matching where (database) and match
// (objects with pending changes), sorted by identifier.
func (c *Context) query(ctx context.Context, e *schema.Entity, where clause.Expression, match func(*Object) bool) ([]*Object, error) {
	var (
		base []*Object
		err  error
	)
	if c.parent != nil {
		base, err = c.parent.query(ctx, e, where, match)
	} else {
		base, err = c.store.loadRows(ctx, e, where, 0)
	}
	if err != nil {
		return nil, err
	}

	byKey := make(map[Key]*Object, len(base))
	for _, o := range base {
		if k, ok := o.Key(); ok {
			byKey[k] = o
		}
	}

	c.mu.Lock()
	for k, o := range c.objects {
		if k.Entity != e.Name {
			continue
		}
		if match(o) {
			byKey[k] = o.clone()
		} else {
			delete(byKey, k)
		}
	}
	c.mu.Unlock()

	out := make([]*Object, 0, len(byKey))
	for _, o := range byKey {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool {
		return fmt.Sprint(out[i].Identifier()) < fmt.Sprint(out[j].Identifier())
	})
	return out, nil
}

// track registers obj under its key. Callers hold c.mu.
func (c *Context) track(obj *Object) {
	key, ok := obj.Key()
	if !ok {
		return
	}
	if i := slices.Index(c.unkeyed, obj); i >= 0 {
		c.unkeyed = slices.Delete(c.unkeyed, i, i+1)
	}
	existing, ok := c.objects[key]
	switch {
	case !ok:
		c.objects[key] = obj
	case existing != obj:
		existing.absorb(obj)
	}
}

// HasChanges reports whether the context holds unsaved changes.
func (c *Context) HasChanges() bool {
	if c == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.unkeyed) > 0 {
		return true
	}
	for _, o := range c.objects {
		if o.HasChanges() {
			return true
		}
	}
	return false
}

// Save commits pending changes. A child context folds them into its parent;
// the main context writes them to the database in one transaction. On
// failure the context is rolled back before the error is returned.
func (c *Context) Save(ctx context.Context) error {
	if err := c.check(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.unkeyed) > 0 {
		entity := c.unkeyed[0].entity.Name
		c.rollbackLocked()
		return cacheerr.Store(entity, cacheerr.BadState(entity, "inserted object has no identifier"))
	}

	pending := make([]*Object, 0)
	for _, o := range c.objects {
		if o.HasChanges() {
			pending = append(pending, o)
		}
	}
	if len(pending) == 0 {
		return nil
	}
	sort.Slice(pending, func(i, j int) bool {
		a, b := pending[i], pending[j]
		if a.entity.Name != b.entity.Name {
			return a.entity.Name < b.entity.Name
		}
		return fmt.Sprint(a.Identifier()) < fmt.Sprint(b.Identifier())
	})

	for _, o := range pending {
		if err := o.validate(); err != nil {
			c.rollbackLocked()
			return cacheerr.Store(o.entity.Name, err)
		}
	}

	if c.parent != nil {
		detached := make([]*Object, len(pending))
		for i, o := range pending {
			detached[i] = o.clone()
		}
		c.parent.absorbAll(detached)
		for _, o := range pending {
			o.clearChanges()
		}
		return nil
	}

	if err := c.store.writePending(ctx, pending); err != nil {
		c.rollbackLocked()
		if cacheerr.KindOf(err) == 0 {
			err = cacheerr.Store("", err)
		}
		return err
	}
	for _, o := range pending {
		o.clearChanges()
	}
	clear(c.objects)
	return nil
}

// absorbAll folds saved child objects into this context.
func (c *Context) absorbAll(objs []*Object) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, o := range objs {
		key, _ := o.Key()
		if existing, ok := c.objects[key]; ok {
			existing.absorb(o)
			continue
		}
		c.objects[key] = o
	}
}

// Rollback discards every pending change in this context.
func (c *Context) Rollback() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rollbackLocked()
}

func (c *Context) rollbackLocked() {
	clear(c.objects)
	c.unkeyed = nil
}
