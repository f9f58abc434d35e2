// Package store is the object store the merge engine writes through.
//
// It maps the entities of a schema.Model onto database tables using GORM and
// exposes them as schema-driven Objects addressed by a structured Key
// (entity name + identifier value).
//
// # Contexts
//
// Changes are made inside a Context. The store owns one main Context whose
// Save writes every pending change to the database in a single transaction.
// Child contexts (NewChildContext) are scratch pads on top of the main
// context: their Save validates the pending objects and folds them into the
// main context's memory, nothing more. A merge cycle therefore needs two
// saves, child then main, before anything is durable.
//
// Each Context owns a serial queue. Perform and PerformAndWait run work on it,
// which keeps one logical owner per context.
//
// # Relationships
//
// Only to-one relationships are stored, as a foreign key column holding the
// destination identifier. To-many relationships are read back through Related,
// which queries the inverse to-one relationship on the destination entity.
//
// # Availability
//
// All methods are safe to call on a nil *Store or nil *Context and then fail
// with cacheerr.ErrStoreUnavailable.
package store
