// Package sync exposes the JSON cache over HTTP and the storage bucket.
//
// Dictionaries are staged per entity and merged into the store by the merge
// engine. Stored objects are read back through the serializer, so responses
// use the configured key casing and date format.
//
// # Routes
//
//   - POST   /cache/stage/:entity               stage an object or array
//   - POST   /cache/apply                       run a merge cycle (?async=true)
//   - GET    /cache/pending                     staged counts per entity
//   - DELETE /cache/pending                     drop everything staged
//   - POST   /cache/import                      stage and apply a bundle object
//   - POST   /cache/export/:entity              write an entity snapshot
//   - GET    /cache/snapshots                   list snapshots
//   - GET    /cache/:entity/:id                 one object
//   - GET    /cache/:entity/:id/:relationship   related objects
//
// # Bundles
//
// A bundle is a JSON document holding arrays of dictionaries. A Mapping names
// the gjson path of each entity's array, for example Band=data.bands.
package sync
