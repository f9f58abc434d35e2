// Package schema describes the entity model the cache merges JSON into.
//
// A Model is a set of entities, each with typed attributes and named
// relationships to other entities. Exactly one attribute per entity is the
// identifier: either the attribute literally named "id" or the one flagged
// with `identifier: true`.
//
// Models are usually loaded from a YAML (or JSON) file:
//
//	name: Music
//	entities:
//	  - name: Band
//	    attributes:
//	      - {name: name, type: string, identifier: true}
//	      - {name: formed, type: integer}
//	    relationships:
//	      - {name: albums, destination: Album, to_many: true, inverse: band}
//	  - name: Album
//	    attributes:
//	      - {name: name, type: string, identifier: true}
//	      - {name: released, type: date}
//	    relationships:
//	      - {name: band, destination: Band}
//
// Only to-one relationships are stored; a to-many relationship is the inverse
// view of a to-one relationship on its destination and must name it.
package schema
