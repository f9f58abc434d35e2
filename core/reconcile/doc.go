// Package reconcile compares the objects held by the store with an exported
// bucket snapshot of the same entity.
//
// Both sides are loaded into in-memory indices concurrently and keyed by the
// entity's identifier. The union of keys is walked once; every key yields a
// Result carrying presence flags for each side and a list of fields whose
// values differ.
//
// Snapshot indices are immutable between exports, so they can be held in a
// TTL Cache. Loads for the same key are collapsed with singleflight.
package reconcile
