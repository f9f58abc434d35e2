// Package merge stages JSON dictionaries and merges them into the object store.
//
// A merge cycle runs three passes over everything staged since the last
// successful cycle:
//
//   - Upsert: every dictionary is matched to an object by its identifier,
//     fetching or inserting it, and its scalar attributes are applied.
//   - Resolve: to-one relationships named in the dictionaries are wired,
//     preferring objects from the same batch so references may point forward.
//     Targets that exist nowhere are left unset.
//   - Commit: the child context is saved into the main context, then the main
//     context is saved to the database on its own queue.
//
// Any failure aborts the cycle, discards its changes and keeps the staged
// dictionaries so the same batch can be applied again. Staging is cleared only
// when both saves succeed.
//
// # Usage
//
//	engine := merge.New(st, merge.Options{Casing: casing.SnakeCase}, logger)
//	engine.Stage("Band", bands)
//	engine.Stage("Album", albums)
//	res, err := engine.Apply(ctx).Wait(ctx)
package merge
