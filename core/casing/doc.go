// Package casing converts JSON keys between the external naming convention used
// by the remote API and the internal attribute names of the model.
//
// Two modes are supported: camelCase, where keys are passed through untouched,
// and snake_case, where `other_names` becomes `otherNames` on the way in and
// back again on the way out.
//
// # Reserved words
//
// Several entities commonly carry a `description` key. To keep those distinct
// inside one object graph, the key is qualified with the entity name when it
// enters the cache (`description` + qualifier "Band" -> `bandDescription`) and
// dequalified when it leaves. Qualification applies in both modes.
//
// # Usage
//
//	c := casing.New(casing.SnakeCase)
//	internal := c.ConvertMap(casing.FromExternal, payload, "Band")
//	external := c.ConvertMap(casing.ToExternal, internal, "Band")
package casing
