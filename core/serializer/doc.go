// Package serializer turns stored objects and plain Go values into JSON
// dictionaries using the configured key casing and date format.
package serializer
