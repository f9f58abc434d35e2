// Package utils provides value conversion helpers shared by the store and the
// serializer. JSON decoders and SQL drivers disagree on the Go types they hand
// back (float64 vs int64, []byte vs string); these helpers normalize them.
package utils
