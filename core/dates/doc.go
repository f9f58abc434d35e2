// Package dates converts between JSON date values and time.Time according to
// the configured date format.
//
// Supported formats:
//   - iso8601WithSeparators:    "2000-08-22T13:28:00Z"
//   - iso8601WithoutSeparators: "20000822T132800Z"
//   - timeIntervalSince1970:    966950880.0 (seconds, JSON number)
//
// All times are interpreted and produced in UTC. Values that cannot be parsed
// become the Unix epoch, matching the lenient behaviour expected by payloads
// that occasionally carry empty or malformed dates. Use ParseStrict to detect
// those cases.
package dates
