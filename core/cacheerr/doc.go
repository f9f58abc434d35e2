// Package cacheerr defines the error surface of the JSON cache.
//
// Every fallible operation in the cache returns a plain Go error. Errors that
// originate in the cache itself are *Error values tagged with a Kind, so callers
// can branch on the failure category without string matching:
//
//	if errors.Is(err, cacheerr.ErrNoSuchEntity) {
//	    // the payload referenced an entity missing from the model
//	}
//
// Store failures wrap the underlying driver error, which stays reachable through
// errors.Unwrap / errors.As.
package cacheerr
