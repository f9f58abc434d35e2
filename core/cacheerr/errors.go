package cacheerr

import (
	"errors"
	"fmt"
)

// Kind classifies a cache error.
type Kind int

const (
	// KindModelNotFound means the model source could not be located.
	KindModelNotFound Kind = iota + 1
	// KindModelInitialization means the model source was found but is malformed.
	KindModelInitialization
	// KindStoreUnavailable means an operation ran before the store was opened.
	KindStoreUnavailable
	// KindNoSuchEntity means an entity name is absent from the model.
	KindNoSuchEntity
	// KindBadState means an internal invariant was violated.
	KindBadState
	// KindStore means the underlying store failed (fetch, save).
	KindStore
)

func (k Kind) String() string {
	switch k {
	case KindModelNotFound:
		return "model not found"
	case KindModelInitialization:
		return "model initialization error"
	case KindStoreUnavailable:
		return "store unavailable"
	case KindNoSuchEntity:
		return "no such entity"
	case KindBadState:
		return "bad state"
	case KindStore:
		return "store error"
	default:
		return "unknown error"
	}
}

// Error is a categorized cache error.
type Error struct {
	Kind Kind
	// Entity is the entity name involved, if any.
	Entity string
	// Reason is a human readable detail.
	Reason string
	// Err is the wrapped cause, if any.
	Err error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Entity != "" {
		msg += fmt.Sprintf(" (%s)", e.Entity)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so the package sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind && t.Entity == "" && t.Reason == "" && t.Err == nil
}

// Sentinels for errors.Is.
var (
	ErrModelNotFound       = &Error{Kind: KindModelNotFound}
	ErrModelInitialization = &Error{Kind: KindModelInitialization}
	ErrStoreUnavailable    = &Error{Kind: KindStoreUnavailable}
	ErrNoSuchEntity        = &Error{Kind: KindNoSuchEntity}
	ErrBadState            = &Error{Kind: KindBadState}
	ErrStore               = &Error{Kind: KindStore}
)

// ModelNotFound reports a missing model source.
func ModelNotFound(source string, err error) error {
	return &Error{Kind: KindModelNotFound, Reason: source, Err: err}
}

// ModelInitialization reports a malformed model source.
func ModelInitialization(source string, err error) error {
	return &Error{Kind: KindModelInitialization, Reason: source, Err: err}
}

// StoreUnavailable reports use of a store before it was opened.
func StoreUnavailable() error {
	return &Error{Kind: KindStoreUnavailable}
}

// NoSuchEntity reports an entity name absent from the model.
func NoSuchEntity(entity string) error {
	return &Error{Kind: KindNoSuchEntity, Entity: entity}
}

// BadState reports a violated invariant.
func BadState(entity, reason string) error {
	return &Error{Kind: KindBadState, Entity: entity, Reason: reason}
}

// Store wraps an underlying store failure.
func Store(entity string, err error) error {
	return &Error{Kind: KindStore, Entity: entity, Err: err}
}

// KindOf returns the kind of err, or 0 if err is not a cache error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
