package design

import "errors"

// ErrorKind categorizes failures surfaced to the user.
type ErrorKind int

const (
	// KindMissingSelection means a required preference was absent when
	// generation was attempted. This is a caller bug, not user-recoverable.
	KindMissingSelection ErrorKind = iota
	// KindGeneration means the provider returned no image or the call failed.
	KindGeneration
	// KindEdit means a recolor request produced no usable image.
	KindEdit
	// KindEmptyMask means apply was attempted with no region selected.
	KindEmptyMask
	// KindPersistenceRead means stored history could not be decoded.
	KindPersistenceRead
)

func (k ErrorKind) String() string {
	switch k {
	case KindMissingSelection:
		return "missing_selection"
	case KindGeneration:
		return "generation_failure"
	case KindEdit:
		return "edit_failure"
	case KindEmptyMask:
		return "empty_mask"
	case KindPersistenceRead:
		return "persistence_read_failure"
	default:
		return "unknown"
	}
}

// Error is a categorized failure with an optional cause.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError builds an Error of the given kind.
func NewError(kind ErrorKind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Err: cause}
}

// IsKind reports whether err (or anything it wraps) is an *Error of kind.
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
