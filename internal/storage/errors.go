package storage

import (
	"context"
	"errors"
	iofs "io/fs"
)

// Kind classifies storage errors independently of the backend that raised them.
type Kind int

const (
	KindInvalid Kind = iota
	KindNotFound
	KindUnauthorized
	KindTransient
	KindTooLarge
	KindFatal
)

// String returns a short lowercase label for the kind, suitable for metrics.
func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindUnauthorized:
		return "unauthorized"
	case KindTransient:
		return "transient"
	case KindTooLarge:
		return "too_large"
	case KindFatal:
		return "fatal"
	default:
		return "invalid"
	}
}

// ErrNotFound matches every KindNotFound error via errors.Is.
var ErrNotFound = errors.New("storage: not found")

// Error wraps an underlying backend error with the operation and blob name.
type Error struct {
	Kind Kind
	Op   string
	Name string
	Err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	base := kindMessage(e.Kind)
	if e.Op != "" {
		base = e.Op + ": " + base
	}
	if e.Name != "" {
		base += " " + e.Name
	}
	if e.Err != nil {
		return base + ": " + e.Err.Error()
	}
	return base
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error { return e.Err }

// Is reports KindNotFound errors as ErrNotFound.
func (e *Error) Is(target error) bool {
	return target == ErrNotFound && e.Kind == KindNotFound
}

func kindMessage(kind Kind) string {
	switch kind {
	case KindNotFound:
		return "not found"
	case KindUnauthorized:
		return "unauthorized"
	case KindTransient:
		return "temporarily unavailable"
	case KindTooLarge:
		return "content too large"
	case KindFatal:
		return "backend error"
	default:
		return "invalid"
	}
}

// Wrap annotates err with the given metadata. If err is nil, Wrap returns nil.
func Wrap(kind Kind, op, name string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Name: name, Err: err}
}

// E creates a new error with the provided metadata (no underlying error).
func E(kind Kind, op, name string) error {
	return &Error{Kind: kind, Op: op, Name: name}
}

// KindOf extracts the Kind from err, walking wrapped errors as needed.
// Errors that carry no Kind are reported as KindFatal.
func KindOf(err error) Kind {
	if err == nil {
		return KindInvalid
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, iofs.ErrNotExist):
		return KindNotFound
	case errors.Is(err, iofs.ErrPermission):
		return KindUnauthorized
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return KindTransient
	case errors.Is(err, iofs.ErrInvalid):
		return KindInvalid
	default:
		return KindFatal
	}
}

// IsNotFound reports whether err signals a missing blob.
func IsNotFound(err error) bool {
	return err != nil && KindOf(err) == KindNotFound
}
