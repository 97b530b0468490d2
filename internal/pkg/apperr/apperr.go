package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so callers can branch without string
// matching. Services return *Error at their boundaries instead of
// panicking or leaking storage-layer errors.
type Kind string

const (
	KindNotFound    Kind = "not_found"
	KindNoProfile   Kind = "no_profile"
	KindValidation  Kind = "validation"
	KindConcurrency Kind = "concurrency"
	KindLock        Kind = "lock"
	KindInternal    Kind = "internal"
)

type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Err.Error())
	}
	if e.Kind != "" {
		return string(e.Kind)
	}
	return "app error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the kind carried by err, or KindInternal when err is
// not an *Error.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
