package apperrors

import (
	"errors"
	"strings"
)

// appError is the only implementation of Error. Values are treated as
// immutable once created: every method that changes something returns a copy
// or a child.
type appError struct {
	msg        string  // message for this link of the chain
	parent     error   // sentinel this error was derived from
	attached   []error // causes added with MsgErr or Err, inherited by Msg
	statuscode int     // HTTP status, inherited by children
	prefix     string  // optional context shown before msg
}

// Error returns the message, with the prefix if one is set. Attached errors
// are not included; use ErrorAll for those.
func (e *appError) Error() string {
	if e.prefix != "" {
		return e.prefix + ": " + e.msg
	}
	return e.msg
}

// ErrorAll returns the message followed by the messages of all attached
// errors, separated by "; ".
func (e *appError) ErrorAll() string {
	var b strings.Builder
	b.WriteString(e.Error())
	for _, err := range e.attached {
		if err == nil {
			continue
		}
		b.WriteString("; ")
		b.WriteString(err.Error())
	}
	return b.String()
}

// Unwrap returns the parent sentinel.
func (e *appError) Unwrap() error {
	return e.parent
}

// UnwrapAll returns the attached errors in the order they were added.
func (e *appError) UnwrapAll() []error {
	return e.attached
}

// New derives a child sentinel. Attached errors are not carried over; the
// status code is.
func (e *appError) New(msg string) Error {
	return &appError{
		msg:        msg,
		parent:     e,
		statuscode: e.statuscode,
	}
}

// Msg replaces the message and keeps the attached errors.
func (e *appError) Msg(msg string) Error {
	return &appError{
		msg:        msg,
		parent:     e,
		attached:   e.attached,
		statuscode: e.statuscode,
	}
}

// MsgErr replaces the message and attaches errs after any errors already
// attached to e.
func (e *appError) MsgErr(msg string, errs ...error) Error {
	return &appError{
		msg:        msg,
		parent:     e,
		attached:   append(append([]error{}, e.attached...), errs...),
		statuscode: e.statuscode,
	}
}

// Err attaches errs and keeps the message.
func (e *appError) Err(errs ...error) Error {
	return e.MsgErr(e.msg, errs...)
}

// Prefix returns a shallow copy with the prefix set. The receiver is
// unchanged.
func (e *appError) Prefix(p string) Error {
	cp := *e
	cp.prefix = p
	return &cp
}

// SetStatusCode returns a shallow copy with the status code set. The receiver
// is unchanged.
func (e *appError) SetStatusCode(code int) Error {
	cp := *e
	cp.statuscode = code
	return &cp
}

// StatusCode returns the HTTP status code, zero if none was set.
func (e *appError) StatusCode() int {
	return e.statuscode
}

// Is matches the target against the parent chain and every attached error.
func (e *appError) Is(target error) bool {
	if target == nil {
		return false
	}
	if errors.Is(e.parent, target) {
		return true
	}
	for _, err := range e.attached {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// As lets errors.As find typed errors among the attached errors. The parent
// chain is searched by errors.As itself through Unwrap.
func (e *appError) As(target any) bool {
	for _, err := range e.attached {
		if errors.As(err, target) {
			return true
		}
	}
	return false
}

// New creates a root sentinel. This is the entry point for every error tree.
func New(msg string) Error {
	return &appError{msg: msg}
}
