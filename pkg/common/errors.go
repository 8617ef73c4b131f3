package common

import "errors"

var (
	// ErrTransient marks infrastructure failures (store/DB/mail connectivity).
	ErrTransient = errors.New("transient error")

	// ErrInvalidPayload marks items that failed schema validation at dequeue.
	ErrInvalidPayload = errors.New("invalid payload")

	// ErrDomain marks domain validation failures (missing course, arity
	// mismatch, duplicate submission). From the worker's perspective both this
	// and ErrTransient mean "could not complete this item"; the distinction
	// only feeds metrics and the dead-letter record.
	ErrDomain = errors.New("domain error")
)
