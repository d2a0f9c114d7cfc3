package sqlite

import "errors"

var (
	// ErrCursorExhausted is returned by cursor accessors once iteration has
	// moved past the last unspent record.
	ErrCursorExhausted = errors.New("coins cursor exhausted")

	// ErrHeadMismatch is returned when the interrupted-write markers name a
	// different tip than the batch being replayed. The marker table cannot
	// be trusted in that state.
	ErrHeadMismatch = errors.New("head block marker does not match batch tip")
)
