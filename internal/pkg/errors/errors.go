package errors

import "errors"

var (
	// ErrNotFound is returned when the remote service reports a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized is returned when the remote service rejects our credentials.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidArgument is a generic sentinel for invalid input.
	ErrInvalidArgument = errors.New("invalid argument")

	ErrNoSession      = errors.New("no active session")
	ErrNoChallenge    = errors.New("no challenge loaded")
	ErrHintsExhausted = errors.New("no hints remaining")
)
