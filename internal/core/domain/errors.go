package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrRemoteUnavailable indicates the remote store could not be
	// reached. Reconciliation and backfill treat it as transient and
	// fall back to local state.
	ErrRemoteUnavailable = errors.New("remote store unavailable")

	// ErrNotArchived indicates an operation that requires the archived
	// lifecycle was attempted on a working-set document.
	ErrNotArchived = errors.New("document is not archived")

	// ErrSessionClosed indicates the session has been torn down and no
	// further operations are accepted.
	ErrSessionClosed = errors.New("session closed")
)
