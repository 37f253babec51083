package errs

import "errors"

// Common sentinel errors for cross-layer signaling.
var (
	ErrNotFound  = errors.New("not_found")
	ErrForbidden = errors.New("forbidden")
	ErrConflict  = errors.New("conflict")
	ErrInvalid   = errors.New("invalid")
	// ErrUnprocessable is used for semantic validation failures (HTTP 422)
	ErrUnprocessable = errors.New("unprocessable")
	// ErrInvalidSplit indicates a split set that violates the share invariants:
	// empty participants, shares not summing to 100%, or a non-positive amount.
	ErrInvalidSplit = errors.New("invalid_split")
	// ErrNotMember indicates the referenced user does not belong to the trip.
	ErrNotMember = errors.New("not_member")
	// ErrHandleExists indicates a registration with an already-taken handle.
	ErrHandleExists = errors.New("handle_exists")
	// ErrBadCredentials indicates a failed login credential check.
	ErrBadCredentials = errors.New("bad_credentials")
)
