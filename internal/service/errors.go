package service

import "errors"

// The service error taxonomy. Handlers map these onto HTTP statuses;
// anything else that escapes a service is treated as an internal error
// and never exposed to the caller.
var (
	// ErrBadRequest marks structurally invalid input, such as a target
	// URL that is not a valid URI.
	ErrBadRequest = errors.New("bad request")

	// ErrUnauthorized marks a missing, unknown, or expired credential
	// where one is required. Expired tokens report as unauthenticated,
	// not under-permissioned.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden marks an authenticated caller lacking the requested
	// capability, or an origin over the strike threshold.
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound marks an unknown link id.
	ErrNotFound = errors.New("not found")
)
