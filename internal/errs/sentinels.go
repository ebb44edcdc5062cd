// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across client/stub layers.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrVersionConflict indicates optimistic concurrency failure (stale version on update).
	ErrVersionConflict = errors.New("version conflict")

	// ErrUnauthenticated indicates a missing or rejected access token.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrMissingEndpoint indicates no backend base URL is configured for the active region.
	ErrMissingEndpoint = errors.New("missing api endpoint")

	// ErrRateLimited indicates a temporary lock due to too many requests.
	ErrRateLimited = errors.New("rate limited")

	// ErrValidation indicates input rejected locally before any network call.
	ErrValidation = errors.New("validation")
)
