package api

import (
	"net/http"

	"github.com/learnhub/learnhub-go/internal/errs"
)

// Kind classifies a normalized API error per the client's error taxonomy.
type Kind int

const (
	// KindConfig: missing base URL; fatal to the attempted call only.
	KindConfig Kind = iota
	// KindAuth: missing/invalid/expired token; triggers redirect to login.
	KindAuth
	// KindValidation: rejected locally before any network call.
	KindValidation
	// KindTransport: network failure.
	KindTransport
	// KindServer: non-2xx or envelope error code.
	KindServer
	// KindConflict: stale version on update (HTTP 409).
	KindConflict
)

// Error is the normalized failure every expected failure mode resolves to.
// Message is the backend's verbatim message when one was available.
type Error struct {
	Kind      Kind
	Message   string
	Status    int
	RequestID string
}

func (e *Error) Error() string { return e.Message }

// Unwrap maps the error kind onto the shared sentinels so callers can use
// errors.Is without importing this package's kinds.
func (e *Error) Unwrap() error {
	switch e.Kind {
	case KindConfig:
		return errs.ErrMissingEndpoint
	case KindAuth:
		return errs.ErrUnauthenticated
	case KindValidation:
		return errs.ErrValidation
	case KindConflict:
		return errs.ErrVersionConflict
	case KindServer:
		if e.Status == http.StatusTooManyRequests {
			return errs.ErrRateLimited
		}
		return nil
	default:
		return nil
	}
}
