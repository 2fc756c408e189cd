package sentinel

import "errors"

// Sentinel errors for infrastructure facts. The remote-API client returns
// these (optionally wrapped) so services can translate them into domain
// errors and user-facing guidance.
//
// These represent factual states about remote resources, not validation
// failures:
// - ErrNotFound: resource does not exist remotely
// - ErrUnauthorized: credentials missing or rejected (HTTP 401)
// - ErrForbidden: credentials valid but lacking permission (HTTP 403)
// - ErrRateLimited: remote asked us to back off (HTTP 429)
// - ErrUnavailable: remote temporarily unreachable or failing (5xx, network)
//
// For validation errors (bad input, missing fields), use pkg/domain-errors
// directly.
var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrRateLimited  = errors.New("rate limited")
	ErrUnavailable  = errors.New("unavailable")
)
