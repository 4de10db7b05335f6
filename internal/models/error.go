package models

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	// Abuse-protection errors
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
	ErrUnknownContext    = errors.New("unknown abuse context")

	// ErrProtectionUnavailable signals that the abuse-protection store could
	// not be reached during a pre-check. Callers must fail closed: reject the
	// request without running the underlying credential check.
	ErrProtectionUnavailable = errors.New("abuse protection unavailable")
)

// RateLimitedError carries the remaining ban duration alongside the
// rate-limit sentinel so HTTP handlers can emit a Retry-After header.
type RateLimitedError struct {
	RetryAfterSec int
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limit exceeded, retry after %ds", e.RetryAfterSec)
}

// Unwrap makes errors.Is(err, ErrRateLimitExceeded) hold.
func (e *RateLimitedError) Unwrap() error {
	return ErrRateLimitExceeded
}
