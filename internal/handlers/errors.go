package handlers

import (
	"errors"
	"net/http"

	"github.com/podguard/podguard/internal/models"
	pkghttp "github.com/podguard/podguard/pkg/http"
)

// writeServiceError maps service-layer errors onto HTTP responses. Bans map
// to 429 with Retry-After; an unreachable protection store maps to 503
// because the pre-check fails closed.
func writeServiceError(w http.ResponseWriter, err error) {
	var rateLimited *models.RateLimitedError
	switch {
	case errors.As(err, &rateLimited):
		pkghttp.WriteRateLimited(w, rateLimited.RetryAfterSec, "Too many failed attempts")
	case errors.Is(err, models.ErrProtectionUnavailable):
		pkghttp.WriteServiceUnavailable(w, "Service temporarily unavailable")
	case errors.Is(err, models.ErrUnauthorized):
		pkghttp.WriteUnauthorized(w, "Authentication failed")
	case errors.Is(err, models.ErrNotFound):
		pkghttp.WriteNotFound(w, "Not found")
	case errors.Is(err, models.ErrBadRequest):
		pkghttp.WriteBadRequest(w, "Bad request")
	default:
		pkghttp.WriteInternalError(w, "Internal server error")
	}
}
