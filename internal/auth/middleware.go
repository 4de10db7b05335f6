package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/podguard/podguard/internal/models"
	pkghttp "github.com/podguard/podguard/pkg/http"
)

type contextKey string

const apiKeyContextKey contextKey = "api_key"

// APIKeyAuthenticator verifies a presented API key for a client identity.
// Implemented by services.APIKeyService; declared here so the middleware
// does not depend on the services package.
type APIKeyAuthenticator interface {
	Authenticate(ctx context.Context, rawKey, identity, userAgent string) (*models.APIKey, error)
}

// RequireAPIKey authenticates requests carrying "Authorization: Bearer
// pgd_...". A banned identity is rejected before any key check runs, so the
// endpoint cannot be used as a verification oracle while banned. When the
// abuse-protection store is unreachable the middleware fails closed.
func RequireAPIKey(authn APIKeyAuthenticator, ipConfig *pkghttp.IPConfig) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rawKey, ok := bearerToken(r)
			if !ok {
				pkghttp.WriteUnauthorized(w, "missing API key")
				return
			}

			identity := pkghttp.ExtractClientIP(r, ipConfig)
			userAgent := r.Header.Get("User-Agent")

			key, err := authn.Authenticate(r.Context(), rawKey, identity, userAgent)
			if err != nil {
				writeAuthError(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), apiKeyContextKey, key)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireScope gates a route on an API key scope. Must run after
// RequireAPIKey.
func RequireScope(requiredScope string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := GetAPIKeyFromContext(r)
			if key == nil {
				pkghttp.WriteUnauthorized(w, "unauthorized")
				return
			}
			if !key.HasScope(requiredScope) {
				pkghttp.WriteForbidden(w, "insufficient scope")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetAPIKeyFromContext returns the authenticated API key, or nil.
func GetAPIKeyFromContext(r *http.Request) *models.APIKey {
	key, _ := r.Context().Value(apiKeyContextKey).(*models.APIKey)
	return key
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func writeAuthError(w http.ResponseWriter, err error) {
	var rateLimited *models.RateLimitedError
	switch {
	case errors.As(err, &rateLimited):
		pkghttp.WriteRateLimited(w, rateLimited.RetryAfterSec, "Too many failed attempts")
	case errors.Is(err, models.ErrProtectionUnavailable):
		pkghttp.WriteServiceUnavailable(w, "Service temporarily unavailable")
	case errors.Is(err, models.ErrUnauthorized), errors.Is(err, models.ErrNotFound):
		pkghttp.WriteUnauthorized(w, "Invalid API key")
	default:
		pkghttp.WriteInternalError(w, "Internal server error")
	}
}
