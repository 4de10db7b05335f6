package models

import "time"

// API key scopes. Keys carry an explicit scope list; the admin surface
// requires ScopeAbuseAdmin.
const (
	ScopeShowsRead  = "shows.read"
	ScopeShowsWrite = "shows.write"
	ScopeAbuseAdmin = "abuse.admin"
)

// APIKey is a service credential for programmatic access to the platform
// API. Only the SHA-256 hash of the key is stored.
type APIKey struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	KeyHash    string     `json:"-"` // Never exposed
	KeyPrefix  string     `json:"key_prefix"`
	Scopes     []string   `json:"scopes"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	RevokedAt  *time.Time `json:"revoked_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// UsableAt reports whether the key may authenticate at the given instant.
// A revoked or expired key is well-formed but no longer valid; presenting
// one is not treated as a guessing attempt.
func (k *APIKey) UsableAt(now time.Time) bool {
	if k.RevokedAt != nil {
		return false
	}
	if k.ExpiresAt != nil && now.After(*k.ExpiresAt) {
		return false
	}
	return true
}

// HasScope returns true if the key grants the given scope.
func (k *APIKey) HasScope(scope string) bool {
	for _, s := range k.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}
