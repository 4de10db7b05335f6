package models

import "time"

// SetupToken is a one-time token that authorizes first-run instance setup.
// Only its SHA-256 hash is stored; a token is spent the moment it validates.
type SetupToken struct {
	ID        string     `json:"id"`
	TokenHash string     `json:"-"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// SubscriberToken grants access to a private podcast feed. Tokens have an
// explicit validity horizon: a token past ValidUntil is known but no longer
// honored, which is distinct from a token that was never issued.
type SubscriberToken struct {
	ID         string    `json:"id"`
	Token      string    `json:"-"`
	FeedSlug   string    `json:"feed_slug"`
	ValidUntil time.Time `json:"valid_until"`
	CreatedAt  time.Time `json:"created_at"`
}

// ValidAt reports whether the token is still within its validity window.
func (t *SubscriberToken) ValidAt(now time.Time) bool {
	return t.ValidUntil.After(now)
}

// CallRoom is a group-call recording room that participants join with a
// shared join code. Only the code's SHA-256 hash is stored.
type CallRoom struct {
	ID           string    `json:"id"`
	Slug         string    `json:"slug"`
	Name         string    `json:"name"`
	JoinCodeHash string    `json:"-"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
}
