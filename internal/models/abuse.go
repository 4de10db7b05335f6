package models

import "time"

// AbuseContext identifies the class of protected operation a failure or ban
// is tracked under. The set is closed: adding a context means adding a
// constant here and a policy entry for it, which the policy table enforces
// at startup.
type AbuseContext string

const (
	ContextAuthLogin           AbuseContext = "auth_login"
	ContextSetup               AbuseContext = "setup"
	ContextAuthAPIKey          AbuseContext = "auth_apikey"
	ContextAuthSubscriberToken AbuseContext = "auth_subscriber_token"
	ContextCallJoin            AbuseContext = "call_join"
)

// AllAbuseContexts lists every known context. Policy validation iterates
// this to guarantee exhaustive coverage.
var AllAbuseContexts = []AbuseContext{
	ContextAuthLogin,
	ContextSetup,
	ContextAuthAPIKey,
	ContextAuthSubscriberToken,
	ContextCallJoin,
}

// Valid reports whether c is a member of the closed context set.
func (c AbuseContext) Valid() bool {
	for _, known := range AllAbuseContexts {
		if c == known {
			return true
		}
	}
	return false
}

// AttemptRecord is one failed-verification event in the append-only attempt
// log. Records are immutable once written; they are only ever deleted in
// bulk (on successful verification, or by retention housekeeping).
type AttemptRecord struct {
	ID                  int64        `db:"id"`
	Identity            string       `db:"identity"`
	Context             AbuseContext `db:"context"`
	AttemptedIdentifier string       `db:"attempted_identifier"` // audit only, never counted
	UserAgent           string       `db:"user_agent"`
	CreatedAt           time.Time    `db:"created_at"`
}

// Ban is a temporary denial row keyed by (identity, context). A row is only
// meaningful while BannedUntil is in the future; stale rows may linger until
// overwritten or deleted and must never be treated as active.
type Ban struct {
	Identity    string       `db:"identity"`
	Context     AbuseContext `db:"context"`
	BannedUntil time.Time    `db:"banned_until"`
	CreatedAt   time.Time    `db:"created_at"`
	UpdatedAt   time.Time    `db:"updated_at"`
}

// ActiveAt reports whether the ban is in force at the given instant.
// Strict comparison: a ban expiring exactly now is no longer active.
func (b *Ban) ActiveAt(now time.Time) bool {
	return b.BannedUntil.After(now)
}
