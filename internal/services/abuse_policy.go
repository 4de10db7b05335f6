package services

import (
	"fmt"
	"time"

	"github.com/podguard/podguard/internal/models"
)

// AbusePolicy is the per-context tuning for the abuse guard: how far back
// failures are counted, how many are tolerated, and how long a ban lasts.
//
// The threshold is exclusive: FailureThreshold failures inside the window is
// still permitted, one more triggers a ban.
type AbusePolicy struct {
	Window           time.Duration
	FailureThreshold int
	BanDuration      time.Duration
}

// PolicyTable maps every abuse context to its policy. Construction fails if
// any known context is missing or any unknown context is present, so a
// misconfigured table is caught at startup rather than silently weakening
// protection for a forgotten endpoint.
type PolicyTable struct {
	policies map[models.AbuseContext]AbusePolicy
}

// NewPolicyTable validates and builds a policy table covering the full
// closed set of contexts.
func NewPolicyTable(policies map[models.AbuseContext]AbusePolicy) (*PolicyTable, error) {
	for _, c := range models.AllAbuseContexts {
		p, ok := policies[c]
		if !ok {
			return nil, fmt.Errorf("abuse policy: missing entry for context %q", c)
		}
		if p.Window <= 0 || p.FailureThreshold < 0 || p.BanDuration <= 0 {
			return nil, fmt.Errorf("abuse policy: invalid entry for context %q: window=%s threshold=%d ban=%s",
				c, p.Window, p.FailureThreshold, p.BanDuration)
		}
	}
	for c := range policies {
		if !c.Valid() {
			return nil, fmt.Errorf("abuse policy: entry for unknown context %q", c)
		}
	}

	table := make(map[models.AbuseContext]AbusePolicy, len(policies))
	for c, p := range policies {
		table[c] = p
	}
	return &PolicyTable{policies: table}, nil
}

// Policy returns the policy for a context. An unknown context is a
// programming error and is reported loudly, never defaulted.
func (t *PolicyTable) Policy(c models.AbuseContext) (AbusePolicy, error) {
	p, ok := t.policies[c]
	if !ok {
		return AbusePolicy{}, fmt.Errorf("abuse policy: %w: %q", models.ErrUnknownContext, c)
	}
	return p, nil
}
