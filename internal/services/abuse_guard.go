package services

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/podguard/podguard/internal/models"
	pkglogger "github.com/podguard/podguard/pkg/logger"
)

// IdentitySentinel replaces an empty identity before any read or write, so
// an empty string is never used as a storage key.
const IdentitySentinel = "unknown"

// AttemptStore defines the interface for the append-only failed-attempt log
type AttemptStore interface {
	// InsertAttempt persists exactly one record and is durable before return;
	// the very next count query must observe it.
	InsertAttempt(ctx context.Context, record *models.AttemptRecord) error
	CountAttemptsSince(ctx context.Context, identity string, abuseCtx models.AbuseContext, since time.Time) (int, error)
	// ClearAttempts deletes all records for the key. Deleting zero rows is
	// not an error.
	ClearAttempts(ctx context.Context, identity string, abuseCtx models.AbuseContext) error
}

// BanStore defines the interface for the keyed temporary-ban table
type BanStore interface {
	// GetBan returns the raw row for the key, or nil when none exists. The
	// caller decides whether it is still active; stale rows are expected.
	GetBan(ctx context.Context, identity string, abuseCtx models.AbuseContext) (*models.Ban, error)
	// UpsertBan inserts the row or, on key conflict, overwrites banned_until
	// and refreshes updated_at. Restart-the-clock semantics, not max/merge.
	UpsertBan(ctx context.Context, ban *models.Ban) error
	// DeleteBan removes the row for the exact key. Idempotent.
	DeleteBan(ctx context.Context, identity string, abuseCtx models.AbuseContext) error
	// DeleteBansForIdentity removes bans under every context for the identity
	// and returns how many rows went away.
	DeleteBansForIdentity(ctx context.Context, identity string) (int64, error)
}

// BanStatus is the result of a pre-check.
type BanStatus struct {
	Banned        bool
	RetryAfterSec int
}

// FailureResult is the result of recording one failed verification.
type FailureResult struct {
	BannedNow        bool
	RetryAfterSec    int
	FailuresInWindow int
}

// FailureMeta is optional audit detail attached to an attempt record. The
// attempted identifier is never used in counting logic.
type FailureMeta struct {
	AttemptedIdentifier string
	UserAgent           string
}

// AbuseProtector is the guard surface the authentication flows consume.
type AbuseProtector interface {
	IsBanned(ctx context.Context, identity string, abuseCtx models.AbuseContext) (BanStatus, error)
	RecordFailure(ctx context.Context, identity string, abuseCtx models.AbuseContext, meta FailureMeta) (FailureResult, error)
	ClearFailures(ctx context.Context, identity string, abuseCtx models.AbuseContext) error
}

// AbuseGuard tracks failed verification attempts per (identity, context) in
// a sliding window and issues temporary bans once a threshold is exceeded.
//
// Every call goes straight to the shared store; there is no in-process
// cache, so an administrative unban is visible on the very next request and
// multiple server processes sharing one database stay consistent. Store
// errors always propagate; a silently-dropped write would erode the
// protection guarantee.
type AbuseGuard struct {
	attempts AttemptStore
	bans     BanStore
	policies *PolicyTable
	clock    Clock
	logger   *slog.Logger
	audit    *pkglogger.AuditLogger
}

// NewAbuseGuard creates an AbuseGuard with explicit store dependencies.
func NewAbuseGuard(attempts AttemptStore, bans BanStore, policies *PolicyTable, clock Clock, logger *slog.Logger, audit *pkglogger.AuditLogger) *AbuseGuard {
	return &AbuseGuard{
		attempts: attempts,
		bans:     bans,
		policies: policies,
		clock:    clock,
		logger:   logger,
		audit:    audit,
	}
}

// IsBanned reports whether the identity is currently banned under the
// context, and if so how many seconds remain. The remaining time is always
// derived from the stored expiry at call time, so the value stays correct
// long after the ban was written and across processes sharing one store.
func (g *AbuseGuard) IsBanned(ctx context.Context, identity string, abuseCtx models.AbuseContext) (BanStatus, error) {
	identity = normalizeIdentity(identity)
	if !abuseCtx.Valid() {
		return BanStatus{}, fmt.Errorf("abuse guard: %w: %q", models.ErrUnknownContext, abuseCtx)
	}

	ban, err := g.bans.GetBan(ctx, identity, abuseCtx)
	if err != nil {
		return BanStatus{}, fmt.Errorf("abuse guard: ban lookup for %q/%s: %w", identity, abuseCtx, err)
	}
	if ban == nil {
		return BanStatus{}, nil
	}

	now := g.clock.Now()
	if !ban.ActiveAt(now) {
		// Stale row; expiry is lazy, the row stays until overwritten,
		// deleted, or swept by housekeeping.
		return BanStatus{}, nil
	}

	return BanStatus{Banned: true, RetryAfterSec: retryAfterSeconds(ban.BannedUntil, now)}, nil
}

// RecordFailure appends exactly one attempt record, re-counts the trailing
// window, and bans the key once the count strictly exceeds the policy
// threshold. A failure recorded while a ban is already in place extends the
// ban's expiry to now + ban duration; it never shortens it.
func (g *AbuseGuard) RecordFailure(ctx context.Context, identity string, abuseCtx models.AbuseContext, meta FailureMeta) (FailureResult, error) {
	identity = normalizeIdentity(identity)

	policy, err := g.policies.Policy(abuseCtx)
	if err != nil {
		return FailureResult{}, fmt.Errorf("abuse guard: %w", err)
	}

	record := &models.AttemptRecord{
		Identity:            identity,
		Context:             abuseCtx,
		AttemptedIdentifier: strings.ToLower(meta.AttemptedIdentifier),
		UserAgent:           meta.UserAgent,
		CreatedAt:           g.clock.Now(),
	}
	if err := g.attempts.InsertAttempt(ctx, record); err != nil {
		return FailureResult{}, fmt.Errorf("abuse guard: record attempt for %q/%s: %w", identity, abuseCtx, err)
	}

	windowStart := g.clock.Now().Add(-policy.Window)
	failures, err := g.attempts.CountAttemptsSince(ctx, identity, abuseCtx, windowStart)
	if err != nil {
		return FailureResult{}, fmt.Errorf("abuse guard: count attempts for %q/%s: %w", identity, abuseCtx, err)
	}

	// Exclusive threshold: a count equal to the threshold is still allowed.
	if failures <= policy.FailureThreshold {
		return FailureResult{FailuresInWindow: failures}, nil
	}

	now := g.clock.Now()
	ban := &models.Ban{
		Identity:    identity,
		Context:     abuseCtx,
		BannedUntil: now.Add(policy.BanDuration),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := g.bans.UpsertBan(ctx, ban); err != nil {
		return FailureResult{}, fmt.Errorf("abuse guard: upsert ban for %q/%s: %w", identity, abuseCtx, err)
	}

	// Re-read the persisted expiry rather than trusting the duration just
	// used, so the reported retry-after survives clock skew between the
	// write and the response.
	status, err := g.IsBanned(ctx, identity, abuseCtx)
	if err != nil {
		return FailureResult{}, err
	}

	g.logger.Warn("identity banned",
		slog.String("identity", identity),
		slog.String("context", string(abuseCtx)),
		slog.Int("failures_in_window", failures),
		slog.Int("retry_after_sec", status.RetryAfterSec))
	g.audit.LogBanTriggered(identity, string(abuseCtx), failures, status.RetryAfterSec)

	return FailureResult{
		BannedNow:        true,
		RetryAfterSec:    status.RetryAfterSec,
		FailuresInWindow: failures,
	}, nil
}

// ClearFailures wipes the attempt log for the key after a successful
// verification. It never touches ban rows: an active ban is lifted only by
// expiry or an explicit unban.
func (g *AbuseGuard) ClearFailures(ctx context.Context, identity string, abuseCtx models.AbuseContext) error {
	identity = normalizeIdentity(identity)
	if err := g.attempts.ClearAttempts(ctx, identity, abuseCtx); err != nil {
		return fmt.Errorf("abuse guard: clear attempts for %q/%s: %w", identity, abuseCtx, err)
	}
	return nil
}

// Unban administratively removes bans for an identity. With a context it
// clears that single key; with nil it clears the identity across all
// contexts, since one address may be banned under several contexts at once
// and an operator wants one action to clear it. The identity string is used
// exactly as supplied (beyond the empty-string sentinel); operators trying
// to clear an address seen in several textual forms submit each form.
func (g *AbuseGuard) Unban(ctx context.Context, identity string, abuseCtx *models.AbuseContext) error {
	identity = normalizeIdentity(identity)

	if abuseCtx == nil {
		removed, err := g.bans.DeleteBansForIdentity(ctx, identity)
		if err != nil {
			return fmt.Errorf("abuse guard: unban %q: %w", identity, err)
		}
		g.logger.Info("identity unbanned",
			slog.String("identity", identity),
			slog.Int64("bans_removed", removed))
		g.audit.LogUnban(identity, "", removed)
		return nil
	}

	if !abuseCtx.Valid() {
		return fmt.Errorf("abuse guard: %w: %q", models.ErrUnknownContext, *abuseCtx)
	}
	if err := g.bans.DeleteBan(ctx, identity, *abuseCtx); err != nil {
		return fmt.Errorf("abuse guard: unban %q/%s: %w", identity, *abuseCtx, err)
	}
	g.logger.Info("identity unbanned",
		slog.String("identity", identity),
		slog.String("context", string(*abuseCtx)))
	g.audit.LogUnban(identity, string(*abuseCtx), 1)
	return nil
}

// normalizeIdentity substitutes the sentinel for a missing identity. It
// never fails and performs no address-form normalization.
func normalizeIdentity(identity string) string {
	if identity == "" {
		return IdentitySentinel
	}
	return identity
}

// retryAfterSeconds converts the stored expiry into whole seconds remaining,
// rounded up and never less than one.
func retryAfterSeconds(bannedUntil, now time.Time) int {
	secs := int(math.Ceil(bannedUntil.Sub(now).Seconds()))
	if secs < 1 {
		secs = 1
	}
	return secs
}
