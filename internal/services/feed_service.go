package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/podguard/podguard/internal/models"
	pkglogger "github.com/podguard/podguard/pkg/logger"
)

// SubscriberTokenStore defines the interface for private-feed token lookups
type SubscriberTokenStore interface {
	GetByToken(ctx context.Context, token string) (*models.SubscriberToken, error)
}

// FeedService resolves private-feed subscriber tokens guarded by the abuse
// engine
type FeedService struct {
	tokens SubscriberTokenStore
	guard  AbuseProtector
	clock  Clock
	alerts AlertNotifier
	logger *slog.Logger
	audit  *pkglogger.AuditLogger
}

// NewFeedService creates a new FeedService
func NewFeedService(tokens SubscriberTokenStore, guard AbuseProtector, clock Clock, alerts AlertNotifier, logger *slog.Logger, audit *pkglogger.AuditLogger) *FeedService {
	return &FeedService{
		tokens: tokens,
		guard:  guard,
		clock:  clock,
		alerts: alerts,
		logger: logger,
		audit:  audit,
	}
}

// ResolveToken maps a subscriber token to its private feed. A token nobody
// ever issued is an enumeration attempt and feeds the failure counter; a
// real token past its valid_until gets the same 404 but never counts, no
// matter how often it is replayed.
func (s *FeedService) ResolveToken(ctx context.Context, token, identity, userAgent string) (*models.SubscriberToken, error) {
	status, err := s.guard.IsBanned(ctx, identity, models.ContextAuthSubscriberToken)
	if err != nil {
		s.logger.Error("feed token pre-check failed", slog.Any("error", err))
		return nil, fmt.Errorf("%w: %v", models.ErrProtectionUnavailable, err)
	}
	if status.Banned {
		return nil, &models.RateLimitedError{RetryAfterSec: status.RetryAfterSec}
	}

	st, err := s.tokens.GetByToken(ctx, token)
	if errors.Is(err, models.ErrNotFound) {
		result, recErr := s.guard.RecordFailure(ctx, identity, models.ContextAuthSubscriberToken, FailureMeta{
			UserAgent: userAgent,
		})
		if recErr != nil {
			return nil, recErr
		}

		s.audit.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     "subscriber_token",
			Identity:      identity,
			UserAgent:     userAgent,
			Success:       false,
			FailureReason: "unknown_token",
		})

		if result.BannedNow {
			s.alerts.NotifyBan(identity, string(models.ContextAuthSubscriberToken), result.FailuresInWindow, result.RetryAfterSec)
			return nil, &models.RateLimitedError{RetryAfterSec: result.RetryAfterSec}
		}
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("subscriber token lookup: %w", err)
	}

	if !st.ValidAt(s.clock.Now()) {
		// Expired is not unknown: same response to the client, no counting.
		return nil, models.ErrNotFound
	}

	if err := s.guard.ClearFailures(ctx, identity, models.ContextAuthSubscriberToken); err != nil {
		return nil, err
	}
	return st, nil
}
