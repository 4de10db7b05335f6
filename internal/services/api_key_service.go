package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/podguard/podguard/internal/auth"
	"github.com/podguard/podguard/internal/models"
	pkglogger "github.com/podguard/podguard/pkg/logger"
)

// APIKeyStore defines the interface for API key lookups
type APIKeyStore interface {
	GetByHash(ctx context.Context, keyHash string) (*models.APIKey, error)
	TouchLastUsed(ctx context.Context, id string) error
}

// APIKeyService verifies presented API keys guarded by the abuse engine
type APIKeyService struct {
	keys    APIKeyStore
	manager *auth.APIKeyManager
	guard   AbuseProtector
	clock   Clock
	alerts  AlertNotifier
	logger  *slog.Logger
	audit   *pkglogger.AuditLogger
}

// NewAPIKeyService creates a new APIKeyService
func NewAPIKeyService(keys APIKeyStore, manager *auth.APIKeyManager, guard AbuseProtector, clock Clock, alerts AlertNotifier, logger *slog.Logger, audit *pkglogger.AuditLogger) *APIKeyService {
	return &APIKeyService{
		keys:    keys,
		manager: manager,
		guard:   guard,
		clock:   clock,
		alerts:  alerts,
		logger:  logger,
		audit:   audit,
	}
}

// Authenticate resolves a presented key. A malformed or unknown key is a
// guessing attempt and feeds the failure counter; a key that exists but is
// revoked or expired is rejected without counting, the same way an expired
// subscriber token is.
func (s *APIKeyService) Authenticate(ctx context.Context, rawKey, identity, userAgent string) (*models.APIKey, error) {
	status, err := s.guard.IsBanned(ctx, identity, models.ContextAuthAPIKey)
	if err != nil {
		s.logger.Error("api key pre-check failed", slog.Any("error", err))
		return nil, fmt.Errorf("%w: %v", models.ErrProtectionUnavailable, err)
	}
	if status.Banned {
		return nil, &models.RateLimitedError{RetryAfterSec: status.RetryAfterSec}
	}

	keyHash, err := s.manager.ValidateAndHashAPIKey(rawKey)
	if err != nil {
		return nil, s.recordKeyFailure(ctx, identity, userAgent, auth.DisplayPrefix(rawKey), "malformed_key")
	}

	key, err := s.keys.GetByHash(ctx, keyHash)
	if errors.Is(err, models.ErrNotFound) {
		return nil, s.recordKeyFailure(ctx, identity, userAgent, auth.DisplayPrefix(rawKey), "unknown_key")
	}
	if err != nil {
		return nil, fmt.Errorf("api key lookup: %w", err)
	}

	if !key.UsableAt(s.clock.Now()) {
		// Known credential past its life; not enumeration, not counted.
		return nil, models.ErrUnauthorized
	}

	if err := s.guard.ClearFailures(ctx, identity, models.ContextAuthAPIKey); err != nil {
		return nil, err
	}

	if err := s.keys.TouchLastUsed(ctx, key.ID); err != nil {
		s.logger.Error("failed to update api key last_used_at",
			slog.String("key_id", key.ID), slog.Any("error", err))
	}

	return key, nil
}

func (s *APIKeyService) recordKeyFailure(ctx context.Context, identity, userAgent, attempted, reason string) error {
	result, err := s.guard.RecordFailure(ctx, identity, models.ContextAuthAPIKey, FailureMeta{
		AttemptedIdentifier: attempted,
		UserAgent:           userAgent,
	})
	if err != nil {
		return err
	}

	s.audit.LogAuthAttempt(pkglogger.AuditEvent{
		EventType:     "api_key_auth",
		Identity:      identity,
		UserAgent:     userAgent,
		Success:       false,
		FailureReason: reason,
	})

	if result.BannedNow {
		s.alerts.NotifyBan(identity, string(models.ContextAuthAPIKey), result.FailuresInWindow, result.RetryAfterSec)
		return &models.RateLimitedError{RetryAfterSec: result.RetryAfterSec}
	}
	return models.ErrUnauthorized
}
