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

// SetupTokenStore defines the interface for one-time setup token claims
type SetupTokenStore interface {
	ClaimByHash(ctx context.Context, tokenHash string) (*models.SetupToken, error)
}

// SetupService validates first-run setup tokens guarded by the abuse engine
type SetupService struct {
	tokens SetupTokenStore
	guard  AbuseProtector
	alerts AlertNotifier
	logger *slog.Logger
	audit  *pkglogger.AuditLogger
}

// NewSetupService creates a new SetupService
func NewSetupService(tokens SetupTokenStore, guard AbuseProtector, alerts AlertNotifier, logger *slog.Logger, audit *pkglogger.AuditLogger) *SetupService {
	return &SetupService{
		tokens: tokens,
		guard:  guard,
		alerts: alerts,
		logger: logger,
		audit:  audit,
	}
}

// ValidateToken spends a one-time setup token. An unknown token and a token
// that was already spent both count as failures; each token validates at
// most once.
func (s *SetupService) ValidateToken(ctx context.Context, token, identity, userAgent string) error {
	status, err := s.guard.IsBanned(ctx, identity, models.ContextSetup)
	if err != nil {
		s.logger.Error("setup pre-check failed", slog.Any("error", err))
		return fmt.Errorf("%w: %v", models.ErrProtectionUnavailable, err)
	}
	if status.Banned {
		return &models.RateLimitedError{RetryAfterSec: status.RetryAfterSec}
	}

	_, err = s.tokens.ClaimByHash(ctx, auth.HashSecret(token))
	if errors.Is(err, models.ErrNotFound) {
		result, recErr := s.guard.RecordFailure(ctx, identity, models.ContextSetup, FailureMeta{
			UserAgent: userAgent,
		})
		if recErr != nil {
			return recErr
		}

		s.audit.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     "setup_token",
			Identity:      identity,
			UserAgent:     userAgent,
			Success:       false,
			FailureReason: "invalid_token",
		})

		if result.BannedNow {
			s.alerts.NotifyBan(identity, string(models.ContextSetup), result.FailuresInWindow, result.RetryAfterSec)
			return &models.RateLimitedError{RetryAfterSec: result.RetryAfterSec}
		}
		return models.ErrUnauthorized
	}
	if err != nil {
		return fmt.Errorf("setup token claim: %w", err)
	}

	if err := s.guard.ClearFailures(ctx, identity, models.ContextSetup); err != nil {
		return err
	}

	s.audit.LogAuthAttempt(pkglogger.AuditEvent{
		EventType: "setup_token",
		Identity:  identity,
		UserAgent: userAgent,
		Success:   true,
	})
	return nil
}
