package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"

	"github.com/podguard/podguard/internal/auth"
	"github.com/podguard/podguard/internal/models"
	pkglogger "github.com/podguard/podguard/pkg/logger"
)

// CallRoomStore defines the interface for call room lookups
type CallRoomStore interface {
	GetBySlug(ctx context.Context, slug string) (*models.CallRoom, error)
}

// CallService verifies group-call join codes guarded by the abuse engine
type CallService struct {
	rooms  CallRoomStore
	guard  AbuseProtector
	alerts AlertNotifier
	logger *slog.Logger
	audit  *pkglogger.AuditLogger
}

// NewCallService creates a new CallService
func NewCallService(rooms CallRoomStore, guard AbuseProtector, alerts AlertNotifier, logger *slog.Logger, audit *pkglogger.AuditLogger) *CallService {
	return &CallService{
		rooms:  rooms,
		guard:  guard,
		alerts: alerts,
		logger: logger,
		audit:  audit,
	}
}

// Join admits a participant into a recording room. Guessing room slugs or
// join codes feeds the failure counter; a room that exists but has been
// closed responds not-found without counting.
func (s *CallService) Join(ctx context.Context, slug, joinCode, identity, userAgent string) (*models.CallRoom, error) {
	status, err := s.guard.IsBanned(ctx, identity, models.ContextCallJoin)
	if err != nil {
		s.logger.Error("call join pre-check failed", slog.Any("error", err))
		return nil, fmt.Errorf("%w: %v", models.ErrProtectionUnavailable, err)
	}
	if status.Banned {
		return nil, &models.RateLimitedError{RetryAfterSec: status.RetryAfterSec}
	}

	room, err := s.rooms.GetBySlug(ctx, slug)
	if errors.Is(err, models.ErrNotFound) {
		return nil, s.recordJoinFailure(ctx, identity, userAgent, slug, "unknown_room", models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("call room lookup: %w", err)
	}

	if !room.Active {
		// Closed rooms no longer take a join code; nothing to guess.
		return nil, models.ErrNotFound
	}

	codeHash := auth.HashSecret(joinCode)
	if subtle.ConstantTimeCompare([]byte(codeHash), []byte(room.JoinCodeHash)) != 1 {
		return nil, s.recordJoinFailure(ctx, identity, userAgent, slug, "wrong_join_code", models.ErrUnauthorized)
	}

	if err := s.guard.ClearFailures(ctx, identity, models.ContextCallJoin); err != nil {
		return nil, err
	}

	s.audit.LogAuthAttempt(pkglogger.AuditEvent{
		EventType: "call_join",
		Identity:  identity,
		UserAgent: userAgent,
		Success:   true,
		Metadata:  map[string]string{"room": slug},
	})
	return room, nil
}

func (s *CallService) recordJoinFailure(ctx context.Context, identity, userAgent, slug, reason string, verifyErr error) error {
	result, err := s.guard.RecordFailure(ctx, identity, models.ContextCallJoin, FailureMeta{
		AttemptedIdentifier: slug,
		UserAgent:           userAgent,
	})
	if err != nil {
		return err
	}

	s.audit.LogAuthAttempt(pkglogger.AuditEvent{
		EventType:     "call_join",
		Identity:      identity,
		UserAgent:     userAgent,
		Success:       false,
		FailureReason: reason,
		Metadata:      map[string]string{"room": slug},
	})

	if result.BannedNow {
		s.alerts.NotifyBan(identity, string(models.ContextCallJoin), result.FailuresInWindow, result.RetryAfterSec)
		return &models.RateLimitedError{RetryAfterSec: result.RetryAfterSec}
	}
	return verifyErr
}
