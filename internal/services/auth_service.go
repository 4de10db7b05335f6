package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/podguard/podguard/internal/auth"
	"github.com/podguard/podguard/internal/models"
	pkgauth "github.com/podguard/podguard/pkg/auth"
	pkglogger "github.com/podguard/podguard/pkg/logger"
)

// UserStore defines the interface for account lookups during login
type UserStore interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

// SessionIssuer mints an access token for an authenticated user
type SessionIssuer interface {
	IssueAccessToken(user *models.User) (string, time.Time, error)
}

// LoginResponse is returned on successful password login
type LoginResponse struct {
	AccessToken string       `json:"access_token"`
	ExpiresAt   time.Time    `json:"expires_at"`
	User        *models.User `json:"user"`
}

// AuthService implements password login guarded by the abuse engine
type AuthService struct {
	users    UserStore
	guard    AbuseProtector
	sessions SessionIssuer
	timing   *auth.TimingDelay
	alerts   AlertNotifier
	logger   *slog.Logger
	audit    *pkglogger.AuditLogger
}

// NewAuthService creates a new AuthService
func NewAuthService(users UserStore, guard AbuseProtector, sessions SessionIssuer, timing *auth.TimingDelay, alerts AlertNotifier, logger *slog.Logger, audit *pkglogger.AuditLogger) *AuthService {
	return &AuthService{
		users:    users,
		guard:    guard,
		sessions: sessions,
		timing:   timing,
		alerts:   alerts,
		logger:   logger,
		audit:    audit,
	}
}

// Login authenticates a platform account. The ban pre-check runs before any
// credential work: a banned identity never reaches the password comparison,
// and an unreachable protection store rejects the request outright (fail
// closed). A definitively wrong email or password feeds the failure
// counter; a successful login clears it.
func (s *AuthService) Login(ctx context.Context, email, password, identity, userAgent string) (*LoginResponse, error) {
	status, err := s.guard.IsBanned(ctx, identity, models.ContextAuthLogin)
	if err != nil {
		s.logger.Error("login pre-check failed", slog.Any("error", err))
		return nil, fmt.Errorf("%w: %v", models.ErrProtectionUnavailable, err)
	}
	if status.Banned {
		return nil, &models.RateLimitedError{RetryAfterSec: status.RetryAfterSec}
	}

	var verifyErr error
	user, err := s.users.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, models.ErrNotFound):
		verifyErr = models.ErrUnauthorized
	case err != nil:
		return nil, fmt.Errorf("login: user lookup: %w", err)
	case !pkgauth.CheckPassword(password, user.PasswordHash):
		verifyErr = models.ErrUnauthorized
	}

	s.timing.Wait(verifyErr == nil)

	if verifyErr != nil {
		result, recErr := s.guard.RecordFailure(ctx, identity, models.ContextAuthLogin, FailureMeta{
			AttemptedIdentifier: email,
			UserAgent:           userAgent,
		})
		if recErr != nil {
			return nil, recErr
		}

		s.audit.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     "login",
			Identity:      identity,
			UserAgent:     userAgent,
			Success:       false,
			FailureReason: "invalid_credentials",
			Metadata:      map[string]string{"email": pkglogger.SanitizedEmail(email)},
		})

		if result.BannedNow {
			s.alerts.NotifyBan(identity, string(models.ContextAuthLogin), result.FailuresInWindow, result.RetryAfterSec)
			return nil, &models.RateLimitedError{RetryAfterSec: result.RetryAfterSec}
		}
		return nil, verifyErr
	}

	if err := s.guard.ClearFailures(ctx, identity, models.ContextAuthLogin); err != nil {
		return nil, err
	}

	token, expiresAt, err := s.sessions.IssueAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("login: issue token: %w", err)
	}

	s.audit.LogAuthAttempt(pkglogger.AuditEvent{
		EventType: "login",
		Identity:  identity,
		UserAgent: userAgent,
		Success:   true,
		Metadata:  map[string]string{"email": pkglogger.SanitizedEmail(email)},
	})

	return &LoginResponse{
		AccessToken: token,
		ExpiresAt:   expiresAt,
		User:        user,
	}, nil
}
