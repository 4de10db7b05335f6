package services_test

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/podguard/podguard/internal/models"
	"github.com/podguard/podguard/internal/services"
	pkglogger "github.com/podguard/podguard/pkg/logger"
)

// fakeSubscriberTokenStore implements SubscriberTokenStore
type fakeSubscriberTokenStore struct {
	tokens  map[string]*models.SubscriberToken
	lookups int
}

func (s *fakeSubscriberTokenStore) GetByToken(ctx context.Context, token string) (*models.SubscriberToken, error) {
	s.lookups++
	st, ok := s.tokens[token]
	if !ok {
		return nil, models.ErrNotFound
	}
	return st, nil
}

func newFeedServiceForTest(t *testing.T, tokens *fakeSubscriberTokenStore, guard *fakeGuard, clock services.Clock, alerts *recordingAlerts) *services.FeedService {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return services.NewFeedService(tokens, guard, clock, alerts, logger, pkglogger.NewAuditLogger(logger))
}

func TestFeedService_UnknownTokenFeedsCounter(t *testing.T) {
	tokens := &fakeSubscriberTokenStore{tokens: map[string]*models.SubscriberToken{}}
	guard := &fakeGuard{}
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	svc := newFeedServiceForTest(t, tokens, guard, clock, &recordingAlerts{})

	_, err := svc.ResolveToken(context.Background(), "never-issued", "192.0.2.1", "ua")

	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.Len(t, guard.recordCalls, 1, "guessing an unissued token is enumeration")
}

func TestFeedService_ExpiredTokenNeverCounts(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	tokens := &fakeSubscriberTokenStore{tokens: map[string]*models.SubscriberToken{
		"lapsed": {
			Token:      "lapsed",
			FeedSlug:   "my-show",
			ValidUntil: clock.now.Add(-time.Hour),
		},
	}}
	guard := &fakeGuard{}
	svc := newFeedServiceForTest(t, tokens, guard, clock, &recordingAlerts{})

	// A podcast client replaying a lapsed subscription must never ban itself,
	// no matter how persistent it is.
	for i := 0; i < 20; i++ {
		_, err := svc.ResolveToken(context.Background(), "lapsed", "192.0.2.1", "ua")
		assert.ErrorIs(t, err, models.ErrNotFound)
	}
	assert.Empty(t, guard.recordCalls, "a known-but-expired token is not a guessing attempt")
}

func TestFeedService_ValidTokenResolvesAndClears(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	tokens := &fakeSubscriberTokenStore{tokens: map[string]*models.SubscriberToken{
		"live": {
			Token:      "live",
			FeedSlug:   "my-show",
			ValidUntil: clock.now.Add(24 * time.Hour),
		},
	}}
	guard := &fakeGuard{}
	svc := newFeedServiceForTest(t, tokens, guard, clock, &recordingAlerts{})

	st, err := svc.ResolveToken(context.Background(), "live", "192.0.2.1", "ua")

	require.NoError(t, err)
	assert.Equal(t, "my-show", st.FeedSlug)
	assert.Equal(t, 1, guard.clearCalls)
}

func TestFeedService_BannedIdentitySkipsLookup(t *testing.T) {
	tokens := &fakeSubscriberTokenStore{tokens: map[string]*models.SubscriberToken{}}
	guard := &fakeGuard{banned: true, retryAfterSec: 120}
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	svc := newFeedServiceForTest(t, tokens, guard, clock, &recordingAlerts{})

	_, err := svc.ResolveToken(context.Background(), "anything", "192.0.2.1", "ua")

	var rateLimited *models.RateLimitedError
	require.ErrorAs(t, err, &rateLimited)
	assert.Equal(t, 120, rateLimited.RetryAfterSec)
	assert.Zero(t, tokens.lookups)
}

func TestFeedService_BanTriggeredOnEnumeration(t *testing.T) {
	tokens := &fakeSubscriberTokenStore{tokens: map[string]*models.SubscriberToken{}}
	guard := &fakeGuard{recordResult: services.FailureResult{
		BannedNow:        true,
		RetryAfterSec:    3600,
		FailuresInWindow: 11,
	}}
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	alerts := &recordingAlerts{}
	svc := newFeedServiceForTest(t, tokens, guard, clock, alerts)

	_, err := svc.ResolveToken(context.Background(), "never-issued", "192.0.2.1", "ua")

	var rateLimited *models.RateLimitedError
	require.ErrorAs(t, err, &rateLimited)
	assert.Equal(t, 3600, rateLimited.RetryAfterSec)
	assert.Equal(t, 1, alerts.notified)
}
