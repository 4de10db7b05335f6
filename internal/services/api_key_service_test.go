package services_test

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/podguard/podguard/internal/auth"
	"github.com/podguard/podguard/internal/models"
	"github.com/podguard/podguard/internal/services"
	pkglogger "github.com/podguard/podguard/pkg/logger"
)

// fakeAPIKeyStore implements APIKeyStore
type fakeAPIKeyStore struct {
	keys    map[string]*models.APIKey
	touched []string
}

func (s *fakeAPIKeyStore) GetByHash(ctx context.Context, keyHash string) (*models.APIKey, error) {
	key, ok := s.keys[keyHash]
	if !ok {
		return nil, models.ErrNotFound
	}
	return key, nil
}

func (s *fakeAPIKeyStore) TouchLastUsed(ctx context.Context, id string) error {
	s.touched = append(s.touched, id)
	return nil
}

func newAPIKeyServiceForTest(t *testing.T, store *fakeAPIKeyStore, guard *fakeGuard, clock services.Clock) *services.APIKeyService {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return services.NewAPIKeyService(store, auth.NewAPIKeyManager(), guard, clock, &recordingAlerts{}, logger, pkglogger.NewAuditLogger(logger))
}

func issueTestKey(t *testing.T, store *fakeAPIKeyStore, key *models.APIKey) string {
	t.Helper()
	raw, hash, err := auth.NewAPIKeyManager().GenerateAPIKey()
	require.NoError(t, err)
	key.KeyHash = hash
	store.keys[hash] = key
	return raw
}

func TestAPIKeyService_ValidKeyAuthenticates(t *testing.T) {
	store := &fakeAPIKeyStore{keys: map[string]*models.APIKey{}}
	raw := issueTestKey(t, store, &models.APIKey{ID: "k1", Name: "ci"})
	guard := &fakeGuard{}
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	svc := newAPIKeyServiceForTest(t, store, guard, clock)

	key, err := svc.Authenticate(context.Background(), raw, "192.0.2.1", "ua")

	require.NoError(t, err)
	assert.Equal(t, "k1", key.ID)
	assert.Equal(t, 1, guard.clearCalls)
	assert.Equal(t, []string{"k1"}, store.touched)
}

func TestAPIKeyService_MalformedKeyFeedsCounter(t *testing.T) {
	store := &fakeAPIKeyStore{keys: map[string]*models.APIKey{}}
	guard := &fakeGuard{}
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	svc := newAPIKeyServiceForTest(t, store, guard, clock)

	_, err := svc.Authenticate(context.Background(), "not-a-key", "192.0.2.1", "ua")

	assert.ErrorIs(t, err, models.ErrUnauthorized)
	assert.Len(t, guard.recordCalls, 1)
}

func TestAPIKeyService_UnknownKeyFeedsCounter(t *testing.T) {
	store := &fakeAPIKeyStore{keys: map[string]*models.APIKey{}}
	guard := &fakeGuard{}
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	svc := newAPIKeyServiceForTest(t, store, guard, clock)

	// Well-formed but never issued
	raw, _, err := auth.NewAPIKeyManager().GenerateAPIKey()
	require.NoError(t, err)

	_, authErr := svc.Authenticate(context.Background(), raw, "192.0.2.1", "ua")

	assert.ErrorIs(t, authErr, models.ErrUnauthorized)
	assert.Len(t, guard.recordCalls, 1)
}

func TestAPIKeyService_RevokedKeyNeverCounts(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	revokedAt := clock.now.Add(-time.Hour)
	store := &fakeAPIKeyStore{keys: map[string]*models.APIKey{}}
	raw := issueTestKey(t, store, &models.APIKey{ID: "k1", RevokedAt: &revokedAt})
	guard := &fakeGuard{}
	svc := newAPIKeyServiceForTest(t, store, guard, clock)

	for i := 0; i < 10; i++ {
		_, err := svc.Authenticate(context.Background(), raw, "192.0.2.1", "ua")
		assert.ErrorIs(t, err, models.ErrUnauthorized)
	}
	assert.Empty(t, guard.recordCalls, "a revoked credential is known, not guessed")
	assert.Empty(t, store.touched)
}

func TestAPIKeyService_ExpiredKeyNeverCounts(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	expiresAt := clock.now.Add(-time.Minute)
	store := &fakeAPIKeyStore{keys: map[string]*models.APIKey{}}
	raw := issueTestKey(t, store, &models.APIKey{ID: "k1", ExpiresAt: &expiresAt})
	guard := &fakeGuard{}
	svc := newAPIKeyServiceForTest(t, store, guard, clock)

	_, err := svc.Authenticate(context.Background(), raw, "192.0.2.1", "ua")

	assert.ErrorIs(t, err, models.ErrUnauthorized)
	assert.Empty(t, guard.recordCalls)
}

func TestAPIKeyService_BannedIdentityRejectedUpFront(t *testing.T) {
	store := &fakeAPIKeyStore{keys: map[string]*models.APIKey{}}
	raw := issueTestKey(t, store, &models.APIKey{ID: "k1"})
	guard := &fakeGuard{banned: true, retryAfterSec: 60}
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	svc := newAPIKeyServiceForTest(t, store, guard, clock)

	// Even a valid key is rejected while the identity is banned
	_, err := svc.Authenticate(context.Background(), raw, "192.0.2.1", "ua")

	var rateLimited *models.RateLimitedError
	require.ErrorAs(t, err, &rateLimited)
	assert.Equal(t, 60, rateLimited.RetryAfterSec)
}
