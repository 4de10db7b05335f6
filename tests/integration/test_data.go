package integration

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/podguard/podguard/internal/auth"
	"github.com/podguard/podguard/internal/models"
	"github.com/podguard/podguard/internal/repositories"
	pkgauth "github.com/podguard/podguard/pkg/auth"
)

// SeedUser creates a platform account and returns it with the plaintext
// password
func SeedUser(t *testing.T, db *TestDB, suffix string) (*models.User, string) {
	t.Helper()
	password := "TestPassword123!"
	hash, err := pkgauth.HashPassword(password)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user, err := repositories.NewUserRepository(db.DB).Create(context.Background(), &models.User{
		Email:        fmt.Sprintf("host-%s-%s@example.com", suffix, uuid.NewString()[:8]),
		PasswordHash: hash,
		Name:         "Test Host",
	})
	if err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
	return user, password
}

// SeedAPIKey creates an API key row and returns the plaintext key
func SeedAPIKey(t *testing.T, db *TestDB, scopes ...string) (string, *models.APIKey) {
	t.Helper()
	plain, hash, err := auth.NewAPIKeyManager().GenerateAPIKey()
	if err != nil {
		t.Fatalf("failed to generate api key: %v", err)
	}

	key, err := repositories.NewAPIKeyRepository(db.DB).Create(context.Background(), &models.APIKey{
		Name:      "test-key-" + uuid.NewString()[:8],
		KeyHash:   hash,
		KeyPrefix: auth.DisplayPrefix(plain),
		Scopes:    scopes,
	})
	if err != nil {
		t.Fatalf("failed to seed api key: %v", err)
	}
	return plain, key
}

// SeedSetupToken creates an unspent setup token and returns the plaintext
func SeedSetupToken(t *testing.T, db *TestDB) string {
	t.Helper()
	plain := uuid.NewString() + uuid.NewString()

	_, err := repositories.NewSetupTokenRepository(db.DB).Create(context.Background(), &models.SetupToken{
		TokenHash: auth.HashSecret(plain),
	})
	if err != nil {
		t.Fatalf("failed to seed setup token: %v", err)
	}
	return plain
}

// SeedSubscriberToken creates a feed token valid for the given duration
// (negative durations produce an already-expired token)
func SeedSubscriberToken(t *testing.T, db *TestDB, feedSlug string, validFor time.Duration) string {
	t.Helper()
	plain := uuid.NewString()

	_, err := repositories.NewSubscriberTokenRepository(db.DB).Create(context.Background(), &models.SubscriberToken{
		Token:      plain,
		FeedSlug:   feedSlug,
		ValidUntil: time.Now().Add(validFor),
	})
	if err != nil {
		t.Fatalf("failed to seed subscriber token: %v", err)
	}
	return plain
}

// SeedCallRoom creates a room and returns its slug and plaintext join code
func SeedCallRoom(t *testing.T, db *TestDB, active bool) (string, string) {
	t.Helper()
	slug := "room-" + uuid.NewString()[:8]
	joinCode := uuid.NewString()[:12]

	_, err := repositories.NewCallRoomRepository(db.DB).Create(context.Background(), &models.CallRoom{
		Slug:         slug,
		Name:         "Test Room",
		JoinCodeHash: auth.HashSecret(joinCode),
		Active:       active,
	})
	if err != nil {
		t.Fatalf("failed to seed call room: %v", err)
	}
	return slug, joinCode
}
