package repositories

import (
	"context"
	"time"

	"github.com/lib/pq"
	"github.com/podguard/podguard/internal/database"
	"github.com/podguard/podguard/internal/models"
)

// APIKeyRepository handles database operations for API keys
type APIKeyRepository struct {
	db *database.DB
}

// NewAPIKeyRepository creates a new APIKeyRepository
func NewAPIKeyRepository(db *database.DB) *APIKeyRepository {
	return &APIKeyRepository{db: db}
}

// GetByHash returns the API key matching the SHA-256 hash, or ErrNotFound.
// Revoked and expired keys are still returned; the caller distinguishes a
// dead-but-known key from one that never existed.
func (r *APIKeyRepository) GetByHash(ctx context.Context, keyHash string) (*models.APIKey, error) {
	query := `
		SELECT id, name, key_hash, key_prefix, scopes, last_used_at, expires_at, revoked_at, created_at, updated_at
		FROM api_keys
		WHERE key_hash = $1
	`

	var key models.APIKey
	var lastUsedAt, expiresAt, revokedAt *time.Time

	err := r.db.Pool.QueryRow(ctx, query, keyHash).Scan(
		&key.ID,
		&key.Name,
		&key.KeyHash,
		&key.KeyPrefix,
		pq.Array(&key.Scopes),
		&lastUsedAt,
		&expiresAt,
		&revokedAt,
		&key.CreatedAt,
		&key.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	key.LastUsedAt = lastUsedAt
	key.ExpiresAt = expiresAt
	key.RevokedAt = revokedAt
	return &key, nil
}

// Create inserts a new API key row.
func (r *APIKeyRepository) Create(ctx context.Context, key *models.APIKey) (*models.APIKey, error) {
	query := `
		INSERT INTO api_keys (name, key_hash, key_prefix, scopes, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`

	err := r.db.Pool.QueryRow(ctx, query,
		key.Name,
		key.KeyHash,
		key.KeyPrefix,
		pq.Array(key.Scopes),
		key.ExpiresAt,
	).Scan(&key.ID, &key.CreatedAt, &key.UpdatedAt)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return key, nil
}

// TouchLastUsed records that the key authenticated successfully just now.
func (r *APIKeyRepository) TouchLastUsed(ctx context.Context, id string) error {
	query := `UPDATE api_keys SET last_used_at = CURRENT_TIMESTAMP WHERE id = $1`
	_, err := r.db.Pool.Exec(ctx, query, id)
	return database.MapPostgresError(err)
}
