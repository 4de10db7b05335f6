package repositories

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/podguard/podguard/internal/database"
	"github.com/podguard/podguard/internal/models"
)

// SetupTokenRepository handles database operations for one-time setup tokens
type SetupTokenRepository struct {
	db *database.DB
}

// NewSetupTokenRepository creates a new SetupTokenRepository
func NewSetupTokenRepository(db *database.DB) *SetupTokenRepository {
	return &SetupTokenRepository{db: db}
}

// ClaimByHash atomically looks up an unused token by hash and marks it used.
// Returns ErrNotFound when the hash is unknown or the token was already
// spent; a second claim of the same token therefore fails the same way an
// invented token does.
func (r *SetupTokenRepository) ClaimByHash(ctx context.Context, tokenHash string) (*models.SetupToken, error) {
	var token models.SetupToken

	err := r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		query := `
			SELECT id, token_hash, used_at, created_at
			FROM setup_tokens
			WHERE token_hash = $1 AND used_at IS NULL
			FOR UPDATE
		`
		if err := tx.QueryRow(ctx, query, tokenHash).Scan(&token.ID, &token.TokenHash, &token.UsedAt, &token.CreatedAt); err != nil {
			return err
		}

		mark := `UPDATE setup_tokens SET used_at = CURRENT_TIMESTAMP WHERE id = $1`
		_, err := tx.Exec(ctx, mark, token.ID)
		return err
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &token, nil
}

// Create inserts a new setup token row.
func (r *SetupTokenRepository) Create(ctx context.Context, token *models.SetupToken) (*models.SetupToken, error) {
	query := `
		INSERT INTO setup_tokens (token_hash)
		VALUES ($1)
		RETURNING id, created_at
	`
	err := r.db.Pool.QueryRow(ctx, query, token.TokenHash).Scan(&token.ID, &token.CreatedAt)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return token, nil
}
