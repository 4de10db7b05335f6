package repositories

import (
	"context"

	"github.com/podguard/podguard/internal/database"
	"github.com/podguard/podguard/internal/models"
)

// SubscriberTokenRepository handles database operations for private-feed
// subscriber tokens
type SubscriberTokenRepository struct {
	db *database.DB
}

// NewSubscriberTokenRepository creates a new SubscriberTokenRepository
func NewSubscriberTokenRepository(db *database.DB) *SubscriberTokenRepository {
	return &SubscriberTokenRepository{db: db}
}

// GetByToken returns the subscriber token row, or ErrNotFound. Tokens past
// their validity horizon are still returned so the caller can tell an
// expired token from one that was never issued.
func (r *SubscriberTokenRepository) GetByToken(ctx context.Context, token string) (*models.SubscriberToken, error) {
	query := `
		SELECT id, token, feed_slug, valid_until, created_at
		FROM subscriber_tokens
		WHERE token = $1
	`

	var st models.SubscriberToken
	err := r.db.Pool.QueryRow(ctx, query, token).Scan(
		&st.ID,
		&st.Token,
		&st.FeedSlug,
		&st.ValidUntil,
		&st.CreatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &st, nil
}

// Create inserts a new subscriber token row.
func (r *SubscriberTokenRepository) Create(ctx context.Context, token *models.SubscriberToken) (*models.SubscriberToken, error) {
	query := `
		INSERT INTO subscriber_tokens (token, feed_slug, valid_until)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`
	err := r.db.Pool.QueryRow(ctx, query, token.Token, token.FeedSlug, token.ValidUntil).Scan(&token.ID, &token.CreatedAt)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return token, nil
}
