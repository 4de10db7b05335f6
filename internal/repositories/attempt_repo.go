package repositories

import (
	"context"
	"time"

	"github.com/podguard/podguard/internal/database"
	"github.com/podguard/podguard/internal/models"
)

// AttemptRepository persists the append-only failed-attempt log
type AttemptRepository struct {
	db *database.DB
}

// NewAttemptRepository creates a new AttemptRepository
func NewAttemptRepository(db *database.DB) *AttemptRepository {
	return &AttemptRepository{db: db}
}

// InsertAttempt appends one attempt record. The write is committed before
// return, so a count issued immediately after observes it.
func (r *AttemptRepository) InsertAttempt(ctx context.Context, record *models.AttemptRecord) error {
	query := `
		INSERT INTO auth_attempts (identity, context, attempted_identifier, user_agent, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.Pool.Exec(ctx, query,
		record.Identity,
		string(record.Context),
		record.AttemptedIdentifier,
		record.UserAgent,
		record.CreatedAt,
	)
	return database.MapPostgresError(err)
}

// CountAttemptsSince returns the number of attempts for the key recorded at
// or after the window start.
func (r *AttemptRepository) CountAttemptsSince(ctx context.Context, identity string, abuseCtx models.AbuseContext, since time.Time) (int, error) {
	query := `
		SELECT COUNT(*) FROM auth_attempts
		WHERE identity = $1 AND context = $2 AND created_at >= $3
	`

	var count int
	err := r.db.Pool.QueryRow(ctx, query, identity, string(abuseCtx), since).Scan(&count)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}
	return count, nil
}

// ClearAttempts deletes every attempt for the key. Idempotent.
func (r *AttemptRepository) ClearAttempts(ctx context.Context, identity string, abuseCtx models.AbuseContext) error {
	query := `DELETE FROM auth_attempts WHERE identity = $1 AND context = $2`
	_, err := r.db.Pool.Exec(ctx, query, identity, string(abuseCtx))
	return database.MapPostgresError(err)
}

// DeleteAttemptsBefore removes attempt records older than the cutoff. Used
// by retention housekeeping, not by the guard itself.
func (r *AttemptRepository) DeleteAttemptsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM auth_attempts WHERE created_at < $1`
	tag, err := r.db.Pool.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}
	return tag.RowsAffected(), nil
}
