package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/podguard/podguard/internal/database"
	"github.com/podguard/podguard/internal/models"
)

// BanRepository persists the temporary-ban table keyed by (identity, context)
type BanRepository struct {
	db *database.DB
}

// NewBanRepository creates a new BanRepository
func NewBanRepository(db *database.DB) *BanRepository {
	return &BanRepository{db: db}
}

// GetBan returns the raw ban row for the key, or nil when none exists.
// Stale rows (past banned_until) are returned as-is; activity is judged by
// the caller against its own clock.
func (r *BanRepository) GetBan(ctx context.Context, identity string, abuseCtx models.AbuseContext) (*models.Ban, error) {
	query := `
		SELECT identity, context, banned_until, created_at, updated_at
		FROM auth_bans
		WHERE identity = $1 AND context = $2
	`

	var ban models.Ban
	err := r.db.Pool.QueryRow(ctx, query, identity, string(abuseCtx)).Scan(
		&ban.Identity,
		&ban.Context,
		&ban.BannedUntil,
		&ban.CreatedAt,
		&ban.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &ban, nil
}

// UpsertBan inserts the ban or, on (identity, context) conflict, overwrites
// banned_until and refreshes updated_at. The insert-or-update is atomic, so
// concurrent writers for the same key cannot lose the extension.
func (r *BanRepository) UpsertBan(ctx context.Context, ban *models.Ban) error {
	query := `
		INSERT INTO auth_bans (identity, context, banned_until, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (identity, context)
		DO UPDATE SET banned_until = EXCLUDED.banned_until, updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.Pool.Exec(ctx, query,
		ban.Identity,
		string(ban.Context),
		ban.BannedUntil,
		ban.CreatedAt,
		ban.UpdatedAt,
	)
	return database.MapPostgresError(err)
}

// DeleteBan removes the ban for the exact key. Deleting zero rows is fine.
func (r *BanRepository) DeleteBan(ctx context.Context, identity string, abuseCtx models.AbuseContext) error {
	query := `DELETE FROM auth_bans WHERE identity = $1 AND context = $2`
	_, err := r.db.Pool.Exec(ctx, query, identity, string(abuseCtx))
	return database.MapPostgresError(err)
}

// DeleteBansForIdentity removes bans under every context for the identity.
func (r *BanRepository) DeleteBansForIdentity(ctx context.Context, identity string) (int64, error) {
	query := `DELETE FROM auth_bans WHERE identity = $1`
	tag, err := r.db.Pool.Exec(ctx, query, identity)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}
	return tag.RowsAffected(), nil
}

// ListActiveBans returns bans still in force at the given instant, soonest
// to expire first. Operator-facing listing.
func (r *BanRepository) ListActiveBans(ctx context.Context, now time.Time) ([]*models.Ban, error) {
	query := `
		SELECT identity, context, banned_until, created_at, updated_at
		FROM auth_bans
		WHERE banned_until > $1
		ORDER BY banned_until ASC
	`

	rows, err := r.db.Pool.Query(ctx, query, now)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	defer rows.Close()

	var bans []*models.Ban
	for rows.Next() {
		var ban models.Ban
		if err := rows.Scan(&ban.Identity, &ban.Context, &ban.BannedUntil, &ban.CreatedAt, &ban.UpdatedAt); err != nil {
			return nil, database.MapPostgresError(err)
		}
		bans = append(bans, &ban)
	}
	return bans, rows.Err()
}

// DeleteBansExpiredBefore removes rows whose expiry is older than the
// cutoff. Housekeeping only; the guard never relies on stale rows being
// swept.
func (r *BanRepository) DeleteBansExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM auth_bans WHERE banned_until < $1`
	tag, err := r.db.Pool.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}
	return tag.RowsAffected(), nil
}
