package repositories

import (
	"context"

	"github.com/podguard/podguard/internal/database"
	"github.com/podguard/podguard/internal/models"
)

// CallRoomRepository handles database operations for group-call rooms
type CallRoomRepository struct {
	db *database.DB
}

// NewCallRoomRepository creates a new CallRoomRepository
func NewCallRoomRepository(db *database.DB) *CallRoomRepository {
	return &CallRoomRepository{db: db}
}

// GetBySlug returns the call room with the given slug, or ErrNotFound.
func (r *CallRoomRepository) GetBySlug(ctx context.Context, slug string) (*models.CallRoom, error) {
	query := `
		SELECT id, slug, name, join_code_hash, active, created_at
		FROM call_rooms
		WHERE slug = $1
	`

	var room models.CallRoom
	err := r.db.Pool.QueryRow(ctx, query, slug).Scan(
		&room.ID,
		&room.Slug,
		&room.Name,
		&room.JoinCodeHash,
		&room.Active,
		&room.CreatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &room, nil
}

// Create inserts a new call room row.
func (r *CallRoomRepository) Create(ctx context.Context, room *models.CallRoom) (*models.CallRoom, error) {
	query := `
		INSERT INTO call_rooms (slug, name, join_code_hash, active)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	err := r.db.Pool.QueryRow(ctx, query, room.Slug, room.Name, room.JoinCodeHash, room.Active).Scan(&room.ID, &room.CreatedAt)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return room, nil
}
