package services

import (
	"context"
	"time"

	"github.com/podguard/podguard/internal/models"
)

// ActiveBanLister defines the interface for operator-facing ban listings
type ActiveBanLister interface {
	ListActiveBans(ctx context.Context, now time.Time) ([]*models.Ban, error)
}

// BanAdminService exposes the operator surface: list active bans and lift
// them.
type BanAdminService struct {
	guard *AbuseGuard
	bans  ActiveBanLister
	clock Clock
}

// NewBanAdminService creates a new BanAdminService
func NewBanAdminService(guard *AbuseGuard, bans ActiveBanLister, clock Clock) *BanAdminService {
	return &BanAdminService{
		guard: guard,
		bans:  bans,
		clock: clock,
	}
}

// ActiveBans returns bans still in force right now.
func (s *BanAdminService) ActiveBans(ctx context.Context) ([]*models.Ban, error) {
	return s.bans.ListActiveBans(ctx, s.clock.Now())
}

// Unban lifts a ban for the exact identity string the operator supplies.
// With a nil context every context is cleared for that identity. No
// address-form normalization happens here; an operator clearing a client
// seen under several textual forms submits each form.
func (s *BanAdminService) Unban(ctx context.Context, identity string, abuseCtx *models.AbuseContext) error {
	return s.guard.Unban(ctx, identity, abuseCtx)
}
