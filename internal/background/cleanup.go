package background

import (
	"context"
	"log/slog"
	"time"

	"github.com/podguard/podguard/internal/repositories"
	"github.com/podguard/podguard/internal/services"
)

// CleanupManager periodically prunes attempt history past its retention
// horizon and ban rows whose banned_until is long past. Expiry enforcement
// never depends on this: bans lapse the moment their deadline passes and
// stale rows are inert until this sweep removes them.
type CleanupManager struct {
	attemptRepo      *repositories.AttemptRepository
	banRepo          *repositories.BanRepository
	clock            services.Clock
	logger           *slog.Logger
	interval         time.Duration
	attemptRetention time.Duration
	stopCh           chan struct{}
}

// NewCleanupManager creates a new cleanup manager
func NewCleanupManager(
	attemptRepo *repositories.AttemptRepository,
	banRepo *repositories.BanRepository,
	clock services.Clock,
	logger *slog.Logger,
	interval time.Duration,
	attemptRetention time.Duration,
) *CleanupManager {
	return &CleanupManager{
		attemptRepo:      attemptRepo,
		banRepo:          banRepo,
		clock:            clock,
		logger:           logger,
		interval:         interval,
		attemptRetention: attemptRetention,
		stopCh:           make(chan struct{}),
	}
}

// Start begins the periodic cleanup task
func (cm *CleanupManager) Start(ctx context.Context) {
	ticker := time.NewTicker(cm.interval)
	defer ticker.Stop()

	// Run immediately on startup
	cm.runCleanup(ctx)

	for {
		select {
		case <-ticker.C:
			cm.runCleanup(ctx)
		case <-cm.stopCh:
			cm.logger.Info("cleanup manager stopped")
			return
		case <-ctx.Done():
			cm.logger.Info("cleanup manager context cancelled")
			return
		}
	}
}

func (cm *CleanupManager) runCleanup(ctx context.Context) {
	cleanupCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	now := cm.clock.Now()

	attemptsDeleted, err := cm.attemptRepo.DeleteAttemptsBefore(cleanupCtx, now.Add(-cm.attemptRetention))
	if err != nil {
		cm.logger.Error("failed to prune attempt history", slog.Any("error", err))
	}

	bansDeleted, err := cm.banRepo.DeleteBansExpiredBefore(cleanupCtx, now)
	if err != nil {
		cm.logger.Error("failed to prune expired bans", slog.Any("error", err))
	}

	if attemptsDeleted > 0 || bansDeleted > 0 {
		cm.logger.Info("abuse table cleanup completed",
			slog.Int64("attempts_deleted", attemptsDeleted),
			slog.Int64("bans_deleted", bansDeleted),
		)
	}
}

// Stop signals the cleanup manager to stop
func (cm *CleanupManager) Stop() {
	close(cm.stopCh)
}
