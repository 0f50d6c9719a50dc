package background

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/BradenHooton/backoffice/internal/metrics"
)

// ResetTokenCleaner clears pending reset pairs whose expiry has passed
type ResetTokenCleaner interface {
	ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error)
}

// CleanupManager periodically clears expired reset tokens so stale digests
// do not linger on credential records
type CleanupManager struct {
	repo     ResetTokenCleaner
	metrics  *metrics.Metrics
	logger   *slog.Logger
	interval time.Duration
	now      func() time.Time

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// DefaultCleanupInterval is used when a non-positive interval is supplied.
const DefaultCleanupInterval = time.Hour

// NewCleanupManager creates a new cleanup manager
func NewCleanupManager(repo ResetTokenCleaner, m *metrics.Metrics, logger *slog.Logger, interval time.Duration) *CleanupManager {
	if interval <= 0 {
		interval = DefaultCleanupInterval
	}
	return &CleanupManager{
		repo:     repo,
		metrics:  m,
		logger:   logger,
		interval: interval,
		now:      time.Now,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start runs the cleanup loop until ctx is cancelled or Stop is called. It
// blocks; run it in its own goroutine.
func (cm *CleanupManager) Start(ctx context.Context) {
	defer close(cm.doneCh)

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

	cleared, err := cm.repo.ClearExpiredResetTokens(cleanupCtx, cm.now())
	if err != nil {
		cm.logger.Error("failed to clear expired reset tokens", slog.Any("error", err))
		return
	}

	cm.metrics.RecordResetTokensCleared(cleared)
	if cleared > 0 {
		cm.logger.Info("expired reset tokens cleared", slog.Int64("rows_updated", cleared))
	}
}

// Stop signals the loop to exit and waits for it. Safe to call more than once.
func (cm *CleanupManager) Stop() {
	cm.stopOnce.Do(func() { close(cm.stopCh) })
	<-cm.doneCh
}
