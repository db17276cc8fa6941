package background

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/BradenHooton/inspireokc/internal/models"
)

// LimitPruner deletes usage counters dated before a calendar date
type LimitPruner interface {
	DeleteBefore(ctx context.Context, date string) (int64, error)
}

// EventPruner deletes analytics events created before a cutoff
type EventPruner interface {
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Sweeper drops in-memory sessions idle for longer than maxIdle
type Sweeper interface {
	Sweep(maxIdle time.Duration) int
}

// RetentionConfig controls how long each kind of data is kept
type RetentionConfig struct {
	Interval       time.Duration
	LimitDays      int
	EventDays      int
	SessionMaxIdle time.Duration
}

// CleanupManager periodically applies retention to usage counters, events and sessions
type CleanupManager struct {
	limits   LimitPruner
	events   EventPruner
	sweepers map[string]Sweeper
	config   RetentionConfig
	now      func() time.Time
	logger   *slog.Logger
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewCleanupManager creates a new cleanup manager.
// sweepers are keyed by a name used in log lines.
func NewCleanupManager(
	limits LimitPruner,
	events EventPruner,
	sweepers map[string]Sweeper,
	config RetentionConfig,
	logger *slog.Logger,
) *CleanupManager {
	return &CleanupManager{
		limits:   limits,
		events:   events,
		sweepers: sweepers,
		config:   config,
		now:      time.Now,
		logger:   logger,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the periodic cleanup task
func (cm *CleanupManager) Start(ctx context.Context) {
	ticker := time.NewTicker(cm.config.Interval)
	defer ticker.Stop()

	// Run immediately on startup
	cm.RunOnce(ctx)

	for {
		select {
		case <-ticker.C:
			cm.RunOnce(ctx)
		case <-cm.stopCh:
			cm.logger.Info("cleanup manager stopped")
			return
		case <-ctx.Done():
			cm.logger.Info("cleanup manager context cancelled")
			return
		}
	}
}

// RunOnce applies every retention rule once. Failures are logged and do not
// stop the remaining rules.
func (cm *CleanupManager) RunOnce(ctx context.Context) {
	cleanupCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	now := cm.now().UTC()

	if cm.limits != nil && cm.config.LimitDays > 0 {
		cutoff := now.AddDate(0, 0, -cm.config.LimitDays).Format(models.DateLayout)
		rows, err := cm.limits.DeleteBefore(cleanupCtx, cutoff)
		if err != nil {
			cm.logger.Error("failed to prune generation limits", slog.Any("error", err))
		} else if rows > 0 {
			cm.logger.Info("pruned generation limits", slog.Int64("rows_deleted", rows), slog.String("before", cutoff))
		}
	}

	if cm.events != nil && cm.config.EventDays > 0 {
		cutoff := now.AddDate(0, 0, -cm.config.EventDays)
		rows, err := cm.events.DeleteBefore(cleanupCtx, cutoff)
		if err != nil {
			cm.logger.Error("failed to prune events", slog.Any("error", err))
		} else if rows > 0 {
			cm.logger.Info("pruned events", slog.Int64("rows_deleted", rows))
		}
	}

	for name, sweeper := range cm.sweepers {
		if removed := sweeper.Sweep(cm.config.SessionMaxIdle); removed > 0 {
			cm.logger.Info("swept idle sessions", slog.String("store", name), slog.Int("removed", removed))
		}
	}
}

// Stop signals the cleanup manager to stop. Safe to call more than once.
func (cm *CleanupManager) Stop() {
	cm.stopOnce.Do(func() { close(cm.stopCh) })
}
