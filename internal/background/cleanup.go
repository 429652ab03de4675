package background

import (
	"context"
	"log/slog"
	"time"
)

// SessionCleaner is the slice of the session store the cleanup loop uses
type SessionCleaner interface {
	DeleteExpired(ctx context.Context) (int64, error)
	DeleteDuplicates(ctx context.Context) (int64, error)
}

// LogEntryCleaner trims old audit log entries
type LogEntryCleaner interface {
	Cleanup(ctx context.Context, olderThanDays int) (int64, error)
}

// CleanupManager periodically removes expired sessions, reconciles accounts
// holding more than one live session (newest wins), and trims old audit log
// entries.
type CleanupManager struct {
	sessions      SessionCleaner
	logEntries    LogEntryCleaner
	logger        *slog.Logger
	interval      time.Duration
	retentionDays int
	stopCh        chan struct{}
}

// NewCleanupManager creates a new cleanup manager
func NewCleanupManager(sessions SessionCleaner, logEntries LogEntryCleaner, logger *slog.Logger, interval time.Duration, retentionDays int) *CleanupManager {
	return &CleanupManager{
		sessions:      sessions,
		logEntries:    logEntries,
		logger:        logger,
		interval:      interval,
		retentionDays: retentionDays,
		stopCh:        make(chan struct{}),
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
			cm.logger.Info("session cleanup manager stopped")
			return
		case <-ctx.Done():
			cm.logger.Info("session cleanup manager context cancelled")
			return
		}
	}
}

func (cm *CleanupManager) runCleanup(ctx context.Context) {
	cleanupCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	expired, err := cm.sessions.DeleteExpired(cleanupCtx)
	if err != nil {
		cm.logger.Error("failed to delete expired sessions", slog.Any("error", err))
		return
	}

	duplicates, err := cm.sessions.DeleteDuplicates(cleanupCtx)
	if err != nil {
		cm.logger.Error("failed to reconcile duplicate sessions", slog.Any("error", err))
		return
	}

	trimmed, err := cm.logEntries.Cleanup(cleanupCtx, cm.retentionDays)
	if err != nil {
		cm.logger.Error("failed to trim old log entries", slog.Any("error", err))
		return
	}

	if expired > 0 || duplicates > 0 || trimmed > 0 {
		cm.logger.Info("cleanup completed",
			slog.Int64("expired_sessions", expired),
			slog.Int64("duplicate_sessions", duplicates),
			slog.Int64("trimmed_log_entries", trimmed))
	}
}

// Stop signals the cleanup manager to stop
func (cm *CleanupManager) Stop() {
	close(cm.stopCh)
}
