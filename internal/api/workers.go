package api

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"step26/internal/config"
	"step26/internal/logger"
)

// RunWorkers runs the periodic jobs once immediately and then on every
// tick until ctx is cancelled.
func RunWorkers(ctx context.Context, db *sql.DB, cfg *config.Config) error {
	interval, err := time.ParseDuration(cfg.WorkerInterval)
	if err != nil || interval <= 0 {
		return fmt.Errorf("invalid worker interval %q", cfg.WorkerInterval)
	}

	jobs := &workerJobs{
		db:     db,
		tokens: newRefreshStore(db),
		push:   newPusher(cfg.Push),
		mail:   newMailer(cfg.SMTP),
		hour:   cfg.Reminder.Hour,
	}

	logger.Info("Background workers started", "interval", interval)
	jobs.run(time.Now())

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Info("Background workers stopped")
			return nil
		case t := <-ticker.C:
			jobs.run(t)
		}
	}
}

type workerJobs struct {
	db     *sql.DB
	tokens *refreshStore
	push   *pusher
	mail   *mailer
	hour   int
}

func (w *workerJobs) run(now time.Time) {
	if err := RecomputeAllStreaks(w.db, now); err != nil {
		logger.Error("Streak recompute failed", "error", err)
	}
	if err := ProcessHabitReminders(w.db, w.push, w.mail, w.hour, now); err != nil {
		logger.Error("Habit reminders failed", "error", err)
	}
	if n, err := w.tokens.PurgeExpired(); err != nil {
		logger.Error("Refresh token purge failed", "error", err)
	} else if n > 0 {
		logger.Debug("Purged refresh tokens", "count", n)
	}
}
