package api

import (
	"database/sql"
	"time"

	"step26/internal/logger"
	"step26/internal/streak"
)

// recomputeUserStreaks refreshes the stored counters of every habit the
// user owns against the user's local today. It returns how many habits
// changed.
func recomputeUserStreaks(db *sql.DB, userID int, now time.Time) (int, error) {
	today := streak.DateOf(now, userLocation(db, userID))

	habits, err := listHabits(db, userID, false)
	if err != nil {
		return 0, err
	}

	changed := 0
	for _, h := range habits {
		current, longest, err := recomputeStreaksTx(db, h.ID, today)
		if err != nil {
			return changed, err
		}
		if current != h.CurrentStreak || longest != h.LongestStreak {
			changed++
		}
	}
	return changed, nil
}

// recomputeStreaksTx reads the log and writes the counters in one
// transaction so a log mutation cannot land between the two.
func recomputeStreaksTx(db *sql.DB, habitID int, today streak.Date) (current, longest int, err error) {
	tx, err := db.Begin()
	if err != nil {
		return 0, 0, err
	}
	defer tx.Rollback()

	current, longest, err = recomputeStreaks(tx, habitID, today)
	if err != nil {
		return 0, 0, err
	}
	return current, longest, tx.Commit()
}

// RecomputeAllStreaks decays current streaks that were broken by a day
// rollover. Failures for one user are logged and do not stop the rest.
func RecomputeAllStreaks(db *sql.DB, now time.Time) error {
	rows, err := db.Query("SELECT DISTINCT user_id FROM habits ORDER BY user_id")
	if err != nil {
		return err
	}
	var users []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return err
		}
		users = append(users, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	total := 0
	for _, userID := range users {
		n, err := recomputeUserStreaks(db, userID, now)
		if err != nil {
			logger.Error("Streak recompute failed", "user_id", userID, "error", err)
			continue
		}
		total += n
	}
	if total > 0 {
		logger.Info("Recomputed habit streaks", "changed", total)
	}
	return nil
}
