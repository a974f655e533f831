package api

import (
	"database/sql"

	"step26/internal/logger"
	"step26/internal/models"

	"github.com/gofiber/fiber/v2"
)

func scanLog(s scanner) (models.HabitLog, error) {
	var l models.HabitLog
	err := s.Scan(&l.ID, &l.HabitID, &l.Date, &l.Completed, &l.Notes, &l.CreatedAt)
	return l, err
}

// ownsHabit checks ownership inside q so callers can run it in a transaction.
func ownsHabit(q dbtx, userID, habitID int) error {
	var owner int
	err := q.QueryRow("SELECT user_id FROM habits WHERE id = ?", habitID).Scan(&owner)
	if err != nil {
		return notFound(err, "Habit")
	}
	if owner != userID {
		return fiber.NewError(fiber.StatusNotFound, "Habit not found")
	}
	return nil
}

func ListHabitLogsHandler(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := currentUserID(c)
		habitID, err := paramID(c, "id", "habit")
		if err != nil {
			return err
		}
		from, err := queryDate(c, "date_from")
		if err != nil {
			return err
		}
		to, err := queryDate(c, "date_to")
		if err != nil {
			return err
		}
		if from != "" && to != "" && from > to {
			return fiber.NewError(fiber.StatusBadRequest, "date_from must not be after date_to")
		}

		if err := ownsHabit(db, userID, habitID); err != nil {
			return err
		}

		query := "SELECT id, habit_id, date, completed, notes, created_at FROM habit_logs WHERE habit_id = ?"
		args := []any{habitID}
		if from != "" {
			query += " AND date >= ?"
			args = append(args, from)
		}
		if to != "" {
			query += " AND date <= ?"
			args = append(args, to)
		}
		query += " ORDER BY date ASC"

		rows, err := db.Query(query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		logs := []models.HabitLog{}
		for rows.Next() {
			l, err := scanLog(rows)
			if err != nil {
				return err
			}
			logs = append(logs, l)
		}
		if err := rows.Err(); err != nil {
			return err
		}
		return c.JSON(logs)
	}
}

// UpsertHabitLogHandler records the log for (habit, date), replacing any
// existing entry for that day, then refreshes the habit's streak counters.
func UpsertHabitLogHandler(db *sql.DB, cache *todayCache) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := currentUserID(c)
		habitID, err := paramID(c, "id", "habit")
		if err != nil {
			return err
		}

		var req models.HabitLogRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		day, err := requireDate(req.Date, "date")
		if err != nil {
			return err
		}
		completed := true
		if req.Completed != nil {
			completed = *req.Completed
		}
		today := todayFor(db, userID)

		tx, err := db.Begin()
		if err != nil {
			return err
		}
		defer tx.Rollback()

		if err := ownsHabit(tx, userID, habitID); err != nil {
			return err
		}

		_, err = tx.Exec(
			`INSERT INTO habit_logs (habit_id, date, completed, notes) VALUES (?, ?, ?, ?)
			ON CONFLICT(habit_id, date) DO UPDATE SET completed = excluded.completed, notes = excluded.notes`,
			habitID, day.String(), completed, req.Notes,
		)
		if err != nil {
			return err
		}

		current, longest, err := recomputeStreaks(tx, habitID, today)
		if err != nil {
			return err
		}

		entry, err := scanLog(tx.QueryRow(
			"SELECT id, habit_id, date, completed, notes, created_at FROM habit_logs WHERE habit_id = ? AND date = ?",
			habitID, day.String(),
		))
		if err != nil {
			return err
		}

		if err := tx.Commit(); err != nil {
			return err
		}
		cache.invalidate(userID)
		logger.Debug("Habit log recorded", "habit_id", habitID, "date", day, "completed", completed, "current_streak", current)

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"log":            entry,
			"current_streak": current,
			"longest_streak": longest,
		})
	}
}

func UpdateHabitLogHandler(db *sql.DB, cache *todayCache) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := currentUserID(c)
		habitID, err := paramID(c, "id", "habit")
		if err != nil {
			return err
		}
		logID, err := paramID(c, "logId", "log")
		if err != nil {
			return err
		}

		var req models.HabitLogRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		if req.Date != "" {
			if _, err := requireDate(req.Date, "date"); err != nil {
				return err
			}
		}
		today := todayFor(db, userID)

		tx, err := db.Begin()
		if err != nil {
			return err
		}
		defer tx.Rollback()

		if err := ownsHabit(tx, userID, habitID); err != nil {
			return err
		}
		entry, err := scanLog(tx.QueryRow(
			"SELECT id, habit_id, date, completed, notes, created_at FROM habit_logs WHERE id = ? AND habit_id = ?",
			logID, habitID,
		))
		if err != nil {
			return notFound(err, "Log")
		}

		if req.Date != "" {
			entry.Date = req.Date
		}
		if req.Completed != nil {
			entry.Completed = *req.Completed
		}
		entry.Notes = req.Notes

		if _, err := tx.Exec(
			"UPDATE habit_logs SET date = ?, completed = ?, notes = ? WHERE id = ?",
			entry.Date, entry.Completed, entry.Notes, logID,
		); err != nil {
			if isConstraintErr(err) {
				return fiber.NewError(fiber.StatusConflict, "A log already exists for that date")
			}
			return err
		}

		current, longest, err := recomputeStreaks(tx, habitID, today)
		if err != nil {
			return err
		}
		if err := tx.Commit(); err != nil {
			return err
		}
		cache.invalidate(userID)

		return c.JSON(fiber.Map{
			"log":            entry,
			"current_streak": current,
			"longest_streak": longest,
		})
	}
}

func DeleteHabitLogHandler(db *sql.DB, cache *todayCache) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := currentUserID(c)
		habitID, err := paramID(c, "id", "habit")
		if err != nil {
			return err
		}
		logID, err := paramID(c, "logId", "log")
		if err != nil {
			return err
		}
		today := todayFor(db, userID)

		tx, err := db.Begin()
		if err != nil {
			return err
		}
		defer tx.Rollback()

		if err := ownsHabit(tx, userID, habitID); err != nil {
			return err
		}
		result, err := tx.Exec("DELETE FROM habit_logs WHERE id = ? AND habit_id = ?", logID, habitID)
		if err != nil {
			return err
		}
		if n, _ := result.RowsAffected(); n == 0 {
			return fiber.NewError(fiber.StatusNotFound, "Log not found")
		}

		current, longest, err := recomputeStreaks(tx, habitID, today)
		if err != nil {
			return err
		}
		if err := tx.Commit(); err != nil {
			return err
		}
		cache.invalidate(userID)

		return c.JSON(fiber.Map{
			"success":        true,
			"current_streak": current,
			"longest_streak": longest,
		})
	}
}
