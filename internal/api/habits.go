package api

import (
	"database/sql"
	"fmt"
	"time"

	"step26/internal/models"
	"step26/internal/streak"
)

const habitColumns = `id, user_id, name, description, target_days, current_streak, longest_streak,
	start_date, is_active, color, icon, created_at, updated_at`

func scanHabit(s scanner) (models.Habit, error) {
	var h models.Habit
	var target sql.NullInt64
	err := s.Scan(
		&h.ID, &h.UserID, &h.Name, &h.Description, &target, &h.CurrentStreak, &h.LongestStreak,
		&h.StartDate, &h.IsActive, &h.Color, &h.Icon, &h.CreatedAt, &h.UpdatedAt,
	)
	if err != nil {
		return h, err
	}
	if target.Valid {
		n := int(target.Int64)
		h.TargetDays = &n
	}
	return h, nil
}

func getHabit(q dbtx, userID, habitID int) (models.Habit, error) {
	row := q.QueryRow("SELECT "+habitColumns+" FROM habits WHERE id = ? AND user_id = ?", habitID, userID)
	return scanHabit(row)
}

func listHabits(q dbtx, userID int, activeOnly bool) ([]models.Habit, error) {
	query := "SELECT " + habitColumns + " FROM habits WHERE user_id = ?"
	if activeOnly {
		query += " AND is_active = 1"
	}
	query += " ORDER BY created_at ASC, id ASC"

	rows, err := q.Query(query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	habits := []models.Habit{}
	for rows.Next() {
		h, err := scanHabit(rows)
		if err != nil {
			return nil, err
		}
		habits = append(habits, h)
	}
	return habits, rows.Err()
}

// completedDates loads the completed days of a habit within [from, to].
// Either bound may be empty for an open range.
func completedDates(q dbtx, habitID int, from, to string) (streak.DateSet, error) {
	query := "SELECT date FROM habit_logs WHERE habit_id = ? AND completed = 1"
	args := []any{habitID}
	if from != "" {
		query += " AND date >= ?"
		args = append(args, from)
	}
	if to != "" {
		query += " AND date <= ?"
		args = append(args, to)
	}

	rows, err := q.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	set := streak.NewDateSet()
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		d, err := streak.ParseDate(raw)
		if err != nil {
			return nil, fmt.Errorf("habit %d has malformed log date: %w", habitID, err)
		}
		set.Add(d)
	}
	return set, rows.Err()
}

// streakWindowStart is the earliest day that must be loaded so that every
// streak ending on or after from is fully visible. No streak is longer
// than the habit's longest streak.
func streakWindowStart(h models.Habit, from streak.Date) streak.Date {
	reach := h.LongestStreak
	if h.CurrentStreak > reach {
		reach = h.CurrentStreak
	}
	return from.AddDays(-(reach + 1))
}

// recomputeStreaks rebuilds the authoritative streak counters of a habit
// from its full log.
func recomputeStreaks(q dbtx, habitID int, today streak.Date) (current, longest int, err error) {
	set, err := completedDates(q, habitID, "", "")
	if err != nil {
		return 0, 0, err
	}
	current = streak.CurrentStreak(set, today)
	longest = streak.LongestStreak(set)

	_, err = q.Exec(
		"UPDATE habits SET current_streak = ?, longest_streak = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		current, longest, habitID,
	)
	return current, longest, err
}

func todayFor(q dbtx, userID int) streak.Date {
	return streak.DateOf(time.Now(), userLocation(q, userID))
}
