package api

import (
	"database/sql"
	"fmt"
	"time"

	"step26/internal/logger"
	"step26/internal/models"
	"step26/internal/streak"
)

type reminderCandidate struct {
	userID       int
	username     string
	email        string
	timezone     string
	lastReminded string
}

// pendingHabits lists the user's active habits with no completed log on day.
func pendingHabits(q dbtx, userID int, day streak.Date) ([]models.Habit, error) {
	habits, err := listHabits(q, userID, true)
	if err != nil {
		return nil, err
	}
	done, err := completedOn(q, userID, day)
	if err != nil {
		return nil, err
	}

	pending := []models.Habit{}
	for _, h := range habits {
		if !done[h.ID] {
			pending = append(pending, h)
		}
	}
	return pending, nil
}

func reminderPayload(pending []models.Habit) PushPayload {
	body := "Keep your streaks going."
	if len(pending) > 0 {
		body = pending[0].Name
		if len(pending) > 1 {
			body = fmt.Sprintf("%s and %d more", pending[0].Name, len(pending)-1)
		}
	}
	return PushPayload{
		Title: reminderSubject(len(pending)),
		Body:  body,
		Icon:  "/icons/icon-192.png",
		Badge: "/icons/badge-72.png",
		Tag:   "step26-habits",
	}
}

// ProcessHabitReminders notifies each user at most once per local day,
// after reminderHour, about active habits not yet completed. Users with
// nothing pending are marked as handled for the day.
func ProcessHabitReminders(db *sql.DB, p *pusher, m *mailer, reminderHour int, now time.Time) error {
	candidates, err := reminderCandidates(db)
	if err != nil {
		return err
	}

	for _, u := range candidates {
		loc, err := time.LoadLocation(u.timezone)
		if err != nil {
			loc = time.UTC
		}
		local := now.In(loc)
		if local.Hour() < reminderHour {
			continue
		}
		today := streak.DateOf(now, loc)
		if u.lastReminded == today.String() {
			continue
		}

		pending, err := pendingHabits(db, u.userID, today)
		if err != nil {
			logger.Error("Failed to load pending habits", "user_id", u.userID, "error", err)
			continue
		}

		if len(pending) > 0 {
			if err := p.SendToUser(db, u.userID, reminderPayload(pending)); err != nil {
				logger.Warn("Habit reminder push failed", "user_id", u.userID, "error", err)
			}
			if u.email != "" {
				if err := m.SendHabitReminder(u.email, u.username, today.String(), pending); err != nil {
					logger.Warn("Habit reminder email failed", "user_id", u.userID, "error", err)
				}
			}
		}

		if _, err := db.Exec("UPDATE users SET last_reminded_on = ? WHERE id = ?", today.String(), u.userID); err != nil {
			return err
		}
	}
	return nil
}

func reminderCandidates(db *sql.DB) ([]reminderCandidate, error) {
	rows, err := db.Query(`
		SELECT u.id, u.username, COALESCE(u.email, ''), u.timezone, COALESCE(u.last_reminded_on, '')
		FROM users u
		WHERE EXISTS (SELECT 1 FROM habits h WHERE h.user_id = u.id AND h.is_active = 1)
		ORDER BY u.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []reminderCandidate
	for rows.Next() {
		var u reminderCandidate
		if err := rows.Scan(&u.userID, &u.username, &u.email, &u.timezone, &u.lastReminded); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
