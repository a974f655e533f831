package api

import (
	"database/sql"
	"strings"
	"sync"

	"step26/internal/models"
	"step26/internal/streak"

	"github.com/gofiber/fiber/v2"
)

// todayCache remembers, per user, which habits are completed on the
// user's current local day. An entry expires when that day changes and is
// dropped whenever the user's logs change.
type todayCache struct {
	mu      sync.Mutex
	entries map[int]*streak.DayCache[map[int]bool]
}

func newTodayCache() *todayCache {
	return &todayCache{entries: make(map[int]*streak.DayCache[map[int]bool])}
}

func (t *todayCache) forUser(userID int) *streak.DayCache[map[int]bool] {
	t.mu.Lock()
	defer t.mu.Unlock()
	c, ok := t.entries[userID]
	if !ok {
		c = &streak.DayCache[map[int]bool]{}
		t.entries[userID] = c
	}
	return c
}

func (t *todayCache) invalidate(userID int) {
	t.forUser(userID).Invalidate()
}

func CreateHabitHandler(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := currentUserID(c)

		var req models.CreateHabitRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		req.Name = strings.TrimSpace(req.Name)
		if req.Name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Name is required")
		}
		if req.TargetDays != nil && *req.TargetDays <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "target_days must be positive")
		}

		startDate := req.StartDate
		if startDate == "" {
			startDate = todayFor(db, userID).String()
		} else if _, err := requireDate(startDate, "start_date"); err != nil {
			return err
		}
		color := req.Color
		if color == "" {
			color = "#4f46e5"
		}
		icon := req.Icon
		if icon == "" {
			icon = "check"
		}

		result, err := db.Exec(
			`INSERT INTO habits (user_id, name, description, target_days, start_date, color, icon)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			userID, req.Name, req.Description, req.TargetDays, startDate, color, icon,
		)
		if err != nil {
			return err
		}
		habitID, _ := result.LastInsertId()

		habit, err := getHabit(db, userID, int(habitID))
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(habit)
	}
}

func ListHabitsHandler(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := currentUserID(c)

		habits, err := listHabits(db, userID, false)
		if err != nil {
			return err
		}

		switch c.Query("active") {
		case "true", "false":
			want := c.Query("active") == "true"
			filtered := []models.Habit{}
			for _, h := range habits {
				if h.IsActive == want {
					filtered = append(filtered, h)
				}
			}
			habits = filtered
		case "":
		default:
			return fiber.NewError(fiber.StatusBadRequest, "active must be true or false")
		}

		return c.JSON(habits)
	}
}

func GetHabitHandler(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		habitID, err := paramID(c, "id", "habit")
		if err != nil {
			return err
		}
		habit, err := getHabit(db, currentUserID(c), habitID)
		if err != nil {
			return notFound(err, "Habit")
		}
		return c.JSON(habit)
	}
}

func UpdateHabitHandler(db *sql.DB, cache *todayCache) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := currentUserID(c)
		habitID, err := paramID(c, "id", "habit")
		if err != nil {
			return err
		}

		var req models.UpdateHabitRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		habit, err := getHabit(db, userID, habitID)
		if err != nil {
			return notFound(err, "Habit")
		}

		if req.Name != nil {
			name := strings.TrimSpace(*req.Name)
			if name == "" {
				return fiber.NewError(fiber.StatusBadRequest, "Name is required")
			}
			habit.Name = name
		}
		if req.Description != nil {
			habit.Description = *req.Description
		}
		if req.TargetDays != nil {
			if *req.TargetDays <= 0 {
				habit.TargetDays = nil
			} else {
				habit.TargetDays = req.TargetDays
			}
		}
		if req.StartDate != nil {
			if _, err := requireDate(*req.StartDate, "start_date"); err != nil {
				return err
			}
			habit.StartDate = *req.StartDate
		}
		if req.IsActive != nil {
			habit.IsActive = *req.IsActive
		}
		if req.Color != nil {
			habit.Color = *req.Color
		}
		if req.Icon != nil {
			habit.Icon = *req.Icon
		}

		_, err = db.Exec(
			`UPDATE habits SET name = ?, description = ?, target_days = ?, start_date = ?, is_active = ?,
			color = ?, icon = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND user_id = ?`,
			habit.Name, habit.Description, habit.TargetDays, habit.StartDate, habit.IsActive,
			habit.Color, habit.Icon, habitID, userID,
		)
		if err != nil {
			return err
		}
		cache.invalidate(userID)

		updated, err := getHabit(db, userID, habitID)
		if err != nil {
			return err
		}
		return c.JSON(updated)
	}
}

func DeleteHabitHandler(db *sql.DB, cache *todayCache) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := currentUserID(c)
		habitID, err := paramID(c, "id", "habit")
		if err != nil {
			return err
		}

		result, err := db.Exec("DELETE FROM habits WHERE id = ? AND user_id = ?", habitID, userID)
		if err != nil {
			return err
		}
		rows, _ := result.RowsAffected()
		if rows == 0 {
			return fiber.NewError(fiber.StatusNotFound, "Habit not found")
		}
		cache.invalidate(userID)

		return c.JSON(fiber.Map{"success": true})
	}
}

// HabitsTodayHandler lists active habits with their completion state for
// the user's current local day.
func HabitsTodayHandler(db *sql.DB, cache *todayCache) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := currentUserID(c)
		today := todayFor(db, userID)

		habits, err := listHabits(db, userID, true)
		if err != nil {
			return err
		}

		entry := cache.forUser(userID)
		done, ok := entry.Get(today)
		if !ok {
			gen := entry.Generation()
			done, err = completedOn(db, userID, today)
			if err != nil {
				return err
			}
			entry.SetIfCurrent(today, done, gen)
		}

		out := make([]models.HabitToday, 0, len(habits))
		for _, h := range habits {
			out = append(out, models.HabitToday{Habit: h, CompletedToday: done[h.ID]})
		}
		return c.JSON(fiber.Map{
			"date":   today.String(),
			"habits": out,
		})
	}
}

func completedOn(q dbtx, userID int, day streak.Date) (map[int]bool, error) {
	rows, err := q.Query(
		`SELECT l.habit_id FROM habit_logs l
		JOIN habits h ON h.id = l.habit_id
		WHERE h.user_id = ? AND l.date = ? AND l.completed = 1`,
		userID, day.String(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	done := make(map[int]bool)
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		done[id] = true
	}
	return done, rows.Err()
}
