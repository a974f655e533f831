package api

import (
	"context"
	"database/sql"
	"time"

	"step26/internal/logger"
	"step26/internal/models"
	"step26/internal/streak"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/sync/errgroup"
)

// maxParallelLoads bounds concurrent per-habit log queries.
const maxParallelLoads = 4

type habitCalendar struct {
	Habit     models.Habit  `json:"habit"`
	Month     streak.Month  `json:"month"`
	Cells     []streak.Cell `json:"cells"`
	Completed []string      `json:"completed"`
	// Streaks maps day-of-month to the streak ending that day, for completed days.
	Streaks map[int]int `json:"streaks"`
}

type overviewHabit struct {
	ID        int      `json:"id"`
	Name      string   `json:"name"`
	Color     string   `json:"color"`
	Icon      string   `json:"icon"`
	Completed []string `json:"completed"`
}

type overviewCalendar struct {
	Month  streak.Month    `json:"month"`
	Cells  []streak.Cell   `json:"cells"`
	Counts map[int]int     `json:"counts"`
	Habits []overviewHabit `json:"habits"`
}

func monthFromQuery(c *fiber.Ctx, loc *time.Location) (streak.Month, error) {
	v := c.Query("month")
	if v == "" {
		return streak.MonthOf(streak.DateOf(time.Now(), loc)), nil
	}
	m, err := streak.ParseMonth(v)
	if err != nil {
		return streak.Month{}, fiber.NewError(fiber.StatusBadRequest, "Invalid month: expected YYYY-MM")
	}
	return m, nil
}

// loadHabitDates fetches the completed days of each habit in parallel.
// A failed load is logged and leaves that habit with an empty set so the
// rest of the view still renders.
func loadHabitDates(ctx context.Context, db *sql.DB, habits []models.Habit, from, to streak.Date) []streak.HabitDates {
	out := make([]streak.HabitDates, len(habits))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelLoads)
	for i, h := range habits {
		out[i] = streak.HabitDates{HabitID: h.ID, Name: h.Name, Color: h.Color, Completed: streak.NewDateSet()}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				logger.Warn("Habit log load cancelled", "habit_id", h.ID, "error", err)
				return nil
			}
			set, err := completedDates(db, h.ID, streakWindowStart(h, from).String(), to.String())
			if err != nil {
				logger.Error("Failed to load habit logs", "habit_id", h.ID, "error", err)
				return nil
			}
			out[i].Completed = set
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func datesIn(set streak.DateSet, m streak.Month) []string {
	out := []string{}
	for _, d := range set.Sorted() {
		if m.Contains(d) {
			out = append(out, d.String())
		}
	}
	return out
}

// HabitCalendarHandler returns one habit's month grid with the streak
// ending on each completed day.
func HabitCalendarHandler(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := currentUserID(c)
		habitID, err := paramID(c, "id", "habit")
		if err != nil {
			return err
		}
		m, err := monthFromQuery(c, userLocation(db, userID))
		if err != nil {
			return err
		}

		habit, err := getHabit(db, userID, habitID)
		if err != nil {
			return notFound(err, "Habit")
		}

		set, err := completedDates(db, habitID, streakWindowStart(habit, m.First()).String(), m.Last().String())
		if err != nil {
			return err
		}

		streaks := make(map[int]int)
		for day := 1; day <= streak.DaysInMonth(m.Year, m.Month); day++ {
			if n := streak.Streak(set, m.Day(day)); n > 0 {
				streaks[day] = n
			}
		}

		return c.JSON(habitCalendar{
			Habit:     habit,
			Month:     m,
			Cells:     m.Grid(),
			Completed: datesIn(set, m),
			Streaks:   streaks,
		})
	}
}

// CalendarOverviewHandler returns the month grid across all active habits
// with the number of habits completed on each day.
func CalendarOverviewHandler(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := currentUserID(c)
		m, err := monthFromQuery(c, userLocation(db, userID))
		if err != nil {
			return err
		}

		habits, err := listHabits(db, userID, true)
		if err != nil {
			return err
		}
		loaded := loadHabitDates(c.UserContext(), db, habits, m.First(), m.Last())

		overview := overviewCalendar{
			Month:  m,
			Cells:  m.Grid(),
			Counts: streak.CompletedCounts(loaded, m),
			Habits: make([]overviewHabit, 0, len(habits)),
		}
		for i, h := range habits {
			overview.Habits = append(overview.Habits, overviewHabit{
				ID:        h.ID,
				Name:      h.Name,
				Color:     h.Color,
				Icon:      h.Icon,
				Completed: datesIn(loaded[i].Completed, m),
			})
		}
		return c.JSON(overview)
	}
}

// DayDetailHandler lists the habits completed on a date, longest streak first.
func DayDetailHandler(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := currentUserID(c)
		day, err := requireDate(c.Query("date"), "date")
		if err != nil {
			return err
		}

		habits, err := listHabits(db, userID, true)
		if err != nil {
			return err
		}
		loaded := loadHabitDates(c.UserContext(), db, habits, day, day)

		return c.JSON(fiber.Map{
			"date":    day.String(),
			"entries": streak.DayDetail(loaded, day),
		})
	}
}
