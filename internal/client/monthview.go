package client

import (
	"context"
	"errors"
	"sync"

	"step26/internal/logger"
	"step26/internal/models"
	"step26/internal/streak"

	"golang.org/x/sync/errgroup"
)

const maxParallelLoads = 4

// HabitSource is the subset of Client that MonthView needs.
type HabitSource interface {
	ListHabits(ctx context.Context, activeOnly bool) ([]models.Habit, error)
	HabitLogs(ctx context.Context, habitID int, from, to streak.Date) ([]models.HabitLog, error)
}

// MonthView holds the calendar state of one displayed month: every active
// habit with its completed days. Loads race freely; only the most recent
// one is applied.
type MonthView struct {
	src   HabitSource
	nav   *streak.Navigator
	epoch streak.Epoch

	mu     sync.RWMutex
	month  streak.Month
	habits []streak.HabitDates
	loaded bool
}

func NewMonthView(src HabitSource, nav *streak.Navigator) *MonthView {
	return &MonthView{src: src, nav: nav}
}

// Navigation only moves the cursor; call Load to fetch the new month.
func (v *MonthView) Current() streak.Month { return v.nav.Current() }
func (v *MonthView) Next() streak.Month    { return v.nav.Next() }
func (v *MonthView) Prev() streak.Month    { return v.nav.Prev() }
func (v *MonthView) Jump(m streak.Month) streak.Month {
	return v.nav.Jump(m)
}

// logWindowStart reaches far enough back that the streak running into the
// first day of the month is counted in full.
func logWindowStart(h models.Habit, first streak.Date) streak.Date {
	reach := h.LongestStreak
	if h.CurrentStreak > reach {
		reach = h.CurrentStreak
	}
	return first.AddDays(-(reach + 1))
}

// Load fetches the navigator's current month. A habit whose logs fail to
// load is shown with no completions. If another Load started meanwhile,
// the result is dropped and ErrStale returned. A cancelled or timed out
// load returns the context error and leaves the previous month in place.
func (v *MonthView) Load(ctx context.Context) error {
	token := v.epoch.Begin()
	m := v.nav.Current()

	habits, err := v.src.ListHabits(ctx, true)
	if err != nil {
		return err
	}

	loaded := make([]streak.HabitDates, len(habits))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelLoads)
	for i, h := range habits {
		loaded[i] = streak.HabitDates{HabitID: h.ID, Name: h.Name, Color: h.Color, Completed: streak.NewDateSet()}
		g.Go(func() error {
			logs, err := v.src.HabitLogs(gctx, h.ID, logWindowStart(h, m.First()), m.Last())
			if err != nil {
				if errors.Is(err, ErrUnauthorized) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				logger.Warn("Habit logs unavailable", "habit_id", h.ID, "month", m.String(), "error", err)
				return nil
			}
			for _, l := range logs {
				if !l.Completed {
					continue
				}
				d, err := streak.ParseDate(l.Date)
				if err != nil {
					logger.Warn("Skipping malformed log date", "habit_id", h.ID, "date", l.Date)
					continue
				}
				loaded[i].Completed.Add(d)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	// An abandoned load never replaces the month on screen.
	if err := ctx.Err(); err != nil {
		return err
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.epoch.Current(token) {
		return ErrStale
	}
	v.month = m
	v.habits = loaded
	v.loaded = true
	return nil
}

// Loaded reports the month of the last applied load.
func (v *MonthView) Loaded() (streak.Month, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.month, v.loaded
}

func (v *MonthView) Habits() []streak.HabitDates {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make([]streak.HabitDates, len(v.habits))
	copy(out, v.habits)
	return out
}

func (v *MonthView) Grid() []streak.Cell {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.month.Grid()
}

// Counts maps each day of the loaded month to the number of habits done.
func (v *MonthView) Counts() map[int]int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return streak.CompletedCounts(v.habits, v.month)
}

func (v *MonthView) DayDetail(day streak.Date) []streak.DayEntry {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return streak.DayDetail(v.habits, day)
}
