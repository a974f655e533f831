package cli

import (
	"fmt"

	"step26/internal/client"
	"step26/internal/streak"
)

type CalendarCmd struct {
	Month  string `help:"Month to show as YYYY-MM. Defaults to the current month." placeholder:"YYYY-MM"`
	Offset int    `help:"Months to move from --month (negative goes back)." default:"0"`
	Habit  int    `help:"Only count this habit ID."`
}

func (c *CalendarCmd) Run(ctx *Context) error {
	if err := ctx.authenticate(); err != nil {
		return err
	}

	view := client.NewMonthView(ctx.Client, ctx.navigator())
	if c.Month != "" {
		m, err := streak.ParseMonth(c.Month)
		if err != nil {
			return err
		}
		view.Jump(m)
	}
	for i := 0; i < c.Offset; i++ {
		view.Next()
	}
	for i := 0; i > c.Offset; i-- {
		view.Prev()
	}

	rctx, cancel := requestContext()
	defer cancel()
	if err := view.Load(rctx); err != nil {
		return wrapSessionErr(err)
	}

	m, _ := view.Loaded()
	habits := view.Habits()
	counts := view.Counts()
	if c.Habit != 0 {
		habits = selectHabit(habits, c.Habit)
		if len(habits) == 0 {
			return fmt.Errorf("no active habit with ID %d", c.Habit)
		}
		counts = streak.CompletedCounts(habits, m)
	}

	fmt.Fprint(ctx.Out, ctx.Theme.RenderMonth(m, counts, len(habits), ctx.today()))
	fmt.Fprintln(ctx.Out)
	fmt.Fprint(ctx.Out, ctx.Theme.RenderHabitTotals(m, habits))
	return nil
}

func selectHabit(habits []streak.HabitDates, id int) []streak.HabitDates {
	for _, h := range habits {
		if h.HabitID == id {
			return []streak.HabitDates{h}
		}
	}
	return nil
}
