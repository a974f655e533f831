package cli

import "fmt"

// MarkCmd records a habit as done on a day, or removes that record.
type MarkCmd struct {
	HabitID int    `arg:"" help:"Habit ID (see: step26ctl habits)."`
	Date    string `help:"Day as YYYY-MM-DD, today or yesterday." default:"today"`
	Undo    bool   `help:"Remove the log for that day instead."`
}

func (c *MarkCmd) Run(ctx *Context) error {
	date, err := ctx.parseDay(c.Date)
	if err != nil {
		return err
	}
	if date.After(ctx.today()) {
		return fmt.Errorf("cannot log a future day (%s)", date)
	}
	if err := ctx.authenticate(); err != nil {
		return err
	}
	rctx, cancel := requestContext()
	defer cancel()

	if c.Undo {
		logs, err := ctx.Client.HabitLogs(rctx, c.HabitID, date, date)
		if err != nil {
			return wrapSessionErr(err)
		}
		if len(logs) == 0 {
			fmt.Fprintf(ctx.Out, "Nothing logged for habit %d on %s\n", c.HabitID, date)
			return nil
		}
		for _, l := range logs {
			if err := ctx.Client.DeleteLog(rctx, c.HabitID, l.ID); err != nil {
				return wrapSessionErr(err)
			}
		}
		fmt.Fprintf(ctx.Out, "Removed log for habit %d on %s\n", c.HabitID, date)
		return nil
	}

	res, err := ctx.Client.CreateLog(rctx, c.HabitID, date, true)
	if err != nil {
		return wrapSessionErr(err)
	}
	fmt.Fprintf(ctx.Out, "Marked habit %d done on %s (streak %d, best %d)\n",
		c.HabitID, date, res.CurrentStreak, res.LongestStreak)
	return nil
}
