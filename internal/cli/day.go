package cli

import "fmt"

type DayCmd struct {
	Date string `arg:"" optional:"" help:"Day as YYYY-MM-DD, today or yesterday."`
}

func (c *DayCmd) Run(ctx *Context) error {
	date, err := ctx.parseDay(c.Date)
	if err != nil {
		return err
	}
	if date.After(ctx.today()) {
		return fmt.Errorf("cannot show a future day (%s)", date)
	}
	if err := ctx.authenticate(); err != nil {
		return err
	}
	rctx, cancel := requestContext()
	defer cancel()

	entries, err := ctx.Client.DayDetail(rctx, date)
	if err != nil {
		return wrapSessionErr(err)
	}
	fmt.Fprint(ctx.Out, ctx.Theme.RenderDay(date, entries))
	return nil
}
