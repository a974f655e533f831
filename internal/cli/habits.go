package cli

import "fmt"

type HabitsCmd struct{}

func (c *HabitsCmd) Run(ctx *Context) error {
	if err := ctx.authenticate(); err != nil {
		return err
	}
	rctx, cancel := requestContext()
	defer cancel()

	date, habits, err := ctx.Client.Today(rctx)
	if err != nil {
		return wrapSessionErr(err)
	}
	fmt.Fprint(ctx.Out, ctx.Theme.RenderToday(date, habits))
	return nil
}
