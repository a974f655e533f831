// Package cli implements the step26ctl commands on top of the API client.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"step26/internal/client"
	"step26/internal/streak"
)

var errNotLoggedIn = errors.New("not logged in (run: step26ctl login USERNAME)")

type Context struct {
	Client *client.Client
	Tokens *TokenStore
	Theme  *Theme
	Out    io.Writer
	In     io.Reader
	Loc    *time.Location
	Now    func() time.Time
}

// authenticate loads the saved token into the client. A 401 from any later
// call forgets it so the next run asks for a fresh login.
func (c *Context) authenticate() error {
	token, err := c.Tokens.Load()
	if errors.Is(err, ErrNoToken) {
		return errNotLoggedIn
	}
	if err != nil {
		return err
	}
	c.Client.SetToken(token)
	c.Client.OnUnauthorized = func() {
		_ = c.Tokens.Clear()
	}
	return nil
}

func (c *Context) today() streak.Date {
	return streak.DateOf(c.Now(), c.Loc)
}

func (c *Context) navigator() *streak.Navigator {
	return streak.NewNavigator(c.Loc, c.Now)
}

// parseDay accepts YYYY-MM-DD, "today" or "yesterday". Empty means today.
func (c *Context) parseDay(s string) (streak.Date, error) {
	switch s {
	case "", "today":
		return c.today(), nil
	case "yesterday":
		return c.today().AddDays(-1), nil
	}
	return streak.ParseDate(s)
}

func requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}

func wrapSessionErr(err error) error {
	if errors.Is(err, client.ErrUnauthorized) {
		return fmt.Errorf("session expired, log in again: %w", err)
	}
	return err
}
