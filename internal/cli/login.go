package cli

import (
	"bufio"
	"errors"
	"fmt"
	"strings"
)

type LoginCmd struct {
	Username string `arg:"" help:"Account name."`
	Password string `help:"Password. Read from stdin when omitted." env:"STEP26_PASSWORD"`
}

func (c *LoginCmd) Run(ctx *Context) error {
	password := c.Password
	if password == "" {
		fmt.Fprint(ctx.Out, "Password: ")
		line, err := bufio.NewReader(ctx.In).ReadString('\n')
		if err != nil && line == "" {
			return errors.New("no password given")
		}
		password = strings.TrimRight(line, "\r\n")
	}

	rctx, cancel := requestContext()
	defer cancel()
	resp, err := ctx.Client.Login(rctx, c.Username, password)
	if err != nil {
		return err
	}
	if err := ctx.Tokens.Save(resp.Token); err != nil {
		return err
	}
	fmt.Fprintf(ctx.Out, "Logged in as %s\n", resp.User.Username)
	return nil
}

type LogoutCmd struct{}

func (c *LogoutCmd) Run(ctx *Context) error {
	if err := ctx.Tokens.Clear(); err != nil {
		return err
	}
	fmt.Fprintln(ctx.Out, "Logged out")
	return nil
}
