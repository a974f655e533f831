package main

import (
	"fmt"
	"os"
	"time"

	"github.com/alecthomas/kong"

	"step26/internal/cli"
	"step26/internal/client"
)

var CLI struct {
	Version  kong.VersionFlag
	Server   string `help:"API base URL." env:"STEP26_SERVER" default:"http://localhost:3000"`
	Timezone string `help:"IANA zone used for today and month navigation. Defaults to the local zone." env:"STEP26_TZ"`
	Profile  string `help:"Name the token is saved under, for several accounts." default:"default"`

	Login    cli.LoginCmd    `cmd:"" help:"Log in and save the access token."`
	Logout   cli.LogoutCmd   `cmd:"" help:"Forget the saved access token."`
	Habits   cli.HabitsCmd   `cmd:"" help:"List active habits and today's progress." default:"1"`
	Calendar cli.CalendarCmd `cmd:"" help:"Show a month of completions."`
	Day      cli.DayCmd      `cmd:"" help:"Show the habits completed on a day and their streaks."`
	Mark     cli.MarkCmd     `cmd:"" help:"Mark a habit done for a day."`
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("step26ctl"),
		kong.Description("Terminal client for step26 habit streaks"),
		kong.UsageOnError(),
		kong.Vars{"version": "v0.1.0"},
	)

	loc := time.Local
	if CLI.Timezone != "" {
		l, err := time.LoadLocation(CLI.Timezone)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: invalid timezone %q: %v\n", CLI.Timezone, err)
			os.Exit(1)
		}
		loc = l
	}

	tokenPath, err := cli.DefaultTokenPath()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if CLI.Profile != "default" {
		tokenPath += "." + CLI.Profile
	}

	appCtx := &cli.Context{
		Client: client.New(CLI.Server, nil),
		Tokens: cli.NewTokenStore(CLI.Profile, tokenPath),
		Theme:  cli.NewTheme(os.Stdout),
		Out:    os.Stdout,
		In:     os.Stdin,
		Loc:    loc,
		Now:    time.Now,
	}

	if err := ctx.Run(appCtx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
