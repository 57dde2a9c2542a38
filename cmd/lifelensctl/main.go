package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"github.com/lifelens/internal/cli"
	"github.com/lifelens/internal/db"
	"github.com/lifelens/internal/logger"
)

var CLI struct {
	Version  kong.VersionFlag
	Database string `help:"SQLite database path." env:"DATABASE_PATH" default:"lifelens.db" type:"path"`
	LogLevel string `help:"Log level." env:"LOG_LEVEL" default:"warn"`

	InitUser cli.InitUserCmd `cmd:"" name:"init-user" help:"Create a login account if it does not exist."`
	Seed     cli.SeedCmd     `cmd:"" help:"Generate demo habits, activities, moods and meals."`
	Weekly   cli.WeeklyCmd   `cmd:"" help:"Print the 7-day wellness snapshot as JSON."`
	Streak   cli.StreakCmd   `cmd:"" help:"Show the current streak of a habit."`
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("lifelensctl"),
		kong.Description("LifeLens administration tool"),
		kong.UsageOnError(),
		kong.Vars{"version": "v0.1.0"},
	)

	if err := logger.Init(logger.Config{Level: CLI.LogLevel}); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := db.Init(CLI.Database); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to initialize database: %v\n", err)
		os.Exit(1)
	}

	err := ctx.Run(&cli.Context{DB: db.DB, Out: os.Stdout})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
