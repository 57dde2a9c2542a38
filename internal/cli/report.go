package cli

import (
	"fmt"

	"github.com/lifelens/internal/db"
	"github.com/lifelens/internal/service"
)

// WeeklyCmd 以 JSON 输出某用户截至某天的七日快照
type WeeklyCmd struct {
	Username string `help:"User to report on." default:"admin"`
	Date     string `help:"Last day of the window (YYYY-MM-DD), defaults to today."`
	Lookback int    `help:"Streak lookback window in days." default:"365"`
}

func (c *WeeklyCmd) Run(ctx *Context) error {
	user, err := findUser(ctx.DB, c.Username)
	if err != nil {
		return err
	}
	day, err := ctx.resolveDay(c.Date)
	if err != nil {
		return err
	}

	snapshot, err := service.NewAnalyticsService(ctx.DB).WithLookback(c.Lookback).Weekly(user.ID, day)
	if err != nil {
		return err
	}
	return ctx.printJSON(snapshot)
}

// StreakCmd 输出某个习惯的当前连胜
type StreakCmd struct {
	Username string `help:"Owner of the habit." default:"admin"`
	HabitID  uint   `arg:"" help:"Habit ID."`
	Date     string `help:"Day to count back from (YYYY-MM-DD), defaults to today."`
	MaxDays  int    `help:"Only count streaks whose latest completion falls within this many days." default:"365"`
}

func (c *StreakCmd) Run(ctx *Context) error {
	user, err := findUser(ctx.DB, c.Username)
	if err != nil {
		return err
	}
	day, err := ctx.resolveDay(c.Date)
	if err != nil {
		return err
	}

	habit, err := service.NewHabitService(ctx.DB).Get(user.ID, c.HabitID)
	if err != nil {
		return err
	}

	streak, err := service.NewHabitLogService(ctx.DB).ComputeStreak(user.ID, habit.ID, day, c.MaxDays)
	if err != nil {
		return err
	}

	fmt.Fprintf(ctx.Out, "%s: %d 天连续完成（截至 %s）\n", habit.Name, streak, day.Format(db.DateLayout))
	return nil
}
