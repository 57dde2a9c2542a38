package cli

import (
	"fmt"
	"time"

	"github.com/lifelens/internal/db"
	"github.com/lifelens/internal/service"
	"gorm.io/gorm"
)

// SeedCmd 为指定用户生成演示数据
type SeedCmd struct {
	Username string `help:"Owner of the generated records." default:"admin"`
	Days     int    `help:"Number of days to generate, ending today." default:"14"`
}

// SeedSummary 统计本次生成的记录数
type SeedSummary struct {
	Skipped    bool
	Habits     int
	HabitLogs  int
	Activities int
	Moods      int
	Nutrition  int
}

type seedHabit struct {
	name    string
	typeTag string
}

var (
	seedHabits = []seedHabit{
		{name: "Drink 8 glasses of water", typeTag: "health"},
		{name: "Read 20 pages", typeTag: "mind"},
		{name: "Evening walk", typeTag: "fitness"},
	}
	seedMoodTypes   = []string{"calm", "happy", "tired", "energetic"}
	seedIntensities = []string{"low", "moderate", "high"}
	seedActivities  = []struct {
		title    string
		category string
	}{
		{"Morning run", "cardio"},
		{"Yoga flow", "flexibility"},
		{"Strength training", "strength"},
		{"Cycling", "cardio"},
	}
)

func (c *SeedCmd) Run(ctx *Context) error {
	user, err := findUser(ctx.DB, c.Username)
	if err != nil {
		return err
	}

	fmt.Fprintln(ctx.Out, "开始生成演示数据...")
	summary, err := SeedDemoData(ctx.DB, user.ID, ctx.today(), c.Days)
	if err != nil {
		return err
	}
	if summary.Skipped {
		fmt.Fprintln(ctx.Out, "习惯已存在，跳过生成")
		return nil
	}

	fmt.Fprintf(ctx.Out, "演示数据生成完成：习惯 %d 个，打卡 %d 次，活动 %d 条，情绪 %d 条，饮食 %d 条\n",
		summary.Habits, summary.HabitLogs, summary.Activities, summary.Moods, summary.Nutrition)
	return nil
}

// SeedDemoData 生成以 today 结尾的 days 天数据，用户已有习惯时跳过
func SeedDemoData(gdb *gorm.DB, userID uint, today time.Time, days int) (SeedSummary, error) {
	var summary SeedSummary
	if days <= 0 {
		return summary, fmt.Errorf("days must be positive, got %d", days)
	}

	habitService := service.NewHabitService(gdb)
	count, err := habitService.Count(userID)
	if err != nil {
		return summary, err
	}
	if count > 0 {
		summary.Skipped = true
		return summary, nil
	}

	habits := make([]*db.Habit, 0, len(seedHabits))
	for _, item := range seedHabits {
		habit, err := habitService.Create(userID, service.HabitInput{
			Name:      item.name,
			Frequency: "daily",
			TypeTag:   item.typeTag,
		})
		if err != nil {
			return summary, fmt.Errorf("seed habit: %w", err)
		}
		habits = append(habits, habit)
	}
	summary.Habits = len(habits)

	logs := service.NewHabitLogService(gdb)
	activities := service.NewActivityService(gdb)
	moods := service.NewMoodService(gdb)
	nutrition := service.NewNutritionService(gdb)

	today = db.CivilDay(today)
	for offset := days - 1; offset >= 0; offset-- {
		day := today.AddDate(0, 0, -offset)

		for j, habit := range habits {
			if (offset+j)%3 == 0 {
				continue
			}
			if _, err := logs.Toggle(userID, habit.ID, day); err != nil {
				return summary, fmt.Errorf("seed habit log: %w", err)
			}
			summary.HabitLogs++
		}

		// 每三天休息一天
		if offset%3 != 2 {
			activity := seedActivities[offset%len(seedActivities)]
			duration := 20 + (offset%4)*10
			if _, err := activities.Create(userID, service.ActivityInput{
				Title:     activity.title,
				Category:  activity.category,
				Duration:  duration,
				Calories:  duration * 8,
				Intensity: seedIntensities[offset%len(seedIntensities)],
				Date:      day,
			}); err != nil {
				return summary, fmt.Errorf("seed activity: %w", err)
			}
			summary.Activities++
		}

		if _, err := moods.Log(userID, service.MoodInput{
			MoodType:    seedMoodTypes[offset%len(seedMoodTypes)],
			MoodScore:   5 + offset%4,
			EnergyScore: 4 + offset%5,
			StressScore: 6 - offset%4,
			Date:        day,
		}); err != nil {
			return summary, fmt.Errorf("seed mood: %w", err)
		}
		summary.Moods++

		for i, meal := range []string{"breakfast", "lunch", "dinner"} {
			if _, err := nutrition.Create(userID, service.NutritionInput{
				MealType: meal,
				Calories: 450 + i*150 + (offset%3)*50,
				Protein:  20 + i*5,
				Carbs:    50 + i*10,
				Fat:      12 + i*4,
				Water:    2,
				Date:     day,
			}); err != nil {
				return summary, fmt.Errorf("seed nutrition: %w", err)
			}
			summary.Nutrition++
		}
	}

	return summary, nil
}
