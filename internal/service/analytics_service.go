package service

import (
	"fmt"
	"sort"
	"time"

	"github.com/lifelens/internal/db"
	"gorm.io/gorm"
)

// weekWindowDays 是周度快照覆盖的天数，含今天
const weekWindowDays = 7

// AnalyticsService 汇总活动、情绪、饮食与习惯数据，生成日度与周度视图。
type AnalyticsService struct {
	habits     *HabitService
	logs       *HabitLogService
	activities *ActivityService
	moods      *MoodService
	nutrition  *NutritionService
}

// DaySnapshot 为周度快照中的单日数据
type DaySnapshot struct {
	Date                string `json:"date"`
	ActivityCount       int    `json:"activity_count"`
	ActivityCalories    int    `json:"activity_calories"`
	ActivityMinutes     int    `json:"activity_minutes"`
	MoodScore           int    `json:"mood_score"`
	MoodType            string `json:"mood_type,omitempty"`
	NutritionCalories   int    `json:"nutrition_calories"`
	Protein             int    `json:"protein"`
	Carbs               int    `json:"carbs"`
	Fat                 int    `json:"fat"`
	Water               int    `json:"water"`
	HabitsCompleted     int    `json:"habits_completed"`
	HabitCompletionRate int    `json:"habit_completion_rate"`
}

// MoodTypeCount 为情绪类型分布中的一项
type MoodTypeCount struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

// MacroTotals 为一周宏量营养素合计
type MacroTotals struct {
	Protein int `json:"protein"`
	Carbs   int `json:"carbs"`
	Fat     int `json:"fat"`
}

// WeeklySnapshot 是 [today-6, today] 的聚合视图，Days 按日期升序排列
type WeeklySnapshot struct {
	Start                  string           `json:"start"`
	End                    string           `json:"end"`
	Days                   []DaySnapshot    `json:"days"`
	TotalActivities        int              `json:"total_activities"`
	TotalActivityCalories  int              `json:"total_activity_calories"`
	TotalActivityMinutes   int              `json:"total_activity_minutes"`
	TotalNutritionCalories int              `json:"total_nutrition_calories"`
	TotalWater             int              `json:"total_water"`
	AverageMood            float64          `json:"average_mood"`
	MoodDays               int              `json:"mood_days"`
	HabitCount             int              `json:"habit_count"`
	LongestStreak          int              `json:"longest_streak"`
	MoodDistribution       []MoodTypeCount  `json:"mood_distribution"`
	Macros                 MacroTotals      `json:"macros"`
	Analysis               WellnessAnalysis `json:"analysis"`
}

// HabitStatus 为当日视图中的单个习惯状态
type HabitStatus struct {
	ID        uint   `json:"id"`
	Name      string `json:"name"`
	TypeTag   string `json:"type_tag,omitempty"`
	Frequency string `json:"frequency"`
	Completed bool   `json:"completed"`
	Streak    int    `json:"streak"`
}

// MoodSummary 为当日情绪
type MoodSummary struct {
	Type        string `json:"type"`
	MoodScore   int    `json:"mood_score"`
	EnergyScore int    `json:"energy_score"`
	StressScore int    `json:"stress_score"`
}

// DailySummary 为仪表盘所需的当日汇总
type DailySummary struct {
	Date              string        `json:"date"`
	ActivityCount     int           `json:"activity_count"`
	ActivityCalories  int           `json:"activity_calories"`
	ActivityMinutes   int           `json:"activity_minutes"`
	Mood              *MoodSummary  `json:"mood"`
	NutritionCalories int           `json:"nutrition_calories"`
	Protein           int           `json:"protein"`
	Carbs             int           `json:"carbs"`
	Fat               int           `json:"fat"`
	Water             int           `json:"water"`
	HabitCount        int           `json:"habit_count"`
	HabitsCompleted   int           `json:"habits_completed"`
	CompletionRate    int           `json:"completion_rate"`
	Habits            []HabitStatus `json:"habits"`
}

// NewAnalyticsService 创建 AnalyticsService，连胜回溯窗口使用默认值
func NewAnalyticsService(gdb *gorm.DB) *AnalyticsService {
	return &AnalyticsService{
		habits:     NewHabitService(gdb),
		logs:       NewHabitLogService(gdb),
		activities: NewActivityService(gdb),
		moods:      NewMoodService(gdb),
		nutrition:  NewNutritionService(gdb),
	}
}

// WithLookback 调整计算最长连胜时的回溯窗口
func (s *AnalyticsService) WithLookback(days int) *AnalyticsService {
	s.logs.WithLookback(days)
	return s
}

// Weekly 生成截至 today 的 7 天快照。缺失数据按 0 处理，不会返回“数据不足”错误。
func (s *AnalyticsService) Weekly(userID uint, today time.Time) (*WeeklySnapshot, error) {
	end := db.CivilDay(today)
	start := end.AddDate(0, 0, -(weekWindowDays - 1))

	activities, err := s.activities.ListBetween(userID, start, end)
	if err != nil {
		return nil, err
	}
	moods, err := s.moods.ListBetween(userID, start, end)
	if err != nil {
		return nil, err
	}
	meals, err := s.nutrition.ListBetween(userID, start, end)
	if err != nil {
		return nil, err
	}
	habitCount, err := s.habits.Count(userID)
	if err != nil {
		return nil, err
	}
	completedByDay, err := s.logs.CompletedByDay(userID, start, end)
	if err != nil {
		return nil, err
	}
	longest, err := s.logs.LongestStreak(userID, end)
	if err != nil {
		return nil, err
	}

	snapshot := &WeeklySnapshot{
		Start:            start.Format(db.DateLayout),
		End:              end.Format(db.DateLayout),
		Days:             make([]DaySnapshot, weekWindowDays),
		HabitCount:       habitCount,
		LongestStreak:    longest,
		MoodDistribution: []MoodTypeCount{},
	}

	index := make(map[string]int, weekWindowDays)
	for i := range snapshot.Days {
		key := start.AddDate(0, 0, i).Format(db.DateLayout)
		index[key] = i
		snapshot.Days[i] = DaySnapshot{
			Date:                key,
			HabitsCompleted:     completedByDay[key],
			HabitCompletionRate: completionRate(completedByDay[key], habitCount),
		}
	}

	for _, activity := range activities {
		i, ok := index[db.CivilDay(activity.LogDate).Format(db.DateLayout)]
		if !ok {
			continue
		}
		snapshot.Days[i].ActivityCount++
		snapshot.Days[i].ActivityCalories += activity.Calories
		snapshot.Days[i].ActivityMinutes += activity.Duration
	}

	distribution := make(map[string]int)
	for _, mood := range moods {
		i, ok := index[db.CivilDay(mood.LogDate).Format(db.DateLayout)]
		if !ok || snapshot.Days[i].MoodScore != 0 {
			// 同一天只取第一条
			continue
		}
		snapshot.Days[i].MoodScore = mood.MoodScore
		snapshot.Days[i].MoodType = mood.MoodType
		if mood.MoodType != "" {
			distribution[mood.MoodType]++
		}
	}

	for _, meal := range meals {
		i, ok := index[db.CivilDay(meal.LogDate).Format(db.DateLayout)]
		if !ok {
			continue
		}
		snapshot.Days[i].NutritionCalories += meal.Calories
		snapshot.Days[i].Protein += meal.Protein
		snapshot.Days[i].Carbs += meal.Carbs
		snapshot.Days[i].Fat += meal.Fat
		snapshot.Days[i].Water += meal.Water
	}

	activitySeries := make([]int, weekWindowDays)
	moodSeries := make([]int, weekWindowDays)
	calorieSeries := make([]int, weekWindowDays)
	moodSum := 0

	for i, d := range snapshot.Days {
		snapshot.TotalActivities += d.ActivityCount
		snapshot.TotalActivityCalories += d.ActivityCalories
		snapshot.TotalActivityMinutes += d.ActivityMinutes
		snapshot.TotalNutritionCalories += d.NutritionCalories
		snapshot.TotalWater += d.Water
		snapshot.Macros.Protein += d.Protein
		snapshot.Macros.Carbs += d.Carbs
		snapshot.Macros.Fat += d.Fat

		if d.MoodScore > 0 {
			moodSum += d.MoodScore
			snapshot.MoodDays++
		}

		activitySeries[i] = d.ActivityCount
		moodSeries[i] = d.MoodScore
		calorieSeries[i] = d.ActivityCalories
	}

	if snapshot.MoodDays > 0 {
		snapshot.AverageMood = float64(moodSum) / float64(snapshot.MoodDays)
	}
	snapshot.MoodDistribution = sortedDistribution(distribution)
	snapshot.Analysis = AnalyzeWellness(activitySeries, moodSeries, calorieSeries)

	return snapshot, nil
}

// Daily 生成某一天的仪表盘汇总
func (s *AnalyticsService) Daily(userID uint, day time.Time) (*DailySummary, error) {
	day = db.CivilDay(day)

	activities, err := s.activities.ListOn(userID, day)
	if err != nil {
		return nil, err
	}
	mood, err := s.moods.FindOn(userID, day)
	if err != nil {
		return nil, err
	}
	meals, err := s.nutrition.ListBetween(userID, day, day)
	if err != nil {
		return nil, err
	}
	habits, err := s.habits.List(userID, HabitFilter{})
	if err != nil {
		return nil, err
	}

	summary := &DailySummary{
		Date:       day.Format(db.DateLayout),
		HabitCount: len(habits),
		Habits:     make([]HabitStatus, 0, len(habits)),
	}

	for _, activity := range activities {
		summary.ActivityCount++
		summary.ActivityCalories += activity.Calories
		summary.ActivityMinutes += activity.Duration
	}

	if mood != nil {
		summary.Mood = &MoodSummary{
			Type:        mood.MoodType,
			MoodScore:   mood.MoodScore,
			EnergyScore: mood.EnergyScore,
			StressScore: mood.StressScore,
		}
	}

	for _, meal := range meals {
		summary.NutritionCalories += meal.Calories
		summary.Protein += meal.Protein
		summary.Carbs += meal.Carbs
		summary.Fat += meal.Fat
		summary.Water += meal.Water
	}

	for _, habit := range habits {
		record, err := s.logs.Find(userID, habit.ID, day)
		if err != nil {
			return nil, err
		}
		streak, err := s.logs.ComputeStreak(userID, habit.ID, day, 0)
		if err != nil {
			return nil, fmt.Errorf("compute streak for habit %d: %w", habit.ID, err)
		}

		completed := record != nil && record.IsCompleted
		if completed {
			summary.HabitsCompleted++
		}
		summary.Habits = append(summary.Habits, HabitStatus{
			ID:        habit.ID,
			Name:      habit.Name,
			TypeTag:   habit.TypeTag,
			Frequency: habit.Frequency,
			Completed: completed,
			Streak:    streak,
		})
	}
	summary.CompletionRate = completionRate(summary.HabitsCompleted, summary.HabitCount)

	return summary, nil
}

// completionRate 返回截断后的整数百分比，无习惯时为 0
func completionRate(completed, total int) int {
	if total <= 0 {
		return 0
	}
	return completed * 100 / total
}

func sortedDistribution(counts map[string]int) []MoodTypeCount {
	result := make([]MoodTypeCount, 0, len(counts))
	for moodType, count := range counts {
		result = append(result, MoodTypeCount{Type: moodType, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Type < result[j].Type
	})
	return result
}
