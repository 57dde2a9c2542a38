package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lifelens/internal/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultStreakLookbackDays 为连胜计算向前查找最近一次完成记录的默认天数
const DefaultStreakLookbackDays = 365

// HabitService 负责 Habit 数据的增删改查，所有操作都限定在当前用户范围内
// Frequency 支持 daily/weekly/monthly，TargetCount>0
type HabitService struct {
	db *gorm.DB
}

// HabitFilter 描述列表过滤条件
type HabitFilter struct {
	TypeTag string
	Search  string
}

// HabitInput 定义创建/更新习惯时可配置字段
type HabitInput struct {
	Name        string
	Description string
	Frequency   string
	TargetCount int
	TypeTag     string
}

// NewHabitService 构造 HabitService
func NewHabitService(gdb *gorm.DB) *HabitService {
	return &HabitService{db: gdb}
}

// List 返回用户的习惯集合，支持基本筛选
func (s *HabitService) List(userID uint, filter HabitFilter) ([]db.Habit, error) {
	var habits []db.Habit

	query := s.db.Model(&db.Habit{}).Where("user_id = ?", userID)

	if filter.TypeTag != "" {
		query = query.Where("type_tag = ?", filter.TypeTag)
	}
	if filter.Search != "" {
		like := fmt.Sprintf("%%%s%%", strings.TrimSpace(filter.Search))
		query = query.Where("name LIKE ? OR description LIKE ?", like, like)
	}

	if err := query.Order("created_at ASC, id ASC").Find(&habits).Error; err != nil {
		return nil, fmt.Errorf("list habits: %w", err)
	}

	return habits, nil
}

// Get 根据 ID 获取习惯，不属于该用户的习惯视为不存在
func (s *HabitService) Get(userID, id uint) (*db.Habit, error) {
	return findHabit(s.db, userID, id)
}

// Count 返回用户的习惯总数
func (s *HabitService) Count(userID uint) (int, error) {
	var count int64
	if err := s.db.Model(&db.Habit{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count habits: %w", err)
	}
	return int(count), nil
}

// Create 新建习惯
func (s *HabitService) Create(userID uint, input HabitInput) (*db.Habit, error) {
	input, err := normalizeHabitInput(input)
	if err != nil {
		return nil, err
	}

	habit := db.Habit{
		UserID:      userID,
		Name:        input.Name,
		Description: input.Description,
		Frequency:   input.Frequency,
		TargetCount: input.TargetCount,
		TypeTag:     input.TypeTag,
	}

	if err := s.db.Create(&habit).Error; err != nil {
		return nil, fmt.Errorf("create habit: %w", err)
	}
	return &habit, nil
}

// Update 更新习惯
func (s *HabitService) Update(userID, id uint, input HabitInput) (*db.Habit, error) {
	input, err := normalizeHabitInput(input)
	if err != nil {
		return nil, err
	}

	existing, err := findHabit(s.db, userID, id)
	if err != nil {
		return nil, err
	}

	existing.Name = input.Name
	existing.Description = input.Description
	existing.Frequency = input.Frequency
	existing.TargetCount = input.TargetCount
	existing.TypeTag = input.TypeTag

	if err := s.db.Save(existing).Error; err != nil {
		return nil, fmt.Errorf("update habit: %w", err)
	}
	return existing, nil
}

// Delete 删除习惯及其全部打卡记录
func (s *HabitService) Delete(userID, id uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		habit, err := findHabit(tx, userID, id)
		if err != nil {
			return err
		}
		if err := tx.Where("habit_id = ?", habit.ID).Delete(&db.HabitLog{}).Error; err != nil {
			return fmt.Errorf("delete habit logs: %w", err)
		}
		if err := tx.Delete(habit).Error; err != nil {
			return fmt.Errorf("delete habit: %w", err)
		}
		return nil
	})
}

func findHabit(gdb *gorm.DB, userID, id uint) (*db.Habit, error) {
	var habit db.Habit
	if err := gdb.Where("id = ? AND user_id = ?", id, userID).First(&habit).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrHabitNotFound
		}
		return nil, fmt.Errorf("get habit: %w", err)
	}
	return &habit, nil
}

func normalizeHabitInput(input HabitInput) (HabitInput, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Description = strings.TrimSpace(input.Description)
	input.TypeTag = strings.TrimSpace(input.TypeTag)
	input.Frequency = strings.ToLower(strings.TrimSpace(input.Frequency))

	if input.Name == "" {
		return input, invalid("name", "habit name is required")
	}

	if input.Frequency == "" {
		input.Frequency = "daily"
	}
	if input.Frequency != "daily" && input.Frequency != "weekly" && input.Frequency != "monthly" {
		return input, invalid("frequency", fmt.Sprintf("unsupported frequency %s", input.Frequency))
	}

	if input.TargetCount == 0 {
		input.TargetCount = 1
	}
	if input.TargetCount < 0 {
		return input, invalid("target_count", "target count must be positive")
	}

	return input, nil
}

// HabitLogService 负责打卡切换、连胜与统计逻辑
type HabitLogService struct {
	db       *gorm.DB
	lookback int
}

// HabitHeatmapEntry 表示热力图中的单日打卡数据
type HabitHeatmapEntry struct {
	LogDate   time.Time
	HabitID   uint
	HabitName string
	HabitType string
}

// HabitLogFilter 指定查询区间
type HabitLogFilter struct {
	UserID  uint
	HabitID uint
	Start   time.Time
	End     time.Time
}

// ToggleResult 为一次打卡切换后的状态
type ToggleResult struct {
	HabitID        uint
	Date           time.Time
	IsCompleted    bool
	CompletedCount int
}

// HabitStats 汇总区间统计数据
type HabitStats struct {
	RangeStart     time.Time
	RangeEnd       time.Time
	CompletedCount int
	TargetCount    int
	CompletionRate float64
	CurrentStreak  int
	LongestStreak  int
}

// NewHabitLogService 构造 HabitLogService
func NewHabitLogService(gdb *gorm.DB) *HabitLogService {
	return &HabitLogService{db: gdb, lookback: DefaultStreakLookbackDays}
}

// WithLookback 调整连胜计算的回溯窗口。
func (s *HabitLogService) WithLookback(days int) *HabitLogService {
	if days <= 0 {
		return s
	}
	s.lookback = days
	return s
}

// Lookback 返回当前回溯窗口天数。
func (s *HabitLogService) Lookback() int {
	return s.lookback
}

// Toggle 在完成/未完成之间切换某习惯某天的状态：
// 无记录时创建 count=1 的完成记录；已完成则取消并将 count 减一（不低于 0）；未完成则完成并加一。
// 新值在同一条 UPDATE 语句中由旧行计算得出，并发切换不会让 count 与状态错位。
func (s *HabitLogService) Toggle(userID, habitID uint, day time.Time) (*ToggleResult, error) {
	logDate := db.CivilDay(day)
	var record db.HabitLog

	if err := s.db.Transaction(func(tx *gorm.DB) error {
		if _, err := findHabit(tx, userID, habitID); err != nil {
			return err
		}

		fresh := db.HabitLog{
			HabitID:        habitID,
			UserID:         userID,
			LogDate:        logDate,
			CompletedCount: 1,
			IsCompleted:    true,
		}
		insert := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "habit_id"}, {Name: "log_date"}},
			DoNothing: true,
		}).Create(&fresh)
		if insert.Error != nil {
			return fmt.Errorf("insert habit log: %w", insert.Error)
		}

		if insert.RowsAffected == 0 {
			if err := tx.Model(&db.HabitLog{}).
				Where("habit_id = ? AND log_date = ?", habitID, logDate).
				Updates(map[string]interface{}{
					"is_completed": gorm.Expr("NOT is_completed"),
					"completed_count": gorm.Expr(
						"CASE WHEN is_completed THEN (CASE WHEN completed_count > 0 THEN completed_count - 1 ELSE 0 END) ELSE completed_count + 1 END",
					),
				}).Error; err != nil {
				return fmt.Errorf("toggle habit log: %w", err)
			}
		}

		if err := tx.Where("habit_id = ? AND log_date = ?", habitID, logDate).First(&record).Error; err != nil {
			return fmt.Errorf("reload habit log: %w", err)
		}
		return nil
	}); err != nil {
		return nil, err
	}

	return &ToggleResult{
		HabitID:        record.HabitID,
		Date:           logDate,
		IsCompleted:    record.IsCompleted,
		CompletedCount: record.CompletedCount,
	}, nil
}

// Find 返回某习惯某天的记录，不存在时返回 nil, nil
func (s *HabitLogService) Find(userID, habitID uint, day time.Time) (*db.HabitLog, error) {
	var record db.HabitLog
	err := s.db.Where("habit_id = ? AND user_id = ? AND log_date = ?", habitID, userID, db.CivilDay(day)).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find habit log: %w", err)
	}
	return &record, nil
}

// CountCompleted 返回用户某天已完成的打卡数量（仅统计仍存在的习惯）
func (s *HabitLogService) CountCompleted(userID uint, day time.Time) (int, error) {
	var count int64
	if err := s.completedLogs(userID).
		Where("habit_logs.log_date = ?", db.CivilDay(day)).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count completed logs: %w", err)
	}
	return int(count), nil
}

// CompletedByDay 返回区间内每天已完成的打卡数量，键为 YYYY-MM-DD
func (s *HabitLogService) CompletedByDay(userID uint, start, end time.Time) (map[string]int, error) {
	var dates []time.Time
	if err := s.completedLogs(userID).
		Where("habit_logs.log_date BETWEEN ? AND ?", db.CivilDay(start), db.CivilDay(end)).
		Pluck("habit_logs.log_date", &dates).Error; err != nil {
		return nil, fmt.Errorf("list completed logs: %w", err)
	}

	result := make(map[string]int, len(dates))
	for _, date := range dates {
		result[db.CivilDay(date).Format(db.DateLayout)]++
	}
	return result, nil
}

func (s *HabitLogService) completedLogs(userID uint) *gorm.DB {
	return s.db.Model(&db.HabitLog{}).
		Joins("JOIN habits ON habits.id = habit_logs.habit_id AND habits.deleted_at IS NULL").
		Where("habit_logs.user_id = ? AND habit_logs.is_completed = ?", userID, true)
}

// ComputeStreak 计算习惯的当前连胜：在 [today-maxDays+1, today] 内找到最近一次完成的日期作为锚点，
// 再从锚点向前统计连续完成的天数，遇到缺失或未完成的日期即停止。
// 锚点不要求是今天，例如只在前天完成过则连胜为 1。
func (s *HabitLogService) ComputeStreak(userID, habitID uint, today time.Time, maxDays int) (int, error) {
	if maxDays <= 0 {
		maxDays = s.lookback
	}
	today = db.CivilDay(today)

	var dates []time.Time
	if err := s.db.Model(&db.HabitLog{}).
		Where("habit_id = ? AND user_id = ? AND is_completed = ? AND log_date <= ?", habitID, userID, true, today).
		Order("log_date DESC").
		Pluck("log_date", &dates).Error; err != nil {
		return 0, fmt.Errorf("list streak logs: %w", err)
	}

	return streakFromDates(dates, today, maxDays), nil
}

// LongestStreak 返回用户所有习惯中最大的当前连胜
func (s *HabitLogService) LongestStreak(userID uint, today time.Time) (int, error) {
	var habitIDs []uint
	if err := s.db.Model(&db.Habit{}).Where("user_id = ?", userID).Pluck("id", &habitIDs).Error; err != nil {
		return 0, fmt.Errorf("list habit ids: %w", err)
	}

	longest := 0
	for _, id := range habitIDs {
		streak, err := s.ComputeStreak(userID, id, today, s.lookback)
		if err != nil {
			return 0, err
		}
		longest = max(longest, streak)
	}
	return longest, nil
}

// streakFromDates 要求 completed 按日期倒序排列
func streakFromDates(completed []time.Time, today time.Time, maxDays int) int {
	if len(completed) == 0 {
		return 0
	}

	windowStart := today.AddDate(0, 0, -(maxDays - 1))
	anchor := db.CivilDay(completed[0])
	if anchor.Before(windowStart) || anchor.After(today) {
		return 0
	}

	streak := 1
	expected := anchor.AddDate(0, 0, -1)
	for _, date := range completed[1:] {
		if !db.CivilDay(date).Equal(expected) {
			break
		}
		streak++
		expected = expected.AddDate(0, 0, -1)
	}
	return streak
}

// ListBetween 返回指定区间内的打卡记录
func (s *HabitLogService) ListBetween(filter HabitLogFilter) ([]db.HabitLog, error) {
	var logs []db.HabitLog

	if filter.HabitID == 0 {
		return nil, invalid("habit_id", "habit id is required")
	}

	start := db.CivilDay(filter.Start)
	end := db.CivilDay(filter.End)

	if err := s.db.Where("habit_id = ? AND user_id = ?", filter.HabitID, filter.UserID).
		Where("log_date BETWEEN ? AND ?", start, end).
		Order("log_date ASC").
		Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("list habit logs: %w", err)
	}

	return logs, nil
}

// HeatmapRange 返回指定区间内用户所有习惯的完成数据
func (s *HabitLogService) HeatmapRange(userID uint, start, end time.Time) ([]HabitHeatmapEntry, error) {
	if end.Before(start) {
		return nil, invalid("range", "end before start")
	}

	var rows []HabitHeatmapEntry
	if err := s.completedLogs(userID).
		Select("habit_logs.log_date AS log_date, habit_logs.habit_id AS habit_id, habits.name AS habit_name, habits.type_tag AS habit_type").
		Where("habit_logs.log_date BETWEEN ? AND ?", db.CivilDay(start), db.CivilDay(end)).
		Order("habit_logs.log_date ASC, habits.name ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list heatmap logs: %w", err)
	}

	return rows, nil
}

// StatsBetween 计算区间内的完成数、目标完成数及连胜
func (s *HabitLogService) StatsBetween(filter HabitLogFilter, habit db.Habit) (*HabitStats, error) {
	logs, err := s.ListBetween(filter)
	if err != nil {
		return nil, err
	}

	completed := make([]db.HabitLog, 0, len(logs))
	for _, log := range logs {
		if log.IsCompleted {
			completed = append(completed, log)
		}
	}

	stats := &HabitStats{
		RangeStart: db.CivilDay(filter.Start),
		RangeEnd:   db.CivilDay(filter.End),
	}

	stats.CompletedCount = len(completed)
	stats.TargetCount = expectedCount(habit, stats.RangeStart, stats.RangeEnd)
	if stats.TargetCount <= 0 {
		stats.TargetCount = stats.CompletedCount
	}

	if stats.TargetCount > 0 {
		stats.CompletionRate = float64(stats.CompletedCount) / float64(stats.TargetCount)
	}

	stats.LongestStreak = longestRun(completed)
	stats.CurrentStreak, err = s.ComputeStreak(filter.UserID, habit.ID, stats.RangeEnd, s.lookback)
	if err != nil {
		return nil, err
	}

	return stats, nil
}

func expectedCount(habit db.Habit, start, end time.Time) int {
	if end.Before(start) {
		return 0
	}

	days := int(end.Sub(start).Hours()/24) + 1

	switch strings.ToLower(habit.Frequency) {
	case "weekly":
		weeks := days / 7
		if weeks == 0 {
			weeks = 1
		}
		return weeks * max(1, habit.TargetCount)
	case "monthly":
		months := diffMonths(start, end)
		if months == 0 {
			months = 1
		}
		return months * max(1, habit.TargetCount)
	default:
		return days * max(1, habit.TargetCount)
	}
}

// longestRun 要求 logs 按日期升序排列
func longestRun(logs []db.HabitLog) int {
	if len(logs) == 0 {
		return 0
	}

	longest := 1
	current := 1

	for i := 1; i < len(logs); i++ {
		delta := int(db.CivilDay(logs[i].LogDate).Sub(db.CivilDay(logs[i-1].LogDate)).Hours() / 24)
		if delta == 1 {
			current++
			if current > longest {
				longest = current
			}
		} else {
			current = 1
		}
	}

	return longest
}

func diffMonths(start, end time.Time) int {
	y1, m1, _ := start.Date()
	y2, m2, _ := end.Date()

	return (y2-y1)*12 + int(m2-m1) + 1
}
