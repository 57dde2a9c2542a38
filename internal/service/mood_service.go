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

const (
	minMoodScore = 1
	maxMoodScore = 10
)

// MoodService 负责情绪记录，每个用户每天最多一条
type MoodService struct {
	db *gorm.DB
}

// MoodInput 定义记录情绪所需字段
type MoodInput struct {
	MoodType    string
	MoodScore   int
	EnergyScore int
	StressScore int
	Notes       string
	Date        time.Time
}

// NewMoodService 构造 MoodService
func NewMoodService(gdb *gorm.DB) *MoodService {
	return &MoodService{db: gdb}
}

// Log 记录某天的情绪；同一天重复记录会覆盖旧值
func (s *MoodService) Log(userID uint, input MoodInput) (*db.Mood, error) {
	input, err := normalizeMoodInput(input)
	if err != nil {
		return nil, err
	}

	mood := db.Mood{
		UserID:      userID,
		LogDate:     input.Date,
		MoodType:    input.MoodType,
		MoodScore:   input.MoodScore,
		EnergyScore: input.EnergyScore,
		StressScore: input.StressScore,
		Notes:       input.Notes,
	}

	var saved db.Mood
	if err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "log_date"}},
			DoUpdates: clause.AssignmentColumns([]string{"mood_type", "mood_score", "energy_score", "stress_score", "notes", "updated_at"}),
		}).Create(&mood).Error; err != nil {
			return fmt.Errorf("upsert mood: %w", err)
		}
		// 冲突更新时主键不一定回填，按唯一键重新读取
		return tx.Where("user_id = ? AND log_date = ?", userID, input.Date).First(&saved).Error
	}); err != nil {
		return nil, err
	}

	return &saved, nil
}

// List 返回用户全部情绪记录，按日期倒序
func (s *MoodService) List(userID uint) ([]db.Mood, error) {
	var moods []db.Mood
	if err := s.db.Where("user_id = ?", userID).Order("log_date DESC").Find(&moods).Error; err != nil {
		return nil, fmt.Errorf("list moods: %w", err)
	}
	return moods, nil
}

// ListBetween 返回区间内的情绪记录，按日期升序
func (s *MoodService) ListBetween(userID uint, start, end time.Time) ([]db.Mood, error) {
	var moods []db.Mood
	if err := s.db.Where("user_id = ? AND log_date BETWEEN ? AND ?", userID, db.CivilDay(start), db.CivilDay(end)).
		Order("log_date ASC, id ASC").
		Find(&moods).Error; err != nil {
		return nil, fmt.Errorf("list moods in range: %w", err)
	}
	return moods, nil
}

// FindOn 返回某天的情绪记录，不存在时返回 nil, nil
func (s *MoodService) FindOn(userID uint, day time.Time) (*db.Mood, error) {
	var mood db.Mood
	err := s.db.Where("user_id = ? AND log_date = ?", userID, db.CivilDay(day)).
		Order("id ASC").
		First(&mood).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find mood: %w", err)
	}
	return &mood, nil
}

// Get 获取单条情绪记录
func (s *MoodService) Get(userID, id uint) (*db.Mood, error) {
	var mood db.Mood
	if err := s.db.Where("id = ? AND user_id = ?", id, userID).First(&mood).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMoodNotFound
		}
		return nil, fmt.Errorf("get mood: %w", err)
	}
	return &mood, nil
}

// Delete 删除情绪记录
func (s *MoodService) Delete(userID, id uint) error {
	result := s.db.Where("id = ? AND user_id = ?", id, userID).Delete(&db.Mood{})
	if result.Error != nil {
		return fmt.Errorf("delete mood: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrMoodNotFound
	}
	return nil
}

func normalizeMoodInput(input MoodInput) (MoodInput, error) {
	input.MoodType = strings.ToLower(strings.TrimSpace(input.MoodType))
	input.Notes = strings.TrimSpace(input.Notes)

	if input.MoodType == "" {
		return input, invalid("mood_type", "mood type is required")
	}
	scores := []struct {
		field string
		value int
	}{
		{"mood_score", input.MoodScore},
		{"energy_score", input.EnergyScore},
		{"stress_score", input.StressScore},
	}
	for _, score := range scores {
		if score.value < minMoodScore || score.value > maxMoodScore {
			return input, invalid(score.field, fmt.Sprintf("must be between %d and %d", minMoodScore, maxMoodScore))
		}
	}
	if input.Date.IsZero() {
		return input, invalid("date", "date is required")
	}

	input.Date = db.CivilDay(input.Date)
	return input, nil
}
