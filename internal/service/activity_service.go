package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lifelens/internal/db"
	"gorm.io/gorm"
)

// ActivityService 负责运动记录的增删改查
type ActivityService struct {
	db *gorm.DB
}

// ActivityInput 定义创建/更新活动时的字段
type ActivityInput struct {
	Title     string
	Category  string
	Duration  int
	Calories  int
	Intensity string
	Notes     string
	Date      time.Time
}

// NewActivityService 构造 ActivityService
func NewActivityService(gdb *gorm.DB) *ActivityService {
	return &ActivityService{db: gdb}
}

// List 返回用户全部活动，按日期倒序
func (s *ActivityService) List(userID uint) ([]db.Activity, error) {
	var activities []db.Activity
	if err := s.db.Where("user_id = ?", userID).
		Order("log_date DESC, id DESC").
		Find(&activities).Error; err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	return activities, nil
}

// ListOn 返回用户某一天的活动
func (s *ActivityService) ListOn(userID uint, day time.Time) ([]db.Activity, error) {
	var activities []db.Activity
	if err := s.db.Where("user_id = ? AND log_date = ?", userID, db.CivilDay(day)).
		Order("id ASC").
		Find(&activities).Error; err != nil {
		return nil, fmt.Errorf("list activities on day: %w", err)
	}
	return activities, nil
}

// ListBetween 返回 [start, end] 区间内的活动，按日期升序
func (s *ActivityService) ListBetween(userID uint, start, end time.Time) ([]db.Activity, error) {
	var activities []db.Activity
	if err := s.db.Where("user_id = ? AND log_date BETWEEN ? AND ?", userID, db.CivilDay(start), db.CivilDay(end)).
		Order("log_date ASC, id ASC").
		Find(&activities).Error; err != nil {
		return nil, fmt.Errorf("list activities in range: %w", err)
	}
	return activities, nil
}

// Get 获取单条活动
func (s *ActivityService) Get(userID, id uint) (*db.Activity, error) {
	var activity db.Activity
	if err := s.db.Where("id = ? AND user_id = ?", id, userID).First(&activity).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrActivityNotFound
		}
		return nil, fmt.Errorf("get activity: %w", err)
	}
	return &activity, nil
}

// Create 新建活动
func (s *ActivityService) Create(userID uint, input ActivityInput) (*db.Activity, error) {
	input, err := normalizeActivityInput(input)
	if err != nil {
		return nil, err
	}

	activity := db.Activity{UserID: userID}
	applyActivityInput(&activity, input)

	if err := s.db.Create(&activity).Error; err != nil {
		return nil, fmt.Errorf("create activity: %w", err)
	}
	return &activity, nil
}

// Update 更新活动
func (s *ActivityService) Update(userID, id uint, input ActivityInput) (*db.Activity, error) {
	input, err := normalizeActivityInput(input)
	if err != nil {
		return nil, err
	}

	activity, err := s.Get(userID, id)
	if err != nil {
		return nil, err
	}
	applyActivityInput(activity, input)

	if err := s.db.Save(activity).Error; err != nil {
		return nil, fmt.Errorf("update activity: %w", err)
	}
	return activity, nil
}

// Delete 删除活动
func (s *ActivityService) Delete(userID, id uint) error {
	result := s.db.Where("id = ? AND user_id = ?", id, userID).Delete(&db.Activity{})
	if result.Error != nil {
		return fmt.Errorf("delete activity: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrActivityNotFound
	}
	return nil
}

func applyActivityInput(activity *db.Activity, input ActivityInput) {
	activity.Title = input.Title
	activity.Category = input.Category
	activity.Duration = input.Duration
	activity.Calories = input.Calories
	activity.Intensity = input.Intensity
	activity.Notes = input.Notes
	activity.LogDate = input.Date
}

func normalizeActivityInput(input ActivityInput) (ActivityInput, error) {
	input.Title = strings.TrimSpace(input.Title)
	input.Category = strings.TrimSpace(input.Category)
	input.Intensity = strings.ToLower(strings.TrimSpace(input.Intensity))
	input.Notes = strings.TrimSpace(input.Notes)

	switch {
	case input.Title == "":
		return input, invalid("title", "title is required")
	case input.Category == "":
		return input, invalid("category", "category is required")
	case input.Intensity == "":
		return input, invalid("intensity", "intensity is required")
	case input.Duration < 0:
		return input, invalid("duration", "duration must not be negative")
	case input.Calories < 0:
		return input, invalid("calories", "calories must not be negative")
	case input.Date.IsZero():
		return input, invalid("date", "date is required")
	}

	input.Date = db.CivilDay(input.Date)
	return input, nil
}
