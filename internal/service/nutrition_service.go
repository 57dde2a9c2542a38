package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/lifelens/internal/db"
	"gorm.io/gorm"
)

// NutritionService 负责饮食记录
type NutritionService struct {
	db *gorm.DB
}

// NutritionInput 定义饮食记录字段
type NutritionInput struct {
	MealType string
	Calories int
	Protein  int
	Carbs    int
	Fat      int
	Water    int
	Notes    string
	Date     time.Time
}

// NewNutritionService 构造 NutritionService
func NewNutritionService(gdb *gorm.DB) *NutritionService {
	return &NutritionService{db: gdb}
}

// Create 新增一条饮食记录
func (s *NutritionService) Create(userID uint, input NutritionInput) (*db.Nutrition, error) {
	input.MealType = strings.ToLower(strings.TrimSpace(input.MealType))
	input.Notes = strings.TrimSpace(input.Notes)

	for field, value := range map[string]int{
		"calories": input.Calories,
		"protein":  input.Protein,
		"carbs":    input.Carbs,
		"fat":      input.Fat,
		"water":    input.Water,
	} {
		if value < 0 {
			return nil, invalid(field, "must not be negative")
		}
	}
	if input.Date.IsZero() {
		return nil, invalid("date", "date is required")
	}

	entry := db.Nutrition{
		UserID:   userID,
		MealType: input.MealType,
		Calories: input.Calories,
		Protein:  input.Protein,
		Carbs:    input.Carbs,
		Fat:      input.Fat,
		Water:    input.Water,
		Notes:    input.Notes,
		LogDate:  db.CivilDay(input.Date),
	}
	if err := s.db.Create(&entry).Error; err != nil {
		return nil, fmt.Errorf("create nutrition entry: %w", err)
	}
	return &entry, nil
}

// List 返回用户全部饮食记录，按日期倒序
func (s *NutritionService) List(userID uint) ([]db.Nutrition, error) {
	var entries []db.Nutrition
	if err := s.db.Where("user_id = ?", userID).Order("log_date DESC, id DESC").Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("list nutrition entries: %w", err)
	}
	return entries, nil
}

// ListBetween 返回区间内的饮食记录，按日期升序
func (s *NutritionService) ListBetween(userID uint, start, end time.Time) ([]db.Nutrition, error) {
	var entries []db.Nutrition
	if err := s.db.Where("user_id = ? AND log_date BETWEEN ? AND ?", userID, db.CivilDay(start), db.CivilDay(end)).
		Order("log_date ASC, id ASC").
		Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("list nutrition entries in range: %w", err)
	}
	return entries, nil
}

// Delete 删除饮食记录
func (s *NutritionService) Delete(userID, id uint) error {
	result := s.db.Where("id = ? AND user_id = ?", id, userID).Delete(&db.Nutrition{})
	if result.Error != nil {
		return fmt.Errorf("delete nutrition entry: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNutritionNotFound
	}
	return nil
}
