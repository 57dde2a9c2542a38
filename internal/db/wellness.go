package db

import (
	"time"

	"gorm.io/gorm"
)

// Activity 记录一次运动/活动
type Activity struct {
	gorm.Model
	UserID    uint      `gorm:"not null;index:idx_activity_user_date"`
	Title     string    `gorm:"size:100;not null"`
	Category  string    `gorm:"size:50;not null"`
	Duration  int       `gorm:"not null"` // 分钟
	Calories  int       `gorm:"not null"`
	Intensity string    `gorm:"size:20;not null"`
	Notes     string    `gorm:"type:text"`
	LogDate   time.Time `gorm:"not null;index:idx_activity_user_date"`
}

// Mood 记录某一天的情绪，每个用户每天至多一条
type Mood struct {
	ID          uint      `gorm:"primarykey"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
	UserID      uint      `gorm:"not null;index:idx_mood_user_date,unique"`
	LogDate     time.Time `gorm:"not null;index:idx_mood_user_date,unique"`
	MoodType    string    `gorm:"size:50;not null"`
	MoodScore   int       `gorm:"not null"`
	EnergyScore int       `gorm:"not null"`
	StressScore int       `gorm:"not null"`
	Notes       string    `gorm:"type:text"`
}

// Nutrition 记录一次饮食摄入，同一天可有多条并在统计时求和
type Nutrition struct {
	gorm.Model
	UserID   uint      `gorm:"not null;index:idx_nutrition_user_date"`
	MealType string    `gorm:"size:30"`
	Calories int       `gorm:"not null"`
	Protein  int       `gorm:"not null"`
	Carbs    int       `gorm:"not null"`
	Fat      int       `gorm:"not null"`
	Water    int       `gorm:"not null"` // 杯
	Notes    string    `gorm:"type:text"`
	LogDate  time.Time `gorm:"not null;index:idx_nutrition_user_date"`
}

// TableName 保持复数表名与其它表一致
func (Nutrition) TableName() string {
	return "nutrition_entries"
}
