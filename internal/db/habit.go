package db

import (
	"time"

	"gorm.io/gorm"
)

// Habit 定义了习惯模型
// Frequency 取值 daily/weekly/monthly，TargetCount 为每个周期的目标次数
// TypeTag 用于区分习惯类别，便于统计/筛选
type Habit struct {
	gorm.Model
	UserID      uint   `gorm:"index;not null"`
	Name        string `gorm:"size:100;not null"`
	Description string
	Frequency   string `gorm:"size:20;not null"`
	TargetCount int    `gorm:"not null"`
	TypeTag     string `gorm:"size:50"`
}

// HabitLog 记录习惯的单日完成情况
// Habit + LogDate 采用唯一索引，同一天只会存在一条记录；不做软删除，避免唯一索引被已删除行占用
// 缺失记录等价于“当天未完成”
type HabitLog struct {
	ID             uint      `gorm:"primarykey"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
	HabitID        uint      `gorm:"not null;index:idx_habit_log_unique,unique"`
	Habit          Habit     `gorm:"constraint:OnDelete:CASCADE"`
	UserID         uint      `gorm:"not null;index:idx_habit_log_user_date"`
	LogDate        time.Time `gorm:"not null;index:idx_habit_log_unique,unique;index:idx_habit_log_user_date"`
	CompletedCount int       `gorm:"not null"`
	IsCompleted    bool      `gorm:"not null"`
	Note           string
}

// TableName 重写确保唯一索引作用到 habit_id + log_date
func (HabitLog) TableName() string {
	return "habit_logs"
}
