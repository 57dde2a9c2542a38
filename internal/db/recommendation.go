package db

import (
	"time"

	"gorm.io/datatypes"
)

// Recommendation 缓存某用户某天生成的建议，Snapshot 保存生成时使用的周度快照
type Recommendation struct {
	ID        uint      `gorm:"primarykey"`
	CreatedAt time.Time
	UpdatedAt time.Time
	UserID    uint           `gorm:"not null;index:idx_recommendation_user_date,unique"`
	ForDate   time.Time      `gorm:"not null;index:idx_recommendation_user_date,unique"`
	Source    string         `gorm:"size:20;not null"`
	Content   string         `gorm:"type:text"`
	HTML      string         `gorm:"type:text"`
	Snapshot  datatypes.JSON `gorm:"type:json"`
}
