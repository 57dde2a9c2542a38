package service

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/lifelens/internal/db"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:service-%d?mode=memory&cache=shared", time.Now().UnixNano())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	t.Cleanup(func() {
		sqlDB, err := gdb.DB()
		if err == nil {
			sqlDB.Close()
		}
	})

	return gdb
}

// setupFileServiceTestDB 使用临时目录中的数据库文件，连接池中的多个连接可以真正并发写入
func setupFileServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "lifelens.db")
	gdb, err := gorm.Open(sqlite.Open(db.DSN(path)), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return gdb
}

// saveSettings 以完整覆盖的方式保存设置
func saveSettings(t *testing.T, svc *SystemSettingService, input SystemSettingsInput) SystemSettings {
	t.Helper()
	saved, err := svc.PatchSettings(SystemSettingsPatch{
		AIProvider:           &input.AIProvider,
		OpenAIAPIKey:         &input.OpenAIAPIKey,
		DeepSeekAPIKey:       &input.DeepSeekAPIKey,
		RecommendationPrompt: &input.RecommendationPrompt,
	})
	if err != nil {
		t.Fatalf("failed to save settings: %v", err)
	}
	return saved
}

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

func mustCreateHabit(t *testing.T, svc *HabitService, userID uint, name string) *db.Habit {
	t.Helper()
	habit, err := svc.Create(userID, HabitInput{Name: name, Frequency: "daily", TargetCount: 1})
	if err != nil {
		t.Fatalf("failed to create habit %s: %v", name, err)
	}
	return habit
}

func seedHabitLog(t *testing.T, gdb *gorm.DB, habit *db.Habit, date time.Time, completed bool) {
	t.Helper()
	count := 0
	if completed {
		count = 1
	}
	record := db.HabitLog{
		HabitID:        habit.ID,
		UserID:         habit.UserID,
		LogDate:        db.CivilDay(date),
		CompletedCount: count,
		IsCompleted:    completed,
	}
	if err := gdb.Create(&record).Error; err != nil {
		t.Fatalf("failed to seed habit log: %v", err)
	}
}
