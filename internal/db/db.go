package db

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB 是一个全局的数据库连接实例
var DB *gorm.DB

// DateLayout 是 API 与存储层共用的日历日格式。
const DateLayout = "2006-01-02"

// Init 初始化数据库连接并执行自动迁移。
// databasePath 为空时将回退到默认值 lifelens.db。
func Init(databasePath string) error {
	path := strings.TrimSpace(databasePath)
	if path == "" {
		path = "lifelens.db"
	}

	if err := ensureParentDir(path); err != nil {
		return err
	}

	var err error
	DB, err = gorm.Open(sqlite.Open(DSN(path)), &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)})
	if err != nil {
		return err
	}

	return Migrate(DB)
}

// Models 返回需要自动迁移的全部模型，测试中同样使用该列表建表。
func Models() []interface{} {
	return []interface{}{
		&User{},
		&Habit{},
		&HabitLog{},
		&Activity{},
		&Mood{},
		&Nutrition{},
		&SystemSetting{},
		&Recommendation{},
	}
}

// sqliteWriteOptions 让写事务在 BEGIN 时即取得写锁，并发请求排队等待而不是立即返回 database is locked
const sqliteWriteOptions = "_busy_timeout=5000&_txlock=immediate"

// DSN 为数据库文件路径追加并发写入所需的连接参数
func DSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + sqliteWriteOptions
}

// Migrate 为核心模型创建或更新表结构
func Migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(Models()...)
}

// CivilDay 将任意时间截断为当天零点（UTC），作为唯一的日历日表示。
// 只取年月日，不做任何时区换算。
func CivilDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDay 解析 YYYY-MM-DD 格式的日期。
func ParseDay(value string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, err
	}
	return CivilDay(t), nil
}

func ensureParentDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}

	info, err := os.Stat(dir)
	if err == nil {
		if !info.IsDir() {
			return errors.New("database path parent is not a directory")
		}
		return nil
	}

	if os.IsNotExist(err) {
		return os.MkdirAll(dir, 0o755)
	}

	return err
}
