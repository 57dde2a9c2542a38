package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/lifelens/internal/db"
	"gorm.io/gorm"
)

// Context 是所有子命令共享的运行环境
type Context struct {
	DB  *gorm.DB
	Out io.Writer
	// Now 为空时使用 time.Now
	Now func() time.Time
}

func (c *Context) today() time.Time {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	return db.CivilDay(now())
}

// resolveDay 解析 --date，空值为今天
func (c *Context) resolveDay(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return c.today(), nil
	}
	day, err := db.ParseDay(value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", value)
	}
	return day, nil
}

func (c *Context) printJSON(v any) error {
	encoder := json.NewEncoder(c.Out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func findUser(gdb *gorm.DB, username string) (*db.User, error) {
	name := strings.TrimSpace(username)
	if name == "" {
		return nil, errors.New("username is required")
	}

	var user db.User
	if err := gdb.Where("username = ?", name).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user %s not found", name)
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	return &user, nil
}
