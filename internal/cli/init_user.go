package cli

import (
	"fmt"

	"github.com/lifelens/internal/db"
	"github.com/lifelens/internal/service"
)

// InitUserCmd 创建账号，用户名已存在时直接跳过
type InitUserCmd struct {
	Username string `help:"Login name." default:"admin"`
	Password string `help:"Login password." default:"admin123"`
	Name     string `help:"Display name."`
	Email    string `help:"Optional email address."`
	Admin    bool   `help:"Grant admin privileges." default:"true" negatable:""`
}

func (c *InitUserCmd) Run(ctx *Context) error {
	if existing, err := findUser(ctx.DB, c.Username); err == nil {
		fmt.Fprintf(ctx.Out, "用户 %s 已存在，无需初始化\n", existing.Username)
		return nil
	}

	user, err := service.NewUserService(ctx.DB).Register(service.SignupInput{
		Name:     c.Name,
		Username: c.Username,
		Email:    c.Email,
		Password: c.Password,
		Confirm:  c.Password,
	})
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}

	if c.Admin {
		if err := ctx.DB.Model(&db.User{}).Where("id = ?", user.ID).Update("is_admin", true).Error; err != nil {
			return fmt.Errorf("grant admin: %w", err)
		}
	}

	fmt.Fprintf(ctx.Out, "用户创建成功\n用户名: %s\n管理员: %t\n", user.Username, c.Admin)
	return nil
}
