package handler

import (
	"errors"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/lifelens/internal/db"
	"github.com/lifelens/internal/logger"
	"github.com/lifelens/internal/service"
)

const (
	sessionUserIDKey   = "user_id"
	sessionUsernameKey = "username"
	contextUserIDKey   = "__user_id"
)

type signupPayload struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Confirm  string `json:"confirm_password"`
}

type loginPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Signup 注册新用户并直接登录
func (a *API) Signup(c *gin.Context) {
	var payload signupPayload
	if isJSONRequest(c) {
		if !bindJSON(c, &payload, "请求参数不合法") {
			return
		}
	} else {
		payload.Name = c.PostForm("name")
		payload.Username = c.PostForm("username")
		payload.Email = c.PostForm("email")
		payload.Password = c.PostForm("password")
		payload.Confirm = c.PostForm("confirm_password")
	}

	user, err := a.users.Register(service.SignupInput{
		Name:     payload.Name,
		Username: payload.Username,
		Email:    payload.Email,
		Password: payload.Password,
		Confirm:  payload.Confirm,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUsernameTaken):
			respondError(c, http.StatusConflict, "用户名已存在")
		case errors.Is(err, service.ErrEmailTaken):
			respondError(c, http.StatusConflict, "邮箱已被注册")
		default:
			respondServiceError(c, err, "用户不存在", "注册失败")
		}
		return
	}

	if !saveSession(c, user) {
		return
	}

	logger.Info("user signed up", "user_id", user.ID, "username", user.Username)
	c.JSON(http.StatusCreated, gin.H{"user": userToPayload(*user)})
}

// Login 校验用户名密码并写入会话
func (a *API) Login(c *gin.Context) {
	var payload loginPayload
	if isJSONRequest(c) {
		if !bindJSON(c, &payload, "请求参数不合法") {
			return
		}
	} else {
		payload.Username = c.PostForm("username")
		payload.Password = c.PostForm("password")
	}

	user, err := a.users.Authenticate(payload.Username, payload.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			respondError(c, http.StatusUnauthorized, "用户名或密码错误")
			return
		}
		respondServiceError(c, err, "用户不存在", "登录失败")
		return
	}

	if !saveSession(c, user) {
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": userToPayload(*user)})
}

// Logout 处理用户登出
func (a *API) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	if err := session.Save(); err != nil {
		respondError(c, http.StatusInternalServerError, "会话保存失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "已退出登录"})
}

// Me 返回当前登录用户
func (a *API) Me(c *gin.Context) {
	user, err := a.users.Get(currentUserID(c))
	if err != nil {
		respondServiceError(c, err, "用户不存在", "获取用户信息失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": userToPayload(*user)})
}

// AuthRequired 要求请求携带有效会话，并将用户 ID 写入上下文
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		userID, ok := session.Get(sessionUserIDKey).(uint)
		if !ok || userID == 0 {
			respondError(c, http.StatusUnauthorized, "请先登录")
			c.Abort()
			return
		}
		c.Set(contextUserIDKey, userID)
		c.Next()
	}
}

// AdminRequired 仅允许管理员访问，需在 AuthRequired 之后使用
func (a *API) AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := a.users.Get(currentUserID(c))
		if err != nil || !user.IsAdmin {
			respondError(c, http.StatusForbidden, "需要管理员权限")
			c.Abort()
			return
		}
		c.Next()
	}
}

func currentUserID(c *gin.Context) uint {
	return c.GetUint(contextUserIDKey)
}

func saveSession(c *gin.Context, user *db.User) bool {
	session := sessions.Default(c)
	session.Set(sessionUserIDKey, user.ID)
	session.Set(sessionUsernameKey, user.Username)
	if err := session.Save(); err != nil {
		respondError(c, http.StatusInternalServerError, "会话保存失败")
		return false
	}
	return true
}

func userToPayload(user db.User) gin.H {
	item := gin.H{
		"id":         user.ID,
		"name":       user.Name,
		"username":   user.Username,
		"is_admin":   user.IsAdmin,
		"created_at": user.CreatedAt,
	}
	if user.Email != nil {
		item["email"] = *user.Email
	}
	return item
}
