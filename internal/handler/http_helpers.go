package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lifelens/internal/db"
	"github.com/lifelens/internal/logger"
	"github.com/lifelens/internal/service"
)

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}

func bindJSON(c *gin.Context, dst interface{}, message string) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, http.StatusBadRequest, message)
		return false
	}
	return true
}

func isJSONRequest(c *gin.Context) bool {
	return strings.Contains(c.GetHeader("Content-Type"), "application/json")
}

func parseUintParam(c *gin.Context, key string) (uint, error) {
	raw := c.Param(key)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return uint(id), nil
}

// formInt 读取表单中的整数字段，空值视为 0
func formInt(c *gin.Context, key string) (int, error) {
	raw := strings.TrimSpace(c.PostForm(key))
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number", key)
	}
	return value, nil
}

// parseDay 解析 YYYY-MM-DD，空字符串返回 fallback
func parseDay(value string, fallback time.Time) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback, nil
	}
	return db.ParseDay(value)
}

// dayQuery 读取 ?date=，非法时直接返回 400
func (a *API) dayQuery(c *gin.Context) (time.Time, bool) {
	day, err := parseDay(c.Query("date"), a.today())
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的日期")
		return time.Time{}, false
	}
	return day, true
}

// respondServiceError 将服务层错误映射为 HTTP 状态码
func respondServiceError(c *gin.Context, err error, notFoundMessage, failureMessage string) {
	var validation *service.ValidationError
	switch {
	case errors.As(err, &validation):
		respondError(c, http.StatusBadRequest, validation.Error())
	case errors.Is(err, service.ErrNotFound):
		respondError(c, http.StatusNotFound, notFoundMessage)
	default:
		logger.Error(failureMessage, "path", c.FullPath(), "err", err)
		respondError(c, http.StatusInternalServerError, failureMessage)
	}
}
