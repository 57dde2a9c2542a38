package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lifelens/internal/service"
)

// HealthCheck 检查数据库连接，供部署平台探活
func (a *API) HealthCheck(c *gin.Context) {
	status, database := http.StatusOK, "up"

	sqlDB, err := a.db.DB()
	switch {
	case err != nil:
		status, database = http.StatusInternalServerError, "unavailable"
	case sqlDB.PingContext(c.Request.Context()) != nil:
		status, database = http.StatusServiceUnavailable, "unreachable"
	}

	body := gin.H{
		"status":     "ok",
		"database":   database,
		"checked_at": a.clock().UTC().Format(time.RFC3339),
	}
	if status != http.StatusOK {
		body["status"] = "error"
	}
	c.JSON(status, body)
}

// settingsPatchRequest 中省略的字段保持原值；密钥原样回传掩码时同样视为未修改
type settingsPatchRequest struct {
	AIProvider           *string `json:"aiProvider"`
	OpenAIAPIKey         *string `json:"openaiApiKey"`
	DeepSeekAPIKey       *string `json:"deepseekApiKey"`
	RecommendationPrompt *string `json:"recommendationPrompt"`
}

type aiTestRequest struct {
	Provider string `json:"provider"`
	APIKey   string `json:"apiKey"`
}

// GetSystemSettings 返回当前设置，API Key 只返回掩码
func (a *API) GetSystemSettings(c *gin.Context) {
	settings, err := a.system.GetSettings()
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取系统设置失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"settings": settingsView(settings)})
}

// UpdateSystemSettings 部分更新系统设置
func (a *API) UpdateSystemSettings(c *gin.Context) {
	var req settingsPatchRequest
	if !bindJSON(c, &req, "请填写完整的系统设置") {
		return
	}

	current, err := a.system.GetSettings()
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取系统设置失败")
		return
	}

	patch := service.SystemSettingsPatch{
		AIProvider:           req.AIProvider,
		OpenAIAPIKey:         unlessMasked(req.OpenAIAPIKey, current.OpenAIAPIKey),
		DeepSeekAPIKey:       unlessMasked(req.DeepSeekAPIKey, current.DeepSeekAPIKey),
		RecommendationPrompt: req.RecommendationPrompt,
	}
	settings, err := a.system.PatchSettings(patch)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "保存系统设置失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "系统设置已保存",
		"settings": settingsView(settings),
	})
}

// TestAIConnection 验证 API Key，未提交时使用该平台已保存的 Key
func (a *API) TestAIConnection(c *gin.Context) {
	var req aiTestRequest
	if !bindJSON(c, &req, "请填写有效的 AI 配置信息") {
		return
	}

	provider := strings.TrimSpace(req.Provider)
	key := strings.TrimSpace(req.APIKey)
	if key == "" {
		current, err := a.system.GetSettings()
		if err != nil {
			respondError(c, http.StatusInternalServerError, "获取系统设置失败")
			return
		}
		if provider == "" {
			provider = current.AIProvider
		}
		key = current.APIKeyFor(provider)
	}

	err := a.system.TestAIConnection(c.Request.Context(), provider, key)
	switch {
	case errors.Is(err, service.ErrAIAPIKeyMissing):
		respondError(c, http.StatusBadRequest, "请填写有效的 AI API Key")
	case err != nil:
		respondError(c, http.StatusBadGateway, err.Error())
	default:
		c.JSON(http.StatusOK, gin.H{"message": "AI 接口连接正常", "provider": provider})
	}
}

func settingsView(settings service.SystemSettings) gin.H {
	return gin.H{
		"aiProvider":           settings.AIProvider,
		"openaiApiKey":         maskAPIKey(settings.OpenAIAPIKey),
		"openaiApiKeySet":      settings.OpenAIAPIKey != "",
		"deepseekApiKey":       maskAPIKey(settings.DeepSeekAPIKey),
		"deepseekApiKeySet":    settings.DeepSeekAPIKey != "",
		"recommendationPrompt": settings.RecommendationPrompt,
	}
}

// maskAPIKey 保留前 3 位与后 4 位，过短的 Key 全部遮盖
func maskAPIKey(key string) string {
	key = strings.TrimSpace(key)
	switch {
	case key == "":
		return ""
	case len(key) <= 8:
		return "****"
	default:
		return key[:3] + "****" + key[len(key)-4:]
	}
}

func unlessMasked(submitted *string, current string) *string {
	if submitted == nil || current == "" {
		return submitted
	}
	if strings.TrimSpace(*submitted) == maskAPIKey(current) {
		return nil
	}
	return submitted
}
