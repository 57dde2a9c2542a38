package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/lifelens/internal/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	// AIProviderOpenAI 表示使用 OpenAI 能力。
	AIProviderOpenAI = "openai"
	// AIProviderDeepSeek 表示使用 DeepSeek 能力。
	AIProviderDeepSeek = "deepseek"
)

var supportedAIProviders = []string{AIProviderOpenAI, AIProviderDeepSeek}

// SystemSettings 描述后台可配置的 AI 设置。
type SystemSettings struct {
	AIProvider           string
	OpenAIAPIKey         string
	DeepSeekAPIKey       string
	RecommendationPrompt string
}

// APIKeyFor 返回指定平台保存的 API Key，未知平台按 OpenAI 处理
func (s SystemSettings) APIKeyFor(provider string) string {
	if name, _ := lookupAIProvider(provider); name == AIProviderDeepSeek {
		return strings.TrimSpace(s.DeepSeekAPIKey)
	}
	return strings.TrimSpace(s.OpenAIAPIKey)
}

// SystemSettingsPatch 描述部分更新，nil 字段保持原值
type SystemSettingsPatch struct {
	AIProvider           *string
	OpenAIAPIKey         *string
	DeepSeekAPIKey       *string
	RecommendationPrompt *string
}

// ErrAIAPIKeyMissing 表示未提供必需的 AI 平台 API Key。
var ErrAIAPIKeyMissing = errors.New("api key is required")

// SystemSettingsInput 用于更新系统设置。
type SystemSettingsInput struct {
	AIProvider           string
	OpenAIAPIKey         string
	DeepSeekAPIKey       string
	RecommendationPrompt string
}

// SystemSettingService 提供系统设置的读取与更新能力。
type SystemSettingService struct {
	db         *gorm.DB
	httpClient httpDoer
	baseURLs   map[string]string
}

// NewSystemSettingService 构造 SystemSettingService。
func NewSystemSettingService(gdb *gorm.DB) *SystemSettingService {
	return &SystemSettingService{
		db:         gdb,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURLs:   make(map[string]string),
	}
}

type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

var settingKeys = []string{
	db.SettingKeyAIProvider,
	db.SettingKeyOpenAIAPIKey,
	db.SettingKeyDeepSeekAPIKey,
	db.SettingKeyRecommendationPrompt,
}

// GetSettings 读取系统设置，如未设置将返回默认值。
func (s *SystemSettingService) GetSettings() (SystemSettings, error) {
	result := SystemSettings{AIProvider: AIProviderOpenAI, RecommendationPrompt: defaultRecommendationSystemPrompt}

	var records []db.SystemSetting
	if err := s.db.Where("key IN ?", settingKeys).Find(&records).Error; err != nil {
		return result, fmt.Errorf("load system settings: %w", err)
	}

	for _, record := range records {
		switch record.Key {
		case db.SettingKeyAIProvider:
			if provider := normalizeAIProvider(record.Value); provider != "" {
				result.AIProvider = provider
			}
		case db.SettingKeyOpenAIAPIKey:
			result.OpenAIAPIKey = record.Value
		case db.SettingKeyDeepSeekAPIKey:
			result.DeepSeekAPIKey = record.Value
		case db.SettingKeyRecommendationPrompt:
			if strings.TrimSpace(record.Value) != "" {
				result.RecommendationPrompt = record.Value
			}
		}
	}

	return result, nil
}

// PatchSettings 只写入 patch 中给出的字段，返回更新后的完整设置。
func (s *SystemSettingService) PatchSettings(patch SystemSettingsPatch) (SystemSettings, error) {
	values := make(map[string]string)
	if patch.AIProvider != nil {
		provider, _ := lookupAIProvider(*patch.AIProvider)
		values[db.SettingKeyAIProvider] = provider
	}
	if patch.OpenAIAPIKey != nil {
		values[db.SettingKeyOpenAIAPIKey] = strings.TrimSpace(*patch.OpenAIAPIKey)
	}
	if patch.DeepSeekAPIKey != nil {
		values[db.SettingKeyDeepSeekAPIKey] = strings.TrimSpace(*patch.DeepSeekAPIKey)
	}
	if patch.RecommendationPrompt != nil {
		values[db.SettingKeyRecommendationPrompt] = strings.TrimSpace(*patch.RecommendationPrompt)
	}

	if len(values) > 0 {
		if err := s.db.Transaction(func(tx *gorm.DB) error {
			for key, value := range values {
				if err := upsertSetting(tx, key, value); err != nil {
					return err
				}
			}
			return nil
		}); err != nil {
			return SystemSettings{}, fmt.Errorf("patch system settings: %w", err)
		}
	}
	return s.GetSettings()
}

// SeedSettings 仅为尚未保存过的键写入初始值，用于从环境变量引导配置；空值会被忽略。
func (s *SystemSettingService) SeedSettings(input SystemSettingsInput) error {
	sanitized := sanitizeSettingsInput(input)
	if strings.TrimSpace(input.AIProvider) == "" {
		sanitized.AIProvider = ""
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		for key, value := range settingValues(sanitized) {
			if value == "" {
				continue
			}
			setting := db.SystemSetting{Key: key, Value: value}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "key"}},
				DoNothing: true,
			}).Create(&setting).Error; err != nil {
				return fmt.Errorf("seed setting %s: %w", key, err)
			}
		}
		return nil
	})
}

func sanitizeSettingsInput(input SystemSettingsInput) SystemSettings {
	provider := normalizeAIProvider(input.AIProvider)
	if provider == "" {
		provider = AIProviderOpenAI
	}

	return SystemSettings{
		AIProvider:           provider,
		OpenAIAPIKey:         strings.TrimSpace(input.OpenAIAPIKey),
		DeepSeekAPIKey:       strings.TrimSpace(input.DeepSeekAPIKey),
		RecommendationPrompt: strings.TrimSpace(input.RecommendationPrompt),
	}
}

func settingValues(settings SystemSettings) map[string]string {
	return map[string]string{
		db.SettingKeyAIProvider:           settings.AIProvider,
		db.SettingKeyOpenAIAPIKey:         settings.OpenAIAPIKey,
		db.SettingKeyDeepSeekAPIKey:       settings.DeepSeekAPIKey,
		db.SettingKeyRecommendationPrompt: settings.RecommendationPrompt,
	}
}

func upsertSetting(tx *gorm.DB, key, value string) error {
	setting := db.SystemSetting{Key: key, Value: value}
	if err := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "key"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"value":      value,
			"updated_at": gorm.Expr("CURRENT_TIMESTAMP"),
		}),
	}).Create(&setting).Error; err != nil {
		return fmt.Errorf("upsert setting %s: %w", key, err)
	}
	return nil
}

// SetHTTPClient 替换用于访问第三方服务的 HTTP 客户端，主要面向测试场景。
func (s *SystemSettingService) SetHTTPClient(client httpDoer) {
	if client == nil {
		s.httpClient = &http.Client{Timeout: 10 * time.Second}
		return
	}
	s.httpClient = client
}

// SetBaseURL 覆盖连通性测试使用的平台地址，传入空字符串恢复默认地址。
func (s *SystemSettingService) SetBaseURL(provider, base string) {
	name, _ := lookupAIProvider(provider)
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if base == "" {
		delete(s.baseURLs, name)
		return
	}
	s.baseURLs[name] = base
}

// TestAIConnection 请求平台的模型列表接口验证 API Key 是否可用。
func (s *SystemSettingService) TestAIConnection(ctx context.Context, provider, apiKey string) error {
	key := strings.TrimSpace(apiKey)
	if key == "" {
		return ErrAIAPIKeyMissing
	}

	name, spec := lookupAIProvider(provider)
	base := s.baseURLs[name]
	if base == "" {
		base = spec.baseURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/models", nil)
	if err != nil {
		return fmt.Errorf("build %s request: %w", name, err)
	}
	req.Header.Set("Authorization", "Bearer "+key)
	req.Header.Set("User-Agent", "lifelens-admin/1.0")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("请求 %s 接口失败: %w", spec.label, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusBadRequest {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	if msg := strings.TrimSpace(string(body)); msg != "" {
		return fmt.Errorf("%s 返回错误：%s (%s)", spec.label, resp.Status, msg)
	}
	return fmt.Errorf("%s 返回错误：%s", spec.label, resp.Status)
}

func normalizeAIProvider(provider string) string {
	trimmed := strings.ToLower(strings.TrimSpace(provider))
	for _, candidate := range supportedAIProviders {
		if trimmed == candidate {
			return candidate
		}
	}
	return ""
}
