package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultAIRequestTimeout = 180 * time.Second
	maxAIResponseBytes      = 1 << 20
)

// aiProviderSpec 为各平台的内置默认值
type aiProviderSpec struct {
	label   string
	baseURL string
	model   string
}

var aiProviderSpecs = map[string]aiProviderSpec{
	AIProviderOpenAI:   {label: "OpenAI", baseURL: "https://api.openai.com/v1", model: "gpt-4o-mini"},
	AIProviderDeepSeek: {label: "DeepSeek", baseURL: "https://api.deepseek.com/v1", model: "deepseek-chat"},
}

// lookupAIProvider 规范化平台名称，未知平台按 OpenAI 处理
func lookupAIProvider(provider string) (string, aiProviderSpec) {
	name := normalizeAIProvider(provider)
	if name == "" {
		name = AIProviderOpenAI
	}
	return name, aiProviderSpecs[name]
}

// AIModels 指定各平台使用的模型，留空时使用内置默认值
type AIModels struct {
	OpenAI   string
	DeepSeek string
}

func (m AIModels) forProvider(provider string) string {
	if provider == AIProviderDeepSeek {
		return strings.TrimSpace(m.DeepSeek)
	}
	return strings.TrimSpace(m.OpenAI)
}

// TokenUsage 为一次调用消耗的 token 数
type TokenUsage struct {
	Prompt     int `json:"prompt"`
	Completion int `json:"completion"`
}

// Total 返回总消耗
func (u TokenUsage) Total() int {
	return u.Prompt + u.Completion
}

// ChatRequest 是一次对话补全请求
type ChatRequest struct {
	SystemPrompt string
	UserPrompt   string
	MaxTokens    int
	Temperature  float64
}

// ChatResponse 是模型返回的内容、实际使用的平台与模型以及 token 用量
type ChatResponse struct {
	Content  string
	Provider string
	Model    string
	Usage    TokenUsage
}

// ChatCompleter 抽象大模型调用，业务层通过构造函数注入，测试中可替换为假实现。
type ChatCompleter interface {
	Complete(ctx context.Context, req ChatRequest) (ChatResponse, error)
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
}

type chatCompletionResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// chatTarget 是根据当前设置解析出的一次调用目标
type chatTarget struct {
	provider string
	label    string
	endpoint string
	apiKey   string
	model    string
}

// AIChatClient 按系统设置中的平台与 API Key 调用 OpenAI 兼容的 chat/completions 接口。
// 平台与密钥每次调用时重新读取，后台修改设置后无需重启。
type AIChatClient struct {
	settings *SystemSettingService
	http     httpDoer
	models   AIModels
	baseURLs map[string]string
}

// NewAIChatClient 构造 AIChatClient
func NewAIChatClient(settings *SystemSettingService, models AIModels) *AIChatClient {
	return &AIChatClient{
		settings: settings,
		http:     &http.Client{Timeout: defaultAIRequestTimeout},
		models:   models,
		baseURLs: make(map[string]string),
	}
}

// SetHTTPClient 覆盖默认 HTTP 客户端，传入 nil 时恢复默认超时。
func (c *AIChatClient) SetHTTPClient(client httpDoer) {
	if client == nil {
		c.http = &http.Client{Timeout: defaultAIRequestTimeout}
		return
	}
	c.http = client
}

// SetBaseURL 覆盖某个平台的接口地址，传入空字符串恢复默认地址
func (c *AIChatClient) SetBaseURL(provider, base string) {
	name, _ := lookupAIProvider(provider)
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if base == "" {
		delete(c.baseURLs, name)
		return
	}
	c.baseURLs[name] = base
}

// Complete 读取当前系统设置后发起调用，未配置 API Key 时返回 ErrAIAPIKeyMissing。
func (c *AIChatClient) Complete(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	if c.settings == nil {
		return ChatResponse{}, ErrAIAPIKeyMissing
	}
	settings, err := c.settings.GetSettings()
	if err != nil {
		return ChatResponse{}, fmt.Errorf("读取系统设置失败: %w", err)
	}

	target, err := c.resolve(settings)
	if err != nil {
		return ChatResponse{}, err
	}

	httpReq, err := target.newRequest(ctx, req)
	if err != nil {
		return ChatResponse{}, err
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return ChatResponse{}, fmt.Errorf("请求 %s 接口失败: %w", target.label, err)
	}
	defer resp.Body.Close()

	completion, err := decodeChatCompletion(target.label, resp)
	if err != nil {
		return ChatResponse{}, err
	}

	model := strings.TrimSpace(completion.Model)
	if model == "" {
		model = target.model
	}
	return ChatResponse{
		Content:  strings.TrimSpace(completion.Choices[0].Message.Content),
		Provider: target.provider,
		Model:    model,
		Usage: TokenUsage{
			Prompt:     completion.Usage.PromptTokens,
			Completion: completion.Usage.CompletionTokens,
		},
	}, nil
}

func (c *AIChatClient) resolve(settings SystemSettings) (chatTarget, error) {
	provider, spec := lookupAIProvider(settings.AIProvider)

	apiKey := settings.APIKeyFor(provider)
	if apiKey == "" {
		return chatTarget{}, ErrAIAPIKeyMissing
	}

	base := c.baseURLs[provider]
	if base == "" {
		base = spec.baseURL
	}
	model := c.models.forProvider(provider)
	if model == "" {
		model = spec.model
	}

	return chatTarget{
		provider: provider,
		label:    spec.label,
		endpoint: base + "/chat/completions",
		apiKey:   apiKey,
		model:    model,
	}, nil
}

func (t chatTarget) newRequest(ctx context.Context, req ChatRequest) (*http.Request, error) {
	body, err := json.Marshal(chatCompletionRequest{
		Model: t.model,
		Messages: []chatMessage{
			{Role: "system", Content: strings.TrimSpace(req.SystemPrompt)},
			{Role: "user", Content: req.UserPrompt},
		},
		MaxTokens:   max(req.MaxTokens, 0),
		Temperature: req.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("构造请求失败: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("创建 %s 请求失败: %w", t.label, err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+t.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", "lifelens-ai/1.0")
	return httpReq, nil
}

// decodeChatCompletion 先判断状态码，错误响应即使不是 JSON 也能给出可读信息
func decodeChatCompletion(label string, resp *http.Response) (chatCompletionResponse, error) {
	var completion chatCompletionResponse

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxAIResponseBytes))
	if err != nil {
		return completion, fmt.Errorf("读取 %s 响应失败: %w", label, err)
	}
	decodeErr := json.Unmarshal(raw, &completion)

	if resp.StatusCode >= http.StatusBadRequest {
		msg := strings.TrimSpace(completion.Error.Message)
		if decodeErr != nil || msg == "" {
			msg = truncateRunes(strings.TrimSpace(string(raw)), 200, "…")
		}
		if msg == "" {
			msg = resp.Status
		}
		return completion, fmt.Errorf("%s 接口返回错误：%s", label, msg)
	}
	if decodeErr != nil {
		return completion, fmt.Errorf("解析 %s 响应失败: %w", label, decodeErr)
	}
	if len(completion.Choices) == 0 {
		return completion, fmt.Errorf("%s 接口未返回结果", label)
	}
	return completion, nil
}
