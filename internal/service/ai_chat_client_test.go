package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"
)

type fakeHTTPClient struct {
	handler func(*http.Request) (*http.Response, error)
}

func (f fakeHTTPClient) Do(req *http.Request) (*http.Response, error) {
	if f.handler == nil {
		return nil, errors.New("no handler configured")
	}
	return f.handler(req)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Status:     http.StatusText(status),
		Body:       io.NopCloser(bytes.NewBufferString(body)),
		Header:     make(http.Header),
	}
}

func TestAIChatClientUsesExtendedTimeout(t *testing.T) {
	t.Parallel()

	client := NewAIChatClient(nil, AIModels{})

	httpClient, ok := client.http.(*http.Client)
	if !ok {
		t.Fatalf("expected *http.Client, got %T", client.http)
	}
	if httpClient.Timeout < 2*time.Minute {
		t.Fatalf("default timeout should be at least 2m, got %v", httpClient.Timeout)
	}

	client.SetHTTPClient(fakeHTTPClient{})
	client.SetHTTPClient(nil)
	if _, ok := client.http.(*http.Client); !ok {
		t.Fatalf("expected *http.Client after reset, got %T", client.http)
	}
}

func TestAIChatClientCompleteWithDeepSeek(t *testing.T) {
	gdb := setupServiceTestDB(t)
	settings := NewSystemSettingService(gdb)
	saveSettings(t, settings, SystemSettingsInput{AIProvider: "DeepSeek", DeepSeekAPIKey: "ds-test"})

	client := NewAIChatClient(settings, AIModels{OpenAI: "gpt-4o"})
	client.SetBaseURL(AIProviderDeepSeek, "https://deepseek.test/v1/")
	client.SetHTTPClient(fakeHTTPClient{handler: func(r *http.Request) (*http.Response, error) {
		if r.Method != http.MethodPost {
			t.Fatalf("expected POST, got %s", r.Method)
		}
		if r.URL.String() != "https://deepseek.test/v1/chat/completions" {
			t.Fatalf("unexpected url %s", r.URL.String())
		}
		if got := r.Header.Get("Authorization"); got != "Bearer ds-test" {
			t.Fatalf("unexpected authorization header %s", got)
		}

		var payload chatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		// 未配置 DeepSeek 模型时使用内置默认值
		if payload.Model != "deepseek-chat" {
			t.Fatalf("unexpected model %s", payload.Model)
		}
		if len(payload.Messages) != 2 || payload.Messages[0].Role != "system" || payload.Messages[1].Content != "本周数据" {
			t.Fatalf("unexpected messages %#v", payload.Messages)
		}

		return jsonResponse(http.StatusOK, `{"choices":[{"message":{"role":"assistant","content":"  多散步  "}}],"usage":{"prompt_tokens":12,"completion_tokens":5}}`), nil
	}})

	resp, err := client.Complete(context.Background(), ChatRequest{SystemPrompt: "教练", UserPrompt: "本周数据", MaxTokens: 100})
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if resp.Content != "多散步" {
		t.Fatalf("unexpected content %q", resp.Content)
	}
	if resp.Provider != AIProviderDeepSeek || resp.Model != "deepseek-chat" {
		t.Fatalf("unexpected provider/model %s/%s", resp.Provider, resp.Model)
	}
	if resp.Usage != (TokenUsage{Prompt: 12, Completion: 5}) || resp.Usage.Total() != 17 {
		t.Fatalf("unexpected usage %+v", resp.Usage)
	}
}

func TestAIChatClientUsesConfiguredModel(t *testing.T) {
	gdb := setupServiceTestDB(t)
	settings := NewSystemSettingService(gdb)
	saveSettings(t, settings, SystemSettingsInput{AIProvider: "unknown", OpenAIAPIKey: "sk-test"})

	client := NewAIChatClient(settings, AIModels{OpenAI: " gpt-4.1-mini "})
	client.SetBaseURL(AIProviderOpenAI, "https://proxy.test/v1")
	client.SetBaseURL(AIProviderOpenAI, "")
	client.SetHTTPClient(fakeHTTPClient{handler: func(r *http.Request) (*http.Response, error) {
		if r.URL.String() != "https://api.openai.com/v1/chat/completions" {
			t.Fatalf("expected default endpoint after reset, got %s", r.URL.String())
		}
		var payload chatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if payload.Model != "gpt-4.1-mini" {
			t.Fatalf("unexpected model %s", payload.Model)
		}
		return jsonResponse(http.StatusOK, `{"model":"gpt-4.1-mini-2025-04-14","choices":[{"message":{"role":"assistant","content":"ok"}}]}`), nil
	}})

	resp, err := client.Complete(context.Background(), ChatRequest{UserPrompt: "hi"})
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if resp.Provider != AIProviderOpenAI || resp.Model != "gpt-4.1-mini-2025-04-14" {
		t.Fatalf("unexpected provider/model %s/%s", resp.Provider, resp.Model)
	}
	if resp.Usage.Total() != 0 {
		t.Fatalf("expected zero usage when upstream omits it, got %+v", resp.Usage)
	}
}

func TestAIChatClientErrors(t *testing.T) {
	gdb := setupServiceTestDB(t)
	settings := NewSystemSettingService(gdb)
	client := NewAIChatClient(settings, AIModels{})

	if _, err := client.Complete(context.Background(), ChatRequest{UserPrompt: "hi"}); !errors.Is(err, ErrAIAPIKeyMissing) {
		t.Fatalf("expected ErrAIAPIKeyMissing, got %v", err)
	}

	saveSettings(t, settings, SystemSettingsInput{AIProvider: AIProviderOpenAI, OpenAIAPIKey: "sk-test"})

	for _, tt := range []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"upstream message", http.StatusUnauthorized, `{"error":{"message":"invalid api key"}}`, "invalid api key"},
		{"non json error", http.StatusBadGateway, `<html>bad gateway</html>`, "bad gateway"},
		{"empty choices", http.StatusOK, `{"choices":[]}`, "未返回结果"},
		{"malformed body", http.StatusOK, `not json`, "解析 OpenAI 响应失败"},
	} {
		t.Run(tt.name, func(t *testing.T) {
			client.SetHTTPClient(fakeHTTPClient{handler: func(r *http.Request) (*http.Response, error) {
				return jsonResponse(tt.status, tt.body), nil
			}})
			_, err := client.Complete(context.Background(), ChatRequest{UserPrompt: "hi"})
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}
