package service

import (
	"strings"
	"unicode/utf8"

	"github.com/lifelens/internal/logger"
)

const maxAILogSnippetRunes = 1024

// logAIExchange 用于输出 AI 请求与响应的关键信息，方便排查模型行为。
func logAIExchange(kind, phase, content string) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		logger.Debug("ai exchange", "kind", kind, "phase", phase, "content", "<empty>")
		return
	}

	runeCount := utf8.RuneCountInString(trimmed)
	logger.Debug("ai exchange",
		"kind", kind,
		"phase", phase,
		"runes", runeCount,
		"content", truncateRunes(trimmed, maxAILogSnippetRunes, "…(truncated)"),
	)
}

// logAIUsage 记录一次调用的模型与 token 消耗
func logAIUsage(kind string, resp ChatResponse) {
	logger.Info("ai usage",
		"kind", kind,
		"provider", resp.Provider,
		"model", resp.Model,
		"prompt_tokens", resp.Usage.Prompt,
		"completion_tokens", resp.Usage.Completion,
		"total_tokens", resp.Usage.Total(),
	)
}

// truncateRunes 按字符截断，超出时追加 suffix
func truncateRunes(input string, limit int, suffix string) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(input)
	if len(runes) <= limit {
		return input
	}
	return string(runes[:limit]) + suffix
}
