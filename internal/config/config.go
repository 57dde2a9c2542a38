package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// AppConfig 汇总运行服务所需的基础配置。
type AppConfig struct {
	ListenAddr         string
	Port               string
	DatabasePath       string
	SessionSecret      string
	GinMode            string
	LogLevel           string
	LogFile            string
	StreakLookbackDays int
	AIProvider         string
	OpenAIAPIKey       string
	DeepSeekAPIKey     string
	OpenAIModel        string
	DeepSeekModel      string
	AdminUserName      string
	AdminPassword      string
}

const defaultStreakLookbackDays = 365

// Load 从环境变量读取应用配置，并为缺失项提供安全的默认值。
func Load() AppConfig {
	port := envOrDefault("PORT", "8080")

	listenAddr := strings.TrimSpace(os.Getenv("LISTEN_ADDR"))
	if listenAddr == "" {
		listenAddr = fmt.Sprintf(":%s", port)
	}

	lookback := defaultStreakLookbackDays
	if raw := strings.TrimSpace(os.Getenv("STREAK_LOOKBACK_DAYS")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			lookback = parsed
		}
	}

	return AppConfig{
		ListenAddr:         listenAddr,
		Port:               port,
		DatabasePath:       envOrDefault("DATABASE_PATH", "lifelens.db"),
		SessionSecret:      envOrDefault("SESSION_SECRET", "lifelens-dev-secret"),
		GinMode:            envOrDefault("GIN_MODE", "release"),
		LogLevel:           envOrDefault("LOG_LEVEL", "info"),
		LogFile:            strings.TrimSpace(os.Getenv("LOG_FILE")),
		StreakLookbackDays: lookback,
		AIProvider:         strings.TrimSpace(os.Getenv("AI_PROVIDER")),
		OpenAIAPIKey:       strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
		DeepSeekAPIKey:     strings.TrimSpace(os.Getenv("DEEPSEEK_API_KEY")),
		OpenAIModel:        strings.TrimSpace(os.Getenv("OPENAI_MODEL")),
		DeepSeekModel:      strings.TrimSpace(os.Getenv("DEEPSEEK_MODEL")),
		AdminUserName:      strings.TrimSpace(os.Getenv("ADMIN_USER_NAME")),
		AdminPassword:      strings.TrimSpace(os.Getenv("ADMIN_PASSWORD")),
	}
}

func envOrDefault(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}
