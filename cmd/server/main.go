package main

import (
	"github.com/gin-gonic/gin"
	"github.com/lifelens/internal/config"
	"github.com/lifelens/internal/db"
	"github.com/lifelens/internal/handler"
	"github.com/lifelens/internal/logger"
	"github.com/lifelens/internal/observability"
	"github.com/lifelens/internal/router"
	"github.com/lifelens/internal/service"
)

func main() {
	cfg := config.Load()

	if err := logger.Init(logger.Config{Level: cfg.LogLevel, File: cfg.LogFile}); err != nil {
		panic(err)
	}
	gin.SetMode(cfg.GinMode)

	// 初始化数据库
	if err := db.Init(cfg.DatabasePath); err != nil {
		logger.Fatal("failed to initialize database", "path", cfg.DatabasePath, "err", err)
	}

	if err := db.EnsureUser(cfg.AdminUserName, cfg.AdminPassword); err != nil {
		logger.Fatal("failed to ensure admin user", "err", err)
	}

	// 环境变量中的 AI 配置只在设置表为空时写入
	if err := service.NewSystemSettingService(db.DB).SeedSettings(service.SystemSettingsInput{
		AIProvider:     cfg.AIProvider,
		OpenAIAPIKey:   cfg.OpenAIAPIKey,
		DeepSeekAPIKey: cfg.DeepSeekAPIKey,
	}); err != nil {
		logger.Fatal("failed to seed system settings", "err", err)
	}

	r := router.SetupRouter(db.DB, router.Options{
		SessionSecret: cfg.SessionSecret,
		API: handler.Options{
			StreakLookbackDays: cfg.StreakLookbackDays,
			Metrics:            observability.NewMetrics(),
			AIModels: service.AIModels{
				OpenAI:   cfg.OpenAIModel,
				DeepSeek: cfg.DeepSeekModel,
			},
		},
	})

	logger.Info("lifelens server starting", "addr", cfg.ListenAddr, "database", cfg.DatabasePath)
	if err := r.Run(cfg.ListenAddr); err != nil {
		logger.Fatal("failed to run server", "err", err)
	}
}
