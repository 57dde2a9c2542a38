package handler

import (
	"time"

	"github.com/lifelens/internal/db"
	"github.com/lifelens/internal/observability"
	"github.com/lifelens/internal/service"
	"gorm.io/gorm"
)

// API bundles shared dependencies for HTTP handlers.
type API struct {
	db              *gorm.DB
	users           *service.UserService
	habits          *service.HabitService
	habitLogs       *service.HabitLogService
	activities      *service.ActivityService
	moods           *service.MoodService
	nutrition       *service.NutritionService
	analytics       analyticsProvider
	recommendations recommendationProvider
	system          *service.SystemSettingService
	metrics         *observability.Metrics
	now             func() time.Time
}

// Options 控制 API 的可选依赖
type Options struct {
	// StreakLookbackDays 为 0 时使用默认 365 天
	StreakLookbackDays int
	Metrics            *observability.Metrics
	// ChatClient 为空时使用基于系统设置的默认模型客户端
	ChatClient service.ChatCompleter
	// AIModels 仅在使用默认客户端时生效
	AIModels service.AIModels
}

// NewAPI constructs a handler set with shared services.
func NewAPI(gdb *gorm.DB, opts Options) *API {
	systemService := service.NewSystemSettingService(gdb)
	analyticsService := service.NewAnalyticsService(gdb).WithLookback(opts.StreakLookbackDays)

	client := opts.ChatClient
	if client == nil {
		client = service.NewDefaultAIChatClient(systemService, opts.AIModels)
	}
	recommendationService := service.NewRecommendationService(gdb, analyticsService, systemService, client)
	if opts.Metrics != nil {
		recommendationService.WithObserver(opts.Metrics)
	}

	return &API{
		db:              gdb,
		users:           service.NewUserService(gdb),
		habits:          service.NewHabitService(gdb),
		habitLogs:       service.NewHabitLogService(gdb).WithLookback(opts.StreakLookbackDays),
		activities:      service.NewActivityService(gdb),
		moods:           service.NewMoodService(gdb),
		nutrition:       service.NewNutritionService(gdb),
		analytics:       analyticsService,
		recommendations: recommendationService,
		system:          systemService,
		metrics:         opts.Metrics,
		now:             time.Now,
	}
}

// DB exposes the underlying gorm instance.
func (a *API) DB() *gorm.DB {
	return a.db
}

func (a *API) clock() time.Time {
	if a.now != nil {
		return a.now()
	}
	return time.Now()
}

// today 返回当前日历日
func (a *API) today() time.Time {
	return db.CivilDay(a.clock())
}
