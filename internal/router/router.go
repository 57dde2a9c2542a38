package router

import (
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/lifelens/internal/handler"
	"gorm.io/gorm"
)

const sessionName = "lifelens_session"

// Options 汇总路由所需的外部配置
type Options struct {
	SessionSecret string
	API           handler.Options
}

// SetupRouter 配置 Gin 引擎和路由
func SetupRouter(gdb *gorm.DB, opts Options) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger())

	metrics := opts.API.Metrics
	if metrics != nil {
		r.Use(metrics.Middleware())
		r.GET("/metrics", gin.WrapH(metrics.Handler()))
	}

	// 配置会话中间件
	secret := opts.SessionSecret
	if secret == "" {
		secret = "secret"
	}
	store := cookie.NewStore([]byte(secret))
	store.Options(sessions.Options{Path: "/", MaxAge: 7 * 24 * 3600, HttpOnly: true})
	r.Use(sessions.Sessions(sessionName, store))

	api := handler.NewAPI(gdb, opts.API)

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})
	r.GET("/healthz", api.HealthCheck)

	auth := r.Group("/auth")
	{
		auth.POST("/signup", api.Signup)
		auth.POST("/login", api.Login)
		auth.POST("/logout", api.Logout)
	}

	// 需要登录的接口
	secured := r.Group("/api")
	secured.Use(handler.AuthRequired())
	{
		secured.GET("/me", api.Me)
		secured.GET("/dashboard", api.Dashboard)
		secured.GET("/analytics/weekly", api.Weekly)
		secured.GET("/recommendation", api.Recommendation)

		secured.GET("/habits", api.ListHabits)
		secured.POST("/habits", api.CreateHabit)
		secured.GET("/habits/heatmap", api.GetHabitHeatmap)
		secured.GET("/habits/:id", api.GetHabit)
		secured.PUT("/habits/:id", api.UpdateHabit)
		secured.DELETE("/habits/:id", api.DeleteHabit)
		secured.POST("/habits/:id/toggle", api.ToggleHabit)
		secured.GET("/habits/:id/streak", api.GetHabitStreak)
		secured.GET("/habits/:id/calendar", api.GetHabitCalendar)

		secured.GET("/activities", api.ListActivities)
		secured.POST("/activities", api.CreateActivity)
		secured.GET("/activities/:id", api.GetActivity)
		secured.PUT("/activities/:id", api.UpdateActivity)
		secured.DELETE("/activities/:id", api.DeleteActivity)

		secured.GET("/moods", api.ListMoods)
		secured.POST("/moods", api.LogMood)
		secured.GET("/moods/:id", api.GetMood)
		secured.DELETE("/moods/:id", api.DeleteMood)

		secured.GET("/nutrition", api.ListNutrition)
		secured.POST("/nutrition", api.CreateNutrition)
		secured.DELETE("/nutrition/:id", api.DeleteNutrition)

		admin := secured.Group("/admin")
		admin.Use(api.AdminRequired())
		{
			admin.GET("/settings", api.GetSystemSettings)
			admin.PUT("/settings", api.UpdateSystemSettings)
			admin.POST("/settings/ai/test", api.TestAIConnection)
		}
	}

	return r
}
