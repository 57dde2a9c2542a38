package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 汇总 HTTP 与业务层面的 Prometheus 指标，每个实例使用独立的 Registry。
type Metrics struct {
	registry          *prometheus.Registry
	httpRequestsTotal *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
	habitToggles      *prometheus.CounterVec
	recommendations   *prometheus.CounterVec
	aiTokens          *prometheus.CounterVec
}

// NewMetrics 创建并注册全部指标。
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lifelens_http_requests_total",
			Help: "Total count of HTTP requests processed by route and status.",
		}, []string{"route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "lifelens_http_request_duration_seconds",
			Help:    "Histogram of HTTP request durations by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		habitToggles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lifelens_habit_toggles_total",
			Help: "Habit completion toggles by resulting state.",
		}, []string{"state"}),
		recommendations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lifelens_recommendations_total",
			Help: "Generated recommendations by source.",
		}, []string{"source"}),
		aiTokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lifelens_ai_tokens_total",
			Help: "Tokens consumed by AI completions by provider and kind (prompt/completion).",
		}, []string{"provider", "kind"}),
	}

	registry.MustRegister(
		m.httpRequestsTotal,
		m.httpDuration,
		m.habitToggles,
		m.recommendations,
		m.aiTokens,
	)

	return m
}

// Middleware 记录每个请求的路由、状态码与耗时。
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		if m == nil {
			return
		}
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.httpRequestsTotal.WithLabelValues(route, strconv.Itoa(c.Writer.Status())).Inc()
		m.httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

// Handler 暴露 /metrics 端点。
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// HabitToggled 统计打卡切换结果。
func (m *Metrics) HabitToggled(completed bool) {
	if m == nil {
		return
	}
	state := "uncompleted"
	if completed {
		state = "completed"
	}
	m.habitToggles.WithLabelValues(state).Inc()
}

// RecommendationGenerated 统计建议来源（ai/template/cache）。
func (m *Metrics) RecommendationGenerated(source string) {
	if m == nil {
		return
	}
	m.recommendations.WithLabelValues(source).Inc()
}

// AITokensUsed 累加模型调用消耗的 token，未上报用量时不计数。
func (m *Metrics) AITokensUsed(provider string, promptTokens, completionTokens int) {
	if m == nil {
		return
	}
	if provider == "" {
		provider = "unknown"
	}
	if promptTokens > 0 {
		m.aiTokens.WithLabelValues(provider, "prompt").Add(float64(promptTokens))
	}
	if completionTokens > 0 {
		m.aiTokens.WithLabelValues(provider, "completion").Add(float64(completionTokens))
	}
}
