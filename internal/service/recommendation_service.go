package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lifelens/internal/db"
	"github.com/lifelens/internal/logger"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	// RecommendationSourceAI 表示内容由大模型生成
	RecommendationSourceAI = "ai"
	// RecommendationSourceTemplate 表示内容由规则模板生成
	RecommendationSourceTemplate = "template"
	// RecommendationSourceCache 仅用于指标统计，表示命中当日缓存
	RecommendationSourceCache = "cache"

	defaultRecommendationMaxTokens   = 600
	defaultRecommendationTemperature = 0.4
	maxRecommendationRunes           = 4000
)

const defaultRecommendationSystemPrompt = "你是一名温和专业的健康生活教练。请根据用户最近 7 天的运动、情绪、饮食与习惯数据，" +
	"用 Markdown 给出 3 到 5 条具体、可执行的建议，每条不超过两句话，不要做医学诊断。"

var (
	recommendationMarkdown = goldmark.New(
		goldmark.WithExtensions(extension.GFM, extension.Linkify, extension.Table),
		goldmark.WithRendererOptions(html.WithHardWraps(), html.WithXHTML()),
	)
	recommendationSanitizer = bluemonday.UGCPolicy()
)

// RecommendationObserver 接收建议生成事件与模型 token 用量，通常由指标模块实现
type RecommendationObserver interface {
	RecommendationGenerated(source string)
	AITokensUsed(provider string, promptTokens, completionTokens int)
}

// RecommendationResult 为返回给展示层的建议
type RecommendationResult struct {
	Date        string          `json:"date"`
	Source      string          `json:"source"`
	Content     string          `json:"content"`
	HTML        string          `json:"html"`
	Cached      bool            `json:"cached"`
	GeneratedAt time.Time       `json:"generated_at"`
	Snapshot    *WeeklySnapshot `json:"snapshot,omitempty"`
}

// RecommendationService 基于周度快照生成个性化建议，并按用户与日期缓存。
// 大模型不可用时回退为规则模板，不会因为外部服务失败而报错。
type RecommendationService struct {
	db        *gorm.DB
	analytics *AnalyticsService
	settings  *SystemSettingService
	client    ChatCompleter
	observer  RecommendationObserver
}

// NewRecommendationService 构造 RecommendationService，client 为 nil 时只使用模板
func NewRecommendationService(gdb *gorm.DB, analytics *AnalyticsService, settings *SystemSettingService, client ChatCompleter) *RecommendationService {
	return &RecommendationService{
		db:        gdb,
		analytics: analytics,
		settings:  settings,
		client:    client,
	}
}

// NewDefaultAIChatClient 构造建议生成使用的默认模型客户端，models 留空的平台使用内置模型
func NewDefaultAIChatClient(settings *SystemSettingService, models AIModels) *AIChatClient {
	return NewAIChatClient(settings, models)
}

// WithObserver 设置生成事件的观察者
func (s *RecommendationService) WithObserver(observer RecommendationObserver) *RecommendationService {
	s.observer = observer
	return s
}

// Generate 返回用户在 today 的建议。refresh 为 false 时优先使用当日缓存。
func (s *RecommendationService) Generate(ctx context.Context, userID uint, today time.Time, refresh bool) (*RecommendationResult, error) {
	day := db.CivilDay(today)

	if !refresh {
		cached, err := s.findCached(userID, day)
		if err != nil {
			return nil, err
		}
		if cached != nil {
			s.notify(RecommendationSourceCache)
			return cached, nil
		}
	}

	snapshot, err := s.analytics.Weekly(userID, day)
	if err != nil {
		return nil, fmt.Errorf("build weekly snapshot: %w", err)
	}

	source := RecommendationSourceTemplate
	content := ""
	if aiContent, ok := s.generateWithAI(ctx, snapshot); ok {
		source = RecommendationSourceAI
		content = aiContent
	} else {
		content = templateRecommendation(snapshot)
	}

	rendered, err := renderRecommendationHTML(content)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}

	record := db.Recommendation{
		UserID:   userID,
		ForDate:  day,
		Source:   source,
		Content:  content,
		HTML:     rendered,
		Snapshot: datatypes.JSON(payload),
	}
	if err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "for_date"}},
		DoUpdates: clause.AssignmentColumns([]string{"source", "content", "html", "snapshot", "updated_at"}),
	}).Create(&record).Error; err != nil {
		return nil, fmt.Errorf("save recommendation: %w", err)
	}

	s.notify(source)

	return &RecommendationResult{
		Date:        day.Format(db.DateLayout),
		Source:      source,
		Content:     content,
		HTML:        rendered,
		GeneratedAt: time.Now(),
		Snapshot:    snapshot,
	}, nil
}

func (s *RecommendationService) findCached(userID uint, day time.Time) (*RecommendationResult, error) {
	var record db.Recommendation
	err := s.db.Where("user_id = ? AND for_date = ?", userID, day).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load cached recommendation: %w", err)
	}

	result := &RecommendationResult{
		Date:        day.Format(db.DateLayout),
		Source:      record.Source,
		Content:     record.Content,
		HTML:        record.HTML,
		Cached:      true,
		GeneratedAt: record.UpdatedAt,
	}
	if len(record.Snapshot) > 0 {
		var snapshot WeeklySnapshot
		if err := json.Unmarshal(record.Snapshot, &snapshot); err != nil {
			logger.Warn("discard unreadable recommendation snapshot", "user_id", userID, "date", result.Date, "err", err)
		} else {
			result.Snapshot = &snapshot
		}
	}
	return result, nil
}

func (s *RecommendationService) generateWithAI(ctx context.Context, snapshot *WeeklySnapshot) (string, bool) {
	if s.client == nil {
		return "", false
	}

	systemPrompt := defaultRecommendationSystemPrompt
	if s.settings != nil {
		settings, err := s.settings.GetSettings()
		if err != nil {
			logger.Warn("load settings for recommendation", "err", err)
		} else if prompt := strings.TrimSpace(settings.RecommendationPrompt); prompt != "" {
			systemPrompt = prompt
		}
	}

	userPrompt := buildRecommendationPrompt(snapshot)
	logAIExchange("RECOMMENDATION", "prompt", userPrompt)

	resp, err := s.client.Complete(ctx, ChatRequest{
		SystemPrompt: systemPrompt,
		UserPrompt:   userPrompt,
		MaxTokens:    defaultRecommendationMaxTokens,
		Temperature:  defaultRecommendationTemperature,
	})
	if err != nil {
		if errors.Is(err, ErrAIAPIKeyMissing) {
			logger.Debug("ai key not configured, using template recommendation")
		} else {
			logger.Warn("ai recommendation failed, using template", "err", err)
		}
		return "", false
	}

	logAIUsage("RECOMMENDATION", resp)
	if s.observer != nil {
		s.observer.AITokensUsed(resp.Provider, resp.Usage.Prompt, resp.Usage.Completion)
	}

	content := strings.TrimSpace(resp.Content)
	logAIExchange("RECOMMENDATION", "response", content)
	if content == "" {
		return "", false
	}
	return truncateRunes(content, maxRecommendationRunes, ""), true
}

func buildRecommendationPrompt(snapshot *WeeklySnapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "统计区间：%s 至 %s\n", snapshot.Start, snapshot.End)
	fmt.Fprintf(&b, "运动：%d 次，共 %d 分钟，消耗 %d 千卡\n", snapshot.TotalActivities, snapshot.TotalActivityMinutes, snapshot.TotalActivityCalories)
	if snapshot.MoodDays > 0 {
		fmt.Fprintf(&b, "情绪：记录 %d 天，平均 %.1f 分（满分 10）\n", snapshot.MoodDays, snapshot.AverageMood)
	} else {
		b.WriteString("情绪：本周没有记录\n")
	}
	if len(snapshot.MoodDistribution) > 0 {
		parts := make([]string, 0, len(snapshot.MoodDistribution))
		for _, item := range snapshot.MoodDistribution {
			parts = append(parts, fmt.Sprintf("%s×%d", item.Type, item.Count))
		}
		fmt.Fprintf(&b, "情绪类型：%s\n", strings.Join(parts, "，"))
	}
	fmt.Fprintf(&b, "饮食：摄入 %d 千卡，蛋白质 %dg，碳水 %dg，脂肪 %dg，饮水 %d 杯\n",
		snapshot.TotalNutritionCalories, snapshot.Macros.Protein, snapshot.Macros.Carbs, snapshot.Macros.Fat, snapshot.TotalWater)
	fmt.Fprintf(&b, "习惯：共 %d 个，最长连续打卡 %d 天\n", snapshot.HabitCount, snapshot.LongestStreak)

	b.WriteString("每日明细（日期 运动次数 消耗千卡 情绪分 习惯完成率%）：\n")
	for _, d := range snapshot.Days {
		fmt.Fprintf(&b, "- %s %d %d %d %d\n", d.Date, d.ActivityCount, d.ActivityCalories, d.MoodScore, d.HabitCompletionRate)
	}

	if snapshot.Analysis.SufficientData {
		fmt.Fprintf(&b, "活动与情绪相关系数 %.2f，消耗热量与情绪相关系数 %.2f，预测情绪 %.1f\n",
			snapshot.Analysis.ActivityMoodCorrelation, snapshot.Analysis.CalorieMoodCorrelation, snapshot.Analysis.PredictedMood)
	}
	return b.String()
}

// templateRecommendation 在没有大模型时根据快照生成固定格式的 Markdown
func templateRecommendation(snapshot *WeeklySnapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## Weekly wellness summary (%s to %s)\n\n", snapshot.Start, snapshot.End)
	fmt.Fprintf(&b, "- Activities: %d sessions, %d minutes, %d kcal burned\n",
		snapshot.TotalActivities, snapshot.TotalActivityMinutes, snapshot.TotalActivityCalories)
	if snapshot.MoodDays > 0 {
		fmt.Fprintf(&b, "- Average mood: %.1f / 10 over %d days\n", snapshot.AverageMood, snapshot.MoodDays)
	} else {
		b.WriteString("- Average mood: no entries this week\n")
	}
	fmt.Fprintf(&b, "- Nutrition: %d kcal, %d glasses of water\n", snapshot.TotalNutritionCalories, snapshot.TotalWater)
	fmt.Fprintf(&b, "- Longest habit streak: %d days\n", snapshot.LongestStreak)

	b.WriteString("\n### Insights\n\n")
	for _, insight := range snapshot.Analysis.Insights {
		fmt.Fprintf(&b, "- %s\n", insight)
	}
	if snapshot.Analysis.SufficientData {
		fmt.Fprintf(&b, "- Predicted mood for a day with 2 activities and 200 kcal burned: %.1f\n", snapshot.Analysis.PredictedMood)
	}

	b.WriteString("\n### Recommendation\n\n")
	b.WriteString(snapshot.Analysis.Recommendation)
	b.WriteString("\n")
	return b.String()
}

func renderRecommendationHTML(content string) (string, error) {
	var buf bytes.Buffer
	if err := recommendationMarkdown.Convert([]byte(content), &buf); err != nil {
		return "", fmt.Errorf("render recommendation: %w", err)
	}
	return recommendationSanitizer.Sanitize(buf.String()), nil
}

func (s *RecommendationService) notify(source string) {
	if s.observer != nil {
		s.observer.RecommendationGenerated(source)
	}
}
