package handler

import (
	"cmp"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lifelens/internal/db"
	"github.com/lifelens/internal/logger"
	"github.com/lifelens/internal/service"
)

const (
	defaultHabitView   = "monthly"
	heatmapWindowDays  = 365
	habitNotFound      = "习惯不存在"
	invalidHabitIDText = "无效的习惯ID"
)

type heatmapHabit struct {
	ID      uint   `json:"id"`
	Name    string `json:"name"`
	TypeTag string `json:"type_tag"`
}

type heatmapDay struct {
	Date   string         `json:"date"`
	Habits []heatmapHabit `json:"habits"`
}

type heatmapRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type heatmapSummary struct {
	TotalLogs  int `json:"total_logs"`
	ActiveDays int `json:"active_days"`
	HabitCount int `json:"habit_count"`
}

type habitHeatmapPayload struct {
	Range       heatmapRange   `json:"range"`
	Days        []heatmapDay   `json:"days"`
	Habits      []heatmapHabit `json:"habits"`
	Summary     heatmapSummary `json:"summary"`
	GeneratedAt string         `json:"generated_at"`
}

type habitPayload struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Frequency   string `json:"frequency"`
	TargetCount int    `json:"target_count"`
	TypeTag     string `json:"type_tag"`
}

// ListHabits 返回当前用户的习惯列表
func (a *API) ListHabits(c *gin.Context) {
	filter := service.HabitFilter{
		TypeTag: c.Query("type_tag"),
		Search:  c.Query("search"),
	}

	habits, err := a.habits.List(currentUserID(c), filter)
	if err != nil {
		respondServiceError(c, err, habitNotFound, "获取习惯列表失败")
		return
	}

	items := make([]gin.H, 0, len(habits))
	for _, habit := range habits {
		items = append(items, habitToPayload(habit))
	}

	c.JSON(http.StatusOK, gin.H{"habits": items, "type_tags": uniqueHabitTags(habits)})
}

// GetHabit 返回单个习惯详情
func (a *API) GetHabit(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, invalidHabitIDText)
		return
	}

	habit, err := a.habits.Get(currentUserID(c), id)
	if err != nil {
		respondServiceError(c, err, habitNotFound, "加载习惯失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{"habit": habitToPayload(*habit)})
}

// CreateHabit 创建习惯
func (a *API) CreateHabit(c *gin.Context) {
	input, ok := parseHabitInput(c)
	if !ok {
		return
	}

	habit, err := a.habits.Create(currentUserID(c), input)
	if err != nil {
		respondServiceError(c, err, habitNotFound, "创建习惯失败")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"habit": habitToPayload(*habit)})
}

// UpdateHabit 更新习惯
func (a *API) UpdateHabit(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, invalidHabitIDText)
		return
	}

	input, ok := parseHabitInput(c)
	if !ok {
		return
	}

	habit, err := a.habits.Update(currentUserID(c), id, input)
	if err != nil {
		respondServiceError(c, err, habitNotFound, "更新习惯失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{"habit": habitToPayload(*habit)})
}

// DeleteHabit 删除习惯及其打卡记录
func (a *API) DeleteHabit(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, invalidHabitIDText)
		return
	}

	if err := a.habits.Delete(currentUserID(c), id); err != nil {
		respondServiceError(c, err, habitNotFound, "删除习惯失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// ToggleHabit 切换某天的完成状态，未指定日期时为今天
func (a *API) ToggleHabit(c *gin.Context) {
	habitID, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, invalidHabitIDText)
		return
	}

	var payload struct {
		Date string `json:"date"` // 2006-01-02
	}
	if isJSONRequest(c) && c.Request.ContentLength != 0 {
		if !bindJSON(c, &payload, "请求参数不合法") {
			return
		}
	} else {
		payload.Date = c.PostForm("date")
	}

	day, err := parseDay(payload.Date, a.today())
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的打卡日期")
		return
	}

	userID := currentUserID(c)
	result, err := a.habitLogs.Toggle(userID, habitID, day)
	if err != nil {
		respondServiceError(c, err, habitNotFound, "保存打卡记录失败")
		return
	}
	a.metrics.HabitToggled(result.IsCompleted)

	streak, err := a.habitLogs.ComputeStreak(userID, habitID, day, 0)
	if err != nil {
		respondServiceError(c, err, habitNotFound, "计算连续打卡失败")
		return
	}

	logger.Debug("habit toggled", "user_id", userID, "habit_id", habitID, "date", day.Format(db.DateLayout), "completed", result.IsCompleted)

	c.JSON(http.StatusOK, gin.H{
		"habit_id":        result.HabitID,
		"date":            result.Date.Format(db.DateLayout),
		"is_completed":    result.IsCompleted,
		"completed_count": result.CompletedCount,
		"streak":          streak,
	})
}

// GetHabitStreak 返回习惯截至某天的当前连胜
func (a *API) GetHabitStreak(c *gin.Context) {
	habitID, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, invalidHabitIDText)
		return
	}

	day, ok := a.dayQuery(c)
	if !ok {
		return
	}

	maxDays := 0
	if raw := c.Query("max_days"); raw != "" {
		maxDays, err = strconv.Atoi(raw)
		if err != nil || maxDays <= 0 {
			respondError(c, http.StatusBadRequest, "max_days 应为正整数")
			return
		}
	}

	userID := currentUserID(c)
	if _, err := a.habits.Get(userID, habitID); err != nil {
		respondServiceError(c, err, habitNotFound, "加载习惯失败")
		return
	}

	streak, err := a.habitLogs.ComputeStreak(userID, habitID, day, maxDays)
	if err != nil {
		respondServiceError(c, err, habitNotFound, "计算连续打卡失败")
		return
	}

	if maxDays == 0 {
		maxDays = a.habitLogs.Lookback()
	}
	c.JSON(http.StatusOK, gin.H{
		"habit_id": habitID,
		"date":     day.Format(db.DateLayout),
		"max_days": maxDays,
		"streak":   streak,
	})
}

// GetHabitCalendar 返回日期区间内的打卡数据和统计
func (a *API) GetHabitCalendar(c *gin.Context) {
	habitID, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, invalidHabitIDText)
		return
	}

	userID := currentUserID(c)
	habit, err := a.habits.Get(userID, habitID)
	if err != nil {
		respondServiceError(c, err, habitNotFound, "加载习惯失败")
		return
	}

	view := strings.ToLower(c.DefaultQuery("view", defaultHabitView))
	start, end := resolveRange(c.Query("start"), view, a.today())
	filter := service.HabitLogFilter{UserID: userID, HabitID: habit.ID, Start: start, End: end}

	logs, err := a.habitLogs.ListBetween(filter)
	if err != nil {
		respondServiceError(c, err, habitNotFound, "获取打卡记录失败")
		return
	}

	stats, err := a.habitLogs.StatsBetween(filter, *habit)
	if err != nil {
		respondServiceError(c, err, habitNotFound, "计算统计信息失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"habit": habitToPayload(*habit),
		"logs":  serializeHabitLogs(logs),
		"stats": serializeHabitStats(stats),
		"range": gin.H{"start": start.Format(db.DateLayout), "end": end.Format(db.DateLayout), "view": view},
	})
}

// GetHabitHeatmap 返回过去一年所有习惯的完成热力图
func (a *API) GetHabitHeatmap(c *gin.Context) {
	end := a.today()
	start := end.AddDate(0, 0, -(heatmapWindowDays - 1))

	entries, err := a.habitLogs.HeatmapRange(currentUserID(c), start, end)
	if err != nil {
		respondServiceError(c, err, habitNotFound, "获取热力图数据失败")
		return
	}

	c.JSON(http.StatusOK, buildHabitHeatmapPayload(entries, start, end, time.Now()))
}

func buildHabitHeatmapPayload(entries []service.HabitHeatmapEntry, start, end, generatedAt time.Time) habitHeatmapPayload {
	dayMap := make(map[string][]heatmapHabit)
	legendMap := make(map[uint]heatmapHabit)

	for _, entry := range entries {
		habit := heatmapHabit{ID: entry.HabitID, Name: entry.HabitName, TypeTag: entry.HabitType}
		key := db.CivilDay(entry.LogDate).Format(db.DateLayout)
		dayMap[key] = append(dayMap[key], habit)
		if _, exists := legendMap[habit.ID]; !exists {
			legendMap[habit.ID] = habit
		}
	}

	days := make([]heatmapDay, 0, len(dayMap))
	for date, habits := range dayMap {
		slices.SortFunc(habits, func(a, b heatmapHabit) int {
			return cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
		})
		days = append(days, heatmapDay{Date: date, Habits: habits})
	}

	slices.SortFunc(days, func(a, b heatmapDay) int {
		return cmp.Compare(a.Date, b.Date)
	})

	legend := make([]heatmapHabit, 0, len(legendMap))
	for _, item := range legendMap {
		legend = append(legend, item)
	}

	slices.SortFunc(legend, func(a, b heatmapHabit) int {
		if diff := cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)); diff != 0 {
			return diff
		}
		return cmp.Compare(a.ID, b.ID)
	})

	payload := habitHeatmapPayload{
		Range: heatmapRange{
			Start: start.Format(db.DateLayout),
			End:   end.Format(db.DateLayout),
		},
		Days:    days,
		Habits:  legend,
		Summary: heatmapSummary{TotalLogs: len(entries), ActiveDays: len(dayMap), HabitCount: len(legend)},
	}

	if !generatedAt.IsZero() {
		payload.GeneratedAt = generatedAt.Format(time.RFC3339)
	}

	return payload
}

func parseHabitInput(c *gin.Context) (service.HabitInput, bool) {
	var payload habitPayload

	if isJSONRequest(c) {
		if !bindJSON(c, &payload, "请求参数不合法") {
			return service.HabitInput{}, false
		}
	} else {
		payload.Name = c.PostForm("name")
		payload.Description = c.PostForm("description")
		payload.Frequency = c.PostForm("frequency")
		payload.TypeTag = c.PostForm("type_tag")

		count, err := formInt(c, "target_count")
		if err != nil {
			respondError(c, http.StatusBadRequest, "目标次数应为数字")
			return service.HabitInput{}, false
		}
		payload.TargetCount = count
	}

	return service.HabitInput{
		Name:        payload.Name,
		Description: payload.Description,
		Frequency:   payload.Frequency,
		TargetCount: payload.TargetCount,
		TypeTag:     payload.TypeTag,
	}, true
}

func uniqueHabitTags(habits []db.Habit) []string {
	tagMap := make(map[string]struct{})

	for _, habit := range habits {
		tag := strings.TrimSpace(habit.TypeTag)
		if tag == "" {
			continue
		}
		tagMap[tag] = struct{}{}
	}

	tags := make([]string, 0, len(tagMap))
	for tag := range tagMap {
		tags = append(tags, tag)
	}

	slices.Sort(tags)
	return tags
}

func habitToPayload(habit db.Habit) gin.H {
	return gin.H{
		"id":           habit.ID,
		"name":         habit.Name,
		"description":  habit.Description,
		"frequency":    habit.Frequency,
		"target_count": habit.TargetCount,
		"type_tag":     habit.TypeTag,
		"created_at":   habit.CreatedAt,
	}
}

func serializeHabitLogs(logs []db.HabitLog) []gin.H {
	items := make([]gin.H, 0, len(logs))
	for _, log := range logs {
		items = append(items, gin.H{
			"id":              log.ID,
			"habit_id":        log.HabitID,
			"log_date":        log.LogDate.Format(db.DateLayout),
			"completed_count": log.CompletedCount,
			"is_completed":    log.IsCompleted,
			"note":            log.Note,
		})
	}
	return items
}

func serializeHabitStats(stats *service.HabitStats) gin.H {
	return gin.H{
		"range_start":     stats.RangeStart.Format(db.DateLayout),
		"range_end":       stats.RangeEnd.Format(db.DateLayout),
		"completed_count": stats.CompletedCount,
		"target_count":    stats.TargetCount,
		"completion_rate": stats.CompletionRate,
		"current_streak":  stats.CurrentStreak,
		"longest_streak":  stats.LongestStreak,
	}
}

// resolveRange 根据视图计算自然周（周一开始）或自然月区间，start 非法时以 today 为准
func resolveRange(startStr, view string, today time.Time) (time.Time, time.Time) {
	start, err := parseDay(startStr, today)
	if err != nil {
		start = today
	}

	switch view {
	case "weekly":
		weekday := int(start.Weekday())
		if weekday == 0 {
			weekday = 7
		}
		start = start.AddDate(0, 0, -weekday+1)
		return start, start.AddDate(0, 0, 6)
	default:
		start = time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(0, 1, -1)
	}
}
