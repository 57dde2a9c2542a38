package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lifelens/internal/db"
	"github.com/lifelens/internal/service"
)

const (
	activityNotFound  = "活动记录不存在"
	moodNotFound      = "情绪记录不存在"
	nutritionNotFound = "饮食记录不存在"
	invalidDateText   = "无效的日期"
	invalidNumberText = "数值字段应为数字"
)

type activityPayload struct {
	Title     string `json:"title"`
	Category  string `json:"category"`
	Duration  int    `json:"duration"`
	Calories  int    `json:"calories"`
	Intensity string `json:"intensity"`
	Notes     string `json:"notes"`
	Date      string `json:"date"`
}

type moodPayload struct {
	MoodType    string `json:"mood_type"`
	MoodScore   int    `json:"mood_score"`
	EnergyScore int    `json:"energy_score"`
	StressScore int    `json:"stress_score"`
	Notes       string `json:"notes"`
	Date        string `json:"date"`
}

type nutritionPayload struct {
	MealType string `json:"meal_type"`
	Calories int    `json:"calories"`
	Protein  int    `json:"protein"`
	Carbs    int    `json:"carbs"`
	Fat      int    `json:"fat"`
	Water    int    `json:"water"`
	Notes    string `json:"notes"`
	Date     string `json:"date"`
}

// ListActivities 返回当前用户的活动，?date= 时只返回当天
func (a *API) ListActivities(c *gin.Context) {
	userID := currentUserID(c)

	var (
		activities []db.Activity
		err        error
	)
	if raw := c.Query("date"); raw != "" {
		day, parseErr := db.ParseDay(raw)
		if parseErr != nil {
			respondError(c, http.StatusBadRequest, invalidDateText)
			return
		}
		activities, err = a.activities.ListOn(userID, day)
	} else {
		activities, err = a.activities.List(userID)
	}
	if err != nil {
		respondServiceError(c, err, activityNotFound, "获取活动列表失败")
		return
	}

	items := make([]gin.H, 0, len(activities))
	for _, activity := range activities {
		items = append(items, activityToPayload(activity))
	}
	c.JSON(http.StatusOK, gin.H{"activities": items})
}

// GetActivity 返回单条活动
func (a *API) GetActivity(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的活动ID")
		return
	}

	activity, err := a.activities.Get(currentUserID(c), id)
	if err != nil {
		respondServiceError(c, err, activityNotFound, "加载活动失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"activity": activityToPayload(*activity)})
}

// CreateActivity 新增活动记录
func (a *API) CreateActivity(c *gin.Context) {
	input, ok := a.parseActivityInput(c)
	if !ok {
		return
	}

	activity, err := a.activities.Create(currentUserID(c), input)
	if err != nil {
		respondServiceError(c, err, activityNotFound, "创建活动失败")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"activity": activityToPayload(*activity)})
}

// UpdateActivity 更新活动记录
func (a *API) UpdateActivity(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的活动ID")
		return
	}

	input, ok := a.parseActivityInput(c)
	if !ok {
		return
	}

	activity, err := a.activities.Update(currentUserID(c), id, input)
	if err != nil {
		respondServiceError(c, err, activityNotFound, "更新活动失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"activity": activityToPayload(*activity)})
}

// DeleteActivity 删除活动记录
func (a *API) DeleteActivity(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的活动ID")
		return
	}

	if err := a.activities.Delete(currentUserID(c), id); err != nil {
		respondServiceError(c, err, activityNotFound, "删除活动失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// ListMoods 返回情绪记录，?date= 时只返回当天那一条
func (a *API) ListMoods(c *gin.Context) {
	userID := currentUserID(c)

	if raw := c.Query("date"); raw != "" {
		day, err := db.ParseDay(raw)
		if err != nil {
			respondError(c, http.StatusBadRequest, invalidDateText)
			return
		}
		mood, err := a.moods.FindOn(userID, day)
		if err != nil {
			respondServiceError(c, err, moodNotFound, "获取情绪记录失败")
			return
		}
		items := make([]gin.H, 0, 1)
		if mood != nil {
			items = append(items, moodToPayload(*mood))
		}
		c.JSON(http.StatusOK, gin.H{"moods": items})
		return
	}

	moods, err := a.moods.List(userID)
	if err != nil {
		respondServiceError(c, err, moodNotFound, "获取情绪记录失败")
		return
	}

	items := make([]gin.H, 0, len(moods))
	for _, mood := range moods {
		items = append(items, moodToPayload(mood))
	}
	c.JSON(http.StatusOK, gin.H{"moods": items})
}

// LogMood 记录当天情绪，同一天重复提交会覆盖
func (a *API) LogMood(c *gin.Context) {
	var payload moodPayload
	if isJSONRequest(c) {
		if !bindJSON(c, &payload, "请求参数不合法") {
			return
		}
	} else {
		payload.MoodType = c.PostForm("mood_type")
		payload.Notes = c.PostForm("notes")
		payload.Date = c.PostForm("date")

		var err error
		if payload.MoodScore, err = formInt(c, "mood_score"); err == nil {
			if payload.EnergyScore, err = formInt(c, "energy_score"); err == nil {
				payload.StressScore, err = formInt(c, "stress_score")
			}
		}
		if err != nil {
			respondError(c, http.StatusBadRequest, invalidNumberText)
			return
		}
	}

	day, err := parseDay(payload.Date, a.today())
	if err != nil {
		respondError(c, http.StatusBadRequest, invalidDateText)
		return
	}

	mood, err := a.moods.Log(currentUserID(c), service.MoodInput{
		MoodType:    payload.MoodType,
		MoodScore:   payload.MoodScore,
		EnergyScore: payload.EnergyScore,
		StressScore: payload.StressScore,
		Notes:       payload.Notes,
		Date:        day,
	})
	if err != nil {
		respondServiceError(c, err, moodNotFound, "保存情绪记录失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"mood": moodToPayload(*mood)})
}

// GetMood 返回单条情绪记录
func (a *API) GetMood(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的情绪记录ID")
		return
	}

	mood, err := a.moods.Get(currentUserID(c), id)
	if err != nil {
		respondServiceError(c, err, moodNotFound, "加载情绪记录失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"mood": moodToPayload(*mood)})
}

// DeleteMood 删除情绪记录
func (a *API) DeleteMood(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的情绪记录ID")
		return
	}

	if err := a.moods.Delete(currentUserID(c), id); err != nil {
		respondServiceError(c, err, moodNotFound, "删除情绪记录失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// ListNutrition 返回饮食记录，可用 start/end 限定区间
func (a *API) ListNutrition(c *gin.Context) {
	userID := currentUserID(c)

	var (
		entries []db.Nutrition
		err     error
	)
	startRaw, endRaw := c.Query("start"), c.Query("end")
	if startRaw != "" || endRaw != "" {
		today := a.today()
		end, endErr := parseDay(endRaw, today)
		start, startErr := parseDay(startRaw, end.AddDate(0, 0, -6))
		if startErr != nil || endErr != nil || start.After(end) {
			respondError(c, http.StatusBadRequest, "无效的日期区间")
			return
		}
		entries, err = a.nutrition.ListBetween(userID, start, end)
	} else {
		entries, err = a.nutrition.List(userID)
	}
	if err != nil {
		respondServiceError(c, err, nutritionNotFound, "获取饮食记录失败")
		return
	}

	items := make([]gin.H, 0, len(entries))
	for _, entry := range entries {
		items = append(items, nutritionToPayload(entry))
	}
	c.JSON(http.StatusOK, gin.H{"nutrition": items})
}

// CreateNutrition 新增饮食记录
func (a *API) CreateNutrition(c *gin.Context) {
	var payload nutritionPayload
	if isJSONRequest(c) {
		if !bindJSON(c, &payload, "请求参数不合法") {
			return
		}
	} else {
		payload.MealType = c.PostForm("meal_type")
		payload.Notes = c.PostForm("notes")
		payload.Date = c.PostForm("date")

		fields := []struct {
			key string
			dst *int
		}{
			{"calories", &payload.Calories},
			{"protein", &payload.Protein},
			{"carbs", &payload.Carbs},
			{"fat", &payload.Fat},
			{"water", &payload.Water},
		}
		for _, field := range fields {
			value, err := formInt(c, field.key)
			if err != nil {
				respondError(c, http.StatusBadRequest, invalidNumberText)
				return
			}
			*field.dst = value
		}
	}

	day, err := parseDay(payload.Date, a.today())
	if err != nil {
		respondError(c, http.StatusBadRequest, invalidDateText)
		return
	}

	entry, err := a.nutrition.Create(currentUserID(c), service.NutritionInput{
		MealType: payload.MealType,
		Calories: payload.Calories,
		Protein:  payload.Protein,
		Carbs:    payload.Carbs,
		Fat:      payload.Fat,
		Water:    payload.Water,
		Notes:    payload.Notes,
		Date:     day,
	})
	if err != nil {
		respondServiceError(c, err, nutritionNotFound, "保存饮食记录失败")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"nutrition": nutritionToPayload(*entry)})
}

// DeleteNutrition 删除饮食记录
func (a *API) DeleteNutrition(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的饮食记录ID")
		return
	}

	if err := a.nutrition.Delete(currentUserID(c), id); err != nil {
		respondServiceError(c, err, nutritionNotFound, "删除饮食记录失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

func (a *API) parseActivityInput(c *gin.Context) (service.ActivityInput, bool) {
	var payload activityPayload
	if isJSONRequest(c) {
		if !bindJSON(c, &payload, "请求参数不合法") {
			return service.ActivityInput{}, false
		}
	} else {
		payload.Title = c.PostForm("title")
		payload.Category = c.PostForm("category")
		payload.Intensity = c.PostForm("intensity")
		payload.Notes = c.PostForm("notes")
		payload.Date = c.PostForm("date")

		var err error
		if payload.Duration, err = formInt(c, "duration"); err == nil {
			payload.Calories, err = formInt(c, "calories")
		}
		if err != nil {
			respondError(c, http.StatusBadRequest, invalidNumberText)
			return service.ActivityInput{}, false
		}
	}

	day, err := parseDay(payload.Date, a.today())
	if err != nil {
		respondError(c, http.StatusBadRequest, invalidDateText)
		return service.ActivityInput{}, false
	}

	return service.ActivityInput{
		Title:     payload.Title,
		Category:  payload.Category,
		Duration:  payload.Duration,
		Calories:  payload.Calories,
		Intensity: payload.Intensity,
		Notes:     payload.Notes,
		Date:      day,
	}, true
}

func activityToPayload(activity db.Activity) gin.H {
	return gin.H{
		"id":         activity.ID,
		"title":      activity.Title,
		"category":   activity.Category,
		"duration":   activity.Duration,
		"calories":   activity.Calories,
		"intensity":  activity.Intensity,
		"notes":      activity.Notes,
		"date":       activity.LogDate.Format(db.DateLayout),
		"created_at": activity.CreatedAt,
	}
}

func moodToPayload(mood db.Mood) gin.H {
	return gin.H{
		"id":           mood.ID,
		"mood_type":    mood.MoodType,
		"mood_score":   mood.MoodScore,
		"energy_score": mood.EnergyScore,
		"stress_score": mood.StressScore,
		"notes":        mood.Notes,
		"date":         mood.LogDate.Format(db.DateLayout),
		"updated_at":   mood.UpdatedAt,
	}
}

func nutritionToPayload(entry db.Nutrition) gin.H {
	return gin.H{
		"id":         entry.ID,
		"meal_type":  entry.MealType,
		"calories":   entry.Calories,
		"protein":    entry.Protein,
		"carbs":      entry.Carbs,
		"fat":        entry.Fat,
		"water":      entry.Water,
		"notes":      entry.Notes,
		"date":       entry.LogDate.Format(db.DateLayout),
		"created_at": entry.CreatedAt,
	}
}
