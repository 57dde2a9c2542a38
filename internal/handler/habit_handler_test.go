package handler

import (
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/lifelens/internal/db"
	"github.com/lifelens/internal/service"
)

func createTestHabit(t *testing.T, env *handlerEnv, userID uint, name string) uint {
	t.Helper()
	w := serve(env.api.CreateHabit, requestSpec{
		method: http.MethodPost,
		path:   "/api/habits",
		json:   map[string]any{"name": name, "frequency": "daily", "type_tag": "health"},
		userID: userID,
	})
	expectStatus(t, w, http.StatusCreated)
	habit := decodeBody(t, w)["habit"].(map[string]any)
	return uint(habit["id"].(float64))
}

func TestHabitCRUDFlow(t *testing.T) {
	env := setupHandlerTest(t)
	id := createTestHabit(t, env, env.user.ID, "Read")

	w := serve(env.api.ListHabits, requestSpec{path: "/api/habits", userID: env.user.ID})
	expectStatus(t, w, http.StatusOK)
	body := decodeBody(t, w)
	if habits := body["habits"].([]any); len(habits) != 1 {
		t.Fatalf("expected 1 habit, got %d", len(habits))
	}
	if tags := body["type_tags"].([]any); len(tags) != 1 || tags[0] != "health" {
		t.Fatalf("unexpected type tags %v", tags)
	}

	w = serve(env.api.UpdateHabit, requestSpec{
		method: http.MethodPut,
		path:   "/api/habits/1",
		form:   url.Values{"name": {"Read more"}, "frequency": {"weekly"}, "target_count": {"3"}},
		params: idParam(id),
		userID: env.user.ID,
	})
	expectStatus(t, w, http.StatusOK)
	habit := decodeBody(t, w)["habit"].(map[string]any)
	if habit["name"] != "Read more" || habit["target_count"].(float64) != 3 {
		t.Fatalf("unexpected updated habit %v", habit)
	}

	w = serve(env.api.DeleteHabit, requestSpec{method: http.MethodDelete, params: idParam(id), userID: env.user.ID})
	expectStatus(t, w, http.StatusOK)

	w = serve(env.api.GetHabit, requestSpec{params: idParam(id), userID: env.user.ID})
	expectStatus(t, w, http.StatusNotFound)
}

func TestCreateHabitValidation(t *testing.T) {
	env := setupHandlerTest(t)

	w := serve(env.api.CreateHabit, requestSpec{
		method: http.MethodPost,
		json:   map[string]any{"name": " "},
		userID: env.user.ID,
	})
	expectStatus(t, w, http.StatusBadRequest)

	w = serve(env.api.CreateHabit, requestSpec{
		method: http.MethodPost,
		form:   url.Values{"name": {"Run"}, "target_count": {"abc"}},
		userID: env.user.ID,
	})
	expectStatus(t, w, http.StatusBadRequest)
}

func TestToggleHabitAlternates(t *testing.T) {
	env := setupHandlerTest(t)
	id := createTestHabit(t, env, env.user.ID, "Meditate")

	expected := []struct {
		completed bool
		count     float64
		streak    float64
	}{
		{true, 1, 1},
		{false, 0, 0},
		{true, 1, 1},
	}

	for i, want := range expected {
		w := serve(env.api.ToggleHabit, requestSpec{
			method: http.MethodPost,
			params: idParam(id),
			userID: env.user.ID,
		})
		expectStatus(t, w, http.StatusOK)
		body := decodeBody(t, w)
		if body["is_completed"] != want.completed || body["completed_count"].(float64) != want.count {
			t.Fatalf("toggle %d: unexpected body %v", i, body)
		}
		if body["streak"].(float64) != want.streak {
			t.Fatalf("toggle %d: expected streak %v, got %v", i, want.streak, body["streak"])
		}
		if body["date"] != "2025-03-10" {
			t.Fatalf("toggle %d: expected today's date, got %v", i, body["date"])
		}
	}
}

func TestToggleHabitWithDateAndOwnership(t *testing.T) {
	env := setupHandlerTest(t)
	id := createTestHabit(t, env, env.user.ID, "Stretch")

	w := serve(env.api.ToggleHabit, requestSpec{
		method: http.MethodPost,
		form:   url.Values{"date": {"2025-03-08"}},
		params: idParam(id),
		userID: env.user.ID,
	})
	expectStatus(t, w, http.StatusOK)
	if got := decodeBody(t, w)["date"]; got != "2025-03-08" {
		t.Fatalf("expected toggled date 2025-03-08, got %v", got)
	}

	w = serve(env.api.ToggleHabit, requestSpec{
		method: http.MethodPost,
		json:   map[string]any{"date": "03/08/2025"},
		params: idParam(id),
		userID: env.user.ID,
	})
	expectStatus(t, w, http.StatusBadRequest)

	w = serve(env.api.ToggleHabit, requestSpec{
		method: http.MethodPost,
		params: idParam(id),
		userID: env.user.ID + 100,
	})
	expectStatus(t, w, http.StatusNotFound)
}

func TestGetHabitStreak(t *testing.T) {
	env := setupHandlerTest(t)
	id := createTestHabit(t, env, env.user.ID, "Walk")

	logs := service.NewHabitLogService(env.db)
	for offset := 0; offset < 3; offset++ {
		if _, err := logs.Toggle(env.user.ID, id, fixedToday.AddDate(0, 0, -offset)); err != nil {
			t.Fatalf("toggle: %v", err)
		}
	}

	w := serve(env.api.GetHabitStreak, requestSpec{path: "/api/habits/1/streak", params: idParam(id), userID: env.user.ID})
	expectStatus(t, w, http.StatusOK)
	body := decodeBody(t, w)
	if body["streak"].(float64) != 3 || body["max_days"].(float64) != float64(service.DefaultStreakLookbackDays) {
		t.Fatalf("unexpected streak body %v", body)
	}

	// 以两天前为基准只数到最早一天
	w = serve(env.api.GetHabitStreak, requestSpec{path: "/api/habits/1/streak?date=2025-03-08", params: idParam(id), userID: env.user.ID})
	expectStatus(t, w, http.StatusOK)
	if got := decodeBody(t, w)["streak"].(float64); got != 1 {
		t.Fatalf("expected streak 1, got %v", got)
	}

	w = serve(env.api.GetHabitStreak, requestSpec{path: "/api/habits/1/streak?max_days=0", params: idParam(id), userID: env.user.ID})
	expectStatus(t, w, http.StatusBadRequest)

	w = serve(env.api.GetHabitStreak, requestSpec{path: "/api/habits/1/streak?date=bad", params: idParam(id), userID: env.user.ID})
	expectStatus(t, w, http.StatusBadRequest)
}

func TestGetHabitCalendarWeekly(t *testing.T) {
	env := setupHandlerTest(t)
	id := createTestHabit(t, env, env.user.ID, "Journal")

	logs := service.NewHabitLogService(env.db)
	for _, date := range []time.Time{fixedToday, fixedToday.AddDate(0, 0, 1), fixedToday.AddDate(0, 0, 9)} {
		if _, err := logs.Toggle(env.user.ID, id, date); err != nil {
			t.Fatalf("toggle: %v", err)
		}
	}

	w := serve(env.api.GetHabitCalendar, requestSpec{
		path:   "/api/habits/1/calendar?view=weekly&start=2025-03-12",
		params: idParam(id),
		userID: env.user.ID,
	})
	expectStatus(t, w, http.StatusOK)
	body := decodeBody(t, w)

	rng := body["range"].(map[string]any)
	if rng["start"] != "2025-03-10" || rng["end"] != "2025-03-16" {
		t.Fatalf("unexpected range %v", rng)
	}
	if got := len(body["logs"].([]any)); got != 2 {
		t.Fatalf("expected 2 logs in range, got %d", got)
	}
	stats := body["stats"].(map[string]any)
	if stats["completed_count"].(float64) != 2 || stats["target_count"].(float64) != 7 {
		t.Fatalf("unexpected stats %v", stats)
	}
}

func TestResolveRange(t *testing.T) {
	today := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		start     string
		view      string
		wantStart string
		wantEnd   string
	}{
		{name: "monthly default", start: "", view: "monthly", wantStart: "2025-03-01", wantEnd: "2025-03-31"},
		{name: "weekly from sunday", start: "2025-03-16", view: "weekly", wantStart: "2025-03-10", wantEnd: "2025-03-16"},
		{name: "february", start: "2024-02-10", view: "monthly", wantStart: "2024-02-01", wantEnd: "2024-02-29"},
		{name: "invalid start", start: "nope", view: "weekly", wantStart: "2025-03-10", wantEnd: "2025-03-16"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := resolveRange(tt.start, tt.view, today)
			if start.Format(db.DateLayout) != tt.wantStart || end.Format(db.DateLayout) != tt.wantEnd {
				t.Fatalf("expected %s..%s, got %s..%s", tt.wantStart, tt.wantEnd, start.Format(db.DateLayout), end.Format(db.DateLayout))
			}
		})
	}
}

func TestBuildHabitHeatmapPayload(t *testing.T) {
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	entries := []service.HabitHeatmapEntry{
		{LogDate: end, HabitID: 2, HabitName: "walk", HabitType: "health"},
		{LogDate: end, HabitID: 1, HabitName: "Read", HabitType: "mind"},
		{LogDate: start, HabitID: 2, HabitName: "walk", HabitType: "health"},
	}

	payload := buildHabitHeatmapPayload(entries, start, end, time.Time{})

	if payload.Summary.TotalLogs != 3 || payload.Summary.ActiveDays != 2 || payload.Summary.HabitCount != 2 {
		t.Fatalf("unexpected summary %+v", payload.Summary)
	}
	if payload.Days[0].Date != "2025-03-01" || payload.Days[1].Date != "2025-03-10" {
		t.Fatalf("days not sorted: %+v", payload.Days)
	}
	if payload.Days[1].Habits[0].Name != "Read" {
		t.Fatalf("expected habits sorted by name, got %+v", payload.Days[1].Habits)
	}
	if payload.GeneratedAt != "" {
		t.Fatalf("expected empty generated_at for zero time")
	}
}
