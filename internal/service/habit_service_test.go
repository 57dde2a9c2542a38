package service

import (
	"errors"
	"sync"
	"testing"

	"github.com/lifelens/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHabitServiceCreateAndList(t *testing.T) {
	gdb := setupServiceTestDB(t)
	svc := NewHabitService(gdb)

	habit, err := svc.Create(1, HabitInput{
		Name:        "晨跑",
		Description: "每天 5 公里",
		Frequency:   "Daily",
		TargetCount: 1,
		TypeTag:     "健康",
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if habit.ID == 0 {
		t.Fatal("expected habit to have ID")
	}
	if habit.Frequency != "daily" {
		t.Fatalf("expected normalized frequency, got %s", habit.Frequency)
	}

	if _, err := svc.Create(2, HabitInput{Name: "阅读"}); err != nil {
		t.Fatalf("Create for other user returned error: %v", err)
	}

	habits, err := svc.List(1, HabitFilter{})
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(habits) != 1 {
		t.Fatalf("expected 1 habit for user 1, got %d", len(habits))
	}

	// 不合法频率
	if _, err := svc.Create(1, HabitInput{Name: "阅读", Frequency: "yearly"}); !IsValidationError(err) {
		t.Fatalf("expected validation error for invalid frequency, got %v", err)
	}

	// 名称为空
	if _, err := svc.Create(1, HabitInput{Name: "  "}); !IsValidationError(err) {
		t.Fatalf("expected validation error for empty name, got %v", err)
	}
}

func TestHabitServiceScopesByUser(t *testing.T) {
	gdb := setupServiceTestDB(t)
	svc := NewHabitService(gdb)

	habit := mustCreateHabit(t, svc, 1, "冥想")

	if _, err := svc.Get(2, habit.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found for other user, got %v", err)
	}
	if _, err := svc.Update(2, habit.ID, HabitInput{Name: "偷改"}); !errors.Is(err, ErrHabitNotFound) {
		t.Fatalf("expected ErrHabitNotFound on update by other user, got %v", err)
	}
	if err := svc.Delete(2, habit.ID); !errors.Is(err, ErrHabitNotFound) {
		t.Fatalf("expected ErrHabitNotFound on delete by other user, got %v", err)
	}

	updated, err := svc.Update(1, habit.ID, HabitInput{Name: "冥想训练", Frequency: "weekly", TargetCount: 3})
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if updated.Name != "冥想训练" || updated.TargetCount != 3 {
		t.Fatalf("unexpected updated habit: %+v", updated)
	}
}

func TestHabitDeleteRemovesLogs(t *testing.T) {
	gdb := setupServiceTestDB(t)
	habits := NewHabitService(gdb)
	logs := NewHabitLogService(gdb)

	habit := mustCreateHabit(t, habits, 1, "写日记")
	if _, err := logs.Toggle(1, habit.ID, day(2024, 5, 1)); err != nil {
		t.Fatalf("Toggle returned error: %v", err)
	}

	if err := habits.Delete(1, habit.ID); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}

	count, err := habits.Count(1)
	if err != nil {
		t.Fatalf("Count returned error: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 habits after delete, got %d", count)
	}

	found, err := logs.Find(1, habit.ID, day(2024, 5, 1))
	if err != nil {
		t.Fatalf("Find returned error: %v", err)
	}
	if found != nil {
		t.Fatal("expected habit logs to be removed with the habit")
	}
}

func TestToggleAlternatesState(t *testing.T) {
	gdb := setupServiceTestDB(t)
	habit := mustCreateHabit(t, NewHabitService(gdb), 1, "喝水")
	logs := NewHabitLogService(gdb)

	date := day(2024, 5, 1)
	wantCompleted := []bool{true, false, true, false, true}
	wantCount := []int{1, 0, 1, 0, 1}

	for i := range wantCompleted {
		result, err := logs.Toggle(1, habit.ID, date)
		require.NoError(t, err)
		assert.Equal(t, wantCompleted[i], result.IsCompleted, "toggle #%d state", i+1)
		assert.Equal(t, wantCount[i], result.CompletedCount, "toggle #%d count", i+1)
		assert.True(t, result.Date.Equal(date))
	}

	record, err := logs.Find(1, habit.ID, date)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.True(t, record.IsCompleted)
	assert.Equal(t, 1, record.CompletedCount)
}

func TestToggleConcurrentRequestsStayConsistent(t *testing.T) {
	gdb := setupFileServiceTestDB(t)
	habit := mustCreateHabit(t, NewHabitService(gdb), 1, "冥想")
	logs := NewHabitLogService(gdb)
	date := day(2024, 5, 3)

	const workers = 40
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		errs      []error
		completed int
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := logs.Toggle(1, habit.ID, date)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			if result.IsCompleted {
				completed++
			}
		}()
	}
	wg.Wait()

	require.Empty(t, errs)
	// 每次切换都基于上一次的结果，偶数次后回到未完成
	assert.Equal(t, workers/2, completed)

	var rows int64
	require.NoError(t, gdb.Model(&db.HabitLog{}).Where("habit_id = ?", habit.ID).Count(&rows).Error)
	assert.EqualValues(t, 1, rows)

	record, err := logs.Find(1, habit.ID, date)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.False(t, record.IsCompleted)
	assert.Equal(t, 0, record.CompletedCount)
}

func TestToggleNeverGoesNegative(t *testing.T) {
	gdb := setupServiceTestDB(t)
	habit := mustCreateHabit(t, NewHabitService(gdb), 1, "拉伸")
	logs := NewHabitLogService(gdb)

	// 已完成但计数为 0 的异常数据，取消时应停在 0
	date := day(2024, 5, 2)
	seedHabitLog(t, gdb, habit, date, true)
	require.NoError(t, gdb.Table("habit_logs").Where("habit_id = ?", habit.ID).Update("completed_count", 0).Error)

	result, err := logs.Toggle(1, habit.ID, date)
	require.NoError(t, err)
	assert.False(t, result.IsCompleted)
	assert.Equal(t, 0, result.CompletedCount)
}

func TestToggleRejectsForeignHabit(t *testing.T) {
	gdb := setupServiceTestDB(t)
	habit := mustCreateHabit(t, NewHabitService(gdb), 1, "跑步")
	logs := NewHabitLogService(gdb)

	_, err := logs.Toggle(2, habit.ID, day(2024, 5, 1))
	require.ErrorIs(t, err, ErrHabitNotFound)

	record, err := logs.Find(2, habit.ID, day(2024, 5, 1))
	require.NoError(t, err)
	assert.Nil(t, record, "failed toggle must not leave a partial row")
}

func TestComputeStreak(t *testing.T) {
	today := day(2024, 6, 10)

	tests := []struct {
		name      string
		completed []int // 距今天数
		missed    []int // 有记录但未完成
		maxDays   int
		want      int
	}{
		{name: "no entries", want: 0},
		{name: "only uncompleted entries", missed: []int{0, 1}, want: 0},
		{name: "run ending today", completed: []int{0, 1, 2}, missed: []int{3}, want: 3},
		{name: "run ending today without entry before", completed: []int{0, 1, 2, 3}, want: 4},
		{name: "anchor two days ago", completed: []int{2}, want: 1},
		{name: "gap breaks run", completed: []int{5, 3}, want: 1},
		{name: "gap with false entry", completed: []int{5, 3}, missed: []int{4}, want: 1},
		{name: "anchor outside lookback", completed: []int{10, 11}, maxDays: 7, want: 0},
		{name: "run extends past lookback", completed: []int{6, 7, 8}, maxDays: 7, want: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gdb := setupServiceTestDB(t)
			habit := mustCreateHabit(t, NewHabitService(gdb), 1, "冥想")
			for _, offset := range tt.completed {
				seedHabitLog(t, gdb, habit, today.AddDate(0, 0, -offset), true)
			}
			for _, offset := range tt.missed {
				seedHabitLog(t, gdb, habit, today.AddDate(0, 0, -offset), false)
			}

			got, err := NewHabitLogService(gdb).ComputeStreak(1, habit.ID, today, tt.maxDays)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestComputeStreakIgnoresFutureEntries(t *testing.T) {
	gdb := setupServiceTestDB(t)
	habit := mustCreateHabit(t, NewHabitService(gdb), 1, "阅读")
	today := day(2024, 6, 10)

	seedHabitLog(t, gdb, habit, today.AddDate(0, 0, 1), true)
	seedHabitLog(t, gdb, habit, today, true)

	got, err := NewHabitLogService(gdb).ComputeStreak(1, habit.ID, today, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, got)
}

func TestLongestStreakAcrossHabits(t *testing.T) {
	gdb := setupServiceTestDB(t)
	habits := NewHabitService(gdb)
	today := day(2024, 6, 10)

	a := mustCreateHabit(t, habits, 1, "A")
	b := mustCreateHabit(t, habits, 1, "B")
	seedHabitLog(t, gdb, a, today, true)
	for i := 0; i < 4; i++ {
		seedHabitLog(t, gdb, b, today.AddDate(0, 0, -i-1), true)
	}

	longest, err := NewHabitLogService(gdb).LongestStreak(1, today)
	require.NoError(t, err)
	assert.Equal(t, 4, longest)
}

func TestCountCompletedAndCompletedByDay(t *testing.T) {
	gdb := setupServiceTestDB(t)
	habits := NewHabitService(gdb)
	today := day(2024, 6, 10)

	var created []*db.Habit
	for _, name := range []string{"A", "B", "C", "D"} {
		created = append(created, mustCreateHabit(t, habits, 1, name))
	}
	for _, habit := range created[:3] {
		seedHabitLog(t, gdb, habit, today, true)
	}
	seedHabitLog(t, gdb, created[3], today, false)
	seedHabitLog(t, gdb, created[0], today.AddDate(0, 0, -1), true)

	logs := NewHabitLogService(gdb)

	completed, err := logs.CountCompleted(1, today)
	require.NoError(t, err)
	assert.Equal(t, 3, completed)

	byDay, err := logs.CompletedByDay(1, today.AddDate(0, 0, -6), today)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"2024-06-10": 3, "2024-06-09": 1}, byDay)

	// 删除的习惯不再计入
	require.NoError(t, habits.Delete(1, created[0].ID))
	completed, err = logs.CountCompleted(1, today)
	require.NoError(t, err)
	assert.Equal(t, 2, completed)
}
