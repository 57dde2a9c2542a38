package handler

import (
	"context"
	"time"

	"github.com/lifelens/internal/service"
)

type analyticsProvider interface {
	Weekly(userID uint, today time.Time) (*service.WeeklySnapshot, error)
	Daily(userID uint, day time.Time) (*service.DailySummary, error)
}

type recommendationProvider interface {
	Generate(ctx context.Context, userID uint, today time.Time, refresh bool) (*service.RecommendationResult, error)
}
