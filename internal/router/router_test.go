package router

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/lifelens/internal/db"
	"github.com/lifelens/internal/handler"
	"github.com/lifelens/internal/logger"
	"github.com/lifelens/internal/observability"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var routerDBCounter atomic.Int64

func setupRouterTest(t *testing.T, metrics *observability.Metrics) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger.Discard()

	dsn := fmt.Sprintf("file:router-%d?mode=memory&cache=shared", routerDBCounter.Add(1))
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	})

	return SetupRouter(gdb, Options{
		SessionSecret: "test-secret",
		API:           handler.Options{Metrics: metrics},
	})
}

func TestHealthzReportsDatabaseUp(t *testing.T) {
	r := setupRouterTest(t, nil)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"database":"up"`) {
		t.Fatalf("unexpected body %q", rr.Body.String())
	}
}

func TestAPIRequiresSession(t *testing.T) {
	r := setupRouterTest(t, nil)

	for _, path := range []string{"/api/me", "/api/habits", "/api/analytics/weekly", "/api/admin/settings"} {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", path, rr.Code)
		}
	}
}

func TestRequestLoggerSetsRequestID(t *testing.T) {
	r := setupRouterTest(t, nil)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/ping", nil))
	if rr.Header().Get(requestIDHeader) == "" {
		t.Fatalf("expected generated request id header")
	}

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	if got := rr.Header().Get(requestIDHeader); got != "abc-123" {
		t.Fatalf("expected incoming request id to be echoed, got %q", got)
	}
}

func TestMetricsEndpointOnlyWhenEnabled(t *testing.T) {
	r := setupRouterTest(t, nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 without metrics, got %d", rr.Code)
	}

	r = setupRouterTest(t, observability.NewMetrics())
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `route="/healthz"`) {
		t.Fatalf("expected healthz request to be counted, got:\n%s", rr.Body.String())
	}
}
