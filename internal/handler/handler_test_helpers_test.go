package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lifelens/internal/db"
	applogger "github.com/lifelens/internal/logger"
	"github.com/lifelens/internal/service"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var handlerDBCounter atomic.Int64

// fixedToday 为 2025-03-10（周一）
var fixedToday = time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)

type stubCompleter struct {
	content string
	err     error
	calls   int
}

func (s *stubCompleter) Complete(_ context.Context, _ service.ChatRequest) (service.ChatResponse, error) {
	s.calls++
	if s.err != nil {
		return service.ChatResponse{}, s.err
	}
	return service.ChatResponse{Content: s.content}, nil
}

type handlerEnv struct {
	api    *API
	db     *gorm.DB
	user   *db.User
	client *stubCompleter
}

func setupHandlerTest(t *testing.T) *handlerEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	applogger.Discard()

	dsn := fmt.Sprintf("file:handler-%d?mode=memory&cache=shared", handlerDBCounter.Add(1))
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	})

	user, err := service.NewUserService(gdb).Register(service.SignupInput{
		Name:     "Tester",
		Username: "tester",
		Password: "secret",
		Confirm:  "secret",
	})
	if err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}

	client := &stubCompleter{}
	api := NewAPI(gdb, Options{ChatClient: client})
	api.now = func() time.Time { return fixedToday }

	return &handlerEnv{api: api, db: gdb, user: user, client: client}
}

type requestSpec struct {
	method string
	path   string
	json   any
	form   url.Values
	params gin.Params
	userID uint
}

// serve 直接调用 handler，并以 userID 模拟已登录用户
func serve(h gin.HandlerFunc, spec requestSpec) *httptest.ResponseRecorder {
	var body io.Reader
	contentType := ""
	switch {
	case spec.json != nil:
		raw, _ := json.Marshal(spec.json)
		body = bytes.NewReader(raw)
		contentType = "application/json"
	case spec.form != nil:
		body = strings.NewReader(spec.form.Encode())
		contentType = "application/x-www-form-urlencoded"
	}

	method := spec.method
	if method == "" {
		method = http.MethodGet
	}
	path := spec.path
	if path == "" {
		path = "/"
	}
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req
	c.Params = spec.params
	if spec.userID != 0 {
		c.Set(contextUserIDKey, spec.userID)
	}

	h(c)
	return w
}

func idParam(id uint) gin.Params {
	return gin.Params{gin.Param{Key: "id", Value: fmt.Sprint(id)}}
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode response %q: %v", w.Body.String(), err)
	}
	return payload
}

func expectStatus(t *testing.T, w *httptest.ResponseRecorder, status int) {
	t.Helper()
	if w.Code != status {
		t.Fatalf("expected status %d, got %d: %s", status, w.Code, w.Body.String())
	}
}
