package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/hushwire/go-anonchat-backend/internal/auth"
	"github.com/hushwire/go-anonchat-backend/internal/config"
	"github.com/hushwire/go-anonchat-backend/internal/http/handlers"
	"github.com/hushwire/go-anonchat-backend/internal/repo"
)

// --- test DB helper (pure-Go sqlite, no CGO) ---
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("router_test_%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func testConfig() config.Config {
	return config.Config{
		APIBasePath:      "/api/v1",
		TokenSecret:      "router-test-secret",
		MessageRetention: 14 * 24 * time.Hour,
		MaxMessageRunes:  2000,
		BanThreshold:     3,
		RateRPS:          100,
		RateBurst:        50,
		IdempotencyTTL:   time.Hour,
		OTEL:             config.OTELConfig{ServiceName: "test-svc"},
	}
}

func TestRegisterRoutes_Health_Metrics_Fallbacks_CORS(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterRoutes(r, newTestDB(t), testConfig())

	// /health works
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("GET /health = %d", w.Code)
	}
	// CORS (AllowAllOrigins) → header "*"
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("AllowAllOrigins expected '*', got %q", got)
	}

	// /metrics is wired
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK || w.Body.Len() == 0 {
		t.Fatalf("GET /metrics bad: code=%d len=%d", w.Code, w.Body.Len())
	}

	// NoRoute → 404
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("GET /nope expected 404, got %d", w.Code)
	}

	// NoMethod → 405 (POST /health)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/health", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("POST /health expected 405, got %d", w.Code)
	}
}

func TestRegisterRoutes_APIRequiresToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterRoutes(r, newTestDB(t), testConfig())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/groups/join/ab12cd", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}
}

func TestRegisterRoutes_JoinPostAndHistoryFlow(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	db := newTestDB(t)
	cfg := testConfig()
	RegisterRoutes(r, db, cfg)

	ctx := context.Background()
	if _, err := repo.CreateUser(ctx, db, "u1"); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	g, err := repo.CreateGroup(ctx, db, "room", "AB12CD", "u1")
	if err != nil {
		t.Fatalf("seed group: %v", err)
	}

	tok, err := auth.GenerateToken([]byte(cfg.TokenSecret), "u1", time.Hour)
	if err != nil {
		t.Fatalf("token: %v", err)
	}

	do := func(method, path string, body any) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		if body != nil {
			if err := json.NewEncoder(&buf).Encode(body); err != nil {
				t.Fatalf("encode body: %v", err)
			}
		}
		req := httptest.NewRequest(method, path, &buf)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+tok)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	// Join by code assigns a handle.
	w := do(http.MethodPost, "/api/v1/groups/join/ab12cd", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("join = %d: %s", w.Code, w.Body.String())
	}
	var join handlers.JoinGroupResponse
	if err := json.Unmarshal(w.Body.Bytes(), &join); err != nil {
		t.Fatalf("decode join: %v", err)
	}
	if join.GroupID != g.ID || join.Handle == "" {
		t.Fatalf("unexpected join response: %+v", join)
	}

	// Joining again is idempotent: same handle back.
	w = do(http.MethodPost, "/api/v1/groups/join/AB12CD", nil)
	var again handlers.JoinGroupResponse
	_ = json.Unmarshal(w.Body.Bytes(), &again)
	if again.Handle != join.Handle {
		t.Fatalf("second join changed handle: %q vs %q", again.Handle, join.Handle)
	}

	// Post a message over REST.
	w = do(http.MethodPost, "/api/v1/groups/"+g.ID+"/messages", map[string]string{"text": "hello"})
	if w.Code != http.StatusCreated {
		t.Fatalf("post = %d: %s", w.Code, w.Body.String())
	}

	// History shows the message under the handle.
	w = do(http.MethodGet, "/api/v1/groups/"+g.ID+"/messages", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("history = %d: %s", w.Code, w.Body.String())
	}
	var list handlers.ListMessagesResponse
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(list.Messages) != 1 || list.Messages[0].Handle != join.Handle || list.Messages[0].Text != "hello" {
		t.Fatalf("unexpected history: %+v", list.Messages)
	}
}
