package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func idemRouter(lookup IdempotencyLookup) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", "u1")
		c.Next()
	})
	r.POST("/groups/:id/messages", IdempotencyValidator(IdempotencyOptions{}, lookup), func(c *gin.Context) {
		key, _ := GetIdempotencyKey(c)
		c.JSON(http.StatusOK, gin.H{"key": key, "replay": IsReplay(c)})
	})
	return r
}

func postWithKey(r *gin.Engine, key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/groups/g1/messages", nil)
	if key != "" {
		req.Header.Set(HeaderIdempotencyKey, key)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestIdempotencyValidator_NoHeaderIsNoOp(t *testing.T) {
	r := idemRouter(nil)
	w := postWithKey(r, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"replay":false`) {
		t.Fatalf("unexpected body %s", w.Body.String())
	}
}

func TestIdempotencyValidator_MalformedKeyRejected(t *testing.T) {
	r := idemRouter(nil)

	if w := postWithKey(r, "bad key with spaces"); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for spaces, got %d", w.Code)
	}
	if w := postWithKey(r, strings.Repeat("a", 201)); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for overlong key, got %d", w.Code)
	}
}

func TestIdempotencyValidator_DetectsReplay(t *testing.T) {
	var gotUser, gotGroup, gotKey string
	r := idemRouter(func(_ context.Context, userID, groupID, key string, _ time.Time) (bool, error) {
		gotUser, gotGroup, gotKey = userID, groupID, key
		return true, nil
	})

	w := postWithKey(r, "key-1")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"replay":true`) {
		t.Fatalf("replay not flagged: %s", w.Body.String())
	}
	if gotUser != "u1" || gotGroup != "g1" || gotKey != "key-1" {
		t.Fatalf("lookup saw %q %q %q", gotUser, gotGroup, gotKey)
	}
}

func TestIdempotencyValidator_LookupErrorDoesNotBlock(t *testing.T) {
	r := idemRouter(func(_ context.Context, _, _, _ string, _ time.Time) (bool, error) {
		return false, errors.New("store down")
	})

	w := postWithKey(r, "key-1")
	if w.Code != http.StatusOK {
		t.Fatalf("lookup failure must not block the request, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"replay":false`) {
		t.Fatalf("failed lookup must not flag replay: %s", w.Body.String())
	}
}
