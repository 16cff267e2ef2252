package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"kickride/internal/handler"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setupTestRouter(redisErr error) *gin.Engine {
	return NewRouter(RouterDeps{
		RideHandler:      handler.NewRideHandler(nil),
		KickboardHandler: handler.NewKickboardHandler(nil),
		WebhookHandler:   handler.NewWebhookHandler(nil),
		RootHandler: handler.NewRootHandler("test", map[string]handler.Pinger{
			"postgres": handler.PingFunc(func(context.Context) error { return nil }),
			"redis":    handler.PingFunc(func(context.Context) error { return redisErr }),
		}),
		InternalKey:  "internal-secret",
		WebhookToken: "hook-secret",
	})
}

func TestRouter_Unauthenticated(t *testing.T) {
	t.Parallel()

	router := setupTestRouter(nil)

	tests := []struct {
		method     string
		path       string
		wantStatus int
		wantOpcode int
	}{
		{http.MethodGet, "/current", http.StatusUnauthorized, 304},
		{http.MethodPost, "/current", http.StatusUnauthorized, 304},
		{http.MethodGet, "/histories", http.StatusUnauthorized, 304},
		{http.MethodGet, "/internal/rides", http.StatusUnauthorized, 301},
		{http.MethodPost, "/webhook/terminate", http.StatusForbidden, 303},
		{http.MethodGet, "/does/not/exist", http.StatusNotFound, 307},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))

			if w.Code != tt.wantStatus {
				t.Errorf("expected %d, got %d: %s", tt.wantStatus, w.Code, w.Body.String())
			}
			var body struct {
				Opcode int `json:"opcode"`
			}
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if body.Opcode != tt.wantOpcode {
				t.Errorf("expected opcode %d, got %d", tt.wantOpcode, body.Opcode)
			}
		})
	}
}

func TestRouter_IndexAndHealth(t *testing.T) {
	t.Parallel()

	router := setupTestRouter(nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	var index map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &index)
	if w.Code != http.StatusOK || index["opcode"] != float64(0) || index["mode"] != "test" {
		t.Errorf("unexpected index %d %v", w.Code, index)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Errorf("expected healthy, got %d", w.Code)
	}

	unhealthy := setupTestRouter(errors.New("connection refused"))
	w = httptest.NewRecorder()
	unhealthy.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 when redis is down, got %d", w.Code)
	}
}
