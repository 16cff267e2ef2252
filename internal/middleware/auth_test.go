package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"kickride/internal/coreservice"
	"kickride/internal/domain"
)

const testInternalKey = "internal-secret"

func signToken(t *testing.T, iat, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   coreservice.InternalSubject,
		Issuer:    "https://accounts.example.com",
		Audience:  jwt.ClaimStrings{"ops@hikick.kr"},
		IssuedAt:  jwt.NewNumericDate(iat),
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	signed, err := token.SignedString([]byte(testInternalKey))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func setupRiderRouter(auth *MockAuthorizer, cache *MockSessionCache) *gin.Engine {
	router := gin.New()
	router.Use(renderErrors())
	if cache == nil {
		// A typed nil would defeat the nil check inside RiderAuth.
		router.GET("/me", RiderAuth(auth, nil, time.Minute), riderEcho)
		return router
	}
	router.GET("/me", RiderAuth(auth, cache, time.Minute), riderEcho)
	return router
}

func riderEcho(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"opcode": 0, "userId": RiderFrom(c).UserID})
}

func getWithAuth(router *gin.Engine, path, authorization string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	router.ServeHTTP(w, req)
	return w
}

func TestRiderAuth(t *testing.T) {
	t.Parallel()

	auth := NewMockAuthorizer()
	auth.sessions["session-1"] = &domain.Rider{UserID: "user-1"}
	router := setupRiderRouter(auth, nil)

	tests := []struct {
		name          string
		authorization string
		wantStatus    int
		wantOpcode    int
	}{
		{"valid session", "Bearer session-1", http.StatusOK, 0},
		{"missing header", "", http.StatusUnauthorized, 304},
		{"wrong scheme", "Basic session-1", http.StatusUnauthorized, 304},
		{"unknown session", "Bearer session-2", http.StatusUnauthorized, 304},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := getWithAuth(router, "/me", tt.authorization)
			if w.Code != tt.wantStatus {
				t.Errorf("expected %d, got %d", tt.wantStatus, w.Code)
			}
			if got := opcodeOf(w); got != tt.wantOpcode {
				t.Errorf("expected opcode %d, got %d", tt.wantOpcode, got)
			}
		})
	}
}

func TestRiderAuth_UsesSessionCache(t *testing.T) {
	t.Parallel()

	auth := NewMockAuthorizer()
	auth.sessions["session-1"] = &domain.Rider{UserID: "user-1"}
	cache := NewMockSessionCache()
	router := setupRiderRouter(auth, cache)

	for i := 0; i < 3; i++ {
		if w := getWithAuth(router, "/me", "Bearer session-1"); w.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, w.Code)
		}
	}

	if auth.CallCount != 1 {
		t.Errorf("expected accounts to be asked once, got %d", auth.CallCount)
	}
	if cache.SetCount != 1 {
		t.Errorf("expected one cache write, got %d", cache.SetCount)
	}
}

func TestInternalAuth(t *testing.T) {
	t.Parallel()

	router := gin.New()
	router.Use(renderErrors())
	router.GET("/internal", InternalAuth(testInternalKey), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"opcode": 0, "aud": CallerFrom(c).Audience})
	})

	now := time.Now()
	valid := signToken(t, now, now.Add(time.Hour))

	tests := []struct {
		name          string
		path          string
		authorization string
		wantStatus    int
		wantOpcode    int
	}{
		{"bearer token", "/internal", "Bearer " + valid, http.StatusOK, 0},
		{"query token", "/internal?token=" + valid, "", http.StatusOK, 0},
		{"missing token", "/internal", "", http.StatusUnauthorized, 301},
		{"garbage token", "/internal", "Bearer not-a-jwt", http.StatusUnauthorized, 301},
		{"expired token", "/internal", "Bearer " + signToken(t, now.Add(-2*time.Hour), now.Add(-time.Hour)), http.StatusUnauthorized, 302},
		{"too long lifetime", "/internal", "Bearer " + signToken(t, now, now.Add(7*time.Hour)), http.StatusUnauthorized, 302},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := getWithAuth(router, tt.path, tt.authorization)
			if w.Code != tt.wantStatus {
				t.Errorf("expected %d, got %d: %s", tt.wantStatus, w.Code, w.Body.String())
			}
			if got := opcodeOf(w); got != tt.wantOpcode {
				t.Errorf("expected opcode %d, got %d", tt.wantOpcode, got)
			}
		})
	}
}

func TestWebhookAuth(t *testing.T) {
	t.Parallel()

	ok := func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"opcode": 0}) }

	router := gin.New()
	router.Use(renderErrors())
	router.POST("/guarded", WebhookAuth("hook-secret"), ok)
	router.POST("/open", WebhookAuth(""), ok)

	post := func(path, token string) int {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, path, nil)
		if token != "" {
			req.Header.Set("X-Webhook-Token", token)
		}
		router.ServeHTTP(w, req)
		return w.Code
	}

	if code := post("/guarded", "hook-secret"); code != http.StatusOK {
		t.Errorf("expected 200 with the right token, got %d", code)
	}
	if code := post("/guarded", "wrong"); code != http.StatusForbidden {
		t.Errorf("expected 403 with a wrong token, got %d", code)
	}
	if code := post("/open", ""); code != http.StatusOK {
		t.Errorf("expected unguarded webhook to pass, got %d", code)
	}
}
