package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"firebase.google.com/go/v4/auth"
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubVerifier map[string]string

func (s stubVerifier) VerifyIDToken(_ context.Context, token string) (*auth.Token, error) {
	uid, ok := s[token]
	if !ok {
		return nil, errors.New("token expired")
	}
	return &auth.Token{UID: uid}, nil
}

type stubChecker struct {
	admins map[string]bool
	err    error
}

func (s stubChecker) IsAdmin(_ context.Context, uid string) (bool, error) {
	return s.admins[uid], s.err
}

func protectedRouter(verifier TokenVerifier, checker AdminChecker) *gin.Engine {
	r := gin.New()
	r.GET("/me", FirebaseAuth(verifier), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(ContextUserID))
	})
	r.GET("/admin", FirebaseAuth(verifier), AdminOnly(checker, zap.NewNop()), func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	return r
}

func TestFirebaseAuth(t *testing.T) {
	router := protectedRouter(stubVerifier{"good": "u1"}, stubChecker{})

	tests := []struct {
		name    string
		header  string
		query   string
		upgrade bool
		code    int
		body    string
	}{
		{name: "valid bearer token", header: "Bearer good", code: http.StatusOK, body: "u1"},
		{name: "missing header", code: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic good", code: http.StatusUnauthorized},
		{name: "rejected token", header: "Bearer stale", code: http.StatusUnauthorized},
		{name: "websocket query token", query: "?token=good", upgrade: true, code: http.StatusOK, body: "u1"},
		{name: "query token ignored without upgrade", query: "?token=good", code: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.upgrade {
				req.Header.Set("Upgrade", "websocket")
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.code, w.Code)
			if tt.body != "" {
				assert.Equal(t, tt.body, w.Body.String())
			}
		})
	}
}

func TestAdminOnly(t *testing.T) {
	verifier := stubVerifier{"admin": "a1", "user": "u1"}

	t.Run("admin passes", func(t *testing.T) {
		router := protectedRouter(verifier, stubChecker{admins: map[string]bool{"a1": true}})
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		req.Header.Set("Authorization", "Bearer admin")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("regular user is forbidden", func(t *testing.T) {
		router := protectedRouter(verifier, stubChecker{admins: map[string]bool{"a1": true}})
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		req.Header.Set("Authorization", "Bearer user")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("lookup failure", func(t *testing.T) {
		router := protectedRouter(verifier, stubChecker{err: errors.New("db down")})
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		req.Header.Set("Authorization", "Bearer admin")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestRateLimiter_Allow(t *testing.T) {
	rl := NewRateLimiter()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		ok, remaining := rl.Allow("ip", 3, time.Minute)
		require.True(t, ok)
		assert.Equal(t, 2-i, remaining)
	}
	ok, remaining := rl.Allow("ip", 3, time.Minute)
	assert.False(t, ok)
	assert.Zero(t, remaining)

	// other keys are counted separately
	ok, _ = rl.Allow("other", 3, time.Minute)
	assert.True(t, ok)

	now = now.Add(61 * time.Second)
	ok, remaining = rl.Allow("ip", 3, time.Minute)
	assert.True(t, ok)
	assert.Equal(t, 2, remaining)
}

func TestRateLimiter_Cleanup(t *testing.T) {
	rl := NewRateLimiter()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	rl.Allow("old", 10, time.Minute)
	now = now.Add(20 * time.Minute)
	rl.Allow("fresh", 10, time.Minute)
	rl.Cleanup(10 * time.Minute)

	assert.NotContains(t, rl.visitors, "old")
	assert.Contains(t, rl.visitors, "fresh")
}

func TestRateLimit(t *testing.T) {
	rl := NewRateLimiter()
	r := gin.New()
	r.Use(RateLimit(rl))
	r.POST("/api/v1/me/payment-proof", func(c *gin.Context) { c.Status(http.StatusCreated) })

	var last *httptest.ResponseRecorder
	for i := 0; i < 6; i++ {
		last = httptest.NewRecorder()
		r.ServeHTTP(last, httptest.NewRequest(http.MethodPost, "/api/v1/me/payment-proof", nil))
		if i < 5 {
			require.Equal(t, http.StatusCreated, last.Code, "request %d", i)
		}
	}

	assert.Equal(t, http.StatusTooManyRequests, last.Code)
	assert.Equal(t, "5", last.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "60", last.Header().Get("Retry-After"))
}

func TestRateLimitUpgradeHeaderOnlyExemptsSocket(t *testing.T) {
	rl := NewRateLimiter()
	r := gin.New()
	r.Use(RateLimit(rl))
	r.POST("/api/v1/auth/register", func(c *gin.Context) { c.Status(http.StatusCreated) })
	r.GET(NotificationsSocketPath, func(c *gin.Context) { c.Status(http.StatusOK) })

	limited := 0
	for i := 0; i < 15; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", nil)
		req.Header.Set("Upgrade", "websocket")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code == http.StatusTooManyRequests {
			limited++
		}
	}
	assert.Equal(t, 5, limited)

	for i := 0; i < 250; i++ {
		req := httptest.NewRequest(http.MethodGet, NotificationsSocketPath, nil)
		req.Header.Set("Upgrade", "websocket")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code, "socket connect %d", i)
	}
}

func TestLimitFor(t *testing.T) {
	assert.Equal(t, 10, limitFor(http.MethodPost, "/api/v1/auth/register"))
	assert.Equal(t, 5, limitFor(http.MethodPost, "/api/v1/me/payment-proof"))
	assert.Equal(t, 500, limitFor(http.MethodGet, "/api/v1/admin/users"))
	assert.Equal(t, 200, limitFor(http.MethodGet, "/api/v1/resources"))
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID(), SecurityHeaders())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(ContextRequestID)) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	assert.Equal(t, w.Header().Get("X-Request-ID"), w.Body.String())
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Body.String())
}
