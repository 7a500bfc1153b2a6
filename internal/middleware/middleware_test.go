package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"chatbridge/internal/redis"
	"chatbridge/internal/repository/repotest"
	"chatbridge/internal/services"
	"chatbridge/internal/transport/httpdto"
	"chatbridge/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newAuthEngine(t *testing.T) (*gin.Engine, string) {
	t.Helper()
	svc := services.NewAuthService(repotest.NewUserRepository(), "secret")
	res, err := svc.Register(context.Background(), services.RegisterInput{Name: "Ann", Email: "ann@example.com", Password: "pw"})
	require.NoError(t, err)

	r := gin.New()
	r.GET("/private", AuthMiddleware(svc), func(c *gin.Context) {
		userID, ok := services.UserIDFromContext(c.Request.Context())
		if !ok {
			c.Status(http.StatusTeapot)
			return
		}
		c.String(http.StatusOK, userID)
	})
	return r, res.Token
}

func doRequest(r http.Handler, method, path, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestAuthMiddleware(t *testing.T) {
	r, token := newAuthEngine(t)

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + token, http.StatusUnauthorized},
		{"bearer without token", "Bearer ", http.StatusUnauthorized},
		{"malformed token", "Bearer not-a-token", http.StatusForbidden},
		{"valid token", "Bearer " + token, http.StatusOK},
		{"lowercase scheme", "bearer " + token, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doRequest(r, http.MethodGet, "/private", tc.header)
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestAuthMiddleware_ErrorBody(t *testing.T) {
	r, _ := newAuthEngine(t)

	rec := doRequest(r, http.MethodGet, "/private", "Bearer x.y.z")
	require.Equal(t, http.StatusForbidden, rec.Code)

	var body httpdto.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "FORBIDDEN", body.Code)
	assert.NotEmpty(t, body.Error)
}

type fakeLimiter struct {
	allowed bool
	err     error
	keys    []string
}

func (f *fakeLimiter) result() (*redis.RateLimitResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	remaining := 0
	if f.allowed {
		remaining = 3
	}
	return &redis.RateLimitResult{Allowed: f.allowed, Remaining: remaining, ResetIn: 30 * time.Second, Limit: 4}, nil
}

func (f *fakeLimiter) AllowAuth(_ context.Context, ip string) (*redis.RateLimitResult, error) {
	f.keys = append(f.keys, "auth:"+ip)
	return f.result()
}

func (f *fakeLimiter) AllowChat(_ context.Context, userID string) (*redis.RateLimitResult, error) {
	f.keys = append(f.keys, "chat:"+userID)
	return f.result()
}

type fakeRecorder struct{ routes []string }

func (f *fakeRecorder) RateLimitHit(route string) { f.routes = append(f.routes, route) }

func TestAuthRateLimitMiddleware(t *testing.T) {
	limiter := &fakeLimiter{allowed: true}
	recorder := &fakeRecorder{}
	r := gin.New()
	r.POST("/api/login", AuthRateLimitMiddleware(limiter, recorder), func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := doRequest(r, http.MethodPost, "/api/login", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "3", rec.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, "30", rec.Header().Get("X-RateLimit-Reset"))

	limiter.allowed = false
	rec = doRequest(r, http.MethodPost, "/api/login", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, []string{"/api/login"}, recorder.routes)
}

func TestChatRateLimitMiddleware_UsesUserID(t *testing.T) {
	limiter := &fakeLimiter{allowed: true}
	r := gin.New()
	r.POST("/chat", func(c *gin.Context) {
		c.Request = c.Request.WithContext(services.WithUserContext(c.Request.Context(), "u-42"))
		c.Next()
	}, ChatRateLimitMiddleware(limiter, nil), func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := doRequest(r, http.MethodPost, "/chat", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"chat:u-42"}, limiter.keys)
}

func TestRateLimitMiddleware_BackendError(t *testing.T) {
	limiter := &fakeLimiter{err: errors.New("redis down")}
	r := gin.New()
	r.Use(ErrorHandler(logger.NewNop()))
	r.POST("/api/register", AuthRateLimitMiddleware(limiter, nil), func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := doRequest(r, http.MethodPost, "/api/register", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "redis down")
}

func TestRequestIDMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/", func(c *gin.Context) {
		id, _ := c.Request.Context().Value(logger.RequestIdKey).(string)
		c.String(http.StatusOK, id)
	})

	rec := doRequest(r, http.MethodGet, "/", "")
	generated := rec.Header().Get("X-Request-Id")
	assert.Len(t, generated, 32)
	assert.Equal(t, generated, rec.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-Id", "abc")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, "abc", rec.Header().Get("X-Request-Id"))
}

func TestErrorHandler_HidesDetails(t *testing.T) {
	r := gin.New()
	r.Use(ErrorHandler(logger.NewNop()))
	r.GET("/", func(c *gin.Context) {
		_ = c.Error(errors.New("mongo: connection refused"))
	})

	rec := doRequest(r, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "mongo")
}

func TestRecovery(t *testing.T) {
	r := gin.New()
	r.Use(Recovery(logger.NewNop()))
	r.GET("/", func(c *gin.Context) { panic("boom") })

	rec := doRequest(r, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Internal server error")
}

type fakeObserver struct {
	routes   []string
	statuses []int
}

func (f *fakeObserver) ObserveRequest(_, route string, status int, _ time.Duration) {
	f.routes = append(f.routes, route)
	f.statuses = append(f.statuses, status)
}

func TestMetricsMiddleware(t *testing.T) {
	obs := &fakeObserver{}
	r := gin.New()
	r.Use(MetricsMiddleware(obs))
	r.GET("/users/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	doRequest(r, http.MethodGet, "/users/123", "")
	doRequest(r, http.MethodGet, "/nowhere", "")

	assert.Equal(t, []string{"/users/:id", "unmatched"}, obs.routes)
	assert.Equal(t, []int{http.StatusNoContent, http.StatusNotFound}, obs.statuses)
}
