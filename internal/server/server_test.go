package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"chatbridge/config"
	"chatbridge/internal/handler"
	"chatbridge/internal/llm"
	"chatbridge/internal/metrics"
	"chatbridge/internal/repository/repotest"
	"chatbridge/internal/services"
	"chatbridge/internal/transport/httpdto"
	"chatbridge/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingCompleter struct {
	mu    sync.Mutex
	calls [][]llm.Message
	err   error
}

func (r *recordingCompleter) Complete(_ context.Context, messages []llm.Message) (llm.Response, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, append([]llm.Message(nil), messages...))
	if r.err != nil {
		return llm.Response{}, r.err
	}
	return llm.Response{Content: "reply to " + messages[len(messages)-1].Content}, nil
}

type stubDB struct{ err error }

func (s stubDB) HealthCheck(context.Context) error { return s.err }

type testApp struct {
	handler   http.Handler
	users     *repotest.UserRepository
	completer *recordingCompleter
	now       time.Time
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	app := &testApp{
		users:     repotest.NewUserRepository(),
		completer: &recordingCompleter{},
		now:       time.Now(),
	}
	turns := repotest.NewConversationRepository()
	m := metrics.New()

	authService := services.NewAuthService(app.users, "test-secret", services.WithClock(func() time.Time { return app.now }))
	handlers := &Handlers{
		Auth:   handler.NewAuthHandler(authService),
		User:   handler.NewUserHandler(services.NewUserService(app.users)),
		Chat:   handler.NewChatHandler(services.NewChatService(app.users, turns, app.completer, m)),
		Health: handler.NewHealthHandler(stubDB{}),
	}

	srv := New(&config.Config{AppMode: TestMode, AppPort: "0"}, logger.NewNop())
	srv.SetupRoutes(handlers, authService, m, nil)
	app.handler = srv.Handler()
	return app
}

func (a *testApp) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func (a *testApp) register(t *testing.T, email string) string {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/api/register", "", map[string]string{
		"name": "Ann", "email": email, "password": "secret-pw",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var res httpdto.AuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.NotEmpty(t, res.Token)
	return res.Token
}

func TestRegister_DuplicateEmail(t *testing.T) {
	app := newTestApp(t)
	app.register(t, "ann@example.com")

	rec := app.do(t, http.MethodPost, "/api/register", "", map[string]string{
		"name": "Ann", "email": "ann@example.com", "password": "another",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 1, app.users.Len())
}

func TestRegister_MissingFields(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(t, http.MethodPost, "/api/register", "", map[string]string{"email": "ann@example.com"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = app.do(t, http.MethodPost, "/api/register", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogin_SameErrorForUnknownEmailAndWrongPassword(t *testing.T) {
	app := newTestApp(t)
	app.register(t, "ann@example.com")

	wrongPassword := app.do(t, http.MethodPost, "/api/login", "", map[string]string{
		"email": "ann@example.com", "password": "nope",
	})
	unknownEmail := app.do(t, http.MethodPost, "/api/login", "", map[string]string{
		"email": "ghost@example.com", "password": "secret-pw",
	})

	assert.Equal(t, http.StatusBadRequest, wrongPassword.Code)
	assert.Equal(t, http.StatusBadRequest, unknownEmail.Code)
	assert.Equal(t, wrongPassword.Body.String(), unknownEmail.Body.String())

	ok := app.do(t, http.MethodPost, "/api/login", "", map[string]string{
		"email": "ann@example.com", "password": "secret-pw",
	})
	require.Equal(t, http.StatusOK, ok.Code)
	var res httpdto.AuthResponse
	require.NoError(t, json.Unmarshal(ok.Body.Bytes(), &res))
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, "Login successful", res.Message)
}

func TestProtectedRoutes_RequireToken(t *testing.T) {
	app := newTestApp(t)
	token := app.register(t, "ann@example.com")

	for _, tc := range []struct {
		method, path string
		body         any
	}{
		{http.MethodGet, "/api/users", nil},
		{http.MethodPost, "/api/chatbot", map[string]string{"message": "hi"}},
	} {
		assert.Equal(t, http.StatusUnauthorized, app.do(t, tc.method, tc.path, "", tc.body).Code, tc.path)
		assert.Equal(t, http.StatusForbidden, app.do(t, tc.method, tc.path, "garbage", tc.body).Code, tc.path)
		assert.Equal(t, http.StatusOK, app.do(t, tc.method, tc.path, token, tc.body).Code, tc.path)
	}
}

func TestProtectedRoutes_ExpiredToken(t *testing.T) {
	app := newTestApp(t)
	token := app.register(t, "ann@example.com")

	app.now = app.now.Add(59 * time.Minute)
	assert.Equal(t, http.StatusOK, app.do(t, http.MethodGet, "/api/users", token, nil).Code)

	app.now = app.now.Add(2 * time.Minute)
	assert.Equal(t, http.StatusForbidden, app.do(t, http.MethodGet, "/api/users", token, nil).Code)
}

func TestListUsers_OmitsPassword(t *testing.T) {
	app := newTestApp(t)
	token := app.register(t, "ann@example.com")
	app.register(t, "bob@example.com")

	rec := app.do(t, http.MethodGet, "/api/users", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, strings.ToLower(rec.Body.String()), "password")

	var users []httpdto.UserDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &users))
	require.Len(t, users, 2)
	assert.Equal(t, "bob@example.com", users[1].Email)
}

func TestChatbot_HistoryAndSystemRole(t *testing.T) {
	app := newTestApp(t)
	token := app.register(t, "ann@example.com")

	rec := app.do(t, http.MethodPost, "/api/chatbot", token, map[string]string{
		"message": "first", "systemRole": "You are a pirate.",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res httpdto.ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "reply to first", res.Response)

	rec = app.do(t, http.MethodPost, "/api/chatbot", token, map[string]string{"message": "second"})
	require.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, app.completer.calls, 2)
	assert.Equal(t, []llm.Message{
		{Role: "system", Content: "You are a pirate."},
		{Role: "user", Content: "first"},
		{Role: "assistant", Content: "reply to first"},
		{Role: "user", Content: "second"},
	}, app.completer.calls[1])
}

func TestChatbot_UpstreamFailureIs500(t *testing.T) {
	app := newTestApp(t)
	token := app.register(t, "ann@example.com")
	app.completer.err = errors.New("upstream exploded: api key sk-123")

	rec := app.do(t, http.MethodPost, "/api/chatbot", token, map[string]string{"message": "hi"})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "sk-123")
}

func TestChatbot_BlankMessage(t *testing.T) {
	app := newTestApp(t)
	token := app.register(t, "ann@example.com")

	rec := app.do(t, http.MethodPost, "/api/chatbot", token, map[string]string{"message": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, app.completer.calls)
}

func TestMetricsEndpoint(t *testing.T) {
	app := newTestApp(t)
	app.do(t, http.MethodGet, "/api/users", "", nil)

	rec := app.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
	assert.Contains(t, rec.Body.String(), `chatbridge_http_requests_total{method="GET",route="/api/users",status="401"} 1`)
}

func TestPingAndHealth(t *testing.T) {
	app := newTestApp(t)

	assert.Equal(t, http.StatusOK, app.do(t, http.MethodGet, "/ping", "", nil).Code)
	assert.Equal(t, http.StatusOK, app.do(t, http.MethodGet, "/health", "", nil).Code)
}

func TestHealth_DatabaseDown(t *testing.T) {
	srv := New(&config.Config{AppMode: TestMode, AppPort: "0"}, logger.NewNop())
	users := repotest.NewUserRepository()
	authService := services.NewAuthService(users, "test-secret")
	m := metrics.New()
	srv.SetupRoutes(&Handlers{
		Auth:   handler.NewAuthHandler(authService),
		User:   handler.NewUserHandler(services.NewUserService(users)),
		Chat:   handler.NewChatHandler(services.NewChatService(users, repotest.NewConversationRepository(), &recordingCompleter{}, m)),
		Health: handler.NewHealthHandler(stubDB{err: errors.New("no reachable servers")}),
	}, authService, m, nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.NotContains(t, rec.Body.String(), "no reachable servers")
}
