package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/oksasatya/redis-task-tracker/config"
	"github.com/oksasatya/redis-task-tracker/internal/container"
	"github.com/oksasatya/redis-task-tracker/pkg/helpers"
)

type envelope[T any] struct {
	Status    int               `json:"status"`
	RequestID string            `json:"request_id"`
	Success   bool              `json:"success"`
	Message   string            `json:"message"`
	Data      T                 `json:"data"`
	Error     map[string]string `json:"error"`
}

type authData struct {
	Token string `json:"token"`
	User  struct {
		ID    int64  `json:"id"`
		Email string `json:"email"`
		Name  string `json:"name"`
	} `json:"user"`
}

type taskData struct {
	ID        int64  `json:"id"`
	UserID    int64  `json:"user_id"`
	Title     string `json:"title"`
	Category  string `json:"category"`
	Completed bool   `json:"completed"`
}

type testServer struct {
	t   *testing.T
	mr  *miniredis.Miniredis
	h   http.Handler
	jwt *helpers.JWTManager
}

func newTestServer(t *testing.T, mutate ...func(*config.Config)) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	helpers.BcryptCost = bcrypt.MinCost

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := &config.Config{
		AppName:            "task-tracker-test",
		Env:                "test",
		AppURL:             "http://localhost:8080",
		JWTSecret:          "test-secret",
		JWTTTL:             24 * time.Hour,
		JWTRevocationTTL:   24 * time.Hour,
		TaskTTL:            30 * 24 * time.Hour,
		AuthRateLimit:      100,
		EventsPollInterval: 10 * time.Millisecond,
	}
	for _, m := range mutate {
		m(cfg)
	}
	jwt := helpers.NewJWTManager(cfg.JWTSecret, cfg.AppName, cfg.JWTTTL)

	container.SetConfig(cfg)
	container.SetLogger(helpers.NewDiscardLogger())
	container.SetRedis(rdb)
	container.SetJWT(jwt)

	return &testServer{t: t, mr: mr, h: NewEngine(), jwt: jwt}
}

func (s *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) envelope[T] {
	t.Helper()
	var env envelope[T]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

func (s *testServer) register(email, password, name string) authData {
	s.t.Helper()
	w := s.do(http.MethodPost, "/api/auth/register", "", gin.H{"email": email, "password": password, "name": name})
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())
	return decode[authData](s.t, w).Data
}

func (s *testServer) createTask(token string, body gin.H) taskData {
	s.t.Helper()
	w := s.do(http.MethodPost, "/api/tasks/create", token, body)
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())
	return decode[taskData](s.t, w).Data
}

func taskPath(id int64, suffix string) string {
	return "/api/tasks/" + strconv.FormatInt(id, 10) + suffix
}

func TestTaskLifecycle(t *testing.T) {
	s := newTestServer(t)

	reg := s.register("a@x.com", "secret1", "A")
	require.NotEmpty(t, reg.Token)
	assert.Equal(t, "a@x.com", reg.User.Email)

	w := s.do(http.MethodPost, "/api/auth/login", "", gin.H{"email": "a@x.com", "password": "secret1"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	login := decode[authData](t, w).Data
	claims, err := s.jwt.Parse(login.Token)
	require.NoError(t, err)
	assert.Equal(t, strconv.FormatInt(reg.User.ID, 10), claims.Subject)

	task := s.createTask(login.Token, gin.H{"title": "T", "description": "D", "category": "Physics"})
	assert.False(t, task.Completed)
	assert.Equal(t, reg.User.ID, task.UserID)

	w = s.do(http.MethodPut, taskPath(task.ID, "/toggle"), login.Token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, decode[taskData](t, w).Data.Completed)

	w = s.do(http.MethodGet, "/api/tasks", login.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[[]taskData](t, w).Data
	require.Len(t, list, 1)
	assert.True(t, list[0].Completed)

	w = s.do(http.MethodDelete, taskPath(task.ID, "/delete"), login.Token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(http.MethodGet, taskPath(task.ID, ""), login.Token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = s.do(http.MethodPut, taskPath(task.ID, "/toggle"), login.Token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(http.MethodGet, "/api/tasks/history", login.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var events []string
	for _, e := range decode[[]struct {
		Event string `json:"event"`
	}](t, w).Data {
		events = append(events, e.Event)
	}
	assert.Equal(t, []string{"task_deleted", "task_updated", "task_created"}, events)
}

func TestDuplicateRegistrationConflicts(t *testing.T) {
	s := newTestServer(t)
	s.register("a@x.com", "secret1", "A")

	w := s.do(http.MethodPost, "/api/auth/register", "", gin.H{"email": "a@x.com", "password": "another", "name": "B"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(http.MethodPost, "/api/auth/login", "", gin.H{"email": "a@x.com", "password": "secret1"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLoginBadCredentials(t *testing.T) {
	s := newTestServer(t)
	s.register("a@x.com", "secret1", "A")

	w := s.do(http.MethodPost, "/api/auth/login", "", gin.H{"email": "a@x.com", "password": "wrong12"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "invalid credentials", decode[any](t, w).Message)
}

func TestLogoutRevokesOnlyPresentedToken(t *testing.T) {
	s := newTestServer(t)
	first := s.register("a@x.com", "secret1", "A").Token

	w := s.do(http.MethodPost, "/api/auth/login", "", gin.H{"email": "a@x.com", "password": "secret1"})
	require.Equal(t, http.StatusOK, w.Code)
	second := decode[authData](t, w).Data.Token

	w = s.do(http.MethodPost, "/api/auth/logout", first, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, s.mr.Exists("jwt:blacklist:"+first))

	w = s.do(http.MethodGet, "/api/auth/me", first, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "unauthenticated", decode[any](t, w).Message)

	w = s.do(http.MethodGet, "/api/auth/me", second, nil)
	require.Equal(t, http.StatusOK, w.Code)
	me := decode[struct {
		ID    int64  `json:"id"`
		Email string `json:"email"`
	}](t, w).Data
	assert.Equal(t, "a@x.com", me.Email)
}

func TestUnauthenticatedResponsesAreUniform(t *testing.T) {
	s := newTestServer(t)
	for _, header := range []string{"", "garbage", "not.a.jwt"} {
		w := s.do(http.MethodGet, "/api/tasks", header, nil)
		require.Equal(t, http.StatusUnauthorized, w.Code)
		env := decode[any](t, w)
		assert.Equal(t, "unauthenticated", env.Message)
		assert.Empty(t, env.Error)
	}
}

func TestOtherUsersTasksAreForbidden(t *testing.T) {
	s := newTestServer(t)
	a := s.register("a@x.com", "secret1", "A").Token
	b := s.register("b@x.com", "secret1", "B").Token
	task := s.createTask(a, gin.H{"title": "T", "description": "D", "category": "Other"})

	w := s.do(http.MethodPut, taskPath(task.ID, "/toggle"), b, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = s.do(http.MethodDelete, taskPath(task.ID, "/delete"), b, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodGet, "/api/tasks", b, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[[]taskData](t, w).Data)
}

func TestUpdateCannotReassignOwner(t *testing.T) {
	s := newTestServer(t)
	reg := s.register("a@x.com", "secret1", "A")
	task := s.createTask(reg.Token, gin.H{"title": "T", "description": "D", "category": "Chemistry"})

	w := s.do(http.MethodPut, taskPath(task.ID, ""), reg.Token, gin.H{"title": "T2", "user_id": 999})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	got := decode[taskData](t, w).Data
	assert.Equal(t, "T2", got.Title)
	assert.Equal(t, reg.User.ID, got.UserID)
}

func TestValidationErrors(t *testing.T) {
	s := newTestServer(t)
	token := s.register("a@x.com", "secret1", "A").Token

	w := s.do(http.MethodPost, "/api/tasks/create", token, gin.H{"title": "", "description": "D", "category": "Astrology", "due_date": "tomorrow"})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	env := decode[any](t, w)
	assert.Contains(t, env.Error, "title")
	assert.Contains(t, env.Error, "category")
	assert.Contains(t, env.Error, "due_date")

	w = s.do(http.MethodPost, "/api/auth/register", "", gin.H{"email": "bad", "password": "123", "name": "A"})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	env = decode[any](t, w)
	assert.Contains(t, env.Error, "email")
	assert.Contains(t, env.Error, "password")

	w = s.do(http.MethodPut, "/api/tasks/abc/toggle", token, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestAuthRateLimit(t *testing.T) {
	s := newTestServer(t, func(c *config.Config) { c.AuthRateLimit = 2 })

	for i := 0; i < 2; i++ {
		w := s.do(http.MethodPost, "/api/auth/login", "", gin.H{"email": "a@x.com", "password": "secret1"})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	}
	w := s.do(http.MethodPost, "/api/auth/login", "", gin.H{"email": "a@x.com", "password": "secret1"})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestHealthAndRequestID(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodGet, "/api/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	env := decode[map[string]string](t, w)
	assert.Equal(t, "ok", env.Data["redis"])
	assert.NotEmpty(t, env.RequestID)
	assert.Equal(t, env.RequestID, w.Header().Get("X-Request-ID"))

	s.mr.SetError("server down")
	w = s.do(http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
