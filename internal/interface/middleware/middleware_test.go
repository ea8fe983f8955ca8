package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() { gin.SetMode(gin.TestMode) }

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRealIPHonoursForwardedOnlyWhenTrusted(t *testing.T) {
	for _, tc := range []struct {
		trust bool
		want  string
	}{
		{trust: true, want: "203.0.113.7"},
		{trust: false, want: "192.0.2.1"},
	} {
		r := gin.New()
		r.Use(RealIP(tc.trust))
		r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString("real_ip")) })

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "192.0.2.1:4000"
		req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
		assert.Equal(t, tc.want, serve(r, req).Body.String())
	}
}

func TestRequestIDReusesWellFormedHeader(t *testing.T) {
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString("request_id")) })

	const id = "6f1c3c1e-6f0a-4b8e-9d55-2f43b1b1a001"
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, id)
	w := serve(r, req)
	assert.Equal(t, id, w.Body.String())
	assert.Equal(t, id, w.Header().Get(HeaderRequestID))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "not-a-uuid")
	w = serve(r, req)
	assert.NotEqual(t, "not-a-uuid", w.Body.String())
	assert.Len(t, w.Body.String(), 36)
}

func TestRateLimitWindowAndBypass(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	build := func(allow AllowFunc) *gin.Engine {
		r := gin.New()
		r.Use(RealIP(false), RateLimit(rdb, 2, time.Minute, KeyByIPAndPath(), allow, nil))
		r.POST("/login", func(c *gin.Context) { c.Status(http.StatusNoContent) })
		return r
	}
	req := func(addr string) *http.Request {
		rq := httptest.NewRequest(http.MethodPost, "/login", nil)
		rq.RemoteAddr = addr
		return rq
	}

	r := build(nil)
	assert.Equal(t, http.StatusNoContent, serve(r, req("192.0.2.1:1")).Code)
	w := serve(r, req("192.0.2.1:1"))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, http.StatusTooManyRequests, serve(r, req("192.0.2.1:1")).Code)
	assert.Equal(t, http.StatusNoContent, serve(r, req("192.0.2.2:1")).Code)

	mr.FastForward(time.Minute)
	assert.Equal(t, http.StatusNoContent, serve(r, req("192.0.2.1:1")).Code)

	private := build(AllowPrivateIP())
	for i := 0; i < 5; i++ {
		require.Equal(t, http.StatusNoContent, serve(private, req("10.0.0.5:1")).Code)
	}
}

func TestRateLimitFailsOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	mr.SetError("boom")

	r := gin.New()
	r.Use(RateLimit(rdb, 1, time.Minute, KeyByUserID(), nil, nil))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusNoContent, serve(r, httptest.NewRequest(http.MethodGet, "/", nil)).Code)
	}
}

func TestAccessLogLevelFollowsStatus(t *testing.T) {
	logger, hook := logtest.NewNullLogger()

	r := gin.New()
	r.Use(RequestIDMiddleware(), AccessLog(logger))
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/missing/:id", func(c *gin.Context) {
		c.Set(CtxUserIDKey, "7")
		c.Status(http.StatusNotFound)
	})
	r.GET("/boom", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	serve(r, httptest.NewRequest(http.MethodGet, "/ok", nil))
	serve(r, httptest.NewRequest(http.MethodGet, "/missing/3", nil))
	serve(r, httptest.NewRequest(http.MethodGet, "/boom", nil))

	entries := hook.AllEntries()
	require.Len(t, entries, 3)
	assert.Equal(t, logrus.InfoLevel, entries[0].Level)
	assert.Equal(t, logrus.WarnLevel, entries[1].Level)
	assert.Equal(t, "/missing/:id", entries[1].Data["path"])
	assert.Equal(t, "7", entries[1].Data["user_id"])
	assert.NotEmpty(t, entries[1].Data["request_id"])
	assert.Equal(t, logrus.ErrorLevel, entries[2].Level)
}
