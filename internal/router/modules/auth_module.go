package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/redis-task-tracker/internal/application"
	"github.com/oksasatya/redis-task-tracker/internal/container"
	handlers "github.com/oksasatya/redis-task-tracker/internal/interface/http"
	"github.com/oksasatya/redis-task-tracker/internal/interface/middleware"
)

// AuthModule wires identity routes.
// Public: POST /api/auth/register, POST /api/auth/login
// Protected: GET /api/auth/me, POST /api/auth/logout
type AuthModule struct {
	Handler *handlers.AuthHandler
	Gate    *application.Gate
}

func NewAuthModule(h *handlers.AuthHandler, gate *application.Gate) *AuthModule {
	return &AuthModule{Handler: h, Gate: gate}
}

func (m *AuthModule) Register(rg *gin.RouterGroup) {
	var (
		max   int
		allow middleware.AllowFunc
	)
	if cfg := container.GetConfig(); cfg != nil {
		max = cfg.AuthRateLimit
		if cfg.RateLimitAllowPrivate {
			allow = middleware.AllowPrivateIP()
		}
	}
	limiter := middleware.RateLimit(container.GetRedis(), max, time.Minute, middleware.KeyByIPAndPath(), allow, container.GetLogger())

	rg.POST("/auth/register", limiter, m.Handler.Register)
	rg.POST("/auth/login", limiter, m.Handler.Login)

	auth := rg.Group("/auth")
	auth.Use(middleware.Auth(m.Gate, container.GetLogger()))
	{
		auth.GET("/me", m.Handler.Me)
		auth.POST("/logout", m.Handler.Logout)
	}
}
