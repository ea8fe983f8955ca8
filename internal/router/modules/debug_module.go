package modules

import (
	"expvar"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/redis-task-tracker/internal/container"
	handlers "github.com/oksasatya/redis-task-tracker/internal/interface/http"
	"github.com/oksasatya/redis-task-tracker/internal/interface/middleware"
)

// DebugModule serves the health check and, when enabled, expvar metrics.
type DebugModule struct {
	Health *handlers.HealthHandler
}

func NewDebugModule(h *handlers.HealthHandler) *DebugModule { return &DebugModule{Health: h} }

func (m *DebugModule) Register(rg *gin.RouterGroup) {
	rg.GET("/health", m.Health.Health)

	cfg := container.GetConfig()
	if cfg == nil || !cfg.DebugMetricsEnabled {
		return
	}
	rl := middleware.RateLimit(container.GetRedis(), 120, time.Minute, middleware.KeyByIPAndPath(), nil, container.GetLogger())
	rg.GET("/debug/vars", rl, gin.WrapH(expvar.Handler()))
}
