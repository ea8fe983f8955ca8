package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/redis-task-tracker/internal/infrastructure/redisstore"
	"github.com/oksasatya/redis-task-tracker/pkg/response"
)

type HealthHandler struct {
	Store  *redisstore.Store
	Logger *logrus.Logger
}

func NewHealthHandler(store *redisstore.Store, logger *logrus.Logger) *HealthHandler {
	return &HealthHandler{Store: store, Logger: logger}
}

// Health - GET /api/health; 503 while redis is unreachable
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := h.Store.Ping(ctx); err != nil {
		if h.Logger != nil {
			h.Logger.WithError(err).Warn("health check failed")
		}
		response.Error[any](c, http.StatusServiceUnavailable, "store unavailable", gin.H{"redis": "down"})
		return
	}
	response.Success(c, http.StatusOK, gin.H{"redis": "ok"}, "healthy", nil)
}
