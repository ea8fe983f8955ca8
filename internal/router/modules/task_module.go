package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/redis-task-tracker/internal/application"
	"github.com/oksasatya/redis-task-tracker/internal/container"
	handlers "github.com/oksasatya/redis-task-tracker/internal/interface/http"
	"github.com/oksasatya/redis-task-tracker/internal/interface/middleware"
)

// TaskModule wires the task routes; every one of them requires a bearer token.
type TaskModule struct {
	Handler *handlers.TaskHandler
	Events  *handlers.EventsHandler
	Gate    *application.Gate
}

func NewTaskModule(h *handlers.TaskHandler, events *handlers.EventsHandler, gate *application.Gate) *TaskModule {
	return &TaskModule{Handler: h, Events: events, Gate: gate}
}

func (m *TaskModule) Register(rg *gin.RouterGroup) {
	tasks := rg.Group("/tasks")
	tasks.Use(
		middleware.Auth(m.Gate, container.GetLogger()),
		middleware.RateLimit(container.GetRedis(), 600, time.Minute, middleware.KeyByUserID(), nil, container.GetLogger()),
	)
	{
		tasks.GET("", m.Handler.List)
		tasks.GET("/history", m.Handler.History)
		tasks.GET("/events", m.Events.Stream)
		tasks.GET("/:id", m.Handler.Get)
		tasks.POST("/create", m.Handler.Create)
		tasks.PUT("/:id", m.Handler.Update)
		tasks.PUT("/:id/toggle", m.Handler.Toggle)
		tasks.DELETE("/:id/delete", m.Handler.Delete)
	}
}
