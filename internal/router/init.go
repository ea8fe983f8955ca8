package router

import (
	"time"

	"github.com/oksasatya/redis-task-tracker/internal/application"
	"github.com/oksasatya/redis-task-tracker/internal/container"
	"github.com/oksasatya/redis-task-tracker/internal/domain/entity"
	"github.com/oksasatya/redis-task-tracker/internal/infrastructure/redisstore"
	handlers "github.com/oksasatya/redis-task-tracker/internal/interface/http"
	"github.com/oksasatya/redis-task-tracker/internal/notify"
	"github.com/oksasatya/redis-task-tracker/internal/router/modules"
)

type AuthModuleDeps struct {
	Handler *handlers.AuthHandler
}

type TaskModuleDeps struct {
	Handler *handlers.TaskHandler
	Events  *handlers.EventsHandler
}

func buildGate() *application.Gate {
	var ttl time.Duration
	if cfg := container.GetConfig(); cfg != nil {
		ttl = cfg.JWTRevocationTTL
	}
	return application.NewGate(container.GetStore(), container.GetJWT(), container.GetLogger(), ttl)
}

func buildAuthDeps(gate *application.Gate, events *notify.Emitter) AuthModuleDeps {
	logger := container.GetLogger()
	repo := redisstore.NewUserRepository(container.GetStore(), logger)
	service := application.NewService(repo, container.GetJWT(), gate, events, logger)
	return AuthModuleDeps{Handler: handlers.NewAuthHandler(service, logger)}
}

func buildTaskDeps(events *notify.Emitter) TaskModuleDeps {
	logger := container.GetLogger()
	store := container.GetStore()

	kind := entity.KindTask
	poll := 2 * time.Second
	if cfg := container.GetConfig(); cfg != nil {
		if cfg.TaskTTL > 0 {
			kind = kind.WithTTL(cfg.TaskTTL)
		}
		poll = cfg.EventsPollInterval
	}
	repo := redisstore.NewRepository(store, func() *entity.Task { return &entity.Task{} }, logger).WithKind(kind)
	service := application.NewTaskService(repo, events, logger)
	return TaskModuleDeps{
		Handler: handlers.NewTaskHandler(service, logger),
		Events:  handlers.NewEventsHandler(service, store, poll, logger),
	}
}

// InitModules initializes all application modules and registers them with the router registry
// This function should be called once during application startup to wire up all modules
func InitModules(r *Registry) {
	events := notify.NewEmitter(container.GetStore(), container.GetLogger())
	gate := buildGate()

	authDeps := buildAuthDeps(gate, events)
	taskDeps := buildTaskDeps(events)

	r.Add(modules.NewDebugModule(handlers.NewHealthHandler(container.GetStore(), container.GetLogger())))
	r.Add(modules.NewAuthModule(authDeps.Handler, gate))
	r.Add(modules.NewTaskModule(taskDeps.Handler, taskDeps.Events, gate))
}
