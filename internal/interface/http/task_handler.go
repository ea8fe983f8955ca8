package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/redis-task-tracker/internal/application"
	"github.com/oksasatya/redis-task-tracker/internal/domain/entity"
	"github.com/oksasatya/redis-task-tracker/pkg/response"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

type TaskHandler struct {
	Svc    *application.TaskService
	Logger *logrus.Logger
}

func NewTaskHandler(svc *application.TaskService, logger *logrus.Logger) *TaskHandler {
	return &TaskHandler{Svc: svc, Logger: logger}
}

// createTaskRequest carries only client-settable fields; owner, id, creation
// time and completion are assigned by the server.
type createTaskRequest struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Category    entity.Category `json:"category"`
	DueDate     *string         `json:"due_date"`
}

// List - GET /api/tasks, newest first
func (h *TaskHandler) List(c *gin.Context) {
	ident, ok := identity(c)
	if !ok {
		return
	}
	tasks, err := h.Svc.ListOwned(c.Request.Context(), ident)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, tasks, "tasks", gin.H{"count": len(tasks)})
}

// Get - GET /api/tasks/:id
func (h *TaskHandler) Get(c *gin.Context) {
	ident, ok := identity(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	task, err := h.Svc.GetOwned(c.Request.Context(), ident, id)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, task, "task", nil)
}

// Create - POST /api/tasks/create {title, description, category, due_date?}
func (h *TaskHandler) Create(c *gin.Context) {
	ident, ok := identity(c)
	if !ok {
		return
	}
	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeOrBadPayload(c, h.Logger, err)
		return
	}
	task := &entity.Task{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		DueDate:     req.DueDate,
	}
	created, err := h.Svc.CreateOwned(c.Request.Context(), ident, task)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusCreated, created, "task created", nil)
}

// Update - PUT /api/tasks/:id with any subset of the task fields
func (h *TaskHandler) Update(c *gin.Context) {
	ident, ok := identity(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	var patch map[string]any
	if err := c.ShouldBindJSON(&patch); err != nil {
		writeOrBadPayload(c, h.Logger, err)
		return
	}
	ctx := c.Request.Context()
	if err := h.Svc.UpdateOwned(ctx, ident, id, patch); err != nil {
		writeError(c, h.Logger, err)
		return
	}
	h.respondFresh(c, ident, id, "task updated")
}

// Toggle - PUT /api/tasks/:id/toggle flips completed and returns the stored task
func (h *TaskHandler) Toggle(c *gin.Context) {
	ident, ok := identity(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	current, err := h.Svc.GetOwned(ctx, ident, id)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	if err := h.Svc.UpdateOwned(ctx, ident, id, map[string]any{"completed": !current.Completed}); err != nil {
		writeError(c, h.Logger, err)
		return
	}
	h.respondFresh(c, ident, id, "task toggled")
}

// respondFresh re-reads the task so the response reflects what was stored.
func (h *TaskHandler) respondFresh(c *gin.Context, ident application.Identity, id int64, msg string) {
	task, err := h.Svc.GetOwned(c.Request.Context(), ident, id)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, task, msg, nil)
}

// Delete - DELETE /api/tasks/:id/delete
func (h *TaskHandler) Delete(c *gin.Context) {
	ident, ok := identity(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	deleted, err := h.Svc.DeleteOwned(c.Request.Context(), ident, id)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	if !deleted {
		writeError(c, h.Logger, application.ErrNotFound)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"id": id, "deleted": true}, "task deleted", nil)
}

// History - GET /api/tasks/history?limit=N, the caller's audit trail newest first
func (h *TaskHandler) History(c *gin.Context) {
	ident, ok := identity(c)
	if !ok {
		return
	}
	limit := defaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(c, h.Logger, &application.ValidationError{Fields: map[string]string{"limit": "must be a positive integer"}})
			return
		}
		limit = min(n, maxHistoryLimit)
	}
	entries, err := h.Svc.History(c.Request.Context(), ident, limit)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, entries, "history", gin.H{"count": len(entries)})
}
