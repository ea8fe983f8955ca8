package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/redis-task-tracker/internal/application"
	"github.com/oksasatya/redis-task-tracker/pkg/response"
)

type AuthHandler struct {
	Svc    *application.Service
	Logger *logrus.Logger
}

func NewAuthHandler(svc *application.Service, logger *logrus.Logger) *AuthHandler {
	return &AuthHandler{Svc: svc, Logger: logger}
}

// Register - POST /api/auth/register {email, password, name}
func (h *AuthHandler) Register(c *gin.Context) {
	var req application.RegisterInput
	if err := c.ShouldBindJSON(&req); err != nil {
		writeOrBadPayload(c, h.Logger, err)
		return
	}
	res, err := h.Svc.Register(c.Request.Context(), req)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusCreated, res, "registered", nil)
}

// Login - POST /api/auth/login {email, password}
func (h *AuthHandler) Login(c *gin.Context) {
	var req application.LoginInput
	if err := c.ShouldBindJSON(&req); err != nil {
		writeOrBadPayload(c, h.Logger, err)
		return
	}
	res, err := h.Svc.Login(c.Request.Context(), req)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, res, "logged in", nil)
}

// Me - GET /api/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	ident, ok := identity(c)
	if !ok {
		return
	}
	me, err := h.Svc.Me(c.Request.Context(), ident)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, me, "current user", nil)
}

// Logout - POST /api/auth/logout; revokes the presented token only.
func (h *AuthHandler) Logout(c *gin.Context) {
	ident, ok := identity(c)
	if !ok {
		return
	}
	if err := h.Svc.Logout(c.Request.Context(), ident); err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"logged_out": true}, "logged out", nil)
}
