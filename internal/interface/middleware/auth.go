package middleware

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/redis-task-tracker/internal/application"
	"github.com/oksasatya/redis-task-tracker/pkg/response"
)

const (
	CtxIdentityKey = "identity"
	CtxUserIDKey   = "userID"
)

// Auth validates the bearer token through the gate and stores the caller's
// Identity in the Gin context. All token problems answer the same 401.
func Auth(gate *application.Gate, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ident, err := gate.Authenticate(c.Request.Context(), c.GetHeader("Authorization"))
		if err != nil {
			if errors.Is(err, application.ErrUnauthenticated) {
				response.Error[any](c, http.StatusUnauthorized, "unauthenticated", nil)
				return
			}
			if logger != nil {
				logger.WithError(err).WithField("request_id", c.GetString("request_id")).Error("authentication check failed")
			}
			response.Error[any](c, http.StatusInternalServerError, "authentication unavailable", nil)
			return
		}
		c.Set(CtxIdentityKey, ident)
		c.Set(CtxUserIDKey, strconv.FormatInt(ident.UserID(), 10)) // used by rate limit keys
		c.Next()
	}
}

// IdentityFrom returns the identity stored by Auth.
func IdentityFrom(c *gin.Context) (application.Identity, bool) {
	v, ok := c.Get(CtxIdentityKey)
	if !ok {
		return application.Identity{}, false
	}
	ident, ok := v.(application.Identity)
	return ident, ok && ident.Valid()
}
