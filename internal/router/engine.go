package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/oksasatya/redis-task-tracker/internal/container"
	"github.com/oksasatya/redis-task-tracker/internal/interface/middleware"
	"github.com/oksasatya/redis-task-tracker/pkg/validation"
)

// NewEngine builds the Gin engine with global middleware and every module
// wired from the container. The container must be populated first.
func NewEngine() *gin.Engine {
	validation.Init()
	cfg := container.GetConfig()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())

	trustForwarded := false
	if cfg != nil {
		corsCfg := cors.Config{
			AllowOrigins:     cfg.CORSOrigins(),
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderRequestID},
			ExposeHeaders:    []string{"Content-Length", middleware.HeaderRequestID},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}
		if len(corsCfg.AllowOrigins) == 0 {
			corsCfg.AllowOrigins = []string{cfg.AppURL}
		}
		r.Use(cors.New(corsCfg))
		trustForwarded = cfg.Env != "development"
	}
	if cfg != nil && cfg.HTTPLogEnabled {
		r.Use(middleware.AccessLog(container.GetLogger()))
	}

	reg := NewRegistry(r)
	reg.Use(middleware.RealIP(trustForwarded))
	InitModules(reg)
	reg.RegisterAll()
	reg.LogRoutes(container.GetLogger())
	return r
}
