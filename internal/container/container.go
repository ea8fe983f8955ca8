package container

import (
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/redis-task-tracker/config"
	"github.com/oksasatya/redis-task-tracker/internal/infrastructure/redisstore"
	"github.com/oksasatya/redis-task-tracker/pkg/helpers"
)

// app-level container to share constructed components across packages
// Router can auto-wire modules from these singletons.

var (
	cfg         *config.Config
	logger      *logrus.Logger
	redisClient *redis.Client
	store       *redisstore.Store

	jwtManager *helpers.JWTManager
)

func SetConfig(c *config.Config) { cfg = c }
func GetConfig() *config.Config  { return cfg }
func SetLogger(l *logrus.Logger) { logger = l }
func GetLogger() *logrus.Logger {
	if logger != nil {
		return logger
	}
	return helpers.NewDiscardLogger()
}

// SetRedis also rebuilds the document store on top of the client.
func SetRedis(r *redis.Client) {
	redisClient = r
	store = redisstore.New(r)
}
func GetRedis() *redis.Client      { return redisClient }
func GetStore() *redisstore.Store  { return store }
func SetJWT(m *helpers.JWTManager) { jwtManager = m }
func GetJWT() *helpers.JWTManager  { return jwtManager }
