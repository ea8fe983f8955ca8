package main

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/oksasatya/redis-task-tracker/config"
	"github.com/oksasatya/redis-task-tracker/internal/application"
	"github.com/oksasatya/redis-task-tracker/internal/domain/entity"
	"github.com/oksasatya/redis-task-tracker/internal/infrastructure/redisstore"
	"github.com/oksasatya/redis-task-tracker/internal/notify"
	"github.com/oksasatya/redis-task-tracker/pkg/helpers"
)

const (
	seedPassword = "password123"
	tasksPerUser = 5
)

var seedUsers = []application.RegisterInput{
	{Email: "john.doe@example.com", Name: "John Doe", Password: seedPassword},
	{Email: "jane.smith@example.com", Name: "Jane Smith", Password: seedPassword},
	{Email: "bob.wilson@example.com", Name: "Bob Wilson", Password: seedPassword},
}

var titles = []string{
	"Complete project documentation",
	"Review pull requests",
	"Update database schema",
	"Fix authentication bug",
	"Implement new feature",
	"Optimize search queries",
	"Write unit tests",
	"Deploy to production",
	"Refactor legacy code",
	"Update dependencies",
}

var descriptions = []string{
	"This task requires immediate attention and careful review",
	"Low priority task that can be completed when time permits",
	"Critical bug that affects user experience",
	"Enhancement requested by the product team",
	"Technical debt that needs to be addressed",
	"Performance improvement for better user experience",
	"Security update required for compliance",
	"New functionality based on customer feedback",
	"Maintenance task to keep the system running smoothly",
	"Research and investigation needed before implementation",
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-seed", cfg.Env, cfg.LogLevel)
	ctx := context.Background()

	rdb, err := helpers.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		logger.Fatalf("failed to connect to redis: %v", err)
	}
	defer func() { _ = rdb.Close() }()

	store := redisstore.New(rdb)
	events := notify.NewEmitter(store, logger)
	jwt := helpers.NewJWTManager(cfg.JWTSecret, cfg.AppName, cfg.JWTTTL)
	users := application.NewService(redisstore.NewUserRepository(store, logger), jwt, nil, events, logger)
	taskRepo := redisstore.NewRepository(store, func() *entity.Task { return &entity.Task{} }, logger).
		WithKind(entity.KindTask.WithTTL(cfg.TaskTTL))
	tasks := application.NewTaskService(taskRepo, events, logger)

	g, gctx := errgroup.WithContext(ctx)
	for _, in := range seedUsers {
		g.Go(func() error {
			ident, err := ensureUser(gctx, users, in, logger)
			if err != nil {
				return err
			}
			created := 0
			for i := 0; i < tasksPerUser; i++ {
				if _, err := tasks.CreateOwned(gctx, ident, randomTask(time.Now().UTC())); err != nil {
					logger.WithError(err).WithField("email", in.Email).Warn("failed to create task")
					continue
				}
				created++
			}
			logger.WithFields(logrus.Fields{"email": in.Email, "tasks": created}).Info("seeded tasks")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		logger.Fatalf("seeding failed: %v", err)
	}
	logger.Info("seeding completed")
}

// ensureUser registers in, or looks the account up when the email is taken.
func ensureUser(ctx context.Context, users *application.Service, in application.RegisterInput, logger *logrus.Logger) (application.Identity, error) {
	res, err := users.Register(ctx, in)
	if err == nil {
		logger.WithFields(logrus.Fields{"email": in.Email, "user_id": res.User.ID}).Info("created user")
		return application.NewIdentity(res.User.ID, res.User.Email), nil
	}
	if !errors.Is(err, application.ErrConflict) {
		return application.Identity{}, err
	}
	u, err := users.Repo.FindByEmail(ctx, in.Email)
	if err != nil {
		return application.Identity{}, err
	}
	logger.WithFields(logrus.Fields{"email": in.Email, "user_id": u.ID}).Info("found existing user")
	return application.NewIdentity(u.ID, u.Email), nil
}

// randomTask is created up to 60 days in the past and due up to 30 days after
// its creation.
func randomTask(now time.Time) *entity.Task {
	age := time.Duration(rand.IntN(61))*24*time.Hour +
		time.Duration(rand.IntN(24))*time.Hour +
		time.Duration(rand.IntN(60))*time.Minute +
		time.Duration(rand.IntN(60))*time.Second
	createdAt := now.Add(-age)
	due := createdAt.AddDate(0, 0, rand.IntN(31)).Format("2006-01-02")

	categories := entity.Categories()
	return &entity.Task{
		Title:       titles[rand.IntN(len(titles))],
		Description: descriptions[rand.IntN(len(descriptions))],
		Category:    categories[rand.IntN(len(categories))],
		DueDate:     &due,
		Completed:   rand.IntN(2) == 1,
		CreatedAt:   createdAt,
	}
}
