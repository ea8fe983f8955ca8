package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/oksasatya/redis-task-tracker/config"
	"github.com/oksasatya/redis-task-tracker/internal/domain/entity"
	"github.com/oksasatya/redis-task-tracker/internal/infrastructure/redisstore"
	"github.com/oksasatya/redis-task-tracker/internal/notify"
	"github.com/oksasatya/redis-task-tracker/pkg/helpers"
)

// event_relay forwards task change events from redis pub/sub to a durable
// RabbitMQ queue for consumers that cannot hold a live subscription.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-relay", cfg.Env, cfg.LogLevel)
	if cfg.RabbitMQURL == "" || cfg.RabbitMQEventsQueue == "" {
		logger.Fatal("RabbitMQ not configured")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rdb, err := helpers.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		logger.Fatalf("failed to connect to redis: %v", err)
	}
	defer func() { _ = rdb.Close() }()

	pub, err := helpers.NewRabbitPublisher(cfg.RabbitMQURL, cfg.RabbitMQEventsQueue, cfg.AppName)
	if err != nil {
		logger.Fatalf("failed to connect to rabbitmq: %v", err)
	}
	defer pub.Close()

	// a dropped broker connection ends the relay; the supervisor restarts it
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	closed := pub.Closed()
	go func() {
		select {
		case amqpErr := <-closed:
			if amqpErr != nil {
				logger.Errorf("rabbitmq connection closed: %v", amqpErr)
			}
			cancel()
		case <-ctx.Done():
		}
	}()

	feed, err := notify.Listen(ctx, redisstore.New(rdb), entity.KindTask, logger)
	if err != nil {
		logger.Fatalf("subscribe failed: %v", err)
	}
	defer func() { _ = feed.Close() }()

	logger.Infof("event relay forwarding %v to queue=%s", notify.Channels(entity.KindTask), cfg.RabbitMQEventsQueue)
	relay := &notify.Relay{Feed: feed, Out: pub, Logger: logger}
	n, err := relay.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Errorf("relay stopped: %v", err)
	}
	logger.Infof("event relay exited after forwarding %d events", n)
}
