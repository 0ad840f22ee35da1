package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/digitos-team/masala-software/internal/notifications"
	"github.com/digitos-team/masala-software/pkg/bootstrap"
	"github.com/digitos-team/masala-software/pkg/instance"
	"github.com/digitos-team/masala-software/pkg/outbox/idempotency"
	"github.com/digitos-team/masala-software/pkg/pubsub"
	"github.com/digitos-team/masala-software/pkg/redis"
)

func main() {
	cfg, logg := bootstrap.Load("worker")
	boot := context.Background()

	dbClient := bootstrap.Database(boot, cfg, logg)
	defer bootstrap.Close(logg, "database", dbClient.Close)

	redisClient, err := redis.New(boot, cfg.Redis, logg)
	bootstrap.Must(logg, "bootstrap redis", err)
	defer bootstrap.Close(logg, "redis", redisClient.Close)

	pubsubClient, err := pubsub.NewClient(boot, cfg.GCP, cfg.PubSub, logg)
	bootstrap.Must(logg, "bootstrap pubsub", err)
	defer bootstrap.Close(logg, "pubsub", pubsubClient.Close)

	claims, err := idempotency.NewManager(redisClient, cfg.Redis.EventDedupeTTL)
	bootstrap.Must(logg, "event dedupe", err)

	subscription := pubsubClient.NotificationSubscription()
	if subscription == nil {
		bootstrap.Must(logg, "notification subscription", errors.New("MASALA_PUBSUB_NOTIFICATION_SUBSCRIPTION is empty"))
	}
	inbox, err := notifications.NewConsumer(notifications.NewRepository(dbClient.DB()), subscription, claims, logg)
	bootstrap.Must(logg, "notification consumer", err)

	service, err := NewService(ServiceParams{
		Logger: logg,
		Dependencies: []dependency{
			{name: "database", ping: dbClient.Ping},
			{name: "redis", ping: redisClient.Ping},
			{name: "pubsub", ping: func(ctx context.Context) error {
				return pubsubClient.EnsureSubscription(ctx, cfg.PubSub.NotificationSubscription)
			}},
		},
		Consumers: map[string]runner{"notification-inbox": inbox},
	})
	bootstrap.Must(logg, "worker", err)

	ctx, stop := signal.NotifyContext(boot, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":          cfg.App.Env,
		"instance":     instance.ID("worker-0"),
		"subscription": cfg.PubSub.NotificationSubscription,
	})
	logg.Info(ctx, "starting worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "worker stopped", err)
		os.Exit(1)
	}
	logg.Info(ctx, "worker shut down")
}
