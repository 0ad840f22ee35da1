package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/digitos-team/masala-software/pkg/bootstrap"
	"github.com/digitos-team/masala-software/pkg/instance"
	"github.com/digitos-team/masala-software/pkg/outbox"
	"github.com/digitos-team/masala-software/pkg/outbox/registry"
	"github.com/digitos-team/masala-software/pkg/pubsub"
)

func main() {
	cfg, logg := bootstrap.Load("outbox-publisher")
	boot := context.Background()

	dbClient := bootstrap.Database(boot, cfg, logg)
	defer bootstrap.Close(logg, "database", dbClient.Close)

	pubsubClient, err := pubsub.NewClient(boot, cfg.GCP, cfg.PubSub, logg)
	bootstrap.Must(logg, "bootstrap pubsub", err)
	defer bootstrap.Close(logg, "pubsub", pubsubClient.Close)

	events, err := registry.NewEventRegistry(cfg.PubSub)
	bootstrap.Must(logg, "event registry", err)

	topic, err := newTopicPublisher(pubsubClient.OrdersPublisher())
	bootstrap.Must(logg, "open orders topic", err)
	// flushes messages still batched in the client
	defer topic.Stop()

	service, err := NewService(ServiceParams{
		Config:     cfg.Outbox,
		Logger:     logg,
		DB:         dbClient,
		PubSub:     pubsubClient,
		Publisher:  topic,
		Repository: outbox.NewRepository(dbClient.DB()),
		DLQ:        outbox.NewDLQRepository(dbClient.DB()),
		Registry:   events,
	})
	bootstrap.Must(logg, "outbox publisher", err)

	ctx, stop := signal.NotifyContext(boot, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":          cfg.App.Env,
		"topic":        cfg.PubSub.OrdersTopic,
		"batch_size":   cfg.Outbox.BatchSize,
		"max_attempts": cfg.Outbox.MaxAttempts,
		"instance":     instance.ID("outbox-0"),
	})
	logg.Info(ctx, "starting outbox publisher")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "outbox publisher stopped", err)
		os.Exit(1)
	}
	logg.Info(ctx, "outbox publisher shut down")
}
