package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/digitos-team/masala-software/internal/cron"
	"github.com/digitos-team/masala-software/internal/inventory"
	"github.com/digitos-team/masala-software/pkg/bootstrap"
	"github.com/digitos-team/masala-software/pkg/config"
	"github.com/digitos-team/masala-software/pkg/db"
	"github.com/digitos-team/masala-software/pkg/instance"
	"github.com/digitos-team/masala-software/pkg/logger"
	"github.com/digitos-team/masala-software/pkg/metrics"
	"github.com/digitos-team/masala-software/pkg/outbox"
	"github.com/digitos-team/masala-software/pkg/redis"
)

const serviceName = "cron-worker"

func main() {
	once := flag.Bool("once", false, "run a single cycle and exit (for a scheduler-driven job)")
	flag.Parse()

	cfg, logg := bootstrap.Load(serviceName)
	boot := context.Background()

	dbClient := bootstrap.Database(boot, cfg, logg)
	defer bootstrap.Close(logg, "database", dbClient.Close)

	redisClient, err := redis.New(boot, cfg.Redis, logg)
	bootstrap.Must(logg, "bootstrap redis", err)
	defer bootstrap.Close(logg, "redis", redisClient.Close)

	lock, err := cron.NewRedisLock(redisClient, cfg.App.Env, serviceName, cfg.Cron.LockTTL)
	bootstrap.Must(logg, "cron lock", err)

	registry, err := jobs(cfg, logg, dbClient)
	bootstrap.Must(logg, "register cron jobs", err)

	service, err := cron.NewService(cron.ServiceParams{
		Logger:     logg,
		Registry:   registry,
		Lock:       lock,
		Metrics:    metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval:   cfg.Cron.Interval,
		JobTimeout: cfg.Cron.JobTimeout,
	})
	bootstrap.Must(logg, "cron service", err)

	ctx, stop := signal.NotifyContext(boot, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"jobs":     registry.Names(),
		"lock_key": lock.Key(),
		"instance": instance.ID("cron-0"),
		"once":     *once,
	})
	logg.Info(ctx, "starting cron worker")

	if *once {
		err = service.RunOnce(ctx)
		if errors.Is(err, cron.ErrLockHeld) {
			err = nil
		}
	} else {
		err = service.Run(ctx)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped", err)
		os.Exit(1)
	}
	logg.Info(ctx, "cron worker shut down")
}

// jobs wires the periodic jobs in the order they run each cycle.
func jobs(cfg *config.Config, logg *logger.Logger, dbClient *db.Client) (*cron.Registry, error) {
	stock, err := inventory.NewService(dbClient.DB())
	if err != nil {
		return nil, err
	}
	outboxRepo := outbox.NewRepository(dbClient.DB())

	lowStock, err := cron.NewLowStockJob(cron.LowStockJobParams{
		Logger:  logg,
		DB:      dbClient,
		Scanner: stock,
		Outbox:  outbox.NewService(outboxRepo, logg),
	})
	if err != nil {
		return nil, err
	}
	retention, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:           logg,
		DB:               dbClient,
		Pruner:           outboxRepo,
		TerminalAttempts: cfg.Outbox.MaxAttempts,
	})
	if err != nil {
		return nil, err
	}
	return cron.NewRegistry(lowStock, retention)
}
