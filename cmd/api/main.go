package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/digitos-team/masala-software/api/routes"
	"github.com/digitos-team/masala-software/internal/inventory"
	"github.com/digitos-team/masala-software/internal/notifications"
	"github.com/digitos-team/masala-software/internal/orders"
	"github.com/digitos-team/masala-software/internal/payments"
	product "github.com/digitos-team/masala-software/internal/products"
	"github.com/digitos-team/masala-software/pkg/bootstrap"
	"github.com/digitos-team/masala-software/pkg/env"
	"github.com/digitos-team/masala-software/pkg/instance"
	"github.com/digitos-team/masala-software/pkg/metrics"
	"github.com/digitos-team/masala-software/pkg/outbox"
	"github.com/digitos-team/masala-software/pkg/redis"
)

func main() {
	cfg, logg := bootstrap.Load("api")
	boot := context.Background()

	dbClient := bootstrap.Database(boot, cfg, logg)
	defer bootstrap.Close(logg, "database", dbClient.Close)

	redisClient, err := redis.New(boot, cfg.Redis, logg)
	bootstrap.Must(logg, "bootstrap redis", err)
	defer bootstrap.Close(logg, "redis", redisClient.Close)

	stock, err := inventory.NewService(dbClient.DB())
	bootstrap.Must(logg, "inventory service", err)
	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)
	domainMetrics := metrics.NewDomainMetrics(prometheus.DefaultRegisterer)

	ordersService, err := orders.NewService(orders.ServiceParams{
		Repo:    orders.NewRepository(dbClient.DB()),
		Tx:      dbClient,
		Outbox:  outboxService,
		Stock:   stock,
		Metrics: domainMetrics,
		Logger:  logg,
		Config:  cfg.Orders,
	})
	bootstrap.Must(logg, "orders service", err)

	paymentsService, err := payments.NewService(payments.ServiceParams{
		Repo:    payments.NewRepository(dbClient.DB()),
		Tx:      dbClient,
		Outbox:  outboxService,
		Metrics: domainMetrics,
		Logger:  logg,
		Config:  cfg.Orders,
	})
	bootstrap.Must(logg, "payments service", err)

	productsService, err := product.NewService(product.NewRepository(dbClient.DB()), stock)
	bootstrap.Must(logg, "products service", err)

	notificationsService, err := notifications.NewService(notifications.NewRepository(dbClient.DB()))
	bootstrap.Must(logg, "notifications service", err)

	// platforms that assign the port set PORT
	addr := ":" + env.First(cfg.App.Port, "PORT")

	ctx, stop := signal.NotifyContext(boot, os.Interrupt, syscall.SIGTERM)
	defer stop()
	logCtx := logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.ID("local"),
	})

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, routes.Dependencies{
			DB:            dbClient,
			Redis:         redisClient,
			Orders:        ordersService,
			Payments:      paymentsService,
			Products:      productsService,
			Notifications: notificationsService,
		}),
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(logCtx, "starting api server")
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(logCtx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logg.Info(logCtx, "api server shutting down gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(logCtx, "api server shutdown failed", err)
		}
	}
}
