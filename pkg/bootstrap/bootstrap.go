// Package bootstrap holds the start-up steps every binary repeats: reading
// .env and config, building the service logger, and opening the shared
// database. Failures here are fatal and exit the process.
package bootstrap

import (
	"context"
	"os"

	"github.com/joho/godotenv"

	"github.com/digitos-team/masala-software/pkg/config"
	"github.com/digitos-team/masala-software/pkg/db"
	"github.com/digitos-team/masala-software/pkg/logger"
	"github.com/digitos-team/masala-software/pkg/migrate"
)

// exit is swapped in tests.
var exit = os.Exit

// Load reads .env when present, then the environment, and returns the config
// with a logger configured from it.
func Load(service string) (*config.Config, *logger.Logger) {
	logg := logger.New(logger.Options{ServiceName: service})
	if err := godotenv.Load(); err != nil {
		logg.Debug(context.Background(), ".env not loaded, using process environment")
	}
	cfg, err := config.Load()
	Must(logg, "load config", err)
	return cfg, logger.New(logger.Options{
		ServiceName: service,
		Level:       cfg.App.LogLevel,
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})
}

// Database opens the pool and, in dev, migrates the schema.
func Database(ctx context.Context, cfg *config.Config, logg *logger.Logger) *db.Client {
	client, err := db.New(ctx, cfg.DB, logg)
	Must(logg, "bootstrap database", err)
	if err := migrate.MaybeRunDev(ctx, cfg, logg, client); err != nil {
		_ = client.Close()
		Must(logg, "dev migrations", err)
	}
	return client
}

// Must logs step as failed and exits when err is set.
func Must(logg *logger.Logger, step string, err error) {
	if err == nil {
		return
	}
	logg.Error(context.Background(), step+" failed", err)
	exit(1)
}

// Close runs closeFn and logs a failure; meant for defer.
func Close(logg *logger.Logger, what string, closeFn func() error) {
	if err := closeFn(); err != nil {
		logg.Error(context.Background(), "close "+what, err)
	}
}
