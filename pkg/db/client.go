package db

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/digitos-team/masala-software/pkg/config"
	"github.com/digitos-team/masala-software/pkg/logger"
)

// Client owns the process-wide gorm pool. Services take a *Client when they
// need transactions and a *gorm.DB for plain reads.
type Client struct {
	conn *gorm.DB
}

// New opens the configured driver, applies pool limits and verifies the
// connection before returning.
func New(ctx context.Context, cfg config.DBConfig, logg *logger.Logger) (*Client, error) {
	if cfg.DSN == "" {
		return nil, errors.New("database DSN is required")
	}
	conn, err := gorm.Open(dialector(cfg), &gorm.Config{
		Logger:                 QueryLogger(logg, cfg.SlowQueryThreshold),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Driver, err)
	}

	pool, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("sql handle: %w", err)
	}
	maxOpen := cfg.MaxOpenConns
	if cfg.IsSQLite() {
		// one writer at a time, or sqlite answers SQLITE_BUSY
		maxOpen = 1
	}
	if maxOpen > 0 {
		pool.SetMaxOpenConns(maxOpen)
	}
	if cfg.MaxIdleConns > 0 {
		pool.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	pool.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	pool.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	client := &Client{conn: conn}
	if err := client.Ping(ctx); err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("ping %s: %w", cfg.Driver, err)
	}
	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{
			"driver":         cfg.Driver,
			"max_open_conns": maxOpen,
		}), "database connection established")
	}
	return client, nil
}

func dialector(cfg config.DBConfig) gorm.Dialector {
	if cfg.IsSQLite() {
		return sqlite.Open(cfg.DSN)
	}
	// simple protocol keeps pgbouncer in transaction mode happy
	return postgres.New(postgres.Config{DSN: cfg.DSN, PreferSimpleProtocol: true})
}

// NewFromConn wraps a connection opened elsewhere, e.g. by dbtest.
func NewFromConn(conn *gorm.DB) *Client {
	return &Client{conn: conn}
}

func (c *Client) DB() *gorm.DB {
	return c.conn
}

func (c *Client) Ping(ctx context.Context) error {
	pool, err := c.conn.DB()
	if err != nil {
		return err
	}
	return pool.PingContext(ctx)
}

func (c *Client) Close() error {
	pool, err := c.conn.DB()
	if err != nil {
		return err
	}
	return pool.Close()
}

// WithTx runs fn in a transaction bound to ctx. An error from fn rolls back;
// a panic rolls back and is re-raised.
func (c *Client) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) (err error) {
	tx := c.conn.WithContext(ctx).Begin()
	if tx.Error != nil {
		return fmt.Errorf("begin: %w", tx.Error)
	}
	committed := false
	defer func() {
		if committed {
			return
		}
		if rec := recover(); rec != nil {
			tx.Rollback()
			panic(rec)
		}
		tx.Rollback()
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit().Error; err != nil {
		return err
	}
	committed = true
	return nil
}
