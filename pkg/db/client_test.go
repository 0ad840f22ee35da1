package db

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/digitos-team/masala-software/pkg/config"
	"github.com/digitos-team/masala-software/pkg/logger"
)

type spice struct {
	ID   int
	Code string `gorm:"uniqueIndex"`
}

func openSQLite(t *testing.T, opts ...func(*gorm.Config)) *gorm.DB {
	t.Helper()
	cfg := &gorm.Config{SkipDefaultTransaction: true, Logger: QueryLogger(nil, 0)}
	for _, opt := range opts {
		opt(cfg)
	}
	conn, err := gorm.Open(sqlite.Open("file:db_"+uuid.NewString()+"?mode=memory&cache=shared"), cfg)
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&spice{}))
	pool, err := conn.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = pool.Close() })
	return conn
}

func count(t *testing.T, conn *gorm.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, conn.Model(&spice{}).Count(&n).Error)
	return n
}

func TestWithTxCommitsOrRollsBack(t *testing.T) {
	conn := openSQLite(t)
	client := NewFromConn(conn)
	ctx := context.Background()

	require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
		return tx.Create(&spice{Code: "HALDI-500"}).Error
	}))
	assert.EqualValues(t, 1, count(t, conn))

	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&spice{Code: "JEERA-100"}).Error; err != nil {
			return err
		}
		return errors.New("stock check failed")
	})
	require.EqualError(t, err, "stock check failed")
	assert.EqualValues(t, 1, count(t, conn))
}

func TestWithTxRollsBackOnPanic(t *testing.T) {
	conn := openSQLite(t)
	client := NewFromConn(conn)

	assert.PanicsWithValue(t, "boom", func() {
		_ = client.WithTx(context.Background(), func(tx *gorm.DB) error {
			require.NoError(t, tx.Create(&spice{Code: "MIRCH-200"}).Error)
			panic("boom")
		})
	})
	assert.Zero(t, count(t, conn))
}

func TestNewOpensSQLite(t *testing.T) {
	client, err := New(context.Background(), config.DBConfig{
		Driver: config.DriverSQLite,
		DSN:    "file:db_new_" + uuid.NewString() + "?mode=memory&cache=shared",
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	require.NoError(t, client.Ping(context.Background()))
	pool, err := client.DB().DB()
	require.NoError(t, err)
	assert.Equal(t, 1, pool.Stats().MaxOpenConnections)

	_, err = New(context.Background(), config.DBConfig{Driver: config.DriverSQLite}, nil)
	assert.Error(t, err)
}

func TestIsUniqueViolation(t *testing.T) {
	conn := openSQLite(t)
	require.NoError(t, conn.Create(&spice{Code: "ORD-2026-001"}).Error)
	dup := conn.Create(&spice{Code: "ORD-2026-001"}).Error
	require.Error(t, dup)

	assert.True(t, IsUniqueViolation(dup, ""))
	assert.True(t, IsUniqueViolation(dup, "code"))
	assert.False(t, IsUniqueViolation(errors.New("connection refused"), ""))
	assert.False(t, IsUniqueViolation(nil, ""))
}

func TestQueryLoggerReportsFailuresAndSlowQueries(t *testing.T) {
	var out bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "db-test", Level: "debug", Output: &out})

	quiet := openSQLite(t, func(c *gorm.Config) { c.Logger = QueryLogger(logg, 0) })
	var missing spice
	assert.ErrorIs(t, quiet.First(&missing, "code = ?", "NONE").Error, gorm.ErrRecordNotFound)
	require.NoError(t, quiet.Create(&spice{Code: "ELAICHI-50"}).Error)
	require.Error(t, quiet.Exec("SELECT * FROM no_such_table").Error)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 1, "only the failed statement is logged: %s", out.String())
	var failed map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &failed))
	assert.Equal(t, "error", failed["level"])
	assert.Equal(t, "query failed", failed["message"])
	assert.Contains(t, failed["sql"], "no_such_table")

	slow := openSQLite(t, func(c *gorm.Config) { c.Logger = QueryLogger(logg, 1) })
	out.Reset()
	require.NoError(t, slow.Create(&spice{Code: "LAUNG-25"}).Error)
	assert.Contains(t, out.String(), `"message":"slow query"`)
}
